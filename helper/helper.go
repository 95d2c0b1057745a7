package helper

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	juju "github.com/juju/errors"
	"github.com/niukuo/git-remote-bucket/fetch"
	"github.com/niukuo/git-remote-bucket/logging"
	"github.com/niukuo/git-remote-bucket/objstore"
	"github.com/niukuo/git-remote-bucket/refs"
)

var (
	ErrPushUnsupported = errors.New("push is not supported")
)

// BatchExecutor runs one drained batch to completion.
type BatchExecutor interface {
	Execute(ctx context.Context, batch []refs.FetchCommand) (*fetch.Result, error)
}

// Helper speaks the remote helper protocol. It is driven by a single
// reader and is not safe for concurrent use.
type Helper = *helper
type helper struct {
	out      *bufio.Writer
	state    state
	queue    []refs.FetchCommand
	executor BatchExecutor
	store    objstore.Store
	prefix   string
	logger   logging.Logger
}

type Options func(h *helper)

func WithLogger(logger logging.Logger) Options {
	return Options(func(h *helper) {
		h.logger = logger
	})
}

// WithStore enables the list command against the given bucket prefix.
func WithStore(store objstore.Store, prefix string) Options {
	return Options(func(h *helper) {
		h.store = store
		h.prefix = prefix
	})
}

func NewHelper(out io.Writer, executor BatchExecutor, opts ...Options) Helper {
	h := &helper{
		out:      bufio.NewWriter(out),
		state:    stateIdle,
		executor: executor,
		logger:   logging.GetLogger("helper"),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Run processes lines until EOF or the first fatal error.
func (h *helper) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := h.ProcessLine(ctx, scanner.Text()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return juju.Annotate(err, "read stdin")
	}
	if len(h.queue) > 0 {
		h.logger.Warningf("input closed with %d queued fetch commands", len(h.queue))
	}
	return nil
}

func (h *helper) ProcessLine(ctx context.Context, line string) error {
	line = strings.TrimRight(line, "\r\n")
	h.logger.Debugf("< %q, state: %s", line, h.state)

	if line == "" {
		return h.boundary(ctx)
	}

	cmd := line
	if i := strings.IndexByte(line, ' '); i >= 0 {
		cmd = line[:i]
	}

	switch cmd {
	case "fetch":
		return h.queueFetch(line)
	case "capabilities":
		return h.capabilities()
	case "list":
		return h.list(ctx, line)
	case "option":
		return h.option(line)
	case "push":
		return fmt.Errorf("%w: %s", ErrPushUnsupported, line)
	}

	return fmt.Errorf("%w: unknown command %q", refs.ErrProtocolFault, cmd)
}

func (h *helper) queueFetch(line string) error {
	cmd, err := refs.ParseFetchCommand(line)
	if err != nil {
		return err
	}
	h.queue = append(h.queue, cmd)
	h.state = stateAccumulating
	return nil
}

// boundary dispatches the queued batch and acknowledges it. The
// acknowledgment is written even when the batch failed; the batch error
// is returned afterwards.
func (h *helper) boundary(ctx context.Context) error {
	batch := h.queue
	h.queue = nil

	var batchErr error
	if len(batch) > 0 {
		h.state = stateDispatching
		_, batchErr = h.executor.Execute(ctx, batch)
		if batchErr != nil {
			h.logger.Error("batch failed, err: ", batchErr)
		}
	}
	h.state = stateIdle

	if err := h.writeLines(""); err != nil {
		return err
	}
	return batchErr
}

func (h *helper) capabilities() error {
	return h.writeLines("*fetch", "option", "")
}

func (h *helper) option(line string) error {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return fmt.Errorf("%w: malformed option %q", refs.ErrProtocolFault, line)
	}

	switch fields[1] {
	case "verbosity":
		n, err := strconv.Atoi(fields[2])
		if err != nil {
			return h.writeLines("error invalid verbosity " + fields[2])
		}
		logging.SetVerbosity(n)
		return h.writeLines("ok")
	}
	return h.writeLines("unsupported")
}

func (h *helper) writeLines(lines ...string) error {
	for _, line := range lines {
		if _, err := h.out.WriteString(line + "\n"); err != nil {
			return juju.Annotate(err, "write stdout")
		}
	}
	if err := h.out.Flush(); err != nil {
		return juju.Annotate(err, "flush stdout")
	}
	return nil
}
