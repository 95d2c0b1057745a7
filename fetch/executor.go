package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/niukuo/git-remote-bucket/logging"
	"github.com/niukuo/git-remote-bucket/refs"
	"go.uber.org/multierr"
)

type Outcome struct {
	Command refs.FetchCommand
	Err     error
}

func (o Outcome) Success() bool {
	return o.Err == nil
}

// Result holds one outcome per command, in request order.
type Result struct {
	Outcomes []Outcome
}

func (r *Result) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if !o.Success() {
			failed = append(failed, o)
		}
	}
	return failed
}

func (r *Result) Err() error {
	var err error
	for _, o := range r.Outcomes {
		err = multierr.Append(err, o.Err)
	}
	return err
}

// Executor runs a batch of fetch commands on the pool. Batches never
// overlap; commands within a batch run concurrently and a failure does
// not cancel its siblings.
type Executor = *executor
type executor struct {
	mutex   sync.Mutex
	pool    Pool
	fetcher Fetcher
	fetched refs.RefSet
	logger  logging.Logger
}

func NewExecutor(pool Pool, fetcher Fetcher, fetched refs.RefSet, logger logging.Logger) Executor {
	return &executor{
		pool:    pool,
		fetcher: fetcher,
		fetched: fetched,
		logger:  logger,
	}
}

func (e *executor) Fetched() refs.RefSet {
	return e.fetched
}

// Execute returns once every command has been attempted. The error is
// non-nil if any command failed and combines all failures.
func (e *executor) Execute(ctx context.Context, batch []refs.FetchCommand) (*Result, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	start := time.Now()
	batchCommands.Observe(float64(len(batch)))

	res := &Result{
		Outcomes: make([]Outcome, len(batch)),
	}

	var wg sync.WaitGroup
	for i, cmd := range batch {
		i, cmd := i, cmd
		res.Outcomes[i].Command = cmd

		wg.Add(1)
		task := func() {
			defer wg.Done()
			res.Outcomes[i].Err = e.fetchOne(ctx, cmd)
		}

		if err := e.pool.Submit(ctx, task); err != nil {
			res.Outcomes[i].Err = &Error{Command: cmd, Reason: ReasonNotAttempted, Err: err}
			fetchTotal.WithLabelValues(ReasonNotAttempted.String()).Inc()
			wg.Done()
		}
	}
	wg.Wait()

	err := res.Err()
	failed := len(multierr.Errors(err))
	e.logger.Infof("batch done, commands: %d, failed: %d, fetched: %d, cost: %v",
		len(batch), failed, e.fetched.Len(), time.Since(start))

	return res, err
}

func (e *executor) fetchOne(ctx context.Context, cmd refs.FetchCommand) error {
	start := time.Now()
	err := e.fetcher.Fetch(ctx, cmd)
	fetchSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		result := "error"
		if ferr, ok := err.(*Error); ok {
			result = ferr.Reason.String()
		}
		fetchTotal.WithLabelValues(result).Inc()
		e.logger.Warning("fetch failed, err: ", err)
		return err
	}

	e.fetched.Insert(cmd.Hash)
	fetchTotal.WithLabelValues("ok").Inc()
	e.logger.Debugf("fetched %s %s", cmd.Hash, cmd.Name)
	return nil
}
