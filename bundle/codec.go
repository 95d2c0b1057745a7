package bundle

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-git/go-git/v5/plumbing/format/packfile"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/juju/errors"
)

// Codec applies a bundle stream to the local repository. Errors wrapping
// ErrCorruptBundle mean the bytes were not a bundle; anything else is an
// apply failure.
type Codec interface {
	Apply(ctx context.Context, r io.Reader) error
}

type StorerCodec = *storerCodec
type storerCodec struct {
	// pack writes into one repository must not interleave
	mutex  sync.Mutex
	storer storer.Storer
}

// NewStorerCodec applies bundles in process through a go-git storer.
func NewStorerCodec(s storer.Storer) StorerCodec {
	return &storerCodec{
		storer: s,
	}
}

func (c *storerCodec) Apply(ctx context.Context, r io.Reader) error {
	br := bufio.NewReader(&contextReader{ctx: ctx, r: r})

	h, err := ReadHeader(br)
	if err != nil {
		return err
	}

	if format, ok := h.Capabilities["object-format"]; ok && format != "sha1" {
		return fmt.Errorf("unsupported object format %q", format)
	}

	for _, prereq := range h.Prerequisites {
		if err := c.storer.HasEncodedObject(prereq); err != nil {
			return errors.Annotatef(err, "missing prerequisite %s", prereq)
		}
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := packfile.UpdateObjectStorage(c.storer, br); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if stderrors.Is(err, packfile.ErrEmptyPackfile) || stderrors.Is(err, packfile.ErrBadSignature) {
			return fmt.Errorf("%w: %v", ErrCorruptBundle, err)
		}
		return errors.Annotate(err, "write packfile")
	}

	return nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
