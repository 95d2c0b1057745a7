package fetch

import (
	"context"
	"errors"
	"time"

	"github.com/niukuo/git-remote-bucket/bundle"
	"github.com/niukuo/git-remote-bucket/logging"
	"github.com/niukuo/git-remote-bucket/objstore"
	"github.com/niukuo/git-remote-bucket/refs"
)

type Fetcher interface {
	Fetch(ctx context.Context, cmd refs.FetchCommand) error
}

// BundleFetcher downloads the bundle of one ref tip and applies it.
// It keeps no mutable state and is safe for concurrent use.
type BundleFetcher = *bundleFetcher
type bundleFetcher struct {
	store   objstore.Store
	codec   bundle.Codec
	prefix  string
	timeout time.Duration
	logger  logging.Logger
}

type FetcherOptions func(f *bundleFetcher)

// WithTimeout bounds a single fetch, zero means no deadline.
func WithTimeout(d time.Duration) FetcherOptions {
	return FetcherOptions(func(f *bundleFetcher) {
		f.timeout = d
	})
}

func WithLogger(logger logging.Logger) FetcherOptions {
	return FetcherOptions(func(f *bundleFetcher) {
		f.logger = logger
	})
}

func NewBundleFetcher(store objstore.Store, codec bundle.Codec, prefix string, opts ...FetcherOptions) BundleFetcher {
	f := &bundleFetcher{
		store:  store,
		codec:  codec,
		prefix: prefix,
		logger: logging.GetLogger("fetch"),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

func (f *bundleFetcher) Fetch(ctx context.Context, cmd refs.FetchCommand) error {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	key := objstore.BundleKey(f.prefix, cmd.Hash, cmd.Name)
	f.logger.Debugf("downloading %s", key)

	body, err := f.store.Get(ctx, key)
	if err != nil {
		reason := ReasonStorageError
		if errors.Is(err, objstore.ErrNotFound) {
			reason = ReasonStorageMiss
		}
		return &Error{Command: cmd, Reason: reason, Err: err}
	}
	defer body.Close()

	if err := f.codec.Apply(ctx, body); err != nil {
		reason := ReasonApplyError
		if errors.Is(err, bundle.ErrCorruptBundle) {
			reason = ReasonCorruptBundle
		}
		return &Error{Command: cmd, Reason: reason, Err: err}
	}

	return nil
}
