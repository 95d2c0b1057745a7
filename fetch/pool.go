package fetch

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

var ErrStopped = errors.New("pool stopped")

// Pool bounds the number of fetches running at once. One pool lives for
// the whole session and is shared by every batch.
type Pool = *pool
type pool struct {
	size int64
	sem  *semaphore.Weighted

	stopOnce sync.Once
	stopCtx  context.Context
	stop     context.CancelFunc
}

func StartPool(size int) Pool {
	if size < 1 {
		size = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &pool{
		size:    int64(size),
		sem:     semaphore.NewWeighted(int64(size)),
		stopCtx: ctx,
		stop:    cancel,
	}
}

func (p *pool) Size() int {
	return int(p.size)
}

// Submit blocks until a slot is free, then runs task in its own
// goroutine. It fails with ctx's error or ErrStopped when no slot could
// be taken; task is not run in that case.
func (p *pool) Submit(ctx context.Context, task func()) error {
	if p.stopCtx.Err() != nil {
		return ErrStopped
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	unregister := context.AfterFunc(p.stopCtx, cancel)
	defer unregister()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		if p.stopCtx.Err() != nil {
			return ErrStopped
		}
		return err
	}

	go func() {
		defer p.sem.Release(1)
		busyWorkers.Inc()
		defer busyWorkers.Dec()
		task()
	}()

	return nil
}

// Stop rejects further tasks and waits for running ones to finish.
func (p *pool) Stop() {
	p.stopOnce.Do(func() {
		p.stop()
		// holding every slot means nothing is running
		_ = p.sem.Acquire(context.Background(), p.size)
	})
}
