package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/niukuo/git-remote-bucket/bundle"
	"github.com/niukuo/git-remote-bucket/logging"
	"github.com/niukuo/git-remote-bucket/objstore"
	"github.com/niukuo/git-remote-bucket/refs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type ExecutorSuite struct {
	suite.Suite
	store    *countingStore
	codec    *mockCodec
	pool     Pool
	fetched  refs.RefSet
	executor Executor
}

func (s *ExecutorSuite) SetupTest() {
	s.store = newCountingStore()
	s.codec = &mockCodec{}
	s.codec.On("Apply", mockBundleContent).Return(nil)
	s.pool = StartPool(4)
	s.fetched = refs.NewRefSet()
	s.executor = NewExecutor(s.pool,
		NewBundleFetcher(s.store, s.codec, testPrefix),
		s.fetched, logging.GetLogger("executor.test"))
}

func (s *ExecutorSuite) TearDownTest() {
	s.pool.Stop()
}

func (s *ExecutorSuite) TestEmptyBatch() {
	res, err := s.executor.Execute(context.Background(), nil)
	s.NoError(err)
	s.Empty(res.Outcomes)
	s.Equal(0, s.store.Gets())
	s.codec.AssertNotCalled(s.T(), "Apply", mock.Anything)
	s.Equal(0, s.fetched.Len())
}

func (s *ExecutorSuite) TestSingleCommand() {
	s.store.seed(sha1, branch, mockBundleContent)

	res, err := s.executor.Execute(context.Background(), []refs.FetchCommand{
		command(sha1, branch),
	})
	s.NoError(err)
	s.Len(res.Outcomes, 1)
	s.True(res.Outcomes[0].Success())
	s.Equal(1, s.store.Gets())
	s.codec.AssertNumberOfCalls(s.T(), "Apply", 1)
	s.True(s.fetched.Contains(plumbing.NewHash(sha1)))
}

func (s *ExecutorSuite) TestMultipleCommands() {
	batch := []refs.FetchCommand{
		command(sha1, branch),
		command(sha2, branch),
		command(sha3, branch),
	}
	for _, cmd := range batch {
		s.store.seed(cmd.Hash.String(), cmd.Name, mockBundleContent)
	}

	res, err := s.executor.Execute(context.Background(), batch)
	s.NoError(err)
	s.Empty(res.Failed())
	s.Equal(3, s.store.Gets())
	s.codec.AssertNumberOfCalls(s.T(), "Apply", 3)
	for i, cmd := range batch {
		s.Equal(cmd, res.Outcomes[i].Command)
		s.True(s.fetched.Contains(cmd.Hash))
	}
}

func (s *ExecutorSuite) TestDuplicateCommands() {
	s.store.seed(sha1, branch, mockBundleContent)

	batch := make([]refs.FetchCommand, 20)
	for i := range batch {
		batch[i] = command(sha1, branch)
	}

	res, err := s.executor.Execute(context.Background(), batch)
	s.NoError(err)
	s.Len(res.Outcomes, 20)
	s.Equal(20, s.store.Gets())
	s.codec.AssertNumberOfCalls(s.T(), "Apply", 20)
	s.Equal(1, s.fetched.Len())
	s.Equal([]refs.Hash{plumbing.NewHash(sha1)}, s.fetched.List())
}

func (s *ExecutorSuite) TestDistinctCommandsStress() {
	batch := make([]refs.FetchCommand, 20)
	for i := range batch {
		batch[i] = command(distinctHash(i), branch)
		s.store.seed(distinctHash(i), branch, mockBundleContent)
	}

	for round := 0; round < 10; round++ {
		fetched := refs.NewRefSet()
		e := NewExecutor(s.pool, NewBundleFetcher(s.store, s.codec, testPrefix),
			fetched, logging.GetLogger("executor.test"))

		_, err := e.Execute(context.Background(), batch)
		s.NoError(err)
		s.Equal(20, fetched.Len())
		for _, cmd := range batch {
			s.True(fetched.Contains(cmd.Hash))
		}
	}
}

func (s *ExecutorSuite) TestNotFound() {
	res, err := s.executor.Execute(context.Background(), []refs.FetchCommand{
		command(sha1, branch),
	})
	s.Error(err)
	s.True(errors.Is(err, objstore.ErrNotFound))
	s.Len(res.Failed(), 1)

	var ferr *Error
	s.True(errors.As(res.Outcomes[0].Err, &ferr))
	s.Equal(ReasonStorageMiss, ferr.Reason)
	s.False(s.fetched.Contains(plumbing.NewHash(sha1)))
	s.codec.AssertNotCalled(s.T(), "Apply", mock.Anything)
}

func (s *ExecutorSuite) TestFailureDoesNotCancelSiblings() {
	s.store.seed(sha1, branch, mockBundleContent)
	s.store.seed(sha3, branch, mockBundleContent)

	res, err := s.executor.Execute(context.Background(), []refs.FetchCommand{
		command(sha1, branch),
		command(sha2, branch),
		command(sha3, branch),
	})
	s.Error(err)
	s.Len(res.Failed(), 1)
	s.Equal(plumbing.NewHash(sha2), res.Failed()[0].Command.Hash)
	s.Equal(3, s.store.Gets())
	s.True(s.fetched.Contains(plumbing.NewHash(sha1)))
	s.False(s.fetched.Contains(plumbing.NewHash(sha2)))
	s.True(s.fetched.Contains(plumbing.NewHash(sha3)))
}

func (s *ExecutorSuite) TestApplyFailureLeavesRefSet() {
	s.store.seed(sha1, branch, mockBundleContent)
	s.store.seed(sha2, branch, "CORRUPT")
	s.store.seed(sha3, branch, "BROKEN")
	s.codec.On("Apply", "CORRUPT").Return(bundle.ErrCorruptBundle)
	s.codec.On("Apply", "BROKEN").Return(errors.New("index-pack died"))

	res, err := s.executor.Execute(context.Background(), []refs.FetchCommand{
		command(sha1, branch),
		command(sha2, branch),
		command(sha3, branch),
	})
	s.Error(err)
	s.Len(res.Failed(), 2)
	s.True(res.Outcomes[0].Success())

	var ferr *Error
	s.True(errors.As(res.Outcomes[1].Err, &ferr))
	s.Equal(ReasonCorruptBundle, ferr.Reason)
	s.True(errors.As(res.Outcomes[2].Err, &ferr))
	s.Equal(ReasonApplyError, ferr.Reason)

	s.codec.AssertNumberOfCalls(s.T(), "Apply", 3)
	s.True(s.fetched.Contains(plumbing.NewHash(sha1)))
	s.False(s.fetched.Contains(plumbing.NewHash(sha2)))
	s.False(s.fetched.Contains(plumbing.NewHash(sha3)))
	s.Equal(1, s.fetched.Len())
}

func (s *ExecutorSuite) TestAcrossBatches() {
	s.store.seed(sha1, branch, mockBundleContent)
	s.store.seed(sha2, branch, mockBundleContent)

	_, err := s.executor.Execute(context.Background(), []refs.FetchCommand{command(sha1, branch)})
	s.NoError(err)
	_, err = s.executor.Execute(context.Background(), []refs.FetchCommand{command(sha2, branch)})
	s.NoError(err)

	s.Equal(2, s.fetched.Len())
}

func (s *ExecutorSuite) TestStoppedPool() {
	s.pool.Stop()

	res, err := s.executor.Execute(context.Background(), []refs.FetchCommand{
		command(sha1, branch),
		command(sha2, branch),
	})
	s.Error(err)
	s.Len(res.Failed(), 2)
	for _, o := range res.Outcomes {
		var ferr *Error
		s.True(errors.As(o.Err, &ferr))
		s.Equal(ReasonNotAttempted, ferr.Reason)
	}
	s.Equal(0, s.store.Gets())
}

func TestExecutor(t *testing.T) {
	suite.Run(t, new(ExecutorSuite))
}

// trackingFetcher fails the test if commands of two batches are in
// flight at the same time. Batches are told apart by ref name.
type trackingFetcher struct {
	mutex    sync.Mutex
	inflight map[plumbing.ReferenceName]int
	overlaps int
	calls    int32
}

func (f *trackingFetcher) Fetch(ctx context.Context, cmd refs.FetchCommand) error {
	atomic.AddInt32(&f.calls, 1)

	f.mutex.Lock()
	for name, n := range f.inflight {
		if name != cmd.Name && n > 0 {
			f.overlaps++
		}
	}
	f.inflight[cmd.Name]++
	f.mutex.Unlock()

	time.Sleep(2 * time.Millisecond)

	f.mutex.Lock()
	f.inflight[cmd.Name]--
	f.mutex.Unlock()
	return nil
}

func TestExecutorSerializesBatches(t *testing.T) {
	s := assert.New(t)

	p := StartPool(4)
	defer p.Stop()

	fetcher := &trackingFetcher{inflight: make(map[plumbing.ReferenceName]int)}
	e := NewExecutor(p, fetcher, refs.NewRefSet(), logging.GetLogger("executor.test"))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ref := plumbing.NewBranchReferenceName(fmt.Sprintf("batch-%d", i))
			batch := []refs.FetchCommand{
				command(distinctHash(i*3), ref),
				command(distinctHash(i*3+1), ref),
				command(distinctHash(i*3+2), ref),
			}
			_, err := e.Execute(context.Background(), batch)
			s.NoError(err)
		}(i)
	}
	wg.Wait()

	s.Equal(0, fetcher.overlaps)
	s.Equal(int32(15), atomic.LoadInt32(&fetcher.calls))
	s.Equal(15, e.Fetched().Len())
}
