package fetch

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/niukuo/git-remote-bucket/objstore"
	"github.com/niukuo/git-remote-bucket/refs"
	"github.com/stretchr/testify/mock"
)

const (
	testPrefix        = "test_prefix"
	mockBundleContent = "MOCK_BUNDLE_CONTENT"
	sha1              = "c105d19ba64965d2c9d3d3246e7269059ef8bb8a"
	sha2              = "c105d19ba64965d2c9d3d3246e7269059ef8bb8b"
	sha3              = "c105d19ba64965d2c9d3d3246e7269059ef8bb8c"
	branch            = "refs/heads/pytest"
)

type mockCodec struct {
	mock.Mock
}

func (m *mockCodec) Apply(ctx context.Context, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	args := m.Called(string(data))
	return args.Error(0)
}

// countingStore counts Get calls on top of a MemStore.
type countingStore struct {
	mem  objstore.MemStore
	gets int64
	err  error
}

func newCountingStore() *countingStore {
	return &countingStore{mem: objstore.NewMemStore()}
}

func (s *countingStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	atomic.AddInt64(&s.gets, 1)
	if s.err != nil {
		return nil, s.err
	}
	return s.mem.Get(ctx, key)
}

func (s *countingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.mem.List(ctx, prefix)
}

func (s *countingStore) Put(ctx context.Context, key string, r io.Reader) error {
	return s.mem.Put(ctx, key, r)
}

func (s *countingStore) Close() error {
	return nil
}

func (s *countingStore) Gets() int {
	return int(atomic.LoadInt64(&s.gets))
}

func (s *countingStore) seed(hash string, ref plumbing.ReferenceName, content string) {
	key := objstore.BundleKey(testPrefix, plumbing.NewHash(hash), ref)
	if err := s.Put(context.Background(), key, strings.NewReader(content)); err != nil {
		panic(err)
	}
}

func command(hash string, ref plumbing.ReferenceName) refs.FetchCommand {
	return refs.FetchCommand{Hash: plumbing.NewHash(hash), Name: ref}
}

func distinctHash(i int) string {
	return fmt.Sprintf("%040x", i+1)
}
