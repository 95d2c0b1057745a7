package storetest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/niukuo/git-remote-bucket/objstore"
	"github.com/stretchr/testify/suite"
)

// StoreSuite runs the same contract against every backend that can be
// written to locally.
type StoreSuite struct {
	suite.Suite
	store  objstore.WritableStore
	create func() objstore.WritableStore
}

func NewStoreSuite(create func() objstore.WritableStore) *StoreSuite {
	return &StoreSuite{
		create: create,
	}
}

func (s *StoreSuite) SetupTest() {
	s.store = s.create()
}

func (s *StoreSuite) TearDownTest() {
	s.NoError(s.store.Close())
	s.store = nil
}

func (s *StoreSuite) put(key, content string) {
	s.NoError(s.store.Put(context.Background(), key, strings.NewReader(content)))
}

func (s *StoreSuite) read(key string) (string, error) {
	rc, err := s.store.Get(context.Background(), key)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	return string(data), err
}

func (s *StoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), "repo/refs/heads/main/none.bundle")
	s.Error(err)
	s.True(errors.Is(err, objstore.ErrNotFound), "%v", err)
}

func (s *StoreSuite) TestPutGet() {
	s.put("repo/refs/heads/main/a.bundle", "bundle-a")
	s.put("repo/HEAD", "refs/heads/main")

	content, err := s.read("repo/refs/heads/main/a.bundle")
	s.NoError(err)
	s.Equal("bundle-a", content)

	content, err = s.read("repo/HEAD")
	s.NoError(err)
	s.Equal("refs/heads/main", content)

	s.put("repo/HEAD", "refs/heads/dev")
	content, err = s.read("repo/HEAD")
	s.NoError(err)
	s.Equal("refs/heads/dev", content)
}

func (s *StoreSuite) TestList() {
	s.put("repo/refs/heads/main/a.bundle", "a")
	s.put("repo/refs/heads/dev/b.bundle", "b")
	s.put("repo/HEAD", "refs/heads/main")
	s.put("other/refs/heads/main/c.bundle", "c")

	keys, err := s.store.List(context.Background(), "repo/")
	s.NoError(err)
	s.Equal([]string{
		"repo/HEAD",
		"repo/refs/heads/dev/b.bundle",
		"repo/refs/heads/main/a.bundle",
	}, keys)

	keys, err = s.store.List(context.Background(), "repo/refs/heads/ma")
	s.NoError(err)
	s.Equal([]string{"repo/refs/heads/main/a.bundle"}, keys)

	keys, err = s.store.List(context.Background(), "")
	s.NoError(err)
	s.Len(keys, 4)

	keys, err = s.store.List(context.Background(), "nothing/")
	s.NoError(err)
	s.Empty(keys)
}

func (s *StoreSuite) TestConcurrentGet() {
	for i := 0; i < 10; i++ {
		s.put(fmt.Sprintf("repo/refs/heads/b%d/x.bundle", i), fmt.Sprintf("content%d", i))
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 50)
	for j := 0; j < 5; j++ {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				content, err := s.read(fmt.Sprintf("repo/refs/heads/b%d/x.bundle", i))
				if err == nil && content != fmt.Sprintf("content%d", i) {
					err = fmt.Errorf("unexpected content %q for %d", content, i)
				}
				errCh <- err
			}(i)
		}
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		s.NoError(err)
	}
}
