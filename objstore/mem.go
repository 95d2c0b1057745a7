package objstore

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
)

type MemStore = *memStore
type memStore struct {
	mutex   sync.RWMutex
	objects map[string][]byte
}

func NewMemStore() MemStore {
	return &memStore{
		objects: make(map[string][]byte),
	}
}

func (s *memStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	data, ok := s.objects[key]
	s.mutex.RUnlock()

	if !ok {
		return nil, notFound(key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStore) List(ctx context.Context, prefix string) ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	keys := make([]string, 0)
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *memStore) Put(ctx context.Context, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	s.objects[key] = data
	s.mutex.Unlock()
	return nil
}

func (s *memStore) Close() error {
	return nil
}
