package refs

import (
	"bytes"
	"sort"
	"sync"
)

// RefSet records hashes fetched during the session. It only grows.
type RefSet = *refSet
type refSet struct {
	mutex  sync.Mutex
	hashes map[Hash]struct{}
}

func NewRefSet() RefSet {
	return &refSet{
		hashes: make(map[Hash]struct{}),
	}
}

// Insert reports whether hash was new.
func (s *refSet) Insert(hash Hash) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.hashes[hash]; ok {
		return false
	}
	s.hashes[hash] = struct{}{}
	return true
}

func (s *refSet) Contains(hash Hash) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, ok := s.hashes[hash]
	return ok
}

func (s *refSet) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return len(s.hashes)
}

// List returns a sorted snapshot.
func (s *refSet) List() []Hash {
	s.mutex.Lock()
	hashes := make([]Hash, 0, len(s.hashes))
	for hash := range s.hashes {
		hashes = append(hashes, hash)
	}
	s.mutex.Unlock()

	sort.Slice(hashes, func(i, j int) bool {
		return bytes.Compare(hashes[i][:], hashes[j][:]) < 0
	})
	return hashes
}
