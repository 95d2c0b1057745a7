package objstore

import (
	"context"
	"errors"
	"io"
	"time"
)

type instrumented struct {
	Store
	backend string
}

// Instrument records request counts and latencies of s under backend.
func Instrument(backend string, s Store) Store {
	return &instrumented{
		Store:   s,
		backend: backend,
	}
}

func (s *instrumented) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	start := time.Now()
	rc, err := s.Store.Get(ctx, key)
	s.observe("get", start, err)
	return rc, err
}

func (s *instrumented) List(ctx context.Context, prefix string) ([]string, error) {
	start := time.Now()
	keys, err := s.Store.List(ctx, prefix)
	s.observe("list", start, err)
	return keys, err
}

func (s *instrumented) observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	storeRequests.WithLabelValues(s.backend, op, result).Inc()
	storeSeconds.WithLabelValues(s.backend, op).Observe(time.Since(start).Seconds())
}
