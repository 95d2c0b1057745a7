package objstore

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/juju/errors"
	"go.etcd.io/bbolt"
)

var (
	BucketObjects = []byte("objects")
)

// BoltStore keeps a whole bucket in one bbolt file, for offline mirrors.
type BoltStore = *boltStore
type boltStore struct {
	db *bbolt.DB
}

func OpenBolt(path string) (BoltStore, error) {
	db, err := bbolt.Open(path, 0644, &bbolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, errors.Annotatef(err, "open bolt %s", path)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(BucketObjects)
		return err
	}); err != nil {
		db.Close()
		return nil, errors.Annotate(err, "init buckets")
	}

	return &boltStore{
		db: db,
	}, nil
}

func (s *boltStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	if err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(BucketObjects).Get([]byte(key))
		if v == nil {
			return notFound(key)
		}
		// v is only valid inside the transaction
		data = append([]byte(nil), v...)
		return nil
	}); err != nil {
		return nil, err
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *boltStore) List(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	p := []byte(prefix)

	if err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(BucketObjects).Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	}); err != nil {
		return nil, errors.Annotatef(err, "list %s", prefix)
	}

	return keys, nil
}

func (s *boltStore) Put(ctx context.Context, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Annotatef(err, "read %s", key)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(BucketObjects).Put([]byte(key), data)
	})
}

func (s *boltStore) Close() error {
	return s.db.Close()
}
