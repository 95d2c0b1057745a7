package objstore

import (
	"context"
	"errors"
	"io"
	"sort"

	"cloud.google.com/go/storage"
	jujuerrors "github.com/juju/errors"
	"google.golang.org/api/iterator"
)

type GCSStore = *gcsStore
type gcsStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
}

// OpenGCS uses application default credentials.
func OpenGCS(ctx context.Context, bucket string) (GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, jujuerrors.Annotate(err, "new storage client")
	}
	return &gcsStore{
		client: client,
		bucket: client.Bucket(bucket),
		name:   bucket,
	}, nil
}

func (s *gcsStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, s.mapError(err, key)
	}
	return r, nil
}

func (s *gcsStore) List(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)

	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, jujuerrors.Annotatef(err, "gcs list gs://%s/%s", s.name, prefix)
		}
		keys = append(keys, attrs.Name)
	}

	sort.Strings(keys)
	return keys, nil
}

func (s *gcsStore) mapError(err error, key string) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return notFound(key)
	}
	return jujuerrors.Annotatef(err, "gcs get gs://%s/%s", s.name, key)
}

func (s *gcsStore) Close() error {
	return s.client.Close()
}
