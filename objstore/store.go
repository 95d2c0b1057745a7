package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/niukuo/git-remote-bucket/config"
	"github.com/niukuo/git-remote-bucket/refs"
)

const (
	BundleExt = ".bundle"
	HeadKey   = "HEAD"
)

var (
	ErrNotFound = errors.New("object not found")
)

// Store is the read side of the bucket. Get returns an error wrapping
// ErrNotFound for missing keys; any other error is treated as transient.
type Store interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// List returns every key starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

type Putter interface {
	Put(ctx context.Context, key string, r io.Reader) error
}

type WritableStore interface {
	Store
	Putter
}

// BundleKey maps a ref tip to the object holding its bundle:
// <prefix>/<ref>/<hash>.bundle
func BundleKey(prefix string, hash plumbing.Hash, ref plumbing.ReferenceName) string {
	return path.Join(prefix, ref.String(), hash.String()+BundleExt)
}

// ParseBundleKey is the inverse of BundleKey.
func ParseBundleKey(prefix, key string) (plumbing.Hash, plumbing.ReferenceName, bool) {
	rel := key
	if prefix != "" {
		if !strings.HasPrefix(key, prefix+"/") {
			return plumbing.ZeroHash, "", false
		}
		rel = key[len(prefix)+1:]
	}

	if !strings.HasSuffix(rel, BundleExt) {
		return plumbing.ZeroHash, "", false
	}
	slash := strings.LastIndex(rel, "/")
	if slash <= 0 {
		return plumbing.ZeroHash, "", false
	}

	ref, file := rel[:slash], strings.TrimSuffix(rel[slash+1:], BundleExt)
	hash, err := refs.ParseHash(file)
	if err != nil {
		return plumbing.ZeroHash, "", false
	}
	return hash, plumbing.ReferenceName(ref), true
}

func notFound(key string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, key)
}

type Options struct {
	S3Endpoint  string
	S3Region    string
	S3PathStyle bool
}

func NewOptions() *Options {
	return &Options{}
}

// Open returns the store for a remote url together with the key prefix
// the repository lives under.
func Open(ctx context.Context, remote config.RemoteURL, opts *Options) (Store, string, error) {
	if opts == nil {
		opts = NewOptions()
	}

	var (
		s   Store
		err error
	)
	prefix := remote.Prefix

	switch remote.Scheme {
	case "s3":
		s, err = OpenS3(ctx, remote.Bucket, remote.Profile, opts)
	case "gs":
		s, err = OpenGCS(ctx, remote.Bucket)
	case "file":
		s, err = OpenFS(remote.Path)
	case "bolt":
		s, err = OpenBolt(remote.Path)
	default:
		err = fmt.Errorf("unsupported scheme %q", remote.Scheme)
	}
	if err != nil {
		return nil, "", err
	}

	return Instrument(remote.Scheme, s), prefix, nil
}
