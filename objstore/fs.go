package objstore

import (
	"context"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/juju/errors"
)

// fsStore keeps one file per key below a root directory. Handy for
// remotes on a shared mount.
type FSStore = *fsStore
type fsStore struct {
	fs billy.Filesystem
}

func OpenFS(root string) (FSStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.Annotatef(err, "create store root %s", root)
	}
	return NewFSStore(osfs.New(root)), nil
}

func NewFSStore(fs billy.Filesystem) FSStore {
	return &fsStore{
		fs: fs,
	}
}

func (s *fsStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.fs.Open(key)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(key)
		}
		return nil, errors.Annotatef(err, "open %s", key)
	}
	return f, nil
}

func (s *fsStore) List(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	if err := s.walk(ctx, "", prefix, &keys); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *fsStore) walk(ctx context.Context, dir, prefix string, keys *[]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	infos, err := s.fs.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Annotatef(err, "read dir %s", dir)
	}

	for _, info := range infos {
		name := path.Join(dir, info.Name())
		if info.IsDir() {
			// skip subtrees that cannot match
			if !strings.HasPrefix(name+"/", prefix) && !strings.HasPrefix(prefix, name+"/") {
				continue
			}
			if err := s.walk(ctx, name, prefix, keys); err != nil {
				return err
			}
			continue
		}
		if strings.HasPrefix(name, prefix) {
			*keys = append(*keys, name)
		}
	}
	return nil
}

func (s *fsStore) Put(ctx context.Context, key string, r io.Reader) (err error) {
	if dir := path.Dir(key); dir != "." {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return errors.Annotatef(err, "mkdir %s", dir)
		}
	}

	f, err := s.fs.Create(key)
	if err != nil {
		return errors.Annotatef(err, "create %s", key)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if _, err := io.Copy(f, r); err != nil {
		return errors.Annotatef(err, "write %s", key)
	}
	return nil
}

func (s *fsStore) Close() error {
	return nil
}
