package objstore_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/niukuo/git-remote-bucket/config"
	"github.com/niukuo/git-remote-bucket/objstore"
	"github.com/niukuo/git-remote-bucket/objstore/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

const sha1 = "c105d19ba64965d2c9d3d3246e7269059ef8bb8a"

func TestMemStore(t *testing.T) {
	suite.Run(t, storetest.NewStoreSuite(func() objstore.WritableStore {
		return objstore.NewMemStore()
	}))
}

func TestFSStore(t *testing.T) {
	s := assert.New(t)
	suite.Run(t, storetest.NewStoreSuite(func() objstore.WritableStore {
		store, err := objstore.OpenFS(t.TempDir())
		s.NoError(err)
		return store
	}))
}

func TestBoltStore(t *testing.T) {
	s := assert.New(t)
	suite.Run(t, storetest.NewStoreSuite(func() objstore.WritableStore {
		store, err := objstore.OpenBolt(filepath.Join(t.TempDir(), "objects.bolt"))
		s.NoError(err)
		return store
	}))
}

func TestBundleKey(t *testing.T) {
	s := assert.New(t)

	hash := plumbing.NewHash(sha1)
	s.Equal("test_prefix/refs/heads/pytest/"+sha1+".bundle",
		objstore.BundleKey("test_prefix", hash, "refs/heads/pytest"))
	s.Equal("refs/heads/pytest/"+sha1+".bundle",
		objstore.BundleKey("", hash, "refs/heads/pytest"))

	for _, prefix := range []string{"", "test_prefix", "a/b"} {
		key := objstore.BundleKey(prefix, hash, "refs/tags/v1.0")
		h, ref, ok := objstore.ParseBundleKey(prefix, key)
		s.True(ok, key)
		s.Equal(hash, h)
		s.Equal(plumbing.ReferenceName("refs/tags/v1.0"), ref)
	}
}

func TestParseBundleKeyInvalid(t *testing.T) {
	s := assert.New(t)

	keys := []string{
		"p/HEAD",
		"p/refs/heads/main/" + sha1 + ".pack",
		"p/refs/heads/main/notahash.bundle",
		"p/" + sha1 + ".bundle",
		"q/refs/heads/main/" + sha1 + ".bundle",
	}
	for _, key := range keys {
		_, _, ok := objstore.ParseBundleKey("p", key)
		s.False(ok, key)
	}
}

func TestOpen(t *testing.T) {
	s := assert.New(t)
	ctx := context.Background()

	remote, err := config.ParseRemoteURL("file://" + t.TempDir())
	s.NoError(err)
	store, prefix, err := objstore.Open(ctx, remote, nil)
	s.NoError(err)
	s.Equal("", prefix)
	s.NoError(store.Close())

	remote, err = config.ParseRemoteURL("bolt://" + filepath.Join(t.TempDir(), "m.bolt") + "?prefix=team/repo")
	s.NoError(err)
	store, prefix, err = objstore.Open(ctx, remote, nil)
	s.NoError(err)
	s.Equal("team/repo", prefix)
	keys, err := store.List(ctx, prefix)
	s.NoError(err)
	s.Empty(keys)
	s.NoError(store.Close())

	for _, scheme := range []string{"ftp", "mem"} {
		_, _, err = objstore.Open(ctx, config.RemoteURL{Scheme: scheme}, nil)
		s.Error(err, scheme)
		s.True(strings.Contains(err.Error(), "unsupported"), scheme)
	}
}
