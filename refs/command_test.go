package refs_test

import (
	"errors"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/niukuo/git-remote-bucket/refs"
	"github.com/stretchr/testify/assert"
)

const sha1 = "c105d19ba64965d2c9d3d3246e7269059ef8bb8a"

func TestParseFetchCommand(t *testing.T) {
	s := assert.New(t)

	cmd, err := refs.ParseFetchCommand("fetch " + sha1 + " refs/heads/pytest")
	s.NoError(err)
	s.Equal(plumbing.NewHash(sha1), cmd.Hash)
	s.Equal(plumbing.ReferenceName("refs/heads/pytest"), cmd.Name)
	s.Equal("fetch "+sha1+" refs/heads/pytest", cmd.String())

	cmd, err = refs.ParseFetchCommand("fetch " + sha1 + " HEAD\n")
	s.NoError(err)
	s.Equal(plumbing.HEAD, cmd.Name)
}

func TestParseFetchCommandInvalid(t *testing.T) {
	s := assert.New(t)

	lines := []string{
		"fetch",
		"fetch " + sha1,
		"fetch " + sha1 + " refs/heads/a extra",
		"fetch c105d19ba649 refs/heads/a",
		"fetch zz05d19ba64965d2c9d3d3246e7269059ef8bb8a refs/heads/a",
		"fetch " + sha1 + " master",
		"fetch " + sha1 + " refs/heads/../a",
		"fetch " + sha1 + " refs/heads/",
		"push " + sha1 + " refs/heads/a",
	}

	for _, line := range lines {
		_, err := refs.ParseFetchCommand(line)
		s.Error(err, line)
		s.True(errors.Is(err, refs.ErrProtocolFault), line)
	}
}

func TestParseHash(t *testing.T) {
	s := assert.New(t)

	hash, err := refs.ParseHash(sha1)
	s.NoError(err)
	s.Equal(sha1, hash.String())

	_, err = refs.ParseHash(sha1[:39])
	s.Error(err)

	_, err = refs.ParseHash("g" + sha1[1:])
	s.Error(err)
}
