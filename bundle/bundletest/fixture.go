// Package bundletest builds bundles from go-git fixtures for tests.
package bundletest

import (
	"bytes"
	"fmt"
	"io"

	fixtures "github.com/go-git/go-git-fixtures/v4"
	"github.com/go-git/go-git/v5/plumbing"
)

// Build returns a v2 bundle wrapping pack with one reference per entry.
func Build(references map[plumbing.ReferenceName]plumbing.Hash, prerequisites []plumbing.Hash, pack io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# v2 git bundle\n")
	for _, p := range prerequisites {
		fmt.Fprintf(&buf, "-%s prerequisite\n", p)
	}
	for name, hash := range references {
		fmt.Fprintf(&buf, "%s %s\n", hash, name)
	}
	buf.WriteString("\n")
	if _, err := io.Copy(&buf, pack); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Basic is a bundle of the go-git basic fixture with its head on ref.
func Basic(ref plumbing.ReferenceName) (plumbing.Hash, []byte, error) {
	f := fixtures.Basic().One()
	pack := f.Packfile()
	defer pack.Close()

	head := plumbing.NewHash(f.Head)
	data, err := Build(map[plumbing.ReferenceName]plumbing.Hash{ref: head}, nil, pack)
	return head, data, err
}
