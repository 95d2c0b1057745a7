package bundle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/niukuo/git-remote-bucket/refs"
)

const (
	signatureV2 = "# v2 git bundle"
	signatureV3 = "# v3 git bundle"
)

// ErrCorruptBundle is returned when the stream is not a readable bundle.
var ErrCorruptBundle = errors.New("corrupt bundle")

type Header struct {
	Version       int
	Capabilities  map[string]string
	Prerequisites []plumbing.Hash
	References    map[plumbing.ReferenceName]plumbing.Hash
}

// ReadHeader consumes the bundle header up to and including the blank
// line. The packfile follows in r.
func ReadHeader(r *bufio.Reader) (*Header, error) {
	sig, err := readLine(r)
	if err != nil {
		return nil, corrupt("read signature: %v", err)
	}

	h := &Header{
		Capabilities: make(map[string]string),
		References:   make(map[plumbing.ReferenceName]plumbing.Hash),
	}

	switch sig {
	case signatureV2:
		h.Version = 2
	case signatureV3:
		h.Version = 3
	default:
		return nil, corrupt("invalid signature %q", sig)
	}

	for {
		line, err := readLine(r)
		if err != nil {
			return nil, corrupt("read header: %v", err)
		}
		if line == "" {
			break
		}

		switch line[0] {
		case '@':
			if h.Version < 3 {
				return nil, corrupt("capability in v2 bundle: %q", line)
			}
			kv := strings.SplitN(line[1:], "=", 2)
			if len(kv) == 2 {
				h.Capabilities[kv[0]] = kv[1]
			} else {
				h.Capabilities[kv[0]] = ""
			}
		case '-':
			// "-<sha> <comment>"
			slices := strings.SplitN(line[1:], " ", 2)
			hash, err := refs.ParseHash(slices[0])
			if err != nil {
				return nil, corrupt("prerequisite: %v", err)
			}
			h.Prerequisites = append(h.Prerequisites, hash)
		default:
			slices := strings.SplitN(line, " ", 2)
			if len(slices) != 2 {
				return nil, corrupt("invalid reference line %q", line)
			}
			hash, err := refs.ParseHash(slices[0])
			if err != nil {
				return nil, corrupt("reference: %v", err)
			}
			h.References[plumbing.ReferenceName(slices[1])] = hash
		}
	}

	if len(h.References) == 0 {
		return nil, corrupt("no references")
	}

	return h, nil
}

func (h *Header) Contains(hash plumbing.Hash) bool {
	for _, target := range h.References {
		if target == hash {
			return true
		}
	}
	return false
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	return strings.TrimSuffix(line, "\n"), nil
}

func corrupt(format string, v ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrCorruptBundle, fmt.Sprintf(format, v...))
}
