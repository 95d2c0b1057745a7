package refs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

// ErrProtocolFault marks input git should never have sent. Fatal to the session.
var ErrProtocolFault = errors.New("protocol fault")

type FetchCommand struct {
	Hash Hash
	Name plumbing.ReferenceName
}

func (c FetchCommand) String() string {
	return fmt.Sprintf("fetch %s %s", c.Hash, c.Name)
}

func ValidateName(name string) error {
	if name == plumbing.HEAD.String() {
		return nil
	}
	if !strings.HasPrefix(name, "refs/") {
		return fmt.Errorf("invalid refs: %s", name)
	}
	if strings.Contains(name, "..") || strings.HasSuffix(name, "/") ||
		strings.ContainsAny(name, " \t\n\x00") {
		return fmt.Errorf("invalid refs: %s", name)
	}
	return nil
}

// ParseFetchCommand parses "fetch <hash> <ref>".
func ParseFetchCommand(line string) (FetchCommand, error) {
	var cmd FetchCommand

	slices := strings.Split(strings.TrimRight(line, "\r\n"), " ")
	if len(slices) != 3 || slices[0] != "fetch" {
		return cmd, fmt.Errorf("%w: invalid fetch line: %q", ErrProtocolFault, line)
	}

	hash, err := ParseHash(slices[1])
	if err != nil {
		return cmd, fmt.Errorf("%w: %v", ErrProtocolFault, err)
	}

	if err := ValidateName(slices[2]); err != nil {
		return cmd, fmt.Errorf("%w: %v", ErrProtocolFault, err)
	}

	cmd.Hash = hash
	cmd.Name = plumbing.ReferenceName(slices[2])
	return cmd, nil
}
