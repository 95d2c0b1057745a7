package fetch

import (
	"fmt"

	"github.com/niukuo/git-remote-bucket/refs"
)

type Reason int

const (
	ReasonStorageMiss Reason = iota + 1
	ReasonStorageError
	ReasonCorruptBundle
	ReasonApplyError
	ReasonNotAttempted
)

func (r Reason) String() string {
	switch r {
	case ReasonStorageMiss:
		return "storage_miss"
	case ReasonStorageError:
		return "storage_error"
	case ReasonCorruptBundle:
		return "corrupt_bundle"
	case ReasonApplyError:
		return "apply_error"
	case ReasonNotAttempted:
		return "not_attempted"
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// Error is the failed outcome of one fetch command.
type Error struct {
	Command refs.FetchCommand
	Reason  Reason
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s %s: %s: %v", e.Command.Hash, e.Command.Name, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
