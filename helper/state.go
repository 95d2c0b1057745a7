package helper

import "fmt"

type state int

const (
	stateIdle state = iota
	stateAccumulating
	stateDispatching
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateAccumulating:
		return "accumulating"
	case stateDispatching:
		return "dispatching"
	}
	return fmt.Sprintf("state(%d)", int(s))
}
