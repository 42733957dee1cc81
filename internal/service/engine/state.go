package engine

import "fmt"

type State int32

const (
	StateCreated State = iota
	StateConnecting
	StateCompiling
	StateRunning
	StateStopping
	StateStopped
	StateFailed
)

var stateNames = map[State]string{
	StateCreated:    "CREATED",
	StateConnecting: "CONNECTING",
	StateCompiling:  "COMPILING",
	StateRunning:    "RUNNING",
	StateStopping:   "STOPPING",
	StateStopped:    "STOPPED",
	StateFailed:     "FAILED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateFailed
}

// FAILED 只能从启动阶段进入, RUNNING 之后的错误按 tick 隔离
var transitions = map[State][]State{
	StateCreated:    {StateConnecting, StateStopping},
	StateConnecting: {StateCompiling, StateFailed, StateStopping},
	StateCompiling:  {StateRunning, StateFailed, StateStopping},
	StateRunning:    {StateStopping},
	StateStopping:   {StateStopped},
}

func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
