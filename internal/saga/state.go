package saga

import "sync/atomic"

// State is the lifecycle position of one saga.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateRunning
	StateSleeping
	StateCancelling
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateRunning:
		return "running"
	case StateSleeping:
		return "sleeping"
	case StateCancelling:
		return "cancelling"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// stateMachine is a lock-free holder for the saga's current state.
type stateMachine struct {
	v atomic.Int32
}

func (m *stateMachine) set(s State) {
	m.v.Store(int32(s))
}

func (m *stateMachine) get() State {
	return State(m.v.Load())
}
