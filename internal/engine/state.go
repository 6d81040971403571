package engine

import (
	"github.com/windowkeep/sentrywin/internal/domain"
	"github.com/windowkeep/sentrywin/internal/ports"
)

// stateKind enumerates the WindowActor's states.
type stateKind int

const (
	stateInitializing stateKind = iota
	stateReady
	stateWindowing
	statePausing
)

func (s stateKind) String() string {
	switch s {
	case stateInitializing:
		return "initializing"
	case stateReady:
		return "ready"
	case stateWindowing:
		return "windowing"
	case statePausing:
		return "pausing"
	default:
		return "unknown"
	}
}

// windowState is the state-machine scratchpad. window is nil whenever
// there is no current window (ready, or initializing before the first
// Start).
type windowState struct {
	window  *domain.Window
	replyTo ports.WindowEventListener
}
