// Package sentrywin is the public façade over the windowing engine:
// internal packages are re-exported as type aliases so callers never
// need to import github.com/windowkeep/sentrywin/internal/... directly.
package sentrywin

import (
	"time"

	"github.com/windowkeep/sentrywin/internal/domain"
	"github.com/windowkeep/sentrywin/internal/engine"
	"github.com/windowkeep/sentrywin/internal/ports"
)

type (
	HealthSignal             = domain.HealthSignal
	Window                   = domain.Window
	WindowSnapshot           = domain.WindowSnapshot
	WindowData               = domain.WindowData
	WindowEvent              = domain.WindowEvent
	Opened                   = domain.Opened
	Advanced                 = domain.Advanced
	Closed                   = domain.Closed
	AddedToWindow            = domain.AddedToWindow
	Paused                   = domain.Paused
	Resumed                  = domain.Resumed
	Stopped                  = domain.Stopped
	Match                    = domain.Match
	SideEffect               = domain.SideEffect
	SignalPatternMatchResult = domain.SignalPatternMatchResult

	Advancer             = ports.Advancer
	Matcher              = ports.Matcher
	SignalSource         = ports.SignalSource
	SignalBus            = ports.SignalBus
	WindowEventListener  = ports.WindowEventListener
	ListenerFunc         = ports.ListenerFunc
	Clock                = ports.Clock
	Scheduler            = ports.Scheduler
	Cancellable          = ports.Cancellable
	Observability        = ports.Observability
	Field                = ports.Field

	Handle        = engine.Handle
	HandleConfig  = engine.HandleConfig
	Deps          = engine.Deps
	BackoffPolicy = engine.BackoffPolicy
	Supervisor    = engine.Supervisor
)

// NewHealthSignal constructs a HealthSignal the way the engine's own
// matchers do when synthesizing side-effect signals.
func NewHealthSignal(name, source string, at time.Time, attrs map[string]any) HealthSignal {
	return domain.NewHealthSignal(name, source, at, attrs)
}

// NewSignalSource wraps an already-materialized slice of signals as a
// SignalSource, for callers implementing their own Matcher.
func NewSignalSource(signals []HealthSignal) SignalSource {
	return ports.NewSignalSource(signals)
}
