package engine

import (
	"time"

	"github.com/windowkeep/sentrywin/internal/domain"
	"github.com/windowkeep/sentrywin/internal/ports"
)

// command is the tagged-union message type the WindowActor's step
// function dispatches on: a tagged-variant type plus a per-state handler
// function.
type command interface {
	commandName() string
}

type startCmd struct {
	window  domain.Window
	replyTo ports.WindowEventListener
}

type openWindowCmd struct {
	window      domain.Window
	maybeSignal *domain.HealthSignal
}

type healthSignalCmd struct {
	signal domain.HealthSignal
}

type addToWindowCmd struct {
	signal domain.HealthSignal
	window domain.Window
}

type advanceWindowCmd struct {
	window domain.Window
	next   domain.Window
}

type closeWindowCmd struct {
	window  domain.Window
	advance bool
}

type closeCurrentWindowCmd struct {
	advance bool
}

type flushCmd struct{}

type pauseCmd struct {
	delay time.Duration
}

type resumeCmd struct{}

type tickCmd struct{}

type getSnapshotCmd struct {
	reply chan<- *domain.WindowSnapshot
}

type stopCmd struct {
	done chan<- struct{}
}

func (startCmd) commandName() string              { return "Start" }
func (openWindowCmd) commandName() string          { return "OpenWindow" }
func (healthSignalCmd) commandName() string        { return "HealthSignal" }
func (addToWindowCmd) commandName() string         { return "AddToWindow" }
func (advanceWindowCmd) commandName() string        { return "AdvanceWindow" }
func (closeWindowCmd) commandName() string         { return "CloseWindow" }
func (closeCurrentWindowCmd) commandName() string  { return "CloseCurrentWindow" }
func (flushCmd) commandName() string               { return "Flush" }
func (pauseCmd) commandName() string               { return "Pause" }
func (resumeCmd) commandName() string              { return "Resume" }
func (tickCmd) commandName() string                { return "Tick" }
func (getSnapshotCmd) commandName() string         { return "GetSnapshot" }
func (stopCmd) commandName() string                { return "Stop" }
