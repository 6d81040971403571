// Package engine implements the WindowActor state machine, its
// restart-on-failure Supervisor, and the external Handle used to drive
// both.
package engine

import (
	"context"
	"time"

	"github.com/windowkeep/sentrywin/internal/adapters/mailbox"
	"github.com/windowkeep/sentrywin/internal/domain"
	"github.com/windowkeep/sentrywin/internal/ports"
)

// Deps bundles every collaborator the WindowActor is consumed through.
// Clock, Advancer and Matcher are required; Bus and Obs default to no-ops
// so the engine runs standalone in tests.
type Deps struct {
	Clock       ports.Clock
	Advancer    ports.Advancer
	Matcher     ports.Matcher
	Bus         ports.SignalBus
	Obs         ports.Observability
	ResumeDelay time.Duration
	// MailboxCapacity bounds the actor's external inbox. 0 selects a
	// default of 4096, matching conduix's OverflowBackpressure strategy:
	// a full mailbox blocks the sender rather than dropping a command.
	MailboxCapacity int
}

func (d *Deps) applyDefaults() {
	if d.Clock == nil {
		panic("engine: Deps.Clock is required")
	}
	if d.Advancer == nil {
		panic("engine: Deps.Advancer is required")
	}
	if d.Matcher == nil {
		panic("engine: Deps.Matcher is required")
	}
	if d.Obs == nil {
		d.Obs = noopObservability{}
	}
	if d.Bus == nil {
		d.Bus = noopBus{}
	}
	if d.MailboxCapacity <= 0 {
		d.MailboxCapacity = 4096
	}
}

// Actor is the WindowActor: it owns exactly one window and one WindowState
// at a time, processing one message to completion before the next —
// single-threaded and cooperative per window.
type Actor struct {
	deps Deps

	inbox   chan command
	pending *mailbox.Queue[command]
	stash   *mailbox.Queue[command]

	state stateKind
	ws    windowState

	scheduler ports.Scheduler
	resumeCancel ports.Cancellable
}

// NewActor constructs an Actor ready to Run. The actor starts in
// initializing and does nothing until it receives Start.
func NewActor(deps Deps, scheduler ports.Scheduler) *Actor {
	deps.applyDefaults()
	return &Actor{
		deps:      deps,
		inbox:     make(chan command, deps.MailboxCapacity),
		pending:   mailbox.New[command](0),
		stash:     mailbox.New[command](0),
		state:     stateInitializing,
		scheduler: scheduler,
	}
}

// Send enqueues cmd for processing. It is fire-and-forget: the call
// returns once the command is in the mailbox, not once it is processed.
func (a *Actor) Send(cmd command) {
	a.inbox <- cmd
}

// Run drives the actor's message loop until ctx is cancelled, an
// InternalAssertionFailed escalates, or Stop is processed. The returned
// error is non-nil only for the escalation case, signalling the
// Supervisor to restart.
func (a *Actor) Run(ctx context.Context) error {
	for {
		cmd, ok := a.next(ctx)
		if !ok {
			return nil
		}
		stop, err := a.process(cmd)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

func (a *Actor) next(ctx context.Context) (command, bool) {
	if cmd, ok := a.pending.Pop(); ok {
		return cmd, true
	}
	select {
	case cmd := <-a.inbox:
		return cmd, true
	case <-ctx.Done():
		return nil, false
	}
}

func (a *Actor) process(cmd command) (stop bool, err error) {
	switch c := cmd.(type) {
	case getSnapshotCmd:
		a.replySnapshot(c)
		return false, nil
	case stopCmd:
		a.handleStop(c)
		return true, nil
	}

	d := decide(a.state, a.ws, cmd, a.deps.Clock.Now(), a.deps.Advancer, a.deps.Matcher, a.deps.ResumeDelay)

	if d.assertErr != nil {
		a.deps.Obs.LogCritical("window_actor_invariant_broken", d.assertErr,
			ports.Field{Key: "state", Value: a.state.String()},
			ports.Field{Key: "command", Value: cmd.commandName()})
		return false, d.assertErr
	}

	a.state = d.nextState
	a.ws = d.nextWS

	if d.stash {
		if hs, ok := cmd.(healthSignalCmd); ok {
			a.stash.Push(hs)
		}
		return false, nil
	}

	for _, evt := range d.events {
		a.emit(evt)
	}

	if d.matcherErr != nil {
		a.deps.Obs.LogError("matcher_failed", d.matcherErr)
	}

	for _, sig := range d.publish {
		a.publish(sig)
	}

	if d.armTimer != nil {
		a.armResumeTimer(*d.armTimer)
	}

	for _, sp := range d.selfPosts {
		a.pending.Push(sp)
	}

	if _, opened := cmd.(openWindowCmd); opened {
		for _, stashed := range a.stash.DrainAll() {
			a.pending.Push(stashed)
		}
	}

	return false, nil
}

func (a *Actor) armResumeTimer(delay time.Duration) {
	if a.resumeCancel != nil {
		a.resumeCancel.Cancel()
	}
	if a.scheduler == nil {
		return
	}
	a.resumeCancel = a.scheduler.ScheduleOnce(delay, func() {
		a.Send(resumeCmd{})
	})
}

func (a *Actor) replySnapshot(c getSnapshotCmd) {
	var snap *domain.WindowSnapshot
	if a.ws.window != nil {
		s := a.ws.window.Snapshot()
		snap = &s
	}
	select {
	case c.reply <- snap:
	default:
	}
}

func (a *Actor) handleStop(c stopCmd) {
	var stopped *domain.Window
	if a.ws.window != nil {
		w := *a.ws.window
		stopped = &w
		a.emit(domain.Closed{
			Window: w,
			Data:   domain.WindowData{Data: w.Data, Frequency: w.Duration()},
		})
	}
	a.emit(domain.Stopped{Window: stopped})
	if a.resumeCancel != nil {
		a.resumeCancel.Cancel()
	}
	close(c.done)
}

// emit delivers an event to the listener. With no listener the event is
// silently dropped; a panicking listener is ListenerUnavailable: logged,
// never fatal.
func (a *Actor) emit(evt domain.WindowEvent) {
	if a.ws.replyTo == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			a.deps.Obs.LogError("listener_unavailable", ports.ErrListenerUnavailable,
				ports.Field{Key: "recovered", Value: r})
		}
	}()
	a.ws.replyTo.Accept(evt)
}

// publish fire-and-forgets a side-effect signal to the bus. A failed
// publish is logged and dropped.
func (a *Actor) publish(signal domain.HealthSignal) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.deps.Bus.Publish(ctx, signal); err != nil {
		a.deps.Obs.LogError("bus_publish_failed", err,
			ports.Field{Key: "signal", Value: signal.Name})
	}
}

type noopObservability struct{}

func (noopObservability) LogInfo(string, ...ports.Field)             {}
func (noopObservability) LogError(string, error, ...ports.Field)     {}
func (noopObservability) LogCritical(string, error, ...ports.Field)  {}
func (noopObservability) IncCounter(string, float64)                 {}
func (noopObservability) ObserveLatency(string, float64)             {}
func (noopObservability) SetGauge(string, float64)                   {}

type noopBus struct{}

func (noopBus) Publish(context.Context, domain.HealthSignal) error { return nil }
