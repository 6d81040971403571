package engine

import (
	"context"
	"time"

	"github.com/windowkeep/sentrywin/internal/domain"
	"github.com/windowkeep/sentrywin/internal/ports"
)

// HandleConfig is the construction bundle for a Handle: the timing knobs
// a caller configures (frequency, processing delays, tick interval,
// ask timeout, restart backoff). The Clock/Advancer/Matcher/Bus/Obs
// collaborators travel through Deps instead, since the Actor and
// Supervisor need them too.
type HandleConfig struct {
	Frequency              time.Duration
	InitialProcessingDelay time.Duration
	ResumeProcessingDelay  time.Duration
	TickInterval           time.Duration
	AskTimeout             time.Duration
	Backoff                BackoffPolicy
}

func (c *HandleConfig) ApplyDefaults() {
	if c.InitialProcessingDelay <= 0 {
		c.InitialProcessingDelay = 30 * time.Second
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.AskTimeout <= 0 {
		c.AskTimeout = 3 * time.Second
	}
}

// Handle is the external façade onto a supervised WindowActor: it
// schedules the periodic tick, forwards caller commands to the
// supervised actor, and answers snapshot queries with a bounded-timeout
// ask. Every mutating method except Terminate returns the Handle itself
// so calls can be chained fluently: start(...).processSignal(...).
type Handle struct {
	sup          *Supervisor
	scheduler    ports.Scheduler
	frequency    time.Duration
	initialDelay time.Duration
	tickInterval time.Duration
	askTimeout   time.Duration

	tickCancel ports.Cancellable
	stopped    bool
}

// NewHandle wires a fresh Supervisor/Actor pair behind a Handle. The
// actor does nothing until Start is called.
func NewHandle(deps Deps, cfg HandleConfig, scheduler ports.Scheduler) *Handle {
	cfg.ApplyDefaults()
	deps.ResumeDelay = cfg.ResumeProcessingDelay
	return &Handle{
		sup:          NewSupervisor(deps, cfg.Frequency, cfg.Backoff, scheduler),
		scheduler:    scheduler,
		frequency:    cfg.Frequency,
		initialDelay: cfg.InitialProcessingDelay,
		tickInterval: cfg.TickInterval,
		askTimeout:   cfg.AskTimeout,
	}
}

// Start spawns the supervised actor, sends it Start(window, replyTo), and
// arms the periodic tick. replyTo may be nil for tests that do not care
// about lifecycle events.
func (h *Handle) Start(replyTo ports.WindowEventListener) *Handle {
	h.sup.Start(replyTo)
	if h.tickCancel == nil {
		h.tickCancel = h.scheduler.ScheduleAtFixedRate(h.initialDelay, h.tickInterval, func() {
			_ = h.sup.Send(tickCmd{})
		})
	}
	return h
}

// ProcessSignal forwards a HealthSignal to the actor.
func (h *Handle) ProcessSignal(signal domain.HealthSignal) *Handle {
	_ = h.sup.Send(healthSignalCmd{signal: signal})
	return h
}

// Tick forces an expiry check now, primarily for tests.
func (h *Handle) Tick() *Handle {
	_ = h.sup.Send(tickCmd{})
	return h
}

// Flush clears the current window's data without closing it.
func (h *Handle) Flush() *Handle {
	_ = h.sup.Send(flushCmd{})
	return h
}

// Pause suspends delivery for d, independent of Flush's own auto-pause.
func (h *Handle) Pause(d time.Duration) *Handle {
	_ = h.sup.Send(pauseCmd{delay: d})
	return h
}

// CloseWindow closes the current window without advancing into a
// successor: it emits Closed and leaves the actor in ready with no
// current window, until the next OpenWindow/Advanced. A snapshot taken
// right after CloseWindow returns nil.
func (h *Handle) CloseWindow() *Handle {
	_ = h.sup.Send(closeCurrentWindowCmd{advance: false})
	return h
}

// Stop gracefully drains and terminates the actor, cancelling the
// periodic tick. Idempotent: a second call is a no-op.
func (h *Handle) Stop() *Handle {
	if h.stopped {
		return h
	}
	h.stopped = true
	if h.tickCancel != nil {
		h.tickCancel.Cancel()
	}
	h.sup.Stop()
	return h
}

// Terminate hard-kills the actor without waiting for it to drain, and
// disables the Supervisor's restart loop permanently.
func (h *Handle) Terminate() {
	if h.tickCancel != nil {
		h.tickCancel.Cancel()
	}
	h.stopped = true
	h.sup.Terminate()
}

// Snapshot issues a GetSnapshot ask and waits up to the configured
// timeout. A nil *domain.WindowSnapshot with a nil error means "no
// current window", distinct from a timeout or an unavailable supervisor.
func (h *Handle) Snapshot(ctx context.Context) (*domain.WindowSnapshot, error) {
	reply := make(chan *domain.WindowSnapshot, 1)
	if err := h.sup.Send(getSnapshotCmd{reply: reply}); err != nil {
		return nil, err
	}

	timeout := h.askTimeout
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case snap := <-reply:
		return snap, nil
	case <-timer.C:
		return nil, ports.ErrSnapshotTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
