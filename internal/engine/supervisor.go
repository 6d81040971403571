package engine

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/windowkeep/sentrywin/internal/domain"
	"github.com/windowkeep/sentrywin/internal/ports"
)

// BackoffPolicy configures the Supervisor's restart schedule:
// delay = min(maxBackoff, minBackoff * 2^attempt * (1 ± randomFactor)).
type BackoffPolicy struct {
	MinBackoff   time.Duration `yaml:"min_backoff"`
	MaxBackoff   time.Duration `yaml:"max_backoff"`
	RandomFactor float64       `yaml:"random_factor"`
	MaxRetries   int           `yaml:"max_retries"`
}

func (p *BackoffPolicy) ApplyDefaults() {
	if p.MinBackoff <= 0 {
		p.MinBackoff = 500 * time.Millisecond
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 30 * time.Second
	}
	if p.MaxRetries <= 0 {
		p.MaxRetries = 10
	}
}

func (p *BackoffPolicy) Validate() error {
	if p.MinBackoff <= 0 || p.MaxBackoff <= 0 {
		return errors.New("backoff: min_backoff and max_backoff must be positive")
	}
	if p.MaxBackoff < p.MinBackoff {
		return errors.New("backoff: max_backoff must be >= min_backoff")
	}
	if p.RandomFactor < 0 || p.RandomFactor >= 1 {
		return errors.New("backoff: random_factor must be in [0,1)")
	}
	return nil
}

// delay computes the attempt'th restart delay. jitter is a caller-supplied
// sample in [0,1) so the computation stays deterministic and testable.
func (p BackoffPolicy) delay(attempt int, jitter float64) time.Duration {
	raw := float64(p.MinBackoff) * math.Pow(2, float64(attempt))
	spread := 1 + (jitter*2-1)*p.RandomFactor
	d := time.Duration(raw * spread)
	if d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	if d < 0 {
		d = p.MaxBackoff
	}
	return d
}

// Supervisor wraps an Actor with exponential-backoff restart. A restart
// loses the in-flight window: the supervisor only
// remembers replyTo and the configured frequency, not the actor's
// accumulated WindowState, and reissues Start against a brand new
// Window::for(now, frequency) on every (re)spawn.
type Supervisor struct {
	deps      Deps
	frequency time.Duration
	policy    BackoffPolicy
	scheduler ports.Scheduler
	rng       func() float64

	mu         sync.Mutex
	actor      *Actor
	cancelRun  context.CancelFunc
	replyTo    ports.WindowEventListener
	attempts   int
	exhausted  bool
	terminated bool
}

// NewSupervisor constructs a Supervisor. It does not spawn an actor until
// Start is called.
func NewSupervisor(deps Deps, frequency time.Duration, policy BackoffPolicy, scheduler ports.Scheduler) *Supervisor {
	deps.applyDefaults()
	policy.ApplyDefaults()
	return &Supervisor{
		deps:      deps,
		frequency: frequency,
		policy:    policy,
		scheduler: scheduler,
		rng:       rand.Float64,
	}
}

// Start spawns the first generation of the supervised actor and sends it
// Start(window, replyTo).
func (s *Supervisor) Start(replyTo ports.WindowEventListener) {
	s.mu.Lock()
	s.replyTo = replyTo
	s.mu.Unlock()
	s.spawn()
}

func (s *Supervisor) spawn() {
	s.mu.Lock()
	if s.exhausted || s.terminated {
		s.mu.Unlock()
		return
	}
	actor := NewActor(s.deps, s.scheduler)
	ctx, cancel := context.WithCancel(context.Background())
	s.actor = actor
	s.cancelRun = cancel
	replyTo := s.replyTo
	s.mu.Unlock()

	window := domain.NewWindow(domain.NewWindowID(), s.deps.Clock.Now(), s.frequency)
	actor.Send(startCmd{window: window, replyTo: replyTo})

	go func() {
		err := actor.Run(ctx)
		if err == nil {
			return
		}
		s.onFailure(err)
	}()
}

// onFailure is invoked off the actor's own goroutine whenever Run returns
// a non-nil error (an escalated InternalAssertionFailed). It never runs
// concurrently with itself for the same actor generation since Run only
// returns once.
func (s *Supervisor) onFailure(err error) {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return
	}
	attempt := s.attempts
	s.attempts++
	if s.attempts > s.policy.MaxRetries {
		s.exhausted = true
		s.mu.Unlock()
		s.deps.Obs.LogCritical("supervisor_exhausted", ports.ErrSupervisorExhausted,
			ports.Field{Key: "attempts", Value: s.attempts}, ports.Field{Key: "cause", Value: err.Error()})
		return
	}
	s.mu.Unlock()

	delay := s.policy.delay(attempt, s.rng())
	s.deps.Obs.LogError("window_actor_restarting", err,
		ports.Field{Key: "attempt", Value: attempt}, ports.Field{Key: "delay", Value: delay.String()})
	s.scheduler.ScheduleOnce(delay, s.spawn)
}

// Send forwards cmd to the current actor generation. It returns
// ErrUnavailable once the supervisor has exhausted its retries or been
// terminated.
func (s *Supervisor) Send(cmd command) error {
	s.mu.Lock()
	actor := s.actor
	unavailable := s.exhausted || s.terminated || actor == nil
	s.mu.Unlock()
	if unavailable {
		return ports.ErrUnavailable
	}
	actor.Send(cmd)
	return nil
}

// Stop gracefully stops the current actor generation and waits for it to
// drain its current message, emit Stopped/Closed, and terminate. A
// graceful stop does not trigger a restart: Run returns nil for it.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	actor := s.actor
	s.terminated = true
	s.mu.Unlock()
	if actor == nil {
		return
	}
	done := make(chan struct{})
	actor.Send(stopCmd{done: done})
	<-done
}

// Terminate hard-kills the current actor generation without waiting for
// it to drain, and permanently disables further restarts. Unlike Stop,
// Terminate does not guarantee a final Stopped/Closed event pair.
func (s *Supervisor) Terminate() {
	s.mu.Lock()
	cancel := s.cancelRun
	s.terminated = true
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Exhausted reports whether maxRetries has been exceeded.
func (s *Supervisor) Exhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exhausted
}
