package engine

import (
	"fmt"
	"time"

	"github.com/windowkeep/sentrywin/internal/domain"
	"github.com/windowkeep/sentrywin/internal/ports"
)

// decision is the pure result of feeding one command through the state
// machine: a next state/scratchpad plus the effects the actor's run loop
// must perform (self-posts, listener events, bus publishes, a timer to
// arm, or termination). Every branch below is a deterministic function of
// its inputs, so tests can call it directly without a running actor.
type decision struct {
	nextState  stateKind
	nextWS     windowState
	selfPosts  []command
	events     []domain.WindowEvent
	publish    []domain.HealthSignal
	armTimer   *time.Duration
	stash      bool // true if cmd (a HealthSignal) should be stashed as-is
	stop       bool
	assertErr  error // set only for InternalAssertionFailed
	matcherErr error // set when a matcher invocation failed; never fatal
}

func same(state stateKind, ws windowState) decision {
	return decision{nextState: state, nextWS: ws}
}

// decide dispatches cmd according to the current state, implementing
// every transition the WindowActor supports.
func decide(
	state stateKind,
	ws windowState,
	cmd command,
	now time.Time,
	advancer ports.Advancer,
	matcher ports.Matcher,
	resumeDelay time.Duration,
) decision {
	switch c := cmd.(type) {
	case startCmd:
		return decideStart(state, ws, c)
	case openWindowCmd:
		return decideOpenWindow(state, ws, c)
	case healthSignalCmd:
		return decideHealthSignal(state, ws, c)
	case addToWindowCmd:
		return decideAddToWindow(state, ws, c, advancer)
	case advanceWindowCmd:
		return decideAdvanceWindow(state, ws, c, matcher)
	case closeWindowCmd:
		return decideCloseWindow(state, ws, c, advancer, matcher)
	case closeCurrentWindowCmd:
		return decideCloseCurrentWindow(state, ws, c)
	case flushCmd:
		return decideFlush(state, ws, resumeDelay)
	case pauseCmd:
		return decidePause(state, ws, c)
	case resumeCmd:
		return decideResume(state, ws)
	case tickCmd:
		return decideTick(state, ws, now)
	default:
		return same(state, ws)
	}
}

func decideStart(state stateKind, ws windowState, c startCmd) decision {
	if state != stateInitializing {
		return assertionFailure(state, ws, c, "Start only valid in initializing")
	}
	nextWS := ws
	nextWS.replyTo = c.replyTo
	d := same(stateReady, nextWS)
	d.selfPosts = []command{openWindowCmd{window: c.window}}
	return d
}

func decideOpenWindow(state stateKind, ws windowState, c openWindowCmd) decision {
	if state != stateReady {
		return assertionFailure(state, ws, c, "OpenWindow only valid in ready")
	}
	w := c.window
	nextWS := ws
	nextWS.window = &w
	d := same(stateWindowing, nextWS)
	d.events = []domain.WindowEvent{domain.Opened{Window: w}}
	if c.maybeSignal != nil {
		d.selfPosts = append(d.selfPosts, healthSignalCmd{signal: *c.maybeSignal})
	}
	return d
}

func decideHealthSignal(state stateKind, ws windowState, c healthSignalCmd) decision {
	switch state {
	case stateWindowing:
		d := same(state, ws)
		d.selfPosts = []command{addToWindowCmd{signal: c.signal, window: *ws.window}}
		return d
	default:
		// initializing, ready, pausing: stash.
		d := same(state, ws)
		d.stash = true
		return d
	}
}

func decideAddToWindow(state stateKind, ws windowState, c addToWindowCmd, advancer ports.Advancer) decision {
	if state != stateWindowing || ws.window == nil || ws.window.ID != c.window.ID {
		// Stale: the window this append targeted is no longer current.
		return same(state, ws)
	}
	updated := ws.window.WithAppended(c.signal)
	nextWS := ws
	nextWS.window = &updated
	d := same(stateWindowing, nextWS)
	d.events = []domain.WindowEvent{domain.AddedToWindow{Signal: c.signal, Window: updated}}

	next, ok := advancer.Advance(updated, false)
	if ok {
		d.selfPosts = append(d.selfPosts, advanceWindowCmd{window: updated, next: next})
	}
	return d
}

func decideAdvanceWindow(state stateKind, ws windowState, c advanceWindowCmd, matcher ports.Matcher) decision {
	switch state {
	case stateWindowing:
		if ws.window == nil || ws.window.ID != c.window.ID {
			return same(state, ws) // stale, superseded by a later advance/close
		}
	case stateReady:
		// Entered via CloseWindow(advance=true); ws.window is already nil.
	default:
		return same(state, ws)
	}

	closing := c.window
	res, matcherErr := invokeMatcher(matcher, closing)

	next := c.next
	next.PriorData = closing.Data

	d := decision{}
	d.events = []domain.WindowEvent{domain.Advanced{
		NewWindow: next,
		Data:      domain.WindowData{Data: closing.Data, Frequency: closing.Duration()},
	}}
	d.matcherErr = matcherErr
	if matcherErr == nil {
		d.publish = sourcedSideEffects(res, closing)
	}

	switch state {
	case stateWindowing:
		nextWS := ws
		nextWS.window = &next
		d.nextState = stateWindowing
		d.nextWS = nextWS
	case stateReady:
		d.nextState = stateReady
		d.nextWS = ws
		d.selfPosts = []command{openWindowCmd{window: next}}
	}
	return d
}

func decideCloseWindow(state stateKind, ws windowState, c closeWindowCmd, advancer ports.Advancer, matcher ports.Matcher) decision {
	if state != stateWindowing || ws.window == nil || ws.window.ID != c.window.ID {
		return same(state, ws)
	}
	closing := *ws.window

	nextWS := ws
	nextWS.window = nil
	d := same(stateReady, nextWS)
	d.events = []domain.WindowEvent{domain.Closed{
		Window: closing,
		Data:   domain.WindowData{Data: closing.Data, Frequency: closing.Duration()},
	}}

	if c.advance {
		next, ok := advancer.Advance(closing, true)
		if !ok {
			// A forced advance must always yield a successor window.
			return assertionFailure(state, ws, c, "advancer returned no window for a forced advance")
		}
		d.selfPosts = append(d.selfPosts, advanceWindowCmd{window: closing, next: next})
		return d
	}

	res, matcherErr := invokeMatcher(matcher, closing)
	d.matcherErr = matcherErr
	if matcherErr == nil {
		d.publish = sourcedSideEffects(res, closing)
	}
	return d
}

// decideCloseCurrentWindow resolves the current window (the caller never
// has to know its bounds/ID) and closes it, forwarding the caller's
// advance choice: Handle.CloseWindow sends advance=false so closeWindow()
// closes without rolling into a successor, while other callers may force
// advance=true the way Tick's own expiry-driven close does directly.
func decideCloseCurrentWindow(state stateKind, ws windowState, c closeCurrentWindowCmd) decision {
	if state != stateWindowing || ws.window == nil {
		return same(state, ws)
	}
	d := same(state, ws)
	d.selfPosts = []command{closeWindowCmd{window: *ws.window, advance: c.advance}}
	return d
}

func decideFlush(state stateKind, ws windowState, resumeDelay time.Duration) decision {
	if state != stateWindowing || ws.window == nil {
		return same(state, ws)
	}
	flushed := ws.window.Flushed()
	nextWS := ws
	nextWS.window = &flushed
	d := same(state, nextWS)
	d.selfPosts = []command{pauseCmd{delay: resumeDelay}}
	return d
}

func decidePause(state stateKind, ws windowState, c pauseCmd) decision {
	if state != stateWindowing || ws.window == nil {
		return same(state, ws)
	}
	d := same(statePausing, ws)
	d.events = []domain.WindowEvent{domain.Paused{Window: *ws.window}}
	delay := c.delay
	d.armTimer = &delay
	return d
}

func decideResume(state stateKind, ws windowState) decision {
	if state != statePausing || ws.window == nil {
		return same(state, ws)
	}
	d := same(stateWindowing, ws)
	d.events = []domain.WindowEvent{domain.Resumed{Window: *ws.window}}
	return d
}

func decideTick(state stateKind, ws windowState, now time.Time) decision {
	if state != stateWindowing || ws.window == nil {
		return same(state, ws)
	}
	if !ws.window.Expired(now) {
		return same(state, ws)
	}
	d := same(state, ws)
	d.selfPosts = []command{closeWindowCmd{window: *ws.window, advance: true}}
	return d
}

func assertionFailure(state stateKind, ws windowState, cmd command, reason string) decision {
	d := same(state, ws)
	d.assertErr = &ports.AssertionError{State: state.String(), Command: cmd.commandName(), Reason: reason}
	return d
}

// invokeMatcher runs matcher over a closing window's data, recovering from
// a panicking matcher the same way the engine treats a returned error: the
// failure is logged and the window's side-effects are dropped, but the
// actor stays alive.
func invokeMatcher(matcher ports.Matcher, w domain.Window) (res domain.SignalPatternMatchResult, err error) {
	if matcher == nil {
		return domain.SignalPatternMatchResult{}, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = &matcherPanic{recovered: r}
		}
	}()
	res, err = matcher.Search(ports.NewSignalSource(w.Data), w.Duration())
	if err != nil {
		err = fmt.Errorf("%w: %v", ports.ErrMatcherFailed, err)
	}
	return res, err
}

type matcherPanic struct{ recovered any }

func (e *matcherPanic) Error() string { return "sentrywin: matcher panicked" }
func (e *matcherPanic) Unwrap() error { return ports.ErrMatcherFailed }

// sourcedSideEffects rewrites any side-effect signal with an empty Source
// to the closing window's ID, so a synthesized alert can still be traced
// back to the window that produced it.
func sourcedSideEffects(res domain.SignalPatternMatchResult, w domain.Window) []domain.HealthSignal {
	signals := res.SideEffect.Signals
	if len(signals) == 0 {
		return nil
	}
	out := make([]domain.HealthSignal, len(signals))
	for i, s := range signals {
		if s.Source == "" {
			s = s.WithSource(w.ID)
		}
		out[i] = s
	}
	return out
}
