package engine

import (
	"testing"
	"time"

	"github.com/windowkeep/sentrywin/internal/domain"
	"github.com/windowkeep/sentrywin/internal/ports"
)

type fakeAdvancer struct {
	next domain.Window
	ok   bool
}

func (f fakeAdvancer) Advance(current domain.Window, force bool) (domain.Window, bool) {
	if force && !f.ok {
		// Exercise the "force must yield Some" contract explicitly.
		return domain.Window{}, false
	}
	return f.next, f.ok
}

type fakeMatcher struct {
	result domain.SignalPatternMatchResult
	err    error
}

func (f fakeMatcher) Search(ports.SignalSource, time.Duration) (domain.SignalPatternMatchResult, error) {
	return f.result, f.err
}

func mkWindow(id string, from time.Time, d time.Duration) domain.Window {
	return domain.NewWindow(id, from, d)
}

func TestDecideStartOnlyValidInInitializing(t *testing.T) {
	w := mkWindow("w1", time.Unix(0, 0), 10*time.Second)
	d := decideStart(stateReady, windowState{}, startCmd{window: w})
	if d.assertErr == nil {
		t.Fatal("expected assertion failure for Start outside initializing")
	}
}

func TestDecideStartTransitionsAndSelfPostsOpenWindow(t *testing.T) {
	w := mkWindow("w1", time.Unix(0, 0), 10*time.Second)
	d := decideStart(stateInitializing, windowState{}, startCmd{window: w})
	if d.nextState != stateReady {
		t.Fatalf("expected ready, got %s", d.nextState)
	}
	if len(d.selfPosts) != 1 {
		t.Fatalf("expected one self-post, got %d", len(d.selfPosts))
	}
	if _, ok := d.selfPosts[0].(openWindowCmd); !ok {
		t.Fatalf("expected OpenWindow self-post, got %T", d.selfPosts[0])
	}
}

func TestDecideOpenWindowInWindowingIsAssertionFailure(t *testing.T) {
	w := mkWindow("w1", time.Unix(0, 0), 10*time.Second)
	ws := windowState{window: &w}
	d := decideOpenWindow(stateWindowing, ws, openWindowCmd{window: w})
	if d.assertErr == nil {
		t.Fatal("expected assertion failure for OpenWindow in windowing")
	}
}

func TestDecideOpenWindowEmitsOpenedAndTransitions(t *testing.T) {
	w := mkWindow("w1", time.Unix(0, 0), 10*time.Second)
	d := decideOpenWindow(stateReady, windowState{}, openWindowCmd{window: w})
	if d.nextState != stateWindowing {
		t.Fatalf("expected windowing, got %s", d.nextState)
	}
	if len(d.events) != 1 {
		t.Fatalf("expected one event, got %d", len(d.events))
	}
	if _, ok := d.events[0].(domain.Opened); !ok {
		t.Fatalf("expected Opened event, got %T", d.events[0])
	}
}

func TestDecideHealthSignalStashesOutsideWindowing(t *testing.T) {
	for _, st := range []stateKind{stateInitializing, stateReady, statePausing} {
		d := decideHealthSignal(st, windowState{}, healthSignalCmd{})
		if !d.stash {
			t.Fatalf("state %s: expected stash=true", st)
		}
	}
}

func TestDecideHealthSignalSelfPostsAddToWindowInWindowing(t *testing.T) {
	w := mkWindow("w1", time.Unix(0, 0), 10*time.Second)
	ws := windowState{window: &w}
	s := domain.NewHealthSignal("cpu.high", "host-1", time.Unix(1, 0), nil)
	d := decideHealthSignal(stateWindowing, ws, healthSignalCmd{signal: s})
	if d.stash {
		t.Fatal("did not expect stash in windowing")
	}
	if len(d.selfPosts) != 1 {
		t.Fatalf("expected one self-post, got %d", len(d.selfPosts))
	}
	add, ok := d.selfPosts[0].(addToWindowCmd)
	if !ok {
		t.Fatalf("expected AddToWindow self-post, got %T", d.selfPosts[0])
	}
	if add.signal.ID != s.ID {
		t.Fatal("self-posted signal does not match")
	}
}

func TestDecideAddToWindowStaleWindowIsNoop(t *testing.T) {
	current := mkWindow("w-current", time.Unix(0, 0), 10*time.Second)
	stale := mkWindow("w-stale", time.Unix(0, 0), 10*time.Second)
	ws := windowState{window: &current}
	s := domain.NewHealthSignal("x", "", time.Unix(1, 0), nil)

	d := decideAddToWindow(stateWindowing, ws, addToWindowCmd{signal: s, window: stale}, fakeAdvancer{})
	if len(d.events) != 0 || len(d.selfPosts) != 0 {
		t.Fatal("expected stale AddToWindow to be a pure no-op")
	}
}

func TestDecideAddToWindowAppendsAndEmitsAddedToWindow(t *testing.T) {
	w := mkWindow("w1", time.Unix(0, 0), 10*time.Second)
	ws := windowState{window: &w}
	s := domain.NewHealthSignal("x", "", time.Unix(1, 0), nil)

	d := decideAddToWindow(stateWindowing, ws, addToWindowCmd{signal: s, window: w}, fakeAdvancer{})
	if len(d.nextWS.window.Data) != 1 {
		t.Fatalf("expected 1 signal appended, got %d", len(d.nextWS.window.Data))
	}
	if len(d.events) != 1 {
		t.Fatalf("expected AddedToWindow event, got %d", len(d.events))
	}
}

func TestDecideAddToWindowAdvancesWhenPolicySays(t *testing.T) {
	w := mkWindow("w1", time.Unix(0, 0), 10*time.Second)
	ws := windowState{window: &w}
	s := domain.NewHealthSignal("x", "", time.Unix(1, 0), nil)
	next := mkWindow("w2", w.To, 10*time.Second)

	d := decideAddToWindow(stateWindowing, ws, addToWindowCmd{signal: s, window: w}, fakeAdvancer{next: next, ok: true})
	if len(d.selfPosts) != 1 {
		t.Fatalf("expected AdvanceWindow self-post, got %d", len(d.selfPosts))
	}
	if _, ok := d.selfPosts[0].(advanceWindowCmd); !ok {
		t.Fatalf("expected AdvanceWindow, got %T", d.selfPosts[0])
	}
}

func TestDecideCloseWindowForceAdvanceMustYieldSome(t *testing.T) {
	w := mkWindow("w1", time.Unix(0, 0), 10*time.Second)
	ws := windowState{window: &w}
	d := decideCloseWindow(stateWindowing, ws, closeWindowCmd{window: w, advance: true}, fakeAdvancer{ok: false}, fakeMatcher{})
	if d.assertErr == nil {
		t.Fatal("expected assertion failure when forced advance returns no window")
	}
}

func TestDecideCloseWindowWithoutAdvanceInvokesMatcherImmediately(t *testing.T) {
	w := mkWindow("w1", time.Unix(0, 0), 10*time.Second)
	w = w.WithAppended(domain.NewHealthSignal("x", "", time.Unix(1, 0), nil))
	ws := windowState{window: &w}
	side := domain.NewHealthSignal("alert", "", time.Unix(2, 0), nil)
	mtc := fakeMatcher{result: domain.SignalPatternMatchResult{SideEffect: domain.SideEffect{Signals: []domain.HealthSignal{side}}}}

	d := decideCloseWindow(stateWindowing, ws, closeWindowCmd{window: w, advance: false}, fakeAdvancer{}, mtc)
	if d.nextState != stateReady {
		t.Fatalf("expected ready, got %s", d.nextState)
	}
	if d.nextWS.window != nil {
		t.Fatal("expected current window cleared")
	}
	if len(d.publish) != 1 {
		t.Fatalf("expected one published side-effect, got %d", len(d.publish))
	}
	if d.publish[0].Source != w.ID {
		t.Fatalf("expected side-effect source rewritten to window ID, got %q", d.publish[0].Source)
	}
}

func TestDecideCloseWindowZeroMatchesPublishesNothing(t *testing.T) {
	w := mkWindow("w1", time.Unix(0, 0), 10*time.Second)
	ws := windowState{window: &w}
	d := decideCloseWindow(stateWindowing, ws, closeWindowCmd{window: w, advance: false}, fakeAdvancer{}, fakeMatcher{})
	if len(d.publish) != 0 {
		t.Fatalf("expected zero publishes, got %d", len(d.publish))
	}
}

func TestDecideFlushClearsDataAndSelfPostsPause(t *testing.T) {
	w := mkWindow("w1", time.Unix(0, 0), 10*time.Second)
	w = w.WithAppended(domain.NewHealthSignal("x", "", time.Unix(1, 0), nil))
	ws := windowState{window: &w}

	d := decideFlush(stateWindowing, ws, 200*time.Millisecond)
	if len(d.nextWS.window.Data) != 0 {
		t.Fatal("expected window data cleared")
	}
	if len(d.selfPosts) != 1 {
		t.Fatalf("expected Pause self-post, got %d", len(d.selfPosts))
	}
	p, ok := d.selfPosts[0].(pauseCmd)
	if !ok || p.delay != 200*time.Millisecond {
		t.Fatalf("expected Pause(200ms), got %+v", d.selfPosts[0])
	}
}

func TestDecidePauseArmsTimerAndEmitsPaused(t *testing.T) {
	w := mkWindow("w1", time.Unix(0, 0), 10*time.Second)
	ws := windowState{window: &w}
	d := decidePause(stateWindowing, ws, pauseCmd{delay: 50 * time.Millisecond})
	if d.nextState != statePausing {
		t.Fatalf("expected pausing, got %s", d.nextState)
	}
	if d.armTimer == nil || *d.armTimer != 50*time.Millisecond {
		t.Fatal("expected a 50ms timer armed")
	}
}

func TestDecideResumeDoesNotUnstash(t *testing.T) {
	w := mkWindow("w1", time.Unix(0, 0), 10*time.Second)
	ws := windowState{window: &w}
	d := decideResume(statePausing, ws)
	if d.nextState != stateWindowing {
		t.Fatalf("expected windowing, got %s", d.nextState)
	}
	// decide never drains the stash itself regardless of command; only
	// the actor's own unstash-on-OpenWindow logic does, and only on a
	// fresh OpenWindow, never on Resume.
	if len(d.selfPosts) != 0 {
		t.Fatalf("expected no self-posts from Resume, got %d", len(d.selfPosts))
	}
}

func TestDecideTickClosesExpiredWindow(t *testing.T) {
	w := mkWindow("w1", time.Unix(0, 0), 5*time.Second)
	ws := windowState{window: &w}
	d := decideTick(stateWindowing, ws, time.Unix(5, 0))
	if len(d.selfPosts) != 1 {
		t.Fatalf("expected CloseWindow self-post, got %d", len(d.selfPosts))
	}
	cw, ok := d.selfPosts[0].(closeWindowCmd)
	if !ok || !cw.advance {
		t.Fatalf("expected CloseWindow(advance=true), got %+v", d.selfPosts[0])
	}
}

func TestDecideTickIgnoredWhenNotExpired(t *testing.T) {
	w := mkWindow("w1", time.Unix(0, 0), 5*time.Second)
	ws := windowState{window: &w}
	d := decideTick(stateWindowing, ws, time.Unix(4, 0))
	if len(d.selfPosts) != 0 {
		t.Fatal("expected no self-posts before expiry")
	}
}

func TestDecideTickIgnoredInReady(t *testing.T) {
	// Tick in ready does not auto-open a window.
	d := decideTick(stateReady, windowState{}, time.Unix(100, 0))
	if len(d.selfPosts) != 0 || d.nextState != stateReady {
		t.Fatal("expected Tick in ready to be a pure no-op")
	}
}

func TestDecideAdvanceWindowFromReadySelfPostsOpenWindow(t *testing.T) {
	closing := mkWindow("w1", time.Unix(0, 0), 10*time.Second)
	next := mkWindow("w2", closing.To, 10*time.Second)
	d := decideAdvanceWindow(stateReady, windowState{}, advanceWindowCmd{window: closing, next: next}, fakeMatcher{})
	if d.nextState != stateReady {
		t.Fatalf("expected to remain ready, got %s", d.nextState)
	}
	if len(d.selfPosts) != 1 {
		t.Fatalf("expected OpenWindow self-post, got %d", len(d.selfPosts))
	}
	ow, ok := d.selfPosts[0].(openWindowCmd)
	if !ok || ow.window.ID != next.ID {
		t.Fatalf("expected OpenWindow(next), got %+v", d.selfPosts[0])
	}
}

func TestDecideAdvanceWindowContiguity(t *testing.T) {
	closing := mkWindow("w1", time.Unix(0, 0), 10*time.Second)
	ws := windowState{window: &closing}
	s1 := domain.NewHealthSignal("a", "", time.Unix(1, 0), nil)
	s2 := domain.NewHealthSignal("b", "", time.Unix(2, 0), nil)
	closing = closing.WithAppended(s1).WithAppended(s2)
	ws.window = &closing
	next := mkWindow("w2", closing.To, 10*time.Second)

	d := decideAdvanceWindow(stateWindowing, ws, advanceWindowCmd{window: closing, next: next}, fakeMatcher{})
	if d.nextWS.window.From != closing.To {
		t.Fatal("expected next.From == closing.To (contiguous, no gap)")
	}
	if len(d.nextWS.window.PriorData) != 2 {
		t.Fatalf("expected priorData to carry the closing window's signals, got %d", len(d.nextWS.window.PriorData))
	}
}

func TestDecideAdvanceWindowStaleIsNoop(t *testing.T) {
	current := mkWindow("w-current", time.Unix(0, 0), 10*time.Second)
	stale := mkWindow("w-stale", time.Unix(0, 0), 10*time.Second)
	ws := windowState{window: &current}
	next := mkWindow("w2", stale.To, 10*time.Second)

	d := decideAdvanceWindow(stateWindowing, ws, advanceWindowCmd{window: stale, next: next}, fakeMatcher{})
	if len(d.events) != 0 {
		t.Fatal("expected stale AdvanceWindow to be a pure no-op")
	}
}

func TestAssertionFailureErrorMentionsStateAndCommand(t *testing.T) {
	w := mkWindow("w1", time.Unix(0, 0), 10*time.Second)
	d := assertionFailure(stateWindowing, windowState{}, openWindowCmd{window: w}, "boom")
	if d.assertErr == nil {
		t.Fatal("expected non-nil assertErr")
	}
	ae, ok := d.assertErr.(*ports.AssertionError)
	if !ok {
		t.Fatalf("expected *ports.AssertionError, got %T", d.assertErr)
	}
	if ae.State != "windowing" || ae.Command != "OpenWindow" {
		t.Fatalf("unexpected assertion error fields: %+v", ae)
	}
}
