package ports

import "errors"

// Local failures (MatcherFailed, BusPublishFailed, ListenerUnavailable)
// are logged and swallowed by the caller; only InternalAssertionFailed
// escalates to the Supervisor.
var (
	ErrMatcherFailed          = errors.New("sentrywin: matcher failed")
	ErrBusPublishFailed       = errors.New("sentrywin: bus publish failed")
	ErrListenerUnavailable    = errors.New("sentrywin: listener unavailable")
	ErrInternalAssertionFailed = errors.New("sentrywin: internal assertion failed")
	ErrSupervisorExhausted    = errors.New("sentrywin: supervisor exhausted retries")
	ErrSnapshotTimeout        = errors.New("sentrywin: snapshot request timed out")
	ErrUnavailable            = errors.New("sentrywin: actor unavailable")
)

// AssertionError wraps ErrInternalAssertionFailed with the state-machine
// context that broke the invariant, so a restarted actor's logs show what
// happened without needing a debugger.
type AssertionError struct {
	State   string
	Command string
	Reason  string
}

func (e *AssertionError) Error() string {
	return "sentrywin: invariant broken in state " + e.State + " on " + e.Command + ": " + e.Reason
}

func (e *AssertionError) Unwrap() error { return ErrInternalAssertionFailed }
