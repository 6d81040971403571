package sentrywin

import "github.com/windowkeep/sentrywin/internal/ports"

// Re-exported sentinel errors for convenience.
var (
	ErrMatcherFailed           = ports.ErrMatcherFailed
	ErrBusPublishFailed        = ports.ErrBusPublishFailed
	ErrListenerUnavailable     = ports.ErrListenerUnavailable
	ErrInternalAssertionFailed = ports.ErrInternalAssertionFailed
	ErrSupervisorExhausted     = ports.ErrSupervisorExhausted
	ErrSnapshotTimeout         = ports.ErrSnapshotTimeout
	ErrUnavailable             = ports.ErrUnavailable
)
