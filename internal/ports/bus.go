package ports

import (
	"context"

	"github.com/windowkeep/sentrywin/internal/domain"
)

// SignalBus publishes synthesized side-effect signals. Publish is
// asynchronous and best-effort: the engine never blocks on it and a
// failed publish is logged, not propagated.
type SignalBus interface {
	Publish(ctx context.Context, signal domain.HealthSignal) error
}
