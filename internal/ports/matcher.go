package ports

import (
	"time"

	"github.com/windowkeep/sentrywin/internal/domain"
)

// SignalSource exposes a window's signals as an ordered sequence without
// handing the matcher a mutable reference to actor state.
type SignalSource interface {
	Signals() []domain.HealthSignal
}

// Matcher scans a window's signals and returns matches plus any
// synthesized side-effect signals to republish. Implementations must be
// deterministic given identical input.
type Matcher interface {
	Search(source SignalSource, windowDuration time.Duration) (domain.SignalPatternMatchResult, error)
}

// signalSlice is the simplest SignalSource: a plain, already-materialized
// slice of signals.
type signalSlice []domain.HealthSignal

func (s signalSlice) Signals() []domain.HealthSignal { return s }

// NewSignalSource wraps a slice of signals as a SignalSource.
func NewSignalSource(signals []domain.HealthSignal) SignalSource {
	return signalSlice(signals)
}
