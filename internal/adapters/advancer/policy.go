// Package advancer provides concrete ports.Advancer policies.
package advancer

import (
	"time"

	"github.com/windowkeep/sentrywin/internal/domain"
	"github.com/windowkeep/sentrywin/internal/ports"
)

// TumblingPolicy is the default Advancer: it rolls the window when
// forced, when the window has expired against the injected clock, or
// once the window's signal count reaches MaxSignals (0
// disables the count-based trigger). The successor window always starts
// exactly at current.To and spans Frequency, so windows stay contiguous
// by construction regardless of which trigger fired.
type TumblingPolicy struct {
	Clock      ports.Clock
	Frequency  time.Duration
	MaxSignals int
}

// NewTumblingPolicy constructs a TumblingPolicy with the given width.
// maxSignals <= 0 disables the count-based trigger.
func NewTumblingPolicy(clock ports.Clock, frequency time.Duration, maxSignals int) *TumblingPolicy {
	return &TumblingPolicy{Clock: clock, Frequency: frequency, MaxSignals: maxSignals}
}

func (p *TumblingPolicy) Advance(current domain.Window, force bool) (domain.Window, bool) {
	shouldRoll := force
	if !shouldRoll && current.Expired(p.Clock.Now()) {
		shouldRoll = true
	}
	if !shouldRoll && p.MaxSignals > 0 && len(current.Data) >= p.MaxSignals {
		shouldRoll = true
	}
	if !shouldRoll {
		return domain.Window{}, false
	}
	return domain.NewWindow(domain.NewWindowID(), current.To, p.Frequency), true
}

var _ ports.Advancer = (*TumblingPolicy)(nil)
