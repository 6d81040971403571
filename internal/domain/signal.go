package domain

import (
	"time"

	"github.com/google/uuid"
)

// NewHealthSignal constructs a HealthSignal with a fresh ID, the
// convenience constructor matchers use when synthesizing side-effect
// signals.
func NewHealthSignal(name, source string, at time.Time, attrs map[string]any) HealthSignal {
	return HealthSignal{
		ID:        uuid.NewString(),
		Name:      name,
		Timestamp: at,
		Source:    source,
		Attrs:     attrs,
	}
}

// HealthSignal is the canonical unit of observability data flowing through
// the windowing engine. Source is a free-form reference (service, host,
// check name, ...) that the engine may rewrite when it republishes a
// synthesized side-effect signal, so downstream consumers can still trace
// it back to the window that produced it.
type HealthSignal struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Timestamp time.Time      `json:"timestamp"`
	Source    string         `json:"source"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// WithSource returns a copy of the signal with Source rewritten. The engine
// uses it when republishing a matcher's side-effect signal that has no
// Source, so it carries the window's identity instead.
func (s HealthSignal) WithSource(source string) HealthSignal {
	s.Source = source
	return s
}
