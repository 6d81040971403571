package domain

import (
	"time"

	"github.com/google/uuid"
)

// NewWindowID returns a fresh identifier for a window. Windows compare by
// this ID, not by their time bounds, so a flushed or re-created window at
// the same bounds is never mistaken for a stale one.
func NewWindowID() string {
	return uuid.NewString()
}

// Window holds a contiguous, half-open span of time plus the signals
// accumulated in it. to is exclusive: a window covers [from, to).
type Window struct {
	ID        string
	From      time.Time
	To        time.Time
	Data      []HealthSignal
	PriorData []HealthSignal
}

// NewWindow constructs a window starting at now with the given width.
func NewWindow(id string, now time.Time, frequency time.Duration) Window {
	return Window{
		ID:   id,
		From: now,
		To:   now.Add(frequency),
	}
}

// Duration returns the configured width of the window (to - from).
func (w Window) Duration() time.Duration {
	return w.To.Sub(w.From)
}

// Expired reports whether refTime has reached or passed the window's
// upper bound.
func (w Window) Expired(refTime time.Time) bool {
	return !refTime.Before(w.To)
}

// Snapshot returns a read-only copy of the window's accumulated data. The
// returned slice is a defensive copy; mutating it never affects the
// window.
func (w Window) Snapshot() WindowSnapshot {
	data := make([]HealthSignal, len(w.Data))
	copy(data, w.Data)
	return WindowSnapshot{Data: data}
}

// WithAppended returns a copy of the window with s appended to Data. The
// window's own Data is never mutated in place so callers that only hold a
// Window value (rather than a pointer into actor state) cannot observe
// partial updates.
func (w Window) WithAppended(s HealthSignal) Window {
	data := make([]HealthSignal, len(w.Data), len(w.Data)+1)
	copy(data, w.Data)
	data = append(data, s)
	w.Data = data
	return w
}

// Flushed returns a copy of the window with Data cleared but From/To/ID
// preserved, as required by the Flush command.
func (w Window) Flushed() Window {
	w.Data = nil
	return w
}

// WindowSnapshot is the read-only view returned by snapshot queries.
type WindowSnapshot struct {
	Data []HealthSignal
}

// WindowData pairs a window's accumulated signals with the frequency it
// was configured with, as emitted on Advanced/Closed events.
type WindowData struct {
	Data      []HealthSignal
	Frequency time.Duration
}
