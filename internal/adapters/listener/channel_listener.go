// Package listener provides concrete ports.WindowEventListener adapters.
package listener

import (
	"github.com/windowkeep/sentrywin/internal/domain"
	"github.com/windowkeep/sentrywin/internal/ports"
)

// Channel is a WindowEventListener backed by a buffered Go channel. It
// never blocks the actor: once the buffer is full, further events are
// dropped and counted rather than queued, since the actor must stay
// responsive even if nobody is draining Events().
type Channel struct {
	ch      chan domain.WindowEvent
	dropped int
}

// NewChannel constructs a Channel listener with the given buffer size.
func NewChannel(buffer int) *Channel {
	if buffer <= 0 {
		buffer = 1
	}
	return &Channel{ch: make(chan domain.WindowEvent, buffer)}
}

func (c *Channel) Accept(event domain.WindowEvent) {
	select {
	case c.ch <- event:
	default:
		c.dropped++
	}
}

// Events returns the channel lifecycle events are delivered on.
func (c *Channel) Events() <-chan domain.WindowEvent { return c.ch }

// Dropped reports how many events were discarded because the buffer was
// full when Accept was called.
func (c *Channel) Dropped() int { return c.dropped }

var _ ports.WindowEventListener = (*Channel)(nil)

// Multi fans a single event out to several listeners in order. A
// panicking listener is recovered per-listener so one bad sink cannot
// stop delivery to the rest (the actor's own emit already recovers
// panics from whatever Multi is installed as, but recovering here too
// keeps one listener's failure from shadowing another's).
type Multi []ports.WindowEventListener

func (m Multi) Accept(event domain.WindowEvent) {
	for _, l := range m {
		if l == nil {
			continue
		}
		func(l ports.WindowEventListener) {
			defer func() { recover() }()
			l.Accept(event)
		}(l)
	}
}

var _ ports.WindowEventListener = Multi(nil)
