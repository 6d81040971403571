package ports

import "github.com/windowkeep/sentrywin/internal/domain"

// WindowEventListener receives lifecycle events from exactly one actor;
// the listener handle is used exclusively by that one actor. Accept must
// not block the actor for long; implementations that need to do slow
// work should hand the event off to their own goroutine.
type WindowEventListener interface {
	Accept(event domain.WindowEvent)
}

// ListenerFunc adapts a plain function to a WindowEventListener.
type ListenerFunc func(domain.WindowEvent)

func (f ListenerFunc) Accept(event domain.WindowEvent) { f(event) }
