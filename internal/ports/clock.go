package ports

import "time"

// Clock is the single injectable time source so that Window.Expired and
// window construction are testable without real sleeps.
type Clock interface {
	Now() time.Time
}
