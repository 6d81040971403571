package ports

import "github.com/windowkeep/sentrywin/internal/domain"

// Advancer is the pluggable tumbling/advancing policy deciding when a
// window rolls into its successor. Advance returns ok=false when the
// window should not roll yet. When force is true, implementations MUST
// return ok=true: advance-on-close is unconditional. The returned window
// must be contiguous with current (next.From == current.To) and must
// never overlap or rewind it.
type Advancer interface {
	Advance(current domain.Window, force bool) (next domain.Window, ok bool)
}
