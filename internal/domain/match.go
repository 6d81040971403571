package domain

import "time"

// Match is an opaque pattern match descriptor produced by a PatternMatcher.
// The engine never inspects its fields; it only counts and forwards them.
type Match struct {
	Name   string
	Labels map[string]string
}

// SideEffect is the set of signals a matcher wants republished on the bus.
type SideEffect struct {
	Signals []HealthSignal
}

// SignalPatternMatchResult is the full output of one matcher invocation
// over a window's contents.
type SignalPatternMatchResult struct {
	Matches         []Match
	CapturedSignals []HealthSignal
	SideEffect      SideEffect
	Frequency       time.Duration
	SourceWindow    *Window
}
