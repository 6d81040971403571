// Package matcher provides concrete ports.Matcher implementations.
package matcher

import (
	"sort"
	"strconv"
	"time"

	"github.com/windowkeep/sentrywin/internal/domain"
	"github.com/windowkeep/sentrywin/internal/ports"
)

// ThresholdMatcher is the default Matcher: it counts occurrences of each
// distinct signal name in the window and, for every
// name whose count reaches Threshold, emits a Match plus a synthesized
// side-effect HealthSignal named AlertName. Iteration is over sorted
// names so Search is deterministic regardless of map ordering, as the
// Matcher contract requires.
type ThresholdMatcher struct {
	Clock     ports.Clock
	Threshold int
	AlertName string
}

// NewThresholdMatcher constructs a ThresholdMatcher. threshold must be
// >= 1; a signal name recurring threshold or more times within a window
// triggers a match.
func NewThresholdMatcher(clock ports.Clock, threshold int, alertName string) *ThresholdMatcher {
	if threshold < 1 {
		threshold = 1
	}
	return &ThresholdMatcher{Clock: clock, Threshold: threshold, AlertName: alertName}
}

func (m *ThresholdMatcher) Search(source ports.SignalSource, windowDuration time.Duration) (domain.SignalPatternMatchResult, error) {
	signals := source.Signals()

	counts := make(map[string]int)
	for _, s := range signals {
		counts[s.Name]++
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	var matches []domain.Match
	var sideEffects []domain.HealthSignal
	now := m.Clock.Now()
	for _, name := range names {
		count := counts[name]
		if count < m.Threshold {
			continue
		}
		matches = append(matches, domain.Match{
			Name:   name,
			Labels: map[string]string{"count": strconv.Itoa(count)},
		})
		sideEffects = append(sideEffects, domain.NewHealthSignal(m.AlertName, "", now, map[string]any{
			"matched_signal": name,
			"count":          count,
		}))
	}

	return domain.SignalPatternMatchResult{
		Matches:         matches,
		CapturedSignals: signals,
		SideEffect:      domain.SideEffect{Signals: sideEffects},
		Frequency:       windowDuration,
	}, nil
}

var _ ports.Matcher = (*ThresholdMatcher)(nil)
