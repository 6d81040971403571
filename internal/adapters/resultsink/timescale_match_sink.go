// Package resultsink persists per-window match results for downstream
// analytics.
package resultsink

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/windowkeep/sentrywin/internal/domain"
	"github.com/windowkeep/sentrywin/internal/ports"
)

// TimescaleMatchSink is a ports.WindowEventListener that reacts only to
// Advanced and Closed events: it re-runs the configured Matcher over the
// closing window's data (the WindowEvent payload carries raw signals, not
// the match result the engine already computed and published) and
// writes the resulting matches to a Postgres/Timescale-compatible table.
// It never sees, and never needs, the signals of any other window.
type TimescaleMatchSink struct {
	db        *sql.DB
	tableName string
	matcher   ports.Matcher
}

// NewTimescaleMatchSink constructs a sink writing to table, using
// matcher to recompute matches for each closing window it observes.
func NewTimescaleMatchSink(db *sql.DB, table string, matcher ports.Matcher) *TimescaleMatchSink {
	return &TimescaleMatchSink{db: db, tableName: table, matcher: matcher}
}

func (t *TimescaleMatchSink) Accept(event domain.WindowEvent) {
	var w domain.Window
	var data domain.WindowData
	switch e := event.(type) {
	case domain.Advanced:
		w = e.NewWindow
		data = e.Data
	case domain.Closed:
		w = e.Window
		data = e.Data
	default:
		return
	}
	_ = t.writeMatches(w, data)
}

func (t *TimescaleMatchSink) writeMatches(w domain.Window, data domain.WindowData) error {
	res, err := t.matcher.Search(ports.NewSignalSource(data.Data), data.Frequency)
	if err != nil {
		return fmt.Errorf("resultsink: matcher: %w", err)
	}
	if len(res.Matches) == 0 {
		return nil
	}
	return t.insert(w, res)
}

func (t *TimescaleMatchSink) insert(w domain.Window, res domain.SignalPatternMatchResult) error {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.tableName)
	b.WriteString(" (window_id, window_from, window_to, match_name, labels) VALUES ")

	args := make([]any, 0, len(res.Matches)*5)
	for i, m := range res.Matches {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4, len(args)+5))

		labels, err := json.Marshal(m.Labels)
		if err != nil {
			return fmt.Errorf("marshal labels: %w", err)
		}
		args = append(args, w.ID, w.From, w.To, m.Name, labels)
	}
	b.WriteString(" ON CONFLICT DO NOTHING")

	_, err := t.db.Exec(b.String(), args...)
	return err
}

var _ ports.WindowEventListener = (*TimescaleMatchSink)(nil)
