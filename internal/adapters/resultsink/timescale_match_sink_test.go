package resultsink

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/windowkeep/sentrywin/internal/domain"
	"github.com/windowkeep/sentrywin/internal/ports"
)

type fakeMatcher struct {
	result domain.SignalPatternMatchResult
	err    error
}

func (f fakeMatcher) Search(ports.SignalSource, time.Duration) (domain.SignalPatternMatchResult, error) {
	return f.result, f.err
}

func TestTimescaleMatchSinkAcceptInsertsMatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	matcher := fakeMatcher{result: domain.SignalPatternMatchResult{
		Matches: []domain.Match{{Name: "flapping", Labels: map[string]string{"count": "3"}}},
	}}
	sink := NewTimescaleMatchSink(db, "window_matches", matcher)

	from := time.Unix(0, 0).UTC()
	to := from.Add(10 * time.Second)
	w := domain.Window{ID: "w1", From: from, To: to}

	expectedQuery := regexp.QuoteMeta("INSERT INTO window_matches (window_id, window_from, window_to, match_name, labels) VALUES ($1,$2,$3,$4,$5) ON CONFLICT DO NOTHING")
	mock.ExpectExec(expectedQuery).
		WithArgs("w1", from, to, "flapping", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sink.Accept(domain.Closed{Window: w, Data: domain.WindowData{Frequency: w.Duration()}})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleMatchSinkAcceptNoMatchesSkipsInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleMatchSink(db, "window_matches", fakeMatcher{})
	sink.Accept(domain.Closed{Window: domain.Window{ID: "w1"}})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleMatchSinkAcceptIgnoresOtherEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleMatchSink(db, "window_matches", fakeMatcher{
		result: domain.SignalPatternMatchResult{Matches: []domain.Match{{Name: "x"}}},
	})
	sink.Accept(domain.Opened{Window: domain.Window{ID: "w1"}})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
