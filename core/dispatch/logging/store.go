package logging

import (
	"context"
	"time"

	"github.com/anhkiet307/swapstation/core/model"
)

// LogRecord captures one dispatch attempt and its outcome.
type LogRecord struct {
	Timestamp time.Time       `json:"timestamp"`
	AttemptID string          `json:"attempt_id"`
	SourceID  int64           `json:"source_id"`
	TargetID  int64           `json:"target_id"`
	State     string          `json:"state"`
	Violation string          `json:"violation,omitempty"`
	Message   string          `json:"message,omitempty"`
	Error     string          `json:"error,omitempty"`
	Before    []model.PinSlot `json:"before,omitempty"`
	After     []model.PinSlot `json:"after,omitempty"`
}

// Involves reports whether the record concerns slot id.
func (r LogRecord) Involves(id int64) bool {
	return r.SourceID == id || r.TargetID == id
}

// LogQuery defines filters for retrieving records. Zero values match
// everything. Limit keeps only the most recent records.
type LogQuery struct {
	Start  time.Time
	End    time.Time
	SlotID int64
	State  string
	Limit  int
}

// Match reports whether r satisfies every filter of q.
func (q LogQuery) Match(r LogRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.SlotID != 0 && !r.Involves(q.SlotID) {
		return false
	}
	if q.State != "" && r.State != q.State {
		return false
	}
	return true
}

func (q LogQuery) limit(recs []LogRecord) []LogRecord {
	if q.Limit > 0 && len(recs) > q.Limit {
		return recs[len(recs)-q.Limit:]
	}
	return recs
}

// LogStore persists LogRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}
