// Package export writes dispatch audit records in interchange formats.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/anhkiet307/swapstation/core/dispatch/logging"
)

// CSVHeader is the first row written by WriteCSV.
var CSVHeader = []string{"timestamp", "attempt_id", "source_id", "target_id", "state", "violation", "message", "error"}

// WriteJSON writes the records to w as a single JSON array.
func WriteJSON(w io.Writer, recs []logging.LogRecord) error {
	if recs == nil {
		recs = []logging.LogRecord{}
	}
	return json.NewEncoder(w).Encode(recs)
}

// WriteCSV writes one row per record. Slot snapshots are not exported.
func WriteCSV(w io.Writer, recs []logging.LogRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range recs {
		row := []string{
			r.Timestamp.UTC().Format(time.RFC3339Nano),
			r.AttemptID,
			strconv.FormatInt(r.SourceID, 10),
			strconv.FormatInt(r.TargetID, 10),
			r.State,
			r.Violation,
			r.Message,
			r.Error,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
