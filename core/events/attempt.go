package events

import (
	"time"

	"github.com/anhkiet307/swapstation/core/model"
)

// AttemptEvent is published each time a dispatch attempt enters a new state.
// Violation is empty unless State is "rejected".
type AttemptEvent struct {
	AttemptID string
	SourceID  int64
	TargetID  int64
	State     string
	Violation string
	Err       error
	Time      time.Time
}

// CommitEvent is published once both slots of a swap have been persisted.
type CommitEvent struct {
	AttemptID string
	Before    [2]model.PinSlot
	After     [2]model.PinSlot
	Time      time.Time
}
