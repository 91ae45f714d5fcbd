package inventory

import (
	"context"
	"errors"

	"github.com/anhkiet307/swapstation/core/model"
)

var (
	// ErrNotFound is returned when a slot id is unknown.
	ErrNotFound = errors.New("slot not found")
	// ErrConcurrentModification is returned when a write's version guard
	// does not match the stored slot.
	ErrConcurrentModification = errors.New("slot modified concurrently")
	// ErrRollbackFailed is returned by WithTx when the transaction could not
	// be rolled back after fn failed. Storage may hold partial state.
	ErrRollbackFailed = errors.New("transaction rollback failed")
)

// Filter restricts ListSlots. Zero values match everything.
type Filter struct {
	StationID int64
	Status    model.SlotStatus
}

// Match reports whether the slot passes the filter.
func (f Filter) Match(s model.PinSlot) bool {
	if f.StationID != 0 && s.StationID != f.StationID {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	return true
}

// Reader gives read access to pin slots.
type Reader interface {
	FetchSlot(ctx context.Context, id int64) (model.PinSlot, error)
	ListSlots(ctx context.Context, f Filter) ([]model.PinSlot, error)
}

// Tx is the view of the store inside a transaction.
type Tx interface {
	// FetchForUpdate reads the slot and holds it until the transaction ends.
	FetchForUpdate(ctx context.Context, id int64) (model.PinSlot, error)
	// WriteSlot stores the mutable fields of slot if the stored version still
	// equals expectedVersion and returns the written slot with its new
	// version. A mismatch yields ErrConcurrentModification.
	WriteSlot(ctx context.Context, slot model.PinSlot, expectedVersion int64) (model.PinSlot, error)
}

// Store is the pin-slot inventory. Implementations must make the writes of
// one WithTx call atomic: either all of them are visible after it returns
// nil, or none.
type Store interface {
	Reader
	WithTx(ctx context.Context, fn func(Tx) error) error
	// Upsert creates or replaces a slot outside of any dispatch and bumps
	// its version.
	Upsert(ctx context.Context, slot model.PinSlot) (model.PinSlot, error)
	Close() error
}
