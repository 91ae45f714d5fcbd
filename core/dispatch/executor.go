package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anhkiet307/swapstation/core/inventory"
	"github.com/anhkiet307/swapstation/core/logger"
	"github.com/anhkiet307/swapstation/core/model"
)

// Committed holds the two slots as persisted by a successful swap.
type Committed struct {
	Source model.PinSlot `json:"source"`
	Target model.PinSlot `json:"target"`
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLocker guards each swap with a pair lock on both slot ids.
func WithLocker(l Locker) ExecutorOption {
	return func(x *Executor) { x.locker = l }
}

// WithTimeout bounds the whole swap, lock included. Zero disables it.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(x *Executor) { x.timeout = d }
}

// WithLogger sets the executor logger.
func WithLogger(l logger.Logger) ExecutorOption {
	return func(x *Executor) { x.log = l }
}

// Executor exchanges charge and health readings between two slots inside a
// single inventory transaction.
type Executor struct {
	store   inventory.Store
	locker  Locker
	timeout time.Duration
	log     logger.Logger
}

// NewExecutor returns an Executor persisting through store.
func NewExecutor(store inventory.Store, opts ...ExecutorOption) (*Executor, error) {
	if store == nil {
		return nil, fmt.Errorf("dispatch: nil inventory store provided to NewExecutor")
	}
	x := &Executor{store: store, log: logger.NopLogger{}}
	for _, opt := range opts {
		opt(x)
	}
	return x, nil
}

// Execute swaps ChargePercent and HealthPercent between source and target and
// persists both, or neither. The snapshots must still match storage (same
// version and readings), otherwise inventory.ErrConcurrentModification is
// returned. The approval of the pair is not re-validated here.
func (x *Executor) Execute(ctx context.Context, source, target *model.PinSlot) (Committed, error) {
	if source == nil || target == nil {
		return Committed{}, ErrMissingSelection
	}
	if source.ID == target.ID {
		return Committed{}, ErrSameSlot
	}
	if x.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.timeout)
		defer cancel()
	}
	if x.locker != nil {
		unlock, err := x.locker.Lock(ctx, SlotLockKey(source.ID), SlotLockKey(target.ID))
		if err != nil {
			return Committed{}, x.classify(fmt.Errorf("lock slots %d/%d: %w", source.ID, target.ID, err))
		}
		defer unlock()
	}

	start := time.Now()
	var out Committed
	err := x.store.WithTx(ctx, func(tx inventory.Tx) error {
		// Rows are locked in ascending id order so two swaps over the same
		// slots cannot deadlock.
		first, second := source, target
		if second.ID < first.ID {
			first, second = second, first
		}
		cur := make(map[int64]model.PinSlot, 2)
		for _, snap := range []*model.PinSlot{first, second} {
			stored, err := tx.FetchForUpdate(ctx, snap.ID)
			if err != nil {
				return err
			}
			if err := matchSnapshot(stored, *snap); err != nil {
				return err
			}
			cur[snap.ID] = stored
		}
		oldSrc, oldDst := cur[source.ID], cur[target.ID]
		newSrc, newDst := oldSrc, oldDst
		newSrc.ChargePercent, newSrc.HealthPercent = oldDst.ChargePercent, oldDst.HealthPercent
		newDst.ChargePercent, newDst.HealthPercent = oldSrc.ChargePercent, oldSrc.HealthPercent

		ws, err := tx.WriteSlot(ctx, newSrc, oldSrc.Version)
		if err != nil {
			return err
		}
		wd, err := tx.WriteSlot(ctx, newDst, oldDst.Version)
		if err != nil {
			return err
		}
		out = Committed{Source: ws, Target: wd}
		return nil
	})
	executionLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return Committed{}, x.classify(err)
	}
	x.log.Debugw("swap committed", map[string]any{
		"source_id":      out.Source.ID,
		"target_id":      out.Target.ID,
		"source_version": out.Source.Version,
		"target_version": out.Target.Version,
	})
	return out, nil
}

// matchSnapshot fails when the stored slot is not the one the engine saw.
func matchSnapshot(stored, snap model.PinSlot) error {
	if stored.Version != snap.Version ||
		stored.ChargePercent != snap.ChargePercent ||
		stored.HealthPercent != snap.HealthPercent ||
		stored.Status != snap.Status ||
		stored.StationID != snap.StationID {
		return fmt.Errorf("slot %d snapshot v%d is stale (stored v%d): %w",
			snap.ID, snap.Version, stored.Version, inventory.ErrConcurrentModification)
	}
	return nil
}

// classify maps storage errors onto the dispatch error taxonomy. NotFound and
// ConcurrentModification are surfaced unchanged.
func (x *Executor) classify(err error) error {
	switch {
	case errors.Is(err, inventory.ErrRollbackFailed):
		persistenceFailures.Inc()
		x.log.Errorf("swap left storage inconsistent: %v", err)
		return fmt.Errorf("%w: %w", ErrConsistencyFault, err)
	case errors.Is(err, ErrLockBusy):
		concurrentConflicts.Inc()
		return fmt.Errorf("%w: %w", inventory.ErrConcurrentModification, err)
	case errors.Is(err, inventory.ErrConcurrentModification):
		concurrentConflicts.Inc()
		return err
	case errors.Is(err, inventory.ErrNotFound):
		return err
	default:
		persistenceFailures.Inc()
		x.log.Warnf("swap not persisted: %v", err)
		return fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}
}
