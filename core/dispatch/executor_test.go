package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anhkiet307/swapstation/core/inventory"
	"github.com/anhkiet307/swapstation/core/model"
)

func seededStore(t *testing.T) *inventory.MemoryStore {
	t.Helper()
	st := inventory.NewMemoryStore()
	err := inventory.Seed(context.Background(), st, []model.PinSlot{
		{ID: 139, StationID: 3, ChargePercent: 90, HealthPercent: 85, Status: model.SlotActive},
		{ID: 140, StationID: 3, ChargePercent: 60, HealthPercent: 22, Status: model.SlotActive},
		{ID: 141, StationID: 4, ChargePercent: 70, HealthPercent: 60, Status: model.SlotActive},
	})
	require.NoError(t, err)
	return st
}

func snapshot(t *testing.T, st inventory.Reader, id int64) *model.PinSlot {
	t.Helper()
	s, err := st.FetchSlot(context.Background(), id)
	require.NoError(t, err)
	return &s
}

// rollbackFailStore reports a failed rollback for every failing transaction.
type rollbackFailStore struct {
	*inventory.MemoryStore
}

func (s rollbackFailStore) WithTx(ctx context.Context, fn func(inventory.Tx) error) error {
	err := s.MemoryStore.WithTx(ctx, fn)
	if err != nil {
		return fmt.Errorf("%w: %w", inventory.ErrRollbackFailed, err)
	}
	return nil
}

func TestExecutor_ScenarioD_RoundTripThenStale(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	st := seededStore(t)
	x, err := NewExecutor(st)
	require.NoError(t, err)
	ctx := context.Background()
	src, dst := snapshot(t, st, 139), snapshot(t, st, 140)

	got, err := x.Execute(ctx, src, dst)
	require.NoError(t, err)
	assert.Equal(t, 60.0, got.Source.ChargePercent)
	assert.Equal(t, 22.0, got.Source.HealthPercent)
	assert.Equal(t, 90.0, got.Target.ChargePercent)
	assert.Equal(t, 85.0, got.Target.HealthPercent)

	after139, after140 := snapshot(t, st, 139), snapshot(t, st, 140)
	assert.Equal(t, got.Source, *after139)
	assert.Equal(t, got.Target, *after140)
	assert.Equal(t, src.ID, after139.ID)
	assert.Equal(t, src.StationID, after139.StationID)
	assert.Equal(t, src.Status, after139.Status)
	assert.Equal(t, src.Version+1, after139.Version)
	assert.Equal(t, dst.Version+1, after140.Version)

	_, err = x.Execute(ctx, src, dst)
	require.ErrorIs(t, err, inventory.ErrConcurrentModification)
	assert.Equal(t, float64(1), testutil.ToFloat64(concurrentConflicts))
	assert.Equal(t, *after139, *snapshot(t, st, 139), "stale execute must not re-apply")
}

func TestExecutor_ArgumentErrors(t *testing.T) {
	st := seededStore(t)
	x, err := NewExecutor(st)
	require.NoError(t, err)
	a := snapshot(t, st, 139)
	_, err = x.Execute(context.Background(), nil, a)
	assert.ErrorIs(t, err, ErrMissingSelection)
	_, err = x.Execute(context.Background(), a, a)
	assert.ErrorIs(t, err, ErrSameSlot)

	_, err = NewExecutor(nil)
	assert.Error(t, err)
}

func TestExecutor_StaleFieldsWithSameVersion(t *testing.T) {
	st := seededStore(t)
	x, _ := NewExecutor(st)
	src, dst := snapshot(t, st, 139), snapshot(t, st, 140)
	src.HealthPercent = 50
	_, err := x.Execute(context.Background(), src, dst)
	assert.ErrorIs(t, err, inventory.ErrConcurrentModification)
}

func TestExecutor_NotFound(t *testing.T) {
	st := seededStore(t)
	x, _ := NewExecutor(st)
	src := snapshot(t, st, 139)
	ghost := &model.PinSlot{ID: 999, StationID: 3, ChargePercent: 50, HealthPercent: 50, Status: model.SlotActive, Version: 1}
	_, err := x.Execute(context.Background(), src, ghost)
	assert.ErrorIs(t, err, inventory.ErrNotFound)
	assert.NotErrorIs(t, err, ErrPersistenceFailure)
}

func TestExecutor_RollbackOnSecondWriteFailure(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	st := seededStore(t)
	boom := errors.New("disk full")
	st.SetWriteFault(140, boom)
	x, _ := NewExecutor(st)
	src, dst := snapshot(t, st, 139), snapshot(t, st, 140)

	_, err := x.Execute(context.Background(), src, dst)
	require.ErrorIs(t, err, ErrPersistenceFailure)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrConsistencyFault)
	assert.Equal(t, float64(1), testutil.ToFloat64(persistenceFailures))

	assert.Equal(t, *src, *snapshot(t, st, 139), "first write must be rolled back")
	assert.Equal(t, *dst, *snapshot(t, st, 140))
}

func TestExecutor_ConsistencyFaultOnFailedRollback(t *testing.T) {
	st := seededStore(t)
	st.SetWriteFault(140, errors.New("connection reset"))
	x, _ := NewExecutor(rollbackFailStore{st})
	src, dst := snapshot(t, st, 139), snapshot(t, st, 140)

	_, err := x.Execute(context.Background(), src, dst)
	require.ErrorIs(t, err, ErrConsistencyFault)
	assert.ErrorIs(t, err, inventory.ErrRollbackFailed)
}

func TestExecutor_LockBusy(t *testing.T) {
	st := seededStore(t)
	locker := NewMemoryLocker()
	x, _ := NewExecutor(st, WithLocker(locker), WithTimeout(time.Second))
	src, dst := snapshot(t, st, 139), snapshot(t, st, 140)

	unlock, err := locker.Lock(context.Background(), SlotLockKey(140))
	require.NoError(t, err)
	_, err = x.Execute(context.Background(), src, dst)
	assert.ErrorIs(t, err, inventory.ErrConcurrentModification)
	assert.ErrorIs(t, err, ErrLockBusy)

	unlock()
	_, err = x.Execute(context.Background(), src, dst)
	require.NoError(t, err)

	// released after success
	again, err := locker.Lock(context.Background(), SlotLockKey(139), SlotLockKey(140))
	require.NoError(t, err)
	again()
}

func TestExecutor_ConcurrentSharedSlot(t *testing.T) {
	st := seededStore(t)
	x, _ := NewExecutor(st, WithLocker(NewMemoryLocker()))
	shared := snapshot(t, st, 139)
	others := []*model.PinSlot{snapshot(t, st, 140), snapshot(t, st, 141)}

	var wg sync.WaitGroup
	errs := make([]error, len(others))
	for i, o := range others {
		wg.Add(1)
		go func(i int, o *model.PinSlot) {
			defer wg.Done()
			src := *shared
			_, errs[i] = x.Execute(context.Background(), &src, o)
		}(i, o)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, inventory.ErrConcurrentModification):
			conflicts++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, shared.Version+1, snapshot(t, st, 139).Version)
}

func TestExecutor_CanceledContext(t *testing.T) {
	st := seededStore(t)
	x, _ := NewExecutor(st)
	src, dst := snapshot(t, st, 139), snapshot(t, st, 140)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := x.Execute(ctx, src, dst)
	assert.ErrorIs(t, err, ErrPersistenceFailure)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, *src, *snapshot(t, st, 139))
}
