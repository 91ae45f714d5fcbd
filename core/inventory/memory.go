package inventory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/anhkiet307/swapstation/core/model"
)

// MemoryStore keeps slots in memory. Transactions are serialized and stage
// their writes until commit.
type MemoryStore struct {
	txMu   sync.Mutex
	mu     sync.RWMutex
	data   map[int64]model.PinSlot
	faults map[int64]error
	now    func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:   map[int64]model.PinSlot{},
		faults: map[int64]error{},
		now:    time.Now,
	}
}

// SetWriteFault makes every transactional write of slot id fail with err.
// A nil err clears the fault.
func (s *MemoryStore) SetWriteFault(id int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, id)
		return
	}
	s.faults[id] = err
}

func (s *MemoryStore) FetchSlot(ctx context.Context, id int64) (model.PinSlot, error) {
	if err := ctx.Err(); err != nil {
		return model.PinSlot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.data[id]
	if !ok {
		return model.PinSlot{}, fmt.Errorf("slot %d: %w", id, ErrNotFound)
	}
	return slot, nil
}

func (s *MemoryStore) ListSlots(ctx context.Context, f Filter) ([]model.PinSlot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.PinSlot, 0, len(s.data))
	for _, slot := range s.data {
		if f.Match(slot) {
			res = append(res, slot)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, slot model.PinSlot) (model.PinSlot, error) {
	if err := ctx.Err(); err != nil {
		return model.PinSlot{}, err
	}
	if err := slot.Validate(); err != nil {
		return model.PinSlot{}, err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	slot.Version = s.data[slot.ID].Version + 1
	slot.UpdatedAt = s.now().UTC()
	s.data[slot.ID] = slot
	return slot, nil
}

// WithTx runs fn with exclusive access to the store. Writes are applied only
// when fn returns nil and ctx is still live.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	tx := &memoryTx{store: s, staged: map[int64]model.PinSlot{}}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	for id, slot := range tx.staged {
		s.data[id] = slot
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

type memoryTx struct {
	store  *MemoryStore
	staged map[int64]model.PinSlot
}

func (tx *memoryTx) current(id int64) (model.PinSlot, bool) {
	if slot, ok := tx.staged[id]; ok {
		return slot, true
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	slot, ok := tx.store.data[id]
	return slot, ok
}

func (tx *memoryTx) FetchForUpdate(ctx context.Context, id int64) (model.PinSlot, error) {
	if err := ctx.Err(); err != nil {
		return model.PinSlot{}, err
	}
	slot, ok := tx.current(id)
	if !ok {
		return model.PinSlot{}, fmt.Errorf("slot %d: %w", id, ErrNotFound)
	}
	return slot, nil
}

func (tx *memoryTx) WriteSlot(ctx context.Context, slot model.PinSlot, expectedVersion int64) (model.PinSlot, error) {
	if err := ctx.Err(); err != nil {
		return model.PinSlot{}, err
	}
	cur, ok := tx.current(slot.ID)
	if !ok {
		return model.PinSlot{}, fmt.Errorf("slot %d: %w", slot.ID, ErrNotFound)
	}
	if cur.Version != expectedVersion {
		return model.PinSlot{}, fmt.Errorf("slot %d at version %d, expected %d: %w", slot.ID, cur.Version, expectedVersion, ErrConcurrentModification)
	}
	tx.store.mu.RLock()
	fault := tx.store.faults[slot.ID]
	tx.store.mu.RUnlock()
	if fault != nil {
		return model.PinSlot{}, fmt.Errorf("write slot %d: %w", slot.ID, fault)
	}
	cur.ChargePercent = slot.ChargePercent
	cur.HealthPercent = slot.HealthPercent
	cur.Version = expectedVersion + 1
	cur.UpdatedAt = tx.store.now().UTC()
	tx.staged[slot.ID] = cur
	return cur, nil
}
