package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/anhkiet307/swapstation/core/factory"
)

// ErrLockBusy is returned when one of the requested keys is already held.
var ErrLockBusy = errors.New("lock busy")

// Locker acquires a set of keys atomically. Lock never waits for a busy key;
// it fails with ErrLockBusy. The returned unlock func is safe to call more
// than once.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// SlotLockKey is the lock key guarding one pin slot.
func SlotLockKey(id int64) string {
	return fmt.Sprintf("swapstation:pinslot:%d", id)
}

// SortedKeys returns a sorted, de-duplicated copy of keys.
func SortedKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MemoryLocker is an in-process Locker.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryLocker returns an empty MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: map[string]struct{}{}}
}

func (l *MemoryLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys = SortedKeys(keys)
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, k := range keys {
		if _, ok := l.held[k]; ok {
			return nil, fmt.Errorf("%s: %w", k, ErrLockBusy)
		}
	}
	for _, k := range keys {
		l.held[k] = struct{}{}
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			for _, k := range keys {
				delete(l.held, k)
			}
			l.mu.Unlock()
		})
	}, nil
}

var lockerRegistry = factory.NewRegistry[Locker]("locker")

func init() {
	_ = RegisterLocker("memory", func(map[string]any) (Locker, error) {
		return NewMemoryLocker(), nil
	})
}

// RegisterLocker adds a Locker backend factory.
func RegisterLocker(name string, f factory.Factory[Locker]) error {
	return lockerRegistry.Register(name, f)
}

// NewLocker builds the configured Locker. An empty type or "none" disables
// pair locking and returns nil.
func NewLocker(cfg factory.ModuleConfig) (Locker, error) {
	if cfg.Type == "" || cfg.Type == "none" {
		return nil, nil
	}
	return lockerRegistry.Create(cfg)
}
