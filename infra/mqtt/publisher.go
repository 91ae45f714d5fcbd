package mqtt

import (
	"context"
	"fmt"
	"sync"

	"github.com/anhkiet307/swapstation/core/model"
)

// MockNotifier records notifications instead of publishing them.
type MockNotifier struct {
	Published map[string]model.PinSlot
	FailIDs   map[int64]bool
	Prefix    string
	mu        sync.Mutex
}

// NewMockNotifier creates a new MockNotifier using DefaultTopicPrefix.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{
		Published: make(map[string]model.PinSlot),
		FailIDs:   make(map[int64]bool),
		Prefix:    DefaultTopicPrefix,
	}
}

// NotifySlots records each slot under its topic or fails for slots listed
// in FailIDs.
func (m *MockNotifier) NotifySlots(_ context.Context, slots ...model.PinSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range slots {
		if m.FailIDs[s.ID] {
			return fmt.Errorf("publish slot %d failed", s.ID)
		}
		m.Published[SlotTopic(m.Prefix, s.StationID, s.ID)] = s
	}
	return nil
}

// Get returns the last slot published on topic.
func (m *MockNotifier) Get(topic string) (model.PinSlot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Published[topic]
	return s, ok
}
