package dispatch

import (
	"context"

	"github.com/anhkiet307/swapstation/core/model"
)

// Notifier announces new slot states to the stations after a commit.
type Notifier interface {
	NotifySlots(ctx context.Context, slots ...model.PinSlot) error
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) NotifySlots(context.Context, ...model.PinSlot) error { return nil }
