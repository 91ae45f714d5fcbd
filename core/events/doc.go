// Package events defines the dispatch related events emitted on the event bus.
//
// Available event types:
//   - AttemptEvent: an attempt changed state
//   - CommitEvent: a swap was persisted, with both slots before and after
package events
