package storage

import (
	"context"
	"sync"

	"soondex/internal/model"
)

// EventSink receives committed pool events.
type EventSink interface {
	PutEventBatch(ctx context.Context, events []model.Event) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) PutEventBatch(context.Context, []model.Event) error { return nil }

// Buffer keeps events in memory.
type Buffer struct {
	mu     sync.Mutex
	events []model.Event
}

func (b *Buffer) PutEventBatch(_ context.Context, events []model.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, events...)
	return nil
}

// Events returns a copy of everything written so far.
func (b *Buffer) Events() []model.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Event, len(b.events))
	copy(out, b.events)
	return out
}

// Drain returns and clears the buffered events.
func (b *Buffer) Drain() []model.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.events
	b.events = nil
	return out
}

// Multi fans a batch out to several sinks in order.
type Multi []EventSink

func (m Multi) PutEventBatch(ctx context.Context, events []model.Event) error {
	for _, sink := range m {
		if err := sink.PutEventBatch(ctx, events); err != nil {
			return err
		}
	}
	return nil
}
