package websocket

import (
	"context"
	"errors"
	"sync"
)

// ErrBusNotStarted is returned by Publish before Start was called
var ErrBusNotStarted = errors.New("bus not started")

// Bus carries events to the hub of every instance. Publish never blocks on a
// slow receiver; delivery to connections is at most once.
type Bus interface {
	Publish(ctx context.Context, e Event) error
	// Start begins forwarding published events to onEvent until ctx is done
	Start(ctx context.Context, onEvent func(Event)) error
	Close() error
}

// LocalBus forwards events straight into this process' hub
type LocalBus struct {
	mu      sync.RWMutex
	onEvent func(Event)
}

// NewLocalBus creates a single-instance bus
func NewLocalBus() *LocalBus {
	return &LocalBus{}
}

// Publish hands e to the registered handler synchronously
func (b *LocalBus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	onEvent := b.onEvent
	b.mu.RUnlock()

	if onEvent == nil {
		return ErrBusNotStarted
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	onEvent(e)
	return nil
}

// Start registers the handler
func (b *LocalBus) Start(ctx context.Context, onEvent func(Event)) error {
	if onEvent == nil {
		return errors.New("onEvent callback required")
	}
	b.mu.Lock()
	b.onEvent = onEvent
	b.mu.Unlock()
	return nil
}

// Close detaches the handler
func (b *LocalBus) Close() error {
	b.mu.Lock()
	b.onEvent = nil
	b.mu.Unlock()
	return nil
}
