package events

import (
	"context"
	"errors"
	"sync"

	"github.com/zatekoja/feediq/internal/domain/entities"
	"github.com/zatekoja/feediq/internal/domain/providers"
)

// ErrBusClosed is returned when publishing or subscribing on a closed bus.
var ErrBusClosed = errors.New("event bus is closed")

// LocalEventBus fans events out inside one process. It is used when no
// Redis server is configured.
type LocalEventBus struct {
	fanout *fanout
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ providers.EventBus = (*LocalEventBus)(nil)

// NewLocalEventBus creates an in-process event bus
func NewLocalEventBus() *LocalEventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &LocalEventBus{fanout: newFanout(), ctx: ctx, cancel: cancel}
}

// Publish delivers the event to current subscribers of channel
func (b *LocalEventBus) Publish(ctx context.Context, channel string, event *entities.FeedbackEvent) error {
	if b.ctx.Err() != nil {
		return ErrBusClosed
	}
	b.fanout.broadcast(channel, event)
	return nil
}

// Subscribe returns a channel closed when ctx ends or the bus closes
func (b *LocalEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.FeedbackEvent, error) {
	if b.ctx.Err() != nil {
		return nil, ErrBusClosed
	}

	ch, _ := b.fanout.add(channel)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		select {
		case <-ctx.Done():
		case <-b.ctx.Done():
		}
		b.fanout.remove(channel, ch)
	}()

	return ch, nil
}

// Close closes every subscription
func (b *LocalEventBus) Close() error {
	b.cancel()
	b.wg.Wait()
	b.fanout.closeAll()
	return nil
}
