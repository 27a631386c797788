package bus

import (
	"context"
	"sync"

	"github.com/mythichub/nexus/internal/dependencies/clock"
	"github.com/mythichub/nexus/internal/model"
)

// MemoryBus is an in-process bus for tests and single-process runs
type MemoryBus struct {
	cfg   Config
	clock clock.Clock

	mu     sync.Mutex
	closed bool
	subs   map[string][]*memorySub
	nextID int
}

type memorySub struct {
	id  int
	ch  chan model.Event
	ctx context.Context
}

// NewMemoryBus creates an in-process bus
func NewMemoryBus(cfg Config, clk clock.Clock) *MemoryBus {
	return &MemoryBus{
		cfg:   cfg,
		clock: clk,
		subs:  make(map[string][]*memorySub),
	}
}

// Ensure MemoryBus implements the interface
var _ Bus = (*MemoryBus)(nil)

func (b *MemoryBus) Publish(ctx context.Context, topic string, eventType model.EventType, payload any) error {
	event, err := newEvent(topic, eventType, b.clock.Now(), payload)
	if err != nil {
		return err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return model.ErrBusClosed
	}
	subs := append([]*memorySub(nil), b.subs[topic]...)
	b.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- event:
		case <-sub.ctx.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, topic string) (<-chan model.Event, func()) {
	subCtx, cancel := context.WithCancel(ctx)

	b.mu.Lock()
	b.nextID++
	sub := &memorySub{
		id:  b.nextID,
		ch:  make(chan model.Event, b.cfg.SubscriberBuffer),
		ctx: subCtx,
	}
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()

	stop := func() {
		cancel()
		b.mu.Lock()
		subs := b.subs[topic]
		for i, s := range subs {
			if s.id == sub.id {
				b.subs[topic] = append(subs[:i], subs[i+1:]...)
				close(s.ch)
				break
			}
		}
		b.mu.Unlock()
	}

	return sub.ch, stop
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for topic, subs := range b.subs {
		for _, sub := range subs {
			close(sub.ch)
		}
		delete(b.subs, topic)
	}
	return nil
}
