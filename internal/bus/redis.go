package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/mythichub/nexus/internal/dependencies/clock"
	"github.com/mythichub/nexus/internal/model"
)

// RedisBus carries events over Redis pub/sub channels, one channel per
// topic
type RedisBus struct {
	client *redis.Client
	cfg    Config
	clock  clock.Clock
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	cancel []context.CancelFunc
}

// NewRedisBus creates a bus over an existing Redis client
func NewRedisBus(client *redis.Client, cfg Config, clk clock.Clock, logger *slog.Logger) *RedisBus {
	return &RedisBus{
		client: client,
		cfg:    cfg,
		clock:  clk,
		logger: logger.With(slog.String("component", "bus")),
	}
}

// Ensure RedisBus implements the interface
var _ Bus = (*RedisBus)(nil)

// Publish sends one event on the topic, retrying transient failures with
// bounded exponential backoff. Once the attempt ceiling is exhausted the
// caller gets ErrPublishUnavailable and decides whether to abandon or
// queue the action.
func (b *RedisBus) Publish(ctx context.Context, topic string, eventType model.EventType, payload any) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return model.ErrBusClosed
	}
	b.mu.Unlock()

	event, err := newEvent(topic, eventType, b.clock.Now(), payload)
	if err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = b.cfg.PublishInitialBackoff
	bo.MaxInterval = b.cfg.PublishMaxBackoff

	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		if err := b.client.Publish(ctx, topic, data).Err(); err != nil {
			b.logger.Warn("publish attempt failed",
				slog.String("topic", topic),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			return err
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, b.cfg.PublishMaxRetries), ctx))

	if err != nil {
		return fmt.Errorf("%w: topic %s: %v", model.ErrPublishUnavailable, topic, err)
	}
	return nil
}

// Subscribe starts a subscription on the topic. The reader goroutine
// re-subscribes automatically when the transport drops and injects a
// bus_reconnected marker event so the consumer refreshes its derived view.
func (b *RedisBus) Subscribe(ctx context.Context, topic string) (<-chan model.Event, func()) {
	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan model.Event, b.cfg.SubscriberBuffer)

	b.mu.Lock()
	b.cancel = append(b.cancel, cancel)
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer close(out)
		b.consume(subCtx, topic, out)
	}()

	return out, cancel
}

func (b *RedisBus) consume(ctx context.Context, topic string, out chan<- model.Event) {
	logger := b.logger.With(slog.String("topic", topic))
	first := true

	for {
		if ctx.Err() != nil {
			return
		}

		if !first {
			select {
			case <-ctx.Done():
				return
			case <-time.After(b.cfg.ResubscribeDelay):
			}
		}

		sub := b.client.Subscribe(ctx, topic)

		// Wait for the subscription to be confirmed before reading
		if _, err := sub.Receive(ctx); err != nil {
			_ = sub.Close()
			if ctx.Err() != nil {
				return
			}
			logger.Warn("subscribe failed, will retry", slog.String("error", err.Error()))
			first = false
			continue
		}

		if !first {
			// Re-established after a drop: tell the consumer to refresh
			select {
			case out <- reconnectedEvent(topic, b.clock.Now()):
			case <-ctx.Done():
				_ = sub.Close()
				return
			}
			logger.Info("subscription re-established")
		}
		first = false

		if err := b.readLoop(ctx, sub, out, logger); err != nil {
			_ = sub.Close()
			if ctx.Err() != nil {
				return
			}
			logger.Warn("subscription lost", slog.String("error", err.Error()))
			continue
		}

		_ = sub.Close()
		return
	}
}

func (b *RedisBus) readLoop(ctx context.Context, sub *redis.PubSub, out chan<- model.Event, logger *slog.Logger) error {
	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		var event model.Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			logger.Warn("dropping malformed event", slog.String("error", err.Error()))
			continue
		}

		select {
		case out <- event:
		case <-ctx.Done():
			return nil
		}
	}
}

// Close cancels all subscriptions and waits for their readers to stop. It
// does not close the underlying Redis client, which the bus shares with
// the storage layer.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	cancels := b.cancel
	b.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	b.wg.Wait()
	return nil
}
