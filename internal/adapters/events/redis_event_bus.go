package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/internal/domain/providers"
	redisclient "github.com/zatekoja/sewa/internal/infrastructure/clients/redis"
)

// DefaultSubscriberBuffer is the per-subscriber channel capacity
const DefaultSubscriberBuffer = 100

// channelSubscription fans one Redis subscription out to local subscribers
type channelSubscription struct {
	pubsub      *redis.PubSub
	subscribers map[chan *entities.DomainEvent]struct{}
}

// RedisEventBus implements the EventBus interface using Redis Pub/Sub
type RedisEventBus struct {
	client   redis.UniversalClient
	buffer   int
	channels map[string]*channelSubscription
	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	return NewRedisEventBusFromClient(client.Client(), DefaultSubscriberBuffer)
}

// NewRedisEventBusFromClient creates an event bus over any go-redis client
func NewRedisEventBusFromClient(client redis.UniversalClient, buffer int) *RedisEventBus {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:   client,
		buffer:   buffer,
		channels: make(map[string]*channelSubscription),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Publish publishes an event to all subscribers of channel
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.DomainEvent) error {
	if event == nil {
		return errors.New("event is nil")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", event.Type, channel, err)
	}

	log.Debug().
		Str("channel", channel).
		Str("event_id", event.ID).
		Str("type", string(event.Type)).
		Msg("published event")
	return nil
}

// Subscribe returns a channel receiving events published to channel until
// ctx is cancelled
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.DomainEvent, error) {
	b.mu.Lock()
	sub, exists := b.channels[channel]
	if !exists {
		pubsub := b.client.Subscribe(b.ctx, channel)
		sub = &channelSubscription{
			pubsub:      pubsub,
			subscribers: make(map[chan *entities.DomainEvent]struct{}),
		}
		b.channels[channel] = sub
		go b.receive(channel, pubsub)
	}

	events := make(chan *entities.DomainEvent, b.buffer)
	sub.subscribers[events] = struct{}{}
	count := len(sub.subscribers)
	b.mu.Unlock()

	log.Info().Str("channel", channel).Int("subscribers", count).Msg("subscribed to channel")

	go func() {
		select {
		case <-ctx.Done():
		case <-b.ctx.Done():
		}
		b.removeSubscriber(channel, events)
	}()

	return events, nil
}

func (b *RedisEventBus) receive(channel string, pubsub *redis.PubSub) {
	defer func() {
		if err := b.closeSubscription(channel, pubsub); err != nil {
			log.Warn().Err(err).Str("channel", channel).Msg("failed to close channel")
		}
	}()

	messages := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event entities.DomainEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn().Err(err).Str("channel", channel).Msg("dropping malformed event")
				continue
			}
			b.broadcast(channel, &event)
		}
	}
}

func (b *RedisEventBus) broadcast(channel string, event *entities.DomainEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sub, ok := b.channels[channel]
	if !ok {
		return
	}
	for subscriber := range sub.subscribers {
		select {
		case subscriber <- event:
		default:
			log.Warn().
				Str("channel", channel).
				Str("event_id", event.ID).
				Msg("subscriber buffer full, skipping event")
		}
	}
}

func (b *RedisEventBus) removeSubscriber(channel string, events chan *entities.DomainEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.channels[channel]
	if !ok {
		return
	}
	if _, ok := sub.subscribers[events]; !ok {
		return
	}

	delete(sub.subscribers, events)
	close(events)

	if len(sub.subscribers) == 0 {
		_ = sub.pubsub.Close()
		delete(b.channels, channel)
		log.Debug().Str("channel", channel).Msg("closed subscription")
	}
}

func (b *RedisEventBus) closeChannel(channel string) error {
	return b.closeSubscription(channel, nil)
}

// closeSubscription closes channel's subscribers. A non-nil owner limits this
// to the subscription that owner backs; a newer one for the same channel is
// left alone.
func (b *RedisEventBus) closeSubscription(channel string, owner *redis.PubSub) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.channels[channel]
	if !ok {
		return nil
	}
	if owner != nil && sub.pubsub != owner {
		return nil
	}
	for subscriber := range sub.subscribers {
		close(subscriber)
	}
	delete(b.channels, channel)

	if err := sub.pubsub.Close(); err != nil {
		return fmt.Errorf("failed to close subscription %s: %w", channel, err)
	}
	log.Debug().Str("channel", channel).Msg("closed subscription")
	return nil
}

// Unsubscribe drops every local subscriber of channel
func (b *RedisEventBus) Unsubscribe(ctx context.Context, channel string) error {
	if err := b.closeChannel(channel); err != nil {
		return err
	}
	log.Info().Str("channel", channel).Msg("unsubscribed from channel")
	return nil
}

// Close closes the event bus and all subscriptions
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.RLock()
	channels := make([]string, 0, len(b.channels))
	for channel := range b.channels {
		channels = append(channels, channel)
	}
	b.mu.RUnlock()

	var errs []error
	for _, channel := range channels {
		if err := b.closeChannel(channel); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing event bus: %w", errors.Join(errs...))
	}

	log.Info().Msg("event bus closed")
	return nil
}
