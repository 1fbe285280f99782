package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.pilab.hu/taskboard/domain"
	"go.pilab.hu/taskboard/log"
)

// DefaultChannel is the Redis pub/sub channel shared by all instances.
const DefaultChannel = "taskboard:events"

// defaultPublishTimeout bounds the Redis round trip a mutation waits for.
const defaultPublishTimeout = 2 * time.Second

var errBridgeRunning = errors.New("redis event bridge is already running")

type envelope struct {
	Origin string           `json:"origin"`
	Event  domain.TaskEvent `json:"event"`
}

// RedisBridge relays task events between instances through Redis pub/sub.
// Local events reach the local hub directly; remote ones arrive through Run.
type RedisBridge struct {
	client  redis.UniversalClient
	hub     *Hub
	channel string
	origin  string
	logger  log.Logger

	publishTimeout time.Duration
	running        atomic.Bool
	ready          chan struct{}
	readyOnce      sync.Once
}

// NewRedisBridge creates a bridge publishing to channel. An empty channel selects DefaultChannel.
func NewRedisBridge(client redis.UniversalClient, hub *Hub, channel string, logger log.Logger) *RedisBridge {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBridge{
		client:  client,
		hub:     hub,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  log.OrNop(logger),

		publishTimeout: defaultPublishTimeout,
		ready:          make(chan struct{}),
	}
}

// Publish delivers event locally and forwards it to other instances.
// Redis failures are logged; local delivery always happens. The forward is
// bounded by publishTimeout and survives cancellation of the caller's request.
// The client needs ContextTimeoutEnabled for the bound to reach the socket.
func (b *RedisBridge) Publish(ctx context.Context, event domain.TaskEvent) {
	b.hub.Publish(ctx, event)

	payload, err := json.Marshal(envelope{Origin: b.origin, Event: event})
	if err != nil {
		b.logger.Error(ctx, "Failed to encode task event", err)
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.publishTimeout)
	defer cancel()
	if err := b.client.Publish(pubCtx, b.channel, payload).Err(); err != nil {
		b.logger.Warn(ctx, "Failed to forward task event to redis", map[string]interface{}{
			"error":      err.Error(),
			"project_id": event.ProjectID,
		})
	}
}

// Ready is closed once Run holds an active subscription.
func (b *RedisBridge) Ready() <-chan struct{} { return b.ready }

// Run relays remote events into the hub until ctx is done. A bridge runs at most once.
func (b *RedisBridge) Run(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return errBridgeRunning
	}

	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}
	b.readyOnce.Do(func() { close(b.ready) })
	b.logger.Info(ctx, "Redis event bridge subscribed", map[string]interface{}{"channel": b.channel})

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn(ctx, "Dropping malformed task event", map[string]interface{}{"error": err.Error()})
				continue
			}
			if env.Origin == b.origin {
				continue
			}
			b.hub.Publish(ctx, env.Event)
		}
	}
}
