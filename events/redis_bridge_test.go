package events

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.pilab.hu/taskboard/domain"
)

func startBridge(t *testing.T, ctx context.Context, addr string) (*RedisBridge, *Hub) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	hub := NewHub()
	b := NewRedisBridge(client, hub, "", nil)
	go func() { _ = b.Run(ctx) }()

	select {
	case <-b.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not subscribe")
	}
	return b, hub
}

func TestRedisBridge_RelaysBetweenInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, hubA := startBridge(t, ctx, mr.Addr())
	_, hubB := startBridge(t, ctx, mr.Addr())

	subA := hubA.Subscribe("p1", "alice")
	subB := hubB.Subscribe("p1", "bob")

	a.Publish(ctx, domain.TaskEvent{Type: domain.EventUpdated, TaskID: "t9", ProjectID: "p1", Actor: "bot (agent)"})

	select {
	case ev := <-subB.Events():
		assert.Equal(t, "t9", ev.TaskID)
		assert.Equal(t, "bot (agent)", ev.Actor)
	case <-time.After(2 * time.Second):
		t.Fatal("remote instance did not receive the event")
	}

	// Local delivery happens once, not again through redis.
	select {
	case ev := <-subA.Events():
		assert.Equal(t, "t9", ev.TaskID)
	case <-time.After(time.Second):
		t.Fatal("local subscriber did not receive the event")
	}
	select {
	case ev := <-subA.Events():
		t.Fatalf("event echoed back to origin: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRedisBridge_PublishSurvivesRedisOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()

	hub := NewHub()
	sub := hub.Subscribe("p1", "alice")
	b := NewRedisBridge(client, hub, "", nil)

	mr.Close()
	b.Publish(context.Background(), domain.TaskEvent{TaskID: "t1", ProjectID: "p1"})

	require.Len(t, sub.Events(), 1)
}

func TestRedisBridge_RunTwiceIsRejected(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, _ := startBridge(t, ctx, mr.Addr())

	assert.NotPanics(t, func() {
		assert.ErrorIs(t, b.Run(ctx), errBridgeRunning)
	})
}

func TestRedisBridge_PublishIsBounded(t *testing.T) {
	// A server that accepts connections and never answers.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	conns := make(chan net.Conn, 8)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				close(conns)
				return
			}
			conns <- conn
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		for conn := range conns {
			_ = conn.Close()
		}
	})

	client := redis.NewClient(&redis.Options{Addr: ln.Addr().String(), MaxRetries: -1, ContextTimeoutEnabled: true})
	defer client.Close()

	hub := NewHub()
	sub := hub.Subscribe("p1", "alice")
	b := NewRedisBridge(client, hub, "", nil)
	b.publishTimeout = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	b.Publish(ctx, domain.TaskEvent{TaskID: "t1", ProjectID: "p1"})
	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, sub.Events(), 1)
}
