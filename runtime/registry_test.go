package runtime

import (
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/sink"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	return NewRegistry(logs.GetLoggerFromLevel(slog.LevelDebug))
}

func TestRegistry_Subscribe_And_Join_Makes_User_Reachable(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	chatID := uuid.New()
	conn := sink.NewConnectionSink(8)

	// Given no user is connected
	req.Empty(registry.ReachableUsers(chatID))

	// When bob subscribes and joins the chat
	registry.Subscribe(conn, "bob")
	registry.JoinChat(conn, chatID)

	// Then bob is reachable on that chat only
	req.Equal([]string{"bob"}, registry.ReachableUsers(chatID))
	req.Empty(registry.ReachableUsers(uuid.New()))

	c, userID, ok := registry.Connection(conn.ID())
	req.True(ok)
	req.Equal("bob", userID)
	req.Equal(conn.ID(), c.ID())
}

func TestRegistry_Subscribe_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	conn := sink.NewConnectionSink(8)

	registry.Subscribe(conn, "bob")
	registry.Subscribe(conn, "bob")

	stats := registry.Stats()
	req.Equal(1, stats.Connections)
	req.Equal(1, stats.Users)
	req.Equal(1, stats.Channels)
}

func TestRegistry_Subscribe_Rebinds_Connection_To_New_User(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	conn := sink.NewConnectionSink(8)
	ctx := context.Background()

	// Given a connection bound to bob
	registry.Subscribe(conn, "bob")

	// When it is subscribed for clara
	registry.Subscribe(conn, "clara")

	// Then events for bob no longer reach it
	req.NoError(registry.Broadcast(ctx, event.UserChannel("bob"), event.NewTyping(uuid.New(), "x", true)))
	req.Empty(conn.Events())
	req.NoError(registry.Broadcast(ctx, event.UserChannel("clara"), event.NewTyping(uuid.New(), "x", true)))
	req.Len(conn.Events(), 1)
}

func TestRegistry_Multiple_Devices_Per_User(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	chatID := uuid.New()
	phone := sink.NewConnectionSink(8)
	laptop := sink.NewConnectionSink(8)

	registry.Subscribe(phone, "bob")
	registry.Subscribe(laptop, "bob")
	registry.JoinChat(phone, chatID)
	registry.JoinChat(laptop, chatID)

	// Then bob is reported once
	req.Equal([]string{"bob"}, registry.ReachableUsers(chatID))

	// When the phone leaves the chat, bob is still reachable through the laptop
	registry.LeaveChat(phone, chatID)
	req.Equal([]string{"bob"}, registry.ReachableUsers(chatID))

	// When the laptop disconnects, bob is no longer reachable
	registry.Disconnect(laptop)
	req.Empty(registry.ReachableUsers(chatID))
}

func TestRegistry_Disconnect_Removes_Every_Channel_And_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	conn := sink.NewConnectionSink(8)

	registry.Subscribe(conn, "bob")
	registry.JoinChat(conn, uuid.New())
	registry.JoinChat(conn, uuid.New())
	req.Equal(3, registry.Stats().Channels)

	// When the connection disconnects twice
	registry.Disconnect(conn)
	registry.Disconnect(conn)

	// Then no empty channel is left behind
	stats := registry.Stats()
	req.Zero(stats.Connections)
	req.Zero(stats.Channels)
	_, _, ok := registry.Connection(conn.ID())
	req.False(ok)
}

func TestRegistry_LeaveChat_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	chatID := uuid.New()
	conn := sink.NewConnectionSink(8)

	registry.LeaveChat(conn, chatID)
	registry.Subscribe(conn, "bob")
	registry.JoinChat(conn, chatID)
	registry.LeaveChat(conn, chatID)
	registry.LeaveChat(conn, chatID)

	req.Empty(registry.ReachableUsers(chatID))
	req.Equal(1, registry.Stats().Channels)
}

func TestRegistry_Broadcast_Empty_Channel(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()

	// When broadcasting to a channel nobody joined
	done := make(chan error, 1)
	go func() {
		done <- registry.Broadcast(context.Background(), event.ChatChannel(uuid.New()), event.NewTyping(uuid.New(), "bob", true))
	}()

	// Then it neither errors nor blocks
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("broadcast to an empty channel blocked")
	}
}

func TestRegistry_Broadcast_Slow_Connection_Does_Not_Block_Others(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	chatID := uuid.New()
	slow := sink.NewConnectionSink(1)
	fast := sink.NewConnectionSink(8)
	ctx := context.Background()

	registry.Subscribe(slow, "bob")
	registry.Subscribe(fast, "clara")
	registry.JoinChat(slow, chatID)
	registry.JoinChat(fast, chatID)

	// Given the slow connection buffer is full
	req.NoError(registry.Broadcast(ctx, event.ChatChannel(chatID), event.NewTyping(chatID, "x", true)))

	// When another event is published
	err := registry.Broadcast(ctx, event.ChatChannel(chatID), event.NewTyping(chatID, "x", false))

	// Then the fast connection still got both events
	req.ErrorIs(err, errors.ErrPushUnavailable)
	req.ErrorIs(err, errors.ErrSlowConsumer)
	req.Len(fast.Events(), 2)
	req.Len(slow.Events(), 1)
}

func TestRegistry_BroadcastExcept_Skips_Origin(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	chatID := uuid.New()
	origin := sink.NewConnectionSink(8)
	other := sink.NewConnectionSink(8)

	registry.Subscribe(origin, "bob")
	registry.Subscribe(other, "clara")
	registry.JoinChat(origin, chatID)
	registry.JoinChat(other, chatID)

	req.NoError(registry.BroadcastExcept(context.Background(), event.ChatChannel(chatID),
		event.NewTyping(chatID, "bob", true), origin.ID()))

	req.Empty(origin.Events())
	req.Len(other.Events(), 1)
}

func TestRegistry_Publish_Order_Is_Consistent_Within_A_Channel(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	chatID := uuid.New()
	channel := event.ChatChannel(chatID)
	const publishers, perPublisher = 4, 50
	a := sink.NewConnectionSink(publishers * perPublisher)
	b := sink.NewConnectionSink(publishers * perPublisher)

	registry.Subscribe(a, "bob")
	registry.Subscribe(b, "clara")
	registry.JoinChat(a, chatID)
	registry.JoinChat(b, chatID)

	// When several goroutines publish concurrently on the same channel
	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				_ = registry.Broadcast(context.Background(), channel, event.NewSeen(chatID, "x", []uuid.UUID{uuid.New()}))
			}
		}()
	}
	wg.Wait()

	// Then both connections observed the exact same sequence
	req.Len(a.Events(), publishers*perPublisher)
	for i := 0; i < publishers*perPublisher; i++ {
		ea, eb := <-a.Events(), <-b.Events()
		req.Equal(ea.Payload.(event.Seen).MessageIDs, eb.Payload.(event.Seen).MessageIDs)
	}
}

func TestRegistry_Reap_Removes_Closed_Connections(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	chatID := uuid.New()
	conn := sink.NewConnectionSink(8)
	registry.Subscribe(conn, "bob")
	registry.JoinChat(conn, chatID)

	// When the transport is gone without calling Disconnect
	conn.Close()

	// Then bob is no longer reachable, and the reaper cleans the entry
	req.Empty(registry.ReachableUsers(chatID))
	req.Equal(1, registry.Reap())
	req.Zero(registry.Stats().Connections)
}

func TestRegistry_Close(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	conn := sink.NewConnectionSink(8)
	registry.Subscribe(conn, "bob")

	registry.Close()

	req.Zero(registry.Stats().Connections)
	err := registry.Broadcast(context.Background(), event.UserChannel("bob"), event.NewTyping(uuid.New(), "x", true))
	req.ErrorIs(err, errors.ErrPushUnavailable)

	// Then the registry ignores new subscriptions
	registry.Subscribe(conn, "bob")
	req.Zero(registry.Stats().Connections)
}

func TestRegistry_Concurrent_Join_And_Leave(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	chatID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := sink.NewConnectionSink(1)
			registry.Subscribe(conn, uuid.NewString())
			registry.JoinChat(conn, chatID)
			_ = registry.ReachableUsers(chatID)
			registry.Disconnect(conn)
		}()
	}
	wg.Wait()

	req.Zero(registry.Stats().Connections)
	req.Zero(registry.Stats().Channels)
}
