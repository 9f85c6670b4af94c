package runtime

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/repositories"
	"chat-relay/sink"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type scenario struct {
	coordinator *Coordinator
	registry    *Registry
	messages    repositories.MessageRepository
	chat        domain.Chat
}

// newScenario wires the coordinator on a real badger store with alice, bob and clara.
func newScenario(t *testing.T) scenario {
	t.Helper()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	messages := repositories.NewMessageRepository(db, log)
	chats := repositories.NewChatRepository(db, log)
	users := repositories.NewUserRepository(db, log)
	for _, name := range []string{"alice", "bob", "clara"} {
		req.NoError(users.SaveUser(domain.User{ID: name, Name: name, CreatedAt: time.Now().UTC()}))
	}
	chat := domain.NewChat("team", "alice", "bob", "clara")
	req.NoError(chats.SaveChat(chat))

	registry := NewRegistry(log)
	t.Cleanup(registry.Close)
	return scenario{
		coordinator: NewCoordinator(log, messages, chats, users, registry, 4096),
		registry:    registry,
		messages:    messages,
		chat:        chat,
	}
}

// online opens a connection for the user and joins the scenario chat.
func (s scenario) online(userID string) *sink.ConnectionSink {
	conn := sink.NewConnectionSink(32)
	s.registry.Subscribe(conn, userID)
	s.registry.JoinChat(conn, s.chat.ID)
	return conn
}

func drain(conn *sink.ConnectionSink) []event.Event {
	var events []event.Event
	for {
		select {
		case e := <-conn.Events():
			events = append(events, e)
		default:
			return events
		}
	}
}

func TestScenario_Online_Delivery(t *testing.T) {
	req := require.New(t)
	s := newScenario(t)
	ctx := context.Background()

	// Given alice and bob view the chat, clara is offline
	alice := s.online("alice")
	bob := s.online("bob")

	// When alice sends a message
	view, err := s.coordinator.CreateMessage(ctx, domain.SendMessageCommand{
		SenderID: "alice", ChatID: s.chat.ID.String(), Content: "hi team",
	})
	req.NoError(err)

	// Then the message is delivered to bob only
	req.Equal(domain.UserSet{"bob"}, view.DeliveredTo)
	req.Empty(view.ReadBy)
	req.Equal(domain.StatusDelivered, view.SenderStatus(s.chat.Participants))

	// And bob got a received event carrying the full message
	bobEvents := drain(bob)
	req.Len(bobEvents, 1)
	req.Equal(event.ReceivedType, bobEvents[0].Type)
	req.Equal(view.ID, bobEvents[0].Payload.(event.Received).Message.ID)

	// And alice got the received event on the chat channel plus her delivered ack
	aliceEvents := drain(alice)
	req.Len(aliceEvents, 2)
	req.Equal(event.ReceivedType, aliceEvents[0].Type)
	req.Equal(event.DeliveredType, aliceEvents[1].Type)
	delivered := aliceEvents[1].Payload.(event.Delivered)
	req.Equal([]uuid.UUID{view.ID}, delivered.MessageIDs)
	req.Equal([]string{"bob"}, delivered.RecipientIDs)

	// And the stored message records bob
	stored, err := s.messages.Get(view.ID)
	req.NoError(err)
	req.Equal(domain.UserSet{"bob"}, stored.DeliveredTo)
}

func TestScenario_Offline_Send(t *testing.T) {
	req := require.New(t)
	s := newScenario(t)
	ctx := context.Background()

	// Given only alice is online
	alice := s.online("alice")

	// When alice sends
	view, err := s.coordinator.CreateMessage(ctx, domain.SendMessageCommand{
		SenderID: "alice", ChatID: s.chat.ID.String(), Content: "anyone?",
	})

	// Then the message stays sent and nothing is pushed
	req.NoError(err)
	req.Empty(view.DeliveredTo)
	req.Equal(domain.StatusSent, view.SenderStatus(s.chat.Participants))
	req.Empty(drain(alice))

	// When bob fetches the history later, the status does not change
	history, err := s.coordinator.FetchHistory(ctx, domain.FetchHistoryCommand{ChatID: s.chat.ID.String()})
	req.NoError(err)
	req.Len(history.Messages, 1)
	req.Empty(history.Messages[0].DeliveredTo)
	req.Equal("alice", history.Messages[0].Sender.Name)
}

func TestScenario_MarkRead_Emits_Single_Seen_Event(t *testing.T) {
	req := require.New(t)
	s := newScenario(t)
	ctx := context.Background()
	alice := s.online("alice")

	// Given alice sent three messages while everyone was offline
	var ids []uuid.UUID
	for _, content := range []string{"one", "two", "three"} {
		view, err := s.coordinator.CreateMessage(ctx, domain.SendMessageCommand{
			SenderID: "alice", ChatID: s.chat.ID.String(), Content: content,
		})
		req.NoError(err)
		ids = append(ids, view.ID)
	}

	// When bob opens the chat and marks it read
	bob := s.online("bob")
	receipt, err := s.coordinator.MarkRead(ctx, domain.MarkReadCommand{ReaderID: "bob", ChatID: s.chat.ID.String()})

	// Then the three messages transition at once
	req.NoError(err)
	req.ElementsMatch(ids, receipt.MessageIDs)

	// And exactly one seen event reaches the chat
	for _, conn := range []*sink.ConnectionSink{alice, bob} {
		events := drain(conn)
		req.Len(events, 1)
		req.Equal(event.SeenType, events[0].Type)
		seen := events[0].Payload.(event.Seen)
		req.Equal("bob", seen.ReaderID)
		req.ElementsMatch(ids, seen.MessageIDs)
	}

	// And the sender sees delivered until clara reads too
	history, err := s.coordinator.FetchHistory(ctx, domain.FetchHistoryCommand{ChatID: s.chat.ID.String()})
	req.NoError(err)
	for _, m := range history.Messages {
		req.Equal(domain.UserSet{"bob"}, m.ReadBy)
		req.Equal(domain.UserSet{"bob"}, m.DeliveredTo)
		req.Equal(domain.StatusDelivered, m.SenderStatus(s.chat.Participants))
		req.Equal(domain.StatusSeen, m.RecipientStatus("bob"))
	}

	_, err = s.coordinator.MarkRead(ctx, domain.MarkReadCommand{ReaderID: "clara", ChatID: s.chat.ID.String()})
	req.NoError(err)
	history, err = s.coordinator.FetchHistory(ctx, domain.FetchHistoryCommand{ChatID: s.chat.ID.String()})
	req.NoError(err)
	req.Equal(domain.StatusSeen, history.Messages[0].SenderStatus(s.chat.Participants))

	// And the idempotent replay changes nothing
	receipt, err = s.coordinator.MarkRead(ctx, domain.MarkReadCommand{ReaderID: "bob", ChatID: s.chat.ID.String()})
	req.NoError(err)
	req.Zero(receipt.Count())
}

func TestScenario_Concurrent_MarkRead_From_Two_Tabs(t *testing.T) {
	req := require.New(t)
	s := newScenario(t)
	ctx := context.Background()
	watcher := s.online("alice")

	for i := 0; i < 10; i++ {
		_, err := s.coordinator.CreateMessage(ctx, domain.SendMessageCommand{
			SenderID: "alice", ChatID: s.chat.ID.String(), Content: "ping",
		})
		req.NoError(err)
	}

	// When two tabs of bob mark the chat read at the same time
	var wg sync.WaitGroup
	counts := make([]int, 2)
	errs := make([]error, 2)
	for i := range counts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			receipt, err := s.coordinator.MarkRead(ctx, domain.MarkReadCommand{ReaderID: "bob", ChatID: s.chat.ID.String()})
			counts[i], errs[i] = receipt.Count(), err
		}()
	}
	wg.Wait()
	req.NoError(errs[0])
	req.NoError(errs[1])

	// Then every message moved once, and the seen events cover each id once
	req.Equal(10, counts[0]+counts[1])
	seenIDs := make(map[uuid.UUID]int)
	for _, e := range drain(watcher) {
		req.Equal(event.SeenType, e.Type)
		for _, id := range e.Payload.(event.Seen).MessageIDs {
			seenIDs[id]++
		}
	}
	req.Len(seenIDs, 10)
	for _, n := range seenIDs {
		req.Equal(1, n)
	}
}

func TestScenario_Status_Is_Monotonic_Under_Concurrent_Updates(t *testing.T) {
	req := require.New(t)
	s := newScenario(t)
	ctx := context.Background()
	s.online("bob")

	view, err := s.coordinator.CreateMessage(ctx, domain.SendMessageCommand{
		SenderID: "alice", ChatID: s.chat.ID.String(), Content: "race",
	})
	req.NoError(err)

	// When reads and explicit delivery acks run concurrently
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.coordinator.MarkRead(ctx, domain.MarkReadCommand{ReaderID: "clara", ChatID: s.chat.ID.String()})
		}()
		go func() {
			defer wg.Done()
			_, _ = s.coordinator.MarkDelivered(ctx, domain.MarkDeliveredCommand{RecipientID: "clara", ChatID: s.chat.ID.String()})
		}()
	}
	wg.Wait()

	// Then clara ends up seen, bob is still delivered and the sender never appears
	stored, err := s.messages.Get(view.ID)
	req.NoError(err)
	req.Equal(domain.UserSet{"bob", "clara"}, stored.DeliveredTo)
	req.Equal(domain.UserSet{"clara"}, stored.ReadBy)
	req.False(stored.DeliveredTo.Contains("alice"))
	req.Equal(domain.StatusSeen, stored.RecipientStatus("clara"))
	req.Equal(domain.StatusDelivered, stored.RecipientStatus("bob"))
}

func TestScenario_MarkDelivered_Acks_Each_Sender(t *testing.T) {
	req := require.New(t)
	s := newScenario(t)
	ctx := context.Background()

	// Given alice and bob both wrote while clara was offline
	for _, sender := range []string{"alice", "bob"} {
		_, err := s.coordinator.CreateMessage(ctx, domain.SendMessageCommand{
			SenderID: sender, ChatID: s.chat.ID.String(), Content: "hello from " + sender,
		})
		req.NoError(err)
	}
	alice := sink.NewConnectionSink(8)
	s.registry.Subscribe(alice, "alice")
	bob := sink.NewConnectionSink(8)
	s.registry.Subscribe(bob, "bob")

	// When clara acknowledges delivery explicitly
	receipt, err := s.coordinator.MarkDelivered(ctx, domain.MarkDeliveredCommand{RecipientID: "clara", ChatID: s.chat.ID.String()})

	// Then each sender gets a delivered ack for their own message
	req.NoError(err)
	req.Equal(2, receipt.Count())
	for _, conn := range []*sink.ConnectionSink{alice, bob} {
		events := drain(conn)
		req.Len(events, 1)
		req.Equal(event.DeliveredType, events[0].Type)
		req.Equal([]string{"clara"}, events[0].Payload.(event.Delivered).RecipientIDs)
	}
}

func TestScenario_Typing_Reaches_Others_Only(t *testing.T) {
	req := require.New(t)
	s := newScenario(t)
	alice := s.online("alice")
	bob := s.online("bob")

	err := s.coordinator.Typing(context.Background(), domain.TypingCommand{
		UserID: "alice", ConnectionID: alice.ID(), ChatID: s.chat.ID.String(), Typing: true,
	})

	req.NoError(err)
	req.Empty(drain(alice))
	events := drain(bob)
	req.Len(events, 1)
	req.Equal(event.TypingType, events[0].Type)
	req.Equal("alice", events[0].Payload.(event.Typing).UserID)
}
