package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newMessage(senderID string) Message {
	return Message{
		ID:        uuid.New(),
		ChatID:    uuid.New(),
		SenderID:  senderID,
		Content:   "hello",
		CreatedAt: time.Now().UTC(),
	}
}

func TestMessage_Status_Lifecycle_For_Sender_And_Recipients(t *testing.T) {
	req := require.New(t)
	participants := []string{"alice", "bob", "clara"}

	// Given a fresh message from alice
	m := newMessage("alice")
	req.Equal(StatusSent, m.StatusFor("alice", participants))
	req.Equal(StatusSent, m.StatusFor("bob", participants))

	// When bob is reachable
	req.True(m.MarkDelivered("bob"))

	// Then alice sees delivered, bob sees delivered, clara still sent
	req.Equal(StatusDelivered, m.StatusFor("alice", participants))
	req.Equal(StatusDelivered, m.StatusFor("bob", participants))
	req.Equal(StatusSent, m.StatusFor("clara", participants))

	// When bob reads but clara has not
	req.True(m.MarkRead("bob"))
	req.Equal(StatusSeen, m.StatusFor("bob", participants))
	req.Equal(StatusDelivered, m.StatusFor("alice", participants))

	// When clara reads
	req.True(m.MarkRead("clara"))

	// Then the sender sees seen, readBy covers every other participant
	req.Equal(StatusSeen, m.StatusFor("alice", participants))
	req.True(m.DeliveredTo.Contains("clara"))
}

func TestMessage_Sender_Never_In_Status_Sets(t *testing.T) {
	req := require.New(t)
	m := newMessage("alice")

	req.False(m.MarkDelivered("alice"))
	req.False(m.MarkRead("alice"))
	req.True(m.MarkDelivered("alice", "bob"))

	req.False(m.DeliveredTo.Contains("alice"))
	req.False(m.ReadBy.Contains("alice"))
	req.Equal(UserSet{"bob"}, m.DeliveredTo)
}

func TestMessage_MarkRead_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	m := newMessage("alice")

	req.True(m.MarkRead("bob"))
	req.False(m.MarkRead("bob"))
	req.Equal(UserSet{"bob"}, m.ReadBy)
	req.Equal(UserSet{"bob"}, m.DeliveredTo)
}

func TestMessage_Merge_Only_Grows(t *testing.T) {
	req := require.New(t)
	m := newMessage("alice")
	m.MarkRead("bob")

	// Given an older copy of the same message
	older := m
	older.DeliveredTo = nil
	older.ReadBy = nil

	// When merging the older copy
	req.False(m.Merge(older))

	// Then nothing is lost
	req.Equal(UserSet{"bob"}, m.ReadBy)

	// When merging a newer copy
	newer := m
	newer.ReadBy = UserSet{"bob", "clara"}
	req.True(m.Merge(newer))
	req.Equal(UserSet{"bob", "clara"}, m.ReadBy)
	req.Equal(UserSet{"bob", "clara"}, m.DeliveredTo)
}

func TestStatus_Advance_Never_Regresses(t *testing.T) {
	req := require.New(t)
	req.Equal(StatusSeen, StatusSeen.Advance(StatusDelivered))
	req.Equal(StatusDelivered, StatusSent.Advance(StatusDelivered))
	req.Equal(StatusSent, StatusSent.Advance(StatusUnknown))
	req.Equal("seen", StatusSeen.String())
}

func TestUserSet_Add_Keeps_Sorted_Unique(t *testing.T) {
	req := require.New(t)
	set := NewUserSet("clara", "alice", "alice", "")

	next, changed := set.Add("bob", "alice")

	req.True(changed)
	req.Equal(UserSet{"alice", "clara"}, set)
	req.Equal(UserSet{"alice", "bob", "clara"}, next)
	req.True(next.ContainsAll([]string{"alice", "bob"}))
	req.False(next.ContainsAll([]string{"dave"}))
}

func TestChat_Recipients_Excludes_Sender(t *testing.T) {
	req := require.New(t)
	chat := NewChat("team", "bob", "alice", "clara")

	req.Equal([]string{"alice", "bob", "clara"}, chat.Participants)
	req.Equal([]string{"bob", "clara"}, chat.Recipients("alice"))
	req.True(chat.IsParticipant("bob"))
	req.False(chat.IsParticipant("dave"))
}
