package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	stdErrors "errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const publishLockStripes = 64

type Set map[string]struct{}

type session struct {
	conn     contract.Connection
	userID   string
	channels map[event.Channel]struct{}
}

// Registry maps push channels to the connections joined on them.
// A user channel holds every connection of that user, a chat channel every
// connection currently viewing the chat. Entries live as long as the connection.
type Registry struct {
	mu       sync.RWMutex
	log      *slog.Logger
	closed   bool
	sessions map[string]*session     // map connection -> session
	channels map[event.Channel]Set   // map channel to connections
	publish  [publishLockStripes]sync.Mutex
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:      log,
		sessions: make(map[string]*session),
		channels: make(map[event.Channel]Set),
	}
}

// Subscribe registers the connection on the user's personal channel.
// Subscribing the same connection for another user rebinds it.
func (r *Registry) Subscribe(conn contract.Connection, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	s := r.sessionFor(conn)
	if s.userID == userID {
		return
	}
	if s.userID != "" {
		r.leave(s, event.UserChannel(s.userID))
	}
	s.userID = userID
	r.join(s, event.UserChannel(userID))
}

// JoinChat registers the connection on a chat channel.
func (r *Registry) JoinChat(conn contract.Connection, chatID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.join(r.sessionFor(conn), event.ChatChannel(chatID))
}

func (r *Registry) LeaveChat(conn contract.Connection, chatID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[conn.ID()]; ok {
		r.leave(s, event.ChatChannel(chatID))
	}
}

// Disconnect removes the connection from every channel it joined.
func (r *Registry) Disconnect(conn contract.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[conn.ID()]
	if !ok {
		return
	}
	for channel := range s.channels {
		r.leave(s, channel)
	}
	delete(r.sessions, conn.ID())
}

// Connection returns a registered connection and the user it belongs to.
func (r *Registry) Connection(connectionID string) (contract.Connection, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[connectionID]
	if !ok {
		return nil, "", false
	}
	return s.conn, s.userID, true
}

// ReachableUsers lists users with at least one live connection on the chat channel.
func (r *Registry) ReachableUsers(chatID uuid.UUID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var users []string
	for connectionID := range r.channels[event.ChatChannel(chatID)] {
		s := r.sessions[connectionID]
		if s == nil || s.userID == "" || s.conn.Closed() {
			continue
		}
		users = append(users, s.userID)
	}
	users = lo.Uniq(users)
	slices.Sort(users)
	return users
}

// Broadcast pushes the event to every connection joined on the channel.
// Best effort: nothing is retried and a slow connection never blocks the others.
// Within one channel, every connection observes events in publish order.
func (r *Registry) Broadcast(ctx context.Context, channel event.Channel, e event.Event) error {
	return r.BroadcastExcept(ctx, channel, e, "")
}

// BroadcastExcept is Broadcast without the connection that originated the event.
func (r *Registry) BroadcastExcept(ctx context.Context, channel event.Channel, e event.Event, connectionID string) error {
	lock := r.publishLock(channel)
	lock.Lock()
	defer lock.Unlock()

	sinks, err := r.sinksFor(channel, connectionID)
	if err != nil {
		return err
	}
	var errs []error
	for _, sink := range sinks {
		if err := sink.Consume(ctx, e); err != nil {
			r.log.Debug("Push event dropped",
				"channel", channel,
				"connection_id", sink.ID(),
				"type", e.Type,
				"error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", errors.ErrPushUnavailable, stdErrors.Join(errs...))
	}
	return nil
}

// Reap disconnects connections whose transport is already gone.
func (r *Registry) Reap() int {
	r.mu.RLock()
	stale := lo.Filter(lo.Values(r.sessions), func(s *session, _ int) bool {
		return s.conn.Closed()
	})
	r.mu.RUnlock()

	for _, s := range stale {
		r.Disconnect(s.conn)
	}
	return len(stale)
}

func (r *Registry) Stats() domain.PresenceStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := lo.Uniq(lo.FilterMap(lo.Values(r.sessions), func(s *session, _ int) (string, bool) {
		return s.userID, s.userID != ""
	}))
	return domain.PresenceStats{
		Connections: len(r.sessions),
		Users:       len(users),
		Channels:    len(r.channels),
	}
}

// Close drops every entry. Later broadcasts fail with ErrPushUnavailable.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.sessions = make(map[string]*session)
	r.channels = make(map[event.Channel]Set)
}

func (r *Registry) sinksFor(channel event.Channel, exceptID string) ([]contract.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("%w: registry closed", errors.ErrPushUnavailable)
	}
	members := r.channels[channel]
	sinks := make([]contract.Connection, 0, len(members))
	for connectionID := range members {
		if connectionID == exceptID {
			continue
		}
		if s, ok := r.sessions[connectionID]; ok {
			sinks = append(sinks, s.conn)
		}
	}
	return sinks, nil
}

func (r *Registry) publishLock(channel event.Channel) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(channel))
	return &r.publish[h.Sum32()%publishLockStripes]
}

// sessionFor must be called with the write lock held.
func (r *Registry) sessionFor(conn contract.Connection) *session {
	s, ok := r.sessions[conn.ID()]
	if !ok {
		s = &session{conn: conn, channels: make(map[event.Channel]struct{})}
		r.sessions[conn.ID()] = s
	}
	return s
}

func (r *Registry) join(s *session, channel event.Channel) {
	if _, ok := r.channels[channel]; !ok {
		r.channels[channel] = make(Set)
	}
	r.channels[channel][s.conn.ID()] = struct{}{}
	s.channels[channel] = struct{}{}
}

func (r *Registry) leave(s *session, channel event.Channel) {
	delete(s.channels, channel)
	if members, ok := r.channels[channel]; ok {
		delete(members, s.conn.ID())

		// If no one is left on the channel, remove the entry entirely
		if len(members) == 0 {
			delete(r.channels, channel)
		}
	}
}
