package domain

import (
	"sync"
	"time"

	"chat-relay/errors"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Room owns its members and its append-only history behind its own lock.
// Join, Leave and Broadcast are mutually exclusive for one room only:
// two rooms never wait on each other.
type Room struct {
	mu        sync.Mutex
	name      string
	members   []Member
	history   []Message
	recorder  Recorder
	createdAt time.Time
	closed    bool
}

func NewRoom(name string, recorder Recorder) *Room {
	return &Room{
		name:      name,
		recorder:  recorder,
		createdAt: time.Now().UTC(),
	}
}

func (r *Room) Name() string { return r.name }

func (r *Room) CreatedAt() time.Time { return r.createdAt }

// Join adds the member at the end of the fan-out order.
// Joining twice with the same handle is a no-op.
func (r *Room) Join(member Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.ErrRoomClosed
	}
	if lo.Contains(r.members, member) {
		return nil
	}
	r.members = append(r.members, member)
	return nil
}

// Leave removes the member if present. Removing an absent member does nothing.
func (r *Room) Leave(member Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = lo.Without(r.members, member)
}

// Broadcast appends the message to the history and sends it to every member.
// Members whose Send fails are removed once the whole pass is done, so a dead
// peer neither aborts the delivery nor makes the loop skip a live one.
// The returned message carries its sequence number in the history.
func (r *Room) Broadcast(message Message) Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	message.ID = uuid.New()
	message.Seq = len(r.history)
	message.Room = r.name
	message.CreatedAt = time.Now().UTC()
	r.history = append(r.history, message)

	if r.recorder != nil {
		r.recorder.Record(message)
	}

	line := message.Text()
	var gone []Member
	for _, member := range r.members {
		if err := member.Send(line); err != nil {
			gone = append(gone, member)
		}
	}
	if len(gone) > 0 {
		r.members = lo.Without(r.members, gone...)
	}
	return message
}

// Members returns a snapshot of the current members in join order.
func (r *Room) Members() []Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Member(nil), r.members...)
}

// History returns a copy of the whole history.
func (r *Room) History() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.history...)
}

// Len is the number of messages in the history.
func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history)
}

// Size is the number of members.
func (r *Room) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Close marks an empty room as reaped and reports whether it did.
// A room that still has members stays open, and so does a room whose lock is
// held: Close never waits on a broadcast in progress.
func (r *Room) Close() bool {
	if !r.mu.TryLock() {
		return false
	}
	defer r.mu.Unlock()
	if len(r.members) > 0 {
		return false
	}
	r.closed = true
	return true
}
