// Package runtime holds the shared state of the relay: the room registry and the
// event bus feeding the archive pipeline. It contains no protocol rules.
package runtime

import (
	"chat-relay/domain"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
)

type Stats struct {
	Rooms    int
	Members  int
	Messages int
}

// Registry maps room names to rooms.
// Its lock only guards the map: it is always released before a room is used,
// so a slow broadcast in one room never holds back a lookup for another one.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*domain.Room
	recorder domain.Recorder
}

// NewRegistry builds an empty registry. Every room it creates reports its
// history to the recorder, which may be nil.
func NewRegistry(recorder domain.Recorder) *Registry {
	return &Registry{
		rooms:    make(map[string]*domain.Room),
		recorder: recorder,
	}
}

// GetOrCreate returns the room registered under name, creating it on first use.
// Concurrent first callers for the same name all get the same room.
func (r *Registry) GetOrCreate(name string) *domain.Room {
	r.mu.RLock()
	room, ok := r.rooms[name]
	r.mu.RUnlock()
	if ok {
		return room
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if room, ok = r.rooms[name]; ok {
		return room
	}
	room = domain.NewRoom(name, r.recorder)
	r.rooms[name] = room
	return room
}

// JoinRoom resolves the room and joins it. A room reaped between the lookup
// and the join is never reused: the lookup is retried and yields a fresh room.
func (r *Registry) JoinRoom(name string, member domain.Member) *domain.Room {
	for {
		room := r.GetOrCreate(name)
		// Join only fails with ErrRoomClosed
		if err := room.Join(member); err == nil {
			return room
		}
	}
}

// Rooms returns the registered rooms sorted by name.
func (r *Registry) Rooms() []*domain.Room {
	r.mu.RLock()
	rooms := lo.Values(r.rooms)
	r.mu.RUnlock()

	slices.SortFunc(rooms, func(a, b *domain.Room) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return rooms
}

// Reap drops every room without members and returns how many were dropped.
// Lock order is registry then room, never the other way around. A room busy
// broadcasting is skipped until the next call, so the registry lock is never
// held while waiting on a room.
func (r *Registry) Reap() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	reaped := 0
	for name, room := range r.rooms {
		if room.Close() {
			delete(r.rooms, name)
			reaped++
		}
	}
	return reaped
}

func (r *Registry) Stats() Stats {
	rooms := r.Rooms()
	return Stats{
		Rooms:    len(rooms),
		Members:  lo.SumBy(rooms, func(room *domain.Room) int { return room.Size() }),
		Messages: lo.SumBy(rooms, func(room *domain.Room) int { return room.Len() }),
	}
}
