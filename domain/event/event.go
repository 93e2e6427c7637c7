package event

import (
	"chat-relay/domain"
)

type DomainEvent interface {
	RoomName() string
}

// MessagePosted is emitted once per history entry, in history order for a room.
type MessagePosted struct {
	Message domain.Message
}

func (m MessagePosted) RoomName() string {
	return m.Message.Room
}
