// Package domain contains core concepts of the chat relay.
// This file defines Message records and their wire rendering.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type MessageKind int

const (
	Chat MessageKind = iota
	Joined
	Left
)

func (k MessageKind) String() string {
	switch k {
	case Joined:
		return "joined"
	case Left:
		return "left"
	default:
		return "chat"
	}
}

// Message is one entry of a room history.
// Seq, Room, ID and CreatedAt are stamped by the room when the message is broadcast.
type Message struct {
	ID        uuid.UUID
	Seq       int
	Room      string
	Author    string
	Content   string
	Kind      MessageKind
	CreatedAt time.Time
}

func NewChatMessage(author, content string) Message {
	return Message{Author: author, Content: content, Kind: Chat}
}

func NewJoinedMessage(author string) Message {
	return Message{Author: author, Kind: Joined}
}

func NewLeftMessage(author string) Message {
	return Message{Author: author, Kind: Left}
}

// Text renders the message as the line sent to every member.
// The trailing period of the departure line is part of the protocol.
func (m Message) Text() string {
	switch m.Kind {
	case Joined:
		return fmt.Sprintf("%s has joined the room", m.Author)
	case Left:
		return fmt.Sprintf("%s has left the room.", m.Author)
	default:
		return fmt.Sprintf("%s: %s", m.Author, m.Content)
	}
}
