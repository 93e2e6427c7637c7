package runtime

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"log/slog"
)

// EventBus turns room history appends into MessagePosted events.
// Record never blocks the room: when the buffer is full the event is dropped.
type EventBus struct {
	log    *slog.Logger
	events chan event.DomainEvent
}

func NewEventBus(log *slog.Logger, bufferSize int) *EventBus {
	return &EventBus{log: log, events: make(chan event.DomainEvent, bufferSize)}
}

func (b *EventBus) Record(message domain.Message) {
	select {
	case b.events <- event.MessagePosted{Message: message}:
	default:
		b.log.Warn("Event channel full, dropping archived message",
			"room", message.Room, "seq", message.Seq)
	}
}

func (b *EventBus) Events() <-chan event.DomainEvent {
	return b.events
}
