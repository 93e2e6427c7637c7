package sink

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/repositories"
	"context"
)

// SearchSink feeds the full-text index with chat lines.
// Join and leave announcements are not indexed.
type SearchSink struct {
	index repositories.IMessageIndex
}

func NewSearchSink(index repositories.IMessageIndex) SearchSink {
	return SearchSink{index: index}
}

func (s SearchSink) Consume(ctx context.Context, e event.DomainEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	evt, ok := e.(event.MessagePosted)
	if !ok || evt.Message.Kind != domain.Chat {
		return nil
	}
	return s.index.Index(toDiskMessage(evt.Message))
}
