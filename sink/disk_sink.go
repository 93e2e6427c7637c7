package sink

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/repositories"
	"context"
	"fmt"
	"log/slog"

	"github.com/abadojack/whatlanggo"
)

// DiskSink archives every posted message in the message repository.
type DiskSink struct {
	repository repositories.IMessageRepository
	log        *slog.Logger
}

func NewDiskSink(repository repositories.IMessageRepository, log *slog.Logger) DiskSink {
	return DiskSink{repository: repository, log: log}
}

func (d DiskSink) Consume(ctx context.Context, e event.DomainEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch evt := e.(type) {
	case event.MessagePosted:
		return d.repository.StoreMessage(toDiskMessage(evt.Message))
	default:
		d.log.Debug(fmt.Sprintf("Not implemented event : %v", evt))
		return nil
	}
}

// toDiskMessage maps a history entry to its archived form.
// Chat content is tagged with its language when the detection is reliable.
func toDiskMessage(message domain.Message) repositories.DiskMessage {
	lang := ""
	if message.Kind == domain.Chat {
		if info := whatlanggo.Detect(message.Content); info.IsReliable() {
			lang = info.Lang.Iso6391()
		}
	}
	return repositories.DiskMessage{
		ID:      message.ID,
		Seq:     message.Seq,
		Room:    message.Room,
		Author:  message.Author,
		Content: message.Content,
		Kind:    message.Kind.String(),
		Line:    message.Text(),
		Lang:    lang,
		At:      message.CreatedAt,
	}
}
