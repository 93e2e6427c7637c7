//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

type IMessageRepository interface {
	StoreMessage(message DiskMessage) error
	GetMessages(room string, limit int) ([]DiskMessage, error)
}

type IMessageIndex interface {
	Index(message DiskMessage) error
	Search(ctx context.Context, room, query string, limit int) ([]SearchHit, error)
	Close() error
}

// DiskMessage is the archived form of one room history entry.
type DiskMessage struct {
	ID      uuid.UUID
	Seq     int
	Room    string
	Author  string
	Content string
	Kind    string
	Line    string
	Lang    string
	At      time.Time
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// OpenInMemory opens a badger instance that lives as long as the process.
func OpenInMemory() (*badger.DB, error) {
	return badger.Open(badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.WARNING))
}

// StoreMessage persists a message in BadgerDB.
// The key is "msg:{hex room}:{timestamp_padded}:{seq_padded}":
//  1. the room name is hex encoded so that no name is a prefix of another one's key space;
//  2. 19-digit zero padding keeps lexicographical order chronological;
//  3. the sequence number breaks ties between messages stamped in the same nanosecond.
func (m MessageRepository) StoreMessage(message DiskMessage) error {
	key := fmt.Sprintf("%s%019d:%019d", roomPrefix(message.Room), message.At.UnixNano(), message.Seq)
	value, err := structpb.NewStruct(map[string]any{
		"id":      message.ID.String(),
		"seq":     message.Seq,
		"room":    message.Room,
		"author":  message.Author,
		"content": message.Content,
		"kind":    message.Kind,
		"line":    message.Line,
		"lang":    message.Lang,
		"at":      message.At.Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	bytes, err := proto.Marshal(value)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// GetMessages returns the latest messages of a room in chronological order.
// A limit <= 0 returns the whole archive of the room.
func (m MessageRepository) GetMessages(room string, limit int) ([]DiskMessage, error) {
	var byteMessages [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(roomPrefix(room))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(append(prefix, 0xff)); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(byteMessages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", limit))
				break
			}
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			byteMessages = append(byteMessages, value)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	diskMessages := make([]DiskMessage, 0, len(byteMessages))
	for _, b := range byteMessages {
		message, err := decodeMessage(b)
		if err != nil {
			return nil, err
		}
		diskMessages = append(diskMessages, message)
	}
	slices.Reverse(diskMessages)
	return diskMessages, nil
}

func roomPrefix(room string) string {
	return fmt.Sprintf("msg:%s:", hex.EncodeToString([]byte(room)))
}

func decodeMessage(b []byte) (DiskMessage, error) {
	var value structpb.Struct
	if err := proto.Unmarshal(b, &value); err != nil {
		return DiskMessage{}, err
	}
	fields := value.GetFields()
	id, err := uuid.Parse(fields["id"].GetStringValue())
	if err != nil {
		return DiskMessage{}, err
	}
	at, err := time.Parse(time.RFC3339Nano, fields["at"].GetStringValue())
	if err != nil {
		return DiskMessage{}, err
	}
	return DiskMessage{
		ID:      id,
		Seq:     int(fields["seq"].GetNumberValue()),
		Room:    fields["room"].GetStringValue(),
		Author:  fields["author"].GetStringValue(),
		Content: fields["content"].GetStringValue(),
		Kind:    fields["kind"].GetStringValue(),
		Line:    fields["line"].GetStringValue(),
		Lang:    fields["lang"].GetStringValue(),
		At:      at.UTC(),
	}, nil
}
