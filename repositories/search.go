package repositories

import (
	"context"

	"github.com/blugelabs/bluge"
)

const defaultSearchLimit = 20

type SearchHit struct {
	ID     string
	Room   string
	Author string
	Line   string
	Score  float64
}

// MessageIndex is an in-memory full-text index over archived messages.
type MessageIndex struct {
	writer *bluge.Writer
}

func NewMessageIndex() (*MessageIndex, error) {
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return nil, err
	}
	return &MessageIndex{writer: writer}, nil
}

func (i *MessageIndex) Index(message DiskMessage) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewKeywordField("room", message.Room).StoreValue()).
		AddField(bluge.NewKeywordField("author", message.Author).StoreValue()).
		AddField(bluge.NewTextField("content", message.Content)).
		AddField(bluge.NewStoredOnlyField("line", []byte(message.Line)))
	return i.writer.Update(doc.ID(), doc)
}

// Search matches query against message contents, optionally restricted to one room.
// An empty query lists the room. A limit <= 0 falls back to defaultSearchLimit.
func (i *MessageIndex) Search(ctx context.Context, room, query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	q := bluge.NewBooleanQuery()
	if query != "" {
		q.AddMust(bluge.NewMatchQuery(query).SetField("content"))
	} else {
		q.AddMust(bluge.NewMatchAllQuery())
	}
	if room != "" {
		q.AddMust(bluge.NewTermQuery(room).SetField("room"))
	}

	matches, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, err
	}

	var hits []SearchHit
	match, err := matches.Next()
	for err == nil && match != nil {
		hit := SearchHit{Score: match.Score}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.ID = string(value)
			case "room":
				hit.Room = string(value)
			case "author":
				hit.Author = string(value)
			case "line":
				hit.Line = string(value)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
		match, err = matches.Next()
	}
	if err != nil {
		return nil, err
	}
	return hits, nil
}

func (i *MessageIndex) Close() error {
	return i.writer.Close()
}
