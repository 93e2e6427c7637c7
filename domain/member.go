//go:generate go run go.uber.org/mock/mockgen -source=member.go -destination=../mocks/mock_member.go -package=mocks
package domain

// Member is the outbound side of one connected participant as seen by a Room.
// The Room never owns a Member: it only keeps a reference between Join and Leave.
type Member interface {
	Username() string
	// Send writes one line to the participant.
	// A non-nil error means the peer is gone and the member can be pruned.
	Send(line string) error
}

// Recorder receives every message appended to a room history, in history order.
// It is called while the room lock is held and must not block.
type Recorder interface {
	Record(message Message)
}
