package domain_test

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// inbox is a member that keeps every line it receives.
type inbox struct {
	mu    sync.Mutex
	name  string
	lines []string
}

func (i *inbox) Username() string { return i.name }

func (i *inbox) Send(line string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.lines = append(i.lines, line)
	return nil
}

func (i *inbox) Lines() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.lines...)
}

func TestRoom_Broadcast_Reaches_Every_Member_In_Join_Order(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	room := domain.NewRoom("lobby", nil)
	alice := mocks.NewMockMember(ctrl)
	bob := mocks.NewMockMember(ctrl)

	// Given two members joined in order
	req.NoError(room.Join(alice))
	req.NoError(room.Join(bob))

	// Then each of them receives the line, alice first
	gomock.InOrder(
		alice.EXPECT().Send("alice: hi").Return(nil),
		bob.EXPECT().Send("alice: hi").Return(nil),
	)

	// When a chat message is broadcast
	msg := room.Broadcast(domain.NewChatMessage("alice", "hi"))

	// Then it is stamped and stored once
	req.Equal(0, msg.Seq)
	req.Equal("lobby", msg.Room)
	req.NotZero(msg.ID)
	req.False(msg.CreatedAt.IsZero())
	req.Equal([]domain.Message{msg}, room.History())
}

func TestRoom_Broadcast_Without_Members_Only_Appends(t *testing.T) {
	req := require.New(t)
	room := domain.NewRoom("empty", nil)

	// When broadcasting into an empty room
	first := room.Broadcast(domain.NewJoinedMessage("ghost"))
	second := room.Broadcast(domain.NewLeftMessage("ghost"))

	// Then history grows and sequence numbers follow the history index
	req.Equal(2, room.Len())
	req.Equal(0, first.Seq)
	req.Equal(1, second.Seq)
	req.Zero(room.Size())
}

func TestRoom_Broadcast_Prunes_Dead_Members_After_The_Pass(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	room := domain.NewRoom("lobby", nil)
	dead := mocks.NewMockMember(ctrl)
	alive := &inbox{name: "bob"}

	// Given a dead member joined before a live one
	req.NoError(room.Join(dead))
	req.NoError(room.Join(alive))
	dead.EXPECT().Send(gomock.Any()).Return(errors.ErrMemberGone).Times(1)

	// When a message is broadcast
	room.Broadcast(domain.NewChatMessage("bob", "anyone?"))

	// Then the live member still got it and the dead one is gone
	req.Equal([]string{"bob: anyone?"}, alive.Lines())
	req.Equal([]domain.Member{alive}, room.Members())

	// And the next broadcast does not touch the dead member anymore
	room.Broadcast(domain.NewChatMessage("bob", "still here"))
	req.Len(alive.Lines(), 2)
}

func TestRoom_Leave_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	room := domain.NewRoom("lobby", nil)
	alice := &inbox{name: "alice"}
	bob := &inbox{name: "bob"}
	req.NoError(room.Join(alice))
	req.NoError(room.Join(bob))

	// When alice leaves twice
	room.Leave(alice)
	room.Leave(alice)

	// Then only bob is left
	req.Equal([]domain.Member{bob}, room.Members())

	// And leaving a room one never joined does nothing
	room.Leave(&inbox{name: "carol"})
	req.Equal(1, room.Size())
}

func TestRoom_Join_Twice_Keeps_One_Entry(t *testing.T) {
	req := require.New(t)
	room := domain.NewRoom("lobby", nil)
	alice := &inbox{name: "alice"}

	req.NoError(room.Join(alice))
	req.NoError(room.Join(alice))

	room.Broadcast(domain.NewJoinedMessage("alice"))
	req.Equal([]string{"alice has joined the room"}, alice.Lines())
}

func TestRoom_Broadcast_Hands_Message_To_Recorder(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	recorder := mocks.NewMockRecorder(ctrl)
	room := domain.NewRoom("lobby", recorder)

	var recorded domain.Message
	recorder.EXPECT().Record(gomock.Any()).Do(func(m domain.Message) { recorded = m }).Times(1)

	msg := room.Broadcast(domain.NewChatMessage("alice", "archived"))
	req.Equal(msg, recorded)
}

func TestRoom_Concurrent_Senders_Share_One_Order(t *testing.T) {
	req := require.New(t)
	room := domain.NewRoom("lobby", nil)
	members := []*inbox{{name: "a"}, {name: "b"}, {name: "c"}}
	for _, m := range members {
		req.NoError(room.Join(m))
	}

	// When several goroutines broadcast at the same time
	var wg sync.WaitGroup
	for sender := 0; sender < 8; sender++ {
		wg.Add(1)
		go func(sender int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				room.Broadcast(domain.NewChatMessage(fmt.Sprintf("s%d", sender), fmt.Sprintf("%d", i)))
			}
		}(sender)
	}
	wg.Wait()

	// Then every member saw exactly the history, in history order
	history := room.History()
	req.Len(history, 400)
	expected := make([]string, 0, len(history))
	for i, msg := range history {
		req.Equal(i, msg.Seq)
		expected = append(expected, msg.Text())
	}
	for _, m := range members {
		req.Equal(expected, m.Lines())
	}
}

func TestRoom_Close_Only_When_Empty(t *testing.T) {
	req := require.New(t)
	room := domain.NewRoom("lobby", nil)
	alice := &inbox{name: "alice"}
	req.NoError(room.Join(alice))

	// Given a member is present, the room stays open
	req.False(room.Close())

	// When the room becomes empty it can be closed
	room.Leave(alice)
	req.True(room.Close())

	// Then joining it is refused
	req.ErrorIs(room.Join(alice), errors.ErrRoomClosed)
}

func TestMessage_Text(t *testing.T) {
	req := require.New(t)
	req.Equal("alice has joined the room", domain.NewJoinedMessage("alice").Text())
	req.Equal("alice has left the room.", domain.NewLeftMessage("alice").Text())
	req.Equal("alice: hello world", domain.NewChatMessage("alice", "hello world").Text())
	req.Equal(": ", domain.NewChatMessage("", "").Text())
}

func TestRoom_Close_Skips_A_Busy_Room(t *testing.T) {
	req := require.New(t)
	entered := make(chan struct{})
	release := make(chan struct{})

	// Given an empty room whose broadcast is stuck in its recorder
	busy := domain.NewRoom("busy", recorderFunc(func(domain.Message) {
		close(entered)
		<-release
	}))
	go busy.Broadcast(domain.NewJoinedMessage("alice"))
	<-entered

	// Then Close gives up instead of waiting
	req.False(busy.Close())
	close(release)

	// And an idle empty room still closes
	req.True(domain.NewRoom("idle", nil).Close())
}

type recorderFunc func(domain.Message)

func (f recorderFunc) Record(m domain.Message) { f(m) }
