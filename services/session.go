package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	errors2 "chat-relay/errors"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

type State int32

const (
	Handshaking State = iota
	Active
	Terminated
)

func (s State) String() string {
	switch s {
	case Handshaking:
		return "handshaking"
	case Active:
		return "active"
	default:
		return "terminated"
	}
}

const exitCommand = "exit"

// participant is the Member handle of a session. The room only writes through
// it; reads stay with the session goroutine.
type participant struct {
	username string
	conn     contract.Conn
}

func (p *participant) Username() string { return p.username }

func (p *participant) Send(line string) error {
	if err := p.conn.WriteLine(line); err != nil {
		return fmt.Errorf("%w: %v", errors2.ErrMemberGone, err)
	}
	return nil
}

// Session drives one connection from the handshake to its departure.
type Session struct {
	id       string
	log      *slog.Logger
	conn     contract.Conn
	registry contract.IRegistry
	censor   contract.Censor
	state    atomic.Int32

	username string
	roomName string
	member   *participant
	room     *domain.Room
}

func NewSession(log *slog.Logger, registry contract.IRegistry, censor contract.Censor, conn contract.Conn) *Session {
	id := uuid.NewString()
	return &Session{
		id:       id,
		log:      log.With("session_id", id, "remote", conn.RemoteAddr()),
		conn:     conn,
		registry: registry,
		censor:   censor,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) Username() string { return s.username }

func (s *Session) RoomName() string { return s.roomName }

// Run blocks until the peer leaves, disconnects or ctx is canceled.
// Nothing that happens here escapes the session: errors and panics are logged.
func (s *Session) Run(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.Close()
	})
	defer stop()
	defer s.terminate()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Session panicked", "panic", r)
		}
	}()

	if err := s.handshake(); err != nil {
		s.log.Debug("Session ended before joining", "error", err)
		return
	}
	s.loop()
}

// handshake reads the username then the room name and joins the room.
func (s *Session) handshake() error {
	username, err := s.conn.ReadLine()
	if err != nil {
		return fmt.Errorf("%w: reading username: %v", errors2.ErrHandshake, err)
	}
	roomName, err := s.conn.ReadLine()
	if err != nil {
		return fmt.Errorf("%w: reading room name: %v", errors2.ErrHandshake, err)
	}

	s.username = strings.TrimSpace(username)
	s.roomName = strings.TrimSpace(roomName)
	s.member = &participant{username: s.username, conn: s.conn}
	s.room = s.registry.JoinRoom(s.roomName, s.member)
	s.log = s.log.With("user", s.username, "room", s.roomName)
	s.state.Store(int32(Active))

	s.room.Broadcast(domain.NewJoinedMessage(s.username))
	s.log.Info("Member joined")
	return nil
}

// loop relays lines until "exit" or until the connection fails.
// Only an explicit exit is announced to the room.
func (s *Session) loop() {
	for {
		line, err := s.conn.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Debug("Read failed, treating as disconnect", "error", err)
			}
			s.log.Info("Member disconnected")
			return
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.EqualFold(line, exitCommand):
			s.room.Broadcast(domain.NewLeftMessage(s.username))
			s.log.Info("Member left")
			return
		default:
			s.room.Broadcast(domain.NewChatMessage(s.username, s.sanitize(line)))
		}
	}
}

func (s *Session) sanitize(content string) string {
	if s.censor == nil {
		return content
	}
	censored, words := s.censor.Censor(content)
	if len(words) > 0 {
		s.log.Debug("Censored chat content", "words", words)
	}
	return censored
}

func (s *Session) terminate() {
	if s.room != nil {
		s.room.Leave(s.member)
	}
	if err := s.conn.Close(); err != nil {
		s.log.Debug("Closing connection", "error", err)
	}
	s.state.Store(int32(Terminated))
}
