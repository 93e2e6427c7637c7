package services

import (
	"chat-relay/contract"
	"context"
	"log/slog"
)

type IChatService interface {
	Serve(ctx context.Context, conn contract.Conn)
}

// ChatService starts one Session per accepted connection.
type ChatService struct {
	log      *slog.Logger
	registry contract.IRegistry
	censor   contract.Censor
}

func NewChatService(log *slog.Logger, registry contract.IRegistry, censor contract.Censor) *ChatService {
	return &ChatService{log: log, registry: registry, censor: censor}
}

func (s *ChatService) Serve(ctx context.Context, conn contract.Conn) {
	NewSession(s.log, s.registry, s.censor, conn).Run(ctx)
}
