package workers

import (
	"chat-relay/mocks"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRoomReaper_Reaps_On_Each_Tick(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)

	ticked := make(chan struct{})
	// Given the first tick reaps two rooms and the next ones nothing
	gomock.InOrder(
		registry.EXPECT().Reap().Return(2),
		registry.EXPECT().Reap().DoAndReturn(func() int {
			close(ticked)
			return 0
		}),
		registry.EXPECT().Reap().Return(0).AnyTimes(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewRoomReaper(log, registry, 5*time.Millisecond).Run(ctx) }()

	select {
	case <-ticked:
	case <-time.After(time.Second):
		req.Fail("Reaper did not tick")
	}
	cancel()
	req.NoError(<-done)
}
