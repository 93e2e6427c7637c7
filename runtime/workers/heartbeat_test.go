package workers

import (
	"chat-relay/runtime"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestHeartbeatWorker_Stops_With_Context(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := runtime.NewRegistry(nil)
	registry.GetOrCreate("lobby")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// When the worker ticks a few times before the context expires
	err := NewHeartbeatWorker(log, registry, 10*time.Millisecond).Run(ctx)

	// Then it returns cleanly
	req.NoError(err)
}
