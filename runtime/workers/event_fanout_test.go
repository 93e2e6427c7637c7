package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/mocks"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEventFanout_Fanout_Calls_Every_Sink(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	first := mocks.NewMockEventSink(ctrl)
	second := mocks.NewMockEventSink(ctrl)
	evt := event.MessagePosted{Message: domain.Message{Room: "lobby"}}

	// Given the first sink fails
	first.EXPECT().Consume(gomock.Any(), evt).Return(errors.New("disk full")).Times(1)
	// Then the second sink still receives the event
	second.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)

	worker := NewEventFanout(log, nil, time.Second, first, second)

	// When the event is fanned out
	worker.Fanout(context.Background(), evt)
}

func TestEventFanout_SinkTimeout(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	slow := mocks.NewMockEventSink(ctrl)

	sinkTimeout := 20 * time.Millisecond
	slow.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, evt event.DomainEvent) error {
			<-ctx.Done() // Waiting for timeout to trigger cancellation
			return ctx.Err()
		}).
		Times(1)

	worker := NewEventFanout(log, nil, sinkTimeout, slow)

	// When the sink never answers by itself
	start := time.Now()
	worker.Fanout(context.Background(), event.MessagePosted{})

	// Then the fanout gave up after the timeout
	req.Less(time.Since(start), time.Second)
}

func TestEventFanout_Run_Preserves_Order_And_Stops(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockEventSink(ctrl)

	events := make(chan event.DomainEvent, 3)
	var seqs []int
	received := make(chan struct{})
	sink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, evt event.DomainEvent) error {
			seqs = append(seqs, evt.(event.MessagePosted).Message.Seq)
			if len(seqs) == 3 {
				close(received)
			}
			return nil
		}).
		Times(3)

	var worker contract.Worker = NewEventFanout(log, events, time.Second, sink)
	for i := 0; i < 3; i++ {
		events <- event.MessagePosted{Message: domain.Message{Room: "lobby", Seq: i}}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	select {
	case <-received:
	case <-time.After(time.Second):
		req.Fail("Events were not consumed in time")
	}
	cancel()
	req.NoError(<-done)
	req.Equal([]int{0, 1, 2}, seqs)
}

func TestEventFanout_Run_Returns_When_Channel_Closed(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	events := make(chan event.DomainEvent)
	close(events)

	worker := NewEventFanout(log, events, time.Second)
	req.NoError(worker.Run(context.Background()))
}
