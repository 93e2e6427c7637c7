package main

import (
	grpc2 "chat-relay/grpc"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"chat-relay/sink"
	"chat-relay/transport"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and owns their lifecycle, so that each defer
// (archive and index closing) executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Archive pipeline (process lifetime only)
	sup := workers.NewSupervisor(log, config.RestartInterval)
	var recorder domain.Recorder
	var repository repositories.IMessageRepository
	var index repositories.IMessageIndex
	if config.ArchiveEnabled {
		db, err := repositories.OpenInMemory()
		if err != nil {
			return fmt.Errorf("archive opening failed: %w", err)
		}
		defer func() {
			log.Info("Closing archive...")
			_ = db.Close()
		}()
		messageIndex, err := repositories.NewMessageIndex()
		if err != nil {
			return fmt.Errorf("search index opening failed: %w", err)
		}
		defer func() {
			_ = messageIndex.Close()
		}()

		repository = repositories.NewMessageRepository(db, log)
		index = messageIndex
		bus := runtime.NewEventBus(log, config.BufferSize)
		recorder = bus
		sup.Add(workers.NewEventFanout(log, bus.Events(), config.SinkTimeout,
			sink.NewDiskSink(repository, log),
			sink.NewSearchSink(index)))
		if config.CapacityInterval > 0 {
			sup.Add(workers.NewChannelCapacityWorker(log,
				[]workers.NamedChannel{{Name: "archive_events", Channel: bus.Events()}},
				config.CapacityInterval, config.LowCapacity))
		}
	}

	// 3. Rooms, moderation & supervision
	registry := runtime.NewRegistry(recorder)
	if config.ReapInterval > 0 {
		sup.Add(workers.NewRoomReaper(log, registry, config.ReapInterval))
	}
	if config.HeartbeatInterval > 0 {
		sup.Add(workers.NewHeartbeatWorker(log, registry, config.HeartbeatInterval))
	}

	replacement, _ := config.ReplacementRune()
	moderator, err := moderation.NewModerator(config.CensoredWordList(), replacement)
	if err != nil {
		return fmt.Errorf("moderation setup failed: %w", err)
	}
	chatService := services.NewChatService(log, registry, moderator)

	supervisorDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supervisorDone)
	}()

	// 4. Listeners
	errChan := make(chan error, 4)
	var wg sync.WaitGroup
	serve := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				errChan <- fmt.Errorf("%s: %w", name, err)
			}
		}()
	}

	serve("tcp", func() error {
		return transport.NewTCPServer(log, chatService.Serve, config.WriteTimeout).Run(ctx, config.TCPAddr)
	})
	if config.WSAddr != "" {
		serve("websocket", func() error {
			return transport.NewWebSocketServer(log, chatService.Serve, config.WriteTimeout).Run(ctx, config.WSAddr)
		})
	}
	if config.DebugAddr != "" {
		serve("debug", func() error {
			return internal.NewDebugServer(log, registry, repository, index, config.HistoryLimit).Run(ctx, config.DebugAddr)
		})
	}
	if config.GRPCAddr != "" {
		serve("grpc", func() error {
			return grpc2.NewHealthServer(log, config.ShutdownTimeout).Run(ctx, config.GRPCAddr)
		})
	}

	// 5. Wait for Stop or Error
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case runErr = <-errChan:
		log.Error("Listener failed, shutting down", "error", runErr)
		stop()
	}

	// 6. Final Cleanup
	waitAll(log, config.ShutdownTimeout, &wg, sup, supervisorDone)
	log.Info("Program stopped cleanly")
	return runErr
}

func waitAll(log *slog.Logger, timeout time.Duration, wg *sync.WaitGroup,
	sup contract.ISupervisor, supervisorDone <-chan struct{}) {
	sup.Stop()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		<-supervisorDone
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		log.Warn("Shutdown timeout reached, some sessions may still be running")
	}
}
