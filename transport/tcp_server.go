package transport

import (
	"chat-relay/contract"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Handler runs one connection to completion.
type Handler func(ctx context.Context, conn contract.Conn)

// TCPServer accepts connections and runs each one in its own goroutine.
type TCPServer struct {
	log          *slog.Logger
	handler      Handler
	writeTimeout time.Duration
	wg           sync.WaitGroup
}

func NewTCPServer(log *slog.Logger, handler Handler, writeTimeout time.Duration) *TCPServer {
	return &TCPServer{log: log, handler: handler, writeTimeout: writeTimeout}
}

// Run listens on addr and serves until ctx is canceled.
func (s *TCPServer) Run(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts on listener until ctx is canceled, then waits for every
// connection handler to return. Handlers close their connection on ctx.
func (s *TCPServer) Serve(ctx context.Context, listener net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		_ = listener.Close()
	})
	defer stop()
	s.log.Info("Accepting TCP connections", "address", listener.Addr().String())

	var backoff time.Duration
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			// Accept errors such as EMFILE are transient: back off like net/http does.
			backoff = nextBackoff(backoff)
			s.log.Warn("Accept failed, retrying", "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
			continue
		}
		backoff = 0

		s.log.Debug("New connection", "remote", conn.RemoteAddr().String())
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handler(ctx, NewLineConn(conn, s.writeTimeout))
		}()
	}
}

func nextBackoff(current time.Duration) time.Duration {
	if current == 0 {
		return 5 * time.Millisecond
	}
	if current *= 2; current > time.Second {
		return time.Second
	}
	return current
}
