package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// No origin policy: the relay has no notion of identity or trust.
	CheckOrigin: func(*http.Request) bool { return true },
}

// WebSocketConn exposes a WebSocket as a line connection.
// Each text frame carries one or more newline-separated lines, and every
// outgoing line is sent as its own text frame.
type WebSocketConn struct {
	conn         *websocket.Conn
	addr         string
	pending      []string
	writeMu      sync.Mutex
	writeTimeout time.Duration
	closeOnce    sync.Once
	closeErr     error
}

func NewWebSocketConn(conn *websocket.Conn, addr string, writeTimeout time.Duration) *WebSocketConn {
	return &WebSocketConn{conn: conn, addr: addr, writeTimeout: writeTimeout}
}

// ReadLine returns io.EOF when the peer closed the socket, cleanly or not.
func (c *WebSocketConn) ReadLine() (string, error) {
	for len(c.pending) == 0 {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) || errors.Is(err, net.ErrClosed) {
				return "", io.EOF
			}
			return "", err
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		c.pending = splitLines(string(data))
	}
	line := c.pending[0]
	c.pending = c.pending[1:]
	return line, nil
}

func (c *WebSocketConn) WriteLine(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

// Close sends a close frame when possible, then closes the socket.
func (c *WebSocketConn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *WebSocketConn) RemoteAddr() string {
	return c.addr
}

// splitLines splits a frame into lines. A single trailing newline does not
// produce an extra empty line; a frame that is only "\n" is one blank line.
func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// WebSocketServer upgrades HTTP requests on /ws and runs them as sessions.
type WebSocketServer struct {
	log          *slog.Logger
	handler      Handler
	writeTimeout time.Duration
	baseCtx      context.Context
	wg           sync.WaitGroup
}

func NewWebSocketServer(log *slog.Logger, handler Handler, writeTimeout time.Duration) *WebSocketServer {
	return &WebSocketServer{log: log, handler: handler, writeTimeout: writeTimeout, baseCtx: context.Background()}
}

// ServeHTTP blocks for the lifetime of the session.
func (s *WebSocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()
	s.handler(s.baseCtx, NewWebSocketConn(conn, r.RemoteAddr, s.writeTimeout))
}

// Run serves WebSocket sessions on addr until ctx is canceled.
// Hijacked connections are not tracked by net/http, so sessions are stopped
// through ctx and waited for here.
func (s *WebSocketServer) Run(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

func (s *WebSocketServer) Serve(ctx context.Context, listener net.Listener) error {
	s.baseCtx = ctx
	mux := http.NewServeMux()
	mux.Handle("/ws", s)
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("Accepting WebSocket connections", "address", listener.Addr().String())
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := server.Shutdown(shutdownCtx)
	s.wg.Wait()
	return err
}
