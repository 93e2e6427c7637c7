package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=localhost:8080"`
	Username      string `env:"CHAT_USERNAME,required=true"`
	Room          string `env:"CHAT_ROOM,default=lobby"`
	LogLevel      string `env:"LOG_LEVEL,default=INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run dials the relay, performs the two-line handshake, then pipes stdin to
// the server and server lines to stdout until either side goes away.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", config.ServerAddress)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddress, err)
	}
	defer func() {
		log.Debug("Closing connection...")
		_ = conn.Close()
	}()
	context.AfterFunc(ctx, func() { _ = conn.Close() })

	if _, err = fmt.Fprintf(conn, "%s\n%s\n", config.Username, config.Room); err != nil {
		return exitRuntime, fmt.Errorf("handshake failed: %w", err)
	}
	log.Info(fmt.Sprintf(">>> Connected to %s as %s in room %s (type exit to quit)",
		config.ServerAddress, config.Username, config.Room))

	go forwardInput(conn)

	err = readLines(conn, func(line string) {
		fmt.Println(render(line))
	})
	if ctx.Err() != nil {
		return exitOK, nil
	}
	if err != nil {
		return exitRuntime, fmt.Errorf("connection error: %w", err)
	}
	return exitOK, nil
}

// readLines calls fn for every line of r, whatever its length, including a
// final line without a terminator. It returns nil once r reaches EOF.
func readLines(r io.Reader, fn func(line string)) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			fn(strings.TrimRight(line, "\r\n"))
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func forwardInput(conn net.Conn) {
	var failed bool
	_ = readLines(os.Stdin, func(line string) {
		if failed {
			return
		}
		if _, err := fmt.Fprintln(conn, line); err != nil {
			failed = true
		}
	})
	if failed {
		return
	}
	// stdin closed: half-close so the server sees EOF and the reader loop ends
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.CloseWrite()
	}
}

func render(line string) string {
	switch {
	case strings.HasSuffix(line, " has joined the room"):
		return color.Green.Render(line)
	case strings.HasSuffix(line, " has left the room."):
		return color.Yellow.Render(line)
	default:
		return line
	}
}
