package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var validate = validator.New()

// Config is read from the environment. Empty optional addresses disable the
// matching listener; zero intervals disable the matching worker.
type Config struct {
	TCPAddr           string        `env:"TCP_ADDR,default=0.0.0.0:8080" validate:"required,hostname_port"`
	WSAddr            string        `env:"WS_ADDR" validate:"omitempty,hostname_port"`
	DebugAddr         string        `env:"DEBUG_ADDR" validate:"omitempty,hostname_port"`
	GRPCAddr          string        `env:"GRPC_ADDR" validate:"omitempty,hostname_port"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO" validate:"required"`
	BufferSize        int           `env:"BUFFER_SIZE,default=1024" validate:"min=1"`
	SinkTimeout       time.Duration `env:"SINK_TIMEOUT,default=2s" validate:"gt=0"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT,default=10s" validate:"gte=0"`
	ReapInterval      time.Duration `env:"REAP_INTERVAL,default=0s" validate:"gte=0"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL,default=0s" validate:"gte=0"`
	CapacityInterval  time.Duration `env:"CAPACITY_INTERVAL,default=0s" validate:"gte=0"`
	LowCapacity       int           `env:"LOW_CAPACITY_THRESHOLD,default=10" validate:"gte=0"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s" validate:"gt=0"`
	CensoredWords     string        `env:"CENSORED_WORDS"`
	CharReplacement   string        `env:"CHARACTER_REPLACEMENT,default=*"`
	ArchiveEnabled    bool          `env:"ARCHIVE_ENABLED,default=true"`
	HistoryLimit      int           `env:"HISTORY_LIMIT,default=100" validate:"min=1"`
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := c.ReplacementRune(); err != nil {
		return err
	}
	return nil
}

// ReplacementRune is the single character used to mask censored words.
func (c Config) ReplacementRune() (rune, error) {
	r := []rune(c.CharReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf("CHARACTER_REPLACEMENT must be a single character, got %q", c.CharReplacement)
	}
	return r[0], nil
}

// CensoredWordList splits CENSORED_WORDS on commas, dropping blanks.
func (c Config) CensoredWordList() []string {
	words := lo.Map(strings.Split(c.CensoredWords, ","), func(w string, _ int) string {
		return strings.TrimSpace(w)
	})
	return lo.Compact(words)
}
