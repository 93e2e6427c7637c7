package main

import (
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)

	var config Config
	err := env.Unmarshal(env.EnvSet{}, &config)
	req.NoError(err)
	req.NoError(config.Validate())

	req.Equal("0.0.0.0:8080", config.TCPAddr)
	req.Equal(10*time.Second, config.WriteTimeout)
	req.Zero(config.ReapInterval)
	req.True(config.ArchiveEnabled)
	req.Empty(config.CensoredWordList())
	r, err := config.ReplacementRune()
	req.NoError(err)
	req.Equal('*', r)
}

func TestConfig_From_Environment(t *testing.T) {
	req := require.New(t)

	var config Config
	err := env.Unmarshal(env.EnvSet{
		"TCP_ADDR":              "127.0.0.1:9000",
		"WS_ADDR":               "127.0.0.1:9001",
		"REAP_INTERVAL":         "1m",
		"CENSORED_WORDS":        " badger, ,snake ",
		"CHARACTER_REPLACEMENT": "#",
		"ARCHIVE_ENABLED":       "false",
	}, &config)
	req.NoError(err)
	req.NoError(config.Validate())

	req.Equal(time.Minute, config.ReapInterval)
	req.False(config.ArchiveEnabled)
	req.Equal([]string{"badger", "snake"}, config.CensoredWordList())
}

func TestConfig_Validate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  env.EnvSet
	}{
		{name: "bad tcp address", env: env.EnvSet{"TCP_ADDR": "not-an-address"}},
		{name: "bad websocket address", env: env.EnvSet{"WS_ADDR": "nope"}},
		{name: "zero buffer", env: env.EnvSet{"BUFFER_SIZE": "0"}},
		{name: "long replacement", env: env.EnvSet{"CHARACTER_REPLACEMENT": "**"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			var config Config
			err := env.Unmarshal(tt.env, &config)
			req.NoError(err)
			req.Error(config.Validate())
		})
	}
}
