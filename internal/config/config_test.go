package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	return fs
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := Load(newFlags())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 800*time.Millisecond, cfg.OpponentDelay)
	assert.Equal(t, 0, cfg.AutoStartPlayers)
	assert.Equal(t, 10, cfg.MaxPlayers)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("UNO_OPPONENT_DELAY", "50ms")
	t.Setenv("UNO_AUTO_START_PLAYERS", "2")
	t.Setenv("PORT", "9090")

	cfg, err := Load(newFlags())
	require.NoError(t, err)

	assert.Equal(t, 50*time.Millisecond, cfg.OpponentDelay)
	assert.Equal(t, 2, cfg.AutoStartPlayers)
	assert.Equal(t, 9090, cfg.Port)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("UNO_MAX_PLAYERS", "4")
	fs := newFlags()
	require.NoError(t, fs.Parse([]string{"--max-players", "6", "--public_url", "https://uno.example.com/"}))

	cfg, err := Load(fs)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.MaxPlayers)
	assert.Equal(t, "https://uno.example.com", cfg.PublicURL)
}

func TestValidate(t *testing.T) {
	valid := Config{Port: 80, MaxPlayers: 4, RateLimit: 1, RateWindow: time.Second}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"port too low", func(c *Config) { c.Port = 0 }},
		{"port too high", func(c *Config) { c.Port = 70000 }},
		{"too many seats", func(c *Config) { c.MaxPlayers = 16 }},
		{"single seat", func(c *Config) { c.MaxPlayers = 1 }},
		{"auto start above max", func(c *Config) { c.AutoStartPlayers = 5 }},
		{"auto start of one", func(c *Config) { c.AutoStartPlayers = 1 }},
		{"negative delay", func(c *Config) { c.OpponentDelay = -time.Second }},
		{"no rate limit", func(c *Config) { c.RateLimit = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
