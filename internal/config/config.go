package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "UNO"

type Config struct {
	Port             int
	Bind             string
	DatabaseURL      string
	PublicURL        string
	OpponentDelay    time.Duration
	AutoStartPlayers int
	MaxPlayers       int
	RateLimit        int
	RateWindow       time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
}

// RegisterFlags declares every setting on fs. Each flag can also be set
// through UNO_<FLAG_NAME> in the environment or a .env file.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.IntP("port", "p", 8080, "port to listen on (env: UNO_PORT or PORT)")
	fs.StringP("bind", "b", "0.0.0.0", "address to bind to (env: UNO_BIND)")
	fs.String("database-url", "", "postgres connection string for the feedback store (env: UNO_DATABASE_URL)")
	fs.String("public-url", "http://localhost:8080", "externally reachable base URL used in invite codes (env: UNO_PUBLIC_URL)")
	fs.Duration("opponent-delay", 800*time.Millisecond, "pause before the computer opponent moves (env: UNO_OPPONENT_DELAY)")
	fs.Int("auto-start-players", 0, "start a lobby automatically once it has this many participants, 0 disables (env: UNO_AUTO_START_PLAYERS)")
	fs.Int("max-players", 10, "maximum participants per room, including the computer opponent (env: UNO_MAX_PLAYERS)")
	fs.Int("rate-limit", 10, "messages allowed per connection per rate window (env: UNO_RATE_LIMIT)")
	fs.Duration("rate-window", time.Second, "rate limiting window (env: UNO_RATE_WINDOW)")
	fs.Duration("idle-timeout", 10*time.Minute, "disconnect websocket clients idle for this long (env: UNO_IDLE_TIMEOUT)")
	fs.Duration("shutdown-timeout", 30*time.Second, "time allowed for graceful shutdown (env: UNO_SHUTDOWN_TIMEOUT)")
}

// Load resolves settings from flags, then environment, then defaults.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return Config{}, fmt.Errorf("failed to bind flags: %w", err)
	}
	if err := v.BindEnv("port", EnvPrefix+"_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("failed to bind port: %w", err)
	}

	cfg := Config{
		Port:             v.GetInt("port"),
		Bind:             v.GetString("bind"),
		DatabaseURL:      v.GetString("database-url"),
		PublicURL:        strings.TrimSuffix(v.GetString("public-url"), "/"),
		OpponentDelay:    v.GetDuration("opponent-delay"),
		AutoStartPlayers: v.GetInt("auto-start-players"),
		MaxPlayers:       v.GetInt("max-players"),
		RateLimit:        v.GetInt("rate-limit"),
		RateWindow:       v.GetDuration("rate-window"),
		IdleTimeout:      v.GetDuration("idle-timeout"),
		ShutdownTimeout:  v.GetDuration("shutdown-timeout"),
	}

	return cfg, cfg.Validate()
}

// 7 cards for each participant plus a revealed discard must fit in the deck.
const maxSeats = 15

func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.MaxPlayers < 2 || c.MaxPlayers > maxSeats {
		return fmt.Errorf("invalid max players (must be between 2-%d inclusive): %d", maxSeats, c.MaxPlayers)
	}
	if c.AutoStartPlayers != 0 && (c.AutoStartPlayers < 2 || c.AutoStartPlayers > c.MaxPlayers) {
		return fmt.Errorf("invalid auto start players (must be 0 or between 2 and max players): %d", c.AutoStartPlayers)
	}
	if c.OpponentDelay < 0 {
		return errors.New("opponent delay cannot be negative")
	}
	if c.RateLimit < 1 || c.RateWindow <= 0 {
		return errors.New("rate limit and rate window must be positive")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}
