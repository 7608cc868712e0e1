package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix     = "SECRETNICK"
	configFileEnv = "SECRETNICK_CONFIG"

	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config captures the settings of the Secret Nick service.
type Config struct {
	HTTP      HTTPConfig
	Storage   StorageConfig
	Room      RoomConfig
	RateLimit RateLimitConfig
	Metrics   MetricsConfig
	Log       LogConfig
}

type HTTPConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

type StorageConfig struct {
	Driver      string
	DSN         string
	BusyTimeout time.Duration
}

// RoomConfig holds the limits applied to newly created rooms.
type RoomConfig struct {
	MinUsers  uint
	MaxUsers  uint
	MaxWishes uint
}

// RateLimitConfig uses the "<limit>-<period>" format, e.g. "20-M". Empty disables a limit.
type RateLimitConfig struct {
	Create string
	Join   string
}

type MetricsConfig struct {
	Enabled bool
}

type LogConfig struct {
	Level  string
	Format string
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.HTTP.Port)
}

// New returns a viper instance with defaults and environment binding applied.
// Keys use dots, environment variables use the SECRETNICK_ prefix and
// underscores, e.g. SECRETNICK_HTTP_PORT for http.port.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.shutdown_timeout", "10s")
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("sqlite.dsn", "file:secretnick.db")
	v.SetDefault("sqlite.busy_timeout", "5s")
	v.SetDefault("room.min_users", 3)
	v.SetDefault("room.max_users", 20)
	v.SetDefault("room.max_wishes", 5)
	v.SetDefault("ratelimit.create", "20-M")
	v.SetDefault("ratelimit.join", "60-M")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	return v
}

// Load reads configuration from the environment and the optional file named by
// SECRETNICK_CONFIG.
func Load() (Config, error) {
	return LoadFrom(New())
}

// LoadFrom resolves configuration from v, reading the file named by
// SECRETNICK_CONFIG when v has no config file yet. Every missing or invalid
// value is reported in a single error.
func LoadFrom(v *viper.Viper) (Config, error) {
	if path := strings.TrimSpace(os.Getenv(configFileEnv)); path != "" && v.ConfigFileUsed() == "" {
		v.SetConfigFile(path)
	}
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	p := parser{v: v}
	cfg := Config{
		HTTP: HTTPConfig{
			Port:            p.integer("http.port", 1, 65535),
			ShutdownTimeout: p.duration("http.shutdown_timeout"),
		},
		Storage: StorageConfig{
			Driver:      strings.ToLower(p.str("storage.driver")),
			DSN:         p.str("sqlite.dsn"),
			BusyTimeout: p.duration("sqlite.busy_timeout"),
		},
		Room: RoomConfig{
			MinUsers:  uint(p.integer("room.min_users", 0, 1000)),
			MaxUsers:  uint(p.integer("room.max_users", 1, 1000)),
			MaxWishes: uint(p.integer("room.max_wishes", 0, 100)),
		},
		RateLimit: RateLimitConfig{
			Create: p.str("ratelimit.create"),
			Join:   p.str("ratelimit.join"),
		},
		Metrics: MetricsConfig{Enabled: p.boolean("metrics.enabled")},
		Log: LogConfig{
			Level:  strings.ToLower(p.str("log.level")),
			Format: strings.ToLower(p.str("log.format")),
		},
	}

	switch cfg.Storage.Driver {
	case DriverSQLite:
		if cfg.Storage.DSN == "" {
			p.missing = append(p.missing, "sqlite.dsn")
		}
	case DriverMemory:
	default:
		p.invalid = append(p.invalid, "storage.driver")
	}
	if cfg.Room.MinUsers > cfg.Room.MaxUsers {
		p.invalid = append(p.invalid, "room.min_users")
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		p.invalid = append(p.invalid, "log.level")
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		p.invalid = append(p.invalid, "log.format")
	}

	if err := p.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type parser struct {
	v       *viper.Viper
	missing []string
	invalid []string
}

func (p *parser) str(key string) string {
	return strings.TrimSpace(p.v.GetString(key))
}

func (p *parser) integer(key string, lo, hi int) int {
	raw := p.str(key)
	if raw == "" {
		p.missing = append(p.missing, key)
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		p.invalid = append(p.invalid, key)
		return 0
	}
	return n
}

func (p *parser) duration(key string) time.Duration {
	raw := p.str(key)
	if raw == "" {
		p.missing = append(p.missing, key)
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		p.invalid = append(p.invalid, key)
		return 0
	}
	return d
}

func (p *parser) boolean(key string) bool {
	raw := p.str(key)
	if raw == "" {
		return false
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return false
	}
	return b
}

func (p *parser) err() error {
	var errs []error
	if len(p.missing) > 0 {
		errs = append(errs, fmt.Errorf("missing configuration values: %s", strings.Join(p.missing, ", ")))
	}
	if len(p.invalid) > 0 {
		errs = append(errs, fmt.Errorf("invalid configuration values: %s", strings.Join(p.invalid, ", ")))
	}
	return errors.Join(errs...)
}
