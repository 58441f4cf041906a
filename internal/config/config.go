package config

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/vending-machine/internal/core/domain"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Journal sinks.
const (
	SinkLog   = "log"
	SinkRedis = "redis"
)

type Config struct {
	Mode            string        `koanf:"mode" mapstructure:"mode" yaml:"mode"`
	ShutdownTimeout string        `koanf:"shutdown_timeout" mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	HTTP            HTTPConfig    `koanf:"http" mapstructure:"http" yaml:"http"`
	GRPC            GRPCConfig    `koanf:"grpc" mapstructure:"grpc" yaml:"grpc"`
	Storage         StorageConfig `koanf:"storage" mapstructure:"storage" yaml:"storage"`
	Journal         JournalConfig `koanf:"journal" mapstructure:"journal" yaml:"journal"`
	Log             LogConfig     `koanf:"log" mapstructure:"log" yaml:"log"`
}

type HTTPConfig struct {
	Addr           string   `koanf:"addr" mapstructure:"addr" yaml:"addr"`
	AllowedOrigins []string `koanf:"allowed_origins" mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

type GRPCConfig struct {
	Addr string `koanf:"addr" mapstructure:"addr" yaml:"addr"`
}

type StorageConfig struct {
	Driver      string      `koanf:"driver" mapstructure:"driver" yaml:"driver"`
	DSN         string      `koanf:"dsn" mapstructure:"dsn" yaml:"dsn"`
	MachineID   string      `koanf:"machine_id" mapstructure:"machine_id" yaml:"machine_id"`
	Debug       bool        `koanf:"debug" mapstructure:"debug" yaml:"debug"`
	PingTimeout string      `koanf:"ping_timeout" mapstructure:"ping_timeout" yaml:"ping_timeout"`
	Redis       RedisConfig `koanf:"redis" mapstructure:"redis" yaml:"redis"`
}

type RedisConfig struct {
	Addr      string `koanf:"addr" mapstructure:"addr" yaml:"addr"`
	Password  string `koanf:"password" mapstructure:"password" yaml:"password"`
	DB        int    `koanf:"db" mapstructure:"db" yaml:"db"`
	PoolSize  int    `koanf:"pool_size" mapstructure:"pool_size" yaml:"pool_size"`
	KeyPrefix string `koanf:"key_prefix" mapstructure:"key_prefix" yaml:"key_prefix"`
}

type JournalConfig struct {
	Sink      string `koanf:"sink" mapstructure:"sink" yaml:"sink"`
	Workers   int    `koanf:"workers" mapstructure:"workers" yaml:"workers"`
	QueueSize int    `koanf:"queue_size" mapstructure:"queue_size" yaml:"queue_size"`
	Stream    string `koanf:"stream" mapstructure:"stream" yaml:"stream"`
	MaxLen    int    `koanf:"max_len" mapstructure:"max_len" yaml:"max_len"`
}

type LogConfig struct {
	Level       string `koanf:"level" mapstructure:"level" yaml:"level"`
	Development bool   `koanf:"development" mapstructure:"development" yaml:"development"`
}

func Defaults() Config {
	return Config{
		Mode:            string(domain.AccessModeOwner),
		ShutdownTimeout: "5s",
		HTTP: HTTPConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
		GRPC: GRPCConfig{Addr: ":50051"},
		Storage: StorageConfig{
			Driver:      DriverMemory,
			MachineID:   "default",
			PingTimeout: "5s",
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				PoolSize:  100,
				KeyPrefix: "vending:",
			},
		},
		Journal: JournalConfig{
			Sink:      SinkLog,
			Workers:   4,
			QueueSize: 10000,
			Stream:    "vending:journal",
			MaxLen:    100000,
		},
		Log: LogConfig{Level: "info"},
	}
}

func (c Config) Validate() error {
	if _, err := domain.ParseAccessMode(c.Mode); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("config: shutdown_timeout: %w", err)
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" && strings.TrimSpace(c.GRPC.Addr) == "" {
		return fmt.Errorf("config: at least one of http.addr and grpc.addr is required")
	}

	switch c.Storage.Driver {
	case DriverMemory, DriverRedis:
	case DriverMySQL, DriverSQLite, DriverPostgres:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return fmt.Errorf("config: storage.dsn is required for the %s driver", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	if strings.TrimSpace(c.Storage.MachineID) == "" {
		return fmt.Errorf("config: storage.machine_id is required")
	}
	if _, err := time.ParseDuration(c.Storage.PingTimeout); err != nil {
		return fmt.Errorf("config: storage.ping_timeout: %w", err)
	}

	switch c.Journal.Sink {
	case SinkLog, SinkRedis:
	default:
		return fmt.Errorf("config: unknown journal.sink %q", c.Journal.Sink)
	}
	if c.Journal.Workers < 1 {
		return fmt.Errorf("config: journal.workers must be positive")
	}
	if c.Journal.QueueSize < 1 {
		return fmt.Errorf("config: journal.queue_size must be positive")
	}

	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	return nil
}

func (c Config) AccessMode() domain.AccessMode {
	mode, _ := domain.ParseAccessMode(c.Mode)
	return mode
}

func (c Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// The getters below satisfy the go-persistence-bun client config.

func (s StorageConfig) GetDebug() bool {
	return s.Debug
}

func (s StorageConfig) GetDriver() string {
	if s.Driver == DriverSQLite {
		return "sqlite3"
	}
	return s.Driver
}

func (s StorageConfig) GetServer() string {
	return s.DSN
}

func (s StorageConfig) GetPingTimeout() time.Duration {
	d, _ := time.ParseDuration(s.PingTimeout)
	return d
}

func (s StorageConfig) GetOtelIdentifier() string {
	return "vending-machine"
}

// Build returns the process logger.
func (l LogConfig) Build() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if l.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(l.Level)
	if err != nil {
		return nil, err
	}
	cfg.Level = level
	return cfg.Build()
}
