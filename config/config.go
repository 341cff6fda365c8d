package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type GRPC struct {
	Addr    string `yaml:"addr"`
	Timeout string `yaml:"timeout"` // default deadline для unary без своего
}

type HTTP struct {
	Addr            string `yaml:"addr"`
	ShutdownTimeout string `yaml:"shutdownTimeout"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // board-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	Level     string `yaml:"level"`     // debug|info|warn|error
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Postgres struct {
	DSN               string `yaml:"dsn"`
	MaxConns          int32  `yaml:"maxConns"`
	MinConns          int32  `yaml:"minConns"`
	MaxConnLifetime   string `yaml:"maxConnLifetime"`
	MaxConnIdleTime   string `yaml:"maxConnIdleTime"`
	HealthCheckPeriod string `yaml:"healthCheckPeriod"` // проверка простаивающих соединений пула
	ConnectTimeout    string `yaml:"connectTimeout"`    // сколько ретраить подключение на старте
	Migrate           bool   `yaml:"migrate"`

	BreakerFailures uint32 `yaml:"breakerFailures"`
	BreakerTimeout  string `yaml:"breakerTimeout"`
}

type Auth struct {
	JWTSecret string `yaml:"jwtSecret"`
	Issuer    string `yaml:"issuer"`
	ClockSkew string `yaml:"clockSkew"`
}

type WS struct {
	PingPeriod     string   `yaml:"pingPeriod"`
	WriteWait      string   `yaml:"writeWait"`
	MaxMessageSize int64    `yaml:"maxMessageSize"`
	SendBuffer     int      `yaml:"sendBuffer"`
	ChatMaxLen     int      `yaml:"chatMaxLen"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// Redis — relay между инстансами; пустой addr = один инстанс, relay выключен.
type Redis struct {
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	ChannelPrefix string `yaml:"channelPrefix"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	GRPC     GRPC     `yaml:"grpc"`
	Logging  Logging  `yaml:"logging"`
	Postgres Postgres `yaml:"postgres"`
	Auth     Auth     `yaml:"auth"`
	WS       WS       `yaml:"ws"`
	Redis    Redis    `yaml:"redis"`
	CORS     CORS     `yaml:"cors"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse разбирает YAML, применяет env-override'ы и дефолты.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// секреты не хранятся в yaml в проде
func (c *Config) applyEnv() {
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.GRPC.Addr == "" {
		return errors.New("grpc.addr is required")
	}
	if c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("auth.jwtSecret (or JWT_SECRET) is required")
	}
	if c.Postgres.MinConns > c.Postgres.MaxConns && c.Postgres.MaxConns > 0 {
		return errors.New("postgres.minConns must not exceed postgres.maxConns")
	}

	// установка дефолтов, если значения не указаны
	if c.Logging.Service == "" {
		c.Logging.Service = "board-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Postgres.MaxConns == 0 {
		c.Postgres.MaxConns = 10
	}
	if c.WS.MaxMessageSize == 0 {
		c.WS.MaxMessageSize = 1 << 20
	}
	if c.WS.SendBuffer == 0 {
		c.WS.SendBuffer = 64
	}
	if c.WS.ChatMaxLen == 0 {
		c.WS.ChatMaxLen = 4000
	}
	if c.Redis.ChannelPrefix == "" {
		c.Redis.ChannelPrefix = "board:room:"
	}
	return nil
}

func (h HTTP) ShutdownTimeoutDur() time.Duration {
	return parseDurationOr(10*time.Second, h.ShutdownTimeout)
}

func (g GRPC) TimeoutDur() time.Duration {
	return parseDurationOr(10*time.Second, g.Timeout)
}

func (p Postgres) MaxConnLifetimeDur() time.Duration {
	return parseDurationOr(time.Hour, p.MaxConnLifetime)
}

func (p Postgres) MaxConnIdleTimeDur() time.Duration {
	return parseDurationOr(30*time.Minute, p.MaxConnIdleTime)
}

func (p Postgres) HealthCheckPeriodDur() time.Duration {
	return parseDurationOr(time.Minute, p.HealthCheckPeriod)
}

func (p Postgres) ConnectTimeoutDur() time.Duration {
	return parseDurationOr(30*time.Second, p.ConnectTimeout)
}

func (p Postgres) BreakerTimeoutDur() time.Duration {
	return parseDurationOr(10*time.Second, p.BreakerTimeout)
}

func (a Auth) ClockSkewDur() time.Duration {
	return parseDurationOr(30*time.Second, a.ClockSkew)
}

func (w WS) PingPeriodDur() time.Duration {
	return parseDurationOr(15*time.Second, w.PingPeriod)
}

func (w WS) WriteWaitDur() time.Duration {
	return parseDurationOr(5*time.Second, w.WriteWait)
}

// helper для парсинга timeout-ов
func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
