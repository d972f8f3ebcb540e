package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures runtime configuration for the API service.
type Config struct {
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Kafka       KafkaConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Telemetry   TelemetryConfig
	Service     ServiceConfig
	Idempotency IdempotencyConfig
	Retry       RetryConfig
}

type HTTPConfig struct {
	Port           int           `env:"API_HTTP_PORT" envDefault:"8080"`
	MetricsPath    string        `env:"API_METRICS_PATH" envDefault:"/metrics"`
	ShutdownGrace  time.Duration `env:"API_SHUTDOWN_GRACE" envDefault:"15s"`
	ReadTimeout    time.Duration `env:"API_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout   time.Duration `env:"API_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout    time.Duration `env:"API_IDLE_TIMEOUT" envDefault:"60s"`
	RequestTimeout time.Duration `env:"API_REQUEST_TIMEOUT" envDefault:"10s"`
}

// Addr is the listen address for the HTTP server.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

type DatabaseConfig struct {
	URL            string `env:"DATABASE_URL"`
	Host           string `env:"DB_HOST" envDefault:"localhost"`
	Port           string `env:"DB_PORT" envDefault:"5432"`
	User           string `env:"DB_USER" envDefault:"postgres"`
	Password       string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name           string `env:"DB_NAME" envDefault:"storefront"`
	SSLMode        string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConns       int    `env:"DB_MAX_CONNS" envDefault:"25"`
	MinConns       int    `env:"DB_MIN_CONNS" envDefault:"5"`
	MaxLifetime    string `env:"DB_MAX_CONN_LIFETIME" envDefault:"5m"`
	AutoMigrate    bool   `env:"AUTO_MIGRATE" envDefault:"true"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"migrations"`
}

// ConnString returns DATABASE_URL when set, otherwise a URL built from the DB_* parts.
func (c DatabaseConfig) ConnString() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + c.Port,
		Path:   "/" + c.Name,
	}
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	q.Set("pool_max_conns", fmt.Sprint(c.MaxConns))
	q.Set("pool_min_conns", fmt.Sprint(c.MinConns))
	q.Set("pool_max_conn_lifetime", c.MaxLifetime)
	u.RawQuery = q.Encode()
	return u.String()
}

type KafkaConfig struct {
	Brokers      []string      `env:"KAFKA_BROKERS" envSeparator:","`
	Topic        string        `env:"KAFKA_TOPIC" envDefault:"storefront.orders"`
	BatchTimeout time.Duration `env:"KAFKA_BATCH_TIMEOUT" envDefault:"50ms"`
	WriteTimeout time.Duration `env:"KAFKA_WRITE_TIMEOUT" envDefault:"5s"`
}

// Enabled reports whether at least one broker is configured.
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

type RedisConfig struct {
	URL string `env:"REDIS_URL"`
}

type AuthConfig struct {
	JWTSecret string        `env:"AUTH_JWT_SECRET"`
	Issuer    string        `env:"AUTH_JWT_ISSUER" envDefault:"storefront"`
	TokenTTL  time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"24h"`
}

type TelemetryConfig struct {
	LogLevel      string  `env:"LOG_LEVEL" envDefault:"info"`
	OTelEndpoint  string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	EnableTracing bool    `env:"OTEL_ENABLE_TRACING" envDefault:"true"`
	EnableMetrics bool    `env:"OTEL_ENABLE_METRICS" envDefault:"true"`
	SampleRate    float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

type ServiceConfig struct {
	Name        string `env:"API_SERVICE_NAME" envDefault:"storefront-api"`
	Version     string `env:"SERVICE_VERSION" envDefault:"0.1.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	// Store selects the persistence backend: postgres or memory.
	Store string `env:"STORE" envDefault:"postgres"`
}

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type IdempotencyConfig struct {
	TTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
}

type RetryConfig struct {
	MaxAttempts     uint          `env:"TX_RETRY_MAX_ATTEMPTS" envDefault:"4"`
	InitialInterval time.Duration `env:"TX_RETRY_INITIAL_INTERVAL" envDefault:"10ms"`
	MaxInterval     time.Duration `env:"TX_RETRY_MAX_INTERVAL" envDefault:"200ms"`
}

// Load reads configuration from environment variables, applying defaults when needed.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	c.Service.Store = strings.ToLower(strings.TrimSpace(c.Service.Store))
	if c.Service.Store != StorePostgres && c.Service.Store != StoreMemory {
		errs = append(errs, fmt.Errorf("invalid STORE %q: want %s or %s", c.Service.Store, StorePostgres, StoreMemory))
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid API_HTTP_PORT %d", c.HTTP.Port))
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("invalid OTEL_SAMPLE_RATE %v: must be within [0, 1]", c.Telemetry.SampleRate))
	}
	if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("AUTH_JWT_SECRET must be at least 32 bytes"))
	}
	if c.Retry.MaxAttempts == 0 {
		errs = append(errs, errors.New("TX_RETRY_MAX_ATTEMPTS must be at least 1"))
	}
	if c.Idempotency.TTL <= 0 {
		errs = append(errs, errors.New("IDEMPOTENCY_TTL must be positive"))
	}

	return errors.Join(errs...)
}

// LoadAuth reads only the token settings, for tools that mint credentials.
func LoadAuth() (*AuthConfig, error) {
	var cfg AuthConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("AUTH_JWT_SECRET must be at least 32 bytes")
	}
	return &cfg, nil
}
