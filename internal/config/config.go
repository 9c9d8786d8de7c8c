package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DebugModeEnv is the environment variable for debug mode.
	DebugModeEnv = "DEBUG_MODE"

	// StoreBackendEnv selects the product store: postgres or memory.
	StoreBackendEnv = "STORE_BACKEND"

	// DBDriverEnv selects the database/sql driver: pgx or postgres (lib/pq).
	DBDriverEnv = "DB_DRIVER"

	// DBHostEnv is the environment variable for database host.
	DBHostEnv = "DB_HOST"

	// DBPortEnv is the environment variable for database port.
	DBPortEnv = "DB_PORT"

	// DBUserEnv is the environment variable for database user.
	DBUserEnv = "DB_USER"

	// DBPassEnv is the environment variable for database password.
	DBPassEnv = "DB_PASS"

	// DBNameEnv is the environment variable for database name.
	DBNameEnv = "DB_NAME"

	// HTTPServerPortEnv is the environment variable for HTTP server port.
	HTTPServerPortEnv = "HTTP_SERVER_PORT"

	// MetricsServerPortEnv is the environment variable for metrics server port.
	MetricsServerPortEnv = "METRICS_SERVER_PORT"

	// CacheBackendEnv selects the read cache: memory or redis.
	CacheBackendEnv = "CACHE_BACKEND"

	RedisAddrEnv     = "REDIS_ADDR"
	RedisPasswordEnv = "REDIS_PASSWORD"
	RedisDBEnv       = "REDIS_DB"

	// CacheTTLEnv bounds the lifetime of redis cache entries, e.g. "10m". Zero disables expiry.
	CacheTTLEnv = "CACHE_TTL"

	// RateLimitRPSEnv is the sustained request rate per second. Zero disables limiting.
	RateLimitRPSEnv = "RATE_LIMIT_RPS"

	RateLimitBurstEnv = "RATE_LIMIT_BURST"

	// LocalhostEnv is the constant for localhost.
	LocalhostEnv = "localhost"

	// EnvFilePath is the environment variable for .env file path (only for local/test environment).
	EnvFilePath = "ENV_PATH"

	// DefaultEnvFilePath is the default path to the .env file.
	DefaultEnvFilePath = ".env"

	// AWSRegionEnv is the environment variable for AWS region.
	AWSRegionEnv = "AWS_REGION"

	// AWSEndpointEnv is the environment variable for AWS endpoint.
	AWSEndpointEnv = "AWS_ENDPOINT"

	// SQSQueueURLEnv is the environment variable for SQS queue URL. Product change
	// events are published only when it is set.
	SQSQueueURLEnv = "SQS_QUEUE_URL"

	// OutboxIntervalEnv is how often pending change events are published.
	OutboxIntervalEnv = "OUTBOX_INTERVAL"
)

// Accepted values of StoreBackendEnv, DBDriverEnv and CacheBackendEnv.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendRedis    = "redis"

	DriverPgx = "pgx"
	DriverPq  = "postgres"
)

const (
	defaultRedisAddr      = "localhost:6379"
	defaultCacheTTL       = 10 * time.Minute
	defaultRateLimitBurst = 20
	defaultOutboxInterval = 2 * time.Second
	defaultAWSRegion      = "us-east-1"
)

var (
	// ErrMissingConfig is returned when required configuration values are missing.
	ErrMissingConfig = errors.New("missing config data")

	// ErrInvalidConfig is returned when a configuration value cannot be parsed or is not accepted.
	ErrInvalidConfig = errors.New("invalid config data")
)

// Config represents the application configuration.
type Config struct {
	DebugMode     bool
	StoreBackend  string
	Database      DB
	HTTPServer    Server
	MetricsServer Server
	Cache         Cache
	RateLimit     RateLimit
	AWS           AWSConfig
	Outbox        Outbox
}

// AWSConfig represents AWS-specific configuration settings.
type AWSConfig struct {
	Region      string
	Endpoint    string
	SQSQueueURL string
}

// DB represents database configuration settings.
type DB struct {
	Driver   string
	Host     string
	User     string
	Password string
	Name     string
	Port     string
}

// Server represents server configuration settings.
type Server struct {
	Port string
}

// Cache represents read cache settings.
type Cache struct {
	Backend string
	TTL     time.Duration
	Redis   Redis
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

// RateLimit configures the token bucket in front of the HTTP API.
type RateLimit struct {
	RPS   float64
	Burst int
}

// Enabled reports whether requests should be limited at all.
func (r RateLimit) Enabled() bool {
	return r.RPS > 0
}

type Outbox struct {
	Interval time.Duration
}

// ChangeEventsEnabled reports whether product changes are published to SQS.
func (c *Config) ChangeEventsEnabled() bool {
	return c.AWS.SQSQueueURL != ""
}

func allNonEmpty(keyValues map[string]string) error {
	for key, value := range keyValues {
		if value == "" {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("error", "value is empty"))
			return fmt.Errorf("%w for key: %s", ErrMissingConfig, key)
		}
	}
	return nil
}

func allNumbers(keyValues map[string]string) error {
	for key, value := range keyValues {
		_, err := strconv.Atoi(value)
		if err != nil {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("value", value), slog.String("error", err.Error()))
			return fmt.Errorf("invalid number for key %s: %w", key, err)
		}
	}
	return nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	slog.Error("configuration validation failed", slog.String("key", key), slog.String("value", value))
	return fmt.Errorf("%w for key %s: %q, expected one of %v", ErrInvalidConfig, key, value, allowed)
}

func (c *Config) validate() error {
	if err := oneOf(StoreBackendEnv, c.StoreBackend, BackendPostgres, BackendMemory); err != nil {
		return err
	}
	if err := oneOf(CacheBackendEnv, c.Cache.Backend, BackendMemory, BackendRedis); err != nil {
		return err
	}

	if c.StoreBackend == BackendPostgres {
		if err := oneOf(DBDriverEnv, c.Database.Driver, DriverPgx, DriverPq); err != nil {
			return err
		}
		// Validate database configuration
		if err := allNonEmpty(map[string]string{
			DBHostEnv: c.Database.Host,
			DBUserEnv: c.Database.User,
			DBNameEnv: c.Database.Name,
		}); err != nil {
			return fmt.Errorf("database configuration incomplete: %w", err)
		}
		if err := allNumbers(map[string]string{DBPortEnv: c.Database.Port}); err != nil {
			return fmt.Errorf("invalid port number: %w", err)
		}
	}

	// Validate server ports
	if err := allNonEmpty(map[string]string{
		HTTPServerPortEnv:    c.HTTPServer.Port,
		MetricsServerPortEnv: c.MetricsServer.Port,
	}); err != nil {
		return fmt.Errorf("server port configuration incomplete: %w", err)
	}

	// Validate port numbers
	if err := allNumbers(map[string]string{
		HTTPServerPortEnv:    c.HTTPServer.Port,
		MetricsServerPortEnv: c.MetricsServer.Port,
	}); err != nil {
		return fmt.Errorf("invalid port number: %w", err)
	}

	if c.Cache.Backend == BackendRedis {
		if err := allNonEmpty(map[string]string{RedisAddrEnv: c.Cache.Redis.Addr}); err != nil {
			return fmt.Errorf("redis configuration incomplete: %w", err)
		}
	}

	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 1 {
		return fmt.Errorf("%w: rate limit must be non-negative with a burst of at least 1", ErrInvalidConfig)
	}
	if c.ChangeEventsEnabled() && c.Outbox.Interval <= 0 {
		return fmt.Errorf("%w for key %s: must be positive", ErrInvalidConfig, OutboxIntervalEnv)
	}

	return nil
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if val, err := strconv.ParseBool(os.Getenv(name)); err == nil {
		return val
	}
	return defaultValue
}

// envParser reads typed variables and remembers every value that is set but
// cannot be parsed. Unset variables take their default.
type envParser struct {
	errs []error
}

func (p *envParser) invalid(name, raw, kind string) {
	p.errs = append(p.errs, fmt.Errorf("%w for key %s: %q is not %s", ErrInvalidConfig, name, raw, kind))
}

func (p *envParser) int(name string, defaultValue int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		p.invalid(name, raw, "an integer")
		return defaultValue
	}
	return val
}

func (p *envParser) float(name string, defaultValue float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return defaultValue
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.invalid(name, raw, "a number")
		return defaultValue
	}
	return val
}

func (p *envParser) duration(name string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return defaultValue
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		p.invalid(name, raw, "a duration (e.g. 30s, 10m)")
		return defaultValue
	}
	return val
}

func (p *envParser) err() error {
	return errors.Join(p.errs...)
}

func getEnv(name, defaultValue string) string {
	if val := os.Getenv(name); val != "" {
		return val
	}
	return defaultValue
}

// ApplyEnvFile loads environment variables from the specified .env files.
func ApplyEnvFile(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func load() (*Config, error) {
	envPath := os.Getenv(EnvFilePath)
	if envPath == "" {
		envPath = DefaultEnvFilePath
	}
	err := ApplyEnvFile(envPath)
	if err != nil {
		// just log the error, maybe all envs are set in another way
		slog.Info("failed to load from .env", slog.Any("err", err))
	}

	var env envParser
	conf := &Config{
		DebugMode:    getEnvAsBool(DebugModeEnv, false),
		StoreBackend: getEnv(StoreBackendEnv, BackendPostgres),
		Database: DB{
			Driver:   getEnv(DBDriverEnv, DriverPgx),
			Host:     os.Getenv(DBHostEnv),
			User:     os.Getenv(DBUserEnv),
			Password: os.Getenv(DBPassEnv),
			Name:     os.Getenv(DBNameEnv),
			Port:     getEnv(DBPortEnv, "5432"),
		},
		HTTPServer: Server{
			Port: os.Getenv(HTTPServerPortEnv),
		},
		MetricsServer: Server{
			Port: os.Getenv(MetricsServerPortEnv),
		},
		Cache: Cache{
			Backend: getEnv(CacheBackendEnv, BackendMemory),
			TTL:     env.duration(CacheTTLEnv, defaultCacheTTL),
			Redis: Redis{
				Addr:     getEnv(RedisAddrEnv, defaultRedisAddr),
				Password: os.Getenv(RedisPasswordEnv),
				DB:       env.int(RedisDBEnv, 0),
			},
		},
		RateLimit: RateLimit{
			RPS:   env.float(RateLimitRPSEnv, 0),
			Burst: env.int(RateLimitBurstEnv, defaultRateLimitBurst),
		},
		AWS: AWSConfig{
			Region:      getEnv(AWSRegionEnv, defaultAWSRegion),
			Endpoint:    os.Getenv(AWSEndpointEnv),
			SQSQueueURL: os.Getenv(SQSQueueURLEnv),
		},
		Outbox: Outbox{
			Interval: env.duration(OutboxIntervalEnv, defaultOutboxInterval),
		},
	}
	return conf, env.err()
}

// LoadFromEnv loads the product service configuration from environment
// variables and validates it.
func LoadFromEnv() (*Config, error) {
	conf, err := load()
	if err != nil {
		return nil, fmt.Errorf("configuration parsing failed: %w", err)
	}
	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return conf, nil
}

// LoadConsumerFromEnv loads the configuration of the notification consumer,
// which only needs the queue settings.
func LoadConsumerFromEnv() (*Config, error) {
	conf, err := load()
	if err != nil {
		return nil, fmt.Errorf("configuration parsing failed: %w", err)
	}
	if err := allNonEmpty(map[string]string{SQSQueueURLEnv: conf.AWS.SQSQueueURL}); err != nil {
		return nil, fmt.Errorf("AWS configuration incomplete: %w", err)
	}
	return conf, nil
}
