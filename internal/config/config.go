package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

const (
	StorageCRDB   = "crdb"
	StorageMemory = "memory"
)

type Config struct {
	HTTPAddr           string
	StorageBackend     string
	CRDBDSN            string
	MongoURI           string
	MongoDB            string
	RedisAddr          string
	RabbitURL          string
	JWTSecret          string
	TokenTTL           time.Duration
	LockTTL            time.Duration
	IdempotencyTTL     time.Duration
	RateLimitPerMinute int
	OutboxPollInterval time.Duration
	OTLPEndpoint       string
	AllowedOrigins     []string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:       getenv("HTTP_ADDR", ":8080"),
		StorageBackend: getenv("STORAGE_BACKEND", StorageCRDB),
		CRDBDSN:        os.Getenv("CRDB_DSN"),
		MongoURI:       os.Getenv("MONGO_URI"),
		MongoDB:        getenv("MONGO_DB", "petmarket"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RabbitURL:      os.Getenv("RABBIT_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		AllowedOrigins: list("CORS_ALLOWED_ORIGINS", "*"),
	}

	var err error
	if cfg.TokenTTL, err = duration("TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.LockTTL, err = duration("LOCK_TTL", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.IdempotencyTTL, err = duration("IDEMPOTENCY_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.OutboxPollInterval, err = duration("OUTBOX_POLL_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = integer("RATE_LIMIT_PER_MINUTE", 100); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageMemory:
	case StorageCRDB:
		if c.CRDBDSN == "" {
			return errors.New("CRDB_DSN is required for the crdb storage backend")
		}
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required for the crdb storage backend")
		}
	default:
		return errors.Newf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	return nil
}

// ValidateAPI adds the settings only the HTTP API needs.
func (c *Config) ValidateAPI() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func list(key, def string) []string {
	var out []string
	for _, part := range strings.Split(getenv(key, def), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func duration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %s", key)
	}
	if d <= 0 {
		return 0, errors.Newf("%s must be positive", key)
	}
	return d, nil
}

func integer(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %s", key)
	}
	return n, nil
}
