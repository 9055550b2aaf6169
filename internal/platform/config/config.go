package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store selects the case repository backend.
type Store string

const (
	StoreMemory   Store = "memory"
	StorePostgres Store = "postgres"
	StoreRedis    Store = "redis"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	Store         Store
	DatabaseURL   string
	Redis         RedisConfig
	Kafka         KafkaConfig
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	AdminToken    string
	LogLevel      string
	LogFormat     string
	PolicyFile    string

	// CaseNumberAttempts bounds regeneration when a case number is already taken.
	CaseNumberAttempts int
}

// RedisConfig configures the go-redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	KeyPrefix    string
}

// KafkaConfig configures audit export. No brokers means events stay in process.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:          envOr("CASEWORK_ADDR", ":8080"),
		Store:         Store(strings.ToLower(envOr("CASEWORK_STORE", string(StoreMemory)))),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSigningKey: os.Getenv("CASEWORK_JWT_SIGNING_KEY"),
		JWTIssuer:     envOr("CASEWORK_JWT_ISSUER", "casework"),
		JWTAudience:   envOr("CASEWORK_JWT_AUDIENCE", "casework-api"),
		AdminToken:    os.Getenv("CASEWORK_ADMIN_TOKEN"),
		LogLevel:      envOr("LOG_LEVEL", "info"),
		LogFormat:     envOr("LOG_FORMAT", "json"),
		PolicyFile:    os.Getenv("CASEWORK_POLICY_FILE"),
		Redis: RedisConfig{
			URL:       os.Getenv("REDIS_URL"),
			KeyPrefix: envOr("REDIS_KEY_PREFIX", "casework"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("CASEWORK_AUDIT_TOPIC", "casework.case-audit"),
		},
	}
	if cfg.JWTSigningKey == "" {
		// Use a default for development - should be overridden in production
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}

	var err error
	if cfg.CaseNumberAttempts, err = envInt("CASEWORK_CASE_NUMBER_ATTEMPTS", 5); err != nil {
		return Server{}, err
	}
	if cfg.Redis.PoolSize, err = envInt("REDIS_POOL_SIZE", 10); err != nil {
		return Server{}, err
	}
	if cfg.Redis.MinIdleConns, err = envInt("REDIS_MIN_IDLE_CONNS", 2); err != nil {
		return Server{}, err
	}
	if cfg.Redis.DialTimeout, err = envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Redis.ReadTimeout, err = envDuration("REDIS_READ_TIMEOUT", 3*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Redis.WriteTimeout, err = envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second); err != nil {
		return Server{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks that the selected store has what it needs.
func (s Server) Validate() error {
	switch s.Store {
	case StoreMemory:
	case StorePostgres:
		if s.DatabaseURL == "" {
			return fmt.Errorf("CASEWORK_STORE=postgres requires DATABASE_URL")
		}
	case StoreRedis:
		if s.Redis.URL == "" {
			return fmt.Errorf("CASEWORK_STORE=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown CASEWORK_STORE %q", s.Store)
	}
	if s.CaseNumberAttempts < 1 {
		return fmt.Errorf("CASEWORK_CASE_NUMBER_ATTEMPTS must be at least 1")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
