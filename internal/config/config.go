// Package config loads process configuration from the environment once at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	defaultJWTSecret = "dev-insecure-secret"
)

type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Database   DatabaseConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Kafka      KafkaConfig
	Automation AutomationConfig
}

type ServerConfig struct {
	Port        string
	Environment string
	CORSOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

type DatabaseConfig struct {
	DSN string
}

type AuthConfig struct {
	JWTSecret    string
	SessionTTL   time.Duration
	AdminUserIDs []string
	DemoMode     bool
}

type RateLimitConfig struct {
	Store       string
	RedisURL    string
	Window      time.Duration
	QueryMax    int
	MutationMax int
	AIMax       int
}

type KafkaConfig struct {
	Brokers     []string
	EventsTopic string
}

type AutomationConfig struct {
	GeminiAPIKey     string
	GeminiModel      string
	CredentialsFile  string
	TokenFile        string
	SyncInterval     time.Duration
	MailboxUserEmail string
	// InteractiveOAuth allows the consent flow on stdin when no token file exists.
	InteractiveOAuth bool
}

// Production reports whether the process runs with production error sanitization.
func (c Config) Production() bool {
	return c.Server.Environment == EnvProduction
}

func Load() (Config, error) {
	_ = godotenv.Load()

	env := strings.ToLower(getEnv("APP_ENV", EnvDevelopment))
	if env != EnvDevelopment && env != EnvProduction {
		return Config{}, fmt.Errorf("invalid APP_ENV: %q", env)
	}

	auth, err := buildAuthConfig(env)
	if err != nil {
		return Config{}, err
	}

	rateLimit, err := buildRateLimitConfig()
	if err != nil {
		return Config{}, err
	}

	automation, err := buildAutomationConfig()
	if err != nil {
		return Config{}, err
	}

	return Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: env,
			CORSOrigins: splitList(os.Getenv("CORS_ORIGINS")),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", defaultLogFormat(env)),
		},
		Database: DatabaseConfig{
			DSN: getEnv("DATABASE_URL", "host=localhost user=postgres password=password dbname=jobtracker port=5432 sslmode=disable"),
		},
		Auth:      auth,
		RateLimit: rateLimit,
		Kafka: KafkaConfig{
			Brokers:     splitList(os.Getenv("KAFKA_BROKERS")),
			EventsTopic: getEnv("KAFKA_EVENTS_TOPIC", "jobtracker.events"),
		},
		Automation: automation,
	}, nil
}

func buildAuthConfig(env string) (AuthConfig, error) {
	secret := getEnv("JWT_SECRET", defaultJWTSecret)
	if env == EnvProduction && secret == defaultJWTSecret {
		return AuthConfig{}, fmt.Errorf("JWT_SECRET must be set in production")
	}

	ttl, err := getDuration("SESSION_TTL", 7*24*time.Hour)
	if err != nil {
		return AuthConfig{}, err
	}

	demo, err := getBool("DEMO_MODE", false)
	if err != nil {
		return AuthConfig{}, err
	}

	return AuthConfig{
		JWTSecret:    secret,
		SessionTTL:   ttl,
		AdminUserIDs: splitList(os.Getenv("ADMIN_USER_IDS")),
		DemoMode:     demo,
	}, nil
}

func buildRateLimitConfig() (RateLimitConfig, error) {
	store := strings.ToLower(getEnv("RATE_LIMIT_STORE", "memory"))
	if store != "memory" && store != "redis" {
		return RateLimitConfig{}, fmt.Errorf("unsupported RATE_LIMIT_STORE: %s", store)
	}

	window, err := getDuration("RATE_LIMIT_WINDOW", time.Minute)
	if err != nil {
		return RateLimitConfig{}, err
	}
	queryMax, err := getInt("RATE_LIMIT_QUERY_MAX", 100)
	if err != nil {
		return RateLimitConfig{}, err
	}
	mutationMax, err := getInt("RATE_LIMIT_MUTATION_MAX", 30)
	if err != nil {
		return RateLimitConfig{}, err
	}
	aiMax, err := getInt("RATE_LIMIT_AI_MAX", 5)
	if err != nil {
		return RateLimitConfig{}, err
	}

	return RateLimitConfig{
		Store:       store,
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		Window:      window,
		QueryMax:    queryMax,
		MutationMax: mutationMax,
		AIMax:       aiMax,
	}, nil
}

func buildAutomationConfig() (AutomationConfig, error) {
	interval, err := getDuration("EMAIL_SYNC_INTERVAL", 15*time.Minute)
	if err != nil {
		return AutomationConfig{}, err
	}
	interactive, err := getBool("GMAIL_INTERACTIVE_OAUTH", false)
	if err != nil {
		return AutomationConfig{}, err
	}

	return AutomationConfig{
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		CredentialsFile:  getEnv("GMAIL_CREDENTIALS_FILE", "credential.json"),
		TokenFile:        getEnv("GMAIL_TOKEN_FILE", "token.json"),
		SyncInterval:     interval,
		MailboxUserEmail: strings.ToLower(os.Getenv("GMAIL_MAILBOX_USER")),
		InteractiveOAuth: interactive,
	}, nil
}

func defaultLogFormat(env string) string {
	if env == EnvProduction {
		return "json"
	}
	return "console"
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
