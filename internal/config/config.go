package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the bot.
type Config struct {
	App          AppConfig
	Slack        SlackConfig
	Anthropic    AnthropicConfig
	Bot          BotConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Admin        AdminConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// SlackConfig holds the Socket Mode credentials.
type SlackConfig struct {
	BotToken string
	AppToken string
}

// AnthropicConfig configures the chat-completion backend.
type AnthropicConfig struct {
	APIKey       string
	Model        string
	MaxTokens    int
	SystemPrompt string
}

// BotConfig tunes the dispatch and conversation-context behavior.
type BotConfig struct {
	ContextCapacity   int
	QueueSize         int
	SessionTTLMinutes int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. Leaving Addr empty keeps ticket
// sessions in process memory (drafts then do not survive restarts).
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AdminConfig protects the operator HTTP surface.
type AdminConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	PasswordHash          string
}

// NotificationConfig holds optional ticket-event notification endpoints.
type NotificationConfig struct {
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-bot"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Slack: SlackConfig{
			BotToken: os.Getenv("SLACK_BOT_TOKEN"),
			AppToken: os.Getenv("SLACK_APP_TOKEN"),
		},
		Anthropic: AnthropicConfig{
			APIKey:       os.Getenv("ANTHROPIC_API_KEY"),
			Model:        getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
			MaxTokens:    getEnvAsInt("ANTHROPIC_MAX_TOKENS", 1024),
			SystemPrompt: getEnv("ANTHROPIC_SYSTEM_PROMPT", "You are a concise helpdesk assistant."),
		},
		Bot: BotConfig{
			ContextCapacity:   getEnvAsInt("BOT_CONTEXT_CAPACITY", 20),
			QueueSize:         getEnvAsInt("BOT_QUEUE_SIZE", 16),
			SessionTTLMinutes: getEnvAsInt("BOT_SESSION_TTL_MINUTES", 0),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Admin: AdminConfig{
			JWTSecret:             getEnv("ADMIN_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("ADMIN_ACCESS_TOKEN_TTL_MINUTES", 60),
			PasswordHash:          os.Getenv("ADMIN_PASSWORD_HASH"),
		},
		Notification: NotificationConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SessionTTL returns the draft expiry, zero meaning no expiry.
func (b BotConfig) SessionTTL() time.Duration {
	if b.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(b.SessionTTLMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
