package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Classifier   ClassifierConfig
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

// PostgresConfig holds DB connection values. An empty DSN selects the in-memory stores.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
	ConnectRetries int
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig points at the external identity provider.
type AuthConfig struct {
	ProviderURL          string
	ProviderAPIKey       string
	VerifyTimeoutSeconds int
	DegradedModeEnabled  bool
}

// ClassifierConfig configures the generative classifier and its cache.
type ClassifierConfig struct {
	AnthropicAPIKey   string
	Model             string
	TimeoutSeconds    int
	CacheTTLMinutes   int
	MaxResponseTokens int
}

// NotificationConfig holds outbound mail and event mirror settings.
type NotificationConfig struct {
	SMTPHost           string
	SMTPPort           int
	SMTPUsername       string
	SMTPPassword       string
	EmailFrom          string
	SendTimeoutSeconds int
	MaxRetries         int
	AMQPURL            string
	AMQPQueue          string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "complaint-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "5000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
			ConnectRetries: getEnvAsInt("POSTGRES_CONNECT_RETRIES", 5),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			ProviderURL:          os.Getenv("AUTH_PROVIDER_URL"),
			ProviderAPIKey:       os.Getenv("AUTH_PROVIDER_API_KEY"),
			VerifyTimeoutSeconds: getEnvAsInt("AUTH_VERIFY_TIMEOUT_SECONDS", 5),
			DegradedModeEnabled:  getEnvAsBool("AUTH_DEGRADED_MODE_ENABLED", true),
		},
		Classifier: ClassifierConfig{
			AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
			Model:             getEnv("CLASSIFIER_MODEL", "claude-3-5-haiku-latest"),
			TimeoutSeconds:    getEnvAsInt("CLASSIFIER_TIMEOUT_SECONDS", 10),
			CacheTTLMinutes:   getEnvAsInt("CLASSIFIER_CACHE_TTL_MINUTES", 1440),
			MaxResponseTokens: getEnvAsInt("CLASSIFIER_MAX_RESPONSE_TOKENS", 512),
		},
		Notification: NotificationConfig{
			SMTPHost:           getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:           smtpPort,
			SMTPUsername:       os.Getenv("SMTP_USERNAME"),
			SMTPPassword:       os.Getenv("SMTP_PASSWORD"),
			EmailFrom:          os.Getenv("NOTIFY_EMAIL_FROM"),
			SendTimeoutSeconds: getEnvAsInt("NOTIFY_SEND_TIMEOUT_SECONDS", 15),
			MaxRetries:         getEnvAsInt("NOTIFY_MAX_RETRIES", 2),
			AMQPURL:            os.Getenv("AMQP_URL"),
			AMQPQueue:          getEnv("AMQP_QUEUE", "complaint.events"),
		},
	}

	return cfg, nil
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	if c.Auth.ProviderURL == "" {
		return errors.New("AUTH_PROVIDER_URL is required")
	}
	if c.Auth.VerifyTimeoutSeconds <= 0 {
		return fmt.Errorf("AUTH_VERIFY_TIMEOUT_SECONDS must be positive, got %d", c.Auth.VerifyTimeoutSeconds)
	}
	if c.Notification.MailEnabled() && c.Notification.EmailFrom == "" {
		c.Notification.EmailFrom = c.Notification.SMTPUsername
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	return seconds(a.RequestTimeoutSeconds)
}

// VerifyTimeout bounds a single call to the identity provider.
func (a AuthConfig) VerifyTimeout() time.Duration {
	return seconds(a.VerifyTimeoutSeconds)
}

// Timeout bounds a single classification call.
func (c ClassifierConfig) Timeout() time.Duration {
	return seconds(c.TimeoutSeconds)
}

// CacheTTL is how long model classifications are cached.
func (c ClassifierConfig) CacheTTL() time.Duration {
	if c.CacheTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// MailEnabled reports whether outbound-mail credentials are configured.
func (n NotificationConfig) MailEnabled() bool {
	return n.SMTPUsername != "" && n.SMTPPassword != ""
}

// SendTimeout bounds one notification dispatch including retries.
func (n NotificationConfig) SendTimeout() time.Duration {
	return seconds(n.SendTimeoutSeconds)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
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
