package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	Log               LogConfig
	Backend           BackendConfig
	Stripe            StripeConfig
	MySQL             MySQLConfig
	Redis             RedisConfig
	Setup             SetupConfig
	Notifications     NotificationsConfig
	InternalEndpoints InternalEndpointsConfig
}

type AppConfig struct {
	ServiceName string
	// Profile keys the persisted client state when several accounts share a store.
	Profile string
}

type ServerConfig struct {
	Host string
	Port string
}

type LogConfig struct {
	Level string
}

type BackendConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

type StripeConfig struct {
	PublishableKey string
	APIBaseURL     string
	HTTPTimeout    time.Duration
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type SetupConfig struct {
	RetryBase        time.Duration
	RetryCap         time.Duration
	MaxRetries       uint64
	ForceNewCustomer bool
	SnapshotLimit    int
}

type NotificationsConfig struct {
	PollInterval time.Duration
}

type InternalEndpointsConfig struct {
	// AuthGRPCAddr enables the internal-access guard on the bridge when set.
	AuthGRPCAddr string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	baseURL := strings.TrimSpace(os.Getenv("FAVORPAY_API_BASE_URL"))
	if baseURL == "" {
		return nil, errors.New("FAVORPAY_API_BASE_URL environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "favorpay"),
			Profile:     getEnv("FAVORPAY_PROFILE", "default"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "127.0.0.1"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Backend: BackendConfig{
			BaseURL:   baseURL,
			Timeout:   getSecondsEnv("FAVORPAY_API_TIMEOUT_SECONDS", 30*time.Second),
			UserAgent: getEnv("FAVORPAY_USER_AGENT", "favorpay-go"),
		},
		Stripe: StripeConfig{
			PublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
			APIBaseURL:     getEnv("STRIPE_API_BASE_URL", "https://api.stripe.com"),
			HTTPTimeout:    getSecondsEnv("STRIPE_HTTP_TIMEOUT_SECONDS", 20*time.Second),
		},
		MySQL: MySQLConfig{
			DSN:             getEnv("MYSQL_DSN", ""),
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 5),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			CacheTTL: getSecondsEnv("PAYMENT_METHODS_CACHE_TTL_SECONDS", 5*time.Minute),
		},
		Setup: SetupConfig{
			RetryBase:        getMillisEnv("SETUP_INTENT_RETRY_BASE_MS", time.Second),
			RetryCap:         getSecondsEnv("SETUP_INTENT_RETRY_CAP_SECONDS", 30*time.Second),
			MaxRetries:       uint64(getIntEnv("SETUP_INTENT_MAX_RETRIES", 2)),
			ForceNewCustomer: getBoolEnv("SETUP_INTENT_FORCE_NEW_CUSTOMER", false),
			SnapshotLimit:    getIntEnv("INTENT_SNAPSHOT_LIMIT", 20),
		},
		Notifications: NotificationsConfig{
			PollInterval: getSecondsEnv("NOTIFICATIONS_POLL_INTERVAL_SECONDS", 30*time.Second),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", ""),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getMillisEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if millis, err := strconv.Atoi(value); err == nil {
			return time.Duration(millis) * time.Millisecond
		}
	}
	return defaultValue
}
