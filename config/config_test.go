package config

import (
	"os"
	"testing"
	"time"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("setenv %s failed: %v", key, err)
	}
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	_ = os.Unsetenv(key)
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		}
	})
}

func TestLoadRequiresAPIBaseURL(t *testing.T) {
	unsetEnv(t, "FAVORPAY_API_BASE_URL")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing FAVORPAY_API_BASE_URL")
	}
}

func TestLoadDefaults(t *testing.T) {
	setEnv(t, "FAVORPAY_API_BASE_URL", "https://api.favor.app")
	for _, key := range []string{"SETUP_INTENT_RETRY_BASE_MS", "SETUP_INTENT_RETRY_CAP_SECONDS", "SETUP_INTENT_MAX_RETRIES", "MYSQL_DSN", "REDIS_ADDR", "AUTH_SERVICE_GRPC_ADDR"} {
		unsetEnv(t, key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Setup.RetryBase != time.Second || cfg.Setup.RetryCap != 30*time.Second || cfg.Setup.MaxRetries != 2 {
		t.Fatalf("unexpected setup retry config: %+v", cfg.Setup)
	}
	if cfg.MySQL.DSN != "" || cfg.Redis.Addr != "" || cfg.InternalEndpoints.AuthGRPCAddr != "" {
		t.Fatal("expected optional stores to be disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	setEnv(t, "FAVORPAY_API_BASE_URL", "https://api.favor.app/api/v1")
	setEnv(t, "APP_SERVICE_NAME", "favorpay-test")
	setEnv(t, "HTTP_PORT", "8181")
	setEnv(t, "FAVORPAY_API_TIMEOUT_SECONDS", "20")
	setEnv(t, "MYSQL_DSN", "root:root@tcp(localhost:3306)/favorpay?parseTime=true")
	setEnv(t, "MYSQL_MAX_OPEN_CONNS", "20")
	setEnv(t, "MYSQL_CONN_MAX_LIFETIME_MINUTES", "40")
	setEnv(t, "REDIS_ADDR", "localhost:6379")
	setEnv(t, "REDIS_DB", "3")
	setEnv(t, "PAYMENT_METHODS_CACHE_TTL_SECONDS", "60")
	setEnv(t, "SETUP_INTENT_RETRY_BASE_MS", "250")
	setEnv(t, "SETUP_INTENT_MAX_RETRIES", "1")
	setEnv(t, "SETUP_INTENT_FORCE_NEW_CUSTOMER", "true")
	setEnv(t, "NOTIFICATIONS_POLL_INTERVAL_SECONDS", "15")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.App.ServiceName != "favorpay-test" || cfg.HTTP.Port != "8181" {
		t.Fatalf("unexpected app config: %+v %+v", cfg.App, cfg.HTTP)
	}
	if cfg.Backend.BaseURL != "https://api.favor.app/api/v1" || cfg.Backend.Timeout != 20*time.Second {
		t.Fatalf("unexpected backend config: %+v", cfg.Backend)
	}
	if cfg.MySQL.MaxOpenConns != 20 || cfg.MySQL.ConnMaxLifetime != 40*time.Minute {
		t.Fatalf("unexpected mysql config: %+v", cfg.MySQL)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 3 || cfg.Redis.CacheTTL != time.Minute {
		t.Fatalf("unexpected redis config: %+v", cfg.Redis)
	}
	if cfg.Setup.RetryBase != 250*time.Millisecond || cfg.Setup.MaxRetries != 1 || !cfg.Setup.ForceNewCustomer {
		t.Fatalf("unexpected setup config: %+v", cfg.Setup)
	}
	if cfg.Notifications.PollInterval != 15*time.Second {
		t.Fatalf("unexpected poll interval: %v", cfg.Notifications.PollInterval)
	}
}
