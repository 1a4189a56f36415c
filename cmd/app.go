package cmd

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-favorpay/app/backend"
	"github.com/vibast-solutions/ms-go-favorpay/app/entity"
	"github.com/vibast-solutions/ms-go-favorpay/app/metrics"
	"github.com/vibast-solutions/ms-go-favorpay/app/notifier"
	"github.com/vibast-solutions/ms-go-favorpay/app/provider"
	"github.com/vibast-solutions/ms-go-favorpay/app/repository"
	"github.com/vibast-solutions/ms-go-favorpay/app/service"
	"github.com/vibast-solutions/ms-go-favorpay/app/session"
	"github.com/vibast-solutions/ms-go-favorpay/config"
)

// Optional stores stay nil interfaces when their backing service is not
// configured.
type paymentMethodCache interface {
	Get(ctx context.Context, key string) (*backend.PaymentMethodList, bool, error)
	Set(ctx context.Context, key string, list *backend.PaymentMethodList) error
	Invalidate(ctx context.Context, key string) error
}

type intentSnapshotStore interface {
	Create(ctx context.Context, snapshot *entity.IntentSnapshot) error
	Update(ctx context.Context, snapshot *entity.IntentSnapshot) error
	ListRecent(ctx context.Context, limit int) ([]*entity.IntentSnapshot, error)
}

type savedCredentialStore interface {
	Remember(ctx context.Context, email string, usedAt time.Time) error
	List(ctx context.Context) ([]*entity.SavedCredential, error)
	Forget(ctx context.Context, email string) error
}

type app struct {
	cfg                  *config.Config
	session              *session.Session
	notices              *notifier.Recorder
	paymentMethodService *service.PaymentMethodService
	escrowService        *service.EscrowService
	authService          *service.AuthService
	supportService       *service.SupportService
	badgeWatcher         *service.BadgeWatcher
}

// mustCreateApp wires the client. MySQL and Redis are optional: without them
// tokens live in memory and payment methods are not cached.
func mustCreateApp(reg prometheus.Registerer) (*app, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var (
		tokenStore  session.TokenStore = session.NewMemoryStore()
		snapshots   intentSnapshotStore
		credentials savedCredentialStore
		cache       paymentMethodCache
	)

	if cfg.MySQL.DSN != "" {
		db := mustOpenDatabase(cfg)
		closers = append(closers, func() {
			if err := db.Close(); err != nil {
				logrus.WithError(err).Warn("Failed to close database")
			}
		})
		tokenStore = repository.NewTokenRepository(db, cfg.App.Profile)
		snapshots = repository.NewIntentSnapshotRepository(db)
		credentials = repository.NewSavedCredentialRepository(db, cfg.App.Profile)
	} else {
		logrus.Info("MYSQL_DSN not set, keeping session state in memory")
	}

	if cfg.Redis.Addr != "" {
		client := mustOpenRedis(cfg)
		closers = append(closers, func() {
			if err := client.Close(); err != nil {
				logrus.WithError(err).Warn("Failed to close redis")
			}
		})
		cache = repository.NewPaymentMethodCache(client, cfg.Redis.CacheTTL)
	}

	sdk, err := provider.NewStripeSDK(provider.StripeConfig{
		PublishableKey: cfg.Stripe.PublishableKey,
		APIBaseURL:     cfg.Stripe.APIBaseURL,
		HTTPTimeout:    cfg.Stripe.HTTPTimeout,
	})
	if err != nil {
		cleanup()
		logrus.WithError(err).Fatal("Invalid Stripe configuration")
	}

	clientMetrics := metrics.NewClientMetrics(reg)
	sess := session.New(tokenStore)
	api := backend.NewClient(backend.Config{
		BaseURL:   cfg.Backend.BaseURL,
		Timeout:   cfg.Backend.Timeout,
		UserAgent: cfg.Backend.UserAgent,
		Metrics:   clientMetrics,
	}, sess)
	notices := notifier.NewRecorder(notifier.NewLogNotifier())

	badgeWatcher := service.NewBadgeWatcher(api, notices, cfg.Notifications.PollInterval, clientMetrics)
	sess.Subscribe(func(event session.Event) {
		badgeWatcher.Reset()
		if event.Reason != session.ReasonLogout {
			notices.Notify(context.Background(), notifier.Notice{
				Level:   notifier.LevelInfo,
				Title:   "Signed out",
				Message: "Your session has expired. Please sign in again.",
			})
		}
	})

	return &app{
		cfg:     cfg,
		session: sess,
		notices: notices,
		paymentMethodService: service.NewPaymentMethodService(
			api,
			sdk,
			cache,
			snapshots,
			notices,
			sess,
			cfg.Setup,
			clientMetrics,
		),
		escrowService:  service.NewEscrowService(api),
		authService:    service.NewAuthService(api, sess, credentials),
		supportService: service.NewSupportService(api),
		badgeWatcher:   badgeWatcher,
	}, cleanup
}

func mustOpenDatabase(cfg *config.Config) *sql.DB {
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}
	return db
}

func mustOpenRedis(cfg *config.Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		logrus.WithError(err).Fatal("Failed to ping redis")
	}
	return client
}
