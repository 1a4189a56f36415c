package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	authclient "github.com/vibast-solutions/lib-go-auth/client"
	authmiddleware "github.com/vibast-solutions/lib-go-auth/middleware"
	authlibservice "github.com/vibast-solutions/lib-go-auth/service"
	"github.com/vibast-solutions/ms-go-favorpay/app/controller"
	"github.com/vibast-solutions/ms-go-favorpay/app/types"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local bridge",
	Long:  "Start the HTTP bridge for the app UI and poll the notification badge in the background.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type bridgeControllers struct {
	paymentMethods *controller.PaymentMethodController
	escrow         *controller.EscrowController
	notifications  *controller.NotificationController
	session        *controller.SessionController
	support        *controller.SupportController
}

func runServe(_ *cobra.Command, _ []string) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, cleanup := mustCreateApp(registry)
	defer cleanup()

	controllers := bridgeControllers{
		paymentMethods: controller.NewPaymentMethodController(a.paymentMethodService),
		escrow:         controller.NewEscrowController(a.escrowService),
		notifications:  controller.NewNotificationController(a.badgeWatcher, a.notices),
		session:        controller.NewSessionController(a.authService),
		support:        controller.NewSupportController(a.supportService),
	}

	var guard echo.MiddlewareFunc
	if addr := a.cfg.InternalEndpoints.AuthGRPCAddr; addr != "" {
		authGRPCClient, err := authclient.NewGRPCClientFromAddr(context.Background(), addr)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to initialize auth gRPC client")
		}
		defer authGRPCClient.Close()

		internalAuthService := authlibservice.NewInternalAuthService(authGRPCClient)
		guard = authmiddleware.NewEchoInternalAuthMiddleware(internalAuthService).RequireInternalAccess(a.cfg.App.ServiceName)
	}

	e := setupHTTPServer(controllers, guard, registry)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		httpAddr := net.JoinHostPort(a.cfg.HTTP.Host, a.cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logrus.WithField("interval", a.cfg.Notifications.PollInterval.String()).Info("Starting badge watcher")
		return a.badgeWatcher.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logrus.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("HTTP shutdown error")
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logrus.WithError(err).Error("Bridge stopped with error")
		return
	}
	logrus.Info("Server stopped")
}

func setupHTTPServer(c bridgeControllers, guard echo.MiddlewareFunc, gatherer prometheus.Gatherer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
				"request_id": v.RequestID,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/health", c.paymentMethods.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := e.Group("/api/v1", requireRequestID())
	if guard != nil {
		api.Use(guard)
	}

	paymentMethods := api.Group("/payment-methods")
	paymentMethods.POST("", c.paymentMethods.SetupPaymentMethod)
	paymentMethods.GET("", c.paymentMethods.ListPaymentMethods)
	paymentMethods.GET("/attempts", c.paymentMethods.ListAttempts)
	paymentMethods.DELETE("/:id", c.paymentMethods.DeletePaymentMethod)

	api.GET("/escrow-transactions", c.escrow.ListEscrowTransactions)
	escrow := api.Group("/favors/:favor_id/escrow")
	escrow.GET("", c.escrow.GetEscrow)
	escrow.POST("/dispute", c.escrow.Dispute)
	escrow.POST("/resolve", c.escrow.Resolve)
	escrow.POST("/manual-release", c.escrow.ManualRelease)
	escrow.POST("/cancel", c.escrow.Cancel)

	notifications := api.Group("/notifications")
	notifications.GET("", c.notifications.ListNotifications)
	notifications.GET("/badge", c.notifications.Badge)
	notifications.POST("/read-all", c.notifications.MarkAllAsRead)
	notifications.POST("/:id/read", c.notifications.MarkAsRead)
	api.GET("/notices", c.notifications.Notices)

	sessions := api.Group("/session")
	sessions.POST("", c.session.Login)
	sessions.DELETE("", c.session.Logout)
	sessions.GET("/me", c.session.Me)
	sessions.POST("/validate-password", c.session.ValidatePassword)
	sessions.GET("/credentials", c.session.SavedCredentials)
	sessions.DELETE("/credentials/:email", c.session.ForgetCredential)
	sessions.POST("/register", c.session.Register)
	sessions.POST("/otp/verify", c.session.VerifyOTP)
	sessions.POST("/otp/resend", c.session.ResendOTP)
	sessions.POST("/password/forgot", c.session.ForgotPassword)
	sessions.POST("/password/verify", c.session.VerifyResetCode)
	sessions.POST("/password/reset", c.session.ResetPassword)

	api.POST("/support-tickets", c.support.CreateTicket)

	return e
}

func requireRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "x-request-id header is required"})
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}
