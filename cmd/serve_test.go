package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibast-solutions/ms-go-favorpay/app/backend"
	"github.com/vibast-solutions/ms-go-favorpay/app/backend/backendtest"
	"github.com/vibast-solutions/ms-go-favorpay/app/controller"
	"github.com/vibast-solutions/ms-go-favorpay/app/entity"
	"github.com/vibast-solutions/ms-go-favorpay/app/metrics"
	"github.com/vibast-solutions/ms-go-favorpay/app/notifier"
	"github.com/vibast-solutions/ms-go-favorpay/app/service"
	"github.com/vibast-solutions/ms-go-favorpay/app/session"
	"github.com/vibast-solutions/ms-go-favorpay/config"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	srv := backendtest.New(t)
	sess := session.New(nil)
	require.NoError(t, sess.SignIn(context.Background(), session.Tokens{AccessToken: backendtest.DefaultToken}, &entity.User{ID: "user-1"}))

	registry := prometheus.NewRegistry()
	m := metrics.NewClientMetrics(registry)
	client := backend.NewClient(backend.Config{BaseURL: srv.URL, Timeout: 5 * time.Second, Metrics: m}, sess)
	notices := notifier.NewRecorder(nil)
	badge := service.NewBadgeWatcher(client, notices, time.Minute, m)

	e := setupHTTPServer(bridgeControllers{
		paymentMethods: controller.NewPaymentMethodController(service.NewPaymentMethodService(client, nil, nil, nil, notices, sess, config.SetupConfig{}, m)),
		escrow:         controller.NewEscrowController(service.NewEscrowService(client)),
		notifications:  controller.NewNotificationController(badge, notices),
		session:        controller.NewSessionController(service.NewAuthService(client, sess, nil)),
		support:        controller.NewSupportController(service.NewSupportService(client)),
	}, nil, registry)

	return e
}

func serveRequest(h http.Handler, method, target, requestID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestBridgeHealthDoesNotNeedRequestID(t *testing.T) {
	h := newTestServer(t)

	rec := serveRequest(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBridgeRequiresRequestID(t *testing.T) {
	h := newTestServer(t)

	rec := serveRequest(h, http.MethodGet, "/api/v1/payment-methods", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "x-request-id header is required")
}

func TestBridgeRoutesToControllers(t *testing.T) {
	h := newTestServer(t)

	rec := serveRequest(h, http.MethodGet, "/api/v1/payment-methods", "req-1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))

	rec = serveRequest(h, http.MethodGet, "/api/v1/notifications/badge", "req-2")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBridgeExposesMetrics(t *testing.T) {
	h := newTestServer(t)

	serveRequest(h, http.MethodGet, "/api/v1/payment-methods", "req-1")

	rec := serveRequest(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "favorpay_api_requests_total")
}

func TestConfigureLogging(t *testing.T) {
	previous := logrus.GetLevel()
	t.Cleanup(func() { logrus.SetLevel(previous) })

	require.NoError(t, configureLogging(&config.Config{Log: config.LogConfig{Level: "debug"}}))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	assert.Error(t, configureLogging(&config.Config{Log: config.LogConfig{Level: "loud"}}))
}

func TestBridgeRoutesSessionFlows(t *testing.T) {
	h := newTestServer(t)

	rec := serveRequest(h, http.MethodPost, "/api/v1/session/otp/resend", "req-1")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serveRequest(h, http.MethodDelete, "/api/v1/session/credentials/jane@example.com", "req-2")
	assert.Equal(t, http.StatusOK, rec.Code)
}
