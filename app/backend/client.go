package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-favorpay/app/factory"
	"github.com/vibast-solutions/ms-go-favorpay/app/metrics"
)

const (
	APIBasePath = "/api/v1"

	defaultTimeout  = 30 * time.Second
	maxResponseSize = 1 << 20

	headerRequestID = "X-Request-ID"
)

// unauthenticatedPaths never carry a bearer token and never trigger logout.
var unauthenticatedPaths = map[string]struct{}{
	pathRegister:        {},
	pathLogin:           {},
	pathResendOTP:       {},
	pathVerifyOTP:       {},
	pathForgotPassword:  {},
	pathVerifyResetCode: {},
	pathResetPassword:   {},
}

// TokenSource hands out the current bearer token and clears it on a 401.
// Invalidate must only act when token is still the current one so that
// concurrent 401s produce a single logout.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate(ctx context.Context, token string) bool
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
	Metrics    *metrics.ClientMetrics
}

type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	tokens    TokenSource
	metrics   *metrics.ClientMetrics
	logger    logrus.FieldLogger
}

type request struct {
	method string
	path   string
	// route is the metrics label; defaults to path.
	route string
	query url.Values
	body  any
}

func NewClient(cfg Config, tokens TokenSource) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:   normalizeBaseURL(cfg.BaseURL),
		userAgent: strings.TrimSpace(cfg.UserAgent),
		http:      httpClient,
		tokens:    tokens,
		metrics:   cfg.Metrics,
		logger:    factory.NewModuleLogger("backend-client"),
	}
}

func normalizeBaseURL(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if strings.HasSuffix(base, APIBasePath) {
		return base
	}
	base = strings.TrimSuffix(base, "/api")
	return base + APIBasePath
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	start := time.Now()
	route := r.route
	if route == "" {
		route = r.path
	}

	err := c.send(ctx, r, out)

	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
	}
	c.metrics.ObserveRequest(r.method, route, outcome, time.Since(start))
	return err
}

func (c *Client) send(ctx context.Context, r request, out any) error {
	_, public := unauthenticatedPaths[r.path]

	var token string
	if !public {
		var err error
		token, err = c.tokens.Token(ctx)
		if err != nil {
			c.logger.WithError(err).Warn("token_lookup_failed")
		}
		if token == "" {
			return newError(KindAuthenticationRequired, err)
		}
	}

	var bodyReader io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return newError(KindBadRequest, err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	endpoint := c.baseURL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, bodyReader)
	if err != nil {
		return newError(KindBadRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	requestID := uuid.NewString()
	req.Header.Set(headerRequestID, requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	l := c.logger.WithFields(logrus.Fields{
		"method":     r.method,
		"path":       r.path,
		"request_id": requestID,
	})

	resp, err := c.http.Do(req)
	if err != nil {
		l.WithError(err).Warn("backend_request_failed")
		return newError(KindNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		l.WithError(err).Warn("backend_response_read_failed")
		return newError(KindNetwork, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return c.handleUnauthorized(ctx, l, r.path, public, token, body)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newHTTPError(resp.StatusCode, body)
		l.WithField("status", resp.StatusCode).WithField("kind", apiErr.Kind).Info("backend_request_rejected")
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		l.WithError(err).Error("backend_response_decode_failed")
		decodeErr := newError(KindServer, err)
		decodeErr.Status = resp.StatusCode
		decodeErr.Body = body
		return decodeErr
	}

	return nil
}

func (c *Client) handleUnauthorized(ctx context.Context, l logrus.FieldLogger, path string, public bool, token string, body []byte) error {
	if public || path == pathValidatePassword {
		return newHTTPErrorKind(KindInvalidCredentials, http.StatusUnauthorized, body)
	}

	if c.tokens.Invalidate(ctx, token) {
		c.metrics.IncAuthInvalidation()
		l.Warn("session_invalidated")
	}

	return newHTTPError(http.StatusUnauthorized, body)
}
