// Package backendtest runs an in-process FavorApp backend for tests.
package backendtest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-favorpay/app/entity"
)

const (
	DefaultEmail    = "jane@example.com"
	DefaultPassword = "Secret123!"
	DefaultToken    = "token-1"

	prefix = "/api/v1"
)

var publicRoutes = map[string]struct{}{
	prefix + "/auth/register":          {},
	prefix + "/auth/login":             {},
	prefix + "/auth/resend_otp":        {},
	prefix + "/auth/verify_otp":        {},
	prefix + "/auth/forgot_password":   {},
	prefix + "/auth/verify_reset_code": {},
	prefix + "/auth/reset_password":    {},
}

// Failure is a canned response returned instead of the normal handler.
type Failure struct {
	Status int
	Body   any
	// Times limits how often the failure fires; zero means always.
	Times int
}

type Server struct {
	URL string

	srv *httptest.Server

	mu                sync.Mutex
	token             string
	user              entity.User
	password          string
	clientSecret      string
	intentSeq         int
	methodSeq         int
	methods           []entity.PaymentMethod
	usedIntents       map[string]bool
	nextCard          entity.Card
	merchant          entity.MerchantAccount
	unreadCount       int
	notifications     []entity.Notification
	escrows           map[string]*entity.EscrowTransaction
	failures          map[string]*Failure
	calls             map[string]int
	lastForceCustomer bool
}

// New starts a fake backend and stops it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		token:       DefaultToken,
		password:    DefaultPassword,
		user:        entity.User{ID: "user-1", Email: DefaultEmail, FirstName: "Jane", LastName: "Doe"},
		usedIntents: map[string]bool{},
		nextCard:    entity.Card{Brand: "visa", Last4: "4242", ExpMonth: 12, ExpYear: 2030, Funding: "credit", Country: "US"},
		merchant:    entity.MerchantAccount{AccountID: "acct_1", AccountType: "express"},
		escrows:     map[string]*entity.EscrowTransaction{},
		failures:    map[string]*Failure{},
		calls:       map[string]int{},
	}

	s.srv = httptest.NewServer(s.routes())
	s.URL = s.srv.URL
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(s.intercept)

	api := e.Group(prefix)
	api.POST("/auth/login", s.login)
	api.POST("/auth/register", s.register)
	api.POST("/auth/resend_otp", s.message("OTP sent"))
	api.POST("/auth/verify_otp", s.verifyOTP)
	api.POST("/auth/forgot_password", s.message("Reset code sent"))
	api.POST("/auth/verify_reset_code", s.verifyResetCode)
	api.POST("/auth/reset_password", s.message("Password updated"))
	api.POST("/auth/validate_password", s.validatePassword)
	api.DELETE("/auth/logout", s.message("Logged out"))
	api.GET("/users/me", s.currentUser)

	api.POST("/stripe_connect/create_account", s.createConnectAccount)
	api.POST("/payment_methods/setup_intent", s.createSetupIntent)
	api.POST("/payment_methods", s.savePaymentMethod)
	api.GET("/payment_methods", s.listPaymentMethods)
	api.DELETE("/payment_methods/:id", s.deletePaymentMethod)

	api.GET("/notifications/count", s.notificationCount)
	api.GET("/notifications", s.listNotifications)
	api.PATCH("/notifications/mark_all_as_read", s.markAllRead)
	api.PATCH("/notifications/:id/mark_as_read", s.markRead)

	api.GET("/escrow_transactions", s.listEscrows)
	api.GET("/favors/:id/escrow", s.getEscrow)
	api.POST("/favors/:id/escrow/dispute", s.disputeEscrow)
	api.POST("/favors/:id/escrow/resolve", s.resolveEscrow)
	api.POST("/favors/:id/escrow/manual_release", s.manualRelease)
	api.POST("/favors/:id/escrow/cancel", s.cancelEscrow)

	api.POST("/support_tickets", s.createSupportTicket)
	return e
}

func (s *Server) intercept(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := routeKey(c.Request().Method, c.Path())

		s.mu.Lock()
		s.calls[key]++
		failure := s.failures[key]
		if failure != nil && failure.Times > 0 {
			failure.Times--
			if failure.Times == 0 {
				delete(s.failures, key)
			}
		}
		token := s.token
		s.mu.Unlock()

		if _, public := publicRoutes[c.Path()]; !public {
			if c.Request().Header.Get("Authorization") != "Bearer "+token || token == "" {
				return c.JSON(http.StatusUnauthorized, map[string]any{"success": false, "message": "Not authenticated"})
			}
		}
		if failure != nil {
			return c.JSON(failure.Status, failure.Body)
		}
		return next(c)
	}
}

func routeKey(method, path string) string {
	return method + " " + strings.TrimPrefix(path, prefix)
}

// Fail makes the route (e.g. "POST /payment_methods/setup_intent") answer with
// status and body.
func (s *Server) Fail(route string, f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	failure := f
	s.failures[route] = &failure
}

// Calls returns how many requests hit route.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// SetToken changes the bearer token the server accepts; empty rejects all.
func (s *Server) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// SetClientSecret overrides the client secret of the next setup intents.
func (s *Server) SetClientSecret(secret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clientSecret = secret
}

func (s *Server) SetNextCard(card entity.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCard = card
}

func (s *Server) SetUnreadCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unreadCount = n
}

func (s *Server) AddNotification(n entity.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
	if n.ReadAt == nil {
		s.unreadCount++
	}
}

func (s *Server) PutEscrow(tx entity.EscrowTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := tx
	s.escrows[tx.FavorID] = &copied
}

func (s *Server) Escrow(favorID string) (entity.EscrowTransaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.escrows[favorID]
	if !ok {
		return entity.EscrowTransaction{}, false
	}
	return *tx, true
}

// PaymentMethods returns a copy of the stored methods in save order.
func (s *Server) PaymentMethods() []entity.PaymentMethod {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.PaymentMethod(nil), s.methods...)
}

func (s *Server) LastForceNewCustomer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastForceCustomer
}

func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]any{"success": false, "message": message})
}

func failWithCode(c echo.Context, status int, code, message string) error {
	return c.JSON(status, map[string]any{"success": false, "error_code": code, "message": message})
}

func (s *Server) message(text string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": text})
	}
}

func (s *Server) login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !strings.EqualFold(req.Email, s.user.Email) || req.Password != s.password {
		return fail(c, http.StatusUnauthorized, "Invalid email or password")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"token":         s.token,
		"refresh_token": "refresh-" + s.token,
		"user":          s.user,
	})
}

func (s *Server) register(c echo.Context) error {
	var req struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.EqualFold(req.Email, s.user.Email) {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{
			"success": false,
			"errors":  map[string][]string{"email": {"has already been taken"}},
		})
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"message": "OTP sent",
		"user":    entity.User{ID: "user-new", Email: req.Email, FirstName: req.FirstName, LastName: req.LastName},
	})
}

func (s *Server) verifyOTP(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"otp"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.Code != "123456" {
		return fail(c, http.StatusUnprocessableEntity, "Invalid OTP")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]any{
		"token":         s.token,
		"refresh_token": "refresh-" + s.token,
		"user":          entity.User{ID: "user-new", Email: req.Email},
	})
}

func (s *Server) verifyResetCode(c echo.Context) error {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.Code != "123456" {
		return fail(c, http.StatusUnprocessableEntity, "Invalid reset code")
	}
	return c.JSON(http.StatusOK, map[string]string{"reset_token": "reset-token-1"})
}

func (s *Server) validatePassword(c echo.Context) error {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if req.Password != s.password {
		return fail(c, http.StatusUnauthorized, "Current password is incorrect")
	}
	return c.JSON(http.StatusOK, map[string]bool{"valid": true})
}

func (s *Server) currentUser(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]any{"user": s.user})
}

func (s *Server) createConnectAccount(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account := s.merchant
	if s.calls[routeKey(http.MethodPost, prefix+"/stripe_connect/create_account")] > 1 {
		account.AlreadyExists = true
	}
	return c.JSON(http.StatusOK, account)
}

func (s *Server) createSetupIntent(c echo.Context) error {
	var req struct {
		ForceNewCustomer bool `json:"force_new_customer"`
	}
	_ = c.Bind(&req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastForceCustomer = req.ForceNewCustomer
	s.intentSeq++
	id := fmt.Sprintf("seti_%d", s.intentSeq)
	secret := id + "_secret_abc"
	if s.clientSecret != "" {
		secret = s.clientSecret
	}
	return c.JSON(http.StatusOK, entity.SetupIntent{
		ClientSecret:  secret,
		SetupIntentID: id,
		CustomerID:    "cus_1",
	})
}

func (s *Server) savePaymentMethod(c echo.Context) error {
	var req struct {
		SetupIntentID string `json:"setup_intent_id"`
	}
	if err := c.Bind(&req); err != nil || req.SetupIntentID == "" {
		return fail(c, http.StatusBadRequest, "setup_intent_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usedIntents[req.SetupIntentID] {
		return fail(c, http.StatusUnprocessableEntity, "This setup intent has already been used")
	}
	s.usedIntents[req.SetupIntentID] = true

	s.methodSeq++
	now := time.Now().UTC()
	pm := entity.PaymentMethod{
		ID:        fmt.Sprintf("pm_%d", s.methodSeq),
		Type:      "card",
		Card:      s.nextCard,
		IsDefault: len(s.methods) == 0,
		CreatedAt: &now,
	}
	s.methods = append(s.methods, pm)
	return c.JSON(http.StatusCreated, map[string]any{"payment_method": pm, "is_default": pm.IsDefault})
}

func (s *Server) listPaymentMethods(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var defaultID *string
	for _, pm := range s.methods {
		if pm.IsDefault {
			id := pm.ID
			defaultID = &id
		}
	}
	methods := append([]entity.PaymentMethod{}, s.methods...)
	return c.JSON(http.StatusOK, map[string]any{
		"payment_methods":           methods,
		"has_payment_method":        len(methods) > 0,
		"default_payment_method_id": defaultID,
	})
}

func (s *Server) deletePaymentMethod(c echo.Context) error {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, pm := range s.methods {
		if pm.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fail(c, http.StatusNotFound, "Payment method not found")
	}

	wasDefault := s.methods[idx].IsDefault
	s.methods = append(s.methods[:idx], s.methods[idx+1:]...)
	if wasDefault && len(s.methods) > 0 {
		s.methods[0].IsDefault = true
	}
	return c.JSON(http.StatusOK, map[string]string{"deleted_payment_method_id": id})
}

func (s *Server) notificationCount(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]int{"unread_count": s.unreadCount})
}

func (s *Server) listNotifications(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := append([]entity.Notification{}, s.notifications...)
	return c.JSON(http.StatusOK, map[string]any{
		"notifications": items,
		"unread_count":  s.unreadCount,
		"meta":          map[string]int{"current_page": 1, "per_page": len(items), "total_pages": 1, "total_count": len(items)},
	})
}

func (s *Server) markRead(c echo.Context) error {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID != id {
			continue
		}
		if s.notifications[i].ReadAt == nil {
			now := time.Now().UTC()
			s.notifications[i].ReadAt = &now
			if s.unreadCount > 0 {
				s.unreadCount--
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"message": "ok"})
	}
	return fail(c, http.StatusNotFound, "Notification not found")
}

func (s *Server) markAllRead(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for i := range s.notifications {
		if s.notifications[i].ReadAt == nil {
			s.notifications[i].ReadAt = &now
		}
	}
	s.unreadCount = 0
	return c.JSON(http.StatusOK, map[string]string{"message": "ok"})
}

func (s *Server) listEscrows(c echo.Context) error {
	status := c.QueryParam("status")
	txType := c.QueryParam("transaction_type")

	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]entity.EscrowTransaction, 0, len(s.escrows))
	for _, tx := range s.escrows {
		if status != "" && string(tx.Status) != status {
			continue
		}
		if txType != "" && tx.TransactionType != txType {
			continue
		}
		items = append(items, *tx)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].FavorID < items[j].FavorID })
	return c.JSON(http.StatusOK, map[string]any{
		"escrow_transactions": items,
		"meta":                map[string]int{"current_page": 1, "per_page": len(items), "total_pages": 1, "total_count": len(items)},
	})
}

func (s *Server) escrowFor(c echo.Context) (*entity.EscrowTransaction, error) {
	tx, ok := s.escrows[c.Param("id")]
	if !ok {
		return nil, fail(c, http.StatusNotFound, "Escrow transaction not found")
	}
	return tx, nil
}

func (s *Server) getEscrow(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.escrowFor(c)
	if tx == nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"escrow_transaction": tx})
}

func (s *Server) disputeEscrow(c echo.Context) error {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.Bind(&req)

	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.escrowFor(c)
	if tx == nil {
		return err
	}
	switch {
	case tx.Status == entity.EscrowStatusDisputed:
		return failWithCode(c, http.StatusUnprocessableEntity, "already_disputed", "This transaction is already disputed")
	case tx.Status.Terminal():
		return failWithCode(c, http.StatusUnprocessableEntity, "transaction_completed", "This transaction is already completed")
	}
	tx.Status = entity.EscrowStatusDisputed
	reason := req.Reason
	tx.DisputeReason = &reason
	return c.JSON(http.StatusOK, map[string]any{"escrow_transaction": tx})
}

func (s *Server) resolveEscrow(c echo.Context) error {
	var req struct {
		Resolution      string           `json:"resolution"`
		ResolutionNotes string           `json:"resolution_notes"`
		ProviderAmount  *decimal.Decimal `json:"provider_amount"`
	}
	_ = c.Bind(&req)

	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.escrowFor(c)
	if tx == nil {
		return err
	}
	if tx.Status != entity.EscrowStatusDisputed {
		return failWithCode(c, http.StatusUnprocessableEntity, "invalid_state", "Transaction is not disputed")
	}
	switch entity.DisputeResolution(req.Resolution) {
	case entity.ResolutionRefundToRequester:
		tx.Status = entity.EscrowStatusRefunded
	case entity.ResolutionReleaseToProvider:
		tx.Status = entity.EscrowStatusReleased
	case entity.ResolutionPartialRelease:
		tx.Status = entity.EscrowStatusReleased
		if req.ProviderAmount != nil {
			tx.ProviderAmount = *req.ProviderAmount
		}
	default:
		return fail(c, http.StatusUnprocessableEntity, "Invalid resolution")
	}
	notes := req.ResolutionNotes
	tx.ResolutionNotes = &notes
	return c.JSON(http.StatusOK, map[string]any{"escrow_transaction": tx})
}

func (s *Server) manualRelease(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.escrowFor(c)
	if tx == nil {
		return err
	}
	if tx.Status.Terminal() {
		return failWithCode(c, http.StatusUnprocessableEntity, "transaction_completed", "This transaction is already completed")
	}
	tx.Status = entity.EscrowStatusReleased
	return c.JSON(http.StatusOK, map[string]any{"escrow_transaction": tx})
}

func (s *Server) cancelEscrow(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.escrowFor(c)
	if tx == nil {
		return err
	}
	if !tx.CanCancel() {
		return failWithCode(c, http.StatusUnprocessableEntity, "invalid_state", "Only pending transactions can be cancelled")
	}
	tx.Status = entity.EscrowStatusRefunded
	return c.JSON(http.StatusOK, map[string]any{"escrow_transaction": tx})
}

func (s *Server) createSupportTicket(c echo.Context) error {
	var req struct {
		Subject  string `json:"subject"`
		Message  string `json:"message"`
		Category string `json:"category"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.Subject) == "" {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{
			"success": false,
			"errors":  map[string][]string{"subject": {"can't be blank"}},
		})
	}
	return c.JSON(http.StatusCreated, map[string]any{"support_ticket": map[string]string{
		"id":       "ticket-1",
		"subject":  req.Subject,
		"status":   "open",
		"category": req.Category,
	}})
}
