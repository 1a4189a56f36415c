package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-favorpay/app/backend"
	"github.com/vibast-solutions/ms-go-favorpay/app/backend/backendtest"
	"github.com/vibast-solutions/ms-go-favorpay/app/entity"
	"github.com/vibast-solutions/ms-go-favorpay/app/notifier"
	"github.com/vibast-solutions/ms-go-favorpay/app/provider"
	"github.com/vibast-solutions/ms-go-favorpay/app/service"
	"github.com/vibast-solutions/ms-go-favorpay/app/session"
	"github.com/vibast-solutions/ms-go-favorpay/app/types"
	"github.com/vibast-solutions/ms-go-favorpay/config"
)

type controllerSDK struct {
	tokenErr error
}

func (s *controllerSDK) CreateToken(_ context.Context, card provider.CardParams) (*provider.Token, error) {
	if s.tokenErr != nil {
		return nil, s.tokenErr
	}
	return &provider.Token{ID: "tok_1", Last4: card.Number[len(card.Number)-4:]}, nil
}

func (s *controllerSDK) ConfirmSetupIntent(_ context.Context, clientSecret string, _ provider.ConfirmSetupIntentParams) (*provider.ConfirmedSetupIntent, error) {
	return &provider.ConfirmedSetupIntent{
		ID:     entity.SetupIntentIDFromSecret(clientSecret),
		Status: provider.SetupIntentStatusSucceeded,
	}, nil
}

type testBridge struct {
	srv           *backendtest.Server
	session       *session.Session
	notices       *notifier.Recorder
	sdk           *controllerSDK
	paymentMethod *PaymentMethodController
	escrow        *EscrowController
	notification  *NotificationController
	sessions      *SessionController
	support       *SupportController
}

func newTestBridge(t *testing.T, signedIn bool) *testBridge {
	t.Helper()

	srv := backendtest.New(t)
	sess := session.New(nil)
	if signedIn {
		if err := sess.SignIn(context.Background(), session.Tokens{AccessToken: backendtest.DefaultToken}, &entity.User{ID: "user-1"}); err != nil {
			t.Fatalf("sign in failed: %v", err)
		}
	}
	client := backend.NewClient(backend.Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, sess)
	notices := notifier.NewRecorder(nil)
	sdk := &controllerSDK{}

	paymentMethods := service.NewPaymentMethodService(client, sdk, nil, nil, notices, sess, config.SetupConfig{
		RetryBase:  time.Millisecond,
		RetryCap:   time.Millisecond,
		MaxRetries: 2,
	}, nil)

	return &testBridge{
		srv:           srv,
		session:       sess,
		notices:       notices,
		sdk:           sdk,
		paymentMethod: NewPaymentMethodController(paymentMethods),
		escrow:        NewEscrowController(service.NewEscrowService(client)),
		notification:  NewNotificationController(service.NewBadgeWatcher(client, notices, time.Minute, nil), notices),
		sessions:      NewSessionController(service.NewAuthService(client, sess, nil)),
		support:       NewSupportController(service.NewSupportService(client)),
	}
}

func newJSONContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal failed: %v body=%s", err, rec.Body.String())
	}
	return out
}

const setupBody = `{"card":{"number":"4242 4242 4242 4242","exp_month":12,"exp_year":30,"cvc":"123","cardholder_name":"Jane Doe"},"billing":{"country":"us","postal_code":"94102"}}`

func TestHealth(t *testing.T) {
	b := newTestBridge(t, false)
	ctx, rec := newJSONContext(http.MethodGet, "/health", "")

	_ = b.paymentMethod.Health(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestSetupPaymentMethodSuccess(t *testing.T) {
	b := newTestBridge(t, true)
	ctx, rec := newJSONContext(http.MethodPost, "/payment-methods", setupBody)

	_ = b.paymentMethod.SetupPaymentMethod(ctx)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}

	payload := decode[types.SetupPaymentMethodResponse](t, rec)
	if payload.PaymentMethod == nil || payload.PaymentMethod.Card.Last4 != "4242" || !payload.IsDefault {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.MerchantNotice != "" {
		t.Fatalf("unexpected merchant notice %q", payload.MerchantNotice)
	}
}

func TestSetupPaymentMethodBadBody(t *testing.T) {
	b := newTestBridge(t, true)
	ctx, rec := newJSONContext(http.MethodPost, "/payment-methods", "{bad")

	_ = b.paymentMethod.SetupPaymentMethod(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSetupPaymentMethodExpiredCard(t *testing.T) {
	b := newTestBridge(t, true)
	body := `{"card":{"number":"4242424242424242","exp_month":1,"exp_year":20,"cvc":"123","cardholder_name":"Jane Doe"},"billing":{"country":"US","postal_code":"94102"}}`
	ctx, rec := newJSONContext(http.MethodPost, "/payment-methods", body)

	_ = b.paymentMethod.SetupPaymentMethod(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
	payload := decode[types.ErrorResponse](t, rec)
	if payload.Step != string(service.StepValidateInput) || payload.Error == "" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if b.srv.Calls("POST /payment_methods/setup_intent") != 0 {
		t.Fatal("expired card must not reach the backend")
	}
}

func TestSetupPaymentMethodCardDeclined(t *testing.T) {
	b := newTestBridge(t, true)
	b.sdk.tokenErr = &provider.StripeError{Status: 402, Type: "card_error", Code: "card_declined", Message: "Your card was declined."}
	ctx, rec := newJSONContext(http.MethodPost, "/payment-methods", setupBody)

	_ = b.paymentMethod.SetupPaymentMethod(ctx)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", rec.Code)
	}
	payload := decode[types.ErrorResponse](t, rec)
	if payload.Error != "Your card was declined." || payload.Step != string(service.StepCollectCardDetails) {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestSetupPaymentMethodMalformedSecret(t *testing.T) {
	b := newTestBridge(t, true)
	b.srv.SetClientSecret("seti_123")
	ctx, rec := newJSONContext(http.MethodPost, "/payment-methods", setupBody)

	_ = b.paymentMethod.SetupPaymentMethod(ctx)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestSetupPaymentMethodSignedOut(t *testing.T) {
	b := newTestBridge(t, false)
	ctx, rec := newJSONContext(http.MethodPost, "/payment-methods", setupBody)

	_ = b.paymentMethod.SetupPaymentMethod(ctx)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestListAndDeletePaymentMethods(t *testing.T) {
	b := newTestBridge(t, true)

	ctx, rec := newJSONContext(http.MethodPost, "/payment-methods", setupBody)
	_ = b.paymentMethod.SetupPaymentMethod(ctx)
	created := decode[types.SetupPaymentMethodResponse](t, rec)

	ctx, rec = newJSONContext(http.MethodGet, "/payment-methods?fresh=true", "")
	_ = b.paymentMethod.ListPaymentMethods(ctx)
	list := decode[types.PaymentMethodListResponse](t, rec)
	if len(list.PaymentMethods) != 1 || list.DefaultPaymentMethodID != created.PaymentMethod.ID {
		t.Fatalf("unexpected list: %+v", list)
	}

	for i, wantAlready := range []bool{false, true} {
		ctx, rec = newJSONContext(http.MethodDelete, "/payment-methods/"+created.PaymentMethod.ID, "")
		ctx.SetParamNames("id")
		ctx.SetParamValues(created.PaymentMethod.ID)
		_ = b.paymentMethod.DeletePaymentMethod(ctx)
		if rec.Code != http.StatusOK {
			t.Fatalf("delete %d: expected 200, got %d", i, rec.Code)
		}
		deleted := decode[types.DeletePaymentMethodResponse](t, rec)
		if deleted.AlreadyDeleted != wantAlready {
			t.Fatalf("delete %d: expected already_deleted=%v", i, wantAlready)
		}
	}
}

func TestDisputeConflict(t *testing.T) {
	b := newTestBridge(t, true)
	b.srv.PutEscrow(entity.EscrowTransaction{ID: "esc-1", FavorID: "favor-1", Status: entity.EscrowStatusDisputed, Amount: decimal.NewFromInt(10)})

	ctx, rec := newJSONContext(http.MethodPost, "/favors/favor-1/escrow/dispute", `{"reason":"again"}`)
	ctx.SetParamNames("favor_id")
	ctx.SetParamValues("favor-1")

	_ = b.escrow.Dispute(ctx)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestDisputeRequiresReason(t *testing.T) {
	b := newTestBridge(t, true)
	ctx, rec := newJSONContext(http.MethodPost, "/favors/favor-1/escrow/dispute", `{}`)
	ctx.SetParamNames("favor_id")
	ctx.SetParamValues("favor-1")

	_ = b.escrow.Dispute(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetEscrow(t *testing.T) {
	b := newTestBridge(t, true)
	b.srv.PutEscrow(entity.EscrowTransaction{ID: "esc-1", FavorID: "favor-1", Status: entity.EscrowStatusPending, Amount: decimal.NewFromInt(25)})

	ctx, rec := newJSONContext(http.MethodGet, "/favors/favor-1/escrow", "")
	ctx.SetParamNames("favor_id")
	ctx.SetParamValues("favor-1")
	_ = b.escrow.GetEscrow(ctx)

	payload := decode[types.EscrowEnvelopeResponse](t, rec)
	if payload.EscrowTransaction == nil || payload.EscrowTransaction.Amount != "25.00" || !payload.EscrowTransaction.CanCancel {
		t.Fatalf("unexpected payload: %+v", payload.EscrowTransaction)
	}

	ctx, rec = newJSONContext(http.MethodGet, "/favors/favor-9/escrow", "")
	ctx.SetParamNames("favor_id")
	ctx.SetParamValues("favor-9")
	_ = b.escrow.GetEscrow(ctx)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	b := newTestBridge(t, false)
	ctx, rec := newJSONContext(http.MethodPost, "/session", `{"email":"jane@example.com","password":"nope"}`)

	_ = b.sessions.Login(ctx)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	payload := decode[types.ErrorResponse](t, rec)
	if payload.Error != "Invalid email or password" {
		t.Fatalf("unexpected error %q", payload.Error)
	}
}

func TestLoginAndLogout(t *testing.T) {
	b := newTestBridge(t, false)
	ctx, rec := newJSONContext(http.MethodPost, "/session", `{"email":"Jane@Example.com","password":"Secret123!"}`)

	_ = b.sessions.Login(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if !b.session.Authenticated(context.Background()) {
		t.Fatal("expected an authenticated session")
	}

	ctx, rec = newJSONContext(http.MethodDelete, "/session", "")
	_ = b.sessions.Logout(ctx)
	if rec.Code != http.StatusOK || b.session.Authenticated(context.Background()) {
		t.Fatalf("expected logout, got %d", rec.Code)
	}
}

func TestBadgeAndNotices(t *testing.T) {
	b := newTestBridge(t, true)
	b.srv.SetUnreadCount(1)

	ctx, rec := newJSONContext(http.MethodGet, "/notifications/badge", "")
	_ = b.notification.Badge(ctx)
	if decode[types.BadgeResponse](t, rec).UnreadCount != 1 {
		t.Fatalf("unexpected badge: %s", rec.Body.String())
	}

	b.srv.SetUnreadCount(2)
	ctx, _ = newJSONContext(http.MethodGet, "/notifications/badge", "")
	_ = b.notification.Badge(ctx)

	ctx, rec = newJSONContext(http.MethodGet, "/notices", "")
	_ = b.notification.Notices(ctx)
	notices := decode[[]types.NoticeResponse](t, rec)
	if len(notices) != 1 || notices[0].Level != string(notifier.LevelInfo) {
		t.Fatalf("unexpected notices: %+v", notices)
	}

	ctx, rec = newJSONContext(http.MethodGet, "/notices", "")
	_ = b.notification.Notices(ctx)
	if len(decode[[]types.NoticeResponse](t, rec)) != 0 {
		t.Fatal("notices must be drained")
	}
}

func TestCreateSupportTicketValidation(t *testing.T) {
	b := newTestBridge(t, true)
	ctx, rec := newJSONContext(http.MethodPost, "/support-tickets", `{"message":"help"}`)

	_ = b.support.CreateTicket(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRegisterAndVerifyOTP(t *testing.T) {
	b := newTestBridge(t, false)

	ctx, rec := newJSONContext(http.MethodPost, "/session/otp/resend", "")
	_ = b.sessions.ResendOTP(ctx)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 without a registration, got %d", rec.Code)
	}

	ctx, rec = newJSONContext(http.MethodPost, "/session/register", `{"email":" New@Example.com ","password":"Secret123!","first_name":"New","last_name":"User"}`)
	_ = b.sessions.Register(ctx)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	if user := decode[types.SessionResponse](t, rec).User; user == nil || user.Email != "new@example.com" {
		t.Fatalf("unexpected user: %s", rec.Body.String())
	}

	ctx, rec = newJSONContext(http.MethodPost, "/session/otp/resend", "")
	_ = b.sessions.ResendOTP(ctx)
	if decode[types.MessageResponse](t, rec).Message != "OTP sent" {
		t.Fatalf("unexpected resend response: %s", rec.Body.String())
	}

	ctx, rec = newJSONContext(http.MethodPost, "/session/otp/verify", `{"code":"123456"}`)
	_ = b.sessions.VerifyOTP(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if !b.session.Authenticated(context.Background()) {
		t.Fatal("expected an authenticated session after OTP verification")
	}
}

func TestRegisterEmailTaken(t *testing.T) {
	b := newTestBridge(t, false)

	ctx, rec := newJSONContext(http.MethodPost, "/session/register", `{"email":"jane@example.com","password":"Secret123!","first_name":"Jane","last_name":"Doe"}`)
	_ = b.sessions.Register(ctx)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if payload := decode[types.ErrorResponse](t, rec); payload.Error != "email has already been taken" {
		t.Fatalf("unexpected error %q", payload.Error)
	}
}

func TestPasswordRecovery(t *testing.T) {
	b := newTestBridge(t, false)

	ctx, rec := newJSONContext(http.MethodPost, "/session/password/forgot", `{"email":"jane@example.com"}`)
	_ = b.sessions.ForgotPassword(ctx)
	if decode[types.MessageResponse](t, rec).Message != "Reset code sent" {
		t.Fatalf("unexpected forgot response: %s", rec.Body.String())
	}

	ctx, rec = newJSONContext(http.MethodPost, "/session/password/verify", `{"email":"jane@example.com","code":"123456"}`)
	_ = b.sessions.VerifyResetCode(ctx)
	resetToken := decode[types.ResetTokenResponse](t, rec).ResetToken
	if resetToken != "reset-token-1" {
		t.Fatalf("unexpected reset token %q", resetToken)
	}

	ctx, rec = newJSONContext(http.MethodPost, "/session/password/reset", `{"reset_token":"reset-token-1","password":"NewSecret1!","password_confirmation":"Other1234!"}`)
	_ = b.sessions.ResetPassword(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for mismatched passwords, got %d", rec.Code)
	}

	ctx, rec = newJSONContext(http.MethodPost, "/session/password/reset", `{"reset_token":"reset-token-1","password":"NewSecret1!","password_confirmation":"NewSecret1!"}`)
	_ = b.sessions.ResetPassword(ctx)
	if decode[types.MessageResponse](t, rec).Message != "Password updated" {
		t.Fatalf("unexpected reset response: %s", rec.Body.String())
	}
}

func TestForgetCredential(t *testing.T) {
	b := newTestBridge(t, false)

	ctx, rec := newJSONContext(http.MethodDelete, "/session/credentials/", "")
	ctx.SetParamNames("email")
	ctx.SetParamValues(" ")
	_ = b.sessions.ForgetCredential(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	ctx, rec = newJSONContext(http.MethodDelete, "/session/credentials/jane@example.com", "")
	ctx.SetParamNames("email")
	ctx.SetParamValues("jane@example.com")
	_ = b.sessions.ForgetCredential(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
}
