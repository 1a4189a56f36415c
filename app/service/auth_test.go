package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibast-solutions/ms-go-favorpay/app/backend"
	"github.com/vibast-solutions/ms-go-favorpay/app/backend/backendtest"
	"github.com/vibast-solutions/ms-go-favorpay/app/entity"
	"github.com/vibast-solutions/ms-go-favorpay/app/session"
	"github.com/vibast-solutions/ms-go-favorpay/app/types"
)

type fakeCredentials struct {
	mu     sync.Mutex
	emails []string
}

func (f *fakeCredentials) Remember(_ context.Context, email string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails = append(f.emails, email)
	return nil
}

func (f *fakeCredentials) List(context.Context) ([]*entity.SavedCredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entity.SavedCredential, 0, len(f.emails))
	for _, email := range f.emails {
		out = append(out, &entity.SavedCredential{Email: email})
	}
	return out, nil
}

func (f *fakeCredentials) Forget(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.emails[:0]
	for _, existing := range f.emails {
		if existing != email {
			kept = append(kept, existing)
		}
	}
	f.emails = kept
	return nil
}

func newAuthHarness(t *testing.T) (*backendtest.Server, *AuthService, *session.Session, *fakeCredentials) {
	t.Helper()
	srv := backendtest.New(t)
	sess := session.New(nil)
	client := backend.NewClient(backend.Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, sess)
	creds := &fakeCredentials{}
	return srv, NewAuthService(client, sess, creds), sess, creds
}

func TestLoginStartsSessionAndRemembersEmail(t *testing.T) {
	_, svc, sess, _ := newAuthHarness(t)
	ctx := context.Background()

	user, err := svc.Login(ctx, &types.LoginRequest{Email: backendtest.DefaultEmail, Password: backendtest.DefaultPassword, Remember: true})
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)

	token, err := sess.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, backendtest.DefaultToken, token)
	refresh, err := sess.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refresh-"+backendtest.DefaultToken, refresh)
	assert.Equal(t, "user-1", svc.CurrentUser().ID)

	saved, err := svc.SavedCredentials(ctx)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, backendtest.DefaultEmail, saved[0].Email)

	require.NoError(t, svc.ForgetCredential(ctx, strings.ToUpper(backendtest.DefaultEmail)))
	saved, err = svc.SavedCredentials(ctx)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestLoginWrongPassword(t *testing.T) {
	_, svc, sess, creds := newAuthHarness(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, &types.LoginRequest{Email: backendtest.DefaultEmail, Password: "nope", Remember: true})
	assert.ErrorIs(t, err, backend.ErrInvalidCredentials)
	assert.Equal(t, "Invalid email or password", DisplayMessage(err))
	assert.False(t, sess.Authenticated(ctx))
	assert.Empty(t, creds.emails)
}

func TestLoginValidatesLocally(t *testing.T) {
	srv, svc, _, _ := newAuthHarness(t)

	_, err := svc.Login(context.Background(), &types.LoginRequest{Email: "not-an-email", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Zero(t, srv.Calls("POST /auth/login"))
}

func TestSignupAndVerifyOTP(t *testing.T) {
	_, svc, sess, _ := newAuthHarness(t)
	ctx := context.Background()

	_, err := svc.VerifyOTP(ctx, "123456")
	assert.ErrorIs(t, err, session.ErrNoRegistration)

	_, err = svc.Signup(ctx, &types.SignupRequest{
		Email:     " New@Example.com ",
		Password:  "Secret123!",
		FirstName: "New",
		LastName:  "User",
	})
	require.NoError(t, err)

	reg, err := sess.Registration()
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", reg.Email)

	message, err := svc.ResendOTP(ctx)
	require.NoError(t, err)
	assert.Equal(t, "OTP sent", message)

	_, err = svc.VerifyOTP(ctx, "000000")
	assert.ErrorIs(t, err, backend.ErrValidation)
	assert.Equal(t, "Invalid OTP", DisplayMessage(err))

	user, err := svc.VerifyOTP(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	assert.True(t, sess.Authenticated(ctx))

	_, err = sess.Registration()
	assert.ErrorIs(t, err, session.ErrNoRegistration)
}

func TestSignupEmailTaken(t *testing.T) {
	_, svc, sess, _ := newAuthHarness(t)

	_, err := svc.Signup(context.Background(), &types.SignupRequest{
		Email:     backendtest.DefaultEmail,
		Password:  "Secret123!",
		FirstName: "Jane",
		LastName:  "Doe",
	})
	assert.ErrorIs(t, err, backend.ErrValidation)
	assert.Equal(t, "email has already been taken", DisplayMessage(err))

	_, err = sess.Registration()
	assert.ErrorIs(t, err, session.ErrNoRegistration)
}

func TestPasswordResetFlow(t *testing.T) {
	_, svc, _, _ := newAuthHarness(t)
	ctx := context.Background()

	_, err := svc.ForgotPassword(ctx, " ")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	message, err := svc.ForgotPassword(ctx, backendtest.DefaultEmail)
	require.NoError(t, err)
	assert.Equal(t, "Reset code sent", message)

	resetToken, err := svc.VerifyResetCode(ctx, backendtest.DefaultEmail, "123456")
	require.NoError(t, err)
	assert.Equal(t, "reset-token-1", resetToken)

	_, err = svc.ResetPassword(ctx, resetToken, &types.PasswordResetRequest{Password: "NewSecret1!", PasswordConfirmation: "Different1!"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	message, err = svc.ResetPassword(ctx, resetToken, &types.PasswordResetRequest{Password: "NewSecret1!", PasswordConfirmation: "NewSecret1!"})
	require.NoError(t, err)
	assert.Equal(t, "Password updated", message)
}

func TestValidatePasswordKeepsSession(t *testing.T) {
	_, svc, sess, _ := newAuthHarness(t)
	ctx := context.Background()
	_, err := svc.Login(ctx, &types.LoginRequest{Email: backendtest.DefaultEmail, Password: backendtest.DefaultPassword})
	require.NoError(t, err)

	var events int
	sess.Subscribe(func(session.Event) { events++ })

	ok, err := svc.ValidatePassword(ctx, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.ValidatePassword(ctx, backendtest.DefaultPassword)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, sess.Authenticated(ctx))
	assert.Zero(t, events)
}

func TestRefreshCurrentUser(t *testing.T) {
	_, svc, _, _ := newAuthHarness(t)
	ctx := context.Background()

	_, err := svc.RefreshCurrentUser(ctx)
	assert.ErrorIs(t, err, backend.ErrAuthenticationRequired)

	_, err = svc.Login(ctx, &types.LoginRequest{Email: backendtest.DefaultEmail, Password: backendtest.DefaultPassword})
	require.NoError(t, err)
	user, err := svc.RefreshCurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Jane", user.FirstName)
	assert.Equal(t, "Jane", svc.CurrentUser().FirstName)
}

func TestLogoutAlwaysClearsSession(t *testing.T) {
	srv, svc, sess, _ := newAuthHarness(t)
	ctx := context.Background()
	_, err := svc.Login(ctx, &types.LoginRequest{Email: backendtest.DefaultEmail, Password: backendtest.DefaultPassword})
	require.NoError(t, err)

	var reasons []string
	sess.Subscribe(func(e session.Event) { reasons = append(reasons, e.Reason) })

	srv.Fail("DELETE /auth/logout", backendtest.Failure{Status: 500, Body: map[string]any{"success": false}})
	require.NoError(t, svc.Logout(ctx))

	assert.False(t, sess.Authenticated(ctx))
	assert.Nil(t, svc.CurrentUser())
	assert.Equal(t, []string{session.ReasonLogout}, reasons)
	assert.Equal(t, 1, srv.Calls("DELETE /auth/logout"))
}

func TestLogoutAnsweredWithUnauthorizedEndsAsLogout(t *testing.T) {
	srv, svc, sess, _ := newAuthHarness(t)
	ctx := context.Background()
	_, err := svc.Login(ctx, &types.LoginRequest{Email: backendtest.DefaultEmail, Password: backendtest.DefaultPassword})
	require.NoError(t, err)

	var reasons []string
	sess.Subscribe(func(e session.Event) { reasons = append(reasons, e.Reason) })

	srv.Fail("DELETE /auth/logout", backendtest.Failure{Status: 401, Body: map[string]any{"message": "Unauthenticated."}})
	require.NoError(t, svc.Logout(ctx))

	assert.False(t, sess.Authenticated(ctx))
	assert.Equal(t, []string{session.ReasonLogout}, reasons)
}
