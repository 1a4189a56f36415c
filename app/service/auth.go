package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-favorpay/app/backend"
	"github.com/vibast-solutions/ms-go-favorpay/app/entity"
	"github.com/vibast-solutions/ms-go-favorpay/app/factory"
	"github.com/vibast-solutions/ms-go-favorpay/app/session"
	"github.com/vibast-solutions/ms-go-favorpay/app/types"
)

type authAPI interface {
	Register(ctx context.Context, req backend.RegisterRequest) (*backend.RegisterResponse, error)
	Login(ctx context.Context, req backend.LoginRequest) (*backend.AuthResponse, error)
	ResendOTP(ctx context.Context, email string) (string, error)
	VerifyOTP(ctx context.Context, req backend.VerifyOTPRequest) (*backend.AuthResponse, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	VerifyResetCode(ctx context.Context, email, code string) (string, error)
	ResetPassword(ctx context.Context, req backend.ResetPasswordRequest) (string, error)
	ValidatePassword(ctx context.Context, password string) (bool, error)
	CurrentUser(ctx context.Context) (*entity.User, error)
	Logout(ctx context.Context) error
}

type sessionState interface {
	SignIn(ctx context.Context, tokens session.Tokens, user *entity.User) error
	SignOut(ctx context.Context) error
	BeginLogout()
	SetUser(user *entity.User)
	CurrentUser() *entity.User
	BeginRegistration(reg session.Registration)
	Registration() (session.Registration, error)
}

type savedCredentialRepository interface {
	Remember(ctx context.Context, email string, usedAt time.Time) error
	List(ctx context.Context) ([]*entity.SavedCredential, error)
	Forget(ctx context.Context, email string) error
}

// AuthService runs the login, signup and password flows and keeps the
// session in sync with their outcome.
type AuthService struct {
	api         authAPI
	session     sessionState
	credentials savedCredentialRepository
	logger      logrus.FieldLogger
	now         func() time.Time
}

func NewAuthService(api authAPI, state sessionState, credentials savedCredentialRepository) *AuthService {
	return &AuthService{
		api:         api,
		session:     state,
		credentials: credentials,
		logger:      factory.NewModuleLogger("auth-service"),
		now:         time.Now,
	}
}

func (s *AuthService) Login(ctx context.Context, req *types.LoginRequest) (*entity.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	resp, err := s.api.Login(ctx, backend.LoginRequest{Email: req.Email, Password: req.Password})
	if err != nil {
		return nil, err
	}
	if err := s.startSession(ctx, resp); err != nil {
		return nil, err
	}

	if req.Remember && s.credentials != nil {
		if err := s.credentials.Remember(ctx, req.Email, s.now().UTC()); err != nil {
			s.logger.WithError(err).Warn("saved_credential_store_failed")
		}
	}

	s.logger.WithField("user_id", resp.User.ID).Info("login_succeeded")
	return &resp.User, nil
}

// Signup registers the account and keeps its details until the OTP is
// verified.
func (s *AuthService) Signup(ctx context.Context, req *types.SignupRequest) (*entity.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	resp, err := s.api.Register(ctx, backend.RegisterRequest{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return nil, err
	}

	s.session.BeginRegistration(session.Registration{
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
	})
	return &resp.User, nil
}

func (s *AuthService) VerifyOTP(ctx context.Context, code string) (*entity.User, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidRequest
	}
	reg, err := s.session.Registration()
	if err != nil {
		return nil, err
	}

	resp, err := s.api.VerifyOTP(ctx, backend.VerifyOTPRequest{Email: reg.Email, Code: code})
	if err != nil {
		return nil, err
	}
	if err := s.startSession(ctx, resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (s *AuthService) ResendOTP(ctx context.Context) (string, error) {
	reg, err := s.session.Registration()
	if err != nil {
		return "", err
	}
	return s.api.ResendOTP(ctx, reg.Email)
}

func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidRequest
	}
	return s.api.ForgotPassword(ctx, email)
}

func (s *AuthService) VerifyResetCode(ctx context.Context, email, code string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return "", ErrInvalidRequest
	}
	return s.api.VerifyResetCode(ctx, email, code)
}

func (s *AuthService) ResetPassword(ctx context.Context, resetToken string, req *types.PasswordResetRequest) (string, error) {
	resetToken = strings.TrimSpace(resetToken)
	if resetToken == "" {
		return "", ErrInvalidRequest
	}
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return s.api.ResetPassword(ctx, backend.ResetPasswordRequest{
		ResetToken:           resetToken,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
	})
}

// ValidatePassword checks the current password without ever ending the
// session.
func (s *AuthService) ValidatePassword(ctx context.Context, password string) (bool, error) {
	if password == "" {
		return false, ErrInvalidRequest
	}
	return s.api.ValidatePassword(ctx, password)
}

func (s *AuthService) RefreshCurrentUser(ctx context.Context) (*entity.User, error) {
	user, err := s.api.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	s.session.SetUser(user)
	return user, nil
}

func (s *AuthService) CurrentUser() *entity.User {
	return s.session.CurrentUser()
}

// Logout tells the backend and always clears the local session.
func (s *AuthService) Logout(ctx context.Context) error {
	s.session.BeginLogout()
	if err := s.api.Logout(ctx); err != nil && !errors.Is(err, backend.ErrAuthenticationRequired) {
		s.logger.WithError(err).Warn("backend_logout_failed")
	}
	return s.session.SignOut(ctx)
}

func (s *AuthService) SavedCredentials(ctx context.Context) ([]*entity.SavedCredential, error) {
	if s.credentials == nil {
		return []*entity.SavedCredential{}, nil
	}
	return s.credentials.List(ctx)
}

func (s *AuthService) ForgetCredential(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ErrInvalidRequest
	}
	if s.credentials == nil {
		return nil
	}
	return s.credentials.Forget(ctx, email)
}

func (s *AuthService) startSession(ctx context.Context, resp *backend.AuthResponse) error {
	if strings.TrimSpace(resp.Token) == "" {
		return fmt.Errorf("%w: login response without token", backend.ErrServer)
	}
	user := resp.User
	return s.session.SignIn(ctx, session.Tokens{AccessToken: resp.Token, RefreshToken: resp.RefreshToken}, &user)
}
