package backend

import (
	"context"
	"net/http"

	"github.com/vibast-solutions/ms-go-favorpay/app/entity"
)

const (
	pathRegister         = "/auth/register"
	pathLogin            = "/auth/login"
	pathLogout           = "/auth/logout"
	pathResendOTP        = "/auth/resend_otp"
	pathVerifyOTP        = "/auth/verify_otp"
	pathForgotPassword   = "/auth/forgot_password"
	pathVerifyResetCode  = "/auth/verify_reset_code"
	pathResetPassword    = "/auth/reset_password"
	pathValidatePassword = "/auth/validate_password"
	pathCurrentUser      = "/users/me"
	pathSupportTickets   = "/support_tickets"
)

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

type RegisterResponse struct {
	Message string      `json:"message"`
	User    entity.User `json:"user"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refresh_token"`
	User         entity.User `json:"user"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"otp"`
}

type ResetPasswordRequest struct {
	ResetToken           string `json:"reset_token"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type SupportTicketRequest struct {
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	Category string `json:"category,omitempty"`
}

type SupportTicket struct {
	ID       string `json:"id"`
	Subject  string `json:"subject"`
	Status   string `json:"status"`
	Category string `json:"category,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type verifyResetCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type resetTokenResponse struct {
	ResetToken string `json:"reset_token"`
}

type validatePasswordRequest struct {
	Password string `json:"password"`
}

type validatePasswordResponse struct {
	Valid bool `json:"valid"`
}

type userEnvelope struct {
	User entity.User `json:"user"`
}

type supportTicketEnvelope struct {
	Ticket SupportTicket `json:"support_ticket"`
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: pathRegister, body: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: pathLogin, body: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ResendOTP(ctx context.Context, email string) (string, error) {
	var out messageResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: pathResendOTP, body: emailRequest{Email: email}}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// VerifyOTP completes a registration; the backend answers with a session.
func (c *Client) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: pathVerifyOTP, body: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var out messageResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: pathForgotPassword, body: emailRequest{Email: email}}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) VerifyResetCode(ctx context.Context, email, code string) (string, error) {
	var out resetTokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   pathVerifyResetCode,
		body:   verifyResetCodeRequest{Email: email, Code: code},
	}, &out)
	if err != nil {
		return "", err
	}
	return out.ResetToken, nil
}

func (c *Client) ResetPassword(ctx context.Context, req ResetPasswordRequest) (string, error) {
	var out messageResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: pathResetPassword, body: req}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// ValidatePassword checks the current password. A 401 here means a wrong
// password and never ends the session.
func (c *Client) ValidatePassword(ctx context.Context, password string) (bool, error) {
	var out validatePasswordResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   pathValidatePassword,
		body:   validatePasswordRequest{Password: password},
	}, &out)
	if err != nil {
		if KindOf(err) == KindInvalidCredentials {
			return false, nil
		}
		return false, err
	}
	return out.Valid, nil
}

func (c *Client) CurrentUser(ctx context.Context) (*entity.User, error) {
	var out userEnvelope
	if err := c.do(ctx, request{method: http.MethodGet, path: pathCurrentUser}, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodDelete, path: pathLogout}, nil)
}

func (c *Client) CreateSupportTicket(ctx context.Context, req SupportTicketRequest) (*SupportTicket, error) {
	var out supportTicketEnvelope
	if err := c.do(ctx, request{method: http.MethodPost, path: pathSupportTickets, body: req}, &out); err != nil {
		return nil, err
	}
	return &out.Ticket, nil
}
