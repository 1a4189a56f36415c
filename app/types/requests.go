package types

import (
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-favorpay/app/entity"
)

const maxReasonLength = 1000

type SetupPaymentMethodRequest struct {
	Card             CardInput    `json:"card"`
	Billing          BillingInput `json:"billing"`
	ForceNewCustomer bool         `json:"force_new_customer"`
}

func NewSetupPaymentMethodRequestFromContext(ctx echo.Context) (*SetupPaymentMethodRequest, error) {
	var body SetupPaymentMethodRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Card.Normalize()
	body.Billing.Normalize()
	return &body, nil
}

type DeletePaymentMethodRequest struct {
	ID string
}

func NewDeletePaymentMethodRequestFromContext(ctx echo.Context) (*DeletePaymentMethodRequest, error) {
	return &DeletePaymentMethodRequest{ID: strings.TrimSpace(ctx.Param("id"))}, nil
}

func (r *DeletePaymentMethodRequest) Validate() error {
	if r.ID == "" {
		return errors.New("payment method id is required")
	}
	return nil
}

type FavorEscrowRequest struct {
	FavorID string
}

func NewFavorEscrowRequestFromContext(ctx echo.Context) (*FavorEscrowRequest, error) {
	return &FavorEscrowRequest{FavorID: strings.TrimSpace(ctx.Param("favor_id"))}, nil
}

func (r *FavorEscrowRequest) Validate() error {
	if r.FavorID == "" {
		return errors.New("favor id is required")
	}
	return nil
}

type ListEscrowTransactionsRequest struct {
	Status          entity.EscrowStatus
	TransactionType string
	Page            int
	PerPage         int
}

func NewListEscrowTransactionsRequestFromContext(ctx echo.Context) (*ListEscrowTransactionsRequest, error) {
	req := &ListEscrowTransactionsRequest{
		Status:          entity.EscrowStatus(strings.ToLower(strings.TrimSpace(ctx.QueryParam("status")))),
		TransactionType: strings.TrimSpace(ctx.QueryParam("transaction_type")),
	}

	page, perPage, err := parsePage(ctx)
	if err != nil {
		return nil, err
	}
	req.Page = page
	req.PerPage = perPage
	return req, nil
}

func (r *ListEscrowTransactionsRequest) Validate() error {
	if r.Status != "" && !r.Status.Valid() {
		return errors.New("invalid status")
	}
	return validatePage(r.Page, r.PerPage)
}

type EscrowReasonRequest struct {
	FavorID string `json:"-"`
	Reason  string `json:"reason"`
}

func NewEscrowReasonRequestFromContext(ctx echo.Context) (*EscrowReasonRequest, error) {
	var body EscrowReasonRequest
	if err := ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.FavorID = strings.TrimSpace(ctx.Param("favor_id"))
	body.Reason = strings.TrimSpace(body.Reason)
	return &body, nil
}

func (r *EscrowReasonRequest) Validate() error {
	if r.FavorID == "" {
		return errors.New("favor id is required")
	}
	if len(r.Reason) > maxReasonLength {
		return errors.New("reason must be at most 1000 characters")
	}
	return nil
}

// ValidateRequired is used by actions where a reason is mandatory.
func (r *EscrowReasonRequest) ValidateRequired() error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.Reason == "" {
		return errors.New("reason is required")
	}
	return nil
}

type ResolveDisputeRequest struct {
	FavorID         string                   `json:"-"`
	Resolution      entity.DisputeResolution `json:"resolution"`
	ResolutionNotes string                   `json:"resolution_notes"`
	ProviderAmount  *decimal.Decimal         `json:"provider_amount"`
}

func NewResolveDisputeRequestFromContext(ctx echo.Context) (*ResolveDisputeRequest, error) {
	var body ResolveDisputeRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.FavorID = strings.TrimSpace(ctx.Param("favor_id"))
	body.Resolution = entity.DisputeResolution(strings.ToLower(strings.TrimSpace(string(body.Resolution))))
	body.ResolutionNotes = strings.TrimSpace(body.ResolutionNotes)
	return &body, nil
}

func (r *ResolveDisputeRequest) Validate() error {
	if r.FavorID == "" {
		return errors.New("favor id is required")
	}
	if !r.Resolution.Valid() {
		return errors.New("resolution must be release_to_provider, refund_to_requester, or partial_release")
	}
	if r.Resolution == entity.ResolutionPartialRelease {
		if r.ProviderAmount == nil || !r.ProviderAmount.IsPositive() {
			return errors.New("provider_amount must be > 0 for partial_release")
		}
	} else if r.ProviderAmount != nil {
		return errors.New("provider_amount is only allowed for partial_release")
	}
	if len(r.ResolutionNotes) > maxReasonLength {
		return errors.New("resolution_notes must be at most 1000 characters")
	}
	return nil
}

type ListNotificationsRequest struct {
	Page    int
	PerPage int
}

func NewListNotificationsRequestFromContext(ctx echo.Context) (*ListNotificationsRequest, error) {
	page, perPage, err := parsePage(ctx)
	if err != nil {
		return nil, err
	}
	return &ListNotificationsRequest{Page: page, PerPage: perPage}, nil
}

func (r *ListNotificationsRequest) Validate() error {
	return validatePage(r.Page, r.PerPage)
}

type NotificationRequest struct {
	ID string
}

func NewNotificationRequestFromContext(ctx echo.Context) (*NotificationRequest, error) {
	return &NotificationRequest{ID: strings.TrimSpace(ctx.Param("id"))}, nil
}

func (r *NotificationRequest) Validate() error {
	if r.ID == "" {
		return errors.New("notification id is required")
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Remember bool   `json:"remember"`
}

func NewLoginRequestFromContext(ctx echo.Context) (*LoginRequest, error) {
	var body LoginRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	return &body, nil
}

func (r *LoginRequest) Validate() error {
	return firstFieldError(r, nil, errors.New("invalid login request"))
}

type SignupRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"required,max=100"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,e164"`
}

func (r *SignupRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
}

func (r *SignupRequest) Validate() error {
	r.Normalize()
	return firstFieldError(r, nil, errors.New("invalid signup request"))
}

func NewSignupRequestFromContext(ctx echo.Context) (*SignupRequest, error) {
	var body SignupRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Normalize()
	return &body, nil
}

type VerifyOTPRequest struct {
	Code string `json:"code"`
}

func NewVerifyOTPRequestFromContext(ctx echo.Context) (*VerifyOTPRequest, error) {
	var body VerifyOTPRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Code = strings.TrimSpace(body.Code)
	return &body, nil
}

// PasswordRecoveryRequest carries the email and, once it was sent, the reset
// code of a forgotten password.
type PasswordRecoveryRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func NewPasswordRecoveryRequestFromContext(ctx echo.Context) (*PasswordRecoveryRequest, error) {
	var body PasswordRecoveryRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	body.Code = strings.TrimSpace(body.Code)
	return &body, nil
}

type ResetPasswordRequest struct {
	ResetToken string `json:"reset_token"`
	PasswordResetRequest
}

func NewResetPasswordRequestFromContext(ctx echo.Context) (*ResetPasswordRequest, error) {
	var body ResetPasswordRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.ResetToken = strings.TrimSpace(body.ResetToken)
	return &body, nil
}

type SavedCredentialRequest struct {
	Email string
}

func NewSavedCredentialRequestFromContext(ctx echo.Context) (*SavedCredentialRequest, error) {
	email, err := url.PathUnescape(ctx.Param("email"))
	if err != nil {
		return nil, err
	}
	return &SavedCredentialRequest{Email: strings.ToLower(strings.TrimSpace(email))}, nil
}

type PasswordResetRequest struct {
	Password             string `json:"password" validate:"required,min=8,max=128"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

func (r *PasswordResetRequest) Validate() error {
	return firstFieldError(r, nil, errors.New("invalid password"))
}

type SupportTicketRequest struct {
	Subject  string `json:"subject" validate:"required,max=200"`
	Message  string `json:"message" validate:"required,max=5000"`
	Category string `json:"category" validate:"omitempty,max=50"`
}

func NewSupportTicketRequestFromContext(ctx echo.Context) (*SupportTicketRequest, error) {
	var body SupportTicketRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Subject = strings.TrimSpace(body.Subject)
	body.Message = strings.TrimSpace(body.Message)
	body.Category = strings.TrimSpace(body.Category)
	return &body, nil
}

func (r *SupportTicketRequest) Validate() error {
	return firstFieldError(r, nil, errors.New("invalid support ticket"))
}

func parsePage(ctx echo.Context) (int, int, error) {
	var page, perPage int
	if raw := strings.TrimSpace(ctx.QueryParam("page")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, err
		}
		page = v
	}
	if raw := strings.TrimSpace(ctx.QueryParam("per_page")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, err
		}
		perPage = v
	}
	return page, perPage, nil
}

func validatePage(page, perPage int) error {
	if page < 0 {
		return errors.New("page must be >= 0")
	}
	if perPage < 0 || perPage > 100 {
		return errors.New("per_page must be between 1 and 100")
	}
	return nil
}
