package types

import "github.com/vibast-solutions/ms-go-favorpay/app/entity"

type ErrorResponse struct {
	Error string `json:"error"`
	// Step is set when a payment method setup failed part way.
	Step string `json:"step,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type CardResponse struct {
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
	Funding  string `json:"funding"`
}

type PaymentMethodResponse struct {
	ID             string       `json:"id"`
	Type           string       `json:"type"`
	Card           CardResponse `json:"card"`
	BillingName    string       `json:"billing_name,omitempty"`
	BillingCountry string       `json:"billing_country,omitempty"`
	IsDefault      bool         `json:"is_default"`
	CreatedAt      string       `json:"created_at,omitempty"`
}

type PaymentMethodListResponse struct {
	PaymentMethods         []*PaymentMethodResponse `json:"payment_methods"`
	HasPaymentMethod       bool                     `json:"has_payment_method"`
	DefaultPaymentMethodID string                   `json:"default_payment_method_id,omitempty"`
}

type SetupPaymentMethodResponse struct {
	PaymentMethod  *PaymentMethodResponse `json:"payment_method"`
	IsDefault      bool                   `json:"is_default"`
	SetupIntentID  string                 `json:"setup_intent_id"`
	MerchantNotice string                 `json:"merchant_notice,omitempty"`
}

type DeletePaymentMethodResponse struct {
	DeletedPaymentMethodID string `json:"deleted_payment_method_id"`
	AlreadyDeleted         bool   `json:"already_deleted,omitempty"`
}

type EscrowTransactionResponse struct {
	ID              string `json:"id"`
	FavorID         string `json:"favor_id"`
	TransactionType string `json:"transaction_type,omitempty"`
	Status          string `json:"status"`
	Amount          string `json:"amount"`
	PlatformFee     string `json:"platform_fee"`
	ProviderAmount  string `json:"provider_amount"`
	Currency        string `json:"currency"`
	HoldUntil       string `json:"hold_until,omitempty"`
	DisputeReason   string `json:"dispute_reason,omitempty"`
	ResolutionNotes string `json:"resolution_notes,omitempty"`
	CanDispute      bool   `json:"can_dispute"`
	CanCancel       bool   `json:"can_cancel"`
}

type EscrowEnvelopeResponse struct {
	EscrowTransaction *EscrowTransactionResponse `json:"escrow_transaction"`
}

type EscrowListResponse struct {
	EscrowTransactions []*EscrowTransactionResponse `json:"escrow_transactions"`
	Page               int                          `json:"page"`
	TotalPages         int                          `json:"total_pages"`
	TotalCount         int                          `json:"total_count"`
}

type BadgeResponse struct {
	UnreadCount int `json:"unread_count"`
}

type NotificationListResponse struct {
	Notifications []entity.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
}

type ResetTokenResponse struct {
	ResetToken string `json:"reset_token"`
}

type SessionResponse struct {
	User *entity.User `json:"user"`
}

type IntentSnapshotResponse struct {
	AttemptID     string `json:"attempt_id"`
	SetupIntentID string `json:"setup_intent_id,omitempty"`
	CustomerID    string `json:"customer_id,omitempty"`
	Step          string `json:"step"`
	Outcome       string `json:"outcome"`
	Error         string `json:"error,omitempty"`
	UpdatedAt     string `json:"updated_at"`
}

type SavedCredentialResponse struct {
	Email      string `json:"email"`
	LastUsedAt string `json:"last_used_at"`
}

type ValidatePasswordResponse struct {
	Valid bool `json:"valid"`
}

type NoticeResponse struct {
	Level   string `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}
