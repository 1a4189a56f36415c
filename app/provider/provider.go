package provider

import "context"

// CardParams is the raw card entered by the user. It only lives for the
// duration of a tokenization call.
type CardParams struct {
	Number         string
	ExpMonth       int
	ExpYear        int
	CVC            string
	Name           string
	AddressCountry string
	AddressZip     string
}

type Token struct {
	ID    string
	Last4 string
	Brand string
}

type BillingDetails struct {
	Name       string
	Email      string
	Country    string
	PostalCode string
}

type ConfirmSetupIntentParams struct {
	Token          string
	BillingDetails BillingDetails
}

type ConfirmedSetupIntent struct {
	ID              string
	Status          string
	PaymentMethodID string
}

func (s *ConfirmedSetupIntent) Succeeded() bool {
	return s != nil && s.Status == SetupIntentStatusSucceeded
}

const (
	SetupIntentStatusSucceeded      = "succeeded"
	SetupIntentStatusProcessing     = "processing"
	SetupIntentStatusRequiresAction = "requires_action"
)

// PaymentSDK is the client-side payment SDK: card tokenization and setup
// intent confirmation with a publishable key.
type PaymentSDK interface {
	CreateToken(ctx context.Context, card CardParams) (*Token, error)
	ConfirmSetupIntent(ctx context.Context, clientSecret string, params ConfirmSetupIntentParams) (*ConfirmedSetupIntent, error)
}
