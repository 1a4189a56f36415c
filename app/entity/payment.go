package entity

import "time"

type Card struct {
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
	Funding  string `json:"funding"`
	Country  string `json:"country,omitempty"`
}

type Address struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

type BillingDetails struct {
	Name    string  `json:"name,omitempty"`
	Email   string  `json:"email,omitempty"`
	Address Address `json:"address"`
}

// PaymentMethod is a tokenized card saved against the current user. It is
// immutable once created; edits are a delete followed by a new setup.
type PaymentMethod struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	Card           Card           `json:"card"`
	BillingDetails BillingDetails `json:"billing_details"`
	IsDefault      bool           `json:"is_default"`
	CreatedAt      *time.Time     `json:"created_at,omitempty"`
}

type MerchantAccount struct {
	AccountID        string `json:"account_id"`
	AccountType      string `json:"account_type"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	DetailsSubmitted bool   `json:"details_submitted"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
	AlreadyExists    bool   `json:"already_exists"`
}
