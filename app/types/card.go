package types

import (
	"errors"
	"strings"
	"time"
)

const maxExpiryMonthsAhead = 120

var (
	ErrInvalidCardNumber     = errors.New("card number is invalid")
	ErrExpiredCard           = errors.New("card has expired")
	ErrInvalidExpiry         = errors.New("expiry date is invalid")
	ErrInvalidCVC            = errors.New("security code is invalid")
	ErrInvalidCardholderName = errors.New("cardholder name is required")
	ErrInvalidCountry        = errors.New("country must be a two-letter ISO 3166 code")
	ErrInvalidPostalCode     = errors.New("postal code must be 5 to 10 digits")
	ErrInvalidBillingDetails = errors.New("billing details are invalid")
)

var cardFieldErrors = map[string]error{
	"number":          ErrInvalidCardNumber,
	"exp_month":       ErrInvalidExpiry,
	"exp_year":        ErrInvalidExpiry,
	"cvc":             ErrInvalidCVC,
	"cardholder_name": ErrInvalidCardholderName,
}

var billingFieldErrors = map[string]error{
	"country":     ErrInvalidCountry,
	"postal_code": ErrInvalidPostalCode,
}

type CardInput struct {
	Number         string `json:"number" validate:"required,number,min=13,max=16,luhn_checksum"`
	ExpMonth       int    `json:"exp_month" validate:"min=1,max=12"`
	ExpYear        int    `json:"exp_year" validate:"min=2000,max=2999"`
	CVC            string `json:"cvc" validate:"required,number,min=3,max=4"`
	CardholderName string `json:"cardholder_name" validate:"required,max=100"`
}

// Normalize strips separators from the number and expands two-digit years.
func (c *CardInput) Normalize() {
	c.Number = strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(c.Number))
	c.CVC = strings.TrimSpace(c.CVC)
	c.CardholderName = strings.Join(strings.Fields(c.CardholderName), " ")
	if c.ExpYear >= 0 && c.ExpYear < 100 {
		c.ExpYear += 2000
	}
}

// Validate checks the card locally. The expiry must not be before the month
// of now and at most ten years after it.
func (c *CardInput) Validate(now time.Time) error {
	c.Normalize()
	if err := firstFieldError(c, cardFieldErrors, ErrInvalidCardNumber); err != nil {
		return err
	}

	diff := (c.ExpYear*12 + c.ExpMonth) - (now.Year()*12 + int(now.Month()))
	if diff < 0 {
		return &ValidationError{Field: "exp_year", Err: ErrExpiredCard}
	}
	if diff > maxExpiryMonthsAhead {
		return &ValidationError{Field: "exp_year", Err: ErrInvalidExpiry}
	}
	return nil
}

// Last4 is safe to log.
func (c CardInput) Last4() string {
	if len(c.Number) < 4 {
		return ""
	}
	return c.Number[len(c.Number)-4:]
}

// BillingInput carries the billing address collected with the card. Postal
// codes are numeric only.
type BillingInput struct {
	Country    string `json:"country" validate:"required,iso3166_1_alpha2"`
	PostalCode string `json:"postal_code" validate:"required,number,min=5,max=10"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
}

func (b *BillingInput) Normalize() {
	b.Country = strings.ToUpper(strings.TrimSpace(b.Country))
	b.PostalCode = strings.TrimSpace(b.PostalCode)
	b.Email = strings.TrimSpace(b.Email)
}

func (b *BillingInput) Validate() error {
	b.Normalize()
	return firstFieldError(b, billingFieldErrors, ErrInvalidBillingDetails)
}
