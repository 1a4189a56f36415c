package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-favorpay/app/entity"
	"github.com/vibast-solutions/ms-go-favorpay/app/factory"
)

const (
	defaultStripeAPIBaseURL = "https://api.stripe.com"

	publishableKeyTestPrefix = "pk_test_"
	publishableKeyLivePrefix = "pk_live_"
)

var (
	ErrPublishableKeyMissing = errors.New("stripe publishable key is not configured")
	ErrPublishableKeyInvalid = errors.New("stripe publishable key must start with pk_test_ or pk_live_")
	ErrStripeUnavailable     = errors.New("stripe is unavailable")
)

type StripeConfig struct {
	PublishableKey string
	APIBaseURL     string
	HTTPTimeout    time.Duration
}

// StripeError is an error returned by the Stripe API. Message is written by
// Stripe for end users ("Your card was declined.").
type StripeError struct {
	Status      int
	Type        string
	Code        string
	DeclineCode string
	Message     string
}

func (e *StripeError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stripe %s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("stripe %s: %s", e.Type, e.Message)
}

// NoSuchSetupIntent reports Stripe not knowing the intent, which happens when
// the publishable key belongs to another account than the backend's secret key.
func (e *StripeError) NoSuchSetupIntent() bool {
	if e == nil {
		return false
	}
	return strings.Contains(strings.ToLower(e.Message), "no such setupintent")
}

type StripeSDK struct {
	cfg    StripeConfig
	client *http.Client
	logger logrus.FieldLogger
}

func NewStripeSDK(cfg StripeConfig) (*StripeSDK, error) {
	cfg.PublishableKey = strings.TrimSpace(cfg.PublishableKey)
	if err := ValidatePublishableKey(cfg.PublishableKey); err != nil {
		return nil, err
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultStripeAPIBaseURL
	}

	return &StripeSDK{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: factory.NewModuleLogger("stripe-sdk"),
	}, nil
}

func ValidatePublishableKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrPublishableKeyMissing
	}
	if !strings.HasPrefix(key, publishableKeyTestPrefix) && !strings.HasPrefix(key, publishableKeyLivePrefix) {
		return ErrPublishableKeyInvalid
	}
	return nil
}

// LiveMode reports whether the SDK talks to live Stripe data.
func (p *StripeSDK) LiveMode() bool {
	return strings.HasPrefix(p.cfg.PublishableKey, publishableKeyLivePrefix)
}

func (p *StripeSDK) CreateToken(ctx context.Context, card CardParams) (*Token, error) {
	values := url.Values{}
	values.Set("card[number]", card.Number)
	values.Set("card[exp_month]", strconv.Itoa(card.ExpMonth))
	values.Set("card[exp_year]", strconv.Itoa(card.ExpYear))
	values.Set("card[cvc]", card.CVC)
	if name := strings.TrimSpace(card.Name); name != "" {
		values.Set("card[name]", name)
	}
	if country := strings.TrimSpace(card.AddressCountry); country != "" {
		values.Set("card[address_country]", country)
	}
	if zip := strings.TrimSpace(card.AddressZip); zip != "" {
		values.Set("card[address_zip]", zip)
	}

	body, err := p.postForm(ctx, "/v1/tokens", values)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID   string `json:"id"`
		Card struct {
			Last4 string `json:"last4"`
			Brand string `json:"brand"`
		} `json:"card"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	tokenID := strings.TrimSpace(payload.ID)
	if tokenID == "" {
		return nil, errors.New("stripe token id missing")
	}

	return &Token{ID: tokenID, Last4: payload.Card.Last4, Brand: payload.Card.Brand}, nil
}

func (p *StripeSDK) ConfirmSetupIntent(ctx context.Context, clientSecret string, params ConfirmSetupIntentParams) (*ConfirmedSetupIntent, error) {
	intentID := entity.SetupIntentIDFromSecret(clientSecret)
	if intentID == "" {
		return nil, entity.ErrMalformedClientSecret
	}

	values := url.Values{}
	values.Set("client_secret", clientSecret)
	values.Set("payment_method_data[type]", "card")
	values.Set("payment_method_data[card][token]", params.Token)
	billing := params.BillingDetails
	if name := strings.TrimSpace(billing.Name); name != "" {
		values.Set("payment_method_data[billing_details][name]", name)
	}
	if email := strings.TrimSpace(billing.Email); email != "" {
		values.Set("payment_method_data[billing_details][email]", email)
	}
	if country := strings.TrimSpace(billing.Country); country != "" {
		values.Set("payment_method_data[billing_details][address][country]", country)
	}
	if zip := strings.TrimSpace(billing.PostalCode); zip != "" {
		values.Set("payment_method_data[billing_details][address][postal_code]", zip)
	}

	body, err := p.postForm(ctx, "/v1/setup_intents/"+url.PathEscape(intentID)+"/confirm", values)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID            string      `json:"id"`
		Status        string      `json:"status"`
		PaymentMethod interface{} `json:"payment_method"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	return &ConfirmedSetupIntent{
		ID:              strings.TrimSpace(payload.ID),
		Status:          strings.TrimSpace(payload.Status),
		PaymentMethodID: parseStringish(payload.PaymentMethod),
	}, nil
}

func (p *StripeSDK) postForm(ctx context.Context, path string, values url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIBaseURL+path, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.PublishableKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.WithError(err).WithField("path", path).Warn("stripe_request_failed")
		return nil, fmt.Errorf("%w: %v", ErrStripeUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStripeUnavailable, err)
	}
	if resp.StatusCode >= 400 {
		stripeErr := parseStripeError(resp.StatusCode, body)
		p.logger.WithFields(logrus.Fields{
			"path":   path,
			"status": resp.StatusCode,
			"type":   stripeErr.Type,
			"code":   stripeErr.Code,
		}).Info("stripe_request_rejected")
		return nil, stripeErr
	}

	return body, nil
}

func parseStripeError(status int, body []byte) *StripeError {
	var payload struct {
		Error struct {
			Type        string `json:"type"`
			Code        string `json:"code"`
			DeclineCode string `json:"decline_code"`
			Message     string `json:"message"`
		} `json:"error"`
	}
	result := &StripeError{Status: status, Type: "api_error"}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Error.Type != "" {
			result.Type = payload.Error.Type
		}
		result.Code = payload.Error.Code
		result.DeclineCode = payload.Error.DeclineCode
		result.Message = strings.TrimSpace(payload.Error.Message)
	}
	if result.Message == "" {
		result.Message = fmt.Sprintf("stripe request failed with status %d", status)
	}
	return result
}

func parseStringish(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]interface{}:
		if raw, ok := t["id"]; ok {
			if s, ok := raw.(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
