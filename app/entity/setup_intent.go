package entity

import (
	"errors"
	"strings"
)

const (
	SetupIntentPrefix     = "seti_"
	clientSecretSeparator = "_secret_"
)

var ErrMalformedClientSecret = errors.New("client secret is malformed")

// SetupIntent is issued by the backend for a single card-collection attempt.
// It is never persisted; only the ids may end up in an IntentSnapshot.
type SetupIntent struct {
	ClientSecret  string `json:"client_secret"`
	SetupIntentID string `json:"setup_intent_id"`
	CustomerID    string `json:"customer_id"`
}

// ValidateClientSecret accepts secrets shaped "seti_<id>_secret_<suffix>".
func ValidateClientSecret(secret string) error {
	secret = strings.TrimSpace(secret)
	if !strings.HasPrefix(secret, SetupIntentPrefix) {
		return ErrMalformedClientSecret
	}
	idx := strings.Index(secret, clientSecretSeparator)
	if idx <= len(SetupIntentPrefix) {
		return ErrMalformedClientSecret
	}
	if idx+len(clientSecretSeparator) >= len(secret) {
		return ErrMalformedClientSecret
	}
	return nil
}

// SetupIntentIDFromSecret returns the "seti_<id>" part of a client secret, or
// an empty string when the secret is malformed.
func SetupIntentIDFromSecret(secret string) string {
	if ValidateClientSecret(secret) != nil {
		return ""
	}
	secret = strings.TrimSpace(secret)
	return secret[:strings.Index(secret, clientSecretSeparator)]
}
