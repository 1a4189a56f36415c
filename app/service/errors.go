package service

import (
	"errors"
	"fmt"

	"github.com/vibast-solutions/ms-go-favorpay/app/backend"
	"github.com/vibast-solutions/ms-go-favorpay/app/session"
	"github.com/vibast-solutions/ms-go-favorpay/app/types"
)

var (
	ErrInvalidRequest          = errors.New("invalid request")
	ErrInvalidCardInput        = errors.New("invalid card input")
	ErrMerchantAccount         = errors.New("merchant account could not be created")
	ErrSetupIntentCreation     = errors.New("setup intent could not be created")
	ErrInvalidClientSecret     = errors.New("invalid client secret")
	ErrCardTokenization        = errors.New("card tokenization failed")
	ErrSetupIntentConfirmation = errors.New("setup intent confirmation failed")
	ErrSetupIntentMismatch     = fmt.Errorf("%w: no such setupintent", ErrSetupIntentConfirmation)
	ErrSavePaymentMethod       = errors.New("payment method could not be saved")

	ErrAlreadyDisputed      = errors.New("transaction is already disputed")
	ErrTransactionCompleted = errors.New("transaction is already completed")
	ErrInvalidState         = errors.New("transaction is not in a valid state for this action")
	ErrInvalidResolution    = errors.New("invalid dispute resolution")
)

const genericFailureMessage = "Something went wrong. Please try again."

// Step is a state of the payment method setup flow.
type Step string

const (
	StepValidateInput         Step = "validate_input"
	StepStart                 Step = "start"
	StepEnsureMerchantAccount Step = "ensure_merchant_account"
	StepCreateSetupIntent     Step = "create_setup_intent"
	StepValidateClientSecret  Step = "validate_client_secret"
	StepCollectCardDetails    Step = "collect_card_details"
	StepConfirmSetupIntent    Step = "confirm_setup_intent"
	StepSavePaymentMethod     Step = "save_payment_method"
	StepSuccess               Step = "success"
)

// SetupError is the terminal failure of a setup attempt. Message is safe to
// display; Kind is one of the Err* sentinels.
type SetupError struct {
	Step    Step
	Kind    error
	Message string
	Cause   error
}

func (e *SetupError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s at %s: %v", e.Kind, e.Step, e.Cause)
	}
	return fmt.Sprintf("%s at %s", e.Kind, e.Step)
}

func (e *SetupError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Result keeps the outcome of a best-effort step.
type Result[T any] struct {
	Value T
	Err   error
}

func (r Result[T]) OK() bool {
	return r.Err == nil
}

var sentinelMessages = map[error]string{
	ErrAlreadyDisputed:        "This transaction has already been disputed.",
	ErrTransactionCompleted:   "This transaction has already been completed.",
	ErrInvalidState:           "This action is no longer available for this transaction.",
	ErrInvalidResolution:      "Choose release to provider, refund to requester, or partial release.",
	session.ErrNoRegistration: "Please start the sign up again.",
}

// DisplayMessage returns a message that is safe to show for err.
func DisplayMessage(err error) string {
	if err == nil {
		return ""
	}

	var setupErr *SetupError
	if errors.As(err, &setupErr) && setupErr.Message != "" {
		return setupErr.Message
	}
	for sentinel, message := range sentinelMessages {
		if errors.Is(err, sentinel) {
			return message
		}
	}
	if apiErr := backend.As(err); apiErr != nil {
		if apiErr.Message == "" {
			return backend.PublicMessage(apiErr.Kind)
		}
		return apiErr.Message
	}
	var validationErr *types.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Error()
	}
	return genericFailureMessage
}
