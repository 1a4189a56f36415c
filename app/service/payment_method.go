package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-favorpay/app/backend"
	"github.com/vibast-solutions/ms-go-favorpay/app/entity"
	"github.com/vibast-solutions/ms-go-favorpay/app/factory"
	"github.com/vibast-solutions/ms-go-favorpay/app/metrics"
	"github.com/vibast-solutions/ms-go-favorpay/app/notifier"
	"github.com/vibast-solutions/ms-go-favorpay/app/provider"
	"github.com/vibast-solutions/ms-go-favorpay/app/types"
	"github.com/vibast-solutions/ms-go-favorpay/config"
)

const (
	invalidClientSecretMessage = "The payment service returned an invalid setup token. " +
		"This usually means the app and the server are configured with Stripe keys from different accounts " +
		"(publishable key and secret key must belong to the same Stripe account and mode). Please contact support."
	setupIntentMismatchMessage = "Stripe could not find the card setup created by the server (no such setupintent). " +
		"The app's publishable key and the server's secret key belong to different Stripe accounts or modes " +
		"(test vs live). Please contact support; retrying will not help."
	cardTokenizationMessage   = "We couldn't verify your card. Please check the details and try again."
	cardConfirmationMessage   = "We couldn't confirm your card. Please try again."
	cardNotConfirmedMessage   = "Your bank needs additional verification for this card. Please try a different card."
	setupIntentCreateMessage  = "We couldn't start adding your card. Please try again."
	savePaymentMethodFallback = "Your card was verified but could not be saved. Please try again."

	paymentMethodsCacheKeyPrefix = "payment_methods:"
	defaultSnapshotLimit         = 20
)

type paymentMethodAPI interface {
	CreateConnectAccount(ctx context.Context) (*entity.MerchantAccount, error)
	CreateSetupIntent(ctx context.Context, forceNewCustomer bool) (*entity.SetupIntent, error)
	SavePaymentMethod(ctx context.Context, setupIntentID string) (*backend.SavePaymentMethodResponse, error)
	ListPaymentMethods(ctx context.Context) (*backend.PaymentMethodList, error)
	DeletePaymentMethod(ctx context.Context, id string) (string, error)
}

type paymentMethodCache interface {
	Get(ctx context.Context, key string) (*backend.PaymentMethodList, bool, error)
	Set(ctx context.Context, key string, list *backend.PaymentMethodList) error
	Invalidate(ctx context.Context, key string) error
}

type intentSnapshotRepository interface {
	Create(ctx context.Context, snapshot *entity.IntentSnapshot) error
	Update(ctx context.Context, snapshot *entity.IntentSnapshot) error
	ListRecent(ctx context.Context, limit int) ([]*entity.IntentSnapshot, error)
}

type noticeSink interface {
	Notify(ctx context.Context, notice notifier.Notice)
}

type accountSource interface {
	Subject(ctx context.Context) string
}

type SetupRequest struct {
	Card             types.CardInput
	Billing          types.BillingInput
	ForceNewCustomer bool
}

type SetupResult struct {
	AttemptID       string
	PaymentMethod   entity.PaymentMethod
	IsDefault       bool
	SetupIntentID   string
	MerchantAccount Result[*entity.MerchantAccount]
}

type DeleteResult struct {
	DeletedID      string
	AlreadyDeleted bool
}

type PaymentMethodService struct {
	api       paymentMethodAPI
	sdk       provider.PaymentSDK
	cache     paymentMethodCache
	snapshots intentSnapshotRepository
	notices   noticeSink
	accounts  accountSource
	cfg       config.SetupConfig
	metrics   *metrics.ClientMetrics
	logger    logrus.FieldLogger
	now       func() time.Time
}

func NewPaymentMethodService(
	api paymentMethodAPI,
	sdk provider.PaymentSDK,
	cache paymentMethodCache,
	snapshots intentSnapshotRepository,
	notices noticeSink,
	accounts accountSource,
	cfg config.SetupConfig,
	m *metrics.ClientMetrics,
) *PaymentMethodService {
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = time.Second
	}
	if cfg.RetryCap <= 0 {
		cfg.RetryCap = 30 * time.Second
	}

	return &PaymentMethodService{
		api:       api,
		sdk:       sdk,
		cache:     cache,
		snapshots: snapshots,
		notices:   notices,
		accounts:  accounts,
		cfg:       cfg,
		metrics:   m,
		logger:    factory.NewModuleLogger("payment-method-service"),
		now:       time.Now,
	}
}

// SetupPaymentMethod runs one attempt of the card setup flow. Steps run in
// order and the first fatal failure ends the attempt; only the merchant
// account step is best effort.
func (s *PaymentMethodService) SetupPaymentMethod(ctx context.Context, req SetupRequest) (*SetupResult, error) {
	card := req.Card
	billing := req.Billing
	if err := card.Validate(s.now()); err != nil {
		return nil, s.fail(ctx, nil, &SetupError{Step: StepValidateInput, Kind: ErrInvalidCardInput, Message: err.Error(), Cause: err})
	}
	if err := billing.Validate(); err != nil {
		return nil, s.fail(ctx, nil, &SetupError{Step: StepValidateInput, Kind: ErrInvalidCardInput, Message: err.Error(), Cause: err})
	}

	result := &SetupResult{AttemptID: uuid.NewString()}
	l := s.logger.WithField("attempt_id", result.AttemptID)
	snapshot := s.startSnapshot(ctx, result.AttemptID)

	result.MerchantAccount = s.ensureMerchantAccount(ctx)
	if !result.MerchantAccount.OK() {
		l.WithError(result.MerchantAccount.Err).Warn("merchant_account_failed")
	}

	s.advanceSnapshot(ctx, snapshot, StepCreateSetupIntent)
	intent, err := s.createSetupIntent(ctx, req.ForceNewCustomer || s.cfg.ForceNewCustomer)
	if err != nil {
		return nil, s.fail(ctx, snapshot, &SetupError{
			Step:    StepCreateSetupIntent,
			Kind:    ErrSetupIntentCreation,
			Message: backendMessage(err, setupIntentCreateMessage),
			Cause:   err,
		})
	}
	if snapshot != nil {
		snapshot.SetupIntentID = intent.SetupIntentID
		snapshot.CustomerID = intent.CustomerID
	}
	l = l.WithField("setup_intent_id", intent.SetupIntentID)

	s.advanceSnapshot(ctx, snapshot, StepValidateClientSecret)
	if err := entity.ValidateClientSecret(intent.ClientSecret); err != nil {
		l.Error("setup_intent_client_secret_malformed")
		return nil, s.fail(ctx, snapshot, &SetupError{
			Step:    StepValidateClientSecret,
			Kind:    ErrInvalidClientSecret,
			Message: invalidClientSecretMessage,
			Cause:   err,
		})
	}

	s.advanceSnapshot(ctx, snapshot, StepCollectCardDetails)
	token, err := s.sdk.CreateToken(ctx, provider.CardParams{
		Number:         card.Number,
		ExpMonth:       card.ExpMonth,
		ExpYear:        card.ExpYear,
		CVC:            card.CVC,
		Name:           card.CardholderName,
		AddressCountry: billing.Country,
		AddressZip:     billing.PostalCode,
	})
	if err != nil {
		return nil, s.fail(ctx, snapshot, &SetupError{
			Step:    StepCollectCardDetails,
			Kind:    ErrCardTokenization,
			Message: sdkMessage(err, cardTokenizationMessage),
			Cause:   err,
		})
	}

	s.advanceSnapshot(ctx, snapshot, StepConfirmSetupIntent)
	confirmed, err := s.sdk.ConfirmSetupIntent(ctx, intent.ClientSecret, provider.ConfirmSetupIntentParams{
		Token: token.ID,
		BillingDetails: provider.BillingDetails{
			Name:       card.CardholderName,
			Email:      billing.Email,
			Country:    billing.Country,
			PostalCode: billing.PostalCode,
		},
	})
	if err != nil {
		var stripeErr *provider.StripeError
		if errors.As(err, &stripeErr) && stripeErr.NoSuchSetupIntent() {
			l.WithField("stripe_message", stripeErr.Message).Error("setup_intent_account_mismatch")
			return nil, s.fail(ctx, snapshot, &SetupError{
				Step:    StepConfirmSetupIntent,
				Kind:    ErrSetupIntentMismatch,
				Message: setupIntentMismatchMessage,
				Cause:   err,
			})
		}
		return nil, s.fail(ctx, snapshot, &SetupError{
			Step:    StepConfirmSetupIntent,
			Kind:    ErrSetupIntentConfirmation,
			Message: sdkMessage(err, cardConfirmationMessage),
			Cause:   err,
		})
	}
	if !confirmed.Succeeded() {
		return nil, s.fail(ctx, snapshot, &SetupError{
			Step:    StepConfirmSetupIntent,
			Kind:    ErrSetupIntentConfirmation,
			Message: cardNotConfirmedMessage,
			Cause:   fmt.Errorf("setup intent status %q", confirmed.Status),
		})
	}

	setupIntentID := confirmed.ID
	if setupIntentID == "" {
		setupIntentID = intent.SetupIntentID
	}
	result.SetupIntentID = setupIntentID

	s.advanceSnapshot(ctx, snapshot, StepSavePaymentMethod)
	saved, err := s.api.SavePaymentMethod(ctx, setupIntentID)
	if err != nil {
		return nil, s.fail(ctx, snapshot, &SetupError{
			Step:    StepSavePaymentMethod,
			Kind:    ErrSavePaymentMethod,
			Message: backendMessage(err, savePaymentMethodFallback),
			Cause:   err,
		})
	}

	result.PaymentMethod = saved.PaymentMethod
	result.IsDefault = saved.IsDefault
	s.invalidateList(ctx)
	s.finishSnapshot(ctx, snapshot, StepSuccess, entity.SnapshotOutcomeSucceeded, nil)
	s.metrics.IncSetupAttempt(string(StepSuccess), "succeeded")

	l.WithFields(logrus.Fields{
		"payment_method_id": saved.PaymentMethod.ID,
		"is_default":        saved.IsDefault,
	}).Info("payment_method_setup_succeeded")
	s.notify(ctx, notifier.Notice{
		Level:   notifier.LevelSuccess,
		Title:   "Card added",
		Message: successMessage(saved.PaymentMethod, saved.IsDefault),
	})

	return result, nil
}

func (s *PaymentMethodService) ensureMerchantAccount(ctx context.Context) Result[*entity.MerchantAccount] {
	account, err := s.api.CreateConnectAccount(ctx)
	if err != nil {
		return Result[*entity.MerchantAccount]{Err: fmt.Errorf("%w: %w", ErrMerchantAccount, err)}
	}
	return Result[*entity.MerchantAccount]{Value: account}
}

func (s *PaymentMethodService) createSetupIntent(ctx context.Context, forceNewCustomer bool) (*entity.SetupIntent, error) {
	b := retry.NewExponential(s.cfg.RetryBase)
	b = retry.WithCappedDuration(s.cfg.RetryCap, b)
	b = retry.WithMaxRetries(s.cfg.MaxRetries, b)

	var intent *entity.SetupIntent
	attempt := 0
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		created, err := s.api.CreateSetupIntent(ctx, forceNewCustomer)
		if err == nil {
			intent = created
			return nil
		}
		if errors.Is(err, backend.ErrAuthenticationRequired) {
			return err
		}
		s.logger.WithError(err).WithField("attempt", attempt).Warn("setup_intent_create_failed")
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, err
	}
	return intent, nil
}

func (s *PaymentMethodService) fail(ctx context.Context, snapshot *entity.IntentSnapshot, setupErr *SetupError) error {
	message := setupErr.Message
	s.finishSnapshot(ctx, snapshot, setupErr.Step, entity.SnapshotOutcomeFailed, &message)
	s.metrics.IncSetupAttempt(string(setupErr.Step), "failed")

	s.logger.WithFields(logrus.Fields{
		"step": setupErr.Step,
		"kind": setupErr.Kind,
	}).WithError(setupErr.Cause).Warn("payment_method_setup_failed")
	s.notify(ctx, notifier.Notice{
		Level:   notifier.LevelError,
		Title:   "Card not added",
		Message: setupErr.Message,
	})
	return setupErr
}

func (s *PaymentMethodService) notify(ctx context.Context, notice notifier.Notice) {
	if s.notices != nil {
		s.notices.Notify(ctx, notice)
	}
}

func (s *PaymentMethodService) startSnapshot(ctx context.Context, attemptID string) *entity.IntentSnapshot {
	if s.snapshots == nil {
		return nil
	}
	now := s.now().UTC()
	snapshot := &entity.IntentSnapshot{
		AttemptID: attemptID,
		Step:      string(StepStart),
		Outcome:   entity.SnapshotOutcomePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.snapshots.Create(ctx, snapshot); err != nil {
		s.logger.WithError(err).Warn("intent_snapshot_create_failed")
		return nil
	}
	return snapshot
}

func (s *PaymentMethodService) advanceSnapshot(ctx context.Context, snapshot *entity.IntentSnapshot, step Step) {
	if snapshot == nil {
		return
	}
	snapshot.Step = string(step)
	snapshot.UpdatedAt = s.now().UTC()
	if err := s.snapshots.Update(ctx, snapshot); err != nil {
		s.logger.WithError(err).Warn("intent_snapshot_update_failed")
	}
}

func (s *PaymentMethodService) finishSnapshot(ctx context.Context, snapshot *entity.IntentSnapshot, step Step, outcome string, message *string) {
	if snapshot == nil {
		return
	}
	snapshot.Outcome = outcome
	snapshot.ErrorMessage = message
	s.advanceSnapshot(ctx, snapshot, step)
}

// ListPaymentMethods serves the cached list unless fresh is set.
func (s *PaymentMethodService) ListPaymentMethods(ctx context.Context, fresh bool) (*backend.PaymentMethodList, error) {
	key, cacheable := s.cacheKey(ctx)
	if !fresh && cacheable {
		list, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.WithError(err).Warn("payment_methods_cache_get_failed")
		} else if ok {
			return list, nil
		}
	}

	list, err := s.api.ListPaymentMethods(ctx)
	if err != nil {
		return nil, err
	}
	if cacheable {
		if err := s.cache.Set(ctx, key, list); err != nil {
			s.logger.WithError(err).Warn("payment_methods_cache_set_failed")
		}
	}
	return list, nil
}

// DeletePaymentMethod removes a saved method. A method that no longer exists
// counts as deleted. The backend promotes a new default when needed.
func (s *PaymentMethodService) DeletePaymentMethod(ctx context.Context, id string) (*DeleteResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidRequest
	}

	result := &DeleteResult{DeletedID: id}
	deletedID, err := s.api.DeletePaymentMethod(ctx, id)
	switch {
	case err == nil:
		result.DeletedID = deletedID
	case errors.Is(err, backend.ErrNotFound):
		s.logger.WithField("payment_method_id", id).Warn("payment_method_already_deleted")
		result.AlreadyDeleted = true
	default:
		return nil, err
	}

	s.invalidateList(ctx)
	return result, nil
}

// ListAttempts returns the latest setup attempts for debugging and recovery.
func (s *PaymentMethodService) ListAttempts(ctx context.Context, limit int) ([]*entity.IntentSnapshot, error) {
	if s.snapshots == nil {
		return []*entity.IntentSnapshot{}, nil
	}
	maxLimit := s.cfg.SnapshotLimit
	if maxLimit <= 0 {
		maxLimit = defaultSnapshotLimit
	}
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}
	return s.snapshots.ListRecent(ctx, limit)
}

func (s *PaymentMethodService) invalidateList(ctx context.Context) {
	key, cacheable := s.cacheKey(ctx)
	if !cacheable {
		return
	}
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.logger.WithError(err).Warn("payment_methods_cache_invalidate_failed")
	}
}

// cacheKey scopes the cached list to the signed-in account. Lists of an
// unknown account are never cached.
func (s *PaymentMethodService) cacheKey(ctx context.Context) (string, bool) {
	if s.cache == nil || s.accounts == nil {
		return "", false
	}
	subject := s.accounts.Subject(ctx)
	if subject == "" {
		return "", false
	}
	return paymentMethodsCacheKeyPrefix + subject, true
}

func backendMessage(err error, fallback string) string {
	apiErr := backend.As(err)
	if apiErr == nil || apiErr.Message == "" {
		return fallback
	}
	return apiErr.Message
}

// sdkMessage passes Stripe's own card errors through; they are written for
// end users.
func sdkMessage(err error, fallback string) string {
	var stripeErr *provider.StripeError
	if errors.As(err, &stripeErr) && stripeErr.Type == "card_error" && stripeErr.Message != "" {
		return stripeErr.Message
	}
	return fallback
}

func successMessage(pm entity.PaymentMethod, isDefault bool) string {
	brand := strings.TrimSpace(pm.Card.Brand)
	if brand == "" {
		brand = "Card"
	} else {
		brand = strings.ToUpper(brand[:1]) + brand[1:]
	}
	message := fmt.Sprintf("%s ending in %s was added.", brand, pm.Card.Last4)
	if isDefault {
		message += " It is now your default payment method."
	}
	return message
}
