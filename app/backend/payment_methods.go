package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/vibast-solutions/ms-go-favorpay/app/entity"
)

const (
	pathPaymentMethods     = "/payment_methods"
	pathSetupIntent        = "/payment_methods/setup_intent"
	pathCreateConnectAcct  = "/stripe_connect/create_account"
	routePaymentMethodByID = "/payment_methods/:id"
)

type createSetupIntentRequest struct {
	ForceNewCustomer bool `json:"force_new_customer,omitempty"`
}

type savePaymentMethodRequest struct {
	SetupIntentID string `json:"setup_intent_id"`
}

type SavePaymentMethodResponse struct {
	PaymentMethod entity.PaymentMethod `json:"payment_method"`
	IsDefault     bool                 `json:"is_default"`
}

type PaymentMethodList struct {
	PaymentMethods         []entity.PaymentMethod `json:"payment_methods"`
	HasPaymentMethod       bool                   `json:"has_payment_method"`
	DefaultPaymentMethodID *string                `json:"default_payment_method_id"`
}

// Default returns the method flagged as default, if any.
func (l PaymentMethodList) Default() (entity.PaymentMethod, bool) {
	for _, pm := range l.PaymentMethods {
		if pm.IsDefault {
			return pm, true
		}
	}
	return entity.PaymentMethod{}, false
}

type deletePaymentMethodResponse struct {
	DeletedPaymentMethodID string `json:"deleted_payment_method_id"`
}

func (c *Client) CreateSetupIntent(ctx context.Context, forceNewCustomer bool) (*entity.SetupIntent, error) {
	var out entity.SetupIntent
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   pathSetupIntent,
		body:   createSetupIntentRequest{ForceNewCustomer: forceNewCustomer},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SavePaymentMethod(ctx context.Context, setupIntentID string) (*SavePaymentMethodResponse, error) {
	var out SavePaymentMethodResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   pathPaymentMethods,
		body:   savePaymentMethodRequest{SetupIntentID: setupIntentID},
	}, &out)
	if err != nil {
		return nil, err
	}
	// Older backends only set the top-level flag.
	if out.IsDefault {
		out.PaymentMethod.IsDefault = true
	}
	return &out, nil
}

func (c *Client) ListPaymentMethods(ctx context.Context) (*PaymentMethodList, error) {
	var out PaymentMethodList
	if err := c.do(ctx, request{method: http.MethodGet, path: pathPaymentMethods}, &out); err != nil {
		return nil, err
	}
	if out.PaymentMethods == nil {
		out.PaymentMethods = []entity.PaymentMethod{}
	}
	return &out, nil
}

// DeletePaymentMethod returns the id the backend reports as deleted.
func (c *Client) DeletePaymentMethod(ctx context.Context, id string) (string, error) {
	var out deletePaymentMethodResponse
	err := c.do(ctx, request{
		method: http.MethodDelete,
		path:   pathPaymentMethods + "/" + url.PathEscape(id),
		route:  routePaymentMethodByID,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.DeletedPaymentMethodID == "" {
		out.DeletedPaymentMethodID = id
	}
	return out.DeletedPaymentMethodID, nil
}

func (c *Client) CreateConnectAccount(ctx context.Context) (*entity.MerchantAccount, error) {
	var out entity.MerchantAccount
	if err := c.do(ctx, request{method: http.MethodPost, path: pathCreateConnectAcct}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
