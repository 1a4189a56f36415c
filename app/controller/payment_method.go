package controller

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-favorpay/app/factory"
	"github.com/vibast-solutions/ms-go-favorpay/app/mapper"
	"github.com/vibast-solutions/ms-go-favorpay/app/service"
	"github.com/vibast-solutions/ms-go-favorpay/app/types"
)

type PaymentMethodController struct {
	paymentMethodService *service.PaymentMethodService
	logger               logrus.FieldLogger
}

func NewPaymentMethodController(paymentMethodService *service.PaymentMethodService) *PaymentMethodController {
	return &PaymentMethodController{
		paymentMethodService: paymentMethodService,
		logger:               factory.NewModuleLogger("payment-methods-controller"),
	}
}

func (c *PaymentMethodController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *PaymentMethodController) SetupPaymentMethod(ctx echo.Context) error {
	req, err := types.NewSetupPaymentMethodRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	result, err := c.paymentMethodService.SetupPaymentMethod(ctx.Request().Context(), service.SetupRequest{
		Card:             req.Card,
		Billing:          req.Billing,
		ForceNewCustomer: req.ForceNewCustomer,
	})
	if err != nil {
		return respondError(ctx, c.logger, err, "Setup payment method")
	}

	return ctx.JSON(http.StatusCreated, mapper.SetupResultToResponse(
		&result.PaymentMethod,
		result.IsDefault,
		result.SetupIntentID,
		!result.MerchantAccount.OK(),
	))
}

func (c *PaymentMethodController) ListPaymentMethods(ctx echo.Context) error {
	fresh, _ := strconv.ParseBool(ctx.QueryParam("fresh"))

	list, err := c.paymentMethodService.ListPaymentMethods(ctx.Request().Context(), fresh)
	if err != nil {
		return respondError(ctx, c.logger, err, "List payment methods")
	}

	return ctx.JSON(http.StatusOK, mapper.PaymentMethodListToResponse(list))
}

func (c *PaymentMethodController) DeletePaymentMethod(ctx echo.Context) error {
	req, err := types.NewDeletePaymentMethodRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.paymentMethodService.DeletePaymentMethod(ctx.Request().Context(), req.ID)
	if err != nil {
		return respondError(ctx, c.logger, err, "Delete payment method")
	}

	return ctx.JSON(http.StatusOK, &types.DeletePaymentMethodResponse{
		DeletedPaymentMethodID: result.DeletedID,
		AlreadyDeleted:         result.AlreadyDeleted,
	})
}

func (c *PaymentMethodController) ListAttempts(ctx echo.Context) error {
	limit, err := parseLimit(ctx.QueryParam("limit"))
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid limit")
	}

	items, err := c.paymentMethodService.ListAttempts(ctx.Request().Context(), limit)
	if err != nil {
		return respondError(ctx, c.logger, err, "List setup attempts")
	}

	return ctx.JSON(http.StatusOK, mapper.IntentSnapshotsToResponse(items))
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, strconv.ErrSyntax
	}
	return limit, nil
}
