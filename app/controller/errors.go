package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-favorpay/app/backend"
	"github.com/vibast-solutions/ms-go-favorpay/app/factory"
	"github.com/vibast-solutions/ms-go-favorpay/app/provider"
	"github.com/vibast-solutions/ms-go-favorpay/app/service"
	"github.com/vibast-solutions/ms-go-favorpay/app/session"
	"github.com/vibast-solutions/ms-go-favorpay/app/types"
)

var statusByKind = map[backend.Kind]int{
	backend.KindAuthenticationRequired: http.StatusUnauthorized,
	backend.KindInvalidCredentials:     http.StatusUnauthorized,
	backend.KindNetwork:                http.StatusServiceUnavailable,
	backend.KindBadRequest:             http.StatusBadRequest,
	backend.KindForbidden:              http.StatusForbidden,
	backend.KindNotFound:               http.StatusNotFound,
	backend.KindValidation:             http.StatusUnprocessableEntity,
	backend.KindServer:                 http.StatusBadGateway,
	backend.KindUnknownHTTP:            http.StatusBadGateway,
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrInvalidCardInput),
		errors.Is(err, service.ErrInvalidResolution):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrAlreadyDisputed), errors.Is(err, service.ErrTransactionCompleted),
		errors.Is(err, service.ErrInvalidState), errors.Is(err, session.ErrNoRegistration):
		return http.StatusConflict
	}

	if kind := backend.KindOf(err); kind != "" {
		if status, ok := statusByKind[kind]; ok {
			return status
		}
	}

	switch {
	case errors.Is(err, service.ErrInvalidClientSecret), errors.Is(err, service.ErrSetupIntentMismatch):
		return http.StatusBadGateway
	case errors.Is(err, provider.ErrStripeUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrCardTokenization), errors.Is(err, service.ErrSetupIntentConfirmation):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// respondError renders err with a display-safe message. Unexpected errors are
// logged with the request context.
func respondError(ctx echo.Context, logger logrus.FieldLogger, err error, action string) error {
	status := statusForError(err)
	resp := &types.ErrorResponse{Error: service.DisplayMessage(err)}

	var setupErr *service.SetupError
	if errors.As(err, &setupErr) {
		resp.Step = string(setupErr.Step)
	}

	if status >= http.StatusInternalServerError {
		factory.LoggerWithContext(logger, ctx).WithError(err).Error(action + " failed")
	}
	return ctx.JSON(status, resp)
}

func writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
