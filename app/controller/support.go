package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-favorpay/app/factory"
	"github.com/vibast-solutions/ms-go-favorpay/app/service"
	"github.com/vibast-solutions/ms-go-favorpay/app/types"
)

type SupportController struct {
	supportService *service.SupportService
	logger         logrus.FieldLogger
}

func NewSupportController(supportService *service.SupportService) *SupportController {
	return &SupportController{
		supportService: supportService,
		logger:         factory.NewModuleLogger("support-controller"),
	}
}

func (c *SupportController) CreateTicket(ctx echo.Context) error {
	req, err := types.NewSupportTicketRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	ticket, err := c.supportService.CreateTicket(ctx.Request().Context(), req)
	if err != nil {
		return respondError(ctx, c.logger, err, "Create support ticket")
	}
	return ctx.JSON(http.StatusCreated, ticket)
}
