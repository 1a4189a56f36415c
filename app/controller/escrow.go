package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-favorpay/app/entity"
	"github.com/vibast-solutions/ms-go-favorpay/app/factory"
	"github.com/vibast-solutions/ms-go-favorpay/app/mapper"
	"github.com/vibast-solutions/ms-go-favorpay/app/service"
	"github.com/vibast-solutions/ms-go-favorpay/app/types"
)

type EscrowController struct {
	escrowService *service.EscrowService
	logger        logrus.FieldLogger
}

func NewEscrowController(escrowService *service.EscrowService) *EscrowController {
	return &EscrowController{
		escrowService: escrowService,
		logger:        factory.NewModuleLogger("escrow-controller"),
	}
}

func (c *EscrowController) GetEscrow(ctx echo.Context) error {
	req, err := types.NewFavorEscrowRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	tx, err := c.escrowService.GetByFavor(ctx.Request().Context(), req.FavorID)
	if err != nil {
		return respondError(ctx, c.logger, err, "Get escrow")
	}
	return c.writeEscrow(ctx, tx)
}

func (c *EscrowController) ListEscrowTransactions(ctx echo.Context) error {
	req, err := types.NewListEscrowTransactionsRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	list, err := c.escrowService.List(ctx.Request().Context(), req)
	if err != nil {
		return respondError(ctx, c.logger, err, "List escrow transactions")
	}
	return ctx.JSON(http.StatusOK, mapper.EscrowListToResponse(list))
}

func (c *EscrowController) Dispute(ctx echo.Context) error {
	req, err := types.NewEscrowReasonRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.ValidateRequired(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	tx, err := c.escrowService.Dispute(ctx.Request().Context(), req.FavorID, req.Reason)
	if err != nil {
		return respondError(ctx, c.logger, err, "Dispute escrow")
	}
	return c.writeEscrow(ctx, tx)
}

func (c *EscrowController) Resolve(ctx echo.Context) error {
	req, err := types.NewResolveDisputeRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	tx, err := c.escrowService.Resolve(ctx.Request().Context(), req)
	if err != nil {
		return respondError(ctx, c.logger, err, "Resolve escrow dispute")
	}
	return c.writeEscrow(ctx, tx)
}

func (c *EscrowController) ManualRelease(ctx echo.Context) error {
	req, err := types.NewEscrowReasonRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.ValidateRequired(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	tx, err := c.escrowService.ManualRelease(ctx.Request().Context(), req.FavorID, req.Reason)
	if err != nil {
		return respondError(ctx, c.logger, err, "Release escrow")
	}
	return c.writeEscrow(ctx, tx)
}

func (c *EscrowController) Cancel(ctx echo.Context) error {
	req, err := types.NewEscrowReasonRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	tx, err := c.escrowService.Cancel(ctx.Request().Context(), req.FavorID, req.Reason)
	if err != nil {
		return respondError(ctx, c.logger, err, "Cancel escrow")
	}
	return c.writeEscrow(ctx, tx)
}

func (c *EscrowController) writeEscrow(ctx echo.Context, tx *entity.EscrowTransaction) error {
	return ctx.JSON(http.StatusOK, &types.EscrowEnvelopeResponse{EscrowTransaction: mapper.EscrowToResponse(tx)})
}
