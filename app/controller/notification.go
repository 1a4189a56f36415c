package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-favorpay/app/factory"
	"github.com/vibast-solutions/ms-go-favorpay/app/mapper"
	"github.com/vibast-solutions/ms-go-favorpay/app/notifier"
	"github.com/vibast-solutions/ms-go-favorpay/app/service"
	"github.com/vibast-solutions/ms-go-favorpay/app/types"
)

type NotificationController struct {
	badgeWatcher *service.BadgeWatcher
	notices      *notifier.Recorder
	logger       logrus.FieldLogger
}

func NewNotificationController(badgeWatcher *service.BadgeWatcher, notices *notifier.Recorder) *NotificationController {
	return &NotificationController{
		badgeWatcher: badgeWatcher,
		notices:      notices,
		logger:       factory.NewModuleLogger("notifications-controller"),
	}
}

// Badge polls once so the count is current when the screen opens.
func (c *NotificationController) Badge(ctx echo.Context) error {
	update, err := c.badgeWatcher.Poll(ctx.Request().Context())
	if err != nil {
		return respondError(ctx, c.logger, err, "Poll notification badge")
	}
	return ctx.JSON(http.StatusOK, &types.BadgeResponse{UnreadCount: update.Count})
}

func (c *NotificationController) ListNotifications(ctx echo.Context) error {
	req, err := types.NewListNotificationsRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}

	list, err := c.badgeWatcher.List(ctx.Request().Context(), req)
	if err != nil {
		return respondError(ctx, c.logger, err, "List notifications")
	}
	return ctx.JSON(http.StatusOK, mapper.NotificationListToResponse(list))
}

func (c *NotificationController) MarkAsRead(ctx echo.Context) error {
	req, err := types.NewNotificationRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	if err := c.badgeWatcher.MarkAsRead(ctx.Request().Context(), req.ID); err != nil {
		return respondError(ctx, c.logger, err, "Mark notification as read")
	}
	return ctx.JSON(http.StatusOK, &types.BadgeResponse{UnreadCount: c.badgeWatcher.Count()})
}

func (c *NotificationController) MarkAllAsRead(ctx echo.Context) error {
	if err := c.badgeWatcher.MarkAllAsRead(ctx.Request().Context()); err != nil {
		return respondError(ctx, c.logger, err, "Mark all notifications as read")
	}
	return ctx.JSON(http.StatusOK, &types.BadgeResponse{UnreadCount: 0})
}

// Notices returns and clears the toasts and popups raised since the last call.
func (c *NotificationController) Notices(ctx echo.Context) error {
	drained := c.notices.Drain()
	resp := make([]*types.NoticeResponse, 0, len(drained))
	for _, notice := range drained {
		resp = append(resp, &types.NoticeResponse{
			Level:   string(notice.Level),
			Title:   notice.Title,
			Message: notice.Message,
		})
	}
	return ctx.JSON(http.StatusOK, resp)
}
