package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/vibast-solutions/ms-go-favorpay/app/entity"
)

const (
	pathNotifications        = "/notifications"
	pathNotificationCount    = "/notifications/count"
	pathMarkAllNotifications = "/notifications/mark_all_as_read"
	routeMarkNotification    = "/notifications/:id/mark_as_read"
)

type unreadCountResponse struct {
	UnreadCount int `json:"unread_count"`
}

type NotificationList struct {
	Notifications []entity.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
	Meta          ListMeta              `json:"meta"`
}

func (c *Client) UnreadNotificationCount(ctx context.Context) (int, error) {
	var out unreadCountResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: pathNotificationCount}, &out); err != nil {
		return 0, err
	}
	return out.UnreadCount, nil
}

func (c *Client) ListNotifications(ctx context.Context, page Page) (*NotificationList, error) {
	q := url.Values{}
	page.apply(q)

	var out NotificationList
	if err := c.do(ctx, request{method: http.MethodGet, path: pathNotifications, query: q}, &out); err != nil {
		return nil, err
	}
	if out.Notifications == nil {
		out.Notifications = []entity.Notification{}
	}
	return &out, nil
}

func (c *Client) MarkNotificationAsRead(ctx context.Context, id string) error {
	return c.do(ctx, request{
		method: http.MethodPatch,
		path:   pathNotifications + "/" + url.PathEscape(id) + "/mark_as_read",
		route:  routeMarkNotification,
	}, nil)
}

func (c *Client) MarkAllNotificationsAsRead(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodPatch, path: pathMarkAllNotifications}, nil)
}
