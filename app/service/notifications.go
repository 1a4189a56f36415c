package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-favorpay/app/backend"
	"github.com/vibast-solutions/ms-go-favorpay/app/factory"
	"github.com/vibast-solutions/ms-go-favorpay/app/metrics"
	"github.com/vibast-solutions/ms-go-favorpay/app/notifier"
	"github.com/vibast-solutions/ms-go-favorpay/app/types"
)

const defaultPollInterval = 30 * time.Second

type notificationAPI interface {
	UnreadNotificationCount(ctx context.Context) (int, error)
	ListNotifications(ctx context.Context, page backend.Page) (*backend.NotificationList, error)
	MarkNotificationAsRead(ctx context.Context, id string) error
	MarkAllNotificationsAsRead(ctx context.Context) error
}

type BadgeUpdate struct {
	Count     int
	Previous  int
	Increased bool
}

// BadgeWatcher polls the unread notification count and raises a popup when
// it grows. The first successful poll only sets the baseline.
type BadgeWatcher struct {
	api      notificationAPI
	notices  noticeSink
	metrics  *metrics.ClientMetrics
	interval time.Duration
	logger   logrus.FieldLogger

	mu     sync.Mutex
	count  int
	primed bool
}

func NewBadgeWatcher(api notificationAPI, notices noticeSink, interval time.Duration, m *metrics.ClientMetrics) *BadgeWatcher {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &BadgeWatcher{
		api:      api,
		notices:  notices,
		metrics:  m,
		interval: interval,
		logger:   factory.NewModuleLogger("badge-watcher"),
	}
}

func (w *BadgeWatcher) Poll(ctx context.Context) (BadgeUpdate, error) {
	count, err := w.api.UnreadNotificationCount(ctx)
	if err != nil {
		if errors.Is(err, backend.ErrAuthenticationRequired) {
			w.Reset()
		}
		return BadgeUpdate{}, err
	}

	w.mu.Lock()
	update := BadgeUpdate{Count: count, Previous: w.count}
	update.Increased = w.primed && count > w.count
	w.count = count
	w.primed = true
	w.mu.Unlock()

	if update.Increased {
		w.metrics.IncBadgeIncrease()
		if w.notices != nil {
			w.notices.Notify(ctx, notifier.Notice{
				Level:   notifier.LevelInfo,
				Title:   "New notification",
				Message: unreadMessage(count),
			})
		}
	}
	return update, nil
}

// Run polls until ctx is done. Failed polls are logged and retried on the
// next tick.
func (w *BadgeWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.Poll(ctx); err != nil && ctx.Err() == nil {
			entry := w.logger.WithError(err)
			if errors.Is(err, backend.ErrAuthenticationRequired) {
				entry.Debug("badge_poll_skipped")
			} else {
				entry.Warn("badge_poll_failed")
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Reset forgets the baseline, e.g. after the user changed.
func (w *BadgeWatcher) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.count = 0
	w.primed = false
}

func (w *BadgeWatcher) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

func (w *BadgeWatcher) List(ctx context.Context, req *types.ListNotificationsRequest) (*backend.NotificationList, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	list, err := w.api.ListNotifications(ctx, backend.Page{Page: req.Page, PerPage: req.PerPage})
	if err != nil {
		return nil, err
	}
	w.setCount(list.UnreadCount)
	return list, nil
}

func (w *BadgeWatcher) MarkAsRead(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidRequest
	}
	if err := w.api.MarkNotificationAsRead(ctx, id); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.count > 0 {
		w.count--
	}
	return nil
}

func (w *BadgeWatcher) MarkAllAsRead(ctx context.Context) error {
	if err := w.api.MarkAllNotificationsAsRead(ctx); err != nil {
		return err
	}
	w.setCount(0)
	return nil
}

// setCount records a count learned outside polling without raising a popup.
func (w *BadgeWatcher) setCount(count int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.count = count
	w.primed = true
}

func unreadMessage(count int) string {
	if count == 1 {
		return "You have 1 unread notification."
	}
	return fmt.Sprintf("You have %d unread notifications.", count)
}
