package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var workerMode bool

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Notification related commands",
}

var notificationsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the unread notification count and report increases",
	Run: func(_ *cobra.Command, _ []string) {
		a, cleanup := mustCreateApp(nil)
		defer cleanup()

		poll := func(ctx context.Context) error {
			update, err := a.badgeWatcher.Poll(ctx)
			if err != nil {
				return err
			}
			for _, notice := range a.notices.Drain() {
				fmt.Fprintf(os.Stdout, "%s: %s\n", notice.Title, notice.Message)
			}
			logrus.WithField("unread", update.Count).Debug("badge_polled")
			return nil
		}

		if workerMode {
			runWorker("notifications_watch", a.cfg.Notifications.PollInterval, poll)
			return
		}
		runJob("notifications_watch", func() error { return poll(context.Background()) })
	},
}

func init() {
	rootCmd.AddCommand(notificationsCmd)
	notificationsCmd.AddCommand(notificationsWatchCmd)

	notificationsWatchCmd.Flags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runWorker(name string, interval time.Duration, fn func(ctx context.Context) error) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
