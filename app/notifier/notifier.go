package notifier

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-favorpay/app/factory"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notice is a message shown to the user as a toast or popup.
type Notice struct {
	Level   Level
	Title   string
	Message string
}

type LogNotifier struct {
	logger logrus.FieldLogger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: factory.NewModuleLogger("notifier")}
}

func (n *LogNotifier) Notify(_ context.Context, notice Notice) {
	entry := n.logger.WithFields(logrus.Fields{
		"level_hint": notice.Level,
		"title":      notice.Title,
	})
	if notice.Level == LevelError {
		entry.Warn(notice.Message)
		return
	}
	entry.Info(notice.Message)
}

// MaxRecordedNotices bounds the notices a Recorder keeps between drains.
const MaxRecordedNotices = 100

// Recorder keeps the latest notices in memory; the bridge exposes them and
// tests read them back. Older notices are dropped once the limit is reached.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
	next    *LogNotifier
}

func NewRecorder(next *LogNotifier) *Recorder {
	return &Recorder{next: next}
}

func (r *Recorder) Notify(ctx context.Context, notice Notice) {
	r.mu.Lock()
	if len(r.notices) == MaxRecordedNotices {
		copy(r.notices, r.notices[1:])
		r.notices = r.notices[:MaxRecordedNotices-1]
	}
	r.notices = append(r.notices, notice)
	r.mu.Unlock()

	if r.next != nil {
		r.next.Notify(ctx, notice)
	}
}

func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Drain returns and forgets the recorded notices.
func (r *Recorder) Drain() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.notices
	r.notices = nil
	return out
}
