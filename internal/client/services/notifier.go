package services

import (
	"context"

	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

type WarningCode string

const (
	WarnLocalDelete      WarningCode = "LOCAL_DELETE"
	WarnHistoricalImport WarningCode = "HISTORICAL_IMPORT"
	WarnPageHistory      WarningCode = "PAGE_HISTORY"
	WarnImageUpload      WarningCode = "IMAGE_UPLOAD"
	WarnUnmatchedChild   WarningCode = "UNMATCHED_CHILD"
)

// Warning is a soft failure: the operation succeeded but a follow-up step
// did not.
type Warning struct {
	Code       WarningCode
	Message    string
	CalendarID int64
	Err        error
}

type Notifier interface {
	Notify(ctx context.Context, w Warning)
}

type NotifierFunc func(ctx context.Context, w Warning)

func (f NotifierFunc) Notify(ctx context.Context, w Warning) { f(ctx, w) }

type logNotifier struct {
	log logging.Logger
}

// NewLogNotifier writes warnings to log.
func NewLogNotifier(log logging.Logger) Notifier {
	return &logNotifier{log: logging.OrNop(log)}
}

func (n *logNotifier) Notify(ctx context.Context, w Warning) {
	args := []any{"code", w.Code, "calendar", w.CalendarID}
	if w.Err != nil {
		args = append(args, "error", w.Err)
	}
	n.log.Warn(ctx, w.Message, args...)
}
