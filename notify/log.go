package notify

import (
	"context"
	"log/slog"

	"github.com/MrEthical07/goCred/internal"
)

// Log is a development notifier that writes each message to a logger
// instead of delivering it. The channel is masked. The body is only logged
// when IncludeBody is set, since it carries codes and reset links.
type Log struct {
	logger      *slog.Logger
	includeBody bool
}

// LogOption configures a Log notifier.
type LogOption func(*Log)

// IncludeBody makes the notifier log message bodies.
func IncludeBody() LogOption {
	return func(l *Log) {
		l.includeBody = true
	}
}

// NewLog returns a Log notifier. A nil logger falls back to slog.Default.
func NewLog(logger *slog.Logger, opts ...LogOption) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Log{logger: logger}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Log) Send(ctx context.Context, channel, subject, body string) error {
	attrs := []any{
		"channel", internal.MaskChannel(channel),
		"subject", subject,
	}
	if l.includeBody {
		attrs = append(attrs, "body", body)
	}
	l.logger.InfoContext(ctx, "notification", attrs...)
	return nil
}
