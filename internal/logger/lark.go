package logger

import (
	"context"
	"fmt"
	"log/slog"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
)

// LarkLogger routes Feishu SDK logs into slog.
type LarkLogger struct {
	log *slog.Logger
}

var _ larkcore.Logger = (*LarkLogger)(nil)

// NewLarkLogger wraps log for use with lark.WithLogger.
func NewLarkLogger(log *slog.Logger) *LarkLogger {
	if log == nil {
		log = slog.Default()
	}
	return &LarkLogger{log: log.With(slog.String("component", "lark_sdk"))}
}

func (l *LarkLogger) Debug(ctx context.Context, args ...interface{}) {
	l.log.DebugContext(ctx, fmt.Sprint(args...))
}

func (l *LarkLogger) Info(ctx context.Context, args ...interface{}) {
	l.log.InfoContext(ctx, fmt.Sprint(args...))
}

func (l *LarkLogger) Warn(ctx context.Context, args ...interface{}) {
	l.log.WarnContext(ctx, fmt.Sprint(args...))
}

func (l *LarkLogger) Error(ctx context.Context, args ...interface{}) {
	l.log.ErrorContext(ctx, fmt.Sprint(args...))
}
