package llm

import (
	"context"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"
)

// Logger is the logging surface used by the client.
type Logger interface {
	Infow(ctx context.Context, msg string, fields ...logx.LogField)
	Errorw(ctx context.Context, msg string, fields ...logx.LogField)
}

type logxLogger struct{}

// NewLogger returns a Logger backed by go-zero's logx at the given level.
func NewLogger(level string) Logger {
	logx.SetLevel(logLevel(level))
	return logxLogger{}
}

func (logxLogger) Infow(ctx context.Context, msg string, fields ...logx.LogField) {
	logx.WithContext(ctx).Infow(msg, fields...)
}

func (logxLogger) Errorw(ctx context.Context, msg string, fields ...logx.LogField) {
	logx.WithContext(ctx).Errorw(msg, fields...)
}

func logLevel(level string) uint32 {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logx.DebugLevel
	case "error":
		return logx.ErrorLevel
	case "severe", "fatal":
		return logx.SevereLevel
	default:
		return logx.InfoLevel
	}
}
