package logger

import (
	"os"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"
)

var global atomic.Pointer[zap.Logger]

func init() {
	global.Store(zap.NewNop())
}

// Init installs the production JSON logger.
func Init() {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewExample()
	}
	global.Store(l)
	l.Info("logger initialized")
}

// Set replaces the process logger. Tests use it to capture output.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	global.Store(l)
}

// Sync flushes buffered entries.
func Sync() {
	_ = global.Load().Sync()
}

func Debug(msg string, fields map[string]any) {
	global.Load().Debug(msg, toZap(fields)...)
}

func Info(msg string, fields map[string]any) {
	global.Load().Info(msg, toZap(fields)...)
}

func Warn(msg string, fields map[string]any) {
	global.Load().Warn(msg, toZap(fields)...)
}

func Error(msg string, fields map[string]any) {
	global.Load().Error(msg, toZap(fields)...)
}

func Fatal(msg string, fields map[string]any) {
	global.Load().Error(msg, toZap(fields)...)
	Sync()
	os.Exit(1)
}

// toZap converts a field map into zap fields sorted by key.
func toZap(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		if err, ok := fields[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}
