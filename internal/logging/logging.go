// Package logging configures logrus and carries a request scoped entry
// through context.Context so that every log line of a request shares
// its correlation_id.
package logging

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CorrelationIDHeader is the header clients may set to tie their logs to ours.
const CorrelationIDHeader = "X-Correlation-ID"

type ctxKey int

const (
	loggerKey ctxKey = iota
	correlationKey
)

// Init sets the level and formatter of the standard logrus logger.
// format is "json" or "text"; anything else falls back to text.
func Init(level, format string) {
	Configure(logrus.StandardLogger(), level, format)
}

// Configure applies level and format to l.
func Configure(l *logrus.Logger, level, format string) {
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	if strings.EqualFold(format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
		return
	}
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// Discard returns a logger that writes nowhere, for tests.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// ToContext stores entry in ctx.
func ToContext(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey, entry)
}

// FromContext returns the entry stored in ctx, or a fresh entry on the
// standard logger.
func FromContext(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if e, ok := ctx.Value(loggerKey).(*logrus.Entry); ok && e != nil {
			return e
		}
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// ContextWithCorrelationID stores id in ctx.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey, id)
}

// CorrelationIDFromContext returns the correlation ID in ctx, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey).(string)
	return id
}

// NewCorrelationID generates an ID for requests that did not send one.
func NewCorrelationID() string {
	return uuid.NewString()
}
