// Package log carries a request-scoped logrus entry through contexts.
package log

import (
	"context"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

// ToContext returns a copy of ctx carrying logger.
func ToContext(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the entry stored by ToContext, or an entry on the
// standard logger.
func FromContext(ctx context.Context) *logrus.Entry {
	if l, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok {
		return l
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
