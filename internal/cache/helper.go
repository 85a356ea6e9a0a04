package cache

import (
	"context"

	"github.com/getsentry/sentry-go"
)

// StartCacheSpan opens a "db.cache" span when a sentry hub travels in ctx,
// nil otherwise
func StartCacheSpan(ctx context.Context, backend, operation string, data map[string]interface{}) *sentry.Span {
	if sentry.GetHubFromContext(ctx) == nil {
		return nil
	}

	name := "cache." + backend + "." + operation
	span := sentry.StartSpan(ctx, name)
	span.Description = name
	span.Op = "db.cache"
	span.SetData("backend", backend)
	for k, v := range data {
		span.SetData(k, v)
	}
	return span
}

// FinishSpan finishes span, nil is a no-op
func FinishSpan(span *sentry.Span) {
	if span != nil {
		span.Finish()
	}
}
