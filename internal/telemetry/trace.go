package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys. Emails, passwords and tokens are never attached.
const (
	AttrUserID      = "user.id"
	AttrUserAdmin   = "user.is_admin"
	AttrAppCount    = "entitlement.count"
	AttrSessionID   = "session.id"
	AttrResult      = "result"
	AttrNotifyKind  = "notification.kind"
	AttrResetReason = "reset.reason"
)

// StartSpan opens a span named after the IAM operation, e.g. "iam.Approve".
func StartSpan(ctx context.Context, tracerName, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, op, trace.WithAttributes(attrs...))
}

// RecordError marks span as failed. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddEvent records a business event such as a skipped reset.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// NotificationFailed records a swallowed delivery error without failing the span.
func NotificationFailed(span trace.Span, kind string) {
	span.AddEvent("notification.failed", trace.WithAttributes(attribute.String(AttrNotifyKind, kind)))
}
