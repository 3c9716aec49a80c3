// Package eventlog defines the domain types for the payment event log.
//
// The log is a durable, append-only audit trail of every payment transition
// this service observes: webhook receipts, status fetches, deliveries and
// failures. It exists for two reasons:
//
//  1. Observability: you can query the log to see exactly what happened to
//     a payment and correlate it with a distributed trace via trace_id.
//
//  2. Manual recovery: delivery of digital goods is at-least-once at best,
//     so when a webhook is lost or fulfillment half-fails, support staff
//     replay the situation by reading this log. Nothing replays from it
//     automatically.
package eventlog

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Kind classifies a payment event.
type Kind string

const (
	KindWebhookReceived    Kind = "WEBHOOK_RECEIVED"
	KindStatusFetched      Kind = "STATUS_FETCHED"
	KindDelivered          Kind = "DELIVERED"
	KindFulfillmentSkipped Kind = "FULFILLMENT_SKIPPED"
	KindError              Kind = "ERROR"
)

// Event is a single row in the payment_events table: a point-in-time
// observation about one payment.
type Event struct {
	// PaymentID is the processor-side payment identifier. Not unique here;
	// a payment accumulates one row per observation.
	PaymentID string

	// Kind says what was observed.
	Kind Kind

	// Status is the processor status at the time, when one was available
	// (empty for pure failures).
	Status string

	// Detail is free-form human-readable context, e.g. the error message or
	// the number of resolved asset links.
	Detail string

	// TraceID is the W3C trace ID extracted from the active OpenTelemetry
	// span, so a log row can be joined with the full request trace.
	TraceID string

	// SpanID pinpoints the exact span within that trace.
	SpanID string

	// CreatedAt is the wall-clock time of the observation.
	CreatedAt time.Time
}

// New builds an Event with trace identifiers extracted from ctx. If the
// context carries no active span (unit tests, detached goroutines without
// instrumentation) both ids are left empty.
func New(ctx context.Context, paymentID string, kind Kind, status, detail string) *Event {
	ev := &Event{
		PaymentID: paymentID,
		Kind:      kind,
		Status:    status,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}

	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		ev.TraceID = sc.TraceID().String()
		ev.SpanID = sc.SpanID().String()
	}
	return ev
}
