package flowlog

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// NewEntry builds a log entry with the trace and span ids extracted from
// the active OpenTelemetry span in ctx. If no span is active (unit tests),
// both ids stay empty.
func NewEntry(ctx context.Context, orderID, userID string, status Status, step string, errs []string) *Entry {
	e := &Entry{
		OrderID:       orderID,
		UserID:        userID,
		Status:        status,
		Step:          step,
		ErrorMessages: "[]",
		UpdatedAt:     time.Now().UTC(),
	}

	if len(errs) > 0 {
		if b, err := json.Marshal(errs); err == nil {
			e.ErrorMessages = string(b)
		}
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		e.TraceID = sc.TraceID().String()
		e.SpanID = sc.SpanID().String()
	}

	return e
}
