// Package sagalog defines the durable audit trail for saga executions.
//
// Each entry is an immutable snapshot of one state transition. The log
// serves observability (joining a stuck order with its trace via trace_id)
// and post-mortem recovery: a saga that was in-flight when the process died
// can be found and compensated by reading its latest entry.
package sagalog

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Status is the lifecycle state of a saga execution.
type Status string

const (
	StatusStarted      Status = "STARTED"
	StatusStepDone     Status = "STEP_DONE"
	StatusCompleted    Status = "COMPLETED"
	StatusCompensating Status = "COMPENSATING"
	StatusFailed       Status = "FAILED"
)

// Entry is one row in the saga log.
type Entry struct {
	// SagaID identifies the saga execution; the order workflows use the
	// order ID so log rows join with business data.
	SagaID string

	// Status is the lifecycle state at the time this entry was written.
	Status Status

	// CurrentStep is the step that just executed or failed, e.g.
	// "reserve_stock". Empty for STARTED/COMPLETED.
	CurrentStep string

	// Payload optionally carries the JSON-serialised saga input, written
	// once on STARTED.
	Payload string

	// ErrorMessages is a JSON array of failure details accumulated during
	// failure and compensation.
	ErrorMessages string

	// TraceID and SpanID are the W3C identifiers of the OTel span active
	// when the entry was written, so a log row links to its trace.
	TraceID string
	SpanID  string

	UpdatedAt time.Time
}

// Repository is the port for persisting saga log entries. The table is
// append-only: each Save adds a row, never upserts.
type Repository interface {
	Save(ctx context.Context, entry *Entry) error
}

// NewEntry builds an Entry with trace identifiers extracted from ctx. When
// ctx carries no active span (unit tests, background work) the trace fields
// are empty.
func NewEntry(ctx context.Context, sagaID string, status Status, currentStep, payload string, errs []string) *Entry {
	sc := trace.SpanFromContext(ctx).SpanContext()

	traceID, spanID := "", ""
	if sc.IsValid() {
		traceID = sc.TraceID().String()
		spanID = sc.SpanID().String()
	}

	errJSON := "[]"
	if len(errs) > 0 {
		if b, err := json.Marshal(errs); err == nil {
			errJSON = string(b)
		}
	}

	return &Entry{
		SagaID:        sagaID,
		Status:        status,
		CurrentStep:   currentStep,
		Payload:       payload,
		ErrorMessages: errJSON,
		TraceID:       traceID,
		SpanID:        spanID,
		UpdatedAt:     time.Now().UTC(),
	}
}
