// Package flowlog defines the audit trail of the order workflow.
//
// Every state transition of an order-creation or cancellation run is
// appended here. The log serves observability only: you can query the DB to
// see exactly where a run stopped and correlate it with a distributed trace
// via the trace_id field.
//
// It is deliberately NOT a recovery mechanism. An order stranded in PENDING
// because a stock decrement failed stays stranded — no job replays or
// expires it, and the log merely makes the stranding visible.
package flowlog

import "time"

// Status represents the lifecycle state of one workflow run.
type Status string

const (
	StatusStarted  Status = "STARTED"
	StatusStepDone Status = "STEP_DONE"
	// StatusStepSkipped marks a best-effort step whose failure was
	// swallowed (cart clear, confirm write).
	StatusStepSkipped Status = "STEP_SKIPPED"
	StatusCompleted   Status = "COMPLETED"
	StatusFailed      Status = "FAILED"
	// StatusRestoreAborted marks a cancellation whose stock restoration
	// loop stopped at the first failing product, leaving the rest
	// un-restored.
	StatusRestoreAborted Status = "RESTORE_ABORTED"
)

// Step names recorded by the orchestrator.
const (
	StepFetchCart     = "fetch_cart"
	StepValidateLines = "validate_lines"
	StepPersistOrder  = "persist_order"
	StepAdjustStock   = "adjust_stock"
	StepClearCart     = "clear_cart"
	StepConfirmOrder  = "confirm_order"
	StepRestoreStock  = "restore_stock"
)

// Entry is a single row in the order_flow_logs table: a point-in-time
// snapshot of a workflow run.
type Entry struct {
	// OrderID joins the log with the business data. Empty for failures
	// raised before the order row exists.
	OrderID string

	// UserID of the requester; lets stranded runs be traced back to a
	// customer even when no order row was written.
	UserID string

	// Status is the lifecycle state at the time of this entry.
	Status Status

	// Step is the workflow step that was just executed or failed.
	Step string

	// ErrorMessages accumulates failure details as a JSON array of strings.
	ErrorMessages string

	// TraceID/SpanID are the W3C identifiers of the OpenTelemetry span
	// active when the entry was written, so a log row can be joined with
	// the full distributed trace.
	TraceID string
	SpanID  string

	// UpdatedAt is the wall-clock time of this entry.
	UpdatedAt time.Time
}
