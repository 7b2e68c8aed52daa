// Package coordinator implements the saga pattern used by the order
// workflows: a sequence of steps, each with a compensating action, executed
// in order with LIFO compensation when a step fails.
package coordinator

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ovenworks/bakehouse/internal/coordinator/sagalog"
)

// Step is a single unit of work in a saga. Compensate must undo whatever
// Execute did; it is only invoked for steps whose Execute succeeded.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

// Orchestrator runs a collection of steps sequentially and records every
// transition in the saga log.
type Orchestrator struct {
	sagaID string
	steps  []Step
	log    sagalog.Repository // nil-safe: recording skipped when nil
}

// NewOrchestrator builds an orchestrator for one saga execution. The saga ID
// is typically the order ID so the log can be joined with business data.
func NewOrchestrator(sagaID string, steps []Step, log sagalog.Repository) *Orchestrator {
	return &Orchestrator{sagaID: sagaID, steps: steps, log: log}
}

// Start runs the steps in order. On failure it compensates all previously
// successful steps in reverse and returns the original error.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.record(ctx, sagalog.StatusStarted, "", nil)

	var completed []Step
	for _, step := range o.steps {
		slog.InfoContext(ctx, "executing saga step", "saga_id", o.sagaID, "step", step.Name())
		if err := step.Execute(ctx); err != nil {
			slog.WarnContext(ctx, "saga step failed, rolling back",
				"saga_id", o.sagaID, "step", step.Name(), "error", err)
			o.record(ctx, sagalog.StatusCompensating, step.Name(), []string{err.Error()})

			compErrs := o.rollback(ctx, completed)
			o.record(ctx, sagalog.StatusFailed, step.Name(),
				append([]string{err.Error()}, compErrs...))
			return err
		}
		completed = append(completed, step)
		o.record(ctx, sagalog.StatusStepDone, step.Name(), nil)
	}

	o.record(ctx, sagalog.StatusCompleted, "", nil)
	return nil
}

// rollback compensates steps in reverse order. Compensation errors are
// collected rather than aborting: every completed step must get its chance
// to undo.
func (o *Orchestrator) rollback(ctx context.Context, steps []Step) []string {
	var errs []string
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		slog.InfoContext(ctx, "compensating saga step", "saga_id", o.sagaID, "step", step.Name())
		if err := step.Compensate(ctx); err != nil {
			slog.ErrorContext(ctx, "CRITICAL: saga compensation failed",
				"saga_id", o.sagaID, "step", step.Name(), "error", err)
			errs = append(errs, "compensation of "+step.Name()+" failed: "+err.Error())
		}
	}
	return errs
}

func (o *Orchestrator) record(ctx context.Context, status sagalog.Status, step string, errs []string) {
	if o.log == nil {
		return
	}
	entry := sagalog.NewEntry(ctx, o.sagaID, status, step, "", errs)
	if err := o.log.Save(ctx, entry); err != nil {
		// The audit trail is best-effort; the business operation must not
		// fail because the log write did.
		slog.WarnContext(ctx, "saga log write failed",
			"saga_id", o.sagaID, "status", string(status), "error", err)
	}
}

// StepNames returns a readable summary of the configured steps, used in logs.
func (o *Orchestrator) StepNames() string {
	names := make([]string, len(o.steps))
	for i, s := range o.steps {
		names[i] = s.Name()
	}
	return strings.Join(names, ",")
}
