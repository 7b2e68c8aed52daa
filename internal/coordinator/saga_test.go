package coordinator

import (
	"context"
	"errors"
	"testing"

	"github.com/ovenworks/bakehouse/internal/coordinator/sagalog"
)

type recordedStep struct {
	name       string
	execErr    error
	compErr    error
	trail      *[]string
	executions int
}

func (s *recordedStep) Name() string { return s.name }

func (s *recordedStep) Execute(ctx context.Context) error {
	s.executions++
	*s.trail = append(*s.trail, "exec:"+s.name)
	return s.execErr
}

func (s *recordedStep) Compensate(ctx context.Context) error {
	*s.trail = append(*s.trail, "comp:"+s.name)
	return s.compErr
}

type memorySagaLog struct {
	entries []*sagalog.Entry
}

func (m *memorySagaLog) Save(ctx context.Context, e *sagalog.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memorySagaLog) statuses() []sagalog.Status {
	out := make([]sagalog.Status, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Status
	}
	return out
}

func TestOrchestratorRunsStepsInOrder(t *testing.T) {
	var trail []string
	steps := []Step{
		&recordedStep{name: "a", trail: &trail},
		&recordedStep{name: "b", trail: &trail},
		&recordedStep{name: "c", trail: &trail},
	}
	log := &memorySagaLog{}

	if err := NewOrchestrator("saga-1", steps, log).Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	want := []string{"exec:a", "exec:b", "exec:c"}
	if len(trail) != len(want) {
		t.Fatalf("trail = %v, want %v", trail, want)
	}
	for i := range want {
		if trail[i] != want[i] {
			t.Fatalf("trail = %v, want %v", trail, want)
		}
	}

	got := log.statuses()
	wantStatuses := []sagalog.Status{
		sagalog.StatusStarted,
		sagalog.StatusStepDone, sagalog.StatusStepDone, sagalog.StatusStepDone,
		sagalog.StatusCompleted,
	}
	if len(got) != len(wantStatuses) {
		t.Fatalf("log statuses = %v, want %v", got, wantStatuses)
	}
	for i := range wantStatuses {
		if got[i] != wantStatuses[i] {
			t.Fatalf("log statuses = %v, want %v", got, wantStatuses)
		}
	}
}

func TestOrchestratorCompensatesInReverse(t *testing.T) {
	var trail []string
	boom := errors.New("boom")
	steps := []Step{
		&recordedStep{name: "a", trail: &trail},
		&recordedStep{name: "b", trail: &trail},
		&recordedStep{name: "c", trail: &trail, execErr: boom},
	}
	log := &memorySagaLog{}

	err := NewOrchestrator("saga-2", steps, log).Start(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Start error = %v, want boom", err)
	}

	want := []string{"exec:a", "exec:b", "exec:c", "comp:b", "comp:a"}
	if len(trail) != len(want) {
		t.Fatalf("trail = %v, want %v", trail, want)
	}
	for i := range want {
		if trail[i] != want[i] {
			t.Fatalf("trail = %v, want %v", trail, want)
		}
	}

	last := log.entries[len(log.entries)-1]
	if last.Status != sagalog.StatusFailed {
		t.Errorf("final log status = %v, want FAILED", last.Status)
	}
	if last.CurrentStep != "c" {
		t.Errorf("failed step = %q, want c", last.CurrentStep)
	}
}

// A compensation failure must not stop the remaining compensations, and the
// original execution error is the one returned.
func TestOrchestratorCompensationErrorsCollected(t *testing.T) {
	var trail []string
	boom := errors.New("boom")
	steps := []Step{
		&recordedStep{name: "a", trail: &trail},
		&recordedStep{name: "b", trail: &trail, compErr: errors.New("undo failed")},
		&recordedStep{name: "c", trail: &trail, execErr: boom},
	}
	log := &memorySagaLog{}

	err := NewOrchestrator("saga-3", steps, log).Start(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Start error = %v, want boom", err)
	}

	want := []string{"exec:a", "exec:b", "exec:c", "comp:b", "comp:a"}
	if len(trail) != len(want) {
		t.Fatalf("trail = %v, want %v", trail, want)
	}

	last := log.entries[len(log.entries)-1]
	if last.ErrorMessages == "[]" || last.ErrorMessages == "" {
		t.Error("expected compensation errors in the failed entry")
	}
}

func TestOrchestratorFailedFirstStepCompensatesNothing(t *testing.T) {
	var trail []string
	steps := []Step{
		&recordedStep{name: "a", trail: &trail, execErr: errors.New("boom")},
		&recordedStep{name: "b", trail: &trail},
	}

	if err := NewOrchestrator("saga-4", steps, nil).Start(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(trail) != 1 || trail[0] != "exec:a" {
		t.Errorf("trail = %v, want only exec:a", trail)
	}
}

func TestStepNames(t *testing.T) {
	var trail []string
	o := NewOrchestrator("saga-5", []Step{
		&recordedStep{name: "persist_order", trail: &trail},
		&recordedStep{name: "reserve_stock", trail: &trail},
	}, nil)
	if got := o.StepNames(); got != "persist_order,reserve_stock" {
		t.Errorf("StepNames = %q", got)
	}
}
