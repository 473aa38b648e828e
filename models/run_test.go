package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestRunStatusTerminal(t *testing.T) {
	tests := map[RunStatus]bool{
		RunStatusQueued:    false,
		RunStatusRunning:   false,
		RunStatusSucceeded: true,
		RunStatusFailed:    true,
	}
	for status, want := range tests {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestApply(t *testing.T) {
	run := &ImportRun{ID: "r1", Status: RunStatusRunning, Message: "keep"}

	created := 4
	if err := run.Apply(RunPatch{Created: &created}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if run.Created != 4 || run.Message != "keep" || run.Status != RunStatusRunning {
		t.Errorf("nil fields should be left alone: %+v", run)
	}

	stats := &RunStats{Scanned: 5, Created: 4, Skipped: 1}
	if err := run.Apply(stats.Patch(RunStatusSucceeded, "")); err != nil {
		t.Fatalf("terminal Apply failed: %v", err)
	}
	if run.Status != RunStatusSucceeded || run.FinishedAt == nil || run.ErrorSamples == nil {
		t.Errorf("unexpected terminal run %+v", run)
	}

	if err := run.Apply(RunPatch{Created: &created}); !errors.Is(err, ErrRunFinalized) {
		t.Fatalf("expected ErrRunFinalized, got %v", err)
	}
}

func TestApply_FillsFinishedAt(t *testing.T) {
	run := &ImportRun{Status: RunStatusRunning}
	failed := RunStatusFailed
	if err := run.Apply(RunPatch{Status: &failed}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if run.FinishedAt == nil {
		t.Error("terminal transition should set FinishedAt")
	}
}

func TestRunStatsFail(t *testing.T) {
	var stats RunStats
	for i := 0; i < MaxErrorSamples+5; i++ {
		stats.Fail("detail", fmt.Errorf("error %d", i))
	}
	if stats.Errors != MaxErrorSamples+5 {
		t.Errorf("expected %d errors, got %d", MaxErrorSamples+5, stats.Errors)
	}
	if len(stats.Samples) != MaxErrorSamples {
		t.Errorf("expected %d samples, got %d", MaxErrorSamples, len(stats.Samples))
	}
	if stats.Samples[0].Step != "detail" || stats.Samples[0].Message != "error 0" {
		t.Errorf("unexpected first sample %+v", stats.Samples[0])
	}
}

func TestApply_CapsSamples(t *testing.T) {
	run := &ImportRun{Status: RunStatusRunning}
	samples := make([]ErrorSample, MaxErrorSamples+3)
	if err := run.Apply(RunPatch{ErrorSamples: samples}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(run.ErrorSamples) != MaxErrorSamples {
		t.Errorf("expected samples capped at %d, got %d", MaxErrorSamples, len(run.ErrorSamples))
	}
}
