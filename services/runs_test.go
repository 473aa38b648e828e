package services

import (
	"context"
	"testing"

	"vantera/models"
	"vantera/runlog"
)

type memRuns struct {
	store *runlog.MemoryStore
}

func (r *memRuns) get(t *testing.T, id string) models.ImportRun {
	t.Helper()
	runs, err := r.store.ListRuns(context.Background(), runlog.MaxListLimit)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	for _, run := range runs {
		if run.ID == id {
			return run
		}
	}
	t.Fatalf("run %s not found", id)
	return models.ImportRun{}
}

func (r *memRuns) count(t *testing.T) int {
	t.Helper()
	runs, err := r.store.ListRuns(context.Background(), runlog.MaxListLimit)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	return len(runs)
}
