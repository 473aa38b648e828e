package runlog

import (
	"context"
	"log"

	"vantera/models"
)

// Notifier is told about every run that reaches a terminal state.
type Notifier interface {
	RunFinished(ctx context.Context, run *models.ImportRun) error
}

type Tracker struct {
	store    Store
	notifier Notifier
}

func NewTracker(store Store, notifier Notifier) *Tracker {
	return &Tracker{store: store, notifier: notifier}
}

func (t *Tracker) Start(ctx context.Context, run models.ImportRun) (*models.ImportRun, error) {
	created, err := t.store.CreateRun(ctx, &run)
	if err != nil {
		return nil, err
	}
	log.Printf("RunLog: started %s %s/%s", created.ID, created.Source, created.Scope)
	return created, nil
}

// Finish applies the terminal patch. It runs detached from ctx cancellation so
// a dropped client cannot leave a run stuck in RUNNING.
func (t *Tracker) Finish(ctx context.Context, id string, patch models.RunPatch) (*models.ImportRun, error) {
	ctx = context.WithoutCancel(ctx)

	run, err := t.store.UpdateRun(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	log.Printf("RunLog: finished %s status=%s created=%d skipped=%d errors=%d",
		run.ID, run.Status, run.Created, run.Skipped, run.Errors)

	if t.notifier != nil {
		if err := t.notifier.RunFinished(ctx, run); err != nil {
			log.Printf("RunLog: notify %s failed: %v", run.ID, err)
		}
	}
	return run, nil
}

func (t *Tracker) List(ctx context.Context, limit int) ([]models.ImportRun, error) {
	return t.store.ListRuns(ctx, ClampLimit(limit))
}
