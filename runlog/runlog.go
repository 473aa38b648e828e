// Package runlog records the lifecycle of import runs. Every backend satisfies
// the same Store contract: create appends a RUNNING run with a fresh id, update
// applies exactly one terminal patch, list returns the newest runs first.
package runlog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"vantera/models"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type Store interface {
	CreateRun(ctx context.Context, run *models.ImportRun) (*models.ImportRun, error)
	// UpdateRun returns models.ErrRunNotFound for unknown ids and
	// models.ErrRunFinalized once the run is terminal.
	UpdateRun(ctx context.Context, id string, patch models.RunPatch) (*models.ImportRun, error)
	ListRuns(ctx context.Context, limit int) ([]models.ImportRun, error)
}

// Prepare fills the fields CreateRun owns. Backends call it before persisting.
func Prepare(run *models.ImportRun) *models.ImportRun {
	out := *run
	out.ID = uuid.New().String()
	if out.StartedAt.IsZero() {
		out.StartedAt = time.Now().UTC()
	}
	if out.Status == "" {
		out.Status = models.RunStatusRunning
	}
	if out.ErrorSamples == nil {
		out.ErrorSamples = []models.ErrorSample{}
	}
	out.FinishedAt = nil
	return &out
}

// ClampLimit maps a requested list size into [1, MaxListLimit].
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	}
	return limit
}
