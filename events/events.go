// Package events publishes import-run lifecycle messages.
package events

import (
	"context"
	"time"

	"vantera/models"
)

const RoutingKeyRunFinished = "import_run.finished"

// RunFinished is the message body sent when a run reaches a terminal state.
type RunFinished struct {
	RunID      string           `json:"runId"`
	Source     string           `json:"source"`
	Scope      string           `json:"scope"`
	Market     string           `json:"market,omitempty"`
	Status     models.RunStatus `json:"status"`
	Scanned    int              `json:"scanned"`
	Created    int              `json:"created"`
	Skipped    int              `json:"skipped"`
	Errors     int              `json:"errors"`
	Message    string           `json:"message,omitempty"`
	FinishedAt time.Time        `json:"finishedAt"`
}

func NewRunFinished(run *models.ImportRun) RunFinished {
	ev := RunFinished{
		RunID:   run.ID,
		Source:  run.Source,
		Scope:   run.Scope,
		Market:  run.Market,
		Status:  run.Status,
		Scanned: run.Scanned,
		Created: run.Created,
		Skipped: run.Skipped,
		Errors:  run.Errors,
		Message: run.Message,
	}
	if run.FinishedAt != nil {
		ev.FinishedAt = *run.FinishedAt
	}
	return ev
}

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

func (Noop) RunFinished(ctx context.Context, run *models.ImportRun) error { return nil }

func (Noop) Close() error { return nil }
