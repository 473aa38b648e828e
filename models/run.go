package models

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrRunNotFound  = errors.New("import run not found")
	ErrRunFinalized = errors.New("import run already finished")
)

// MaxErrorSamples bounds ImportRun.ErrorSamples
const MaxErrorSamples = 10

type RunStatus string

const (
	RunStatusQueued    RunStatus = "QUEUED"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusFailed    RunStatus = "FAILED"
)

// Terminal reports whether no further transition is allowed.
func (s RunStatus) Terminal() bool {
	return s == RunStatusSucceeded || s == RunStatusFailed
}

type ErrorSample struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}

// ImportRun records one ingestion execution
type ImportRun struct {
	ID           string          `json:"id" db:"id"`
	Source       string          `json:"source" db:"source"`
	Scope        string          `json:"scope" db:"scope"`
	Region       string          `json:"region" db:"region"`
	Market       string          `json:"market" db:"market"`
	Params       json.RawMessage `json:"params,omitempty" db:"params"`
	Status       RunStatus       `json:"status" db:"status"`
	StartedAt    time.Time       `json:"started_at" db:"started_at"`
	FinishedAt   *time.Time      `json:"finished_at" db:"finished_at"`
	Scanned      int             `json:"scanned" db:"scanned"`
	Created      int             `json:"created" db:"created"`
	Skipped      int             `json:"skipped" db:"skipped"`
	Errors       int             `json:"errors" db:"errors"`
	ErrorSamples []ErrorSample   `json:"error_samples" db:"error_samples"`
	Message      string          `json:"message" db:"message"`
}

// RunPatch carries the fields merged into a run on completion. Nil fields are left alone.
type RunPatch struct {
	Status       *RunStatus
	FinishedAt   *time.Time
	Scanned      *int
	Created      *int
	Skipped      *int
	Errors       *int
	ErrorSamples []ErrorSample
	Message      *string
}

// Apply merges p into r. Terminal runs are immutable.
func (r *ImportRun) Apply(p RunPatch) error {
	if r.Status.Terminal() {
		return ErrRunFinalized
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.FinishedAt != nil {
		t := *p.FinishedAt
		r.FinishedAt = &t
	}
	if p.Scanned != nil {
		r.Scanned = *p.Scanned
	}
	if p.Created != nil {
		r.Created = *p.Created
	}
	if p.Skipped != nil {
		r.Skipped = *p.Skipped
	}
	if p.Errors != nil {
		r.Errors = *p.Errors
	}
	if p.ErrorSamples != nil {
		r.ErrorSamples = capSamples(p.ErrorSamples)
	}
	if p.Message != nil {
		r.Message = *p.Message
	}
	if r.Status.Terminal() && r.FinishedAt == nil {
		now := time.Now()
		r.FinishedAt = &now
	}
	return nil
}

func capSamples(samples []ErrorSample) []ErrorSample {
	if len(samples) > MaxErrorSamples {
		samples = samples[:MaxErrorSamples]
	}
	out := make([]ErrorSample, len(samples))
	copy(out, samples)
	return out
}

// RunStats accumulates counters during a run and renders the terminal patch
type RunStats struct {
	Scanned int
	Created int
	Skipped int
	Errors  int
	Samples []ErrorSample
}

// Fail counts an error and keeps a sample while there is room.
func (s *RunStats) Fail(step string, err error) {
	s.Errors++
	if len(s.Samples) < MaxErrorSamples {
		s.Samples = append(s.Samples, ErrorSample{Step: step, Message: err.Error()})
	}
}

// Patch builds the terminal update for these stats.
func (s *RunStats) Patch(status RunStatus, message string) RunPatch {
	now := time.Now()
	samples := s.Samples
	if samples == nil {
		samples = []ErrorSample{}
	}
	return RunPatch{
		Status:       &status,
		FinishedAt:   &now,
		Scanned:      &s.Scanned,
		Created:      &s.Created,
		Skipped:      &s.Skipped,
		Errors:       &s.Errors,
		ErrorSamples: samples,
		Message:      &message,
	}
}
