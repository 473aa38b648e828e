// Package runlogtest holds the behavior every runlog.Store must share.
package runlogtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"vantera/models"
	"vantera/runlog"
)

// NewStore returns a fresh, empty store.
type NewStore func(t *testing.T) runlog.Store

// Run exercises the create/update/list contract against a backend.
func Run(t *testing.T, newStore NewStore) {
	t.Run("CreateAssignsIDAndRunning", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a, err := s.CreateRun(ctx, &models.ImportRun{Source: "ATTOM", Scope: "listings", Market: "miami"})
		if err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
		b, err := s.CreateRun(ctx, &models.ImportRun{Source: "ATTOM", Scope: "listings", Market: "miami"})
		if err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}

		if a.ID == "" || a.ID == b.ID {
			t.Fatalf("expected distinct ids, got %q and %q", a.ID, b.ID)
		}
		if a.Status != models.RunStatusRunning {
			t.Errorf("expected RUNNING, got %s", a.Status)
		}
		if a.StartedAt.IsZero() || a.FinishedAt != nil {
			t.Errorf("unexpected timestamps started=%v finished=%v", a.StartedAt, a.FinishedAt)
		}
	})

	t.Run("UpdateOnceThenFinalized", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, &models.ImportRun{Source: "PRESETS", Scope: "cities"})
		if err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}

		stats := models.RunStats{Scanned: 3, Created: 2, Skipped: 1}
		stats.Fail("upsert", errors.New("boom"))

		got, err := s.UpdateRun(ctx, run.ID, stats.Patch(models.RunStatusFailed, "done"))
		if err != nil {
			t.Fatalf("UpdateRun failed: %v", err)
		}
		if got.Status != models.RunStatusFailed || got.FinishedAt == nil {
			t.Fatalf("expected terminal run, got %+v", got)
		}
		if got.Created != 2 || got.Skipped != 1 || got.Errors != 1 || got.Scanned != 3 {
			t.Errorf("unexpected counters %+v", got)
		}
		if len(got.ErrorSamples) != 1 || got.ErrorSamples[0].Step != "upsert" {
			t.Errorf("unexpected samples %+v", got.ErrorSamples)
		}
		if got.Message != "done" {
			t.Errorf("unexpected message %q", got.Message)
		}

		var again models.RunStats
		_, err = s.UpdateRun(ctx, run.ID, again.Patch(models.RunStatusSucceeded, "again"))
		if !errors.Is(err, models.ErrRunFinalized) {
			t.Fatalf("expected ErrRunFinalized, got %v", err)
		}
	})

	t.Run("UpdateUnknown", func(t *testing.T) {
		s := newStore(t)
		var stats models.RunStats
		_, err := s.UpdateRun(context.Background(), "00000000-0000-0000-0000-000000000000", stats.Patch(models.RunStatusSucceeded, ""))
		if !errors.Is(err, models.ErrRunNotFound) {
			t.Fatalf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		base := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)
		var ids []string
		for i := 0; i < 5; i++ {
			r, err := s.CreateRun(ctx, &models.ImportRun{
				Source:    "ATTOM",
				Scope:     "listings",
				StartedAt: base.Add(time.Duration(i) * time.Minute),
			})
			if err != nil {
				t.Fatalf("CreateRun failed: %v", err)
			}
			ids = append(ids, r.ID)
		}

		runs, err := s.ListRuns(ctx, 3)
		if err != nil {
			t.Fatalf("ListRuns failed: %v", err)
		}
		if len(runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(runs))
		}
		for i, want := range []string{ids[4], ids[3], ids[2]} {
			if runs[i].ID != want {
				t.Errorf("position %d: expected %s, got %s", i, want, runs[i].ID)
			}
		}

		all, err := s.ListRuns(ctx, 0)
		if err != nil {
			t.Fatalf("ListRuns failed: %v", err)
		}
		if len(all) != 5 {
			t.Errorf("expected default limit to return all 5, got %d", len(all))
		}
	})

	t.Run("SamplesCapped", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, &models.ImportRun{Source: "ATTOM", Scope: "listings"})
		if err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}

		var stats models.RunStats
		for i := 0; i < 25; i++ {
			stats.Fail("detail", errors.New("provider down"))
		}
		got, err := s.UpdateRun(ctx, run.ID, stats.Patch(models.RunStatusFailed, ""))
		if err != nil {
			t.Fatalf("UpdateRun failed: %v", err)
		}
		if got.Errors != 25 || len(got.ErrorSamples) != models.MaxErrorSamples {
			t.Fatalf("expected 25 errors and %d samples, got %d and %d",
				models.MaxErrorSamples, got.Errors, len(got.ErrorSamples))
		}
	})
}
