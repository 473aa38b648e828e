package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"vantera/config"
	"vantera/models"
	"vantera/runlog"
)

var ErrBootstrapFailed = errors.New("city bootstrap failed")

type BootstrapResult struct {
	RunID        string               `json:"runId"`
	Created      int                  `json:"created"`
	DryRun       bool                 `json:"dryRun"`
	Errors       int                  `json:"errors"`
	ErrorSamples []models.ErrorSample `json:"errorSamples"`
}

// BootstrapService upserts every preset city under its own import run.
type BootstrapService struct {
	store  Store
	runs   *runlog.Tracker
	cities map[string]models.CityPreset
}

func NewBootstrapService(store Store, runs *runlog.Tracker, cities map[string]models.CityPreset) *BootstrapService {
	return &BootstrapService{store: store, runs: runs, cities: cities}
}

// Run counts each preset as created once its upsert succeeds; a dry run counts
// without writing. Any failing preset fails the run with ErrBootstrapFailed,
// and the result still reports the samples.
func (s *BootstrapService) Run(ctx context.Context, dryRun bool) (*BootstrapResult, error) {
	keys := config.PresetKeys(s.cities)

	params, _ := json.Marshal(map[string]any{"dryRun": dryRun, "presets": keys})
	run, err := s.runs.Start(ctx, models.ImportRun{
		Source: models.SourcePresets,
		Scope:  "cities",
		Params: params,
	})
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	stats := &models.RunStats{}
	for _, key := range keys {
		stats.Scanned++
		if dryRun {
			stats.Created++
			continue
		}

		if err := s.store.UpsertCity(ctx, s.cities[key].City()); err != nil {
			log.Printf("Bootstrap: preset %s failed: %v", key, err)
			stats.Fail("city:"+key, err)
			continue
		}
		stats.Created++
	}

	status, message := models.RunStatusSucceeded, ""
	if stats.Errors > 0 {
		status = models.RunStatusFailed
		message = fmt.Sprintf("%d of %d presets failed", stats.Errors, len(keys))
	}

	finished, err := s.runs.Finish(ctx, run.ID, stats.Patch(status, message))
	if err != nil {
		return nil, fmt.Errorf("finish run: %w", err)
	}

	result := &BootstrapResult{
		RunID:        finished.ID,
		Created:      stats.Created,
		DryRun:       dryRun,
		Errors:       stats.Errors,
		ErrorSamples: finished.ErrorSamples,
	}
	log.Printf("Bootstrap: run %s created=%d errors=%d dryRun=%v", run.ID, stats.Created, stats.Errors, dryRun)

	if stats.Errors > 0 {
		return result, fmt.Errorf("%w: %s", ErrBootstrapFailed, message)
	}
	return result, nil
}
