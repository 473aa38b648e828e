package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vantera/attom"
	"vantera/identity"
	"vantera/models"
	"vantera/runlog"
)

// PropertySource is the ATTOM surface the pipeline uses.
type PropertySource interface {
	SearchByRadius(ctx context.Context, lat, lng, radius float64, limit int) ([]attom.Candidate, error)
	Detail(ctx context.Context, address1, address2 string) (*attom.Detail, error)
}

type IngestParams struct {
	City   string  `json:"city"`
	Radius float64 `json:"radius"`
	Limit  int     `json:"limit"`
	DryRun bool    `json:"dryRun"`
}

type IngestResult struct {
	City    string  `json:"city"`
	Radius  float64 `json:"radius"`
	Limit   int     `json:"limit"`
	DryRun  bool    `json:"dryRun"`
	Created int     `json:"created"`
	Skipped int     `json:"skipped"`
	Media   int     `json:"media"`
	RunID   string  `json:"runId"`
}

type IngestService struct {
	store    Store
	provider PropertySource
	media    *MediaService
	runs     *runlog.Tracker
	cities   map[string]models.CityPreset
	now      func() time.Time
}

func NewIngestService(store Store, provider PropertySource, media *MediaService, runs *runlog.Tracker, cities map[string]models.CityPreset) *IngestService {
	return &IngestService{
		store:    store,
		provider: provider,
		media:    media,
		runs:     runs,
		cities:   cities,
		now:      time.Now,
	}
}

// RunATTOM pulls listings around a preset city's center. Record-level problems
// are counted as skipped; provider and storage failures abort the run. The
// returned result carries the run id even when err is non-nil.
func (s *IngestService) RunATTOM(ctx context.Context, p IngestParams) (result *IngestResult, err error) {
	preset, err := lookupPreset(s.cities, p.City)
	if err != nil {
		return nil, err
	}

	p.Limit = ClampLimit(p.Limit)
	if p.Radius <= 0 {
		p.Radius = DefaultRadius
	}

	params, _ := json.Marshal(p)
	run, err := s.runs.Start(ctx, models.ImportRun{
		Source: models.SourceATTOM,
		Scope:  "listings",
		Region: preset.Region,
		Market: preset.Slug,
		Params: params,
	})
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	result = &IngestResult{
		City:   preset.Key,
		Radius: p.Radius,
		Limit:  p.Limit,
		DryRun: p.DryRun,
		RunID:  run.ID,
	}
	stats := &models.RunStats{}

	defer func() {
		result.Created = stats.Created
		result.Skipped = stats.Skipped

		status, message := models.RunStatusSucceeded, ""
		if err != nil {
			status, message = models.RunStatusFailed, err.Error()
		}
		if _, ferr := s.runs.Finish(ctx, run.ID, stats.Patch(status, message)); ferr != nil {
			log.Printf("ATTOM: failed to finalize run %s: %v", run.ID, ferr)
		}
	}()

	city, err := resolveCity(ctx, s.store, preset, p.DryRun)
	if err != nil {
		stats.Fail("city", err)
		return result, fmt.Errorf("upsert city: %w", err)
	}

	candidates, err := s.provider.SearchByRadius(ctx, preset.Lat, preset.Lng, p.Radius, p.Limit)
	if err != nil {
		stats.Fail("search", err)
		return result, err
	}
	log.Printf("ATTOM: %d candidates for %s (radius=%.2f, limit=%d, dryRun=%v)",
		len(candidates), preset.Key, p.Radius, p.Limit, p.DryRun)

	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		stats.Scanned++

		if !c.Complete() {
			stats.Skipped++
			continue
		}

		address := identity.CombineAddress(c.Address1, c.Address2)
		dup, err := s.isDuplicate(ctx, city, address, seen)
		if err != nil {
			stats.Fail("dedup", err)
			return result, fmt.Errorf("find listing: %w", err)
		}
		if dup {
			stats.Skipped++
			continue
		}
		seen[address] = true

		detail, err := s.provider.Detail(ctx, c.Address1, c.Address2)
		if err != nil {
			stats.Fail("detail", err)
			return result, err
		}

		listing := buildATTOMListing(preset, c, detail, address, s.now())
		if p.DryRun {
			stats.Created++
			continue
		}

		listing.CityID = city.ID
		if err := s.store.CreateListing(ctx, listing); err != nil {
			stats.Fail("create", err)
			return result, fmt.Errorf("create listing: %w", err)
		}
		stats.Created++

		if detail != nil && len(detail.Photos) > 0 {
			n, err := s.media.Ingest(ctx, listing.ID, models.SourceATTOM, detail.Photos)
			if err != nil {
				stats.Fail("media", err)
				return result, fmt.Errorf("ingest media: %w", err)
			}
			result.Media += n
		}
	}

	log.Printf("ATTOM: run %s done: created=%d skipped=%d media=%d", run.ID, stats.Created, stats.Skipped, result.Media)
	return result, nil
}

// isDuplicate checks this run's seen set first, then the store. A nil city
// (dry run, city not yet persisted) cannot have stored listings.
func (s *IngestService) isDuplicate(ctx context.Context, city *models.City, address string, seen map[string]bool) (bool, error) {
	if seen[address] {
		return true, nil
	}
	if city == nil {
		return false, nil
	}
	existing, err := s.store.FindListingByAddress(ctx, city.ID, address)
	if err != nil {
		return false, err
	}
	return existing != nil, nil
}

// titleCase builds a fresh Caser per call; Casers are not safe for concurrent use.
func titleCase(s string) string {
	return cases.Title(language.AmericanEnglish).String(strings.ToLower(s))
}

func buildATTOMListing(preset models.CityPreset, c attom.Candidate, d *attom.Detail, address string, now time.Time) *models.Listing {
	l := &models.Listing{
		Status:        models.ListingStatusDraft,
		Visibility:    models.VisibilityPrivate,
		Verification:  models.VerificationUnverified,
		Title:         titleCase(c.Address1),
		Address:       address,
		AddressHidden: true,
		Lat:           c.Lat,
		Lng:           c.Lng,
		Currency:      "USD",
		Source:        models.SourceATTOM,
	}

	if d != nil {
		l.ExternalID = d.ExternalID
		l.PropertyType = d.PropertyType
		l.Bedrooms = d.Bedrooms
		l.Bathrooms = d.Bathrooms
		l.BuiltArea = d.LivingArea
		l.PlotArea = d.LotArea
		l.Price = d.Valuation
		if d.Lat != nil && d.Lng != nil {
			l.Lat, l.Lng = d.Lat, d.Lng
		}
	}

	l.Headline = headline(l.PropertyType, l.Bedrooms, preset.Name)
	l.Slug = identity.ListingSlug(preset.Slug, address, l.ExternalID, now)
	return l
}

// headline renders e.g. "3 bed condominium in Miami".
func headline(propertyType string, beds *int, cityName string) string {
	kind := "Property"
	if propertyType != "" {
		kind = strings.ReplaceAll(strings.ToLower(propertyType), "_", " ")
	}
	if beds != nil && *beds > 0 {
		return fmt.Sprintf("%d bed %s in %s", *beds, kind, cityName)
	}
	return titleCase(kind) + " in " + cityName
}
