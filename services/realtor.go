package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"vantera/identity"
	"vantera/models"
	"vantera/realtor"
	"vantera/runlog"
)

// ListingSource is the Apify/Realtor surface the pipeline uses.
type ListingSource interface {
	Search(ctx context.Context, location string, limit int) ([]realtor.Listing, error)
}

type RealtorParams struct {
	City   string `json:"city"`
	Limit  int    `json:"limit"`
	DryRun bool   `json:"dryRun"`
}

type RealtorResult struct {
	City    string `json:"city"`
	Limit   int    `json:"limit"`
	DryRun  bool   `json:"dryRun"`
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
	Media   int    `json:"media"`
	RunID   string `json:"runId"`
}

type RealtorService struct {
	store  Store
	source ListingSource
	media  *MediaService
	runs   *runlog.Tracker
	cities map[string]models.CityPreset
	now    func() time.Time
}

func NewRealtorService(store Store, source ListingSource, media *MediaService, runs *runlog.Tracker, cities map[string]models.CityPreset) *RealtorService {
	return &RealtorService{
		store:  store,
		source: source,
		media:  media,
		runs:   runs,
		cities: cities,
		now:    time.Now,
	}
}

// Run mirrors the ATTOM pipeline. Listings already stored for the city are
// skipped, but their photos are still merged through media ingestion.
func (s *RealtorService) Run(ctx context.Context, p RealtorParams) (result *RealtorResult, err error) {
	preset, err := lookupPreset(s.cities, p.City)
	if err != nil {
		return nil, err
	}
	p.Limit = ClampLimit(p.Limit)

	params, _ := json.Marshal(p)
	run, err := s.runs.Start(ctx, models.ImportRun{
		Source: models.SourceRealtor,
		Scope:  "listings",
		Region: preset.Region,
		Market: preset.Slug,
		Params: params,
	})
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	result = &RealtorResult{City: preset.Key, Limit: p.Limit, DryRun: p.DryRun, RunID: run.ID}
	stats := &models.RunStats{}

	defer func() {
		result.Created = stats.Created
		result.Skipped = stats.Skipped

		status, message := models.RunStatusSucceeded, ""
		if err != nil {
			status, message = models.RunStatusFailed, err.Error()
		}
		if _, ferr := s.runs.Finish(ctx, run.ID, stats.Patch(status, message)); ferr != nil {
			log.Printf("Realtor: failed to finalize run %s: %v", run.ID, ferr)
		}
	}()

	city, err := resolveCity(ctx, s.store, preset, p.DryRun)
	if err != nil {
		stats.Fail("city", err)
		return result, fmt.Errorf("upsert city: %w", err)
	}

	search := preset.Search
	if search == "" {
		search = preset.Name
	}
	listings, err := s.source.Search(ctx, search, p.Limit)
	if err != nil {
		stats.Fail("search", err)
		return result, err
	}
	if len(listings) > p.Limit {
		listings = listings[:p.Limit]
	}

	seen := make(map[string]bool, len(listings))
	for _, item := range listings {
		stats.Scanned++

		if item.Address1 == "" || item.Address2 == "" {
			stats.Skipped++
			continue
		}
		address := item.Address()
		if seen[address] {
			stats.Skipped++
			continue
		}
		seen[address] = true

		var existing *models.Listing
		if city != nil {
			existing, err = s.store.FindListingByAddress(ctx, city.ID, address)
			if err != nil {
				stats.Fail("dedup", err)
				return result, fmt.Errorf("find listing: %w", err)
			}
		}

		if existing != nil {
			stats.Skipped++
			if !p.DryRun && len(item.Photos) > 0 {
				n, err := s.media.Ingest(ctx, existing.ID, models.SourceRealtor, item.Photos)
				if err != nil {
					stats.Fail("media", err)
					return result, fmt.Errorf("ingest media: %w", err)
				}
				result.Media += n
			}
			continue
		}

		if p.DryRun {
			stats.Created++
			continue
		}

		listing := buildRealtorListing(preset, city, item, s.now())
		if err := s.store.CreateListing(ctx, listing); err != nil {
			stats.Fail("create", err)
			return result, fmt.Errorf("create listing: %w", err)
		}
		stats.Created++

		if len(item.Photos) > 0 {
			n, err := s.media.Ingest(ctx, listing.ID, models.SourceRealtor, item.Photos)
			if err != nil {
				stats.Fail("media", err)
				return result, fmt.Errorf("ingest media: %w", err)
			}
			result.Media += n
		}
	}

	log.Printf("Realtor: run %s done: created=%d skipped=%d media=%d", run.ID, stats.Created, stats.Skipped, result.Media)
	return result, nil
}

func buildRealtorListing(preset models.CityPreset, city *models.City, item realtor.Listing, now time.Time) *models.Listing {
	address := item.Address()
	return &models.Listing{
		Slug:          identity.ListingSlug(preset.Slug, address, item.ExternalID, now),
		CityID:        city.ID,
		Status:        models.ListingStatusDraft,
		Visibility:    models.VisibilityPrivate,
		Verification:  models.VerificationUnverified,
		Title:         titleCase(item.Address1),
		Headline:      headline(item.PropertyType, item.Bedrooms, preset.Name),
		Description:   item.Description,
		Address:       address,
		AddressHidden: true,
		Lat:           item.Lat,
		Lng:           item.Lng,
		PropertyType:  item.PropertyType,
		Bedrooms:      item.Bedrooms,
		Bathrooms:     item.Bathrooms,
		BuiltArea:     item.LivingArea,
		PlotArea:      item.LotArea,
		Price:         item.Price,
		Currency:      "USD",
		Source:        models.SourceRealtor,
		ExternalID:    item.ExternalID,
	}
}
