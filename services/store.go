package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"vantera/models"
)

var (
	ErrUnknownCity     = errors.New("Unknown city")
	ErrListingNotFound = errors.New("listing not found")
)

// Store is the data access the ingestion services need. Get/Find methods
// return (nil, nil) when nothing matches.
type Store interface {
	UpsertCity(ctx context.Context, c *models.City) error
	GetCityBySlug(ctx context.Context, slug string) (*models.City, error)

	CreateListing(ctx context.Context, l *models.Listing) error
	FindListingByAddress(ctx context.Context, cityID uuid.UUID, address string) (*models.Listing, error)
	GetListingByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	SetCoverMediaIfEmpty(ctx context.Context, listingID, mediaID uuid.UUID) (bool, error)

	ListingMediaExists(ctx context.Context, listingID uuid.UUID, url string) (bool, error)
	CreateListingMedia(ctx context.Context, m *models.ListingMedia) (bool, error)
}

// Clamp bounds for ingestion requests
const (
	DefaultIngestLimit = 25
	MaxIngestLimit     = 100
	DefaultRadius      = 0.5
)

// ClampLimit maps a requested limit into [1, MaxIngestLimit].
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultIngestLimit
	case limit > MaxIngestLimit:
		return MaxIngestLimit
	}
	return limit
}

func lookupPreset(cities map[string]models.CityPreset, key string) (models.CityPreset, error) {
	preset, ok := cities[key]
	if !ok {
		return models.CityPreset{}, ErrUnknownCity
	}
	return preset, nil
}

// resolveCity upserts the preset's city, or in a dry run only reads it. A dry
// run against a fresh database returns nil.
func resolveCity(ctx context.Context, store Store, preset models.CityPreset, dryRun bool) (*models.City, error) {
	if dryRun {
		return store.GetCityBySlug(ctx, preset.Slug)
	}
	city := preset.City()
	if err := store.UpsertCity(ctx, city); err != nil {
		return nil, err
	}
	return city, nil
}
