package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vantera/models"
)

// prepareListing fills ids, timestamps and import defaults before insert.
func prepareListing(l *models.Listing) {
	now := time.Now().UTC()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now
	if l.Status == "" {
		l.Status = models.ListingStatusDraft
	}
	if l.Visibility == "" {
		l.Visibility = models.VisibilityPrivate
	}
	if l.Verification == "" {
		l.Verification = models.VerificationUnverified
	}
	if l.Currency == "" {
		l.Currency = "USD"
	}
}

// listingArgs and listingDest follow listingColumns order.
func listingArgs(l *models.Listing) []any {
	return []any{
		l.ID, l.Slug, l.CityID, l.Status, l.Visibility, l.Verification, l.Title, l.Headline, l.Description,
		l.Address, l.AddressHidden, l.Lat, l.Lng, l.PropertyType, l.Bedrooms, l.Bathrooms, l.BuiltArea,
		l.PlotArea, l.Price, l.Currency, l.Source, l.ExternalID, l.CoverMediaID, l.CreatedAt, l.UpdatedAt,
	}
}

func listingDest(l *models.Listing) []any {
	return []any{
		&l.ID, &l.Slug, &l.CityID, &l.Status, &l.Visibility, &l.Verification, &l.Title, &l.Headline, &l.Description,
		&l.Address, &l.AddressHidden, &l.Lat, &l.Lng, &l.PropertyType, &l.Bedrooms, &l.Bathrooms, &l.BuiltArea,
		&l.PlotArea, &l.Price, &l.Currency, &l.Source, &l.ExternalID, &l.CoverMediaID, &l.CreatedAt, &l.UpdatedAt,
	}
}

func prepareMedia(m *models.ListingMedia) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
}

func nullJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func decodeRunJSON(r *models.ImportRun, params, samples []byte) error {
	if len(params) > 0 {
		r.Params = json.RawMessage(params)
	}
	r.ErrorSamples = []models.ErrorSample{}
	if len(samples) > 0 {
		if err := json.Unmarshal(samples, &r.ErrorSamples); err != nil {
			return fmt.Errorf("decode error samples: %w", err)
		}
	}
	return nil
}
