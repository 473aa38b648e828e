package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"vantera/models"
)

// MediaService appends provider photos to a listing. Existing media rows are
// never modified or removed.
type MediaService struct {
	store Store
}

func NewMediaService(store Store) *MediaService {
	return &MediaService{store: store}
}

// Ingest skips blank URLs and URLs the listing already has, inserts the rest
// and returns how many rows were created. The first insert becomes the cover
// when the listing has none.
func (s *MediaService) Ingest(ctx context.Context, listingID uuid.UUID, source string, photos []models.Photo) (int, error) {
	listing, err := s.store.GetListingByID(ctx, listingID)
	if err != nil {
		return 0, fmt.Errorf("get listing: %w", err)
	}
	if listing == nil {
		return 0, ErrListingNotFound
	}

	inserted := 0
	for _, p := range photos {
		url := strings.TrimSpace(p.URL)
		if url == "" {
			continue
		}

		exists, err := s.store.ListingMediaExists(ctx, listingID, url)
		if err != nil {
			return inserted, fmt.Errorf("check media: %w", err)
		}
		if exists {
			continue
		}

		m := &models.ListingMedia{
			ListingID: listingID,
			URL:       url,
			Alt:       p.Alt,
			Width:     p.Width,
			Height:    p.Height,
			Source:    source,
		}
		ok, err := s.store.CreateListingMedia(ctx, m)
		if err != nil {
			return inserted, fmt.Errorf("create media: %w", err)
		}
		if !ok {
			continue
		}

		if inserted == 0 && listing.CoverMediaID == nil {
			if _, err := s.store.SetCoverMediaIfEmpty(ctx, listingID, m.ID); err != nil {
				return inserted + 1, fmt.Errorf("set cover: %w", err)
			}
		}
		inserted++
	}

	return inserted, nil
}
