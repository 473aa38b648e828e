package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"vantera/attom"
	"vantera/models"
	"vantera/realtor"
	"vantera/runlog"
)

type memStore struct {
	mu       sync.Mutex
	cities   map[string]*models.City
	listings []*models.Listing
	media    []*models.ListingMedia

	cityWrites    int
	listingWrites int
	mediaWrites   int
	upsertErr     error
}

func newMemStore() *memStore {
	return &memStore{cities: make(map[string]*models.City)}
}

func (s *memStore) UpsertCity(ctx context.Context, c *models.City) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.cityWrites++
	if existing, ok := s.cities[c.Slug]; ok {
		c.ID = existing.ID
	} else if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	s.cities[c.Slug] = &cp
	return nil
}

func (s *memStore) GetCityBySlug(ctx context.Context, slug string) (*models.City, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cities[slug]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) CreateListing(ctx context.Context, l *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listingWrites++
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	cp := *l
	s.listings = append(s.listings, &cp)
	return nil
}

func (s *memStore) FindListingByAddress(ctx context.Context, cityID uuid.UUID, address string) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.listings {
		if l.CityID == cityID && l.Address == address {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetListingByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.listings {
		if l.ID == id {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) SetCoverMediaIfEmpty(ctx context.Context, listingID, mediaID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.listings {
		if l.ID == listingID && l.CoverMediaID == nil {
			id := mediaID
			l.CoverMediaID = &id
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) ListingMediaExists(ctx context.Context, listingID uuid.UUID, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.media {
		if m.ListingID == listingID && m.URL == url {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CreateListingMedia(ctx context.Context, m *models.ListingMedia) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mediaWrites++
	m.ID = uuid.New()
	cp := *m
	s.media = append(s.media, &cp)
	return true, nil
}

func (s *memStore) mediaFor(listingID uuid.UUID) []models.ListingMedia {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ListingMedia
	for _, m := range s.media {
		if m.ListingID == listingID {
			out = append(out, *m)
		}
	}
	return out
}

func (s *memStore) writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cityWrites + s.listingWrites + s.mediaWrites
}

type fakeATTOM struct {
	candidates []attom.Candidate
	details    map[string]*attom.Detail
	searchErr  error

	searchLimit int
	searches    int
	detailCalls int
}

func (f *fakeATTOM) SearchByRadius(ctx context.Context, lat, lng, radius float64, limit int) ([]attom.Candidate, error) {
	f.searches++
	f.searchLimit = limit
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.candidates) > limit {
		return f.candidates[:limit], nil
	}
	return f.candidates, nil
}

func (f *fakeATTOM) Detail(ctx context.Context, address1, address2 string) (*attom.Detail, error) {
	f.detailCalls++
	return f.details[address1], nil
}

type fakeRealtor struct {
	listings []realtor.Listing
	err      error
	location string
}

func (f *fakeRealtor) Search(ctx context.Context, location string, limit int) ([]realtor.Listing, error) {
	f.location = location
	return f.listings, f.err
}

var errStorage = errors.New("storage unavailable")

func newTracker() (*runlog.Tracker, *runlog.MemoryStore) {
	runs := runlog.NewMemoryStore()
	return runlog.NewTracker(runs, nil), runs
}

func testCities() map[string]models.CityPreset {
	return map[string]models.CityPreset{
		"miami": {
			Key: "miami", Name: "Miami", Slug: "miami", Country: "US", Region: "FL",
			Timezone: "America/New_York", Lat: 25.7617, Lng: -80.1918, Search: "Miami, FL",
		},
	}
}

func fixedNow() time.Time {
	return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }
