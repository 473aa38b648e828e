package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"vantera/config"
	"vantera/models"
	"vantera/runlog"
	"vantera/runlog/runlogtest"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_RunLogContract(t *testing.T) {
	runlogtest.Run(t, func(t *testing.T) runlog.Store {
		return newTestStore(t)
	})
}

func TestSQLiteStore_UpsertCity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	preset := config.DefaultCities["miami"]
	first := preset.City()
	if err := s.UpsertCity(ctx, first); err != nil {
		t.Fatalf("UpsertCity failed: %v", err)
	}

	second := preset.City()
	second.Timezone = "America/Chicago"
	if err := s.UpsertCity(ctx, second); err != nil {
		t.Fatalf("second UpsertCity failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert by slug must keep the id: %s vs %s", first.ID, second.ID)
	}

	got, err := s.GetCityBySlug(ctx, "miami")
	if err != nil {
		t.Fatalf("GetCityBySlug failed: %v", err)
	}
	if got == nil || got.Timezone != "America/Chicago" || got.Lat != 25.7617 {
		t.Fatalf("unexpected city %+v", got)
	}

	missing, err := s.GetCityBySlug(ctx, "berlin")
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil) for unknown slug, got %v, %v", missing, err)
	}
}

func TestSQLiteStore_Listings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	city := config.DefaultCities["miami"].City()
	if err := s.UpsertCity(ctx, city); err != nil {
		t.Fatalf("UpsertCity failed: %v", err)
	}

	beds := 3
	lat := 25.76
	l := &models.Listing{
		Slug:          "miami-1-main-st-42",
		CityID:        city.ID,
		Title:         "1 Main St",
		Address:       "1 MAIN ST, MIAMI, FL 33131",
		AddressHidden: true,
		Bedrooms:      &beds,
		Lat:           &lat,
		Source:        models.SourceATTOM,
		ExternalID:    "42",
	}
	if err := s.CreateListing(ctx, l); err != nil {
		t.Fatalf("CreateListing failed: %v", err)
	}

	found, err := s.FindListingByAddress(ctx, city.ID, "1 MAIN ST, MIAMI, FL 33131")
	if err != nil {
		t.Fatalf("FindListingByAddress failed: %v", err)
	}
	if found == nil || found.ID != l.ID {
		t.Fatalf("expected to find listing %s, got %+v", l.ID, found)
	}
	if found.Status != models.ListingStatusDraft || found.Visibility != models.VisibilityPrivate || found.Currency != "USD" {
		t.Errorf("import defaults not applied: %+v", found)
	}
	if !found.AddressHidden || found.Bedrooms == nil || *found.Bedrooms != 3 || found.Bathrooms != nil {
		t.Errorf("unexpected optional fields: %+v", found)
	}

	none, err := s.FindListingByAddress(ctx, city.ID, "2 MAIN ST, MIAMI, FL 33131")
	if err != nil || none != nil {
		t.Fatalf("expected no match, got %v, %v", none, err)
	}
}

func TestSQLiteStore_ListingMedia(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	city := config.DefaultCities["miami"].City()
	if err := s.UpsertCity(ctx, city); err != nil {
		t.Fatalf("UpsertCity failed: %v", err)
	}
	l := &models.Listing{Slug: "miami-media", CityID: city.ID, Address: "1 A ST"}
	if err := s.CreateListing(ctx, l); err != nil {
		t.Fatalf("CreateListing failed: %v", err)
	}

	a := &models.ListingMedia{ListingID: l.ID, URL: "https://img.example.com/a.jpg", Source: models.SourceATTOM}
	inserted, err := s.CreateListingMedia(ctx, a)
	if err != nil || !inserted {
		t.Fatalf("expected insert, got %v, %v", inserted, err)
	}
	b := &models.ListingMedia{ListingID: l.ID, URL: "https://img.example.com/b.jpg", Source: models.SourceATTOM}
	if _, err := s.CreateListingMedia(ctx, b); err != nil {
		t.Fatalf("second insert failed: %v", err)
	}
	if a.Position != 0 || b.Position != 1 {
		t.Errorf("expected positions 0 and 1, got %d and %d", a.Position, b.Position)
	}

	dup := &models.ListingMedia{ListingID: l.ID, URL: "https://img.example.com/a.jpg"}
	inserted, err = s.CreateListingMedia(ctx, dup)
	if err != nil || inserted {
		t.Fatalf("duplicate url must not insert, got %v, %v", inserted, err)
	}

	exists, err := s.ListingMediaExists(ctx, l.ID, "https://img.example.com/a.jpg")
	if err != nil || !exists {
		t.Fatalf("expected media to exist, got %v, %v", exists, err)
	}

	set, err := s.SetCoverMediaIfEmpty(ctx, l.ID, a.ID)
	if err != nil || !set {
		t.Fatalf("expected cover to be set, got %v, %v", set, err)
	}
	set, err = s.SetCoverMediaIfEmpty(ctx, l.ID, b.ID)
	if err != nil || set {
		t.Fatalf("cover must not be replaced, got %v, %v", set, err)
	}

	got, _ := s.GetListingByID(ctx, l.ID)
	if got.CoverMediaID == nil || *got.CoverMediaID != a.ID {
		t.Fatalf("unexpected cover %v", got.CoverMediaID)
	}

	media, err := s.ListListingMedia(ctx, l.ID)
	if err != nil || len(media) != 2 {
		t.Fatalf("expected 2 media rows, got %d (%v)", len(media), err)
	}
}

func TestSQLiteStore_GetListingByID_Missing(t *testing.T) {
	s := newTestStore(t)
	l, err := s.GetListingByID(context.Background(), uuid.New())
	if err != nil || l != nil {
		t.Fatalf("expected (nil, nil), got %v, %v", l, err)
	}
}

func TestSQLiteStore_UpdateRunKeepsParams(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, &models.ImportRun{Source: "ATTOM", Params: []byte(`{"limit":25}`)})
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	var stats models.RunStats
	got, err := s.UpdateRun(ctx, run.ID, stats.Patch(models.RunStatusSucceeded, ""))
	if err != nil {
		t.Fatalf("UpdateRun failed: %v", err)
	}
	if string(got.Params) != `{"limit":25}` {
		t.Errorf("params lost: %s", got.Params)
	}

	_, err = s.UpdateRun(ctx, run.ID, stats.Patch(models.RunStatusFailed, ""))
	if !errors.Is(err, models.ErrRunFinalized) {
		t.Fatalf("expected ErrRunFinalized, got %v", err)
	}
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		cfg  config.S3Config
		want string
	}{
		{config.S3Config{Bucket: "media", Region: "us-east-1"}, "https://media.s3.us-east-1.amazonaws.com/k.jpg"},
		{config.S3Config{Bucket: "media", Endpoint: "https://nyc3.digitaloceanspaces.com"}, "https://media.nyc3.digitaloceanspaces.com/k.jpg"},
		{config.S3Config{Bucket: "media", Endpoint: "http://localhost:9000/"}, "http://localhost:9000/media/k.jpg"},
	}
	for _, tt := range tests {
		if got := PublicURL(tt.cfg, "k.jpg"); got != tt.want {
			t.Errorf("PublicURL(%+v) = %q, want %q", tt.cfg, got, tt.want)
		}
	}
}
