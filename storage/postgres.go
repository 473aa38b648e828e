package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vantera/models"
	"vantera/runlog"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS cities (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		country TEXT NOT NULL DEFAULT '',
		region TEXT NOT NULL DEFAULT '',
		timezone TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION NOT NULL DEFAULT 0,
		lng DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS listings (
		id UUID PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		city_id UUID NOT NULL REFERENCES cities(id),
		status TEXT NOT NULL DEFAULT 'DRAFT',
		visibility TEXT NOT NULL DEFAULT 'PRIVATE',
		verification TEXT NOT NULL DEFAULT 'UNVERIFIED',
		title TEXT NOT NULL DEFAULT '',
		headline TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		address_hidden BOOLEAN NOT NULL DEFAULT TRUE,
		lat DOUBLE PRECISION,
		lng DOUBLE PRECISION,
		property_type TEXT NOT NULL DEFAULT '',
		bedrooms INTEGER,
		bathrooms DOUBLE PRECISION,
		built_area DOUBLE PRECISION,
		plot_area DOUBLE PRECISION,
		price BIGINT,
		currency TEXT NOT NULL DEFAULT 'USD',
		source TEXT NOT NULL DEFAULT '',
		external_id TEXT NOT NULL DEFAULT '',
		cover_media_id UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_listings_city_address ON listings(city_id, address);

	CREATE TABLE IF NOT EXISTS listing_media (
		id UUID PRIMARY KEY,
		listing_id UUID NOT NULL REFERENCES listings(id),
		url TEXT NOT NULL,
		alt TEXT NOT NULL DEFAULT '',
		width INTEGER,
		height INTEGER,
		source TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_listing_media_url ON listing_media(listing_id, url);

	CREATE TABLE IF NOT EXISTS import_runs (
		id UUID PRIMARY KEY,
		source TEXT NOT NULL,
		scope TEXT NOT NULL DEFAULT '',
		region TEXT NOT NULL DEFAULT '',
		market TEXT NOT NULL DEFAULT '',
		params JSONB,
		status TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		scanned INTEGER NOT NULL DEFAULT 0,
		created INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0,
		error_samples JSONB NOT NULL DEFAULT '[]',
		message TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_import_runs_started ON import_runs(started_at DESC);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// =============================================================================
// Cities
// =============================================================================

// UpsertCity inserts or refreshes the city keyed by slug and sets c.ID.
func (s *PostgresStore) UpsertCity(ctx context.Context, c *models.City) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	query := `
		INSERT INTO cities (id, name, slug, country, region, timezone, lat, lng, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			country = EXCLUDED.country,
			region = EXCLUDED.region,
			timezone = EXCLUDED.timezone,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	return s.pool.QueryRow(ctx, query,
		c.ID, c.Name, c.Slug, c.Country, c.Region, c.Timezone, c.Lat, c.Lng,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (s *PostgresStore) GetCityBySlug(ctx context.Context, slug string) (*models.City, error) {
	query := `
		SELECT id, name, slug, country, region, timezone, lat, lng, created_at, updated_at
		FROM cities WHERE slug = $1`

	var c models.City
	err := s.pool.QueryRow(ctx, query, slug).Scan(
		&c.ID, &c.Name, &c.Slug, &c.Country, &c.Region, &c.Timezone, &c.Lat, &c.Lng, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// =============================================================================
// Listings
// =============================================================================

const listingColumns = `
	id, slug, city_id, status, visibility, verification, title, headline, description,
	address, address_hidden, lat, lng, property_type, bedrooms, bathrooms, built_area,
	plot_area, price, currency, source, external_id, cover_media_id, created_at, updated_at`

func (s *PostgresStore) CreateListing(ctx context.Context, l *models.Listing) error {
	prepareListing(l)

	query := `INSERT INTO listings (` + listingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`

	_, err := s.pool.Exec(ctx, query, listingArgs(l)...)
	return err
}

// FindListingByAddress returns the first listing in the city with exactly this address.
func (s *PostgresStore) FindListingByAddress(ctx context.Context, cityID uuid.UUID, address string) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE city_id = $1 AND address = $2 ORDER BY created_at LIMIT 1`
	return s.scanListing(s.pool.QueryRow(ctx, query, cityID, address))
}

func (s *PostgresStore) GetListingByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	return s.scanListing(s.pool.QueryRow(ctx, query, id))
}

func (s *PostgresStore) scanListing(row pgx.Row) (*models.Listing, error) {
	var l models.Listing
	err := row.Scan(listingDest(&l)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// SetCoverMediaIfEmpty points the listing at mediaID unless it already has a cover.
func (s *PostgresStore) SetCoverMediaIfEmpty(ctx context.Context, listingID, mediaID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE listings SET cover_media_id = $2, updated_at = NOW() WHERE id = $1 AND cover_media_id IS NULL`,
		listingID, mediaID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// =============================================================================
// Listing Media
// =============================================================================

func (s *PostgresStore) ListingMediaExists(ctx context.Context, listingID uuid.UUID, url string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM listing_media WHERE listing_id = $1 AND url = $2)`,
		listingID, url).Scan(&exists)
	return exists, err
}

// CreateListingMedia appends m after the listing's last position. It reports
// false when (listing_id, url) already exists.
func (s *PostgresStore) CreateListingMedia(ctx context.Context, m *models.ListingMedia) (bool, error) {
	prepareMedia(m)

	query := `
		INSERT INTO listing_media (id, listing_id, url, alt, width, height, source, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7,
			(SELECT COALESCE(MAX(position) + 1, 0) FROM listing_media WHERE listing_id = $2), $8)
		ON CONFLICT (listing_id, url) DO NOTHING
		RETURNING position`

	err := s.pool.QueryRow(ctx, query,
		m.ID, m.ListingID, m.URL, m.Alt, m.Width, m.Height, m.Source, m.CreatedAt,
	).Scan(&m.Position)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresStore) ListListingMedia(ctx context.Context, listingID uuid.UUID) ([]models.ListingMedia, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, listing_id, url, alt, width, height, source, position, created_at
		FROM listing_media WHERE listing_id = $1 ORDER BY position`, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var media []models.ListingMedia
	for rows.Next() {
		var m models.ListingMedia
		if err := rows.Scan(&m.ID, &m.ListingID, &m.URL, &m.Alt, &m.Width, &m.Height, &m.Source, &m.Position, &m.CreatedAt); err != nil {
			return nil, err
		}
		media = append(media, m)
	}
	return media, rows.Err()
}

// =============================================================================
// Import Runs
// =============================================================================

const runColumns = `
	id, source, scope, region, market, params, status, started_at, finished_at,
	scanned, created, skipped, errors, error_samples, message`

func (s *PostgresStore) CreateRun(ctx context.Context, run *models.ImportRun) (*models.ImportRun, error) {
	r := runlog.Prepare(run)

	samples, err := json.Marshal(r.ErrorSamples)
	if err != nil {
		return nil, fmt.Errorf("marshal error samples: %w", err)
	}

	query := `INSERT INTO import_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = s.pool.Exec(ctx, query,
		r.ID, r.Source, r.Scope, r.Region, r.Market, nullJSON(r.Params), r.Status, r.StartedAt, r.FinishedAt,
		r.Scanned, r.Created, r.Skipped, r.Errors, samples, r.Message,
	)
	if err != nil {
		return nil, fmt.Errorf("insert import run: %w", err)
	}
	return r, nil
}

// UpdateRun locks the row, applies the patch and writes it back only while the
// run is still open.
func (s *PostgresStore) UpdateRun(ctx context.Context, id string, patch models.RunPatch) (*models.ImportRun, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrRunNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	run, err := scanRun(tx.QueryRow(ctx, `SELECT `+runColumns+` FROM import_runs WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := run.Apply(patch); err != nil {
		return nil, err
	}

	samples, err := json.Marshal(run.ErrorSamples)
	if err != nil {
		return nil, fmt.Errorf("marshal error samples: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE import_runs SET
			status = $2, finished_at = $3, scanned = $4, created = $5, skipped = $6,
			errors = $7, error_samples = $8, message = $9
		WHERE id = $1 AND status IN ('QUEUED', 'RUNNING')`,
		run.ID, run.Status, run.FinishedAt, run.Scanned, run.Created, run.Skipped,
		run.Errors, samples, run.Message,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, models.ErrRunFinalized
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]models.ImportRun, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+runColumns+` FROM import_runs ORDER BY started_at DESC, id DESC LIMIT $1`,
		runlog.ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []models.ImportRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanRun(row pgx.Row) (*models.ImportRun, error) {
	var (
		r       models.ImportRun
		id      uuid.UUID
		params  []byte
		samples []byte
	)
	err := row.Scan(
		&id, &r.Source, &r.Scope, &r.Region, &r.Market, &params, &r.Status, &r.StartedAt, &r.FinishedAt,
		&r.Scanned, &r.Created, &r.Skipped, &r.Errors, &samples, &r.Message,
	)
	if err != nil {
		return nil, err
	}
	r.ID = id.String()
	if err := decodeRunJSON(&r, params, samples); err != nil {
		return nil, err
	}
	return &r, nil
}
