package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"vantera/models"
	"vantera/runlog"
)

// SQLiteStore is the single-file backend for local runs and tests.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cities (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		country TEXT NOT NULL DEFAULT '',
		region TEXT NOT NULL DEFAULT '',
		timezone TEXT NOT NULL DEFAULT '',
		lat REAL NOT NULL DEFAULT 0,
		lng REAL NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS listings (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		city_id TEXT NOT NULL REFERENCES cities(id),
		status TEXT NOT NULL DEFAULT 'DRAFT',
		visibility TEXT NOT NULL DEFAULT 'PRIVATE',
		verification TEXT NOT NULL DEFAULT 'UNVERIFIED',
		title TEXT NOT NULL DEFAULT '',
		headline TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		address_hidden BOOLEAN NOT NULL DEFAULT TRUE,
		lat REAL,
		lng REAL,
		property_type TEXT NOT NULL DEFAULT '',
		bedrooms INTEGER,
		bathrooms REAL,
		built_area REAL,
		plot_area REAL,
		price INTEGER,
		currency TEXT NOT NULL DEFAULT 'USD',
		source TEXT NOT NULL DEFAULT '',
		external_id TEXT NOT NULL DEFAULT '',
		cover_media_id TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_listings_city_address ON listings(city_id, address);

	CREATE TABLE IF NOT EXISTS listing_media (
		id TEXT PRIMARY KEY,
		listing_id TEXT NOT NULL REFERENCES listings(id),
		url TEXT NOT NULL,
		alt TEXT NOT NULL DEFAULT '',
		width INTEGER,
		height INTEGER,
		source TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_listing_media_url ON listing_media(listing_id, url);

	CREATE TABLE IF NOT EXISTS import_runs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		scope TEXT NOT NULL DEFAULT '',
		region TEXT NOT NULL DEFAULT '',
		market TEXT NOT NULL DEFAULT '',
		params TEXT,
		status TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		scanned INTEGER NOT NULL DEFAULT 0,
		created INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0,
		error_samples TEXT NOT NULL DEFAULT '[]',
		message TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_import_runs_started ON import_runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// Cities
// =============================================================================

func (s *SQLiteStore) UpsertCity(ctx context.Context, c *models.City) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO cities (id, name, slug, country, region, timezone, lat, lng, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (slug) DO UPDATE SET
			name = excluded.name,
			country = excluded.country,
			region = excluded.region,
			timezone = excluded.timezone,
			lat = excluded.lat,
			lng = excluded.lng,
			updated_at = excluded.updated_at
		RETURNING id, created_at, updated_at`

	return s.db.QueryRowContext(ctx, query,
		c.ID, c.Name, c.Slug, c.Country, c.Region, c.Timezone, c.Lat, c.Lng, now, now,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (s *SQLiteStore) GetCityBySlug(ctx context.Context, slug string) (*models.City, error) {
	query := `
		SELECT id, name, slug, country, region, timezone, lat, lng, created_at, updated_at
		FROM cities WHERE slug = ?`

	var c models.City
	err := s.db.QueryRowContext(ctx, query, slug).Scan(
		&c.ID, &c.Name, &c.Slug, &c.Country, &c.Region, &c.Timezone, &c.Lat, &c.Lng, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
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

func (s *SQLiteStore) CreateListing(ctx context.Context, l *models.Listing) error {
	prepareListing(l)

	query := `INSERT INTO listings (` + listingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query, listingArgs(l)...)
	return err
}

func (s *SQLiteStore) FindListingByAddress(ctx context.Context, cityID uuid.UUID, address string) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE city_id = ? AND address = ? ORDER BY created_at LIMIT 1`
	return scanSQLiteListing(s.db.QueryRowContext(ctx, query, cityID, address))
}

func (s *SQLiteStore) GetListingByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = ?`
	return scanSQLiteListing(s.db.QueryRowContext(ctx, query, id))
}

func scanSQLiteListing(row *sql.Row) (*models.Listing, error) {
	var l models.Listing
	err := row.Scan(listingDest(&l)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *SQLiteStore) SetCoverMediaIfEmpty(ctx context.Context, listingID, mediaID uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE listings SET cover_media_id = ?, updated_at = ? WHERE id = ? AND cover_media_id IS NULL`,
		mediaID, time.Now().UTC(), listingID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// =============================================================================
// Listing Media
// =============================================================================

func (s *SQLiteStore) ListingMediaExists(ctx context.Context, listingID uuid.UUID, url string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM listing_media WHERE listing_id = ? AND url = ?)`,
		listingID, url).Scan(&exists)
	return exists, err
}

func (s *SQLiteStore) CreateListingMedia(ctx context.Context, m *models.ListingMedia) (bool, error) {
	prepareMedia(m)

	query := `
		INSERT INTO listing_media (id, listing_id, url, alt, width, height, source, position, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(position) + 1, 0) FROM listing_media WHERE listing_id = ?), ?)
		ON CONFLICT (listing_id, url) DO NOTHING
		RETURNING position`

	err := s.db.QueryRowContext(ctx, query,
		m.ID, m.ListingID, m.URL, m.Alt, m.Width, m.Height, m.Source, m.ListingID, m.CreatedAt,
	).Scan(&m.Position)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) ListListingMedia(ctx context.Context, listingID uuid.UUID) ([]models.ListingMedia, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, listing_id, url, alt, width, height, source, position, created_at
		FROM listing_media WHERE listing_id = ? ORDER BY position`, listingID)
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

func (s *SQLiteStore) CreateRun(ctx context.Context, run *models.ImportRun) (*models.ImportRun, error) {
	r := runlog.Prepare(run)

	samples, err := json.Marshal(r.ErrorSamples)
	if err != nil {
		return nil, fmt.Errorf("marshal error samples: %w", err)
	}

	query := `INSERT INTO import_runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		r.ID, r.Source, r.Scope, r.Region, r.Market, nullText(r.Params), r.Status, r.StartedAt, r.FinishedAt,
		r.Scanned, r.Created, r.Skipped, r.Errors, string(samples), r.Message,
	)
	if err != nil {
		return nil, fmt.Errorf("insert import run: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, id string, patch models.RunPatch) (*models.ImportRun, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	run, err := scanSQLiteRun(tx.QueryRowContext(ctx, `SELECT `+runColumns+` FROM import_runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
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

	res, err := tx.ExecContext(ctx, `
		UPDATE import_runs SET
			status = ?, finished_at = ?, scanned = ?, created = ?, skipped = ?,
			errors = ?, error_samples = ?, message = ?
		WHERE id = ? AND status IN ('QUEUED', 'RUNNING')`,
		run.Status, run.FinishedAt, run.Scanned, run.Created, run.Skipped,
		run.Errors, string(samples), run.Message, run.ID,
	)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, models.ErrRunFinalized
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]models.ImportRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM import_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		runlog.ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []models.ImportRun{}
	for rows.Next() {
		run, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRun(row rowScanner) (*models.ImportRun, error) {
	var (
		r       models.ImportRun
		params  sql.NullString
		samples string
	)
	err := row.Scan(
		&r.ID, &r.Source, &r.Scope, &r.Region, &r.Market, &params, &r.Status, &r.StartedAt, &r.FinishedAt,
		&r.Scanned, &r.Created, &r.Skipped, &r.Errors, &samples, &r.Message,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeRunJSON(&r, []byte(params.String), []byte(samples)); err != nil {
		return nil, err
	}
	return &r, nil
}

func nullText(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
