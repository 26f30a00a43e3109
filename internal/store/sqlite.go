package store

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/RobertM05/car-sniper/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS ads (
	id         TEXT PRIMARY KEY,
	source     TEXT,
	title      TEXT,
	price      INTEGER,
	currency   TEXT NOT NULL DEFAULT 'EUR',
	link       TEXT UNIQUE,
	image      TEXT,
	make       TEXT,
	model      TEXT,
	year       INTEGER,
	km         INTEGER,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	last_seen  DATETIME NOT NULL DEFAULT (datetime('now')),
	active     INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS car_models (
	make         TEXT NOT NULL,
	model        TEXT NOT NULL,
	generation   TEXT NOT NULL DEFAULT '',
	min_year     INTEGER,
	max_year     INTEGER,
	body_type    TEXT,
	variants     TEXT,
	engine_types TEXT,
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (make, model, generation)
);

CREATE TABLE IF NOT EXISTS search_stats (
	make          TEXT NOT NULL,
	model         TEXT NOT NULL,
	search_count  INTEGER NOT NULL DEFAULT 0,
	avg_price     REAL,
	avg_year      REAL,
	avg_km        REAL,
	last_searched DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (make, model)
);

CREATE TABLE IF NOT EXISTS alerts (
	id           TEXT PRIMARY KEY,
	email        TEXT NOT NULL,
	make         TEXT NOT NULL,
	model        TEXT NOT NULL,
	max_price    INTEGER,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	last_checked DATETIME
);

CREATE INDEX IF NOT EXISTS idx_ads_make_model ON ads(make, model);
CREATE INDEX IF NOT EXISTS idx_ads_price ON ads(price);
CREATE INDEX IF NOT EXISTS idx_ads_last_seen ON ads(last_seen);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AdID derives the stable ad identity used when a listing carries none of
// its own: the hex md5 of the canonical link.
func AdID(link string) string {
	sum := md5.Sum([]byte(link))
	return hex.EncodeToString(sum[:])
}

// UpsertAd inserts the ad or, on a link conflict, refreshes price,
// last_seen and active while keeping the old image if the new one is empty.
func (s *SQLiteStore) UpsertAd(ctx context.Context, ad model.StoredAd) (string, error) {
	id := ad.ID
	if id == "" {
		id = AdID(ad.Link)
	}
	currency := ad.Currency
	if currency == "" {
		currency = "EUR"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ads (id, source, title, price, currency, link, image, make, model, year, km, last_seen, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'), 1)
		ON CONFLICT(link) DO UPDATE SET
			price     = excluded.price,
			last_seen = datetime('now'),
			active    = 1,
			image     = CASE WHEN excluded.image != '' THEN excluded.image ELSE ads.image END`,
		id, ad.Source, ad.Title, ad.Price, currency, ad.Link, ad.Image,
		strings.ToLower(ad.Make), strings.ToLower(ad.Model), nullInt(ad.Year), nullInt(ad.KM),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: upsert ad")
	}
	return id, nil
}

func (s *SQLiteStore) DeleteAd(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM ads WHERE id = ?`, id)
	return eris.Wrapf(err, "sqlite: delete ad %s", id)
}

func (s *SQLiteStore) DeleteAdByLink(ctx context.Context, link string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM ads WHERE link = ?`, link)
	return eris.Wrap(err, "sqlite: delete ad by link")
}

func (s *SQLiteStore) SearchAds(ctx context.Context, filter AdFilter) ([]model.StoredAd, error) {
	query := `SELECT id, source, title, price, currency, link, image, make, model, year, km, created_at, last_seen, active
		FROM ads WHERE active = 1`
	var args []any

	if filter.Make != "" {
		query += ` AND make LIKE ?`
		args = append(args, "%"+strings.ToLower(filter.Make)+"%")
	}
	if filter.Model != "" {
		query += ` AND (model LIKE ? OR title LIKE ?)`
		pat := "%" + strings.ToLower(filter.Model) + "%"
		args = append(args, pat, pat)
	}
	if filter.MinPrice > 0 {
		query += ` AND price >= ?`
		args = append(args, filter.MinPrice)
	}
	if filter.MaxPrice > 0 {
		query += ` AND price <= ?`
		args = append(args, filter.MaxPrice)
	}
	if filter.MinYear > 0 {
		query += ` AND year >= ?`
		args = append(args, filter.MinYear)
	}
	if filter.MaxYear > 0 {
		query += ` AND year <= ?`
		args = append(args, filter.MaxYear)
	}
	if filter.MaxKM > 0 {
		query += ` AND km <= ?`
		args = append(args, filter.MaxKM)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: search ads")
	}
	defer rows.Close()

	var ads []model.StoredAd
	for rows.Next() {
		var ad model.StoredAd
		var image sql.NullString
		var year, km sql.NullInt64
		if err := rows.Scan(&ad.ID, &ad.Source, &ad.Title, &ad.Price, &ad.Currency, &ad.Link,
			&image, &ad.Make, &ad.Model, &year, &km, &ad.CreatedAt, &ad.LastSeen, &ad.Active); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan ad")
		}
		ad.Image = image.String
		ad.Year = int(year.Int64)
		ad.KM = int(km.Int64)
		ads = append(ads, ad)
	}
	return ads, eris.Wrap(rows.Err(), "sqlite: search ads iterate")
}

func (s *SQLiteStore) DeactivateStaleAds(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.ExecContext(ctx,
		`UPDATE ads SET active = 0 WHERE last_seen < ? AND active = 1`,
		cutoff.Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: deactivate stale ads")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) UpsertCatalogEntry(ctx context.Context, entry model.CatalogEntry) error {
	variants, err := json.Marshal(entry.Variants)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal variants")
	}
	engines, err := json.Marshal(entry.EngineTypes)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal engine types")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO car_models (make, model, generation, min_year, max_year, body_type, variants, engine_types, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(make, model, generation) DO UPDATE SET
			min_year     = excluded.min_year,
			max_year     = excluded.max_year,
			body_type    = excluded.body_type,
			variants     = excluded.variants,
			engine_types = excluded.engine_types,
			updated_at   = datetime('now')`,
		strings.ToLower(entry.Make), strings.ToLower(entry.Model), strings.ToUpper(entry.Generation),
		nullInt(entry.MinYear), nullInt(entry.MaxYear), entry.BodyType, string(variants), string(engines),
	)
	return eris.Wrap(err, "sqlite: upsert catalog entry")
}

func (s *SQLiteStore) GetCatalogEntry(ctx context.Context, makeName, modelName string) (*model.CatalogEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT make, model, generation, min_year, max_year, body_type, variants, engine_types
		FROM car_models WHERE make = ? AND model = ? AND generation = ''`,
		strings.ToLower(makeName), strings.ToLower(modelName),
	)
	return scanCatalogEntry(row)
}

func (s *SQLiteStore) ListGenerations(ctx context.Context, makeName, modelName string) ([]model.Generation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT generation, min_year, max_year, body_type, engine_types
		FROM car_models WHERE make = ? AND model = ? AND generation != ''
		ORDER BY min_year ASC`,
		strings.ToLower(makeName), strings.ToLower(modelName),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list generations")
	}
	defer rows.Close()

	var gens []model.Generation
	for rows.Next() {
		var g model.Generation
		var minY, maxY sql.NullInt64
		var bodyType, engines sql.NullString
		if err := rows.Scan(&g.Code, &minY, &maxY, &bodyType, &engines); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan generation")
		}
		g.MinYear = int(minY.Int64)
		g.MaxYear = int(maxY.Int64)
		g.BodyType = bodyType.String
		if engines.String != "" {
			if err := json.Unmarshal([]byte(engines.String), &g.EngineTypes); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal engine types")
			}
		}
		gens = append(gens, g)
	}
	return gens, eris.Wrap(rows.Err(), "sqlite: list generations iterate")
}

func (s *SQLiteStore) ListBrands(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT make FROM car_models ORDER BY make ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list brands")
	}
	defer rows.Close()

	var brands []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan brand")
		}
		brands = append(brands, b)
	}
	return brands, eris.Wrap(rows.Err(), "sqlite: list brands iterate")
}

func (s *SQLiteStore) ListModels(ctx context.Context, makeName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT model FROM car_models WHERE make = ? ORDER BY model ASC`,
		strings.ToLower(makeName),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list models")
	}
	defer rows.Close()

	var models []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan model")
		}
		models = append(models, m)
	}
	return models, eris.Wrap(rows.Err(), "sqlite: list models iterate")
}

// RecordSearch bumps search_count and replaces the rolling averages in a
// single statement, so concurrent updates to the same key stay atomic.
func (s *SQLiteStore) RecordSearch(ctx context.Context, makeName, modelName string, avgPrice, avgYear, avgKM float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO search_stats (make, model, search_count, avg_price, avg_year, avg_km, last_searched)
		VALUES (?, ?, 1, ?, ?, ?, datetime('now'))
		ON CONFLICT(make, model) DO UPDATE SET
			search_count  = search_stats.search_count + 1,
			avg_price     = excluded.avg_price,
			avg_year      = excluded.avg_year,
			avg_km        = excluded.avg_km,
			last_searched = datetime('now')`,
		strings.ToLower(makeName), strings.ToLower(modelName),
		nullFloat(avgPrice), nullFloat(avgYear), nullFloat(avgKM),
	)
	return eris.Wrap(err, "sqlite: record search")
}

func (s *SQLiteStore) GetStats(ctx context.Context, makeName, modelName string) (*model.StatsRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT make, model, search_count, avg_price, avg_year, avg_km, last_searched
		FROM search_stats WHERE make = ? AND model = ?`,
		strings.ToLower(makeName), strings.ToLower(modelName),
	)
	rec, err := scanStats(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get stats")
	}
	return rec, nil
}

func (s *SQLiteStore) PopularModels(ctx context.Context, makeName string, limit int) ([]model.StatsRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT make, model, search_count, avg_price, avg_year, avg_km, last_searched FROM search_stats`
	var args []any
	if makeName != "" {
		query += ` WHERE make = ?`
		args = append(args, strings.ToLower(makeName))
	}
	query += ` ORDER BY search_count DESC, last_searched DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: popular models")
	}
	defer rows.Close()

	var recs []model.StatsRecord
	for rows.Next() {
		rec, err := scanStats(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan stats")
		}
		recs = append(recs, *rec)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: popular models iterate")
}

func (s *SQLiteStore) CreateAlert(ctx context.Context, email, makeName, modelName string, maxPrice int) (*model.Alert, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, email, make, model, max_price, created_at, last_checked)
		VALUES (?, ?, ?, ?, ?, ?, NULL)`,
		id, email, strings.ToLower(makeName), strings.ToLower(modelName), maxPrice, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create alert")
	}
	return &model.Alert{
		ID:        id,
		Email:     email,
		Make:      strings.ToLower(makeName),
		Model:     strings.ToLower(modelName),
		MaxPrice:  maxPrice,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) ListAlerts(ctx context.Context) ([]model.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, make, model, max_price, created_at, last_checked FROM alerts ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list alerts")
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		var a model.Alert
		var lastChecked sql.NullTime
		if err := rows.Scan(&a.ID, &a.Email, &a.Make, &a.Model, &a.MaxPrice, &a.CreatedAt, &lastChecked); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan alert")
		}
		a.LastChecked = lastChecked.Time
		alerts = append(alerts, a)
	}
	return alerts, eris.Wrap(rows.Err(), "sqlite: list alerts iterate")
}

func (s *SQLiteStore) TouchAlert(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET last_checked = datetime('now') WHERE id = ?`, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: touch alert %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("alert not found: %s", id)
	}
	return nil
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanCatalogEntry(row scannable) (*model.CatalogEntry, error) {
	var e model.CatalogEntry
	var minY, maxY sql.NullInt64
	var bodyType, variants, engines sql.NullString

	err := row.Scan(&e.Make, &e.Model, &e.Generation, &minY, &maxY, &bodyType, &variants, &engines)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan catalog entry")
	}

	e.MinYear = int(minY.Int64)
	e.MaxYear = int(maxY.Int64)
	e.BodyType = bodyType.String
	if variants.String != "" {
		if err := json.Unmarshal([]byte(variants.String), &e.Variants); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal variants")
		}
	}
	if engines.String != "" {
		if err := json.Unmarshal([]byte(engines.String), &e.EngineTypes); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal engine types")
		}
	}
	return &e, nil
}

func scanStats(row scannable) (*model.StatsRecord, error) {
	var rec model.StatsRecord
	var price, year, km sql.NullFloat64
	if err := row.Scan(&rec.Make, &rec.Model, &rec.SearchCount, &price, &year, &km, &rec.LastSearched); err != nil {
		return nil, err
	}
	rec.AvgPrice = price.Float64
	rec.AvgYear = year.Float64
	rec.AvgKM = km.Float64
	return &rec, nil
}

func nullInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullFloat(v float64) any {
	if v == 0 {
		return nil
	}
	return v
}
