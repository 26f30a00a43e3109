package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/RobertM05/car-sniper/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
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
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_seen  TIMESTAMPTZ NOT NULL DEFAULT now(),
	active     BOOLEAN NOT NULL DEFAULT true
);

CREATE TABLE IF NOT EXISTS car_models (
	make         TEXT NOT NULL,
	model        TEXT NOT NULL,
	generation   TEXT NOT NULL DEFAULT '',
	min_year     INTEGER,
	max_year     INTEGER,
	body_type    TEXT,
	variants     JSONB,
	engine_types JSONB,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (make, model, generation)
);

CREATE TABLE IF NOT EXISTS search_stats (
	make          TEXT NOT NULL,
	model         TEXT NOT NULL,
	search_count  INTEGER NOT NULL DEFAULT 0,
	avg_price     DOUBLE PRECISION,
	avg_year      DOUBLE PRECISION,
	avg_km        DOUBLE PRECISION,
	last_searched TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (make, model)
);

CREATE TABLE IF NOT EXISTS alerts (
	id           TEXT PRIMARY KEY,
	email        TEXT NOT NULL,
	make         TEXT NOT NULL,
	model        TEXT NOT NULL,
	max_price    INTEGER,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_checked TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_ads_make_model ON ads(make, model);
CREATE INDEX IF NOT EXISTS idx_ads_price ON ads(price);
CREATE INDEX IF NOT EXISTS idx_ads_last_seen ON ads(last_seen);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UpsertAd(ctx context.Context, ad model.StoredAd) (string, error) {
	id := ad.ID
	if id == "" {
		id = AdID(ad.Link)
	}
	currency := ad.Currency
	if currency == "" {
		currency = "EUR"
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO ads (id, source, title, price, currency, link, image, make, model, year, km, last_seen, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), true)
		ON CONFLICT (link) DO UPDATE SET
			price     = EXCLUDED.price,
			last_seen = now(),
			active    = true,
			image     = CASE WHEN EXCLUDED.image != '' THEN EXCLUDED.image ELSE ads.image END`,
		id, ad.Source, ad.Title, ad.Price, currency, ad.Link, ad.Image,
		strings.ToLower(ad.Make), strings.ToLower(ad.Model), nullInt(ad.Year), nullInt(ad.KM),
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: upsert ad")
	}
	return id, nil
}

func (s *PostgresStore) DeleteAd(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM ads WHERE id = $1`, id)
	return eris.Wrapf(err, "postgres: delete ad %s", id)
}

func (s *PostgresStore) DeleteAdByLink(ctx context.Context, link string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM ads WHERE link = $1`, link)
	return eris.Wrap(err, "postgres: delete ad by link")
}

func (s *PostgresStore) SearchAds(ctx context.Context, filter AdFilter) ([]model.StoredAd, error) {
	query := `SELECT id, source, title, price, currency, link, COALESCE(image, ''), make, model,
		COALESCE(year, 0), COALESCE(km, 0), created_at, last_seen, active
		FROM ads WHERE active = true`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Make != "" {
		query += ` AND make ILIKE ` + arg("%"+filter.Make+"%")
	}
	if filter.Model != "" {
		pat := "%" + filter.Model + "%"
		query += ` AND (model ILIKE ` + arg(pat) + ` OR title ILIKE ` + arg(pat) + `)`
	}
	if filter.MinPrice > 0 {
		query += ` AND price >= ` + arg(filter.MinPrice)
	}
	if filter.MaxPrice > 0 {
		query += ` AND price <= ` + arg(filter.MaxPrice)
	}
	if filter.MinYear > 0 {
		query += ` AND year >= ` + arg(filter.MinYear)
	}
	if filter.MaxYear > 0 {
		query += ` AND year <= ` + arg(filter.MaxYear)
	}
	if filter.MaxKM > 0 {
		query += ` AND km <= ` + arg(filter.MaxKM)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` ORDER BY created_at DESC LIMIT ` + arg(limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search ads")
	}
	defer rows.Close()

	var ads []model.StoredAd
	for rows.Next() {
		var ad model.StoredAd
		if err := rows.Scan(&ad.ID, &ad.Source, &ad.Title, &ad.Price, &ad.Currency, &ad.Link,
			&ad.Image, &ad.Make, &ad.Model, &ad.Year, &ad.KM, &ad.CreatedAt, &ad.LastSeen, &ad.Active); err != nil {
			return nil, eris.Wrap(err, "postgres: scan ad")
		}
		ads = append(ads, ad)
	}
	return ads, eris.Wrap(rows.Err(), "postgres: search ads iterate")
}

func (s *PostgresStore) DeactivateStaleAds(ctx context.Context, olderThan time.Duration) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE ads SET active = false WHERE last_seen < now() - $1::interval AND active = true`,
		olderThan.String(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: deactivate stale ads")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) UpsertCatalogEntry(ctx context.Context, entry model.CatalogEntry) error {
	variants, err := json.Marshal(entry.Variants)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal variants")
	}
	engines, err := json.Marshal(entry.EngineTypes)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal engine types")
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO car_models (make, model, generation, min_year, max_year, body_type, variants, engine_types, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (make, model, generation) DO UPDATE SET
			min_year     = EXCLUDED.min_year,
			max_year     = EXCLUDED.max_year,
			body_type    = EXCLUDED.body_type,
			variants     = EXCLUDED.variants,
			engine_types = EXCLUDED.engine_types,
			updated_at   = now()`,
		strings.ToLower(entry.Make), strings.ToLower(entry.Model), strings.ToUpper(entry.Generation),
		nullInt(entry.MinYear), nullInt(entry.MaxYear), entry.BodyType, string(variants), string(engines),
	)
	return eris.Wrap(err, "postgres: upsert catalog entry")
}

func (s *PostgresStore) GetCatalogEntry(ctx context.Context, makeName, modelName string) (*model.CatalogEntry, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT make, model, generation, COALESCE(min_year, 0), COALESCE(max_year, 0),
			COALESCE(body_type, ''), COALESCE(variants::text, ''), COALESCE(engine_types::text, '')
		FROM car_models WHERE make = $1 AND model = $2 AND generation = ''`,
		strings.ToLower(makeName), strings.ToLower(modelName),
	)

	var e model.CatalogEntry
	var variants, engines string
	err := row.Scan(&e.Make, &e.Model, &e.Generation, &e.MinYear, &e.MaxYear, &e.BodyType, &variants, &engines)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get catalog entry")
	}
	if variants != "" && variants != "null" {
		if err := json.Unmarshal([]byte(variants), &e.Variants); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal variants")
		}
	}
	if engines != "" && engines != "null" {
		if err := json.Unmarshal([]byte(engines), &e.EngineTypes); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal engine types")
		}
	}
	return &e, nil
}

func (s *PostgresStore) ListGenerations(ctx context.Context, makeName, modelName string) ([]model.Generation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT generation, COALESCE(min_year, 0), COALESCE(max_year, 0),
			COALESCE(body_type, ''), COALESCE(engine_types::text, '')
		FROM car_models WHERE make = $1 AND model = $2 AND generation != ''
		ORDER BY min_year ASC`,
		strings.ToLower(makeName), strings.ToLower(modelName),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list generations")
	}
	defer rows.Close()

	var gens []model.Generation
	for rows.Next() {
		var g model.Generation
		var engines string
		if err := rows.Scan(&g.Code, &g.MinYear, &g.MaxYear, &g.BodyType, &engines); err != nil {
			return nil, eris.Wrap(err, "postgres: scan generation")
		}
		if engines != "" && engines != "null" {
			if err := json.Unmarshal([]byte(engines), &g.EngineTypes); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal engine types")
			}
		}
		gens = append(gens, g)
	}
	return gens, eris.Wrap(rows.Err(), "postgres: list generations iterate")
}

func (s *PostgresStore) ListBrands(ctx context.Context) ([]string, error) {
	return s.listStrings(ctx, `SELECT DISTINCT make FROM car_models ORDER BY make ASC`)
}

func (s *PostgresStore) ListModels(ctx context.Context, makeName string) ([]string, error) {
	return s.listStrings(ctx,
		`SELECT DISTINCT model FROM car_models WHERE make = $1 ORDER BY model ASC`,
		strings.ToLower(makeName),
	)
}

func (s *PostgresStore) listStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, eris.Wrap(err, "postgres: scan")
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list iterate")
}

func (s *PostgresStore) RecordSearch(ctx context.Context, makeName, modelName string, avgPrice, avgYear, avgKM float64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO search_stats (make, model, search_count, avg_price, avg_year, avg_km, last_searched)
		VALUES ($1, $2, 1, $3, $4, $5, now())
		ON CONFLICT (make, model) DO UPDATE SET
			search_count  = search_stats.search_count + 1,
			avg_price     = EXCLUDED.avg_price,
			avg_year      = EXCLUDED.avg_year,
			avg_km        = EXCLUDED.avg_km,
			last_searched = now()`,
		strings.ToLower(makeName), strings.ToLower(modelName),
		nullFloat(avgPrice), nullFloat(avgYear), nullFloat(avgKM),
	)
	return eris.Wrap(err, "postgres: record search")
}

func (s *PostgresStore) GetStats(ctx context.Context, makeName, modelName string) (*model.StatsRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT make, model, search_count, COALESCE(avg_price, 0), COALESCE(avg_year, 0),
			COALESCE(avg_km, 0), last_searched
		FROM search_stats WHERE make = $1 AND model = $2`,
		strings.ToLower(makeName), strings.ToLower(modelName),
	)

	var rec model.StatsRecord
	err := row.Scan(&rec.Make, &rec.Model, &rec.SearchCount, &rec.AvgPrice, &rec.AvgYear, &rec.AvgKM, &rec.LastSearched)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get stats")
	}
	return &rec, nil
}

func (s *PostgresStore) PopularModels(ctx context.Context, makeName string, limit int) ([]model.StatsRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT make, model, search_count, COALESCE(avg_price, 0), COALESCE(avg_year, 0),
		COALESCE(avg_km, 0), last_searched FROM search_stats`
	var args []any
	if makeName != "" {
		query += ` WHERE make = $1 ORDER BY search_count DESC, last_searched DESC LIMIT $2`
		args = append(args, strings.ToLower(makeName), limit)
	} else {
		query += ` ORDER BY search_count DESC, last_searched DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: popular models")
	}
	defer rows.Close()

	var recs []model.StatsRecord
	for rows.Next() {
		var rec model.StatsRecord
		if err := rows.Scan(&rec.Make, &rec.Model, &rec.SearchCount, &rec.AvgPrice, &rec.AvgYear, &rec.AvgKM, &rec.LastSearched); err != nil {
			return nil, eris.Wrap(err, "postgres: scan stats")
		}
		recs = append(recs, rec)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: popular models iterate")
}

func (s *PostgresStore) CreateAlert(ctx context.Context, email, makeName, modelName string, maxPrice int) (*model.Alert, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO alerts (id, email, make, model, max_price, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, email, strings.ToLower(makeName), strings.ToLower(modelName), maxPrice, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create alert")
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

func (s *PostgresStore) ListAlerts(ctx context.Context) ([]model.Alert, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, email, make, model, max_price, created_at, COALESCE(last_checked, 'epoch'::timestamptz)
		FROM alerts ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list alerts")
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		var a model.Alert
		if err := rows.Scan(&a.ID, &a.Email, &a.Make, &a.Model, &a.MaxPrice, &a.CreatedAt, &a.LastChecked); err != nil {
			return nil, eris.Wrap(err, "postgres: scan alert")
		}
		alerts = append(alerts, a)
	}
	return alerts, eris.Wrap(rows.Err(), "postgres: list alerts iterate")
}

func (s *PostgresStore) TouchAlert(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE alerts SET last_checked = now() WHERE id = $1`, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: touch alert %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("alert not found: %s", id)
	}
	return nil
}
