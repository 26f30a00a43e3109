package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobertM05/car-sniper/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgresUpsertAd(t *testing.T) {
	st, mock := newMockStore(t)

	ad := model.StoredAd{
		Source: model.SourceOLX, Title: "BMW 320d", Price: 18500,
		Link: "https://www.olx.ro/d/oferta/bmw-IDaa1.html", Image: "https://img/a.jpg",
		Make: "BMW", Model: "320d", Year: 2017, KM: 150000,
	}

	mock.ExpectExec(`INSERT INTO ads`).
		WithArgs(AdID(ad.Link), ad.Source, ad.Title, ad.Price, "EUR", ad.Link, ad.Image,
			"bmw", "320d", 2017, 150000).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := st.UpsertAd(context.Background(), ad)
	require.NoError(t, err)
	assert.Equal(t, AdID(ad.Link), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSearchAds(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Now()

	rows := pgxmock.NewRows([]string{
		"id", "source", "title", "price", "currency", "link", "image",
		"make", "model", "year", "km", "created_at", "last_seen", "active",
	}).AddRow("a1", "olx", "BMW 320d", 18500, "EUR", "https://x/1", "https://img/a.jpg",
		"bmw", "320d", 2017, 150000, now, now, true)

	mock.ExpectQuery(`SELECT id, source, title, price, currency, link`).
		WithArgs("%bmw%", 20000, 100).
		WillReturnRows(rows)

	ads, err := st.SearchAds(context.Background(), AdFilter{Make: "bmw", MaxPrice: 20000})
	require.NoError(t, err)
	require.Len(t, ads, 1)
	assert.Equal(t, "BMW 320d", ads[0].Title)
	assert.Equal(t, 2017, ads[0].Year)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeactivateStaleAds(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE ads SET active = false`).
		WithArgs("24h0m0s").
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	n, err := st.DeactivateStaleAds(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordSearch(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO search_stats`).
		WithArgs("bmw", "320d", 18500.0, 2016.5, 150000.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, st.RecordSearch(context.Background(), "BMW", "320d", 18500, 2016.5, 150000))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetStatsNoRows(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT make, model, search_count`).
		WithArgs("bmw", "x9").
		WillReturnRows(pgxmock.NewRows([]string{
			"make", "model", "search_count", "avg_price", "avg_year", "avg_km", "last_searched",
		}))

	rec, err := st.GetStats(context.Background(), "bmw", "x9")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetCatalogEntry(t *testing.T) {
	st, mock := newMockStore(t)

	rows := pgxmock.NewRows([]string{
		"make", "model", "generation", "min_year", "max_year", "body_type", "variants", "engine_types",
	}).AddRow("bmw", "seria-3", "", 2012, 2024, "sedan", `["320d","330d"]`, `["diesel"]`)

	mock.ExpectQuery(`SELECT make, model, generation`).
		WithArgs("bmw", "seria-3").
		WillReturnRows(rows)

	entry, err := st.GetCatalogEntry(context.Background(), "bmw", "seria-3")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, []string{"320d", "330d"}, entry.Variants)
	assert.Equal(t, []string{"diesel"}, entry.EngineTypes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTouchAlertNotFound(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE alerts SET last_checked`).
		WithArgs("nope").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.Error(t, st.TouchAlert(context.Background(), "nope"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
