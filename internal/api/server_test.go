package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobertM05/car-sniper/internal/model"
	"github.com/RobertM05/car-sniper/internal/store"
)

type fakeSearcher struct {
	got     model.SearchQuery
	results []model.CanonicalListing
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, q model.SearchQuery) ([]model.CanonicalListing, error) {
	f.got = q
	return f.results, f.err
}

func testServer(t *testing.T, searcher *fakeSearcher) (*httptest.Server, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	srv := httptest.NewServer(NewServer(searcher, st).Router([]string{"*"}))
	t.Cleanup(srv.Close)
	return srv, st
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t, &fakeSearcher{})
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSearchEndpoint(t *testing.T) {
	searcher := &fakeSearcher{results: []model.CanonicalListing{
		{Title: "BMW 320d xDrive", Price: 18500, AdID: "gR4xz", Source: model.SourceOLX},
	}}
	srv, _ := testServer(t, searcher)

	resp, err := http.Get(srv.URL + "/api/search?make=bmw&model=320d&max_price=20000&sort=price&order=asc")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Count   int                      `json:"count"`
		Results []model.CanonicalListing `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, 18500, body.Results[0].Price)

	assert.Equal(t, "bmw", searcher.got.Make)
	assert.Equal(t, "320d", searcher.got.Model)
	assert.Equal(t, 20000, searcher.got.MaxPrice)
	assert.Equal(t, model.SortPrice, searcher.got.Sort)
}

func TestSearchEndpointRequiresMake(t *testing.T) {
	srv, _ := testServer(t, &fakeSearcher{})
	resp, err := http.Get(srv.URL + "/api/search?model=320d")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBrandsAndModels(t *testing.T) {
	srv, st := testServer(t, &fakeSearcher{})
	ctx := context.Background()
	require.NoError(t, st.UpsertCatalogEntry(ctx, model.CatalogEntry{Make: "bmw", Model: "seria-3", MinYear: 2012, MaxYear: 2024}))
	require.NoError(t, st.UpsertCatalogEntry(ctx, model.CatalogEntry{Make: "audi", Model: "a4", MinYear: 2008, MaxYear: 2024}))

	resp, err := http.Get(srv.URL + "/api/brands")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	var brands []brandEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&brands))
	assert.ElementsMatch(t, []brandEntry{
		{ID: "bmw", Name: "BMW"},
		{ID: "audi", Name: "Audi"},
	}, brands)

	resp2, err := http.Get(srv.URL + "/api/models/bmw")
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	var models []brandEntry
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&models))
	assert.Equal(t, []brandEntry{{ID: "seria-3", Name: "Seria 3"}}, models)
}

func TestStatsNotFound(t *testing.T) {
	srv, _ := testServer(t, &fakeSearcher{})
	resp, err := http.Get(srv.URL + "/api/stats/bmw/320d")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateAlert(t *testing.T) {
	srv, st := testServer(t, &fakeSearcher{})

	resp, err := http.Post(srv.URL+"/api/alert", "application/json",
		strings.NewReader(`{"email":"user@example.com","make":"bmw","model":"320d","max_price":20000}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created model.Alert
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "user@example.com", created.Email)

	alerts, err := st.ListAlerts(context.Background())
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestCreateAlertValidation(t *testing.T) {
	srv, _ := testServer(t, &fakeSearcher{})

	resp, err := http.Post(srv.URL+"/api/alert", "application/json",
		strings.NewReader(`{"model":"320d"}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdsEndpoint(t *testing.T) {
	srv, st := testServer(t, &fakeSearcher{})
	ctx := context.Background()
	_, err := st.UpsertAd(ctx, model.StoredAd{
		Source: model.SourceOLX, Title: "BMW 320d", Price: 18500, Currency: "EUR",
		Link: "https://www.olx.ro/d/oferta/bmw-IDaa1.html", Make: "bmw", Model: "320d", Year: 2017,
	})
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/api/ads?make=bmw&max_price=20000")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Count int              `json:"count"`
		Ads   []model.StoredAd `json:"ads"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "BMW 320d", body.Ads[0].Title)
}
