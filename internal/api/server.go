// Package api exposes the search pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/RobertM05/car-sniper/internal/catalog"
	"github.com/RobertM05/car-sniper/internal/model"
	"github.com/RobertM05/car-sniper/internal/store"
)

// brandEntry pairs a stored lowercase id with its display name.
type brandEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Searcher is the slice of the search service the API needs.
type Searcher interface {
	Search(ctx context.Context, q model.SearchQuery) ([]model.CanonicalListing, error)
}

// Server handles the HTTP API.
type Server struct {
	searcher Searcher
	store    store.Store
}

// NewServer creates a Server.
func NewServer(searcher Searcher, st store.Store) *Server {
	return &Server{searcher: searcher, store: st}
}

// Router builds the chi router with CORS for the given origins.
func (s *Server) Router(corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Get("/brands", s.handleBrands)
		r.Get("/models/{make}", s.handleModels)
		r.Get("/generations/{make}/{model}", s.handleGenerations)
		r.Get("/stats/{make}/{model}", s.handleStats)
		r.Get("/popular/{make}", s.handlePopular)
		r.Get("/ads", s.handleAds)
		r.Post("/alert", s.handleCreateAlert)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := queryFromRequest(r)
	if q.Make == "" {
		writeError(w, http.StatusBadRequest, "make is required")
		return
	}

	results, err := s.searcher.Search(r.Context(), q)
	if err != nil {
		zap.L().Error("api: search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := s.store.ListBrands(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list brands failed")
		return
	}
	out := make([]brandEntry, 0, len(brands))
	for _, b := range brands {
		out = append(out, brandEntry{ID: b, Name: catalog.DisplayBrand(b)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.store.ListModels(r.Context(), chi.URLParam(r, "make"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list models failed")
		return
	}
	out := make([]brandEntry, 0, len(models))
	for _, m := range models {
		out = append(out, brandEntry{ID: m, Name: catalog.DisplayModel(m)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGenerations(w http.ResponseWriter, r *http.Request) {
	gens, err := s.store.ListGenerations(r.Context(), chi.URLParam(r, "make"), chi.URLParam(r, "model"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list generations failed")
		return
	}
	writeJSON(w, http.StatusOK, gens)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetStats(r.Context(), chi.URLParam(r, "make"), chi.URLParam(r, "model"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get stats failed")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "no stats recorded")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handlePopular(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r, "limit", 10)
	recs, err := s.store.PopularModels(r.Context(), chi.URLParam(r, "make"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "popular models failed")
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleAds(w http.ResponseWriter, r *http.Request) {
	filter := store.AdFilter{
		Make:     r.URL.Query().Get("make"),
		Model:    r.URL.Query().Get("model"),
		MinPrice: intParam(r, "min_price", 0),
		MaxPrice: intParam(r, "max_price", 0),
		MinYear:  intParam(r, "min_year", 0),
		MaxYear:  intParam(r, "max_year", 0),
		MaxKM:    intParam(r, "max_km", 0),
		Limit:    intParam(r, "limit", 100),
	}
	ads, err := s.store.SearchAds(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "search ads failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(ads), "ads": ads})
}

type createAlertRequest struct {
	Email    string `json:"email"`
	Make     string `json:"make"`
	Model    string `json:"model"`
	MaxPrice int    `json:"max_price"`
}

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var req createAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Make == "" {
		writeError(w, http.StatusBadRequest, "email and make are required")
		return
	}

	a, err := s.store.CreateAlert(r.Context(), req.Email, req.Make, req.Model, req.MaxPrice)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create alert failed")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func queryFromRequest(r *http.Request) model.SearchQuery {
	v := r.URL.Query()
	return model.SearchQuery{
		Make:       v.Get("make"),
		Model:      v.Get("model"),
		Generation: v.Get("generation"),
		MinPrice:   intParam(r, "min_price", 0),
		MaxPrice:   intParam(r, "max_price", 0),
		MinYear:    intParam(r, "min_year", 0),
		MaxYear:    intParam(r, "max_year", 0),
		MaxKM:      intParam(r, "max_km", 0),
		MinCC:      intParam(r, "min_cc", 0),
		MinHP:      intParam(r, "min_hp", 0),
		Limit:      intParam(r, "limit", 0),
		MaxPages:   intParam(r, "max_pages", 0),
		Site:       v.Get("site"),
		Sort:       model.SortKey(v.Get("sort")),
		Order:      model.SortOrder(v.Get("order")),
	}
}

func intParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
