package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/denisok6893-rgb/buybox-recommender/internal/convergence"
	"github.com/denisok6893-rgb/buybox-recommender/internal/domain"
	"github.com/denisok6893-rgb/buybox-recommender/internal/jobs"
	"github.com/denisok6893-rgb/buybox-recommender/internal/matching"
	"github.com/denisok6893-rgb/buybox-recommender/internal/metrics"
	"github.com/denisok6893-rgb/buybox-recommender/internal/storage"
	"github.com/denisok6893-rgb/buybox-recommender/internal/validation"
)

// maxBodyBytes bounds request bodies; candidate imports are the largest payloads.
const maxBodyBytes = 16 << 20

type Server struct {
	Engine      *matching.Engine
	Store       Store
	Weekly      *jobs.WeeklyRunner
	Convergence *jobs.ConvergenceRunner
	logger      zerolog.Logger
}

func NewServer(engine *matching.Engine, store Store, weekly *jobs.WeeklyRunner, conv *jobs.ConvergenceRunner, logger zerolog.Logger) *Server {
	return &Server{
		Engine:      engine,
		Store:       store,
		Weekly:      weekly,
		Convergence: conv,
		logger:      logger.With().Str("component", "http").Logger(),
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/recommendations", func(rr chi.Router) {
		rr.Post("/", s.handleRecommend)
		rr.Post("/weekly", s.handleWeekly)
	})

	r.Post("/candidates", s.handleImportCandidates)

	r.Post("/jobs/weekly", s.handleRunWeekly)

	r.Route("/users/{userID}", func(ur chi.Router) {
		ur.Post("/decisions", s.handleDecision)
		ur.Post("/convergence", s.handleConvergence)
		ur.Get("/markets", s.handleMarketStates)
		ur.Get("/markets/{marketKey}", s.handleGetMarket)
		ur.Put("/markets/{marketKey}", s.handlePutMarket)
		ur.Get("/markets/{marketKey}/latest", s.handleLatestBatch)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type RecommendRequest struct {
	Market     domain.MarketCriteria `json:"market"`
	Candidates []domain.Property     `json:"candidates"`
	Count      int                   `json:"count"`
}

// handleRecommend scores an explicit pool, or the stored listings for the market when
// the request carries no candidates field.
func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if v := r.URL.Query().Get("count"); v != "" {
		parsed, ok := parseCount(w, v)
		if !ok {
			return
		}
		req.Count = parsed
	}

	pool := req.Candidates
	if pool == nil && s.Store != nil && req.Market.MarketKey != "" {
		var err error
		if pool, err = s.Store.ListCandidates(r.Context(), req.Market); err != nil {
			s.writeError(w, err)
			return
		}
	}

	batch, err := s.Engine.SelectPropertiesForMarket(req.Market, pool, req.Count)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

type WeeklyRequest struct {
	Markets    []domain.MarketCriteria      `json:"markets"`
	Candidates map[string][]domain.Property `json:"candidates"`
	Count      int                          `json:"count"`
}

type WeeklyResponse struct {
	Batches []domain.RecommendationBatch `json:"batches"`
}

func (s *Server) handleWeekly(w http.ResponseWriter, r *http.Request) {
	var req WeeklyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	batches, err := s.Engine.GenerateWeeklyRecommendations(r.Context(), req.Markets, req.Candidates, req.Count)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, WeeklyResponse{Batches: batches})
}

func (s *Server) handleRunWeekly(w http.ResponseWriter, r *http.Request) {
	if s.Weekly == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "weekly_job_disabled"})
		return
	}
	count := 0
	if v := r.URL.Query().Get("count"); v != "" {
		parsed, ok := parseCount(w, v)
		if !ok {
			return
		}
		count = parsed
	}
	batches, err := s.Weekly.Run(r.Context(), r.URL.Query().Get("user_id"), count)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, WeeklyResponse{Batches: batches})
}

type ImportResponse struct {
	Imported int `json:"imported"`
	Total    int `json:"total"`
}

func (s *Server) handleImportCandidates(w http.ResponseWriter, r *http.Request) {
	var items []domain.Property
	if !decodeJSON(w, r, &items) {
		return
	}
	if err := s.Store.UpsertCandidates(r.Context(), items); err != nil {
		s.writeError(w, err)
		return
	}
	total, err := s.Store.CountCandidates(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ImportResponse{Imported: len(items), Total: total})
}

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	m, err := s.Store.GetMarket(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "marketKey"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handlePutMarket(w http.ResponseWriter, r *http.Request) {
	var m domain.MarketCriteria
	if !decodeJSON(w, r, &m) {
		return
	}
	m.UserID = chi.URLParam(r, "userID")
	m.MarketKey = chi.URLParam(r, "marketKey")
	if err := validation.ValidateStruct(m); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.Store.SaveMarket(r.Context(), m); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleLatestBatch(w http.ResponseWriter, r *http.Request) {
	b, err := s.Store.LatestBatch(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "marketKey"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type DecisionRequest struct {
	MarketKey  string           `json:"market_key"`
	PropertyID string           `json:"property_id"`
	Decision   domain.Decision  `json:"decision"`
	Snapshot   *domain.Property `json:"snapshot,omitempty"`
	DecidedAt  *time.Time       `json:"decided_at,omitempty"`
}

// handleDecision records a reaction. Without an explicit snapshot the stored
// candidate is copied as it looks right now.
func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	d := domain.UserDecision{
		UserID:     chi.URLParam(r, "userID"),
		MarketKey:  req.MarketKey,
		PropertyID: req.PropertyID,
		Decision:   req.Decision,
	}
	if req.DecidedAt != nil {
		d.DecidedAt = *req.DecidedAt
	}
	if err := validation.ValidateStruct(d); err != nil {
		s.writeError(w, err)
		return
	}

	if req.Snapshot != nil {
		d.Snapshot = *req.Snapshot
	} else {
		p, err := s.Store.GetCandidate(r.Context(), req.PropertyID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		d.Snapshot = p
	}

	saved, err := s.Store.AppendDecision(r.Context(), d)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleConvergence(w http.ResponseWriter, r *http.Request) {
	if s.Convergence == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "convergence_disabled"})
		return
	}
	res, err := s.Convergence.Run(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type MarketStatesResponse struct {
	UserID  string               `json:"user_id"`
	Markets []domain.MarketState `json:"markets"`
}

func (s *Server) handleMarketStates(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	states, err := s.Store.ListMarketStates(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MarketStatesResponse{UserID: userID, Markets: states})
}

// parseCount reads a count query parameter, answering 400 itself when it is not an integer.
func parseCount(w http.ResponseWriter, v string) (int, bool) {
	n, err := strconv.Atoi(v)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_count"})
		return 0, false
	}
	return n, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_json"})
		return false
	}
	return true
}

// writeError maps domain errors to status codes. Anything unrecognized is a 500 and
// gets logged.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation_failed", "fields": verr.Fields})
	case errors.Is(err, matching.ErrInvalidCount),
		errors.Is(err, storage.ErrMissingCandidateID),
		errors.Is(err, matching.ErrInvalidMarket),
		errors.Is(err, convergence.ErrMixedUsers),
		errors.Is(err, convergence.ErrInvalidDecision):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
