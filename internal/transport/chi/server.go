// Package chi exposes the recommendation pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/domain"
	"github.com/reelrank/reelrank/internal/usecase/health"
	"github.com/reelrank/reelrank/internal/usecase/ingest"
)

// ErrorCode identifies an API error class.
type ErrorCode string

const (
	// CodeBadRequest marks malformed or unauthorized requests.
	CodeBadRequest ErrorCode = "bad_request"
	// CodeValidationFailed marks structurally valid requests with bad content.
	CodeValidationFailed ErrorCode = "validation_failed"
	// CodeEmbeddingProviderError marks upstream embedding provider failures.
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	// CodeInternalError marks unclassified server failures.
	CodeInternalError ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// RecommendRequest is the POST /v1/recommend body.
type RecommendRequest struct {
	Query  string   `json:"query"`
	Genres []string `json:"genres,omitempty"`
	K      int      `json:"k,omitempty"`
}

// RecommendResult pairs a movie with its final pipeline score.
type RecommendResult struct {
	Movie *domain.Movie `json:"movie"`
	Score float64       `json:"score"`
}

// RecommendResponse is the POST /v1/recommend reply.
type RecommendResponse struct {
	Results []RecommendResult `json:"results"`
}

// AddMoviesRequest is the POST /v1/movies body.
type AddMoviesRequest struct {
	Movies []*domain.Movie `json:"movies"`
}

// HealthResponse is the GET /healthz reply.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Sizes  map[string]int    `json:"sizes"`
}

// Recommender runs the retrieval pipeline.
type Recommender interface {
	Recommend(ctx context.Context, query string, genres []string, k int) ([]domain.Candidate, error)
}

// Ingestor loads movie batches into the indexes.
type Ingestor interface {
	AddMovies(ctx context.Context, movies []*domain.Movie) (ingest.Result, error)
}

// HealthChecker reports component status.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// Server handles the reelrank HTTP API.
type Server struct {
	recommend    Recommender
	ingest       Ingestor
	health       HealthChecker
	logger       *zap.Logger
	maxTopK      int
	maxBatchSize int
}

// NewServer creates an HTTP API server.
func NewServer(recommend Recommender, ingest Ingestor, health HealthChecker, logger *zap.Logger) *Server {
	return &Server{
		recommend:    recommend,
		ingest:       ingest,
		health:       health,
		logger:       logger,
		maxTopK:      100,
		maxBatchSize: 500,
	}
}

// WithLimits overrides the request size caps.
func (s *Server) WithLimits(maxTopK, maxBatchSize int) *Server {
	if maxTopK > 0 {
		s.maxTopK = maxTopK
	}
	if maxBatchSize > 0 {
		s.maxBatchSize = maxBatchSize
	}
	return s
}

// RegisterRoutes mounts all API routes on the given router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/v1/recommend", s.Recommend)
	r.Post("/v1/movies", s.AddMovies)
	r.Get("/healthz", s.Healthz)
	r.Get("/metrics", s.Metrics)
}

// Recommend handles POST /v1/recommend.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Query == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "query is required")
		return
	}
	if req.K < 0 || req.K > s.maxTopK {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			"k must be between 0 and "+strconv.Itoa(s.maxTopK))
		return
	}

	cands, err := s.recommend.Recommend(r.Context(), req.Query, req.Genres, req.K)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	results := make([]RecommendResult, len(cands))
	for i, c := range cands {
		results[i] = RecommendResult{Movie: c.Movie, Score: c.Score}
	}
	writeJSON(w, http.StatusOK, RecommendResponse{Results: results})
}

// AddMovies handles POST /v1/movies.
func (s *Server) AddMovies(w http.ResponseWriter, r *http.Request) {
	var req AddMoviesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Movies) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "movies is required")
		return
	}
	if len(req.Movies) > s.maxBatchSize {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			"batch exceeds maximum size "+strconv.Itoa(s.maxBatchSize))
		return
	}

	res, err := s.ingest.AddMovies(r.Context(), req.Movies)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// Healthz handles GET /healthz. Degraded components yield 503 so load
// balancers stop routing, while the body still names the failing checks.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for name, res := range report.Checks {
		checks[name] = string(res)
	}

	status := http.StatusOK
	if report.Status != health.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
		Sizes:  report.Sizes,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	switch {
	case errors.Is(err, domain.ErrInvalidMovie):
		writeError(w, http.StatusBadRequest, CodeValidationFailed, domain.ErrInvalidMovie.Error())
	case errors.Is(err, domain.ErrVectorDimMismatch):
		writeError(w, http.StatusBadRequest, CodeValidationFailed, domain.ErrVectorDimMismatch.Error())
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		writeError(w, http.StatusBadGateway, CodeEmbeddingProviderError, domain.ErrEmbeddingProviderError.Error())
	default:
		s.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
