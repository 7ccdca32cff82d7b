package main

import (
	"errors"
	"net/http"

	gojson "github.com/goccy/go-json"
	"github.com/hupe1980/grainvdb"
)

const (
	defaultSearchK = 5
	maxRequestBody = 4 << 20
)

// Consistency labels reported by /search.
const (
	consistencyHigh      = "HIGH"
	consistencyFractured = "FRACTURED"
)

type searchRequest struct {
	Vector []float32 `json:"vector"`
	K      int       `json:"k"`
}

type searchHit struct {
	ID    uint64  `json:"id"`
	Score float32 `json:"score"`
}

type searchResponse struct {
	Status        string      `json:"status"`
	Results       []searchHit `json:"results"`
	LatencyMillis float32     `json:"latency_ms"`
	Audit         float32     `json:"audit"`
	Consistency   string      `json:"consistency"`
}

type healthResponse struct {
	Status      string `json:"status"`
	Device      string `json:"device"`
	VectorCount int    `json:"vector_count"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// server exposes one Context over HTTP.
type server struct {
	c *grainvdb.Context
	// results whose audit score reaches consistencyMin are labelled HIGH
	consistencyMin float32
	logger         *grainvdb.Logger
}

func newServer(c *grainvdb.Context, consistencyMin float32, logger *grainvdb.Logger) *server {
	return &server{c: c, consistencyMin: consistencyMin, logger: logger}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := gojson.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if req.K == 0 {
		req.K = defaultSearchK
	}

	res, err := s.c.Resolve(r.Context(), req.Vector, req.K)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}

	score, err := s.c.Audit(r.Context(), res.Indices())
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}

	out := searchResponse{
		Status:        "success",
		Results:       make([]searchHit, len(res.Hits)),
		LatencyMillis: res.LatencyMillis(),
		Audit:         score,
		Consistency:   consistencyFractured,
	}
	for i, h := range res.Hits {
		out.Results[i] = searchHit{ID: h.Index, Score: h.Score}
	}
	if score >= s.consistencyMin {
		out.Consistency = consistencyHigh
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, healthResponse{
		Status:      "healthy",
		Device:      s.c.Device().String(),
		VectorCount: s.c.Len(),
	})
}

func statusFor(err error) int {
	var (
		dm *grainvdb.ErrDimensionMismatch
		ip *grainvdb.ErrInvalidProbe
	)
	switch {
	case errors.As(err, &dm), errors.As(err, &ip), errors.Is(err, grainvdb.ErrInvalidK):
		return http.StatusBadRequest
	case errors.Is(err, grainvdb.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	s.writeJSON(w, r, status, errorResponse{Status: "error", Message: err.Error()})
}

func (s *server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := gojson.Marshal(v)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "encode response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
