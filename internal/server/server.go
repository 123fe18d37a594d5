// Package server exposes the review surface over HTTP: the pending queue and
// the decision endpoint. The web client that renders syntheses and page
// images is external; this API is its only contract with the pipeline.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/item-teatro/comedia-cli/internal/model"
	"github.com/item-teatro/comedia-cli/internal/queue"
	"github.com/item-teatro/comedia-cli/internal/store"
)

// Server serves the validation queue to the review client.
type Server struct {
	snapshot *queue.Snapshot
	store    store.Store
	now      func() time.Time
}

// New builds a review server over a loaded snapshot and the store holding
// decisions.
func New(snap *queue.Snapshot, st store.Store) *Server {
	return &Server{snapshot: snap, store: st, now: time.Now}
}

// Router assembles the chi router with CORS for the external review client.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/api/queue", s.handleQueue)
	r.Get("/api/conflicts", s.handleConflicts)
	r.Post("/api/decisions", s.handleDecide)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	f := queue.Filter{
		Source:        model.Source(r.URL.Query().Get("source")),
		MinConfidence: model.Confidence(r.URL.Query().Get("confidence")),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		f.Limit = limit
	}

	decided, err := s.store.LatestDecisions(r.Context())
	if err != nil {
		zap.L().Error("list decisions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	verdicts := make(map[string]model.Verdict, len(decided))
	for id, d := range decided {
		verdicts[id] = d.Verdict
	}

	pending := s.snapshot.ListPending(verdicts, f)
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(pending),
		"pending": pending,
	})
}

func (s *Server) handleConflicts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(s.snapshot.Conflicts),
		"conflicts": s.snapshot.Conflicts,
	})
}

type decideRequest struct {
	CandidateID string `json:"candidate_id"`
	Verdict     string `json:"verdict"`
	Reviewer    string `json:"reviewer"`
	Comment     string `json:"comment,omitempty"`
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	verdict := model.Verdict(req.Verdict)
	if verdict != model.VerdictAccepted && verdict != model.VerdictRejected {
		writeError(w, http.StatusBadRequest, "verdict must be accepted or rejected")
		return
	}
	if req.Reviewer == "" {
		writeError(w, http.StatusBadRequest, "reviewer is required")
		return
	}
	if _, ok := s.snapshot.Candidate(req.CandidateID); !ok {
		writeError(w, http.StatusNotFound, "unknown candidate id")
		return
	}

	decision := model.Decision{
		CandidateID: req.CandidateID,
		Verdict:     verdict,
		Reviewer:    req.Reviewer,
		Comment:     req.Comment,
		DecidedAt:   s.now().UTC(),
	}

	history, err := s.store.DecisionHistory(r.Context(), req.CandidateID)
	if err != nil {
		zap.L().Error("decision history failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	var prev *model.Decision
	if len(history) > 0 {
		prev = &history[len(history)-1]
	}
	if !decision.Supersedes(prev) {
		// Idempotent re-decision.
		writeJSON(w, http.StatusOK, prev)
		return
	}

	if err := s.store.AppendDecision(r.Context(), decision); err != nil {
		zap.L().Error("append decision failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	zap.L().Info("decision recorded",
		zap.String("candidate_id", req.CandidateID),
		zap.String("verdict", string(verdict)),
		zap.String("reviewer", req.Reviewer))
	writeJSON(w, http.StatusCreated, decision)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
