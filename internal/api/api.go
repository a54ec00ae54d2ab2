package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/issuedesk/issuedesk/internal/auth"
	"github.com/issuedesk/issuedesk/internal/issues"
	"github.com/issuedesk/issuedesk/internal/llm"
	"github.com/issuedesk/issuedesk/internal/store"
)

// Server provides the REST API handlers. It maps the issue service's
// typed errors to HTTP status codes; all decision logic lives below it.
type Server struct {
	svc      *issues.Service
	store    store.Store
	resolver auth.Resolver
	llm      *llm.Client
}

// NewServer creates a new API server. The llmClient may be nil if no API
// key is configured.
func NewServer(svc *issues.Service, st store.Store, resolver auth.Resolver, llmClient *llm.Client) *Server {
	return &Server{
		svc:      svc,
		store:    st,
		resolver: resolver,
		llm:      llmClient,
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/issues", s.listIssues)
	mux.HandleFunc("POST /api/v1/issues", s.createIssue)
	mux.HandleFunc("GET /api/v1/issues/stats", s.issueStats)
	mux.HandleFunc("GET /api/v1/issues/{id}", s.getIssue)
	mux.HandleFunc("PUT /api/v1/issues/{id}", s.updateIssue)
	mux.HandleFunc("DELETE /api/v1/issues/{id}", s.deleteIssue)
	mux.HandleFunc("PATCH /api/v1/issues/{id}/assignee", s.assignIssue)
	mux.HandleFunc("POST /api/v1/issues/{id}/enrich", s.enrichIssue)

	mux.HandleFunc("GET /api/v1/users", s.listUsers)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-User-Email")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps the service error taxonomy to HTTP signaling.
// Validation errors include every violated field.
func writeServiceError(w http.ResponseWriter, err error) {
	kind := issues.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case issues.KindInvalidInput:
		status = http.StatusBadRequest
	case issues.KindUnauthorized:
		status = http.StatusUnauthorized
	case issues.KindForbidden:
		status = http.StatusForbidden
	case issues.KindNotFound:
		status = http.StatusNotFound
	case issues.KindStorage:
		slog.Error("storage failure", "error", err)
	}

	body := map[string]any{"error": err.Error()}
	if fields := issues.FieldsOf(err); len(fields) > 0 {
		body["fields"] = fields
	}
	writeJSON(w, status, body)
}

// caller resolves the request identity, falling back to anonymous when
// the resolver itself fails (the operation's policy decides the rest).
func (s *Server) caller(r *http.Request) auth.Caller {
	c, err := s.resolver.Resolve(r)
	if err != nil {
		slog.Warn("resolve caller", "error", err)
		return auth.Anonymous
	}
	return c
}

func issueID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid issue id: %s", r.PathValue("id"))
	}
	return id, nil
}

// --- Issues ---

func (s *Server) listIssues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	result, err := s.svc.List(r.Context(),
		issues.ListFilter{Status: q.Get("status")},
		issues.PageRequest{Page: page, Limit: limit},
	)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) createIssue(w http.ResponseWriter, r *http.Request) {
	var in issues.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	issue, err := s.svc.Create(r.Context(), s.caller(r), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, issue)
}

func (s *Server) getIssue(w http.ResponseWriter, r *http.Request) {
	id, err := issueID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	issue, err := s.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) updateIssue(w http.ResponseWriter, r *http.Request) {
	id, err := issueID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var in issues.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	issue, err := s.svc.Update(r.Context(), s.caller(r), id, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) deleteIssue(w http.ResponseWriter, r *http.Request) {
	id, err := issueID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.svc.Delete(r.Context(), s.caller(r), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) assignIssue(w http.ResponseWriter, r *http.Request) {
	id, err := issueID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var in issues.AssignInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	issue, err := s.svc.Assign(r.Context(), s.caller(r), id, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) issueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) enrichIssue(w http.ResponseWriter, r *http.Request) {
	if s.llm == nil {
		writeError(w, http.StatusServiceUnavailable, "LLM not configured (set ISSUEDESK_ANTHROPIC_API_KEY)")
		return
	}

	id, err := issueID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	issue, err := s.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	enriched, err := s.llm.EnrichIssue(r.Context(), issue.Title, issue.Description)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("LLM enrichment failed: %v", err))
		return
	}

	status := issue.Status
	updated, err := s.svc.Update(r.Context(), s.caller(r), id, issues.UpdateInput{
		Title:       issue.Title,
		Description: enriched.Description,
		Status:      &status,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// --- Users ---

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, users)
}
