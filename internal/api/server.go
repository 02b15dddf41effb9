package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/VeeDuvv/adgraph/internal/knowledge"
	"github.com/VeeDuvv/adgraph/internal/models"
	"github.com/VeeDuvv/adgraph/internal/store"
)

// Server is an HTTP API server that exposes the knowledge-graph engine.
type Server struct {
	engine    *knowledge.Engine
	logger    *slog.Logger
	authToken string // empty = no auth required
}

// NewServer creates a new Server with the given dependencies.
func NewServer(engine *knowledge.Engine, logger *slog.Logger, authToken string) *Server {
	return &Server{
		engine:    engine,
		logger:    logger,
		authToken: authToken,
	}
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check skips auth.
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("POST /v1/entities", s.auth(s.handleAddEntity))
	mux.HandleFunc("GET /v1/entities/{id}", s.auth(s.handleGetEntity))
	mux.HandleFunc("PUT /v1/entities/{id}", s.auth(s.handleUpdateEntity))
	mux.HandleFunc("DELETE /v1/entities/{id}", s.auth(s.handleDeleteEntity))
	mux.HandleFunc("GET /v1/entities/{id}/related", s.auth(s.handleRelated))
	mux.HandleFunc("GET /v1/entities/{id}/relationships", s.auth(s.handleEntityRelationships))

	mux.HandleFunc("POST /v1/relationships", s.auth(s.handleAddRelationship))
	mux.HandleFunc("GET /v1/relationships/{id}", s.auth(s.handleGetRelationship))
	mux.HandleFunc("DELETE /v1/relationships/{id}", s.auth(s.handleDeleteRelationship))

	mux.HandleFunc("POST /v1/search", s.auth(s.handleSearch))
	mux.HandleFunc("GET /v1/paths", s.auth(s.handlePaths))
	mux.HandleFunc("GET /v1/stats", s.auth(s.handleStats))

	return mux
}

// --- middleware ---

// auth wraps a handler with Bearer token authentication when authToken is set.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// --- handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// entityRequest is the body accepted by POST /v1/entities and PUT
// /v1/entities/{id}.
type entityRequest struct {
	Name        string            `json:"name"`
	Type        models.EntityType `json:"type"`
	Description string            `json:"description"`
	Details     string            `json:"details"`
	Tags        []string          `json:"tags"`
	Metadata    map[string]any    `json:"metadata"`
}

func (s *Server) handleAddEntity(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req entityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entity := &models.Entity{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Details:     req.Details,
		Tags:        req.Tags,
		Metadata:    req.Metadata,
	}

	id, err := s.engine.AddEntity(r.Context(), entity)
	if err != nil {
		s.writeEngineError(w, "add entity", err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	entity, err := s.engine.GetEntity(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeEngineError(w, "get entity", err)
		return
	}
	if entity == nil {
		s.writeError(w, http.StatusNotFound, "entity not found")
		return
	}
	s.writeJSON(w, http.StatusOK, entity)
}

func (s *Server) handleUpdateEntity(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req entityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entity := &models.Entity{
		ID:          r.PathValue("id"),
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Details:     req.Details,
		Tags:        req.Tags,
		Metadata:    req.Metadata,
	}

	existed, err := s.engine.UpdateEntity(r.Context(), entity)
	if err != nil {
		s.writeEngineError(w, "update entity", err)
		return
	}
	if !existed {
		s.writeError(w, http.StatusNotFound, "entity not found")
		return
	}
	s.writeJSON(w, http.StatusOK, entity)
}

func (s *Server) handleDeleteEntity(w http.ResponseWriter, r *http.Request) {
	existed, err := s.engine.DeleteEntity(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeEngineError(w, "delete entity", err)
		return
	}
	if !existed {
		s.writeError(w, http.StatusNotFound, "entity not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	depth := queryInt(r, "depth", 1)

	var relTypes []models.RelationType
	if raw := r.URL.Query().Get("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			rt := models.RelationType(strings.TrimSpace(t))
			if !rt.IsValid() {
				s.writeError(w, http.StatusBadRequest, "unknown relation type: "+string(rt))
				return
			}
			relTypes = append(relTypes, rt)
		}
	}

	related := s.engine.GetRelatedEntities(id, relTypes, depth)
	s.writeJSON(w, http.StatusOK, map[string]any{"related": related})
}

func (s *Server) handleEntityRelationships(w http.ResponseWriter, r *http.Request) {
	dir := models.Direction(r.URL.Query().Get("direction"))
	if dir == "" {
		dir = models.DirectionBoth
	}

	rels, err := s.engine.ListRelationships(r.Context(), r.PathValue("id"), dir)
	if err != nil {
		s.writeEngineError(w, "list relationships", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"relationships": rels})
}

// relationshipRequest is the body accepted by POST /v1/relationships.
type relationshipRequest struct {
	SourceID      string              `json:"source_id"`
	TargetID      string              `json:"target_id"`
	Type          models.RelationType `json:"type"`
	Description   string              `json:"description"`
	Weight        float64             `json:"weight"`
	Metadata      map[string]any      `json:"metadata"`
	Bidirectional bool                `json:"bidirectional"`
}

func (s *Server) handleAddRelationship(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req relationshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rel := &models.Relationship{
		SourceID:      req.SourceID,
		TargetID:      req.TargetID,
		Type:          req.Type,
		Description:   req.Description,
		Weight:        req.Weight,
		Metadata:      req.Metadata,
		Bidirectional: req.Bidirectional,
	}

	id, err := s.engine.AddRelationship(r.Context(), rel)
	if err != nil {
		s.writeEngineError(w, "add relationship", err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleGetRelationship(w http.ResponseWriter, r *http.Request) {
	key := models.EdgeKey{
		PrimaryID: r.PathValue("id"),
		Reverse:   r.URL.Query().Get("reverse") == "true",
	}
	rel, err := s.engine.GetRelationship(r.Context(), key)
	if err != nil {
		s.writeEngineError(w, "get relationship", err)
		return
	}
	if rel == nil {
		s.writeError(w, http.StatusNotFound, "relationship not found")
		return
	}
	s.writeJSON(w, http.StatusOK, rel)
}

func (s *Server) handleDeleteRelationship(w http.ResponseWriter, r *http.Request) {
	key := models.EdgeKey{PrimaryID: r.PathValue("id")}
	existed, err := s.engine.DeleteRelationship(r.Context(), key)
	if err != nil {
		s.writeEngineError(w, "delete relationship", err)
		return
	}
	if !existed {
		s.writeError(w, http.StatusNotFound, "relationship not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// searchRequest is the body accepted by POST /v1/search. Exactly one of
// query, type, or tags is used, in that precedence.
type searchRequest struct {
	Query    string   `json:"query"`
	Type     string   `json:"type"`
	Tags     []string `json:"tags"`
	MatchAll bool     `json:"match_all"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		entities []*models.Entity
		err      error
	)
	switch {
	case req.Query != "":
		entities, err = s.engine.FindEntities(r.Context(), req.Query)
	case req.Type != "":
		entities, err = s.engine.FindEntitiesByType(r.Context(), models.EntityType(req.Type))
	case len(req.Tags) > 0:
		entities, err = s.engine.FindEntitiesByTags(r.Context(), req.Tags, req.MatchAll)
	default:
		s.writeError(w, http.StatusBadRequest, "one of query, type, or tags is required")
		return
	}
	if err != nil {
		s.writeEngineError(w, "search", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"entities": entities})
}

func (s *Server) handlePaths(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	target := r.URL.Query().Get("target")
	if source == "" || target == "" {
		s.writeError(w, http.StatusBadRequest, "source and target are required")
		return
	}
	maxDepth := queryInt(r, "max_depth", 3)

	paths := s.engine.FindPaths(source, target, maxDepth)
	if paths == nil {
		paths = []models.Path{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"paths": paths})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.GetStatistics())
}

// --- helpers ---

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// writeEngineError maps engine errors onto HTTP statuses: validation
// failures are the caller's fault, everything else is internal.
func (s *Server) writeEngineError(w http.ResponseWriter, op string, err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		s.writeError(w, http.StatusBadRequest, verr.Error())
		return
	}
	if errors.Is(err, store.ErrDerivedEdge) {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error("api: "+op, "error", err)
	s.writeError(w, http.StatusInternalServerError, "internal error")
}

// writeJSON encodes v as JSON and writes it to w with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(v); encErr != nil {
		s.logger.Error("failed to encode response", "error", encErr)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// Shutdown gracefully shuts down an http.Server with the given timeout.
// This is a convenience helper used by the serve command.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
