package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VeeDuvv/adgraph/internal/knowledge"
	"github.com/VeeDuvv/adgraph/internal/models"
	"github.com/VeeDuvv/adgraph/internal/store"
)

func newTestServer(t *testing.T, authToken string) (*Server, *knowledge.Engine) {
	t.Helper()
	st, err := store.Open(store.Config{InMemory: true, Logger: slog.Default()})
	require.NoError(t, err)

	eng, err := knowledge.Open(context.Background(), st, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	return NewServer(eng, slog.Default(), authToken), eng
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func seedEntity(t *testing.T, eng *knowledge.Engine, name string, et models.EntityType) string {
	t.Helper()
	id, err := eng.AddEntity(context.Background(), &models.Entity{
		Name: name, Type: et, Description: "seeded " + name,
	})
	require.NoError(t, err)
	return id
}

func TestHealthzNoAuth(t *testing.T) {
	srv, _ := newTestServer(t, "secret")

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t, "secret")
	handler := srv.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/v1/stats", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEntityLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, "")
	handler := srv.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/v1/entities", map[string]any{
		"name":        "Holiday Push",
		"type":        "campaign",
		"description": "Q4 holiday campaign",
		"tags":        []string{"q4"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]string
	decodeBody(t, rec, &created)
	id := created["id"]
	require.NotEmpty(t, id)

	rec = doJSON(t, handler, http.MethodGet, "/v1/entities/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entity models.Entity
	decodeBody(t, rec, &entity)
	assert.Equal(t, "Holiday Push", entity.Name)

	rec = doJSON(t, handler, http.MethodPut, "/v1/entities/"+id, map[string]any{
		"name":        "Holiday Push 2026",
		"type":        "campaign",
		"description": "renamed",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodDelete, "/v1/entities/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/v1/entities/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddEntityValidationFailure(t *testing.T) {
	srv, _ := newTestServer(t, "")

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/entities", map[string]any{
		"name":        "x",
		"type":        "gadget",
		"description": "y",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Contains(t, body["error"], "validation")
}

func TestRelationshipEndpoints(t *testing.T) {
	srv, eng := newTestServer(t, "")
	handler := srv.Handler()

	campaign := seedEntity(t, eng, "Campaign", models.EntityTypeCampaign)
	brand := seedEntity(t, eng, "Brand", models.EntityTypeBrand)

	rec := doJSON(t, handler, http.MethodPost, "/v1/relationships", map[string]any{
		"source_id":     campaign,
		"target_id":     brand,
		"type":          "promotes",
		"weight":        0.9,
		"bidirectional": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]string
	decodeBody(t, rec, &created)
	id := created["id"]

	rec = doJSON(t, handler, http.MethodGet, "/v1/relationships/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rel models.Relationship
	decodeBody(t, rec, &rel)
	assert.Equal(t, models.RelationPromotes, rel.Type)

	// The derived reverse view.
	rec = doJSON(t, handler, http.MethodGet, "/v1/relationships/"+id+"?reverse=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &rel)
	assert.Equal(t, models.RelationPromotedBy, rel.Type)
	assert.Equal(t, brand, rel.SourceID)

	rec = doJSON(t, handler, http.MethodDelete, "/v1/relationships/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/v1/relationships/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddRelationshipUnknownEndpointIsBadRequest(t *testing.T) {
	srv, eng := newTestServer(t, "")

	a := seedEntity(t, eng, "A", models.EntityTypeConcept)
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/relationships", map[string]any{
		"source_id": a,
		"target_id": "ghost",
		"type":      "uses",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchPrecedence(t *testing.T) {
	srv, eng := newTestServer(t, "")
	handler := srv.Handler()

	seedEntity(t, eng, "Programmatic Display", models.EntityTypeChannel)
	seedEntity(t, eng, "CTV", models.EntityTypeChannel)

	rec := doJSON(t, handler, http.MethodPost, "/v1/search", map[string]any{"query": "programmatic"})
	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		Entities []*models.Entity `json:"entities"`
	}
	decodeBody(t, rec, &result)
	assert.Len(t, result.Entities, 1)

	rec = doJSON(t, handler, http.MethodPost, "/v1/search", map[string]any{"type": "channel"})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &result)
	assert.Len(t, result.Entities, 2)

	rec = doJSON(t, handler, http.MethodPost, "/v1/search", map[string]any{"type": "gadget"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/v1/search", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRelatedAndPaths(t *testing.T) {
	srv, eng := newTestServer(t, "")
	handler := srv.Handler()
	ctx := context.Background()

	campaign := seedEntity(t, eng, "Campaign", models.EntityTypeCampaign)
	brand := seedEntity(t, eng, "Brand", models.EntityTypeBrand)
	audience := seedEntity(t, eng, "Audience", models.EntityTypeAudience)

	_, err := eng.AddRelationship(ctx, &models.Relationship{
		SourceID: campaign, TargetID: brand, Type: models.RelationPromotes,
	})
	require.NoError(t, err)
	_, err = eng.AddRelationship(ctx, &models.Relationship{
		SourceID: brand, TargetID: audience, Type: models.RelationTargets,
	})
	require.NoError(t, err)

	rec := doJSON(t, handler, http.MethodGet, "/v1/entities/"+campaign+"/related?depth=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var related struct {
		Related map[string][]models.RelatedEntity `json:"related"`
	}
	decodeBody(t, rec, &related)
	assert.Len(t, related.Related["promotes"], 1)
	assert.Len(t, related.Related["targets"], 1)

	rec = doJSON(t, handler, http.MethodGet, "/v1/entities/"+campaign+"/related?types=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	path := fmt.Sprintf("/v1/paths?source=%s&target=%s&max_depth=3", campaign, audience)
	rec = doJSON(t, handler, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var paths struct {
		Paths []models.Path `json:"paths"`
	}
	decodeBody(t, rec, &paths)
	require.Len(t, paths.Paths, 1)
	assert.Len(t, paths.Paths[0], 2)

	rec = doJSON(t, handler, http.MethodGet, "/v1/paths?source="+campaign, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEntityRelationshipsDirectionFilter(t *testing.T) {
	srv, eng := newTestServer(t, "")
	handler := srv.Handler()
	ctx := context.Background()

	a := seedEntity(t, eng, "A", models.EntityTypeConcept)
	b := seedEntity(t, eng, "B", models.EntityTypeConcept)
	_, err := eng.AddRelationship(ctx, &models.Relationship{
		SourceID: a, TargetID: b, Type: models.RelationUses,
	})
	require.NoError(t, err)

	rec := doJSON(t, handler, http.MethodGet, "/v1/entities/"+a+"/relationships?direction=outgoing", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		Relationships []*models.Relationship `json:"relationships"`
	}
	decodeBody(t, rec, &result)
	assert.Len(t, result.Relationships, 1)

	rec = doJSON(t, handler, http.MethodGet, "/v1/entities/"+a+"/relationships?direction=incoming", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &result)
	assert.Empty(t, result.Relationships)

	rec = doJSON(t, handler, http.MethodGet, "/v1/entities/"+a+"/relationships?direction=sideways", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	srv, eng := newTestServer(t, "")

	seedEntity(t, eng, "A", models.EntityTypeConcept)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/v1/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats models.GraphStats
	decodeBody(t, rec, &stats)
	assert.Equal(t, 1, stats.EntityCount)
	assert.True(t, stats.StronglyConnected)
	assert.Equal(t, 0, stats.Diameter)
}
