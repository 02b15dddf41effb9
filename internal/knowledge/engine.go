// Package knowledge composes the durable store, the in-memory graph
// index, and the graph algorithms into the engine consumed by the CLI,
// the HTTP API, and the MCP server.
package knowledge

import (
	"context"
	"log/slog"

	"github.com/VeeDuvv/adgraph/internal/graph"
	"github.com/VeeDuvv/adgraph/internal/metrics"
	"github.com/VeeDuvv/adgraph/internal/models"
	"github.com/VeeDuvv/adgraph/internal/store"
)

// Engine is the collaborator-facing knowledge-graph engine. Every mutation
// writes the durable store and updates the graph index in the same logical
// step; queries run against the index only.
//
// The engine assumes a single writer. Reads may run concurrently with each
// other but never with a write; callers needing stronger guarantees must
// serialize externally.
type Engine struct {
	store  store.Store
	idx    *graph.Index
	graph  *graph.Engine
	logger *slog.Logger
}

// Open builds an Engine over the store, loading all entities and then all
// relationships into the graph index. Relationships with unresolvable
// endpoints are skipped and logged.
func Open(ctx context.Context, st store.Store, logger *slog.Logger) (*Engine, error) {
	idx := graph.NewIndex(logger)
	if err := idx.Build(ctx, st); err != nil {
		return nil, err
	}
	return &Engine{
		store:  st,
		idx:    idx,
		graph:  graph.NewEngine(idx, logger),
		logger: logger,
	}, nil
}

// Close releases the underlying store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Graph exposes the traversal engine for callers that tune its limits.
func (e *Engine) Graph() *graph.Engine {
	return e.graph
}

// --- entities ---

// AddEntity validates and stores the entity, then mirrors it into the
// graph index. Returns the (possibly generated) id.
func (e *Engine) AddEntity(ctx context.Context, entity *models.Entity) (string, error) {
	id, err := e.store.UpsertEntity(ctx, entity)
	if err != nil {
		return "", err
	}
	e.idx.PutEntity(entity)
	metrics.Inc(metrics.EntitiesUpserted)
	return id, nil
}

// GetEntity returns the entity or (nil, nil) when absent.
func (e *Engine) GetEntity(ctx context.Context, id string) (*models.Entity, error) {
	metrics.Inc(metrics.QueriesTotal)
	return e.store.GetEntity(ctx, id)
}

// GetEntityByName resolves a name case-insensitively.
func (e *Engine) GetEntityByName(ctx context.Context, name string) (*models.Entity, error) {
	metrics.Inc(metrics.QueriesTotal)
	return e.store.FindEntityByName(ctx, name)
}

// UpdateEntity overwrites an existing entity, preserving its creation
// timestamp. Returns false without writing when the id is unknown.
func (e *Engine) UpdateEntity(ctx context.Context, entity *models.Entity) (bool, error) {
	existing, err := e.store.GetEntity(ctx, entity.ID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}
	entity.CreatedAt = existing.CreatedAt
	if _, err := e.AddEntity(ctx, entity); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteEntity removes the entity and cascades over every relationship
// naming it, in either direction, before removing the record itself. The
// store performs the cascade atomically; the index is resynchronized in
// the same logical step so it never holds a dangling edge.
func (e *Engine) DeleteEntity(ctx context.Context, id string) (bool, error) {
	removed, existed, err := e.store.DeleteEntity(ctx, id)
	if err != nil {
		return false, err
	}
	if !existed {
		return false, nil
	}
	e.idx.RemoveEntity(id)
	metrics.Inc(metrics.EntitiesDeleted)
	metrics.Add(metrics.CascadedDeletes, int64(len(removed)))
	e.logger.Info("deleted entity", "id", id, "cascaded_relationships", len(removed))
	return true, nil
}

// ListEntityIDs returns all entity ids in unspecified order.
func (e *Engine) ListEntityIDs(ctx context.Context) ([]string, error) {
	return e.store.ListEntityIDs(ctx)
}

// FindEntities matches the query as a case-insensitive substring against
// names, descriptions, and tags. Unranked.
func (e *Engine) FindEntities(ctx context.Context, query string) ([]*models.Entity, error) {
	metrics.Inc(metrics.QueriesTotal)
	return e.store.SearchEntities(ctx, query)
}

// FindEntitiesByType returns all entities of the given type.
func (e *Engine) FindEntitiesByType(ctx context.Context, et models.EntityType) ([]*models.Entity, error) {
	if !et.IsValid() {
		return nil, &models.ValidationError{Field: "type", Reason: "unknown entity type " + string(et)}
	}
	metrics.Inc(metrics.QueriesTotal)
	return e.store.FindEntitiesByType(ctx, et)
}

// FindEntitiesByTags intersects the per-tag sets when matchAll is set,
// unions them otherwise.
func (e *Engine) FindEntitiesByTags(ctx context.Context, tags []string, matchAll bool) ([]*models.Entity, error) {
	metrics.Inc(metrics.QueriesTotal)
	return e.store.FindEntitiesByTags(ctx, tags, matchAll)
}

// --- relationships ---

// AddRelationship validates the relationship and checks both endpoints
// exist before persisting. Duplicate (source, type, target) triples are
// permitted; dedup is the caller's concern.
func (e *Engine) AddRelationship(ctx context.Context, rel *models.Relationship) (string, error) {
	if err := rel.Validate(); err != nil {
		return "", err
	}
	if !e.idx.HasEntity(rel.SourceID) {
		return "", &models.ValidationError{Field: "source_id", Reason: "unknown entity " + rel.SourceID}
	}
	if !e.idx.HasEntity(rel.TargetID) {
		return "", &models.ValidationError{Field: "target_id", Reason: "unknown entity " + rel.TargetID}
	}

	id, err := e.store.CreateRelationship(ctx, rel)
	if err != nil {
		return "", err
	}
	e.idx.AddRelationship(rel)
	metrics.Inc(metrics.RelationshipsCreated)
	return id, nil
}

// GetRelationship resolves an edge key. A reverse key returns the
// transposed view of its primary record; (nil, nil) when absent.
func (e *Engine) GetRelationship(ctx context.Context, key models.EdgeKey) (*models.Relationship, error) {
	metrics.Inc(metrics.QueriesTotal)
	return e.store.ResolveEdge(ctx, key)
}

// UpdateRelationship validates the relationship, checks both endpoints
// exist, and overwrites the primary record addressed by key. A reverse
// key is rejected: derived edges follow their primary and cannot be
// mutated directly.
func (e *Engine) UpdateRelationship(ctx context.Context, key models.EdgeKey, rel *models.Relationship) (bool, error) {
	if key.Reverse {
		return false, store.ErrDerivedEdge
	}
	if err := rel.Validate(); err != nil {
		return false, err
	}
	if !e.idx.HasEntity(rel.SourceID) {
		return false, &models.ValidationError{Field: "source_id", Reason: "unknown entity " + rel.SourceID}
	}
	if !e.idx.HasEntity(rel.TargetID) {
		return false, &models.ValidationError{Field: "target_id", Reason: "unknown entity " + rel.TargetID}
	}
	prev, err := e.store.GetRelationship(ctx, key.PrimaryID)
	if err != nil || prev == nil {
		return false, err
	}

	rel.ID = key.PrimaryID
	existed, err := e.store.UpdateRelationship(ctx, rel)
	if err != nil || !existed {
		return existed, err
	}
	e.idx.RemoveRelationship(prev)
	e.idx.AddRelationship(rel)
	return true, nil
}

// DeleteRelationship removes the primary record addressed by key together
// with its derived reverse edge in the index. A reverse key is rejected.
func (e *Engine) DeleteRelationship(ctx context.Context, key models.EdgeKey) (bool, error) {
	if key.Reverse {
		return false, store.ErrDerivedEdge
	}
	rel, err := e.store.GetRelationship(ctx, key.PrimaryID)
	if err != nil || rel == nil {
		return false, err
	}
	existed, err := e.store.DeleteRelationship(ctx, key.PrimaryID)
	if err != nil || !existed {
		return existed, err
	}
	e.idx.RemoveRelationship(rel)
	metrics.Inc(metrics.RelationshipsDeleted)
	return true, nil
}

// ListRelationships returns persisted relationships where the entity
// appears in the given direction. Derived reverse edges never appear.
func (e *Engine) ListRelationships(ctx context.Context, entityID string, dir models.Direction) ([]*models.Relationship, error) {
	metrics.Inc(metrics.QueriesTotal)
	return e.store.ListRelationshipsForEntity(ctx, entityID, dir)
}

// AllRelationships returns every persisted relationship.
func (e *Engine) AllRelationships(ctx context.Context) ([]*models.Relationship, error) {
	return e.store.ListRelationships(ctx)
}

// --- graph queries ---

// GetRelatedEntities expands the neighborhood of id up to depth hops,
// optionally filtered by relation types, grouped by relation type.
func (e *Engine) GetRelatedEntities(id string, relTypes []models.RelationType, depth int) map[models.RelationType][]models.RelatedEntity {
	metrics.Inc(metrics.QueriesTotal)
	return e.graph.Neighbors(id, relTypes, depth)
}

// FindPaths enumerates simple directed paths between two entities.
func (e *Engine) FindPaths(source, target string, maxDepth int) []models.Path {
	metrics.Inc(metrics.PathSearchesTotal)
	return e.graph.FindPaths(source, target, maxDepth)
}

// GetStatistics summarizes the graph. Never fails, including on an empty
// graph.
func (e *Engine) GetStatistics() models.GraphStats {
	metrics.Inc(metrics.QueriesTotal)
	return e.graph.Statistics()
}

// RebuildIndex regenerates the store's derived indexes from entity records
// and rebuilds the graph index from scratch. This is the recovery path
// after detected inconsistency.
func (e *Engine) RebuildIndex(ctx context.Context) error {
	if err := e.store.RebuildIndex(ctx); err != nil {
		return err
	}
	if err := e.idx.Build(ctx, e.store); err != nil {
		return err
	}
	metrics.Inc(metrics.IndexRebuilds)
	return nil
}
