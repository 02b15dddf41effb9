// Package mirror pushes a snapshot of the knowledge graph into Neo4j so it
// can be explored with Bloom or Cypher. The mirror is write-only and
// one-shot: the local store stays the source of truth.
package mirror

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/VeeDuvv/adgraph/internal/knowledge"
)

// Mirror copies graph state into a Neo4j database.
type Mirror struct {
	client   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// New connects to Neo4j with the given credentials. The connection is
// verified eagerly so configuration mistakes surface before any push.
func New(ctx context.Context, uri, username, password, database string, logger *slog.Logger) (*Mirror, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if database == "" {
		database = "neo4j"
	}

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("verifying neo4j connectivity: %w", err)
	}

	return &Mirror{client: driver, database: database, logger: logger}, nil
}

// Close releases the underlying driver.
func (m *Mirror) Close(ctx context.Context) error {
	return m.client.Close(ctx)
}

// Push mirrors every entity and relationship into Neo4j. MERGE keys on the
// entity and relationship IDs, so repeated pushes update in place instead of
// duplicating. Returns the number of entities and relationships pushed.
func (m *Mirror) Push(ctx context.Context, engine *knowledge.Engine) (int, int, error) {
	session := m.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: m.database})
	defer session.Close(ctx)

	ids, err := engine.ListEntityIDs(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("listing entities: %w", err)
	}

	pushedEntities := 0
	for _, id := range ids {
		entity, err := engine.GetEntity(ctx, id)
		if err != nil {
			return pushedEntities, 0, err
		}
		if entity == nil {
			continue
		}

		_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			query := `
				MERGE (e:Entity {id: $id})
				SET e.name = $name,
				    e.type = $type,
				    e.description = $description,
				    e.tags = $tags,
				    e.updated_at = $updatedAt
			`
			_, err := tx.Run(ctx, query, map[string]any{
				"id":          entity.ID,
				"name":        entity.Name,
				"type":        string(entity.Type),
				"description": entity.Description,
				"tags":        entity.Tags,
				"updatedAt":   entity.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			})
			return nil, err
		})
		if err != nil {
			return pushedEntities, 0, fmt.Errorf("mirroring entity %s: %w", entity.ID, err)
		}
		pushedEntities++
	}

	rels, err := engine.AllRelationships(ctx)
	if err != nil {
		return pushedEntities, 0, fmt.Errorf("listing relationships: %w", err)
	}

	pushedRels := 0
	for _, rel := range rels {
		_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			query := `
				MATCH (s:Entity {id: $sourceID})
				MATCH (t:Entity {id: $targetID})
				MERGE (s)-[r:RELATES {id: $id}]->(t)
				SET r.type = $type,
				    r.weight = $weight,
				    r.bidirectional = $bidirectional
			`
			_, err := tx.Run(ctx, query, map[string]any{
				"id":            rel.ID,
				"sourceID":      rel.SourceID,
				"targetID":      rel.TargetID,
				"type":          string(rel.Type),
				"weight":        rel.Weight,
				"bidirectional": rel.Bidirectional,
			})
			return nil, err
		})
		if err != nil {
			return pushedEntities, pushedRels, fmt.Errorf("mirroring relationship %s: %w", rel.ID, err)
		}
		pushedRels++
	}

	m.logger.Info("mirrored graph to neo4j", "entities", pushedEntities, "relationships", pushedRels)
	return pushedEntities, pushedRels, nil
}
