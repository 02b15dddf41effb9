// Package graph holds the in-memory traversal structure mirroring the
// persisted entities and relationships, and the query algorithms that run
// on it. Nothing in this package touches durable storage; the index is a
// non-owning projection kept in sync by the engine on every mutation.
package graph

import (
	"context"
	"log/slog"

	"github.com/VeeDuvv/adgraph/internal/models"
	"github.com/VeeDuvv/adgraph/internal/store"
)

// Index is a directed multigraph keyed by entity id. Each stored
// relationship contributes one edge; a bidirectional relationship
// additionally contributes exactly one derived reverse edge, which exists
// only here and is rebuilt after load or mutation, never persisted.
//
// The index is mutated in place and is not safe under concurrent mutation.
// The single-writer contract of the store applies here too.
type Index struct {
	logger *slog.Logger

	nodes map[string]*models.Entity
	out   map[string][]*models.GraphEdge
	in    map[string][]*models.GraphEdge

	// primary counts persisted relationships only.
	primary int
}

// NewIndex returns an empty index.
func NewIndex(logger *slog.Logger) *Index {
	return &Index{
		logger: logger,
		nodes:  make(map[string]*models.Entity),
		out:    make(map[string][]*models.GraphEdge),
		in:     make(map[string][]*models.GraphEdge),
	}
}

// Build populates the index from the store: all entities first, then all
// relationships. A relationship whose source or target is unknown is
// skipped and logged rather than failing the load, so an inconsistent
// store stays partially usable.
func (x *Index) Build(ctx context.Context, st store.Store) error {
	x.nodes = make(map[string]*models.Entity)
	x.out = make(map[string][]*models.GraphEdge)
	x.in = make(map[string][]*models.GraphEdge)
	x.primary = 0

	ids, err := st.ListEntityIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		entity, err := st.GetEntity(ctx, id)
		if err != nil {
			return err
		}
		if entity == nil {
			continue
		}
		x.PutEntity(entity)
	}

	rels, err := st.ListRelationships(ctx)
	if err != nil {
		return err
	}
	skipped := 0
	for _, rel := range rels {
		if !x.AddRelationship(rel) {
			skipped++
		}
	}

	x.logger.Info("graph index built",
		"entities", len(x.nodes), "relationships", x.primary, "skipped", skipped)
	return nil
}

// PutEntity adds or replaces a node. Existing edges are kept: replacing an
// entity's attributes does not disturb its connectivity.
func (x *Index) PutEntity(entity *models.Entity) {
	x.nodes[entity.ID] = entity
}

// RemoveEntity drops the node and every edge touching it, including
// derived reverse edges.
func (x *Index) RemoveEntity(id string) {
	if _, ok := x.nodes[id]; !ok {
		return
	}
	for _, edge := range x.out[id] {
		if !edge.Key.Reverse {
			x.primary--
		}
		x.in[edge.TargetID] = dropEdges(x.in[edge.TargetID], edge.Key.PrimaryID)
	}
	for _, edge := range x.in[id] {
		if !edge.Key.Reverse {
			x.primary--
		}
		x.out[edge.SourceID] = dropEdges(x.out[edge.SourceID], edge.Key.PrimaryID)
	}
	delete(x.out, id)
	delete(x.in, id)
	delete(x.nodes, id)
}

// AddRelationship inserts the primary edge and, for a bidirectional
// relationship, one derived reverse edge. Returns false when either
// endpoint is unknown; the relationship is then skipped and logged.
func (x *Index) AddRelationship(rel *models.Relationship) bool {
	if _, ok := x.nodes[rel.SourceID]; !ok {
		x.logger.Warn("skipping relationship with unknown source entity",
			"relationship", rel.ID, "source", rel.SourceID)
		return false
	}
	if _, ok := x.nodes[rel.TargetID]; !ok {
		x.logger.Warn("skipping relationship with unknown target entity",
			"relationship", rel.ID, "target", rel.TargetID)
		return false
	}

	x.addEdge(&models.GraphEdge{
		Key:           models.EdgeKey{PrimaryID: rel.ID},
		SourceID:      rel.SourceID,
		TargetID:      rel.TargetID,
		Type:          rel.Type,
		Weight:        rel.Weight,
		Description:   rel.Description,
		Bidirectional: rel.Bidirectional,
	})
	x.primary++

	if rel.Bidirectional {
		rev := rel.Reversed()
		x.addEdge(&models.GraphEdge{
			Key:           models.EdgeKey{PrimaryID: rel.ID, Reverse: true},
			SourceID:      rev.SourceID,
			TargetID:      rev.TargetID,
			Type:          rev.Type,
			Weight:        rev.Weight,
			Description:   rev.Description,
			Bidirectional: true,
		})
	}
	return true
}

// RemoveRelationship drops the primary edge and its derived counterpart.
func (x *Index) RemoveRelationship(rel *models.Relationship) {
	before := len(x.out[rel.SourceID])
	x.out[rel.SourceID] = dropEdges(x.out[rel.SourceID], rel.ID)
	x.in[rel.TargetID] = dropEdges(x.in[rel.TargetID], rel.ID)
	if rel.Bidirectional {
		x.out[rel.TargetID] = dropEdges(x.out[rel.TargetID], rel.ID)
		x.in[rel.SourceID] = dropEdges(x.in[rel.SourceID], rel.ID)
	}
	if len(x.out[rel.SourceID]) < before {
		x.primary--
	}
}

// Entity returns the node for id, or nil.
func (x *Index) Entity(id string) *models.Entity {
	return x.nodes[id]
}

// HasEntity reports whether the node exists.
func (x *Index) HasEntity(id string) bool {
	_, ok := x.nodes[id]
	return ok
}

// OutEdges returns the outgoing edges of a node, derived edges included.
func (x *Index) OutEdges(id string) []*models.GraphEdge {
	return x.out[id]
}

// InEdges returns the incoming edges of a node, derived edges included.
func (x *Index) InEdges(id string) []*models.GraphEdge {
	return x.in[id]
}

// EntityCount returns the number of nodes.
func (x *Index) EntityCount() int {
	return len(x.nodes)
}

// RelationshipCount returns the number of persisted relationships mirrored
// here, excluding derived reverse edges.
func (x *Index) RelationshipCount() int {
	return x.primary
}

// EntityIDs returns all node ids in unspecified order.
func (x *Index) EntityIDs() []string {
	ids := make([]string, 0, len(x.nodes))
	for id := range x.nodes {
		ids = append(ids, id)
	}
	return ids
}

func (x *Index) addEdge(edge *models.GraphEdge) {
	x.out[edge.SourceID] = append(x.out[edge.SourceID], edge)
	x.in[edge.TargetID] = append(x.in[edge.TargetID], edge)
}

func dropEdges(edges []*models.GraphEdge, primaryID string) []*models.GraphEdge {
	out := edges[:0]
	for _, e := range edges {
		if e.Key.PrimaryID != primaryID {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
