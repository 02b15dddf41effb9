package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/VeeDuvv/adgraph/internal/models"
)

// ErrDerivedEdge is returned when a caller tries to mutate the derived
// reverse edge of a bidirectional relationship. Only the primary record can
// be updated or deleted; the reverse edge follows it.
var ErrDerivedEdge = errors.New("derived reverse edge cannot be mutated directly")

// StorageError wraps a durable I/O failure. It is surfaced rather than
// swallowed because a failed write may leave on-disk state inconsistent.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// Store defines durable persistence for entities and relationships.
//
// Lookups return (nil, nil) when the requested record does not exist;
// errors are reserved for validation failures and storage I/O. The store
// assumes a single writer: mutations must not run concurrently with each
// other or with reads. Callers needing concurrent access serialize
// externally.
type Store interface {
	// UpsertEntity validates the entity, generates an id if absent,
	// refreshes the updated timestamp, and writes the record together with
	// all three derived indexes in one atomic step. Upserting an existing
	// id overwrites. Returns the entity id.
	UpsertEntity(ctx context.Context, entity *models.Entity) (string, error)

	// GetEntity retrieves an entity by id, or (nil, nil) when absent.
	GetEntity(ctx context.Context, id string) (*models.Entity, error)

	// DeleteEntity removes an entity and cascades: every relationship that
	// names the entity as source or target is deleted in the same atomic
	// step, so no dangling edge can ever be observed. Returns the ids of
	// the removed relationships and whether the entity existed.
	DeleteEntity(ctx context.Context, id string) (removedRels []string, existed bool, err error)

	// ListEntityIDs returns all known entity ids in unspecified order.
	ListEntityIDs(ctx context.Context) ([]string, error)

	// FindEntityByName is a case-insensitive O(1) name index lookup.
	FindEntityByName(ctx context.Context, name string) (*models.Entity, error)

	// FindEntitiesByType returns all entities of the given type.
	FindEntitiesByType(ctx context.Context, et models.EntityType) ([]*models.Entity, error)

	// FindEntitiesByTags returns the intersection of the per-tag sets when
	// matchAll is true, the union otherwise. An empty tag list yields an
	// empty result.
	FindEntitiesByTags(ctx context.Context, tags []string, matchAll bool) ([]*models.Entity, error)

	// SearchEntities returns all entities whose name, descriptions, or tags
	// contain the query as a case-insensitive substring. Unranked.
	SearchEntities(ctx context.Context, query string) ([]*models.Entity, error)

	// RebuildIndex regenerates the name, tag, and type indexes purely from
	// durable entity records. This is the recovery path when a crash leaves
	// an index stale.
	RebuildIndex(ctx context.Context) error

	// CreateRelationship validates, clamps the weight, and persists exactly
	// one record. Duplicate (source, type, target) triples are permitted;
	// the store never dedups implicitly. Returns the relationship id.
	CreateRelationship(ctx context.Context, rel *models.Relationship) (string, error)

	// GetRelationship retrieves a persisted relationship by id, or
	// (nil, nil) when absent.
	GetRelationship(ctx context.Context, id string) (*models.Relationship, error)

	// ResolveEdge retrieves the relationship addressed by key. For a
	// reverse key it resolves the primary record and returns a transposed
	// view with the inverse relation type substituted.
	ResolveEdge(ctx context.Context, key models.EdgeKey) (*models.Relationship, error)

	// UpdateRelationship overwrites an existing record. Returns
	// (nil, nil)-style absence as existed=false without writing.
	UpdateRelationship(ctx context.Context, rel *models.Relationship) (existed bool, err error)

	// DeleteRelationship removes a persisted record; returns whether it
	// existed.
	DeleteRelationship(ctx context.Context, id string) (bool, error)

	// ListRelationshipsForEntity returns persisted (non-derived)
	// relationships where the entity appears in the given direction.
	ListRelationshipsForEntity(ctx context.Context, entityID string, dir models.Direction) ([]*models.Relationship, error)

	// ListRelationships returns all persisted relationships in unspecified
	// order.
	ListRelationships(ctx context.Context) ([]*models.Relationship, error)

	// Close releases storage resources.
	Close() error
}
