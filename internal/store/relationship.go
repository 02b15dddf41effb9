package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/VeeDuvv/adgraph/internal/models"
)

// CreateRelationship persists exactly one record. The reverse direction of
// a bidirectional relationship is never stored; it is derived in the graph
// index. Duplicate (source, type, target) triples are a deliberate
// non-error: callers that want dedup must check first.
func (s *BadgerStore) CreateRelationship(_ context.Context, rel *models.Relationship) (string, error) {
	if err := rel.Validate(); err != nil {
		return "", err
	}
	rel.Normalize()

	if rel.ID == "" {
		rel.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = now
	}
	rel.UpdatedAt = now

	err := s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, relKey(rel.ID), rel)
	})
	if err != nil {
		return "", storageErr("creating relationship "+rel.ID, err)
	}

	s.logger.Debug("created relationship",
		"id", rel.ID, "source", rel.SourceID, "type", rel.Type, "target", rel.TargetID,
		"bidirectional", rel.Bidirectional)
	return rel.ID, nil
}

// GetRelationship returns the persisted record or (nil, nil) when absent.
func (s *BadgerStore) GetRelationship(_ context.Context, id string) (*models.Relationship, error) {
	var rel models.Relationship
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		found, err = getJSON(txn, relKey(id), &rel)
		return err
	})
	if err != nil {
		return nil, storageErr("getting relationship "+id, err)
	}
	if !found {
		return nil, nil
	}
	return &rel, nil
}

// ResolveEdge resolves an edge key to its relationship. A reverse key
// yields a transposed view of the primary record with the inverse type; the
// view is computed, never stored.
func (s *BadgerStore) ResolveEdge(ctx context.Context, key models.EdgeKey) (*models.Relationship, error) {
	rel, err := s.GetRelationship(ctx, key.PrimaryID)
	if err != nil || rel == nil {
		return nil, err
	}
	if !key.Reverse {
		return rel, nil
	}
	rev := rel.Reversed()
	return &rev, nil
}

// UpdateRelationship overwrites an existing record in place. The weight is
// clamped, the updated timestamp refreshed, and the created timestamp kept
// from the stored record.
func (s *BadgerStore) UpdateRelationship(ctx context.Context, rel *models.Relationship) (bool, error) {
	if err := rel.Validate(); err != nil {
		return false, err
	}

	existing, err := s.GetRelationship(ctx, rel.ID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	rel.Normalize()
	rel.CreatedAt = existing.CreatedAt
	rel.UpdatedAt = time.Now().UTC()

	err = s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, relKey(rel.ID), rel)
	})
	if err != nil {
		return false, storageErr("updating relationship "+rel.ID, err)
	}

	s.logger.Debug("updated relationship", "id", rel.ID)
	return true, nil
}

// DeleteRelationship removes the persisted record; the derived reverse
// edge, if any, disappears with it when the graph index is resynchronized.
func (s *BadgerStore) DeleteRelationship(ctx context.Context, id string) (bool, error) {
	existing, err := s.GetRelationship(ctx, id)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(relKey(id))
	})
	if err != nil {
		return false, storageErr("deleting relationship "+id, err)
	}

	s.logger.Debug("deleted relationship", "id", id)
	return true, nil
}

// ListRelationshipsForEntity returns persisted relationships where the
// entity appears as source, target, or either. Derived reverse edges are
// not persisted and therefore never appear here.
func (s *BadgerStore) ListRelationshipsForEntity(_ context.Context, entityID string, dir models.Direction) ([]*models.Relationship, error) {
	if !dir.IsValid() {
		return nil, &models.ValidationError{Field: "direction", Reason: "must be outgoing, incoming, or both"}
	}

	var rels []*models.Relationship
	err := s.forEachPrefix(relPrefix, func(val []byte) error {
		var rel models.Relationship
		if err := json.Unmarshal(val, &rel); err != nil {
			return err
		}
		asSource := rel.SourceID == entityID
		asTarget := rel.TargetID == entityID
		switch dir {
		case models.DirectionOutgoing:
			if !asSource {
				return nil
			}
		case models.DirectionIncoming:
			if !asTarget {
				return nil
			}
		case models.DirectionBoth:
			if !asSource && !asTarget {
				return nil
			}
		}
		rels = append(rels, &rel)
		return nil
	})
	if err != nil {
		return nil, storageErr("listing relationships for entity "+entityID, err)
	}
	return rels, nil
}

// ListRelationships returns every persisted relationship.
func (s *BadgerStore) ListRelationships(_ context.Context) ([]*models.Relationship, error) {
	var rels []*models.Relationship
	err := s.forEachPrefix(relPrefix, func(val []byte) error {
		var rel models.Relationship
		if err := json.Unmarshal(val, &rel); err != nil {
			return err
		}
		rels = append(rels, &rel)
		return nil
	})
	if err != nil {
		return nil, storageErr("listing relationships", err)
	}
	return rels, nil
}
