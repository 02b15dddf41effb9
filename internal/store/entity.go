package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/VeeDuvv/adgraph/internal/models"
)

// UpsertEntity validates, stamps, and writes the entity record together
// with all three index records in one transaction.
func (s *BadgerStore) UpsertEntity(ctx context.Context, entity *models.Entity) (string, error) {
	if err := entity.Validate(); err != nil {
		return "", err
	}
	entity.Normalize()

	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = now
	}
	entity.UpdatedAt = now

	// Fetch the previous record so stale index entries can be pruned when
	// the name, tags, or type changed.
	prev, err := s.GetEntity(ctx, entity.ID)
	if err != nil {
		return "", err
	}
	if prev != nil {
		s.unindexEntity(prev)
	}
	s.indexEntity(entity)

	snap := s.snapshotIndexes()
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, entityKey(entity.ID), entity); err != nil {
			return err
		}
		return writeIndexes(txn, snap)
	})
	if err != nil {
		s.reloadIndexes()
		return "", storageErr("upserting entity "+entity.ID, err)
	}

	s.logger.Debug("upserted entity", "id", entity.ID, "name", entity.Name, "type", entity.Type)
	return entity.ID, nil
}

// GetEntity returns the entity or (nil, nil) when absent.
func (s *BadgerStore) GetEntity(_ context.Context, id string) (*models.Entity, error) {
	var e models.Entity
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		found, err = getJSON(txn, entityKey(id), &e)
		return err
	})
	if err != nil {
		return nil, storageErr("getting entity "+id, err)
	}
	if !found {
		return nil, nil
	}
	return &e, nil
}

// DeleteEntity removes the entity, every relationship naming it, and the
// stale index entries in a single transaction. A partial cascade that would
// leave dangling edges can therefore never be observed.
func (s *BadgerStore) DeleteEntity(ctx context.Context, id string) ([]string, bool, error) {
	entity, err := s.GetEntity(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if entity == nil {
		return nil, false, nil
	}

	rels, err := s.ListRelationshipsForEntity(ctx, id, models.DirectionBoth)
	if err != nil {
		return nil, false, err
	}

	removed := make([]string, 0, len(rels))
	for _, rel := range rels {
		removed = append(removed, rel.ID)
	}

	s.unindexEntity(entity)
	snap := s.snapshotIndexes()

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, relID := range removed {
			if err := txn.Delete(relKey(relID)); err != nil {
				return err
			}
		}
		if err := txn.Delete(entityKey(id)); err != nil {
			return err
		}
		return writeIndexes(txn, snap)
	})
	if err != nil {
		s.reloadIndexes()
		return nil, false, storageErr("deleting entity "+id, err)
	}

	s.logger.Debug("deleted entity", "id", id, "cascaded_relationships", len(removed))
	return removed, true, nil
}

// ListEntityIDs returns all entity ids. Enumeration order is unspecified.
func (s *BadgerStore) ListEntityIDs(_ context.Context) ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entityPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			ids = append(ids, strings.TrimPrefix(key, entityPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("listing entity ids", err)
	}
	return ids, nil
}

// FindEntityByName resolves a name through the case-insensitive name index.
func (s *BadgerStore) FindEntityByName(ctx context.Context, name string) (*models.Entity, error) {
	id, ok := s.nameIdx[strings.ToLower(name)]
	if !ok {
		return nil, nil
	}
	return s.GetEntity(ctx, id)
}

// FindEntitiesByType returns all entities of the given type via the type
// index.
func (s *BadgerStore) FindEntitiesByType(ctx context.Context, et models.EntityType) ([]*models.Entity, error) {
	return s.entitiesForIDs(ctx, s.typeIdx[string(et)])
}

// FindEntitiesByTags intersects or unions the per-tag id sets. An empty tag
// list yields an empty result, never all entities.
func (s *BadgerStore) FindEntitiesByTags(ctx context.Context, tags []string, matchAll bool) ([]*models.Entity, error) {
	if len(tags) == 0 {
		return nil, nil
	}

	var result map[string]struct{}
	for i, tag := range tags {
		set := s.tagIdx[tag]
		if matchAll {
			if len(set) == 0 {
				return nil, nil
			}
			if i == 0 {
				result = copySet(set)
				continue
			}
			for id := range result {
				if _, ok := set[id]; !ok {
					delete(result, id)
				}
			}
			if len(result) == 0 {
				return nil, nil
			}
		} else {
			if result == nil {
				result = make(map[string]struct{})
			}
			for id := range set {
				result[id] = struct{}{}
			}
		}
	}

	return s.entitiesForIDs(ctx, result)
}

// SearchEntities scans all entity records for a case-insensitive substring
// match against name, both descriptions, and tags. Results are unranked.
func (s *BadgerStore) SearchEntities(_ context.Context, query string) ([]*models.Entity, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, nil
	}

	var matches []*models.Entity
	err := s.forEachPrefix(entityPrefix, func(val []byte) error {
		var e models.Entity
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		if entityMatches(&e, needle) {
			matches = append(matches, &e)
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("searching entities", err)
	}
	return matches, nil
}

// RebuildIndex regenerates all three indexes from entity records.
func (s *BadgerStore) RebuildIndex(_ context.Context) error {
	return s.rebuildIndexLocked()
}

func entityMatches(e *models.Entity, needle string) bool {
	if strings.Contains(strings.ToLower(e.Name), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(e.Description), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(e.Details), needle) {
		return true
	}
	for _, tag := range e.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

func (s *BadgerStore) entitiesForIDs(ctx context.Context, ids map[string]struct{}) ([]*models.Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out := make([]*models.Entity, 0, len(ids))
	for id := range ids {
		e, err := s.GetEntity(ctx, id)
		if err != nil {
			return nil, err
		}
		if e == nil {
			// Index points at a missing record; recoverable via RebuildIndex.
			s.logger.Warn("index references missing entity", "id", id)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func copySet(set map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(set))
	for id := range set {
		out[id] = struct{}{}
	}
	return out
}
