package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/VeeDuvv/adgraph/internal/models"
)

// Key layout. One self-describing JSON record per entity and per persisted
// relationship, addressed by id, plus three regenerable index records.
const (
	entityPrefix = "entity:"
	relPrefix    = "rel:"

	nameIndexKey = "index:name"
	tagIndexKey  = "index:tag"
	typeIndexKey = "index:type"
)

// Config holds settings for opening a BadgerStore.
type Config struct {
	// Dir is the directory for the Badger files. Ignored when InMemory.
	Dir string

	// InMemory disables disk persistence. Used by tests.
	InMemory bool

	// SyncWrites forces every commit to fsync. On by default in production
	// configs.
	SyncWrites bool

	// Logger receives index-inconsistency warnings and per-record traffic.
	// If nil, slog.Default() is used and Badger's own logging is disabled.
	Logger *slog.Logger
}

// BadgerStore implements Store on an embedded Badger database. The three
// derived indexes are held in memory and mirrored to durable index records
// inside the same transaction as every entity mutation, so a reader can
// never observe the record and its indexes diverging. If a commit fails the
// in-memory indexes are reloaded from disk.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger

	// Derived indexes. nameIdx is keyed by lowercased name; tagIdx and
	// typeIdx map to id sets.
	nameIdx map[string]string
	tagIdx  map[string]map[string]struct{}
	typeIdx map[string]map[string]struct{}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any)   { l.logger.Error(fmt.Sprintf(format, args...)) }
func (l *badgerLogger) Warningf(format string, args ...any) { l.logger.Warn(fmt.Sprintf(format, args...)) }
func (l *badgerLogger) Infof(format string, args ...any)    { l.logger.Debug(fmt.Sprintf(format, args...)) }
func (l *badgerLogger) Debugf(format string, args ...any)   { l.logger.Debug(fmt.Sprintf(format, args...)) }

// Open opens or creates the store and loads the derived indexes. If the
// index records are missing or unreadable they are rebuilt from the entity
// records, which is also the defined recovery path after a crash.
func Open(cfg Config) (*BadgerStore, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(&badgerLogger{logger: logger})
	if cfg.InMemory {
		opts = opts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, storageErr("opening badger db", err)
	}

	s := &BadgerStore{db: db, logger: logger}
	if err := s.loadIndexes(); err != nil {
		logger.Warn("index records missing or stale, rebuilding from entity records", "error", err)
		if rebuildErr := s.rebuildIndexLocked(); rebuildErr != nil {
			_ = db.Close()
			return nil, rebuildErr
		}
	}

	logger.Info("store opened", "dir", cfg.Dir, "in_memory", cfg.InMemory, "entities", len(s.nameIdx))
	return s, nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// --- record helpers ---

func entityKey(id string) []byte { return []byte(entityPrefix + id) }
func relKey(id string) []byte    { return []byte(relPrefix + id) }

func getJSON(txn *badger.Txn, key []byte, out any) (bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

// forEachPrefix iterates all values under a key prefix inside a read
// transaction.
func (s *BadgerStore) forEachPrefix(prefix string, fn func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}

// --- index persistence ---

// persistedIndexes is the durable JSON form of the three derived indexes.
type persistedIndexes struct {
	name map[string]string
	tag  map[string][]string
	typ  map[string][]string
}

func (s *BadgerStore) snapshotIndexes() persistedIndexes {
	return persistedIndexes{
		name: s.nameIdx,
		tag:  setsToLists(s.tagIdx),
		typ:  setsToLists(s.typeIdx),
	}
}

func writeIndexes(txn *badger.Txn, snap persistedIndexes) error {
	if err := setJSON(txn, []byte(nameIndexKey), snap.name); err != nil {
		return err
	}
	if err := setJSON(txn, []byte(tagIndexKey), snap.tag); err != nil {
		return err
	}
	return setJSON(txn, []byte(typeIndexKey), snap.typ)
}

// loadIndexes reads the persisted index records into memory. A missing
// record is an error so that Open falls back to a rebuild.
func (s *BadgerStore) loadIndexes() error {
	var (
		name map[string]string
		tag  map[string][]string
		typ  map[string][]string
	)
	err := s.db.View(func(txn *badger.Txn) error {
		for _, rec := range []struct {
			key string
			out any
		}{
			{nameIndexKey, &name},
			{tagIndexKey, &tag},
			{typeIndexKey, &typ},
		} {
			found, err := getJSON(txn, []byte(rec.key), rec.out)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("index record %s not found", rec.key)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.nameIdx = name
	s.tagIdx = listsToSets(tag)
	s.typeIdx = listsToSets(typ)
	if s.nameIdx == nil {
		s.nameIdx = make(map[string]string)
	}
	return nil
}

// reloadIndexes restores the in-memory indexes from disk after a failed
// commit, falling back to a full rebuild if the records are unreadable.
func (s *BadgerStore) reloadIndexes() {
	if err := s.loadIndexes(); err != nil {
		s.logger.Warn("reloading indexes after failed commit", "error", err)
		if rebuildErr := s.rebuildIndexLocked(); rebuildErr != nil {
			s.logger.Error("rebuilding indexes after failed commit", "error", rebuildErr)
		}
	}
}

// indexEntity adds an entity to the in-memory indexes.
func (s *BadgerStore) indexEntity(e *models.Entity) {
	s.nameIdx[strings.ToLower(e.Name)] = e.ID
	for _, tag := range e.Tags {
		addToSet(s.tagIdx, tag, e.ID)
	}
	addToSet(s.typeIdx, string(e.Type), e.ID)
}

// unindexEntity removes an entity from the in-memory indexes.
func (s *BadgerStore) unindexEntity(e *models.Entity) {
	lower := strings.ToLower(e.Name)
	if s.nameIdx[lower] == e.ID {
		delete(s.nameIdx, lower)
	}
	for _, tag := range e.Tags {
		removeFromSet(s.tagIdx, tag, e.ID)
	}
	removeFromSet(s.typeIdx, string(e.Type), e.ID)
}

// rebuildIndexLocked regenerates indexes from entity records and persists
// them. The entity records are the sole source of truth here.
func (s *BadgerStore) rebuildIndexLocked() error {
	s.nameIdx = make(map[string]string)
	s.tagIdx = make(map[string]map[string]struct{})
	s.typeIdx = make(map[string]map[string]struct{})

	err := s.forEachPrefix(entityPrefix, func(val []byte) error {
		var e models.Entity
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		s.indexEntity(&e)
		return nil
	})
	if err != nil {
		return storageErr("rebuilding indexes: scanning entities", err)
	}

	snap := s.snapshotIndexes()
	err = s.db.Update(func(txn *badger.Txn) error {
		return writeIndexes(txn, snap)
	})
	if err != nil {
		return storageErr("rebuilding indexes: persisting", err)
	}
	return nil
}

// --- set helpers ---

func addToSet(idx map[string]map[string]struct{}, key, id string) {
	set, ok := idx[key]
	if !ok {
		set = make(map[string]struct{})
		idx[key] = set
	}
	set[id] = struct{}{}
}

func removeFromSet(idx map[string]map[string]struct{}, key, id string) {
	set, ok := idx[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(idx, key)
	}
}

func setsToLists(idx map[string]map[string]struct{}) map[string][]string {
	out := make(map[string][]string, len(idx))
	for key, set := range idx {
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		out[key] = ids
	}
	return out
}

func listsToSets(idx map[string][]string) map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{}, len(idx))
	for key, ids := range idx {
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		out[key] = set
	}
	return out
}
