// Package metrics provides application-level counters using stdlib expvar.
// Counters are automatically exported on the /debug/vars HTTP endpoint
// when net/http/pprof is imported in the main binary.
package metrics

import "expvar"

// Operation counters.
var (
	EntitiesUpserted     = expvar.NewInt("adgraph_entities_upserted_total")
	EntitiesDeleted      = expvar.NewInt("adgraph_entities_deleted_total")
	RelationshipsCreated = expvar.NewInt("adgraph_relationships_created_total")
	RelationshipsDeleted = expvar.NewInt("adgraph_relationships_deleted_total")
	CascadedDeletes      = expvar.NewInt("adgraph_cascaded_relationship_deletes_total")
	QueriesTotal         = expvar.NewInt("adgraph_queries_total")
	PathSearchesTotal    = expvar.NewInt("adgraph_path_searches_total")
	IndexRebuilds        = expvar.NewInt("adgraph_index_rebuilds_total")
)

// Inc increments the given counter by 1.
func Inc(counter *expvar.Int) { counter.Add(1) }

// Add increments the given counter by n.
func Add(counter *expvar.Int, n int64) { counter.Add(n) }
