package models

// EdgeKey addresses one traversable edge in the graph index. A key with
// Reverse set refers to the derived reverse edge of a bidirectional
// relationship, which exists only in memory. Using an explicit tagged key
// avoids encoding "reverse-ness" into the relationship id itself.
type EdgeKey struct {
	PrimaryID string `json:"primary_id"`
	Reverse   bool   `json:"reverse,omitempty"`
}

// GraphEdge is one traversable edge in the in-memory graph index. For a
// derived reverse edge the endpoints are already transposed and Type is the
// inverse of the persisted record's type.
type GraphEdge struct {
	Key           EdgeKey      `json:"key"`
	SourceID      string       `json:"source_id"`
	TargetID      string       `json:"target_id"`
	Type          RelationType `json:"type"`
	Weight        float64      `json:"weight"`
	Description   string       `json:"description,omitempty"`
	Bidirectional bool         `json:"bidirectional"`
}

// RelatedEntity is one neighbor discovered by graph expansion.
type RelatedEntity struct {
	Entity    Entity       `json:"entity"`
	Type      RelationType `json:"relation_type"`
	Direction Direction    `json:"direction"`
	Distance  int          `json:"distance"`
	Weight    float64      `json:"weight"`
}

// Direction selects which edge orientations an operation considers.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionBoth     Direction = "both"
)

// IsValid returns true if the direction is recognized.
func (d Direction) IsValid() bool {
	switch d {
	case DirectionOutgoing, DirectionIncoming, DirectionBoth:
		return true
	}
	return false
}

// PathStep is one hop of a discovered path.
type PathStep struct {
	FromID string       `json:"from_id"`
	Type   RelationType `json:"relation_type"`
	ToID   string       `json:"to_id"`
}

// Path is an ordered list of steps. The empty path is the single path from
// a node to itself.
type Path []PathStep

// GraphStats summarizes the structure of the graph. RelationshipCount
// counts persisted records only; derived reverse edges are excluded.
// Diameter is -1 whenever the graph is empty or not strongly connected.
type GraphStats struct {
	EntityCount       int            `json:"entity_count"`
	RelationshipCount int            `json:"relationship_count"`
	EntityTypes       map[string]int `json:"entity_types"`
	RelationTypes     map[string]int `json:"relation_types"`
	TopConnected      []EntityDegree `json:"top_connected"`
	Density           float64        `json:"density"`
	StronglyConnected bool           `json:"strongly_connected"`
	AvgClustering     float64        `json:"avg_clustering"`
	Diameter          int            `json:"diameter"`
}

// EntityDegree pairs an entity with its degree centrality.
type EntityDegree struct {
	EntityID   string  `json:"entity_id"`
	Name       string  `json:"name"`
	Degree     int     `json:"degree"`
	Centrality float64 `json:"centrality"`
}
