package models

import (
	"fmt"
	"time"
)

// RelationType classifies a directed edge between two entities. The
// vocabulary is closed: every type has a semantic inverse in inverseTable,
// and construction fails for anything outside it.
type RelationType string

const (
	RelationRelatedTo     RelationType = "related_to"
	RelationSimilarTo     RelationType = "similar_to"
	RelationOppositeOf    RelationType = "opposite_of"
	RelationCompetesWith  RelationType = "competes_with"
	RelationPartOf        RelationType = "part_of"
	RelationHasPart       RelationType = "has_part"
	RelationDependsOn     RelationType = "depends_on"
	RelationRequiredBy    RelationType = "required_by"
	RelationUses          RelationType = "uses"
	RelationUsedBy        RelationType = "used_by"
	RelationImplements    RelationType = "implements"
	RelationImplementedBy RelationType = "implemented_by"
	RelationPrecedes      RelationType = "precedes"
	RelationFollows       RelationType = "follows"
	RelationPromotes      RelationType = "promotes"
	RelationPromotedBy    RelationType = "promoted_by"
	RelationTargets       RelationType = "targets"
	RelationTargetedBy    RelationType = "targeted_by"
	RelationOwns          RelationType = "owns"
	RelationOwnedBy       RelationType = "owned_by"
	RelationMeasures      RelationType = "measures"
	RelationMeasuredBy    RelationType = "measured_by"
	RelationMentions      RelationType = "mentions"
	RelationMentionedBy   RelationType = "mentioned_by"
)

// inverseTable maps each relation type to its semantic inverse. Built once
// at package init and never mutated afterwards; symmetric types map to
// themselves.
var inverseTable = map[RelationType]RelationType{
	RelationRelatedTo:     RelationRelatedTo,
	RelationSimilarTo:     RelationSimilarTo,
	RelationOppositeOf:    RelationOppositeOf,
	RelationCompetesWith:  RelationCompetesWith,
	RelationPartOf:        RelationHasPart,
	RelationHasPart:       RelationPartOf,
	RelationDependsOn:     RelationRequiredBy,
	RelationRequiredBy:    RelationDependsOn,
	RelationUses:          RelationUsedBy,
	RelationUsedBy:        RelationUses,
	RelationImplements:    RelationImplementedBy,
	RelationImplementedBy: RelationImplements,
	RelationPrecedes:      RelationFollows,
	RelationFollows:       RelationPrecedes,
	RelationPromotes:      RelationPromotedBy,
	RelationPromotedBy:    RelationPromotes,
	RelationTargets:       RelationTargetedBy,
	RelationTargetedBy:    RelationTargets,
	RelationOwns:          RelationOwnedBy,
	RelationOwnedBy:       RelationOwns,
	RelationMeasures:      RelationMeasuredBy,
	RelationMeasuredBy:    RelationMeasures,
	RelationMentions:      RelationMentionedBy,
	RelationMentionedBy:   RelationMentions,
}

// IsValid returns true if the relation type is recognized.
func (rt RelationType) IsValid() bool {
	_, ok := inverseTable[rt]
	return ok
}

// Inverse returns the semantic inverse of the relation type. The second
// return value is false for unknown types.
func (rt RelationType) Inverse() (RelationType, bool) {
	inv, ok := inverseTable[rt]
	return inv, ok
}

// ValidRelationTypes returns all recognized relation types. The slice is a
// fresh copy; callers may reorder it freely.
func ValidRelationTypes() []RelationType {
	out := make([]RelationType, 0, len(inverseTable))
	for rt := range inverseTable {
		out = append(out, rt)
	}
	return out
}

// Relationship is a typed, directed, optionally weighted edge between two
// stored entities. A Relationship declared Bidirectional yields exactly one
// persisted record; the reverse direction exists only as a derived edge in
// the in-memory graph.
type Relationship struct {
	ID            string         `json:"id"`
	SourceID      string         `json:"source_id"`
	TargetID      string         `json:"target_id"`
	Type          RelationType   `json:"type"`
	Description   string         `json:"description,omitempty"`
	Weight        float64        `json:"weight"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	Bidirectional bool           `json:"bidirectional"`
}

// Validate checks the closed-vocabulary and endpoint constraints. Weight is
// deliberately not validated here: out-of-range weights are clamped on
// write, not rejected.
func (r *Relationship) Validate() error {
	if !r.Type.IsValid() {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown relation type %q", r.Type)}
	}
	if r.SourceID == "" {
		return &ValidationError{Field: "source_id", Reason: "source entity id must not be empty"}
	}
	if r.TargetID == "" {
		return &ValidationError{Field: "target_id", Reason: "target entity id must not be empty"}
	}
	return nil
}

// Normalize clamps the weight into [0, 1].
func (r *Relationship) Normalize() {
	if r.Weight < 0 {
		r.Weight = 0
	}
	if r.Weight > 1 {
		r.Weight = 1
	}
}

// Reversed returns a transposed view of the relationship: endpoints swapped
// and the relation type replaced with its inverse. The view shares the
// primary record's id and is never persisted.
func (r *Relationship) Reversed() Relationship {
	rev := *r
	rev.SourceID, rev.TargetID = r.TargetID, r.SourceID
	if inv, ok := r.Type.Inverse(); ok {
		rev.Type = inv
	}
	return rev
}
