package models

import (
	"fmt"
	"strings"
	"time"
)

// EntityType classifies the kind of entity.
type EntityType string

const (
	EntityTypeConcept     EntityType = "concept"
	EntityTypeFramework   EntityType = "framework"
	EntityTypePerson      EntityType = "person"
	EntityTypeCompany     EntityType = "company"
	EntityTypeTerm        EntityType = "term"
	EntityTypeMethodology EntityType = "methodology"
	EntityTypeTechnology  EntityType = "technology"
	EntityTypeProcess     EntityType = "process"
	EntityTypeMetric      EntityType = "metric"
	EntityTypeStandard    EntityType = "standard"
	EntityTypeCampaign    EntityType = "campaign"
	EntityTypeBrand       EntityType = "brand"
	EntityTypeAudience    EntityType = "audience"
	EntityTypeChannel     EntityType = "channel"
)

// ValidEntityTypes is the set of all valid entity types.
var ValidEntityTypes = []EntityType{
	EntityTypeConcept,
	EntityTypeFramework,
	EntityTypePerson,
	EntityTypeCompany,
	EntityTypeTerm,
	EntityTypeMethodology,
	EntityTypeTechnology,
	EntityTypeProcess,
	EntityTypeMetric,
	EntityTypeStandard,
	EntityTypeCampaign,
	EntityTypeBrand,
	EntityTypeAudience,
	EntityTypeChannel,
}

// IsValid returns true if the entity type is recognized.
func (et EntityType) IsValid() bool {
	for i := range ValidEntityTypes {
		if et == ValidEntityTypes[i] {
			return true
		}
	}
	return false
}

// Reference records where an entity was mentioned. References are
// annotations on the entity itself, not edges in the graph.
type Reference struct {
	Source  string    `json:"source"`
	Context string    `json:"context,omitempty"`
	AddedAt time.Time `json:"added_at"`
}

// Entity is one knowledge unit in the graph.
type Entity struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        EntityType     `json:"type"`
	Description string         `json:"description"`
	Details     string         `json:"details,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	References  []Reference    `json:"references,omitempty"`
}

// Validate checks the closed-vocabulary and required-field constraints.
// It is called before any storage I/O.
func (e *Entity) Validate() error {
	if !e.Type.IsValid() {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown entity type %q", e.Type)}
	}
	if strings.TrimSpace(e.Name) == "" {
		return &ValidationError{Field: "name", Reason: "name must not be empty"}
	}
	if strings.TrimSpace(e.Description) == "" {
		return &ValidationError{Field: "description", Reason: "description must not be empty"}
	}
	return nil
}

// Normalize dedupes tags while preserving the order in which they first
// appeared. Tags carry set semantics; the order is display order only.
func (e *Entity) Normalize() {
	e.Tags = dedupeTags(e.Tags)
}

// HasTag reports whether the entity carries the given tag.
func (e *Entity) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddReference appends a mention annotation to the entity.
func (e *Entity) AddReference(source, context string) {
	e.References = append(e.References, Reference{
		Source:  source,
		Context: context,
		AddedAt: time.Now().UTC(),
	})
}

func dedupeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ValidationError reports input rejected before any I/O, such as an
// unknown entity or relation type.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}
