// Package capture provides the advertising-workflow helpers that compose
// engine calls into higher-level operations: recording a campaign with its
// brand, audiences, and channels in one call, and extracting structured
// knowledge from free-form campaign briefs with Claude.
package capture

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/VeeDuvv/adgraph/internal/knowledge"
	"github.com/VeeDuvv/adgraph/internal/models"
)

// Capturer records advertising facts into the knowledge graph.
type Capturer struct {
	engine *knowledge.Engine
	logger *slog.Logger
}

// NewCapturer creates a Capturer over the engine.
func NewCapturer(engine *knowledge.Engine, logger *slog.Logger) *Capturer {
	return &Capturer{engine: engine, logger: logger}
}

// Campaign describes one advertising campaign to record.
type Campaign struct {
	Name        string
	Description string
	Brand       string
	Audiences   []string
	Channels    []string
	Tags        []string
	Source      string
}

// CampaignResult reports what CaptureCampaign created or reused.
type CampaignResult struct {
	CampaignID      string   `json:"campaign_id"`
	BrandID         string   `json:"brand_id,omitempty"`
	AudienceIDs     []string `json:"audience_ids,omitempty"`
	ChannelIDs      []string `json:"channel_ids,omitempty"`
	RelationshipIDs []string `json:"relationship_ids,omitempty"`
}

// CaptureCampaign records a campaign entity and its standard relationships:
// campaign promotes brand, campaign targets each audience, campaign uses
// each channel. Existing entities are reused by name rather than
// duplicated; relationships are always created, since duplicates are
// permitted at the store level.
func (c *Capturer) CaptureCampaign(ctx context.Context, campaign Campaign) (*CampaignResult, error) {
	if campaign.Name == "" {
		return nil, &models.ValidationError{Field: "name", Reason: "campaign name must not be empty"}
	}

	desc := campaign.Description
	if desc == "" {
		desc = "Advertising campaign " + campaign.Name
	}

	campaignID, err := c.ensureEntity(ctx, campaign.Name, models.EntityTypeCampaign, desc, campaign.Tags, campaign.Source)
	if err != nil {
		return nil, fmt.Errorf("capturing campaign: %w", err)
	}

	result := &CampaignResult{CampaignID: campaignID}

	if campaign.Brand != "" {
		brandID, err := c.ensureEntity(ctx, campaign.Brand, models.EntityTypeBrand,
			"Brand promoted by "+campaign.Name, nil, campaign.Source)
		if err != nil {
			return nil, fmt.Errorf("capturing brand: %w", err)
		}
		result.BrandID = brandID

		relID, err := c.link(ctx, campaignID, brandID, models.RelationPromotes)
		if err != nil {
			return nil, err
		}
		result.RelationshipIDs = append(result.RelationshipIDs, relID)
	}

	for _, audience := range campaign.Audiences {
		audienceID, err := c.ensureEntity(ctx, audience, models.EntityTypeAudience,
			"Audience segment targeted by "+campaign.Name, nil, campaign.Source)
		if err != nil {
			return nil, fmt.Errorf("capturing audience: %w", err)
		}
		result.AudienceIDs = append(result.AudienceIDs, audienceID)

		relID, err := c.link(ctx, campaignID, audienceID, models.RelationTargets)
		if err != nil {
			return nil, err
		}
		result.RelationshipIDs = append(result.RelationshipIDs, relID)
	}

	for _, channel := range campaign.Channels {
		channelID, err := c.ensureEntity(ctx, channel, models.EntityTypeChannel,
			"Media channel used by "+campaign.Name, nil, campaign.Source)
		if err != nil {
			return nil, fmt.Errorf("capturing channel: %w", err)
		}
		result.ChannelIDs = append(result.ChannelIDs, channelID)

		relID, err := c.link(ctx, campaignID, channelID, models.RelationUses)
		if err != nil {
			return nil, err
		}
		result.RelationshipIDs = append(result.RelationshipIDs, relID)
	}

	c.logger.Info("captured campaign",
		"campaign", campaign.Name, "relationships", len(result.RelationshipIDs))
	return result, nil
}

// CaptureExtraction records the entities and relationships an extractor
// pulled out of a brief. Relationships referencing entities the extractor
// did not name are resolved against existing entities by name; unresolved
// ones are skipped and logged rather than failing the whole capture.
func (c *Capturer) CaptureExtraction(ctx context.Context, ex *Extraction, source string) (*CampaignResult, error) {
	result := &CampaignResult{}
	byName := make(map[string]string, len(ex.Entities))

	for _, ent := range ex.Entities {
		id, err := c.ensureEntity(ctx, ent.Name, ent.Type, ent.Description, ent.Tags, source)
		if err != nil {
			return nil, fmt.Errorf("capturing extracted entity %q: %w", ent.Name, err)
		}
		byName[ent.Name] = id
		if ent.Type == models.EntityTypeCampaign && result.CampaignID == "" {
			result.CampaignID = id
		}
	}

	for _, rel := range ex.Relationships {
		sourceID, err := c.resolveName(ctx, byName, rel.Source)
		if err != nil {
			return nil, err
		}
		targetID, err := c.resolveName(ctx, byName, rel.Target)
		if err != nil {
			return nil, err
		}
		if sourceID == "" || targetID == "" {
			c.logger.Warn("skipping extracted relationship with unknown endpoint",
				"source", rel.Source, "target", rel.Target, "type", rel.Type)
			continue
		}

		relID, err := c.engine.AddRelationship(ctx, &models.Relationship{
			SourceID: sourceID,
			TargetID: targetID,
			Type:     rel.Type,
			Weight:   rel.Confidence,
		})
		if err != nil {
			return nil, fmt.Errorf("capturing extracted relationship: %w", err)
		}
		result.RelationshipIDs = append(result.RelationshipIDs, relID)
	}

	return result, nil
}

// ensureEntity reuses an existing entity by name or creates a new one, and
// annotates it with the mention source either way.
func (c *Capturer) ensureEntity(ctx context.Context, name string, et models.EntityType, description string, tags []string, source string) (string, error) {
	existing, err := c.engine.GetEntityByName(ctx, name)
	if err != nil {
		return "", err
	}
	if existing != nil {
		if source != "" {
			existing.AddReference(source, "")
			if _, err := c.engine.AddEntity(ctx, existing); err != nil {
				return "", err
			}
		}
		return existing.ID, nil
	}

	entity := &models.Entity{
		Name:        name,
		Type:        et,
		Description: description,
		Tags:        tags,
	}
	if source != "" {
		entity.AddReference(source, "")
	}
	return c.engine.AddEntity(ctx, entity)
}

func (c *Capturer) link(ctx context.Context, sourceID, targetID string, rt models.RelationType) (string, error) {
	id, err := c.engine.AddRelationship(ctx, &models.Relationship{
		SourceID: sourceID,
		TargetID: targetID,
		Type:     rt,
		Weight:   1.0,
	})
	if err != nil {
		return "", fmt.Errorf("linking %s -%s-> %s: %w", sourceID, rt, targetID, err)
	}
	return id, nil
}

func (c *Capturer) resolveName(ctx context.Context, byName map[string]string, name string) (string, error) {
	if id, ok := byName[name]; ok {
		return id, nil
	}
	existing, err := c.engine.GetEntityByName(ctx, name)
	if err != nil {
		return "", err
	}
	if existing == nil {
		return "", nil
	}
	return existing.ID, nil
}
