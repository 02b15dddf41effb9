package capture

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VeeDuvv/adgraph/internal/knowledge"
	"github.com/VeeDuvv/adgraph/internal/models"
	"github.com/VeeDuvv/adgraph/internal/store"
)

func newTestCapturer(t *testing.T) (*Capturer, *knowledge.Engine) {
	t.Helper()
	st, err := store.Open(store.Config{InMemory: true, Logger: slog.Default()})
	require.NoError(t, err)

	eng, err := knowledge.Open(context.Background(), st, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	return NewCapturer(eng, slog.Default()), eng
}

func TestCaptureCampaignCreatesEntitiesAndLinks(t *testing.T) {
	c, eng := newTestCapturer(t)
	ctx := context.Background()

	result, err := c.CaptureCampaign(ctx, Campaign{
		Name:        "Holiday Push",
		Description: "Q4 holiday campaign",
		Brand:       "Acme",
		Audiences:   []string{"Gen Z", "Parents"},
		Channels:    []string{"CTV"},
		Tags:        []string{"q4"},
		Source:      "brief-2026-q4.md",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.CampaignID)
	assert.NotEmpty(t, result.BrandID)
	assert.Len(t, result.AudienceIDs, 2)
	assert.Len(t, result.ChannelIDs, 1)
	// promotes + 2x targets + uses
	assert.Len(t, result.RelationshipIDs, 4)

	campaign, err := eng.GetEntity(ctx, result.CampaignID)
	require.NoError(t, err)
	require.NotNil(t, campaign)
	assert.Equal(t, models.EntityTypeCampaign, campaign.Type)
	require.Len(t, campaign.References, 1)
	assert.Equal(t, "brief-2026-q4.md", campaign.References[0].Source)

	related := eng.GetRelatedEntities(result.CampaignID, nil, 1)
	assert.Len(t, related[models.RelationPromotes], 1)
	assert.Len(t, related[models.RelationTargets], 2)
	assert.Len(t, related[models.RelationUses], 1)
}

func TestCaptureCampaignReusesExistingEntities(t *testing.T) {
	c, eng := newTestCapturer(t)
	ctx := context.Background()

	brandID, err := eng.AddEntity(ctx, &models.Entity{
		Name: "Acme", Type: models.EntityTypeBrand, Description: "existing brand",
	})
	require.NoError(t, err)

	result, err := c.CaptureCampaign(ctx, Campaign{Name: "Spring Sale", Brand: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, brandID, result.BrandID)

	// No duplicate brand was created.
	brands, err := eng.FindEntitiesByType(ctx, models.EntityTypeBrand)
	require.NoError(t, err)
	assert.Len(t, brands, 1)
}

func TestCaptureCampaignRequiresName(t *testing.T) {
	c, _ := newTestCapturer(t)

	var verr *models.ValidationError
	_, err := c.CaptureCampaign(context.Background(), Campaign{})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestCaptureExtraction(t *testing.T) {
	c, eng := newTestCapturer(t)
	ctx := context.Background()

	ex := &Extraction{
		Entities: []ExtractedEntity{
			{Name: "Summer Splash", Type: models.EntityTypeCampaign, Description: "summer campaign", Confidence: 0.9},
			{Name: "WaveCo", Type: models.EntityTypeBrand, Description: "beverage brand", Confidence: 0.8},
		},
		Relationships: []ExtractedRelationship{
			{Source: "Summer Splash", Target: "WaveCo", Type: models.RelationPromotes, Confidence: 0.85},
			{Source: "Summer Splash", Target: "Unknown Thing", Type: models.RelationMentions, Confidence: 0.9},
		},
	}

	result, err := c.CaptureExtraction(ctx, ex, "summer-brief.txt")
	require.NoError(t, err)
	assert.NotEmpty(t, result.CampaignID)

	// The relationship with the unresolvable endpoint is skipped.
	assert.Len(t, result.RelationshipIDs, 1)

	brand, err := eng.GetEntityByName(ctx, "WaveCo")
	require.NoError(t, err)
	require.NotNil(t, brand)

	related := eng.GetRelatedEntities(result.CampaignID, nil, 1)
	require.Len(t, related[models.RelationPromotes], 1)
	assert.Equal(t, brand.ID, related[models.RelationPromotes][0].Entity.ID)
	assert.InDelta(t, 0.85, related[models.RelationPromotes][0].Weight, 1e-9)
}

func TestParseExtractionShapes(t *testing.T) {
	obj, err := parseExtraction(`{"entities": [{"name": "A", "type": "brand", "confidence": 0.9}], "relationships": []}`)
	require.NoError(t, err)
	require.Len(t, obj.Entities, 1)
	assert.Equal(t, "A", obj.Entities[0].Name)

	arr, err := parseExtraction(`[{"name": "B", "type": "channel", "confidence": 0.7}]`)
	require.NoError(t, err)
	require.Len(t, arr.Entities, 1)
	assert.Equal(t, "B", arr.Entities[0].Name)

	_, err = parseExtraction("not json at all")
	assert.Error(t, err)
}

func TestFilterExtraction(t *testing.T) {
	raw := &Extraction{
		Entities: []ExtractedEntity{
			{Name: "Keep", Type: models.EntityTypeBrand, Confidence: 0.9},
			{Name: "TooVague", Type: models.EntityTypeBrand, Confidence: 0.2},
			{Name: "OddType", Type: "gizmo", Confidence: 0.8},
			{Name: "", Type: models.EntityTypeBrand, Confidence: 0.9},
		},
		Relationships: []ExtractedRelationship{
			{Source: "Keep", Target: "OddType", Type: models.RelationCompetesWith, Confidence: 0.9},
			{Source: "Keep", Target: "TooVague", Type: models.RelationCompetesWith, Confidence: 0.9},
			{Source: "Keep", Target: "OddType", Type: "zaps", Confidence: 0.9},
			{Source: "Keep", Target: "OddType", Type: models.RelationMentions, Confidence: 0.1},
		},
	}

	out := filterExtraction(raw, slog.Default())

	require.Len(t, out.Entities, 2)
	assert.Equal(t, "Keep", out.Entities[0].Name)
	// Unknown entity types are coerced, not dropped.
	assert.Equal(t, models.EntityTypeConcept, out.Entities[1].Type)

	// Only the relationship between surviving entities with a known type
	// and sufficient confidence remains.
	require.Len(t, out.Relationships, 1)
	assert.Equal(t, models.RelationCompetesWith, out.Relationships[0].Type)
}

func TestXMLEscape(t *testing.T) {
	assert.Equal(t, "&lt;brief&gt;&amp;", xmlEscape("<brief>&"))
	assert.Equal(t, "plain text", xmlEscape("plain text"))
}
