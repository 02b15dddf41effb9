package capture

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/VeeDuvv/adgraph/internal/models"
)

// minConfidence is the floor below which extracted facts are discarded.
const minConfidence = 0.5

// briefExtractionPromptTemplate asks Claude to pull advertising entities and
// relationships out of a campaign brief. The brief is injected via an XML tag
// to prevent prompt injection attacks.
const briefExtractionPromptTemplate = `You are an advertising knowledge extraction system. Analyze the campaign brief and identify entities and the relationships between them.

For each entity provide:
- name: The canonical name of the entity
- type: One of "campaign", "brand", "audience", "channel", "metric", "concept", "company", "person"
- description: A one-sentence description grounded in the brief
- tags: Short lowercase keywords (may be empty)
- confidence: Your confidence in this entity from 0.0 to 1.0

For each relationship provide:
- source: The name of the source entity (must appear in the entities list)
- target: The name of the target entity
- type: One of "promotes", "targets", "uses", "measures", "owns", "competes_with", "part_of", "depends_on", "mentions", "related_to"
- confidence: Your confidence from 0.0 to 1.0

Return a JSON object with "entities" and "relationships" arrays. If nothing notable is found, return {"entities": [], "relationships": []}.

<brief>%s</brief>

Extract as JSON:`

// ExtractedEntity is one entity pulled from a brief.
type ExtractedEntity struct {
	Name        string            `json:"name"`
	Type        models.EntityType `json:"type"`
	Description string            `json:"description"`
	Tags        []string          `json:"tags"`
	Confidence  float64           `json:"confidence"`
}

// ExtractedRelationship is one relationship pulled from a brief. Source and
// Target are entity names, resolved to IDs at capture time.
type ExtractedRelationship struct {
	Source     string              `json:"source"`
	Target     string              `json:"target"`
	Type       models.RelationType `json:"type"`
	Confidence float64             `json:"confidence"`
}

// Extraction is the structured result of analyzing one brief.
type Extraction struct {
	Entities      []ExtractedEntity       `json:"entities"`
	Relationships []ExtractedRelationship `json:"relationships"`
}

// BriefExtractor turns free-form campaign briefs into structured graph
// facts using Claude.
type BriefExtractor struct {
	client *anthropic.Client
	model  string
	logger *slog.Logger
}

// NewBriefExtractor creates a brief extractor backed by the Claude API.
func NewBriefExtractor(apiKey, model string, logger *slog.Logger) *BriefExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &BriefExtractor{
		client: &c,
		model:  model,
		logger: logger,
	}
}

// Extract analyzes a campaign brief and returns the entities and
// relationships it mentions. On API error it logs a warning and returns an
// empty extraction for graceful degradation.
func (e *BriefExtractor) Extract(ctx context.Context, brief string) (*Extraction, error) {
	prompt := fmt.Sprintf(briefExtractionPromptTemplate, xmlEscape(brief))

	resp, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(e.model),
		MaxTokens: 2048,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
		System: []anthropic.TextBlockParam{
			{Text: "You are a precise advertising knowledge extraction system. Output only valid JSON."},
		},
	})
	if err != nil {
		e.logger.Warn("brief extraction: Claude API error, skipping", "error", err)
		return &Extraction{}, nil
	}

	var responseText string
	for i := range resp.Content {
		if resp.Content[i].Type == "text" {
			responseText = resp.Content[i].Text
			break
		}
	}

	if responseText == "" {
		e.logger.Warn("brief extraction: empty response from Claude")
		return &Extraction{}, nil
	}

	e.logger.Debug("brief extraction response", "response", responseText)

	raw, err := parseExtraction(responseText)
	if err != nil {
		return nil, fmt.Errorf("brief extraction: %w", err)
	}

	return filterExtraction(raw, e.logger), nil
}

// parseExtraction accepts either the requested object shape or a bare
// entities array, which some models return despite instructions.
func parseExtraction(text string) (*Extraction, error) {
	text = strings.TrimSpace(text)

	var out Extraction
	if err := json.Unmarshal([]byte(text), &out); err == nil {
		return &out, nil
	}

	var entities []ExtractedEntity
	if err := json.Unmarshal([]byte(text), &entities); err == nil {
		return &Extraction{Entities: entities}, nil
	}

	return nil, fmt.Errorf("parsing response: not a JSON object or array (raw: %s)", text)
}

// filterExtraction drops low-confidence facts, unknown vocabulary, and
// relationships whose endpoints did not survive the entity filter.
func filterExtraction(raw *Extraction, logger *slog.Logger) *Extraction {
	out := &Extraction{}
	kept := make(map[string]bool, len(raw.Entities))

	for _, ent := range raw.Entities {
		if ent.Name == "" || ent.Confidence < minConfidence {
			continue
		}
		if !ent.Type.IsValid() {
			logger.Warn("brief extraction: unknown entity type, defaulting to concept",
				"type", ent.Type, "name", ent.Name)
			ent.Type = models.EntityTypeConcept
		}
		out.Entities = append(out.Entities, ent)
		kept[ent.Name] = true
	}

	for _, rel := range raw.Relationships {
		if rel.Confidence < minConfidence {
			continue
		}
		if !rel.Type.IsValid() {
			logger.Warn("brief extraction: skipping unknown relationship type",
				"type", rel.Type, "source", rel.Source, "target", rel.Target)
			continue
		}
		if !kept[rel.Source] || !kept[rel.Target] {
			logger.Warn("brief extraction: skipping relationship with filtered endpoint",
				"source", rel.Source, "target", rel.Target)
			continue
		}
		out.Relationships = append(out.Relationships, rel)
	}

	return out
}

// xmlEscape replaces characters with special meaning in XML so user content
// cannot break out of the prompt's delimiting tags.
func xmlEscape(s string) string {
	var buf strings.Builder
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}
