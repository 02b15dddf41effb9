// Package mcp implements the Model Context Protocol server for adgraph.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/VeeDuvv/adgraph/internal/knowledge"
	"github.com/VeeDuvv/adgraph/internal/models"
)

const (
	// defaultRelatedDepth is the default hop count for the related tool.
	defaultRelatedDepth = 1

	// defaultPathDepth is the default edge bound for find_paths.
	defaultPathDepth = 3
)

// Server wraps an MCPServer with the adgraph engine.
type Server struct {
	mcp    *mcpserver.MCPServer
	engine *knowledge.Engine
	logger *slog.Logger
}

// NewServer creates a new MCP server. If engine is nil, tool calls return
// an error response instead of panicking.
func NewServer(engine *knowledge.Engine, logger *slog.Logger) *Server {
	s := &Server{
		engine: engine,
		logger: logger,
	}

	mcpSrv := mcpserver.NewMCPServer(
		"adgraph",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildAddEntityTool(), s.handleAddEntity)
	mcpSrv.AddTool(buildGetEntityTool(), s.handleGetEntity)
	mcpSrv.AddTool(buildAddRelationshipTool(), s.handleAddRelationship)
	mcpSrv.AddTool(buildFindEntitiesTool(), s.handleFindEntities)
	mcpSrv.AddTool(buildRelatedTool(), s.handleRelated)
	mcpSrv.AddTool(buildFindPathsTool(), s.handleFindPaths)
	mcpSrv.AddTool(buildStatsTool(), s.handleStats)

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go MCPServer for use with ServeStdio.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// HandleAddEntity is the exported handler for the "add_entity" tool.
// It is exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandleAddEntity(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleAddEntity(ctx, req)
}

// HandleGetEntity is the exported handler for the "get_entity" tool.
func (s *Server) HandleGetEntity(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleGetEntity(ctx, req)
}

// HandleAddRelationship is the exported handler for the "add_relationship" tool.
func (s *Server) HandleAddRelationship(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleAddRelationship(ctx, req)
}

// HandleFindEntities is the exported handler for the "find_entities" tool.
func (s *Server) HandleFindEntities(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleFindEntities(ctx, req)
}

// HandleRelated is the exported handler for the "related" tool.
func (s *Server) HandleRelated(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleRelated(ctx, req)
}

// HandleFindPaths is the exported handler for the "find_paths" tool.
func (s *Server) HandleFindPaths(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleFindPaths(ctx, req)
}

// HandleStats is the exported handler for the "stats" tool.
func (s *Server) HandleStats(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleStats(ctx, req)
}

// --- helpers ---

// toolResultJSON marshals v to JSON and returns it as a tool text result.
func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

func entityTypeNames() string {
	names := make([]string, len(models.ValidEntityTypes))
	for i, et := range models.ValidEntityTypes {
		names[i] = string(et)
	}
	return strings.Join(names, ", ")
}

// --- tool definitions ---

func buildAddEntityTool() mcpgo.Tool {
	return mcpgo.NewTool("add_entity",
		mcpgo.WithDescription("Store a knowledge entity in the graph."),
		mcpgo.WithString("name",
			mcpgo.Required(),
			mcpgo.Description("The entity name"),
		),
		mcpgo.WithString("type",
			mcpgo.Required(),
			mcpgo.Description("Entity type, one of: "+entityTypeNames()),
		),
		mcpgo.WithString("description",
			mcpgo.Required(),
			mcpgo.Description("Short description of the entity"),
		),
		mcpgo.WithString("details",
			mcpgo.Description("Optional detailed description"),
		),
		mcpgo.WithString("tags",
			mcpgo.Description("Comma-separated tags"),
		),
	)
}

func buildGetEntityTool() mcpgo.Tool {
	return mcpgo.NewTool("get_entity",
		mcpgo.WithDescription("Retrieve an entity by id or by exact (case-insensitive) name."),
		mcpgo.WithString("id",
			mcpgo.Description("Entity id"),
		),
		mcpgo.WithString("name",
			mcpgo.Description("Entity name, used when id is not given"),
		),
	)
}

func buildAddRelationshipTool() mcpgo.Tool {
	return mcpgo.NewTool("add_relationship",
		mcpgo.WithDescription("Create a typed directed relationship between two entities."),
		mcpgo.WithString("source_id",
			mcpgo.Required(),
			mcpgo.Description("Source entity id"),
		),
		mcpgo.WithString("target_id",
			mcpgo.Required(),
			mcpgo.Description("Target entity id"),
		),
		mcpgo.WithString("type",
			mcpgo.Required(),
			mcpgo.Description("Relation type from the closed vocabulary, e.g. promotes, targets, uses, part_of"),
		),
		mcpgo.WithString("description",
			mcpgo.Description("Optional description of the relationship"),
		),
		mcpgo.WithNumber("weight",
			mcpgo.Description("Strength 0.0-1.0 (default 1.0; out-of-range values are clamped)"),
		),
		mcpgo.WithBoolean("bidirectional",
			mcpgo.Description("Whether the relationship is traversable in both directions"),
		),
	)
}

func buildFindEntitiesTool() mcpgo.Tool {
	return mcpgo.NewTool("find_entities",
		mcpgo.WithDescription("Find entities by substring query, type, or tags. Exactly one selector is used."),
		mcpgo.WithString("query",
			mcpgo.Description("Case-insensitive substring matched against names, descriptions, and tags"),
		),
		mcpgo.WithString("type",
			mcpgo.Description("Entity type, one of: "+entityTypeNames()),
		),
		mcpgo.WithString("tags",
			mcpgo.Description("Comma-separated tags"),
		),
		mcpgo.WithBoolean("match_all",
			mcpgo.Description("Require all tags (intersection) instead of any (union)"),
		),
	)
}

func buildRelatedTool() mcpgo.Tool {
	return mcpgo.NewTool("related",
		mcpgo.WithDescription("Expand the neighborhood of an entity up to a hop bound, grouped by relation type."),
		mcpgo.WithString("id",
			mcpgo.Required(),
			mcpgo.Description("Entity id to expand from"),
		),
		mcpgo.WithString("types",
			mcpgo.Description("Comma-separated relation types to follow; empty follows all"),
		),
		mcpgo.WithNumber("depth",
			mcpgo.Description("Maximum hops (default 1)"),
		),
	)
}

func buildFindPathsTool() mcpgo.Tool {
	return mcpgo.NewTool("find_paths",
		mcpgo.WithDescription("Enumerate simple directed paths between two entities."),
		mcpgo.WithString("source",
			mcpgo.Required(),
			mcpgo.Description("Source entity id"),
		),
		mcpgo.WithString("target",
			mcpgo.Required(),
			mcpgo.Description("Target entity id"),
		),
		mcpgo.WithNumber("max_depth",
			mcpgo.Description("Maximum path length in edges (default 3, capped)"),
		),
	)
}

func buildStatsTool() mcpgo.Tool {
	return mcpgo.NewTool("stats",
		mcpgo.WithDescription("Graph statistics: counts, type histograms, centrality, density, connectivity, diameter."),
	)
}

// --- tool handlers ---

func (s *Server) handleAddEntity(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.engine == nil {
		return mcpgo.NewToolResultError("engine is unavailable"), nil
	}

	entity := &models.Entity{
		Name:        req.GetString("name", ""),
		Type:        models.EntityType(req.GetString("type", "")),
		Description: req.GetString("description", ""),
		Details:     req.GetString("details", ""),
		Tags:        splitTags(req.GetString("tags", "")),
	}

	id, err := s.engine.AddEntity(ctx, entity)
	if err != nil {
		return mcpgo.NewToolResultErrorf("add_entity failed: %s", err.Error()), nil
	}

	s.logger.Info("mcp: stored entity", "id", id, "name", entity.Name, "type", entity.Type)
	return toolResultJSON(map[string]any{"id": id, "stored": true})
}

func (s *Server) handleGetEntity(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.engine == nil {
		return mcpgo.NewToolResultError("engine is unavailable"), nil
	}

	id := req.GetString("id", "")
	name := req.GetString("name", "")
	if id == "" && name == "" {
		return mcpgo.NewToolResultError("id or name is required"), nil
	}

	var (
		entity *models.Entity
		err    error
	)
	if id != "" {
		entity, err = s.engine.GetEntity(ctx, id)
	} else {
		entity, err = s.engine.GetEntityByName(ctx, name)
	}
	if err != nil {
		return mcpgo.NewToolResultErrorf("get_entity failed: %s", err.Error()), nil
	}
	if entity == nil {
		return toolResultJSON(map[string]any{"found": false})
	}
	return toolResultJSON(map[string]any{"found": true, "entity": entity})
}

func (s *Server) handleAddRelationship(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.engine == nil {
		return mcpgo.NewToolResultError("engine is unavailable"), nil
	}

	rel := &models.Relationship{
		SourceID:      req.GetString("source_id", ""),
		TargetID:      req.GetString("target_id", ""),
		Type:          models.RelationType(req.GetString("type", "")),
		Description:   req.GetString("description", ""),
		Weight:        req.GetFloat("weight", 1.0),
		Bidirectional: req.GetBool("bidirectional", false),
	}

	id, err := s.engine.AddRelationship(ctx, rel)
	if err != nil {
		return mcpgo.NewToolResultErrorf("add_relationship failed: %s", err.Error()), nil
	}

	s.logger.Info("mcp: stored relationship",
		"id", id, "source", rel.SourceID, "type", rel.Type, "target", rel.TargetID)
	return toolResultJSON(map[string]any{"id": id, "stored": true})
}

func (s *Server) handleFindEntities(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.engine == nil {
		return mcpgo.NewToolResultError("engine is unavailable"), nil
	}

	query := req.GetString("query", "")
	entityType := req.GetString("type", "")
	tags := splitTags(req.GetString("tags", ""))

	var (
		entities []*models.Entity
		err      error
	)
	switch {
	case query != "":
		entities, err = s.engine.FindEntities(ctx, query)
	case entityType != "":
		entities, err = s.engine.FindEntitiesByType(ctx, models.EntityType(entityType))
	case len(tags) > 0:
		entities, err = s.engine.FindEntitiesByTags(ctx, tags, req.GetBool("match_all", false))
	default:
		return mcpgo.NewToolResultError("one of query, type, or tags is required"), nil
	}
	if err != nil {
		return mcpgo.NewToolResultErrorf("find_entities failed: %s", err.Error()), nil
	}

	return toolResultJSON(map[string]any{"entities": entities, "count": len(entities)})
}

func (s *Server) handleRelated(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.engine == nil {
		return mcpgo.NewToolResultError("engine is unavailable"), nil
	}

	id := req.GetString("id", "")
	if strings.TrimSpace(id) == "" {
		return mcpgo.NewToolResultError("id is required and must not be empty"), nil
	}

	var relTypes []models.RelationType
	for _, t := range splitTags(req.GetString("types", "")) {
		rt := models.RelationType(t)
		if !rt.IsValid() {
			return mcpgo.NewToolResultErrorf("unknown relation type %q", t), nil
		}
		relTypes = append(relTypes, rt)
	}

	depth := req.GetInt("depth", defaultRelatedDepth)
	related := s.engine.GetRelatedEntities(id, relTypes, depth)
	return toolResultJSON(map[string]any{"related": related})
}

func (s *Server) handleFindPaths(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.engine == nil {
		return mcpgo.NewToolResultError("engine is unavailable"), nil
	}

	source := req.GetString("source", "")
	target := req.GetString("target", "")
	if source == "" || target == "" {
		return mcpgo.NewToolResultError("source and target are required"), nil
	}

	paths := s.engine.FindPaths(source, target, req.GetInt("max_depth", defaultPathDepth))
	if paths == nil {
		paths = []models.Path{}
	}
	return toolResultJSON(map[string]any{"paths": paths, "count": len(paths)})
}

func (s *Server) handleStats(_ context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.engine == nil {
		return mcpgo.NewToolResultError("engine is unavailable"), nil
	}
	return toolResultJSON(s.engine.GetStatistics())
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
