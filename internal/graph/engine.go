package graph

import (
	"log/slog"
	"sort"

	"github.com/VeeDuvv/adgraph/internal/models"
)

// Engine runs traversal and summary queries against an Index. It never
// touches durable storage.
type Engine struct {
	idx    *Index
	logger *slog.Logger

	// MaxPathDepth caps find-paths depth requests; enumeration cost grows
	// exponentially with depth.
	MaxPathDepth int

	// MaxPaths caps the number of returned paths.
	MaxPaths int

	// TopConnected is how many entities the degree-centrality ranking
	// surfaces.
	TopConnected int
}

const (
	defaultMaxPathDepth = 10
	defaultMaxPaths     = 100
	defaultTopConnected = 10
)

// NewEngine returns an Engine with default limits.
func NewEngine(idx *Index, logger *slog.Logger) *Engine {
	return &Engine{
		idx:          idx,
		logger:       logger,
		MaxPathDepth: defaultMaxPathDepth,
		MaxPaths:     defaultMaxPaths,
		TopConnected: defaultTopConnected,
	}
}

// Neighbors expands breadth-first from id over outgoing and incoming edges
// up to depth hops, grouped by relation type. Depth below 1 is treated as
// 1. The origin never appears in the result, and a visited set keeps each
// node to its shortest discovery distance, so cycles cannot recur. An
// unknown id yields an empty result, not an error.
func (e *Engine) Neighbors(id string, relTypes []models.RelationType, depth int) map[models.RelationType][]models.RelatedEntity {
	result := make(map[models.RelationType][]models.RelatedEntity)
	if !e.idx.HasEntity(id) {
		return result
	}
	if depth < 1 {
		depth = 1
	}

	typeFilter := make(map[models.RelationType]struct{}, len(relTypes))
	for _, rt := range relTypes {
		typeFilter[rt] = struct{}{}
	}

	type item struct {
		id   string
		dist int
	}
	visited := map[string]struct{}{id: {}}
	queue := []item{{id: id, dist: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.dist >= depth {
			continue
		}

		expand := func(edges []*models.GraphEdge, neighborOf func(*models.GraphEdge) string, dir models.Direction) {
			for _, edge := range edges {
				if len(typeFilter) > 0 {
					if _, ok := typeFilter[edge.Type]; !ok {
						continue
					}
				}
				next := neighborOf(edge)
				if _, seen := visited[next]; seen {
					continue
				}
				entity := e.idx.Entity(next)
				if entity == nil {
					continue
				}
				visited[next] = struct{}{}
				result[edge.Type] = append(result[edge.Type], models.RelatedEntity{
					Entity:    *entity,
					Type:      edge.Type,
					Direction: dir,
					Distance:  cur.dist + 1,
					Weight:    edge.Weight,
				})
				queue = append(queue, item{id: next, dist: cur.dist + 1})
			}
		}

		expand(e.idx.OutEdges(cur.id), func(g *models.GraphEdge) string { return g.TargetID }, models.DirectionOutgoing)
		expand(e.idx.InEdges(cur.id), func(g *models.GraphEdge) string { return g.SourceID }, models.DirectionIncoming)
	}

	return result
}

// FindPaths enumerates simple directed paths from source to target with at
// most maxDepth edges, using an explicit stack with backtracking rather
// than recursion. source == target yields exactly one empty path. Depth is
// clamped to MaxPathDepth and the result count to MaxPaths; no paths
// within bound is an empty list, never an error.
func (e *Engine) FindPaths(source, target string, maxDepth int) []models.Path {
	if !e.idx.HasEntity(source) || !e.idx.HasEntity(target) {
		return nil
	}
	if source == target {
		return []models.Path{{}}
	}
	if maxDepth > e.MaxPathDepth {
		e.logger.Debug("clamping path depth", "requested", maxDepth, "max", e.MaxPathDepth)
		maxDepth = e.MaxPathDepth
	}
	if maxDepth <= 0 {
		return nil
	}

	type frame struct {
		node    string
		edgeIdx int
	}

	var paths []models.Path
	var path []models.PathStep
	visited := map[string]struct{}{source: {}}
	stack := []frame{{node: source}}

	for len(stack) > 0 && len(paths) < e.MaxPaths {
		f := &stack[len(stack)-1]
		edges := e.idx.OutEdges(f.node)

		if f.edgeIdx >= len(edges) {
			stack = stack[:len(stack)-1]
			if f.node != source {
				delete(visited, f.node)
				path = path[:len(path)-1]
			}
			continue
		}

		edge := edges[f.edgeIdx]
		f.edgeIdx++

		step := models.PathStep{FromID: f.node, Type: edge.Type, ToID: edge.TargetID}

		if edge.TargetID == target {
			found := make(models.Path, len(path)+1)
			copy(found, path)
			found[len(path)] = step
			paths = append(paths, found)
			continue
		}

		if _, seen := visited[edge.TargetID]; seen {
			continue
		}
		// Extending through this node only helps if another edge still
		// fits under the depth bound.
		if len(path)+1 >= maxDepth {
			continue
		}

		visited[edge.TargetID] = struct{}{}
		path = append(path, step)
		stack = append(stack, frame{node: edge.TargetID})
	}

	return paths
}

// Statistics computes summary metrics over the current graph. It never
// fails: an empty graph reports zero counts and an unknown (-1) diameter.
func (e *Engine) Statistics() models.GraphStats {
	stats := models.GraphStats{
		EntityCount:       e.idx.EntityCount(),
		RelationshipCount: e.idx.RelationshipCount(),
		EntityTypes:       make(map[string]int),
		RelationTypes:     make(map[string]int),
		Diameter:          -1,
	}

	ids := e.idx.EntityIDs()
	edgeCount := 0
	for _, id := range ids {
		stats.EntityTypes[string(e.idx.Entity(id).Type)]++
		for _, edge := range e.idx.OutEdges(id) {
			edgeCount++
			if !edge.Key.Reverse {
				stats.RelationTypes[string(edge.Type)]++
			}
		}
	}

	n := len(ids)
	if n > 1 {
		stats.Density = float64(edgeCount) / float64(n*(n-1))
	}

	stats.TopConnected = e.topConnected(ids)
	stats.StronglyConnected = e.stronglyConnected(ids)
	stats.AvgClustering = e.avgClustering(ids)

	if n > 0 && stats.StronglyConnected {
		stats.Diameter = e.diameter(ids)
	}

	return stats
}

// topConnected ranks entities by degree centrality, ties broken by name
// for stable output.
func (e *Engine) topConnected(ids []string) []models.EntityDegree {
	n := len(ids)
	if n == 0 {
		return nil
	}

	degrees := make([]models.EntityDegree, 0, n)
	for _, id := range ids {
		deg := len(e.idx.OutEdges(id)) + len(e.idx.InEdges(id))
		centrality := 0.0
		if n > 1 {
			centrality = float64(deg) / float64(n-1)
		}
		degrees = append(degrees, models.EntityDegree{
			EntityID:   id,
			Name:       e.idx.Entity(id).Name,
			Degree:     deg,
			Centrality: centrality,
		})
	}

	sort.Slice(degrees, func(i, j int) bool {
		if degrees[i].Degree != degrees[j].Degree {
			return degrees[i].Degree > degrees[j].Degree
		}
		return degrees[i].Name < degrees[j].Name
	})

	if len(degrees) > e.TopConnected {
		degrees = degrees[:e.TopConnected]
	}
	return degrees
}

// stronglyConnected checks that every node is reachable from an arbitrary
// root following edges forward, and again following them backward.
func (e *Engine) stronglyConnected(ids []string) bool {
	if len(ids) == 0 {
		return false
	}
	if len(ids) == 1 {
		return true
	}

	root := ids[0]
	forward := e.reachable(root, func(id string) []string {
		var next []string
		for _, edge := range e.idx.OutEdges(id) {
			next = append(next, edge.TargetID)
		}
		return next
	})
	if len(forward) != len(ids) {
		return false
	}

	backward := e.reachable(root, func(id string) []string {
		var next []string
		for _, edge := range e.idx.InEdges(id) {
			next = append(next, edge.SourceID)
		}
		return next
	})
	return len(backward) == len(ids)
}

// reachable runs BFS from root using the given successor function.
func (e *Engine) reachable(root string, succ func(string) []string) map[string]struct{} {
	visited := map[string]struct{}{root: {}}
	queue := []string{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range succ(cur) {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			queue = append(queue, next)
		}
	}
	return visited
}

// avgClustering computes the average local clustering coefficient over the
// undirected projection of the graph.
func (e *Engine) avgClustering(ids []string) float64 {
	n := len(ids)
	if n == 0 {
		return 0
	}

	// Undirected neighbor sets, self-loops excluded.
	adj := make(map[string]map[string]struct{}, n)
	neighborsOf := func(id string) map[string]struct{} {
		if set, ok := adj[id]; ok {
			return set
		}
		set := make(map[string]struct{})
		for _, edge := range e.idx.OutEdges(id) {
			if edge.TargetID != id {
				set[edge.TargetID] = struct{}{}
			}
		}
		for _, edge := range e.idx.InEdges(id) {
			if edge.SourceID != id {
				set[edge.SourceID] = struct{}{}
			}
		}
		adj[id] = set
		return set
	}

	total := 0.0
	for _, id := range ids {
		neighbors := neighborsOf(id)
		k := len(neighbors)
		if k < 2 {
			continue
		}
		links := 0
		neighborList := make([]string, 0, k)
		for nb := range neighbors {
			neighborList = append(neighborList, nb)
		}
		for i := 0; i < len(neighborList); i++ {
			for j := i + 1; j < len(neighborList); j++ {
				if _, ok := neighborsOf(neighborList[i])[neighborList[j]]; ok {
					links++
				}
			}
		}
		total += 2.0 * float64(links) / float64(k*(k-1))
	}

	return total / float64(n)
}

// diameter is the maximum shortest-path distance between any node pair,
// found by a BFS from every node. Only called on a non-empty, strongly
// connected graph, where every pairwise distance is finite.
func (e *Engine) diameter(ids []string) int {
	longest := 0
	for _, root := range ids {
		dist := map[string]int{root: 0}
		queue := []string{root}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, edge := range e.idx.OutEdges(cur) {
				if _, seen := dist[edge.TargetID]; seen {
					continue
				}
				dist[edge.TargetID] = dist[cur] + 1
				if dist[edge.TargetID] > longest {
					longest = dist[edge.TargetID]
				}
				queue = append(queue, edge.TargetID)
			}
		}
	}
	return longest
}
