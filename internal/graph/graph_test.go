package graph

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VeeDuvv/adgraph/internal/models"
)

func newTestGraph() (*Index, *Engine) {
	idx := NewIndex(slog.Default())
	return idx, NewEngine(idx, slog.Default())
}

func putEntity(idx *Index, id, name string) {
	idx.PutEntity(&models.Entity{
		ID:          id,
		Name:        name,
		Type:        models.EntityTypeConcept,
		Description: name,
	})
}

func link(idx *Index, id, source, target string, rt models.RelationType, bidirectional bool) *models.Relationship {
	rel := &models.Relationship{
		ID:            id,
		SourceID:      source,
		TargetID:      target,
		Type:          rt,
		Weight:        1.0,
		Bidirectional: bidirectional,
	}
	idx.AddRelationship(rel)
	return rel
}

func TestAddRelationshipUnknownEndpoint(t *testing.T) {
	idx, _ := newTestGraph()
	putEntity(idx, "a", "A")

	ok := idx.AddRelationship(&models.Relationship{
		ID: "r1", SourceID: "a", TargetID: "ghost", Type: models.RelationUses,
	})
	assert.False(t, ok)
	assert.Equal(t, 0, idx.RelationshipCount())
	assert.Empty(t, idx.OutEdges("a"))
}

func TestBidirectionalYieldsDerivedReverseEdge(t *testing.T) {
	idx, _ := newTestGraph()
	putEntity(idx, "campaign", "Campaign")
	putEntity(idx, "brand", "Brand")

	link(idx, "r1", "campaign", "brand", models.RelationPromotes, true)

	// One persisted relationship, two traversable edges.
	assert.Equal(t, 1, idx.RelationshipCount())

	out := idx.OutEdges("brand")
	require.Len(t, out, 1)
	assert.Equal(t, models.RelationPromotedBy, out[0].Type)
	assert.True(t, out[0].Key.Reverse)
	assert.Equal(t, "r1", out[0].Key.PrimaryID)

	primary := idx.OutEdges("campaign")
	require.Len(t, primary, 1)
	assert.False(t, primary[0].Key.Reverse)
}

func TestRemoveRelationshipDropsDerivedEdge(t *testing.T) {
	idx, _ := newTestGraph()
	putEntity(idx, "a", "A")
	putEntity(idx, "b", "B")

	rel := link(idx, "r1", "a", "b", models.RelationPartOf, true)
	idx.RemoveRelationship(rel)

	assert.Equal(t, 0, idx.RelationshipCount())
	assert.Empty(t, idx.OutEdges("a"))
	assert.Empty(t, idx.OutEdges("b"))
	assert.Empty(t, idx.InEdges("a"))
	assert.Empty(t, idx.InEdges("b"))
}

func TestRemoveEntityDropsTouchingEdges(t *testing.T) {
	idx, _ := newTestGraph()
	putEntity(idx, "a", "A")
	putEntity(idx, "b", "B")
	putEntity(idx, "c", "C")

	link(idx, "r1", "a", "b", models.RelationUses, false)
	link(idx, "r2", "c", "a", models.RelationMentions, false)
	link(idx, "r3", "b", "c", models.RelationRelatedTo, false)

	idx.RemoveEntity("a")

	assert.False(t, idx.HasEntity("a"))
	assert.Equal(t, 1, idx.RelationshipCount())
	assert.Empty(t, idx.InEdges("b"))
	assert.Empty(t, idx.OutEdges("c"))

	// The b -> c edge survives.
	require.Len(t, idx.OutEdges("b"), 1)
	assert.Equal(t, "r3", idx.OutEdges("b")[0].Key.PrimaryID)
}

func TestNeighborsDepthOne(t *testing.T) {
	idx, eng := newTestGraph()
	putEntity(idx, "campaign", "Campaign")
	putEntity(idx, "brand", "Brand")
	putEntity(idx, "audience", "Audience")
	putEntity(idx, "channel", "Channel")

	link(idx, "r1", "campaign", "brand", models.RelationPromotes, false)
	link(idx, "r2", "campaign", "audience", models.RelationTargets, false)
	link(idx, "r3", "channel", "campaign", models.RelationUsedBy, false)

	got := eng.Neighbors("campaign", nil, 1)

	require.Len(t, got[models.RelationPromotes], 1)
	assert.Equal(t, "brand", got[models.RelationPromotes][0].Entity.ID)
	assert.Equal(t, models.DirectionOutgoing, got[models.RelationPromotes][0].Direction)
	assert.Equal(t, 1, got[models.RelationPromotes][0].Distance)

	require.Len(t, got[models.RelationUsedBy], 1)
	assert.Equal(t, "channel", got[models.RelationUsedBy][0].Entity.ID)
	assert.Equal(t, models.DirectionIncoming, got[models.RelationUsedBy][0].Direction)

	// The origin itself never appears.
	for _, group := range got {
		for _, re := range group {
			assert.NotEqual(t, "campaign", re.Entity.ID)
		}
	}
}

func TestNeighborsDepthTwoAndTypeFilter(t *testing.T) {
	idx, eng := newTestGraph()
	putEntity(idx, "a", "A")
	putEntity(idx, "b", "B")
	putEntity(idx, "c", "C")

	link(idx, "r1", "a", "b", models.RelationUses, false)
	link(idx, "r2", "b", "c", models.RelationUses, false)

	shallow := eng.Neighbors("a", nil, 1)
	require.Len(t, shallow[models.RelationUses], 1)

	deep := eng.Neighbors("a", nil, 2)
	require.Len(t, deep[models.RelationUses], 2)
	for _, re := range deep[models.RelationUses] {
		if re.Entity.ID == "c" {
			assert.Equal(t, 2, re.Distance)
		}
	}

	filtered := eng.Neighbors("a", []models.RelationType{models.RelationPromotes}, 2)
	assert.Empty(t, filtered)
}

func TestNeighborsEdgeCases(t *testing.T) {
	idx, eng := newTestGraph()
	putEntity(idx, "a", "A")

	assert.Empty(t, eng.Neighbors("ghost", nil, 1))

	// Depth below 1 behaves as depth 1.
	putEntity(idx, "b", "B")
	link(idx, "r1", "a", "b", models.RelationUses, false)
	got := eng.Neighbors("a", nil, 0)
	assert.Len(t, got[models.RelationUses], 1)
}

func TestNeighborsCycleTerminates(t *testing.T) {
	idx, eng := newTestGraph()
	putEntity(idx, "a", "A")
	putEntity(idx, "b", "B")

	link(idx, "r1", "a", "b", models.RelationPrecedes, false)
	link(idx, "r2", "b", "a", models.RelationPrecedes, false)

	got := eng.Neighbors("a", nil, 5)
	assert.Len(t, got[models.RelationPrecedes], 1)
}

func TestFindPathsBasic(t *testing.T) {
	idx, eng := newTestGraph()
	putEntity(idx, "campaign", "Campaign")
	putEntity(idx, "brand", "Brand")
	putEntity(idx, "audience", "Audience")

	link(idx, "r1", "campaign", "brand", models.RelationPromotes, false)
	link(idx, "r2", "brand", "audience", models.RelationTargets, false)
	link(idx, "r3", "campaign", "audience", models.RelationTargets, false)

	paths := eng.FindPaths("campaign", "audience", 3)
	require.Len(t, paths, 2)

	lengths := []int{len(paths[0]), len(paths[1])}
	assert.ElementsMatch(t, []int{1, 2}, lengths)

	// Depth 1 only admits the direct edge.
	direct := eng.FindPaths("campaign", "audience", 1)
	require.Len(t, direct, 1)
	require.Len(t, direct[0], 1)
	assert.Equal(t, models.PathStep{FromID: "campaign", Type: models.RelationTargets, ToID: "audience"}, direct[0][0])
}

func TestFindPathsSameSourceAndTarget(t *testing.T) {
	idx, eng := newTestGraph()
	putEntity(idx, "a", "A")

	paths := eng.FindPaths("a", "a", 3)
	require.Len(t, paths, 1)
	assert.Empty(t, paths[0])
}

func TestFindPathsEdgeCases(t *testing.T) {
	idx, eng := newTestGraph()
	putEntity(idx, "a", "A")
	putEntity(idx, "b", "B")

	assert.Empty(t, eng.FindPaths("ghost", "a", 3))
	assert.Empty(t, eng.FindPaths("a", "ghost", 3))
	assert.Empty(t, eng.FindPaths("a", "b", 0))
	assert.Empty(t, eng.FindPaths("a", "b", 3))
}

func TestFindPathsAreSimple(t *testing.T) {
	idx, eng := newTestGraph()
	putEntity(idx, "a", "A")
	putEntity(idx, "b", "B")
	putEntity(idx, "c", "C")

	link(idx, "r1", "a", "b", models.RelationUses, false)
	link(idx, "r2", "b", "a", models.RelationUsedBy, false)
	link(idx, "r3", "b", "c", models.RelationUses, false)

	paths := eng.FindPaths("a", "c", 10)
	require.Len(t, paths, 1)
	assert.Len(t, paths[0], 2)
}

func TestFindPathsRespectsMaxPaths(t *testing.T) {
	idx, eng := newTestGraph()
	eng.MaxPaths = 3

	// Four parallel two-hop routes from s to t.
	putEntity(idx, "s", "S")
	putEntity(idx, "t", "T")
	for _, mid := range []string{"m1", "m2", "m3", "m4"} {
		putEntity(idx, mid, mid)
		link(idx, "in-"+mid, "s", mid, models.RelationUses, false)
		link(idx, "out-"+mid, mid, "t", models.RelationUses, false)
	}

	paths := eng.FindPaths("s", "t", 3)
	assert.Len(t, paths, 3)
}

func TestFindPathsTraversesDerivedReverseEdges(t *testing.T) {
	idx, eng := newTestGraph()
	putEntity(idx, "a", "A")
	putEntity(idx, "b", "B")
	putEntity(idx, "c", "C")

	// b -> a bidirectional gives a derived a -> b edge.
	link(idx, "r1", "b", "a", models.RelationPartOf, true)
	link(idx, "r2", "b", "c", models.RelationUses, false)

	paths := eng.FindPaths("a", "c", 3)
	require.Len(t, paths, 1)
	require.Len(t, paths[0], 2)
	assert.Equal(t, models.RelationHasPart, paths[0][0].Type)
}

func TestStatisticsEmptyGraph(t *testing.T) {
	_, eng := newTestGraph()

	stats := eng.Statistics()
	assert.Equal(t, 0, stats.EntityCount)
	assert.Equal(t, 0, stats.RelationshipCount)
	assert.Equal(t, 0.0, stats.Density)
	assert.False(t, stats.StronglyConnected)
	assert.Equal(t, -1, stats.Diameter)
	assert.Empty(t, stats.TopConnected)
}

func TestStatisticsSingleNode(t *testing.T) {
	idx, eng := newTestGraph()
	putEntity(idx, "a", "A")

	stats := eng.Statistics()
	assert.Equal(t, 1, stats.EntityCount)
	assert.True(t, stats.StronglyConnected)
	assert.Equal(t, 0, stats.Diameter)
}

func TestStatisticsCountsAndDensity(t *testing.T) {
	idx, eng := newTestGraph()
	putEntity(idx, "a", "A")
	putEntity(idx, "b", "B")
	putEntity(idx, "c", "C")

	link(idx, "r1", "a", "b", models.RelationUses, true)
	link(idx, "r2", "b", "c", models.RelationUses, false)

	stats := eng.Statistics()
	assert.Equal(t, 3, stats.EntityCount)
	assert.Equal(t, 2, stats.RelationshipCount)

	// Histograms count persisted records only; density counts every
	// traversable edge, derived ones included: 3 edges over 3*2 slots.
	assert.Equal(t, 2, stats.RelationTypes[string(models.RelationUses)])
	assert.NotContains(t, stats.RelationTypes, string(models.RelationUsedBy))
	assert.InDelta(t, 0.5, stats.Density, 1e-9)

	assert.Equal(t, 3, stats.EntityTypes[string(models.EntityTypeConcept)])
}

func TestStatisticsTopConnected(t *testing.T) {
	idx, eng := newTestGraph()
	eng.TopConnected = 2

	putEntity(idx, "hub", "Hub")
	putEntity(idx, "a", "A")
	putEntity(idx, "b", "B")
	putEntity(idx, "c", "C")

	link(idx, "r1", "hub", "a", models.RelationUses, false)
	link(idx, "r2", "hub", "b", models.RelationUses, false)
	link(idx, "r3", "c", "hub", models.RelationMentions, false)

	stats := eng.Statistics()
	require.Len(t, stats.TopConnected, 2)
	assert.Equal(t, "hub", stats.TopConnected[0].EntityID)
	assert.Equal(t, 3, stats.TopConnected[0].Degree)
	assert.InDelta(t, 1.0, stats.TopConnected[0].Centrality, 1e-9)
}

func TestStatisticsStrongConnectivityAndDiameter(t *testing.T) {
	idx, eng := newTestGraph()
	putEntity(idx, "a", "A")
	putEntity(idx, "b", "B")
	putEntity(idx, "c", "C")

	// Directed cycle a -> b -> c -> a.
	link(idx, "r1", "a", "b", models.RelationPrecedes, false)
	link(idx, "r2", "b", "c", models.RelationPrecedes, false)
	link(idx, "r3", "c", "a", models.RelationPrecedes, false)

	stats := eng.Statistics()
	assert.True(t, stats.StronglyConnected)
	assert.Equal(t, 2, stats.Diameter)

	// Breaking the cycle loses strong connectivity and the diameter.
	idx.RemoveRelationship(&models.Relationship{ID: "r3", SourceID: "c", TargetID: "a", Type: models.RelationPrecedes})
	stats = eng.Statistics()
	assert.False(t, stats.StronglyConnected)
	assert.Equal(t, -1, stats.Diameter)
}

func TestStatisticsClustering(t *testing.T) {
	idx, eng := newTestGraph()

	// Triangle in the undirected projection: every node's two neighbors are
	// connected, so each local coefficient is 1.
	putEntity(idx, "a", "A")
	putEntity(idx, "b", "B")
	putEntity(idx, "c", "C")
	link(idx, "r1", "a", "b", models.RelationRelatedTo, false)
	link(idx, "r2", "b", "c", models.RelationRelatedTo, false)
	link(idx, "r3", "c", "a", models.RelationRelatedTo, false)

	stats := eng.Statistics()
	assert.InDelta(t, 1.0, stats.AvgClustering, 1e-9)

	// A fourth node hanging off one corner dilutes the average.
	putEntity(idx, "d", "D")
	link(idx, "r4", "a", "d", models.RelationRelatedTo, false)
	stats = eng.Statistics()
	assert.Less(t, stats.AvgClustering, 1.0)
	assert.Greater(t, stats.AvgClustering, 0.0)
}
