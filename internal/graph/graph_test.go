package graph

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/kozaktomas/face-graph/internal/apperror"
	"github.com/kozaktomas/face-graph/internal/database"
)

// calibrationTable holds three groups of sizes 3, 2 and 1.
func calibrationTable(t *testing.T) *database.EmbeddingTable {
	t.Helper()
	table, err := database.NewEmbeddingTable(
		[]int64{1, 2, 3, 4, 5, 6},
		[][]float32{
			{1, 0, 0},
			{0.99, 0.01, 0},
			{0.98, 0.02, 0},
			{0, 1, 0},
			{0.01, 0.99, 0},
			{0, 0, 1},
		},
	)
	if err != nil {
		t.Fatalf("building table: %v", err)
	}
	return table
}

func TestSimilarityGraph_AddEdgeMinWins(t *testing.T) {
	g := NewSimilarityGraph()

	if !g.AddEdge(1, 2, 0.3) {
		t.Fatal("expected first edge to be added")
	}
	if g.AddEdge(2, 1, 0.35) {
		t.Error("larger distance must not replace the edge")
	}
	if !g.AddEdge(2, 1, 0.2) {
		t.Error("smaller distance must replace the edge")
	}
	if g.AddEdge(3, 3, 0.0) {
		t.Error("self edges must be ignored")
	}

	d, ok := g.Distance(1, 2)
	if !ok || d != 0.2 {
		t.Errorf("expected distance 0.2, got %v (%v)", d, ok)
	}
	if g.EdgeCount() != 1 {
		t.Errorf("expected 1 edge, got %d", g.EdgeCount())
	}
	if g.HasNode(3) {
		t.Error("ignored self edge must not add a node")
	}
}

func TestBuilder_EdgesIffWithinThreshold(t *testing.T) {
	table := calibrationTable(t)

	g, err := NewBuilder(0.4).Build(context.Background(), table)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if g.NodeCount() != 6 {
		t.Errorf("expected 6 nodes, got %d", g.NodeCount())
	}

	for i := range table.Len() {
		for j := range table.Len() {
			if i == j {
				continue
			}
			a, b := table.ID(i), table.ID(j)
			want := database.UnitDistance(table.Vector(i), table.Vector(j))
			got, ok := g.Distance(a, b)
			if ok != (want <= 0.4) {
				t.Errorf("edge %d-%d present=%v, distance %v", a, b, ok, want)
			}
			if ok && math.Abs(got-want) > 1e-9 {
				t.Errorf("edge %d-%d distance %v, want %v", a, b, got, want)
			}
		}
	}

	for _, e := range g.Edges() {
		if e.From == e.To {
			t.Errorf("self edge %+v", e)
		}
		if e.Distance > 0.4 {
			t.Errorf("edge %+v exceeds threshold", e)
		}
	}

	if len(g.Neighbors(6)) != 0 {
		t.Errorf("face 6 should be isolated, got %+v", g.Neighbors(6))
	}
}

func TestBuilder_ReportsProgressAndCancel(t *testing.T) {
	table := calibrationTable(t)

	b := NewBuilder(0.4)
	var last int
	b.Workers = 1
	b.OnProgress = func(done int) { last = done }
	if _, err := b.Build(context.Background(), table); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if last != 6 {
		t.Errorf("expected progress to reach 6, got %d", last)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Build(ctx, table); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestBuilder_InvalidThreshold(t *testing.T) {
	if _, err := NewBuilder(0).Build(context.Background(), calibrationTable(t)); err == nil {
		t.Error("expected error for zero threshold")
	}
}

func TestPartition_CalibrationScenario(t *testing.T) {
	g, err := NewBuilder(0.4).Build(context.Background(), calibrationTable(t))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	got := Partitioner{Resolution: 1, Seed: 42}.Partition(g)
	want := [][]int64{{1, 2, 3}, {4, 5}, {6}}
	if len(got) != len(want) {
		t.Fatalf("expected %d communities, got %v", len(want), got)
	}
	for i := range want {
		if !slices.Equal(got[i], want[i]) {
			t.Errorf("community %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestPartition_Totality(t *testing.T) {
	g := NewSimilarityGraph()
	for id := int64(1); id <= 20; id++ {
		g.AddNode(id)
	}
	for id := int64(1); id < 10; id++ {
		g.AddEdge(id, id+1, 0.1)
	}
	g.AddEdge(12, 15, 0.3)

	parts := Partitioner{Seed: 7}.Partition(g)

	seen := make(map[int64]int)
	for _, c := range parts {
		if len(c) == 0 {
			t.Error("empty community")
		}
		for _, id := range c {
			seen[id]++
		}
	}
	for id := int64(1); id <= 20; id++ {
		if seen[id] != 1 {
			t.Errorf("node %d appears %d times", id, seen[id])
		}
	}
	if len(seen) != 20 {
		t.Errorf("expected 20 nodes, got %d", len(seen))
	}
}

func TestPartition_EdgelessGraph(t *testing.T) {
	g := NewSimilarityGraph()
	g.AddNode(3)
	g.AddNode(1)

	got := Partitioner{}.Partition(g)
	if len(got) != 2 || got[0][0] != 1 || got[1][0] != 3 {
		t.Errorf("expected singletons [[1] [3]], got %v", got)
	}
}

func TestPartitionNodes_InducedSubgraph(t *testing.T) {
	g, err := NewBuilder(0.4).Build(context.Background(), calibrationTable(t))
	if err != nil {
		t.Fatal(err)
	}

	got, err := Partitioner{Seed: 1}.PartitionNodes(g, []int64{1, 2, 6, 2})
	if err != nil {
		t.Fatalf("PartitionNodes() error = %v", err)
	}
	want := [][]int64{{1, 2}, {6}}
	if len(got) != 2 || !slices.Equal(got[0], want[0]) || !slices.Equal(got[1], want[1]) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if _, err := (Partitioner{}).PartitionNodes(g, []int64{99}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestGEXF_RoundTrip(t *testing.T) {
	g := NewSimilarityGraph()
	g.AddEdge(10, 20, 0.125)
	g.AddEdge(20, 30, 0.3)
	g.AddNode(40)

	var buf bytes.Buffer
	if err := WriteGEXF(&buf, g); err != nil {
		t.Fatalf("WriteGEXF() error = %v", err)
	}

	loaded, err := ReadGEXF(&buf)
	if err != nil {
		t.Fatalf("ReadGEXF() error = %v", err)
	}
	if !slices.Equal(loaded.Nodes(), []int64{10, 20, 30, 40}) {
		t.Errorf("unexpected nodes %v", loaded.Nodes())
	}
	if !slices.Equal(loaded.Edges(), g.Edges()) {
		t.Errorf("expected edges %v, got %v", g.Edges(), loaded.Edges())
	}
}

func TestReadGEXF_ExternalFile(t *testing.T) {
	doc := `<?xml version='1.0' encoding='utf-8'?>
<gexf xmlns="http://www.gexf.net/1.2draft" version="1.2">
  <graph defaultedgetype="undirected" mode="static" name="">
    <attributes mode="static" class="edge">
      <attribute id="1" title="distance" type="double" />
    </attributes>
    <nodes>
      <node id="5" label="5" />
      <node id="7" label="7" />
    </nodes>
    <edges>
      <edge source="5" target="7" id="0">
        <attvalues>
          <attvalue for="1" value="0.25" />
        </attvalues>
      </edge>
    </edges>
  </graph>
</gexf>`

	g, err := ReadGEXF(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ReadGEXF() error = %v", err)
	}
	if d, ok := g.Distance(7, 5); !ok || d != 0.25 {
		t.Errorf("expected distance 0.25, got %v (%v)", d, ok)
	}
}

func TestReadGEXF_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not xml", "garbage"},
		{"no distance attribute", `<gexf xmlns="http://www.gexf.net/1.2draft" version="1.2"><graph><nodes><node id="1"/></nodes><edges/></graph></gexf>`},
		{"non integer node", `<gexf xmlns="http://www.gexf.net/1.2draft" version="1.2"><graph><attributes class="edge"><attribute id="0" title="distance" type="double"/></attributes><nodes><node id="abc"/></nodes><edges/></graph></gexf>`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ReadGEXF(strings.NewReader(tc.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "face_similarity.gexf")

	if _, err := LoadFile(path); !errors.Is(err, apperror.ErrDataIntegrity) {
		t.Errorf("expected data integrity error for missing file, got %v", err)
	}

	g := NewSimilarityGraph()
	g.AddEdge(1, 2, 0.1)
	if err := SaveFile(path, g); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if loaded.EdgeCount() != 1 {
		t.Errorf("expected 1 edge, got %d", loaded.EdgeCount())
	}

	if err := os.WriteFile(path, []byte("<broken"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); !errors.Is(err, apperror.ErrDataIntegrity) {
		t.Errorf("expected data integrity error for broken file, got %v", err)
	}
}

func TestComponentGraph(t *testing.T) {
	g := NewSimilarityGraph()
	g.AddEdge(1, 2, 0.1)
	g.AddEdge(1, 3, 0.35)
	g.AddEdge(2, 4, 0.2)
	g.AddEdge(3, 4, 0.3)
	g.AddEdge(4, 5, 0.05)

	comp := map[int64]int{1: 0, 2: 0, 3: 1, 4: 2}
	cg := BuildComponentGraph(g, func(id int64) (int, bool) {
		c, ok := comp[id]
		return c, ok
	}, 0)

	got := cg.Neighbors(0, 0)
	want := []ComponentNeighbor{{ComponentID: 2, Distance: 0.2}, {ComponentID: 1, Distance: 0.35}}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if got := cg.Neighbors(0, 1); len(got) != 1 || got[0].ComponentID != 2 {
		t.Errorf("limit not applied: %v", got)
	}
	if got := cg.Neighbors(9, 0); got != nil {
		t.Errorf("unknown component should have no neighbors, got %v", got)
	}
}

func TestComponentGraph_DistanceLimit(t *testing.T) {
	g := NewSimilarityGraph()
	g.AddEdge(1, 2, 0.25)
	g.AddEdge(1, 3, 0.35)
	g.AddEdge(2, 3, 0.3)

	comp := map[int64]int{1: 0, 2: 1, 3: 2}
	cg := BuildComponentGraph(g, func(id int64) (int, bool) {
		c, ok := comp[id]
		return c, ok
	}, 0.3)

	if got, want := cg.Neighbors(0, 0), []ComponentNeighbor{{ComponentID: 1, Distance: 0.25}}; !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if got, want := cg.Neighbors(2, 0), []ComponentNeighbor{{ComponentID: 1, Distance: 0.3}}; !slices.Equal(got, want) {
		t.Errorf("edges at the limit must be kept: expected %v, got %v", want, got)
	}
}
