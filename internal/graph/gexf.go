package graph

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/google/renameio"
	"gonum.org/v1/gonum/graph/formats/gexf12"

	"github.com/kozaktomas/face-graph/internal/apperror"
)

const distanceAttr = "distance"

// WriteGEXF serializes the graph as GEXF 1.2 with a "distance" edge attribute.
func WriteGEXF(w io.Writer, s *SimilarityGraph) error {
	nodes := s.Nodes()
	edges := s.Edges()

	content := gexf12.Content{
		Version: "1.2",
		Graph: gexf12.Graph{
			DefaultEdgeType: "undirected",
			IDType:          "string",
			Mode:            "static",
			Attributes: []gexf12.Attributes{{
				Class: "edge",
				Mode:  "static",
				Attributes: []gexf12.Attribute{{
					ID:    "0",
					Title: distanceAttr,
					Type:  "double",
				}},
			}},
		},
	}

	content.Graph.Nodes.Count = len(nodes)
	content.Graph.Nodes.Nodes = make([]gexf12.Node, len(nodes))
	for i, id := range nodes {
		label := strconv.FormatInt(id, 10)
		content.Graph.Nodes.Nodes[i] = gexf12.Node{ID: label, Label: label}
	}

	content.Graph.Edges.Count = len(edges)
	content.Graph.Edges.Edges = make([]gexf12.Edge, len(edges))
	for i, e := range edges {
		content.Graph.Edges.Edges[i] = gexf12.Edge{
			ID:     strconv.Itoa(i),
			Source: strconv.FormatInt(e.From, 10),
			Target: strconv.FormatInt(e.To, 10),
			AttValues: &gexf12.AttValues{AttValues: []gexf12.AttValue{{
				For:   "0",
				Value: strconv.FormatFloat(e.Distance, 'g', -1, 64),
			}}},
		}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(content); err != nil {
		return fmt.Errorf("encoding gexf: %w", err)
	}
	return enc.Flush()
}

// ReadGEXF parses a graph written by WriteGEXF or by other GEXF 1.2 tools that
// store the distance as an edge attribute titled "distance". Node ids must be
// integers.
func ReadGEXF(r io.Reader) (*SimilarityGraph, error) {
	var content gexf12.Content
	if err := xml.NewDecoder(r).Decode(&content); err != nil {
		return nil, fmt.Errorf("decoding gexf: %w", err)
	}

	attrID := ""
	for _, group := range content.Graph.Attributes {
		if group.Class != "edge" {
			continue
		}
		for _, a := range group.Attributes {
			if a.Title == distanceAttr {
				attrID = a.ID
			}
		}
	}
	if attrID == "" {
		return nil, errors.New("gexf has no distance edge attribute")
	}

	s := NewSimilarityGraph()
	for _, n := range content.Graph.Nodes.Nodes {
		id, err := strconv.ParseInt(n.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("node id %q is not an integer", n.ID)
		}
		s.AddNode(id)
	}

	for _, e := range content.Graph.Edges.Edges {
		from, err := strconv.ParseInt(e.Source, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("edge %s: source %q is not an integer", e.ID, e.Source)
		}
		to, err := strconv.ParseInt(e.Target, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("edge %s: target %q is not an integer", e.ID, e.Target)
		}
		d, err := edgeDistance(e, attrID)
		if err != nil {
			return nil, fmt.Errorf("edge %s: %w", e.ID, err)
		}
		s.AddEdge(from, to, d)
	}
	return s, nil
}

func edgeDistance(e gexf12.Edge, attrID string) (float64, error) {
	if e.AttValues == nil {
		return 0, errors.New("missing distance")
	}
	for _, v := range e.AttValues.AttValues {
		if v.For == attrID {
			return strconv.ParseFloat(v.Value, 64)
		}
	}
	return 0, errors.New("missing distance")
}

// SaveFile atomically replaces path with the GEXF serialization of s.
func SaveFile(path string, s *SimilarityGraph) error {
	f, err := renameio.TempFile("", path)
	if err != nil {
		return fmt.Errorf("creating graph file: %w", err)
	}
	defer f.Cleanup() //nolint:errcheck

	if err := WriteGEXF(f, s); err != nil {
		return err
	}
	if err := f.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("writing graph file: %w", err)
	}
	return nil
}

// LoadFile reads a persisted graph. A missing or unparsable file is a data
// integrity error.
func LoadFile(path string) (*SimilarityGraph, error) {
	f, err := os.Open(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return nil, apperror.DataIntegrity(err, "opening graph file %s", path)
	}
	defer f.Close()

	s, err := ReadGEXF(f)
	if err != nil {
		return nil, apperror.DataIntegrity(err, "reading graph file %s", path)
	}
	return s, nil
}
