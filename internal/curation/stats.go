package curation

// Stats summarizes the loaded data.
type Stats struct {
	Faces              int `json:"faces"`
	GraphNodes         int `json:"graph_nodes"`
	GraphEdges         int `json:"graph_edges"`
	Components         int `json:"components"`
	People             int `json:"people"`
	AssignedComponents int `json:"assigned_components"`
}

func (e *Engine) Stats() Stats {
	return Stats{
		Faces:              e.table.Len(),
		GraphNodes:         e.graph.NodeCount(),
		GraphEdges:         e.graph.EdgeCount(),
		Components:         e.registry.ComponentCount(),
		People:             len(e.registry.People()),
		AssignedComponents: e.registry.AssignedCount(),
	}
}
