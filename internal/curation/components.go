package curation

import (
	"cmp"
	"slices"

	"github.com/kozaktomas/face-graph/internal/apperror"
	"github.com/kozaktomas/face-graph/internal/database"
	"github.com/kozaktomas/face-graph/internal/registry"
)

// ComponentSummary is a component with its size and one representative face.
type ComponentSummary struct {
	ID           int    `json:"id"`
	Size         int    `json:"size"`
	SampleFaceID *int64 `json:"sample_face_id"`
}

// NeighborComponent is an adjacent component in the component graph.
type NeighborComponent struct {
	ComponentSummary
	Distance float64 `json:"distance"`
}

// ComponentDetail is everything the curator sees for one component.
type ComponentDetail struct {
	ID        int                 `json:"id"`
	Size      int                 `json:"size"`
	Faces     []int64             `json:"faces"`
	Neighbors []NeighborComponent `json:"neighbors"`
	Person    *registry.Person    `json:"person"`
}

// FacePair is a cross-component face pair and its distance.
type FacePair struct {
	Face1ID  int64   `json:"face1_id"`
	Face2ID  int64   `json:"face2_id"`
	Distance float64 `json:"distance"`
}

// Subdivision is a proposed split of one component.
type Subdivision struct {
	ComponentID   int       `json:"component_id"`
	Subcomponents [][]int64 `json:"subcomponents"`
}

func (e *Engine) summary(componentID int) (ComponentSummary, error) {
	members, err := e.registry.Members(componentID)
	if err != nil {
		return ComponentSummary{}, err
	}
	return ComponentSummary{
		ID:           componentID,
		Size:         len(members),
		SampleFaceID: e.randomMember(members),
	}, nil
}

// RandomUnassignedComponent returns a non-empty component with no person.
// Random faces are drawn first, at most one draw per component; if none of
// them lands in an unassigned component the remaining ones are scanned.
func (e *Engine) RandomUnassignedComponent() (int, error) {
	ids := e.table.IDs()
	attempts := e.registry.ComponentCount()
	if len(ids) > 0 {
		for range attempts {
			c, ok := e.registry.ComponentOf(ids[e.randomIndex(len(ids))])
			if ok && !e.registry.IsAssigned(c) {
				return c, nil
			}
		}
	}

	var open []int
	for c, members := range e.registry.Components() {
		if len(members) > 0 && !e.registry.IsAssigned(c) {
			open = append(open, c)
		}
	}
	if len(open) == 0 {
		return 0, apperror.NotFound("every component is assigned")
	}
	return sample(e, open, 1)[0], nil
}

// Component returns a face sample, adjacent components and the assigned
// person of a component.
func (e *Engine) Component(componentID int) (ComponentDetail, error) {
	members, err := e.registry.Members(componentID)
	if err != nil {
		return ComponentDetail{}, err
	}

	detail := ComponentDetail{
		ID:        componentID,
		Size:      len(members),
		Faces:     sample(e, members, e.opts.ComponentSampleSize),
		Neighbors: []NeighborComponent{},
	}
	if p, ok := e.registry.PersonOf(componentID); ok {
		detail.Person = &p
	}

	for _, n := range e.componentGraph().Neighbors(componentID, e.opts.ComponentNeighborLimit) {
		s, err := e.summary(n.ComponentID)
		if err != nil {
			// Split components are always present; a miss means the
			// component graph is older than the registry.
			e.log.WithError(err).WithField("component", n.ComponentID).Warn("stale component graph entry")
			continue
		}
		detail.Neighbors = append(detail.Neighbors, NeighborComponent{ComponentSummary: s, Distance: n.Distance})
	}
	return detail, nil
}

// CompareComponents returns the numPairs closest face pairs between two
// components, ascending by distance.
func (e *Engine) CompareComponents(a, b, numPairs int) ([]FacePair, error) {
	if err := checkCount("num_pairs", numPairs); err != nil {
		return nil, err
	}
	membersA, err := e.registry.Members(a)
	if err != nil {
		return nil, err
	}
	membersB, err := e.registry.Members(b)
	if err != nil {
		return nil, err
	}

	vectorsB := make([][]float32, len(membersB))
	for i, id := range membersB {
		if vectorsB[i], err = e.table.VectorByID(id); err != nil {
			return nil, err
		}
	}

	pairs := make([]FacePair, 0, len(membersA)*len(membersB))
	for _, idA := range membersA {
		va, err := e.table.VectorByID(idA)
		if err != nil {
			return nil, err
		}
		for j, idB := range membersB {
			pairs = append(pairs, FacePair{
				Face1ID:  idA,
				Face2ID:  idB,
				Distance: database.UnitDistance(va, vectorsB[j]),
			})
		}
	}

	slices.SortFunc(pairs, func(x, y FacePair) int {
		return cmp.Or(
			cmp.Compare(x.Distance, y.Distance),
			cmp.Compare(x.Face1ID, y.Face1ID),
			cmp.Compare(x.Face2ID, y.Face2ID),
		)
	})
	if len(pairs) > numPairs {
		pairs = pairs[:numPairs]
	}
	return pairs, nil
}

// ProposeSubdivision partitions the subgraph induced by a component's faces.
// Nothing is persisted.
func (e *Engine) ProposeSubdivision(componentID int) (Subdivision, error) {
	members, err := e.registry.Members(componentID)
	if err != nil {
		return Subdivision{}, err
	}
	parts, err := e.opts.Partitioner.PartitionNodes(e.graph, members)
	if err != nil {
		return Subdivision{}, err
	}
	return Subdivision{ComponentID: componentID, Subcomponents: parts}, nil
}

// SubmitSubdivision moves faces out of a component into a new one and
// returns the new component id.
func (e *Engine) SubmitSubdivision(componentID int, faces []int64) (int, error) {
	newID, err := e.registry.Split(componentID, faces)
	if err != nil {
		return 0, err
	}
	e.rebuildComponentGraph()
	e.log.WithField("component", componentID).
		WithField("new_component", newID).
		WithField("faces", len(faces)).
		Info("component split")
	return newID, nil
}
