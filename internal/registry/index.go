package registry

import (
	"fmt"
	"maps"
	"slices"

	"github.com/kozaktomas/face-graph/internal/apperror"
)

// ComponentIndex maps component ids to members and faces back to their
// component. Both directions are updated together.
type ComponentIndex struct {
	members         [][]int64
	faceToComponent map[int64]int
}

// NewComponentIndex indexes components. A face listed in two components is
// rejected.
func NewComponentIndex(components [][]int64) (*ComponentIndex, error) {
	idx := &ComponentIndex{
		members:         make([][]int64, len(components)),
		faceToComponent: make(map[int64]int),
	}
	for c, members := range components {
		idx.members[c] = slices.Clone(members)
		for _, face := range members {
			if prev, dup := idx.faceToComponent[face]; dup {
				return nil, fmt.Errorf("face %d is in components %d and %d", face, prev, c)
			}
			idx.faceToComponent[face] = c
		}
	}
	return idx, nil
}

// Len returns the number of components.
func (idx *ComponentIndex) Len() int {
	return len(idx.members)
}

// Members returns the member faces of a component.
func (idx *ComponentIndex) Members(componentID int) ([]int64, error) {
	if componentID < 0 || componentID >= len(idx.members) {
		return nil, apperror.NotFound("component %d not found", componentID)
	}
	return slices.Clone(idx.members[componentID]), nil
}

// ComponentOf returns the component of a face.
func (idx *ComponentIndex) ComponentOf(faceID int64) (int, bool) {
	c, ok := idx.faceToComponent[faceID]
	return c, ok
}

// Components returns a copy of all member lists.
func (idx *ComponentIndex) Components() [][]int64 {
	out := make([][]int64, len(idx.members))
	for i, m := range idx.members {
		out[i] = slices.Clone(m)
	}
	return out
}

// Split moves faces out of componentID into a new component appended at the
// end and returns its id. The faces must be distinct members and must leave at
// least one face behind.
func (idx *ComponentIndex) Split(componentID int, faces []int64) (int, error) {
	members, err := idx.Members(componentID)
	if err != nil {
		return 0, err
	}
	if len(faces) == 0 {
		return 0, apperror.BadInput("no faces to split off component %d", componentID)
	}

	remove := make(map[int64]bool, len(faces))
	for _, f := range faces {
		if remove[f] {
			return 0, apperror.BadInput("face %d listed twice", f)
		}
		if c, ok := idx.faceToComponent[f]; !ok || c != componentID {
			return 0, apperror.BadInput("face %d is not a member of component %d", f, componentID)
		}
		remove[f] = true
	}
	if len(remove) == len(members) {
		return 0, apperror.BadInput("split would leave component %d empty", componentID)
	}

	kept := make([]int64, 0, len(members)-len(remove))
	moved := make([]int64, 0, len(remove))
	for _, f := range members {
		if remove[f] {
			moved = append(moved, f)
		} else {
			kept = append(kept, f)
		}
	}

	newID := len(idx.members)
	idx.members[componentID] = kept
	idx.members = append(idx.members, moved)
	for _, f := range moved {
		idx.faceToComponent[f] = newID
	}
	return newID, nil
}

// Clone returns an independent copy.
func (idx *ComponentIndex) Clone() *ComponentIndex {
	return &ComponentIndex{
		members:         idx.Components(),
		faceToComponent: maps.Clone(idx.faceToComponent),
	}
}
