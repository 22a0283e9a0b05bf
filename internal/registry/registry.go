// Package registry holds the component list, the people table and the
// component to person assignments. Every mutation is persisted before it
// becomes visible.
package registry

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/kozaktomas/face-graph/internal/apperror"
	"github.com/kozaktomas/face-graph/internal/config"
)

// Person is a named identity.
type Person struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Registry is the authoritative component and identity state. A single lock
// serializes all read-mutate-write cycles.
type Registry struct {
	mu          sync.RWMutex
	store       Store
	index       *ComponentIndex
	people      map[int64]string
	assignments map[int]int64
}

// NewFileStore returns a file store at the configured paths.
func NewFileStore(cfg *config.Config) *FileStore {
	return &FileStore{
		ComponentsPath:  cfg.ComponentsPath(),
		PeoplePath:      cfg.PeoplePath(),
		AssignmentsPath: cfg.ComponentPeoplePath(),
	}
}

// Open loads all tables from store.
func Open(store Store) (*Registry, error) {
	components, err := store.LoadComponents()
	if err != nil {
		return nil, err
	}
	index, err := NewComponentIndex(components)
	if err != nil {
		return nil, apperror.DataIntegrity(err, "indexing components")
	}
	people, err := store.LoadPeople()
	if err != nil {
		return nil, err
	}
	assignments, err := store.LoadAssignments()
	if err != nil {
		return nil, err
	}
	return &Registry{
		store:       store,
		index:       index,
		people:      people,
		assignments: assignments,
	}, nil
}

// Create writes a fresh component list and opens the registry over it.
// Assignments are keyed by component index, so they are cleared before the
// new list is written. People are kept.
func Create(store Store, components [][]int64) (*Registry, error) {
	if err := store.SaveAssignments(map[int]int64{}); err != nil {
		return nil, err
	}
	if err := store.SaveComponents(components); err != nil {
		return nil, err
	}
	return Open(store)
}

// ComponentCount returns the number of components.
func (r *Registry) ComponentCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.Len()
}

// Members returns the member faces of a component.
func (r *Registry) Members(componentID int) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.Members(componentID)
}

// ComponentOf returns the component of a face.
func (r *Registry) ComponentOf(faceID int64) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.ComponentOf(faceID)
}

// Components returns a copy of every component's members.
func (r *Registry) Components() [][]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.Components()
}

// Split moves faces into a new component and returns its id. The parent keeps
// its person assignment; the new component starts unassigned.
func (r *Registry) Split(componentID int, faces []int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.index.Clone()
	newID, err := next.Split(componentID, faces)
	if err != nil {
		return 0, err
	}
	if err := r.store.SaveComponents(next.Components()); err != nil {
		return 0, err
	}
	r.index = next
	return newID, nil
}

// People returns all people ordered by id.
func (r *Registry) People() []Person {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.peopleLocked()
}

func (r *Registry) peopleLocked() []Person {
	out := make([]Person, 0, len(r.people))
	for id, name := range r.people {
		out = append(out, Person{ID: id, Name: name})
	}
	slices.SortFunc(out, func(a, b Person) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Person returns a person by id.
func (r *Registry) Person(id int64) (Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.people[id]
	if !ok {
		return Person{}, apperror.NotFound("person %d not found", id)
	}
	return Person{ID: id, Name: name}, nil
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperror.BadInput("person name must not be empty")
	}
	return name, nil
}

// CreatePerson adds a person with id max(existing)+1.
func (r *Registry) CreatePerson(name string) (Person, error) {
	name, err := cleanName(name)
	if err != nil {
		return Person{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var id int64
	for existing := range r.people {
		id = max(id, existing)
	}
	id++

	next := maps.Clone(r.people)
	next[id] = name
	if err := r.store.SavePeople(next); err != nil {
		return Person{}, err
	}
	r.people = next
	return Person{ID: id, Name: name}, nil
}

// UpdatePerson renames a person.
func (r *Registry) UpdatePerson(id int64, name string) (Person, error) {
	name, err := cleanName(name)
	if err != nil {
		return Person{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.people[id]; !ok {
		return Person{}, apperror.NotFound("person %d not found", id)
	}
	next := maps.Clone(r.people)
	next[id] = name
	if err := r.store.SavePeople(next); err != nil {
		return Person{}, err
	}
	r.people = next
	return Person{ID: id, Name: name}, nil
}

// DeletePerson removes a person and every component assignment to them.
// The people table is written first. If the assignments cannot be written
// the people table is restored and nothing changes.
func (r *Registry) DeletePerson(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.people[id]; !ok {
		return apperror.NotFound("person %d not found", id)
	}

	nextPeople := maps.Clone(r.people)
	delete(nextPeople, id)
	if err := r.store.SavePeople(nextPeople); err != nil {
		return err
	}

	nextAssignments := maps.Clone(r.assignments)
	maps.DeleteFunc(nextAssignments, func(_ int, person int64) bool { return person == id })
	if len(nextAssignments) != len(r.assignments) {
		if err := r.store.SaveAssignments(nextAssignments); err != nil {
			if rollbackErr := r.store.SavePeople(r.people); rollbackErr != nil {
				return errors.Join(err, fmt.Errorf("restoring people table: %w", rollbackErr))
			}
			return err
		}
	}

	r.people = nextPeople
	r.assignments = nextAssignments
	return nil
}

// AssignPerson sets the person of a component, replacing any previous one.
func (r *Registry) AssignPerson(componentID int, personID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.people[personID]; !ok {
		return apperror.NotFound("person %d not found", personID)
	}
	if componentID < 0 || componentID >= r.index.Len() {
		return apperror.NotFound("component %d not found", componentID)
	}

	next := maps.Clone(r.assignments)
	next[componentID] = personID
	if err := r.store.SaveAssignments(next); err != nil {
		return err
	}
	r.assignments = next
	return nil
}

// UnassignPerson clears the person of a component. Clearing an unassigned
// component is a no-op.
func (r *Registry) UnassignPerson(componentID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if componentID < 0 || componentID >= r.index.Len() {
		return apperror.NotFound("component %d not found", componentID)
	}
	if _, ok := r.assignments[componentID]; !ok {
		return nil
	}

	next := maps.Clone(r.assignments)
	delete(next, componentID)
	if err := r.store.SaveAssignments(next); err != nil {
		return err
	}
	r.assignments = next
	return nil
}

// PersonOf returns the person assigned to a component, if any.
func (r *Registry) PersonOf(componentID int) (Person, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.personOfLocked(componentID)
}

func (r *Registry) personOfLocked(componentID int) (Person, bool) {
	id, ok := r.assignments[componentID]
	if !ok {
		return Person{}, false
	}
	name, ok := r.people[id]
	if !ok {
		return Person{}, false
	}
	return Person{ID: id, Name: name}, true
}

// IsAssigned reports whether a component has a person.
func (r *Registry) IsAssigned(componentID int) bool {
	_, ok := r.PersonOf(componentID)
	return ok
}

// ComponentsOf returns the components assigned to a person, ascending.
func (r *Registry) ComponentsOf(personID int64) ([]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.people[personID]; !ok {
		return nil, apperror.NotFound("person %d not found", personID)
	}
	var out []int
	for c, p := range r.assignments {
		if p == personID && c < r.index.Len() {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return out, nil
}

// AssignedCount returns the number of components with a person.
func (r *Registry) AssignedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for c := range r.assignments {
		if _, ok := r.personOfLocked(c); ok {
			n++
		}
	}
	return n
}

// String summarizes the registry for logs.
func (r *Registry) String() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fmt.Sprintf("%d components, %d people, %d assignments", r.index.Len(), len(r.people), len(r.assignments))
}
