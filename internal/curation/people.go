package curation

import (
	"github.com/kozaktomas/face-graph/internal/facematch"
	"github.com/kozaktomas/face-graph/internal/registry"
)

// PersonMatch is a ranked person search hit.
type PersonMatch struct {
	registry.Person
	Score     int    `json:"score"`
	MatchedOn string `json:"matched_on"`
}

// PersonComponents lists every component assigned to a person.
type PersonComponents struct {
	Person     registry.Person    `json:"person"`
	Components []ComponentSummary `json:"components"`
}

func (e *Engine) People() []registry.Person {
	return e.registry.People()
}

func (e *Engine) CreatePerson(name string) (registry.Person, error) {
	p, err := e.registry.CreatePerson(name)
	if err != nil {
		return registry.Person{}, err
	}
	e.log.WithField("person", p.ID).Info("person created")
	return p, nil
}

func (e *Engine) UpdatePerson(id int64, name string) (registry.Person, error) {
	return e.registry.UpdatePerson(id, name)
}

// DeletePerson removes a person and every assignment pointing at them.
func (e *Engine) DeletePerson(id int64) error {
	if err := e.registry.DeletePerson(id); err != nil {
		return err
	}
	e.log.WithField("person", id).Info("person deleted")
	return nil
}

// SearchPeople ranks people by name against query.
func (e *Engine) SearchPeople(query string, limit int) ([]PersonMatch, error) {
	if err := checkCount("limit", limit); err != nil {
		return nil, err
	}
	people := e.registry.People()
	candidates := make([]facematch.Candidate, len(people))
	for i, p := range people {
		candidates[i] = facematch.Candidate{ID: p.ID, Name: p.Name}
	}

	matches := facematch.Search(candidates, query, limit)
	out := make([]PersonMatch, len(matches))
	for i, m := range matches {
		out[i] = PersonMatch{
			Person:    registry.Person{ID: m.ID, Name: m.Name},
			Score:     m.Score,
			MatchedOn: m.MatchedOn,
		}
	}
	return out, nil
}

func (e *Engine) AssignPerson(componentID int, personID int64) error {
	if err := e.registry.AssignPerson(componentID, personID); err != nil {
		return err
	}
	e.log.WithField("component", componentID).WithField("person", personID).Info("component assigned")
	return nil
}

func (e *Engine) UnassignPerson(componentID int) error {
	return e.registry.UnassignPerson(componentID)
}

// PersonComponents returns a person and a summary of each assigned component.
func (e *Engine) PersonComponents(personID int64) (PersonComponents, error) {
	p, err := e.registry.Person(personID)
	if err != nil {
		return PersonComponents{}, err
	}
	ids, err := e.registry.ComponentsOf(personID)
	if err != nil {
		return PersonComponents{}, err
	}
	out := PersonComponents{Person: p, Components: make([]ComponentSummary, 0, len(ids))}
	for _, c := range ids {
		s, err := e.summary(c)
		if err != nil {
			return PersonComponents{}, err
		}
		out.Components = append(out.Components, s)
	}
	return out, nil
}
