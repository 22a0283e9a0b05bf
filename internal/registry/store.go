package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/google/renameio"

	"github.com/kozaktomas/face-graph/internal/apperror"
)

// Store persists the registry tables with read-all/write-all semantics.
type Store interface {
	LoadComponents() ([][]int64, error)
	SaveComponents(components [][]int64) error
	LoadPeople() (map[int64]string, error)
	SavePeople(people map[int64]string) error
	LoadAssignments() (map[int]int64, error)
	SaveAssignments(assignments map[int]int64) error
}

// FileStore keeps each table in its own JSON file.
type FileStore struct {
	ComponentsPath  string
	PeoplePath      string
	AssignmentsPath string
}

// faceID accepts both numbers and numeric strings.
type faceID int64

func (f *faceID) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid face id %s", data)
	}
	*f = faceID(n)
	return nil
}

// LoadComponents reads the component list. The file is required.
func (s *FileStore) LoadComponents() ([][]int64, error) {
	data, err := os.ReadFile(s.ComponentsPath)
	if err != nil {
		return nil, apperror.DataIntegrity(err, "reading components file")
	}

	var raw [][]faceID
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperror.DataIntegrity(err, "parsing components file")
	}

	out := make([][]int64, len(raw))
	for i, members := range raw {
		out[i] = make([]int64, len(members))
		for j, f := range members {
			out[i][j] = int64(f)
		}
	}
	return out, nil
}

// SaveComponents rewrites the component list.
func (s *FileStore) SaveComponents(components [][]int64) error {
	return writeJSON(s.ComponentsPath, components)
}

// LoadPeople reads the people table. A missing file is an empty table.
func (s *FileStore) LoadPeople() (map[int64]string, error) {
	var raw map[string]string
	if err := readOptionalJSON(s.PeoplePath, &raw); err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(raw))
	for k, name := range raw {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, apperror.DataIntegrity(err, "invalid person id %q", k)
		}
		out[id] = name
	}
	return out, nil
}

// SavePeople rewrites the people table.
func (s *FileStore) SavePeople(people map[int64]string) error {
	return writeJSON(s.PeoplePath, people)
}

// LoadAssignments reads the component to person map. A missing file is an
// empty map.
func (s *FileStore) LoadAssignments() (map[int]int64, error) {
	var raw map[string]int64
	if err := readOptionalJSON(s.AssignmentsPath, &raw); err != nil {
		return nil, err
	}
	out := make(map[int]int64, len(raw))
	for k, person := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, apperror.DataIntegrity(err, "invalid component id %q", k)
		}
		out[id] = person
	}
	return out, nil
}

// SaveAssignments rewrites the component to person map.
func (s *FileStore) SaveAssignments(assignments map[int]int64) error {
	return writeJSON(s.AssignmentsPath, assignments)
}

func readOptionalJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return apperror.DataIntegrity(err, "reading %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperror.DataIntegrity(err, "parsing %s", path)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
