package ingress

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Store keeps the current set of unit requests, backed by a yaml file so
// registrations survive a relay restart. Callers serialize access; the relay
// server guards it with its state mutex.
type Store struct {
	path  string
	units map[string]UnitRequest
}

type storeFile struct {
	Units []UnitRequest `yaml:"units"`
}

// Open loads the store from path, starting empty when the file does not
// exist yet. An empty path gives an in-memory store that never persists.
func Open(path string) (*Store, error) {
	s := &Store{path: path, units: make(map[string]UnitRequest)}
	if path == "" {
		return s, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read units file: %w", err)
	}
	var f storeFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("units file yaml: %w", err)
	}
	for _, u := range f.Units {
		if err := u.Validate(); err != nil {
			return nil, fmt.Errorf("units file: %w", err)
		}
		s.units[u.Unit] = u
	}
	return s, nil
}

// Put validates and upserts one unit request, persisting the new set.
func (s *Store) Put(r UnitRequest) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.units[r.Unit] = r
	return s.save()
}

// Delete removes a unit's request. The bool reports whether it was present.
func (s *Store) Delete(unit string) (bool, error) {
	if _, ok := s.units[unit]; !ok {
		return false, nil
	}
	delete(s.units, unit)
	return true, s.save()
}

// Get returns the stored request for a unit.
func (s *Store) Get(unit string) (UnitRequest, bool) {
	r, ok := s.units[unit]
	return r, ok
}

// List returns all requests sorted by unit name, so every evaluation sees
// units in the same order.
func (s *Store) List() []UnitRequest {
	out := make([]UnitRequest, 0, len(s.units))
	for _, u := range s.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Unit < out[j].Unit })
	return out
}

func (s *Store) Len() int { return len(s.units) }

func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	b, err := yaml.Marshal(storeFile{Units: s.List()})
	if err != nil {
		return fmt.Errorf("units file yaml: %w", err)
	}
	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
