// Package servergroup persists a one-level hierarchy of named server
// groups. The explorer renders groups as collapsible headers above their
// member servers; membership and ordering survive restarts via a YAML file
// next to the main config.
package servergroup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

var (
	ErrGroupExists   = errors.New("group already exists")
	ErrGroupNotFound = errors.New("group not found")
)

// Group is one named collection of saved server names.
type Group struct {
	Name     string   `yaml:"name"`
	Servers  []string `yaml:"servers"`
	Expanded bool     `yaml:"expanded"`
}

// Store owns the group list and saves through on every mutation.
type Store struct {
	path   string
	Groups []*Group `yaml:"groups"`
}

// Open loads the store from path, or returns an empty store if the file
// does not exist yet.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read server groups: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse server groups: %w", err)
	}
	return s, nil
}

// DefaultPath returns the store location under the user config directory.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config dir: %w", err)
	}
	return filepath.Join(base, "dbnav", "groups.yaml"), nil
}

func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create group dir: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal server groups: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write server groups: %w", err)
	}
	return nil
}

// Find returns the group with the given name, or nil.
func (s *Store) Find(name string) *Group {
	for _, g := range s.Groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// GroupOf returns the group containing the named server, or nil when the
// server is ungrouped.
func (s *Store) GroupOf(server string) *Group {
	for _, g := range s.Groups {
		for _, sv := range g.Servers {
			if sv == server {
				return g
			}
		}
	}
	return nil
}

// Create adds a new empty group.
func (s *Store) Create(name string) (*Group, error) {
	if name == "" {
		return nil, errors.New("group name must not be empty")
	}
	if s.Find(name) != nil {
		return nil, fmt.Errorf("%w: %s", ErrGroupExists, name)
	}
	g := &Group{Name: name, Expanded: true}
	s.Groups = append(s.Groups, g)
	if err := s.save(); err != nil {
		return nil, err
	}
	return g, nil
}

// Rename changes a group's name.
func (s *Store) Rename(oldName, newName string) error {
	g := s.Find(oldName)
	if g == nil {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, oldName)
	}
	if newName == "" {
		return errors.New("group name must not be empty")
	}
	if other := s.Find(newName); other != nil && other != g {
		return fmt.Errorf("%w: %s", ErrGroupExists, newName)
	}
	g.Name = newName
	return s.save()
}

// Delete removes a group; its servers become ungrouped.
func (s *Store) Delete(name string) error {
	for i, g := range s.Groups {
		if g.Name == name {
			s.Groups = append(s.Groups[:i], s.Groups[i+1:]...)
			return s.save()
		}
	}
	return fmt.Errorf("%w: %s", ErrGroupNotFound, name)
}

// MoveServer places a server into the named group, removing it from any
// group it currently belongs to. An empty group name ungroups the server.
func (s *Store) MoveServer(server, group string) error {
	var target *Group
	if group != "" {
		target = s.Find(group)
		if target == nil {
			return fmt.Errorf("%w: %s", ErrGroupNotFound, group)
		}
	}

	for _, g := range s.Groups {
		for i, sv := range g.Servers {
			if sv == server {
				g.Servers = append(g.Servers[:i], g.Servers[i+1:]...)
				break
			}
		}
	}
	if target != nil {
		target.Servers = append(target.Servers, server)
	}
	return s.save()
}

// Reorder moves the group at index from to index to, shifting the rest.
func (s *Store) Reorder(from, to int) error {
	n := len(s.Groups)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("reorder out of range: %d -> %d with %d groups", from, to, n)
	}
	if from == to {
		return nil
	}
	g := s.Groups[from]
	s.Groups = append(s.Groups[:from], s.Groups[from+1:]...)
	s.Groups = append(s.Groups[:to], append([]*Group{g}, s.Groups[to:]...)...)
	return s.save()
}

// SortByName orders groups alphabetically.
func (s *Store) SortByName() error {
	sort.Slice(s.Groups, func(i, j int) bool {
		return s.Groups[i].Name < s.Groups[j].Name
	})
	return s.save()
}

// ToggleExpanded flips a group's persisted expand flag.
func (s *Store) ToggleExpanded(name string) error {
	g := s.Find(name)
	if g == nil {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, name)
	}
	g.Expanded = !g.Expanded
	return s.save()
}
