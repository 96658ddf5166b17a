// Package concept holds the static catalog of concept definitions.
// Concepts are human-defined units of analysis: a topic with explicit
// inclusion/exclusion criteria and a seed vocabulary. They are immutable
// once registered.
package concept

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrUnknownConcept is returned when a requested concept id is not registered.
// Callers should treat this as a configuration error and abort before doing work.
var ErrUnknownConcept = fmt.Errorf("unknown concept")

// Concept defines a topic of analysis.
type Concept struct {
	ID                string   `yaml:"id"`
	Name              string   `yaml:"name"`
	Description       string   `yaml:"description"`
	InclusionCriteria []string `yaml:"inclusion_criteria"`
	ExclusionCriteria []string `yaml:"exclusion_criteria"`
	SeedTerms         []string `yaml:"seed_terms"`
}

// Registry is a static catalog of concepts keyed by id.
type Registry struct {
	concepts map[string]Concept
	order    []string
}

// NewRegistry creates a registry preloaded with the built-in concepts.
func NewRegistry() *Registry {
	r := &Registry{concepts: make(map[string]Concept)}
	for _, c := range builtinConcepts {
		r.add(c)
	}
	return r
}

func (r *Registry) add(c Concept) {
	if _, exists := r.concepts[c.ID]; !exists {
		r.order = append(r.order, c.ID)
	}
	r.concepts[c.ID] = c
}

// Get returns the concept with the given id.
// Returns an error wrapping ErrUnknownConcept if no such concept exists.
func (r *Registry) Get(id string) (Concept, error) {
	c, ok := r.concepts[id]
	if !ok {
		return Concept{}, fmt.Errorf("%w: %q (available: %v)", ErrUnknownConcept, id, r.IDs())
	}
	return c, nil
}

// List returns all registered concepts in registration order.
func (r *Registry) List() []Concept {
	out := make([]Concept, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.concepts[id])
	}
	return out
}

// IDs returns the ids of all registered concepts, sorted for stable messages.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.concepts))
	for id := range r.concepts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// conceptFile is the on-disk YAML shape for additional concepts.
type conceptFile struct {
	Concepts []Concept `yaml:"concepts"`
}

// LoadFile registers additional concepts from a YAML file.
// A file concept with an id that already exists replaces the built-in definition.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read concept file: %w", err)
	}

	var file conceptFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse concept file %s: %w", path, err)
	}

	for i, c := range file.Concepts {
		if c.ID == "" {
			return fmt.Errorf("concept file %s: concept %d has no id", path, i)
		}
		if len(c.SeedTerms) == 0 {
			return fmt.Errorf("concept file %s: concept %q has no seed terms", path, c.ID)
		}
		r.add(c)
	}

	return nil
}
