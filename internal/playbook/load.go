package playbook

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalogYAML []byte

var ErrInvalidCatalog = errors.New("playbook: invalid catalog")

type catalogFile struct {
	Playbooks []Playbook `yaml:"playbooks"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalogYAML)
	if err != nil {
		panic("playbook: embedded catalog: " + err.Error())
	}
	return c
}

// LoadFile reads a YAML catalog from path. An empty path returns Default().
func LoadFile(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read playbook catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	c := &Catalog{byCategory: make(map[string]Playbook, len(f.Playbooks))}
	for i, p := range f.Playbooks {
		if strings.TrimSpace(p.Category) == "" {
			return nil, fmt.Errorf("%w: playbook %d has no category", ErrInvalidCatalog, i)
		}
		if _, dup := c.byCategory[p.Category]; dup {
			return nil, fmt.Errorf("%w: duplicate category %q", ErrInvalidCatalog, p.Category)
		}
		if len(p.Steps) == 0 {
			return nil, fmt.Errorf("%w: category %q has no steps", ErrInvalidCatalog, p.Category)
		}
		seen := make(map[string]struct{}, len(p.Steps))
		for j, s := range p.Steps {
			if strings.TrimSpace(s.ID) == "" || strings.TrimSpace(s.Title) == "" {
				return nil, fmt.Errorf("%w: category %q step %d needs id and title", ErrInvalidCatalog, p.Category, j)
			}
			if _, dup := seen[s.ID]; dup {
				return nil, fmt.Errorf("%w: category %q repeats step id %q", ErrInvalidCatalog, p.Category, s.ID)
			}
			seen[s.ID] = struct{}{}
		}
		c.byCategory[p.Category] = p.clone()
		c.order = append(c.order, p.Category)
	}
	if _, ok := c.byCategory[Unknown]; !ok {
		return nil, fmt.Errorf("%w: missing %q fallback", ErrInvalidCatalog, Unknown)
	}
	return c, nil
}

// New builds a catalog from in-memory playbooks with the same validation as Parse.
func New(playbooks ...Playbook) (*Catalog, error) {
	data, err := yaml.Marshal(catalogFile{Playbooks: playbooks})
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
