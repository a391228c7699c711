// Package playbook holds the static catalog of incident response playbooks.
package playbook

import (
	"sort"
)

// Unknown is the fallback category. Every catalog must carry it with at least one step.
const Unknown = "Unknown"

// Step is one remediation action. Identity is ID within its playbook.
type Step struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Icon        string `yaml:"icon" json:"icon"`
}

// Playbook is the ordered step list for one incident category.
type Playbook struct {
	Category string `yaml:"category" json:"category"`
	Steps    []Step `yaml:"steps" json:"steps"`
}

func (p Playbook) Len() int { return len(p.Steps) }

// Step returns the step at i. Callers keep i within [0, Len()).
func (p Playbook) Step(i int) Step { return p.Steps[i] }

func (p Playbook) clone() Playbook {
	return Playbook{Category: p.Category, Steps: append([]Step(nil), p.Steps...)}
}

// Catalog is immutable after construction; every accessor returns copies.
type Catalog struct {
	byCategory map[string]Playbook
	order      []string
}

// Lookup matches category exactly and case-sensitively.
func (c *Catalog) Lookup(category string) (Playbook, bool) {
	p, ok := c.byCategory[category]
	if !ok {
		return Playbook{}, false
	}
	return p.clone(), true
}

// Resolve is total: any category not in the catalog, including "", yields
// the Unknown playbook.
func (c *Catalog) Resolve(category string) Playbook {
	if p, ok := c.Lookup(category); ok {
		return p
	}
	return c.byCategory[Unknown].clone()
}

// Categories lists categories in catalog file order.
func (c *Catalog) Categories() []string {
	return append([]string(nil), c.order...)
}

// All returns every playbook in catalog file order.
func (c *Catalog) All() []Playbook {
	out := make([]Playbook, 0, len(c.order))
	for _, cat := range c.order {
		out = append(out, c.byCategory[cat].clone())
	}
	return out
}

// KnownCategories lists the categories a classifier may answer with, sorted,
// with Unknown last.
func (c *Catalog) KnownCategories() []string {
	out := make([]string, 0, len(c.order))
	for _, cat := range c.order {
		if cat != Unknown {
			out = append(out, cat)
		}
	}
	sort.Strings(out)
	return append(out, Unknown)
}
