package triage

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed specialties.yaml
var defaultCatalogYAML []byte

// Specialty is one entry of the specialty catalog.
type Specialty struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// Catalog resolves free-form specialty names to the names stored in the
// specialties table.
type Catalog struct {
	specialties []Specialty
	index       map[string]string
}

// ParseCatalog builds a catalog from YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Specialties []Specialty `yaml:"specialties"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("triage: parse specialty catalog: %w", err)
	}
	if len(doc.Specialties) == 0 {
		return nil, fmt.Errorf("triage: specialty catalog is empty")
	}

	c := &Catalog{
		specialties: doc.Specialties,
		index:       make(map[string]string),
	}
	for _, s := range doc.Specialties {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return nil, fmt.Errorf("triage: specialty catalog has an unnamed entry")
		}
		c.index[catalogKey(name)] = name
		for _, alias := range s.Aliases {
			key := catalogKey(alias)
			if key == "" {
				continue
			}
			if existing, ok := c.index[key]; ok && existing != name {
				return nil, fmt.Errorf("triage: alias %q maps to both %q and %q", alias, existing, name)
			}
			c.index[key] = name
		}
	}
	return c, nil
}

// DefaultCatalog returns the embedded catalog. It panics if the embedded
// file is malformed, which a test guards against.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// Canonical maps name or one of its aliases to the canonical specialty
// name. Unknown names are returned trimmed but otherwise unchanged.
func (c *Catalog) Canonical(name string) string {
	trimmed := strings.TrimSpace(name)
	if c == nil {
		return trimmed
	}
	if canonical, ok := c.index[catalogKey(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

// Known reports whether name resolves to a catalog entry.
func (c *Catalog) Known(name string) bool {
	if c == nil {
		return false
	}
	_, ok := c.index[catalogKey(name)]
	return ok
}

// Names returns canonical names in catalog order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.specialties))
	for _, s := range c.specialties {
		names = append(names, s.Name)
	}
	return names
}

func catalogKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
