package repository

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one published model version.
type Entry struct {
	Name        string            `yaml:"name"`
	Version     string            `yaml:"version"`
	URL         string            `yaml:"url"`
	Engine      string            `yaml:"engine,omitempty"`
	Artifact    string            `yaml:"artifact,omitempty"`
	Description string            `yaml:"description,omitempty"`
	Properties  map[string]string `yaml:"properties,omitempty"`
}

// Catalog lists the models reachable through zoo:// URLs.
type Catalog struct {
	Models []Entry `yaml:"models"`
}

// LoadCatalog reads a YAML catalog.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read catalog: %w", ErrIOFailure, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes YAML catalog data.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: parse catalog: %w", ErrIOFailure, err)
	}
	for i, e := range c.Models {
		if e.Name == "" || e.URL == "" {
			return nil, fmt.Errorf("%w: catalog entry %d needs name and url", ErrIOFailure, i)
		}
	}
	return &c, nil
}

// Lookup returns the entry for name at version, or the newest version when
// version is empty.
func (c *Catalog) Lookup(name, version string) (Entry, error) {
	var matches []Entry
	if c != nil {
		for _, e := range c.Models {
			if e.Name == name && (version == "" || e.Version == version) {
				matches = append(matches, e)
			}
		}
	}
	if len(matches) == 0 {
		if version != "" {
			return Entry{}, fmt.Errorf("%w: %s version %s is not in the catalog", ErrModelNotFound, name, version)
		}
		return Entry{}, fmt.Errorf("%w: %s is not in the catalog", ErrModelNotFound, name)
	}
	return slices.MaxFunc(matches, func(a, b Entry) int {
		return compareVersions(a.Version, b.Version)
	}), nil
}

// compareVersions orders dotted versions numerically where both parts are
// numbers and lexically otherwise.
func compareVersions(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := range max(len(as), len(bs)) {
		var x, y string
		if i < len(as) {
			x = as[i]
		}
		if i < len(bs) {
			y = bs[i]
		}
		xn, errX := strconv.Atoi(x)
		yn, errY := strconv.Atoi(y)
		switch {
		case errX == nil && errY == nil:
			if xn != yn {
				if xn < yn {
					return -1
				}
				return 1
			}
		case x != y:
			return strings.Compare(x, y)
		}
	}
	return 0
}
