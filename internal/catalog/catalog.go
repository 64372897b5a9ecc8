// Package catalog lists the commodities the dashboard supports and the
// futures ticker used to price each one.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/trogers1052/cot-signal-service/internal/models"
)

//go:embed commodities.yaml
var defaultCatalog []byte

// ErrUnknownCommodity is returned by Lookup when nothing matches.
var ErrUnknownCommodity = errors.New("unknown commodity")

type file struct {
	Commodities []models.Commodity `yaml:"commodities"`
}

// Catalog is the ordered list of supported commodities.
type Catalog struct {
	items []models.Commodity
}

// Load reads a catalog file, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
		}
	}
	return Parse(data)
}

// Parse decodes catalog YAML. Slugs default to the lower-cased name with
// spaces replaced by dashes.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(f.Commodities) == 0 {
		return nil, errors.New("catalog has no commodities")
	}

	seen := make(map[string]bool)
	for i := range f.Commodities {
		c := &f.Commodities[i]
		c.Name = strings.TrimSpace(c.Name)
		c.Symbol = strings.TrimSpace(c.Symbol)
		if c.Name == "" || c.Symbol == "" {
			return nil, fmt.Errorf("catalog entry %d: name and symbol are required", i)
		}
		if c.Slug == "" {
			c.Slug = slugify(c.Name)
		}
		key := strings.ToLower(c.Name)
		if seen[key] {
			return nil, fmt.Errorf("catalog entry %d: duplicate commodity %s", i, c.Name)
		}
		seen[key] = true
	}
	return &Catalog{items: f.Commodities}, nil
}

// All returns the commodities in catalog order.
func (c *Catalog) All() []models.Commodity {
	out := make([]models.Commodity, len(c.items))
	copy(out, c.items)
	return out
}

// Lookup matches a display name (case-insensitive), slug or ticker.
func (c *Catalog) Lookup(key string) (models.Commodity, error) {
	key = strings.TrimSpace(key)
	for _, item := range c.items {
		if strings.EqualFold(item.Name, key) || strings.EqualFold(item.Slug, key) || strings.EqualFold(item.Symbol, key) {
			return item, nil
		}
	}
	return models.Commodity{}, fmt.Errorf("%w: %s", ErrUnknownCommodity, key)
}

func slugify(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "-"))
}
