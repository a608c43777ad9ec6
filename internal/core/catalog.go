package core

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"sort"
	"tmpl-backend/internal/core/types"

	"gopkg.in/yaml.v2"
)

const (
	DefaultResultCount = 20
	MinResultCount     = 1
	MaxResultCount     = 100
)

// Catalog is the closed set of models the inference backend was trained with.
type Catalog struct {
	Variants  map[string][]int `yaml:"variants"`
	Distances []string         `yaml:"distances"`

	DefaultVariant  string `yaml:"default_variant"`
	DefaultTopics   int    `yaml:"default_topics"`
	DefaultDistance string `yaml:"default_distance"`

	ResultCount struct {
		Min     int `yaml:"min"`
		Max     int `yaml:"max"`
		Default int `yaml:"default"`
	} `yaml:"result_count"`
}

var nameRe = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

func DefaultCatalog() *Catalog {
	c := &Catalog{
		Variants: map[string][]int{
			"fulltext":  {20, 50, 100, 200},
			"abstracts": {20, 50, 100, 200},
		},
		Distances:       []string{"kl", "euclidean"},
		DefaultVariant:  "fulltext",
		DefaultTopics:   20,
		DefaultDistance: "kl",
	}
	c.ResultCount.Min = MinResultCount
	c.ResultCount.Max = MaxResultCount
	c.ResultCount.Default = DefaultResultCount
	return c
}

func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading catalog %s: %w", path, err)
	}

	var catalog Catalog
	if err := yaml.UnmarshalStrict(data, &catalog); err != nil {
		return nil, fmt.Errorf("error parsing catalog %s: %w", path, err)
	}

	if catalog.ResultCount.Min == 0 && catalog.ResultCount.Max == 0 {
		catalog.ResultCount.Min = MinResultCount
		catalog.ResultCount.Max = MaxResultCount
	}
	if catalog.ResultCount.Default == 0 {
		catalog.ResultCount.Default = DefaultResultCount
	}

	if err := catalog.Check(); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", path, err)
	}

	return &catalog, nil
}

// Check verifies that every entry is safe to use as a path segment and a
// process argument, and that the defaults are members of the catalog.
func (c *Catalog) Check() error {
	if len(c.Variants) == 0 {
		return fmt.Errorf("no model variants defined")
	}
	for variant, ks := range c.Variants {
		if !nameRe.MatchString(variant) {
			return fmt.Errorf("model variant '%s' must match %s", variant, nameRe)
		}
		if len(ks) == 0 {
			return fmt.Errorf("model variant '%s' has no topic counts", variant)
		}
		for _, k := range ks {
			if k <= 0 {
				return fmt.Errorf("model variant '%s' has non-positive topic count %d", variant, k)
			}
		}
	}

	if len(c.Distances) == 0 {
		return fmt.Errorf("no distance functions defined")
	}
	for _, dist := range c.Distances {
		if !nameRe.MatchString(dist) {
			return fmt.Errorf("distance function '%s' must match %s", dist, nameRe)
		}
	}

	if !c.HasTopicCount(c.DefaultVariant, c.DefaultTopics) {
		return fmt.Errorf("default model %s/%d is not in the catalog", c.DefaultVariant, c.DefaultTopics)
	}
	if !slices.Contains(c.Distances, c.DefaultDistance) {
		return fmt.Errorf("default distance '%s' is not in the catalog", c.DefaultDistance)
	}

	rc := c.ResultCount
	if rc.Min < 1 || rc.Max < rc.Min || rc.Default < rc.Min || rc.Default > rc.Max {
		return fmt.Errorf("invalid result count bounds [%d, %d] with default %d", rc.Min, rc.Max, rc.Default)
	}

	return nil
}

func (c *Catalog) HasTopicCount(variant string, k int) bool {
	ks, ok := c.Variants[variant]
	return ok && slices.Contains(ks, k)
}

// VariantNames returns the model variants in sorted order.
func (c *Catalog) VariantNames() []string {
	names := make([]string, 0, len(c.Variants))
	for name := range c.Variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// lookupVariant returns the catalog's own copy of the name so that request
// strings never escape the validator.
func (c *Catalog) lookupVariant(name string) (types.ModelVariant, bool) {
	for variant := range c.Variants {
		if variant == name {
			return types.ModelVariant(variant), true
		}
	}
	return "", false
}

func (c *Catalog) lookupDistance(name string) (types.DistanceFunction, bool) {
	for _, dist := range c.Distances {
		if dist == name {
			return types.DistanceFunction(dist), true
		}
	}
	return "", false
}
