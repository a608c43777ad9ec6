package core

import (
	"strconv"
	"strings"
	"tmpl-backend/internal/core/types"
)

type Validator struct {
	catalog *Catalog
}

func NewValidator(catalog *Catalog) *Validator {
	return &Validator{catalog: catalog}
}

func (v *Validator) Catalog() *Catalog {
	return v.catalog
}

// Validate resolves every raw field against the catalog. Empty fields take the
// catalog defaults.
func (v *Validator) Validate(raw types.RawParameters) (types.JobParameters, error) {
	variant, k, err := v.ValidateModel(raw.Mode, raw.K)
	if err != nil {
		return types.JobParameters{}, err
	}

	dist, err := v.validateDistance(raw.Dist)
	if err != nil {
		return types.JobParameters{}, err
	}

	num, err := v.validateResultCount(raw.Num)
	if err != nil {
		return types.JobParameters{}, err
	}

	return types.JobParameters{
		ModelVariant:     variant,
		TopicCount:       k,
		DistanceFunction: dist,
		ResultCount:      num,
	}, nil
}

// ValidateModel checks the (variant, topic count) pair against the catalog.
func (v *Validator) ValidateModel(rawMode, rawK string) (types.ModelVariant, int, error) {
	variant, k, err := v.ParseModel(rawMode, rawK)
	if err != nil {
		return "", 0, err
	}
	if !v.catalog.HasTopicCount(string(variant), k) {
		return "", 0, validationErrorf("ks", "model variant '%s' has no model with %d topics", variant, k)
	}
	return variant, k, nil
}

// ParseModel only checks that the variant is a catalog member and the topic
// count is an integer. Visualize requests use it so an unknown topic count is
// reported as a missing bundle.
func (v *Validator) ParseModel(rawMode, rawK string) (types.ModelVariant, int, error) {
	mode := strings.TrimSpace(rawMode)
	if mode == "" {
		mode = v.catalog.DefaultVariant
	}
	variant, ok := v.catalog.lookupVariant(mode)
	if !ok {
		return "", 0, validationErrorf("modes", "unknown model variant, expected one of %s", strings.Join(v.catalog.VariantNames(), ", "))
	}

	k := v.catalog.DefaultTopics
	if s := strings.TrimSpace(rawK); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil {
			return "", 0, validationErrorf("ks", "topic count must be an integer")
		}
		k = parsed
	}

	return variant, k, nil
}

func (v *Validator) validateDistance(raw string) (types.DistanceFunction, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		name = v.catalog.DefaultDistance
	}
	dist, ok := v.catalog.lookupDistance(name)
	if !ok {
		return "", validationErrorf("dist", "unknown distance function, expected one of %s", strings.Join(v.catalog.Distances, ", "))
	}
	return dist, nil
}

func (v *Validator) validateResultCount(raw string) (int, error) {
	bounds := v.catalog.ResultCount

	s := strings.TrimSpace(raw)
	if s == "" {
		return bounds.Default, nil
	}

	num, err := strconv.Atoi(s)
	if err != nil {
		return 0, validationErrorf("num", "result count must be an integer")
	}
	if num < bounds.Min || num > bounds.Max {
		return 0, validationErrorf("num", "result count must be between %d and %d", bounds.Min, bounds.Max)
	}
	return num, nil
}
