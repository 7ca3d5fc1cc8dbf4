package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// ErrMissingKey is returned by DecodeStrict when a top-level key is absent.
var ErrMissingKey = errors.New("missing top-level key")

// Top-level keys of a knowledge fragment document.
const (
	KeyPollutants                  = "pollutants"
	KeyPollutionSources            = "pollution_sources"
	KeyMitigationMeasures          = "mitigation_measures"
	KeyMeteorologicalFactors       = "meteorological_factors"
	KeyStreetCanyons               = "street_canyons"
	KeyPollutantSourceRelations    = "pollutant_source_relations"
	KeySourceMitigationRelations   = "source_mitigation_relations"
	KeyMeteorologicalDispersionRel = "meteorological_dispersion_relations"
	KeyStreetCanyonDispersionRel   = "street_canyon_dispersion_relations"
)

// FragmentKeys lists the top-level keys in document order.
var FragmentKeys = []string{
	KeyPollutants,
	KeyPollutionSources,
	KeyMitigationMeasures,
	KeyMeteorologicalFactors,
	KeyStreetCanyons,
	KeyPollutantSourceRelations,
	KeySourceMitigationRelations,
	KeyMeteorologicalDispersionRel,
	KeyStreetCanyonDispersionRel,
}

// Fragment is one knowledge document: categorized entities, flat entity
// lists and the four relation collections. A fragment is either extracted
// from text or loaded from a previous merge result.
type Fragment struct {
	Pollutants         CategorySet `json:"pollutants" jsonschema:"description=Pollutants grouped by category"`
	PollutionSources   CategorySet `json:"pollution_sources" jsonschema:"description=Pollution sources grouped by category"`
	MitigationMeasures CategorySet `json:"mitigation_measures" jsonschema:"description=Mitigation measures grouped by category"`

	MeteorologicalFactors []string `json:"meteorological_factors" jsonschema:"description=Meteorological factors such as wind speed or temperature inversion"`
	StreetCanyons         []string `json:"street_canyons" jsonschema:"description=Street canyon characteristics such as aspect ratio"`

	PollutantSourceRelations          []Pair                     `json:"pollutant_source_relations" jsonschema:"description=Pairs of [pollutant, source]"`
	SourceMitigationRelations         []Pair                     `json:"source_mitigation_relations" jsonschema:"description=Pairs of [source, mitigation measure]"`
	MeteorologicalDispersionRelations []MeteorologicalDispersion `json:"meteorological_dispersion_relations"`
	StreetCanyonDispersionRelations   []StreetCanyonDispersion   `json:"street_canyon_dispersion_relations"`
}

// NewFragment returns an empty, normalized fragment.
func NewFragment() *Fragment {
	f := &Fragment{}
	f.Normalize()
	return f
}

// Normalize applies the default-value policy: every missing category set or
// list becomes empty. It is applied after every decode and before every
// encode so callers never see nil collections.
func (f *Fragment) Normalize() {
	f.Pollutants.normalize()
	f.PollutionSources.normalize()
	f.MitigationMeasures.normalize()
	if f.MeteorologicalFactors == nil {
		f.MeteorologicalFactors = []string{}
	}
	if f.StreetCanyons == nil {
		f.StreetCanyons = []string{}
	}
	if f.PollutantSourceRelations == nil {
		f.PollutantSourceRelations = []Pair{}
	}
	if f.SourceMitigationRelations == nil {
		f.SourceMitigationRelations = []Pair{}
	}
	if f.MeteorologicalDispersionRelations == nil {
		f.MeteorologicalDispersionRelations = []MeteorologicalDispersion{}
	}
	if f.StreetCanyonDispersionRelations == nil {
		f.StreetCanyonDispersionRelations = []StreetCanyonDispersion{}
	}
}

// MatchPool returns the names used to resolve non-meteorological relation
// members: pollutants, sources, measures and street canyons concatenated in
// that order.
func (f *Fragment) MatchPool() []string {
	return lo.Uniq(slices.Concat(
		f.Pollutants.Flatten(),
		f.PollutionSources.Flatten(),
		f.MitigationMeasures.Flatten(),
		f.StreetCanyons,
	))
}

// EntityCount returns the total number of entity names in the fragment.
func (f *Fragment) EntityCount() int {
	count := len(f.MeteorologicalFactors) + len(f.StreetCanyons)
	for _, set := range []CategorySet{f.Pollutants, f.PollutionSources, f.MitigationMeasures} {
		for _, e := range set.Entries() {
			count += len(e.Names)
		}
	}
	return count
}

// RelationCount returns the total number of relation records.
func (f *Fragment) RelationCount() int {
	return len(f.PollutantSourceRelations) +
		len(f.SourceMitigationRelations) +
		len(f.MeteorologicalDispersionRelations) +
		len(f.StreetCanyonDispersionRelations)
}

// Clone returns a deep copy.
func (f *Fragment) Clone() *Fragment {
	out := &Fragment{
		Pollutants:                        f.Pollutants.Clone(),
		PollutionSources:                  f.PollutionSources.Clone(),
		MitigationMeasures:                f.MitigationMeasures.Clone(),
		MeteorologicalFactors:             slices.Clone(f.MeteorologicalFactors),
		StreetCanyons:                     slices.Clone(f.StreetCanyons),
		PollutantSourceRelations:          slices.Clone(f.PollutantSourceRelations),
		SourceMitigationRelations:         slices.Clone(f.SourceMitigationRelations),
		MeteorologicalDispersionRelations: slices.Clone(f.MeteorologicalDispersionRelations),
		StreetCanyonDispersionRelations:   slices.Clone(f.StreetCanyonDispersionRelations),
	}
	out.Normalize()
	return out
}

// Equal reports whether two fragments hold the same entities and relations
// in the same order. Missing and empty collections are equal.
func (f *Fragment) Equal(other *Fragment) bool {
	return f.Pollutants.Equal(other.Pollutants) &&
		f.PollutionSources.Equal(other.PollutionSources) &&
		f.MitigationMeasures.Equal(other.MitigationMeasures) &&
		slices.Equal(f.MeteorologicalFactors, other.MeteorologicalFactors) &&
		slices.Equal(f.StreetCanyons, other.StreetCanyons) &&
		slices.Equal(f.PollutantSourceRelations, other.PollutantSourceRelations) &&
		slices.Equal(f.SourceMitigationRelations, other.SourceMitigationRelations) &&
		slices.Equal(f.MeteorologicalDispersionRelations, other.MeteorologicalDispersionRelations) &&
		slices.Equal(f.StreetCanyonDispersionRelations, other.StreetCanyonDispersionRelations)
}

// Decode parses a fragment document. Missing keys decode to empty
// collections; malformed JSON and malformed relations are errors.
func Decode(data []byte) (*Fragment, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("failed to decode fragment: document must be a JSON object")
	}

	var f Fragment
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return nil, fmt.Errorf("failed to decode fragment: %w", err)
	}
	f.Normalize()
	return &f, nil
}

// DecodeStrict parses a fragment document and additionally requires every
// top-level key to be present.
func DecodeStrict(data []byte) (*Fragment, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("failed to decode fragment: %w", err)
	}

	var missing []string
	for _, key := range FragmentKeys {
		if _, ok := keys[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingKey, strings.Join(missing, ", "))
	}

	return Decode(data)
}

// Encode renders the fragment as indented JSON in canonical key order.
func Encode(f *Fragment) ([]byte, error) {
	f.Normalize()
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode fragment: %w", err)
	}
	return data, nil
}
