package graph

import (
	"github.com/urbanair/aqkg/pkg/common"
	"github.com/urbanair/aqkg/pkg/fuzzy"
)

// MergeStats counts what a merge changed in the base fragment.
type MergeStats struct {
	EntitiesAdded      int `json:"entities_added"`
	EntitiesMatched    int `json:"entities_matched"`
	FactorsInserted    int `json:"factors_inserted"`
	RelationsAdded     int `json:"relations_added"`
	RelationsDuplicate int `json:"relations_duplicate"`
}

// Add accumulates other into s.
func (s *MergeStats) Add(other MergeStats) {
	s.EntitiesAdded += other.EntitiesAdded
	s.EntitiesMatched += other.EntitiesMatched
	s.FactorsInserted += other.FactorsInserted
	s.RelationsAdded += other.RelationsAdded
	s.RelationsDuplicate += other.RelationsDuplicate
}

// Merge folds incoming into base in place and returns what changed.
//
// Entities are deduplicated by fuzzy matching against the live base list of
// the same category, so an entity appended earlier in the same call is a
// match candidate for later ones. Matched entities keep the base spelling.
//
// Relation members are rewritten to canonical names. Pollutants, sources,
// measures and street canyons all resolve against one pool built from the
// four entity kinds combined; a name can therefore resolve to an entity of
// another kind when the spellings are close. Meteorological factor types
// resolve against the meteorological list and unmatched types are inserted
// into it. A rewritten relation is appended only if base does not hold an
// equal record yet.
//
// base is owned by the call; incoming is only read. Neither may be merged
// into concurrently.
func Merge(base, incoming *common.Fragment, threshold int) MergeStats {
	base.Normalize()

	var stats MergeStats
	m := merger{threshold: threshold, stats: &stats}

	m.mergeCategorySet(&base.Pollutants, incoming.Pollutants)
	m.mergeCategorySet(&base.PollutionSources, incoming.PollutionSources)
	m.mergeCategorySet(&base.MitigationMeasures, incoming.MitigationMeasures)
	base.MeteorologicalFactors = m.mergeFlat(base.MeteorologicalFactors, incoming.MeteorologicalFactors)
	base.StreetCanyons = m.mergeFlat(base.StreetCanyons, incoming.StreetCanyons)

	pool := base.MatchPool()

	base.PollutantSourceRelations = mergeRelations(
		&stats,
		base.PollutantSourceRelations,
		incoming.PollutantSourceRelations,
		func(p common.Pair) common.Pair {
			return common.Pair{m.resolve(p[0], pool), m.resolve(p[1], pool)}
		},
	)
	base.SourceMitigationRelations = mergeRelations(
		&stats,
		base.SourceMitigationRelations,
		incoming.SourceMitigationRelations,
		func(p common.Pair) common.Pair {
			return common.Pair{m.resolve(p[0], pool), m.resolve(p[1], pool)}
		},
	)
	base.MeteorologicalDispersionRelations = mergeRelations(
		&stats,
		base.MeteorologicalDispersionRelations,
		incoming.MeteorologicalDispersionRelations,
		func(d common.MeteorologicalDispersion) common.MeteorologicalDispersion {
			factorType, ok := fuzzy.Match(d.Factor.Type, base.MeteorologicalFactors, threshold)
			if !ok {
				base.MeteorologicalFactors = append(base.MeteorologicalFactors, d.Factor.Type)
				stats.FactorsInserted++
				factorType = d.Factor.Type
			}
			return common.MeteorologicalDispersion{
				Factor:    common.MeteorologicalFactor{Type: factorType, Range: d.Factor.Range},
				Pollutant: m.resolve(d.Pollutant, pool),
			}
		},
	)
	base.StreetCanyonDispersionRelations = mergeRelations(
		&stats,
		base.StreetCanyonDispersionRelations,
		incoming.StreetCanyonDispersionRelations,
		func(d common.StreetCanyonDispersion) common.StreetCanyonDispersion {
			return common.StreetCanyonDispersion{
				Description: m.resolve(d.Description, pool),
				Pollutant:   m.resolve(d.Pollutant, pool),
			}
		},
	)

	return stats
}

// MergeAll folds fragments into a fresh base in the given order. The order
// decides which spelling becomes canonical, so callers must keep it fixed.
func MergeAll(threshold int, fragments ...*common.Fragment) (*common.Fragment, MergeStats) {
	base := common.NewFragment()
	var total MergeStats
	for _, f := range fragments {
		if f == nil {
			continue
		}
		total.Add(Merge(base, f, threshold))
	}
	return base, total
}

type merger struct {
	threshold int
	stats     *MergeStats
}

func (m merger) mergeCategorySet(base *common.CategorySet, incoming common.CategorySet) {
	for _, entry := range incoming.Entries() {
		base.Ensure(entry.Category)
		for _, name := range entry.Names {
			current, _ := base.Get(entry.Category)
			if _, ok := fuzzy.Match(name, current, m.threshold); ok {
				m.stats.EntitiesMatched++
				continue
			}
			base.Append(entry.Category, name)
			m.stats.EntitiesAdded++
		}
	}
}

func (m merger) mergeFlat(base, incoming []string) []string {
	for _, name := range incoming {
		if _, ok := fuzzy.Match(name, base, m.threshold); ok {
			m.stats.EntitiesMatched++
			continue
		}
		base = append(base, name)
		m.stats.EntitiesAdded++
	}
	return base
}

// resolve returns the canonical pool spelling of name, or name itself.
func (m merger) resolve(name string, pool []string) string {
	if match, ok := fuzzy.Match(name, pool, m.threshold); ok {
		return match
	}
	return name
}

// mergeRelations appends the rewritten form of every incoming record that
// is not yet present. Relation records are comparable structs, so equality
// is field-wise and independent of the JSON key order they were read with.
func mergeRelations[R comparable](
	stats *MergeStats,
	base []R,
	incoming []R,
	rewrite func(R) R,
) []R {
	seen := make(map[R]struct{}, len(base)+len(incoming))
	for _, r := range base {
		seen[r] = struct{}{}
	}
	for _, r := range incoming {
		matched := rewrite(r)
		if _, ok := seen[matched]; ok {
			stats.RelationsDuplicate++
			continue
		}
		seen[matched] = struct{}{}
		base = append(base, matched)
		stats.RelationsAdded++
	}
	return base
}
