package graph

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/urbanair/aqkg/pkg/common"
)

// Relation kinds as they appear in validation messages.
const (
	KindPollutantSource   = "pollutant-source"
	KindSourceMitigation  = "source-mitigation"
	KindMeteorological    = "meteorological dispersion"
	KindStreetCanyon      = "street canyon dispersion"
	rolePollutant         = "pollutant"
	roleSource            = "source"
	roleMitigation        = "mitigation measure"
	roleMeteorological    = "meteorological factor"
	roleStreetCanyon      = "street canyon factor"
	validationPassedTitle = "✅ JSON validation passed. All entities explicitly match correctly."
	validationFailedTitle = "🚨 JSON validation errors found:"
)

// ValidationIssue is one relation member that does not name a defined entity.
type ValidationIssue struct {
	RelationKind string `json:"relation_kind"`
	MissingRole  string `json:"missing_role"`
	MissingValue string `json:"missing_value"`
}

func (i ValidationIssue) String() string {
	return fmt.Sprintf("Missing %s entity: '%s' in %s relation.", i.MissingRole, i.MissingValue, i.RelationKind)
}

// Validate checks every relation member against the entity set of its role.
// Each unresolved member yields one issue, in relation order and then field
// order. The fragment is not modified. An empty result means the fragment is
// consistent.
func Validate(f *common.Fragment) []ValidationIssue {
	pollutants := lo.Keyify(f.Pollutants.Flatten())
	sources := lo.Keyify(f.PollutionSources.Flatten())
	measures := lo.Keyify(f.MitigationMeasures.Flatten())
	factors := lo.Keyify(f.MeteorologicalFactors)
	canyons := lo.Keyify(f.StreetCanyons)

	issues := []ValidationIssue{}
	check := func(set map[string]struct{}, kind, role, value string) {
		if _, ok := set[value]; !ok {
			issues = append(issues, ValidationIssue{RelationKind: kind, MissingRole: role, MissingValue: value})
		}
	}

	for _, r := range f.PollutantSourceRelations {
		check(pollutants, KindPollutantSource, rolePollutant, r.Subject())
		check(sources, KindPollutantSource, roleSource, r.Object())
	}
	for _, r := range f.SourceMitigationRelations {
		check(sources, KindSourceMitigation, roleSource, r.Subject())
		check(measures, KindSourceMitigation, roleMitigation, r.Object())
	}
	for _, r := range f.MeteorologicalDispersionRelations {
		check(factors, KindMeteorological, roleMeteorological, r.Factor.Type)
		check(pollutants, KindMeteorological, rolePollutant, r.Pollutant)
	}
	for _, r := range f.StreetCanyonDispersionRelations {
		check(canyons, KindStreetCanyon, roleStreetCanyon, r.Description)
		check(pollutants, KindStreetCanyon, rolePollutant, r.Pollutant)
	}
	return issues
}

// ValidationReport renders the pass banner, or the failure banner followed
// by one "- " line per issue.
func ValidationReport(issues []ValidationIssue) string {
	if len(issues) == 0 {
		return validationPassedTitle + "\n"
	}
	var sb strings.Builder
	sb.WriteString(validationFailedTitle)
	sb.WriteString("\n")
	for _, issue := range issues {
		sb.WriteString("- ")
		sb.WriteString(issue.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
