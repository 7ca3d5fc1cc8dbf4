package common

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedRelation is returned when a relation record has the wrong
// arity or a name that is not a string.
var ErrMalformedRelation = errors.New("malformed relation")

// Pair is an ordered (subject, object) relation. For pollutant-source
// relations the subject is the pollutant, for source-mitigation relations it
// is the source.
type Pair [2]string

// Subject returns the first member of the pair.
func (p Pair) Subject() string { return p[0] }

// Object returns the second member of the pair.
func (p Pair) Object() string { return p[1] }

// UnmarshalJSON accepts exactly two strings.
func (p *Pair) UnmarshalJSON(data []byte) error {
	var members []json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return fmt.Errorf("%w: pair must be an array: %v", ErrMalformedRelation, err)
	}
	if len(members) != 2 {
		return fmt.Errorf("%w: pair must have 2 members, got %d", ErrMalformedRelation, len(members))
	}
	for i, raw := range members {
		var name *string
		if err := json.Unmarshal(raw, &name); err != nil || name == nil {
			return fmt.Errorf("%w: pair member %d is not a string: %s", ErrMalformedRelation, i, string(raw))
		}
		p[i] = *name
	}
	return nil
}

// MeteorologicalFactor is the factor side of a meteorological dispersion
// relation. Range is optional and empty when absent.
type MeteorologicalFactor struct {
	Type  string `json:"type"`
	Range string `json:"range,omitempty"`
}

// MeteorologicalDispersion links a meteorological factor to a pollutant whose
// dispersion it affects.
type MeteorologicalDispersion struct {
	Factor    MeteorologicalFactor `json:"meteorological_factor"`
	Pollutant string               `json:"pollutant"`
}

// UnmarshalJSON requires the factor type and the pollutant to be strings.
func (d *MeteorologicalDispersion) UnmarshalJSON(data []byte) error {
	var raw struct {
		Factor *struct {
			Type  *string `json:"type"`
			Range *string `json:"range"`
		} `json:"meteorological_factor"`
		Pollutant *string `json:"pollutant"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: meteorological dispersion relation: %v", ErrMalformedRelation, err)
	}
	if raw.Factor == nil || raw.Factor.Type == nil {
		return fmt.Errorf("%w: meteorological dispersion relation without factor type", ErrMalformedRelation)
	}
	if raw.Pollutant == nil {
		return fmt.Errorf("%w: meteorological dispersion relation without pollutant", ErrMalformedRelation)
	}

	*d = MeteorologicalDispersion{
		Factor:    MeteorologicalFactor{Type: *raw.Factor.Type},
		Pollutant: *raw.Pollutant,
	}
	if raw.Factor.Range != nil {
		d.Factor.Range = *raw.Factor.Range
	}
	return nil
}

// StreetCanyonDispersion links a street canyon description to a pollutant
// whose dispersion it affects.
type StreetCanyonDispersion struct {
	Description string `json:"street_canyon_description"`
	Pollutant   string `json:"pollutant"`
}

// UnmarshalJSON requires both fields to be strings.
func (d *StreetCanyonDispersion) UnmarshalJSON(data []byte) error {
	var raw struct {
		Description *string `json:"street_canyon_description"`
		Pollutant   *string `json:"pollutant"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: street canyon dispersion relation: %v", ErrMalformedRelation, err)
	}
	if raw.Description == nil {
		return fmt.Errorf("%w: street canyon dispersion relation without description", ErrMalformedRelation)
	}
	if raw.Pollutant == nil {
		return fmt.Errorf("%w: street canyon dispersion relation without pollutant", ErrMalformedRelation)
	}

	*d = StreetCanyonDispersion{Description: *raw.Description, Pollutant: *raw.Pollutant}
	return nil
}
