package common

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

const sampleFragment = `{
  "pollutants": {
    "combustion": ["NO2", "PM2.5"],
    "secondary": ["O3"]
  },
  "pollution_sources": {
    "vehicular": ["Diesel Cars", "Buses"]
  },
  "mitigation_measures": {
    "traffic": ["Low Emission Zone"]
  },
  "meteorological_factors": ["Wind Speed"],
  "street_canyons": ["Aspect Ratio"],
  "pollutant_source_relations": [["NO2", "Diesel Cars"]],
  "source_mitigation_relations": [["Diesel Cars", "Low Emission Zone"]],
  "meteorological_dispersion_relations": [
    {"meteorological_factor": {"type": "Wind Speed", "range": "> 5 m/s"}, "pollutant": "NO2"}
  ],
  "street_canyon_dispersion_relations": [
    {"street_canyon_description": "Aspect Ratio", "pollutant": "PM2.5"}
  ]
}`

func TestDecode_PreservesOrder(t *testing.T) {
	f, err := Decode([]byte(sampleFragment))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if got := f.Pollutants.Categories(); !slices.Equal(got, []string{"combustion", "secondary"}) {
		t.Fatalf("categories = %v", got)
	}
	if got := f.Pollutants.Flatten(); !slices.Equal(got, []string{"NO2", "PM2.5", "O3"}) {
		t.Fatalf("flatten = %v", got)
	}
	want := MeteorologicalDispersion{
		Factor:    MeteorologicalFactor{Type: "Wind Speed", Range: "> 5 m/s"},
		Pollutant: "NO2",
	}
	if f.MeteorologicalDispersionRelations[0] != want {
		t.Fatalf("met relation = %+v, want %+v", f.MeteorologicalDispersionRelations[0], want)
	}
}

func TestDecode_MissingKeysBecomeEmpty(t *testing.T) {
	f, err := Decode([]byte(`{"pollutants": {"combustion": ["NO2"]}}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if f.PollutionSources.Len() != 0 {
		t.Fatalf("expected empty sources, got %d categories", f.PollutionSources.Len())
	}
	if f.MeteorologicalFactors == nil || f.PollutantSourceRelations == nil || f.StreetCanyonDispersionRelations == nil {
		t.Fatal("expected normalized empty collections, got nil")
	}

	out, err := Encode(f)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !strings.Contains(string(out), `"street_canyons": []`) {
		t.Fatalf("expected empty street_canyons array in output:\n%s", out)
	}
}

func TestDecode_NullCollections(t *testing.T) {
	f, err := Decode([]byte(`{"pollutants": null, "street_canyons": null, "mitigation_measures": {"x": null}}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if f.Pollutants.Len() != 0 {
		t.Fatalf("expected empty pollutants")
	}
	names, ok := f.MitigationMeasures.Get("x")
	if !ok || names == nil || len(names) != 0 {
		t.Fatalf("expected empty category x, got %v %v", names, ok)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		malformed bool
	}{
		{name: "not json", input: `{"pollutants":`},
		{name: "array document", input: `[]`},
		{name: "category set not object", input: `{"pollutants": ["NO2"]}`},
		{name: "pair arity", input: `{"pollutant_source_relations": [["NO2"]]}`, malformed: true},
		{name: "pair triple", input: `{"pollutant_source_relations": [["NO2", "Cars", "x"]]}`, malformed: true},
		{name: "pair non-string", input: `{"source_mitigation_relations": [["Cars", 3]]}`, malformed: true},
		{name: "pair null member", input: `{"source_mitigation_relations": [["Cars", null]]}`, malformed: true},
		{name: "met missing type", input: `{"meteorological_dispersion_relations": [{"meteorological_factor": {}, "pollutant": "NO2"}]}`, malformed: true},
		{name: "met numeric pollutant", input: `{"meteorological_dispersion_relations": [{"meteorological_factor": {"type": "Wind"}, "pollutant": 2}]}`, malformed: true},
		{name: "canyon missing pollutant", input: `{"street_canyon_dispersion_relations": [{"street_canyon_description": "Deep"}]}`, malformed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.malformed && !errors.Is(err, ErrMalformedRelation) {
				t.Fatalf("expected ErrMalformedRelation, got %v", err)
			}
		})
	}
}

func TestDecodeStrict_RequiresAllKeys(t *testing.T) {
	if _, err := DecodeStrict([]byte(sampleFragment)); err != nil {
		t.Fatalf("DecodeStrict(sample) error = %v", err)
	}

	_, err := DecodeStrict([]byte(`{"pollutants": {}}`))
	if !errors.Is(err, ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey, got %v", err)
	}
	if !strings.Contains(err.Error(), "street_canyon_dispersion_relations") {
		t.Fatalf("expected missing key list in error, got %v", err)
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	f, err := Decode([]byte(sampleFragment))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	f.MeteorologicalDispersionRelations = append(f.MeteorologicalDispersionRelations, MeteorologicalDispersion{
		Factor:    MeteorologicalFactor{Type: "Temperature Inversion"},
		Pollutant: "PM2.5",
	})

	data, err := Encode(f)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	again, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode(encoded) error = %v", err)
	}
	if !f.Equal(again) {
		t.Fatalf("round trip mismatch:\n%s", data)
	}

	second, err := Encode(again)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(second) != string(data) {
		t.Fatalf("encoding not stable:\n%s\n---\n%s", data, second)
	}
}

func TestEncode_KeyOrder(t *testing.T) {
	data, err := Encode(NewFragment())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	last := -1
	for _, key := range FragmentKeys {
		idx := strings.Index(string(data), `"`+key+`"`)
		if idx < 0 {
			t.Fatalf("key %s missing", key)
		}
		if idx < last {
			t.Fatalf("key %s out of order", key)
		}
		last = idx
	}
}

func TestFragment_CloneIsDeep(t *testing.T) {
	f, err := Decode([]byte(sampleFragment))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	c := f.Clone()
	c.Pollutants.Append("combustion", "CO")
	c.StreetCanyons[0] = "changed"

	if f.Pollutants.Contains("CO") {
		t.Fatal("clone shares category lists with original")
	}
	if f.StreetCanyons[0] != "Aspect Ratio" {
		t.Fatal("clone shares street canyon list with original")
	}
	if f.Equal(c) {
		t.Fatal("expected modified clone to differ")
	}
}

func TestFragment_MatchPool(t *testing.T) {
	f, err := Decode([]byte(sampleFragment))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := []string{"NO2", "PM2.5", "O3", "Diesel Cars", "Buses", "Low Emission Zone", "Aspect Ratio"}
	if got := f.MatchPool(); !slices.Equal(got, want) {
		t.Fatalf("MatchPool() = %v, want %v", got, want)
	}
	if f.EntityCount() != 8 {
		t.Fatalf("EntityCount() = %d, want 8", f.EntityCount())
	}
	if f.RelationCount() != 4 {
		t.Fatalf("RelationCount() = %d, want 4", f.RelationCount())
	}
}

func TestCategorySet_ZeroValue(t *testing.T) {
	var cs CategorySet
	if cs.Len() != 0 || cs.Contains("x") || len(cs.Flatten()) != 0 {
		t.Fatal("zero value should be empty")
	}
	cs.Ensure("a")
	cs.Append("b", "one")
	cs.Append("a", "two")
	cs.Ensure("a")

	if got := cs.Categories(); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("categories = %v", got)
	}
	if got := cs.Flatten(); !slices.Equal(got, []string{"two", "one"}) {
		t.Fatalf("flatten = %v", got)
	}
}

func TestCategorySet_FlattenDedupes(t *testing.T) {
	cs := NewCategorySet(
		CategoryEntry{Category: "a", Names: []string{"x", "y"}},
		CategoryEntry{Category: "b", Names: []string{"y", "z"}},
	)
	if got := cs.Flatten(); !slices.Equal(got, []string{"x", "y", "z"}) {
		t.Fatalf("flatten = %v", got)
	}
}
