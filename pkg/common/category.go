package common

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/invopop/jsonschema"
	"github.com/samber/lo"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// CategorySet maps a category name to an ordered list of canonical entity
// names. Both the category order and the name order survive a JSON
// round-trip. The zero value is an empty set ready for use.
type CategorySet struct {
	m *orderedmap.OrderedMap[string, []string]
}

// NewCategorySet builds a set from the given entries in order.
func NewCategorySet(entries ...CategoryEntry) CategorySet {
	var cs CategorySet
	for _, e := range entries {
		cs.Set(e.Category, e.Names)
	}
	return cs
}

// CategoryEntry is one category of a CategorySet.
type CategoryEntry struct {
	Category string
	Names    []string
}

func (cs *CategorySet) init() {
	if cs.m == nil {
		cs.m = orderedmap.New[string, []string]()
	}
}

// Get returns the names of a category and whether the category exists.
func (cs CategorySet) Get(category string) ([]string, bool) {
	if cs.m == nil {
		return nil, false
	}
	return cs.m.Get(category)
}

// Set replaces the names of a category, creating it at the end if needed.
func (cs *CategorySet) Set(category string, names []string) {
	cs.init()
	if names == nil {
		names = []string{}
	}
	cs.m.Set(category, names)
}

// Ensure creates the category as an empty list if it does not exist yet.
func (cs *CategorySet) Ensure(category string) {
	cs.init()
	if _, ok := cs.m.Get(category); !ok {
		cs.m.Set(category, []string{})
	}
}

// Append adds a name to the end of a category, creating the category if needed.
func (cs *CategorySet) Append(category, name string) {
	cs.Ensure(category)
	names, _ := cs.m.Get(category)
	cs.m.Set(category, append(names, name))
}

// Contains reports whether name is listed in any category.
func (cs CategorySet) Contains(name string) bool {
	for _, entry := range cs.Entries() {
		if slices.Contains(entry.Names, name) {
			return true
		}
	}
	return false
}

// Categories returns the category names in insertion order.
func (cs CategorySet) Categories() []string {
	if cs.m == nil {
		return []string{}
	}
	out := make([]string, 0, cs.m.Len())
	for pair := cs.m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Entries returns every category with its names in insertion order.
func (cs CategorySet) Entries() []CategoryEntry {
	if cs.m == nil {
		return nil
	}
	out := make([]CategoryEntry, 0, cs.m.Len())
	for pair := cs.m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, CategoryEntry{Category: pair.Key, Names: pair.Value})
	}
	return out
}

// Len returns the number of categories.
func (cs CategorySet) Len() int {
	if cs.m == nil {
		return 0
	}
	return cs.m.Len()
}

// Flatten returns every name of every category as one sequence in
// first-seen order with duplicates removed.
func (cs CategorySet) Flatten() []string {
	names := lo.FlatMap(cs.Entries(), func(e CategoryEntry, _ int) []string {
		return e.Names
	})
	return lo.Uniq(names)
}

// Clone returns a deep copy of the set.
func (cs CategorySet) Clone() CategorySet {
	var out CategorySet
	for _, e := range cs.Entries() {
		out.Set(e.Category, slices.Clone(e.Names))
	}
	return out
}

// Equal compares category order, names and name order.
func (cs CategorySet) Equal(other CategorySet) bool {
	a, b := cs.Entries(), other.Entries()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Category != b[i].Category || !slices.Equal(a[i].Names, b[i].Names) {
			return false
		}
	}
	return true
}

// normalize replaces nil name lists with empty ones.
func (cs *CategorySet) normalize() {
	cs.init()
	for pair := cs.m.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value == nil {
			pair.Value = []string{}
		}
	}
}

// MarshalJSON encodes the set as a JSON object in insertion order.
func (cs CategorySet) MarshalJSON() ([]byte, error) {
	if cs.m == nil {
		return []byte("{}"), nil
	}
	return cs.m.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object of string arrays. null decodes to an
// empty set.
func (cs *CategorySet) UnmarshalJSON(data []byte) error {
	cs.m = orderedmap.New[string, []string]()
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("category set must be a JSON object")
	}
	if err := cs.m.UnmarshalJSON(trimmed); err != nil {
		return fmt.Errorf("failed to decode category set: %w", err)
	}
	cs.normalize()
	return nil
}

// JSONSchema describes the set as an object whose values are string arrays.
func (CategorySet) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		AdditionalProperties: &jsonschema.Schema{
			Type:  "array",
			Items: &jsonschema.Schema{Type: "string"},
		},
	}
}
