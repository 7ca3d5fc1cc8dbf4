package common

import "slices"

// Node labels of the persisted graph.
const (
	LabelPollutant            = "Pollutant"
	LabelSource               = "Source"
	LabelMitigationMeasure    = "MitigationMeasure"
	LabelMeteorologicalFactor = "MeteorologicalFactor"
	LabelStreetCanyon         = "StreetCanyon"
)

// Relationship types of the persisted graph.
const (
	RelEmits             = "EMITS"
	RelMitigates         = "MITIGATES"
	RelAffectsDispersion = "AFFECTS_DISPERSION"
)

// RelTypes lists every relationship type.
var RelTypes = []string{RelEmits, RelMitigates, RelAffectsDispersion}

// IsRelType reports whether t is one of the known relationship types.
func IsRelType(t string) bool {
	return slices.Contains(RelTypes, t)
}

// Labels lists every node label in import order.
var Labels = []string{
	LabelPollutant,
	LabelSource,
	LabelMitigationMeasure,
	LabelMeteorologicalFactor,
	LabelStreetCanyon,
}

// IsLabel reports whether label is one of the known node labels.
func IsLabel(label string) bool {
	return slices.Contains(Labels, label)
}

// Node is an entity of the persisted graph, keyed by (Label, Name).
//
// Category holds the category the entity was listed under in its fragment.
// Flat entity kinds (meteorological factors, street canyons) carry an empty
// category.
type Node struct {
	Label    string `json:"label"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// Key returns the identity of the node inside the graph.
func (n Node) Key() NodeKey {
	return NodeKey{Label: n.Label, Name: n.Name}
}

// NodeKey identifies a node by label and name.
type NodeKey struct {
	Label string `json:"label"`
	Name  string `json:"name"`
}

// Edge is a directed relationship between two nodes.
//
// Range is only set on AFFECTS_DISPERSION edges that start at a
// meteorological factor with a known range.
type Edge struct {
	Type  string  `json:"type"`
	From  NodeKey `json:"from"`
	To    NodeKey `json:"to"`
	Range string  `json:"range,omitempty"`
}

// ScoredNode is a node returned by a similarity search.
type ScoredNode struct {
	Node
	Score float64 `json:"score"`
}

// Unit represents a contiguous segment of text extracted from a file.
// Units are created by splitting documents into token-limited chunks, each
// of which is sent to the extraction model on its own.
type Unit struct {
	ID     string `json:"id"`
	FileID string `json:"file_id"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Text   string `json:"text"`
}
