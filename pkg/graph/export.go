package graph

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/urbanair/aqkg/pkg/common"
)

// BuildGraph projects a fragment onto graph nodes and edges.
//
// Nodes are unique by (label, name); an entity listed under several
// categories keeps the first one. Edges are unique by type, endpoints and
// range. Relations whose endpoints are not nodes of the fragment are
// skipped, which mirrors the MATCH-then-MERGE behaviour of the graph sink.
func BuildGraph(f *common.Fragment) ([]common.Node, []common.Edge) {
	b := graphBuilder{
		nodeIndex: make(map[common.NodeKey]struct{}),
		edgeIndex: make(map[common.Edge]struct{}),
	}

	b.addCategorized(common.LabelPollutant, f.Pollutants)
	b.addCategorized(common.LabelSource, f.PollutionSources)
	b.addCategorized(common.LabelMitigationMeasure, f.MitigationMeasures)
	for _, name := range f.MeteorologicalFactors {
		b.addNode(common.Node{Label: common.LabelMeteorologicalFactor, Name: name})
	}
	for _, name := range f.StreetCanyons {
		b.addNode(common.Node{Label: common.LabelStreetCanyon, Name: name})
	}

	for _, r := range f.PollutantSourceRelations {
		b.addEdge(common.RelEmits,
			common.NodeKey{Label: common.LabelSource, Name: r.Object()},
			common.NodeKey{Label: common.LabelPollutant, Name: r.Subject()},
			"",
		)
	}
	for _, r := range f.SourceMitigationRelations {
		b.addEdge(common.RelMitigates,
			common.NodeKey{Label: common.LabelMitigationMeasure, Name: r.Object()},
			common.NodeKey{Label: common.LabelSource, Name: r.Subject()},
			"",
		)
	}
	for _, r := range f.MeteorologicalDispersionRelations {
		b.addEdge(common.RelAffectsDispersion,
			common.NodeKey{Label: common.LabelMeteorologicalFactor, Name: r.Factor.Type},
			common.NodeKey{Label: common.LabelPollutant, Name: r.Pollutant},
			r.Factor.Range,
		)
	}
	for _, r := range f.StreetCanyonDispersionRelations {
		b.addEdge(common.RelAffectsDispersion,
			common.NodeKey{Label: common.LabelStreetCanyon, Name: r.Description},
			common.NodeKey{Label: common.LabelPollutant, Name: r.Pollutant},
			"",
		)
	}

	return b.nodes, b.edges
}

type graphBuilder struct {
	nodes     []common.Node
	edges     []common.Edge
	nodeIndex map[common.NodeKey]struct{}
	edgeIndex map[common.Edge]struct{}
}

func (b *graphBuilder) addCategorized(label string, set common.CategorySet) {
	for _, entry := range set.Entries() {
		for _, name := range entry.Names {
			b.addNode(common.Node{Label: label, Name: name, Category: entry.Category})
		}
	}
}

func (b *graphBuilder) addNode(n common.Node) {
	if _, ok := b.nodeIndex[n.Key()]; ok {
		return
	}
	b.nodeIndex[n.Key()] = struct{}{}
	b.nodes = append(b.nodes, n)
}

func (b *graphBuilder) addEdge(relType string, from, to common.NodeKey, rng string) {
	_, fromOK := b.nodeIndex[from]
	_, toOK := b.nodeIndex[to]
	if !fromOK || !toOK {
		return
	}
	e := common.Edge{Type: relType, From: from, To: to, Range: rng}
	if _, ok := b.edgeIndex[e]; ok {
		return
	}
	b.edgeIndex[e] = struct{}{}
	b.edges = append(b.edges, e)
}

// VisDocument is the network document read by the browser visualisation.
type VisDocument struct {
	Nodes []VisNode `json:"nodes"`
	Edges []VisEdge `json:"edges"`
}

// VisNode is one vis-network node. Group is the node label.
type VisNode struct {
	ID       int    `json:"id"`
	Label    string `json:"label"`
	Group    string `json:"group"`
	Category string `json:"category,omitempty"`
	Title    string `json:"title"`
}

// VisEdge is one vis-network edge. Label is the relationship type.
type VisEdge struct {
	ID    string `json:"id"`
	From  int    `json:"from"`
	To    int    `json:"to"`
	Label string `json:"label"`
	Title string `json:"title,omitempty"`
}

// ExportVis renders a fragment as a vis-network document. Node ids are
// assigned from 1 in BuildGraph order.
func ExportVis(f *common.Fragment) VisDocument {
	nodes, edges := BuildGraph(f)

	ids := make(map[common.NodeKey]int, len(nodes))
	doc := VisDocument{
		Nodes: lo.Map(nodes, func(n common.Node, i int) VisNode {
			ids[n.Key()] = i + 1
			return VisNode{
				ID:       i + 1,
				Label:    n.Name,
				Group:    n.Label,
				Category: n.Category,
				Title:    visTitle(n),
			}
		}),
	}
	doc.Edges = lo.Map(edges, func(e common.Edge, i int) VisEdge {
		ve := VisEdge{
			ID:    fmt.Sprintf("e%d", i+1),
			From:  ids[e.From],
			To:    ids[e.To],
			Label: e.Type,
		}
		if e.Range != "" {
			ve.Title = "range: " + e.Range
		}
		return ve
	})
	return doc
}

func visTitle(n common.Node) string {
	if n.Category == "" {
		return n.Label
	}
	return fmt.Sprintf("%s (%s)", n.Label, n.Category)
}
