package query

import (
	"cmp"
	"slices"
	"sync"

	"github.com/urbanair/aqkg/pkg/common"
)

type TraceEventKind string

const (
	TraceEventQueriedLabels  TraceEventKind = "queried_labels"
	TraceEventRetrievedNodes TraceEventKind = "retrieved_nodes"
)

// TraceEvent is an extensible event envelope for query tracing.
type TraceEvent struct {
	Kind TraceEventKind

	Labels []string
	Nodes  []common.ScoredNode
}

// Tracer is a sink for query tracing events.
type Tracer interface {
	Record(event TraceEvent)
}

// MultiTracer fan-outs trace events to multiple tracers.
type MultiTracer []Tracer

func (m MultiTracer) Record(event TraceEvent) {
	for _, t := range m {
		if t == nil {
			continue
		}
		t.Record(event)
	}
}

func RecordQueriedLabels(t Tracer, labels ...string) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventQueriedLabels, Labels: labels})
}

func RecordRetrievedNodes(t Tracer, nodes ...common.ScoredNode) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventRetrievedNodes, Nodes: nodes})
}

// QueryTrace collects the labels searched and the nodes retrieved during
// query runs. It is safe for concurrent use.
type QueryTrace struct {
	mu sync.Mutex

	labels map[string]struct{}
	nodes  map[common.NodeKey]float64
}

type QueryTraceSnapshot struct {
	Labels []string         `json:"labels"`
	Nodes  []common.NodeKey `json:"nodes"`
}

func NewQueryTrace() *QueryTrace {
	return &QueryTrace{
		labels: make(map[string]struct{}),
		nodes:  make(map[common.NodeKey]float64),
	}
}

func (t *QueryTrace) Record(event TraceEvent) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch event.Kind {
	case TraceEventQueriedLabels:
		for _, l := range event.Labels {
			if l == "" {
				continue
			}
			t.labels[l] = struct{}{}
		}
	case TraceEventRetrievedNodes:
		for _, n := range event.Nodes {
			if best, ok := t.nodes[n.Key()]; ok && best >= n.Score {
				continue
			}
			t.nodes[n.Key()] = n.Score
		}
	}
}

// Snapshot returns the recorded labels sorted by name and the retrieved
// nodes sorted by label, then name.
func (t *QueryTrace) Snapshot() QueryTraceSnapshot {
	if t == nil {
		return QueryTraceSnapshot{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := QueryTraceSnapshot{
		Labels: make([]string, 0, len(t.labels)),
		Nodes:  make([]common.NodeKey, 0, len(t.nodes)),
	}
	for l := range t.labels {
		s.Labels = append(s.Labels, l)
	}
	for k := range t.nodes {
		s.Nodes = append(s.Nodes, k)
	}

	slices.Sort(s.Labels)
	slices.SortFunc(s.Nodes, func(a, b common.NodeKey) int {
		return cmp.Or(cmp.Compare(a.Label, b.Label), cmp.Compare(a.Name, b.Name))
	})
	return s
}
