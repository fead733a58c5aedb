package insights

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/arkin-run/arkin/internal/model"
)

// Feature is one node of the computation graph: it declares the feature ids
// it reads and produces, and computes its outputs for one instrument at one
// tick from the shared State.
type Feature interface {
	Inputs() []string
	Outputs() []string
	Calculate(inst *model.Instrument, at time.Time, state *State) []model.Insight
}

// Graph is a dependency-ordered set of Features, built once at startup and
// evaluated every tick in topological order so every node sees its inputs
// already committed by an earlier node in the same pass.
//
// Grounded on arkin-insights/src/service.rs's pipeline build (Kahn's
// algorithm topological sort over the feature dependency DAG; raw inputs
// are feature ids referenced by some node's Inputs() but produced by none).
type Graph struct {
	order  []Feature
	logger *slog.Logger
}

// NewGraph topologically sorts features by their declared Inputs/Outputs.
// Returns an error if the dependency graph contains a cycle.
func NewGraph(features []Feature, logger *slog.Logger) (*Graph, error) {
	if logger == nil {
		logger = slog.Default()
	}

	producedBy := make(map[string]int) // feature id -> index into features
	for i, f := range features {
		for _, out := range f.Outputs() {
			producedBy[out] = i
		}
	}

	// adjacency: edge from producer index -> consumer index
	adj := make(map[int][]int)
	indegree := make([]int, len(features))
	for i, f := range features {
		seen := make(map[int]bool)
		for _, in := range f.Inputs() {
			producer, ok := producedBy[in]
			if !ok {
				continue // raw input: no producing node
			}
			if producer == i || seen[producer] {
				continue
			}
			seen[producer] = true
			adj[producer] = append(adj[producer], i)
			indegree[i]++
		}
	}

	var queue []int
	for i := range features {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]Feature, 0, len(features))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, features[i])
		for _, j := range adj[i] {
			indegree[j]--
			if indegree[j] == 0 {
				queue = append(queue, j)
			}
		}
	}

	if len(order) != len(features) {
		return nil, fmt.Errorf("insights: feature dependency graph has a cycle")
	}

	logger.Debug("built feature graph", "nodes", len(order))
	return &Graph{order: order, logger: logger}, nil
}

// Calculate evaluates every node in topological order for one instrument at
// one tick, inserting each node's outputs directly into state's live store
// so that downstream nodes observe them within the same pass (spec §4.4
// steps 1-4). A node that produces no output (insufficient data, NaN) is
// skipped without a log entry, whatever the cause; its failure does not
// unwind the tick.
func (g *Graph) Calculate(inst *model.Instrument, at time.Time, state *State) []model.Insight {
	var out []model.Insight
	for _, f := range g.order {
		produced := f.Calculate(inst, at, state)
		if len(produced) == 0 {
			continue
		}
		for _, in := range produced {
			state.InsertLive(in)
		}
		out = append(out, produced...)
	}
	return out
}
