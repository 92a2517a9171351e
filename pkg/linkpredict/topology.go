// Package linkpredict provides topological link prediction over a PhasmaDB graph.
//
// Algorithms Implemented:
//   - Common Neighbors: |N(u) ∩ N(v)|
//   - Jaccard Coefficient: |N(u) ∩ N(v)| / |N(u) ∪ N(v)|
//   - Adamic-Adar: Σ(1 / log(|N(z)|)) for z in common neighbors
//   - Preferential Attachment: |N(u)| * |N(v)|
//   - Resource Allocation: Σ(1 / |N(z)|) for z in common neighbors
//
// Usage Example:
//
//	view := linkpredict.BuildGraph(g, true)
//
//	predictions, err := linkpredict.Predict(view, linkpredict.AlgorithmAdamicAdar, aliceID, 10)
//	if err != nil {
//		return err
//	}
//	for _, pred := range predictions {
//		fmt.Printf("Suggest edge to %d (score: %.3f)\n", pred.TargetID, pred.Score)
//	}
//
// The view is a snapshot. Mutations to the graph after BuildGraph are not
// reflected in it.
package linkpredict

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/phasmadb/phasmadb/pkg/graph"
)

// Algorithm names accepted by Predict.
const (
	AlgorithmCommonNeighbors        = "common_neighbors"
	AlgorithmJaccard                = "jaccard"
	AlgorithmAdamicAdar             = "adamic_adar"
	AlgorithmPreferentialAttachment = "preferential_attachment"
	AlgorithmResourceAllocation     = "resource_allocation"
)

// Graph is an adjacency-set view of a graph. Parallel edges collapse into a
// single neighbor and edge types are ignored.
//
// Example:
//
//	view := Graph{
//		0: {1: {}, 2: {}},
//		1: {0: {}, 3: {}},
//	}
//
// This represents:
//   - 0 -- 1
//   - 0 -- 2
//   - 1 -- 3
type Graph map[graph.NodeID]NodeSet

// NodeSet represents a set of node IDs (adjacent nodes).
type NodeSet map[graph.NodeID]struct{}

// Prediction represents a predicted edge with confidence score.
//
// Scores are algorithm-specific and not directly comparable across algorithms:
//   - Common Neighbors: Integer count (0-N)
//   - Jaccard: Similarity ratio (0.0-1.0)
//   - Adamic-Adar: Weighted sum (0.0-∞)
//   - Preferential Attachment: Product of degrees (0-∞)
//   - Resource Allocation: Weighted sum (0.0-∞)
type Prediction struct {
	TargetID  graph.NodeID `json:"target_id"`
	Score     float64      `json:"score"`
	Algorithm string       `json:"algorithm"`
	Reason    string       `json:"reason"`
}

// BuildGraph snapshots g's adjacency. With undirected set, every edge is
// recorded in both directions, which is what the neighborhood heuristics
// expect for social and knowledge graphs. When edgeTypes is non-empty only
// edges of those types are followed. Self-loops are dropped.
func BuildGraph(g *graph.Graph, undirected bool, edgeTypes ...string) Graph {
	ids := g.NodeIDs()
	view := make(Graph, len(ids))
	for _, id := range ids {
		view[id] = make(NodeSet)
	}

	for _, id := range ids {
		for _, other := range outgoing(g, id, edgeTypes) {
			if other == id {
				continue
			}
			view[id][other] = struct{}{}
			if undirected {
				view[other][id] = struct{}{}
			}
		}
	}
	return view
}

// outgoing returns the right-hand ends of id's outgoing edges, restricted to
// edgeTypes when any are given. Parallel edges repeat their target.
func outgoing(g *graph.Graph, id graph.NodeID, edgeTypes []string) []graph.NodeID {
	if len(edgeTypes) == 0 {
		out, _ := g.Neighbors(id, graph.Outgoing)
		return out
	}
	var out []graph.NodeID
	for _, t := range edgeTypes {
		ns, err := g.NeighborsByType(id, graph.Outgoing, t)
		if err != nil {
			return nil
		}
		out = append(out, ns...)
	}
	return out
}

// Predict dispatches to the named algorithm.
func Predict(view Graph, algorithm string, source graph.NodeID, topK int) ([]Prediction, error) {
	switch algorithm {
	case AlgorithmCommonNeighbors:
		return CommonNeighbors(view, source, topK), nil
	case AlgorithmJaccard:
		return Jaccard(view, source, topK), nil
	case AlgorithmAdamicAdar:
		return AdamicAdar(view, source, topK), nil
	case AlgorithmPreferentialAttachment:
		return PreferentialAttachment(view, source, topK), nil
	case AlgorithmResourceAllocation:
		return ResourceAllocation(view, source, topK), nil
	}
	return nil, fmt.Errorf("unknown link prediction algorithm %q", algorithm)
}

// Algorithms lists the names Predict accepts.
func Algorithms() []string {
	return []string{
		AlgorithmCommonNeighbors,
		AlgorithmJaccard,
		AlgorithmAdamicAdar,
		AlgorithmPreferentialAttachment,
		AlgorithmResourceAllocation,
	}
}

// CommonNeighbors scores candidates by shared neighbor count.
//
// Algorithm: score(u, v) = |N(u) ∩ N(v)|
func CommonNeighbors(view Graph, source graph.NodeID, topK int) []Prediction {
	neighbors, exists := view[source]
	if !exists {
		return nil
	}

	scores := make(map[graph.NodeID]float64)
	for neighbor := range neighbors {
		for candidate := range view[neighbor] {
			if candidate == source {
				continue
			}
			if _, isNeighbor := neighbors[candidate]; isNeighbor {
				continue // Skip existing edges
			}
			scores[candidate]++
		}
	}

	return topKPredictions(scores, topK, AlgorithmCommonNeighbors)
}

// Jaccard computes link predictions using Jaccard coefficient.
//
// Algorithm: score(u, v) = |N(u) ∩ N(v)| / |N(u) ∪ N(v)|
//
// Score Range: [0.0, 1.0]
//   - 0.0: No common neighbors
//   - 1.0: Identical neighborhoods
func Jaccard(view Graph, source graph.NodeID, topK int) []Prediction {
	neighbors, exists := view[source]
	if !exists {
		return nil
	}

	scores := make(map[graph.NodeID]float64)
	for candidate := range twoHop(view, source, neighbors) {
		candidateNeighbors := view[candidate]

		intersection := 0
		for n := range neighbors {
			if _, ok := candidateNeighbors[n]; ok {
				intersection++
			}
		}
		if intersection == 0 {
			continue
		}

		// Union = |A| + |B| - |A ∩ B|
		union := len(neighbors) + len(candidateNeighbors) - intersection
		if union > 0 {
			scores[candidate] = float64(intersection) / float64(union)
		}
	}

	return topKPredictions(scores, topK, AlgorithmJaccard)
}

// AdamicAdar weights each common neighbor by the inverse log of its degree,
// so a shared neighbor with few connections counts for more than a hub.
// Common neighbors of degree 1 contribute nothing.
//
// Algorithm: score(u, v) = Σ(1 / log(|N(z)|)) for z in N(u) ∩ N(v)
//
// Reference: Adamic & Adar (2003), "Friends and neighbors on the Web"
func AdamicAdar(view Graph, source graph.NodeID, topK int) []Prediction {
	neighbors, exists := view[source]
	if !exists {
		return nil
	}

	scores := make(map[graph.NodeID]float64)
	for candidate := range twoHop(view, source, neighbors) {
		sum := 0.0
		candidateNeighbors := view[candidate]
		for neighbor := range neighbors {
			if _, ok := candidateNeighbors[neighbor]; ok {
				if degree := len(view[neighbor]); degree > 1 {
					sum += 1.0 / math.Log(float64(degree))
				}
			}
		}
		if sum > 0 {
			scores[candidate] = sum
		}
	}

	return topKPredictions(scores, topK, AlgorithmAdamicAdar)
}

// PreferentialAttachment scores every non-neighbor by degree product.
//
// Algorithm: score(u, v) = |N(u)| * |N(v)|
//
// Reference: Barabási & Albert (1999), "Emergence of scaling in random networks"
func PreferentialAttachment(view Graph, source graph.NodeID, topK int) []Prediction {
	neighbors, exists := view[source]
	if !exists {
		return nil
	}

	sourceDegree := float64(len(neighbors))
	scores := make(map[graph.NodeID]float64)
	for candidate, candidateNeighbors := range view {
		if candidate == source {
			continue
		}
		if _, isNeighbor := neighbors[candidate]; isNeighbor {
			continue
		}
		if score := sourceDegree * float64(len(candidateNeighbors)); score > 0 {
			scores[candidate] = score
		}
	}

	return topKPredictions(scores, topK, AlgorithmPreferentialAttachment)
}

// ResourceAllocation is Adamic-Adar with linear instead of logarithmic
// weighting.
//
// Algorithm: score(u, v) = Σ(1 / |N(z)|) for z in N(u) ∩ N(v)
//
// Reference: Zhou et al. (2009), "Predicting missing links via local information"
func ResourceAllocation(view Graph, source graph.NodeID, topK int) []Prediction {
	neighbors, exists := view[source]
	if !exists {
		return nil
	}

	scores := make(map[graph.NodeID]float64)
	for candidate := range twoHop(view, source, neighbors) {
		sum := 0.0
		candidateNeighbors := view[candidate]
		for neighbor := range neighbors {
			if _, ok := candidateNeighbors[neighbor]; ok {
				if degree := len(view[neighbor]); degree > 0 {
					sum += 1.0 / float64(degree)
				}
			}
		}
		if sum > 0 {
			scores[candidate] = sum
		}
	}

	return topKPredictions(scores, topK, AlgorithmResourceAllocation)
}

// twoHop returns the nodes two hops from source that are neither source nor
// already its neighbors.
func twoHop(view Graph, source graph.NodeID, neighbors NodeSet) NodeSet {
	candidates := make(NodeSet)
	for neighbor := range neighbors {
		for candidate := range view[neighbor] {
			if candidate == source {
				continue
			}
			if _, isNeighbor := neighbors[candidate]; isNeighbor {
				continue
			}
			candidates[candidate] = struct{}{}
		}
	}
	return candidates
}

// topKPredictions converts score map to sorted prediction list. Ties are
// broken by ascending node id so results are deterministic.
func topKPredictions(scores map[graph.NodeID]float64, k int, algorithm string) []Prediction {
	predictions := make([]Prediction, 0, len(scores))
	for nodeID, score := range scores {
		predictions = append(predictions, Prediction{
			TargetID:  nodeID,
			Score:     score,
			Algorithm: algorithm,
			Reason:    "Topological similarity",
		})
	}

	slices.SortFunc(predictions, func(a, b Prediction) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.TargetID, b.TargetID)
	})

	if k > 0 && len(predictions) > k {
		predictions = predictions[:k]
	}
	return predictions
}

// Contains checks if a node exists in a set.
func (ns NodeSet) Contains(id graph.NodeID) bool {
	_, exists := ns[id]
	return exists
}

// Size returns the number of nodes in the set.
func (ns NodeSet) Size() int {
	return len(ns)
}

// Degree returns the degree (number of neighbors) for a node.
func (g Graph) Degree(node graph.NodeID) int {
	return len(g[node])
}

// Neighbors returns the neighbor set for a node.
func (g Graph) Neighbors(node graph.NodeID) NodeSet {
	if neighbors, exists := g[node]; exists {
		return neighbors
	}
	return make(NodeSet)
}
