package lexical

import "slices"

// RRFConstant dampens the weight of top ranks in Reciprocal Rank Fusion.
const RRFConstant = 60

// Fused is an id with its combined RRF score.
type Fused struct {
	ID    string
	Score float64
}

// Fuse merges ranked id lists with Reciprocal Rank Fusion and returns at most
// k ids, best first. Ties keep the order of first appearance.
func Fuse(k int, lists ...[]string) []Fused {
	scores := make(map[string]float64)
	var order []string
	for _, list := range lists {
		for rank, id := range list {
			if _, seen := scores[id]; !seen {
				order = append(order, id)
			}
			scores[id] += 1.0 / float64(RRFConstant+rank+1)
		}
	}

	out := make([]Fused, len(order))
	for n, id := range order {
		out[n] = Fused{ID: id, Score: scores[id]}
	}
	slices.SortStableFunc(out, func(a, b Fused) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// IDs returns the ids of hits in rank order.
func IDs(hits []Hit) []string {
	ids := make([]string, len(hits))
	for n, h := range hits {
		ids[n] = h.ID
	}
	return ids
}
