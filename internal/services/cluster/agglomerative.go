package cluster

import "sort"

// Agglomerative is bottom-up Ward clustering over one-dimensional data.
// In one dimension an optimal Ward merge is always between neighbours in
// sorted order, so only adjacent groups are considered.
type Agglomerative struct{}

func NewAgglomerative() *Agglomerative {
	return &Agglomerative{}
}

type wardGroup struct {
	mean    float64
	members []int
}

func (a *Agglomerative) Partition(values []float64, k int) ([]int, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(values) < k {
		return nil, ErrTooFewValues
	}

	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return values[order[i]] < values[order[j]] })

	groups := make([]wardGroup, len(order))
	for i, idx := range order {
		groups[i] = wardGroup{mean: values[idx], members: []int{idx}}
	}

	for len(groups) > k {
		best := 0
		bestCost := wardCost(groups[0], groups[1])
		for i := 1; i < len(groups)-1; i++ {
			if c := wardCost(groups[i], groups[i+1]); c < bestCost {
				best, bestCost = i, c
			}
		}
		l, r := groups[best], groups[best+1]
		nl, nr := float64(len(l.members)), float64(len(r.members))
		merged := wardGroup{
			mean:    (l.mean*nl + r.mean*nr) / (nl + nr),
			members: append(l.members, r.members...),
		}
		groups[best] = merged
		groups = append(groups[:best+1], groups[best+2:]...)
	}

	labels := make([]int, len(values))
	for label, g := range groups {
		for _, idx := range g.members {
			labels[idx] = label
		}
	}
	return labels, nil
}

// wardCost is the increase in within-group sum of squares caused by merging.
func wardCost(a, b wardGroup) float64 {
	na, nb := float64(len(a.members)), float64(len(b.members))
	return na * nb / (na + nb) * sq(a.mean-b.mean)
}
