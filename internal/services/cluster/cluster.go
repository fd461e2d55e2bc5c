// Package cluster groups one-dimensional price samples and reduces each
// group to a single representative.
package cluster

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTooFewValues     = errors.New("cluster: fewer values than clusters")
	ErrInvalidK         = errors.New("cluster: k must be positive")
	ErrUnknownAlgorithm = errors.New("cluster: unknown algorithm")
	ErrUnknownCentering = errors.New("cluster: unknown centering")
)

const (
	AlgorithmKMeans       = "kmeans"
	AlgorithmHierarchical = "hierarchical"
)

// Partitioner assigns each value a label in [0, k).
type Partitioner interface {
	Partition(values []float64, k int) ([]int, error)
}

// Clusterer combines a Partitioner with a centering rule.
type Clusterer struct {
	partitioner Partitioner
	centering   Centering
}

func NewClusterer(p Partitioner, c Centering) *Clusterer {
	return &Clusterer{partitioner: p, centering: c}
}

// New builds a clusterer by algorithm name. seed only affects k-means; nil
// seeds from the clock.
func New(algorithm string, centering Centering, seed *int64) (*Clusterer, error) {
	if !centering.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCentering, centering)
	}
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case AlgorithmKMeans:
		return NewClusterer(NewKMeans(seed), centering), nil
	case "hier", AlgorithmHierarchical, "agglomerative":
		return NewClusterer(NewAgglomerative(), centering), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
}

// Cluster returns one representative per non-empty group, in label order.
func (c *Clusterer) Cluster(values []float64, k int) ([]float64, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(values) < k {
		return nil, fmt.Errorf("%w: %d values, k=%d", ErrTooFewValues, len(values), k)
	}
	labels, err := c.partitioner.Partition(values, k)
	if err != nil {
		return nil, err
	}
	groups := make([][]float64, k)
	for i, l := range labels {
		groups[l] = append(groups[l], values[i])
	}
	reps := make([]float64, 0, k)
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		reps = append(reps, c.centering.Center(g))
	}
	return reps, nil
}
