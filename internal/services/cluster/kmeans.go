package cluster

import (
	"math"
	"math/rand"
	"time"
)

const (
	defaultKMeansInit    = 10
	defaultKMeansMaxIter = 300
)

// KMeans is Lloyd's algorithm with k-means++ seeding, keeping the best of
// NInit restarts by inertia.
type KMeans struct {
	NInit   int
	MaxIter int
	rng     *rand.Rand
}

// NewKMeans returns a k-means partitioner. A nil seed draws one from the clock,
// so unseeded runs are not reproducible.
func NewKMeans(seed *int64) *KMeans {
	s := time.Now().UnixNano()
	if seed != nil {
		s = *seed
	}
	return &KMeans{
		NInit:   defaultKMeansInit,
		MaxIter: defaultKMeansMaxIter,
		rng:     rand.New(rand.NewSource(s)),
	}
}

func (km *KMeans) Partition(values []float64, k int) ([]int, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(values) < k {
		return nil, ErrTooFewValues
	}
	runs := km.NInit
	if runs < 1 {
		runs = 1
	}
	var best []int
	bestInertia := math.Inf(1)
	for r := 0; r < runs; r++ {
		labels, inertia := km.lloyd(values, km.seedCenters(values, k))
		if inertia < bestInertia {
			best, bestInertia = labels, inertia
		}
	}
	return best, nil
}

// seedCenters is k-means++: each further center is drawn with probability
// proportional to its squared distance from the nearest chosen one.
func (km *KMeans) seedCenters(values []float64, k int) []float64 {
	centers := make([]float64, 0, k)
	centers = append(centers, values[km.rng.Intn(len(values))])
	d2 := make([]float64, len(values))
	for len(centers) < k {
		total := 0.0
		for i, v := range values {
			d2[i] = sq(v - centers[nearest(centers, v)])
			total += d2[i]
		}
		if total == 0 {
			centers = append(centers, values[km.rng.Intn(len(values))])
			continue
		}
		target := km.rng.Float64() * total
		pick := len(values) - 1
		acc := 0.0
		for i, d := range d2 {
			acc += d
			if acc >= target && d > 0 {
				pick = i
				break
			}
		}
		centers = append(centers, values[pick])
	}
	return centers
}

func (km *KMeans) lloyd(values, centers []float64) ([]int, float64) {
	k := len(centers)
	labels := make([]int, len(values))
	for i := range labels {
		labels[i] = -1
	}
	sums := make([]float64, k)
	counts := make([]int, k)
	for iter := 0; iter < km.MaxIter; iter++ {
		changed := false
		for i, v := range values {
			if l := nearest(centers, v); l != labels[i] {
				labels[i] = l
				changed = true
			}
		}
		if !changed {
			break
		}
		for j := range sums {
			sums[j], counts[j] = 0, 0
		}
		for i, v := range values {
			sums[labels[i]] += v
			counts[labels[i]]++
		}
		for j := range centers {
			// an emptied cluster keeps its previous center
			if counts[j] > 0 {
				centers[j] = sums[j] / float64(counts[j])
			}
		}
	}
	inertia := 0.0
	for i, v := range values {
		inertia += sq(v - centers[labels[i]])
	}
	return labels, inertia
}

// nearest returns the index of the closest center, lowest index on ties.
func nearest(centers []float64, v float64) int {
	best := 0
	bestD := math.Abs(v - centers[0])
	for j := 1; j < len(centers); j++ {
		if d := math.Abs(v - centers[j]); d < bestD {
			best, bestD = j, d
		}
	}
	return best
}

func sq(x float64) float64 { return x * x }
