package cluster

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Centering picks the representative of a group.
type Centering string

const (
	Mean   Centering = "mean"
	Median Centering = "median"
)

func ParseCentering(s string) (Centering, error) {
	c := Centering(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCentering, s)
	}
	return c, nil
}

func (c Centering) Valid() bool {
	return c == Mean || c == Median
}

// Center reduces a non-empty group. Median of an even-sized group is the
// mean of the two middle values.
func (c Centering) Center(group []float64) float64 {
	if c == Mean {
		return stat.Mean(group, nil)
	}
	sorted := append([]float64(nil), group...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
