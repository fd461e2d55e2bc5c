// Package zones turns extrema into the per-day support and resistance
// calendar and derives price intervals from it.
package zones

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"

	"SRZones/internal/domain/models"
	"SRZones/internal/domain/repository"
	applogger "SRZones/pkg/logger"
)

// DefaultMinExtrema is the smallest window that gets clustered.
const DefaultMinExtrema = 25

// BuildStats summarises one Build call.
type BuildStats struct {
	DaysBuilt   int
	DaysSkipped int
	Zones       int
}

// DayObserver is told the outcome of every day Build processes. zones is
// nil for skipped days.
type DayObserver func(day time.Time, zones []float64, built bool)

// Builder computes the zones of each day from a trailing window of extrema.
type Builder struct {
	params    models.ZoneParams
	clusterer repository.Clusterer
	logger    *applogger.Logger
	observe   DayObserver
}

func NewBuilder(params models.ZoneParams, clusterer repository.Clusterer, logger *applogger.Logger) *Builder {
	if params.MinExtrema <= 0 {
		params.MinExtrema = DefaultMinExtrema
	}
	if logger == nil {
		logger = applogger.NewNop()
	}
	return &Builder{params: params, clusterer: clusterer, logger: logger}
}

// Observe registers fn to be called once per processed day.
func (b *Builder) Observe(fn DayObserver) {
	b.observe = fn
}

func (b *Builder) Params() models.ZoneParams {
	return b.params
}

// Window returns the prices of extrema with day-period <= t <= day.
// extrema must be in ascending time order.
func (b *Builder) Window(extrema []models.Extremum, day time.Time) []float64 {
	start := day.AddDate(0, 0, -b.params.Period)
	lo := sort.Search(len(extrema), func(i int) bool { return !extrema[i].Timestamp.Before(start) })
	hi := sort.Search(len(extrema), func(i int) bool { return extrema[i].Timestamp.After(day) })
	if lo >= hi {
		return nil
	}
	values := make([]float64, 0, hi-lo)
	for _, e := range extrema[lo:hi] {
		values = append(values, e.Price)
	}
	return values
}

// Candidates clusters values and counts, for each representative, the
// values strictly within half a zone width of it.
func (b *Builder) Candidates(values []float64) ([]models.CandidateZone, error) {
	reps, err := b.clusterer.Cluster(values, b.params.Clusters)
	if err != nil {
		return nil, err
	}
	half := b.params.ZoneWidth / 2
	out := make([]models.CandidateZone, 0, len(reps))
	for _, rep := range reps {
		touches := 0
		for _, v := range values {
			if math.Abs(rep-v) < half {
				touches++
			}
		}
		out = append(out, models.CandidateZone{Price: models.RoundPrice(rep), Touches: touches})
	}
	return out, nil
}

// ComputeZones filters candidates by touch count and adds the window's
// extremes. The result is sorted ascending.
func (b *Builder) ComputeZones(values []float64) ([]float64, error) {
	candidates, err := b.Candidates(values)
	if err != nil {
		return nil, err
	}
	zones := make([]float64, 0, len(candidates)+2)
	for _, c := range candidates {
		if c.Touches >= b.params.MinTouches {
			zones = append(zones, c.Price)
		}
	}
	zones = append(zones, floats.Min(values), floats.Max(values))
	sort.Float64s(zones)
	return zones, nil
}

// ZonesForDay returns the zones computed at the close of day. ok is false
// when the window holds fewer than MinExtrema extrema.
func (b *Builder) ZonesForDay(extrema []models.Extremum, day time.Time) ([]float64, bool, error) {
	values := b.Window(extrema, day)
	if len(values) < b.params.MinExtrema {
		return nil, false, nil
	}
	zones, err := b.ComputeZones(values)
	if err != nil {
		return nil, false, err
	}
	return zones, true, nil
}

// Build processes every day from through to, inclusive, in order and
// records each result under the dates it applies to.
func (b *Builder) Build(ctx context.Context, extrema []models.Extremum, from, to time.Time) (*models.ZoneCalendar, BuildStats, error) {
	cal := models.NewZoneCalendar()
	var stats BuildStats
	from, to = models.DayOf(from), models.DayOf(to)
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		zones, ok, err := b.ZonesForDay(extrema, day)
		if err != nil {
			return nil, stats, fmt.Errorf("zones for %s: %w", day.Format(models.DateLayout), err)
		}
		if b.observe != nil {
			b.observe(day, zones, ok)
		}
		if !ok {
			stats.DaysSkipped++
			b.logger.Debug("window too sparse, day skipped",
				applogger.Date("day", day),
				applogger.Int("min_extrema", b.params.MinExtrema),
			)
			continue
		}
		Apply(cal, day, zones)
		stats.DaysBuilt++
		stats.Zones += len(zones)
	}
	return cal, stats, nil
}
