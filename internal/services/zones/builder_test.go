package zones

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SRZones/internal/domain/models"
	"SRZones/internal/services/cluster"
	"SRZones/internal/services/extrema"
)

// fixedClusterer returns the same representatives whatever the input.
type fixedClusterer struct {
	reps  []float64
	calls int
}

func (f *fixedClusterer) Cluster(values []float64, k int) ([]float64, error) {
	f.calls++
	return f.reps, nil
}

func date(s string) time.Time {
	t, err := time.ParseInLocation(models.DateLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func extremaAt(start time.Time, step time.Duration, prices ...float64) []models.Extremum {
	out := make([]models.Extremum, len(prices))
	for i, p := range prices {
		out[i] = models.Extremum{Timestamp: start.Add(time.Duration(i) * step), Price: p, Index: i}
	}
	return out
}

func hourlyBars(start time.Time, closes []float64) []models.Bar {
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{Timestamp: start.Add(time.Duration(i) * time.Hour), Close: c}
	}
	return bars
}

func randomWalkBars(n int, seed int64) []models.Bar {
	rng := rand.New(rand.NewSource(seed))
	closes := make([]float64, n)
	price := 1.10
	for i := range closes {
		price += (rng.Float64() - 0.5) * 0.003
		closes[i] = price
	}
	return hourlyBars(date("2019-01-01"), closes)
}

func TestWindowBoundsAreInclusive(t *testing.T) {
	b := NewBuilder(models.ZoneParams{Period: 2}, &fixedClusterer{}, nil)
	ex := extremaAt(date("2020-01-01"), 12*time.Hour, 1, 2, 3, 4, 5, 6)

	// 2020-01-03 window is [01-01 00:00, 01-03 00:00]
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, b.Window(ex, date("2020-01-03")))
	assert.Equal(t, []float64{3, 4, 5, 6}, b.Window(ex, date("2020-01-04")))
	assert.Empty(t, b.Window(ex, date("2019-12-30")))
}

func TestZonesForDayMinExtremaBoundary(t *testing.T) {
	prices := make([]float64, 25)
	for i := range prices {
		prices[i] = models.RoundPrice(1.1 + float64(i)*0.0001)
	}
	ex := extremaAt(date("2020-01-01"), time.Hour, prices...)
	stub := &fixedClusterer{reps: []float64{1.1012}}
	b := NewBuilder(models.ZoneParams{Period: 5, ZoneWidth: 0.001, MinTouches: 4, Clusters: 16}, stub, nil)

	_, ok, err := b.ZonesForDay(ex[:24], date("2020-01-02"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, stub.calls)

	zones, ok, err := b.ZonesForDay(ex, date("2020-01-02"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float64{1.1, 1.1012, 1.1024}, zones)
}

func TestCandidatesCountTouches(t *testing.T) {
	stub := &fixedClusterer{reps: []float64{1.123456}}
	b := NewBuilder(models.ZoneParams{ZoneWidth: 0.002, Clusters: 1}, stub, nil)

	got, err := b.Candidates([]float64{1.123456, 1.1244, 1.1225, 1.124556, 1.2})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1.1235, got[0].Price)
	assert.Equal(t, 3, got[0].Touches)
}

func TestCandidatesExcludeHalfWidthBoundary(t *testing.T) {
	stub := &fixedClusterer{reps: []float64{1.5}}
	b := NewBuilder(models.ZoneParams{ZoneWidth: 0.5, Clusters: 1}, stub, nil)

	got, err := b.Candidates([]float64{1.5, 1.75, 1.25, 1.7})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Touches)
}

func TestComputeZonesFiltersAndSorts(t *testing.T) {
	stub := &fixedClusterer{reps: []float64{1.5, 1.2}}
	b := NewBuilder(models.ZoneParams{ZoneWidth: 0.1, MinTouches: 2, Clusters: 2}, stub, nil)

	zones, err := b.ComputeZones([]float64{1.0, 1.49, 1.51, 1.2, 1.8})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0, 1.5, 1.8}, zones)
}

func TestClustererErrorPropagates(t *testing.T) {
	c, err := cluster.New("hier", cluster.Median, nil)
	require.NoError(t, err)
	b := NewBuilder(models.ZoneParams{Period: 10, Clusters: 30, MinExtrema: 2}, c, nil)

	ex := extremaAt(date("2020-01-01"), time.Hour, 1, 2, 3)
	_, _, err = b.Build(context.Background(), ex, date("2020-01-02"), date("2020-01-02"))
	assert.ErrorIs(t, err, cluster.ErrTooFewValues)
}

func TestDoubleTopEndToEnd(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
	}
	closes[10] = 102
	closes[30] = 102
	bars := hourlyBars(date("2020-01-01"), closes)

	ex := extrema.NewDetector(1.0).Detect(bars)
	require.Len(t, ex, 2)

	c, err := cluster.New("kmeans", cluster.Median, nil)
	require.NoError(t, err)
	b := NewBuilder(models.ZoneParams{Period: 10, ZoneWidth: 0.5, MinTouches: 2, Clusters: 1}, c, nil)

	zones, err := b.ComputeZones(b.Window(ex, date("2020-01-03")))
	require.NoError(t, err)
	assert.Equal(t, []float64{102, 102, 102}, zones)

	// with the default threshold two extrema never make a day
	cal, stats, err := b.Build(context.Background(), ex, date("2020-01-01"), date("2020-01-10"))
	require.NoError(t, err)
	assert.Equal(t, 0, cal.Len())
	assert.Equal(t, 10, stats.DaysSkipped)
}

func TestBuildAppliesWeekendRule(t *testing.T) {
	// 2020-01-03 is a Friday
	ex := extremaAt(date("2019-12-20"), 6*time.Hour, make([]float64, 120)...)
	for i := range ex {
		ex[i].Price = 1.1 + float64(i%7)*0.001
	}
	stub := &fixedClusterer{reps: []float64{1.103}}
	b := NewBuilder(models.ZoneParams{Period: 10, ZoneWidth: 0.002, MinTouches: 1, Clusters: 4, MinExtrema: 5}, stub, nil)

	cal, stats, err := b.Build(context.Background(), ex, date("2020-01-02"), date("2020-01-03"))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DaysBuilt)
	assert.Equal(t, []time.Time{date("2020-01-03"), date("2020-01-05"), date("2020-01-06")}, cal.Dates())

	sun, _ := cal.Get(date("2020-01-05"))
	mon, _ := cal.Get(date("2020-01-06"))
	assert.Equal(t, sun, mon)
}

func TestBuildLastWriterWins(t *testing.T) {
	ex := extremaAt(date("2020-01-01"), time.Hour, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	stub := &fixedClusterer{}
	b := NewBuilder(models.ZoneParams{Period: 30, ZoneWidth: 0.1, MinTouches: 1, Clusters: 1, MinExtrema: 1}, stub, nil)

	// Fri 01-03 writes Sun and Mon, Sat writes Sun again, Sun writes Mon again
	cal, _, err := b.Build(context.Background(), ex, date("2020-01-03"), date("2020-01-05"))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{date("2020-01-05"), date("2020-01-06")}, cal.Dates())

	ex2 := append(ex, extremaAt(date("2020-01-03").Add(12*time.Hour), time.Hour, 20)...)
	cal, _, err = b.Build(context.Background(), ex2, date("2020-01-03"), date("2020-01-05"))
	require.NoError(t, err)
	sun, _ := cal.Get(date("2020-01-05"))
	mon, _ := cal.Get(date("2020-01-06"))
	assert.Equal(t, []float64{1, 20}, sun, "Saturday's result replaces Friday's on Sunday")
	assert.Equal(t, []float64{1, 20}, mon, "Sunday's result replaces Friday's on Monday")
}

func TestBuildHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := NewBuilder(models.ZoneParams{Period: 1}, &fixedClusterer{}, nil)
	_, _, err := b.Build(ctx, nil, date("2020-01-01"), date("2020-01-02"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestZonesProperties(t *testing.T) {
	bars := randomWalkBars(24*200, 11)
	ex := extrema.NewDetector(0.02).Detect(bars)
	require.Greater(t, len(ex), 100)

	c, err := cluster.New("kmeans", cluster.Median, func() *int64 { s := int64(3); return &s }())
	require.NoError(t, err)
	params := models.ZoneParams{Period: 30, ZoneWidth: 0.0075, MinTouches: 4, Clusters: 16}
	b := NewBuilder(params, c, nil)

	built := 0
	for day := date("2019-02-01"); day.Before(date("2019-04-01")); day = day.AddDate(0, 0, 1) {
		zones, ok, err := b.ZonesForDay(ex, day)
		require.NoError(t, err)
		if !ok {
			continue
		}
		built++
		values := b.Window(ex, day)
		lo, hi := values[0], values[0]
		for _, v := range values {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}

		require.GreaterOrEqual(t, len(zones), 2)
		assert.IsNonDecreasing(t, zones)
		assert.Contains(t, zones, lo)
		assert.Contains(t, zones, hi)

		// rounding may move a zone by at most half a unit of the last decimal
		limit := params.ZoneWidth/2 + 0.0000501
		for _, z := range zones {
			if z == lo || z == hi {
				continue
			}
			touches := 0
			for _, v := range values {
				if math.Abs(z-v) < limit {
					touches++
				}
			}
			assert.GreaterOrEqual(t, touches, params.MinTouches, "zone %v on %s", z, day.Format(models.DateLayout))
		}
	}
	assert.Greater(t, built, 0)
}

func TestSeededBuildIsIdempotent(t *testing.T) {
	bars := randomWalkBars(24*120, 5)
	ex := extrema.NewDetector(0.02).Detect(bars)
	pair := models.Pair{Base: "EUR", Quote: "USD"}
	params := models.ZoneParams{Period: 20, ZoneWidth: 0.0075, MinTouches: 3, Clusters: 8}

	run := func() []byte {
		s := int64(17)
		c, err := cluster.New("kmeans", cluster.Mean, &s)
		require.NoError(t, err)
		cal, _, err := NewBuilder(params, c, nil).Build(context.Background(), ex, date("2019-02-01"), date("2019-04-01"))
		require.NoError(t, err)
		raw, err := json.Marshal(cal.Document(pair))
		require.NoError(t, err)
		return raw
	}
	first := run()
	assert.Equal(t, first, run())
	assert.Contains(t, string(first), `"date":"2019-`)
}
