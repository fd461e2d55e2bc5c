package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SRZones/internal/domain/models"
	domrepo "SRZones/internal/domain/repository"
	"SRZones/internal/services/cluster"
	"SRZones/internal/services/extrema"
	"SRZones/internal/services/zones"
	"SRZones/pkg/cache"
)

func day(s string) time.Time {
	t, err := time.ParseInLocation(models.DateLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func mustPair(t *testing.T, s string) models.Pair {
	t.Helper()
	p, err := models.ParsePair(s)
	require.NoError(t, err)
	return p
}

// triangleBars is an hourly wave climbing 4 steps and falling 4 steps.
func triangleBars(start time.Time, n int) []models.Bar {
	wave := []float64{1.10, 1.11, 1.12, 1.13, 1.14, 1.13, 1.12, 1.11}
	bars := make([]models.Bar, n)
	for i := range bars {
		bars[i] = models.Bar{Timestamp: start.Add(time.Duration(i) * time.Hour), Close: wave[i%len(wave)]}
	}
	return bars
}

type fakeBars struct {
	bars []models.Bar
	err  error
	from time.Time
	to   time.Time
}

func (f *fakeBars) Bars(_ context.Context, _ models.Pair, from, to time.Time) ([]models.Bar, error) {
	f.from, f.to = from, to
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Bar
	for _, b := range f.bars {
		if !b.Timestamp.Before(from) && !b.Timestamp.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

type memStore struct {
	mu    sync.Mutex
	cals  map[string]*models.ZoneCalendar
	loads int
	err   error
}

func newMemStore() *memStore {
	return &memStore{cals: map[string]*models.ZoneCalendar{}}
}

func (m *memStore) Name() string { return "mem" }

func (m *memStore) Save(_ context.Context, pair models.Pair, cal *models.ZoneCalendar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.cals[pair.Name()] = cal
	return nil
}

func (m *memStore) Load(_ context.Context, pair models.Pair) (*models.ZoneCalendar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	cal, ok := m.cals[pair.Name()]
	if !ok {
		return nil, domrepo.ErrCalendarNotFound
	}
	return cal, nil
}

type fakePublisher struct {
	published []string
}

func (f *fakePublisher) PublishCalendar(_ context.Context, pair models.Pair, _ *models.ZoneCalendar) error {
	f.published = append(f.published, pair.Name())
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeMetrics struct {
	bars, extrema    int
	built, skipped   int
	zoneObservations int
	stages           map[string]int
	errors           map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{stages: map[string]int{}, errors: map[string]int{}}
}

func (f *fakeMetrics) RecordBars(_ string, n int) { f.bars = n }
func (f *fakeMetrics) RecordExtrema(_ string, n int) { f.extrema = n }
func (f *fakeMetrics) RecordDay(_ string, built bool) {
	if built {
		f.built++
	} else {
		f.skipped++
	}
}
func (f *fakeMetrics) RecordZones(string, int) { f.zoneObservations++ }
func (f *fakeMetrics) RecordLatency(stage string, _ float64) { f.stages[stage]++ }
func (f *fakeMetrics) RecordError(kind string) { f.errors[kind]++ }

func testParams() models.ZoneParams {
	return models.ZoneParams{
		Period:       20,
		MinHeightPct: 0.02,
		ZoneWidth:    0.0075,
		MinTouches:   1,
		Clusters:     4,
		MinExtrema:   25,
	}
}

func newTestJob(t *testing.T, src *fakeBars, store *memStore, pub *fakePublisher, m *fakeMetrics, cfg BuildJobConfig) *BuildJob {
	t.Helper()
	cl, err := cluster.New(cluster.AlgorithmHierarchical, cluster.Median, nil)
	require.NoError(t, err)
	var metrics domrepo.Metrics
	if m != nil {
		metrics = m
	}
	return NewBuildJob(src, cl, store, pub, metrics, cfg, nil)
}

func TestBuildJobRun(t *testing.T) {
	start := day("2020-01-01")
	src := &fakeBars{bars: triangleBars(start, 40*24)}
	store, pub, m := newMemStore(), &fakePublisher{}, newFakeMetrics()
	job := newTestJob(t, src, store, pub, m, BuildJobConfig{Params: testParams(), JPYMultiplier: 2})
	pair := mustPair(t, "EUR/USD")

	res, err := job.Run(context.Background(), BuildRequest{Pair: pair, From: start, To: day("2020-02-09").Add(15 * time.Hour)})
	require.NoError(t, err)

	// bars stop at midnight opening the last day
	loaded := 39*24 + 1
	assert.Equal(t, start, src.from)
	assert.Equal(t, day("2020-02-09"), src.to)
	assert.Equal(t, day("2020-02-09"), res.To)
	assert.Equal(t, loaded, res.Bars)
	assert.Greater(t, res.Stats.DaysBuilt, 0)
	assert.Greater(t, res.Stats.DaysSkipped, 0, "warm-up days are skipped")
	assert.Equal(t, 40, res.Stats.DaysBuilt+res.Stats.DaysSkipped)

	// same pipeline run by hand
	cl, err := cluster.New(cluster.AlgorithmHierarchical, cluster.Median, nil)
	require.NoError(t, err)
	found := extrema.NewDetector(0.02).Detect(src.bars[:loaded])
	assert.Equal(t, len(found), res.Extrema)
	want, _, err := zones.NewBuilder(testParams(), cl, nil).Build(context.Background(), found, start, day("2020-02-09"))
	require.NoError(t, err)
	assert.Equal(t, want.Days(), res.Calendar.Days())
	assert.Equal(t, zones.Compact(want), res.Levels)

	saved, err := store.Load(context.Background(), pair)
	require.NoError(t, err)
	assert.Same(t, res.Calendar, saved)
	assert.Equal(t, []string{"EURUSD"}, pub.published)

	assert.Equal(t, loaded, m.bars)
	assert.Equal(t, res.Extrema, m.extrema)
	assert.Equal(t, res.Stats.DaysBuilt, m.built)
	assert.Equal(t, res.Stats.DaysSkipped, m.skipped)
	assert.Equal(t, res.Stats.DaysBuilt, m.zoneObservations)
	for _, stage := range []string{"load_bars", "detect", "build", "save", "publish", "total"} {
		assert.Equal(t, 1, m.stages[stage], stage)
	}
	assert.Empty(t, m.errors)
}

func TestBuildJobYenWidth(t *testing.T) {
	job := newTestJob(t, &fakeBars{}, newMemStore(), &fakePublisher{}, nil, BuildJobConfig{Params: testParams(), JPYMultiplier: 2})
	assert.Equal(t, 0.015, job.ParamsFor(mustPair(t, "EUR/JPY")).ZoneWidth)
	assert.Equal(t, 0.0075, job.ParamsFor(mustPair(t, "EUR/USD")).ZoneWidth)
}

func TestBuildJobFewBars(t *testing.T) {
	start := day("2020-01-01")
	store := newMemStore()
	job := newTestJob(t, &fakeBars{bars: triangleBars(start, 11)}, store, &fakePublisher{}, nil, BuildJobConfig{Params: testParams()})

	res, err := job.Run(context.Background(), BuildRequest{Pair: mustPair(t, "EUR/USD"), From: start, To: day("2020-01-03")})
	require.NoError(t, err)
	assert.Zero(t, res.Extrema)
	assert.Zero(t, res.Calendar.Len())
	assert.Equal(t, 3, res.Stats.DaysSkipped)
	assert.Empty(t, res.Levels)
	assert.Len(t, store.cals, 1, "empty calendar is still saved")
}

func TestBuildJobErrors(t *testing.T) {
	pair := mustPair(t, "EUR/USD")
	m := newFakeMetrics()
	boom := errors.New("boom")

	job := newTestJob(t, &fakeBars{err: boom}, newMemStore(), &fakePublisher{}, m, BuildJobConfig{Params: testParams()})
	_, err := job.Run(context.Background(), BuildRequest{Pair: pair, From: day("2020-01-01"), To: day("2020-01-02")})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, m.errors["load_bars"])

	_, err = job.Run(context.Background(), BuildRequest{Pair: pair, From: day("2020-01-02"), To: day("2020-01-01")})
	assert.ErrorIs(t, err, ErrInvalidRange)

	store := newMemStore()
	store.err = boom
	job = newTestJob(t, &fakeBars{}, store, &fakePublisher{}, m, BuildJobConfig{Params: testParams()})
	_, err = job.Run(context.Background(), BuildRequest{Pair: pair, From: day("2020-01-01"), To: day("2020-01-02")})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, m.errors["save"])
}

func TestBuildJobLevelsCSV(t *testing.T) {
	start := day("2020-01-01")
	dir := t.TempDir()
	cfg := BuildJobConfig{Params: testParams(), LevelsCSV: filepath.Join(dir, "{pair}_levels.csv")}
	job := newTestJob(t, &fakeBars{bars: triangleBars(start, 40*24)}, newMemStore(), &fakePublisher{}, nil, cfg)

	res, err := job.Run(context.Background(), BuildRequest{Pair: mustPair(t, "EUR/USD"), From: start, To: day("2020-02-09")})
	require.NoError(t, err)
	require.NotEmpty(t, res.Levels)

	raw, err := os.ReadFile(filepath.Join(dir, "EURUSD_levels.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "price,start,end\n")
}

func queryFixture(t *testing.T) (*ZonesQuery, *memStore, models.Pair) {
	t.Helper()
	pair := mustPair(t, "EUR/USD")
	store := newMemStore()
	cal := models.NewZoneCalendar()
	cal.Set(day("2020-01-02"), []float64{1.10, 1.12})
	cal.Set(day("2020-01-03"), []float64{1.10, 1.13})
	cal.Set(day("2020-01-05"), []float64{1.10, 1.13})
	cal.Set(day("2020-01-06"), []float64{1.10, 1.13})
	store.cals[pair.Name()] = cal

	mc := cache.NewMemoryCache()
	t.Cleanup(func() { mc.Close() })
	return NewZonesQuery(store, mc, time.Minute), store, pair
}

func TestZonesQueryZonesOn(t *testing.T) {
	q, store, pair := queryFixture(t)
	ctx := context.Background()

	z, err := q.ZonesOn(ctx, pair, day("2020-01-03").Add(10*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []float64{1.10, 1.13}, z)

	_, err = q.ZonesOn(ctx, pair, day("2020-01-04"))
	assert.ErrorIs(t, err, ErrDateNotFound)
	assert.Equal(t, 1, store.loads, "second lookup served from cache")

	_, err = q.ZonesOn(ctx, mustPair(t, "GBP/USD"), day("2020-01-03"))
	assert.ErrorIs(t, err, domrepo.ErrCalendarNotFound)
}

func TestZonesQueryInvalidate(t *testing.T) {
	q, store, pair := queryFixture(t)
	ctx := context.Background()

	_, err := q.Calendar(ctx, pair)
	require.NoError(t, err)

	next := models.NewZoneCalendar()
	next.Set(day("2021-01-01"), []float64{1.2})
	store.cals[pair.Name()] = next

	cal, err := q.Calendar(ctx, pair)
	require.NoError(t, err)
	assert.Equal(t, 4, cal.Len(), "stale until invalidated")

	require.NoError(t, q.Invalidate(ctx, pair))
	cal, err = q.Calendar(ctx, pair)
	require.NoError(t, err)
	assert.Equal(t, 1, cal.Len())
	assert.Equal(t, 2, store.loads)
}

func TestZonesQueryRangeAndLevels(t *testing.T) {
	q, _, pair := queryFixture(t)
	ctx := context.Background()

	days, err := q.CalendarRange(ctx, pair, day("2020-01-03"), day("2020-01-05"))
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, day("2020-01-05"), days[1].Date)

	levels, err := q.Levels(ctx, pair, day("2020-01-02"), day("2020-01-06"))
	require.NoError(t, err)
	assert.Equal(t, []models.ZoneInterval{
		{Price: 1.12, Start: day("2020-01-02"), End: day("2020-01-03")},
		{Price: 1.10, Start: day("2020-01-02"), End: day("2020-01-06")},
		{Price: 1.13, Start: day("2020-01-03"), End: day("2020-01-06")},
	}, levels)

	_, err = q.Levels(ctx, pair, day("2020-01-06"), day("2020-01-02"))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestRebuilderRunOnce(t *testing.T) {
	start := day("2020-01-01")
	store := newMemStore()
	job := newTestJob(t, &fakeBars{bars: triangleBars(start, 40*24)}, store, &fakePublisher{}, nil, BuildJobConfig{Params: testParams()})
	q := NewZonesQuery(store, nil, 0)

	_, err := NewRebuilder(job, q, []string{"EURUSD"}, 30, nil)
	assert.ErrorIs(t, err, models.ErrInvalidPair)

	r, err := NewRebuilder(job, q, []string{"EUR/USD", "usd/jpy"}, 30, nil)
	require.NoError(t, err)
	r.now = func() time.Time { return day("2020-02-09").Add(13 * time.Hour) }

	require.NoError(t, r.RunOnce(context.Background()))
	assert.Len(t, store.cals, 2)
	assert.Contains(t, store.cals, "USDJPY")
}

type fakeQueue struct {
	msgs []json.RawMessage
}

func (f *fakeQueue) Enqueue(_ context.Context, msgType string, payload interface{}) error {
	if msgType != RebuildMessageType {
		return errors.New("unexpected type " + msgType)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f.msgs = append(f.msgs, raw)
	return nil
}

func TestRebuilderEnqueuesAndHandles(t *testing.T) {
	start := day("2020-01-01")
	store := newMemStore()
	job := newTestJob(t, &fakeBars{bars: triangleBars(start, 40*24)}, store, &fakePublisher{}, nil, BuildJobConfig{Params: testParams()})

	r, err := NewRebuilder(job, nil, []string{"EUR/USD", "GBP/USD"}, 30, nil)
	require.NoError(t, err)
	r.now = func() time.Time { return day("2020-02-09").Add(13 * time.Hour) }
	q := &fakeQueue{}
	r.UseQueue(q)

	require.NoError(t, r.RunOnce(context.Background()))
	require.Len(t, q.msgs, 2)
	assert.Empty(t, store.cals, "enqueueing builds nothing")
	assert.JSONEq(t, `{"pair":"EUR/USD","from":"2020-01-10","to":"2020-02-09"}`, string(q.msgs[0]))

	assert.Equal(t, RebuildMessageType, r.Type())
	for _, msg := range q.msgs {
		require.NoError(t, r.Handle(context.Background(), msg))
	}
	assert.Contains(t, store.cals, "EURUSD")
	assert.Contains(t, store.cals, "GBPUSD")

	assert.Error(t, r.Handle(context.Background(), json.RawMessage(`{"pair":"EURUSD","from":"2020-01-10","to":"2020-02-09"}`)))
	assert.Error(t, r.Handle(context.Background(), json.RawMessage(`{"pair":"EUR/USD","from":"soon","to":"2020-02-09"}`)))
	assert.Error(t, r.Handle(context.Background(), json.RawMessage(`"nope"`)))
}
