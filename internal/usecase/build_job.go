package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"SRZones/internal/domain/models"
	domrepo "SRZones/internal/domain/repository"
	"SRZones/internal/repository"
	"SRZones/internal/services/extrema"
	"SRZones/internal/services/zones"
	applogger "SRZones/pkg/logger"
)

// minScanBars is the shortest series the extrema detector evaluates.
const minScanBars = 12

var ErrInvalidRange = errors.New("from date after to date")

// BuildJobConfig carries the tuning of every build the job runs.
type BuildJobConfig struct {
	Params        models.ZoneParams
	JPYMultiplier float64
	// LevelsCSV, when set, receives the compacted intervals. A {pair}
	// placeholder is replaced by the pair name.
	LevelsCSV string
}

type BuildRequest struct {
	Pair models.Pair
	From time.Time
	To   time.Time
}

type BuildResult struct {
	Pair      models.Pair
	From      time.Time
	To        time.Time
	ZoneWidth float64
	Bars      int
	Extrema   int
	Stats     zones.BuildStats
	Calendar  *models.ZoneCalendar
	Levels    []models.ZoneInterval
	Duration  time.Duration
}

// BuildJob runs the whole pipeline for one pair: load bars, detect
// extrema, build the zone calendar, persist and publish it.
type BuildJob struct {
	bars      domrepo.BarSource
	clusterer domrepo.Clusterer
	store     domrepo.CalendarStore
	publisher domrepo.CalendarPublisher
	metrics   domrepo.Metrics
	cfg       BuildJobConfig
	l         *applogger.Logger
}

func NewBuildJob(
	bars domrepo.BarSource,
	clusterer domrepo.Clusterer,
	store domrepo.CalendarStore,
	publisher domrepo.CalendarPublisher,
	metrics domrepo.Metrics,
	cfg BuildJobConfig,
	l *applogger.Logger,
) *BuildJob {
	if publisher == nil {
		publisher = repository.NoopPublisher{}
	}
	if l == nil {
		l = applogger.NewNop()
	}
	if cfg.JPYMultiplier <= 0 {
		cfg.JPYMultiplier = 1
	}
	return &BuildJob{
		bars:      bars,
		clusterer: clusterer,
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		cfg:       cfg,
		l:         l,
	}
}

// ParamsFor returns the build parameters with the zone width adjusted for pair.
func (j *BuildJob) ParamsFor(pair models.Pair) models.ZoneParams {
	p := j.cfg.Params
	p.ZoneWidth = pair.ZoneWidthFor(p.ZoneWidth, j.cfg.JPYMultiplier)
	return p
}

func (j *BuildJob) Run(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	start := time.Now()
	from, to := models.DayOf(req.From), models.DayOf(req.To)
	if from.After(to) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange, from.Format(models.DateLayout), to.Format(models.DateLayout))
	}
	pair := req.Pair
	name := pair.Name()
	log := j.l.With(applogger.String("pair", pair.String()))

	stage := time.Now()
	bars, err := j.bars.Bars(ctx, pair, from, to)
	if err != nil {
		j.recordError("load_bars")
		return nil, fmt.Errorf("load bars: %w", err)
	}
	j.observe("load_bars", stage)
	j.recordBars(name, len(bars))
	if len(bars) < minScanBars {
		log.Warn("too few bars for extrema detection",
			applogger.Int("bars", len(bars)),
			applogger.Int("min_bars", minScanBars),
		)
	} else {
		log.Info("bars loaded",
			applogger.Int("bars", len(bars)),
			applogger.Date("from", from),
			applogger.Date("to", to),
		)
	}

	stage = time.Now()
	params := j.ParamsFor(pair)
	found := extrema.NewDetector(params.MinHeightPct).Detect(bars)
	j.observe("detect", stage)
	j.recordExtrema(name, len(found))
	log.Info("extrema detected", applogger.Int("extrema", len(found)))

	stage = time.Now()
	builder := zones.NewBuilder(params, j.clusterer, log)
	if j.metrics != nil {
		builder.Observe(func(_ time.Time, z []float64, built bool) {
			j.metrics.RecordDay(name, built)
			if built {
				j.metrics.RecordZones(name, len(z))
			}
		})
	}
	cal, stats, err := builder.Build(ctx, found, from, to)
	if err != nil {
		j.recordError("build")
		return nil, fmt.Errorf("build calendar: %w", err)
	}
	j.observe("build", stage)
	log.Info("calendar built",
		applogger.Int("days_built", stats.DaysBuilt),
		applogger.Int("days_skipped", stats.DaysSkipped),
		applogger.Int("entries", cal.Len()),
		applogger.Float64("zone_width", params.ZoneWidth),
	)

	stage = time.Now()
	if err := j.store.Save(ctx, pair, cal); err != nil {
		j.recordError("save")
		return nil, fmt.Errorf("save calendar: %w", err)
	}
	j.observe("save", stage)
	log.Info("calendar saved", applogger.String("store", j.store.Name()))

	stage = time.Now()
	if err := j.publisher.PublishCalendar(ctx, pair, cal); err != nil {
		j.recordError("publish")
		return nil, fmt.Errorf("publish calendar: %w", err)
	}
	j.observe("publish", stage)

	levels := zones.Compact(cal)
	if j.cfg.LevelsCSV != "" {
		path := strings.ReplaceAll(j.cfg.LevelsCSV, repository.PairPlaceholder, name)
		if err := repository.SaveLevelsCSV(path, levels); err != nil {
			j.recordError("levels")
			return nil, err
		}
		log.Info("levels written", applogger.String("path", path), applogger.Int("levels", len(levels)))
	}

	res := &BuildResult{
		Pair:      pair,
		From:      from,
		To:        to,
		ZoneWidth: params.ZoneWidth,
		Bars:      len(bars),
		Extrema:   len(found),
		Stats:     stats,
		Calendar:  cal,
		Levels:    levels,
		Duration:  time.Since(start),
	}
	j.observe("total", start)
	return res, nil
}

func (j *BuildJob) observe(stage string, since time.Time) {
	if j.metrics != nil {
		j.metrics.RecordLatency(stage, time.Since(since).Seconds())
	}
}

func (j *BuildJob) recordBars(pair string, n int) {
	if j.metrics != nil {
		j.metrics.RecordBars(pair, n)
	}
}

func (j *BuildJob) recordExtrema(pair string, n int) {
	if j.metrics != nil {
		j.metrics.RecordExtrema(pair, n)
	}
}

func (j *BuildJob) recordError(kind string) {
	if j.metrics != nil {
		j.metrics.RecordError(kind)
	}
}
