package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"SRZones/internal/di"
	"SRZones/internal/domain/models"
	"SRZones/internal/usecase"
	"SRZones/pkg/config"
	applogger "SRZones/pkg/logger"
	"SRZones/pkg/util"
)

const (
	defaultFromDate = "1970-01-01"
	defaultToDate   = "2099-12-31"
)

func main() {
	configPath := flag.String("config", "", "config file path")
	pair := flag.String("pair", "", "currency pair, e.g. EUR/USD")
	csvFile := flag.String("csvfile", "", "bar CSV file; {pair} is replaced by the pair name")
	fromDate := flag.String("fromdate", "", "first day to build (YYYY-MM-DD)")
	toDate := flag.String("todate", "", "last day to build (YYYY-MM-DD)")
	period := flag.Int("period", 0, "trailing window in days")
	minHt := flag.Float64("min_ht", 0, "extremum height threshold, percent of price")
	zoneWidth := flag.Float64("zone_width", 0, "zone width in price units")
	minTouches := flag.Int("min_touches", 0, "touches a zone needs")
	clustering := flag.String("clustering", "", "kmeans, hier or hierarchical")
	nClusters := flag.Int("n_clusters", 0, "number of clusters")
	centering := flag.String("centering", "", "mean or median")
	seed := flag.Int64("seed", 0, "k-means seed")
	outDir := flag.String("out", "", "output directory of the file store")
	levels := flag.String("levels", "", "write compacted levels CSV to this path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	// flags override the file only when given
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "pair":
			cfg.Run.Pair = *pair
		case "csvfile":
			cfg.Input.Source = "csv"
			cfg.Input.CSVFile = *csvFile
		case "fromdate":
			cfg.Run.FromDate = *fromDate
		case "todate":
			cfg.Run.ToDate = *toDate
		case "period":
			cfg.Params.Period = *period
		case "min_ht":
			cfg.Params.MinHeightPct = *minHt
		case "zone_width":
			cfg.Params.ZoneWidth = *zoneWidth
		case "min_touches":
			cfg.Params.MinTouches = *minTouches
		case "clustering":
			cfg.Params.Clustering = *clustering
		case "n_clusters":
			cfg.Params.Clusters = *nClusters
		case "centering":
			cfg.Params.Centering = *centering
		case "seed":
			cfg.Params.Seed = seed
		case "out":
			cfg.Output.Dir = *outDir
		case "levels":
			cfg.Output.LevelsCSV = *levels
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	req, err := buildRequest(cfg)
	if err != nil {
		if errors.Is(err, models.ErrInvalidPair) {
			log.Printf("%v", err)
			os.Exit(2)
		}
		log.Fatalf("invalid run: %v", err)
	}
	if cfg.Input.Source == "csv" && cfg.Input.CSVFile == "" {
		log.Fatalf("a bar CSV file is required (-csvfile or input.csv_file)")
	}

	batch, cleanup, err := di.InitializeBatch(cfg)
	if err != nil {
		log.Fatalf("initialization failed: %v", err)
	}
	defer cleanup()
	l := batch.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := batch.Job.Run(ctx, req)
	if err != nil {
		l.Error("build failed", applogger.String("pair", req.Pair.String()), applogger.Error(err))
		cleanup()
		os.Exit(1)
	}
	l.Info("build complete",
		applogger.String("pair", res.Pair.String()),
		applogger.Int("bars", res.Bars),
		applogger.Int("extrema", res.Extrema),
		applogger.Int("days_built", res.Stats.DaysBuilt),
		applogger.Int("days_skipped", res.Stats.DaysSkipped),
		applogger.Int("levels", len(res.Levels)),
		applogger.Duration("duration_ms", res.Duration),
	)

	if cfg.Metrics.PushgatewayURL != "" {
		if err := batch.Metrics.Push(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
			l.Warn("metrics push failed", applogger.Error(err))
		}
	}
}

func buildRequest(cfg *config.Config) (usecase.BuildRequest, error) {
	pair, err := models.ParsePair(cfg.Run.Pair)
	if err != nil {
		return usecase.BuildRequest{}, err
	}
	from, err := util.ParseDate(orDefault(cfg.Run.FromDate, defaultFromDate))
	if err != nil {
		return usecase.BuildRequest{}, err
	}
	to, err := util.ParseDate(orDefault(cfg.Run.ToDate, defaultToDate))
	if err != nil {
		return usecase.BuildRequest{}, err
	}
	return usecase.BuildRequest{Pair: pair, From: from, To: to}, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
