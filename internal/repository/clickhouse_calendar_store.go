package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"SRZones/internal/domain/models"
	domrepo "SRZones/internal/domain/repository"
	pkgch "SRZones/pkg/clickhouse"
	applogger "SRZones/pkg/logger"
)

// chBuildMarker is the date of the row every build writes in addition to its
// days, so a build with no days still supersedes older ones.
var chBuildMarker = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

type chCalendarRow struct {
	date  time.Time
	zones []float64
}

// CHCalendarStore appends each build to sr_zones tagged with a build id;
// Load returns the latest build of a pair.
type CHCalendarStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
	now   func() time.Time
}

func NewCHCalendarStore(ctx context.Context, ch *pkgch.Client) (*CHCalendarStore, error) {
	table := ch.Database() + ".sr_zones"
	ddl := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            pair     LowCardinality(String),
            date     Date,
            zones    Array(Float64),
            build_id UInt64
        ) ENGINE = MergeTree
        ORDER BY (pair, build_id, date)`, table)
	if err := ch.InitSchema(ctx, []string{ddl}); err != nil {
		return nil, err
	}
	return &CHCalendarStore{db: ch.DB(), table: table, now: time.Now}, nil
}

func (s *CHCalendarStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHCalendarStore) Name() string { return "clickhouse" }

func (s *CHCalendarStore) Save(ctx context.Context, pair models.Pair, cal *models.ZoneCalendar) error {
	start := time.Now()
	buildID := uint64(s.now().UnixNano())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (pair, date, zones, build_id)", s.table))
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	for _, r := range chBuildRows(cal) {
		if _, err := stmt.ExecContext(ctx, pair.Name(), r.date, r.zones, buildID); err != nil {
			return fmt.Errorf("append day: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse save calendar error",
				applogger.String("pair", pair.String()),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("send batch: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse save calendar ok",
			applogger.String("pair", pair.String()),
			applogger.Int("days", cal.Len()),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func (s *CHCalendarStore) Load(ctx context.Context, pair models.Pair) (*models.ZoneCalendar, error) {
	const qtpl = `
        SELECT date, zones
        FROM %[1]s
        WHERE pair = ? AND build_id = (SELECT max(build_id) FROM %[1]s WHERE pair = ?)
        ORDER BY date ASC
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table), pair.Name(), pair.Name())
	if err != nil {
		return nil, fmt.Errorf("query calendar: %w", err)
	}
	defer rows.Close()

	var build []chCalendarRow
	for rows.Next() {
		var r chCalendarRow
		if err := rows.Scan(&r.date, &r.zones); err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		build = append(build, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return chCalendarFromRows(build)
}

// chBuildRows is the marker row followed by one row per calendar day.
func chBuildRows(cal *models.ZoneCalendar) []chCalendarRow {
	days := cal.Days()
	out := make([]chCalendarRow, 0, len(days)+1)
	out = append(out, chCalendarRow{date: chBuildMarker, zones: []float64{}})
	for _, d := range days {
		out = append(out, chCalendarRow{date: d.Date, zones: nonNil(d.Zones)})
	}
	return out
}

// chCalendarFromRows rebuilds the calendar of one build. A build holding only
// its marker is an empty calendar; no rows at all means nothing was saved.
func chCalendarFromRows(rows []chCalendarRow) (*models.ZoneCalendar, error) {
	if len(rows) == 0 {
		return nil, domrepo.ErrCalendarNotFound
	}
	cal := models.NewZoneCalendar()
	for _, r := range rows {
		if models.DayOf(r.date).Equal(chBuildMarker) {
			continue
		}
		cal.Set(r.date, r.zones)
	}
	return cal, nil
}
