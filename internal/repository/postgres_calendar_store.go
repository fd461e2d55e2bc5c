package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"SRZones/internal/domain/models"
	domrepo "SRZones/internal/domain/repository"
	"SRZones/pkg/postgres"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS sr_zones (
		pair  TEXT NOT NULL,
		date  DATE NOT NULL,
		zones DOUBLE PRECISION[] NOT NULL,
		PRIMARY KEY (pair, date)
	)`,
}

// PostgresCalendarStore persists calendars in the sr_zones table.
type PostgresCalendarStore struct {
	pool *postgres.Pool
}

// NewPostgresCalendarStore applies the schema and returns the store.
func NewPostgresCalendarStore(ctx context.Context, pool *postgres.Pool) (*PostgresCalendarStore, error) {
	if err := pool.InitSchema(ctx, postgresSchema); err != nil {
		return nil, err
	}
	return &PostgresCalendarStore{pool: pool}, nil
}

func (s *PostgresCalendarStore) Name() string { return "postgres" }

// Save replaces the rows of pair with a COPY inside one transaction.
func (s *PostgresCalendarStore) Save(ctx context.Context, pair models.Pair, cal *models.ZoneCalendar) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM sr_zones WHERE pair = $1`, pair.Name()); err != nil {
		return fmt.Errorf("delete calendar: %w", err)
	}

	days := cal.Days()
	rows := make([][]any, 0, len(days))
	for _, d := range days {
		rows = append(rows, []any{pair.Name(), d.Date, nonNil(d.Zones)})
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"sr_zones"},
		[]string{"pair", "date", "zones"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("copy calendar: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PostgresCalendarStore) Load(ctx context.Context, pair models.Pair) (*models.ZoneCalendar, error) {
	rows, err := s.pool.Query(ctx, `SELECT date, zones FROM sr_zones WHERE pair = $1 ORDER BY date`, pair.Name())
	if err != nil {
		return nil, fmt.Errorf("query calendar: %w", err)
	}
	defer rows.Close()

	cal := models.NewZoneCalendar()
	for rows.Next() {
		var date time.Time
		var zones []float64
		if err := rows.Scan(&date, &zones); err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		cal.Set(date, zones)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if cal.Len() == 0 {
		return nil, domrepo.ErrCalendarNotFound
	}
	return cal, nil
}
