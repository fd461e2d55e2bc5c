package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"SRZones/internal/domain/models"
	domrepo "SRZones/internal/domain/repository"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sr_zones (
	pair  TEXT NOT NULL,
	date  TEXT NOT NULL,
	zones TEXT NOT NULL,
	PRIMARY KEY (pair, date)
);`

// SQLiteCalendarStore persists calendars in a single SQLite file.
type SQLiteCalendarStore struct {
	db *sql.DB
}

// OpenSQLiteCalendarStore opens path and applies the schema.
func OpenSQLiteCalendarStore(ctx context.Context, path string) (*SQLiteCalendarStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLiteCalendarStore{db: db}, nil
}

func (s *SQLiteCalendarStore) Name() string { return "sqlite" }

func (s *SQLiteCalendarStore) Close() error { return s.db.Close() }

// Save replaces every row of pair in one transaction.
func (s *SQLiteCalendarStore) Save(ctx context.Context, pair models.Pair, cal *models.ZoneCalendar) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sr_zones WHERE pair = ?`, pair.Name()); err != nil {
		return fmt.Errorf("delete calendar: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO sr_zones (pair, date, zones) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range cal.Days() {
		zones, err := json.Marshal(nonNil(d.Zones))
		if err != nil {
			return fmt.Errorf("encode zones: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, pair.Name(), d.Date.Format(models.DateLayout), string(zones)); err != nil {
			return fmt.Errorf("insert day: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteCalendarStore) Load(ctx context.Context, pair models.Pair) (*models.ZoneCalendar, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, zones FROM sr_zones WHERE pair = ? ORDER BY date`, pair.Name())
	if err != nil {
		return nil, fmt.Errorf("query calendar: %w", err)
	}
	defer rows.Close()

	cal := models.NewZoneCalendar()
	for rows.Next() {
		var date, raw string
		if err := rows.Scan(&date, &raw); err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		day, err := time.ParseInLocation(models.DateLayout, date, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", date, err)
		}
		var zones []float64
		if err := json.Unmarshal([]byte(raw), &zones); err != nil {
			return nil, fmt.Errorf("decode zones: %w", err)
		}
		cal.Set(day, zones)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if cal.Len() == 0 {
		return nil, domrepo.ErrCalendarNotFound
	}
	return cal, nil
}

// nonNil keeps empty zone lists encoded as [] rather than null.
func nonNil(z []float64) []float64 {
	if z == nil {
		return []float64{}
	}
	return z
}
