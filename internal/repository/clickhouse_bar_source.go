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

// CHBarSource implements BarSource over a ClickHouse candle table.
type CHBarSource struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewCHBarSource reads from table, or from the candle table of tf when
// table is empty.
func NewCHBarSource(ch *pkgch.Client, table string, tf domrepo.Timeframe) (*CHBarSource, error) {
	if table == "" {
		t, err := tableForTF(ch.Database(), tf)
		if err != nil {
			return nil, err
		}
		table = t
	}
	return &CHBarSource{db: ch.DB(), table: table}, nil
}

// SetLogger injects a structured logger.
func (s *CHBarSource) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHBarSource) Bars(ctx context.Context, pair models.Pair, from, to time.Time) ([]models.Bar, error) {
	start := time.Now()
	const qtpl = `
        SELECT bucket, close
        FROM %s
        WHERE symbol = ? AND bucket >= ? AND bucket <= ?
        ORDER BY bucket ASC
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, pair.Name(), from.UTC(), to.UTC())
	if err != nil {
		s.logError("clickhouse bars query error", pair, err)
		return nil, fmt.Errorf("get bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, 1024)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Timestamp, &b.Close); err != nil {
			s.logError("clickhouse bars scan error", pair, err)
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Timestamp = b.Timestamp.UTC()
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		s.logError("clickhouse bars rows error", pair, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse bars ok",
			applogger.String("table", s.table),
			applogger.String("pair", pair.String()),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHBarSource) logError(msg string, pair models.Pair, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg,
		applogger.String("table", s.table),
		applogger.String("pair", pair.String()),
		applogger.Error(err),
	)
}

func tableForTF(database string, tf domrepo.Timeframe) (string, error) {
	switch tf {
	case domrepo.TF1m, domrepo.TF5m, domrepo.TF1h, domrepo.TF1d:
		return fmt.Sprintf("%s.fx_candles_%s", database, tf), nil
	default:
		return "", fmt.Errorf("unsupported timeframe: %s", tf)
	}
}
