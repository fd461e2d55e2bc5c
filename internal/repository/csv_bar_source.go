package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"SRZones/internal/domain/models"
	applogger "SRZones/pkg/logger"
	"SRZones/pkg/util"
)

// PairPlaceholder in a CSV path is replaced by the pair name, e.g.
// "data/{pair}_1h.csv" becomes "data/EURUSD_1h.csv".
const PairPlaceholder = "{pair}"

// CSVBarSource reads bars from a headered CSV export whose first column is
// the bar time.
type CSVBarSource struct {
	path        string
	closeColumn int
	l           *applogger.Logger
}

// NewCSVBarSource reads close prices from closeColumn (zero based).
func NewCSVBarSource(path string, closeColumn int) *CSVBarSource {
	return &CSVBarSource{path: path, closeColumn: closeColumn}
}

func (s *CSVBarSource) SetLogger(l *applogger.Logger) { s.l = l }

// Path resolves the file read for pair.
func (s *CSVBarSource) Path(pair models.Pair) string {
	return strings.ReplaceAll(s.path, PairPlaceholder, pair.Name())
}

func (s *CSVBarSource) Bars(ctx context.Context, pair models.Pair, from, to time.Time) ([]models.Bar, error) {
	path := s.Path(pair)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bars: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.ReuseRecord = true

	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	from, to = from.UTC(), to.UTC()
	out := make([]models.Bar, 0, 4096)
	for line := 2; ; line++ {
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if len(rec) <= s.closeColumn {
			return nil, fmt.Errorf("line %d: want at least %d columns, got %d", line, s.closeColumn+1, len(rec))
		}
		ts, err := util.ParseBarTime(rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if ts.Before(from) {
			continue
		}
		if ts.After(to) {
			break
		}
		closePrice, err := strconv.ParseFloat(strings.TrimSpace(rec[s.closeColumn]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parse close: %w", line, err)
		}
		out = append(out, models.Bar{Timestamp: ts, Close: closePrice})
	}

	if s.l != nil {
		s.l.Info("csv bars loaded",
			applogger.String("path", path),
			applogger.String("pair", pair.String()),
			applogger.Int("rows", len(out)),
		)
	}
	return out, nil
}
