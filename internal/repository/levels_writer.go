package repository

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"SRZones/internal/domain/models"
)

// WriteLevelsCSV writes intervals as price,start,end rows with dates in
// YYYY-MM-DD form.
func WriteLevelsCSV(w io.Writer, levels []models.ZoneInterval) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"price", "start", "end"}); err != nil {
		return err
	}
	for _, lv := range levels {
		rec := []string{
			strconv.FormatFloat(lv.Price, 'f', -1, 64),
			lv.Start.Format(models.DateLayout),
			lv.End.Format(models.DateLayout),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveLevelsCSV writes intervals to path, replacing any existing file.
func SaveLevelsCSV(path string, levels []models.ZoneInterval) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create levels file: %w", err)
	}
	if err := WriteLevelsCSV(f, levels); err != nil {
		f.Close()
		return fmt.Errorf("write levels: %w", err)
	}
	return f.Close()
}
