package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"SRZones/internal/domain/models"
	domrepo "SRZones/internal/domain/repository"
)

// FileCalendarStore keeps one JSON document per pair under dir.
type FileCalendarStore struct {
	dir string
}

func NewFileCalendarStore(dir string) *FileCalendarStore {
	if dir == "" {
		dir = "."
	}
	return &FileCalendarStore{dir: dir}
}

func (s *FileCalendarStore) Name() string { return "file" }

// Path is where the calendar of pair is written.
func (s *FileCalendarStore) Path(pair models.Pair) string {
	return filepath.Join(s.dir, pair.ArtifactName()+".json")
}

func (s *FileCalendarStore) Save(_ context.Context, pair models.Pair, cal *models.ZoneCalendar) error {
	b, err := json.MarshalIndent(cal.Document(pair), "", "  ")
	if err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, "."+pair.ArtifactName()+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write calendar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close calendar: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path(pair)); err != nil {
		return fmt.Errorf("rename calendar: %w", err)
	}
	return nil
}

func (s *FileCalendarStore) Load(_ context.Context, pair models.Pair) (*models.ZoneCalendar, error) {
	b, err := os.ReadFile(s.Path(pair))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domrepo.ErrCalendarNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read calendar: %w", err)
	}
	var doc models.CalendarDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode calendar: %w", err)
	}
	return models.CalendarFromDocument(doc)
}
