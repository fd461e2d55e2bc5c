package repository

import (
	"context"
	"errors"
	"time"

	"SRZones/internal/domain/models"
)

// ErrCalendarNotFound is returned by a CalendarStore that holds no calendar
// for the requested pair.
var ErrCalendarNotFound = errors.New("calendar not found")

// BarSource provides close prices for a pair, ascending, with from <= t <= to.
type BarSource interface {
	Bars(ctx context.Context, pair models.Pair, from, to time.Time) ([]models.Bar, error)
}

// Clusterer partitions values into at most k groups and returns one
// representative per non-empty group.
type Clusterer interface {
	Cluster(values []float64, k int) ([]float64, error)
}

// CalendarStore persists zone calendars keyed by pair.
type CalendarStore interface {
	Name() string
	Save(ctx context.Context, pair models.Pair, cal *models.ZoneCalendar) error
	Load(ctx context.Context, pair models.Pair) (*models.ZoneCalendar, error)
}

// CalendarPublisher announces a freshly built calendar downstream.
type CalendarPublisher interface {
	PublishCalendar(ctx context.Context, pair models.Pair, cal *models.ZoneCalendar) error
	Close() error
}

type Metrics interface {
	RecordBars(pair string, n int)
	RecordExtrema(pair string, n int)
	RecordDay(pair string, built bool)
	RecordZones(pair string, n int)
	RecordLatency(stage string, seconds float64)
	RecordError(kind string)
}
