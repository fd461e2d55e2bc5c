package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SRZones/internal/domain/models"
	domrepo "SRZones/internal/domain/repository"
	"SRZones/internal/services/zones"
	"SRZones/pkg/cache"
)

const queryKeyPrefix = "zones"

var ErrDateNotFound = errors.New("no zones for date")

// ZonesQuery answers read requests from stored calendars. Calendars are
// kept in c between requests.
type ZonesQuery struct {
	store domrepo.CalendarStore
	cache cache.Service
	ttl   time.Duration
}

func NewZonesQuery(store domrepo.CalendarStore, c cache.Service, ttl time.Duration) *ZonesQuery {
	return &ZonesQuery{store: store, cache: c, ttl: ttl}
}

func queryKey(pair models.Pair) string {
	return cache.GenerateKey(queryKeyPrefix, pair.Name())
}

// Calendar returns the stored calendar of pair.
func (q *ZonesQuery) Calendar(ctx context.Context, pair models.Pair) (*models.ZoneCalendar, error) {
	key := queryKey(pair)
	if q.cache != nil {
		var doc models.CalendarDocument
		if err := q.cache.Get(ctx, key, &doc); err == nil {
			return models.CalendarFromDocument(doc)
		}
	}
	cal, err := q.store.Load(ctx, pair)
	if err != nil {
		return nil, err
	}
	if q.cache != nil {
		// a failed cache write only costs a reload
		_ = q.cache.Set(ctx, key, cal.Document(pair), q.ttl)
	}
	return cal, nil
}

// ZonesOn returns the zones active on date.
func (q *ZonesQuery) ZonesOn(ctx context.Context, pair models.Pair, date time.Time) ([]float64, error) {
	cal, err := q.Calendar(ctx, pair)
	if err != nil {
		return nil, err
	}
	z, ok := cal.Get(date)
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrDateNotFound, pair, date.Format(models.DateLayout))
	}
	return z, nil
}

// CalendarRange returns the days with from <= date <= to.
func (q *ZonesQuery) CalendarRange(ctx context.Context, pair models.Pair, from, to time.Time) ([]models.CalendarDay, error) {
	if models.DayOf(from).After(models.DayOf(to)) {
		return nil, ErrInvalidRange
	}
	cal, err := q.Calendar(ctx, pair)
	if err != nil {
		return nil, err
	}
	return cal.Range(from, to), nil
}

// Levels compacts the days with from <= date <= to into price intervals.
func (q *ZonesQuery) Levels(ctx context.Context, pair models.Pair, from, to time.Time) ([]models.ZoneInterval, error) {
	if models.DayOf(from).After(models.DayOf(to)) {
		return nil, ErrInvalidRange
	}
	cal, err := q.Calendar(ctx, pair)
	if err != nil {
		return nil, err
	}
	return zones.Compact(cal.Slice(from, to)), nil
}

// Invalidate drops the cached calendar of pair.
func (q *ZonesQuery) Invalidate(ctx context.Context, pair models.Pair) error {
	if q.cache == nil {
		return nil
	}
	return q.cache.Delete(ctx, queryKey(pair))
}
