package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SRZones/internal/domain/models"
	domrepo "SRZones/internal/domain/repository"
	"SRZones/pkg/cache"
)

const calendarKeyPrefix = "calendar"

// CacheCalendarStore keeps calendar documents in a cache.Service, normally
// Redis. A zero ttl keeps entries until overwritten.
type CacheCalendarStore struct {
	cache cache.Service
	ttl   time.Duration
}

func NewCacheCalendarStore(c cache.Service, ttl time.Duration) *CacheCalendarStore {
	return &CacheCalendarStore{cache: c, ttl: ttl}
}

func (s *CacheCalendarStore) Name() string { return "redis" }

// CalendarKey is the cache key a pair's calendar lives under.
func CalendarKey(pair models.Pair) string {
	return cache.GenerateKey(calendarKeyPrefix, pair.Name())
}

func (s *CacheCalendarStore) Save(ctx context.Context, pair models.Pair, cal *models.ZoneCalendar) error {
	if err := s.cache.Set(ctx, CalendarKey(pair), cal.Document(pair), s.ttl); err != nil {
		return fmt.Errorf("cache calendar: %w", err)
	}
	return nil
}

func (s *CacheCalendarStore) Load(ctx context.Context, pair models.Pair) (*models.ZoneCalendar, error) {
	var doc models.CalendarDocument
	if err := s.cache.Get(ctx, CalendarKey(pair), &doc); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, domrepo.ErrCalendarNotFound
		}
		return nil, fmt.Errorf("cached calendar: %w", err)
	}
	return models.CalendarFromDocument(doc)
}
