package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"SRZones/internal/domain/models"
	domrepo "SRZones/internal/domain/repository"
)

// MultiStore fans writes out to every store and reads from the first store
// that holds the pair.
type MultiStore struct {
	stores []domrepo.CalendarStore
}

func NewMultiStore(stores ...domrepo.CalendarStore) *MultiStore {
	return &MultiStore{stores: stores}
}

func (m *MultiStore) Name() string {
	names := make([]string, 0, len(m.stores))
	for _, s := range m.stores {
		names = append(names, s.Name())
	}
	return strings.Join(names, "+")
}

// Stores returns the wrapped stores in read order.
func (m *MultiStore) Stores() []domrepo.CalendarStore {
	return append([]domrepo.CalendarStore(nil), m.stores...)
}

// Save writes to every store and joins the failures.
func (m *MultiStore) Save(ctx context.Context, pair models.Pair, cal *models.ZoneCalendar) error {
	var errs []error
	for _, s := range m.stores {
		if err := s.Save(ctx, pair, cal); err != nil {
			errs = append(errs, fmt.Errorf("%s store: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiStore) Load(ctx context.Context, pair models.Pair) (*models.ZoneCalendar, error) {
	var errs []error
	for _, s := range m.stores {
		cal, err := s.Load(ctx, pair)
		if err == nil {
			return cal, nil
		}
		if !errors.Is(err, domrepo.ErrCalendarNotFound) {
			errs = append(errs, fmt.Errorf("%s store: %w", s.Name(), err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, domrepo.ErrCalendarNotFound
}
