package zones

import (
	"time"

	"SRZones/internal/domain/models"
)

// TargetDates returns the dates the zones computed on day apply to: the
// next day, or Sunday and Monday when day is a Friday.
func TargetDates(day time.Time) []time.Time {
	day = models.DayOf(day)
	if day.Weekday() == time.Friday {
		return []time.Time{day.AddDate(0, 0, 2), day.AddDate(0, 0, 3)}
	}
	return []time.Time{day.AddDate(0, 0, 1)}
}

// Apply writes zones under every target date of day, overwriting whatever
// an earlier day stored there.
func Apply(cal *models.ZoneCalendar, day time.Time, zones []float64) {
	for _, d := range TargetDates(day) {
		cal.Set(d, zones)
	}
}
