package zones

import (
	"sort"
	"time"

	"SRZones/internal/domain/models"
)

type openLevel struct {
	price float64
	start time.Time
}

// Compact folds a calendar into price intervals. A price opens on the first
// date it appears and closes on the first later date it is missing from,
// or on the last date if it never disappears. Prices are compared after
// rounding to PricePrecision. Intervals come out in closing order, ascending
// price within a date.
func Compact(cal *models.ZoneCalendar) []models.ZoneInterval {
	days := cal.Days()
	if len(days) == 0 {
		return nil
	}
	open := make(map[string]openLevel)
	var out []models.ZoneInterval

	for _, d := range days {
		present := make(map[string]float64, len(d.Zones))
		for _, z := range d.Zones {
			present[models.PriceKey(z)] = models.RoundPrice(z)
		}
		out = append(out, closeMissing(open, present, d.Date)...)
		for key, price := range present {
			if _, ok := open[key]; !ok {
				open[key] = openLevel{price: price, start: d.Date}
			}
		}
	}
	return append(out, closeMissing(open, nil, days[len(days)-1].Date)...)
}

// closeMissing removes every open level absent from present and returns the
// closed intervals ordered by price.
func closeMissing(open map[string]openLevel, present map[string]float64, end time.Time) []models.ZoneInterval {
	var closed []models.ZoneInterval
	for key, lvl := range open {
		if _, ok := present[key]; ok {
			continue
		}
		closed = append(closed, models.ZoneInterval{Price: lvl.price, Start: lvl.start, End: end})
		delete(open, key)
	}
	sort.Slice(closed, func(i, j int) bool { return closed[i].Price < closed[j].Price })
	return closed
}
