package models

import (
	"fmt"
	"sort"
	"time"
)

const DateLayout = "2006-01-02"

// CalendarDay is one entry of a ZoneCalendar.
type CalendarDay struct {
	Date  time.Time
	Zones []float64
}

// ZoneCalendar maps calendar dates to the ascending list of zone prices
// active on that date. Keys are kept sorted; iteration is always in date
// order. Not safe for concurrent mutation.
type ZoneCalendar struct {
	dates []time.Time
	zones map[time.Time][]float64
}

func NewZoneCalendar() *ZoneCalendar {
	return &ZoneCalendar{zones: make(map[time.Time][]float64)}
}

// DayOf truncates t to midnight UTC of its UTC calendar day.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Set stores a copy of zones under date, replacing any previous value.
func (c *ZoneCalendar) Set(date time.Time, zones []float64) {
	key := DayOf(date)
	if _, ok := c.zones[key]; !ok {
		i := sort.Search(len(c.dates), func(i int) bool { return !c.dates[i].Before(key) })
		c.dates = append(c.dates, time.Time{})
		copy(c.dates[i+1:], c.dates[i:])
		c.dates[i] = key
	}
	c.zones[key] = append([]float64(nil), zones...)
}

func (c *ZoneCalendar) Get(date time.Time) ([]float64, bool) {
	z, ok := c.zones[DayOf(date)]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), z...), true
}

func (c *ZoneCalendar) Len() int {
	return len(c.dates)
}

// Dates returns the keys in ascending order.
func (c *ZoneCalendar) Dates() []time.Time {
	return append([]time.Time(nil), c.dates...)
}

// Days returns every entry in ascending date order.
func (c *ZoneCalendar) Days() []CalendarDay {
	return c.collect(0, len(c.dates))
}

// Range returns the entries with from <= date <= to.
func (c *ZoneCalendar) Range(from, to time.Time) []CalendarDay {
	from, to = DayOf(from), DayOf(to)
	lo := sort.Search(len(c.dates), func(i int) bool { return !c.dates[i].Before(from) })
	hi := sort.Search(len(c.dates), func(i int) bool { return c.dates[i].After(to) })
	if lo >= hi {
		return nil
	}
	return c.collect(lo, hi)
}

// Slice returns a new calendar restricted to from <= date <= to.
func (c *ZoneCalendar) Slice(from, to time.Time) *ZoneCalendar {
	out := NewZoneCalendar()
	for _, d := range c.Range(from, to) {
		out.Set(d.Date, d.Zones)
	}
	return out
}

func (c *ZoneCalendar) collect(lo, hi int) []CalendarDay {
	days := make([]CalendarDay, 0, hi-lo)
	for _, d := range c.dates[lo:hi] {
		days = append(days, CalendarDay{Date: d, Zones: append([]float64(nil), c.zones[d]...)})
	}
	return days
}

// CalendarDocument is the serialized form of a calendar shared by the file,
// cache and message encodings.
type CalendarDocument struct {
	Pair string        `json:"pair"`
	Days []DayDocument `json:"days"`
}

type DayDocument struct {
	Pair  string    `json:"pair,omitempty"`
	Date  string    `json:"date"`
	Zones []float64 `json:"zones"`
}

func (c *ZoneCalendar) Document(pair Pair) CalendarDocument {
	doc := CalendarDocument{Pair: pair.String(), Days: make([]DayDocument, 0, len(c.dates))}
	for _, d := range c.Days() {
		zones := d.Zones
		if zones == nil {
			zones = []float64{}
		}
		doc.Days = append(doc.Days, DayDocument{Date: d.Date.Format(DateLayout), Zones: zones})
	}
	return doc
}

func CalendarFromDocument(doc CalendarDocument) (*ZoneCalendar, error) {
	cal := NewZoneCalendar()
	for _, d := range doc.Days {
		date, err := time.ParseInLocation(DateLayout, d.Date, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse calendar date %q: %w", d.Date, err)
		}
		cal.Set(date, d.Zones)
	}
	return cal, nil
}
