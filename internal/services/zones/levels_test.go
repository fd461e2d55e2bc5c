package zones

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SRZones/internal/domain/models"
)

func TestCompactEmpty(t *testing.T) {
	assert.Empty(t, Compact(models.NewZoneCalendar()))
}

func TestCompactRuns(t *testing.T) {
	cal := models.NewZoneCalendar()
	cal.Set(date("2020-01-01"), []float64{1.1, 1.2})
	cal.Set(date("2020-01-02"), []float64{1.1, 1.3})
	cal.Set(date("2020-01-03"), []float64{1.1, 1.2, 1.3})
	cal.Set(date("2020-01-05"), []float64{1.1})

	got := Compact(cal)
	want := []models.ZoneInterval{
		{Price: 1.2, Start: date("2020-01-01"), End: date("2020-01-02")},
		{Price: 1.2, Start: date("2020-01-03"), End: date("2020-01-05")},
		{Price: 1.3, Start: date("2020-01-02"), End: date("2020-01-05")},
		{Price: 1.1, Start: date("2020-01-01"), End: date("2020-01-05")},
	}
	assert.Equal(t, want, got)
}

func TestCompactQuantizesPrices(t *testing.T) {
	cal := models.NewZoneCalendar()
	cal.Set(date("2020-01-01"), []float64{1.10001})
	cal.Set(date("2020-01-02"), []float64{1.09999})

	got := Compact(cal)
	require.Len(t, got, 1)
	assert.Equal(t, 1.1, got[0].Price)
	assert.Equal(t, date("2020-01-01"), got[0].Start)
	assert.Equal(t, date("2020-01-02"), got[0].End)
}

func TestCompactSingleDay(t *testing.T) {
	cal := models.NewZoneCalendar()
	cal.Set(date("2020-01-01"), []float64{2, 1, 1})

	got := Compact(cal)
	assert.Equal(t, []models.ZoneInterval{
		{Price: 1, Start: date("2020-01-01"), End: date("2020-01-01")},
		{Price: 2, Start: date("2020-01-01"), End: date("2020-01-01")},
	}, got)
}
