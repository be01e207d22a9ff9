package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLocation(t *testing.T) {
	tests := []struct {
		name     string
		zone     string
		expected string
	}{
		{name: "known zone", zone: "Asia/Tokyo", expected: "Asia/Tokyo"},
		{name: "unknown zone falls back", zone: "Mars/Olympus_Mons", expected: "Europe/Moscow"},
		{name: "empty falls back", zone: "", expected: "Europe/Moscow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, LoadLocation(tt.zone).String())
		})
	}
}

func TestLocalDateAndClock(t *testing.T) {
	moscow := LoadLocation("Europe/Moscow")
	now := time.Date(2024, 1, 10, 21, 30, 0, 0, time.UTC)

	assert.Equal(t, "2024-01-11", LocalDate(now, moscow))
	assert.Equal(t, "00:30", LocalClock(now, moscow))
	assert.Equal(t, "2024-01-10", LocalDate(now, time.UTC))
}

func TestDayBounds(t *testing.T) {
	moscow := LoadLocation("Europe/Moscow")
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 1, 9, 21, 0, 0, 0, time.UTC), DayStart(now, moscow))
	assert.Equal(t, time.Date(2024, 1, 10, 21, 0, 0, 0, time.UTC), NextDayStart(now, moscow))
}

func TestNextDayStart_DST(t *testing.T) {
	ny := LoadLocation("America/New_York")
	// 2024-03-10 is 23 hours long in New York
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)

	start := DayStart(now, ny)
	next := NextDayStart(now, ny)

	assert.Equal(t, 23*time.Hour, next.Sub(start))
}

func TestEndOfDay(t *testing.T) {
	moscow := LoadLocation("Europe/Moscow")
	now := time.Date(2024, 1, 10, 22, 0, 0, 0, time.UTC) // already Jan 11 in Moscow

	end := EndOfDay(now, moscow, 0)
	assert.Equal(t, "2024-01-11 23:59:59", end.Format("2006-01-02 15:04:05"))

	week := EndOfDay(now, moscow, 7)
	assert.Equal(t, "2024-01-18 23:59:59", week.Format("2006-01-02 15:04:05"))
}

func TestPreviousDate(t *testing.T) {
	prev, err := PreviousDate("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", prev)

	_, err = PreviousDate("not-a-date")
	assert.Error(t, err)
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in       string
		expected string
		ok       bool
	}{
		{in: "19:00", expected: "19:00", ok: true},
		{in: "8:05", expected: "08:05", ok: true},
		{in: "24:00", ok: false},
		{in: "19:60", ok: false},
		{in: "evening", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseClock(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestSupportedTimeZonesLoad(t *testing.T) {
	for _, zone := range SupportedTimeZones {
		assert.True(t, IsValidTimeZone(zone), zone)
	}
}
