package calendar

import (
	"time"
	_ "time/tzdata"

	"questbot/internal/model"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// SupportedTimeZones is the set offered in the zone picker.
var SupportedTimeZones = []string{
	"Europe/Moscow", "Europe/London", "Europe/Paris", "Europe/Berlin",
	"Europe/Athens", "Europe/Stockholm", "Europe/Istanbul", "Europe/Madrid", "Europe/Rome",
	"America/New_York", "America/Toronto", "America/Chicago", "America/Denver",
	"America/Los_Angeles", "America/Sao_Paulo", "America/Mexico_City",
	"Asia/Jerusalem", "Asia/Dubai", "Asia/Kolkata", "Asia/Bangkok", "Asia/Shanghai",
	"Asia/Hong_Kong", "Asia/Singapore", "Asia/Tokyo", "Asia/Seoul", "Asia/Manila",
	"Australia/Sydney", "Australia/Melbourne", "Pacific/Auckland",
	"Africa/Cairo", "Africa/Johannesburg", "Africa/Nairobi",
}

// ReminderPresets are the reminder times offered as buttons.
var ReminderPresets = []string{"08:00", "12:00", "17:00", "19:00", "21:00", "23:00"}

// LoadLocation resolves an IANA zone name, falling back to the default zone
// and then UTC.
func LoadLocation(name string) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if loc, err := time.LoadLocation(model.DefaultTimeZone); err == nil {
		return loc
	}
	return time.UTC
}

func IsValidTimeZone(name string) bool {
	if name == "" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

// LocalDate is the YYYY-MM-DD calendar date of now in loc.
func LocalDate(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(DateLayout)
}

// LocalClock is the HH:MM wall clock of now in loc.
func LocalClock(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(ClockLayout)
}

// DayStart returns the start of the current day in the user's timezone, converted to UTC.
func DayStart(now time.Time, tz *time.Location) time.Time {
	userNow := now.In(tz)
	dayStart := time.Date(userNow.Year(), userNow.Month(), userNow.Day(), 0, 0, 0, 0, tz)
	return dayStart.UTC()
}

// NextDayStart returns the start of the next day in the user's timezone, converted to UTC.
func NextDayStart(now time.Time, tz *time.Location) time.Time {
	dayStart := DayStart(now, tz)
	// AddDate keeps wall-clock midnight across DST shifts
	nextDay := dayStart.In(tz).AddDate(0, 0, 1)
	return time.Date(nextDay.Year(), nextDay.Month(), nextDay.Day(), 0, 0, 0, 0, tz).UTC()
}

// EndOfDay is 23:59:59 local time, offsetDays after the local date of now.
func EndOfDay(now time.Time, tz *time.Location, offsetDays int) time.Time {
	local := now.In(tz).AddDate(0, 0, offsetDays)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 0, tz)
}

// PreviousDate returns the calendar day before date (YYYY-MM-DD).
func PreviousDate(date string) (string, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", err
	}
	return d.AddDate(0, 0, -1).Format(DateLayout), nil
}

// ParseClock validates a HH:MM value and returns it normalized to two-digit fields.
func ParseClock(s string) (string, bool) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		t, err = time.Parse("15:4", s)
		if err != nil {
			return "", false
		}
	}
	return t.Format(ClockLayout), true
}
