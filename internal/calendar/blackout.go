package calendar

import (
	"context"
	"time"

	"questbot/pkg/logger"

	"go.uber.org/zap"
)

type WindowSource interface {
	LookupWindow(ctx context.Context, now time.Time, loc *time.Location) (*Window, error)
}

// BlackoutChecker decides whether reminders are suppressed for a user. It
// fails open: any lookup error means "not blacked out".
type BlackoutChecker struct {
	source  WindowSource
	enabled bool
}

func NewBlackoutChecker(source WindowSource, enabled bool) *BlackoutChecker {
	return &BlackoutChecker{
		source:  source,
		enabled: enabled,
	}
}

func (b *BlackoutChecker) InBlackout(ctx context.Context, loc *time.Location, now time.Time) bool {
	if !b.enabled {
		return false
	}
	if wd := now.In(loc).Weekday(); wd != time.Friday && wd != time.Saturday {
		return false
	}

	window, err := b.lookup(ctx, loc, now)
	if err != nil {
		logger.Logger().Warn("blackout lookup failed, not suppressing",
			zap.String("zone", loc.String()),
			zap.Error(err))
		return false
	}
	if window == nil {
		window = SeasonalWindow(now, loc)
	}
	if window == nil {
		return false
	}

	return window.Contains(now)
}

// Info returns the current or next observance window for display.
func (b *BlackoutChecker) Info(ctx context.Context, loc *time.Location, now time.Time) (*Window, error) {
	window, err := b.lookup(ctx, loc, now)
	if err != nil {
		return nil, err
	}
	// a weekend that already ended gives way to the coming one
	if window != nil && now.Before(window.End) {
		return window, nil
	}
	return UpcomingSeasonalWindow(now, loc), nil
}

func (b *BlackoutChecker) lookup(ctx context.Context, loc *time.Location, now time.Time) (*Window, error) {
	if b.source == nil {
		return nil, nil
	}
	return b.source.LookupWindow(ctx, now, loc)
}

// SeasonalWindow approximates the Friday evening to Saturday evening window
// from fixed per-season times. It returns nil outside Friday and Saturday.
func SeasonalWindow(now time.Time, loc *time.Location) *Window {
	local := now.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	var friday time.Time
	switch local.Weekday() {
	case time.Friday:
		friday = day
	case time.Saturday:
		friday = day.AddDate(0, 0, -1)
	default:
		return nil
	}

	return seasonalWindowFrom(friday, loc)
}

// UpcomingSeasonalWindow is SeasonalWindow for the current weekend when
// inside it, otherwise for the next Friday.
func UpcomingSeasonalWindow(now time.Time, loc *time.Location) *Window {
	if w := SeasonalWindow(now, loc); w != nil && now.Before(w.End) {
		return w
	}
	local := now.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	ahead := (int(time.Friday) - int(local.Weekday()) + 7) % 7
	if ahead == 0 {
		ahead = 7
	}
	return seasonalWindowFrom(day.AddDate(0, 0, ahead), loc)
}

func seasonalWindowFrom(friday time.Time, loc *time.Location) *Window {
	return &Window{
		Start: seasonalCandleLighting(friday, loc),
		End:   seasonalHavdalah(friday.AddDate(0, 0, 1), loc),
	}
}

func seasonalCandleLighting(day time.Time, loc *time.Location) time.Time {
	hour, minute := 17, 0
	if isSummer(day.Month()) {
		hour, minute = 18, 30
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
}

func seasonalHavdalah(day time.Time, loc *time.Location) time.Time {
	hour, minute := 18, 30
	switch {
	case isSummer(day.Month()):
		hour, minute = 20, 0
	case day.Month() == time.January:
		hour, minute = 17, 45
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
}

func isSummer(m time.Month) bool {
	return m >= time.May && m <= time.September
}
