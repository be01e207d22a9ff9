package calendar

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	DefaultHebcalURL     = "https://www.hebcal.com/api/v1/events"
	DefaultHebcalTimeout = 5 * time.Second

	candleLightingTitle = "Candle lighting"
	havdalahTitle       = "Havdalah"
)

// Window is a half-open observance interval [Start, End).
type Window struct {
	Start   time.Time
	End     time.Time
	Precise bool
}

func (w *Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

type HebcalClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHebcalClient(baseURL string, timeout time.Duration) *HebcalClient {
	if baseURL == "" {
		baseURL = DefaultHebcalURL
	}
	if timeout <= 0 {
		timeout = DefaultHebcalTimeout
	}
	return &HebcalClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type hebcalEvent struct {
	Title    string `json:"title"`
	Date     string `json:"date"`
	Time     string `json:"time,omitempty"`
	Category string `json:"category,omitempty"`
}

type hebcalResponse struct {
	Events []hebcalEvent `json:"events"`
	Items  []hebcalEvent `json:"items"`
}

// LookupWindow asks the calendar service for candle lighting and havdalah of
// the weekend that contains now, or the next one. A nil window with a nil
// error means no precise times are available: the zone has no known position
// or the service answered without them.
func (c *HebcalClient) LookupWindow(ctx context.Context, now time.Time, loc *time.Location) (*Window, error) {
	pos, ok := zonePositions[loc.String()]
	if !ok {
		return nil, nil
	}

	friday := weekendFriday(now, loc)

	params := url.Values{}
	params.Set("cfg", "json")
	params.Set("start", friday.Format(DateLayout))
	params.Set("end", friday.AddDate(0, 0, 1).Format(DateLayout))
	params.Set("c", "on")
	params.Set("geo", "pos")
	params.Set("latitude", strconv.FormatFloat(pos.latitude, 'f', 4, 64))
	params.Set("longitude", strconv.FormatFloat(pos.longitude, 'f', 4, 64))
	params.Set("tzid", loc.String())
	params.Set("noHolidays", "1")
	params.Set("noModern", "1")
	params.Set("noMinorFast", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar service returned status %d", resp.StatusCode)
	}

	var out hebcalResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode calendar response: %w", err)
	}

	events := out.Events
	if len(events) == 0 {
		events = out.Items
	}

	return windowFromEvents(events, loc), nil
}

type position struct {
	latitude  float64
	longitude float64
}

// zonePositions places each supported zone at its namesake city, which is
// where candle lighting times are computed.
var zonePositions = map[string]position{
	"Europe/Moscow":       {55.7558, 37.6173},
	"Europe/London":       {51.5074, -0.1278},
	"Europe/Paris":        {48.8566, 2.3522},
	"Europe/Berlin":       {52.5200, 13.4050},
	"Europe/Athens":       {37.9838, 23.7275},
	"Europe/Stockholm":    {59.3293, 18.0686},
	"Europe/Istanbul":     {41.0082, 28.9784},
	"Europe/Madrid":       {40.4168, -3.7038},
	"Europe/Rome":         {41.9028, 12.4964},
	"America/New_York":    {40.7128, -74.0060},
	"America/Toronto":     {43.6532, -79.3832},
	"America/Chicago":     {41.8781, -87.6298},
	"America/Denver":      {39.7392, -104.9903},
	"America/Los_Angeles": {34.0522, -118.2437},
	"America/Sao_Paulo":   {-23.5505, -46.6333},
	"America/Mexico_City": {19.4326, -99.1332},
	"Asia/Jerusalem":      {31.7683, 35.2137},
	"Asia/Dubai":          {25.2048, 55.2708},
	"Asia/Kolkata":        {22.5726, 88.3639},
	"Asia/Bangkok":        {13.7563, 100.5018},
	"Asia/Shanghai":       {31.2304, 121.4737},
	"Asia/Hong_Kong":      {22.3193, 114.1694},
	"Asia/Singapore":      {1.3521, 103.8198},
	"Asia/Tokyo":          {35.6762, 139.6503},
	"Asia/Seoul":          {37.5665, 126.9780},
	"Asia/Manila":         {14.5995, 120.9842},
	"Australia/Sydney":    {-33.8688, 151.2093},
	"Australia/Melbourne": {-37.8136, 144.9631},
	"Pacific/Auckland":    {-36.8485, 174.7633},
	"Africa/Cairo":        {30.0444, 31.2357},
	"Africa/Johannesburg": {-26.2041, 28.0473},
	"Africa/Nairobi":      {-1.2921, 36.8219},
}

// weekendFriday is the local Friday of the current weekend on Friday and
// Saturday, otherwise the coming Friday.
func weekendFriday(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	if local.Weekday() == time.Saturday {
		return day.AddDate(0, 0, -1)
	}
	return day.AddDate(0, 0, (int(time.Friday)-int(local.Weekday())+7)%7)
}

func windowFromEvents(events []hebcalEvent, loc *time.Location) *Window {
	var candles, havdalahs []time.Time
	for _, ev := range events {
		t, ok := eventTime(ev, loc)
		if !ok {
			continue
		}
		switch {
		case strings.HasPrefix(ev.Title, candleLightingTitle):
			candles = append(candles, t)
		case strings.HasPrefix(ev.Title, havdalahTitle):
			havdalahs = append(havdalahs, t)
		}
	}
	if len(candles) == 0 {
		return nil
	}

	start := candles[0]
	for _, t := range candles[1:] {
		if t.Before(start) {
			start = t
		}
	}

	// havdalah falls on the evening after candle lighting
	end := seasonalHavdalah(start.In(loc).AddDate(0, 0, 1), loc)
	found := false
	for _, t := range havdalahs {
		if t.After(start) && (!found || t.Before(end)) {
			end, found = t, true
		}
	}

	return &Window{Start: start, End: end, Precise: true}
}

func eventTime(ev hebcalEvent, loc *time.Location) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, ev.Date); err == nil {
		return t.In(loc), true
	}
	if ev.Time == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout+" "+ClockLayout, ev.Date+" "+ev.Time, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
