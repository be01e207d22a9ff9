package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlackoutChecker_SeasonalFallback(t *testing.T) {
	moscow := LoadLocation("Europe/Moscow")
	checker := NewBlackoutChecker(nil, true)

	at := func(year int, month time.Month, day, hour, minute int) time.Time {
		return time.Date(year, month, day, hour, minute, 0, 0, moscow)
	}

	tests := []struct {
		name     string
		now      time.Time
		expected bool
	}{
		{name: "thursday evening", now: at(2024, 1, 11, 19, 0), expected: false},
		{name: "friday before candle lighting", now: at(2024, 1, 12, 16, 59), expected: false},
		{name: "friday at candle lighting", now: at(2024, 1, 12, 17, 0), expected: true},
		{name: "friday evening", now: at(2024, 1, 12, 19, 0), expected: true},
		{name: "saturday noon", now: at(2024, 1, 13, 12, 0), expected: true},
		{name: "saturday just before havdalah", now: at(2024, 1, 13, 17, 44), expected: true},
		{name: "saturday at havdalah", now: at(2024, 1, 13, 17, 45), expected: false},
		{name: "summer friday before candle lighting", now: at(2024, 7, 12, 18, 0), expected: false},
		{name: "summer friday after candle lighting", now: at(2024, 7, 12, 19, 0), expected: true},
		{name: "summer saturday before havdalah", now: at(2024, 7, 13, 19, 59), expected: true},
		{name: "sunday", now: at(2024, 7, 14, 10, 0), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, checker.InBlackout(context.Background(), moscow, tt.now))
		})
	}
}

func TestBlackoutChecker_Disabled(t *testing.T) {
	moscow := LoadLocation("Europe/Moscow")
	checker := NewBlackoutChecker(nil, false)

	assert.False(t, checker.InBlackout(context.Background(), moscow, time.Date(2024, 1, 12, 19, 0, 0, 0, moscow)))
}

func TestBlackoutChecker_ServiceWindow(t *testing.T) {
	jerusalem := LoadLocation("Asia/Jerusalem")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "json", q.Get("cfg"))
		assert.Equal(t, "2024-01-12", q.Get("start"))
		assert.Equal(t, "2024-01-13", q.Get("end"))
		assert.Equal(t, "on", q.Get("c"))
		assert.Equal(t, "pos", q.Get("geo"))
		assert.Equal(t, "31.7683", q.Get("latitude"))
		assert.Equal(t, "35.2137", q.Get("longitude"))
		assert.Equal(t, "Asia/Jerusalem", q.Get("tzid"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"events":[
			{"title":"Candle lighting: 4:13pm","date":"2024-01-12T16:13:00+02:00","category":"candles"},
			{"title":"Havdalah: 5:28pm","date":"2024-01-13T17:28:00+02:00","category":"havdalah"}
		]}`))
	}))
	defer srv.Close()

	checker := NewBlackoutChecker(NewHebcalClient(srv.URL, time.Second), true)

	before := time.Date(2024, 1, 12, 16, 12, 0, 0, jerusalem)
	during := time.Date(2024, 1, 12, 16, 13, 0, 0, jerusalem)

	assert.False(t, checker.InBlackout(context.Background(), jerusalem, before))
	assert.True(t, checker.InBlackout(context.Background(), jerusalem, during))

	window, err := checker.Info(context.Background(), jerusalem, during)
	require.NoError(t, err)
	require.NotNil(t, window)
	assert.True(t, window.Precise)
	assert.Equal(t, "17:28", window.End.In(jerusalem).Format(ClockLayout))
}

func TestHebcalClient_QueriesWholeWeekend(t *testing.T) {
	moscow := LoadLocation("Europe/Moscow")

	tests := []struct {
		name  string
		now   time.Time
		start string
		end   string
	}{
		{name: "wednesday asks for the coming weekend", now: time.Date(2024, 1, 10, 12, 0, 0, 0, moscow), start: "2024-01-12", end: "2024-01-13"},
		{name: "friday", now: time.Date(2024, 1, 12, 9, 0, 0, 0, moscow), start: "2024-01-12", end: "2024-01-13"},
		{name: "saturday starts on friday", now: time.Date(2024, 1, 13, 12, 0, 0, 0, moscow), start: "2024-01-12", end: "2024-01-13"},
		{name: "sunday moves on", now: time.Date(2024, 1, 14, 12, 0, 0, 0, moscow), start: "2024-01-19", end: "2024-01-20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var start, end string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				start, end = r.URL.Query().Get("start"), r.URL.Query().Get("end")
				_, _ = w.Write([]byte(`{"events":[]}`))
			}))
			defer srv.Close()

			window, err := NewHebcalClient(srv.URL, time.Second).LookupWindow(context.Background(), tt.now, moscow)
			require.NoError(t, err)
			assert.Nil(t, window)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestBlackoutChecker_SaturdayUsesFridayCandles(t *testing.T) {
	jerusalem := LoadLocation("Asia/Jerusalem")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"events":[
			{"title":"Candle lighting: 4:13pm","date":"2024-01-12T16:13:00+02:00","category":"candles"},
			{"title":"Havdalah: 5:28pm","date":"2024-01-13T17:28:00+02:00","category":"havdalah"}
		]}`))
	}))
	defer srv.Close()

	checker := NewBlackoutChecker(NewHebcalClient(srv.URL, time.Second), true)

	assert.True(t, checker.InBlackout(context.Background(), jerusalem, time.Date(2024, 1, 13, 10, 0, 0, 0, jerusalem)))
	assert.False(t, checker.InBlackout(context.Background(), jerusalem, time.Date(2024, 1, 13, 17, 28, 0, 0, jerusalem)))

	// after havdalah the next weekend is shown
	window, err := checker.Info(context.Background(), jerusalem, time.Date(2024, 1, 13, 20, 0, 0, 0, jerusalem))
	require.NoError(t, err)
	require.NotNil(t, window)
	assert.Equal(t, "2024-01-19", window.Start.Format(DateLayout))
}

func TestBlackoutChecker_UnknownZoneSkipsService(t *testing.T) {
	kathmandu, err := time.LoadLocation("Asia/Kathmandu")
	require.NoError(t, err)

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	checker := NewBlackoutChecker(NewHebcalClient(srv.URL, time.Second), true)

	friday := time.Date(2024, 1, 12, 19, 0, 0, 0, kathmandu)
	assert.True(t, checker.InBlackout(context.Background(), kathmandu, friday))
	assert.Equal(t, 0, calls)
}

func TestBlackoutChecker_ServiceFailureFailsOpen(t *testing.T) {
	moscow := LoadLocation("Europe/Moscow")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	checker := NewBlackoutChecker(NewHebcalClient(srv.URL, time.Second), true)

	// inside the seasonal window, but the lookup error wins
	friday := time.Date(2024, 1, 12, 19, 0, 0, 0, moscow)
	assert.False(t, checker.InBlackout(context.Background(), moscow, friday))

	_, err := checker.Info(context.Background(), moscow, friday)
	assert.Error(t, err)
}

func TestBlackoutChecker_NoPreciseTimesUsesSeason(t *testing.T) {
	moscow := LoadLocation("Europe/Moscow")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"events":[{"title":"Parashat Vayera","date":"2024-01-13"}]}`))
	}))
	defer srv.Close()

	checker := NewBlackoutChecker(NewHebcalClient(srv.URL, time.Second), true)

	assert.True(t, checker.InBlackout(context.Background(), moscow, time.Date(2024, 1, 12, 19, 0, 0, 0, moscow)))
	assert.False(t, checker.InBlackout(context.Background(), moscow, time.Date(2024, 1, 10, 19, 0, 0, 0, moscow)))
}

func TestUpcomingSeasonalWindow(t *testing.T) {
	moscow := LoadLocation("Europe/Moscow")

	wednesday := time.Date(2024, 1, 10, 12, 0, 0, 0, moscow)
	w := UpcomingSeasonalWindow(wednesday, moscow)
	require.NotNil(t, w)
	assert.Equal(t, time.Date(2024, 1, 12, 17, 0, 0, 0, moscow), w.Start)
	assert.Equal(t, time.Date(2024, 1, 13, 17, 45, 0, 0, moscow), w.End)

	saturdayNight := time.Date(2024, 1, 13, 21, 0, 0, 0, moscow)
	w = UpcomingSeasonalWindow(saturdayNight, moscow)
	require.NotNil(t, w)
	assert.Equal(t, time.Date(2024, 1, 19, 17, 0, 0, 0, moscow), w.Start)
}
