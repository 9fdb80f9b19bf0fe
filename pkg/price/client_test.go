package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFetchToday(t *testing.T) {
	body := `{
		"records": [
			{"HourDK": "2026-09-01T02:00:00", "SpotPriceEUR": 310.0},
			{"HourDK": "2026-09-01T01:00:00", "SpotPriceEUR": 95.5},
			{"HourDK": "2026-09-01T00:00:00", "SpotPriceEUR": 120.0}
		]
	}`

	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(body))
	}))
	defer srv.Close()

	now := time.Date(2026, 9, 1, 13, 0, 0, 0, time.UTC)
	c := NewClient(srv.URL, "DK1")
	schedule, err := c.FetchToday(context.Background(), now)
	assert.NoError(t, err)
	assert.Len(t, schedule, 3)

	assert.Contains(t, gotQuery, "start=2026-09-01")
	assert.Contains(t, gotQuery, "end=2026-09-02")
	assert.Contains(t, gotQuery, "DK1")

	// Records come back newest first; the schedule is ascending.
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), schedule[0].Time)
	assert.Equal(t, time.Date(2026, 9, 1, 2, 0, 0, 0, time.UTC), schedule[2].Time)

	// 120 EUR/MWh is 0.12 EUR/kWh.
	assert.Equal(t, "0.12", schedule[0].Price.String())
	assert.Equal(t, "0.0955", schedule[1].Price.String())
}

func TestFetchTodaySkipsBadTimestamps(t *testing.T) {
	body := `{
		"records": [
			{"HourDK": "not-a-time", "SpotPriceEUR": 100.0},
			{"HourDK": "2026-09-01T00:00:00", "SpotPriceEUR": 100.0}
		]
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "DK1")
	schedule, err := c.FetchToday(context.Background(), time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, err)
	assert.Len(t, schedule, 1)
}

func TestFetchTodayHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "DK1")
	_, err := c.FetchToday(context.Background(), time.Now())
	assert.Error(t, err)
}

func TestFetchTodayBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "DK1")
	_, err := c.FetchToday(context.Background(), time.Now())
	assert.Error(t, err)
}
