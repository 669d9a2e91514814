package econ

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketdigest/internal/digest"
)

func testWindow() digest.Window {
	return digest.WindowFrom(time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), 7)
}

func TestFetchArrayPayload(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"Date":"2026-08-31T12:30:00","Country":"United States","Category":"GDP","Event":"GDP Growth Rate QoQ","Actual":"2.1%","Forecast":"1.8%","Previous":"1.6%","Importance":2},
			{"Date":"2026-09-10T00:00:00","Country":"Germany","Category":"Inflation","Event":"CPI YoY"}
		]`))
	}))
	defer srv.Close()

	src := New(Config{BaseURL: srv.URL, Countries: []string{"United States"}}, testWindow(), srv.Client())
	records, err := src.Fetch(context.Background())
	require.NoError(t, err)

	// The second row falls outside the window and is dropped.
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "tradingeconomics", rec.Source)
	assert.Equal(t, "United States — GDP", rec.Subject)
	assert.Equal(t, "GDP Growth Rate QoQ", rec.Title)
	assert.Equal(t, []string{"Actual: 2.1%", "Forecast: 1.8%", "Previous: 1.6%", "Importance: 2"}, rec.Details)
	assert.False(t, rec.DateOnly)

	assert.Equal(t, "2026-08-30", gotQuery["d1"][0])
	assert.Equal(t, "2026-09-06", gotQuery["d2"][0])
	assert.Equal(t, "guest:guest", gotQuery["key"][0])
	assert.Equal(t, "United States", gotQuery["country"][0])
}

func TestFetchObjectPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"Date":"2026-09-01","Country":"Japan","Category":"Trade","Event":"Balance of Trade"}]}`))
	}))
	defer srv.Close()

	src := New(Config{BaseURL: srv.URL}, testWindow(), srv.Client())
	records, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Balance of Trade", records[0].Title)
	assert.True(t, records[0].DateOnly)
	assert.Empty(t, records[0].Details)
}

func TestFetchMidnightEventKeepsTime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"Date":"2026-09-01T00:00:00","Country":"Japan","Category":"Bonds","Event":"10-Year JGB Auction"}]`))
	}))
	defer srv.Close()

	src := New(Config{BaseURL: srv.URL}, testWindow(), srv.Client())
	records, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].DateOnly)
}

func TestFetchWindowFilter(t *testing.T) {
	// All records returned by the adapter fall inside the window even when
	// the provider ignores the d1/d2 parameters.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"Date":"2026-08-29T10:00:00","Country":"UK","Category":"Rates","Event":"Too Early"},
			{"Date":"2026-08-30T10:00:00","Country":"UK","Category":"Rates","Event":"In Window"},
			{"Date":"2026-09-07T10:00:00","Country":"UK","Category":"Rates","Event":"Too Late"}
		]`))
	}))
	defer srv.Close()

	w := testWindow()
	src := New(Config{BaseURL: srv.URL}, w, srv.Client())
	records, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, w.Contains(records[0].Time))
}

func TestFetchEmptyIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	src := New(Config{BaseURL: srv.URL}, testWindow(), srv.Client())
	records, err := src.Fetch(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetchUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	src := New(Config{BaseURL: srv.URL}, testWindow(), srv.Client())
	_, err := src.Fetch(context.Background())
	assert.ErrorIs(t, err, digest.ErrUnavailable)
}

func TestParseTimeFlexible(t *testing.T) {
	for _, in := range []string{"2026-08-30T12:30:00Z", "2026-08-30T12:30:00", "2026-08-30 12:30:00"} {
		got, dateOnly, err := parseTimeFlexible(in)
		require.NoError(t, err, in)
		assert.Equal(t, time.Date(2026, 8, 30, 12, 30, 0, 0, time.UTC), got, in)
		assert.False(t, dateOnly, in)
	}

	got, dateOnly, err := parseTimeFlexible("2026-08-30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), got)
	assert.True(t, dateOnly)

	// A value with an explicit midnight time is not date-only.
	_, dateOnly, err = parseTimeFlexible("2026-08-30T00:00:00")
	require.NoError(t, err)
	assert.False(t, dateOnly)

	_, _, err = parseTimeFlexible("")
	assert.Error(t, err)
	_, _, err = parseTimeFlexible("next tuesday")
	assert.Error(t, err)
}
