// Package earnings fetches the Nasdaq earnings calendar, one request per
// day in the window, and normalizes the rows into digest records.
package earnings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"marketdigest/internal/digest"
	"marketdigest/internal/httpx"
)

const defaultBaseURL = "https://api.nasdaq.com"

// Nasdaq rejects requests without browser-like headers.
var defaultHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":  "application/json, text/plain, */*",
	"Referer": "https://www.nasdaq.com/",
}

// Config holds per-run settings for the earnings calendar adapter.
type Config struct {
	Symbols         []string // optional watchlist filter, empty keeps all
	RateLimitPerMin int
	BaseURL         string // overridden in tests
}

type Source struct {
	cfg     Config
	window  digest.Window
	client  *http.Client
	limiter *rate.Limiter
	watch   map[string]bool
}

func New(cfg Config, window digest.Window, client *http.Client) *Source {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	var watch map[string]bool
	if len(cfg.Symbols) > 0 {
		watch = make(map[string]bool, len(cfg.Symbols))
		for _, sym := range cfg.Symbols {
			watch[strings.ToUpper(strings.TrimSpace(sym))] = true
		}
	}
	return &Source{
		cfg:     cfg,
		window:  window,
		client:  client,
		limiter: httpx.NewLimiter(cfg.RateLimitPerMin),
		watch:   watch,
	}
}

func (s *Source) Name() string { return "nasdaq" }

func (s *Source) Fetch(ctx context.Context) ([]digest.Record, error) {
	var records []digest.Record
	for _, day := range s.window.Days() {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		rows, err := s.fetchDay(ctx, day)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			symbol := strings.ToUpper(strings.TrimSpace(row.Symbol))
			if symbol == "" {
				continue
			}
			if s.watch != nil && !s.watch[symbol] {
				continue
			}

			subject := symbol
			if row.Company != "" {
				subject = fmt.Sprintf("%s (%s)", symbol, row.Company)
			}

			var details []string
			if est := firstNonEmpty(row.EpsForecast, row.EpsEstimate); est != "" {
				details = append(details, "Est: "+est)
			}
			if row.EpsActual != "" {
				details = append(details, "Actual: "+row.EpsActual)
			}
			if row.When != "" {
				details = append(details, row.When)
			}

			records = append(records, digest.Record{
				Source:   s.Name(),
				Time:     day,
				DateOnly: true,
				Subject:  subject,
				Details:  details,
			})
		}
	}
	return records, nil
}

type apiResponse struct {
	Data struct {
		Rows     []apiRow `json:"rows"`
		Calendar struct {
			Rows []apiRow `json:"rows"`
		} `json:"calendar"`
	} `json:"data"`
}

type apiRow struct {
	Symbol      string `json:"symbol"`
	Company     string `json:"company"`
	EpsForecast string `json:"epsForecast"`
	EpsEstimate string `json:"epsEstimate"`
	EpsActual   string `json:"epsActual"`
	When        string `json:"when"`
}

func (s *Source) fetchDay(ctx context.Context, day time.Time) ([]apiRow, error) {
	u := strings.TrimRight(s.cfg.BaseURL, "/") + "/api/calendar/earnings?date=" +
		url.QueryEscape(day.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range defaultHeaders {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("earnings calendar: %w: %w", digest.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("earnings calendar: %w: unexpected status %d", digest.ErrUnavailable, resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("earnings calendar: %w: %w", digest.ErrUnavailable, err)
	}

	rows := payload.Data.Rows
	if len(rows) == 0 {
		rows = payload.Data.Calendar.Rows
	}
	return rows, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
