// Package econ fetches the Trading Economics calendar and normalizes its
// entries into digest records.
package econ

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"marketdigest/internal/digest"
)

const (
	defaultBaseURL = "https://api.tradingeconomics.com"
	// Trading Economics serves a limited public data set with this key.
	guestKey = "guest:guest"
)

// Config holds per-run settings for the economic calendar adapter.
type Config struct {
	APIKey     string
	Countries  []string
	Importance []string
	BaseURL    string // overridden in tests
}

type Source struct {
	cfg    Config
	window digest.Window
	client *http.Client
}

func New(cfg Config, window digest.Window, client *http.Client) *Source {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.APIKey == "" {
		cfg.APIKey = guestKey
	}
	return &Source{cfg: cfg, window: window, client: client}
}

func (s *Source) Name() string { return "tradingeconomics" }

func (s *Source) Fetch(ctx context.Context) ([]digest.Record, error) {
	u, err := url.Parse(strings.TrimRight(s.cfg.BaseURL, "/") + "/calendar")
	if err != nil {
		return nil, err
	}

	q := u.Query()
	q.Set("d1", s.window.Start.Format("2006-01-02"))
	q.Set("d2", s.window.End.Format("2006-01-02"))
	q.Set("key", s.cfg.APIKey)
	q.Set("format", "json")
	if len(s.cfg.Countries) > 0 {
		q.Set("country", strings.Join(s.cfg.Countries, ","))
	}
	if len(s.cfg.Importance) > 0 {
		q.Set("importance", strings.Join(s.cfg.Importance, ","))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("economic calendar: %w: %w", digest.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("economic calendar: %w: unexpected status %d", digest.ErrUnavailable, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("economic calendar: %w: %w", digest.ErrUnavailable, err)
	}

	rows := extractRows(raw)

	var records []digest.Record
	for _, row := range rows {
		rec, ok := s.recordFromRow(row)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// recordFromRow maps one API row to a record. Rows without a parseable date
// inside the window are dropped.
func (s *Source) recordFromRow(row map[string]any) (digest.Record, bool) {
	t, dateOnly, err := parseTimeFlexible(pickStr(row, "Date", "date"))
	if err != nil || !s.window.Contains(t) {
		return digest.Record{}, false
	}

	event := pickStr(row, "Event", "event")
	if event == "" {
		return digest.Record{}, false
	}

	country := pickStr(row, "Country", "country")
	category := pickStr(row, "Category", "category")
	subject := country
	if category != "" {
		if subject != "" {
			subject += " — " + category
		} else {
			subject = category
		}
	}

	var details []string
	if v := pickStr(row, "Actual", "actual"); v != "" {
		details = append(details, "Actual: "+v)
	}
	if v := pickStr(row, "Forecast", "forecast"); v != "" {
		details = append(details, "Forecast: "+v)
	}
	if v := pickStr(row, "Previous", "previous"); v != "" {
		details = append(details, "Previous: "+v)
	}
	if v := pickAny(row, "Importance", "importance"); v != "" {
		details = append(details, "Importance: "+v)
	}

	return digest.Record{
		Source:   s.Name(),
		Time:     t,
		DateOnly: dateOnly,
		Subject:  subject,
		Title:    event,
		Details:  details,
	}, true
}

// extractRows tolerates the payload shapes the calendar API has served over
// time: a top-level array, or an object with the rows under "data",
// "calendar", or "Events".
func extractRows(raw []byte) []map[string]any {
	var arr []map[string]any
	if err := json.Unmarshal(raw, &arr); err == nil {
		return arr
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	for _, key := range []string{"data", "calendar", "Events"} {
		items, ok := obj[key].([]any)
		if !ok {
			continue
		}
		rows := make([]map[string]any, 0, len(items))
		for _, it := range items {
			if m, ok := it.(map[string]any); ok {
				rows = append(rows, m)
			}
		}
		return rows
	}
	return nil
}

// pickStr returns the first non-empty string value among keys.
func pickStr(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

// pickAny stringifies the first present value among keys. Importance comes
// back as a number on some plans and a label on others.
func pickAny(m map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch vv := v.(type) {
		case string:
			if s := strings.TrimSpace(vv); s != "" {
				return s
			}
		case float64:
			return fmt.Sprintf("%g", vv)
		default:
			return fmt.Sprint(vv)
		}
	}
	return ""
}

// parseTimeFlexible parses the timestamp layouts the calendar API serves.
// dateOnly reports whether the value carried a bare date, as opposed to an
// event genuinely scheduled at an intraday time.
func parseTimeFlexible(s string) (t time.Time, dateOnly bool, err error) {
	if s == "" {
		return time.Time{}, false, fmt.Errorf("empty time")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), false, nil
		}
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), true, nil
	}
	return time.Time{}, false, fmt.Errorf("unsupported time: %s", s)
}
