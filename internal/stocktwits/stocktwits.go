// Package stocktwits fetches recent posts from StockTwits user streams for
// a watchlist of handles.
package stocktwits

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"marketdigest/internal/digest"
)

const defaultBaseURL = "https://api.stocktwits.com/api/2"

const createdAtLayout = "2006-01-02T15:04:05Z"

// Config holds the watchlist and per-handle post limit.
type Config struct {
	Handles []string
	Limit   int
	BaseURL string // overridden in tests
}

type Source struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config, client *http.Client) *Source {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 20
	}
	return &Source{cfg: cfg, client: client}
}

func (s *Source) Name() string { return "stocktwits" }

func (s *Source) Fetch(ctx context.Context) ([]digest.Record, error) {
	var records []digest.Record
	for _, handle := range s.cfg.Handles {
		handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
		if handle == "" {
			continue
		}
		recs, err := s.fetchHandle(ctx, handle)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}
	return records, nil
}

type streamResponse struct {
	Response struct {
		Status int `json:"status"`
	} `json:"response"`
	Messages []message `json:"messages"`
}

type message struct {
	ID        int    `json:"id"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
	User      struct {
		Username string `json:"username"`
	} `json:"user"`
}

func (s *Source) fetchHandle(ctx context.Context, handle string) ([]digest.Record, error) {
	u := strings.TrimRight(s.cfg.BaseURL, "/") + "/streams/user/" + url.PathEscape(handle) + ".json"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stocktwits %s: %w: %w", handle, digest.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stocktwits %s: %w: unexpected status %d", handle, digest.ErrUnavailable, resp.StatusCode)
	}

	var stream streamResponse
	if err := json.NewDecoder(resp.Body).Decode(&stream); err != nil {
		return nil, fmt.Errorf("stocktwits %s: %w: %w", handle, digest.ErrUnavailable, err)
	}
	if stream.Response.Status != 0 && stream.Response.Status != http.StatusOK {
		return nil, fmt.Errorf("stocktwits %s: %w: api status %d", handle, digest.ErrUnavailable, stream.Response.Status)
	}

	var records []digest.Record
	for i, msg := range stream.Messages {
		if i >= s.cfg.Limit {
			break
		}
		t, err := time.Parse(createdAtLayout, msg.CreatedAt)
		if err != nil {
			continue
		}
		records = append(records, digest.Record{
			Source:  s.Name(),
			Time:    t,
			Subject: "@" + handle,
			Body:    html.UnescapeString(msg.Body),
			URL:     fmt.Sprintf("https://stocktwits.com/%s/message/%d", handle, msg.ID),
		})
	}
	return records, nil
}
