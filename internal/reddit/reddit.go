// Package reddit fetches recent submissions from subreddits and user pages
// through the OAuth API.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"marketdigest/internal/digest"
	"marketdigest/internal/httpx"
)

const (
	defaultBaseURL  = "https://oauth.reddit.com"
	defaultTokenURL = "https://www.reddit.com/api/v1/access_token"
	defaultAgent    = "marketdigest/1.0"
)

// Config holds forum credentials and watchlists for one run.
type Config struct {
	ClientID     string
	ClientSecret string
	UserAgent    string

	Subreddits     []string
	Users          []string
	SubredditLimit int
	UserLimit      int

	BaseURL  string // overridden in tests
	TokenURL string // overridden in tests
}

type Source struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config, client *http.Client) *Source {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultAgent
	}
	if cfg.SubredditLimit <= 0 {
		cfg.SubredditLimit = 10
	}
	if cfg.UserLimit <= 0 {
		cfg.UserLimit = 5
	}
	return &Source{cfg: cfg, client: client}
}

func (s *Source) Name() string { return "reddit" }

func (s *Source) Fetch(ctx context.Context) ([]digest.Record, error) {
	if s.cfg.ClientID == "" || s.cfg.ClientSecret == "" {
		return nil, fmt.Errorf("reddit: %w: missing client credentials", digest.ErrUnavailable)
	}

	hc := s.oauthClient(ctx)
	base := strings.TrimRight(s.cfg.BaseURL, "/")

	var records []digest.Record
	for _, sub := range s.cfg.Subreddits {
		sub = strings.TrimSpace(sub)
		if sub == "" {
			continue
		}
		u := fmt.Sprintf("%s/r/%s/new?limit=%d", base, url.PathEscape(sub), s.cfg.SubredditLimit)
		recs, err := s.fetchListing(ctx, hc, u, "r/"+sub)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}
	for _, user := range s.cfg.Users {
		user = strings.TrimSpace(user)
		if user == "" {
			continue
		}
		u := fmt.Sprintf("%s/user/%s/submitted?limit=%d", base, url.PathEscape(user), s.cfg.UserLimit)
		recs, err := s.fetchListing(ctx, hc, u, "u/"+user)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}
	return records, nil
}

// oauthClient builds an HTTP client that obtains and refreshes an
// application-only token via the client-credentials grant. The token
// request goes through the same base client so it carries the user agent
// Reddit requires.
func (s *Source) oauthClient(ctx context.Context) *http.Client {
	base := &http.Client{
		Transport: &httpx.UserAgentTransport{
			UserAgent: s.cfg.UserAgent,
			Base:      s.client.Transport,
		},
		Timeout: s.client.Timeout,
	}
	cc := &clientcredentials.Config{
		ClientID:     s.cfg.ClientID,
		ClientSecret: s.cfg.ClientSecret,
		TokenURL:     s.cfg.TokenURL,
	}
	return cc.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
}

type listing struct {
	Data struct {
		Children []struct {
			Data submission `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type submission struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Permalink  string  `json:"permalink"`
	CreatedUTC float64 `json:"created_utc"`
	Author     string  `json:"author"`
	Score      int     `json:"score"`
}

func (s *Source) fetchListing(ctx context.Context, hc *http.Client, u, subject string) ([]digest.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reddit %s: %w: %w", subject, digest.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit %s: %w: unexpected status %d", subject, digest.ErrUnavailable, resp.StatusCode)
	}

	var l listing
	if err := json.NewDecoder(resp.Body).Decode(&l); err != nil {
		return nil, fmt.Errorf("reddit %s: %w: %w", subject, digest.ErrUnavailable, err)
	}

	var records []digest.Record
	for _, child := range l.Data.Children {
		post := child.Data

		link := post.URL
		if link == "" && post.Permalink != "" {
			link = "https://www.reddit.com" + post.Permalink
		}

		var details []string
		if post.Author != "" {
			details = append(details, "by u/"+post.Author)
		}
		details = append(details, fmt.Sprintf("score %d", post.Score))

		records = append(records, digest.Record{
			Source:  s.Name(),
			Time:    time.Unix(int64(post.CreatedUTC), 0).UTC(),
			Subject: subject,
			Title:   post.Title,
			URL:     link,
			Details: details,
		})
	}
	return records, nil
}
