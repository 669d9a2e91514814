// Package httpx builds the HTTP plumbing shared by the source adapters:
// a retrying client, a user-agent transport, and request rate limiters.
package httpx

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// NewClient returns an *http.Client that transparently retries transient
// failures (connection errors, 429s, 5xx) up to retryMax times. Requests
// without an explicit User-Agent are sent with userAgent.
func NewClient(timeout time.Duration, retryMax int, userAgent string) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = retryMax
	rc.HTTPClient.Timeout = timeout
	rc.HTTPClient.Transport = &UserAgentTransport{UserAgent: userAgent}
	rc.Logger = nil
	return rc.StandardClient()
}

// UserAgentTransport sets a fixed User-Agent on requests that do not carry
// one already. Reddit rejects requests without a descriptive user agent.
type UserAgentTransport struct {
	UserAgent string
	Base      http.RoundTripper
}

func (t *UserAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.UserAgent)
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// NewLimiter returns a limiter allowing perMinute requests per minute with a
// single-request burst. A non-positive perMinute disables limiting.
func NewLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1)
}
