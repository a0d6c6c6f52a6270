// internal/scraper/client.go
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/charityrun/runproof/internal/config"
	apperrors "github.com/charityrun/runproof/internal/errors"
	"github.com/charityrun/runproof/internal/utils"
)

// Cookie names for the remote session token pair.
const (
	cookieRememberID    = "strava_remember_id"
	cookieRememberToken = "strava_remember_token"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36"

// Client fetches activity pages with a browser-like header set, optional
// session credentials, and rate limiting against the remote site.
type Client struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	baseURL     string
	userAgent   string
	headers     map[string]string
	fallback    Credentials
	settleDelay time.Duration
	delayer     utils.Delayer
	logger      utils.Logger
}

// NewClient creates a fetch client from the scrape configuration.
func NewClient(cfg config.ScrapeConfig, delayer utils.Delayer, logger utils.Logger) *Client {
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:     rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		baseURL:     cfg.BaseURL,
		userAgent:   userAgent,
		headers:     cfg.Headers,
		fallback:    Credentials{RememberID: cfg.Credentials.RememberID, RememberToken: cfg.Credentials.RememberToken},
		settleDelay: cfg.SettleDelay,
		delayer:     delayer,
		logger:      logger,
	}
}

// ResolveCredentials applies the precedence rule: an explicit per-request
// pair wins over the process-wide fallback; absence of both means an
// unauthenticated fetch.
func (c *Client) ResolveCredentials(explicit Credentials) (Credentials, bool) {
	if !explicit.Empty() {
		return explicit, true
	}
	if !c.fallback.Empty() {
		return c.fallback, true
	}
	return Credentials{}, false
}

// Fetch retrieves the document at the canonical reference. It returns the
// raw HTML, whether credentials were attached, and a structured error on
// failure: 403 is classified as auth_required so the caller can suggest
// refreshing credentials, any other non-2xx as a generic fetch failure
// carrying the upstream status.
func (c *Client) Fetch(ctx context.Context, canonicalRef string, explicit Credentials) (string, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", false, apperrors.Wrap(err, apperrors.CodeFetchFailed, "rate limiter interrupted")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, canonicalRef, nil)
	if err != nil {
		return "", false, apperrors.Wrap(err, apperrors.CodeFetchFailed, "failed to build request")
	}

	c.setBrowserHeaders(req)

	creds, authenticated := c.ResolveCredentials(explicit)
	if authenticated {
		c.attachCredentials(req, creds)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", authenticated, apperrors.Wrap(err, apperrors.CodeFetchFailed, "activity page request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return "", authenticated, apperrors.New(apperrors.CodeAuthRequired,
			"remote rejected the request; session credentials are missing or expired").
			WithUpstreamStatus(resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", authenticated, apperrors.Newf(apperrors.CodeFetchFailed,
			"activity page returned HTTP %d", resp.StatusCode).
			WithUpstreamStatus(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", authenticated, apperrors.Wrap(err, apperrors.CodeFetchFailed, "failed to read activity page body")
	}

	// The stats block on the remote page is rendered client-side a beat
	// after the shell arrives. Waiting here before parsing recovers the
	// common case where a fast fetch races the render.
	c.delayer.Pause(ctx, c.settleDelay)

	c.logger.WithFields(map[string]interface{}{
		"url":           canonicalRef,
		"status":        resp.StatusCode,
		"bytes":         len(body),
		"authenticated": authenticated,
	}).Debug("fetched activity page")

	return string(body), authenticated, nil
}

// setBrowserHeaders makes the request look like an ordinary browser
// navigation to reduce remote-side rejection.
func (c *Client) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
}

// attachCredentials adds the session cookie pair plus a same-site referer.
func (c *Client) attachCredentials(req *http.Request, creds Credentials) {
	if creds.RememberID != "" {
		req.AddCookie(&http.Cookie{Name: cookieRememberID, Value: creds.RememberID})
	}
	if creds.RememberToken != "" {
		req.AddCookie(&http.Cookie{Name: cookieRememberToken, Value: creds.RememberToken})
	}
	req.Header.Set("Referer", fmt.Sprintf("%s/dashboard", c.baseURL))
}
