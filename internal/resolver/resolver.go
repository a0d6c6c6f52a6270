// Package resolver normalizes user-supplied activity references into the
// canonical fetchable form <base>/activities/<id>/<detail-suffix>.
// Two input shapes are accepted: a direct activity link with a numeric id
// and an opaque-token short link that must be resolved via its redirect.
package resolver

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/charityrun/runproof/internal/config"
	apperrors "github.com/charityrun/runproof/internal/errors"
	"github.com/charityrun/runproof/internal/utils"
)

var activityIDPattern = regexp.MustCompile(`/activities/([0-9]+)`)

// Resolver turns raw activity references into canonical ones.
type Resolver struct {
	httpClient    *http.Client
	baseURL       string
	detailSuffix  string
	directPattern *regexp.Regexp
	shortPattern  *regexp.Regexp
	redirectDelay time.Duration
	delayer       utils.Delayer
	logger        utils.Logger
}

// New creates a resolver from the scrape configuration.
func New(cfg config.ScrapeConfig, delayer utils.Delayer, logger utils.Logger) *Resolver {
	return &Resolver{
		// Redirects are followed by default; the short-link host bounces
		// through at least one intermediate hop before the activity page.
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		baseURL:      cfg.BaseURL,
		detailSuffix: cfg.DetailSuffix,
		directPattern: regexp.MustCompile(
			`^https?://(?:www\.)?` + regexp.QuoteMeta(hostOf(cfg.BaseURL)) + `/activities/([0-9]+)(?:/.*)?$`),
		shortPattern: regexp.MustCompile(
			`^https?://` + regexp.QuoteMeta(cfg.ShortLinkHost) + `/([A-Za-z0-9]+)/?$`),
		redirectDelay: cfg.RedirectDelay,
		delayer:       delayer,
		logger:        logger,
	}
}

// CanResolve reports whether raw matches either accepted reference shape.
// Used by the validation stage before any network work happens.
func (r *Resolver) CanResolve(raw string) bool {
	return r.directPattern.MatchString(raw) || r.shortPattern.MatchString(raw)
}

// Resolve normalizes raw into the canonical reference. Direct links are
// rewritten locally; short links are fetched with redirect following and
// the final location mined for the numeric activity id.
func (r *Resolver) Resolve(ctx context.Context, raw string) (string, error) {
	if m := r.directPattern.FindStringSubmatch(raw); m != nil {
		return r.canonical(m[1]), nil
	}

	if r.shortPattern.MatchString(raw) {
		return r.resolveShortLink(ctx, raw)
	}

	return "", apperrors.Newf(apperrors.CodeResolutionFailed,
		"activity reference %q matches neither a direct link nor a short link", raw)
}

// resolveShortLink follows the short link's redirect chain and extracts
// the activity id from wherever it lands.
func (r *Resolver) resolveShortLink(ctx context.Context, raw string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeResolutionFailed, "failed to build short-link request")
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeResolutionFailed, "short-link redirect fetch failed")
	}
	resp.Body.Close()

	// The short-link host rate-limits rapid consecutive resolutions and
	// the activity page behind it can lag the redirect. Pause before the
	// caller fetches the resolved page.
	r.delayer.Pause(ctx, r.redirectDelay)

	final := resp.Request.URL
	m := activityIDPattern.FindStringSubmatch(final.Path)
	if m == nil {
		return "", apperrors.Newf(apperrors.CodeResolutionFailed,
			"short link resolved to %q, which contains no activity id", final.String())
	}

	r.logger.WithFields(map[string]interface{}{
		"short_link": raw,
		"resolved":   final.String(),
	}).Debug("resolved short link")

	return r.canonical(m[1]), nil
}

func (r *Resolver) canonical(activityID string) string {
	return fmt.Sprintf("%s/activities/%s/%s", r.baseURL, activityID, r.detailSuffix)
}

// hostOf extracts the host portion of a base URL without requiring a
// full parse; config validation already rejects malformed bases.
func hostOf(baseURL string) string {
	s := baseURL
	for _, prefix := range []string{"https://", "http://", "www."} {
		s = strings.TrimPrefix(s, prefix)
	}
	return s
}
