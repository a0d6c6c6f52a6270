// internal/resolver/resolver_test.go
package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/charityrun/runproof/internal/config"
	apperrors "github.com/charityrun/runproof/internal/errors"
	"github.com/charityrun/runproof/internal/utils"
)

func newTestResolver(cfg config.ScrapeConfig) *Resolver {
	return New(cfg, utils.NopDelayer{}, utils.NewLoggerWithLevel(utils.ErrorLevel))
}

func stravaConfig() config.ScrapeConfig {
	return config.ScrapeConfig{
		BaseURL:        "https://www.strava.com",
		ShortLinkHost:  "strava.app.link",
		DetailSuffix:   "overview",
		RequestTimeout: 5 * time.Second,
		RedirectDelay:  time.Second,
	}
}

func TestResolve_DirectLink(t *testing.T) {
	r := newTestResolver(stravaConfig())

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare activity", "https://www.strava.com/activities/12345", "https://www.strava.com/activities/12345/overview"},
		{"no www", "https://strava.com/activities/12345", "https://www.strava.com/activities/12345/overview"},
		{"already canonical", "https://www.strava.com/activities/12345/overview", "https://www.strava.com/activities/12345/overview"},
		{"other suffix", "https://www.strava.com/activities/12345/analysis", "https://www.strava.com/activities/12345/overview"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("Resolve(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestResolve_Idempotent(t *testing.T) {
	r := newTestResolver(stravaConfig())

	once, err := r.Resolve(context.Background(), "https://www.strava.com/activities/999")
	if err != nil {
		t.Fatalf("First resolve failed: %v", err)
	}
	twice, err := r.Resolve(context.Background(), once)
	if err != nil {
		t.Fatalf("Second resolve failed: %v", err)
	}
	if once != twice {
		t.Errorf("Resolve not idempotent: %q != %q", once, twice)
	}
}

func TestResolve_ShortLink(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/abc123", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/activities/999/", http.StatusFound)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("activity page"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	serverURL, _ := url.Parse(server.URL)
	cfg := stravaConfig()
	cfg.ShortLinkHost = serverURL.Host

	r := newTestResolver(cfg)
	got, err := r.Resolve(context.Background(), server.URL+"/abc123")
	if err != nil {
		t.Fatalf("Resolve short link failed: %v", err)
	}
	if got != "https://www.strava.com/activities/999/overview" {
		t.Errorf("Resolve short link = %q", got)
	}
}

func TestResolve_ShortLinkWithoutActivityID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/dead", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/somewhere/else", http.StatusFound)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not an activity"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	serverURL, _ := url.Parse(server.URL)
	cfg := stravaConfig()
	cfg.ShortLinkHost = serverURL.Host

	r := newTestResolver(cfg)
	_, err := r.Resolve(context.Background(), server.URL+"/dead")
	if err == nil {
		t.Fatal("Expected resolution error for redirect without activity id")
	}
	if apperrors.CodeOf(err) != apperrors.CodeResolutionFailed {
		t.Errorf("Expected resolution_failed, got %s", apperrors.CodeOf(err))
	}
}

func TestResolve_RejectsUnknownShapes(t *testing.T) {
	r := newTestResolver(stravaConfig())

	inputs := []string{
		"",
		"not a url",
		"https://example.com/activities/12345",
		"https://www.strava.com/athletes/5",
		"https://strava.app.link/with/extra/segments",
	}

	for _, input := range inputs {
		if r.CanResolve(input) {
			t.Errorf("CanResolve(%q) = true, want false", input)
		}
		if _, err := r.Resolve(context.Background(), input); err == nil {
			t.Errorf("Resolve(%q) should fail", input)
		}
	}
}
