// internal/submit/orchestrator_test.go
package submit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charityrun/runproof/internal/assets"
	"github.com/charityrun/runproof/internal/config"
	apperrors "github.com/charityrun/runproof/internal/errors"
	"github.com/charityrun/runproof/internal/ledger"
	"github.com/charityrun/runproof/internal/monitoring"
	"github.com/charityrun/runproof/internal/reconcile"
	"github.com/charityrun/runproof/internal/resolver"
	"github.com/charityrun/runproof/internal/scraper"
	"github.com/charityrun/runproof/internal/utils"
)

// Prometheus collectors register once per process.
var testMetrics = monitoring.NewMetrics("runproof_test")

const activityMarkup = `<html><body>
<div class="details-container">
  <h1>Morning Run</h1>
</div>
<ul class="inline-stats">
  <li><strong>3.1 mi</strong><span class="label">Distance</span></li>
  <li><strong>25:04</strong><span class="label">Moving Time</span></li>
  <li><strong>8:05 /mi</strong><span class="label">Pace</span></li>
</ul>
</body></html>`

const shellMarkup = `<html><body><p>loading</p></body></html>`

type testHarness struct {
	orchestrator *Orchestrator
	store        *ledger.MemoryStore
	server       *httptest.Server
}

type staticRenderer struct{ html string }

func (r *staticRenderer) Render(ctx context.Context, url string) (string, error) {
	return r.html, nil
}

func newHarness(t *testing.T, markup string, renderer Renderer) *testHarness {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/activities/") {
			w.Write([]byte(markup))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)

	cfg := config.ScrapeConfig{
		BaseURL:        server.URL,
		ShortLinkHost:  "strava.app.link",
		DetailSuffix:   "overview",
		RequestTimeout: 5 * time.Second,
		RateLimit:      1000,
		RateBurst:      1000,
	}

	logger := utils.NewLoggerWithLevel(utils.ErrorLevel)
	delayer := utils.NopDelayer{}

	store := ledger.NewMemoryStore()
	store.Register("runner@example.com")

	proofs, err := assets.NewStore(config.AssetsConfig{Dir: t.TempDir()}, logger)
	if err != nil {
		t.Fatalf("assets.NewStore failed: %v", err)
	}

	orchestrator := New(
		resolver.New(cfg, delayer, logger),
		scraper.NewClient(cfg, delayer, logger),
		scraper.NewExtractor(logger),
		renderer,
		reconcile.New(store, 4, logger),
		proofs,
		testMetrics,
		logger,
	)

	return &testHarness{orchestrator: orchestrator, store: store, server: server}
}

func validRequest(h *testHarness) *Request {
	return &Request{
		Name:        "Test Runner",
		Email:       "runner@example.com",
		Phone:       "+254700000000",
		ActivityURL: h.server.URL + "/activities/12345",
		ProofName:   "proof.jpg",
		Proof:       strings.NewReader("image bytes"),
	}
}

func TestSubmit_HappyPath(t *testing.T) {
	h := newHarness(t, activityMarkup, nil)

	result, err := h.orchestrator.Submit(context.Background(), validRequest(h))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if result.Decision != reconcile.Accepted {
		t.Errorf("Decision = %s", result.Decision)
	}
	if result.DistanceKm != 4.989 {
		t.Errorf("DistanceKm = %v, want 4.989", result.DistanceKm)
	}
	if result.Duration != "00:25:04" {
		t.Errorf("Duration = %q", result.Duration)
	}
	if result.ProofURL == "" {
		t.Error("Expected a proof URL")
	}

	entries, _ := h.store.ListEntries(context.Background())
	if len(entries) != 1 {
		t.Fatalf("Expected 1 ledger entry, got %d", len(entries))
	}
	if entries[0].ActivityRef != h.server.URL+"/activities/12345/overview" {
		t.Errorf("ActivityRef = %q", entries[0].ActivityRef)
	}
}

func TestSubmit_ScrapedValuesOverwriteForm(t *testing.T) {
	h := newHarness(t, activityMarkup, nil)

	req := validRequest(h)
	req.Distance = "42.2 km"
	req.Duration = "01:00:00"

	result, err := h.orchestrator.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if result.DistanceKm != 4.989 || result.Duration != "00:25:04" {
		t.Errorf("Form values were not overwritten: %v %q", result.DistanceKm, result.Duration)
	}

	entries, _ := h.store.ListEntries(context.Background())
	if entries[0].DistanceKm != 4.989 {
		t.Errorf("Ledger recorded form distance %v", entries[0].DistanceKm)
	}
}

func TestSubmit_ValidationIssuesInOrder(t *testing.T) {
	h := newHarness(t, activityMarkup, nil)

	_, err := h.orchestrator.Submit(context.Background(), &Request{
		Email:       "not-an-email",
		ActivityURL: "https://example.com/whatever",
	})
	if err == nil {
		t.Fatal("Expected validation error")
	}

	structured := apperrors.AsError(err)
	if structured.Code != apperrors.CodeValidationFailed {
		t.Fatalf("Code = %s", structured.Code)
	}
	want := []string{
		"name is required",
		"email is not a valid address",
		"activity_url is not a recognized activity link",
		"proof file is required",
	}
	if len(structured.Issues) != len(want) {
		t.Fatalf("Issues = %v", structured.Issues)
	}
	for i, issue := range want {
		if structured.Issues[i] != issue {
			t.Errorf("Issues[%d] = %q, want %q", i, structured.Issues[i], issue)
		}
	}

	entries, _ := h.store.ListEntries(context.Background())
	if len(entries) != 0 {
		t.Error("Validation failure must not touch the ledger")
	}
}

func TestSubmit_RejectsMalformedClaimedStats(t *testing.T) {
	h := newHarness(t, activityMarkup, nil)

	req := validRequest(h)
	req.Duration = "25:04"
	req.Distance = "-5 km"

	_, err := h.orchestrator.Submit(context.Background(), req)
	structured := apperrors.AsError(err)
	if structured.Code != apperrors.CodeValidationFailed {
		t.Fatalf("Code = %s", structured.Code)
	}
	if len(structured.Issues) != 2 {
		t.Errorf("Issues = %v", structured.Issues)
	}
}

func TestSubmit_ExtractionIncomplete(t *testing.T) {
	h := newHarness(t, shellMarkup, nil)

	_, err := h.orchestrator.Submit(context.Background(), validRequest(h))
	if err == nil {
		t.Fatal("Expected extraction error for shell markup")
	}

	structured := apperrors.AsError(err)
	if structured.Code != apperrors.CodeExtractionIncomplete {
		t.Fatalf("Code = %s", structured.Code)
	}
	if len(structured.Issues) == 0 {
		t.Error("Expected per-field issues")
	}
	if structured.Diagnostics == nil {
		t.Error("Expected extraction diagnostics")
	}
}

func TestSubmit_RendererRecoversShellPage(t *testing.T) {
	h := newHarness(t, shellMarkup, &staticRenderer{html: activityMarkup})

	result, err := h.orchestrator.Submit(context.Background(), validRequest(h))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if result.DistanceKm != 4.989 {
		t.Errorf("DistanceKm = %v", result.DistanceKm)
	}
}

func TestSubmit_DuplicateActivity(t *testing.T) {
	h := newHarness(t, activityMarkup, nil)

	if _, err := h.orchestrator.Submit(context.Background(), validRequest(h)); err != nil {
		t.Fatalf("First submit failed: %v", err)
	}

	h.store.Register("second@example.com")
	req := validRequest(h)
	req.Email = "second@example.com"
	req.Proof = strings.NewReader("other image")

	_, err := h.orchestrator.Submit(context.Background(), req)
	if apperrors.CodeOf(err) != apperrors.CodeDuplicateActivity {
		t.Errorf("Code = %s, want duplicate_activity", apperrors.CodeOf(err))
	}
}

func TestSubmit_NotRegistered(t *testing.T) {
	h := newHarness(t, activityMarkup, nil)

	req := validRequest(h)
	req.Email = "stranger@example.com"

	_, err := h.orchestrator.Submit(context.Background(), req)
	if apperrors.CodeOf(err) != apperrors.CodeNotRegistered {
		t.Errorf("Code = %s, want not_registered", apperrors.CodeOf(err))
	}

	entries, _ := h.store.ListEntries(context.Background())
	if len(entries) != 0 {
		t.Error("Rejected submission must not be recorded")
	}
}

func TestScrape_DebugPath(t *testing.T) {
	h := newHarness(t, activityMarkup, nil)

	result, err := h.orchestrator.Scrape(context.Background(),
		h.server.URL+"/activities/777", scraper.Credentials{})
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}
	if result.Fields.Distance != "3.1 mi" {
		t.Errorf("Distance = %q", result.Fields.Distance)
	}
	if result.DistanceKm != 4.989 {
		t.Errorf("DistanceKm = %v", result.DistanceKm)
	}
	if result.Duration != "00:25:04" {
		t.Errorf("Duration = %q", result.Duration)
	}
	if result.Pace != "8:05" {
		t.Errorf("Pace = %q", result.Pace)
	}
}
