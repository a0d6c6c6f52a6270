// internal/server/handlers_test.go
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charityrun/runproof/internal/assets"
	"github.com/charityrun/runproof/internal/config"
	"github.com/charityrun/runproof/internal/ledger"
	"github.com/charityrun/runproof/internal/monitoring"
	"github.com/charityrun/runproof/internal/reconcile"
	"github.com/charityrun/runproof/internal/resolver"
	"github.com/charityrun/runproof/internal/scraper"
	"github.com/charityrun/runproof/internal/submit"
	"github.com/charityrun/runproof/internal/utils"
	"github.com/charityrun/runproof/pkg/api"
)

var testMetrics = monitoring.NewMetrics("runproof_server_test")

const activityMarkup = `<html><body>
<div class="details-container"><h1>Morning Run</h1></div>
<ul class="inline-stats">
  <li><strong>5.00 km</strong><span class="label">Distance</span></li>
  <li><strong>25:00</strong><span class="label">Moving Time</span></li>
</ul>
</body></html>`

func newTestServer(t *testing.T) (*Server, *ledger.MemoryStore, string) {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/activities/") {
			w.Write([]byte(activityMarkup))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(upstream.Close)

	scrapeCfg := config.ScrapeConfig{
		BaseURL:        upstream.URL,
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

	orchestrator := submit.New(
		resolver.New(scrapeCfg, delayer, logger),
		scraper.NewClient(scrapeCfg, delayer, logger),
		scraper.NewExtractor(logger),
		nil,
		reconcile.New(store, 4, logger),
		proofs,
		testMetrics,
		logger,
	)

	srv := New(
		config.ServerConfig{Address: ":0", MaxUploadBytes: 10 << 20},
		orchestrator,
		proofs,
		monitoring.NewHealthHandler(store, "test", logger),
		testMetrics,
		true,
		logger,
	)
	return srv, store, upstream.URL
}

func submissionForm(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := w.WriteField(key, value); err != nil {
			t.Fatalf("WriteField(%s) failed: %v", key, err)
		}
	}
	part, err := w.CreateFormFile("proof", "proof.jpg")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	io.WriteString(part, "fake image bytes")
	w.Close()
	return &buf, w.FormDataContentType()
}

func decodeResponse(t *testing.T, body io.Reader) api.Response {
	t.Helper()
	var resp api.Response
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

func TestSubmissions_Accepted(t *testing.T) {
	srv, store, upstreamURL := newTestServer(t)

	body, contentType := submissionForm(t, map[string]string{
		"name":         "Test Runner",
		"email":        "runner@example.com",
		"activity_url": upstreamURL + "/activities/101",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec.Body)
	if !resp.Success {
		t.Fatalf("Response = %+v", resp)
	}

	data, _ := json.Marshal(resp.Data)
	var sub api.Submission
	json.Unmarshal(data, &sub)
	if sub.Decision != "accepted" || sub.DistanceKm != 5.0 || sub.Duration != "00:25:00" {
		t.Errorf("Submission = %+v", sub)
	}
	if sub.ProofURL == "" {
		t.Error("Expected a proof URL")
	}

	entries, _ := store.ListEntries(context.Background())
	if len(entries) != 1 {
		t.Errorf("Ledger entries = %d", len(entries))
	}
}

func TestSubmissions_NotRegisteredMapsTo403(t *testing.T) {
	srv, _, upstreamURL := newTestServer(t)

	body, contentType := submissionForm(t, map[string]string{
		"name":         "Stranger",
		"email":        "stranger@example.com",
		"activity_url": upstreamURL + "/activities/102",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("Status = %d", rec.Code)
	}
	resp := decodeResponse(t, rec.Body)
	if resp.Success || resp.Error == nil || resp.Error.Code != "not_registered" {
		t.Errorf("Response = %+v", resp)
	}
}

func TestSubmissions_ValidationMapsTo400WithIssues(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body, contentType := submissionForm(t, map[string]string{
		"email": "bad-address",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Status = %d", rec.Code)
	}
	resp := decodeResponse(t, rec.Body)
	if resp.Error == nil || resp.Error.Code != "validation_failed" {
		t.Fatalf("Response = %+v", resp)
	}
	if len(resp.Error.Issues) == 0 {
		t.Error("Expected issue list")
	}
}

func TestSubmissions_DuplicateMapsTo409(t *testing.T) {
	srv, store, upstreamURL := newTestServer(t)
	store.Register("second@example.com")

	for i, email := range []string{"runner@example.com", "second@example.com"} {
		body, contentType := submissionForm(t, map[string]string{
			"name":         "Runner",
			"email":        email,
			"activity_url": upstreamURL + "/activities/103",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if i == 0 && rec.Code != http.StatusCreated {
			t.Fatalf("First submission status = %d", rec.Code)
		}
		if i == 1 {
			if rec.Code != http.StatusConflict {
				t.Fatalf("Duplicate status = %d", rec.Code)
			}
			resp := decodeResponse(t, rec.Body)
			if resp.Error == nil || resp.Error.Code != "duplicate_activity" {
				t.Errorf("Response = %+v", resp)
			}
		}
	}
}

func TestScrape_DebugEndpoint(t *testing.T) {
	srv, _, upstreamURL := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/scrape?url="+upstreamURL+"/activities/200", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec.Body)
	if !resp.Success {
		t.Fatalf("Response = %+v", resp)
	}
}

func TestScrape_RequiresURL(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scrape", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"healthy"`) {
		t.Errorf("Body = %s", rec.Body.String())
	}
}
