// Package submit orchestrates one submission end to end: validate the
// form, resolve the activity reference, fetch and extract the page,
// normalize units, reconcile against the ledger, store the proof, and
// record the accepted entry.
package submit

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charityrun/runproof/internal/assets"
	apperrors "github.com/charityrun/runproof/internal/errors"
	"github.com/charityrun/runproof/internal/ledger"
	"github.com/charityrun/runproof/internal/monitoring"
	"github.com/charityrun/runproof/internal/pipeline"
	"github.com/charityrun/runproof/internal/reconcile"
	"github.com/charityrun/runproof/internal/resolver"
	"github.com/charityrun/runproof/internal/scraper"
	"github.com/charityrun/runproof/internal/utils"
)

// Renderer is the optional headless re-render fallback.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Request is one submission as received from the form.
type Request struct {
	Name        string
	Email       string
	Phone       string
	ActivityURL string
	Distance    string
	Duration    string
	Credentials scraper.Credentials
	ProofName   string
	Proof       io.Reader
}

// Result is an accepted submission.
type Result struct {
	Decision    reconcile.Decision
	ActivityRef string
	Fields      *scraper.ExtractedFields
	DistanceKm  float64
	Duration    string
	Pace        string
	ProofURL    string
	SubmittedAt time.Time
}

// ScrapeResult is the debug-scrape payload: raw extracted fields plus
// their normalized forms and the cascade diagnostics.
type ScrapeResult struct {
	ActivityRef string
	Fields      *scraper.ExtractedFields
	Diagnostics *scraper.Diagnostics
	DistanceKm  float64
	Duration    string
	Pace        string
}

// Orchestrator wires the pipeline stages together.
type Orchestrator struct {
	resolver   *resolver.Resolver
	client     *scraper.Client
	extractor  *scraper.Extractor
	renderer   Renderer
	reconciler *reconcile.Reconciler
	proofs     *assets.Store
	metrics    *monitoring.Metrics
	logger     utils.Logger
	now        func() time.Time
}

// New creates an orchestrator. renderer may be nil when the headless
// fallback is disabled.
func New(
	res *resolver.Resolver,
	client *scraper.Client,
	extractor *scraper.Extractor,
	renderer Renderer,
	reconciler *reconcile.Reconciler,
	proofs *assets.Store,
	metrics *monitoring.Metrics,
	logger utils.Logger,
) *Orchestrator {
	return &Orchestrator{
		resolver:   res,
		client:     client,
		extractor:  extractor,
		renderer:   renderer,
		reconciler: reconciler,
		proofs:     proofs,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Submit runs the full pipeline for one request.
func (o *Orchestrator) Submit(ctx context.Context, req *Request) (*Result, error) {
	start := o.now()

	if err := o.validate(req); err != nil {
		o.metrics.RecordSubmission("validation_failed", o.now().Sub(start))
		return nil, err
	}

	canonicalRef, err := o.resolver.Resolve(ctx, strings.TrimSpace(req.ActivityURL))
	if err != nil {
		o.metrics.RecordSubmission("resolution_failed", o.now().Sub(start))
		return nil, err
	}

	scraped, err := o.scrape(ctx, canonicalRef, req.Credentials)
	if err != nil {
		o.metrics.RecordSubmission(string(apperrors.CodeOf(err)), o.now().Sub(start))
		return nil, err
	}

	// Scraped values always overwrite whatever the form carried, so a
	// submitter cannot claim a distance their activity does not show.
	distanceKm, duration, issues := o.normalize(scraped.Fields)
	if len(issues) > 0 {
		o.metrics.RecordSubmission("extraction_incomplete", o.now().Sub(start))
		return nil, apperrors.New(apperrors.CodeExtractionIncomplete,
			"could not extract the required activity data").
			WithIssues(issues...).
			WithDiagnostics(scraped.Diagnostics)
	}

	decision, err := o.reconciler.Check(ctx, req.Email, canonicalRef)
	if err != nil {
		o.metrics.RecordSubmission(string(decision), o.now().Sub(start))
		return nil, err
	}

	proofURL, err := o.proofs.Save(req.Email, req.ProofName, req.Proof)
	if err != nil {
		o.metrics.RecordSubmission("proof_failed", o.now().Sub(start))
		return nil, err
	}

	submittedAt := o.now().UTC()
	entry := ledger.Entry{
		Email:       req.Email,
		ActivityRef: canonicalRef,
		DistanceKm:  distanceKm,
		Duration:    duration,
		SubmittedAt: submittedAt,
	}
	if err := o.reconciler.Record(ctx, entry); err != nil {
		o.metrics.RecordLedgerAppend("error")
		o.metrics.RecordSubmission("persistence_failed", o.now().Sub(start))
		return nil, err
	}
	o.metrics.RecordLedgerAppend("ok")
	o.metrics.RecordSubmission(string(reconcile.Accepted), o.now().Sub(start))

	o.logger.WithFields(map[string]interface{}{
		"email":       utils.NormalizeEmail(req.Email),
		"activity":    canonicalRef,
		"distance_km": distanceKm,
		"duration":    duration,
	}).Info("submission accepted")

	return &Result{
		Decision:    reconcile.Accepted,
		ActivityRef: canonicalRef,
		Fields:      scraped.Fields,
		DistanceKm:  distanceKm,
		Duration:    duration,
		Pace:        pipeline.NormalizePace(scraped.Fields.Pace),
		ProofURL:    proofURL,
		SubmittedAt: submittedAt,
	}, nil
}

// Scrape resolves and extracts without touching the ledger. Used by the
// debug endpoint and the CLI scrape command.
func (o *Orchestrator) Scrape(ctx context.Context, rawURL string, creds scraper.Credentials) (*ScrapeResult, error) {
	canonicalRef, err := o.resolver.Resolve(ctx, strings.TrimSpace(rawURL))
	if err != nil {
		return nil, err
	}

	scraped, err := o.scrape(ctx, canonicalRef, creds)
	if err != nil {
		return nil, err
	}

	result := &ScrapeResult{
		ActivityRef: canonicalRef,
		Fields:      scraped.Fields,
		Diagnostics: scraped.Diagnostics,
		Pace:        pipeline.NormalizePace(scraped.Fields.Pace),
	}
	if km, ok := pipeline.NormalizeDistance(scraped.Fields.Distance); ok {
		result.DistanceKm = km
	}
	if dur, ok := pipeline.NormalizeDuration(scraped.Fields.MovingTime); ok {
		result.Duration = dur
	}
	return result, nil
}

type scrapeOutcome struct {
	Fields      *scraper.ExtractedFields
	Diagnostics *scraper.Diagnostics
}

// scrape fetches and extracts the canonical page. When the first pass
// leaves the stats empty it retries once: with the fallback credentials
// if the request carried its own pair, then with the headless renderer
// if one is configured.
func (o *Orchestrator) scrape(ctx context.Context, canonicalRef string, creds scraper.Credentials) (*scrapeOutcome, error) {
	fetchStart := o.now()
	html, authenticated, err := o.client.Fetch(ctx, canonicalRef, creds)
	if err != nil {
		o.metrics.RecordFetch(string(apperrors.CodeOf(err)), o.now().Sub(fetchStart))
		return nil, err
	}
	o.metrics.RecordFetch("ok", o.now().Sub(fetchStart))

	fields, diag := o.extractor.Extract(html, authenticated)
	o.recordExtraction(fields)
	if statsComplete(fields) {
		return &scrapeOutcome{Fields: fields, Diagnostics: diag}, nil
	}

	if !creds.Empty() {
		// The explicit pair may be stale; one more pass with the
		// process-wide fallback, when it differs, can still succeed.
		if fallback, ok := o.client.ResolveCredentials(scraper.Credentials{}); ok && fallback != creds {
			o.logger.Info("stats missing, retrying fetch with fallback credentials")
			if html, authenticated, err = o.client.Fetch(ctx, canonicalRef, fallback); err == nil {
				if retryFields, retryDiag := o.extractor.Extract(html, authenticated); statsComplete(retryFields) {
					o.recordExtraction(retryFields)
					return &scrapeOutcome{Fields: retryFields, Diagnostics: retryDiag}, nil
				}
			}
		}
	}

	if o.renderer != nil {
		o.logger.Info("stats missing, retrying with headless render")
		rendered, err := o.renderer.Render(ctx, canonicalRef)
		if err != nil {
			o.logger.Warnf("headless render failed: %v", err)
		} else if renderFields, renderDiag := o.extractor.Extract(rendered, false); statsComplete(renderFields) {
			o.recordExtraction(renderFields)
			return &scrapeOutcome{Fields: renderFields, Diagnostics: renderDiag}, nil
		}
	}

	return &scrapeOutcome{Fields: fields, Diagnostics: diag}, nil
}

// normalize converts the scraped stats into canonical units and
// collects human-readable issues for whatever is missing.
func (o *Orchestrator) normalize(fields *scraper.ExtractedFields) (float64, string, []string) {
	var issues []string

	distanceKm, ok := pipeline.NormalizeDistance(fields.Distance)
	if !ok {
		issues = append(issues, fmt.Sprintf("distance not found or unparseable (got %q)", fields.Distance))
	}

	duration, ok := pipeline.NormalizeDuration(fields.MovingTime)
	if !ok {
		issues = append(issues, fmt.Sprintf("moving time not found or unparseable (got %q)", fields.MovingTime))
	}

	return distanceKm, duration, issues
}

func (o *Orchestrator) recordExtraction(fields *scraper.ExtractedFields) {
	o.metrics.RecordExtraction("distance", fields.Distance != "")
	o.metrics.RecordExtraction("moving_time", fields.MovingTime != "")
	o.metrics.RecordExtraction("pace", fields.Pace != "")
	o.metrics.RecordExtraction("name", fields.ActivityName != "")
}

func statsComplete(fields *scraper.ExtractedFields) bool {
	return fields.Distance != "" && fields.MovingTime != ""
}

// validate checks the form before any network work.
func (o *Orchestrator) validate(req *Request) error {
	var issues []string

	if strings.TrimSpace(req.Name) == "" {
		issues = append(issues, "name is required")
	}
	if strings.TrimSpace(req.Email) == "" {
		issues = append(issues, "email is required")
	} else if !utils.IsValidEmail(req.Email) {
		issues = append(issues, "email is not a valid address")
	}
	if req.Phone != "" && !utils.IsValidPhone(req.Phone) {
		issues = append(issues, "phone is not a valid number")
	}

	if url := strings.TrimSpace(req.ActivityURL); url == "" {
		issues = append(issues, "activity_url is required")
	} else if !o.resolver.CanResolve(url) {
		issues = append(issues, "activity_url is not a recognized activity link")
	}

	// Client-supplied stats are advisory (the scraped values win), but a
	// malformed claim is still rejected up front.
	if d := strings.TrimSpace(req.Duration); d != "" && !utils.IsCanonicalDuration(d) {
		issues = append(issues, "duration must be in HH:MM:SS form")
	}
	if d := strings.TrimSpace(req.Distance); d != "" {
		if v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.ToLower(d), "km")), 64); err != nil || v <= 0 {
			issues = append(issues, "distance must be a positive number of kilometers")
		}
	}

	if req.Proof == nil || req.ProofName == "" {
		issues = append(issues, "proof file is required")
	}

	if len(issues) > 0 {
		return apperrors.New(apperrors.CodeValidationFailed, "submission failed validation").
			WithIssues(issues...)
	}
	return nil
}
