// internal/scraper/extractor_test.go
package scraper

import (
	"testing"

	"github.com/charityrun/runproof/internal/utils"
)

func newTestExtractor() *Extractor {
	return NewExtractor(utils.NewLoggerWithLevel(utils.ErrorLevel))
}

const fullMarkup = `<html><head><title>ignored</title></head><body>
<div class="details-container">
  <h1>Morning Run</h1>
  <span class="location">Nairobi, Kenya</span>
  <time>25 August 2026 at 06:12</time>
  <div class="activity-description">Charity 5k training.</div>
</div>
<ul class="inline-stats">
  <li><strong>5.00 km</strong><span class="label">Distance</span></li>
  <li><strong>00:25:00</strong><span class="label">Moving Time</span></li>
  <li><strong>5:00 /km</strong><span class="label">Pace</span></li>
  <li><strong>312</strong><span class="label">Calories</span></li>
</ul>
</body></html>`

func TestExtract_StructuredSelectors(t *testing.T) {
	fields, diag := newTestExtractor().Extract(fullMarkup, true)

	if !diag.DetailsFound || !diag.StatsFound {
		t.Fatalf("Expected both containers found, got details=%v stats=%v", diag.DetailsFound, diag.StatsFound)
	}
	if fields.ActivityName != "Morning Run" {
		t.Errorf("ActivityName = %q", fields.ActivityName)
	}
	if fields.Location != "Nairobi, Kenya" {
		t.Errorf("Location = %q", fields.Location)
	}
	if fields.Description != "Charity 5k training." {
		t.Errorf("Description = %q", fields.Description)
	}
	if fields.Distance != "5.00 km" {
		t.Errorf("Distance = %q", fields.Distance)
	}
	if fields.MovingTime != "00:25:00" {
		t.Errorf("MovingTime = %q", fields.MovingTime)
	}
	if fields.Pace != "5:00 /km" {
		t.Errorf("Pace = %q", fields.Pace)
	}
	if !fields.AuthValid {
		t.Error("Expected auth_valid with credentials and both containers present")
	}
	if diag.UnmatchedStats["Calories"] != "312" {
		t.Errorf("Expected unmatched calories stat retained, got %v", diag.UnmatchedStats)
	}
}

func TestExtract_RegexFallbackOverStatsText(t *testing.T) {
	// No label spans: the structured stage finds nothing, stage 2 regexes
	// over the concatenated stats text must recover the values.
	html := `<html><body>
<ul class="inline-stats">
  <li>3.1 mi</li>
  <li>25:04</li>
  <li>8:05 /mi</li>
</ul>
</body></html>`

	fields, diag := newTestExtractor().Extract(html, false)

	if !diag.StatsFound {
		t.Fatal("Expected stats container found")
	}
	if fields.Distance != "3.1 mi" {
		t.Errorf("Distance = %q", fields.Distance)
	}
	if fields.MovingTime != "25:04" {
		t.Errorf("MovingTime = %q", fields.MovingTime)
	}
	if fields.Pace != "8:05" {
		t.Errorf("Pace = %q", fields.Pace)
	}
}

func TestExtract_RobustPaceAndDurationNotations(t *testing.T) {
	html := `<html><body>
<ul class="stats">
  <li>10.00 km</li>
</ul>
<p>Finished in 1h 5m at 6'30" pace.</p>
</body></html>`

	fields, _ := newTestExtractor().Extract(html, false)

	if fields.Pace != "6:30" {
		t.Errorf("Pace = %q, want apostrophe notation converted", fields.Pace)
	}
	if fields.MovingTime != "1h 5m" {
		t.Errorf("MovingTime = %q", fields.MovingTime)
	}
}

func TestExtract_MetaTagsOnly(t *testing.T) {
	html := `<html><head>
<meta property="og:title" content="Evening Jog"/>
<meta property="og:description" content="Slow and steady."/>
</head><body><p>login required</p></body></html>`

	fields, diag := newTestExtractor().Extract(html, true)

	if fields.ActivityName != "Evening Jog" {
		t.Errorf("ActivityName = %q", fields.ActivityName)
	}
	if fields.Description != "Slow and steady." {
		t.Errorf("Description = %q", fields.Description)
	}
	if fields.Distance != "" || fields.MovingTime != "" || fields.Pace != "" {
		t.Errorf("Expected stats empty, got %q %q %q", fields.Distance, fields.MovingTime, fields.Pace)
	}
	if fields.AuthValid {
		t.Error("auth_valid must be false without containers or structured data")
	}
	if diag.DetailsFound || diag.StatsFound {
		t.Error("Expected no containers in diagnostics")
	}
}

func TestExtract_StructuredDataFallback(t *testing.T) {
	html := `<html><head>
<script type="application/ld+json">{broken json</script>
<script type="application/ld+json">{"name":"Park Loop","description":"Easy loop","location":{"name":"Central Park"},"startDate":"2026-08-20"}</script>
</head><body></body></html>`

	fields, _ := newTestExtractor().Extract(html, true)

	if fields.ActivityName != "Park Loop" {
		t.Errorf("ActivityName = %q", fields.ActivityName)
	}
	if fields.Location != "Central Park" {
		t.Errorf("Location = %q", fields.Location)
	}
	if fields.Date != "2026-08-20" {
		t.Errorf("Date = %q", fields.Date)
	}
	if !fields.AuthValid {
		t.Error("Expected auth_valid when a structured-data block parsed with credentials sent")
	}
}

func TestExtract_EmptyDocument(t *testing.T) {
	fields, diag := newTestExtractor().Extract("", false)

	if fields.ActivityName != "" || fields.Distance != "" {
		t.Error("Expected all fields empty for empty document")
	}
	if diag.DocumentBytes != 0 {
		t.Errorf("DocumentBytes = %d", diag.DocumentBytes)
	}
	if fields.AuthValid || fields.Authenticated {
		t.Error("Expected auth flags false")
	}
}
