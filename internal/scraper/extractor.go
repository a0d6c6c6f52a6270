// internal/scraper/extractor.go
//
// Field extraction runs as an ordered cascade over one fetched document:
//
//  1. structured selectors (details container + stats list)
//  2. targeted regexes over the concatenated stats text
//  3. broader multi-pattern pass over each stat item, then the whole body
//  4. OpenGraph / Twitter / description meta tags
//  5. embedded JSON-LD structured data
//
// For each field the first non-empty result wins. Stages never fail the
// call; missing data degrades to empty fields plus diagnostics.
package scraper

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/charityrun/runproof/internal/pipeline"
	"github.com/charityrun/runproof/internal/utils"
)

const (
	detailsSelector = "div.details-container, section.details, div.activity-summary"
	statsSelector   = "ul.inline-stats, ul.stats, div.stats"
	ldJSONSelector  = `script[type="application/ld+json"]`
)

var (
	distanceTextPattern = regexp.MustCompile(`(?i)([0-9]+(?:[.,][0-9]+)?)\s*(km|mi)\b`)
	clockFullPattern    = regexp.MustCompile(`\b([0-9]{1,2}:[0-9]{2}:[0-9]{2})\b`)
	clockShortPattern   = regexp.MustCompile(`\b([0-9]{1,2}:[0-9]{2})\b`)
	paceUnitPattern     = regexp.MustCompile(`(?i)\b([0-9]{1,2}:[0-9]{2})\s*/\s*(?:km|mi)\b`)
	paceQuotePattern    = regexp.MustCompile(`\b([0-9]{1,2})'([0-9]{2})"?`)
	hoursMinutesPattern = regexp.MustCompile(`(?i)\b([0-9]+)\s*h(?:r|ours?)?\s*([0-9]+)\s*m(?:in)?\b`)
	minutesSecsPattern  = regexp.MustCompile(`(?i)\b([0-9]+)\s*m(?:in)?\s*([0-9]+)\s*s(?:ec)?\b`)
)

// Extractor parses fetched activity markup into ExtractedFields.
type Extractor struct {
	logger utils.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(logger utils.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract runs the full cascade. It never returns an error: unparseable
// or hostile input yields empty fields and diagnostics describing which
// containers were missing.
func (e *Extractor) Extract(html string, authenticated bool) (*ExtractedFields, *Diagnostics) {
	fields := &ExtractedFields{Authenticated: authenticated}
	diag := &Diagnostics{DocumentBytes: len(html)}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Warnf("document parse failed: %v", err)
		return fields, diag
	}

	e.extractStructured(doc, fields, diag)
	e.extractStatsRegex(doc, fields)
	e.extractRobust(doc, fields)
	e.extractMeta(doc, fields)
	ldParsed := e.extractStructuredData(doc, fields)

	fields.AuthValid = authenticated && ((diag.DetailsFound && diag.StatsFound) || ldParsed)

	return fields, diag
}

// extractStructured is stage 1: the details container and the stats list.
func (e *Extractor) extractStructured(doc *goquery.Document, f *ExtractedFields, d *Diagnostics) {
	details := doc.Find(detailsSelector).First()
	if details.Length() > 0 {
		d.DetailsFound = true

		f.ActivityName = pipeline.CleanText(details.Find("h1").First().Text())
		if desc := details.Find(".activity-description, .description").First(); desc.Length() > 0 {
			f.Description = pipeline.CleanText(desc.Text())
		}
		if loc := details.Find("span.location, .location").First(); loc.Length() > 0 {
			f.Location = pipeline.CleanText(loc.Text())
		}
		if t := details.Find("time").First(); t.Length() > 0 {
			f.Date = pipeline.CleanText(t.Text())
		}
	}

	stats := doc.Find(statsSelector).First()
	if stats.Length() == 0 {
		return
	}
	d.StatsFound = true

	stats.Find("li").Each(func(i int, item *goquery.Selection) {
		label := pipeline.CleanText(item.Find(".label, span.label").First().Text())
		value := pipeline.CleanText(strings.Replace(item.Text(), item.Find(".label, span.label").First().Text(), "", 1))
		if value == "" {
			return
		}

		switch {
		case containsFold(label, "distance"):
			setIfEmpty(&f.Distance, value)
		case containsFold(label, "moving"), containsFold(label, "time"), containsFold(label, "duration"):
			setIfEmpty(&f.MovingTime, value)
		case containsFold(label, "pace"):
			setIfEmpty(&f.Pace, value)
		default:
			if d.UnmatchedStats == nil {
				d.UnmatchedStats = map[string]string{}
			}
			key := label
			if key == "" {
				key = "stat_" + strconv.Itoa(i)
			}
			d.UnmatchedStats[key] = value
		}
	})
}

// extractStatsRegex is stage 2: targeted patterns over the concatenated
// stats-list text, for markup variants that drop the label spans.
func (e *Extractor) extractStatsRegex(doc *goquery.Document, f *ExtractedFields) {
	if f.Distance != "" && f.MovingTime != "" && f.Pace != "" {
		return
	}

	var sb strings.Builder
	doc.Find(statsSelector).Find("li").Each(func(_ int, item *goquery.Selection) {
		sb.WriteString(item.Text())
		sb.WriteString(" ")
	})
	text := pipeline.CleanText(sb.String())
	if text == "" {
		return
	}

	if f.Distance == "" {
		if m := distanceTextPattern.FindStringSubmatch(text); m != nil {
			f.Distance = m[1] + " " + strings.ToLower(m[2])
		}
	}
	if f.Pace == "" {
		if m := paceUnitPattern.FindStringSubmatch(text); m != nil {
			f.Pace = m[1]
		}
	}
	if f.MovingTime == "" {
		if m := clockFullPattern.FindStringSubmatch(text); m != nil {
			f.MovingTime = m[1]
		} else if m := clockShortPattern.FindStringSubmatch(text); m != nil {
			f.MovingTime = m[1]
		}
	}
}

// extractRobust is stage 3: when pace or time are still missing, widen
// the search to each individual stat item and then the whole body, trying
// the notations the remote renders in other locales and layouts.
func (e *Extractor) extractRobust(doc *goquery.Document, f *ExtractedFields) {
	if f.Pace != "" && f.MovingTime != "" {
		return
	}

	var scopes []string
	doc.Find(statsSelector).Find("li").Each(func(_ int, item *goquery.Selection) {
		scopes = append(scopes, pipeline.CleanText(item.Text()))
	})
	scopes = append(scopes, pipeline.CleanText(doc.Find("body").Text()))

	for _, text := range scopes {
		if text == "" {
			continue
		}
		if f.Pace == "" {
			if m := paceQuotePattern.FindStringSubmatch(text); m != nil {
				f.Pace = m[1] + ":" + m[2]
			} else if m := paceUnitPattern.FindStringSubmatch(text); m != nil {
				f.Pace = m[1]
			}
		}
		if f.MovingTime == "" {
			if m := hoursMinutesPattern.FindStringSubmatch(text); m != nil {
				f.MovingTime = m[1] + "h " + m[2] + "m"
			} else if m := minutesSecsPattern.FindStringSubmatch(text); m != nil {
				f.MovingTime = m[1] + "m " + m[2] + "s"
			}
		}
		if f.Pace != "" && f.MovingTime != "" {
			return
		}
	}
}

// extractMeta is stage 4: OpenGraph and Twitter cards, then the plain
// description meta tag, for name and description only.
func (e *Extractor) extractMeta(doc *goquery.Document, f *ExtractedFields) {
	if f.ActivityName == "" {
		f.ActivityName = firstMetaContent(doc,
			`meta[property="og:title"]`,
			`meta[name="twitter:title"]`,
		)
	}
	if f.Description == "" {
		f.Description = firstMetaContent(doc,
			`meta[property="og:description"]`,
			`meta[name="twitter:description"]`,
			`meta[name="description"]`,
		)
	}
}

// ldActivity is the subset of the embedded structured-data block the
// cascade consumes.
type ldActivity struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Location    interface{} `json:"location"`
	Address     interface{} `json:"address"`
	StartDate   string      `json:"startDate"`
}

// extractStructuredData is stage 5: the first JSON-LD block that parses
// cleanly fills any remaining gaps. Blocks that fail to parse are skipped.
func (e *Extractor) extractStructuredData(doc *goquery.Document, f *ExtractedFields) bool {
	parsed := false

	doc.Find(ldJSONSelector).EachWithBreak(func(_ int, block *goquery.Selection) bool {
		var ld ldActivity
		if err := json.Unmarshal([]byte(block.Text()), &ld); err != nil {
			return true // try the next block
		}
		parsed = true

		setIfEmpty(&f.ActivityName, pipeline.CleanText(ld.Name))
		setIfEmpty(&f.Description, pipeline.CleanText(ld.Description))
		setIfEmpty(&f.Date, pipeline.CleanText(ld.StartDate))
		if f.Location == "" {
			if loc := ldLocationString(ld.Location); loc != "" {
				f.Location = loc
			} else {
				f.Location = ldLocationString(ld.Address)
			}
		}
		return false
	})

	return parsed
}

// ldLocationString flattens the string-or-object shapes JSON-LD allows
// for location and address values.
func ldLocationString(v interface{}) string {
	switch loc := v.(type) {
	case string:
		return pipeline.CleanText(loc)
	case map[string]interface{}:
		for _, key := range []string{"name", "addressLocality", "streetAddress"} {
			if s, ok := loc[key].(string); ok && s != "" {
				return pipeline.CleanText(s)
			}
		}
		if nested, ok := loc["address"]; ok {
			return ldLocationString(nested)
		}
	}
	return ""
}

func firstMetaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if cleaned := pipeline.CleanText(content); cleaned != "" {
				return cleaned
			}
		}
	}
	return ""
}

func setIfEmpty(dst *string, value string) {
	if *dst == "" && value != "" {
		*dst = value
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}
