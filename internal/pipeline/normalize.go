// Package pipeline contains the pure normalization step of the submission
// flow: raw scraped strings in, canonical units out. Everything here is
// deterministic, does no I/O, and is total over malformed input.
package pipeline

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MileToKm is the standard statute-mile-to-kilometer factor.
const MileToKm = 1.60934

var (
	distancePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:[.,][0-9]+)?)\s*(km|mi)\s*$`)

	clockFullPattern  = regexp.MustCompile(`^\s*([0-9]{1,2}):([0-9]{1,2}):([0-9]{1,2})\s*$`)
	clockShortPattern = regexp.MustCompile(`^\s*([0-9]{1,2}):([0-9]{1,2})\s*$`)
	verbosePattern    = regexp.MustCompile(`(?i)^\s*(?:([0-9]+)\s*h)?\s*(?:([0-9]+)\s*m)?\s*(?:([0-9]+)\s*s)?\s*$`)

	apostrophePacePattern = regexp.MustCompile(`^\s*([0-9]{1,2})'([0-9]{2})"?\s*$`)
	paceWithUnitPattern   = regexp.MustCompile(`(?i)^\s*([0-9]{1,2}:[0-9]{2})\s*/\s*(?:km|mi)\s*$`)
	spacePattern          = regexp.MustCompile(`\s+`)
)

// NormalizeDistance converts a raw distance string with unit (km or mi,
// case-insensitive) to kilometers rounded to three decimals. The second
// return value reports whether the input matched; unmatched input yields
// (0, false), never a zero distance presented as valid.
func NormalizeDistance(raw string) (float64, bool) {
	m := distancePattern.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return 0, false
	}

	if strings.EqualFold(m[2], "mi") {
		value *= MileToKm
	}
	return math.Round(value*1000) / 1000, true
}

// NormalizeDuration converts a raw duration string into the canonical
// fixed-width HH:MM:SS form. Accepted inputs:
//
//	HH:MM:SS  re-padded to two digits per field
//	MM:SS     promoted to 00:MM:SS
//	XhYmZs    any subset of the three units, summed
//
// Anything else yields ("", false). Already-canonical input maps to itself.
func NormalizeDuration(raw string) (string, bool) {
	if m := clockFullPattern.FindStringSubmatch(raw); m != nil {
		h, _ := strconv.Atoi(m[1])
		mi, _ := strconv.Atoi(m[2])
		s, _ := strconv.Atoi(m[3])
		return formatDuration(h*3600 + mi*60 + s), true
	}

	if m := clockShortPattern.FindStringSubmatch(raw); m != nil {
		mi, _ := strconv.Atoi(m[1])
		s, _ := strconv.Atoi(m[2])
		return formatDuration(mi*60 + s), true
	}

	if strings.TrimSpace(raw) != "" {
		if m := verbosePattern.FindStringSubmatch(raw); m != nil && (m[1] != "" || m[2] != "" || m[3] != "") {
			h := atoiOrZero(m[1])
			mi := atoiOrZero(m[2])
			s := atoiOrZero(m[3])
			return formatDuration(h*3600 + mi*60 + s), true
		}
	}

	return "", false
}

// NormalizePace converts the apostrophe-quote pace notation (5'32")
// produced by some markup variants into the M:SS form used everywhere
// else, and drops a trailing /km or /mi unit. Anything else is returned
// as-is so the caller keeps whatever the page said.
func NormalizePace(raw string) string {
	if m := apostrophePacePattern.FindStringSubmatch(raw); m != nil {
		return m[1] + ":" + m[2]
	}
	if m := paceWithUnitPattern.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return strings.TrimSpace(raw)
}

// CleanText brings scraped text fragments to a canonical Unicode form and
// collapses the whitespace runs left behind by markup indentation.
func CleanText(raw string) string {
	return spacePattern.ReplaceAllString(strings.TrimSpace(norm.NFC.String(raw)), " ")
}

func formatDuration(totalSeconds int) string {
	h := totalSeconds / 3600
	m := (totalSeconds % 3600) / 60
	s := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func atoiOrZero(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
