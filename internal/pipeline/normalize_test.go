// internal/pipeline/normalize_test.go
package pipeline

import (
	"testing"
)

func TestNormalizeDistance(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
		ok    bool
	}{
		{"kilometers", "5.00 km", 5.0, true},
		{"kilometers no space", "5km", 5.0, true},
		{"kilometers uppercase", "10.5 KM", 10.5, true},
		{"miles", "3.1 mi", 4.989, true},
		{"miles exact", "1 mi", 1.609, true},
		{"comma decimal", "5,25 km", 5.25, true},
		{"no unit", "5.00", 0, false},
		{"unknown unit", "5.00 m", 0, false},
		{"garbage", "five km-ish", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeDistance(tt.input)
			if ok != tt.ok {
				t.Fatalf("NormalizeDistance(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("NormalizeDistance(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeDuration(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"full clock", "01:25:30", "01:25:30", true},
		{"full clock unpadded", "1:2:3", "01:02:03", true},
		{"short clock promoted", "25:00", "00:25:00", true},
		{"short clock unpadded", "5:07", "00:05:07", true},
		{"verbose hours minutes", "1h 25m", "01:25:00", true},
		{"verbose minutes seconds", "25m 30s", "00:25:30", true},
		{"verbose all units", "1h2m3s", "01:02:03", true},
		{"verbose minutes only", "90m", "01:30:00", true},
		{"garbage", "about half an hour", "", false},
		{"empty", "", "", false},
		{"bare number", "42", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeDuration(tt.input)
			if ok != tt.ok {
				t.Fatalf("NormalizeDuration(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("NormalizeDuration(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeDuration_RoundTripStable(t *testing.T) {
	inputs := []string{"00:25:00", "01:02:03", "12:59:59"}
	for _, in := range inputs {
		once, ok := NormalizeDuration(in)
		if !ok {
			t.Fatalf("NormalizeDuration(%q) unexpectedly failed", in)
		}
		twice, ok := NormalizeDuration(once)
		if !ok || twice != once {
			t.Errorf("NormalizeDuration not stable: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestNormalizePace(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`5'32"`, "5:32"},
		{"5'32", "5:32"},
		{"5:32", "5:32"},
		{" 6:01 ", "6:01"},
		{"8:05 /mi", "8:05"},
		{"5:00/km", "5:00"},
	}

	for _, tt := range tests {
		if got := NormalizePace(tt.input); got != tt.want {
			t.Errorf("NormalizePace(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCleanText(t *testing.T) {
	got := CleanText("  Morning\n\t Run  ")
	if got != "Morning Run" {
		t.Errorf("CleanText collapsed to %q", got)
	}
}
