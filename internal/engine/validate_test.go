package engine

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeDomain(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"health", "health"},
		{"Health", "health"},
		{"mental health", "mental-health"},
		{"side_projects", "side_projects"},
		{"work.meetings", "work-meetings"},
		{"work/meetings", "work-meetings"},
		{"  spaces  ", "spaces"},
		{"---leading", "leading"},
		{"trailing---", "trailing"},
		{"café", "caf"}, // non-ascii dropped
		{"", ""},
		{"!!!!", ""},
		{"'; DROP TABLE", "drop-table"},
	}

	for _, tt := range tests {
		got := sanitizeDomain(tt.input)
		if got != tt.want {
			t.Errorf("sanitizeDomain(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTruncateClean(t *testing.T) {
	s := "hello world this is a test string"
	result := truncateClean(s, 15)
	if len(result) > 15 {
		t.Errorf("truncateClean result too long: %d", len(result))
	}
	// Should cut at word boundary
	if strings.HasSuffix(result, " ") {
		t.Error("truncated result has trailing space")
	}
	if result != "hello world" {
		t.Errorf("truncateClean = %q, want %q", result, "hello world")
	}
}

func TestTruncateCleanShort(t *testing.T) {
	if got := truncateClean("short", 100); got != "short" {
		t.Errorf("truncateClean = %q", got)
	}
}

func TestNormalizeCandidateCapsContent(t *testing.T) {
	c := Candidate{Content: strings.Repeat("word ", 1000), Domain: "Side Projects"}
	n := c.normalize()
	if len(n.Content) > maxContentChars {
		t.Errorf("content length = %d, want <= %d", len(n.Content), maxContentChars)
	}
	if n.Domain != "side-projects" {
		t.Errorf("domain = %q", n.Domain)
	}
}

func TestTruncateCleanKeepsRunes(t *testing.T) {
	s := strings.Repeat("今日は試験に合格した", 120) // no spaces, 3-byte runes
	got := truncateClean(s, maxContentChars)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated text is not valid UTF-8: tail %q", got[len(got)-4:])
	}
	if len(got) > maxContentChars || len(got) < maxContentChars-3 {
		t.Errorf("len = %d, want within a rune of %d", len(got), maxContentChars)
	}
	if !strings.HasPrefix(s, got) {
		t.Error("truncated text is not a prefix of the input")
	}
}

func TestNormalizeCandidateCapsMultibyteContent(t *testing.T) {
	c := Candidate{Content: strings.Repeat("東京で寿司を食べました", 110), Domain: "food"}
	n := c.normalize()
	if !utf8.ValidString(n.Content) {
		t.Error("normalized content is not valid UTF-8")
	}
	if len(n.Content) > maxContentChars {
		t.Errorf("content length = %d, want <= %d", len(n.Content), maxContentChars)
	}
}
