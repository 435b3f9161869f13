package translation

import (
	"math"
	"regexp"
	"strings"
)

const (
	tokenFactor      = 1.35
	costPerMillion   = 0.75
	detectSampleSize = 1000
)

var wordPattern = regexp.MustCompile(`\S+`)

// Metrics are the size and cost figures of a document.
type Metrics struct {
	Words         int     `json:"wordCount"`
	Chars         int     `json:"charCount"`
	Tokens        int     `json:"tokenCount"`
	EstimatedCost float64 `json:"estimatedCost"`
}

// ComputeMetrics counts whitespace separated words over all pages.
func ComputeMetrics(pages []string) Metrics {
	var m Metrics
	for _, p := range pages {
		m.Words += len(wordPattern.FindAllStringIndex(p, -1))
		m.Chars += len([]rune(p))
	}
	m.Tokens = int(math.Round(float64(m.Words) * tokenFactor))
	m.EstimatedCost = float64(m.Tokens) / 1e6 * costPerMillion
	return m
}

// Words splits a page into its words.
func Words(page string) []string {
	return wordPattern.FindAllString(page, -1)
}

// replaceWord swaps the index-th word of page, leaving all whitespace and the
// other words untouched.
func replaceWord(page string, index int, replacement string) (string, string, bool) {
	locs := wordPattern.FindAllStringIndex(page, -1)
	if index < 0 || index >= len(locs) {
		return page, "", false
	}
	start, end := locs[index][0], locs[index][1]
	var b strings.Builder
	b.Grow(len(page) - (end - start) + len(replacement))
	b.WriteString(page[:start])
	b.WriteString(replacement)
	b.WriteString(page[end:])
	return b.String(), page[start:end], true
}

// WordIndexAtChar maps a character offset (as reported by a speech word
// boundary) to the index of the word starting at or after it. Offsets past
// the last word return -1.
func WordIndexAtChar(page string, charIndex int) int {
	if charIndex < 0 {
		charIndex = 0
	}
	for i, loc := range wordPattern.FindAllStringIndex(page, -1) {
		if loc[1] > charIndex {
			return i
		}
	}
	return -1
}

// sample returns the first n runes of s.
func sample(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
