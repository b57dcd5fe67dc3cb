package indexer

import (
	"regexp"
	"sort"
	"strings"
)

const (
	MaxKeywords      = 20
	MaxSummaryLength = 2000
)

var wordPattern = regexp.MustCompile(`\b[a-zA-Z]{3,}\b`)

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "have": {}, "has": {}, "had": {},
	"will": {}, "would": {}, "could": {}, "should": {}, "may": {}, "might": {}, "can": {},
}

// Keywords ranks the words of text by frequency and returns at most
// MaxKeywords of them. Equal counts keep the order of first appearance.
func Keywords(text string) []string {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)

	counts := make(map[string]int)
	order := make([]string, 0)
	for _, w := range words {
		if _, skip := stopwords[w]; skip {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > MaxKeywords {
		order = order[:MaxKeywords]
	}
	return order
}

// Summarize condenses text to at most MaxSummaryLength characters plus an
// ellipsis. A cut is moved back to the last full stop when that stop lies in
// the final 30% of the window.
func Summarize(text string) string {
	return summarize(text, MaxSummaryLength)
}

func summarize(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}

	truncated := runes[:max]
	if last := lastIndexRune(truncated, '.'); float64(last) > float64(max)*0.7 {
		truncated = truncated[:last+1]
	}
	return string(truncated) + "..."
}

func lastIndexRune(rs []rune, r rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == r {
			return i
		}
	}
	return -1
}
