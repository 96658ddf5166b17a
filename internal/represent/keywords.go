package represent

import (
	"regexp"
	"sort"
	"strings"
)

// stopWords is the closed list of common function words dropped from
// keyword extraction. Caller-supplied exclusions are unioned in at
// extraction time.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true,
	"of": true, "with": true, "by": true, "from": true, "as": true,
	"is": true, "was": true, "are": true, "were": true, "be": true,
	"been": true, "being": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true,
	"would": true, "could": true, "should": true, "may": true, "might": true,
	"must": true, "can": true, "this": true,
	"that": true, "these": true, "those": true, "it": true, "its": true,
	"they": true, "them": true, "their": true,
	"we": true, "our": true, "you": true, "your": true, "he": true,
	"she": true, "his": true, "her": true, "said": true,
	"says": true, "say": true, "according": true, "also": true,
	"more": true, "most": true, "very": true, "much": true,
}

var nonWord = regexp.MustCompile(`[^\w\s]`)

// normalizeText lowercases and strips punctuation to whitespace, the same
// normalization concept assignment uses.
func normalizeText(text string) string {
	return nonWord.ReplaceAllString(strings.ToLower(text), " ")
}

// extractKeywords returns the top-k tokens of the text by frequency.
// Tokens of length <= 2, stop words, and excluded words are dropped.
// Ties break by first occurrence, so ranking is deterministic.
func extractKeywords(text string, k int, exclude map[string]bool) []string {
	counts := make(map[string]int)
	var order []string

	for _, w := range strings.Fields(normalizeText(text)) {
		if len(w) <= 2 || stopWords[w] || exclude[w] {
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

	if len(order) > k {
		order = order[:k]
	}
	return order
}
