package assign

import (
	"math"
	"regexp"
	"strings"

	"github.com/conceptmap/conceptmap/internal/concept"
)

var nonWord = regexp.MustCompile(`[^\w\s]`)

// normalizeText lowercases and strips punctuation to whitespace so seed
// terms match regardless of surrounding punctuation.
func normalizeText(text string) string {
	return nonWord.ReplaceAllString(strings.ToLower(text), " ")
}

// keywordScore scores how strongly a text's vocabulary matches a concept's
// seed terms. Result is in [0, 1].
//
// Each seed term counts as a phrase match if it appears verbatim in the
// normalized text, or (for multi-word terms) if all its words appear
// anywhere in the text. Words from unmatched terms feed a partial-match
// fallback: two or more present words count as one phrase-equivalent
// match, a single present word as half a match.
//
// The effective match count maps to a base score through a non-linear
// table, then gets a +0.1 boost when matches exceed 10% of the concept's
// seed terms. The boost rewards concepts with few seed terms, where a
// modest absolute match count is proportionally significant.
func keywordScore(text string, c concept.Concept) float64 {
	total := len(c.SeedTerms)
	if total == 0 {
		return 0
	}

	normalized := normalizeText(text)
	words := make(map[string]bool)
	for _, w := range strings.Fields(normalized) {
		words[w] = true
	}

	phraseMatches := 0
	seedWords := make(map[string]bool)

	for _, term := range c.SeedTerms {
		nt := strings.ToLower(term)

		switch {
		case strings.Contains(normalized, nt):
			phraseMatches++
		case strings.Contains(nt, " "):
			// Multi-word term: count as a phrase match if every word is
			// present, order-independent; otherwise keep its words as
			// partial-match candidates.
			termWords := strings.Fields(nt)
			allPresent := true
			for _, tw := range termWords {
				if !words[tw] {
					allPresent = false
				}
				seedWords[tw] = true
			}
			if allPresent {
				phraseMatches++
			}
		default:
			if words[nt] {
				phraseMatches++
			}
			seedWords[nt] = true
		}
	}

	wordMatches := 0
	for w := range seedWords {
		if words[w] {
			wordMatches++
		}
	}

	matches := float64(phraseMatches)
	if phraseMatches == 0 && wordMatches > 0 {
		if wordMatches >= 2 {
			matches = 1
		} else {
			matches = 0.5
		}
	}

	var base float64
	switch {
	case matches == 0:
		return 0
	case matches == 0.5:
		base = 0.15
	case matches == 1:
		base = 0.3
	case matches == 2:
		base = 0.5
	case matches == 3:
		base = 0.65
	default:
		base = 0.8 + math.Min(0.2, (matches-4)*0.05)
	}

	if matches/float64(total) > 0.1 {
		base = math.Min(1.0, base+0.1)
	}

	return math.Min(1.0, base)
}
