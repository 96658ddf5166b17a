package assign

import (
	"math"
	"testing"

	"github.com/conceptmap/conceptmap/internal/concept"
)

func inequalityConcept(t *testing.T) concept.Concept {
	t.Helper()
	c, err := concept.NewRegistry().Get("income_wealth_inequality")
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// TestKeywordScoreTable pins the documented scoring example: two exact
// phrase matches plus one single-word match give 3 matches, base 0.65,
// plus the ratio boost for 0.75.
func TestKeywordScoreTable(t *testing.T) {
	c := concept.Concept{
		ID:        "test",
		SeedTerms: []string{"income inequality", "wealth gap", "inequality"},
	}
	text := "The income inequality has grown, and the wealth gap is widening."

	got := keywordScore(text, c)
	if math.Abs(got-0.75) > 1e-9 {
		t.Errorf("keywordScore = %f, want 0.75", got)
	}
}

func TestKeywordScoreNoSeedTerms(t *testing.T) {
	c := concept.Concept{ID: "empty"}
	if got := keywordScore("any text at all", c); got != 0 {
		t.Errorf("expected 0 for concept without seed terms, got %f", got)
	}
}

func TestKeywordScoreNoMatches(t *testing.T) {
	c := concept.Concept{
		ID:        "test",
		SeedTerms: []string{"income inequality", "wealth gap"},
	}
	if got := keywordScore("a story about gardening techniques", c); got != 0 {
		t.Errorf("expected 0 for unrelated text, got %f", got)
	}
}

// TestKeywordScoreSingleWordPartial verifies half-credit for a lone seed
// word: base 0.15 plus the ratio boost.
func TestKeywordScoreSingleWordPartial(t *testing.T) {
	c := concept.Concept{
		ID:        "test",
		SeedTerms: []string{"wealth gap"},
	}

	got := keywordScore("the gap widened again", c)
	if math.Abs(got-0.25) > 1e-9 {
		t.Errorf("keywordScore = %f, want 0.25", got)
	}
}

// TestKeywordScoreTwoWordPartial verifies that two candidate words from
// different unmatched terms count as one phrase-equivalent match.
func TestKeywordScoreTwoWordPartial(t *testing.T) {
	c := concept.Concept{
		ID:        "test",
		SeedTerms: []string{"wealth gap", "income divide"},
	}

	// "gap" and "income" appear; neither term matches as a phrase.
	got := keywordScore("the gap in income persists", c)
	want := 0.3 + 0.1 // 1 match base plus ratio boost
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("keywordScore = %f, want %f", got, want)
	}
}

// TestKeywordScoreOrderIndependentPhrase verifies multi-word terms match
// when all words appear, regardless of adjacency.
func TestKeywordScoreOrderIndependentPhrase(t *testing.T) {
	c := concept.Concept{
		ID:        "test",
		SeedTerms: []string{"wage stagnation"},
	}

	got := keywordScore("stagnation of the median wage continued", c)
	want := 0.3 + 0.1
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("keywordScore = %f, want %f", got, want)
	}
}

func TestKeywordScorePunctuationNormalized(t *testing.T) {
	c := concept.Concept{
		ID:        "test",
		SeedTerms: []string{"wealth gap"},
	}

	withPunct := keywordScore("The wealth-gap, they say, is real.", c)
	without := keywordScore("The wealth gap they say is real", c)
	if withPunct != without {
		t.Errorf("punctuation changed score: %f vs %f", withPunct, without)
	}
	if withPunct == 0 {
		t.Error("expected hyphenated phrase to match after normalization")
	}
}

// TestKeywordScoreBounds checks scores stay in [0, 1] even with many
// matching seed terms.
func TestKeywordScoreBounds(t *testing.T) {
	c := inequalityConcept(t)

	texts := []string{
		"",
		"unrelated prose about sailing",
		"income inequality wealth gap wage gap economic disparity gini coefficient " +
			"poverty mobility stratification concentration opportunity inequality " +
			"wealth income wage distribution",
	}

	for _, text := range texts {
		got := keywordScore(text, c)
		if got < 0 || got > 1 {
			t.Errorf("keywordScore(%q) = %f, out of [0,1]", text, got)
		}
	}
}

func TestKeywordScoreDeterministic(t *testing.T) {
	c := inequalityConcept(t)
	text := "Economists debate whether the wealth gap reflects income distribution or policy."

	first := keywordScore(text, c)
	for i := 0; i < 10; i++ {
		if got := keywordScore(text, c); got != first {
			t.Fatalf("run %d: score %f differs from first run %f", i, got, first)
		}
	}
}
