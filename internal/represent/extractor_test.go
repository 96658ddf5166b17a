package represent

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/conceptmap/conceptmap/internal/assign"
	"github.com/conceptmap/conceptmap/internal/segment"
)

type stubProvider struct {
	vector []float32
	err    error
}

func (s *stubProvider) Embed(context.Context, string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func testInstance(segID string) assign.ConceptInstance {
	return assign.ConceptInstance{
		ConceptID:  "income_wealth_inequality",
		SegmentID:  segID,
		DocumentID: "doc-1",
		Confidence: 0.75,
		Method:     assign.MethodKeyword,
	}
}

func testSegment(id, text string) segment.TextSegment {
	return segment.TextSegment{ID: id, DocumentID: "doc-1", Text: text}
}

func TestExtractKeywordsFrequencyRank(t *testing.T) {
	text := "wages wages wages inequality inequality growth"
	got := extractKeywords(text, 10, nil)
	want := []string{"wages", "inequality", "growth"}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("keywords = %v, want %v", got, want)
	}
}

// TestExtractKeywordsTieStability: tied counts keep first-occurrence order.
func TestExtractKeywordsTieStability(t *testing.T) {
	text := "zebra apple zebra apple mango mango"
	want := []string{"zebra", "apple", "mango"}

	for i := 0; i < 10; i++ {
		got := extractKeywords(text, 10, nil)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("run %d: keywords = %v, want %v", i, got, want)
		}
	}
}

func TestExtractKeywordsFilters(t *testing.T) {
	text := "the and of it is was were inequality ok no yes wages"
	got := extractKeywords(text, 10, nil)

	for _, kw := range got {
		if len(kw) <= 2 {
			t.Errorf("short token %q not filtered", kw)
		}
		if stopWords[kw] {
			t.Errorf("stop word %q not filtered", kw)
		}
	}
	if !contains(got, "inequality") || !contains(got, "wages") {
		t.Errorf("content words missing: %v", got)
	}
	if contains(got, "yes") {
		// "yes" has length 3, should survive
		t.Log("yes kept, as expected")
	}
}

func TestExtractKeywordsCallerExclusions(t *testing.T) {
	text := "inequality inequality wages growth"
	got := extractKeywords(text, 10, map[string]bool{"inequality": true})

	if contains(got, "inequality") {
		t.Errorf("excluded word survived: %v", got)
	}
}

func TestExtractKeywordsTopK(t *testing.T) {
	text := "alpha beta gamma delta epsilon zeta"
	got := extractKeywords(text, 3, nil)
	if len(got) != 3 {
		t.Errorf("expected 3 keywords, got %d: %v", len(got), got)
	}
}

func TestExtractWithEmbedding(t *testing.T) {
	e := NewExtractor(Options{Provider: &stubProvider{vector: []float32{0.1, 0.2}}})

	seg := testSegment("seg-1", "The wealth gap is widening across all measured regions this year.")
	rep := e.Extract(context.Background(), testInstance("seg-1"), seg)

	if rep.InstanceID != "seg-1" {
		t.Errorf("instance id = %s", rep.InstanceID)
	}
	if rep.ConceptID != "income_wealth_inequality" {
		t.Errorf("concept id = %s", rep.ConceptID)
	}
	if !rep.Metadata.HasEmbedding || rep.Embedding == nil {
		t.Error("expected embedding")
	}
	if rep.Metadata.Confidence != 0.75 {
		t.Errorf("confidence = %f", rep.Metadata.Confidence)
	}
	if rep.Metadata.KeywordCount != len(rep.Keywords) {
		t.Error("keyword count metadata mismatch")
	}
	if rep.Metadata.TextLength != len(seg.Text) {
		t.Error("text length metadata mismatch")
	}
}

// TestExtractEmbeddingFailureNonFatal: embedding errors leave the field
// nil and extraction succeeds.
func TestExtractEmbeddingFailureNonFatal(t *testing.T) {
	e := NewExtractor(Options{Provider: &stubProvider{err: fmt.Errorf("backend down")}})

	rep := e.Extract(context.Background(), testInstance("seg-1"),
		testSegment("seg-1", "The wealth gap is widening."))

	if rep.Embedding != nil {
		t.Error("expected nil embedding on failure")
	}
	if rep.Metadata.HasEmbedding {
		t.Error("HasEmbedding should be false on failure")
	}
	if len(rep.Keywords) == 0 {
		t.Error("keywords should still be extracted")
	}
}

// TestExtractIdempotent: repeated extraction of the same inputs yields
// identical keyword lists and embeddings.
func TestExtractIdempotent(t *testing.T) {
	e := NewExtractor(Options{Provider: &stubProvider{vector: []float32{0.5, 0.5}}})
	inst := testInstance("seg-1")
	seg := testSegment("seg-1", "Income distribution shifted toward the top decile, widening the gap.")

	first := e.Extract(context.Background(), inst, seg)
	second := e.Extract(context.Background(), inst, seg)

	if !reflect.DeepEqual(first.Keywords, second.Keywords) {
		t.Errorf("keyword lists differ: %v vs %v", first.Keywords, second.Keywords)
	}
	if !reflect.DeepEqual(first.Embedding, second.Embedding) {
		t.Error("embeddings differ across runs")
	}
}

// TestExtractAllSkipsMissingSegments: a stale instance reference is
// skipped, not an error.
func TestExtractAllSkipsMissingSegments(t *testing.T) {
	e := NewExtractor(Options{})

	instances := []assign.ConceptInstance{
		testInstance("seg-present"),
		testInstance("seg-missing"),
	}
	segments := []segment.TextSegment{
		testSegment("seg-present", "The wealth gap is widening across regions."),
	}

	reps := e.ExtractAll(context.Background(), instances, segments)
	if len(reps) != 1 {
		t.Fatalf("expected 1 representation, got %d", len(reps))
	}
	if reps[0].InstanceID != "seg-present" {
		t.Errorf("wrong instance extracted: %s", reps[0].InstanceID)
	}
}

func TestFrameResponseParsing(t *testing.T) {
	raw := `{"frame": "Presents inequality as a policy failure."}`

	var parsed frameResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if !strings.Contains(parsed.Frame, "policy failure") {
		t.Errorf("unexpected frame: %q", parsed.Frame)
	}
}

func TestFrameTruncate(t *testing.T) {
	g := &FrameGenerator{maxTokens: 10}
	long := strings.Repeat("x", 100)

	got := g.truncate(long)
	if len(got) != 40 {
		t.Errorf("truncated length = %d, want 40", len(got))
	}
	if g.truncate("short") != "short" {
		t.Error("short text should pass through")
	}
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
