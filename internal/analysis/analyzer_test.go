package analysis

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/conceptmap/conceptmap/internal/assign"
	"github.com/conceptmap/conceptmap/internal/represent"
)

const conceptID = "income_wealth_inequality"

var resolver = MapResolver{
	"doc-a1": "outlet-a",
	"doc-a2": "outlet-a",
	"doc-b1": "outlet-b",
	"doc-c1": "outlet-c",
}

func rep(docID string, emb []float32, keywords ...string) represent.Representation {
	return represent.Representation{
		InstanceID: "seg-" + docID,
		ConceptID:  conceptID,
		DocumentID: docID,
		Embedding:  emb,
		Keywords:   keywords,
	}
}

func inst(segID, docID string, confidence float64) assign.ConceptInstance {
	return assign.ConceptInstance{
		ConceptID:  conceptID,
		SegmentID:  segID,
		DocumentID: docID,
		Confidence: confidence,
		Method:     assign.MethodKeyword,
	}
}

func TestSourceSimilarityPairwiseKeys(t *testing.T) {
	a := NewAnalyzer(resolver, nil)

	reps := []represent.Representation{
		rep("doc-a1", []float32{1, 0}),
		rep("doc-b1", []float32{0, 1}),
		rep("doc-c1", []float32{1, 0}),
	}

	result, err := a.SourceSimilarity(reps, conceptID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantSources := []string{"outlet-a", "outlet-b", "outlet-c"}
	if !reflect.DeepEqual(result.Sources, wantSources) {
		t.Errorf("sources = %v, want %v", result.Sources, wantSources)
	}

	// Keys follow encounter order: first source vs later sources.
	for _, key := range []string{"outlet-a vs outlet-b", "outlet-a vs outlet-c", "outlet-b vs outlet-c"} {
		if _, ok := result.Similarity[key]; !ok {
			t.Errorf("missing pair key %q; have %v", key, result.Similarity)
		}
	}
	if len(result.Similarity) != 3 {
		t.Errorf("expected 3 pairs, got %d", len(result.Similarity))
	}

	if got := result.Similarity["outlet-a vs outlet-c"]; math.Abs(got-1.0) > 1e-9 {
		t.Errorf("identical means should have similarity 1.0, got %f", got)
	}
	if got := result.Similarity["outlet-a vs outlet-b"]; math.Abs(got) > 1e-9 {
		t.Errorf("orthogonal means should have similarity 0.0, got %f", got)
	}
}

func TestSourceSimilarityMeansPerSource(t *testing.T) {
	a := NewAnalyzer(resolver, nil)

	// outlet-a's mean of (1,0) and (0,1) is (0.5,0.5); cosine with
	// outlet-b's (1,1) direction is 1.0.
	reps := []represent.Representation{
		rep("doc-a1", []float32{1, 0}),
		rep("doc-a2", []float32{0, 1}),
		rep("doc-b1", []float32{2, 2}),
	}

	result, err := a.SourceSimilarity(reps, conceptID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result.Similarity["outlet-a vs outlet-b"]; math.Abs(got-1.0) > 1e-6 {
		t.Errorf("similarity = %f, want 1.0", got)
	}
	if result.Metadata.EmbeddingsPerSource["outlet-a"] != 2 {
		t.Errorf("embeddings per source = %v", result.Metadata.EmbeddingsPerSource)
	}
}

func TestSourceSimilarityInsufficientSources(t *testing.T) {
	a := NewAnalyzer(resolver, nil)

	reps := []represent.Representation{
		rep("doc-a1", []float32{1, 0}),
		rep("doc-a2", []float32{0, 1}),
	}

	_, err := a.SourceSimilarity(reps, conceptID)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

// TestSourceSimilaritySkipsMissingEmbeddings: keyword-only representations
// never count toward the two-source minimum.
func TestSourceSimilaritySkipsMissingEmbeddings(t *testing.T) {
	a := NewAnalyzer(resolver, nil)

	reps := []represent.Representation{
		rep("doc-a1", []float32{1, 0}),
		rep("doc-b1", nil, "wages"),
	}

	_, err := a.SourceSimilarity(reps, conceptID)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

// TestSourceSimilaritySkipsUnresolvedDocuments: a representation whose
// document has no known source is excluded, not an error.
func TestSourceSimilaritySkipsUnresolvedDocuments(t *testing.T) {
	a := NewAnalyzer(resolver, nil)

	reps := []represent.Representation{
		rep("doc-a1", []float32{1, 0}),
		rep("doc-b1", []float32{0, 1}),
		rep("doc-unknown", []float32{1, 1}),
	}

	result, err := a.SourceSimilarity(reps, conceptID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Metadata.NumSources != 2 {
		t.Errorf("num sources = %d, want 2", result.Metadata.NumSources)
	}
}

func TestSourceSimilarityIgnoresOtherConcepts(t *testing.T) {
	a := NewAnalyzer(resolver, nil)

	other := rep("doc-b1", []float32{0, 1})
	other.ConceptID = "something_else"

	reps := []represent.Representation{rep("doc-a1", []float32{1, 0}), other}

	_, err := a.SourceSimilarity(reps, conceptID)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestLexicalPatternsTopKeywords(t *testing.T) {
	a := NewAnalyzer(resolver, nil)

	reps := []represent.Representation{
		rep("doc-a1", nil, "wages", "inequality"),
		rep("doc-a2", nil, "wages", "growth"),
		rep("doc-b1", nil, "taxes"),
	}

	result, err := a.LexicalPatterns(reps, conceptID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := result.Lexical["outlet-a"]
	if stats.KeywordCounts["wages"] != 2 {
		t.Errorf("wages count = %d, want 2", stats.KeywordCounts["wages"])
	}
	if stats.TopKeywords[0] != "wages" {
		t.Errorf("top keyword = %q, want wages", stats.TopKeywords[0])
	}
	// Tied counts keep encounter order.
	want := []string{"wages", "inequality", "growth"}
	if !reflect.DeepEqual(stats.TopKeywords, want) {
		t.Errorf("top keywords = %v, want %v", stats.TopKeywords, want)
	}

	if got := result.Lexical["outlet-b"].TopKeywords; !reflect.DeepEqual(got, []string{"taxes"}) {
		t.Errorf("outlet-b keywords = %v", got)
	}
}

func TestLexicalPatternsTruncatesToTen(t *testing.T) {
	a := NewAnalyzer(resolver, nil)

	keywords := []string{"k01", "k02", "k03", "k04", "k05", "k06", "k07", "k08", "k09", "k10", "k11", "k12"}
	reps := []represent.Representation{rep("doc-a1", nil, keywords...)}

	result, err := a.LexicalPatterns(reps, conceptID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(result.Lexical["outlet-a"].TopKeywords); got != 10 {
		t.Errorf("top keywords length = %d, want 10", got)
	}
}

func TestLexicalPatternsNoData(t *testing.T) {
	a := NewAnalyzer(resolver, nil)

	_, err := a.LexicalPatterns(nil, conceptID)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestCoverageStats(t *testing.T) {
	a := NewAnalyzer(resolver, nil)

	instances := []assign.ConceptInstance{
		inst("seg-1", "doc-a1", 0.8),
		inst("seg-2", "doc-a1", 0.4),
		inst("seg-3", "doc-a2", 0.6),
		inst("seg-4", "doc-b1", 0.3),
	}

	result, err := a.Coverage(instances, conceptID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ca := result.Coverage["outlet-a"]
	if ca.DocumentCount != 2 {
		t.Errorf("document count = %d, want 2", ca.DocumentCount)
	}
	if ca.SegmentCount != 3 {
		t.Errorf("segment count = %d, want 3", ca.SegmentCount)
	}
	if math.Abs(ca.MeanConfidence-0.6) > 1e-9 {
		t.Errorf("mean confidence = %f, want 0.6", ca.MeanConfidence)
	}
	if ca.MinConfidence != 0.4 || ca.MaxConfidence != 0.8 {
		t.Errorf("min/max = %f/%f", ca.MinConfidence, ca.MaxConfidence)
	}

	cb := result.Coverage["outlet-b"]
	if cb.SegmentCount != 1 || cb.DocumentCount != 1 {
		t.Errorf("outlet-b coverage = %+v", cb)
	}
}

// TestCoverageCompleteness: every instance that joins to a source is
// counted exactly once across the per-source segment counts.
func TestCoverageCompleteness(t *testing.T) {
	a := NewAnalyzer(resolver, nil)

	instances := []assign.ConceptInstance{
		inst("seg-1", "doc-a1", 0.5),
		inst("seg-2", "doc-b1", 0.5),
		inst("seg-3", "doc-c1", 0.5),
		inst("seg-4", "doc-unknown", 0.5),
	}

	result, err := a.Coverage(instances, conceptID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	total := 0
	for _, stats := range result.Coverage {
		total += stats.SegmentCount
	}
	if total != 3 {
		t.Errorf("joined segment total = %d, want 3", total)
	}
	if _, ok := result.Coverage["outlet-unknown"]; ok {
		t.Error("unresolved document produced a source entry")
	}
}

func TestCoverageNoInstances(t *testing.T) {
	a := NewAnalyzer(resolver, nil)

	_, err := a.Coverage(nil, conceptID)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestTopKeywordsRanking(t *testing.T) {
	counts := map[string]int{"low": 1, "high": 3, "mid": 2}
	got := topKeywords([]string{"low", "high", "mid"}, counts, 2)
	want := []string{"high", "mid"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("topKeywords = %v, want %v", got, want)
	}
}

func TestMeanEmbedding(t *testing.T) {
	got := meanEmbedding([][]float32{{1, 3}, {3, 1}})
	want := []float32{2, 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("meanEmbedding = %v, want %v", got, want)
	}
	if meanEmbedding(nil) != nil {
		t.Error("empty input should yield nil")
	}
}
