package views

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conceptmap/conceptmap/internal/analysis"
)

func similarityResult() *analysis.ComparisonResult {
	return &analysis.ComparisonResult{
		ConceptID: "income_wealth_inequality",
		Sources:   []string{"outlet-a", "outlet-b"},
		Metric:    analysis.MetricSourceSimilarity,
		Similarity: map[string]float64{
			"outlet-a vs outlet-b": 0.8123,
		},
	}
}

func TestWriteSimilarityMatrix(t *testing.T) {
	var sb strings.Builder
	if err := WriteSimilarityMatrix(&sb, similarityResult()); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(sb.String())).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}
	if records[0][1] != "outlet-a" || records[0][2] != "outlet-b" {
		t.Errorf("header = %v", records[0])
	}
	// Diagonal is 1.0 and the matrix is symmetric.
	if records[1][1] != "1.0000" || records[2][2] != "1.0000" {
		t.Errorf("diagonal not 1.0: %v / %v", records[1], records[2])
	}
	if records[1][2] != "0.8123" || records[2][1] != "0.8123" {
		t.Errorf("off-diagonal mismatch: %v / %v", records[1], records[2])
	}
}

func TestWriteLexicalPatterns(t *testing.T) {
	result := &analysis.ComparisonResult{
		ConceptID: "income_wealth_inequality",
		Sources:   []string{"outlet-a"},
		Metric:    analysis.MetricLexicalPatterns,
		Lexical: map[string]analysis.LexicalStats{
			"outlet-a": {
				TopKeywords:   []string{"wages", "gap"},
				KeywordCounts: map[string]int{"wages": 5, "gap": 2},
			},
		},
	}

	var sb strings.Builder
	if err := WriteLexicalPatterns(&sb, result); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(sb.String())).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}
	if records[1][0] != "outlet-a" || records[1][1] != "1" || records[1][2] != "wages" || records[1][3] != "5" {
		t.Errorf("first rank row = %v", records[1])
	}
	if records[2][1] != "2" || records[2][2] != "gap" {
		t.Errorf("second rank row = %v", records[2])
	}
}

func TestWriteCoverage(t *testing.T) {
	result := &analysis.ComparisonResult{
		ConceptID: "income_wealth_inequality",
		Sources:   []string{"outlet-a"},
		Metric:    analysis.MetricCoverage,
		Coverage: map[string]analysis.CoverageStats{
			"outlet-a": {
				DocumentCount:  3,
				SegmentCount:   7,
				MeanConfidence: 0.5,
				MinConfidence:  0.2,
				MaxConfidence:  0.9,
			},
		},
	}

	var sb strings.Builder
	if err := WriteCoverage(&sb, result); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(sb.String())).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if records[1][1] != "3" || records[1][2] != "7" {
		t.Errorf("counts row = %v", records[1])
	}
	if records[1][3] != "0.5000" || records[1][4] != "0.2000" || records[1][5] != "0.9000" {
		t.Errorf("confidence columns = %v", records[1])
	}
}

func TestWriteAll(t *testing.T) {
	dir := t.TempDir()

	results := []*analysis.ComparisonResult{
		similarityResult(),
		{
			ConceptID: "income_wealth_inequality",
			Sources:   []string{"outlet-a"},
			Metric:    analysis.MetricCoverage,
			Coverage:  map[string]analysis.CoverageStats{"outlet-a": {DocumentCount: 1, SegmentCount: 1}},
		},
	}

	if err := WriteAll(dir, results); err != nil {
		t.Fatalf("write all failed: %v", err)
	}

	for _, name := range []string{"income_wealth_inequality_similarity.csv", "income_wealth_inequality_coverage.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing output file %s: %v", name, err)
		}
	}
}
