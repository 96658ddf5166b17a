// Package views renders comparison results into CSV tables for review in
// spreadsheet tools. Views are presentation only; they hold no state and
// can be regenerated from any ComparisonResult.
package views

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/conceptmap/conceptmap/internal/analysis"
)

// WriteSimilarityMatrix renders a source similarity result as a square
// matrix with sources on both axes and 1.0 on the diagonal.
func WriteSimilarityMatrix(w io.Writer, result *analysis.ComparisonResult) error {
	cw := csv.NewWriter(w)

	header := append([]string{"source"}, result.Sources...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, rowSource := range result.Sources {
		row := []string{rowSource}
		for _, colSource := range result.Sources {
			row = append(row, formatScore(pairSimilarity(result, rowSource, colSource)))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// pairSimilarity looks up the similarity for a source pair in either key
// order; a source against itself is 1.0.
func pairSimilarity(result *analysis.ComparisonResult, a, b string) float64 {
	if a == b {
		return 1.0
	}
	if v, ok := result.Similarity[a+" vs "+b]; ok {
		return v
	}
	return result.Similarity[b+" vs "+a]
}

// WriteLexicalPatterns renders per-source keyword rankings as long-format
// rows: source, rank, keyword, count.
func WriteLexicalPatterns(w io.Writer, result *analysis.ComparisonResult) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"source", "rank", "keyword", "count"}); err != nil {
		return err
	}

	for _, source := range result.Sources {
		stats := result.Lexical[source]
		for rank, keyword := range stats.TopKeywords {
			row := []string{
				source,
				fmt.Sprintf("%d", rank+1),
				keyword,
				fmt.Sprintf("%d", stats.KeywordCounts[keyword]),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCoverage renders per-source coverage statistics, one row per source.
func WriteCoverage(w io.Writer, result *analysis.ComparisonResult) error {
	cw := csv.NewWriter(w)

	header := []string{"source", "documents", "segments", "mean_confidence", "min_confidence", "max_confidence"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, source := range result.Sources {
		stats := result.Coverage[source]
		row := []string{
			source,
			fmt.Sprintf("%d", stats.DocumentCount),
			fmt.Sprintf("%d", stats.SegmentCount),
			formatScore(stats.MeanConfidence),
			formatScore(stats.MinConfidence),
			formatScore(stats.MaxConfidence),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteAll writes every result to its conventional file under outputDir:
// {concept}_similarity.csv, {concept}_lexical.csv, {concept}_coverage.csv.
func WriteAll(outputDir string, results []*analysis.ComparisonResult) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	for _, result := range results {
		var name string
		var render func(io.Writer, *analysis.ComparisonResult) error

		switch result.Metric {
		case analysis.MetricSourceSimilarity:
			name, render = "similarity", WriteSimilarityMatrix
		case analysis.MetricLexicalPatterns:
			name, render = "lexical", WriteLexicalPatterns
		case analysis.MetricCoverage:
			name, render = "coverage", WriteCoverage
		default:
			return fmt.Errorf("unknown metric type %q", result.Metric)
		}

		path := filepath.Join(outputDir, fmt.Sprintf("%s_%s.csv", result.ConceptID, name))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		if err := render(f, result); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}

	return nil
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.4f", v)
}
