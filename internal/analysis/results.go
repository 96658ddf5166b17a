package analysis

// MetricType identifies which comparison a result holds. Closed set so
// consumers can handle every case exhaustively.
type MetricType string

const (
	MetricSourceSimilarity MetricType = "source_similarity"
	MetricLexicalPatterns  MetricType = "lexical_patterns"
	MetricCoverage         MetricType = "coverage"
)

// LexicalStats holds one source's keyword profile: the top keywords by
// count and the counts for those keywords only, not the full distribution.
type LexicalStats struct {
	TopKeywords   []string
	KeywordCounts map[string]int
}

// CoverageStats summarizes one source's assignment footprint for a concept.
type CoverageStats struct {
	DocumentCount  int
	SegmentCount   int
	MeanConfidence float64
	MinConfidence  float64
	MaxConfidence  float64
}

// ResultMetadata carries sample-size context for a result.
type ResultMetadata struct {
	NumSources          int
	EmbeddingsPerSource map[string]int
}

// ComparisonResult is a derived, disposable comparison across sources.
// Exactly one of Similarity, Lexical, or Coverage is populated, matching
// Metric. Results are re-derivable any time from instances,
// representations, and document metadata; never authoritative state.
type ComparisonResult struct {
	ConceptID string
	Sources   []string // unique, encounter order

	Metric     MetricType
	Similarity map[string]float64 // keyed "{sourceA} vs {sourceB}"
	Lexical    map[string]LexicalStats
	Coverage   map[string]CoverageStats

	Metadata ResultMetadata
}
