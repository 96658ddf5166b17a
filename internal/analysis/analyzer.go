// Package analysis aggregates fingerprints and assignments into
// cross-source comparison metrics: embedding similarity, lexical
// divergence, and coverage. All grouping goes through an injected
// SourceResolver so the document-to-source join lives at one boundary.
package analysis

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/conceptmap/conceptmap/internal/assign"
	"github.com/conceptmap/conceptmap/internal/embedding"
	"github.com/conceptmap/conceptmap/internal/represent"
)

// ErrInsufficientData marks a metric whose minimum input requirement was
// not met (e.g. fewer than two sources with embeddings). It is a
// "no result" signal, not a failure; callers check with errors.Is.
var ErrInsufficientData = errors.New("insufficient data for comparison")

// topKeywordCount is how many keywords each source reports in lexical
// pattern results.
const topKeywordCount = 10

// SourceResolver maps a document id to its source id. A false return
// means the document is unknown (stale reference); the affected item is
// excluded from the metric, never a failure.
type SourceResolver interface {
	ResolveSource(documentID string) (string, bool)
}

// MapResolver resolves sources from an in-memory document→source map.
type MapResolver map[string]string

// ResolveSource implements SourceResolver.
func (m MapResolver) ResolveSource(documentID string) (string, bool) {
	source, ok := m[documentID]
	return source, ok
}

// Analyzer computes comparison metrics grouped by source.
type Analyzer struct {
	resolver SourceResolver
	logger   *slog.Logger
}

// NewAnalyzer creates an analyzer over the given source resolver.
func NewAnalyzer(resolver SourceResolver, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{resolver: resolver, logger: logger}
}

// SourceSimilarity compares how similarly sources represent a concept by
// averaging each source's embeddings and taking pairwise cosine
// similarity. Requires at least two sources with one embedding each;
// otherwise returns ErrInsufficientData. Pairwise values stay in [-1, 1]
// unclamped.
func (a *Analyzer) SourceSimilarity(reps []represent.Representation, conceptID string) (*ComparisonResult, error) {
	bySource := make(map[string][][]float32)
	var sources []string

	for _, rep := range reps {
		if rep.ConceptID != conceptID || rep.Embedding == nil {
			continue
		}
		source, ok := a.resolver.ResolveSource(rep.DocumentID)
		if !ok {
			a.logger.Debug("document has no source, excluding from similarity", "document", rep.DocumentID)
			continue
		}
		if _, seen := bySource[source]; !seen {
			sources = append(sources, source)
		}
		bySource[source] = append(bySource[source], rep.Embedding)
	}

	if len(sources) < 2 {
		return nil, fmt.Errorf("%w: source similarity needs >=2 sources with embeddings, have %d",
			ErrInsufficientData, len(sources))
	}

	averages := make(map[string][]float32, len(sources))
	counts := make(map[string]int, len(sources))
	for _, source := range sources {
		averages[source] = meanEmbedding(bySource[source])
		counts[source] = len(bySource[source])
	}

	similarity := make(map[string]float64)
	for i, s1 := range sources {
		for _, s2 := range sources[i+1:] {
			key := fmt.Sprintf("%s vs %s", s1, s2)
			similarity[key] = embedding.Cosine(averages[s1], averages[s2])
		}
	}

	return &ComparisonResult{
		ConceptID:  conceptID,
		Sources:    sources,
		Metric:     MetricSourceSimilarity,
		Similarity: similarity,
		Metadata: ResultMetadata{
			NumSources:          len(sources),
			EmbeddingsPerSource: counts,
		},
	}, nil
}

// LexicalPatterns aggregates keyword counts per source and reports each
// source's top keywords. Tied counts keep the order keywords were first
// encountered, so ranking is deterministic.
func (a *Analyzer) LexicalPatterns(reps []represent.Representation, conceptID string) (*ComparisonResult, error) {
	counts := make(map[string]map[string]int)
	order := make(map[string][]string)
	var sources []string

	for _, rep := range reps {
		if rep.ConceptID != conceptID || len(rep.Keywords) == 0 {
			continue
		}
		source, ok := a.resolver.ResolveSource(rep.DocumentID)
		if !ok {
			a.logger.Debug("document has no source, excluding from lexical patterns", "document", rep.DocumentID)
			continue
		}
		if _, seen := counts[source]; !seen {
			sources = append(sources, source)
			counts[source] = make(map[string]int)
		}
		for _, kw := range rep.Keywords {
			if counts[source][kw] == 0 {
				order[source] = append(order[source], kw)
			}
			counts[source][kw]++
		}
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no sources with keywords for concept %s", ErrInsufficientData, conceptID)
	}

	lexical := make(map[string]LexicalStats, len(sources))
	for _, source := range sources {
		top := topKeywords(order[source], counts[source], topKeywordCount)
		topCounts := make(map[string]int, len(top))
		for _, kw := range top {
			topCounts[kw] = counts[source][kw]
		}
		lexical[source] = LexicalStats{
			TopKeywords:   top,
			KeywordCounts: topCounts,
		}
	}

	return &ComparisonResult{
		ConceptID: conceptID,
		Sources:   sources,
		Metric:    MetricLexicalPatterns,
		Lexical:   lexical,
		Metadata:  ResultMetadata{NumSources: len(sources)},
	}, nil
}

// Coverage reports, per source, how many distinct documents and segments
// hold an assignment for the concept, with confidence statistics. Sources
// with zero instances are absent from the result, not reported as zero.
func (a *Analyzer) Coverage(instances []assign.ConceptInstance, conceptID string) (*ComparisonResult, error) {
	type sourceAcc struct {
		documents   map[string]bool
		confidences []float64
	}

	accs := make(map[string]*sourceAcc)
	var sources []string

	for _, inst := range instances {
		if inst.ConceptID != conceptID {
			continue
		}
		source, ok := a.resolver.ResolveSource(inst.DocumentID)
		if !ok {
			a.logger.Debug("document has no source, excluding from coverage", "document", inst.DocumentID)
			continue
		}
		acc, seen := accs[source]
		if !seen {
			acc = &sourceAcc{documents: make(map[string]bool)}
			accs[source] = acc
			sources = append(sources, source)
		}
		acc.documents[inst.DocumentID] = true
		acc.confidences = append(acc.confidences, inst.Confidence)
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no joined instances for concept %s", ErrInsufficientData, conceptID)
	}

	coverage := make(map[string]CoverageStats, len(sources))
	for _, source := range sources {
		acc := accs[source]
		mean, minC, maxC := confidenceStats(acc.confidences)
		coverage[source] = CoverageStats{
			DocumentCount:  len(acc.documents),
			SegmentCount:   len(acc.confidences),
			MeanConfidence: mean,
			MinConfidence:  minC,
			MaxConfidence:  maxC,
		}
	}

	return &ComparisonResult{
		ConceptID: conceptID,
		Sources:   sources,
		Metric:    MetricCoverage,
		Coverage:  coverage,
		Metadata:  ResultMetadata{NumSources: len(sources)},
	}, nil
}

// topKeywords ranks keywords by count descending; the stable sort keeps
// first-encountered order for ties.
func topKeywords(order []string, counts map[string]int, k int) []string {
	ranked := make([]string, len(order))
	copy(ranked, order)

	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i]] > counts[ranked[j]]
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// meanEmbedding averages vectors component-wise. All inputs share the
// model's dimension.
func meanEmbedding(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}

	mean := make([]float32, len(vectors[0]))
	for _, v := range vectors {
		for i := range mean {
			mean[i] += v[i]
		}
	}
	n := float32(len(vectors))
	for i := range mean {
		mean[i] /= n
	}

	return mean
}

func confidenceStats(confidences []float64) (mean, minC, maxC float64) {
	if len(confidences) == 0 {
		return 0, 0, 0
	}
	minC, maxC = confidences[0], confidences[0]
	var sum float64
	for _, c := range confidences {
		sum += c
		if c < minC {
			minC = c
		}
		if c > maxC {
			maxC = c
		}
	}
	return sum / float64(len(confidences)), minC, maxC
}
