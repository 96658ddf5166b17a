// Package assign scores (segment, concept) pairs and emits concept
// instances for pairs that clear the confidence threshold. Scoring blends
// explicit seed-term matching with embedding similarity when an embedding
// provider is available, and degrades to keyword-only scoring when not.
package assign

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/conceptmap/conceptmap/internal/concept"
	"github.com/conceptmap/conceptmap/internal/embedding"
	"github.com/conceptmap/conceptmap/internal/segment"
)

const (
	// DefaultKeywordWeight and DefaultEmbeddingWeight are the blend
	// coefficients for hybrid scoring. Intended to sum to 1.0, not enforced.
	DefaultKeywordWeight   = 0.4
	DefaultEmbeddingWeight = 0.6

	// DefaultMinConfidence is the assignment threshold.
	DefaultMinConfidence = 0.15

	// previewLength is how many characters of segment text are kept for
	// manual review.
	previewLength = 200

	// maxInclusionCriteria and maxSeedTerms bound how much of a concept
	// definition feeds its embedding text.
	maxInclusionCriteria = 3
	maxSeedTerms         = 10
)

// ExclusionFilter is a fast-reject hook run before scoring. The default
// implementation never rejects: exclusion criteria are a manual-review aid,
// not an automatic filter. Kept pluggable so a real filter can be swapped
// in without touching scoring.
type ExclusionFilter interface {
	Exclude(seg segment.TextSegment, c concept.Concept) bool
}

// passFilter is the default exclusion filter. It always passes.
type passFilter struct{}

func (passFilter) Exclude(segment.TextSegment, concept.Concept) bool { return false }

// Options configures an Assigner. Zero values select the defaults.
type Options struct {
	KeywordWeight   float64
	EmbeddingWeight float64
	MinConfidence   float64
	Provider        embedding.Provider // nil runs the session keyword-only
	Exclusion       ExclusionFilter
	Logger          *slog.Logger
}

// Assigner scores segments against concepts. Safe to reuse across a batch;
// the per-concept embedding cache lives for the assigner's lifetime and is
// invalidated only by constructing a new assigner (e.g. after swapping
// models).
type Assigner struct {
	registry        *concept.Registry
	keywordWeight   float64
	embeddingWeight float64
	minConfidence   float64
	provider        embedding.Provider
	exclusion       ExclusionFilter
	logger          *slog.Logger

	conceptEmbeddings map[string][]float32
}

// NewAssigner creates an assigner over the given concept registry.
func NewAssigner(registry *concept.Registry, opts Options) *Assigner {
	if opts.KeywordWeight == 0 && opts.EmbeddingWeight == 0 {
		opts.KeywordWeight = DefaultKeywordWeight
		opts.EmbeddingWeight = DefaultEmbeddingWeight
	}
	if opts.MinConfidence == 0 {
		opts.MinConfidence = DefaultMinConfidence
	}
	if opts.Exclusion == nil {
		opts.Exclusion = passFilter{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Provider == nil {
		opts.Logger.Warn("no embedding provider, scoring keyword-only for this session")
	}

	return &Assigner{
		registry:          registry,
		keywordWeight:     opts.KeywordWeight,
		embeddingWeight:   opts.EmbeddingWeight,
		minConfidence:     opts.MinConfidence,
		provider:          opts.Provider,
		exclusion:         opts.Exclusion,
		logger:            opts.Logger,
		conceptEmbeddings: make(map[string][]float32),
	}
}

// Assign scores one (segment, concept) pair. Returns nil when the pair
// does not clear the confidence threshold.
func (a *Assigner) Assign(ctx context.Context, seg segment.TextSegment, c concept.Concept) *ConceptInstance {
	if a.exclusion.Exclude(seg, c) {
		return nil
	}

	kwScore := keywordScore(seg.Text, c)

	var combined float64
	method := MethodKeyword
	var embScore *float64

	if a.provider != nil {
		score := a.embeddingScore(ctx, seg.Text, c)
		combined = a.keywordWeight*kwScore + a.embeddingWeight*score
		method = MethodHybrid
		embScore = &score
	} else {
		combined = kwScore
	}

	if combined < a.minConfidence {
		return nil
	}

	return &ConceptInstance{
		ConceptID:  c.ID,
		SegmentID:  seg.ID,
		DocumentID: seg.DocumentID,
		Confidence: combined,
		Method:     method,
		Metadata: InstanceMetadata{
			KeywordScore:   kwScore,
			EmbeddingScore: embScore,
			TextLength:     len(seg.Text),
			TextPreview:    preview(seg.Text),
		},
	}
}

// AssignAll scores the cross product of segments and concepts. Unknown
// concept ids fail the whole batch before any scoring starts. Scoring is
// independent per pair; the only shared state is the per-concept embedding
// cache.
func (a *Assigner) AssignAll(ctx context.Context, segments []segment.TextSegment, conceptIDs []string) ([]ConceptInstance, error) {
	if len(conceptIDs) == 0 {
		return nil, fmt.Errorf("no concepts requested")
	}

	concepts := make([]concept.Concept, 0, len(conceptIDs))
	for _, id := range conceptIDs {
		c, err := a.registry.Get(id)
		if err != nil {
			return nil, err
		}
		concepts = append(concepts, c)
	}

	var instances []ConceptInstance
	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return instances, err
		}
		for _, c := range concepts {
			if inst := a.Assign(ctx, seg, c); inst != nil {
				instances = append(instances, *inst)
			}
		}
	}

	return instances, nil
}

// embeddingScore computes cosine similarity between the segment and the
// concept's cached embedding, clamped to [0, 1]. Negative similarity
// carries no anti-correlation signal here and is treated as 0. A failed
// embedding call scores 0 for this pair only; the batch continues.
func (a *Assigner) embeddingScore(ctx context.Context, text string, c concept.Concept) float64 {
	conceptEmb, err := a.conceptEmbedding(ctx, c)
	if err != nil {
		a.logger.Warn("concept embedding failed, scoring 0 for pair", "concept", c.ID, "error", err)
		return 0
	}

	textEmb, err := a.provider.Embed(ctx, text)
	if err != nil {
		a.logger.Warn("segment embedding failed, scoring 0 for pair", "concept", c.ID, "error", err)
		return 0
	}

	return math.Max(0, embedding.Cosine(textEmb, conceptEmb))
}

// conceptEmbedding returns the cached embedding for a concept, computing
// it on first use from the concept's description, leading inclusion
// criteria, and leading seed terms.
func (a *Assigner) conceptEmbedding(ctx context.Context, c concept.Concept) ([]float32, error) {
	if emb, ok := a.conceptEmbeddings[c.ID]; ok {
		return emb, nil
	}

	emb, err := a.provider.Embed(ctx, conceptEmbeddingText(c))
	if err != nil {
		return nil, err
	}
	a.conceptEmbeddings[c.ID] = emb

	return emb, nil
}

// conceptEmbeddingText builds the representative text a concept is
// embedded from.
func conceptEmbeddingText(c concept.Concept) string {
	inclusion := c.InclusionCriteria
	if len(inclusion) > maxInclusionCriteria {
		inclusion = inclusion[:maxInclusionCriteria]
	}
	seeds := c.SeedTerms
	if len(seeds) > maxSeedTerms {
		seeds = seeds[:maxSeedTerms]
	}

	text := c.Description + ". "
	for i, crit := range inclusion {
		if i > 0 {
			text += " "
		}
		text += crit
	}
	for _, term := range seeds {
		text += " " + term
	}

	return text
}

// preview returns the first 200 characters of text, ellipsis-suffixed when
// truncated.
func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "..."
}
