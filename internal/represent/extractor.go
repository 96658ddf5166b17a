// Package represent turns assigned segments into comparable semantic
// fingerprints: an embedding plus a ranked keyword signature. Everything
// here is regeneratable from segment text and a chosen model; a
// representation is a disposable cache entry, never ground truth.
package represent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/conceptmap/conceptmap/internal/assign"
	"github.com/conceptmap/conceptmap/internal/embedding"
	"github.com/conceptmap/conceptmap/internal/segment"
)

// DefaultKeywordCount is the extractor's top-K when none is configured.
const DefaultKeywordCount = 10

// Metadata carries derived stats so downstream filtering doesn't need to
// re-join to the instance.
type Metadata struct {
	TextLength   int
	KeywordCount int
	HasEmbedding bool
	Confidence   float64
}

// Representation is the semantic fingerprint of one assigned segment.
// InstanceID is the assigned segment's id; the segment→concept mapping is
// carried on ConceptID.
type Representation struct {
	InstanceID   string
	ConceptID    string
	DocumentID   string
	Embedding    []float32 // nil when unavailable
	Keywords     []string  // frequency-ranked, first-occurrence tie-break
	FrameSummary string    // optional, empty unless frame generation enabled
	Metadata     Metadata
}

// Options configures an Extractor. Zero values select the defaults.
type Options struct {
	Provider     embedding.Provider // nil skips embeddings
	KeywordCount int
	ExcludeWords []string // unioned with the stop-word list
	Frames       *FrameGenerator // nil skips frame summaries
	Logger       *slog.Logger
}

// Extractor computes representations for concept instances.
type Extractor struct {
	provider     embedding.Provider
	keywordCount int
	exclude      map[string]bool
	frames       *FrameGenerator
	logger       *slog.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(opts Options) *Extractor {
	if opts.KeywordCount <= 0 {
		opts.KeywordCount = DefaultKeywordCount
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	exclude := make(map[string]bool, len(opts.ExcludeWords))
	for _, w := range opts.ExcludeWords {
		exclude[strings.ToLower(w)] = true
	}

	return &Extractor{
		provider:     opts.Provider,
		keywordCount: opts.KeywordCount,
		exclude:      exclude,
		frames:       opts.Frames,
		logger:       opts.Logger,
	}
}

// Extract computes the representation for one instance. Embedding and
// frame-summary failures are logged and leave the respective field empty;
// they never fail the extraction.
func (e *Extractor) Extract(ctx context.Context, inst assign.ConceptInstance, seg segment.TextSegment) Representation {
	var emb []float32
	if e.provider != nil {
		var err error
		emb, err = e.provider.Embed(ctx, seg.Text)
		if err != nil {
			e.logger.Warn("embedding failed for representation", "segment", seg.ID, "error", err)
			emb = nil
		}
	}

	keywords := extractKeywords(seg.Text, e.keywordCount, e.exclude)

	var frame string
	if e.frames != nil {
		summary, err := e.frames.Summarize(ctx, inst.ConceptID, seg.Text)
		if err != nil {
			e.logger.Warn("frame summary failed", "segment", seg.ID, "error", err)
		} else {
			frame = summary
		}
	}

	return Representation{
		InstanceID:   inst.SegmentID,
		ConceptID:    inst.ConceptID,
		DocumentID:   inst.DocumentID,
		Embedding:    emb,
		Keywords:     keywords,
		FrameSummary: frame,
		Metadata: Metadata{
			TextLength:   len(seg.Text),
			KeywordCount: len(keywords),
			HasEmbedding: emb != nil,
			Confidence:   inst.Confidence,
		},
	}
}

// ExtractAll computes representations for all instances whose backing
// segment is present. Instances with a missing segment are stale
// references (e.g. the segment store was regenerated with different ids);
// they are skipped and logged, never an error.
func (e *Extractor) ExtractAll(ctx context.Context, instances []assign.ConceptInstance, segments []segment.TextSegment) []Representation {
	lookup := make(map[string]segment.TextSegment, len(segments))
	for _, seg := range segments {
		lookup[seg.ID] = seg
	}

	representations := make([]Representation, 0, len(instances))
	skipped := 0

	for _, inst := range instances {
		if ctx.Err() != nil {
			break
		}
		seg, ok := lookup[inst.SegmentID]
		if !ok {
			e.logger.Warn("segment not found for instance, skipping", "segment", inst.SegmentID)
			skipped++
			continue
		}
		representations = append(representations, e.Extract(ctx, inst, seg))
	}

	e.logger.Info("extracted representations",
		"count", len(representations), "skipped", skipped)

	return representations
}
