// Package pipeline orchestrates the corpus flow: ingest documents,
// segment and assign concepts, extract representations, and run
// comparative analysis. Each stage is restartable; derived artifacts are
// regenerated wholesale rather than patched.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/conceptmap/conceptmap/internal/analysis"
	"github.com/conceptmap/conceptmap/internal/assign"
	"github.com/conceptmap/conceptmap/internal/ingest"
	"github.com/conceptmap/conceptmap/internal/represent"
	"github.com/conceptmap/conceptmap/internal/segment"
	"github.com/conceptmap/conceptmap/internal/storage"
)

// IngestResult contains statistics about an ingestion run.
type IngestResult struct {
	TotalSources   int
	TotalTexts     int
	SuccessfulDocs int
	FailedTexts    []FailedText
	Duration       time.Duration
}

// FailedText records one file that could not be ingested.
type FailedText struct {
	SourceID string
	Path     string
	Reason   string
}

// AssignResult contains statistics about an assignment run.
type AssignResult struct {
	Documents int
	Segments  int
	Instances int
	Duration  time.Duration
}

// ExtractResult contains statistics about a representation run.
type ExtractResult struct {
	Instances       int
	Representations int
	Persisted       int // points written to the vector store
	Duration        time.Duration
}

// Pipeline wires the stages over shared storage.
type Pipeline struct {
	store     *storage.Store
	vectors   *storage.VectorStore // nil disables vector persistence
	segmenter *segment.MarkdownSegmenter
	assigner  *assign.Assigner
	extractor *represent.Extractor
	logger    *slog.Logger
}

// New creates a pipeline. The vector store may be nil, in which case
// representations are computed but not persisted for search.
func New(
	store *storage.Store,
	vectors *storage.VectorStore,
	segmenter *segment.MarkdownSegmenter,
	assigner *assign.Assigner,
	extractor *represent.Extractor,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:     store,
		vectors:   vectors,
		segmenter: segmenter,
		assigner:  assigner,
		extractor: extractor,
		logger:    logger,
	}
}

// Ingest fetches every configured source and stores its texts as
// documents. Individual fetch failures are recorded and skipped; a source
// whose listing fails aborts the run.
func (p *Pipeline) Ingest(ctx context.Context, client *ingest.Client, sources []ingest.Source) (*IngestResult, error) {
	start := time.Now()
	result := &IngestResult{TotalSources: len(sources)}

	for _, source := range sources {
		fetcher := ingest.NewFetcher(client, source)

		commitSHA, err := fetcher.LatestCommitSHA(ctx)
		if err != nil {
			return nil, fmt.Errorf("get commit SHA for %s: %w", source.ID, err)
		}

		paths, err := fetcher.ListTexts(ctx)
		if err != nil {
			return nil, fmt.Errorf("list texts for %s: %w", source.ID, err)
		}
		result.TotalTexts += len(paths)
		p.logger.Info("Found texts", "source", source.ID, "count", len(paths))

		fetchedAt := time.Now().UTC()
		for _, path := range paths {
			text, err := fetcher.FetchText(ctx, path)
			if err != nil {
				p.logger.Warn("Failed to fetch text", "source", source.ID, "path", path, "error", err)
				result.FailedTexts = append(result.FailedTexts, FailedText{
					SourceID: source.ID,
					Path:     path,
					Reason:   err.Error(),
				})
				continue
			}

			doc := ingest.BuildDocument(source, text, commitSHA, fetchedAt)
			if err := p.store.SaveDocument(ctx, doc); err != nil {
				return nil, fmt.Errorf("save document %s: %w", doc.ID, err)
			}
			result.SuccessfulDocs++
		}
	}

	result.Duration = time.Since(start)
	p.logger.Info("Ingestion complete",
		"sources", result.TotalSources,
		"successful", result.SuccessfulDocs,
		"failed", len(result.FailedTexts),
		"duration", result.Duration,
	)

	return result, nil
}

// Assign segments every stored document and assigns the given concepts,
// replacing each concept's stored instances with the fresh set.
func (p *Pipeline) Assign(ctx context.Context, conceptIDs []string) (*AssignResult, error) {
	start := time.Now()

	segments, err := p.segmentAll(ctx)
	if err != nil {
		return nil, err
	}

	docs := make(map[string]bool)
	for _, seg := range segments {
		docs[seg.DocumentID] = true
	}

	instances, err := p.assigner.AssignAll(ctx, segments, conceptIDs)
	if err != nil {
		return nil, fmt.Errorf("assigning concepts: %w", err)
	}

	byConcept := make(map[string][]assign.ConceptInstance)
	for _, inst := range instances {
		byConcept[inst.ConceptID] = append(byConcept[inst.ConceptID], inst)
	}
	for _, conceptID := range conceptIDs {
		if err := p.store.ReplaceInstances(ctx, conceptID, byConcept[conceptID]); err != nil {
			return nil, fmt.Errorf("storing instances for %s: %w", conceptID, err)
		}
	}

	result := &AssignResult{
		Documents: len(docs),
		Segments:  len(segments),
		Instances: len(instances),
		Duration:  time.Since(start),
	}
	p.logger.Info("Assignment complete",
		"documents", result.Documents,
		"segments", result.Segments,
		"instances", result.Instances,
		"duration", result.Duration,
	)

	return result, nil
}

// Extract computes representations for a concept's stored instances and
// persists the embedded ones to the vector store. The in-memory
// representations are returned for immediate analysis.
func (p *Pipeline) Extract(ctx context.Context, conceptID string) ([]represent.Representation, *ExtractResult, error) {
	start := time.Now()

	instances, err := p.store.ListInstances(ctx, conceptID)
	if err != nil {
		return nil, nil, err
	}

	segments, err := p.segmentAll(ctx)
	if err != nil {
		return nil, nil, err
	}

	reps := p.extractor.ExtractAll(ctx, instances, segments)

	result := &ExtractResult{
		Instances:       len(instances),
		Representations: len(reps),
	}

	if p.vectors != nil {
		sources, err := p.store.SourceMap(ctx)
		if err != nil {
			return nil, nil, err
		}

		var points []storage.RepresentationPoint
		for _, rep := range reps {
			if rep.Embedding == nil {
				continue
			}
			points = append(points, storage.RepresentationPoint{
				SegmentID:    rep.InstanceID,
				ConceptID:    rep.ConceptID,
				DocumentID:   rep.DocumentID,
				SourceID:     sources[rep.DocumentID],
				Keywords:     rep.Keywords,
				FrameSummary: rep.FrameSummary,
				Confidence:   rep.Metadata.Confidence,
				Embedding:    rep.Embedding,
			})
		}
		if err := p.vectors.UpsertRepresentations(ctx, points); err != nil {
			return nil, nil, fmt.Errorf("persisting representations: %w", err)
		}
		result.Persisted = len(points)
	}

	result.Duration = time.Since(start)
	p.logger.Info("Extraction complete",
		"concept", conceptID,
		"representations", result.Representations,
		"persisted", result.Persisted,
		"duration", result.Duration,
	)

	return reps, result, nil
}

// Analyze runs all comparison metrics for a concept over the given
// representations. Metrics whose data requirements are not met are
// skipped with a warning rather than failing the run.
func (p *Pipeline) Analyze(ctx context.Context, conceptID string, reps []represent.Representation) ([]*analysis.ComparisonResult, error) {
	sources, err := p.store.SourceMap(ctx)
	if err != nil {
		return nil, err
	}
	instances, err := p.store.ListInstances(ctx, conceptID)
	if err != nil {
		return nil, err
	}

	analyzer := analysis.NewAnalyzer(analysis.MapResolver(sources), p.logger)

	var results []*analysis.ComparisonResult
	run := func(name string, f func() (*analysis.ComparisonResult, error)) error {
		result, err := f()
		if errors.Is(err, analysis.ErrInsufficientData) {
			p.logger.Warn("Skipping metric", "metric", name, "reason", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		results = append(results, result)
		return nil
	}

	if err := run("source_similarity", func() (*analysis.ComparisonResult, error) {
		return analyzer.SourceSimilarity(reps, conceptID)
	}); err != nil {
		return nil, err
	}
	if err := run("lexical_patterns", func() (*analysis.ComparisonResult, error) {
		return analyzer.LexicalPatterns(reps, conceptID)
	}); err != nil {
		return nil, err
	}
	if err := run("coverage", func() (*analysis.ComparisonResult, error) {
		return analyzer.Coverage(instances, conceptID)
	}); err != nil {
		return nil, err
	}

	return results, nil
}

// segmentAll segments every stored document, markdown-aware.
func (p *Pipeline) segmentAll(ctx context.Context) ([]segment.TextSegment, error) {
	docs, err := p.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	var segments []segment.TextSegment
	for _, doc := range docs {
		segs, err := p.segmenter.Segment(doc.ID, []byte(doc.RawText))
		if err != nil {
			p.logger.Warn("Failed to segment document, skipping", "document", doc.ID, "error", err)
			continue
		}
		segments = append(segments, segs...)
	}

	return segments, nil
}
