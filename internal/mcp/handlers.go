package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/conceptmap/conceptmap/internal/analysis"
	"github.com/conceptmap/conceptmap/internal/concept"
	"github.com/conceptmap/conceptmap/internal/embedding"
	"github.com/conceptmap/conceptmap/internal/storage"
)

// makeSearchHandler creates the search_segments tool handler.
// Search flow: embed the query, run filtered vector search, drop hits
// below the score threshold.
func makeSearchHandler(vectors *storage.VectorStore, embedder *embedding.Embedder) func(
	context.Context, *mcp.CallToolRequest, SearchSegmentsInput,
) (*mcp.CallToolResult, SearchSegmentsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchSegmentsInput) (
		*mcp.CallToolResult, SearchSegmentsOutput, error,
	) {
		maxResults := input.MaxResults
		if maxResults <= 0 {
			maxResults = 10
		}
		minScore := input.MinScore
		if minScore <= 0 {
			minScore = 0.4
		}

		queryEmbedding, err := embedder.Embed(ctx, input.Query)
		if err != nil {
			return nil, SearchSegmentsOutput{}, fmt.Errorf("failed to embed query: %w", err)
		}

		hits, err := vectors.SearchSegments(ctx, queryEmbedding, maxResults, input.ConceptID, input.SourceID)
		if err != nil {
			return nil, SearchSegmentsOutput{}, fmt.Errorf("search failed: %w", err)
		}

		results := make([]SegmentResult, 0, len(hits))
		for _, hit := range hits {
			if hit.Score < minScore {
				continue
			}
			keywords := hit.Keywords
			if keywords == nil {
				keywords = []string{}
			}
			results = append(results, SegmentResult{
				SegmentID:  hit.SegmentID,
				ConceptID:  hit.ConceptID,
				DocumentID: hit.DocumentID,
				SourceID:   hit.SourceID,
				Keywords:   keywords,
				Confidence: hit.Confidence,
				Score:      hit.Score,
			})
		}

		if len(results) == 0 {
			return nil, SearchSegmentsOutput{
				Results: []SegmentResult{},
				Message: "No matching segments found. Try broader search terms or a lower min_score.",
			}, nil
		}

		return nil, SearchSegmentsOutput{Results: results}, nil
	}
}

// makeCoverageHandler creates the concept_coverage tool handler.
func makeCoverageHandler(store *storage.Store) func(
	context.Context, *mcp.CallToolRequest, ConceptCoverageInput,
) (*mcp.CallToolResult, ConceptCoverageOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ConceptCoverageInput) (
		*mcp.CallToolResult, ConceptCoverageOutput, error,
	) {
		instances, err := store.ListInstances(ctx, input.ConceptID)
		if err != nil {
			return nil, ConceptCoverageOutput{}, fmt.Errorf("failed to list instances: %w", err)
		}

		sources, err := store.SourceMap(ctx)
		if err != nil {
			return nil, ConceptCoverageOutput{}, fmt.Errorf("failed to load sources: %w", err)
		}

		analyzer := analysis.NewAnalyzer(analysis.MapResolver(sources), nil)
		result, err := analyzer.Coverage(instances, input.ConceptID)
		if errors.Is(err, analysis.ErrInsufficientData) {
			return nil, ConceptCoverageOutput{
				ConceptID: input.ConceptID,
				Sources:   []SourceCoverage{},
				Message:   "No stored instances for this concept. Run assignment first.",
			}, nil
		}
		if err != nil {
			return nil, ConceptCoverageOutput{}, fmt.Errorf("coverage failed: %w", err)
		}

		coverage := make([]SourceCoverage, 0, len(result.Sources))
		for _, source := range result.Sources {
			stats := result.Coverage[source]
			coverage = append(coverage, SourceCoverage{
				SourceID:       source,
				DocumentCount:  stats.DocumentCount,
				SegmentCount:   stats.SegmentCount,
				MeanConfidence: stats.MeanConfidence,
				MinConfidence:  stats.MinConfidence,
				MaxConfidence:  stats.MaxConfidence,
			})
		}

		return nil, ConceptCoverageOutput{
			ConceptID: input.ConceptID,
			Sources:   coverage,
		}, nil
	}
}

// makeListConceptsHandler creates the list_concepts tool handler.
func makeListConceptsHandler(registry *concept.Registry) func(
	context.Context, *mcp.CallToolRequest, ListConceptsInput,
) (*mcp.CallToolResult, ListConceptsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListConceptsInput) (
		*mcp.CallToolResult, ListConceptsOutput, error,
	) {
		concepts := registry.List()

		summaries := make([]ConceptSummary, 0, len(concepts))
		for _, c := range concepts {
			summaries = append(summaries, ConceptSummary{
				ID:          c.ID,
				Name:        c.Name,
				Description: c.Description,
				SeedTerms:   len(c.SeedTerms),
			})
		}

		return nil, ListConceptsOutput{
			Concepts: summaries,
			Count:    len(summaries),
		}, nil
	}
}

// makeGetDocumentHandler creates the get_document tool handler.
func makeGetDocumentHandler(store *storage.Store) func(
	context.Context, *mcp.CallToolRequest, GetDocumentInput,
) (*mcp.CallToolResult, GetDocumentOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GetDocumentInput) (
		*mcp.CallToolResult, GetDocumentOutput, error,
	) {
		doc, err := store.GetDocument(ctx, input.DocumentID)
		if err != nil {
			if errors.Is(err, storage.ErrDocumentNotFound) {
				return nil, GetDocumentOutput{
					DocumentID: input.DocumentID,
					Found:      false,
				}, nil
			}
			return nil, GetDocumentOutput{}, fmt.Errorf("failed to fetch document: %w", err)
		}

		return nil, GetDocumentOutput{
			DocumentID:  doc.ID,
			SourceID:    doc.SourceID,
			Title:       doc.Title,
			URL:         doc.URL,
			PublishedAt: doc.PublishedAt,
			Content:     doc.RawText,
			Found:       true,
		}, nil
	}
}
