// Package mcp exposes the concept mapping corpus over the Model Context
// Protocol: semantic segment search, concept coverage, and document
// retrieval.
package mcp

import "time"

// SearchSegmentsInput defines the input parameters for the search_segments tool.
type SearchSegmentsInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"required,description=The semantic search query for finding relevant segments"`
	// ConceptID restricts results to one concept.
	ConceptID string `json:"concept_id,omitempty" jsonschema:"description=Restrict results to segments assigned to this concept"`
	// SourceID restricts results to one source.
	SourceID string `json:"source_id,omitempty" jsonschema:"description=Restrict results to documents from this source"`
	// MaxResults is the maximum number of segments to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"minimum=1,maximum=50,default=10,description=Maximum number of segments to return"`
	// MinScore is the minimum similarity threshold (0-1).
	MinScore float64 `json:"min_score,omitempty" jsonschema:"minimum=0,maximum=1,default=0.4,description=Minimum similarity score threshold (0-1)"`
}

// SearchSegmentsOutput contains the search results.
type SearchSegmentsOutput struct {
	Results []SegmentResult `json:"results"`
	// Message provides informational context (e.g., "No matching segments found").
	Message string `json:"message,omitempty"`
}

// SegmentResult is one matching segment with its provenance.
type SegmentResult struct {
	SegmentID  string   `json:"segment_id"`
	ConceptID  string   `json:"concept_id"`
	DocumentID string   `json:"document_id"`
	SourceID   string   `json:"source_id"`
	Keywords   []string `json:"keywords"`
	// Confidence is the stored assignment confidence for the segment.
	Confidence float64 `json:"confidence"`
	// Score is the similarity to the query (0-1).
	Score float64 `json:"score"`
}

// ConceptCoverageInput defines the input parameters for the concept_coverage tool.
type ConceptCoverageInput struct {
	// ConceptID is the concept to report coverage for.
	ConceptID string `json:"concept_id" jsonschema:"required,description=The concept id to report coverage for"`
}

// ConceptCoverageOutput contains per-source coverage statistics.
type ConceptCoverageOutput struct {
	ConceptID string           `json:"concept_id"`
	Sources   []SourceCoverage `json:"sources"`
	Message   string           `json:"message,omitempty"`
}

// SourceCoverage is one source's assignment footprint.
type SourceCoverage struct {
	SourceID       string  `json:"source_id"`
	DocumentCount  int     `json:"document_count"`
	SegmentCount   int     `json:"segment_count"`
	MeanConfidence float64 `json:"mean_confidence"`
	MinConfidence  float64 `json:"min_confidence"`
	MaxConfidence  float64 `json:"max_confidence"`
}

// ListConceptsInput defines the input parameters for the list_concepts tool.
// The tool takes no parameters.
type ListConceptsInput struct{}

// ListConceptsOutput lists the registered concepts.
type ListConceptsOutput struct {
	Concepts []ConceptSummary `json:"concepts"`
	Count    int              `json:"count"`
}

// ConceptSummary is one registered concept.
type ConceptSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SeedTerms   int    `json:"seed_terms"`
}

// GetDocumentInput defines the input parameters for the get_document tool.
type GetDocumentInput struct {
	// DocumentID is the document to retrieve.
	DocumentID string `json:"document_id" jsonschema:"required,description=The document id to retrieve"`
}

// GetDocumentOutput contains the retrieved document.
type GetDocumentOutput struct {
	DocumentID  string    `json:"document_id"`
	SourceID    string    `json:"source_id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Content     string    `json:"content"`
	// Found indicates whether the document exists.
	Found bool `json:"found"`
}
