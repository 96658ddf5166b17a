package storage

import "time"

// Document is an ingested text with provenance. RawText is kept verbatim;
// all derived artifacts (segments, instances, representations) can be
// rebuilt from it.
type Document struct {
	ID          string // sha256 of source id + url
	SourceID    string
	Title       string
	Author      string
	PublishedAt time.Time
	URL         string
	RawText     string
	Metadata    map[string]string // ingestion details, e.g. repository and commit
}

// RepresentationPoint is a semantic fingerprint as stored in the vector
// collection. The payload carries enough provenance (concept, document,
// source) to filter searches without a relational join.
type RepresentationPoint struct {
	SegmentID    string
	ConceptID    string
	DocumentID   string
	SourceID     string
	Keywords     []string
	FrameSummary string
	Confidence   float64
	Embedding    []float32
}

// ScoredSegment is one vector search hit.
type ScoredSegment struct {
	SegmentID  string
	ConceptID  string
	DocumentID string
	SourceID   string
	Keywords   []string
	Confidence float64
	Score      float64
}

// CollectionName is the Qdrant collection holding representation points.
const CollectionName = "representations"

// VectorDimension is the embedding size for text-embedding-3-small.
const VectorDimension = 1536
