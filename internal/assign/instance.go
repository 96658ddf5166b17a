package assign

// Method identifies which scoring signals produced an assignment.
type Method string

const (
	// MethodKeyword means only seed-term matching contributed to the score.
	MethodKeyword Method = "keyword"

	// MethodEmbedding means only embedding similarity contributed.
	MethodEmbedding Method = "embedding"

	// MethodHybrid means keyword and embedding scores were blended.
	MethodHybrid Method = "hybrid"
)

// InstanceMetadata carries the raw sub-scores and review context for an
// assignment. EmbeddingScore is nil when the session ran keyword-only.
type InstanceMetadata struct {
	KeywordScore   float64
	EmbeddingScore *float64
	TextLength     int
	TextPreview    string
}

// ConceptInstance records the decision that a segment instantiates a
// concept. Instances are immutable: if scoring inputs change (model,
// weights, threshold), the instance set is regenerated, never patched.
type ConceptInstance struct {
	ConceptID  string
	SegmentID  string
	DocumentID string
	Confidence float64
	Method     Method
	Metadata   InstanceMetadata
}
