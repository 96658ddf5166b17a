package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// fingerprintVector is the named vector holding segment embeddings.
const fingerprintVector = "fingerprint"

// VectorStore wraps the Qdrant client with connection management and
// health checks.
type VectorStore struct {
	client *qdrant.Client
	host   string
	port   int
}

// NewVectorStore creates a Qdrant client and validates connectivity with
// retry. Fails fast with ErrQdrantUnreachable if the server never comes up.
func NewVectorStore(host string, port int) (*VectorStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	store := &VectorStore{
		client: client,
		host:   host,
		port:   port,
	}

	if err := store.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return store, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *VectorStore) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, exponentialBackoff)
}

// Health performs a single health check against Qdrant.
func (s *VectorStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollection creates the representations collection with its named
// vector and payload indexes. Idempotent.
func (s *VectorStore) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, name := range collections {
		if name == CollectionName {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			fingerprintVector: {
				Size:     VectorDimension,
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return s.createPayloadIndexes(ctx)
}

// createPayloadIndexes indexes the filterable provenance fields. Without
// these, filtered search degrades badly at scale.
func (s *VectorStore) createPayloadIndexes(ctx context.Context) error {
	fields := []string{
		"concept_id",
		"document_id",
		"source_id",
	}

	for _, field := range fields {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: CollectionName,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}

	return nil
}

// ClearCollection drops and recreates the collection. Representations are
// regeneratable, so this is the cheap path for full re-extraction.
func (s *VectorStore) ClearCollection(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, CollectionName); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return s.EnsureCollection(ctx)
}

// Close closes the Qdrant client connection.
func (s *VectorStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// PointID derives the deterministic Qdrant point id for a segment, so
// re-extraction overwrites prior points instead of duplicating them.
func PointID(segmentID string) string {
	return uuid.NewMD5(uuid.NameSpaceOID, []byte(segmentID)).String()
}

// upsertWithRetry performs upsert with exponential backoff retry.
func (s *VectorStore) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: CollectionName,
			Points:         points,
		})
		return err
	}, exponentialBackoff)
}

// UpsertRepresentations stores representation points, batched in groups
// of 100. Points without an embedding are rejected up front with
// ErrDimensionMismatch rather than half-written.
func (s *VectorStore) UpsertRepresentations(ctx context.Context, reps []RepresentationPoint) error {
	if len(reps) == 0 {
		return nil
	}

	for i, rep := range reps {
		if len(rep.Embedding) != VectorDimension {
			return fmt.Errorf("%w: representation %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(rep.Embedding), VectorDimension)
		}
	}

	batchSize := 100
	for i := 0; i < len(reps); i += batchSize {
		end := i + batchSize
		if end > len(reps) {
			end = len(reps)
		}

		batch := reps[i:end]
		points := make([]*qdrant.PointStruct, len(batch))

		for j, rep := range batch {
			keywords := make([]interface{}, len(rep.Keywords))
			for k, kw := range rep.Keywords {
				keywords[k] = kw
			}

			points[j] = &qdrant.PointStruct{
				Id: qdrant.NewIDUUID(PointID(rep.SegmentID)),
				Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
					fingerprintVector: qdrant.NewVector(rep.Embedding...),
				}),
				Payload: qdrant.NewValueMap(map[string]any{
					"segment_id":    rep.SegmentID,
					"concept_id":    rep.ConceptID,
					"document_id":   rep.DocumentID,
					"source_id":     rep.SourceID,
					"keywords":      keywords,
					"frame_summary": rep.FrameSummary,
					"confidence":    rep.Confidence,
				}),
			}
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// SearchSegments performs vector similarity search over representation
// points. Empty conceptID or sourceID means no filter on that field.
// Results are ordered by similarity score descending.
func (s *VectorStore) SearchSegments(ctx context.Context, embedding []float32, limit int, conceptID, sourceID string) ([]*ScoredSegment, error) {
	if len(embedding) != VectorDimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), VectorDimension)
	}

	var must []*qdrant.Condition
	if conceptID != "" {
		must = append(must, qdrant.NewMatch("concept_id", conceptID))
	}
	if sourceID != "" {
		must = append(must, qdrant.NewMatch("source_id", sourceID))
	}

	var filter *qdrant.Filter
	if len(must) > 0 {
		filter = &qdrant.Filter{Must: must}
	}

	vectorName := fingerprintVector
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CollectionName,
		Query:          qdrant.NewQuery(embedding...),
		Using:          &vectorName,
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search segments: %w", err)
	}

	segments := make([]*ScoredSegment, 0, len(results))
	for _, result := range results {
		payload := result.Payload

		var keywords []string
		if kwVal, ok := payload["keywords"]; ok && kwVal.GetListValue() != nil {
			for _, val := range kwVal.GetListValue().Values {
				keywords = append(keywords, val.GetStringValue())
			}
		}

		segments = append(segments, &ScoredSegment{
			SegmentID:  payload["segment_id"].GetStringValue(),
			ConceptID:  payload["concept_id"].GetStringValue(),
			DocumentID: payload["document_id"].GetStringValue(),
			SourceID:   payload["source_id"].GetStringValue(),
			Keywords:   keywords,
			Confidence: payload["confidence"].GetDoubleValue(),
			Score:      float64(result.Score),
		})
	}

	return segments, nil
}
