package storage

import "errors"

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrQdrantUnreachable = errors.New("qdrant server unreachable")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
