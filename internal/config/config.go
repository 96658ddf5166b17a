// Package config centralizes environment-driven settings for the
// pipeline and server. Every knob has a working default so a bare
// invocation runs keyword-only against local storage.
package config

import (
	"fmt"
	"os"
)

// Config holds all tunable settings.
type Config struct {
	// Assignment
	KeywordWeight   float64
	EmbeddingWeight float64
	MinConfidence   float64
	UseEmbeddings   bool

	// Representation
	EmbeddingModel string
	KeywordCount   int

	// Segmentation
	MinSegmentLength int
	MaxSegmentLength int

	// Storage
	DBPath     string
	QdrantHost string
	QdrantPort int

	// Output and serving
	OutputDir  string
	Port       string
	ServerMode bool
}

// FromEnv builds the configuration from environment variables, falling
// back to defaults for anything unset.
func FromEnv() Config {
	return Config{
		KeywordWeight:   getEnvFloat("KEYWORD_WEIGHT", 0.4),
		EmbeddingWeight: getEnvFloat("EMBEDDING_WEIGHT", 0.6),
		MinConfidence:   getEnvFloat("MIN_CONFIDENCE", 0.15),
		UseEmbeddings:   getEnv("USE_EMBEDDINGS", "true") == "true",

		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		KeywordCount:   getEnvInt("KEYWORD_COUNT", 10),

		MinSegmentLength: getEnvInt("MIN_SEGMENT_LENGTH", 100),
		MaxSegmentLength: getEnvInt("MAX_SEGMENT_LENGTH", 2000),

		DBPath:     getEnv("DB_PATH", "data/conceptmap.db"),
		QdrantHost: getEnv("QDRANT_HOST", "localhost"),
		QdrantPort: getEnvInt("QDRANT_PORT", 6334),

		OutputDir:  getEnv("OUTPUT_DIR", "output"),
		Port:       getEnv("PORT", "8080"),
		ServerMode: getEnv("SERVER_MODE", "false") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		var f float64
		if _, err := fmt.Sscanf(v, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}
