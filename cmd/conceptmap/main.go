// Package main provides the conceptmap CLI: corpus ingestion, concept
// assignment, comparative analysis, and the MCP server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/conceptmap/conceptmap/internal/assign"
	"github.com/conceptmap/conceptmap/internal/concept"
	"github.com/conceptmap/conceptmap/internal/config"
	"github.com/conceptmap/conceptmap/internal/embedding"
	"github.com/conceptmap/conceptmap/internal/ingest"
	mcpserver "github.com/conceptmap/conceptmap/internal/mcp"
	"github.com/conceptmap/conceptmap/internal/pipeline"
	"github.com/conceptmap/conceptmap/internal/represent"
	"github.com/conceptmap/conceptmap/internal/segment"
	"github.com/conceptmap/conceptmap/internal/storage"
	"github.com/conceptmap/conceptmap/internal/views"
)

var rootCmd = &cobra.Command{
	Use:   "conceptmap",
	Short: "Concept mapping pipeline for cross-source text analysis",
	Long:  "CLI for ingesting text corpora, assigning concepts to segments, and comparing how sources represent those concepts",
}

var (
	sourcesPath  string
	conceptsPath string
	outputDir    string
	skipVectors  bool
	withFrames   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch corpus texts from configured GitHub sources",
	Long: `Fetches markdown and plain text files from every source listed in the
sources file and stores them as documents.

Environment variables:
  DB_PATH       SQLite database path (default: data/conceptmap.db)
  GITHUB_TOKEN  GitHub token for higher rate limits (optional)`,
	RunE: runIngest,
}

var assignCmd = &cobra.Command{
	Use:   "assign [concept-id...]",
	Short: "Assign concepts to document segments",
	Long: `Segments every stored document and assigns the given concepts (all
registered concepts when none are named), replacing prior instances.

Environment variables:
  DB_PATH          SQLite database path (default: data/conceptmap.db)
  OPENAI_API_KEY   OpenAI API key; unset runs keyword-only scoring
  USE_EMBEDDINGS   Set to false to force keyword-only scoring
  KEYWORD_WEIGHT   Keyword score weight in hybrid blend (default: 0.4)
  EMBEDDING_WEIGHT Embedding score weight in hybrid blend (default: 0.6)
  MIN_CONFIDENCE   Assignment confidence threshold (default: 0.15)`,
	RunE: runAssign,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <concept-id>",
	Short: "Extract representations and compare sources for a concept",
	Long: `Extracts semantic fingerprints for a concept's stored instances,
persists them for search, runs cross-source comparison metrics, and
writes CSV tables to the output directory.

Environment variables:
  DB_PATH        SQLite database path (default: data/conceptmap.db)
  QDRANT_HOST    Qdrant hostname (default: localhost)
  QDRANT_PORT    Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY OpenAI API key; unset runs keyword-only analysis
  OUTPUT_DIR     Directory for CSV output (default: output)`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server",
	Long: `Serves the corpus over the Model Context Protocol: semantic segment
search, concept coverage, and document retrieval.

Environment variables:
  DB_PATH        SQLite database path (default: data/conceptmap.db)
  QDRANT_HOST    Qdrant hostname (default: localhost)
  QDRANT_PORT    Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY OpenAI API key for query embeddings (required)
  PORT           HTTP port (default: 8080)
  SERVER_MODE    "true" serves MCP over HTTP, otherwise stdio`,
	RunE: runServe,
}

func init() {
	ingestCmd.Flags().StringVar(&sourcesPath, "sources", "sources.yaml", "YAML file listing corpus sources")

	assignCmd.Flags().StringVar(&conceptsPath, "concepts", "", "YAML file with additional concept definitions")

	analyzeCmd.Flags().StringVar(&outputDir, "output", "", "output directory for CSV tables (default: OUTPUT_DIR)")
	analyzeCmd.Flags().BoolVar(&skipVectors, "skip-vectors", false, "skip persisting representations to Qdrant")
	analyzeCmd.Flags().BoolVar(&withFrames, "frames", false, "generate LLM frame summaries (requires OPENAI_API_KEY)")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(assignCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	// Cancel all commands on SIGTERM/SIGINT.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.FromEnv()

	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	sources, err := ingest.LoadSources(sourcesPath)
	if err != nil {
		return err
	}
	fmt.Printf("Ingesting %d sources...\n", len(sources))

	client, err := ingest.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	p := newPipeline(cfg, store, nil, concept.NewRegistry(), nil)
	result, err := p.Ingest(ctx, client, sources)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Ingest complete!")
	fmt.Printf("  Documents: %d/%d\n", result.SuccessfulDocs, result.TotalTexts)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Second))

	if len(result.FailedTexts) > 0 {
		fmt.Println()
		fmt.Println("Failed texts:")
		for _, failed := range result.FailedTexts {
			fmt.Printf("  - %s/%s: %s\n", failed.SourceID, failed.Path, failed.Reason)
		}
	}

	return nil
}

func runAssign(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.FromEnv()

	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	registry := concept.NewRegistry()
	if conceptsPath != "" {
		if err := registry.LoadFile(conceptsPath); err != nil {
			return err
		}
	}

	conceptIDs := args
	if len(conceptIDs) == 0 {
		conceptIDs = registry.IDs()
	}

	provider := newProvider(cfg)
	p := newPipeline(cfg, store, nil, registry, provider)

	result, err := p.Assign(ctx, conceptIDs)
	if err != nil {
		return fmt.Errorf("assignment failed: %w", err)
	}

	fmt.Println("Assignment complete!")
	fmt.Printf("  Documents: %d\n", result.Documents)
	fmt.Printf("  Segments: %d\n", result.Segments)
	fmt.Printf("  Instances: %d\n", result.Instances)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Second))

	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.FromEnv()
	conceptID := args[0]

	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	var vectors *storage.VectorStore
	if !skipVectors {
		fmt.Printf("Connecting to Qdrant at %s:%d...\n", cfg.QdrantHost, cfg.QdrantPort)
		vectors, err = storage.NewVectorStore(cfg.QdrantHost, cfg.QdrantPort)
		if err != nil {
			return fmt.Errorf("failed to connect to Qdrant: %w", err)
		}
		defer vectors.Close()

		if err := vectors.EnsureCollection(ctx); err != nil {
			return fmt.Errorf("failed to ensure collection: %w", err)
		}
	}

	provider := newProvider(cfg)

	var frames *represent.FrameGenerator
	if withFrames {
		client, err := embedding.NewClient()
		if err != nil {
			return fmt.Errorf("frame summaries need an OpenAI client: %w", err)
		}
		frames = represent.NewFrameGenerator(client.Client())
	}

	extractor := represent.NewExtractor(represent.Options{
		Provider:     providerOrNil(provider),
		KeywordCount: cfg.KeywordCount,
		Frames:       frames,
	})
	p := pipeline.New(store, vectors, newSegmenter(cfg), newAssigner(cfg, concept.NewRegistry(), provider), extractor, slog.Default())

	reps, extractResult, err := p.Extract(ctx, conceptID)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}
	fmt.Printf("Extracted %d representations (%d persisted)\n",
		extractResult.Representations, extractResult.Persisted)

	results, err := p.Analyze(ctx, conceptID, reps)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("No metrics produced; the corpus may be too small or single-source.")
		return nil
	}

	dir := outputDir
	if dir == "" {
		dir = cfg.OutputDir
	}
	if err := views.WriteAll(dir, results); err != nil {
		return fmt.Errorf("writing output tables: %w", err)
	}

	fmt.Println()
	fmt.Println("Analysis complete!")
	fmt.Printf("  Metrics: %d\n", len(results))
	fmt.Printf("  Output: %s\n", dir)

	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.FromEnv()

	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	vectors, err := storage.NewVectorStore(cfg.QdrantHost, cfg.QdrantPort)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer vectors.Close()

	if err := vectors.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("failed to ensure collection: %w", err)
	}

	client, err := embedding.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create embedding client: %w", err)
	}
	embedder := embedding.NewEmbedder(client, cfg.EmbeddingModel, 0)

	server := mcpserver.NewServer(&mcpserver.Config{
		Store:    store,
		Vectors:  vectors,
		Embedder: embedder,
		Registry: concept.NewRegistry(),
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", mcpserver.NewHealthHandler(vectors))
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, nil))

	if cfg.ServerMode {
		addr := "0.0.0.0:" + cfg.Port
		fmt.Printf("Starting HTTP server on %s (MCP at /mcp, health at /health)\n", addr)
		return http.ListenAndServe(addr, mux)
	}

	// Stdio mode, with the health endpoint in the background for local
	// testing.
	go func() {
		addr := "0.0.0.0:" + cfg.Port
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("health server error", "error", err)
		}
	}()

	fmt.Println("Starting conceptmap MCP server (stdio mode)...")
	return server.Run(ctx)
}

// newProvider returns the embedding provider, or nil for keyword-only
// operation when embeddings are disabled or the API key is missing.
func newProvider(cfg config.Config) *embedding.Embedder {
	if !cfg.UseEmbeddings {
		return nil
	}
	client, err := embedding.NewClient()
	if err != nil {
		slog.Warn("Embeddings unavailable, continuing keyword-only", "error", err)
		return nil
	}
	return embedding.NewEmbedder(client, cfg.EmbeddingModel, 0)
}

func newSegmenter(cfg config.Config) *segment.MarkdownSegmenter {
	return segment.NewMarkdownSegmenter(segment.NewCanonicalizer(cfg.MinSegmentLength, cfg.MaxSegmentLength))
}

func newAssigner(cfg config.Config, registry *concept.Registry, provider *embedding.Embedder) *assign.Assigner {
	opts := assign.Options{
		KeywordWeight:   cfg.KeywordWeight,
		EmbeddingWeight: cfg.EmbeddingWeight,
		MinConfidence:   cfg.MinConfidence,
	}
	if provider != nil {
		opts.Provider = provider
	}
	return assign.NewAssigner(registry, opts)
}

func newPipeline(cfg config.Config, store *storage.Store, vectors *storage.VectorStore, registry *concept.Registry, provider *embedding.Embedder) *pipeline.Pipeline {
	extractor := represent.NewExtractor(represent.Options{
		Provider:     providerOrNil(provider),
		KeywordCount: cfg.KeywordCount,
	})
	return pipeline.New(store, vectors, newSegmenter(cfg), newAssigner(cfg, registry, provider), extractor, slog.Default())
}

// providerOrNil avoids a typed-nil interface when no embedder exists.
func providerOrNil(provider *embedding.Embedder) embedding.Provider {
	if provider == nil {
		return nil
	}
	return provider
}
