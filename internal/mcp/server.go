package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/conceptmap/conceptmap/internal/concept"
	"github.com/conceptmap/conceptmap/internal/embedding"
	"github.com/conceptmap/conceptmap/internal/storage"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server   *mcp.Server
	store    *storage.Store
	vectors  *storage.VectorStore
	embedder *embedding.Embedder
	registry *concept.Registry
}

// Config holds server dependencies.
type Config struct {
	Store    *storage.Store
	Vectors  *storage.VectorStore
	Embedder *embedding.Embedder
	Registry *concept.Registry
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "conceptmap-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_segments",
		Description: "Search concept-assigned text segments semantically. Returns segment provenance and keywords; use get_document for full text.",
	}, makeSearchHandler(cfg.Vectors, cfg.Embedder))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "concept_coverage",
		Description: "Report how many documents and segments each source contributes to a concept, with confidence statistics.",
	}, makeCoverageHandler(cfg.Store))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_concepts",
		Description: "List all registered concepts with their descriptions.",
	}, makeListConceptsHandler(cfg.Registry))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_document",
		Description: "Retrieve a document's full text and provenance by id.",
	}, makeGetDocumentHandler(cfg.Store))

	return &Server{
		server:   server,
		store:    cfg.Store,
		vectors:  cfg.Vectors,
		embedder: cfg.Embedder,
		registry: cfg.Registry,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
