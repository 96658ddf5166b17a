package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDocumentIDDeterministic(t *testing.T) {
	a := DocumentID("outlet-a", "https://example.org/article")
	b := DocumentID("outlet-a", "https://example.org/article")

	if a != b {
		t.Errorf("same inputs produced different ids: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("id length = %d, want 64 hex chars", len(a))
	}
}

func TestDocumentIDDependsOnSource(t *testing.T) {
	url := "https://example.org/article"
	if DocumentID("outlet-a", url) == DocumentID("outlet-b", url) {
		t.Error("different sources should produce different ids for the same url")
	}
}

func TestBuildDocument(t *testing.T) {
	source := Source{ID: "outlet-a", Owner: "corpus", Repo: "outlet-a", BasePath: "articles"}
	text := &FetchedText{
		Path:    "2026/wealth-gap.md",
		Content: "# Wealth gap widens\n\nThe gap grew again this year.",
		SHA:     "blob123",
		URL:     "https://raw.githubusercontent.com/corpus/outlet-a/main/articles/2026/wealth-gap.md",
	}
	fetchedAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	doc := BuildDocument(source, text, "commit456", fetchedAt)

	if doc.ID != DocumentID("outlet-a", text.URL) {
		t.Errorf("document id = %s", doc.ID)
	}
	if doc.SourceID != "outlet-a" {
		t.Errorf("source id = %s", doc.SourceID)
	}
	if doc.Title != "Wealth gap widens" {
		t.Errorf("title = %q", doc.Title)
	}
	if doc.RawText != text.Content {
		t.Error("raw text not carried verbatim")
	}
	if doc.Metadata["repository"] != "corpus/outlet-a" || doc.Metadata["commit"] != "commit456" {
		t.Errorf("metadata = %v", doc.Metadata)
	}
	if !doc.PublishedAt.Equal(fetchedAt) {
		t.Errorf("published at = %v", doc.PublishedAt)
	}
}

func TestTitleForFallsBackToFilename(t *testing.T) {
	text := &FetchedText{
		Path:    "notes/plain-article.txt",
		Content: "No heading here, just prose.",
	}

	if got := titleFor(text); got != "plain-article" {
		t.Errorf("title = %q, want plain-article", got)
	}
}

func TestLoadSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	content := `sources:
  - id: outlet-a
    owner: corpus
    repo: outlet-a
    base_path: articles
  - id: outlet-b
    owner: corpus
    repo: outlet-b
    base_path: posts
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	sources, err := LoadSources(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].ID != "outlet-a" || sources[1].BasePath != "posts" {
		t.Errorf("sources = %+v", sources)
	}
}

func TestLoadSourcesRejectsIncomplete(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	content := "sources:\n  - id: outlet-a\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadSources(path); err == nil {
		t.Error("expected error for source missing owner and repo")
	}
}
