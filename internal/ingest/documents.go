package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/conceptmap/conceptmap/internal/storage"
)

// sourcesFile is the YAML shape of a sources configuration file.
type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources reads source definitions from a YAML file.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sources file: %w", err)
	}

	var parsed sourcesFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parsing sources file %s: %w", path, err)
	}

	for i, src := range parsed.Sources {
		if src.ID == "" || src.Owner == "" || src.Repo == "" {
			return nil, fmt.Errorf("source %d in %s is missing id, owner, or repo", i, path)
		}
	}

	return parsed.Sources, nil
}

// DocumentID derives the stable document id from source id and url.
// Re-ingesting the same file always lands on the same row.
func DocumentID(sourceID, url string) string {
	sum := sha256.Sum256([]byte(sourceID + url))
	return hex.EncodeToString(sum[:])
}

// BuildDocument converts a fetched text into a storable document.
// Ingestion provenance (repository, commit, path, blob SHA) goes into the
// metadata map.
func BuildDocument(source Source, text *FetchedText, commitSHA string, fetchedAt time.Time) storage.Document {
	return storage.Document{
		ID:          DocumentID(source.ID, text.URL),
		SourceID:    source.ID,
		Title:       titleFor(text),
		PublishedAt: fetchedAt,
		URL:         text.URL,
		RawText:     text.Content,
		Metadata: map[string]string{
			"repository": source.Owner + "/" + source.Repo,
			"commit":     commitSHA,
			"path":       text.Path,
			"blob_sha":   text.SHA,
		},
	}
}

// titleFor extracts a document title: the first markdown heading if one
// exists, else the file name without extension.
func titleFor(text *FetchedText) string {
	for _, line := range strings.Split(text.Content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		}
	}

	base := path.Base(text.Path)
	return strings.TrimSuffix(base, path.Ext(base))
}
