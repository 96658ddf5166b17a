// Package ingest pulls corpus texts out of GitHub repositories and turns
// them into documents with provenance. Each configured source maps to one
// repository directory; ingestion is append-only and re-running it
// overwrites documents in place via their deterministic ids.
package ingest

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strings"

	"github.com/google/go-github/v81/github"
)

// Source is one corpus location: a directory of text files in a GitHub
// repository, attributed to a named source for comparative analysis.
type Source struct {
	ID       string `yaml:"id"`
	Owner    string `yaml:"owner"`
	Repo     string `yaml:"repo"`
	BasePath string `yaml:"base_path"`
}

// FetchedText is one raw file fetched from a source.
type FetchedText struct {
	Path    string // relative path within the source directory
	Content string
	SHA     string // file's Git blob SHA
	URL     string // GitHub raw URL
}

// Fetcher retrieves text files from one source.
type Fetcher struct {
	client *Client
	source Source
}

// NewFetcher creates a fetcher for the given source.
func NewFetcher(client *Client, source Source) *Fetcher {
	return &Fetcher{client: client, source: source}
}

// Source returns the source this fetcher reads from.
func (f *Fetcher) Source() Source {
	return f.source
}

// ListTexts recursively lists all markdown and plain text files under the
// source's base path.
func (f *Fetcher) ListTexts(ctx context.Context) ([]string, error) {
	return f.listRecursive(ctx, f.source.BasePath, "")
}

func (f *Fetcher) listRecursive(ctx context.Context, fullPath, relativePath string) ([]string, error) {
	var texts []string

	_, dirContents, _, err := f.client.Repositories.GetContents(
		ctx,
		f.source.Owner,
		f.source.Repo,
		fullPath,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", fullPath, err)
	}

	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil {
			continue
		}

		itemRelPath := path.Join(relativePath, *item.Name)

		switch *item.Type {
		case "file":
			if strings.HasSuffix(*item.Name, ".md") || strings.HasSuffix(*item.Name, ".txt") {
				texts = append(texts, itemRelPath)
			}

		case "dir":
			itemFullPath := path.Join(fullPath, *item.Name)
			subTexts, err := f.listRecursive(ctx, itemFullPath, itemRelPath)
			if err != nil {
				return nil, err
			}
			texts = append(texts, subTexts...)
		}
	}

	return texts, nil
}

// FetchText fetches one file's content.
func (f *Fetcher) FetchText(ctx context.Context, relativePath string) (*FetchedText, error) {
	fullPath := path.Join(f.source.BasePath, relativePath)

	fileContent, _, _, err := f.client.Repositories.GetContents(
		ctx,
		f.source.Owner,
		f.source.Repo,
		fullPath,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", fullPath, err)
	}

	if fileContent == nil {
		return nil, fmt.Errorf("no file content returned for %s", fullPath)
	}

	content, err := base64.StdEncoding.DecodeString(*fileContent.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", fullPath, err)
	}

	rawURL := fmt.Sprintf(
		"https://raw.githubusercontent.com/%s/%s/main/%s",
		f.source.Owner,
		f.source.Repo,
		fullPath,
	)

	return &FetchedText{
		Path:    relativePath,
		Content: string(content),
		SHA:     *fileContent.SHA,
		URL:     rawURL,
	}, nil
}

// LatestCommitSHA retrieves the most recent commit affecting the source
// directory, recorded in document metadata for provenance.
func (f *Fetcher) LatestCommitSHA(ctx context.Context) (string, error) {
	commits, _, err := f.client.Repositories.ListCommits(
		ctx,
		f.source.Owner,
		f.source.Repo,
		&github.CommitsListOptions{
			Path: f.source.BasePath,
			ListOptions: github.ListOptions{
				PerPage: 1,
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}

	if len(commits) == 0 {
		return "", fmt.Errorf("no commits found for path %s", f.source.BasePath)
	}
	if commits[0].SHA == nil {
		return "", fmt.Errorf("commit SHA is nil")
	}

	return *commits[0].SHA, nil
}
