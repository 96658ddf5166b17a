package segment

import (
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// MarkdownSegmenter segments markdown documents with section awareness:
// the document is first split at H1/H2 boundaries so that a segment never
// straddles two sections, then each section runs through the standard
// length-bounded paragraph segmentation.
type MarkdownSegmenter struct {
	parser goldmark.Markdown
	canon  *Canonicalizer
}

// NewMarkdownSegmenter creates a markdown segmenter that delegates
// paragraph-level splitting to the given canonicalizer.
func NewMarkdownSegmenter(canon *Canonicalizer) *MarkdownSegmenter {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &MarkdownSegmenter{
		parser: md,
		canon:  canon,
	}
}

// Segment splits a markdown document into text segments. Documents with no
// headers fall back to plain paragraph segmentation.
func (m *MarkdownSegmenter) Segment(documentID string, source []byte) ([]TextSegment, error) {
	reader := text.NewReader(source)
	doc := m.parser.Parser().Parse(reader)

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(2), // split at H1 and H2 only
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	if len(tree.Items) == 0 {
		return m.canon.Segment(documentID, string(source)), nil
	}

	var sections []string
	m.collectSections(doc, source, tree.Items, &sections)

	var segments []TextSegment
	paraOffset := 0
	for _, section := range sections {
		paraOffset = m.canon.segmentInto(documentID, section, paraOffset, &segments)
	}

	return segments, nil
}

// collectSections walks TOC items in document order, extracting the raw
// text of each H1/H2 section.
func (m *MarkdownSegmenter) collectSections(doc ast.Node, source []byte, items toc.Items, sections *[]string) {
	for i, item := range items {
		headerNode := findHeaderByID(doc, string(item.ID))
		if headerNode == nil {
			continue
		}

		startLine := headerNode.Lines().At(0)
		var endLine text.Segment

		if i+1 < len(items) {
			if next := findHeaderByID(doc, string(items[i+1].ID)); next != nil {
				endLine = next.Lines().At(0)
			}
		} else {
			endLine = findNextHeaderBoundary(doc, headerNode, headerNode.(*ast.Heading).Level)
		}

		*sections = append(*sections, extractSection(source, startLine, endLine))

		if len(item.Items) > 0 {
			m.collectSections(doc, source, item.Items, sections)
		}
	}
}

// findHeaderByID locates a heading node by its auto-generated id.
func findHeaderByID(node ast.Node, id string) ast.Node {
	var found ast.Node
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading {
			heading := n.(*ast.Heading)
			headingID, ok := heading.AttributeString("id")
			if ok && string(headingID.([]byte)) == id {
				found = n
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

// findNextHeaderBoundary finds the next heading at the same or higher level
// after the given node.
func findNextHeaderBoundary(root ast.Node, current ast.Node, currentLevel int) text.Segment {
	var nextHeader ast.Node
	foundCurrent := false

	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		if n.Kind() == ast.KindHeading {
			heading := n.(*ast.Heading)

			if !foundCurrent {
				if n == current {
					foundCurrent = true
				}
				return ast.WalkContinue, nil
			}

			if heading.Level <= currentLevel {
				nextHeader = n
				return ast.WalkStop, nil
			}
		}

		return ast.WalkContinue, nil
	})

	if nextHeader != nil {
		return nextHeader.Lines().At(0)
	}

	// No next header: section runs to EOF.
	return text.Segment{}
}

// extractSection returns the source text between two line segments,
// skipping the heading line itself so segments hold body text only.
func extractSection(source []byte, start, end text.Segment) string {
	var raw []byte
	if end.Start == 0 && end.Stop == 0 {
		raw = source[start.Start:]
	} else {
		raw = source[start.Start:end.Start]
	}

	// Drop the heading line.
	for i, b := range raw {
		if b == '\n' {
			return string(raw[i+1:])
		}
	}
	return ""
}
