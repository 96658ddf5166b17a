// Package segment turns raw document text into ordered text segments, the
// unit of concept assignment. Segmentation is mechanical: whitespace
// normalization and length-bounded paragraph splitting, no semantics.
//
// Segment ids are deterministic for a given (document id, derivation), so
// re-running segmentation on identical input reproduces identical ids.
// Downstream stages rely on this for idempotent re-analysis.
package segment

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// TextSegment is a contiguous span of a document's text.
type TextSegment struct {
	ID         string
	DocumentID string
	Text       string
	Position   int // 0-indexed position within the document
}

const (
	// DefaultMinSegmentLength drops fragments too short to score meaningfully.
	DefaultMinSegmentLength = 100

	// DefaultMaxSegmentLength bounds segment size; longer paragraphs are
	// regrouped at sentence boundaries.
	DefaultMaxSegmentLength = 2000
)

var (
	multiSpace = regexp.MustCompile(` +`)
	multiBreak = regexp.MustCompile(`\n\s*\n+`)
)

// Canonicalizer performs whitespace normalization and paragraph segmentation.
type Canonicalizer struct {
	minLen int
	maxLen int
}

// NewCanonicalizer creates a canonicalizer with the given length bounds.
// Non-positive values fall back to the defaults.
func NewCanonicalizer(minLen, maxLen int) *Canonicalizer {
	if minLen <= 0 {
		minLen = DefaultMinSegmentLength
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxSegmentLength
	}
	return &Canonicalizer{minLen: minLen, maxLen: maxLen}
}

// NormalizeWhitespace collapses repeated spaces and blank-line runs.
func (c *Canonicalizer) NormalizeWhitespace(text string) string {
	text = multiSpace.ReplaceAllString(text, " ")
	text = multiBreak.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Segment splits a document's raw text into segments at paragraph
// boundaries. Paragraphs shorter than the minimum length are dropped;
// paragraphs over the maximum are regrouped at sentence boundaries.
func (c *Canonicalizer) Segment(documentID, rawText string) []TextSegment {
	var segments []TextSegment
	c.segmentInto(documentID, rawText, 0, &segments)
	return segments
}

// segmentInto appends segments for one block of text, continuing paragraph
// numbering at paraOffset. It returns the next paragraph offset so callers
// segmenting a document in pieces (e.g. markdown sections) keep ids stable.
func (c *Canonicalizer) segmentInto(documentID, rawText string, paraOffset int, segments *[]TextSegment) int {
	text := c.NormalizeWhitespace(rawText)
	paragraphs := strings.Split(text, "\n\n")

	for i, para := range paragraphs {
		paraIdx := paraOffset + i
		para = strings.TrimSpace(para)

		if len(para) < c.minLen {
			continue
		}

		if len(para) > c.maxLen {
			for _, chunk := range c.regroupSentences(para) {
				c.appendSegment(documentID, chunk, paraIdx, segments)
			}
			continue
		}

		c.appendSegment(documentID, para, paraIdx, segments)
	}

	return paraOffset + len(paragraphs)
}

func (c *Canonicalizer) appendSegment(documentID, text string, paraIdx int, segments *[]TextSegment) {
	if len(text) < c.minLen {
		return
	}
	*segments = append(*segments, TextSegment{
		ID:         segmentID(documentID, paraIdx, len(*segments)),
		DocumentID: documentID,
		Text:       text,
		Position:   len(*segments),
	})
}

// regroupSentences splits an oversized paragraph into sentence groups no
// longer than the maximum segment length.
func (c *Canonicalizer) regroupSentences(para string) []string {
	var chunks []string
	var current []string
	currentLen := 0

	for _, sentence := range splitSentences(para) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if currentLen+len(sentence) > c.maxLen && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = []string{sentence}
			currentLen = len(sentence)
		} else {
			current = append(current, sentence)
			currentLen += len(sentence)
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}

// splitSentences breaks text after terminal punctuation followed by
// whitespace. Go's regexp has no lookbehind, so this is a manual scan.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)

	for i := 0; i < len(runes)-1; i++ {
		r := runes[i]
		if (r == '.' || r == '!' || r == '?') && unicode.IsSpace(runes[i+1]) {
			sentences = append(sentences, string(runes[start:i+1]))
			j := i + 1
			for j < len(runes) && unicode.IsSpace(runes[j]) {
				j++
			}
			start = j
			i = j - 1
		}
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}

	return sentences
}

// segmentID derives a stable id from the document id and the segment's
// paragraph/sequence derivation.
func segmentID(documentID string, paragraphIdx, segmentIdx int) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s:para_%d:seg_%d", documentID, paragraphIdx, segmentIdx)))
	return hex.EncodeToString(sum[:])
}
