package represent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
)

// frameMaxTokens caps how much segment text feeds the summary prompt,
// using the rough estimate of 4 characters per token.
const frameMaxTokens = 4000

// FrameGenerator produces one-sentence framing summaries for assigned
// segments using a chat completion model. Frame summaries are optional
// color for manual review; generation failures never block extraction.
type FrameGenerator struct {
	client    *openai.Client
	maxTokens int
}

// NewFrameGenerator creates a frame generator with the given OpenAI client.
func NewFrameGenerator(client *openai.Client) *FrameGenerator {
	return &FrameGenerator{
		client:    client,
		maxTokens: frameMaxTokens,
	}
}

type frameResponse struct {
	Frame string `json:"frame"`
}

// Summarize returns a one-sentence description of how the segment frames
// the concept.
func (g *FrameGenerator) Summarize(ctx context.Context, conceptID, text string) (string, error) {
	truncated := g.truncate(text)

	prompt := fmt.Sprintf(`This text passage was identified as discussing the concept %q.
In one sentence, describe how the passage frames the concept: what angle,
emphasis, or stance it takes.

Passage:
%s

Respond in JSON format:
{"frame": "One sentence describing the framing"}`, conceptID, truncated)

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModelGPT4oMini,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	var parsed frameResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	return parsed.Frame, nil
}

func (g *FrameGenerator) truncate(text string) string {
	maxChars := g.maxTokens * 4
	if len(text) <= maxChars {
		return text
	}
	return text[:maxChars]
}
