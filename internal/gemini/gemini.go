package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-1.5-flash"

// ErrEmptyResponse is returned when the model produced no candidates.
var ErrEmptyResponse = errors.New("no response from Gemini")

type Client struct {
	client *genai.Client
	model  string
}

// Response is the text of the first candidate and any citation URIs attached to it.
type Response struct {
	Text      string
	Citations []string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Generate sends prompt and asks for a JSON answer.
func (c *Client) Generate(ctx context.Context, prompt string) (*Response, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(0.2)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrEmptyResponse
	}

	cand := resp.Candidates[0]
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	return &Response{Text: b.String(), Citations: citationURIs(cand)}, nil
}

func citationURIs(cand *genai.Candidate) []string {
	if cand.CitationMetadata == nil {
		return nil
	}
	seen := map[string]struct{}{}
	var uris []string
	for _, src := range cand.CitationMetadata.CitationSources {
		if src == nil || src.URI == nil || *src.URI == "" {
			continue
		}
		if _, dup := seen[*src.URI]; dup {
			continue
		}
		seen[*src.URI] = struct{}{}
		uris = append(uris, *src.URI)
	}
	return uris
}
