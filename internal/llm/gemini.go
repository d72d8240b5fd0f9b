package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"google.golang.org/genai"

	"platewise/internal/plan"
	"platewise/internal/shared"
)

const defaultModel = "gemini-2.5-flash"

// GeminiClient generates meal plans and free-form text through the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a new Gemini API client.
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: defaultModel}, nil
}

// GenerateContent sends a prompt to the Gemini model and returns the generated text.
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	res, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return ContentResponse{}, providerError(err)
	}

	text, err := responseText(res)
	if err != nil {
		return ContentResponse{}, err
	}
	return ContentResponse{Content: text, Usage: usageFrom(res, c.model)}, nil
}

// GeneratePlan performs a single blocking structured generation call and
// returns the schema-validated plan.
func (c *GeminiClient) GeneratePlan(ctx context.Context, p *plan.Prompt) (*plan.GeneratedPlan, shared.TokenUsage, error) {
	res, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(p.User), planConfig(p))
	if err != nil {
		return nil, shared.TokenUsage{}, providerError(err)
	}
	usage := usageFrom(res, c.model)

	text, err := responseText(res)
	if err != nil {
		return nil, usage, &NoObjectError{Cause: err, Usage: usage}
	}

	schema, err := compileSchema(p.JSONSchema)
	if err != nil {
		return nil, usage, err
	}
	obj, err := decodePlan(schema, []byte(text))
	if err != nil {
		return nil, usage, &NoObjectError{Cause: err, RawText: text, Usage: usage}
	}
	return obj, usage, nil
}

// StreamPlan starts a streaming structured generation call.
func (c *GeminiClient) StreamPlan(ctx context.Context, p *plan.Prompt) (*ObjectStream, error) {
	seq := c.client.Models.GenerateContentStream(ctx, c.model, genai.Text(p.User), planConfig(p))
	pull, stop := iter.Pull2(seq)

	next := func() (Chunk, bool) {
		res, err, ok := pull()
		if !ok {
			return Chunk{}, false
		}
		if err != nil {
			return Chunk{Err: providerError(err)}, true
		}

		chunk := Chunk{}
		if res.UsageMetadata != nil {
			chunk.Usage = &shared.TokenUsage{
				PromptTokens:     int(res.UsageMetadata.PromptTokenCount),
				CompletionTokens: int(res.UsageMetadata.CandidatesTokenCount),
				TotalTokens:      int(res.UsageMetadata.TotalTokenCount),
				Model:            c.model,
			}
		}
		if len(res.Candidates) > 0 && res.Candidates[0].Content != nil {
			for _, part := range res.Candidates[0].Content.Parts {
				chunk.Text += part.Text
			}
		}
		return chunk, true
	}

	return NewObjectStream(next, stop, p.JSONSchema)
}

func planConfig(p *plan.Prompt) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(p.System, genai.RoleModel),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    p.ResponseSchema,
	}
}

func responseText(res *genai.GenerateContentResponse) (string, error) {
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil || len(res.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}
	var text string
	for _, part := range res.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text, nil
}

func usageFrom(res *genai.GenerateContentResponse, model string) shared.TokenUsage {
	usage := shared.TokenUsage{Model: model}
	if res.UsageMetadata != nil {
		usage.PromptTokens = int(res.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(res.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(res.UsageMetadata.TotalTokenCount)
	}
	return usage
}

func providerError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Provider: "gemini", Status: apiErr.Code, Message: apiErr.Message, Cause: err}
	}
	return &Error{Provider: "gemini", Message: err.Error(), Cause: err}
}
