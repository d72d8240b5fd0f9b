package llm

import (
	"context"

	"platewise/internal/plan"
	"platewise/internal/shared"
)

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// PlanGenerator is an interface for structured meal plan generation.
type PlanGenerator interface {
	// GeneratePlan performs a single blocking generation call.
	GeneratePlan(ctx context.Context, p *plan.Prompt) (*plan.GeneratedPlan, shared.TokenUsage, error)
	// StreamPlan starts a streaming generation call; the caller owns the
	// returned stream and must Close it.
	StreamPlan(ctx context.Context, p *plan.Prompt) (*ObjectStream, error)
}
