package agent

import (
	"context"
)

// Generator produces raw JSON text for a structured-output request.
// It is implemented by the GenAI client.
type Generator interface {
	// GenerateJSON sends the request with the analysis response schema and returns the reply text.
	GenerateJSON(ctx context.Context, req GenerateRequest) (string, error)
}

// Ensure GenAIClient implements Generator.
var _ Generator = (*GenAIClient)(nil)
