// Package agent implements the content-grounded WordPress assistant.
package agent

import (
	"net/http"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-3-flash-preview"

// FallbackAnswer is returned when the model reply cannot be understood.
const FallbackAnswer = "I couldn't process that request properly. Could you try rephrasing?"

// Analysis is the structured answer to one visitor query.
type Analysis struct {
	Answer             string  `json:"answer"`
	RecommendedPostIDs []int64 `json:"recommendedPostIds"`
	// Fallback is set when the model reply was malformed and Answer is FallbackAnswer.
	Fallback bool `json:"-"`
}

// GenerateRequest is a single structured-output call to the model.
type GenerateRequest struct {
	SystemInstruction string
	Prompt            string
}

// Config holds agent configuration.
type Config struct {
	GoogleAPIKey string
	ModelName    string
	// BaseURL overrides the Gemini API endpoint.
	BaseURL    string
	HTTPClient *http.Client
}

// DefaultConfig returns default agent configuration.
func DefaultConfig() Config {
	return Config{
		ModelName: DefaultModel,
	}
}
