package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/ashureev/wpassist/internal/digest"
	"github.com/ashureev/wpassist/internal/domain"
)

// Service answers visitor questions from the loaded site content.
type Service struct {
	generator Generator
	logger    *slog.Logger
}

// NewService creates a new agent service backed by the given generator.
func NewService(generator Generator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		generator: generator,
		logger:    logger,
	}
}

// analysisReply mirrors the response schema. Pointers distinguish missing fields.
type analysisReply struct {
	Answer             *string  `json:"answer"`
	RecommendedPostIDs *[]int64 `json:"recommendedPostIds"`
}

// Analyze sends the query and a digest of items to the model once.
// A malformed reply is not an error: it yields the fallback analysis.
// Transport failures are returned as *AnalysisError.
func (s *Service) Analyze(ctx context.Context, query string, items []domain.ContentItem) (Analysis, error) {
	prompt, err := buildPrompt(query, digest.Build(items))
	if err != nil {
		return Analysis{}, &AnalysisError{Err: err}
	}

	raw, err := s.generator.GenerateJSON(ctx, GenerateRequest{
		SystemInstruction: systemInstruction,
		Prompt:            prompt,
	})
	if err != nil {
		s.logger.Error("Agent analysis failed", "error", err, "query_length", len(query))
		return Analysis{}, &AnalysisError{Err: err}
	}

	analysis, ok := parseAnalysis(raw)
	if !ok {
		s.logger.Warn("Agent reply did not match schema, using fallback", "reply_length", len(raw))
		return fallbackAnalysis(), nil
	}
	s.logger.Info("Agent analysis complete", "recommended", len(analysis.RecommendedPostIDs), "items", len(items))
	return analysis, nil
}

func parseAnalysis(raw string) (Analysis, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Analysis{}, false
	}
	var reply analysisReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return Analysis{}, false
	}
	if reply.Answer == nil || reply.RecommendedPostIDs == nil {
		return Analysis{}, false
	}
	ids := *reply.RecommendedPostIDs
	if ids == nil {
		ids = []int64{}
	}
	return Analysis{Answer: *reply.Answer, RecommendedPostIDs: ids}, true
}

func fallbackAnalysis() Analysis {
	return Analysis{
		Answer:             FallbackAnswer,
		RecommendedPostIDs: []int64{},
		Fallback:           true,
	}
}
