package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_ask_service.go -package=mocks -mock_names=AskService=MockAskService physiology-rag/internal/service AskService

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"physiology-rag/internal/contextutil"
	"physiology-rag/internal/rag"
)

const (
	// MaxQuestionLength is the longest accepted question, in characters.
	MaxQuestionLength = 2000
	// MaxK is the largest accepted per-request chunk count.
	MaxK = 20
)

// AskRequest represents a question in the domain layer.
type AskRequest struct {
	Question string
	K        int
	Document string
	Debug    bool
}

// AskResponse is the structured answer to an AskRequest.
type AskResponse struct {
	Answer       string
	Sources      []rag.Source
	FoundSources bool
	Error        string
	Debug        *rag.DebugInfo
}

// AskService answers questions from the corpus. Invalid input is the only
// error it returns; retrieval and generation failures are reported in the
// response.
type AskService interface {
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)
}

// askService implements AskService.
type askService struct {
	engine rag.Engine
	logger *slog.Logger
}

// NewAskService creates a new AskService.
func NewAskService(engine rag.Engine) AskService {
	return &askService{
		engine: engine,
		logger: slog.Default(),
	}
}

// Ask validates req and runs it through the engine.
func (s *askService) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	logger := contextutil.LoggerOr(ctx, s.logger)

	if err := validateAsk(&req); err != nil {
		logger.WarnContext(ctx, "invalid ask request", "error", err)
		return AskResponse{}, err
	}

	answer := s.engine.Ask(ctx, rag.Query{
		Question: req.Question,
		K:        req.K,
		Document: req.Document,
		Debug:    req.Debug,
	})

	logger.InfoContext(ctx, "ask request processed",
		"question_length", len(req.Question),
		"found_sources", answer.FoundSources,
		"sources", len(answer.Sources),
	)
	return AskResponse{
		Answer:       answer.Answer,
		Sources:      answer.Sources,
		FoundSources: answer.FoundSources,
		Error:        answer.Error,
		Debug:        answer.Debug,
	}, nil
}

// validateAsk trims the request in place and checks its fields.
func validateAsk(req *AskRequest) error {
	req.Question = strings.TrimSpace(req.Question)
	req.Document = strings.TrimSpace(req.Document)

	if req.Question == "" {
		return &ValidationError{Field: "question", Message: "cannot be empty"}
	}
	if utf8.RuneCountInString(req.Question) > MaxQuestionLength {
		return &ValidationError{Field: "question", Message: fmt.Sprintf("must be at most %d characters", MaxQuestionLength)}
	}
	if req.K < 0 || req.K > MaxK {
		return &ValidationError{Field: "k", Message: fmt.Sprintf("must be between 0 and %d", MaxK)}
	}
	return nil
}
