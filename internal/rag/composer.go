package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"physiology-rag/internal/contextutil"
	"physiology-rag/internal/llm"
)

// InsufficientInformation is the answer given when retrieval produced no sources.
const InsufficientInformation = "I don't have enough information in the knowledge base to answer this question. Please try rephrasing or asking about a different topic."

const emptyGeneration = "I couldn't generate a proper response. Please try rephrasing your question."

// Composer turns a question and its assembled context into an Answer.
type Composer struct {
	generator llm.Generator
	retry     llm.RetryPolicy
	logger    *slog.Logger
}

// NewComposer creates a Composer that generates with g.
func NewComposer(g llm.Generator, retry llm.RetryPolicy, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{generator: g, retry: retry, logger: logger}
}

// Compose answers question from actx. With no sources it returns the fixed
// insufficient-information answer without calling the generator. A
// generation failure is reported in the answer and the sources are kept.
func (c *Composer) Compose(ctx context.Context, question string, actx AssembledContext) Answer {
	logger := contextutil.LoggerOr(ctx, c.logger)

	if actx.Empty() {
		logger.InfoContext(ctx, "no sources assembled, skipping generation")
		return Answer{Answer: InsufficientInformation, Sources: []Source{}, FoundSources: false}
	}

	prompt := BuildPrompt(question, actx.Text)
	logger.InfoContext(ctx, "sending request to LLM",
		"question_length", len(question),
		"prompt_length", len(prompt),
		"sources", len(actx.Sources),
	)

	var text string
	err := llm.Retry(ctx, c.retry, func(ctx context.Context) error {
		var genErr error
		text, genErr = c.generator.Generate(ctx, prompt)
		return genErr
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to get LLM response", "error", err)
		return Answer{
			Answer:       fmt.Sprintf("Error generating response: %v", err),
			Sources:      actx.Sources,
			FoundSources: true,
			Error:        err.Error(),
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		logger.WarnContext(ctx, "empty response from LLM")
		text = emptyGeneration
	}
	logger.InfoContext(ctx, "received LLM response", "answer_length", len(text))

	return Answer{Answer: text, Sources: actx.Sources, FoundSources: true}
}

// BuildPrompt combines the question with the assembled context.
func BuildPrompt(question, contextText string) string {
	var b strings.Builder
	b.WriteString("Based on this physiology information:\n\n")
	b.WriteString(contextText)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nProvide a clear, educational answer for medical students. ")
	b.WriteString("Answer using only the information above and cite the sources you use. ")
	b.WriteString("If the information is not enough to answer, say so.")
	return b.String()
}
