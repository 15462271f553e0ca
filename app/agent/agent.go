// Package agent composes answers: per-source prompting with citation
// instructions, model-judged relevance selection under a token budget, a
// synthesis pass, and the fallback ladder for questions without any local
// content (web search, then the bare model).
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stefanpietrusky/IEC/types"
	"github.com/stefanpietrusky/IEC/websearch"
)

// Terminal messages the UI shows verbatim. They are answers, not errors.
const (
	MsgSelectSource      = "Please select at least one source."
	MsgSelectLevel       = "Please select a skill level and enter a question."
	MsgNoRelevantContent = "No relevant content found."
	MsgNoExtracted       = "No extracted content available."
	MsgSourcesSilent     = "The sources contain no information on this question."
	MsgModelTimeout      = "The model request timed out. Please try again."
)

// LLM is the language-model capability: one prompt, one model, one bounded
// synchronous call. Tests inject deterministic stubs here.
type LLM interface {
	Generate(ctx context.Context, prompt, model string) (string, error)
}

// Searcher is the web-search capability; it may be unreachable.
type Searcher interface {
	CheckConnection() bool
	Search(query string, maxResults int) ([]websearch.Result, error)
}

// Fetcher turns a URL into readable text, degrading to inline error strings.
type Fetcher interface {
	GetReadableContent(url string) string
}

// Tokens is the token-accounting slice of the tokenizer.
type Tokens interface {
	Count(text string) int
	SplitIntoBlocks(text string, maxTokens int) []string
}

// Agent owns one question's path from selected sources to a final answer.
type Agent struct {
	llm    LLM
	search Searcher
	fetch  Fetcher
	tokens Tokens
	logger *slog.Logger

	defaultModel    string
	answerChunkSize int
	tokenLimit      int
	affirmatives    []string
}

func New(llm LLM, search Searcher, fetch Fetcher, tokens Tokens, cfg types.Config) *Agent {
	return &Agent{
		llm:             llm,
		search:          search,
		fetch:           fetch,
		tokens:          tokens,
		logger:          slog.Default(),
		defaultModel:    cfg.DefaultModel,
		answerChunkSize: cfg.AnswerChunkSize,
		tokenLimit:      cfg.TokenLimit,
		affirmatives:    cfg.Affirmatives,
	}
}

// query invokes the model and absorbs every failure into user-visible text,
// so batch operations above it always complete with partial results.
func (a *Agent) query(ctx context.Context, prompt, model string) string {
	if model == "" {
		model = a.defaultModel
	}
	resp, err := a.llm.Generate(ctx, prompt, model)
	if err != nil {
		a.logger.Debug("model request failed", "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return MsgModelTimeout
		}
		return fmt.Sprintf("Error in the model request: %s", err)
	}
	return strings.TrimSpace(resp)
}

func levelInstruction(competence string) string {
	switch competence {
	case "Beginner":
		return "answer briefly and simply"
	case "Intermediate":
		return "answer in a balanced manner at a moderate level"
	default:
		return "explain in detail at an advanced level"
	}
}

// SourceContent pairs a source name with the content available for it.
type SourceContent struct {
	Name    string
	Content string
}

// AnswerPerSource asks the model about one source only, instructing it to
// cite that source by name.
func (a *Agent) AnswerPerSource(ctx context.Context, competence, src, content, question, model string) string {
	prompt := fmt.Sprintf(
		"System: You are an intelligent assistant. %s. "+
			"Only use the following source, and at the end, cite the source as (Source: %s).\n\n"+
			"Source:\n%s\n\n"+
			"Question: %s\n"+
			"Answer:",
		levelInstruction(competence), src, content, question,
	)
	return a.query(ctx, prompt, model)
}

// AnswerFromSources runs the per-source loop and the synthesis pass. Sources
// with empty content are skipped; when nothing remains the terminal
// "no relevant content" message is returned without a synthesis call.
func (a *Agent) AnswerFromSources(ctx context.Context, competence, question string, sources []SourceContent, model string) (string, []string) {
	var perSource []string
	for _, src := range sources {
		if strings.TrimSpace(src.Content) == "" {
			continue
		}
		ans := a.AnswerPerSource(ctx, competence, src.Name, src.Content, question, model)
		perSource = append(perSource, fmt.Sprintf("**Answer for %s:**\n%s", src.Name, strings.TrimSpace(ans)))
	}

	if len(perSource) == 0 {
		return MsgNoRelevantContent, nil
	}

	prompt := "System: Summarize all of the following answers for each source into an overall view, " +
		"and cite the sources as (Source: ...). " +
		"If there are overlaps, summarize them; otherwise, distinguish them clearly.\n\n" +
		"Responses per source:\n\n" +
		strings.Join(perSource, "\n\n---\n\n") +
		"\n\nOverall response:"
	return a.query(ctx, prompt, model), perSource
}

// SummariseText condenses a long text to a few sentences.
func (a *Agent) SummariseText(ctx context.Context, text, model string) string {
	prompt := fmt.Sprintf("Summarize the following text in a few sentences:\n\n%s", text)
	return a.query(ctx, prompt, model)
}
