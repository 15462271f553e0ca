package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// SelectRelevantChunks keeps the chunks the model judges relevant to the
// question. The judgement is a strict yes/no prompt matched case-insensitively
// against the configured affirmative prefixes; anything else drops the chunk.
func (a *Agent) SelectRelevantChunks(ctx context.Context, chunks []string, question, model string) []string {
	var relevant []string
	for i, chunk := range chunks {
		prompt := fmt.Sprintf(
			"System: You are a helper.\n"+
				"Question: %s\n\n"+
				"Section #%d:\n%s\n\n"+
				"Is this section RELEVANT to answering the question? "+
				"Answer only with 'yes' or 'no'.",
			question, i+1, chunk,
		)
		resp := strings.ToLower(a.query(ctx, prompt, model))
		if a.isAffirmative(resp) {
			relevant = append(relevant, chunk)
		}
	}
	return relevant
}

func (a *Agent) isAffirmative(resp string) bool {
	for _, token := range a.affirmatives {
		if strings.HasPrefix(resp, strings.ToLower(token)) {
			return true
		}
	}
	return false
}

// SelectChunksWithinBudget walks the chunks in order and keeps a prefix whose
// cumulative token count stays within maxTokens. The walk stops at the first
// chunk that would overflow; later, smaller chunks are not pulled forward.
func (a *Agent) SelectChunksWithinBudget(chunks []string, maxTokens int) []string {
	var selected []string
	total := 0
	for _, chunk := range chunks {
		tok := a.tokens.Count(chunk)
		if total+tok > maxTokens {
			break
		}
		selected = append(selected, chunk)
		total += tok
	}
	return selected
}

// RespondFromBlocks answers over pre-extracted source texts: each source is
// chunked under a source header, filtered for relevance (falling back to the
// source's first chunk so every source contributes something), trimmed to the
// token budget and answered in one combined prompt.
func (a *Agent) RespondFromBlocks(ctx context.Context, competence string, contentsByFile map[string]string, question, model string) string {
	if competence == "" || strings.TrimSpace(question) == "" {
		return MsgSelectLevel
	}

	var allRelevant []string
	for _, fname := range sortedKeys(contentsByFile) {
		header := fmt.Sprintf("### Source: %s\n", fname)
		sourceChunks := a.tokens.SplitIntoBlocks(header+contentsByFile[fname], a.answerChunkSize)
		if len(sourceChunks) == 0 {
			continue
		}
		rel := a.SelectRelevantChunks(ctx, sourceChunks, question, model)
		if len(rel) == 0 {
			rel = sourceChunks[:1]
		}
		allRelevant = append(allRelevant, rel...)
	}

	selected := a.SelectChunksWithinBudget(allRelevant, a.tokenLimit)
	combined := strings.Join(selected, "\n\n---\n\n")

	prompt := fmt.Sprintf(
		"System: You are an intelligent assistant. %s. "+
			"Answer based solely on the following contexts. "+
			"If there is no answer in the sources, answer exactly: "+
			"'%s'\n\n"+
			"Contexts:\n%s\n\n"+
			"Question: %s\n"+
			"Answer:",
		levelInstruction(competence), MsgSourcesSilent, combined, question,
	)

	response := a.query(ctx, prompt, model)
	if strings.Contains(response, MsgSourcesSilent) {
		return MsgSourcesSilent
	}
	return response
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
