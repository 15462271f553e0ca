package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/stefanpietrusky/IEC/loader"
)

// webSummariseThreshold is the token count above which a fetched web page is
// summarised before it joins the combined context.
const webSummariseThreshold = 1000

// minUsableWebContent is the minimum extracted length for a search result to
// count as usable.
const minUsableWebContent = 100

// RespondFromExtractedContent answers over inline extracted content, owning
// the fallback ladder when none exists: with no URLs and no uploads the agent
// probes connectivity, tries a web search, and finally asks the model with no
// retrieved context at all. When URLs or uploads were given but produced
// nothing, the user is told so instead of silently searching the web.
func (a *Agent) RespondFromExtractedContent(ctx context.Context, competence, extractedContent, urlInput string, pdfCount int, question, model string) string {
	if competence == "" || strings.TrimSpace(question) == "" {
		return MsgSelectLevel
	}

	trimmed := strings.TrimSpace(extractedContent)
	if trimmed == "" || trimmed == loader.NoContentSentinel {
		if strings.TrimSpace(urlInput) != "" || pdfCount > 0 {
			return MsgNoExtracted
		}
		if !a.search.CheckConnection() {
			a.logger.Debug("no internet connection, using internal model knowledge")
			return a.query(ctx, fmt.Sprintf("Question: %s", question), model)
		}
		webContents := a.searchWebContents(question, 3)
		if len(webContents) == 0 {
			a.logger.Debug("web search returned no useful content, using internal model knowledge")
			return a.query(ctx, fmt.Sprintf("Question: %s", question), model)
		}
		return a.CombinedWebResponse(ctx, competence, webContents, question, model)
	}

	return a.RespondFromBlocks(ctx, competence, map[string]string{"extracted content": extractedContent}, question, model)
}

// searchWebContents fetches readable text for up to numResults search hits.
// The first hit is skipped (typically an ad or an aggregator) and a hit only
// counts when its extracted text is long enough to be usable.
func (a *Agent) searchWebContents(query string, numResults int) []string {
	results, err := a.search.Search(query, 10)
	if err != nil {
		a.logger.Debug("web search failed", "error", err)
		return nil
	}

	var contents []string
	upper := numResults + 1
	if upper > len(results) {
		upper = len(results)
	}
	for i := 1; i < upper; i++ {
		content := a.fetch.GetReadableContent(results[i].URL)
		if len(content) > minUsableWebContent {
			contents = append(contents, content)
		} else {
			a.logger.Debug("search result content too short", "url", results[i].URL)
		}
	}
	return contents
}

// CombinedWebResponse answers over aggregated web content, summarising any
// single piece that exceeds the token threshold before combining.
func (a *Agent) CombinedWebResponse(ctx context.Context, competence string, webContents []string, question, model string) string {
	if competence == "" || strings.TrimSpace(question) == "" {
		return MsgSelectLevel
	}

	summarized := make([]string, 0, len(webContents))
	for _, content := range webContents {
		if a.tokens.Count(content) > webSummariseThreshold {
			summarized = append(summarized, a.SummariseText(ctx, content, model))
		} else {
			summarized = append(summarized, content)
		}
	}

	prompt := fmt.Sprintf(
		"System: You are an intelligent assistant. %s. "+
			"Please summarize the following information and then answer the question.\n\n"+
			"Informations:\n%s\n\n"+
			"Question: %s",
		levelInstruction(competence), strings.Join(summarized, "\n\n---\n\n"), question,
	)
	return a.query(ctx, prompt, model)
}
