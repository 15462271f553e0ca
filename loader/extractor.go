// Package loader normalizes heterogeneous sources (web pages, PDF uploads)
// into plain text. A failure on one item degrades to an inline error string
// for that item; the batch as a whole always completes.
package loader

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// NoContentSentinel marks an extraction batch that produced nothing usable.
// Downstream logic must never embed it as real content; it short-circuits to
// the fallback ladder instead.
const NoContentSentinel = "No content extracted from the provided inputs."

var spaceRe = regexp.MustCompile(`\s+`)

// Extractor fetches and normalizes source content.
type Extractor struct {
	client        *http.Client
	fetchTimeout  time.Duration
	pdfCropTop    float64
	pdfCropBottom float64
}

func NewExtractor(fetchTimeout time.Duration, pdfCropTop, pdfCropBottom float64) *Extractor {
	return &Extractor{
		client:        &http.Client{Timeout: fetchTimeout},
		fetchTimeout:  fetchTimeout,
		pdfCropTop:    pdfCropTop,
		pdfCropBottom: pdfCropBottom,
	}
}

// GetReadableContent fetches a URL and extracts the readable main content,
// stripped of navigation and boilerplate, with whitespace collapsed. Errors
// are rendered inline so one bad URL cannot abort a batch.
func (e *Extractor) GetReadableContent(url string) string {
	resp, err := e.client.Get(url)
	if err != nil {
		return fmt.Sprintf("Error fetching content: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("Error fetching content: status %d for %s", resp.StatusCode, url)
	}

	article, err := readability.FromReader(resp.Body, resp.Request.URL)
	if err != nil {
		return fmt.Sprintf("Error fetching content: %s", err)
	}
	return CollapseWhitespace(article.TextContent)
}

// ExtractContent runs the whole batch: every URL in the comma-separated
// input plus every uploaded PDF, concatenated in order. An overall empty
// result maps to NoContentSentinel.
func (e *Extractor) ExtractContent(urlInput string, pdfFiles [][]byte) string {
	var b strings.Builder

	if urlInput != "" {
		for _, url := range strings.Split(urlInput, ",") {
			url = strings.TrimSpace(url)
			if strings.HasPrefix(url, "http") {
				b.WriteString(e.GetReadableContent(url))
				b.WriteString("\n")
			}
		}
	}
	for _, data := range pdfFiles {
		b.WriteString(e.ExtractTextFromPDF(data))
		b.WriteString("\n")
	}

	content := strings.TrimSpace(b.String())
	if content == "" {
		return NoContentSentinel
	}
	return content
}

// CollapseWhitespace folds all whitespace runs into single spaces.
func CollapseWhitespace(text string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}
