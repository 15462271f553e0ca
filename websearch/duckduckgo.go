// Package websearch provides the web-search capability of the fallback
// ladder. It scrapes DuckDuckGo's HTML endpoint; connectivity may be absent
// and callers must treat that as "no results", not as an error.
package websearch

import (
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Result is one search hit.
type Result struct {
	URL     string
	Snippet string
}

// Client queries DuckDuckGo over plain HTTP.
type Client struct {
	httpClient *http.Client
	endpoint   string
	probeURL   string
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   "https://html.duckduckgo.com/html/",
		probeURL:   "https://duckduckgo.com",
	}
}

// CheckConnection reports whether the search endpoint is reachable at all.
func (c *Client) CheckConnection() bool {
	resp, err := c.httpClient.Get(c.probeURL)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

var (
	resultRe = regexp.MustCompile(`(?s)<a[^>]+class="result__a"[^>]+href="([^"]+)"[^>]*>(.*?)</a>`)
	tagRe    = regexp.MustCompile(`<[^>]*>`)
)

// Search returns up to maxResults hits for the query, in result-page order.
func (c *Client) Search(query string, maxResults int) ([]Result, error) {
	req, err := http.NewRequest(http.MethodGet, c.endpoint+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; IEC/2.0)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	matches := resultRe.FindAllStringSubmatch(string(body), -1)
	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		if len(results) >= maxResults {
			break
		}
		link := decodeResultURL(html.UnescapeString(m[1]))
		if link == "" {
			continue
		}
		snippet := strings.TrimSpace(html.UnescapeString(tagRe.ReplaceAllString(m[2], " ")))
		results = append(results, Result{URL: link, Snippet: snippet})
	}
	return results, nil
}

// decodeResultURL unwraps DuckDuckGo's redirect links (//duckduckgo.com/l/?uddg=...).
func decodeResultURL(raw string) string {
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		if decoded, err := url.QueryUnescape(target); err == nil {
			return decoded
		}
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		return raw
	}
	return ""
}
