package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// OllamaClient talks to the Ollama HTTP API. Every call is single-shot and
// bounded by the configured timeout; callers render failures as inline text.
type OllamaClient struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

func NewOllamaClient(baseURL string, timeout time.Duration) *OllamaClient {
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  http.DefaultClient,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

var ansiRe = regexp.MustCompile(`\x1b\[.*?m`)

// Generate sends one prompt to one model and returns the full response text.
func (c *OllamaClient) Generate(ctx context.Context, prompt, modelName string) (string, error) {
	body, err := json.Marshal(generateRequest{Model: modelName, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err == nil && genResp.Response != "" {
		fmt.Printf("LLM answer took %v\n", time.Since(start))
		return strings.TrimSpace(ansiRe.ReplaceAllString(genResp.Response, "")), nil
	}

	// streamed body: collect every chunk into one string
	var b strings.Builder
	decoder := json.NewDecoder(bytes.NewReader(respBody))
	for decoder.More() {
		var chunk generateResponse
		if err := decoder.Decode(&chunk); err != nil {
			break
		}
		b.WriteString(chunk.Response)
	}
	fmt.Printf("LLM answer took %v\n", time.Since(start))
	return strings.TrimSpace(ansiRe.ReplaceAllString(b.String(), "")), nil
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels returns the names of installed models, leaving out embedding
// models that cannot answer questions.
func (c *OllamaClient) ListModels(ctx context.Context, excludePrefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tags", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	models := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		if excludePrefix != "" && strings.HasPrefix(m.Name, excludePrefix) {
			continue
		}
		models = append(models, m.Name)
	}
	return models, nil
}
