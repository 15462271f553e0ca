package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanpietrusky/IEC/app/agent"
	"github.com/stefanpietrusky/IEC/loader"
	"github.com/stefanpietrusky/IEC/store"
	"github.com/stefanpietrusky/IEC/types"
	"github.com/stefanpietrusky/IEC/websearch"
)

type scriptedLLM struct {
	mu        sync.Mutex
	responses []string
	prompts   []string
}

func (s *scriptedLLM) Generate(_ context.Context, prompt, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if i := len(s.prompts) - 1; i < len(s.responses) {
		return s.responses[i], nil
	}
	return "stub answer", nil
}

func (s *scriptedLLM) promptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

type stubSearcher struct{}

func (stubSearcher) CheckConnection() bool { return false }

func (stubSearcher) Search(string, int) ([]websearch.Result, error) { return nil, nil }

type stubFetcher struct{}

func (stubFetcher) GetReadableContent(string) string { return "" }

type wordSplitter struct{}

func (wordSplitter) Count(text string) int { return len(strings.Fields(text)) }

func (wordSplitter) SplitIntoBlocks(text string, maxTokens int) []string {
	words := strings.Fields(text)
	var blocks []string
	for i := 0; i < len(words); i += maxTokens {
		end := i + maxTokens
		if end > len(words) {
			end = len(words)
		}
		blocks = append(blocks, strings.Join(words[i:end], " "))
	}
	return blocks
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = []float32{float32(len(t)), float32(i)}
	}
	return vecs, nil
}

type stubSpeech struct {
	mu    sync.Mutex
	texts []string
}

func (s *stubSpeech) Synthesize(_ context.Context, text, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return nil
}

type testEnv struct {
	app           *fiber.App
	llm           *scriptedLLM
	index         *store.IndexStore
	extractions   *store.ExtractionStore
	conversations *store.ConversationStore
	speech        *stubSpeech
}

func newTestEnv(t *testing.T, responses ...string) *testEnv {
	t.Helper()

	extractions, err := store.NewExtractionStore(t.TempDir())
	require.NoError(t, err)
	conversations, err := store.NewConversationStore(t.TempDir())
	require.NoError(t, err)
	index := store.NewIndexStore(t.TempDir(), 16, wordSplitter{}, fakeEmbedder{})

	llm := &scriptedLLM{responses: responses}
	cfg := types.Config{
		DefaultModel:    "llama3.2:latest",
		AnswerChunkSize: 16,
		TokenLimit:      200,
		Affirmatives:    []string{"yes", "ja"},
	}
	ag := agent.New(llm, stubSearcher{}, stubFetcher{}, wordSplitter{}, cfg)
	speech := &stubSpeech{}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	extractor := loader.NewExtractor(2*time.Second, 0, 0)
	askHandler := NewAskHandler(ag, index, conversations, speech)
	extractHandler := NewExtractHandler(extractor, extractions, index)
	conversationHandler := NewConversationHandler(conversations)

	app.Get("/check/healthy", NewCheckHandler().HandleHealthy)
	app.Post("/ask_question", askHandler.HandleAskQuestion)
	app.Post("/extract_content", extractHandler.HandleExtractContent)
	app.Post("/clear_extracted", extractHandler.HandleClearExtracted)
	app.Get("/list_extractions", extractHandler.HandleListExtractions)
	app.Get("/get_extraction/:filename", extractHandler.HandleGetExtraction)
	app.Delete("/delete_extraction/:filename", extractHandler.HandleDeleteExtraction)
	app.Get("/conversations/:conversation_id/log", conversationHandler.HandleLog)
	app.Get("/conversations/:conversation_id/:filename", conversationHandler.HandleAudio)

	return &testEnv{
		app:           app,
		llm:           llm,
		index:         index,
		extractions:   extractions,
		conversations: conversations,
		speech:        speech,
	}
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func decodeAsk(t *testing.T, resp *http.Response) types.AskResponse {
	t.Helper()
	var out types.AskResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthy(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/check/healthy", nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAskQuestionWithoutSources(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.app, "/ask_question", types.AskParams{
		CompetenceLevel: "Beginner",
		Question:        "What is photosynthesis?",
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeAsk(t, resp)
	assert.Equal(t, "Please select at least one source.", out.Response)
	assert.Empty(t, out.AudioURL)
	// the model is never consulted on this branch
	assert.Zero(t, env.llm.promptCount())
}

func TestAskQuestionValidation(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.app, "/ask_question", types.AskParams{
		CompetenceLevel: "Expert",
		Question:        "q",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// a missing level is not rejected up front: the source check and the
	// agent's own precondition messages own that path
	resp = postJSON(t, env.app, "/ask_question", types.AskParams{Question: "q"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Please select at least one source.", decodeAsk(t, resp).Response)
}

func TestAskQuestionFromSelectedSources(t *testing.T) {
	env := newTestEnv(t,
		"Paris is the capital. (Source: extraction_1.txt)",
		"Paris is the capital of France. (Source: extraction_1.txt)",
	)
	err := env.index.Rebuild(context.Background(), map[string]string{
		"extraction_1.txt": "Paris is the capital of France.",
	})
	require.NoError(t, err)

	resp := postJSON(t, env.app, "/ask_question", types.AskParams{
		ConversationID:      "conv-1",
		CompetenceLevel:     "Beginner",
		Question:            "What is the capital of France?",
		SelectedExtractions: []string{"extraction_1.txt"},
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeAsk(t, resp)
	assert.Equal(t, "Paris is the capital of France. (Source: extraction_1.txt)", out.Response)
	require.Len(t, out.PerSourceAnswers, 1)
	assert.True(t, strings.HasPrefix(out.PerSourceAnswers[0], "**Answer for extraction_1.txt:**"))
	assert.True(t, strings.HasPrefix(out.AudioURL, "/conversations/conv-1/"))
	assert.True(t, strings.HasSuffix(out.AudioURL, ".mp3"))

	// synthesis and logging happen in the background after the response
	assert.Eventually(t, func() bool {
		entries, err := env.conversations.ReadLog("conv-1")
		return err == nil && len(entries) == 1
	}, 2*time.Second, 20*time.Millisecond)

	entries, err := env.conversations.ReadLog("conv-1")
	require.NoError(t, err)
	assert.Equal(t, "What is the capital of France?", entries[0].Question)
	assert.Equal(t, []string{"extraction_1.txt"}, entries[0].Extractions)
}

func TestAskQuestionSelectedSourceMissingFromIndex(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.app, "/ask_question", types.AskParams{
		CompetenceLevel:     "Beginner",
		Question:            "q",
		SelectedExtractions: []string{"nope.txt"},
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeAsk(t, resp)
	assert.Equal(t, "No relevant content found.", out.Response)
	assert.Empty(t, out.AudioURL)
	assert.Zero(t, env.llm.promptCount())
}

const articleHTML = `<!DOCTYPE html>
<html><head><title>Photosynthesis</title></head>
<body><article>
<h1>Photosynthesis</h1>
<p>Photosynthesis is the process by which green plants convert light energy
into chemical energy. It takes place in the chloroplasts of plant cells and
produces oxygen as a byproduct of splitting water molecules.</p>
<p>The light-dependent reactions capture energy from sunlight while the
Calvin cycle fixes carbon dioxide into sugars the plant can store.</p>
</article></body></html>`

func postMultipart(t *testing.T, app *fiber.App, urls string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if urls != "" {
		require.NoError(t, w.WriteField("urls", urls))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/extract_content", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := app.Test(req, 10000)
	require.NoError(t, err)
	return resp
}

func TestExtractContentNoInput(t *testing.T) {
	env := newTestEnv(t)

	resp := postMultipart(t, env.app, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out types.ExtractResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Empty(t, out.Content)
	assert.Zero(t, env.index.Count())
}

func TestExtractionLifecycle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, articleHTML)
	}))
	defer srv.Close()

	env := newTestEnv(t)

	resp := postMultipart(t, env.app, srv.URL)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var extracted types.ExtractResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&extracted))
	assert.Contains(t, extracted.Content, "Photosynthesis")

	// the extraction was stored and the index rebuilt over it
	assert.Greater(t, env.index.Count(), 0)

	req := httptest.NewRequest(http.MethodGet, "/list_extractions", nil)
	listResp, err := env.app.Test(req)
	require.NoError(t, err)
	var infos []types.ExtractionInfo
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&infos))
	require.Len(t, infos, 1)
	name := infos[0].Name
	assert.True(t, strings.HasPrefix(name, "extraction_"))

	req = httptest.NewRequest(http.MethodGet, "/get_extraction/"+name, nil)
	getResp, err := env.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	var got types.ExtractResponse
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&got))
	assert.Equal(t, extracted.Content, got.Content)

	req = httptest.NewRequest(http.MethodDelete, "/delete_extraction/"+name, nil)
	delResp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, delResp.StatusCode)

	// the index follows the deletion
	assert.Zero(t, env.index.Count())

	req = httptest.NewRequest(http.MethodGet, "/get_extraction/"+name, nil)
	getResp, err = env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
}

func TestGetExtractionNotFound(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/get_extraction/missing.txt", nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	req = httptest.NewRequest(http.MethodDelete, "/delete_extraction/missing.txt", nil)
	resp, err = env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClearExtracted(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/clear_extracted", nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":""}`, string(body))
}

func TestConversationAudioNotReady(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/conversations/conv-1/missing.mp3", nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type stubLister struct {
	models []string
}

func (s stubLister) ListModels(context.Context, string) ([]string, error) {
	return s.models, nil
}

func TestListModels(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	handler := NewModelHandler(stubLister{models: []string{"llama3.2:latest", "mistral"}}, "nomic-embed-text")
	app.Get("/list_models", handler.HandleListModels)

	req := httptest.NewRequest(http.MethodGet, "/list_models", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Models []string `json:"models"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, []string{"llama3.2:latest", "mistral"}, out.Models)
}
