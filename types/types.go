package types

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ChunkMeta carries the provenance of one chunk. Metas are kept in a slice
// positionally aligned with the chunk texts and embedding rows.
type ChunkMeta struct {
	Source string `json:"source"`
}

// ExtractionInfo describes one stored extraction file.
type ExtractionInfo struct {
	Name string `json:"name"`
	Date string `json:"date"`
}

// LogEntry is one record of the append-only conversation log.
type LogEntry struct {
	Timestamp   string   `json:"timestamp"`
	Question    string   `json:"question"`
	Answer      string   `json:"answer"`
	AudioFile   string   `json:"audio_file"`
	Extractions []string `json:"extractions"`
}

// Config holds everything read from the environment at startup.
type Config struct {
	ServerAddr      string
	OllamaBase      string
	EmbedModel      string
	DefaultModel    string
	LLMTimeout      time.Duration
	FetchTimeout    time.Duration
	DataDir         string
	ConvRoot        string
	IndexDir        string
	ChunkSize       int
	AnswerChunkSize int
	TokenLimit      int
	TTSVoice        string
	PDFCropTop      float64
	PDFCropBottom   float64
	Affirmatives    []string
}

func ConfigFromEnv() Config {
	return Config{
		ServerAddr:      envStr("SERVER_ADDR", ":5000"),
		OllamaBase:      envStr("OLLAMA_BASE", "http://localhost:11434/api"),
		EmbedModel:      envStr("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		DefaultModel:    envStr("LLM_MODEL", "llama3.2:latest"),
		LLMTimeout:      envDuration("LLM_TIMEOUT", 60*time.Second),
		FetchTimeout:    envDuration("FETCH_TIMEOUT", 10*time.Second),
		DataDir:         envStr("DATA_DIR", "extracted_texts"),
		ConvRoot:        envStr("CONV_ROOT", "conversations"),
		IndexDir:        envStr("INDEX_DIR", "."),
		ChunkSize:       envInt("CHUNK_SIZE", 1024),
		AnswerChunkSize: envInt("ANSWER_CHUNK_SIZE", 4096),
		TokenLimit:      envInt("TOKEN_LIMIT", 131072),
		TTSVoice:        envStr("TTS_VOICE", "en-GB-ThomasNeural"),
		PDFCropTop:      envFloat("PDF_CROP_TOP", 0),
		PDFCropBottom:   envFloat("PDF_CROP_BOTTOM", 0),
		Affirmatives:    envList("RELEVANCE_AFFIRMATIVES", []string{"yes", "ja"}),
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
