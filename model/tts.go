package model

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// EdgeTTS renders answers to speech by shelling out to the edge-tts CLI.
// Synthesis is best-effort: any failure is reported to the caller, who must
// not let it affect the answer itself.
type EdgeTTS struct {
	voice   string
	timeout time.Duration
}

func NewEdgeTTS(voice string, timeout time.Duration) *EdgeTTS {
	return &EdgeTTS{voice: voice, timeout: timeout}
}

func (t *EdgeTTS) Synthesize(ctx context.Context, text, outPath string) error {
	text = CleanTextForTTS(text)
	if text == "" {
		return fmt.Errorf("nothing to speak after cleanup")
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "edge-tts",
		"--voice", t.voice,
		"--text", text,
		"--write-media", outPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("edge-tts failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

var ttsCleanups = []struct {
	re   *regexp.Regexp
	with string
}{
	{regexp.MustCompile(`\*\*([^*]+)\*\*`), "$1"},
	{regexp.MustCompile(`\*([^*]+)\*`), "$1"},
	{regexp.MustCompile(`__([^_]+)__`), "$1"},
	{regexp.MustCompile(`_([^_]+)_`), "$1"},
	{regexp.MustCompile("`([^`]+)`"), "$1"},
	{regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`), "$1"},
	{regexp.MustCompile(`<[^>]+>`), ""},
	{regexp.MustCompile(`[#>\-]`), ""},
	{regexp.MustCompile(`[•●‣→⇒]`), ""},
	{regexp.MustCompile(`\s+`), " "},
}

// CleanTextForTTS strips markdown and list decoration so the voice does not
// read formatting characters aloud.
func CleanTextForTTS(text string) string {
	for _, c := range ttsCleanups {
		text = c.re.ReplaceAllString(text, c.with)
	}
	return strings.TrimSpace(text)
}
