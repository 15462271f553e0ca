// Package tokenizer wraps tiktoken as the single source of truth for token
// budget accounting and token-window chunk splitting.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Codec encodes and decodes text with a fixed tiktoken encoding. Counts are
// deterministic within a process; they are used for budgeting only and make
// no claim of matching any remote model's tokenizer.
type Codec struct {
	enc *tiktoken.Tiktoken
}

// New returns a codec for the gpt2 encoding.
func New() (*Codec, error) {
	enc, err := tiktoken.GetEncoding(tiktoken.MODEL_R50K_BASE)
	if err != nil {
		return nil, fmt.Errorf("load gpt2 encoding: %w", err)
	}
	return &Codec{enc: enc}, nil
}

func (c *Codec) Encode(text string) []int {
	return c.enc.Encode(text, nil, nil)
}

func (c *Codec) Decode(tokens []int) string {
	return c.enc.Decode(tokens)
}

func (c *Codec) Count(text string) int {
	return len(c.Encode(text))
}

// SplitIntoBlocks slices text into contiguous windows of at most maxTokens
// tokens and decodes each window back to text. The last block may be shorter.
// Empty input yields no blocks. Decoding a window independently can expand
// by a token or two at the seams; that is a known limitation and is not
// corrected here.
func (c *Codec) SplitIntoBlocks(text string, maxTokens int) []string {
	if maxTokens <= 0 {
		return nil
	}
	tokens := c.Encode(text)
	var blocks []string
	for i := 0; i < len(tokens); i += maxTokens {
		end := i + maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		blocks = append(blocks, c.Decode(tokens[i:end]))
	}
	return blocks
}
