package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanTextForTTS(t *testing.T) {
	cases := map[string]string{
		"**bold** and *italic*":           "bold and italic",
		"__strong__ plus _em_":            "strong plus em",
		"see `code` here":                 "see code here",
		"[a link](https://example.com)":   "a link",
		"<b>tagged</b> text":              "tagged text",
		"# heading\n- item\n> quote":      "heading item quote",
		"• bullet → arrow":                "bullet arrow",
		"lots    of \n\t whitespace":      "lots of whitespace",
		"Paris. (Source: extraction.txt)": "Paris. (Source: extraction.txt)",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanTextForTTS(in), "input %q", in)
	}
}
