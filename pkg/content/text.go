package content

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var stripPolicy = bluemonday.StrictPolicy()

// StripHTML removes all markup from a fragment, leaving plain text. RSS
// summaries routinely carry HTML which would otherwise pollute substring
// counting and excerpts.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(stripPolicy.Sanitize(s)))
}

// LeadParagraphs returns the first n non-empty paragraph blocks of text.
// Blocks are separated by blank lines, lines within a block are joined with
// single spaces, and the result keeps blank-line separators between blocks.
func LeadParagraphs(text string, n int) string {
	if text == "" || n <= 0 {
		return ""
	}

	var blocks []string
	var buf []string
	flush := func() {
		if len(buf) > 0 {
			blocks = append(blocks, strings.Join(buf, " "))
			buf = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		buf = append(buf, line)
	}
	flush()

	if len(blocks) > n {
		blocks = blocks[:n]
	}
	return strings.Join(blocks, "\n\n")
}

// Truncate cuts s to at most max bytes on a rune boundary. Only a trailing
// partial rune is trimmed, invalid bytes earlier in the string (scraped
// feeds carry them now and then) keep the prefix intact.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := s[:max]
	// a partial rune is at most utf8.UTFMax-1 bytes of backoff
	for i := 0; i < utf8.UTFMax-1 && len(cut) > 0; i++ {
		if r, size := utf8.DecodeLastRuneInString(cut); r != utf8.RuneError || size > 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}
	return cut
}
