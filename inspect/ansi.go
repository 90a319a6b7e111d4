package inspect

import (
	"html"
	"regexp"
	"strings"
)

// ansiPattern matches SGR escape sequences (colors and styles).
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// keyPattern matches the styled section markers some kernels emit in their
// inspect transcripts: a red-wrapped label ending in a colon, e.g.
// "\x1b[31mDocstring:\x1b[39m".
var keyPattern = regexp.MustCompile(`\x1b\[31m([\w\s]+):\x1b\[39m`)

// tagPattern matches markup tags for the HTML fallback path.
var tagPattern = regexp.MustCompile(`<[^>]+>`)

// StripANSI removes SGR escape sequences. Stripping is idempotent: the
// output contains no sequences for a second pass to remove.
func StripANSI(text string) string {
	if text == "" {
		return text
	}
	return ansiPattern.ReplaceAllString(text, "")
}

// stripHTML removes markup tags and decodes entities, trimming surrounding
// whitespace.
func stripHTML(text string) string {
	if text == "" {
		return text
	}
	return strings.TrimSpace(html.UnescapeString(tagPattern.ReplaceAllString(text, "")))
}
