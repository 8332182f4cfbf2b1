// Package redact replaces a service user's name with placeholder names.
package redact

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Result describes one redaction.
type Result struct {
	Text         string `json:"-"`
	Replacements int    `json:"replacements"`
	Original     string `json:"original"`
	Replacement  string `json:"replacement"`
}

// Names replaces the full name, then the first name alone, then the last name
// alone. Matching is case-insensitive and whole-word; a trailing 's or ’s is kept.
// Passes whose name or replacement is empty are skipped. The returned count is
// the total across all passes.
func Names(text, first, last, replFirst, replLast string) (string, int) {
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	replFirst, replLast = strings.TrimSpace(replFirst), strings.TrimSpace(replLast)

	total := 0
	if first != "" && last != "" && replFirst != "" && replLast != "" {
		var n int
		text, n = replaceWord(text, regexp.QuoteMeta(first)+`\s+`+regexp.QuoteMeta(last), replFirst+" "+replLast)
		total += n
	}
	if first != "" && replFirst != "" {
		var n int
		text, n = replaceWord(text, regexp.QuoteMeta(first), replFirst)
		total += n
	}
	if last != "" && replLast != "" {
		var n int
		text, n = replaceWord(text, regexp.QuoteMeta(last), replLast)
		total += n
	}
	return text, total
}

// Apply runs Names and records the mapping for the stored analysis.
func Apply(text, first, last, replFirst, replLast string) Result {
	out, n := Names(text, first, last, replFirst, replLast)
	return Result{
		Text:         out,
		Replacements: n,
		Original:     strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last)),
		Replacement:  strings.TrimSpace(strings.TrimSpace(replFirst) + " " + strings.TrimSpace(replLast)),
	}
}

// replaceWord replaces whole-word matches of pattern. Word edges are checked
// on decoded runes since \b in RE2 only knows ASCII word characters.
func replaceWord(text, pattern, replacement string) (string, int) {
	re := regexp.MustCompile(`(?i)` + pattern + `(['’][sS])?`)
	var b strings.Builder
	last, count := 0, 0
	for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		suffix := ""
		if m[2] >= 0 {
			if wordEndsAt(text, end) {
				suffix = text[m[2]:m[3]]
			} else {
				end = m[2]
			}
		}
		if !wordStartsAt(text, start) || !wordEndsAt(text, end) {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(replacement)
		b.WriteString(suffix)
		last = end
		count++
	}
	if count == 0 {
		return text, 0
	}
	b.WriteString(text[last:])
	return b.String(), count
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.Is(unicode.Mn, r)
}

func wordStartsAt(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func wordEndsAt(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}
