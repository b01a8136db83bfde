package answer

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	bracketNote = regexp.MustCompile(`\[[^\]]*\]`)
	parenNote   = regexp.MustCompile(`\([^)]*\)`)
	powerMark   = regexp.MustCompile(`\(\*\)`)
)

// StripMarkup turns provider HTML (bold/underline answer lines, entities,
// line breaks) into plain text with collapsed whitespace.
func StripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapseSpace(s)
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or malformed markup; either way keep what was decoded
			return collapseSpace(b.String())
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				if tt == html.StartTagToken {
					skip++
				}
			case "br", "p", "div", "li":
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				if skip > 0 {
					skip--
				}
			case "p", "div", "li":
				b.WriteByte(' ')
			}
		}
	}
}

// SanitizeProvided strips markup and the bracketed/parenthesized annotations
// ("[accept Sinai]", "(prompt on ...)") from a provider answer line.
func SanitizeProvided(s string) string {
	s = StripMarkup(s)
	s = bracketNote.ReplaceAllString(s, " ")
	s = parenNote.ReplaceAllString(s, " ")
	return strings.TrimSpace(collapseSpace(s))
}

func cleanQuestion(s string) string {
	s = StripMarkup(s)
	s = powerMark.ReplaceAllString(s, " ")
	return collapseSpace(s)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
