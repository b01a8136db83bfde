package answer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var articles = map[string]struct{}{
	"the": {},
	"a":   {},
	"an":  {},
}

// Normalize maps text to its canonical comparison form: compatibility folded,
// lower-cased, accent-free, punctuation removed, whitespace collapsed, with one
// leading article dropped. It is total and idempotent.
func Normalize(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	s := norm.NFKC.String(text)
	s = strings.ToLower(s)
	s = foldAccents(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r), r == '_':
			// spacing marks survive folding and belong to the previous letter
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
		// everything else is dropped without a gap: "u.s.a." -> "usa"
	}

	tokens := strings.Fields(b.String())
	if len(tokens) >= 2 && isArticle(tokens[0]) && !isArticle(tokens[1]) {
		tokens = tokens[1:]
	}
	return strings.Join(tokens, " ")
}

// Tokens splits an already-normalized string.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}

func isArticle(tok string) bool {
	_, ok := articles[tok]
	return ok
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
