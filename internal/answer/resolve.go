package answer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	sentenceEnd  = regexp.MustCompile(`[.!?]+["'”’)\]]*\s+`)
	quotedPhrase = regexp.MustCompile(`"([^"]+)"|“([^”]+)”`)
	capWord      = `\p{Lu}(?:\p{Ll}|')[\p{L}']*`
	capRun       = regexp.MustCompile(capWord + `(?:\s+` + capWord + `)*`)
	capSingle    = regexp.MustCompile(capWord)
)

// Capitalized words that start sentences or clues without naming anything.
var capStopwords = map[string]struct{}{
	"a": {}, "after": {}, "along": {}, "also": {}, "although": {}, "an": {}, "another": {},
	"as": {}, "at": {}, "because": {}, "before": {}, "both": {}, "by": {}, "despite": {},
	"during": {}, "for": {}, "from": {}, "ftp": {}, "he": {}, "her": {}, "his": {},
	"identify": {}, "if": {}, "in": {}, "into": {}, "it": {}, "its": {}, "like": {},
	"many": {}, "name": {}, "of": {}, "on": {}, "one": {}, "other": {}, "she": {},
	"since": {}, "some": {}, "that": {}, "the": {}, "their": {}, "these": {}, "they": {},
	"this": {}, "those": {}, "though": {}, "under": {}, "unlike": {}, "upon": {},
	"what": {}, "when": {}, "which": {}, "while": {}, "who": {}, "whose": {}, "with": {},
}

// Feature nouns that trail a name, as in "Sinai Peninsula" or "Hudson River".
var contextNouns = map[string]struct{}{
	"peninsula": {}, "island": {}, "islands": {}, "mountain": {}, "mountains": {}, "river": {},
	"desert": {}, "ocean": {}, "sea": {}, "gulf": {}, "lake": {}, "bay": {}, "strait": {},
	"war": {}, "battle": {}, "treaty": {}, "agreement": {}, "theory": {}, "canal": {},
}

func isCapStopword(w string) bool {
	_, ok := capStopwords[strings.ToLower(strings.Trim(w, "'"))]
	return ok
}

// Prepared is a question resolved once and judged many times.
type Prepared struct {
	Question    string      `json:"question"`
	AskClause   string      `json:"ask_clause"`
	Candidates  []Candidate `json:"candidates"`
	properNouns []string
	normalizedQ string
}

// Prepare cleans the question and provided answer and resolves candidates.
func (e *Engine) Prepare(questionText, providedAnswer string) *Prepared {
	q := cleanQuestion(questionText)
	p := &Prepared{
		Question:    q,
		normalizedQ: Normalize(q),
	}
	var set candidateSet

	if provided := SanitizeProvided(providedAnswer); provided != "" {
		set.add(newCandidate(provided, TierAuthoritative, SourceProvided))
	}

	sentences := splitSentences(q)
	if len(sentences) > 0 {
		p.AskClause = sentences[len(sentences)-1]
	}
	if p.AskClause != "" {
		if capture, rule, ok := applyRules(e.rules, p.AskClause); ok {
			set.add(newCandidate(capture, TierExtracted, rule))
		}
	}

	for _, m := range quotedPhrase.FindAllStringSubmatch(q, -1) {
		text := m[1]
		if text == "" {
			text = m[2]
		}
		text = strings.Trim(text, captureTrim)
		if Normalize(text) == "" {
			continue
		}
		set.add(newCandidate(text, TierWeak, SourceQuote))
	}

	for _, loc := range capRun.FindAllStringIndex(q, -1) {
		if precededByLetter(q, loc[0]) {
			continue
		}
		words := strings.Fields(q[loc[0]:loc[1]])
		for len(words) > 0 && isCapStopword(words[0]) {
			words = words[1:]
		}
		if len(words) == 0 {
			continue
		}
		set.add(newCandidate(strings.Join(words, " "), TierWeak, SourceProperNoun))
		if n := len(words); n >= 2 {
			if _, ok := contextNouns[strings.ToLower(words[n-1])]; ok {
				set.add(newCandidate(strings.Join(words[:n-1], " "), TierWeak, SourceContext))
			}
		}
	}

	for _, loc := range capSingle.FindAllStringIndex(q, -1) {
		if precededByLetter(q, loc[0]) {
			continue
		}
		w := q[loc[0]:loc[1]]
		if isCapStopword(w) {
			continue
		}
		p.properNouns = append(p.properNouns, w)
	}

	if set.len() == 0 && strings.TrimSpace(questionText) != "" {
		text := p.AskClause
		if len(sentences) < 2 {
			text = finalSegment(q)
		}
		if text == "" {
			text = q
		}
		if text == "" {
			// markup-only input cleans to nothing; keep the raw text
			text = strings.TrimSpace(questionText)
		}
		set.add(newCandidate(text, TierWeak, SourceFallback))
	}

	p.Candidates = set.items
	return p
}

// Resolve returns the ordered candidate answers for a question.
func (e *Engine) Resolve(questionText, providedAnswer string) []Candidate {
	return e.Prepare(questionText, providedAnswer).Candidates
}

// Best is the highest-tier candidate, or nil when there are none.
func (p *Prepared) Best() *Candidate {
	if p == nil || len(p.Candidates) == 0 {
		return nil
	}
	c := p.Candidates[0]
	return &c
}

// splitSentences breaks plain text at sentence ends that are followed by an
// upper-case letter, digit or opening quote, so "U.S. president" stays whole.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		next, _ := utf8.DecodeRuneInString(text[loc[1]:])
		if !(unicode.IsUpper(next) || unicode.IsDigit(next) || strings.ContainsRune(`"“'‘(`, next)) {
			continue
		}
		if s := trimSentence(text[start:loc[1]]); s != "" {
			out = append(out, s)
		}
		start = loc[1]
	}
	if s := trimSentence(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func trimSentence(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), ".!? ")
}

func finalSegment(text string) string {
	parts := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == '.' })
	for i := len(parts) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(parts[i]); s != "" {
			return s
		}
	}
	return ""
}

func precededByLetter(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return unicode.IsLetter(r) || r == '\''
}
