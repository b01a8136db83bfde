package answer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ExtractionRule recognizes an ask clause ("name this X") and captures X in
// group 1. Rules are tried by descending Priority, then declaration order.
type ExtractionRule struct {
	Name     string
	Pattern  *regexp.Regexp
	Priority int
}

// NewExtractionRule compiles pattern case-insensitively.
func NewExtractionRule(name, pattern string, priority int) (ExtractionRule, error) {
	re, err := regexp.Compile(`(?i)` + pattern)
	if err != nil {
		return ExtractionRule{}, fmt.Errorf("rule %q: %w", name, err)
	}
	if re.NumSubexp() < 1 {
		return ExtractionRule{}, fmt.Errorf("rule %q: pattern needs a capture group", name)
	}
	return ExtractionRule{Name: name, Pattern: re, Priority: priority}, nil
}

func mustRule(name, pattern string, priority int) ExtractionRule {
	r, err := NewExtractionRule(name, pattern, priority)
	if err != nil {
		panic(err)
	}
	return r
}

const pointsLead = `(?:for\s+(?:\d+|ten|fifteen|twenty)\s+points?|ftp)[\s,:;\-–—]*`

// DefaultRules returns the built-in ask-clause grammar.
func DefaultRules() []ExtractionRule {
	return []ExtractionRule{
		mustRule("points_name_this", `\b`+pointsLead+`(?:name|identify|give)\s+(?:this|these)\s+(.+)`, 100),
		mustRule("name_this", `\bname\s+(?:this|these)\s+(.+)`, 90),
		mustRule("identify_this", `\bidentify\s+(?:this|these)\s+(.+)`, 80),
		mustRule("what_is_this", `\bwhat\s+(?:is|was|are|were)\s+(?:this|these)\s+(.+)`, 70),
		mustRule("what_is_described", `\bwhat\s+(.+?)\s+(?:is|was)\s+(?:described|mentioned)\b`, 60),
		mustRule("this_is_named", `\bthis\s+(.+?)\s+(?:is|was)\s+(?:named|called|known)\b`, 50),
	}
}

func sortRules(rules []ExtractionRule) []ExtractionRule {
	out := make([]ExtractionRule, 0, len(rules))
	for _, r := range rules {
		if r.Pattern != nil {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

var leadingArticle = regexp.MustCompile(`(?i)^(?:the|a|an)\s+`)

const captureTrim = " \t\r\n,;:.!?\"'“”‘’()[]-–—"

// applyRules returns the cleaned capture of the first matching rule.
func applyRules(rules []ExtractionRule, clause string) (string, string, bool) {
	for _, r := range rules {
		m := r.Pattern.FindStringSubmatch(clause)
		if len(m) < 2 {
			continue
		}
		capture := strings.Trim(m[1], captureTrim)
		capture = leadingArticle.ReplaceAllString(capture, "")
		capture = strings.Trim(capture, captureTrim)
		if capture == "" {
			continue
		}
		return capture, r.Name, true
	}
	return "", "", false
}
