package answer

import (
	"strings"
	"sync"
	"unicode/utf8"
)

// Decision rules reported in MatchResult.Rule.
const (
	RuleExact      = "exact"
	RuleAlias      = "alias"
	RuleException  = "exception"
	RuleSubstring  = "substring"
	RuleOverlap    = "overlap"
	RuleProperNoun = "proper_noun"
	RuleRejected   = "rejected"
)

const (
	DefaultExtractedOverlap = 0.6
	DefaultWeakOverlap      = 0.4
	DefaultMinContainLen    = 3
	DefaultMinTokenLen      = 4
)

// MatchResult is the verdict for one user answer. Tier is empty unless
// Correct; Matched is the crediting candidate, or the best candidate for
// display when the answer was judged wrong.
type MatchResult struct {
	Correct bool       `json:"correct"`
	Matched *Candidate `json:"matched,omitempty"`
	Tier    Tier       `json:"tier,omitempty"`
	Rule    string     `json:"rule,omitempty"`
	Overlap float64    `json:"overlap,omitempty"`
}

type Options struct {
	Aliases *AliasTable
	Rules   []ExtractionRule

	ExtractedOverlap float64
	WeakOverlap      float64
	MinContainLen    int
	MinTokenLen      int

	// StrictAuthoritative stops extracted and weak candidates from earning
	// credit when the provider supplied an answer.
	StrictAuthoritative bool
}

type Option func(*Options)

func WithAliases(t *AliasTable) Option { return func(o *Options) { o.Aliases = t } }

func WithRules(rules ...ExtractionRule) Option {
	return func(o *Options) { o.Rules = append([]ExtractionRule(nil), rules...) }
}

func WithOverlapThresholds(extracted, weak float64) Option {
	return func(o *Options) {
		o.ExtractedOverlap = extracted
		o.WeakOverlap = weak
	}
}

func WithStrictAuthoritative(strict bool) Option {
	return func(o *Options) { o.StrictAuthoritative = strict }
}

// Engine resolves candidates and judges answers. It holds no per-question
// state and is safe for concurrent use.
type Engine struct {
	aliases *AliasTable
	rules   []ExtractionRule
	opts    Options
}

func NewEngine(opts ...Option) *Engine {
	o := Options{}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	if o.Aliases == nil {
		o.Aliases = DefaultAliasTable()
	}
	if o.Rules == nil {
		o.Rules = DefaultRules()
	}
	if o.ExtractedOverlap <= 0 {
		o.ExtractedOverlap = DefaultExtractedOverlap
	}
	if o.WeakOverlap <= 0 {
		o.WeakOverlap = DefaultWeakOverlap
	}
	if o.MinContainLen <= 0 {
		o.MinContainLen = DefaultMinContainLen
	}
	if o.MinTokenLen <= 0 {
		o.MinTokenLen = DefaultMinTokenLen
	}
	return &Engine{
		aliases: o.Aliases,
		rules:   sortRules(o.Rules),
		opts:    o,
	}
}

func (e *Engine) Aliases() *AliasTable { return e.aliases }

var defaultEngine = sync.OnceValue(func() *Engine { return NewEngine() })

// Evaluate judges userAnswer with the default engine.
func Evaluate(questionText, providedAnswer, userAnswer string) MatchResult {
	return defaultEngine().Evaluate(questionText, providedAnswer, userAnswer)
}

// Resolve lists candidates with the default engine.
func Resolve(questionText, providedAnswer string) []Candidate {
	return defaultEngine().Resolve(questionText, providedAnswer)
}

// Evaluate decides whether userAnswer names the question's answer.
func (e *Engine) Evaluate(questionText, providedAnswer, userAnswer string) MatchResult {
	if Normalize(userAnswer) == "" {
		return MatchResult{}
	}
	return e.Judge(e.Prepare(questionText, providedAnswer), userAnswer)
}

// Judge runs the decision tiers against a prepared question. The first
// satisfied tier wins.
func (e *Engine) Judge(p *Prepared, userAnswer string) MatchResult {
	user := Normalize(userAnswer)
	if user == "" || p == nil {
		return MatchResult{}
	}
	miss := MatchResult{Matched: p.Best()}

	if x := e.aliases.exception(ActionReject, p.normalizedQ, user); x != nil {
		miss.Rule = RuleRejected
		return miss
	}

	candidates := e.creditable(p.Candidates)

	for i := range candidates {
		if candidates[i].Normalized == user {
			return hit(candidates[i], RuleExact)
		}
	}

	for i := range candidates {
		if e.aliases.Accepts(candidates[i].Normalized, user) {
			return hit(candidates[i], RuleAlias)
		}
	}
	if x := e.aliases.exception(ActionAccept, p.normalizedQ, user); x != nil {
		return hit(newCandidate(x.Canonical, TierWeak, SourceException), RuleException)
	}

	for i := range candidates {
		if e.contains(candidates[i].Normalized, user) {
			return hit(candidates[i], RuleSubstring)
		}
	}

	for i := range candidates {
		c := candidates[i]
		threshold, ok := e.overlapThreshold(c.Tier)
		if !ok {
			continue
		}
		frac, compared := tokenOverlap(c.Normalized, user, e.opts.MinTokenLen)
		if compared > 0 && frac >= threshold {
			r := hit(c, RuleOverlap)
			r.Overlap = frac
			return r
		}
	}

	if !e.strict(p.Candidates) {
		for _, w := range p.properNouns {
			if Normalize(w) == user {
				return hit(newCandidate(w, TierWeak, SourceProperNoun), RuleProperNoun)
			}
		}
	}

	return miss
}

func hit(c Candidate, rule string) MatchResult {
	return MatchResult{Correct: true, Matched: &c, Tier: c.Tier, Rule: rule}
}

func (e *Engine) strict(all []Candidate) bool {
	return e.opts.StrictAuthoritative && len(all) > 0 && all[0].Tier == TierAuthoritative
}

func (e *Engine) creditable(all []Candidate) []Candidate {
	if !e.strict(all) {
		return all
	}
	out := make([]Candidate, 0, 1)
	for _, c := range all {
		if c.Tier == TierAuthoritative {
			out = append(out, c)
		}
	}
	return out
}

func (e *Engine) overlapThreshold(t Tier) (float64, bool) {
	switch t {
	case TierExtracted:
		return e.opts.ExtractedOverlap, true
	case TierWeak:
		return e.opts.WeakOverlap, true
	default:
		return 0, false
	}
}

// contains reports token-aligned containment in either direction. Both the
// candidate and the contained side must reach the minimum length.
func (e *Engine) contains(candidate, user string) bool {
	floor := e.opts.MinContainLen
	if utf8.RuneCountInString(candidate) < floor {
		return false
	}
	if containsPhrase(user, candidate) {
		return true
	}
	return utf8.RuneCountInString(user) >= floor && containsPhrase(candidate, user)
}

// containsPhrase reports whether needle occurs in haystack on token
// boundaries. Both arguments are normalized text.
func containsPhrase(haystack, needle string) bool {
	if needle == "" || haystack == "" {
		return false
	}
	return strings.Contains(" "+haystack+" ", " "+needle+" ")
}

// tokenOverlap is the fraction of the candidate's long tokens that share a
// substring relation with some long user token. compared is zero when either
// side has no long tokens.
func tokenOverlap(candidate, user string, minLen int) (frac float64, compared int) {
	ct := longTokens(candidate, minLen)
	ut := longTokens(user, minLen)
	if len(ct) == 0 || len(ut) == 0 {
		return 0, 0
	}
	matched := 0
	for _, c := range ct {
		for _, u := range ut {
			if strings.Contains(u, c) || strings.Contains(c, u) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(ct)), len(ct)
}

func longTokens(s string, minLen int) []string {
	var out []string
	for _, t := range Tokens(s) {
		if utf8.RuneCountInString(t) >= minLen {
			out = append(out, t)
		}
	}
	return out
}
