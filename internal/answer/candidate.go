package answer

// Tier is the trust level of a candidate answer. The zero value means no tier.
type Tier string

const (
	TierAuthoritative Tier = "authoritative"
	TierExtracted     Tier = "extracted"
	TierWeak          Tier = "weak"
)

// Rank orders tiers from most to least trusted; unknown tiers sort last.
func (t Tier) Rank() int {
	switch t {
	case TierAuthoritative:
		return 0
	case TierExtracted:
		return 1
	case TierWeak:
		return 2
	default:
		return 3
	}
}

func (t Tier) Valid() bool { return t.Rank() < 3 }

// Candidate sources that are not extraction rule names.
const (
	SourceProvided   = "provided"
	SourceQuote      = "quote"
	SourceProperNoun = "proper_noun"
	SourceContext    = "context"
	SourceFallback   = "fallback"
	SourceException  = "exception"
)

// Candidate is one plausible canonical answer for a question.
type Candidate struct {
	Text       string `json:"text"`
	Normalized string `json:"normalized"`
	Tier       Tier   `json:"tier"`
	Source     string `json:"source"`
}

func newCandidate(text string, tier Tier, source string) Candidate {
	return Candidate{
		Text:       text,
		Normalized: Normalize(text),
		Tier:       tier,
		Source:     source,
	}
}

// candidateSet keeps discovery order and collapses duplicates by normalized
// text, so the first (highest tier) occurrence wins.
type candidateSet struct {
	items []Candidate
	seen  map[string]struct{}
}

func (s *candidateSet) add(c Candidate) bool {
	if s.seen == nil {
		s.seen = map[string]struct{}{}
	}
	key := c.Normalized
	if key == "" {
		key = "\x00" + c.Text
	}
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	s.items = append(s.items, c)
	return true
}

func (s *candidateSet) len() int { return len(s.items) }
