// Package static serves tossups from a local YAML seed, for offline play and
// tests.
package static

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/tossup-backend/internal/config"
	"github.com/yungbote/tossup-backend/internal/provider"
)

//go:embed seed.yaml
var seedYAML []byte

type seedFile struct {
	Tossups []seedTossup `yaml:"tossups"`
}

type seedTossup struct {
	ID          string `yaml:"id"`
	Question    string `yaml:"question"`
	Answer      string `yaml:"answer"`
	Category    string `yaml:"category"`
	Subcategory string `yaml:"subcategory"`
	Difficulty  int    `yaml:"difficulty"`
}

type Provider struct {
	questions []provider.Question

	mu  sync.Mutex
	rnd *rand.Rand
}

// New serves questions, drawing with rnd (a time-seeded source when nil).
func New(questions []provider.Question, rnd *rand.Rand) *Provider {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Provider{questions: append([]provider.Question(nil), questions...), rnd: rnd}
}

// FromConfig loads cfg.SeedPath, or the built-in seed when unset.
func FromConfig(cfg config.ProviderConfig) (*Provider, error) {
	data := seedYAML
	if p := strings.TrimSpace(cfg.SeedPath); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("static provider: read seed: %w", err)
		}
		data = b
	}
	qs, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return New(qs, nil), nil
}

// Parse decodes a seed file.
func Parse(data []byte) ([]provider.Question, error) {
	var f seedFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("static provider: parse seed: %w", err)
	}
	out := make([]provider.Question, 0, len(f.Tossups))
	seen := map[string]struct{}{}
	for i, t := range f.Tossups {
		if strings.TrimSpace(t.ID) == "" || strings.TrimSpace(t.Question) == "" {
			return nil, fmt.Errorf("static provider: tossups[%d]: id and question are required", i)
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("static provider: duplicate id %q", t.ID)
		}
		seen[t.ID] = struct{}{}
		out = append(out, provider.Question{
			ID:             t.ID,
			Text:           strings.TrimSpace(t.Question),
			ProvidedAnswer: strings.TrimSpace(t.Answer),
			Category:       strings.ToLower(strings.TrimSpace(t.Category)),
			Subcategory:    t.Subcategory,
			Difficulty:     t.Difficulty,
		})
	}
	return out, nil
}

func (p *Provider) Name() string { return config.ProviderStatic }

func (p *Provider) Len() int { return len(p.questions) }

func (p *Provider) RandomTossup(ctx context.Context, f provider.Filter) (provider.Question, error) {
	if err := ctx.Err(); err != nil {
		return provider.Question{}, err
	}
	f = f.Normalized()
	var pool []int
	for i, q := range p.questions {
		if f.Category != "" && q.Category != f.Category {
			continue
		}
		if f.Difficulty != 0 && q.Difficulty != f.Difficulty {
			continue
		}
		pool = append(pool, i)
	}
	if len(pool) == 0 {
		return provider.Question{}, provider.ErrNoQuestions
	}
	p.mu.Lock()
	i := pool[p.rnd.IntN(len(pool))]
	p.mu.Unlock()
	return p.questions[i], nil
}
