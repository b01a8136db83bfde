package app

import (
	"fmt"

	"github.com/yungbote/tossup-backend/internal/answer"
	"github.com/yungbote/tossup-backend/internal/config"
	"github.com/yungbote/tossup-backend/internal/provider"
	"github.com/yungbote/tossup-backend/internal/provider/qbreader"
	"github.com/yungbote/tossup-backend/internal/provider/static"
)

// NewProvider builds the question source named by cfg.Type.
func NewProvider(cfg config.ProviderConfig) (provider.Provider, error) {
	switch cfg.Type {
	case config.ProviderQBReader:
		c, err := qbreader.New(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.ProviderStatic:
		p, err := static.FromConfig(cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
}

// NewEngine builds the answer engine with the configured alias table and
// overlap thresholds. Zero thresholds keep the engine defaults.
func NewEngine(cfg config.MatchingConfig) (*answer.Engine, error) {
	opts := []answer.Option{
		answer.WithOverlapThresholds(cfg.ExtractedOverlap, cfg.WeakOverlap),
		answer.WithStrictAuthoritative(cfg.StrictAuthoritative),
	}
	if cfg.AliasesPath != "" {
		table, err := answer.LoadAliasTable(cfg.AliasesPath)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.AliasesPath, err)
		}
		opts = append(opts, answer.WithAliases(table))
	}
	return answer.NewEngine(opts...), nil
}
