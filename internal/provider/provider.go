// Package provider defines where tossup questions come from.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Question is one tossup as delivered by a provider. ProvidedAnswer may be
// empty, partially sanitized, or carry markup and bracketed notes.
type Question struct {
	ID             string `json:"id"`
	Text           string `json:"question"`
	ProvidedAnswer string `json:"provided_answer,omitempty"`
	Category       string `json:"category,omitempty"`
	Subcategory    string `json:"subcategory,omitempty"`
	Difficulty     int    `json:"difficulty,omitempty"`
}

// Categories accepted by Filter.Category.
var Categories = []string{
	"literature",
	"history",
	"science",
	"fine-arts",
	"religion",
	"mythology",
	"philosophy",
	"social-science",
	"current-events",
	"geography",
	"other",
}

const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

var ErrInvalidFilter = errors.New("invalid question filter")

// Filter narrows the random draw. Zero values mean "any".
type Filter struct {
	Category   string `json:"category,omitempty"`
	Difficulty int    `json:"difficulty,omitempty"`
}

func (f Filter) Normalized() Filter {
	f.Category = strings.ToLower(strings.TrimSpace(f.Category))
	if f.Category == "all" {
		f.Category = ""
	}
	return f
}

func (f Filter) Validate() error {
	f = f.Normalized()
	if f.Category != "" && !IsCategory(f.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidFilter, f.Category)
	}
	if f.Difficulty != 0 && (f.Difficulty < MinDifficulty || f.Difficulty > MaxDifficulty) {
		return fmt.Errorf("%w: difficulty must be %d-%d", ErrInvalidFilter, MinDifficulty, MaxDifficulty)
	}
	return nil
}

func IsCategory(c string) bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// Provider draws random tossups.
type Provider interface {
	Name() string
	RandomTossup(ctx context.Context, f Filter) (Question, error)
}

// ErrNoQuestions means the source had nothing matching the filter.
var ErrNoQuestions = errors.New("no questions available")
