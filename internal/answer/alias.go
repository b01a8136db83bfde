package answer

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed aliases.yaml
var defaultAliasesYAML []byte

// Exception actions.
const (
	ActionAccept = "accept"
	ActionReject = "reject"
)

type AliasEntry struct {
	Canonical string   `yaml:"canonical" json:"canonical"`
	Aliases   []string `yaml:"aliases" json:"aliases"`
}

// Exception is a question-specific override. Accept rules credit Answers when
// the question mentions every AllOf keyword and at least one AnyOf keyword;
// reject rules force those answers wrong. Disabled rules are ignored.
type Exception struct {
	Name      string   `yaml:"name" json:"name"`
	Action    string   `yaml:"action" json:"action"`
	Enabled   bool     `yaml:"enabled" json:"enabled"`
	Canonical string   `yaml:"canonical,omitempty" json:"canonical,omitempty"`
	AllOf     []string `yaml:"question_all_of,omitempty" json:"question_all_of,omitempty"`
	AnyOf     []string `yaml:"question_any_of,omitempty" json:"question_any_of,omitempty"`
	Answers   []string `yaml:"answers" json:"answers"`
}

type aliasFile struct {
	Version    int          `yaml:"version"`
	Aliases    []AliasEntry `yaml:"aliases"`
	Exceptions []Exception  `yaml:"exceptions"`
}

type compiledException struct {
	Exception
	allOf   []string
	anyOf   []string
	answers map[string]struct{}
}

// AliasTable maps canonical answers to accepted alternates. It is read-only
// once built and safe for concurrent use.
type AliasTable struct {
	entries    []AliasEntry
	byCanon    map[string]map[string]struct{}
	exceptions []compiledException
}

// NewAliasTable indexes entries and exceptions by normalized text.
func NewAliasTable(entries []AliasEntry, exceptions []Exception) (*AliasTable, error) {
	t := &AliasTable{byCanon: map[string]map[string]struct{}{}}
	var errs []error
	for i, e := range entries {
		canon := Normalize(e.Canonical)
		if canon == "" {
			errs = append(errs, fmt.Errorf("aliases[%d]: canonical is required", i))
			continue
		}
		set := t.byCanon[canon]
		if set == nil {
			set = map[string]struct{}{}
			t.byCanon[canon] = set
		}
		for _, a := range e.Aliases {
			if n := Normalize(a); n != "" {
				set[n] = struct{}{}
			}
		}
		t.entries = append(t.entries, e)
	}
	for i, x := range exceptions {
		action := strings.ToLower(strings.TrimSpace(x.Action))
		if action != ActionAccept && action != ActionReject {
			errs = append(errs, fmt.Errorf("exceptions[%d] %q: action must be accept or reject", i, x.Name))
			continue
		}
		x.Action = action
		cx := compiledException{Exception: x, answers: map[string]struct{}{}}
		for _, a := range x.Answers {
			if n := Normalize(a); n != "" {
				cx.answers[n] = struct{}{}
			}
		}
		if len(cx.answers) == 0 {
			errs = append(errs, fmt.Errorf("exceptions[%d] %q: answers are required", i, x.Name))
			continue
		}
		cx.allOf = normalizeAll(x.AllOf)
		cx.anyOf = normalizeAll(x.AnyOf)
		if len(cx.allOf) == 0 && len(cx.anyOf) == 0 {
			errs = append(errs, fmt.Errorf("exceptions[%d] %q: needs question keywords", i, x.Name))
			continue
		}
		if action == ActionAccept && Normalize(x.Canonical) == "" {
			cx.Canonical = x.Answers[0]
		}
		t.exceptions = append(t.exceptions, cx)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return t, nil
}

// ParseAliasTable decodes the YAML alias file format.
func ParseAliasTable(data []byte) (*AliasTable, error) {
	var f aliasFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return NewAliasTable(nil, nil)
		}
		return nil, fmt.Errorf("parse aliases: %w", err)
	}
	return NewAliasTable(f.Aliases, f.Exceptions)
}

// LoadAliasTable reads an alias file from disk.
func LoadAliasTable(path string) (*AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read aliases: %w", err)
	}
	return ParseAliasTable(data)
}

var (
	defaultAliasesOnce sync.Once
	defaultAliases     *AliasTable
)

// DefaultAliasTable returns the built-in table. An unreadable built-in file
// yields an empty table.
func DefaultAliasTable() *AliasTable {
	defaultAliasesOnce.Do(func() {
		t, err := ParseAliasTable(defaultAliasesYAML)
		if err != nil {
			t, _ = NewAliasTable(nil, nil)
		}
		defaultAliases = t
	})
	return defaultAliases
}

func (t *AliasTable) Entries() []AliasEntry {
	if t == nil {
		return nil
	}
	return append([]AliasEntry(nil), t.entries...)
}

// Accepts reports whether normalized user is an alias of normalized canonical.
func (t *AliasTable) Accepts(canonical, user string) bool {
	if t == nil || canonical == "" || user == "" {
		return false
	}
	_, ok := t.byCanon[canonical][user]
	return ok
}

// exception returns the first enabled exception with the given action that
// matches the normalized question and user answer.
func (t *AliasTable) exception(action, question, user string) *compiledException {
	if t == nil || user == "" {
		return nil
	}
	for i := range t.exceptions {
		x := &t.exceptions[i]
		if !x.Enabled || x.Action != action {
			continue
		}
		if _, ok := x.answers[user]; !ok {
			continue
		}
		if x.matchesQuestion(question) {
			return x
		}
	}
	return nil
}

func (x *compiledException) matchesQuestion(question string) bool {
	for _, k := range x.allOf {
		if !containsPhrase(question, k) {
			return false
		}
	}
	if len(x.anyOf) == 0 {
		return true
	}
	for _, k := range x.anyOf {
		if containsPhrase(question, k) {
			return true
		}
	}
	return false
}

func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if n := Normalize(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}
