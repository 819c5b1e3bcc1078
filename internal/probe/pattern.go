package probe

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/psantana5/bustcall/internal/severity"
)

// Rule assigns a score to packages whose identifier contains a substring
type Rule struct {
	Contains string `yaml:"contains"`
	Score    int    `yaml:"score"`
}

// Rules is the on-disk rules file
type Rules struct {
	Default int    `yaml:"default"`
	Rules   []Rule `yaml:"rules"`
}

// DefaultRules returns the built-in heuristic: identifiers mentioning
// "corrupt" score critical, "warn" score warning, everything else is healthy.
func DefaultRules() Rules {
	return Rules{
		Default: 1,
		Rules: []Rule{
			{Contains: "corrupt", Score: 10},
			{Contains: "warn", Score: 5},
		},
	}
}

// Validate checks every rule has a substring and every score fits a Score
func (r Rules) Validate() error {
	if err := checkScore(r.Default); err != nil {
		return fmt.Errorf("default: %w", err)
	}
	for i, rule := range r.Rules {
		if rule.Contains == "" {
			return fmt.Errorf("rule %d: contains must not be empty", i)
		}
		if err := checkScore(rule.Score); err != nil {
			return fmt.Errorf("rule %d (%q): %w", i, rule.Contains, err)
		}
	}
	return nil
}

func checkScore(v int) error {
	if v < 0 || v > int(severity.MaxScore) {
		return fmt.Errorf("score %d out of range [0, %d]", v, severity.MaxScore)
	}
	return nil
}

// LoadRules loads rules from a YAML file
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules parses and validates YAML rules
func ParseRules(data []byte) (Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("failed to parse rules file: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, fmt.Errorf("invalid rules: %w", err)
	}
	return rules, nil
}

// Pattern scores packages by matching their identifier against rules.
// The first matching rule wins.
type Pattern struct {
	rules Rules
}

// NewPattern creates a pattern probe. Rules must be valid.
func NewPattern(rules Rules) (*Pattern, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &Pattern{rules: rules}, nil
}

// Assess implements Probe
func (p *Pattern) Assess(ctx context.Context, pkg string) (severity.Score, error) {
	if err := ctx.Err(); err != nil {
		return 0, &Error{Package: pkg, Probe: "pattern", Err: err}
	}
	for _, rule := range p.rules.Rules {
		if strings.Contains(pkg, rule.Contains) {
			return severity.Score(rule.Score), nil
		}
	}
	return severity.Score(p.rules.Default), nil
}

// ExampleRules documents the rules file format
const ExampleRules = `# bustcall pattern probe rules
#
# Rules are checked in order; the first rule whose "contains" substring
# appears in the package identifier decides the score.

# Score for packages no rule matches
default: 1

rules:
  - contains: corrupt
    score: 10        # critical: invalidate and restart
  - contains: warn
    score: 5         # warning: invalidate
`
