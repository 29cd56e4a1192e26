// CLAUDE:SUMMARY Ruleset YAML schema: per-domain cascade, missing sentinel, fallback, preprocessing and known-set.
package canon

import (
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Ruleset is the versioned rule table of one canonicalization domain.
type Ruleset struct {
	ID          string `yaml:"id" json:"id"`
	Version     string `yaml:"version" json:"version"`
	Domain      string `yaml:"domain" json:"domain"`
	Description string `yaml:"description" json:"description,omitempty"`

	// Missing is returned for absent input before any cascade runs.
	Missing string `yaml:"missing" json:"missing"`
	// Fallback is returned when no rule fires. Empty means passthrough
	// of the cleaned text.
	Fallback string `yaml:"fallback" json:"fallback,omitempty"`

	// SplitBefore keeps only the raw text before the first delimiter.
	SplitBefore string `yaml:"split_before" json:"split_before,omitempty"`
	// StripSuffixes are removed from the end of the normalized text.
	StripSuffixes []string `yaml:"strip_suffixes" json:"strip_suffixes,omitempty"`
	// Corrections are literal typo fixes applied in order before the cascade.
	Corrections []Replacement `yaml:"corrections" json:"corrections,omitempty"`

	Rules Cascade `yaml:"rules" json:"rules"`

	// Known is an allow-list of canonical labels used by consumers to keep
	// or drop records (municipality only).
	Known []string `yaml:"known" json:"known,omitempty"`
}

// ParseRuleset decodes and validates a YAML ruleset.
func ParseRuleset(data []byte) (*Ruleset, error) {
	var rs Ruleset
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parse ruleset: %w", err)
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// LoadRuleset reads a ruleset file from disk.
func LoadRuleset(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ruleset %s: %w", path, err)
	}
	rs, err := ParseRuleset(data)
	if err != nil {
		return nil, fmt.Errorf("ruleset %s: %w", path, err)
	}
	return rs, nil
}

// LoadRulesetFS reads a ruleset from fsys (used for the embedded tables).
func LoadRulesetFS(fsys fs.FS, name string) (*Ruleset, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read ruleset %s: %w", name, err)
	}
	rs, err := ParseRuleset(data)
	if err != nil {
		return nil, fmt.Errorf("ruleset %s: %w", name, err)
	}
	return rs, nil
}

// Validate checks the ruleset is well formed. Every literal is expected in
// normalized form, since rules only ever see normalized text.
func (rs *Ruleset) Validate() error {
	if rs.ID == "" {
		return fmt.Errorf("ruleset: missing id")
	}
	if rs.Domain == "" {
		return fmt.Errorf("ruleset %s: missing domain", rs.ID)
	}
	if len(rs.Rules) == 0 {
		return fmt.Errorf("ruleset %s: no rules", rs.ID)
	}
	for _, c := range rs.Corrections {
		if c.From == "" {
			return fmt.Errorf("ruleset %s: empty correction source", rs.ID)
		}
	}
	for _, suf := range rs.StripSuffixes {
		if strings.TrimSpace(suf) == "" {
			return fmt.Errorf("ruleset %s: blank strip suffix", rs.ID)
		}
	}
	if err := rs.Rules.validate(""); err != nil {
		return fmt.Errorf("ruleset %s: %w", rs.ID, err)
	}
	for _, k := range rs.Known {
		if k != NormalizeText(k) {
			return fmt.Errorf("ruleset %s: known entry %q is not normalized", rs.ID, k)
		}
	}
	return nil
}

// Labels is the closed set of fixed labels the ruleset can produce:
// rule labels, then the fallback and missing sentinels when set.
func (rs *Ruleset) Labels() []string {
	labels := rs.Rules.Labels()
	for _, extra := range []string{rs.Fallback, rs.Missing} {
		if extra != "" && !contains(labels, extra) {
			labels = append(labels, extra)
		}
	}
	return labels
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
