package canon

import (
	"sort"
	"strings"
)

// Outcome tells which terminal state produced a label.
type Outcome string

const (
	OutcomeMissing     Outcome = "missing"
	OutcomeMatched     Outcome = "matched"
	OutcomePassthrough Outcome = "passthrough"
	OutcomeFallback    Outcome = "fallback"
)

// Result is a canonical label together with how it was reached.
type Result struct {
	Domain     string  `json:"domain"`
	Normalized string  `json:"normalized"`
	Label      string  `json:"label"`
	Outcome    Outcome `json:"outcome"`
	Rule       string  `json:"rule,omitempty"`
}

// Canonicalizer maps raw field values of one domain to canonical labels.
// It holds no mutable state and is safe for concurrent use.
type Canonicalizer struct {
	rs    *Ruleset
	known map[string]struct{}
}

// NewCanonicalizer validates rs and builds a canonicalizer from it.
func NewCanonicalizer(rs *Ruleset) (*Canonicalizer, error) {
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	c := &Canonicalizer{rs: rs}
	if len(rs.Known) > 0 {
		c.known = make(map[string]struct{}, len(rs.Known))
		for _, k := range rs.Known {
			c.known[k] = struct{}{}
		}
	}
	return c, nil
}

// Domain returns the domain name of the underlying ruleset.
func (c *Canonicalizer) Domain() string { return c.rs.Domain }

// Ruleset returns the rule table the canonicalizer was built from.
func (c *Canonicalizer) Ruleset() *Ruleset { return c.rs }

// Canonicalize returns exactly one label for v. It never fails.
func (c *Canonicalizer) Canonicalize(v any) string {
	return c.Explain(v).Label
}

// Explain canonicalizes v and reports the rule that committed.
func (c *Canonicalizer) Explain(v any) Result {
	res := Result{Domain: c.rs.Domain}

	s, err := Stringify(v)
	if err != nil || strings.TrimSpace(s) == "" {
		res.Label = c.rs.Missing
		res.Outcome = OutcomeMissing
		return res
	}

	if d := c.rs.SplitBefore; d != "" {
		if i := strings.Index(s, d); i >= 0 {
			s = s[:i]
		}
	}
	text := c.stripSuffixes(NormalizeText(s))
	if text == "" && c.rs.SplitBefore == "" {
		res.Label = c.rs.Missing
		res.Outcome = OutcomeMissing
		return res
	}
	text = applyReplacements(text, c.rs.Corrections)
	res.Normalized = text

	m := c.rs.Rules.Evaluate(text)
	switch {
	case m.Matched:
		res.Label, res.Rule, res.Outcome = m.Label, m.Rule, OutcomeMatched
	case c.rs.Fallback != "":
		res.Label, res.Outcome = c.rs.Fallback, OutcomeFallback
	default:
		res.Label, res.Outcome = m.Text, OutcomePassthrough
	}
	return res
}

// stripSuffixes removes configured suffixes until none applies, so that
// stripping is stable under repeated canonicalization.
func (c *Canonicalizer) stripSuffixes(s string) string {
	for changed := len(c.rs.StripSuffixes) > 0; changed; {
		changed = false
		for _, suf := range c.rs.StripSuffixes {
			if strings.HasSuffix(s, suf) {
				s = strings.TrimSpace(strings.TrimSuffix(s, suf))
				changed = true
			}
		}
	}
	return s
}

// IsKnown reports whether label is in the ruleset's allow-list.
// Domains without an allow-list know nothing.
func (c *Canonicalizer) IsKnown(label string) bool {
	_, ok := c.known[label]
	return ok
}

// HasKnown reports whether the domain carries an allow-list.
func (c *Canonicalizer) HasKnown() bool { return len(c.known) > 0 }

// Known returns the allow-list, sorted.
func (c *Canonicalizer) Known() []string {
	out := make([]string, 0, len(c.known))
	for k := range c.known {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
