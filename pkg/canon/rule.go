// CLAUDE:SUMMARY First-match rule engine: clauses (substring/equality/length predicates), rewrites, nested sub-cascades.
package canon

import (
	"fmt"
	"strings"
)

// Clause is a conjunction of predicates over a normalized string.
// Empty fields are ignored; a clause with no predicates never matches.
type Clause struct {
	Any    []string `yaml:"any,omitempty" json:"any,omitempty"`
	All    []string `yaml:"all,omitempty" json:"all,omitempty"`
	None   []string `yaml:"none,omitempty" json:"none,omitempty"`
	Equals []string `yaml:"equals,omitempty" json:"equals,omitempty"`
	Prefix []string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	MaxLen int      `yaml:"max_len,omitempty" json:"max_len,omitempty"`
	Words  int      `yaml:"words,omitempty" json:"words,omitempty"`
}

func (c *Clause) empty() bool {
	return len(c.Any) == 0 && len(c.All) == 0 && len(c.Equals) == 0 && len(c.Prefix) == 0
}

func (c *Clause) matches(s string) bool {
	if c.empty() {
		return false
	}
	if len(c.Any) > 0 && !containsAny(s, c.Any) {
		return false
	}
	for _, sub := range c.All {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	if containsAny(s, c.None) {
		return false
	}
	if len(c.Equals) > 0 && !equalsAny(s, c.Equals) {
		return false
	}
	if len(c.Prefix) > 0 && !hasAnyPrefix(s, c.Prefix) {
		return false
	}
	// Lengths are byte counts; normalized text is ASCII.
	if c.MaxLen > 0 && len(s) > c.MaxLen {
		return false
	}
	if c.Words > 0 && len(strings.Fields(s)) != c.Words {
		return false
	}
	return true
}

// Replacement is a literal substring rewrite, applied to every occurrence.
type Replacement struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// Rule is one step of a cascade. It fires when any of its When clauses
// matches. A fired rule first applies Rewrite, then tries Then; if no
// sub-rule commits, it returns Label, or the rewritten text when Keep is
// set. A rule with neither only rewrites and lets the cascade continue.
type Rule struct {
	Name    string        `yaml:"name" json:"name"`
	Label   string        `yaml:"label,omitempty" json:"label,omitempty"`
	Keep    bool          `yaml:"keep,omitempty" json:"keep,omitempty"`
	When    []Clause      `yaml:"when" json:"when"`
	Rewrite []Replacement `yaml:"rewrite,omitempty" json:"rewrite,omitempty"`
	Then    Cascade       `yaml:"then,omitempty" json:"then,omitempty"`
}

func (r *Rule) matches(s string) bool {
	for i := range r.When {
		if r.When[i].matches(s) {
			return true
		}
	}
	return false
}

// Cascade is an ordered rule list evaluated top-down, first match wins.
type Cascade []Rule

// Match is the outcome of evaluating a cascade.
type Match struct {
	Matched bool
	Label   string
	Rule    string // slash-separated path of the committing rule
	Text    string // input after every rewrite that fired
}

// Evaluate scans the cascade against s.
func (c Cascade) Evaluate(s string) Match {
	for i := range c {
		r := &c[i]
		if !r.matches(s) {
			continue
		}
		s = applyReplacements(s, r.Rewrite)
		if len(r.Then) > 0 {
			m := r.Then.Evaluate(s)
			if m.Matched {
				m.Rule = r.Name + "/" + m.Rule
				return m
			}
			s = m.Text
		}
		switch {
		case r.Label != "":
			return Match{Matched: true, Label: r.Label, Rule: r.Name, Text: s}
		case r.Keep:
			return Match{Matched: true, Label: s, Rule: r.Name, Text: s}
		}
	}
	return Match{Text: s}
}

// Labels returns every fixed label the cascade can commit to, in rule order.
func (c Cascade) Labels() []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(Cascade)
	walk = func(c Cascade) {
		for i := range c {
			walk(c[i].Then)
			if l := c[i].Label; l != "" && !seen[l] {
				seen[l] = true
				out = append(out, l)
			}
		}
	}
	walk(c)
	return out
}

// Len counts rules including nested ones.
func (c Cascade) Len() int {
	n := 0
	for i := range c {
		n += 1 + c[i].Then.Len()
	}
	return n
}

func (c Cascade) validate(path string) error {
	names := make(map[string]bool, len(c))
	for i := range c {
		r := &c[i]
		where := fmt.Sprintf("%srule %d", path, i)
		if r.Name == "" {
			return fmt.Errorf("%s: missing name", where)
		}
		if names[r.Name] {
			return fmt.Errorf("%s: duplicate name %q", where, r.Name)
		}
		names[r.Name] = true
		if len(r.When) == 0 {
			return fmt.Errorf("%s (%s): no when clauses", where, r.Name)
		}
		for j := range r.When {
			if r.When[j].empty() {
				return fmt.Errorf("%s (%s): clause %d has no positive predicate", where, r.Name, j)
			}
		}
		if r.Label != "" && r.Keep {
			return fmt.Errorf("%s (%s): label and keep are exclusive", where, r.Name)
		}
		if r.Label == "" && !r.Keep && len(r.Rewrite) == 0 && len(r.Then) == 0 {
			return fmt.Errorf("%s (%s): rule has no effect", where, r.Name)
		}
		for _, rep := range r.Rewrite {
			if rep.From == "" {
				return fmt.Errorf("%s (%s): empty rewrite source", where, r.Name)
			}
		}
		if err := r.Then.validate(path + r.Name + "/"); err != nil {
			return err
		}
	}
	return nil
}

func applyReplacements(s string, reps []Replacement) string {
	for _, rep := range reps {
		s = strings.ReplaceAll(s, rep.From, rep.To)
	}
	return s
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func equalsAny(s string, vals []string) bool {
	for _, v := range vals {
		if s == v {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
