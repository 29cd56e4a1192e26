package canon

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"sync"
)

//go:embed rules/*.yaml
var embeddedRules embed.FS

// ErrUnknownDomain is returned when no canonicalizer serves a domain.
var ErrUnknownDomain = errors.New("unknown canonicalization domain")

// Registry holds one canonicalizer per domain. It is built once and never
// mutated afterwards.
type Registry struct {
	byDomain map[string]*Canonicalizer
}

// NewRegistry builds a registry from rulesets. Two rulesets for the same
// domain are an error.
func NewRegistry(rulesets ...*Ruleset) (*Registry, error) {
	r := &Registry{byDomain: make(map[string]*Canonicalizer, len(rulesets))}
	for _, rs := range rulesets {
		c, err := NewCanonicalizer(rs)
		if err != nil {
			return nil, err
		}
		if _, dup := r.byDomain[rs.Domain]; dup {
			return nil, fmt.Errorf("domain %s defined twice (ruleset %s)", rs.Domain, rs.ID)
		}
		r.byDomain[rs.Domain] = c
	}
	return r, nil
}

// LoadRegistryFS loads every *.yaml ruleset found at the root of fsys.
func LoadRegistryFS(fsys fs.FS) (*Registry, error) {
	names, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, fmt.Errorf("list rulesets: %w", err)
	}
	sort.Strings(names)
	rulesets := make([]*Ruleset, 0, len(names))
	for _, name := range names {
		rs, err := LoadRulesetFS(fsys, name)
		if err != nil {
			return nil, err
		}
		rulesets = append(rulesets, rs)
	}
	return NewRegistry(rulesets...)
}

// EmbeddedRules exposes the built-in rule tables.
func EmbeddedRules() fs.FS {
	sub, err := fs.Sub(embeddedRules, "rules")
	if err != nil {
		panic(err)
	}
	return sub
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	r, err := LoadRegistryFS(EmbeddedRules())
	if err != nil {
		panic(fmt.Sprintf("canon: embedded rules: %v", err))
	}
	return r
})

// Default returns the registry built from the embedded rule tables.
func Default() *Registry {
	return defaultRegistry()
}

// Get returns the canonicalizer for domain.
func (r *Registry) Get(domain string) (*Canonicalizer, error) {
	c, ok := r.byDomain[domain]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
	}
	return c, nil
}

// Canonicalize is a shorthand for Get(domain) followed by Explain.
func (r *Registry) Canonicalize(domain string, v any) (Result, error) {
	c, err := r.Get(domain)
	if err != nil {
		return Result{}, err
	}
	return c.Explain(v), nil
}

// DomainInfo is the public metadata for a loaded ruleset.
type DomainInfo struct {
	Domain      string   `json:"domain"`
	ID          string   `json:"id"`
	Version     string   `json:"version"`
	Description string   `json:"description,omitempty"`
	Rules       int      `json:"rules"`
	Labels      []string `json:"labels"`
	Known       int      `json:"known,omitempty"`
}

// Domains returns metadata for every domain, sorted by domain name.
func (r *Registry) Domains() []DomainInfo {
	infos := make([]DomainInfo, 0, len(r.byDomain))
	for _, c := range r.byDomain {
		infos = append(infos, DomainInfo{
			Domain:      c.rs.Domain,
			ID:          c.rs.ID,
			Version:     c.rs.Version,
			Description: c.rs.Description,
			Rules:       c.rs.Rules.Len(),
			Labels:      c.rs.Labels(),
			Known:       len(c.known),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Domain < infos[j].Domain })
	return infos
}

// DomainCount returns the number of loaded domains.
func (r *Registry) DomainCount() int {
	return len(r.byDomain)
}
