package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/canon/pkg/canon"
)

// FieldMapping binds a source field to the domain that canonicalizes it and
// the derived field receiving the label.
type FieldMapping struct {
	Source string
	Target string
	Domain string
}

// DefaultMappings are the five canonical columns derived from a merged
// processos/clientes record.
var DefaultMappings = []FieldMapping{
	{Source: FieldCity, Target: FieldMunicipalityCanonical, Domain: canon.DomainMunicipality},
	{Source: FieldDefendant, Target: FieldPartyCanonical, Domain: canon.DomainParty},
	{Source: FieldJurisdiction, Target: FieldJurisdictionCanonical, Domain: canon.DomainJurisdiction},
	{Source: FieldLawsuitType, Target: FieldLawsuitTypeCategory, Domain: canon.DomainLawsuitType},
	{Source: FieldProfession, Target: FieldProfessionCanonical, Domain: canon.DomainProfession},
}

// FieldError reports a value that could not be canonicalized. The derived
// field then holds the raw value and the batch goes on.
type FieldError struct {
	Index int    `json:"index"`
	Field string `json:"field"`
	Raw   any    `json:"raw"`
	Err   error  `json:"-"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("record %d field %s: %v", e.Index, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// MarshalJSON renders the wrapped error as a message string.
func (e *FieldError) MarshalJSON() ([]byte, error) {
	type alias FieldError
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return json.Marshal(struct {
		*alias
		Message string `json:"error"`
	}{(*alias)(e), msg})
}

// Enricher adds canonical fields to batches of records in parallel.
type Enricher struct {
	mappings []mapping
	workers  int
	logger   *slog.Logger
}

type mapping struct {
	FieldMapping
	c *canon.Canonicalizer
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithWorkers bounds the number of records processed concurrently.
func WithWorkers(n int) Option {
	return func(e *Enricher) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger used for per-field fallbacks.
func WithLogger(l *slog.Logger) Option {
	return func(e *Enricher) { e.logger = l }
}

// NewEnricher resolves every mapping's domain against reg.
func NewEnricher(reg *canon.Registry, mappings []FieldMapping, opts ...Option) (*Enricher, error) {
	if len(mappings) == 0 {
		mappings = DefaultMappings
	}
	e := &Enricher{workers: runtime.GOMAXPROCS(0), logger: slog.Default()}
	for _, m := range mappings {
		c, err := reg.Get(m.Domain)
		if err != nil {
			return nil, fmt.Errorf("mapping %s -> %s: %w", m.Source, m.Target, err)
		}
		e.mappings = append(e.mappings, mapping{FieldMapping: m, c: c})
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Enrich returns copies of recs with the derived fields set. Input records
// are left untouched. Per-field failures are returned as FieldErrors in
// record order; the only fatal error is ctx cancellation.
func (e *Enricher) Enrich(ctx context.Context, recs []Record) ([]Record, []*FieldError, error) {
	out := make([]Record, len(recs))
	perRecord := make([][]*FieldError, len(recs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range recs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i], perRecord[i] = e.enrichOne(i, recs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("enrich: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("enrich: %w", err)
	}

	var errs []*FieldError
	for _, fe := range perRecord {
		errs = append(errs, fe...)
	}
	return out, errs, nil
}

func (e *Enricher) enrichOne(idx int, rec Record) (Record, []*FieldError) {
	out := rec.Clone()
	if out == nil {
		out = Record{}
	}
	var errs []*FieldError
	for _, m := range e.mappings {
		raw := rec[m.Source]
		label, err := canonicalizeField(m.c, raw)
		if err != nil {
			fe := &FieldError{Index: idx, Field: m.Source, Raw: raw, Err: err}
			e.logger.Warn("canonicalization fallback", "index", idx, "field", m.Source, "error", err)
			errs = append(errs, fe)
			out[m.Target] = raw
			continue
		}
		out[m.Target] = label
	}
	return out, errs
}

// canonicalizeField keeps one bad value from taking the batch down.
func canonicalizeField(c *canon.Canonicalizer, raw any) (label string, err error) {
	if _, serr := canon.Stringify(raw); errors.Is(serr, canon.ErrMalformedValue) {
		return "", serr
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", canon.ErrMalformedValue, r)
		}
	}()
	return c.Canonicalize(raw), nil
}
