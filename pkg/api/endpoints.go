package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/hazyhaar/canon/pkg/canon"
	"github.com/hazyhaar/canon/pkg/kit"
	"github.com/hazyhaar/canon/pkg/records"
)

// Request limits.
const (
	MaxBatchValues   = 100
	MaxEnrichRecords = 10000
)

// Validation errors shared by HTTP and MCP.
var (
	ErrEmptyBatch    = errors.New("batch is empty")
	ErrBatchTooLarge = errors.New("batch is too large")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Deps are the long-lived components the endpoints dispatch to.
type Deps struct {
	Registry *canon.Registry
	Enricher *records.Enricher
	Logger   *slog.Logger
}

// Shared request/response types used by both HTTP and MCP transports.

type canonicalizeReq struct {
	Domain  string `validate:"required"`
	Value   any
	Explain bool
}

type canonicalizeResponse struct {
	Domain     string        `json:"domain"`
	Raw        any           `json:"raw"`
	Normalized string        `json:"normalized"`
	Label      string        `json:"label"`
	Outcome    canon.Outcome `json:"outcome"`
	Rule       string        `json:"rule,omitempty"`
	Known      *bool         `json:"known,omitempty"`
}

type batchReq struct {
	Domain string `json:"domain" validate:"required"`
	Values []any  `json:"values"`
}

type batchResponse struct {
	Domain  string                 `json:"domain"`
	Results []canonicalizeResponse `json:"results"`
}

type enrichReq struct {
	Records    []records.Record `json:"records"`
	Geographic bool             `json:"geographic"`
}

type enrichResponse struct {
	Records []records.Record      `json:"records"`
	Errors  []*records.FieldError `json:"errors"`
	Dropped int                   `json:"dropped,omitempty"`
}

type domainsResponse struct {
	Domains []canon.DomainInfo `json:"domains"`
}

type endpoints struct {
	canonicalize kit.Endpoint
	batch        kit.Endpoint
	enrich       kit.Endpoint
	listDomains  kit.Endpoint
}

func newEndpoints(d Deps) endpoints {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	wrap := func(name string, ep kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.RequestID(), kit.Logging(logger, name))(ep)
	}
	return endpoints{
		canonicalize: wrap("canonicalize", canonicalizeEndpoint(d.Registry)),
		batch:        wrap("canonicalize_batch", batchEndpoint(d.Registry)),
		enrich:       wrap("enrich", enrichEndpoint(d.Registry, d.Enricher)),
		listDomains:  wrap("list_domains", listDomainsEndpoint(d.Registry)),
	}
}

func explain(c *canon.Canonicalizer, raw any, withRule bool) canonicalizeResponse {
	res := c.Explain(raw)
	resp := canonicalizeResponse{
		Domain:     res.Domain,
		Raw:        raw,
		Normalized: res.Normalized,
		Label:      res.Label,
		Outcome:    res.Outcome,
	}
	if withRule {
		resp.Rule = res.Rule
	}
	if c.HasKnown() {
		known := c.IsKnown(res.Label)
		resp.Known = &known
	}
	return resp
}

func canonicalizeEndpoint(reg *canon.Registry) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*canonicalizeReq)
		if err := validate.Struct(req); err != nil {
			return nil, fmt.Errorf("invalid request: %w", err)
		}
		c, err := reg.Get(req.Domain)
		if err != nil {
			return nil, err
		}
		return explain(c, req.Value, req.Explain), nil
	}
}

func batchEndpoint(reg *canon.Registry) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*batchReq)
		if len(req.Values) == 0 {
			return nil, ErrEmptyBatch
		}
		if len(req.Values) > MaxBatchValues {
			return nil, fmt.Errorf("%w (max %d, got %d)", ErrBatchTooLarge, MaxBatchValues, len(req.Values))
		}
		if err := validate.Struct(req); err != nil {
			return nil, fmt.Errorf("invalid request: %w", err)
		}
		c, err := reg.Get(req.Domain)
		if err != nil {
			return nil, err
		}
		results := make([]canonicalizeResponse, len(req.Values))
		for i, v := range req.Values {
			results[i] = explain(c, v, true)
		}
		return batchResponse{Domain: req.Domain, Results: results}, nil
	}
}

func enrichEndpoint(reg *canon.Registry, enricher *records.Enricher) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*enrichReq)
		if len(req.Records) == 0 {
			return nil, ErrEmptyBatch
		}
		if len(req.Records) > MaxEnrichRecords {
			return nil, fmt.Errorf("%w (max %d, got %d)", ErrBatchTooLarge, MaxEnrichRecords, len(req.Records))
		}
		if enricher == nil {
			return nil, errors.New("enrichment is not configured")
		}
		out, errs, err := enricher.Enrich(ctx, req.Records)
		if err != nil {
			return nil, err
		}
		resp := enrichResponse{Records: out, Errors: errs}
		if resp.Errors == nil {
			resp.Errors = []*records.FieldError{}
		}
		if req.Geographic {
			mun, err := reg.Get(canon.DomainMunicipality)
			if err != nil {
				return nil, err
			}
			resp.Records = records.FilterGeographic(out, mun)
			resp.Dropped = len(out) - len(resp.Records)
		}
		return resp, nil
	}
}

func listDomainsEndpoint(reg *canon.Registry) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		return domainsResponse{Domains: reg.Domains()}, nil
	}
}
