package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hazyhaar/canon/pkg/records"
)

// Collections served by the case-management API.
const (
	CollectionClients   = "clientes"
	CollectionProcesses = "processos"
	CollectionTasks     = "tarefas"
)

// Collections lists every known collection.
var Collections = []string{CollectionClients, CollectionProcesses, CollectionTasks}

// Fetch errors.
var (
	ErrUnexpectedStatus = errors.New("unexpected API status")
	ErrUnexpectedShape  = errors.New("unexpected API payload")
)

const (
	maxAttempts  = 3
	maxBodyBytes = 256 << 20
)

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	RateLimit rate.Limit
	DateFrom  string
	DateTo    string
	// Store, when set, supplies per-collection URL overrides and the raw cache.
	Store    *Store
	CacheTTL time.Duration
	Logger   *slog.Logger
}

// Client downloads record collections from the case-management API.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	// probeClient shares the timeout but stops at the first redirect.
	probeClient *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger
	backoff     func(attempt int) time.Duration
}

// NewClient applies defaults and builds a Client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = rate.Every(time.Second)
	}
	if cfg.DateFrom == "" {
		cfg.DateFrom = "2010-01-01"
	}
	if cfg.DateTo == "" {
		cfg.DateTo = "2030-12-31"
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = time.Hour
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		probeClient: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		limiter: rate.NewLimiter(cfg.RateLimit, 1),
		logger:  logger,
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt)) * time.Second
		},
	}
}

// DefaultURLs derives one URL per collection from the configured base URL.
func (c *Client) DefaultURLs() map[string]string {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	urls := make(map[string]string, len(Collections))
	for _, col := range Collections {
		urls[col] = base + "/" + col
	}
	return urls
}

// URL returns the request URL for a collection, including the date range
// the processos endpoint requires.
func (c *Client) URL(collection string) (string, error) {
	var raw string
	if c.cfg.Store != nil {
		u, err := c.cfg.Store.GetURL(collection)
		if err != nil {
			return "", err
		}
		raw = u
	} else {
		u, ok := c.DefaultURLs()[collection]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
		}
		raw = u
	}
	if collection != CollectionProcesses {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url %s: %w", raw, err)
	}
	q := u.Query()
	q.Set("dataInicio", c.cfg.DateFrom)
	q.Set("dataFim", c.cfg.DateTo)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch returns the records of a collection, served from the cache when a
// fresh copy exists.
func (c *Client) Fetch(ctx context.Context, collection string) ([]records.Record, error) {
	u, err := c.URL(collection)
	if err != nil {
		return nil, err
	}

	if c.cfg.Store != nil {
		body, ok, err := c.cfg.Store.Cached(u, c.cfg.CacheTTL)
		if err != nil {
			c.logger.Warn("fetch cache unavailable", "collection", collection, "error", err)
		} else if ok {
			c.logger.Debug("fetch cache hit", "collection", collection)
			return decodeEnvelope(body, collection)
		}
	}

	body, err := c.download(ctx, u)
	if err != nil {
		return nil, err
	}
	recs, err := decodeEnvelope(body, collection)
	if err != nil {
		return nil, err
	}
	if c.cfg.Store != nil {
		if err := c.cfg.Store.PutCached(u, body); err != nil {
			c.logger.Warn("fetch cache write failed", "collection", collection, "error", err)
		}
	}
	c.logger.Info("collection fetched", "collection", collection, "records", len(recs))
	return recs, nil
}

// download GETs url with the token header, retrying transient failures.
func (c *Client) download(ctx context.Context, u string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("token", c.cfg.Token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("%w: HTTP %d", ErrUnexpectedStatus, resp.StatusCode)
			continue
		case resp.StatusCode != http.StatusOK:
			// Client errors (bad token, wrong path) will not improve with retries.
			return nil, fmt.Errorf("%w: HTTP %d: %s", ErrUnexpectedStatus, resp.StatusCode, snippet(body))
		case readErr != nil:
			lastErr = readErr
			continue
		}
		return body, nil
	}
	return nil, fmt.Errorf("GET %s failed after %d attempts: %w", redact(u), maxAttempts, lastErr)
}

// Probe sends a rate-limited HEAD to the URL Fetch would use for collection
// (store override and date range included) and returns the status, or 0 when
// the request never got an answer. Redirects are reported, not followed.
func (c *Client) Probe(ctx context.Context, collection string) (int, error) {
	u, err := c.URL(collection)
	if err != nil {
		return 0, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("token", c.cfg.Token)

	resp, err := c.probeClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HEAD %s: %w", redact(u), err)
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// decodeEnvelope unwraps [{"<collection>": [...]}]. Anything else is
// rejected, including a bare record array.
func decodeEnvelope(body []byte, collection string) ([]records.Record, error) {
	var env []map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	if len(env) == 0 {
		return nil, fmt.Errorf("%w: empty envelope", ErrUnexpectedShape)
	}
	inner, ok := env[0][collection]
	if !ok {
		return nil, fmt.Errorf("%w: first element has no %q key", ErrUnexpectedShape, collection)
	}
	recs, err := records.DecodeBytes(inner, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	return recs, nil
}

func snippet(b []byte) string {
	const limit = 200
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}

func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	return u.String()
}
