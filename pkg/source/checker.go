package source

import (
	"context"
	"log/slog"
	"time"
)

// CheckResult is the availability of one collection.
type CheckResult struct {
	Collection string
	Status     int
	Err        error
}

// OK reports a 2xx or 3xx answer.
func (r CheckResult) OK() bool { return r.Err == nil && r.Status >= 200 && r.Status < 400 }

// Checker probes every collection through the Client, so checks share its
// token, rate limiter and URL resolution, and stores the outcome.
type Checker struct {
	client   *Client
	logger   *slog.Logger
	interval time.Duration
}

// NewChecker builds a Checker that repeats every interval once started.
func NewChecker(client *Client, interval time.Duration) *Checker {
	return &Checker{client: client, logger: client.logger, interval: interval}
}

// Start checks immediately, then once per interval until ctx is done.
func (c *Checker) Start(ctx context.Context) {
	for {
		c.CheckAll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.interval):
		}
	}
}

// CheckAll probes the collections in Collections order. Results are stored
// when the client has a Store.
func (c *Checker) CheckAll(ctx context.Context) []CheckResult {
	results := make([]CheckResult, 0, len(Collections))
	var failed int
	for _, col := range Collections {
		if ctx.Err() != nil {
			break
		}
		status, err := c.client.Probe(ctx, col)
		res := CheckResult{Collection: col, Status: status, Err: err}
		results = append(results, res)

		if store := c.client.cfg.Store; store != nil {
			msg := ""
			if err != nil {
				msg = err.Error()
			}
			if err := store.UpdateCheck(col, status, msg); err != nil {
				c.logger.Error("store check result", "collection", col, "error", err)
			}
		}
		if !res.OK() {
			failed++
			c.logger.Warn("collection unavailable", "collection", col, "status", status, "error", err)
		}
	}
	c.logger.Info("collections checked", "total", len(results), "failed", failed)
	return results
}
