// CLAUDE:SUMMARY CLI subcommands that run the HTTP API (with SIGHUP reload) and the MCP stdio server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/canon/pkg/api"
	"github.com/hazyhaar/canon/pkg/canon"
	"github.com/hazyhaar/canon/pkg/config"
	"github.com/hazyhaar/canon/pkg/records"
	"github.com/hazyhaar/canon/pkg/source"
)

func (a *app) deps() (api.Deps, error) {
	reg := canon.Default()
	enr, err := records.NewEnricher(reg, nil,
		records.WithWorkers(a.cfg.Workers),
		records.WithLogger(a.logger))
	if err != nil {
		return api.Deps{}, err
	}
	return api.Deps{Registry: reg, Enricher: enr, Logger: a.logger}, nil
}

func serveCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Addr = addr
			}
			return a.serve()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func (a *app) serve() error {
	logger := a.logger
	d, err := a.deps()
	if err != nil {
		return err
	}
	logger.Info("rulesets loaded", "domains", d.Registry.DomainCount())

	srv := &http.Server{
		Addr:    a.cfg.Addr,
		Handler: api.NewRouter(d),
	}

	// SIGINT/SIGTERM: graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	defer signal.Stop(sighup)

	var store *source.Store
	var client *source.Client
	if a.cfg.API.BaseURL != "" {
		s, c, err := a.openSource()
		if err != nil {
			return err
		}
		defer s.Close()
		store, client = s, c
		logger.Info("endpoint registry ready", "collections", len(client.DefaultURLs()))
	}

	// Background loops stop before the store closes: this defer runs first.
	bg, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.reloadOnHUP(bg, sighup, store)
	}()
	if client != nil && a.cfg.CheckInterval > 0 {
		checker := source.NewChecker(client, a.cfg.CheckInterval)
		wg.Add(1)
		go func() {
			defer wg.Done()
			checker.Start(bg)
		}()
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("canon listening", "addr", a.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	return srv.Shutdown(context.Background())
}

// reloadOnHUP reloads the log level and purges stale cache entries on each
// signal until ctx is done. store may be nil.
func (a *app) reloadOnHUP(ctx context.Context, sighup <-chan os.Signal, store *source.Store) {
	logger := a.logger
	for {
		select {
		case <-ctx.Done():
			return
		case <-sighup:
		}
		logger.Info("SIGHUP received, reloading config")
		cfg, err := config.Load(a.cfgPath, logger)
		if err != nil {
			logger.Error("reload failed", "error", err)
			continue
		}
		a.level.Set(cfg.Level())
		logger.Info("config reloaded", "log_level", cfg.LogLevel)
		if store != nil {
			if n, err := store.PurgeCache(cfg.Store.CacheTTL); err != nil {
				logger.Error("cache purge failed", "error", err)
			} else {
				logger.Info("cache purged", "entries", n)
			}
		}
	}
}

func mcpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the canon tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.deps()
			if err != nil {
				return err
			}
			srv := server.NewMCPServer("canon", version, server.WithToolCapabilities(false))
			api.RegisterMCPTools(srv, d)
			a.logger.Info("mcp server on stdio", "domains", d.Registry.DomainCount())
			return server.ServeStdio(srv)
		},
	}
}
