// CLAUDE:SUMMARY CLI subcommands that download collections from the case-management API and check endpoint availability.
package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/canon/pkg/report"
	"github.com/hazyhaar/canon/pkg/source"
)

// openSource opens the store and seeds it with the configured endpoints.
func (a *app) openSource() (*source.Store, *source.Client, error) {
	if a.cfg.API.BaseURL == "" {
		return nil, nil, fmt.Errorf("api.base_url is not configured")
	}
	store, err := source.OpenStore(a.cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	client := source.NewClient(a.cfg.ClientConfig(store, a.logger))
	if err := store.Seed(client.DefaultURLs()); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("seed store: %w", err)
	}
	return store, client, nil
}

func fetchCmd(a *app) *cobra.Command {
	var (
		collection string
		out        string
		purge      bool
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download a collection from the case-management API",
		Example: `  canon fetch --collection processos --out processos.json
  canon fetch --collection clientes --purge`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, client, err := a.openSource()
			if err != nil {
				return err
			}
			defer store.Close()

			if purge {
				n, err := store.PurgeCache(a.cfg.Store.CacheTTL)
				if err != nil {
					return err
				}
				a.logger.Info("stale cache entries purged", "count", n)
			}

			recs, err := client.Fetch(cmd.Context(), collection)
			if err != nil {
				return err
			}
			a.logger.Info("collection fetched", "collection", collection, "count", len(recs))
			return writeOutput(cmd, out, func(w io.Writer) error {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(recs)
			})
		},
	}
	cmd.Flags().StringVar(&collection, "collection", source.CollectionProcesses, "processos, clientes or tarefas")
	cmd.Flags().StringVar(&out, "out", "-", "output file, - for stdout")
	cmd.Flags().BoolVar(&purge, "purge", false, "drop expired cache entries first")
	return cmd
}

func checkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that every collection endpoint answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, client, err := a.openSource()
			if err != nil {
				return err
			}
			defer store.Close()

			results := source.NewChecker(client, a.cfg.CheckInterval).CheckAll(cmd.Context())
			t := report.Table{Title: "Endpoints", Header: []string{"collection", "status", "error"}}
			var failed int
			for _, r := range results {
				msg := ""
				if r.Err != nil {
					msg = r.Err.Error()
				}
				if !r.OK() {
					failed++
				}
				t.Rows = append(t.Rows, []string{r.Collection, fmt.Sprint(r.Status), msg})
			}
			if err := report.WriteText(cmd.OutOrStdout(), []report.Table{t}); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d endpoints unavailable", failed, len(results))
			}
			return nil
		},
	}
}
