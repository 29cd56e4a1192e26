// CLAUDE:SUMMARY CLI subcommands that canonicalize values, enrich record files and render summary reports.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/canon/pkg/canon"
	"github.com/hazyhaar/canon/pkg/records"
	"github.com/hazyhaar/canon/pkg/report"
)

func canonicalizeCmd(a *app) *cobra.Command {
	var explain bool
	cmd := &cobra.Command{
		Use:   "canonicalize <domain> <value...>",
		Short: "Canonicalize one or more raw values",
		Example: `  canon canonicalize party "Instituto Nacional do Seguro Social - INSS"
  canon canonicalize municipality --explain "Sao Critovao" Aracaju`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := canon.Default().Get(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, v := range args[1:] {
				if !explain {
					fmt.Fprintln(out, c.Canonicalize(v))
					continue
				}
				res := c.Explain(v)
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", v, res.Label, res.Outcome, res.Rule)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&explain, "explain", false, "print the outcome and the rule that fired")
	return cmd
}

func domainsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "List the loaded canonicalization domains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return report.WriteText(cmd.OutOrStdout(), []report.Table{domainsTable(canon.Default())})
		},
	}
}

func domainsTable(reg *canon.Registry) report.Table {
	t := report.Table{
		Title:  "Domains",
		Header: []string{"domain", "id", "version", "rules", "labels", "known"},
	}
	for _, d := range reg.Domains() {
		t.Rows = append(t.Rows, []string{
			d.Domain, d.ID, d.Version,
			fmt.Sprint(d.Rules), fmt.Sprint(len(d.Labels)), fmt.Sprint(d.Known),
		})
	}
	return t
}

// pipelineOpts selects the steps shared by enrich and report.
type pipelineOpts struct {
	in         string
	key        string
	clients    string
	geographic bool
}

func (o *pipelineOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.in, "in", "", "process records (JSON array or API envelope)")
	cmd.Flags().StringVar(&o.key, "key", "processos", "collection key inside an envelope")
	cmd.Flags().StringVar(&o.clients, "clients", "", "client records to merge on idCliente")
	cmd.Flags().BoolVar(&o.geographic, "geographic", false, "keep only active records in known municipalities")
	cmd.MarkFlagRequired("in")
}

// run decodes, enriches, merges and filters the input records.
func (a *app) run(ctx context.Context, o pipelineOpts) ([]records.Record, error) {
	recs, err := readRecords(o.in, o.key)
	if err != nil {
		return nil, err
	}
	a.logger.Info("records loaded", "path", o.in, "count", len(recs))

	reg := canon.Default()
	enr, err := records.NewEnricher(reg, nil,
		records.WithWorkers(a.cfg.Workers),
		records.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	out, ferrs, err := enr.Enrich(ctx, recs)
	if err != nil {
		return nil, err
	}
	if len(ferrs) > 0 {
		a.logger.Warn("some fields kept their raw value", "count", len(ferrs))
	}

	if o.clients != "" {
		clients, err := readRecords(o.clients, "clientes")
		if err != nil {
			return nil, err
		}
		out = records.Merge(out, clients)
		a.logger.Info("clients merged", "clients", len(clients), "rows", len(out))
	}
	records.AddAges(out, time.Now())

	if o.geographic {
		mun, err := reg.Get(canon.DomainMunicipality)
		if err != nil {
			return nil, err
		}
		before := len(out)
		out = records.FilterGeographic(out, mun)
		a.logger.Info("geographic filter applied", "kept", len(out), "dropped", before-len(out))
	}
	return out, nil
}

func enrichCmd(a *app) *cobra.Command {
	var (
		opts pipelineOpts
		out  string
	)
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Add canonical fields and ages to a record file",
		Example: `  canon enrich --in processos.json --out enriched.json
  canon enrich --in processos.json --clients clientes.json --geographic`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recs, err := a.run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return writeOutput(cmd, out, func(w io.Writer) error {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(recs)
			})
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&out, "out", "-", "output file, - for stdout")
	return cmd
}

func reportCmd(a *app) *cobra.Command {
	var (
		opts   pipelineOpts
		out    string
		format string
		top    int
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize enriched records",
		Example: `  canon report --in processos.json --clients clientes.json
  canon report --in processos.json --format xlsx --out resumo.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			if f == report.FormatXLSX && out == "-" {
				return fmt.Errorf("xlsx output needs --out")
			}
			recs, err := a.run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			summary := report.Summarize(recs, top)
			return writeOutput(cmd, out, func(w io.Writer) error {
				return report.Write(w, summary, f)
			})
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&out, "out", "-", "output file, - for stdout")
	cmd.Flags().StringVar(&format, "format", "table", "table, csv, json or xlsx")
	cmd.Flags().IntVar(&top, "top", 10, "rows per ranking table")
	return cmd
}

func readRecords(path, key string) ([]records.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	recs, err := records.Decode(f, key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

func writeOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
	return nil
}
