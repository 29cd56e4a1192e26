package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/canon/pkg/config"
)

var version = "0.3.0"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfgPath string
	level   slog.LevelVar
	logger  *slog.Logger
	cfg     config.Config
}

func main() {
	if err := newRootCmd(&app{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "canon",
		Short: "Canonicalize noisy case-management fields",
		Long: `canon maps free-text municipality, defendant, jurisdiction, lawsuit type and
profession values to fixed categories, enriches case records with them and
summarizes the result.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.cfgPath, "config", "config.yaml", "path to config file")

	rootCmd.AddCommand(canonicalizeCmd(a))
	rootCmd.AddCommand(domainsCmd(a))
	rootCmd.AddCommand(enrichCmd(a))
	rootCmd.AddCommand(reportCmd(a))
	rootCmd.AddCommand(fetchCmd(a))
	rootCmd.AddCommand(checkCmd(a))
	rootCmd.AddCommand(serveCmd(a))
	rootCmd.AddCommand(mcpCmd(a))
	return rootCmd
}

// setup loads the config and builds the logger on stderr. Stdout stays free
// for command output and the MCP stdio transport.
func (a *app) setup(stderr io.Writer) error {
	a.level.Set(slog.LevelInfo)
	a.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: &a.level}))

	cfg, err := config.Load(a.cfgPath, a.logger)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.level.Set(cfg.Level())
	return nil
}
