package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekam-query/pkg/app"
	"github.com/ekaya-inc/ekam-query/pkg/config"
	"github.com/ekaya-inc/ekam-query/pkg/logging"
)

// appOpener builds the application for one command invocation.
type appOpener func(ctx context.Context, configPath string) (*app.App, error)

func newRootCmd(open appOpener) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "ekamctl",
		Short: "Ask natural-language questions of a database and a document index",
		Long: `ekamctl drives the ekam-query gateway without the HTTP server. It reads the
same config.yaml and environment variables as the server, so a question asked
here goes through the same classifier, SQL guard and retrieval path.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML configuration file")

	withApp := func(fn func(cmd *cobra.Command, a *app.App, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			return fn(cmd, a, args)
		}
	}

	root.AddCommand(
		newSchemaCmd(withApp),
		newAskCmd(withApp),
		newIngestCmd(withApp),
		newVersionCmd(),
	)
	return root
}

// openApp loads configuration from configPath and wires the application.
func openApp(ctx context.Context, configPath string) (*app.App, error) {
	cfg, err := config.LoadFile(configPath, Version)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.NewLogger(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logger)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
