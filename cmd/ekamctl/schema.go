package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekam-query/pkg/app"
	"github.com/ekaya-inc/ekam-query/pkg/database"
	"github.com/ekaya-inc/ekam-query/pkg/models"
)

type appRunner func(fn func(cmd *cobra.Command, a *app.App, args []string) error) func(*cobra.Command, []string) error

func newSchemaCmd(withApp appRunner) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the live database schema",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app.App, _ []string) error {
			if output != "json" && output != "yaml" {
				return fmt.Errorf("unsupported output format %q (use json or yaml)", output)
			}

			var desc *models.SchemaDescription
			err := database.WithSession(cmd.Context(), a.Datasource, a.SessionOptions(), func(ctx context.Context, sess datasource.Session) error {
				var err error
				desc, err = a.Engine.Schema(ctx, sess)
				return err
			})
			if err != nil {
				return err
			}

			if output == "yaml" {
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(desc); err != nil {
					return err
				}
				return enc.Close()
			}
			return writeJSON(cmd.OutOrStdout(), desc)
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format: json or yaml")
	return cmd
}
