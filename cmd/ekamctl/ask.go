package main

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekam-query/pkg/app"
	"github.com/ekaya-inc/ekam-query/pkg/database"
	"github.com/ekaya-inc/ekam-query/pkg/models"
)

func newAskCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one natural-language question and print the JSON response",
		Example: `  ekamctl ask "How many employees are in Engineering?"
  ekamctl ask "What does the handbook say about PTO?"`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			// The raw text is the cache key, as on the HTTP path.
			question := args[0]
			if strings.TrimSpace(question) == "" {
				return errors.New("question cannot be empty")
			}

			var resp *models.QueryResponse
			err := database.WithSession(cmd.Context(), a.Datasource, a.SessionOptions(), func(ctx context.Context, sess datasource.Session) error {
				var err error
				resp, err = a.Engine.Ask(ctx, sess, question)
				return err
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		}),
	}
}
