package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekam-query/pkg/app"
	"github.com/ekaya-inc/ekam-query/pkg/models"
)

func newIngestCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file.json>",
		Short: "Ingest pre-chunked documents into the vector index",
		Long: `Reads a JSON file of the form

  {"documents": [{"source_file": "handbook.txt", "chunks": ["...", "..."]}]}

and stores every non-empty chunk with its embedding.`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			req, err := readIngestFile(args[0])
			if err != nil {
				return err
			}

			result, err := a.Ingestion.Ingest(cmd.Context(), req.Documents)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		}),
	}
}

func readIngestFile(path string) (*models.IngestRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var req models.IngestRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(req.Documents) == 0 {
		return nil, errors.New("no documents in input file")
	}
	return &req, nil
}
