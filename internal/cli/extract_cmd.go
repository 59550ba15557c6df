package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"prescription-chatbot/internal/core"
	"prescription-chatbot/pkg"
)

func newExtractCmd(app *App) *cobra.Command {
	var priorPath string

	cmd := &cobra.Command{
		Use:   "extract [text...]",
		Short: "Extract prescription fields from free text",
		Long:  "Runs one extraction over the given text (or stdin) and prints the merged record as JSON.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if text == "" || text == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}
			prior, err := readRecord(priorPath)
			if err != nil {
				return err
			}
			return runExtract(cmd, app, text, prior)
		},
	}

	cmd.Flags().StringVar(&priorPath, "prior", "", "JSON record already known")
	return cmd
}

func runExtract(cmd *cobra.Command, app *App, text string, prior pkg.Record) error {
	client, err := app.LLM()
	if err != nil {
		return err
	}
	ex := core.NewExtractor(client, app.Normalizer)
	rec := core.Merge(prior, ex.Extract(cmd.Context(), text, prior))

	out := struct {
		IsComplete    bool       `json:"isComplete"`
		MissingFields []string   `json:"missingFields"`
		Record        pkg.Record `json:"record"`
	}{rec.IsComplete(), rec.MissingFields(), rec}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// readRecord loads a JSON record, or returns an empty one for an empty path.
// Values go through Set so absence phrases are dropped.
func readRecord(path string) (pkg.Record, error) {
	var rec pkg.Record
	if path == "" {
		return rec, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, fmt.Errorf("read record: %w", err)
	}
	var raw map[string]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return rec, fmt.Errorf("parse record %s: %w", path, err)
	}
	for k, v := range raw {
		f := pkg.Field(k)
		if !f.Valid() {
			return rec, fmt.Errorf("parse record %s: unknown field %q", path, k)
		}
		if v != nil {
			rec.Set(f, *v)
		}
	}
	return rec, nil
}
