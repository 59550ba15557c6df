package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"prescription-chatbot/internal/core"
	"prescription-chatbot/pkg"
)

// lazyGenerator builds the document generator on first use, so chat
// sessions that never ask for a PDF do not need a browser.
type lazyGenerator struct {
	app *App
}

func (g lazyGenerator) Generate(ctx context.Context, rec pkg.Record, signature string) ([]byte, error) {
	gen, err := g.app.Documents()
	if err != nil {
		return nil, err
	}
	return gen.Generate(ctx, rec, signature)
}

func newRenderCmd(app *App) *cobra.Command {
	var recordPath, signaturePath, outPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a prescription PDF from a JSON record",
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := readRecord(recordPath)
			if err != nil {
				return err
			}
			if missing := rec.MissingFields(); len(missing) > 0 && !force {
				return &core.IncompleteError{Missing: missing}
			}
			signature := ""
			if signaturePath != "" {
				data, err := os.ReadFile(signaturePath)
				if err != nil {
					return fmt.Errorf("read signature: %w", err)
				}
				signature = strings.TrimSpace(string(data))
			}

			gen, err := app.Documents()
			if err != nil {
				return err
			}
			pdf, err := gen.Generate(cmd.Context(), rec, signature)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, pdf, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d bytes)\n", outPath, len(pdf))
			return nil
		},
	}

	cmd.Flags().StringVar(&recordPath, "record", "", "JSON record to render (required)")
	cmd.Flags().StringVar(&signaturePath, "signature", "", "File holding a base64 signature image")
	cmd.Flags().StringVarP(&outPath, "out", "o", "ordonnance.pdf", "Output PDF path")
	cmd.Flags().BoolVar(&force, "force", false, "Render even when fields are missing")
	_ = cmd.MarkFlagRequired("record")
	return cmd
}
