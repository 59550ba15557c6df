package cli

import (
	"context"

	"github.com/spf13/cobra"

	"prescription-chatbot/internal/core"
	"prescription-chatbot/internal/llm"
)

// App holds the collaborators used by CLI commands.  Each field is built
// lazily by cmd/intakectl so commands only pay for what they use.
type App struct {
	LLM        func() (llm.Client, error)
	Normalizer *core.Normalizer
	Documents  func() (core.DocumentGenerator, error)
	// Listen subscribes to completion notifications.  Nil when no
	// database is configured.
	Listen func(ctx context.Context) (<-chan string, error)
}

// NewRootCmd creates the top-level "intakectl" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "intakectl",
		Short:         "Offline tools for the prescription intake assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newExtractCmd(app),
		newChatCmd(app),
		newRenderCmd(app),
		newWatchCmd(app),
	)

	return root
}
