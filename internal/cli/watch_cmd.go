package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print session ids as their prescriptions become complete",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Listen == nil {
				return errors.New("watch needs DATABASE_URL")
			}
			ids, err := app.Listen(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for id := range ids {
				fmt.Fprintf(out, "%s\t%s\n", time.Now().Format(time.RFC3339), id)
			}
			return nil
		},
	}
}
