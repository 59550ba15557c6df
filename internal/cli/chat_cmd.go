package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"prescription-chatbot/internal/core"
	"prescription-chatbot/internal/db"
)

const chatHelp = `Commandes: /etat, /reset, /pdf <fichier> [signature], /quitter`

func newChatCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Run an intake conversation in the terminal",
		Long:  "Reads one message per line from stdin.  " + chatHelp,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.LLM()
			if err != nil {
				return err
			}
			svc := core.NewIntakeService(db.NewMemoryStore(0), client, app.Normalizer, lazyGenerator{app: app})
			return runChat(cmd.Context(), svc, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runChat(ctx context.Context, svc *core.IntakeService, in io.Reader, out io.Writer) error {
	sess, err := svc.CreateSession(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Session %s\n%s\n", sess.ID, chatHelp)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "/quitter" || line == "/quit":
			return nil
		case line == "/etat":
			st, err := svc.Status(ctx, sess.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, st.Record.Display())
			printMissing(out, st.MissingFields)
		case line == "/reset":
			if err := svc.Reset(ctx, sess.ID); err != nil {
				return err
			}
			fmt.Fprintln(out, "Session reinitialisee.")
		case strings.HasPrefix(line, "/pdf"):
			if err := chatPDF(ctx, svc, sess.ID, strings.Fields(line)[1:], out); err != nil {
				fmt.Fprintln(out, "Erreur:", err)
			}
		default:
			res, err := svc.Turn(ctx, sess.ID, line)
			if err != nil {
				fmt.Fprintln(out, "Erreur:", err)
				continue
			}
			fmt.Fprintln(out, res.Reply)
			printMissing(out, res.MissingFields)
		}
	}
}

func chatPDF(ctx context.Context, svc *core.IntakeService, sessionID string, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: /pdf <fichier> [signature]")
	}
	signature := ""
	if len(args) > 1 {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		signature = strings.TrimSpace(string(data))
	}
	pdf, err := svc.GenerateDocument(ctx, sessionID, signature)
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[0], pdf, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(out, "Ordonnance ecrite dans %s (%d octets)\n", args[0], len(pdf))
	return nil
}

func printMissing(out io.Writer, missing []string) {
	if len(missing) == 0 {
		fmt.Fprintln(out, "[complet]")
		return
	}
	fmt.Fprintf(out, "[manquant: %s]\n", strings.Join(missing, ", "))
}
