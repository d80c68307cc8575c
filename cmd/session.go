package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/prometheus-orchestrator/internal/adapters/render/console"
	"github.com/bnema/prometheus-orchestrator/internal/domain"
)

func newSessionCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect chat sessions",
	}

	cmd.AddCommand(
		newSessionListCmd(app),
		newSessionShowCmd(app),
	)

	return cmd
}

func newSessionListCmd(app *app) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an account's sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessions, err := app.sessionService.ListSessions(cmd.Context(), domain.AccountID(accountID))
			if err != nil {
				return err
			}

			for _, session := range sessions {
				title := session.Title
				if title == "" {
					title = "(untitled)"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d messages\n", session.ID, title, session.MessageCount())
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func newSessionShowCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print a session transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := app.sessionService.Transcript(cmd.Context(), domain.SessionID(args[0]))
			if err != nil {
				return err
			}

			rendered, err := console.RenderTranscript(session, console.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render transcript: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}
}
