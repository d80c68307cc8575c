package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/prometheus-orchestrator/internal/application"
	"github.com/bnema/prometheus-orchestrator/internal/domain"
)

func newChatCmd(app *app) *cobra.Command {
	var accountID string
	var sessionID string
	var message string
	var taskHint string
	var contextSegments []string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Send a message and print the reply",
		RunE: func(cmd *cobra.Command, _ []string) error {
			segments, err := parseContextSegments(contextSegments)
			if err != nil {
				return err
			}

			var result application.TurnResult
			send := func() error {
				var sendErr error
				result, sendErr = app.sessionService.Send(cmd.Context(), application.SendMessageCommand{
					Account:  domain.AccountID(accountID),
					Session:  domain.SessionID(sessionID),
					Content:  message,
					TaskHint: taskHint,
					Context:  segments,
				})
				return sendErr
			}

			if err := runDispatchSpinner(cmd.Context(), cmd.ErrOrStderr(), send); err != nil {
				return err
			}

			if result.Reply != nil {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), result.Reply.Content)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\n[%s | session %s | %d tokens charged]\n",
					result.Turn.Backend, result.Turn.Session, result.Charged)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID (created when absent)")
	cmd.Flags().StringVar(&message, "message", "", "Message content")
	cmd.Flags().StringVar(&taskHint, "hint", "", "Task category hint")
	cmd.Flags().StringArrayVar(&contextSegments, "context", nil, "Context segment as scope=content (repeatable)")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}

func parseContextSegments(raw []string) ([]domain.ContextSegment, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	segments := make([]domain.ContextSegment, 0, len(raw))
	for _, entry := range raw {
		scope, content, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid context segment %q (want scope=content)", entry)
		}
		segments = append(segments, domain.ContextSegment{
			Scope:   domain.ScopeID(strings.TrimSpace(scope)),
			Content: content,
		})
	}

	return segments, nil
}
