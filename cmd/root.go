package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "prom",
		Short:         "Prometheus orchestrator: route AI requests across backends",
		Long:          "prom manages accounts, a backend registry, token budgets, chat sessions, and conversation memory, routing each message to the best-fitting AI backend.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		_ = app.logger.Sync()
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newAccountCmd(app),
		newBackendCmd(app),
		newChatCmd(app),
		newSessionCmd(app),
		newTokensCmd(app),
		newMemoryCmd(app),
	)

	return rootCmd
}
