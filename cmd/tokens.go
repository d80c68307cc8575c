package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/prometheus-orchestrator/internal/domain"
)

func newTokensCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Inspect and top up token balances",
	}

	cmd.AddCommand(
		newTokensBalanceCmd(app),
		newTokensTopupCmd(app),
		newTokensStakeCmd(app),
		newTokensUnstakeCmd(app),
		newTokensHistoryCmd(app),
	)

	return cmd
}

func newTokensBalanceCmd(app *app) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show balance and available tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			balance, err := app.ledgerService.Balance(cmd.Context(), domain.AccountID(accountID))
			if err != nil {
				return err
			}
			available, err := app.ledgerService.Available(cmd.Context(), domain.AccountID(accountID))
			if err != nil {
				return err
			}
			staked, err := app.ledgerService.Staked(cmd.Context(), domain.AccountID(accountID))
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "balance: %d\navailable: %d\nstaked: %d\n", balance, available, staked)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func newTokensTopupCmd(app *app) *cobra.Command {
	var accountID string
	var amount int64
	var reason string

	cmd := &cobra.Command{
		Use:   "topup",
		Short: "Credit tokens to an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			entry, err := app.ledgerService.Credit(
				cmd.Context(),
				domain.AccountID(accountID),
				amount,
				domain.EntryReason(reason),
			)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Credited %d tokens to %s (%s)\n", entry.Delta, accountID, entry.Reason)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	cmd.Flags().Int64Var(&amount, "amount", 0, "Token amount")
	cmd.Flags().StringVar(&reason, "reason", string(domain.ReasonPurchase), "Entry reason: earn, purchase, refund, or grant")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newTokensStakeCmd(app *app) *cobra.Command {
	var accountID string
	var amount int64

	cmd := &cobra.Command{
		Use:   "stake",
		Short: "Move tokens from the spendable balance into the staked pool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			entry, err := app.ledgerService.Stake(cmd.Context(), domain.AccountID(accountID), amount)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Staked %d tokens from %s\n", -entry.Delta, accountID)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	cmd.Flags().Int64Var(&amount, "amount", 0, "Token amount")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newTokensUnstakeCmd(app *app) *cobra.Command {
	var accountID string
	var amount int64

	cmd := &cobra.Command{
		Use:   "unstake",
		Short: "Return staked tokens to the spendable balance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			entry, err := app.ledgerService.Unstake(cmd.Context(), domain.AccountID(accountID), amount)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Unstaked %d tokens to %s\n", entry.Delta, accountID)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	cmd.Flags().Int64Var(&amount, "amount", 0, "Token amount")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newTokensHistoryCmd(app *app) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List ledger entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := app.ledgerService.History(cmd.Context(), domain.AccountID(accountID))
			if err != nil {
				return err
			}

			for _, entry := range entries {
				turn := ""
				if entry.Turn != "" {
					turn = fmt.Sprintf("\tturn %s", entry.Turn)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%-8s\t%+d%s\n",
					entry.Timestamp.Format("2006-01-02 15:04:05"), entry.Reason, entry.Delta, turn)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}
