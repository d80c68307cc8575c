package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/prometheus-orchestrator/internal/adapters/render/console"
	"github.com/bnema/prometheus-orchestrator/internal/application"
	"github.com/bnema/prometheus-orchestrator/internal/domain"
)

func newAccountCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}

	cmd.AddCommand(
		newAccountCreateCmd(app),
		newAccountListCmd(app),
		newAccountStatusCmd(app),
		newAccountPolicyCmd(app),
		newAccountSafetyCmd(app),
		newAccountScopesCmd(app),
	)

	return cmd
}

func newAccountCreateCmd(app *app) *cobra.Command {
	var id string
	var name string
	var grant int64

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account with an initial token grant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			account, err := app.accountService.Create(cmd.Context(), application.CreateAccountCommand{
				ID:           domain.AccountID(id),
				Name:         name,
				InitialGrant: grant,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created account %s with %d tokens\n", account.ID, grant)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Account ID")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().Int64Var(&grant, "grant", 0, "Initial token grant")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newAccountListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			accounts, err := app.accountService.List(cmd.Context())
			if err != nil {
				return err
			}

			for _, account := range accounts {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", account.ID, account.Name)
			}

			return nil
		},
	}
}

func newAccountStatusCmd(app *app) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show account balance, policy, and recent activity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := app.accountService.Status(cmd.Context(), domain.AccountID(accountID))
			if err != nil {
				return err
			}

			entries, err := app.ledgerService.History(cmd.Context(), status.Account.ID)
			if err != nil {
				return err
			}

			rendered, err := console.RenderStatus(status, entries, console.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render status: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func newAccountPolicyCmd(app *app) *cobra.Command {
	var accountID string
	var mode string
	var pin string
	var assignments []string
	var weights string

	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Set the account's routing policy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			policy, err := buildRoutingPolicy(mode, pin, assignments, weights)
			if err != nil {
				return err
			}

			if err := app.accountService.SetRoutingPolicy(cmd.Context(), application.SetRoutingPolicyCommand{
				Account: domain.AccountID(accountID),
				Policy:  policy,
			}); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Routing policy for %s set to %s\n", accountID, policy.Mode)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	cmd.Flags().StringVar(&mode, "mode", string(domain.RoutingAutomatic), "Routing mode: automatic, assigned, or manual")
	cmd.Flags().StringVar(&pin, "pin", "", "Backend ID to pin (manual mode)")
	cmd.Flags().StringArrayVar(&assignments, "assign", nil, "Category assignment as category=backend (assigned mode, repeatable)")
	cmd.Flags().StringVar(&weights, "weights", "", "Score weights as speed=0.25,accuracy=0.25,creativity=0.25,cost=0.25")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func buildRoutingPolicy(mode, pin string, assignments []string, weights string) (domain.RoutingPolicy, error) {
	policy := domain.RoutingPolicy{
		Mode:    domain.RoutingMode(mode),
		Pinned:  domain.BackendID(pin),
		Weights: domain.DefaultScoreWeights(),
	}

	if len(assignments) > 0 {
		policy.Assignments = make(map[domain.Category]domain.BackendID, len(assignments))
		for _, assignment := range assignments {
			category, backend, ok := strings.Cut(assignment, "=")
			if !ok {
				return domain.RoutingPolicy{}, fmt.Errorf("invalid assignment %q (want category=backend)", assignment)
			}
			policy.Assignments[domain.Category(strings.TrimSpace(category))] = domain.BackendID(strings.TrimSpace(backend))
		}
	}

	if weights != "" {
		parsed, err := parseWeights(weights)
		if err != nil {
			return domain.RoutingPolicy{}, err
		}
		policy.Weights = parsed
	}

	return policy, nil
}

func parseWeights(spec string) (domain.ScoreWeights, error) {
	weights := domain.ScoreWeights{}
	for _, pair := range strings.Split(spec, ",") {
		axis, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return domain.ScoreWeights{}, fmt.Errorf("invalid weight %q (want axis=value)", pair)
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return domain.ScoreWeights{}, fmt.Errorf("invalid weight value %q: %w", raw, err)
		}

		switch strings.ToLower(strings.TrimSpace(axis)) {
		case "speed":
			weights.Speed = value
		case "accuracy":
			weights.Accuracy = value
		case "creativity":
			weights.Creativity = value
		case "cost":
			weights.Cost = value
		default:
			return domain.ScoreWeights{}, fmt.Errorf("unknown weight axis %q", axis)
		}
	}

	return weights, nil
}

func newAccountSafetyCmd(app *app) *cobra.Command {
	var accountID string
	var model string

	cmd := &cobra.Command{
		Use:   "safety",
		Short: "Set the account's safety model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.accountService.SetSafetyModel(cmd.Context(), application.SetSafetyModelCommand{
				Account: domain.AccountID(accountID),
				Model:   domain.SafetyModelID(model),
			}); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Safety model for %s set to %s\n", accountID, model)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	cmd.Flags().StringVar(&model, "model", "", "Safety model ID")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

func newAccountScopesCmd(app *app) *cobra.Command {
	var accountID string
	var enable []string
	var disable []string

	cmd := &cobra.Command{
		Use:   "scopes",
		Short: "Enable or disable context scopes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, scope := range enable {
				if err := app.accountService.SetScope(cmd.Context(), application.SetScopeCommand{
					Account: domain.AccountID(accountID),
					Scope:   domain.ScopeID(scope),
					Enabled: true,
				}); err != nil {
					return err
				}
			}
			for _, scope := range disable {
				if err := app.accountService.SetScope(cmd.Context(), application.SetScopeCommand{
					Account: domain.AccountID(accountID),
					Scope:   domain.ScopeID(scope),
					Enabled: false,
				}); err != nil {
					return err
				}
			}

			status, err := app.accountService.Status(cmd.Context(), domain.AccountID(accountID))
			if err != nil {
				return err
			}

			for _, scope := range domain.KnownScopes() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %t\n", scope, status.Account.Scopes[scope])
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	cmd.Flags().StringArrayVar(&enable, "enable", nil, "Scope to enable (repeatable)")
	cmd.Flags().StringArrayVar(&disable, "disable", nil, "Scope to disable (repeatable)")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}
