package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/prometheus-orchestrator/internal/adapters/render/console"
	"github.com/bnema/prometheus-orchestrator/internal/application"
	"github.com/bnema/prometheus-orchestrator/internal/domain"
)

func newBackendCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Manage the backend registry",
	}

	cmd.AddCommand(
		newBackendRegisterCmd(app),
		newBackendListCmd(app),
		newBackendSeedCmd(app),
	)

	return cmd
}

func newBackendRegisterCmd(app *app) *cobra.Command {
	var id, name, provider, model, specialty string
	var categories []string
	var speed, accuracy, creativity, cost int
	var secretRef, baseURL string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a custom backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed := make([]domain.Category, 0, len(categories))
			for _, category := range categories {
				parsed = append(parsed, domain.Category(strings.TrimSpace(category)))
			}

			backend, err := app.registryService.Register(cmd.Context(), application.RegisterBackendCommand{
				Backend: domain.Backend{
					ID:         domain.BackendID(id),
					Name:       name,
					Provider:   provider,
					Model:      model,
					Specialty:  specialty,
					Categories: parsed,
					Performance: domain.PerformanceProfile{
						Speed:      speed,
						Accuracy:   accuracy,
						Creativity: creativity,
						Cost:       cost,
					},
					Custom:    true,
					SecretRef: secretRef,
					BaseURL:   baseURL,
				},
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Registered backend %s\n", backend.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Backend ID")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&provider, "provider", "", "Provider name")
	cmd.Flags().StringVar(&model, "model", "", "Model identifier sent to the API")
	cmd.Flags().StringVar(&specialty, "specialty", "", "Freeform specialty description")
	cmd.Flags().StringSliceVar(&categories, "categories", nil, "Task categories this backend serves")
	cmd.Flags().IntVar(&speed, "speed", 50, "Speed score [0,100]")
	cmd.Flags().IntVar(&accuracy, "accuracy", 50, "Accuracy score [0,100]")
	cmd.Flags().IntVar(&creativity, "creativity", 50, "Creativity score [0,100]")
	cmd.Flags().IntVar(&cost, "cost", 50, "Cost-efficiency score [0,100]; higher is cheaper")
	cmd.Flags().StringVar(&secretRef, "secret-ref", "", "Credential ref, e.g. provider/backend-id")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "API base URL for chat completions")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newBackendListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered backends",
		RunE: func(cmd *cobra.Command, _ []string) error {
			backends, err := app.registryService.List(cmd.Context())
			if err != nil {
				return err
			}

			rendered, err := console.RenderBackends(backends)
			if err != nil {
				return fmt.Errorf("render backends: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}
}

func newBackendSeedCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Register the built-in backends",
		RunE: func(cmd *cobra.Command, _ []string) error {
			seeded, err := app.registryService.Seed(cmd.Context())
			if err != nil {
				return err
			}

			if len(seeded) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "All built-in backends already registered")
				return nil
			}

			for _, backend := range seeded {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Seeded backend %s\n", backend.ID)
			}

			return nil
		},
	}
}
