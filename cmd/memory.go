package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/prometheus-orchestrator/internal/adapters/render/console"
	"github.com/bnema/prometheus-orchestrator/internal/application"
	"github.com/bnema/prometheus-orchestrator/internal/domain"
)

func newMemoryCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Manage conversation memory blocks",
	}

	cmd.AddCommand(
		newMemoryListCmd(app),
		newMemoryShowCmd(app),
		newMemoryFreezeCmd(app, true),
		newMemoryFreezeCmd(app, false),
		newMemoryDeleteCmd(app),
		newMemoryReclassifyCmd(app),
	)

	return cmd
}

func newMemoryListCmd(app *app) *cobra.Command {
	var accountID string
	var blockType string
	var query string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memory blocks, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			blocks, err := app.memoryService.List(cmd.Context(), domain.AccountID(accountID), application.MemoryFilter{
				Type:  domain.BlockType(blockType),
				Query: query,
			})
			if err != nil {
				return err
			}

			rendered, err := console.RenderMemory(blocks, console.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render memory: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	cmd.Flags().StringVar(&blockType, "type", "", "Filter by block type")
	cmd.Flags().StringVar(&query, "query", "", "Substring filter over title, content, and tags")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func newMemoryShowCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <block-id>",
		Short: "Print one memory block in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			block, err := app.memoryService.Get(cmd.Context(), domain.BlockID(args[0]))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s [%s, %s]\n", block.Title, block.Type, block.Importance)
			if len(block.Tags) > 0 {
				_, _ = fmt.Fprintf(out, "tags: %v\n", block.Tags)
			}
			if block.Frozen {
				_, _ = fmt.Fprintln(out, "frozen: true")
			}
			_, _ = fmt.Fprintln(out)
			_, _ = fmt.Fprintln(out, block.Content)
			return nil
		},
	}
}

func newMemoryFreezeCmd(app *app, freeze bool) *cobra.Command {
	use := "freeze <block-id>"
	short := "Freeze a block against deletion and reclassification"
	if !freeze {
		use = "unfreeze <block-id>"
		short = "Unfreeze a block"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.memoryService.SetFrozen(cmd.Context(), domain.BlockID(args[0]), freeze); err != nil {
				return err
			}

			state := "frozen"
			if !freeze {
				state = "unfrozen"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Block %s %s\n", args[0], state)
			return nil
		},
	}
}

func newMemoryDeleteCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <block-id>",
		Short: "Delete a memory block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.memoryService.Delete(cmd.Context(), domain.BlockID(args[0])); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted block %s\n", args[0])
			return nil
		},
	}
}

func newMemoryReclassifyCmd(app *app) *cobra.Command {
	var blockType string
	var tags []string
	var importance string

	cmd := &cobra.Command{
		Use:   "reclassify <block-id>",
		Short: "Change a block's type, tags, or importance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.memoryService.Reclassify(cmd.Context(), application.ReclassifyBlockCommand{
				Block:      domain.BlockID(args[0]),
				Type:       domain.BlockType(blockType),
				Tags:       tags,
				Importance: domain.Importance(importance),
			}); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Reclassified block %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&blockType, "type", "", "New block type")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Replacement tags")
	cmd.Flags().StringVar(&importance, "importance", "", "New importance: low, medium, or high")

	return cmd
}
