package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/onboardbuddy/internal/config"
	"github.com/steveyegge/onboardbuddy/internal/storage"
	"github.com/steveyegge/onboardbuddy/internal/storage/factory"
	"github.com/steveyegge/onboardbuddy/internal/ui"
)

var checklistCmd = &cobra.Command{
	Use:     "checklist",
	Short:   "Inspect onboarding checklists in the configured store",
	GroupID: GroupData,
}

var checklistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List checklists, optionally filtered by employee or manager",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		employee, _ := cmd.Flags().GetString("employee")
		manager, _ := cmd.Flags().GetString("manager")

		store, err := openCLIStore(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		lists, err := store.FindByEmployeeAndManager(cmd.Context(), employee, manager)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(out, lists)
		}
		if len(lists) == 0 {
			fmt.Fprintln(out, "No checklists found.")
			return nil
		}
		for _, cl := range lists {
			fmt.Fprintln(out, ui.ChecklistRow(cl))
		}
		return nil
	},
}

var checklistShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one checklist grouped by category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCLIStore(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		cl, err := store.GetByID(cmd.Context(), args[0])
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("checklist %s not found", args[0])
		}
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), cl)
		}
		fmt.Fprint(cmd.OutOrStdout(), ui.ChecklistDetail(cl))
		return nil
	},
}

func init() {
	checklistListCmd.Flags().String("employee", "", "Only checklists for this employee's Slack ID")
	checklistListCmd.Flags().String("manager", "", "Only checklists created by this manager's Slack ID")
	checklistCmd.AddCommand(checklistListCmd, checklistShowCmd)
	rootCmd.AddCommand(checklistCmd)
}

// openCLIStore opens the configured store for a read-only command. The memory
// backend is empty in a fresh process, so say so.
func openCLIStore(cmd *cobra.Command) (storage.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Storage.Backend == factory.BackendMemory || cfg.Storage.Backend == "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s storage.backend is memory; set it to sqlite or dolt to inspect the bot's data\n",
			ui.RenderWarn(ui.IconWarn))
	}
	return openStore(cmd.Context(), cfg)
}
