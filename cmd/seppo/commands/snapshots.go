package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yairfalse/seppo/internal/output"
	"github.com/yairfalse/seppo/pkg/types"
)

func newCreateSnapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-snapshot",
		Short: "Capture system state into a new snapshot",
		Long: `Capture the configured state paths (and the database, when dump and
restore commands are set) into a checksummed archive that rollback can
restore from later.`,
		Example: `  # Snapshot before a manual maintenance window
  seppo create-snapshot --deployment-id maint-2024-03

  # Capture only specific state kinds
  seppo create-snapshot --deployment-id deploy-7f3a --kinds config,ssl`,
		RunE:         runCreateSnapshot,
		SilenceUsage: true,
	}

	cmd.Flags().String("deployment-id", "", "deployment this snapshot belongs to (required)")
	cmd.Flags().String("description", "manual", "short description stored with the snapshot")
	cmd.Flags().StringSlice("kinds", nil, "state kinds to capture (default: all configured)")
	_ = cmd.MarkFlagRequired("deployment-id")

	return cmd
}

func runCreateSnapshot(cmd *cobra.Command, args []string) error {
	deploymentID, _ := cmd.Flags().GetString("deployment-id")
	description, _ := cmd.Flags().GetString("description")
	kindNames, _ := cmd.Flags().GetStringSlice("kinds")

	ctx := cmd.Context()
	cfg := GetConfig()
	log := newLogger(cfg)

	manager, _, _, err := newSnapshotStack(ctx, cfg, log)
	if err != nil {
		return err
	}

	kinds := make([]types.StateKind, 0, len(kindNames))
	for _, name := range kindNames {
		kinds = append(kinds, types.StateKind(name))
	}

	var spinner *output.Spinner
	if cfg.Output.Format == "table" && !cfg.Output.Quiet {
		spinner = output.NewSpinner(fmt.Sprintf("Capturing state for %s", deploymentID), cfg.Output.NoColor)
		spinner.Start()
	}

	snap, err := manager.Create(ctx, deploymentID, description, kinds)

	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return err
	}

	if cfg.Output.Quiet {
		fmt.Println(snap.ID)
		return nil
	}

	formatter, err := newFormatter(cfg)
	if err != nil {
		return err
	}
	rendered, err := formatter.FormatSnapshot(snap)
	if err != nil {
		return err
	}
	fmt.Print(string(rendered))
	return nil
}

func newListSnapshotsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list-snapshots",
		Short: "List stored snapshots, newest first",
		Example: `  # Table of all snapshots
  seppo list-snapshots

  # IDs only, for scripting
  seppo list-snapshots -q`,
		RunE:         runListSnapshots,
		SilenceUsage: true,
	}
	return cmd
}

func runListSnapshots(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	log := newLogger(cfg)

	manager, _, _, err := newSnapshotStack(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}

	snapshots, err := manager.List()
	if err != nil {
		return err
	}

	if cfg.Output.Quiet {
		for _, snap := range snapshots {
			fmt.Println(snap.ID)
		}
		return nil
	}

	formatter, err := newFormatter(cfg)
	if err != nil {
		return err
	}
	rendered, err := formatter.FormatSnapshotList(snapshots)
	if err != nil {
		return err
	}
	fmt.Print(string(rendered))
	return nil
}

func newPruneSnapshotsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune-snapshots",
		Short: "Delete old snapshots beyond the retention count",
		Long: `Delete the oldest snapshot records and archives, keeping the newest N.
N comes from --keep when given, otherwise from snapshots.keep in the
config file.`,
		Example: `  # Apply the configured retention
  seppo prune-snapshots

  # Keep only the newest three
  seppo prune-snapshots --keep 3`,
		RunE:         runPruneSnapshots,
		SilenceUsage: true,
	}

	cmd.Flags().Int("keep", 0, "number of snapshots to keep (default: snapshots.keep from config)")

	return cmd
}

func runPruneSnapshots(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	keep := cfg.Snapshots.Keep
	if cmd.Flags().Changed("keep") {
		keep, _ = cmd.Flags().GetInt("keep")
	}

	log := newLogger(cfg)

	manager, _, _, err := newSnapshotStack(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}

	removed, err := manager.Prune(keep)
	if err != nil {
		return err
	}

	if cfg.Output.Quiet {
		for _, id := range removed {
			fmt.Println(id)
		}
		return nil
	}

	if len(removed) == 0 {
		fmt.Printf("Nothing to prune, %d or fewer snapshots stored.\n", keep)
		return nil
	}
	for _, id := range removed {
		fmt.Printf("removed %s\n", id)
	}
	fmt.Printf("Pruned %d snapshots, kept the newest %d.\n", len(removed), keep)
	return nil
}
