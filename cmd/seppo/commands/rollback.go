package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yairfalse/seppo/internal/events"
	"github.com/yairfalse/seppo/internal/output"
	"github.com/yairfalse/seppo/internal/rollback"
	"github.com/yairfalse/seppo/pkg/types"
)

func newRollbackCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Restore system state from a snapshot",
		Long: `Restore component state from a previously captured snapshot.

The snapshot archive is checksum-verified before anything is touched.
A risk-scored plan is built and printed first; use --plan-only to stop
there without restoring anything.`,
		Example: `  # Roll back to a snapshot
  seppo rollback --snapshot-id snap-1a2b3c4d

  # Only restore selected components
  seppo rollback --snapshot-id snap-1a2b3c4d --components database,frontend

  # Inspect the plan without executing it
  seppo rollback --snapshot-id snap-1a2b3c4d --plan-only`,
		RunE:         runRollback,
		SilenceUsage: true,
	}

	cmd.Flags().String("snapshot-id", "", "snapshot to restore from (required)")
	cmd.Flags().StringSlice("components", nil, "restore only these components")
	cmd.Flags().Bool("plan-only", false, "print the rollback plan without executing it")
	_ = cmd.MarkFlagRequired("snapshot-id")

	return cmd
}

func runRollback(cmd *cobra.Command, args []string) error {
	snapshotID, _ := cmd.Flags().GetString("snapshot-id")
	components, _ := cmd.Flags().GetStringSlice("components")
	planOnly, _ := cmd.Flags().GetBool("plan-only")

	ctx := cmd.Context()
	cfg := GetConfig()
	log := newLogger(cfg)

	manager, store, handlers, err := newSnapshotStack(ctx, cfg, log)
	if err != nil {
		return err
	}

	snap, err := manager.Get(snapshotID)
	if err != nil {
		return err
	}

	plan, err := rollback.NewPlanner(log).BuildPlan(snap, types.TriggerManual, components)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(cfg)
	if err != nil {
		return err
	}

	rendered, err := formatter.FormatRollbackPlan(plan)
	if err != nil {
		return err
	}
	fmt.Print(string(rendered))

	if planOnly {
		return nil
	}

	suite, err := newVerifySuite(cfg, log)
	if err != nil {
		return err
	}
	history, err := rollback.NewHistory(store.HistoryDir())
	if err != nil {
		return err
	}

	reporter := newReporter(cfg, log)
	defer reporter.Close()

	reporter.Publish(events.Event{
		Kind:         events.KindRollbackTriggered,
		DeploymentID: snap.DeploymentID,
		Message:      fmt.Sprintf("manual rollback to snapshot %s", snap.ID),
		Details:      map[string]string{"snapshot_id": snap.ID, "trigger": plan.Trigger.String()},
	})

	var spinner *output.Spinner
	if cfg.Output.Format == "table" && !cfg.Output.Quiet {
		spinner = output.NewSpinner(fmt.Sprintf("Restoring %d components from %s", len(plan.Steps), snap.ID), cfg.Output.NoColor)
		spinner.Start()
	}

	result, execErr := rollback.NewExecutor(manager, handlers, suite, history, log).Execute(ctx, plan)

	if spinner != nil {
		spinner.Stop()
	}

	if result != nil {
		reporter.Publish(events.Event{
			Kind:         events.KindRollbackFinished,
			DeploymentID: snap.DeploymentID,
			Message:      fmt.Sprintf("rollback %s %s", result.RollbackID, result.Status),
			Details:      map[string]string{"rollback_id": result.RollbackID, "status": result.Status.String()},
		})

		rendered, ferr := formatter.FormatRollbackResult(result)
		if ferr != nil {
			return ferr
		}
		fmt.Print(string(rendered))
	}

	return execErr
}
