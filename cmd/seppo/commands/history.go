package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yairfalse/seppo/internal/rollback"
	"github.com/yairfalse/seppo/internal/snapshot"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past rollbacks, newest first",
		Long: `Show the recorded outcome of every rollback run against this storage
directory, including automatic rollbacks triggered by failed deploys.`,
		Example: `  # Recent rollbacks
  seppo history

  # Full record of one rollback
  seppo history --rollback-id rb-9f8e7d6c

  # IDs only, for scripting
  seppo history -q`,
		RunE:         runHistory,
		SilenceUsage: true,
	}

	cmd.Flags().String("rollback-id", "", "show one rollback record in full")
	cmd.Flags().Int("limit", 0, "show at most N records (0 means all)")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	rollbackID, _ := cmd.Flags().GetString("rollback-id")
	limit, _ := cmd.Flags().GetInt("limit")

	cfg := GetConfig()
	store, err := snapshot.NewStore(cfg.Storage.BaseDir)
	if err != nil {
		return err
	}
	history, err := rollback.NewHistory(store.HistoryDir())
	if err != nil {
		return err
	}

	formatter, err := newFormatter(cfg)
	if err != nil {
		return err
	}

	if rollbackID != "" {
		result, err := history.Get(rollbackID)
		if err != nil {
			return err
		}
		rendered, err := formatter.FormatRollbackResult(result)
		if err != nil {
			return err
		}
		fmt.Print(string(rendered))
		return nil
	}

	results, err := history.List()
	if err != nil {
		return err
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	if cfg.Output.Quiet {
		for _, result := range results {
			fmt.Println(result.RollbackID)
		}
		return nil
	}

	rendered, err := formatter.FormatRollbackHistory(results)
	if err != nil {
		return err
	}
	fmt.Print(string(rendered))
	return nil
}
