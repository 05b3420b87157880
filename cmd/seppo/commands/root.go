package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	seppoerrors "github.com/yairfalse/seppo/internal/errors"
	"github.com/yairfalse/seppo/pkg/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "seppo",
	Short: "The eternal smith who forges deployments and unmakes mistakes",
	Long: `SEPPO - Deployment orchestration with a hammer and an anvil.

Named for Seppo Ilmarinen, the smith of Finnish myth who forged the
Sampo and, when a casting came out wrong, threw it back into the forge.
Seppo deploys your components in dependency order, snapshots the world
before touching it, verifies the result, and hammers everything back
to the last good state when a deploy goes sideways.

THE FORGE:
  seppo deploy          # Staged deployment with automatic rollback
  seppo verify          # Run the post-deploy check suite
  seppo rollback        # Return to a known-good snapshot
  seppo list-snapshots  # Every state the smith has set aside

WHAT THE SMITH WATCHES:
  system packages, the database, the frontend bundle,
  SSL certificates, and the monitoring stack.

"What was forged wrong goes back into the fire."`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
			runVersion(cmd, []string{})
			return nil
		}
		return cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

// Execute runs the root command under a signal-aware context. An
// interrupted run exits 130 the way shells expect; other failures map
// through the error taxonomy.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if ctx.Err() != nil {
		os.Exit(130)
	}
	if err != nil {
		os.Exit(seppoerrors.GetExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.seppo/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "output format (table, json, yaml, markdown, plain)")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress output")
	rootCmd.PersistentFlags().Bool("version", false, "show version information")

	rootCmd.AddCommand(newDeployCommand())
	rootCmd.AddCommand(newVerifyCommand())
	rootCmd.AddCommand(newRollbackCommand())
	rootCmd.AddCommand(newListSnapshotsCommand())
	rootCmd.AddCommand(newCreateSnapshotCommand())
	rootCmd.AddCommand(newPruneSnapshotsCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newVersionCommand())
}

// initConfig loads configuration and folds the persistent flags over
// it. Flags win over environment, environment wins over file.
func initConfig(cmd *cobra.Command) error {
	var err error
	cfg, err = config.LoadFrom(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.ExpandPaths(); err != nil {
		return fmt.Errorf("failed to expand config paths: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if verbose, _ := flags.GetBool("verbose"); verbose {
		cfg.Logging.Level = "debug"
	}
	if debug, _ := flags.GetBool("debug"); debug {
		cfg.Logging.Level = "debug"
	}
	if flags.Changed("output") {
		cfg.Output.Format, _ = flags.GetString("output")
	}
	if noColor, _ := flags.GetBool("no-color"); noColor {
		cfg.Output.NoColor = true
	}
	if quiet, _ := flags.GetBool("quiet"); quiet {
		cfg.Output.Quiet = true
	}

	return cfg.Validate()
}

// GetConfig returns the loaded configuration
func GetConfig() *config.Config {
	return cfg
}
