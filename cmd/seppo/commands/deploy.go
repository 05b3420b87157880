package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	seppoerrors "github.com/yairfalse/seppo/internal/errors"
	"github.com/yairfalse/seppo/internal/events"
	"github.com/yairfalse/seppo/internal/logger"
	"github.com/yairfalse/seppo/internal/output"
	"github.com/yairfalse/seppo/internal/scheduler"
	"github.com/yairfalse/seppo/pkg/types"
)

func newDeployCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "deploy",
		Short:        "Deploy all configured components in dependency order",
		SilenceUsage: true,
		Long: `Deploy runs the full pipeline: capture a pre-deploy snapshot, work
through the staged plan with retries and parallelism where safe, run the
verification suite, and capture a post-deploy snapshot.

When a stage fails or verification falls below the configured threshold,
seppo automatically rolls the system back to the pre-deploy snapshot.`,
		Example: `  # Deploy everything in the configuration
  seppo deploy

  # Show the staged plan without touching anything
  seppo deploy --dry-run

  # Deploy a subset (their dependencies must be listed too)
  seppo deploy --components dependencies,database

  # Deploy without the safety net
  seppo deploy --skip-rollback`,
		RunE: runDeploy,
	}

	cmd.Flags().StringSlice("components", nil, "deploy only these components")
	cmd.Flags().Bool("dry-run", false, "print the staged plan without deploying")
	cmd.Flags().Bool("skip-rollback", false, "do not roll back automatically on failure")

	return cmd
}

func runDeploy(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	log := newLogger(cfg)

	components := cfg.ToComponents()
	if selected, _ := cmd.Flags().GetStringSlice("components"); len(selected) > 0 {
		var err error
		components, err = filterComponents(components, selected)
		if err != nil {
			return err
		}
	}

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		return printDryRunPlan(log, components)
	}

	formatter, err := newFormatter(cfg)
	if err != nil {
		return err
	}

	opts := runtimeOptions{}
	if skip, _ := cmd.Flags().GetBool("skip-rollback"); skip {
		opts.disableRollback = true
	}

	var steps *output.StepProgress
	if cfg.Output.Format == "table" && !cfg.Output.Quiet {
		steps = output.NewStepProgress("Deploying", []string{
			"capture pre-deploy snapshot",
			"deploy components",
			"verify deployment",
			"capture post-deploy snapshot",
		}, cfg.Output.NoColor)
		opts.sinks = append(opts.sinks, &progressSink{steps: steps})
		steps.SetStep(0)
	}

	coordinator, reporter, err := newCoordinator(cmd.Context(), cfg, log, components, opts)
	if err != nil {
		return err
	}

	report, runErr := coordinator.Run(cmd.Context(), components)
	reporter.Close()
	if steps != nil {
		if report != nil && report.Succeeded() {
			steps.Finish()
		} else {
			fmt.Println()
		}
	}

	if report != nil {
		rendered, ferr := formatter.FormatReport(report)
		if ferr != nil {
			return ferr
		}
		fmt.Print(string(rendered))
	}

	return runErr
}

// printDryRunPlan schedules the components and prints the stages
// without deploying anything.
func printDryRunPlan(log logger.Logger, components []types.Component) error {
	plan, err := scheduler.New(log).Plan("dry-run", components)
	if err != nil {
		return err
	}

	if len(plan.Stages) == 0 {
		fmt.Println("Nothing to deploy.")
		return nil
	}

	fmt.Printf("Deployment plan: %d components in %d stages\n\n", plan.ComponentCount(), len(plan.Stages))
	for i := range plan.Stages {
		stage := &plan.Stages[i]
		mode := "sequential"
		if stage.Parallel {
			mode = "parallel"
		}
		fmt.Printf("  Stage %d (%s): %s\n", i+1, mode, strings.Join(stage.Names(), ", "))
	}
	return nil
}

// filterComponents keeps only the requested components, erroring on
// names that are not configured. Dependencies outside the selection
// are scheduled around, not pulled in.
func filterComponents(components []types.Component, names []string) ([]types.Component, error) {
	byName := make(map[string]types.Component, len(components))
	for i := range components {
		byName[components[i].Name] = components[i]
	}

	selected := make([]types.Component, 0, len(names))
	for _, name := range names {
		component, ok := byName[name]
		if !ok {
			configured := make([]string, 0, len(components))
			for i := range components {
				configured = append(configured, components[i].Name)
			}
			return nil, seppoerrors.New(seppoerrors.ErrorTypeConfiguration, name,
				fmt.Sprintf("component %q is not configured", name)).
				WithSolutions(
					fmt.Sprintf("Configured components: %s", strings.Join(configured, ", ")),
					"Check the components list in config.yaml",
				)
		}
		selected = append(selected, component)
	}
	return selected, nil
}

// progressSink advances the deploy step display as lifecycle events
// arrive from the coordinator.
type progressSink struct {
	steps *output.StepProgress
}

func (s *progressSink) Name() string { return "progress" }

func (s *progressSink) Send(_ context.Context, event events.Event) error {
	switch event.Kind {
	case events.KindSnapshotCreated:
		if event.Details["phase"] == "pre-deploy" {
			s.steps.SetStep(1)
		} else {
			s.steps.SetStep(4)
		}
	case events.KindVerificationDone:
		s.steps.SetStep(3)
	}
	return nil
}
