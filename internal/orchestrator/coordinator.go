// Package orchestrator sequences a full deployment run: snapshot,
// staged execution, verification, and the compensating rollback when
// either of the last two goes wrong.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	seppoerrors "github.com/yairfalse/seppo/internal/errors"
	"github.com/yairfalse/seppo/internal/events"
	"github.com/yairfalse/seppo/internal/executor"
	"github.com/yairfalse/seppo/internal/logger"
	"github.com/yairfalse/seppo/internal/registry"
	"github.com/yairfalse/seppo/pkg/types"
)

const defaultVerifyThreshold = 0.80

// Planner turns a component set into a staged execution plan.
type Planner interface {
	Plan(deploymentID string, components []types.Component) (*types.DeploymentPlan, error)
}

// PlanRunner executes a staged plan and settles every component.
type PlanRunner interface {
	Run(ctx context.Context, plan *types.DeploymentPlan) (*executor.RunResult, error)
}

// Snapshotter captures system state before and after a run.
type Snapshotter interface {
	Create(ctx context.Context, deploymentID, description string, kinds []types.StateKind) (*types.Snapshot, error)
}

// RollbackPlanner builds a compensating plan against a snapshot.
type RollbackPlanner interface {
	BuildPlan(snapshot *types.Snapshot, trigger types.RollbackTrigger, components []string) (*types.RollbackPlan, error)
}

// RollbackRunner executes a rollback plan.
type RollbackRunner interface {
	Execute(ctx context.Context, plan *types.RollbackPlan) (*types.RollbackResult, error)
}

// Verifier runs the post-deploy check suite.
type Verifier interface {
	RunAll(ctx context.Context) *types.VerificationReport
}

// Deps are the collaborators a Coordinator drives. Events, Ports and
// Domains may be nil; everything else is required.
type Deps struct {
	Scheduler Planner
	Executor  PlanRunner
	Snapshots Snapshotter
	Planner   RollbackPlanner
	Rollback  RollbackRunner
	Verifier  Verifier
	Ports     *registry.PortRegistry
	Domains   *registry.DomainRegistry
	Events    *events.Reporter
	Logger    logger.Logger
}

// PortClaim reserves a TCP port for a component before the run starts.
type PortClaim struct {
	Port      int
	Component string
}

// DomainClaim reserves a domain name for a component before the run starts.
type DomainClaim struct {
	Domain    string
	Component string
}

// Options tunes coordinator behavior.
type Options struct {
	// VerifyThreshold is the minimum verification success rate for a
	// run to count as healthy. Zero means the default of 0.80.
	VerifyThreshold float64
	// SnapshotKinds limits what pre and post snapshots capture. Empty
	// means every registered state handler.
	SnapshotKinds []types.StateKind
	// DisableRollback turns off automatic compensation; failures are
	// still reported but the system is left as the run ended.
	DisableRollback bool
	// PortClaims and DomainClaims are resources the run needs. Claim
	// conflicts abort the run before anything is deployed.
	PortClaims   []PortClaim
	DomainClaims []DomainClaim
}

// Coordinator owns one deployment target. It drives runs one at a
// time; callers wanting concurrent runs against different targets use
// separate coordinators.
type Coordinator struct {
	scheduler Planner
	executor  PlanRunner
	snapshots Snapshotter
	planner   RollbackPlanner
	rollback  RollbackRunner
	verifier  Verifier
	ports     *registry.PortRegistry
	domains   *registry.DomainRegistry
	events    *events.Reporter
	logger    logger.Logger
	opts      Options
}

// New wires a coordinator. Missing required collaborators are a
// programming error and fail immediately.
func New(deps Deps, opts Options) (*Coordinator, error) {
	switch {
	case deps.Scheduler == nil:
		return nil, fmt.Errorf("orchestrator requires a scheduler")
	case deps.Executor == nil:
		return nil, fmt.Errorf("orchestrator requires an executor")
	case deps.Snapshots == nil:
		return nil, fmt.Errorf("orchestrator requires a snapshot manager")
	case deps.Planner == nil:
		return nil, fmt.Errorf("orchestrator requires a rollback planner")
	case deps.Rollback == nil:
		return nil, fmt.Errorf("orchestrator requires a rollback executor")
	case deps.Verifier == nil:
		return nil, fmt.Errorf("orchestrator requires a verifier")
	case deps.Logger == nil:
		return nil, fmt.Errorf("orchestrator requires a logger")
	}

	if opts.VerifyThreshold <= 0 {
		opts.VerifyThreshold = defaultVerifyThreshold
	}
	if deps.Ports == nil {
		deps.Ports = registry.NewPortRegistry()
	}
	if deps.Domains == nil {
		deps.Domains = registry.NewDomainRegistry()
	}

	return &Coordinator{
		scheduler: deps.Scheduler,
		executor:  deps.Executor,
		snapshots: deps.Snapshots,
		planner:   deps.Planner,
		rollback:  deps.Rollback,
		verifier:  deps.Verifier,
		ports:     deps.Ports,
		domains:   deps.Domains,
		events:    deps.Events,
		logger:    deps.Logger,
		opts:      opts,
	}, nil
}

// Ports exposes the port registry for status reporting.
func (c *Coordinator) Ports() *registry.PortRegistry { return c.ports }

// Domains exposes the domain registry for status reporting.
func (c *Coordinator) Domains() *registry.DomainRegistry { return c.domains }

// Run drives one full deployment: claim resources, snapshot, plan,
// execute, verify, snapshot again. A deploy-stage failure rolls back to
// the pre-deploy snapshot with trigger deployment_failure; verification
// below threshold does the same with trigger health_check_failure.
// The report records every component result, the verification outcome
// and any rollback; the returned error carries the first fatal cause.
func (c *Coordinator) Run(ctx context.Context, components []types.Component) (*types.DeploymentReport, error) {
	deploymentID := newDeploymentID()
	report := &types.DeploymentReport{
		DeploymentID: deploymentID,
		StartTime:    time.Now().UTC(),
		Status:       types.RunFailed,
		Results:      make(map[string]types.DeploymentResult),
	}

	enabled := enabledComponents(components)
	if len(enabled) == 0 {
		return c.abort(report, "no enabled components to deploy",
			seppoerrors.New(seppoerrors.ErrorTypeConfiguration, "", "no enabled components to deploy").
				WithSolutions("Enable at least one component in the configuration"))
	}

	c.publish(events.Event{
		Kind:         events.KindDeploymentStarted,
		DeploymentID: deploymentID,
		Message:      fmt.Sprintf("deploying %d components", len(enabled)),
	})

	if err := c.claimResources(); err != nil {
		return c.abort(report, "resource claim conflict", err)
	}

	pre, err := c.snapshots.Create(ctx, deploymentID, "pre-deploy", c.opts.SnapshotKinds)
	if err != nil {
		// Without a pre-deploy snapshot there is nothing to roll back
		// to, so the run never starts.
		return c.abort(report, "pre-deploy snapshot failed", err)
	}
	report.PreSnapshotID = pre.ID
	c.publishSnapshot(deploymentID, pre, "pre-deploy")

	plan, err := c.scheduler.Plan(deploymentID, enabled)
	if err != nil {
		return c.abort(report, "dependency resolution failed", err)
	}

	run, runErr := c.executor.Run(ctx, plan)
	if run != nil {
		for name, result := range run.Results {
			report.Results[name] = result
		}
		c.publishStages(deploymentID, run)
	}

	if runErr != nil || (run != nil && !run.Succeeded()) {
		reason := deployFailureReason(run, runErr)
		report.FailureReason = reason
		c.maybeRollback(ctx, report, pre, types.TriggerDeploymentFailure, reason)
		c.finish(report, types.RunFailed)
		if runErr == nil {
			runErr = seppoerrors.New(seppoerrors.ErrorTypeAdapter, "", reason)
		}
		return report, runErr
	}

	verification := c.verifier.RunAll(ctx)
	report.Verification = verification
	summary := verification.Summary()
	c.publish(events.Event{
		Kind:         events.KindVerificationDone,
		DeploymentID: deploymentID,
		Message: fmt.Sprintf("verification finished: %d/%d checks passed (%.0f%%)",
			summary.Passed, summary.Total, summary.SuccessRate*100),
	})

	if summary.SuccessRate < c.opts.VerifyThreshold {
		failed := checkNames(verification.FailedChecks())
		verr := seppoerrors.NewVerificationFailure(summary.SuccessRate, c.opts.VerifyThreshold, failed)
		reason := fmt.Sprintf("verification success rate %.0f%% is below the %.0f%% threshold",
			summary.SuccessRate*100, c.opts.VerifyThreshold*100)
		report.FailureReason = reason
		c.maybeRollback(ctx, report, pre, types.TriggerHealthCheckFailure, reason)
		c.finish(report, types.RunFailed)
		return report, verr
	}

	post, err := c.snapshots.Create(ctx, deploymentID, "post-deploy", c.opts.SnapshotKinds)
	if err != nil {
		// The system is verified healthy, so no rollback; the run still
		// fails because the new state was not preserved.
		report.FailureReason = "post-deploy snapshot failed: " + err.Error()
		c.finish(report, types.RunFailed)
		return report, err
	}
	report.PostSnapshotID = post.ID
	c.publishSnapshot(deploymentID, post, "post-deploy")

	c.finish(report, types.RunSuccess)
	return report, nil
}

// maybeRollback plans and executes a compensating rollback unless
// rollback is disabled or the run was cancelled. Cancellation never
// triggers rollback on its own; that stays an explicit operator call.
func (c *Coordinator) maybeRollback(ctx context.Context, report *types.DeploymentReport, pre *types.Snapshot, trigger types.RollbackTrigger, reason string) {
	if c.opts.DisableRollback {
		c.logger.Warn("automatic rollback is disabled, leaving system as the run ended")
		return
	}
	if ctx.Err() != nil {
		c.logger.Warn("run cancelled, skipping automatic rollback")
		return
	}

	c.publish(events.Event{
		Kind:         events.KindRollbackTriggered,
		DeploymentID: report.DeploymentID,
		Message:      fmt.Sprintf("rolling back to snapshot %s (%s)", pre.ID, trigger),
		Details:      map[string]string{"trigger": trigger.String(), "reason": reason},
	})

	plan, err := c.planner.BuildPlan(pre, trigger, nil)
	if err != nil {
		c.logger.Error("failed to build rollback plan", err)
		report.Rollback = &types.RollbackResult{
			SnapshotID:   pre.ID,
			Trigger:      trigger,
			Status:       types.RollbackFailed,
			StartTime:    time.Now().UTC(),
			EndTime:      time.Now().UTC(),
			ErrorMessage: "rollback planning failed: " + err.Error(),
		}
		return
	}

	result, err := c.rollback.Execute(ctx, plan)
	if err != nil {
		c.logger.Error("rollback execution failed", err)
	}
	report.Rollback = result

	status := "failed"
	if result != nil && result.Succeeded() {
		status = "succeeded"
	}
	c.publish(events.Event{
		Kind:         events.KindRollbackFinished,
		DeploymentID: report.DeploymentID,
		Message:      fmt.Sprintf("rollback to snapshot %s %s", pre.ID, status),
		Details:      map[string]string{"trigger": trigger.String()},
	})
}

// claimResources reserves every configured port and domain. A conflict
// means two components are configured onto the same resource, which is
// fatal before anything deploys.
func (c *Coordinator) claimResources() error {
	for _, claim := range c.opts.PortClaims {
		if err := c.ports.Claim(claim.Port, claim.Component); err != nil {
			return err
		}
	}
	for _, claim := range c.opts.DomainClaims {
		if err := c.domains.Claim(claim.Domain, claim.Component); err != nil {
			return err
		}
	}
	return nil
}

// abort fails a run that never reached the execution phase.
func (c *Coordinator) abort(report *types.DeploymentReport, reason string, err error) (*types.DeploymentReport, error) {
	report.FailureReason = reason + ": " + err.Error()
	c.finish(report, types.RunFailed)
	return report, err
}

func (c *Coordinator) finish(report *types.DeploymentReport, status types.RunStatus) {
	report.Status = status
	report.EndTime = time.Now().UTC()

	kind := events.KindDeploymentSucceeded
	message := "deployment succeeded"
	if status != types.RunSuccess {
		kind = events.KindDeploymentFailed
		message = "deployment failed"
		if report.FailureReason != "" {
			message = "deployment failed: " + report.FailureReason
		}
	}
	c.publish(events.Event{Kind: kind, DeploymentID: report.DeploymentID, Message: message})

	c.logger.WithFields(map[string]interface{}{
		"deployment": report.DeploymentID,
		"status":     report.Status.String(),
		"duration":   report.EndTime.Sub(report.StartTime).String(),
	}).Info("run finished")
}

func (c *Coordinator) publish(event events.Event) {
	if c.events == nil {
		return
	}
	c.events.Publish(event)
}

func (c *Coordinator) publishSnapshot(deploymentID string, snapshot *types.Snapshot, phase string) {
	c.publish(events.Event{
		Kind:         events.KindSnapshotCreated,
		DeploymentID: deploymentID,
		Message:      fmt.Sprintf("%s snapshot %s captured %d components", phase, snapshot.ID, len(snapshot.Components)),
		Details:      map[string]string{"snapshot_id": snapshot.ID, "phase": phase},
	})
}

func (c *Coordinator) publishStages(deploymentID string, run *executor.RunResult) {
	for _, stage := range run.Stages {
		message := fmt.Sprintf("stage %d settled in %s", stage.Index+1, stage.Duration.Round(time.Millisecond))
		if len(stage.Failed) > 0 {
			message = fmt.Sprintf("stage %d failed: %s", stage.Index+1, strings.Join(stage.Failed, ", "))
		}
		c.publish(events.Event{
			Kind:         events.KindStageSettled,
			DeploymentID: deploymentID,
			Message:      message,
		})
	}
}

// enabledComponents filters out disabled components before planning.
func enabledComponents(components []types.Component) []types.Component {
	enabled := make([]types.Component, 0, len(components))
	for i := range components {
		if components[i].Enabled {
			enabled = append(enabled, components[i])
		}
	}
	return enabled
}

func deployFailureReason(run *executor.RunResult, runErr error) string {
	if run != nil {
		if failed := run.Failed(); len(failed) > 0 {
			return fmt.Sprintf("components failed to deploy: %s", strings.Join(failed, ", "))
		}
	}
	if runErr != nil {
		return runErr.Error()
	}
	return "deployment did not complete"
}

func checkNames(checks []types.VerificationCheck) []string {
	names := make([]string, len(checks))
	for i := range checks {
		names[i] = checks[i].Name
	}
	return names
}

func newDeploymentID() string {
	return "deploy-" + uuid.New().String()[:8]
}
