package rollback

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yairfalse/seppo/internal/errors"
	"github.com/yairfalse/seppo/internal/logger"
	"github.com/yairfalse/seppo/internal/snapshot"
	"github.com/yairfalse/seppo/pkg/types"
)

// StepVerifier checks one component's state after its restore step. The
// verification suite provides the production implementation.
type StepVerifier interface {
	VerifyComponent(ctx context.Context, component string) error
}

// Executor runs a rollback plan against a snapshot archive. Every
// execution, whatever its outcome, is persisted to history.
type Executor struct {
	snapshots *snapshot.Manager
	handlers  *snapshot.HandlerRegistry
	verifier  StepVerifier
	history   *History
	logger    logger.Logger
}

func NewExecutor(snapshots *snapshot.Manager, handlers *snapshot.HandlerRegistry, verifier StepVerifier, history *History, log logger.Logger) *Executor {
	return &Executor{
		snapshots: snapshots,
		handlers:  handlers,
		verifier:  verifier,
		history:   history,
		logger:    log,
	}
}

// Execute runs the plan: checksum gate, extraction, restores in plan
// order aborting on the first failure, then every verification step.
// The rollback is SUCCESS only when all restores completed and all
// verifications passed.
func (e *Executor) Execute(ctx context.Context, plan *types.RollbackPlan) (*types.RollbackResult, error) {
	if err := plan.Validate(); err != nil {
		return nil, errors.New(errors.ErrorTypeConfiguration, "rollback", err.Error())
	}

	// Nothing has run yet; a cancelled context calls the rollback off.
	if err := ctx.Err(); err != nil {
		result, recordErr := e.Cancel(plan, fmt.Sprintf("cancelled before execution: %v", err))
		if recordErr != nil {
			e.logger.Error("failed to persist cancelled rollback", recordErr)
		}
		return result, err
	}

	result := &types.RollbackResult{
		RollbackID:          plan.RollbackID,
		SnapshotID:          plan.TargetSnapshotID,
		Trigger:             plan.Trigger,
		Status:              types.RollbackPending,
		StartTime:           time.Now().UTC(),
		VerificationResults: make(map[string]bool),
	}

	e.transition(result, types.RollbackInProgress)
	e.logger.WithFields(map[string]interface{}{
		"rollback": plan.RollbackID,
		"snapshot": plan.TargetSnapshotID,
		"trigger":  plan.Trigger.String(),
	}).Info("rollback started")

	snap, err := e.snapshots.Get(plan.TargetSnapshotID)
	if err != nil {
		e.finish(result, types.RollbackFailed, errorMessage(err))
		return result, err
	}

	// Checksum gate: a mismatch aborts before anything destructive runs.
	archivePath, err := e.snapshots.PrepareArchive(ctx, snap)
	if err != nil {
		e.finish(result, types.RollbackFailed, errorMessage(err))
		return result, err
	}

	scratch, err := os.MkdirTemp("", "seppo-rollback-")
	if err != nil {
		serr := errors.NewStorageError("create", "temp directory", err)
		e.finish(result, types.RollbackFailed, errorMessage(serr))
		return result, serr
	}
	defer os.RemoveAll(scratch)

	if err := snapshot.ExtractArchive(archivePath, scratch); err != nil {
		serr := errors.NewStorageError("extract", archivePath, err)
		e.finish(result, types.RollbackFailed, errorMessage(serr))
		return result, serr
	}

	restoreErr := e.runRestores(ctx, plan, scratch, result)
	e.runVerifications(ctx, plan, result)

	if restoreErr == nil && result.VerificationsPassed() {
		e.finish(result, types.RollbackSuccess, "")
		e.logger.WithFields(map[string]interface{}{
			"rollback":   plan.RollbackID,
			"components": len(result.ComponentsRolledBack),
		}).Info("rollback completed")
		return result, nil
	}

	if restoreErr != nil {
		e.finish(result, types.RollbackFailed, errorMessage(restoreErr))
		return result, restoreErr
	}

	verr := errors.New(errors.ErrorTypeVerification, "rollback",
		fmt.Sprintf("rollback verification failed for: %s", strings.Join(failedVerifications(result), ", "))).
		WithSolutions(
			"Inspect the failing components before retrying",
			"The restored state is in place; only its verification failed",
		).
		WithVerify("seppo verify")
	e.finish(result, types.RollbackFailed, verr.Message)
	return result, verr
}

// Cancel records that the plan was called off before execution began.
func (e *Executor) Cancel(plan *types.RollbackPlan, reason string) (*types.RollbackResult, error) {
	now := time.Now().UTC()
	result := &types.RollbackResult{
		RollbackID:   plan.RollbackID,
		SnapshotID:   plan.TargetSnapshotID,
		Trigger:      plan.Trigger,
		Status:       types.RollbackCancelled,
		StartTime:    now,
		EndTime:      now,
		ErrorMessage: reason,
	}
	if e.history != nil {
		if err := e.history.Record(result); err != nil {
			return result, err
		}
	}
	return result, nil
}

// runRestores executes restore steps in plan order, stopping at the
// first failure. Completed components are recorded as it goes.
func (e *Executor) runRestores(ctx context.Context, plan *types.RollbackPlan, scratch string, result *types.RollbackResult) error {
	for _, step := range plan.Steps {
		kind := types.StateKind(step.Component)
		handler, ok := e.handlers.Get(kind)
		if !ok {
			return errors.New(errors.ErrorTypeConfiguration, step.Component,
				fmt.Sprintf("no state handler registered for %s", step.Component))
		}

		stateDir := filepath.Join(scratch, step.Component)
		if _, err := os.Stat(stateDir); err != nil {
			return errors.NewStorageError("restore", stateDir, err)
		}

		e.logger.WithField("component", step.Component).Info("restoring component state")
		if err := handler.Restore(ctx, stateDir); err != nil {
			e.logger.Error(fmt.Sprintf("restore of %s failed, aborting remaining restores", step.Component), err)
			return errors.New(errors.ErrorTypeStorage, step.Component,
				fmt.Sprintf("restore of %s failed", step.Component)).
				WithCause(err.Error())
		}
		result.ComponentsRolledBack = append(result.ComponentsRolledBack, step.Component)
	}
	return nil
}

// runVerifications executes every verification step regardless of
// earlier failures so the result carries a complete pass/fail map.
func (e *Executor) runVerifications(ctx context.Context, plan *types.RollbackPlan, result *types.RollbackResult) {
	for _, step := range plan.VerificationSteps {
		err := e.verifier.VerifyComponent(ctx, step.Component)
		result.VerificationResults[step.Component] = err == nil
		if err != nil {
			e.logger.WithField("component", step.Component).Warn(fmt.Sprintf("rollback verification failed: %v", err))
		}
	}
}

func (e *Executor) finish(result *types.RollbackResult, status types.RollbackStatus, errMessage string) {
	e.transition(result, status)
	result.EndTime = time.Now().UTC()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.ErrorMessage = errMessage
	if e.history != nil {
		if err := e.history.Record(result); err != nil {
			e.logger.Error("failed to persist rollback record", err)
		}
	}
}

// transition enforces the forward-only lifecycle.
func (e *Executor) transition(result *types.RollbackResult, next types.RollbackStatus) {
	if !result.Status.CanTransition(next) {
		e.logger.Warn(fmt.Sprintf("illegal rollback status transition %s -> %s", result.Status, next))
		return
	}
	result.Status = next
}

func failedVerifications(result *types.RollbackResult) []string {
	var failed []string
	for component, passed := range result.VerificationResults {
		if !passed {
			failed = append(failed, component)
		}
	}
	sort.Strings(failed)
	return failed
}

// errorMessage keeps result records concise: structured errors contribute
// their one-line message instead of the full rendered guidance block.
func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	if seppoErr, ok := err.(*errors.SeppoError); ok {
		return seppoErr.Message
	}
	return err.Error()
}
