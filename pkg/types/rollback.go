package types

import (
	"fmt"
	"strings"
	"time"
)

// RollbackTrigger records why a rollback was started
type RollbackTrigger string

const (
	// TriggerManual means an operator requested the rollback
	TriggerManual RollbackTrigger = "manual"
	// TriggerDeploymentFailure means a deploy stage failed
	TriggerDeploymentFailure RollbackTrigger = "deployment_failure"
	// TriggerHealthCheckFailure means post-deploy verification fell below threshold
	TriggerHealthCheckFailure RollbackTrigger = "health_check_failure"
)

// IsValid checks if the RollbackTrigger is valid
func (t RollbackTrigger) IsValid() bool {
	switch t {
	case TriggerManual, TriggerDeploymentFailure, TriggerHealthCheckFailure:
		return true
	default:
		return false
	}
}

// String returns the string representation of RollbackTrigger
func (t RollbackTrigger) String() string {
	return string(t)
}

// RiskLevel buckets how dangerous executing a rollback plan is
type RiskLevel string

const (
	// RiskLow covers plans touching only easily recreated state
	RiskLow RiskLevel = "low"
	// RiskMedium covers plans with moderate blast radius or stale snapshots
	RiskMedium RiskLevel = "medium"
	// RiskHigh covers plans restoring the database or very old state
	RiskHigh RiskLevel = "high"
)

// String returns the string representation of RiskLevel
func (r RiskLevel) String() string {
	return string(r)
}

// RollbackStatus is the lifecycle state of a rollback execution
type RollbackStatus string

const (
	// RollbackPending means the plan exists but execution has not started
	RollbackPending RollbackStatus = "pending"
	// RollbackInProgress means restore or verification steps are running
	RollbackInProgress RollbackStatus = "in_progress"
	// RollbackSuccess means every restore and every verification passed
	RollbackSuccess RollbackStatus = "success"
	// RollbackFailed means a restore aborted or a verification failed
	RollbackFailed RollbackStatus = "failed"
	// RollbackCancelled means execution was called off before any step ran
	RollbackCancelled RollbackStatus = "cancelled"
)

// String returns the string representation of RollbackStatus
func (s RollbackStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status can never change again
func (s RollbackStatus) IsTerminal() bool {
	switch s {
	case RollbackSuccess, RollbackFailed, RollbackCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether moving from s to next is a legal lifecycle
// step. Transitions only move forward; cancelled is reachable only from
// pending.
func (s RollbackStatus) CanTransition(next RollbackStatus) bool {
	switch s {
	case RollbackPending:
		return next == RollbackInProgress || next == RollbackCancelled
	case RollbackInProgress:
		return next == RollbackSuccess || next == RollbackFailed
	default:
		return false
	}
}

// RestoreStep is one component restore inside a rollback plan
type RestoreStep struct {
	Component   string        `json:"component"`
	Description string        `json:"description"`
	Estimated   time.Duration `json:"estimated"`
}

// VerificationStep is one post-restore check inside a rollback plan
type VerificationStep struct {
	Component   string        `json:"component"`
	Description string        `json:"description"`
	Estimated   time.Duration `json:"estimated"`
}

// RollbackPlan is the ordered set of restore and verification steps for
// returning to a snapshot. Plans are ephemeral: they are computed, maybe
// shown to an operator, executed, and discarded. Only results persist.
type RollbackPlan struct {
	RollbackID        string             `json:"rollback_id"`
	TargetSnapshotID  string             `json:"target_snapshot_id"`
	Trigger           RollbackTrigger    `json:"trigger"`
	Components        []string           `json:"components"`
	Steps             []RestoreStep      `json:"steps"`
	VerificationSteps []VerificationStep `json:"verification_steps"`
	EstimatedDuration time.Duration      `json:"estimated_duration"`
	RiskLevel         RiskLevel          `json:"risk_level"`
}

// Validate checks the plan invariants before execution
func (p *RollbackPlan) Validate() error {
	if strings.TrimSpace(p.RollbackID) == "" {
		return fmt.Errorf("rollback plan ID is required")
	}
	if strings.TrimSpace(p.TargetSnapshotID) == "" {
		return fmt.Errorf("rollback plan target snapshot is required")
	}
	if !p.Trigger.IsValid() {
		return fmt.Errorf("rollback plan has invalid trigger %q", p.Trigger)
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("rollback plan has no restore steps")
	}
	if len(p.Steps) != len(p.VerificationSteps) {
		return fmt.Errorf("rollback plan has %d restore steps but %d verification steps", len(p.Steps), len(p.VerificationSteps))
	}
	return nil
}

// RollbackResult is the persisted record of one rollback execution
type RollbackResult struct {
	RollbackID           string          `json:"rollback_id"`
	SnapshotID           string          `json:"snapshot_id"`
	Trigger              RollbackTrigger `json:"trigger"`
	Status               RollbackStatus  `json:"status"`
	StartTime            time.Time       `json:"start_time"`
	EndTime              time.Time       `json:"end_time,omitempty"`
	Duration             time.Duration   `json:"duration"`
	ComponentsRolledBack []string        `json:"components_rolled_back,omitempty"`
	VerificationResults  map[string]bool `json:"verification_results,omitempty"`
	ErrorMessage         string          `json:"error_message,omitempty"`
}

// Succeeded reports whether the rollback reached full success
func (r *RollbackResult) Succeeded() bool {
	return r.Status == RollbackSuccess
}

// VerificationsPassed reports whether every recorded verification passed
func (r *RollbackResult) VerificationsPassed() bool {
	for _, ok := range r.VerificationResults {
		if !ok {
			return false
		}
	}
	return true
}
