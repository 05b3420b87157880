package rollback

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yairfalse/seppo/internal/errors"
	"github.com/yairfalse/seppo/internal/logger"
	"github.com/yairfalse/seppo/pkg/types"
)

// Restore weights per state kind. Database restores dominate the score
// because a bad restore there is the hardest to recover from.
var riskWeights = map[types.StateKind]int{
	types.StateDatabase:   6,
	types.StateConfig:     2,
	types.StateSSL:        2,
	types.StateFrontend:   1,
	types.StateMonitoring: 1,
}

// Step estimates shown to operators in the plan summary.
var restoreEstimates = map[types.StateKind]time.Duration{
	types.StateConfig:     10 * time.Second,
	types.StateDatabase:   2 * time.Minute,
	types.StateFrontend:   30 * time.Second,
	types.StateSSL:        15 * time.Second,
	types.StateMonitoring: 20 * time.Second,
}

const verifyEstimate = 5 * time.Second

// Snapshots older than a day add risk, older than a week add more.
const (
	staleAfter     = 24 * time.Hour
	veryStaleAfter = 7 * 24 * time.Hour
)

// Planner turns a target snapshot and trigger into an ordered,
// risk-scored rollback plan.
type Planner struct {
	logger logger.Logger
}

func NewPlanner(log logger.Logger) *Planner {
	return &Planner{logger: log}
}

// BuildPlan produces the restore and verification steps for returning to
// snapshot. An empty components slice selects everything the snapshot
// captured; a non-empty one must be a subset of it.
func (p *Planner) BuildPlan(snapshot *types.Snapshot, trigger types.RollbackTrigger, components []string) (*types.RollbackPlan, error) {
	if snapshot == nil {
		return nil, errors.New(errors.ErrorTypeConfiguration, "rollback", "no target snapshot given")
	}
	if !trigger.IsValid() {
		return nil, errors.New(errors.ErrorTypeConfiguration, "rollback", fmt.Sprintf("unknown rollback trigger %q", trigger))
	}

	selected := components
	if len(selected) == 0 {
		selected = snapshot.Components
	} else {
		for _, name := range selected {
			if !snapshot.HasComponent(name) {
				return nil, errors.New(errors.ErrorTypeConfiguration, name,
					fmt.Sprintf("component %s is not part of snapshot %s", name, snapshot.ID)).
					WithCause(fmt.Sprintf("snapshot %s captured: %s", snapshot.ID, strings.Join(snapshot.Components, ", "))).
					WithSolutions(
						"Pick components from the snapshot's captured list",
						"Re-run without --components to restore everything the snapshot holds",
					).
					WithHelp("seppo list-snapshots")
			}
		}
	}

	ordered := orderComponents(selected)
	if len(ordered) == 0 {
		return nil, errors.New(errors.ErrorTypeConfiguration, "rollback",
			fmt.Sprintf("snapshot %s has no restorable components", snapshot.ID))
	}

	steps := make([]types.RestoreStep, 0, len(ordered))
	verifications := make([]types.VerificationStep, 0, len(ordered))
	var estimated time.Duration

	for _, kind := range ordered {
		restoreEst := restoreEstimates[kind]
		steps = append(steps, types.RestoreStep{
			Component:   kind.String(),
			Description: fmt.Sprintf("restore %s state from snapshot %s", kind, snapshot.ID),
			Estimated:   restoreEst,
		})
		verifications = append(verifications, types.VerificationStep{
			Component:   kind.String(),
			Description: fmt.Sprintf("verify restored %s state", kind),
			Estimated:   verifyEstimate,
		})
		estimated += restoreEst + verifyEstimate
	}

	plan := &types.RollbackPlan{
		RollbackID:        newRollbackID(),
		TargetSnapshotID:  snapshot.ID,
		Trigger:           trigger,
		Components:        kindNames(ordered),
		Steps:             steps,
		VerificationSteps: verifications,
		EstimatedDuration: estimated,
		RiskLevel:         scoreRisk(ordered, snapshot.Age(time.Now().UTC())),
	}

	p.logger.WithFields(map[string]interface{}{
		"rollback": plan.RollbackID,
		"snapshot": snapshot.ID,
		"trigger":  trigger.String(),
		"risk":     plan.RiskLevel.String(),
		"steps":    len(steps),
	}).Info("rollback plan built")

	return plan, nil
}

// scoreRisk sums component weights and age penalties, then buckets the
// total: <3 low, 3-5 medium, >=6 high.
func scoreRisk(kinds []types.StateKind, age time.Duration) types.RiskLevel {
	score := 0
	for _, kind := range kinds {
		score += riskWeights[kind]
	}
	if age > staleAfter {
		score++
	}
	if age > veryStaleAfter {
		score += 2
	}

	switch {
	case score >= 6:
		return types.RiskHigh
	case score >= 3:
		return types.RiskMedium
	default:
		return types.RiskLow
	}
}

// orderComponents maps component names onto state kinds in canonical
// restore order, dropping duplicates and names that are not state kinds.
func orderComponents(names []string) []types.StateKind {
	requested := make(map[types.StateKind]bool, len(names))
	for _, name := range names {
		kind := types.StateKind(name)
		if kind.IsValid() {
			requested[kind] = true
		}
	}
	var ordered []types.StateKind
	for _, kind := range types.StateKinds() {
		if requested[kind] {
			ordered = append(ordered, kind)
		}
	}
	return ordered
}

func kindNames(kinds []types.StateKind) []string {
	names := make([]string, len(kinds))
	for i, kind := range kinds {
		names[i] = kind.String()
	}
	return names
}

func newRollbackID() string {
	return "rb-" + uuid.New().String()[:8]
}
