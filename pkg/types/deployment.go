package types

import (
	"fmt"
	"strings"
	"time"
)

// DeploymentStatus is the terminal state of a single component deployment
type DeploymentStatus string

const (
	// DeploySuccess means the adapter completed within the allowed attempts
	DeploySuccess DeploymentStatus = "success"
	// DeployFailed means every allowed attempt failed or timed out
	DeployFailed DeploymentStatus = "failed"
)

// IsValid checks if the DeploymentStatus is valid
func (ds DeploymentStatus) IsValid() bool {
	return ds == DeploySuccess || ds == DeployFailed
}

// String returns the string representation of DeploymentStatus
func (ds DeploymentStatus) String() string {
	return string(ds)
}

// DeploymentResult records the terminal outcome of one component in one run.
// Exactly one result exists per component per run.
type DeploymentResult struct {
	ComponentName string            `json:"component_name"`
	Status        DeploymentStatus  `json:"status"`
	Message       string            `json:"message,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
	Duration      time.Duration     `json:"duration"`
	Attempts      int               `json:"attempts"`
	Details       map[string]string `json:"details,omitempty"`
	Error         string            `json:"error,omitempty"`
}

// Failed reports whether the component ended in failure
func (r *DeploymentResult) Failed() bool {
	return r.Status == DeployFailed
}

// Stage is one rung of an execution plan. A stage either holds a single
// component that must run alone, or a group of parallel-safe components
// that may run concurrently. Stage N+1 never starts before stage N settles.
type Stage struct {
	Components []Component `json:"components"`
	Parallel   bool        `json:"parallel"`
}

// Names returns the component names in the stage, in planned order
func (s *Stage) Names() []string {
	names := make([]string, len(s.Components))
	for i := range s.Components {
		names[i] = s.Components[i].Name
	}
	return names
}

// DeploymentPlan is the ordered stage list produced by the scheduler
type DeploymentPlan struct {
	DeploymentID string    `json:"deployment_id"`
	CreatedAt    time.Time `json:"created_at"`
	Stages       []Stage   `json:"stages"`
}

// ComponentCount returns the total number of components across all stages
func (p *DeploymentPlan) ComponentCount() int {
	n := 0
	for i := range p.Stages {
		n += len(p.Stages[i].Components)
	}
	return n
}

// Validate checks the plan for the invariants the executor relies on
func (p *DeploymentPlan) Validate() error {
	if strings.TrimSpace(p.DeploymentID) == "" {
		return fmt.Errorf("deployment plan ID is required")
	}
	seen := make(map[string]bool)
	for i := range p.Stages {
		if len(p.Stages[i].Components) == 0 {
			return fmt.Errorf("stage %d is empty", i)
		}
		for j := range p.Stages[i].Components {
			name := p.Stages[i].Components[j].Name
			if seen[name] {
				return fmt.Errorf("component %s appears in more than one stage", name)
			}
			seen[name] = true
		}
	}
	return nil
}

// RunStatus is the overall outcome of a coordinated deployment run
type RunStatus string

const (
	// RunSuccess means deploy, verification and post snapshot all completed
	RunSuccess RunStatus = "success"
	// RunFailed means the run did not reach a verified healthy state
	RunFailed RunStatus = "failed"
)

// String returns the string representation of RunStatus
func (rs RunStatus) String() string {
	return string(rs)
}

// DeploymentReport is the full record of a coordinated run: every component
// result, the verification outcome, and any rollback that was triggered.
type DeploymentReport struct {
	DeploymentID   string                      `json:"deployment_id"`
	StartTime      time.Time                   `json:"start_time"`
	EndTime        time.Time                   `json:"end_time"`
	Status         RunStatus                   `json:"status"`
	Results        map[string]DeploymentResult `json:"results"`
	Verification   *VerificationReport         `json:"verification,omitempty"`
	Rollback       *RollbackResult             `json:"rollback,omitempty"`
	PreSnapshotID  string                      `json:"pre_snapshot_id,omitempty"`
	PostSnapshotID string                      `json:"post_snapshot_id,omitempty"`
	FailureReason  string                      `json:"failure_reason,omitempty"`
}

// Succeeded reports whether the run ended healthy
func (r *DeploymentReport) Succeeded() bool {
	return r.Status == RunSuccess
}

// FailedComponents returns the names of components that ended in failure,
// useful for summaries and rollback scoping
func (r *DeploymentReport) FailedComponents() []string {
	var failed []string
	for name := range r.Results {
		result := r.Results[name]
		if result.Failed() {
			failed = append(failed, name)
		}
	}
	return failed
}
