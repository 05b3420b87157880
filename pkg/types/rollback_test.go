package types

import (
	"testing"
	"time"
)

func TestRollbackStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name string
		from RollbackStatus
		to   RollbackStatus
		want bool
	}{
		{"pending to in_progress", RollbackPending, RollbackInProgress, true},
		{"pending to cancelled", RollbackPending, RollbackCancelled, true},
		{"pending to success", RollbackPending, RollbackSuccess, false},
		{"in_progress to success", RollbackInProgress, RollbackSuccess, true},
		{"in_progress to failed", RollbackInProgress, RollbackFailed, true},
		{"in_progress to cancelled", RollbackInProgress, RollbackCancelled, false},
		{"in_progress to pending", RollbackInProgress, RollbackPending, false},
		{"success is terminal", RollbackSuccess, RollbackFailed, false},
		{"failed is terminal", RollbackFailed, RollbackSuccess, false},
		{"cancelled is terminal", RollbackCancelled, RollbackInProgress, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestRollbackStatus_IsTerminal(t *testing.T) {
	terminal := []RollbackStatus{RollbackSuccess, RollbackFailed, RollbackCancelled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("RollbackStatus(%s).IsTerminal() = false, want true", s)
		}
	}
	for _, s := range []RollbackStatus{RollbackPending, RollbackInProgress} {
		if s.IsTerminal() {
			t.Errorf("RollbackStatus(%s).IsTerminal() = true, want false", s)
		}
	}
}

func TestRollbackPlan_Validate(t *testing.T) {
	valid := RollbackPlan{
		RollbackID:       "rb-1",
		TargetSnapshotID: "snap-1",
		Trigger:          TriggerManual,
		Components:       []string{"config"},
		Steps: []RestoreStep{
			{Component: "config", Description: "restore config", Estimated: time.Minute},
		},
		VerificationSteps: []VerificationStep{
			{Component: "config", Description: "verify config", Estimated: 30 * time.Second},
		},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() on valid plan returned %v", err)
	}

	noSteps := valid
	noSteps.Steps = nil
	noSteps.VerificationSteps = nil
	if err := noSteps.Validate(); err == nil {
		t.Error("Validate() accepted a plan with no restore steps")
	}

	mismatch := valid
	mismatch.VerificationSteps = nil
	if err := mismatch.Validate(); err == nil {
		t.Error("Validate() accepted mismatched restore and verification step counts")
	}

	badTrigger := valid
	badTrigger.Trigger = RollbackTrigger("curiosity")
	if err := badTrigger.Validate(); err == nil {
		t.Error("Validate() accepted an unknown trigger")
	}
}

func TestRollbackResult_VerificationsPassed(t *testing.T) {
	r := RollbackResult{VerificationResults: map[string]bool{"config": true, "database": true}}
	if !r.VerificationsPassed() {
		t.Error("expected all verifications passed")
	}
	r.VerificationResults["database"] = false
	if r.VerificationsPassed() {
		t.Error("expected failed verification to be reported")
	}
}

func TestVerificationReport_Summary(t *testing.T) {
	report := VerificationReport{
		Checks: []VerificationCheck{
			{Name: "http", Passed: true},
			{Name: "tcp", Passed: true},
			{Name: "service", Passed: false},
			{Name: "disk", Passed: true},
			{Name: "files", Passed: false},
		},
	}
	s := report.Summary()
	if s.Total != 5 || s.Passed != 3 || s.Failed != 2 {
		t.Errorf("Summary() counts = %d/%d/%d, want 5/3/2", s.Total, s.Passed, s.Failed)
	}
	if s.SuccessRate != 0.6 {
		t.Errorf("Summary() success rate = %v, want 0.6", s.SuccessRate)
	}

	empty := VerificationReport{}
	if got := empty.Summary().SuccessRate; got != 1.0 {
		t.Errorf("empty report success rate = %v, want 1.0", got)
	}
}
