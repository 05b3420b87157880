package types

import "time"

// VerificationCheck is the outcome of one named post-deploy check
type VerificationCheck struct {
	Name      string        `json:"name"`
	Component string        `json:"component,omitempty"`
	Passed    bool          `json:"passed"`
	Message   string        `json:"message,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// VerificationSummary aggregates a verification run
type VerificationSummary struct {
	Total       int     `json:"total"`
	Passed      int     `json:"passed"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

// VerificationReport holds every check result from one verification run
type VerificationReport struct {
	StartTime time.Time           `json:"start_time"`
	Duration  time.Duration       `json:"duration"`
	Checks    []VerificationCheck `json:"checks"`
}

// Summary computes pass and fail counts and the overall success rate.
// An empty report counts as fully successful so that targets with no
// configured checks never block a run.
func (r *VerificationReport) Summary() VerificationSummary {
	s := VerificationSummary{Total: len(r.Checks)}
	for i := range r.Checks {
		if r.Checks[i].Passed {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	if s.Total == 0 {
		s.SuccessRate = 1.0
	} else {
		s.SuccessRate = float64(s.Passed) / float64(s.Total)
	}
	return s
}

// FailedChecks returns the checks that did not pass
func (r *VerificationReport) FailedChecks() []VerificationCheck {
	var failed []VerificationCheck
	for i := range r.Checks {
		if !r.Checks[i].Passed {
			failed = append(failed, r.Checks[i])
		}
	}
	return failed
}
