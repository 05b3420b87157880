package verify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yairfalse/seppo/internal/logger"
	"github.com/yairfalse/seppo/pkg/types"
)

const defaultCheckTimeout = 10 * time.Second

// Check performs one named verification probe. A nil error means the
// check passed.
type Check interface {
	Name() string
	Component() string
	Run(ctx context.Context) error
}

// Suite runs verification checks and summarizes the outcome. Checks run
// sequentially with a per-check timeout; a panicking check counts as a
// failure and never takes the run down.
type Suite struct {
	checks  []Check
	timeout time.Duration
	logger  logger.Logger
}

func NewSuite(log logger.Logger, checks ...Check) *Suite {
	return &Suite{
		checks:  checks,
		timeout: defaultCheckTimeout,
		logger:  log,
	}
}

// SetCheckTimeout overrides the per-check timeout.
func (s *Suite) SetCheckTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// Add appends a check to the suite.
func (s *Suite) Add(check Check) {
	s.checks = append(s.checks, check)
}

// Len returns the number of registered checks.
func (s *Suite) Len() int { return len(s.checks) }

// RunAll executes every check and returns the full report.
func (s *Suite) RunAll(ctx context.Context) *types.VerificationReport {
	report := &types.VerificationReport{
		StartTime: time.Now().UTC(),
		Checks:    make([]types.VerificationCheck, 0, len(s.checks)),
	}

	for _, check := range s.checks {
		result := s.runCheck(ctx, check)
		report.Checks = append(report.Checks, result)
		if !result.Passed {
			s.logger.WithFields(map[string]interface{}{
				"check":     result.Name,
				"component": result.Component,
			}).Warn(fmt.Sprintf("verification check failed: %s", result.Message))
		}
	}

	report.Duration = time.Since(report.StartTime)
	summary := report.Summary()
	s.logger.WithFields(map[string]interface{}{
		"total":        summary.Total,
		"passed":       summary.Passed,
		"success_rate": fmt.Sprintf("%.0f%%", summary.SuccessRate*100),
	}).Info("verification finished")
	return report
}

// VerifyComponent runs only the checks bound to one component. It
// satisfies the rollback executor's step verifier; a component with no
// checks passes by default.
func (s *Suite) VerifyComponent(ctx context.Context, component string) error {
	var failed []string
	for _, check := range s.checks {
		if check.Component() != component {
			continue
		}
		result := s.runCheck(ctx, check)
		if !result.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", result.Name, result.Message))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%s", strings.Join(failed, "; "))
	}
	return nil
}

func (s *Suite) runCheck(ctx context.Context, check Check) types.VerificationCheck {
	start := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("check panic: %v", r)
			}
		}()
		done <- check.Run(checkCtx)
	}()

	var err error
	select {
	case err = <-done:
	case <-checkCtx.Done():
		err = checkCtx.Err()
	}

	result := types.VerificationCheck{
		Name:      check.Name(),
		Component: check.Component(),
		Passed:    err == nil,
		Message:   "ok",
		Duration:  time.Since(start),
	}
	if err != nil {
		result.Message = err.Error()
	}
	return result
}
