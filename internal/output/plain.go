package output

import (
	"fmt"
	"strings"

	"github.com/yairfalse/seppo/pkg/types"
)

// PlainFormatter provides simple Unix-style output, one record per line,
// meant for grep and awk rather than humans.
type PlainFormatter struct {
	opts Options
}

// NewPlainFormatter creates a new Unix-style formatter
func NewPlainFormatter(opts Options) *PlainFormatter {
	return &PlainFormatter{opts: opts}
}

// FormatReport prints one line per component, then stat lines like
// git diff --stat.
func (p *PlainFormatter) FormatReport(report *types.DeploymentReport) ([]byte, error) {
	var output strings.Builder

	succeeded := 0
	failed := 0
	for _, name := range sortedResultNames(report.Results) {
		result := report.Results[name]
		if result.Failed() {
			failed++
			output.WriteString(fmt.Sprintf("FAIL %s %s %s\n",
				result.ComponentName,
				formatDuration(result.Duration),
				firstNonEmpty(result.Error, result.Message)))
			continue
		}
		succeeded++
		output.WriteString(fmt.Sprintf("ok %s %s\n",
			result.ComponentName,
			formatDuration(result.Duration)))
	}

	if report.Verification != nil {
		summary := report.Verification.Summary()
		output.WriteString(fmt.Sprintf("verify %d/%d passed\n", summary.Passed, summary.Total))
	}
	if report.Rollback != nil {
		output.WriteString(fmt.Sprintf("rollback %s %s\n", report.Rollback.RollbackID, report.Rollback.Status))
	}

	output.WriteString(fmt.Sprintf("%s %d deployed, %d failed, %s\n",
		report.Status,
		succeeded,
		failed,
		formatDuration(report.EndTime.Sub(report.StartTime))))

	return []byte(output.String()), nil
}

// FormatSnapshot prints the snapshot as a single line
func (p *PlainFormatter) FormatSnapshot(snapshot *types.Snapshot) ([]byte, error) {
	return []byte(p.snapshotLine(snapshot)), nil
}

// FormatSnapshotList prints one line per snapshot. No snapshots means no
// output, like git diff with a clean tree.
func (p *PlainFormatter) FormatSnapshotList(snapshots []types.Snapshot) ([]byte, error) {
	if len(snapshots) == 0 {
		return []byte{}, nil
	}

	var output strings.Builder
	for i := range snapshots {
		output.WriteString(p.snapshotLine(&snapshots[i]))
	}
	return []byte(output.String()), nil
}

func (p *PlainFormatter) snapshotLine(s *types.Snapshot) string {
	return fmt.Sprintf("%s %s %s %s %s\n",
		s.ID,
		s.DeploymentID,
		s.Timestamp.Format(p.opts.timeFormat()),
		formatBytes(s.SizeBytes),
		strings.Join(s.Components, ","))
}

// FormatRollbackPlan lists each step on its own line with a trailing
// stat line carrying risk and estimate.
func (p *PlainFormatter) FormatRollbackPlan(plan *types.RollbackPlan) ([]byte, error) {
	var output strings.Builder

	for _, step := range plan.Steps {
		output.WriteString(fmt.Sprintf("restore %s ~%s\n", step.Component, formatDuration(step.Estimated)))
	}
	for _, step := range plan.VerificationSteps {
		output.WriteString(fmt.Sprintf("verify %s ~%s\n", step.Component, formatDuration(step.Estimated)))
	}
	output.WriteString(fmt.Sprintf("%s -> %s risk=%s est=%s\n",
		plan.RollbackID,
		plan.TargetSnapshotID,
		plan.RiskLevel,
		formatDuration(plan.EstimatedDuration)))

	return []byte(output.String()), nil
}

// FormatRollbackResult prints the rollback as a single line
func (p *PlainFormatter) FormatRollbackResult(result *types.RollbackResult) ([]byte, error) {
	return []byte(p.rollbackLine(result)), nil
}

// FormatRollbackHistory prints one line per recorded rollback
func (p *PlainFormatter) FormatRollbackHistory(results []types.RollbackResult) ([]byte, error) {
	if len(results) == 0 {
		return []byte{}, nil
	}

	var output strings.Builder
	for i := range results {
		output.WriteString(p.rollbackLine(&results[i]))
	}
	return []byte(output.String()), nil
}

func (p *PlainFormatter) rollbackLine(r *types.RollbackResult) string {
	line := fmt.Sprintf("%s %s %s %s %s",
		r.RollbackID,
		r.SnapshotID,
		r.Trigger,
		r.Status,
		r.StartTime.Format(p.opts.timeFormat()))
	if r.ErrorMessage != "" {
		line += " " + r.ErrorMessage
	}
	return line + "\n"
}

// FormatVerification prints one line per check and a final pass count
func (p *PlainFormatter) FormatVerification(report *types.VerificationReport) ([]byte, error) {
	var output strings.Builder

	for i := range report.Checks {
		check := &report.Checks[i]
		if check.Passed {
			output.WriteString(fmt.Sprintf("ok %s %s\n", check.Name, formatDuration(check.Duration)))
			continue
		}
		output.WriteString(fmt.Sprintf("FAIL %s %s\n", check.Name, check.Message))
	}

	summary := report.Summary()
	output.WriteString(fmt.Sprintf("%d/%d %s passed\n",
		summary.Passed, summary.Total, plural(summary.Total, "check")))

	return []byte(output.String()), nil
}
