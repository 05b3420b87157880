package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yairfalse/seppo/pkg/types"
)

// MarkdownFormatter handles Markdown output formatting, for pasting
// run results into tickets and chat.
type MarkdownFormatter struct {
	opts Options
}

// NewMarkdownFormatter creates a new Markdown formatter
func NewMarkdownFormatter(opts Options) *MarkdownFormatter {
	return &MarkdownFormatter{opts: opts}
}

func (m *MarkdownFormatter) FormatReport(report *types.DeploymentReport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Deployment %s\n\n", report.DeploymentID)
	fmt.Fprintf(&buf, "- **Status**: %s\n", report.Status)
	fmt.Fprintf(&buf, "- **Started**: %s\n", report.StartTime.Format(m.opts.timeFormat()))
	fmt.Fprintf(&buf, "- **Duration**: %s\n", formatDuration(report.EndTime.Sub(report.StartTime)))
	if report.PreSnapshotID != "" {
		fmt.Fprintf(&buf, "- **Pre-deploy snapshot**: `%s`\n", report.PreSnapshotID)
	}
	if report.PostSnapshotID != "" {
		fmt.Fprintf(&buf, "- **Post-deploy snapshot**: `%s`\n", report.PostSnapshotID)
	}
	if report.FailureReason != "" {
		fmt.Fprintf(&buf, "- **Failure**: %s\n", report.FailureReason)
	}
	buf.WriteString("\n")

	if len(report.Results) > 0 {
		buf.WriteString("## Components\n\n")
		buf.WriteString("| Component | Status | Attempts | Duration | Message |\n")
		buf.WriteString("|-----------|--------|----------|----------|--------|\n")
		for _, name := range sortedResultNames(report.Results) {
			result := report.Results[name]
			fmt.Fprintf(&buf, "| %s | %s | %d | %s | %s |\n",
				result.ComponentName,
				result.Status,
				result.Attempts,
				formatDuration(result.Duration),
				escapePipes(firstNonEmpty(result.Error, result.Message)))
		}
		buf.WriteString("\n")
	}

	if report.Verification != nil {
		section, err := m.FormatVerification(report.Verification)
		if err != nil {
			return nil, err
		}
		buf.Write(section)
	}

	if report.Rollback != nil {
		section, err := m.FormatRollbackResult(report.Rollback)
		if err != nil {
			return nil, err
		}
		buf.Write(section)
	}

	return buf.Bytes(), nil
}

func (m *MarkdownFormatter) FormatSnapshot(snapshot *types.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# Snapshot %s\n\n", snapshot.ID)
	fmt.Fprintf(&buf, "- **Deployment**: %s\n", snapshot.DeploymentID)
	fmt.Fprintf(&buf, "- **Created**: %s\n", snapshot.Timestamp.Format(m.opts.timeFormat()))
	if snapshot.Description != "" {
		fmt.Fprintf(&buf, "- **Description**: %s\n", snapshot.Description)
	}
	fmt.Fprintf(&buf, "- **Components**: %s\n", joinOrDash(snapshot.Components))
	fmt.Fprintf(&buf, "- **Size**: %s\n", formatBytes(snapshot.SizeBytes))
	fmt.Fprintf(&buf, "- **Checksum**: `%s`\n\n", snapshot.Checksum)
	return buf.Bytes(), nil
}

func (m *MarkdownFormatter) FormatSnapshotList(snapshots []types.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# Snapshots\n\n")
	if len(snapshots) == 0 {
		buf.WriteString("No snapshots found.\n")
		return buf.Bytes(), nil
	}
	buf.WriteString("| ID | Deployment | Created | Components | Size |\n")
	buf.WriteString("|----|------------|---------|------------|------|\n")
	for i := range snapshots {
		s := &snapshots[i]
		fmt.Fprintf(&buf, "| `%s` | %s | %s | %d | %s |\n",
			s.ID, s.DeploymentID, s.Timestamp.Format(m.opts.timeFormat()), len(s.Components), formatBytes(s.SizeBytes))
	}
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

func (m *MarkdownFormatter) FormatRollbackPlan(plan *types.RollbackPlan) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# Rollback Plan %s\n\n", plan.RollbackID)
	fmt.Fprintf(&buf, "- **Target snapshot**: `%s`\n", plan.TargetSnapshotID)
	fmt.Fprintf(&buf, "- **Trigger**: %s\n", plan.Trigger)
	fmt.Fprintf(&buf, "- **Risk**: %s\n", plan.RiskLevel)
	fmt.Fprintf(&buf, "- **Estimated duration**: %s\n\n", formatDuration(plan.EstimatedDuration))

	buf.WriteString("## Restore steps\n\n")
	for i, step := range plan.Steps {
		fmt.Fprintf(&buf, "%d. %s (~%s)\n", i+1, step.Description, formatDuration(step.Estimated))
	}
	buf.WriteString("\n## Verification steps\n\n")
	for i, step := range plan.VerificationSteps {
		fmt.Fprintf(&buf, "%d. %s (~%s)\n", i+1, step.Description, formatDuration(step.Estimated))
	}
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

func (m *MarkdownFormatter) FormatRollbackResult(result *types.RollbackResult) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "## Rollback %s\n\n", result.RollbackID)
	fmt.Fprintf(&buf, "- **Snapshot**: `%s`\n", result.SnapshotID)
	fmt.Fprintf(&buf, "- **Trigger**: %s\n", result.Trigger)
	fmt.Fprintf(&buf, "- **Status**: %s\n", result.Status)
	fmt.Fprintf(&buf, "- **Restored**: %s\n", joinOrDash(result.ComponentsRolledBack))
	if result.ErrorMessage != "" {
		fmt.Fprintf(&buf, "- **Error**: %s\n", result.ErrorMessage)
	}
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

func (m *MarkdownFormatter) FormatRollbackHistory(results []types.RollbackResult) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# Rollback History\n\n")
	if len(results) == 0 {
		buf.WriteString("No rollbacks recorded.\n")
		return buf.Bytes(), nil
	}
	buf.WriteString("| ID | Snapshot | Trigger | Status | Started |\n")
	buf.WriteString("|----|----------|---------|--------|--------|\n")
	for i := range results {
		r := &results[i]
		fmt.Fprintf(&buf, "| `%s` | `%s` | %s | %s | %s |\n",
			r.RollbackID, r.SnapshotID, r.Trigger, r.Status, r.StartTime.Format(m.opts.timeFormat()))
	}
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

func (m *MarkdownFormatter) FormatVerification(report *types.VerificationReport) ([]byte, error) {
	var buf bytes.Buffer
	summary := report.Summary()
	fmt.Fprintf(&buf, "## Verification: %d/%d passed (%.0f%%)\n\n", summary.Passed, summary.Total, summary.SuccessRate*100)
	for i := range report.Checks {
		check := &report.Checks[i]
		mark := "x"
		if !check.Passed {
			mark = " "
		}
		line := check.Name
		if check.Message != "" {
			line += ": " + check.Message
		}
		fmt.Fprintf(&buf, "- [%s] %s\n", mark, escapePipes(line))
	}
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
