package output

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/yairfalse/seppo/pkg/types"
)

// TableFormatter handles table output formatting
type TableFormatter struct {
	opts Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(opts Options) *TableFormatter {
	return &TableFormatter{opts: opts}
}

// resultRow is one component outcome in the report table
type resultRow struct {
	Component string `table:"Component"`
	Status    string `table:"Status"`
	Attempts  string `table:"Attempts"`
	Duration  string `table:"Duration"`
	Message   string `table:"Message"`
}

// snapshotListItem represents a snapshot in list output
type snapshotListItem struct {
	ID         string `table:"ID"`
	Deployment string `table:"Deployment"`
	Created    string `table:"Created"`
	Age        string `table:"Age"`
	Components string `table:"Components"`
	Size       string `table:"Size"`
}

// historyListItem represents one rollback in history output
type historyListItem struct {
	ID       string `table:"ID"`
	Snapshot string `table:"Snapshot"`
	Trigger  string `table:"Trigger"`
	Status   string `table:"Status"`
	Started  string `table:"Started"`
	Duration string `table:"Duration"`
}

// FormatReport formats a deployment report as a table
func (t *TableFormatter) FormatReport(report *types.DeploymentReport) ([]byte, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Deployment Report\n")
	fmt.Fprintf(w, "=================\n")
	fmt.Fprintf(w, "ID:\t%s\n", report.DeploymentID)
	fmt.Fprintf(w, "Status:\t%s\n", t.colorizeRunStatus(report.Status))
	fmt.Fprintf(w, "Started:\t%s\n", report.StartTime.Format(t.opts.timeFormat()))
	fmt.Fprintf(w, "Duration:\t%s\n", formatDuration(report.EndTime.Sub(report.StartTime)))
	if report.PreSnapshotID != "" {
		fmt.Fprintf(w, "Pre-deploy snapshot:\t%s\n", report.PreSnapshotID)
	}
	if report.PostSnapshotID != "" {
		fmt.Fprintf(w, "Post-deploy snapshot:\t%s\n", report.PostSnapshotID)
	}
	if report.FailureReason != "" {
		fmt.Fprintf(w, "Failure:\t%s\n", t.colorize(report.FailureReason, color.FgRed))
	}
	w.Flush()

	if len(report.Results) > 0 {
		buf.WriteString("\nComponents:\n")
		rows := make([]resultRow, 0, len(report.Results))
		for _, name := range sortedResultNames(report.Results) {
			result := report.Results[name]
			rows = append(rows, resultRow{
				Component: result.ComponentName,
				Status:    t.colorizeDeployStatus(result.Status),
				Attempts:  fmt.Sprintf("%d", result.Attempts),
				Duration:  formatDuration(result.Duration),
				Message:   truncateString(firstNonEmpty(result.Error, result.Message), 50),
			})
		}
		table, err := t.formatStructList(rows)
		if err != nil {
			return nil, err
		}
		buf.Write(table)
	}

	if report.Verification != nil {
		buf.WriteString("\n")
		section, err := t.FormatVerification(report.Verification)
		if err != nil {
			return nil, err
		}
		buf.Write(section)
	}

	if report.Rollback != nil {
		buf.WriteString("\n")
		section, err := t.FormatRollbackResult(report.Rollback)
		if err != nil {
			return nil, err
		}
		buf.Write(section)
	}

	return buf.Bytes(), nil
}

// FormatSnapshot formats a snapshot as a table
func (t *TableFormatter) FormatSnapshot(snapshot *types.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Snapshot\n")
	fmt.Fprintf(w, "========\n")
	fmt.Fprintf(w, "ID:\t%s\n", snapshot.ID)
	fmt.Fprintf(w, "Deployment:\t%s\n", snapshot.DeploymentID)
	fmt.Fprintf(w, "Created:\t%s (%s)\n", snapshot.Timestamp.Format(t.opts.timeFormat()), age(snapshot.Timestamp))
	if snapshot.Description != "" {
		fmt.Fprintf(w, "Description:\t%s\n", snapshot.Description)
	}
	fmt.Fprintf(w, "Components:\t%s\n", joinOrDash(snapshot.Components))
	fmt.Fprintf(w, "Size:\t%s\n", formatBytes(snapshot.SizeBytes))
	fmt.Fprintf(w, "Checksum:\tsha256:%s\n", truncateString(snapshot.Checksum, 19))

	w.Flush()
	return buf.Bytes(), nil
}

// FormatSnapshotList formats snapshots as a table, newest first
func (t *TableFormatter) FormatSnapshotList(snapshots []types.Snapshot) ([]byte, error) {
	if len(snapshots) == 0 {
		return []byte("No snapshots found.\n"), nil
	}

	items := make([]snapshotListItem, 0, len(snapshots))
	for i := range snapshots {
		s := &snapshots[i]
		items = append(items, snapshotListItem{
			ID:         s.ID,
			Deployment: s.DeploymentID,
			Created:    s.Timestamp.Format(t.opts.timeFormat()),
			Age:        age(s.Timestamp),
			Components: fmt.Sprintf("%d", len(s.Components)),
			Size:       formatBytes(s.SizeBytes),
		})
	}
	return t.formatStructList(items)
}

// FormatRollbackPlan formats a rollback plan preview as a table
func (t *TableFormatter) FormatRollbackPlan(plan *types.RollbackPlan) ([]byte, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Rollback Plan\n")
	fmt.Fprintf(w, "=============\n")
	fmt.Fprintf(w, "ID:\t%s\n", plan.RollbackID)
	fmt.Fprintf(w, "Target snapshot:\t%s\n", plan.TargetSnapshotID)
	fmt.Fprintf(w, "Trigger:\t%s\n", plan.Trigger)
	fmt.Fprintf(w, "Risk:\t%s\n", t.colorizeRisk(plan.RiskLevel))
	fmt.Fprintf(w, "Estimated duration:\t%s\n", formatDuration(plan.EstimatedDuration))
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "Restore steps:\n")
	for i, step := range plan.Steps {
		fmt.Fprintf(w, "  %d.\t%s\t(~%s)\n", i+1, step.Description, formatDuration(step.Estimated))
	}
	fmt.Fprintf(w, "\nVerification steps:\n")
	for i, step := range plan.VerificationSteps {
		fmt.Fprintf(w, "  %d.\t%s\t(~%s)\n", i+1, step.Description, formatDuration(step.Estimated))
	}

	w.Flush()
	return buf.Bytes(), nil
}

// FormatRollbackResult formats a rollback outcome as a table
func (t *TableFormatter) FormatRollbackResult(result *types.RollbackResult) ([]byte, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Rollback\n")
	fmt.Fprintf(w, "========\n")
	fmt.Fprintf(w, "ID:\t%s\n", result.RollbackID)
	fmt.Fprintf(w, "Snapshot:\t%s\n", result.SnapshotID)
	fmt.Fprintf(w, "Trigger:\t%s\n", result.Trigger)
	fmt.Fprintf(w, "Status:\t%s\n", t.colorizeRollbackStatus(result.Status))
	fmt.Fprintf(w, "Duration:\t%s\n", formatDuration(result.Duration))
	fmt.Fprintf(w, "Restored:\t%s\n", joinOrDash(result.ComponentsRolledBack))
	if result.ErrorMessage != "" {
		fmt.Fprintf(w, "Error:\t%s\n", t.colorize(result.ErrorMessage, color.FgRed))
	}

	if len(result.VerificationResults) > 0 {
		fmt.Fprintf(w, "\nVerifications:\n")
		components := make([]string, 0, len(result.VerificationResults))
		for component := range result.VerificationResults {
			components = append(components, component)
		}
		sort.Strings(components)
		for _, component := range components {
			outcome := t.colorize("pass", color.FgGreen)
			if !result.VerificationResults[component] {
				outcome = t.colorize("FAIL", color.FgRed, color.Bold)
			}
			fmt.Fprintf(w, "  %s\t%s\n", component, outcome)
		}
	}

	w.Flush()
	return buf.Bytes(), nil
}

// FormatRollbackHistory formats past rollbacks as a table, newest first
func (t *TableFormatter) FormatRollbackHistory(results []types.RollbackResult) ([]byte, error) {
	if len(results) == 0 {
		return []byte("No rollbacks recorded.\n"), nil
	}

	items := make([]historyListItem, 0, len(results))
	for i := range results {
		r := &results[i]
		items = append(items, historyListItem{
			ID:       r.RollbackID,
			Snapshot: r.SnapshotID,
			Trigger:  r.Trigger.String(),
			Status:   t.colorizeRollbackStatus(r.Status),
			Started:  r.StartTime.Format(t.opts.timeFormat()),
			Duration: formatDuration(r.Duration),
		})
	}
	return t.formatStructList(items)
}

// FormatVerification formats a verification report as a table
func (t *TableFormatter) FormatVerification(report *types.VerificationReport) ([]byte, error) {
	var buf bytes.Buffer
	summary := report.Summary()

	fmt.Fprintf(&buf, "Verification: %d/%d passed (%.0f%%)\n",
		summary.Passed, summary.Total, summary.SuccessRate*100)

	if summary.Total == 0 {
		buf.WriteString("No checks configured.\n")
		return buf.Bytes(), nil
	}

	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	for i := range report.Checks {
		check := &report.Checks[i]
		outcome := t.colorize("pass", color.FgGreen)
		if !check.Passed {
			outcome = t.colorize("FAIL", color.FgRed, color.Bold)
		}
		message := check.Message
		if message == "" {
			message = "-"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", outcome, check.Name, formatDuration(check.Duration), truncateString(message, 60))
	}
	w.Flush()
	return buf.Bytes(), nil
}

// formatStructList formats a slice of structs as a table using
// reflection over `table:` field tags.
func (t *TableFormatter) formatStructList(items interface{}) ([]byte, error) {
	v := reflect.ValueOf(items)
	if v.Kind() != reflect.Slice {
		return nil, fmt.Errorf("items must be a slice")
	}
	if v.Len() == 0 {
		return []byte("No items found.\n"), nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	itemType := v.Index(0).Type()
	var headers []string
	var fieldNames []string
	for i := 0; i < itemType.NumField(); i++ {
		field := itemType.Field(i)
		if tag := field.Tag.Get("table"); tag != "" {
			headers = append(headers, tag)
			fieldNames = append(fieldNames, field.Name)
		}
	}

	fmt.Fprintf(w, "%s\n", strings.Join(headers, "\t"))

	for i := 0; i < v.Len(); i++ {
		item := v.Index(i)
		row := make([]string, 0, len(fieldNames))
		for _, fieldName := range fieldNames {
			value := fmt.Sprintf("%v", item.FieldByName(fieldName).Interface())
			row = append(row, truncateString(value, 60))
		}
		fmt.Fprintf(w, "%s\n", strings.Join(row, "\t"))
	}

	w.Flush()
	return buf.Bytes(), nil
}

func (t *TableFormatter) colorize(text string, attrs ...color.Attribute) string {
	if t.opts.NoColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

func (t *TableFormatter) colorizeRunStatus(status types.RunStatus) string {
	if status == types.RunSuccess {
		return t.colorize(status.String(), color.FgGreen, color.Bold)
	}
	return t.colorize(status.String(), color.FgRed, color.Bold)
}

func (t *TableFormatter) colorizeDeployStatus(status types.DeploymentStatus) string {
	if status == types.DeploySuccess {
		return t.colorize(status.String(), color.FgGreen)
	}
	return t.colorize(status.String(), color.FgRed, color.Bold)
}

func (t *TableFormatter) colorizeRollbackStatus(status types.RollbackStatus) string {
	switch status {
	case types.RollbackSuccess:
		return t.colorize(status.String(), color.FgGreen)
	case types.RollbackFailed:
		return t.colorize(status.String(), color.FgRed, color.Bold)
	case types.RollbackCancelled:
		return t.colorize(status.String(), color.FgYellow)
	default:
		return status.String()
	}
}

func (t *TableFormatter) colorizeRisk(risk types.RiskLevel) string {
	switch risk {
	case types.RiskHigh:
		return t.colorize(strings.ToUpper(risk.String()), color.FgRed, color.Bold)
	case types.RiskMedium:
		return t.colorize(risk.String(), color.FgYellow)
	default:
		return t.colorize(risk.String(), color.FgGreen)
	}
}

func sortedResultNames(results map[string]types.DeploymentResult) []string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
