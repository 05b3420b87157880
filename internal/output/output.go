// Package output renders deployment reports, snapshots and rollback
// records for terminals and machine consumers.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/yairfalse/seppo/pkg/types"
)

// Formatter renders every artifact the CLI prints.
type Formatter interface {
	FormatReport(report *types.DeploymentReport) ([]byte, error)
	FormatSnapshot(snapshot *types.Snapshot) ([]byte, error)
	FormatSnapshotList(snapshots []types.Snapshot) ([]byte, error)
	FormatRollbackPlan(plan *types.RollbackPlan) ([]byte, error)
	FormatRollbackResult(result *types.RollbackResult) ([]byte, error)
	FormatRollbackHistory(results []types.RollbackResult) ([]byte, error)
	FormatVerification(report *types.VerificationReport) ([]byte, error)
}

// Options holds output configuration
type Options struct {
	NoColor    bool
	TimeFormat string
}

const defaultTimeFormat = "2006-01-02 15:04:05"

func (o Options) timeFormat() string {
	if o.TimeFormat == "" {
		return defaultTimeFormat
	}
	return o.TimeFormat
}

// NewFormatter creates a formatter based on format type
func NewFormatter(format string, opts Options) (Formatter, error) {
	switch format {
	case "table", "":
		return NewTableFormatter(opts), nil
	case "json":
		return NewJSONFormatter(), nil
	case "yaml", "yml":
		return NewYAMLFormatter(), nil
	case "markdown", "md":
		return NewMarkdownFormatter(opts), nil
	case "plain":
		return NewPlainFormatter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: table, json, yaml, markdown, plain)", format)
	}
}

// TerminalWidth returns the current terminal width, or 80 when stdout
// is not a terminal.
func TerminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}

// truncateString truncates a string to the given length
func truncateString(s string, length int) string {
	if len(s) <= length {
		return s
	}
	if length <= 3 {
		return s[:length]
	}
	return s[:length-3] + "..."
}

// formatBytes renders a byte count in human units
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// formatDuration renders a duration compactly for table cells
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	if d < time.Minute {
		return d.Round(100 * time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

func plural(count int, singular string) string {
	if count == 1 {
		return singular
	}
	return singular + "s"
}

// age renders how long ago a timestamp was, for snapshot listings
func age(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
