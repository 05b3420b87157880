package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/seppo/pkg/types"
)

func sampleReport() *types.DeploymentReport {
	start := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	return &types.DeploymentReport{
		DeploymentID:  "deploy-1a2b3c4d",
		StartTime:     start,
		EndTime:       start.Add(95 * time.Second),
		Status:        types.RunFailed,
		PreSnapshotID: "snap-aaaa1111",
		FailureReason: "deployment failed: frontend",
		Results: map[string]types.DeploymentResult{
			"database": {
				ComponentName: "database",
				Status:        types.DeploySuccess,
				Message:       "migrations applied",
				Duration:      12 * time.Second,
				Attempts:      1,
			},
			"frontend": {
				ComponentName: "frontend",
				Status:        types.DeployFailed,
				Error:         "npm run build exited 1",
				Duration:      40 * time.Second,
				Attempts:      3,
			},
		},
		Verification: &types.VerificationReport{
			StartTime: start.Add(60 * time.Second),
			Duration:  3 * time.Second,
			Checks: []types.VerificationCheck{
				{Name: "db-ping", Component: "database", Passed: true, Duration: time.Second},
				{Name: "http-root", Component: "frontend", Passed: false, Message: "connection refused", Duration: 2 * time.Second},
			},
		},
		Rollback: &types.RollbackResult{
			RollbackID:           "rb-9f8e7d6c",
			SnapshotID:           "snap-aaaa1111",
			Trigger:              types.TriggerDeploymentFailure,
			Status:               types.RollbackSuccess,
			StartTime:            start.Add(70 * time.Second),
			Duration:             20 * time.Second,
			ComponentsRolledBack: []string{"database", "frontend"},
			VerificationResults:  map[string]bool{"database": true, "frontend": true},
		},
	}
}

func sampleSnapshots() []types.Snapshot {
	return []types.Snapshot{
		{
			ID:           "snap-aaaa1111",
			DeploymentID: "deploy-1a2b3c4d",
			Timestamp:    time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
			Description:  "pre-deploy",
			Components:   []string{"config", "database"},
			SizeBytes:    1536,
			Checksum:     "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
		},
		{
			ID:           "snap-bbbb2222",
			DeploymentID: "deploy-5e6f7a8b",
			Timestamp:    time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC),
			Components:   []string{"config"},
			SizeBytes:    512,
			Checksum:     "fedcba9876543210fedcba9876543210fedcba9876543210fedcba9876543210",
		},
	}
}

func TestNewFormatterDispatch(t *testing.T) {
	tests := []struct {
		format string
		want   interface{}
	}{
		{"", &TableFormatter{}},
		{"table", &TableFormatter{}},
		{"json", &JSONFormatter{}},
		{"yaml", &YAMLFormatter{}},
		{"yml", &YAMLFormatter{}},
		{"markdown", &MarkdownFormatter{}},
		{"md", &MarkdownFormatter{}},
		{"plain", &PlainFormatter{}},
	}

	for _, tt := range tests {
		t.Run("format_"+tt.format, func(t *testing.T) {
			f, err := NewFormatter(tt.format, Options{NoColor: true})
			require.NoError(t, err)
			assert.IsType(t, tt.want, f)
		})
	}
}

func TestNewFormatterRejectsUnknownFormat(t *testing.T) {
	_, err := NewFormatter("xml", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestTableFormatReport(t *testing.T) {
	f := NewTableFormatter(Options{NoColor: true})

	out, err := f.FormatReport(sampleReport())
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "Deployment Report")
	assert.Contains(t, text, "deploy-1a2b3c4d")
	assert.Contains(t, text, "database")
	assert.Contains(t, text, "npm run build exited 1")
	assert.Contains(t, text, "Verification: 1/2 passed (50%)")
	assert.Contains(t, text, "rb-9f8e7d6c")

	// failed component sorts after the successful one
	assert.Less(t, strings.Index(text, "database"), strings.Index(text, "frontend"))
}

func TestTableFormatSnapshotList(t *testing.T) {
	f := NewTableFormatter(Options{NoColor: true})

	out, err := f.FormatSnapshotList(sampleSnapshots())
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "ID")
	assert.Contains(t, text, "snap-aaaa1111")
	assert.Contains(t, text, "snap-bbbb2222")
	assert.Contains(t, text, "1.5 KB")
	assert.Contains(t, text, "512 B")
}

func TestTableFormatSnapshotListEmpty(t *testing.T) {
	f := NewTableFormatter(Options{NoColor: true})

	out, err := f.FormatSnapshotList(nil)
	require.NoError(t, err)
	assert.Equal(t, "No snapshots found.\n", string(out))
}

func TestTableFormatVerificationWithoutChecks(t *testing.T) {
	f := NewTableFormatter(Options{NoColor: true})

	out, err := f.FormatVerification(&types.VerificationReport{})
	require.NoError(t, err)
	assert.Contains(t, string(out), "No checks configured.")
}

func TestJSONFormatReportRoundTrips(t *testing.T) {
	f := NewJSONFormatter()

	out, err := f.FormatReport(sampleReport())
	require.NoError(t, err)

	var decoded types.DeploymentReport
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "deploy-1a2b3c4d", decoded.DeploymentID)
	assert.Equal(t, types.RunFailed, decoded.Status)
	assert.Len(t, decoded.Results, 2)
}

func TestYAMLFormatSnapshot(t *testing.T) {
	f := NewYAMLFormatter()

	snapshots := sampleSnapshots()
	out, err := f.FormatSnapshot(&snapshots[0])
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "snap-aaaa1111")
	assert.Contains(t, text, "deploy-1a2b3c4d")
}

func TestMarkdownFormatReport(t *testing.T) {
	f := NewMarkdownFormatter(Options{})

	out, err := f.FormatReport(sampleReport())
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "# Deployment deploy-1a2b3c4d")
	assert.Contains(t, text, "| Component | Status | Attempts | Duration | Message |")
	assert.Contains(t, text, "| database |")
	assert.Contains(t, text, "- [x] db-ping")
	assert.Contains(t, text, "- [ ] http-root: connection refused")
}

func TestMarkdownFormatRollbackPlan(t *testing.T) {
	f := NewMarkdownFormatter(Options{})

	plan := &types.RollbackPlan{
		RollbackID:       "rb-12345678",
		TargetSnapshotID: "snap-aaaa1111",
		Trigger:          types.TriggerManual,
		Components:       []string{"database"},
		Steps: []types.RestoreStep{
			{Component: "database", Description: "restore database from dump", Estimated: 5 * time.Minute},
		},
		VerificationSteps: []types.VerificationStep{
			{Component: "database", Description: "verify database connectivity", Estimated: 30 * time.Second},
		},
		EstimatedDuration: 5*time.Minute + 30*time.Second,
		RiskLevel:         types.RiskHigh,
	}

	out, err := f.FormatRollbackPlan(plan)
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "# Rollback Plan rb-12345678")
	assert.Contains(t, text, "**Risk**: high")
	assert.Contains(t, text, "1. restore database from dump")
	assert.Contains(t, text, "1. verify database connectivity")
}

func TestPlainFormatReport(t *testing.T) {
	f := NewPlainFormatter(Options{})

	out, err := f.FormatReport(sampleReport())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "ok database"))
	assert.True(t, strings.HasPrefix(lines[1], "FAIL frontend"))
	assert.Contains(t, lines[1], "npm run build exited 1")
	assert.Equal(t, "verify 1/2 passed", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "rollback rb-9f8e7d6c"))
	assert.Contains(t, lines[4], "1 deployed, 1 failed")
}

func TestPlainFormatSnapshotListEmptyIsSilent(t *testing.T) {
	f := NewPlainFormatter(Options{})

	out, err := f.FormatSnapshotList(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "hello...", truncateString("hello world", 8))
	assert.Equal(t, "he", truncateString("hello", 2))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "5.0 MB", formatBytes(5*1024*1024))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "-", formatDuration(0))
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond))
	assert.Equal(t, "1m30s", formatDuration(90*time.Second))
}

func TestAge(t *testing.T) {
	assert.Equal(t, "just now", age(time.Now()))
	assert.Equal(t, "2h ago", age(time.Now().Add(-2*time.Hour)))
	assert.Equal(t, "3d ago", age(time.Now().Add(-73*time.Hour)))
}
