package output

import (
	"encoding/json"

	"github.com/yairfalse/seppo/pkg/types"
)

// JSONFormatter handles JSON output formatting
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (j *JSONFormatter) FormatReport(report *types.DeploymentReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

func (j *JSONFormatter) FormatSnapshot(snapshot *types.Snapshot) ([]byte, error) {
	return json.MarshalIndent(snapshot, "", "  ")
}

func (j *JSONFormatter) FormatSnapshotList(snapshots []types.Snapshot) ([]byte, error) {
	return json.MarshalIndent(snapshots, "", "  ")
}

func (j *JSONFormatter) FormatRollbackPlan(plan *types.RollbackPlan) ([]byte, error) {
	return json.MarshalIndent(plan, "", "  ")
}

func (j *JSONFormatter) FormatRollbackResult(result *types.RollbackResult) ([]byte, error) {
	return json.MarshalIndent(result, "", "  ")
}

func (j *JSONFormatter) FormatRollbackHistory(results []types.RollbackResult) ([]byte, error) {
	return json.MarshalIndent(results, "", "  ")
}

func (j *JSONFormatter) FormatVerification(report *types.VerificationReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}
