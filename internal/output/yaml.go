package output

import (
	"gopkg.in/yaml.v3"

	"github.com/yairfalse/seppo/pkg/types"
)

// YAMLFormatter handles YAML output formatting
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

func (y *YAMLFormatter) FormatReport(report *types.DeploymentReport) ([]byte, error) {
	return yaml.Marshal(report)
}

func (y *YAMLFormatter) FormatSnapshot(snapshot *types.Snapshot) ([]byte, error) {
	return yaml.Marshal(snapshot)
}

func (y *YAMLFormatter) FormatSnapshotList(snapshots []types.Snapshot) ([]byte, error) {
	return yaml.Marshal(snapshots)
}

func (y *YAMLFormatter) FormatRollbackPlan(plan *types.RollbackPlan) ([]byte, error) {
	return yaml.Marshal(plan)
}

func (y *YAMLFormatter) FormatRollbackResult(result *types.RollbackResult) ([]byte, error) {
	return yaml.Marshal(result)
}

func (y *YAMLFormatter) FormatRollbackHistory(results []types.RollbackResult) ([]byte, error) {
	return yaml.Marshal(results)
}

func (y *YAMLFormatter) FormatVerification(report *types.VerificationReport) ([]byte, error) {
	return yaml.Marshal(report)
}
