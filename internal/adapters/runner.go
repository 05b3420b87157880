package adapters

import (
	"context"
	"fmt"
	"os/exec"
)

// CommandRunner executes external commands. Concrete adapters shell out
// through this boundary so tests can substitute a fake.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands through os/exec with combined output capture.
type ExecRunner struct {
	dir string
}

func NewExecRunner() *ExecRunner { return &ExecRunner{} }

// NewExecRunnerInDir runs every command from the given working directory.
func NewExecRunnerInDir(dir string) *ExecRunner { return &ExecRunner{dir: dir} }

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if r.dir != "" {
		cmd.Dir = r.dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s failed: %w: %s", name, err, string(out))
	}
	return out, nil
}
