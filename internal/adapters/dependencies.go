package adapters

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/yairfalse/seppo/internal/logger"
	"github.com/yairfalse/seppo/pkg/types"
)

// DependenciesConfig drives system package installation.
type DependenciesConfig struct {
	Manager  string   `mapstructure:"manager"`
	Packages []string `mapstructure:"packages"`
}

// DependenciesAdapter installs the configured system packages through
// the package manager in one batch.
type DependenciesAdapter struct {
	runner CommandRunner
	config DependenciesConfig
	logger logger.Logger
}

func NewDependenciesAdapter(runner CommandRunner, config DependenciesConfig, log logger.Logger) *DependenciesAdapter {
	return &DependenciesAdapter{runner: runner, config: config, logger: log}
}

func (a *DependenciesAdapter) Type() types.ComponentType { return types.ComponentDependencies }

func (a *DependenciesAdapter) Deploy(ctx context.Context, component types.Component) (*types.DeployOutput, error) {
	if len(a.config.Packages) == 0 {
		return &types.DeployOutput{Message: "no packages requested"}, nil
	}

	manager := a.config.Manager
	if manager == "" {
		manager = "apt-get"
	}

	a.logger.WithFields(map[string]interface{}{
		"manager":  manager,
		"packages": len(a.config.Packages),
	}).Debug("installing system packages")

	args := append([]string{"install", "-y"}, a.config.Packages...)
	if _, err := a.runner.Run(ctx, manager, args...); err != nil {
		return nil, fmt.Errorf("package installation failed: %w", err)
	}

	return &types.DeployOutput{
		Message: fmt.Sprintf("installed %d packages", len(a.config.Packages)),
		Details: map[string]string{
			"manager":  manager,
			"packages": strings.Join(a.config.Packages, ","),
			"count":    strconv.Itoa(len(a.config.Packages)),
		},
	}, nil
}
