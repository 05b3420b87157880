package adapters

import (
	"context"
	"fmt"
	"strconv"

	"github.com/yairfalse/seppo/internal/logger"
	"github.com/yairfalse/seppo/pkg/types"
)

// FrontendConfig drives the frontend build and publish.
type FrontendConfig struct {
	BuildCommand []string `mapstructure:"build_command"`
	DistDir      string   `mapstructure:"dist_dir"`
	WebRoot      string   `mapstructure:"web_root"`
	Port         int      `mapstructure:"port"`
}

// FrontendAdapter builds the frontend bundle and publishes it to the
// web root with rsync.
type FrontendAdapter struct {
	runner CommandRunner
	config FrontendConfig
	logger logger.Logger
}

func NewFrontendAdapter(runner CommandRunner, config FrontendConfig, log logger.Logger) *FrontendAdapter {
	return &FrontendAdapter{runner: runner, config: config, logger: log}
}

func (a *FrontendAdapter) Type() types.ComponentType { return types.ComponentFrontend }

func (a *FrontendAdapter) Deploy(ctx context.Context, component types.Component) (*types.DeployOutput, error) {
	if a.config.WebRoot == "" {
		return nil, fmt.Errorf("frontend web root not configured")
	}

	if len(a.config.BuildCommand) > 0 {
		a.logger.WithField("command", a.config.BuildCommand[0]).Debug("building frontend bundle")
		if _, err := a.runner.Run(ctx, a.config.BuildCommand[0], a.config.BuildCommand[1:]...); err != nil {
			return nil, fmt.Errorf("frontend build failed: %w", err)
		}
	}

	dist := a.config.DistDir
	if dist == "" {
		dist = "dist"
	}
	if _, err := a.runner.Run(ctx, "rsync", "-a", "--delete", dist+"/", a.config.WebRoot+"/"); err != nil {
		return nil, fmt.Errorf("frontend publish failed: %w", err)
	}

	details := map[string]string{"web_root": a.config.WebRoot}
	if a.config.Port > 0 {
		details["port"] = strconv.Itoa(a.config.Port)
	}
	return &types.DeployOutput{
		Message: fmt.Sprintf("frontend published to %s", a.config.WebRoot),
		Details: details,
	}, nil
}
