package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/yairfalse/seppo/internal/logger"
	"github.com/yairfalse/seppo/pkg/types"
)

// MonitoringConfig drives scrape configuration and service reload.
type MonitoringConfig struct {
	ConfigDir      string   `mapstructure:"config_dir"`
	Service        string   `mapstructure:"service"`
	ScrapeTargets  []string `mapstructure:"scrape_targets"`
	ScrapeInterval string   `mapstructure:"scrape_interval"`
}

// MonitoringAdapter renders the scrape configuration for the deployed
// services and reloads the metrics collector to pick it up.
type MonitoringAdapter struct {
	runner CommandRunner
	config MonitoringConfig
	logger logger.Logger
}

func NewMonitoringAdapter(runner CommandRunner, config MonitoringConfig, log logger.Logger) *MonitoringAdapter {
	return &MonitoringAdapter{runner: runner, config: config, logger: log}
}

func (a *MonitoringAdapter) Type() types.ComponentType { return types.ComponentMonitoring }

type scrapeConfig struct {
	JobName        string   `yaml:"job_name"`
	ScrapeInterval string   `yaml:"scrape_interval,omitempty"`
	StaticConfigs  []struct {
		Targets []string `yaml:"targets"`
	} `yaml:"static_configs"`
}

func (a *MonitoringAdapter) Deploy(ctx context.Context, component types.Component) (*types.DeployOutput, error) {
	if a.config.ConfigDir == "" {
		return nil, fmt.Errorf("monitoring config directory not configured")
	}

	if err := a.renderScrapeConfig(component.Name); err != nil {
		return nil, err
	}

	service := a.config.Service
	if service == "" {
		service = "prometheus"
	}
	if _, err := a.runner.Run(ctx, "systemctl", "reload-or-restart", service); err != nil {
		return nil, fmt.Errorf("monitoring reload failed: %w", err)
	}

	return &types.DeployOutput{
		Message: fmt.Sprintf("monitoring configured, %s reloaded", service),
		Details: map[string]string{
			"service": service,
			"targets": strconv.Itoa(len(a.config.ScrapeTargets)),
		},
	}, nil
}

func (a *MonitoringAdapter) renderScrapeConfig(jobName string) error {
	cfg := scrapeConfig{
		JobName:        jobName,
		ScrapeInterval: a.config.ScrapeInterval,
	}
	cfg.StaticConfigs = append(cfg.StaticConfigs, struct {
		Targets []string `yaml:"targets"`
	}{Targets: a.config.ScrapeTargets})

	data, err := yaml.Marshal([]scrapeConfig{cfg})
	if err != nil {
		return fmt.Errorf("failed to render scrape config: %w", err)
	}
	if err := os.MkdirAll(a.config.ConfigDir, 0755); err != nil {
		return fmt.Errorf("failed to create monitoring config dir: %w", err)
	}
	path := filepath.Join(a.config.ConfigDir, jobName+".yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write scrape config: %w", err)
	}
	a.logger.WithField("path", path).Debug("scrape configuration written")
	return nil
}
