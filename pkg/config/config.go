package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yairfalse/seppo/internal/adapters"
	"github.com/yairfalse/seppo/internal/verify"
	"github.com/yairfalse/seppo/pkg/types"
)

// Config represents the complete seppo configuration
type Config struct {
	Components   []ComponentSpec    `mapstructure:"components"`
	Executor     ExecutorConfig     `mapstructure:"executor"`
	Adapters     AdaptersConfig     `mapstructure:"adapters"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Remote       RemoteConfig       `mapstructure:"remote"`
	Snapshots    SnapshotsConfig    `mapstructure:"snapshots"`
	Verification VerificationConfig `mapstructure:"verification"`
	Events       EventsConfig       `mapstructure:"events"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Output       OutputConfig       `mapstructure:"output"`
}

// ComponentSpec is one deployable component as written in config.yaml.
// Enabled is a pointer so that leaving it out means enabled.
type ComponentSpec struct {
	Name         string        `mapstructure:"name"`
	Type         string        `mapstructure:"type"`
	DependsOn    []string      `mapstructure:"depends_on"`
	ParallelSafe bool          `mapstructure:"parallel_safe"`
	Priority     int           `mapstructure:"priority"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RetryCount   int           `mapstructure:"retry_count"`
	Enabled      *bool         `mapstructure:"enabled"`
}

// ExecutorConfig tunes the staged executor
type ExecutorConfig struct {
	MaxWorkers  int           `mapstructure:"max_workers"`
	BaseBackoff time.Duration `mapstructure:"base_backoff"`
}

// AdaptersConfig carries per-component-type adapter settings
type AdaptersConfig struct {
	Dependencies adapters.DependenciesConfig `mapstructure:"dependencies"`
	Database     adapters.DatabaseConfig     `mapstructure:"database"`
	Frontend     adapters.FrontendConfig     `mapstructure:"frontend"`
	SSL          adapters.SSLConfig          `mapstructure:"ssl"`
	Monitoring   adapters.MonitoringConfig   `mapstructure:"monitoring"`
}

// StorageConfig locates the local snapshot store
type StorageConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// RemoteConfig enables snapshot archive replication.
// URL forms: s3://bucket/prefix?region=..., gs://bucket/prefix,
// azurerm://account/container/prefix.
type RemoteConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// SnapshotsConfig controls what snapshots capture and how many to keep.
// StatePaths maps a state kind (config, frontend, ssl, monitoring) to
// the directory whose contents that kind covers.
type SnapshotsConfig struct {
	Keep       int               `mapstructure:"keep"`
	StatePaths map[string]string `mapstructure:"state_paths"`
	DumpCmd    []string          `mapstructure:"dump_cmd"`
	RestoreCmd []string          `mapstructure:"restore_cmd"`
}

// VerificationConfig lists the post-deploy checks and the pass threshold
type VerificationConfig struct {
	Threshold    float64            `mapstructure:"threshold"`
	CheckTimeout time.Duration      `mapstructure:"check_timeout"`
	Checks       []verify.CheckSpec `mapstructure:"checks"`
}

// EventsConfig wires lifecycle event sinks
type EventsConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OutputConfig contains output formatting configuration
type OutputConfig struct {
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
	Quiet   bool   `mapstructure:"quiet"`
}

// Load reads configuration from config.yaml (current directory, then
// ~/.seppo), layered under SEPPO_* environment variables, on top of
// the built-in defaults.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit config file path, used by the
// --config flag.
func LoadFrom(path string) (*Config, error) {
	config := DefaultConfig()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".seppo"))
		}
	}

	v.SetEnvPrefix("SEPPO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("logging.level", "SEPPO_LOG_LEVEL", "LOG_LEVEL")
	v.BindEnv("storage.base_dir", "SEPPO_STORAGE_DIR")
	v.BindEnv("remote.url", "SEPPO_REMOTE_URL")
	v.BindEnv("events.webhook_url", "SEPPO_WEBHOOK_URL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// no config file means defaults plus environment
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return config, nil
}

// Validate checks the configuration for mistakes that would otherwise
// only surface mid-deployment.
func (c *Config) Validate() error {
	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage base_dir is required")
	}
	if c.Verification.Threshold < 0 || c.Verification.Threshold > 1 {
		return fmt.Errorf("verification threshold must be between 0 and 1, got %v", c.Verification.Threshold)
	}
	if c.Remote.Enabled && c.Remote.URL == "" {
		return fmt.Errorf("remote replication is enabled but remote url is empty")
	}

	names := make(map[string]bool, len(c.Components))
	for i := range c.Components {
		spec := &c.Components[i]
		if strings.TrimSpace(spec.Name) == "" {
			return fmt.Errorf("component %d has no name", i)
		}
		if names[spec.Name] {
			return fmt.Errorf("component %s is listed twice", spec.Name)
		}
		names[spec.Name] = true
		if !types.ComponentType(spec.Type).IsValid() {
			return fmt.Errorf("component %s has unknown type %q", spec.Name, spec.Type)
		}
	}
	for i := range c.Components {
		for _, dep := range c.Components[i].DependsOn {
			if !names[dep] {
				return fmt.Errorf("component %s depends on unknown component %s", c.Components[i].Name, dep)
			}
		}
	}

	for kind := range c.Snapshots.StatePaths {
		k := types.StateKind(kind)
		if !k.IsValid() {
			return fmt.Errorf("snapshot state path has unknown kind %q", kind)
		}
		if k == types.StateDatabase {
			return fmt.Errorf("database state is captured via dump_cmd, not a state path")
		}
	}

	for i := range c.Verification.Checks {
		if _, err := verify.FromSpec(c.Verification.Checks[i]); err != nil {
			return fmt.Errorf("verification check %d: %w", i, err)
		}
	}

	return nil
}

// ToComponents converts the configured specs into deployable
// components, applying per-field defaults.
func (c *Config) ToComponents() []types.Component {
	components := make([]types.Component, 0, len(c.Components))
	for i := range c.Components {
		components = append(components, c.Components[i].toComponent())
	}
	return components
}

func (s *ComponentSpec) toComponent() types.Component {
	component := types.Component{
		Name:         s.Name,
		Type:         types.ComponentType(s.Type),
		DependsOn:    s.DependsOn,
		ParallelSafe: s.ParallelSafe,
		Priority:     s.Priority,
		Timeout:      s.Timeout,
		RetryCount:   s.RetryCount,
		Enabled:      s.Enabled == nil || *s.Enabled,
	}
	if component.Timeout <= 0 {
		component.Timeout = defaultComponentTimeout
	}
	if component.RetryCount <= 0 {
		component.RetryCount = defaultRetryCount
	}
	return component
}

// ExpandPaths expands ~ in every configured path
func (c *Config) ExpandPaths() error {
	var err error
	if c.Storage.BaseDir, err = expandPath(c.Storage.BaseDir); err != nil {
		return fmt.Errorf("failed to expand storage base_dir: %w", err)
	}
	for kind, path := range c.Snapshots.StatePaths {
		if c.Snapshots.StatePaths[kind], err = expandPath(path); err != nil {
			return fmt.Errorf("failed to expand snapshot state path %s: %w", path, err)
		}
	}
	if c.Adapters.Database.MigrationsDir, err = expandPath(c.Adapters.Database.MigrationsDir); err != nil {
		return fmt.Errorf("failed to expand migrations dir: %w", err)
	}
	if c.Adapters.Frontend.DistDir, err = expandPath(c.Adapters.Frontend.DistDir); err != nil {
		return fmt.Errorf("failed to expand frontend dist dir: %w", err)
	}
	if c.Adapters.Frontend.WebRoot, err = expandPath(c.Adapters.Frontend.WebRoot); err != nil {
		return fmt.Errorf("failed to expand frontend web root: %w", err)
	}
	if c.Adapters.SSL.CertDir, err = expandPath(c.Adapters.SSL.CertDir); err != nil {
		return fmt.Errorf("failed to expand cert dir: %w", err)
	}
	if c.Adapters.Monitoring.ConfigDir, err = expandPath(c.Adapters.Monitoring.ConfigDir); err != nil {
		return fmt.Errorf("failed to expand monitoring config dir: %w", err)
	}
	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) (string, error) {
	if path == "" || !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
