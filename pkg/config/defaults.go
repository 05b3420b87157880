package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/yairfalse/seppo/internal/adapters"
)

const (
	defaultComponentTimeout = 5 * time.Minute
	defaultRetryCount       = 3
	defaultVerifyThreshold  = 0.80
	defaultCheckTimeout     = 10 * time.Second
	defaultSnapshotsKept    = 10
)

// DefaultConfig returns a configuration with sensible defaults: the
// standard five-component target with the dependency chain
// dependencies -> database -> frontend -> {ssl, monitoring}.
func DefaultConfig() *Config {
	return &Config{
		Components: DefaultComponents(),
		Executor: ExecutorConfig{
			MaxWorkers:  4,
			BaseBackoff: time.Second,
		},
		Adapters: AdaptersConfig{
			Dependencies: adapters.DependenciesConfig{
				Manager: "apt-get",
			},
			Database: adapters.DatabaseConfig{
				Name:          "app",
				Owner:         "app",
				AdminUser:     "postgres",
				MigrationsDir: "./migrations",
			},
			Frontend: adapters.FrontendConfig{
				BuildCommand: []string{"npm", "run", "build"},
				DistDir:      "./dist",
				WebRoot:      "/var/www/app",
				Port:         443,
			},
			SSL: adapters.SSLConfig{
				CertDir: "/etc/ssl/app",
			},
			Monitoring: adapters.MonitoringConfig{
				ConfigDir: "/etc/prometheus",
				Service:   "prometheus",
			},
		},
		Storage: StorageConfig{
			BaseDir: defaultStorageDir(),
		},
		Snapshots: SnapshotsConfig{
			Keep: defaultSnapshotsKept,
			StatePaths: map[string]string{
				"config":     "/etc/app",
				"frontend":   "/var/www/app",
				"ssl":        "/etc/ssl/app",
				"monitoring": "/etc/prometheus",
			},
		},
		Verification: VerificationConfig{
			Threshold:    defaultVerifyThreshold,
			CheckTimeout: defaultCheckTimeout,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Output: OutputConfig{
			Format: "table",
		},
	}
}

// DefaultComponents is the canonical component set deployed when the
// config file lists none.
func DefaultComponents() []ComponentSpec {
	return []ComponentSpec{
		{
			Name: "dependencies",
			Type: "dependencies",
		},
		{
			Name:      "database",
			Type:      "database",
			DependsOn: []string{"dependencies"},
			Timeout:   10 * time.Minute,
		},
		{
			Name:      "frontend",
			Type:      "frontend",
			DependsOn: []string{"database"},
		},
		{
			Name:         "ssl",
			Type:         "ssl",
			DependsOn:    []string{"frontend"},
			ParallelSafe: true,
			Priority:     1,
		},
		{
			Name:         "monitoring",
			Type:         "monitoring",
			DependsOn:    []string{"frontend"},
			ParallelSafe: true,
			Priority:     2,
		},
	}
}

func defaultStorageDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.seppo/storage"
	}
	return filepath.Join(home, ".seppo", "storage")
}
