package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/yairfalse/seppo/internal/logger"
	"github.com/yairfalse/seppo/pkg/types"
)

// DatabaseConfig drives database provisioning and schema migrations.
type DatabaseConfig struct {
	Name          string `mapstructure:"name"`
	Owner         string `mapstructure:"owner"`
	AdminUser     string `mapstructure:"admin_user"`
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// DatabaseAdapter provisions the application database and applies any
// pending schema migrations through psql. Migration files run in
// lexical order, so timestamped filenames keep them sequential.
type DatabaseAdapter struct {
	runner CommandRunner
	config DatabaseConfig
	logger logger.Logger
}

func NewDatabaseAdapter(runner CommandRunner, config DatabaseConfig, log logger.Logger) *DatabaseAdapter {
	return &DatabaseAdapter{runner: runner, config: config, logger: log}
}

func (a *DatabaseAdapter) Type() types.ComponentType { return types.ComponentDatabase }

func (a *DatabaseAdapter) Deploy(ctx context.Context, component types.Component) (*types.DeployOutput, error) {
	if a.config.Name == "" {
		return nil, fmt.Errorf("database name not configured")
	}
	admin := a.config.AdminUser
	if admin == "" {
		admin = "postgres"
	}

	if err := a.ensureDatabase(ctx, admin); err != nil {
		return nil, err
	}

	applied, err := a.runMigrations(ctx, admin)
	if err != nil {
		return nil, err
	}

	return &types.DeployOutput{
		Message: fmt.Sprintf("database %s ready, %d migrations applied", a.config.Name, applied),
		Details: map[string]string{
			"database":   a.config.Name,
			"migrations": strconv.Itoa(applied),
		},
	}, nil
}

func (a *DatabaseAdapter) ensureDatabase(ctx context.Context, admin string) error {
	out, err := a.runner.Run(ctx, "psql", "-U", admin, "-tAc",
		fmt.Sprintf("SELECT 1 FROM pg_database WHERE datname = '%s'", a.config.Name))
	if err != nil {
		return fmt.Errorf("database existence check failed: %w", err)
	}
	if strings.TrimSpace(string(out)) == "1" {
		a.logger.WithField("database", a.config.Name).Debug("database already exists")
		return nil
	}

	create := fmt.Sprintf("CREATE DATABASE %s", a.config.Name)
	if a.config.Owner != "" {
		create += fmt.Sprintf(" OWNER %s", a.config.Owner)
	}
	if _, err := a.runner.Run(ctx, "psql", "-U", admin, "-c", create); err != nil {
		return fmt.Errorf("database creation failed: %w", err)
	}
	a.logger.WithField("database", a.config.Name).Info("database created")
	return nil
}

func (a *DatabaseAdapter) runMigrations(ctx context.Context, admin string) (int, error) {
	if a.config.MigrationsDir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(a.config.MigrationsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read migrations: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		path := filepath.Join(a.config.MigrationsDir, file)
		a.logger.WithField("migration", file).Debug("applying migration")
		if _, err := a.runner.Run(ctx, "psql", "-U", admin, "-d", a.config.Name, "-v", "ON_ERROR_STOP=1", "-f", path); err != nil {
			return 0, fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return len(files), nil
}
