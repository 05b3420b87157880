package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/seppo/internal/logger"
	"github.com/yairfalse/seppo/pkg/types"
)

type runnerStep struct {
	out []byte
	err error
}

// scriptedRunner replays canned outputs in call order and records every
// command line it was asked to run.
type scriptedRunner struct {
	script []runnerStep
	calls  [][]string
}

func (r *scriptedRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	if len(r.script) == 0 {
		return nil, nil
	}
	step := r.script[0]
	r.script = r.script[1:]
	return step.out, step.err
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry()

	_, ok := registry.Get(types.ComponentDatabase)
	assert.False(t, ok)

	adapter := NewDependenciesAdapter(&scriptedRunner{}, DependenciesConfig{}, logger.NewSimple())
	registry.Register(adapter)

	got, ok := registry.Get(types.ComponentDependencies)
	require.True(t, ok)
	assert.Equal(t, types.ComponentDependencies, got.Type())

	registry.Register(NewDatabaseAdapter(&scriptedRunner{}, DatabaseConfig{}, logger.NewSimple()))
	assert.Equal(t, []types.ComponentType{types.ComponentDatabase, types.ComponentDependencies}, registry.Types())
}

func TestDependenciesAdapter_InstallsInOneBatch(t *testing.T) {
	runner := &scriptedRunner{}
	adapter := NewDependenciesAdapter(runner, DependenciesConfig{
		Manager:  "apt-get",
		Packages: []string{"nginx", "postgresql-client"},
	}, logger.NewSimple())

	out, err := adapter.Deploy(context.Background(), types.Component{Name: "dependencies"})
	require.NoError(t, err)
	assert.Contains(t, out.Message, "2 packages")

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"apt-get", "install", "-y", "nginx", "postgresql-client"}, runner.calls[0])
}

func TestDependenciesAdapter_NothingToInstall(t *testing.T) {
	runner := &scriptedRunner{}
	adapter := NewDependenciesAdapter(runner, DependenciesConfig{}, logger.NewSimple())

	out, err := adapter.Deploy(context.Background(), types.Component{Name: "dependencies"})
	require.NoError(t, err)
	assert.Equal(t, "no packages requested", out.Message)
	assert.Empty(t, runner.calls)
}

func TestDatabaseAdapter_CreatesMissingDatabase(t *testing.T) {
	migrations := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(migrations, "002_indexes.sql"), []byte("--"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(migrations, "001_schema.sql"), []byte("--"), 0644))

	runner := &scriptedRunner{script: []runnerStep{
		{out: []byte("\n")}, // existence check: not found
		{},                  // CREATE DATABASE
		{},                  // migration 001
		{},                  // migration 002
	}}
	adapter := NewDatabaseAdapter(runner, DatabaseConfig{
		Name:          "appdb",
		Owner:         "app",
		MigrationsDir: migrations,
	}, logger.NewSimple())

	out, err := adapter.Deploy(context.Background(), types.Component{Name: "database"})
	require.NoError(t, err)
	assert.Contains(t, out.Message, "2 migrations")

	require.Len(t, runner.calls, 4)
	assert.Contains(t, runner.calls[1], "CREATE DATABASE appdb OWNER app")
	assert.Contains(t, runner.calls[2], filepath.Join(migrations, "001_schema.sql"))
	assert.Contains(t, runner.calls[3], filepath.Join(migrations, "002_indexes.sql"))
}

func TestDatabaseAdapter_SkipsExistingDatabase(t *testing.T) {
	runner := &scriptedRunner{script: []runnerStep{
		{out: []byte("1\n")}, // existence check: found
	}}
	adapter := NewDatabaseAdapter(runner, DatabaseConfig{Name: "appdb"}, logger.NewSimple())

	_, err := adapter.Deploy(context.Background(), types.Component{Name: "database"})
	require.NoError(t, err)
	require.Len(t, runner.calls, 1, "no CREATE DATABASE when it already exists")
}

func TestDatabaseAdapter_MigrationFailureStops(t *testing.T) {
	migrations := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(migrations, "001_schema.sql"), []byte("--"), 0644))

	runner := &scriptedRunner{script: []runnerStep{
		{out: []byte("1\n")},
		{err: fmt.Errorf("syntax error")},
	}}
	adapter := NewDatabaseAdapter(runner, DatabaseConfig{Name: "appdb", MigrationsDir: migrations}, logger.NewSimple())

	_, err := adapter.Deploy(context.Background(), types.Component{Name: "database"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "001_schema.sql")
}

func TestFrontendAdapter_BuildsAndPublishes(t *testing.T) {
	runner := &scriptedRunner{}
	adapter := NewFrontendAdapter(runner, FrontendConfig{
		BuildCommand: []string{"npm", "run", "build"},
		DistDir:      "build/out",
		WebRoot:      "/var/www/app",
		Port:         8443,
	}, logger.NewSimple())

	out, err := adapter.Deploy(context.Background(), types.Component{Name: "frontend"})
	require.NoError(t, err)
	assert.Equal(t, "8443", out.Details["port"])

	require.Len(t, runner.calls, 2)
	assert.Equal(t, []string{"npm", "run", "build"}, runner.calls[0])
	assert.Equal(t, []string{"rsync", "-a", "--delete", "build/out/", "/var/www/app/"}, runner.calls[1])
}

func TestFrontendAdapter_RequiresWebRoot(t *testing.T) {
	adapter := NewFrontendAdapter(&scriptedRunner{}, FrontendConfig{}, logger.NewSimple())
	_, err := adapter.Deploy(context.Background(), types.Component{Name: "frontend"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "web root")
}

func TestSSLAdapter_CertbotArguments(t *testing.T) {
	runner := &scriptedRunner{}
	adapter := NewSSLAdapter(runner, SSLConfig{
		Domains: []string{"example.com", "www.example.com"},
		Email:   "ops@example.com",
	}, logger.NewSimple())

	out, err := adapter.Deploy(context.Background(), types.Component{Name: "ssl"})
	require.NoError(t, err)
	assert.Equal(t, "certbot", out.Details["mode"])

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.Equal(t, "certbot", call[0])
	assert.Contains(t, call, "--email")
	assert.Contains(t, call, "ops@example.com")
	assert.Contains(t, call, "example.com")
	assert.Contains(t, call, "www.example.com")
}

func TestSSLAdapter_SelfSignedFallback(t *testing.T) {
	runner := &scriptedRunner{}
	adapter := NewSSLAdapter(runner, SSLConfig{
		Domains:    []string{"staging.local"},
		SelfSigned: true,
		CertDir:    "/tmp/certs",
	}, logger.NewSimple())

	out, err := adapter.Deploy(context.Background(), types.Component{Name: "ssl"})
	require.NoError(t, err)
	assert.Equal(t, "self-signed", out.Details["mode"])

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "openssl", runner.calls[0][0])
	assert.Contains(t, runner.calls[0], "/tmp/certs/staging.local.crt")
}

func TestMonitoringAdapter_RendersConfigAndReloads(t *testing.T) {
	configDir := t.TempDir()
	runner := &scriptedRunner{}
	adapter := NewMonitoringAdapter(runner, MonitoringConfig{
		ConfigDir:     configDir,
		ScrapeTargets: []string{"localhost:9100", "localhost:8080"},
	}, logger.NewSimple())

	out, err := adapter.Deploy(context.Background(), types.Component{Name: "monitoring"})
	require.NoError(t, err)
	assert.Contains(t, out.Message, "prometheus reloaded")

	data, err := os.ReadFile(filepath.Join(configDir, "monitoring.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "localhost:9100")
	assert.Contains(t, string(data), "job_name: monitoring")

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"systemctl", "reload-or-restart", "prometheus"}, runner.calls[0])
}
