package commands

import (
	"context"
	"fmt"

	"github.com/yairfalse/seppo/internal/adapters"
	"github.com/yairfalse/seppo/internal/events"
	"github.com/yairfalse/seppo/internal/executor"
	"github.com/yairfalse/seppo/internal/logger"
	"github.com/yairfalse/seppo/internal/orchestrator"
	"github.com/yairfalse/seppo/internal/output"
	"github.com/yairfalse/seppo/internal/remote"
	"github.com/yairfalse/seppo/internal/rollback"
	"github.com/yairfalse/seppo/internal/scheduler"
	"github.com/yairfalse/seppo/internal/snapshot"
	"github.com/yairfalse/seppo/internal/verify"
	"github.com/yairfalse/seppo/pkg/config"
	"github.com/yairfalse/seppo/pkg/types"
)

// newLogger builds the run logger from the logging section
func newLogger(cfg *config.Config) logger.Logger {
	return logger.New(cfg.Logging.Level, cfg.Logging.Format)
}

// newFormatter builds the output formatter from the output section
func newFormatter(cfg *config.Config) (output.Formatter, error) {
	return output.NewFormatter(cfg.Output.Format, output.Options{NoColor: cfg.Output.NoColor})
}

// newSnapshotStack builds the snapshot store, the per-kind state
// handlers, and the manager, with remote replication when configured.
func newSnapshotStack(ctx context.Context, cfg *config.Config, log logger.Logger) (*snapshot.Manager, *snapshot.Store, *snapshot.HandlerRegistry, error) {
	store, err := snapshot.NewStore(cfg.Storage.BaseDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	handlers := snapshot.NewHandlerRegistry()
	for kind, dir := range cfg.Snapshots.StatePaths {
		handlers.Register(snapshot.NewDirHandler(types.StateKind(kind), dir))
	}
	if len(cfg.Snapshots.DumpCmd) > 0 && len(cfg.Snapshots.RestoreCmd) > 0 {
		handlers.Register(snapshot.NewDatabaseHandler(adapters.NewExecRunner(), cfg.Snapshots.DumpCmd, cfg.Snapshots.RestoreCmd))
	}

	if cfg.Remote.Enabled {
		replicator, err := remote.New(ctx, cfg.Remote.URL, log)
		if err != nil {
			return nil, nil, nil, err
		}
		return snapshot.NewManagerWithReplicator(store, handlers, log, replicator), store, handlers, nil
	}
	return snapshot.NewManager(store, handlers, log), store, handlers, nil
}

// newAdapterRegistry registers the concrete adapter for every
// component type, all sharing one exec runner.
func newAdapterRegistry(cfg *config.Config, log logger.Logger) *adapters.Registry {
	runner := adapters.NewExecRunner()
	registry := adapters.NewRegistry()
	registry.Register(adapters.NewDependenciesAdapter(runner, cfg.Adapters.Dependencies, log))
	registry.Register(adapters.NewDatabaseAdapter(runner, cfg.Adapters.Database, log))
	registry.Register(adapters.NewFrontendAdapter(runner, cfg.Adapters.Frontend, log))
	registry.Register(adapters.NewSSLAdapter(runner, cfg.Adapters.SSL, log))
	registry.Register(adapters.NewMonitoringAdapter(runner, cfg.Adapters.Monitoring, log))
	return registry
}

// newVerifySuite builds the post-deploy check suite from configuration
func newVerifySuite(cfg *config.Config, log logger.Logger) (*verify.Suite, error) {
	checks, err := verify.FromSpecs(cfg.Verification.Checks)
	if err != nil {
		return nil, err
	}
	suite := verify.NewSuite(log, checks...)
	if cfg.Verification.CheckTimeout > 0 {
		suite.SetCheckTimeout(cfg.Verification.CheckTimeout)
	}
	return suite, nil
}

// newReporter wires the lifecycle event sinks: always the log, the
// webhook when configured, plus any command-specific sinks.
func newReporter(cfg *config.Config, log logger.Logger, extra ...events.Sink) *events.Reporter {
	sinks := []events.Sink{events.NewLogSink(log)}
	if cfg.Events.WebhookURL != "" {
		sinks = append(sinks, events.NewWebhookSink(cfg.Events.WebhookURL))
	}
	sinks = append(sinks, extra...)
	return events.NewReporter(log, sinks...)
}

// deriveClaims turns adapter settings into the port and domain claims
// the coordinator reserves before a run: the frontend's listen port
// and every certificate domain.
func deriveClaims(cfg *config.Config, components []types.Component) ([]orchestrator.PortClaim, []orchestrator.DomainClaim) {
	var ports []orchestrator.PortClaim
	var domains []orchestrator.DomainClaim
	for i := range components {
		component := &components[i]
		switch component.Type {
		case types.ComponentFrontend:
			if cfg.Adapters.Frontend.Port > 0 {
				ports = append(ports, orchestrator.PortClaim{Port: cfg.Adapters.Frontend.Port, Component: component.Name})
			}
		case types.ComponentSSL:
			for _, domain := range cfg.Adapters.SSL.Domains {
				domains = append(domains, orchestrator.DomainClaim{Domain: domain, Component: component.Name})
			}
		}
	}
	return ports, domains
}

// runtimeOptions tunes the coordinator a command builds
type runtimeOptions struct {
	disableRollback bool
	sinks           []events.Sink
}

// newCoordinator assembles the full deployment engine. The returned
// reporter must be closed once the run settles so queued events flush.
func newCoordinator(ctx context.Context, cfg *config.Config, log logger.Logger, components []types.Component, opts runtimeOptions) (*orchestrator.Coordinator, *events.Reporter, error) {
	snapshots, store, handlers, err := newSnapshotStack(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	suite, err := newVerifySuite(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	history, err := rollback.NewHistory(store.HistoryDir())
	if err != nil {
		return nil, nil, err
	}

	reporter := newReporter(cfg, log, opts.sinks...)
	ports, domains := deriveClaims(cfg, components)

	coordinator, err := orchestrator.New(orchestrator.Deps{
		Scheduler: scheduler.New(log),
		Executor: executor.New(newAdapterRegistry(cfg, log), log, executor.Options{
			MaxWorkers:  cfg.Executor.MaxWorkers,
			BaseBackoff: cfg.Executor.BaseBackoff,
		}),
		Snapshots: snapshots,
		Planner:   rollback.NewPlanner(log),
		Rollback:  rollback.NewExecutor(snapshots, handlers, suite, history, log),
		Verifier:  suite,
		Events:    reporter,
		Logger:    log,
	}, orchestrator.Options{
		VerifyThreshold: cfg.Verification.Threshold,
		DisableRollback: opts.disableRollback,
		PortClaims:      ports,
		DomainClaims:    domains,
	})
	if err != nil {
		reporter.Close()
		return nil, nil, err
	}
	return coordinator, reporter, nil
}
