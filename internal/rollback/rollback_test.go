package rollback

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/seppo/internal/errors"
	"github.com/yairfalse/seppo/internal/logger"
	"github.com/yairfalse/seppo/internal/snapshot"
	"github.com/yairfalse/seppo/pkg/types"
)

type fakeVerifier struct {
	fail  map[string]bool
	calls []string
}

func (v *fakeVerifier) VerifyComponent(ctx context.Context, component string) error {
	v.calls = append(v.calls, component)
	if v.fail[component] {
		return fmt.Errorf("%s is unhealthy", component)
	}
	return nil
}

type countingHandler struct {
	snapshot.StateHandler
	restores int
	failWith error
}

func (h *countingHandler) Restore(ctx context.Context, dir string) error {
	h.restores++
	if h.failWith != nil {
		return h.failWith
	}
	return h.StateHandler.Restore(ctx, dir)
}

func testSnapshot(t *testing.T, components []string, age time.Duration) *types.Snapshot {
	t.Helper()
	return &types.Snapshot{
		ID:          "snap-test",
		Timestamp:   time.Now().UTC().Add(-age),
		Components:  components,
		Checksum:    "deadbeef",
		ArchivePath: "/tmp/snap-test.tar.gz",
	}
}

func TestBuildPlan_CanonicalRestoreOrder(t *testing.T) {
	planner := NewPlanner(logger.NewSimple())
	snap := testSnapshot(t, []string{"monitoring", "ssl", "config"}, 0)

	plan, err := planner.BuildPlan(snap, types.TriggerManual, nil)
	require.NoError(t, err)

	var order []string
	for _, step := range plan.Steps {
		order = append(order, step.Component)
	}
	assert.Equal(t, []string{"config", "ssl", "monitoring"}, order)

	require.Len(t, plan.VerificationSteps, len(plan.Steps))
	for i, step := range plan.Steps {
		assert.Equal(t, step.Component, plan.VerificationSteps[i].Component)
	}
	assert.Equal(t, plan.Components, order)
	assert.Greater(t, plan.EstimatedDuration, time.Duration(0))
	require.NoError(t, plan.Validate())
}

func TestBuildPlan_SubsetMustBeCaptured(t *testing.T) {
	planner := NewPlanner(logger.NewSimple())
	snap := testSnapshot(t, []string{"config", "frontend"}, 0)

	_, err := planner.BuildPlan(snap, types.TriggerManual, []string{"database"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
	assert.Contains(t, err.Error(), "not part of snapshot")
}

func TestBuildPlan_EmptySubsetSelectsEverything(t *testing.T) {
	planner := NewPlanner(logger.NewSimple())
	snap := testSnapshot(t, []string{"database", "config"}, 0)

	plan, err := planner.BuildPlan(snap, types.TriggerDeploymentFailure, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"config", "database"}, plan.Components)
}

func TestBuildPlan_RiskScoring(t *testing.T) {
	tests := []struct {
		name       string
		components []string
		age        time.Duration
		want       types.RiskLevel
	}{
		{"fresh database is high", []string{"database"}, 0, types.RiskHigh},
		{"fresh monitoring is low", []string{"monitoring"}, 0, types.RiskLow},
		{"config plus ssl is medium", []string{"config", "ssl"}, 0, types.RiskMedium},
		{"two day old monitoring stays low", []string{"monitoring"}, 48 * time.Hour, types.RiskLow},
		{"stale frontend and monitoring is medium", []string{"frontend", "monitoring"}, 8 * 24 * time.Hour, types.RiskMedium},
		{"week old config and ssl tips high", []string{"config", "ssl"}, 8 * 24 * time.Hour, types.RiskHigh},
	}

	planner := NewPlanner(logger.NewSimple())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := testSnapshot(t, tt.components, tt.age)
			plan, err := planner.BuildPlan(snap, types.TriggerManual, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, plan.RiskLevel)
		})
	}
}

// rollbackFixture wires a real snapshot store, one dir-backed state
// handler, and an executor over temp directories.
type rollbackFixture struct {
	source   string
	manager  *snapshot.Manager
	handlers *snapshot.HandlerRegistry
	history  *History
	planner  *Planner
	verifier *fakeVerifier
	executor *Executor
	counting *countingHandler
}

func newRollbackFixture(t *testing.T, kind types.StateKind) *rollbackFixture {
	t.Helper()

	source := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(source, "state.txt"), []byte("good"), 0644))

	handlers := snapshot.NewHandlerRegistry()
	counting := &countingHandler{StateHandler: snapshot.NewDirHandler(kind, source)}
	handlers.Register(counting)

	store, err := snapshot.NewStore(t.TempDir())
	require.NoError(t, err)
	manager := snapshot.NewManager(store, handlers, logger.NewSimple())

	history, err := NewHistory(store.HistoryDir())
	require.NoError(t, err)

	verifier := &fakeVerifier{fail: make(map[string]bool)}
	return &rollbackFixture{
		source:   source,
		manager:  manager,
		handlers: handlers,
		history:  history,
		planner:  NewPlanner(logger.NewSimple()),
		verifier: verifier,
		executor: NewExecutor(manager, handlers, verifier, history, logger.NewSimple()),
		counting: counting,
	}
}

func (f *rollbackFixture) snapshotAndDamage(t *testing.T) *types.Snapshot {
	t.Helper()
	snap, err := f.manager.Create(context.Background(), "deploy-1", "", nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(f.source, "state.txt"), []byte("broken"), 0644))
	return snap
}

func TestExecute_SuccessfulRollbackRestoresState(t *testing.T) {
	f := newRollbackFixture(t, types.StateConfig)
	snap := f.snapshotAndDamage(t)

	plan, err := f.planner.BuildPlan(snap, types.TriggerManual, nil)
	require.NoError(t, err)

	result, err := f.executor.Execute(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, types.RollbackSuccess, result.Status)
	assert.True(t, result.Succeeded())
	assert.Equal(t, []string{"config"}, result.ComponentsRolledBack)
	assert.Equal(t, map[string]bool{"config": true}, result.VerificationResults)
	assert.False(t, result.EndTime.IsZero())

	data, err := os.ReadFile(filepath.Join(f.source, "state.txt"))
	require.NoError(t, err)
	assert.Equal(t, "good", string(data))

	recorded, err := f.history.Get(result.RollbackID)
	require.NoError(t, err)
	assert.Equal(t, types.RollbackSuccess, recorded.Status)
}

func TestExecute_ChecksumMismatchAbortsBeforeRestore(t *testing.T) {
	f := newRollbackFixture(t, types.StateConfig)
	snap := f.snapshotAndDamage(t)

	archive, err := os.OpenFile(snap.ArchivePath, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = archive.Write([]byte("tampered"))
	require.NoError(t, err)
	require.NoError(t, archive.Close())

	plan, err := f.planner.BuildPlan(snap, types.TriggerManual, nil)
	require.NoError(t, err)

	result, err := f.executor.Execute(context.Background(), plan)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSnapshotIntegrity))

	assert.Equal(t, types.RollbackFailed, result.Status)
	assert.Empty(t, result.ComponentsRolledBack)
	assert.Zero(t, f.counting.restores, "no restore may run after a checksum mismatch")

	// The damaged live state must be untouched.
	data, err := os.ReadFile(filepath.Join(f.source, "state.txt"))
	require.NoError(t, err)
	assert.Equal(t, "broken", string(data))
}

func TestExecute_RestoreFailureAbortsRemainingButVerifiesAll(t *testing.T) {
	configSource := t.TempDir()
	frontendSource := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configSource, "app.conf"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(frontendSource, "index.html"), []byte("b"), 0644))

	handlers := snapshot.NewHandlerRegistry()
	failing := &countingHandler{
		StateHandler: snapshot.NewDirHandler(types.StateConfig, configSource),
		failWith:     fmt.Errorf("disk full"),
	}
	frontend := &countingHandler{StateHandler: snapshot.NewDirHandler(types.StateFrontend, frontendSource)}
	handlers.Register(failing)
	handlers.Register(frontend)

	store, err := snapshot.NewStore(t.TempDir())
	require.NoError(t, err)
	manager := snapshot.NewManager(store, handlers, logger.NewSimple())

	snap, err := manager.Create(context.Background(), "deploy-2", "", nil)
	require.NoError(t, err)

	history, err := NewHistory(store.HistoryDir())
	require.NoError(t, err)
	verifier := &fakeVerifier{fail: make(map[string]bool)}
	executor := NewExecutor(manager, handlers, verifier, history, logger.NewSimple())

	plan, err := NewPlanner(logger.NewSimple()).BuildPlan(snap, types.TriggerDeploymentFailure, nil)
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), plan)
	require.Error(t, err)

	assert.Equal(t, types.RollbackFailed, result.Status)
	assert.Empty(t, result.ComponentsRolledBack, "config fails first, so nothing completes")
	assert.Equal(t, 1, failing.restores)
	assert.Zero(t, frontend.restores, "restores after the failure must not run")

	// Every verification still runs and is recorded.
	assert.Equal(t, []string{"config", "frontend"}, verifier.calls)
	assert.Len(t, result.VerificationResults, 2)
}

func TestExecute_FailedVerificationMarksRollbackFailed(t *testing.T) {
	f := newRollbackFixture(t, types.StateSSL)
	snap := f.snapshotAndDamage(t)
	f.verifier.fail["ssl"] = true

	plan, err := f.planner.BuildPlan(snap, types.TriggerHealthCheckFailure, nil)
	require.NoError(t, err)

	result, err := f.executor.Execute(context.Background(), plan)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeVerification))

	assert.Equal(t, types.RollbackFailed, result.Status)
	assert.Equal(t, []string{"ssl"}, result.ComponentsRolledBack, "the restore itself completed")
	assert.Equal(t, map[string]bool{"ssl": false}, result.VerificationResults)
	assert.Contains(t, result.ErrorMessage, "ssl")

	// State was restored even though the rollback is marked failed.
	data, err := os.ReadFile(filepath.Join(f.source, "state.txt"))
	require.NoError(t, err)
	assert.Equal(t, "good", string(data))
}

func TestExecute_CancelledContextBeforeStart(t *testing.T) {
	f := newRollbackFixture(t, types.StateConfig)
	snap := f.snapshotAndDamage(t)

	plan, err := f.planner.BuildPlan(snap, types.TriggerManual, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.executor.Execute(ctx, plan)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, types.RollbackCancelled, result.Status)
	assert.Zero(t, f.counting.restores)

	recorded, err := f.history.Get(result.RollbackID)
	require.NoError(t, err)
	assert.Equal(t, types.RollbackCancelled, recorded.Status)
}

func TestExecute_InvalidPlanRejected(t *testing.T) {
	f := newRollbackFixture(t, types.StateConfig)

	_, err := f.executor.Execute(context.Background(), &types.RollbackPlan{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
}

func TestHistory_ListNewestFirst(t *testing.T) {
	history, err := NewHistory(t.TempDir())
	require.NoError(t, err)

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, history.Record(&types.RollbackResult{
			RollbackID: fmt.Sprintf("rb-%d", i),
			SnapshotID: "snap-x",
			Trigger:    types.TriggerManual,
			Status:     types.RollbackSuccess,
			StartTime:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	results, err := history.List()
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "rb-2", results[0].RollbackID)
	assert.Equal(t, "rb-0", results[2].RollbackID)

	_, err = history.Get("rb-missing")
	require.Error(t, err)
}
