package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/seppo/internal/adapters"
	seppoerrors "github.com/yairfalse/seppo/internal/errors"
	"github.com/yairfalse/seppo/internal/logger"
	"github.com/yairfalse/seppo/pkg/types"
)

// fakeAdapter scripts deploy outcomes per component name and counts calls
type fakeAdapter struct {
	ctype    types.ComponentType
	mu       sync.Mutex
	calls    map[string]int
	behavior func(ctx context.Context, component types.Component, attempt int) (*types.DeployOutput, error)
}

func newFakeAdapter(ctype types.ComponentType, behavior func(ctx context.Context, component types.Component, attempt int) (*types.DeployOutput, error)) *fakeAdapter {
	return &fakeAdapter{ctype: ctype, calls: make(map[string]int), behavior: behavior}
}

func (f *fakeAdapter) Type() types.ComponentType { return f.ctype }

func (f *fakeAdapter) Deploy(ctx context.Context, component types.Component) (*types.DeployOutput, error) {
	f.mu.Lock()
	f.calls[component.Name]++
	attempt := f.calls[component.Name]
	f.mu.Unlock()
	return f.behavior(ctx, component, attempt)
}

func (f *fakeAdapter) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func succeedAlways(ctx context.Context, component types.Component, attempt int) (*types.DeployOutput, error) {
	return &types.DeployOutput{Message: "ok"}, nil
}

func failAlways(ctx context.Context, component types.Component, attempt int) (*types.DeployOutput, error) {
	return nil, fmt.Errorf("scripted failure on attempt %d", attempt)
}

func execComponent(name string, ctype types.ComponentType, retries int) types.Component {
	return types.Component{
		Name:       name,
		Type:       ctype,
		Timeout:    time.Second,
		RetryCount: retries,
		Enabled:    true,
	}
}

func singleStagePlan(components ...types.Component) *types.DeploymentPlan {
	plan := &types.DeploymentPlan{DeploymentID: "deploy-test", CreatedAt: time.Now()}
	for _, c := range components {
		plan.Stages = append(plan.Stages, types.Stage{Components: []types.Component{c}})
	}
	return plan
}

func TestRun_RetryCountBoundsAttempts(t *testing.T) {
	registry := adapters.NewRegistry()
	adapter := newFakeAdapter(types.ComponentDatabase, failAlways)
	registry.Register(adapter)

	backoff := 10 * time.Millisecond
	e := New(registry, logger.NewSimple(), Options{BaseBackoff: backoff})

	component := execComponent("database", types.ComponentDatabase, 3)
	run, err := e.Run(context.Background(), singleStagePlan(component))
	require.Error(t, err)
	require.NotNil(t, run)

	result := run.Results["database"]
	assert.Equal(t, types.DeployFailed, result.Status)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, adapter.callCount("database"))
	assert.Contains(t, result.Error, "scripted failure on attempt 3")

	// Backoffs of 1x and 2x base ran between the three attempts.
	assert.GreaterOrEqual(t, result.Duration, 3*backoff)
}

func TestRun_FirstSuccessStopsRetrying(t *testing.T) {
	registry := adapters.NewRegistry()
	adapter := newFakeAdapter(types.ComponentFrontend, func(ctx context.Context, c types.Component, attempt int) (*types.DeployOutput, error) {
		if attempt < 3 {
			return nil, errors.New("flaky")
		}
		return &types.DeployOutput{Message: "published", Details: map[string]string{"port": "8080"}}, nil
	})
	registry.Register(adapter)

	e := New(registry, logger.NewSimple(), Options{BaseBackoff: time.Millisecond})

	component := execComponent("frontend", types.ComponentFrontend, 5)
	run, err := e.Run(context.Background(), singleStagePlan(component))
	require.NoError(t, err)

	result := run.Results["frontend"]
	assert.Equal(t, types.DeploySuccess, result.Status)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, adapter.callCount("frontend"))
	assert.Equal(t, "published", result.Message)
	assert.Equal(t, "8080", result.Details["port"])
}

func TestRun_TimeoutConsumesAttempt(t *testing.T) {
	registry := adapters.NewRegistry()
	adapter := newFakeAdapter(types.ComponentSSL, func(ctx context.Context, c types.Component, attempt int) (*types.DeployOutput, error) {
		select {
		case <-time.After(500 * time.Millisecond):
			return &types.DeployOutput{Message: "too late"}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	registry.Register(adapter)

	e := New(registry, logger.NewSimple(), Options{BaseBackoff: time.Millisecond})

	component := execComponent("ssl", types.ComponentSSL, 2)
	component.Timeout = 30 * time.Millisecond

	run, err := e.Run(context.Background(), singleStagePlan(component))
	require.Error(t, err)

	result := run.Results["ssl"]
	assert.Equal(t, types.DeployFailed, result.Status)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 2, adapter.callCount("ssl"))
	assert.Contains(t, result.Error, "did not finish within")
}

func TestRun_StageBarrierHaltsOnFailure(t *testing.T) {
	registry := adapters.NewRegistry()
	dbAdapter := newFakeAdapter(types.ComponentDatabase, failAlways)
	feAdapter := newFakeAdapter(types.ComponentFrontend, succeedAlways)
	registry.Register(dbAdapter)
	registry.Register(feAdapter)

	e := New(registry, logger.NewSimple(), Options{BaseBackoff: time.Millisecond})

	plan := singleStagePlan(
		execComponent("database", types.ComponentDatabase, 1),
		execComponent("frontend", types.ComponentFrontend, 1),
	)

	run, err := e.Run(context.Background(), plan)
	require.Error(t, err)
	assert.True(t, seppoerrors.IsType(err, seppoerrors.ErrorTypeAdapter))

	// Stage two never started.
	assert.Equal(t, 0, feAdapter.callCount("frontend"))
	_, settled := run.Results["frontend"]
	assert.False(t, settled)
	assert.Equal(t, []string{"database"}, run.Failed())
	require.Len(t, run.Stages, 1)
	assert.Equal(t, []string{"database"}, run.Stages[0].Failed)
}

func TestRun_ParallelFailureDoesNotCancelSiblings(t *testing.T) {
	registry := adapters.NewRegistry()
	sslAdapter := newFakeAdapter(types.ComponentSSL, failAlways)
	feAdapter := newFakeAdapter(types.ComponentFrontend, func(ctx context.Context, c types.Component, attempt int) (*types.DeployOutput, error) {
		time.Sleep(50 * time.Millisecond)
		return &types.DeployOutput{Message: "published"}, nil
	})
	registry.Register(sslAdapter)
	registry.Register(feAdapter)

	e := New(registry, logger.NewSimple(), Options{BaseBackoff: time.Millisecond, MaxWorkers: 4})

	plan := &types.DeploymentPlan{
		DeploymentID: "deploy-test",
		CreatedAt:    time.Now(),
		Stages: []types.Stage{{
			Parallel: true,
			Components: []types.Component{
				execComponent("ssl", types.ComponentSSL, 1),
				execComponent("frontend", types.ComponentFrontend, 1),
			},
		}},
	}

	run, err := e.Run(context.Background(), plan)
	require.Error(t, err)

	// Both members settled despite the ssl failure.
	require.Len(t, run.Results, 2)
	assert.Equal(t, types.DeployFailed, run.Results["ssl"].Status)
	assert.Equal(t, types.DeploySuccess, run.Results["frontend"].Status)
	assert.Equal(t, []string{"ssl"}, run.Failed())
}

func TestRun_AdapterPanicBecomesFailure(t *testing.T) {
	registry := adapters.NewRegistry()
	adapter := newFakeAdapter(types.ComponentMonitoring, func(ctx context.Context, c types.Component, attempt int) (*types.DeployOutput, error) {
		panic("exploded while templating config")
	})
	registry.Register(adapter)

	e := New(registry, logger.NewSimple(), Options{BaseBackoff: time.Millisecond})

	component := execComponent("monitoring", types.ComponentMonitoring, 2)
	run, err := e.Run(context.Background(), singleStagePlan(component))
	require.Error(t, err)

	result := run.Results["monitoring"]
	assert.Equal(t, types.DeployFailed, result.Status)
	assert.Equal(t, 2, result.Attempts)
	assert.Contains(t, result.Error, "panic")
}

func TestRun_MissingAdapterFailsBeforeAnyDeploy(t *testing.T) {
	registry := adapters.NewRegistry()
	dbAdapter := newFakeAdapter(types.ComponentDatabase, succeedAlways)
	registry.Register(dbAdapter)

	e := New(registry, logger.NewSimple(), Options{})

	plan := singleStagePlan(
		execComponent("database", types.ComponentDatabase, 1),
		execComponent("ssl", types.ComponentSSL, 1),
	)

	run, err := e.Run(context.Background(), plan)
	require.Error(t, err)
	assert.Nil(t, run)
	assert.True(t, seppoerrors.IsType(err, seppoerrors.ErrorTypeConfiguration))
	assert.Equal(t, 0, dbAdapter.callCount("database"))
}

func TestRun_CancellationStopsRun(t *testing.T) {
	registry := adapters.NewRegistry()
	adapter := newFakeAdapter(types.ComponentDatabase, func(ctx context.Context, c types.Component, attempt int) (*types.DeployOutput, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	registry.Register(adapter)

	e := New(registry, logger.NewSimple(), Options{BaseBackoff: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	component := execComponent("database", types.ComponentDatabase, 5)
	run, err := e.Run(ctx, singleStagePlan(component))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled) || strings.Contains(err.Error(), "cancel"))

	result := run.Results["database"]
	assert.Equal(t, types.DeployFailed, result.Status)
	// Cancellation does not burn the remaining retry budget.
	assert.Less(t, result.Attempts, 5)
}

func TestRun_InvalidPlanRejected(t *testing.T) {
	registry := adapters.NewRegistry()
	e := New(registry, logger.NewSimple(), Options{})

	plan := &types.DeploymentPlan{} // missing deployment id
	_, err := e.Run(context.Background(), plan)
	require.Error(t, err)
	assert.True(t, seppoerrors.IsType(err, seppoerrors.ErrorTypeConfiguration))
}
