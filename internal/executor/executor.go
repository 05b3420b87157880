package executor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yairfalse/seppo/internal/adapters"
	seppoerrors "github.com/yairfalse/seppo/internal/errors"
	"github.com/yairfalse/seppo/internal/logger"
	"github.com/yairfalse/seppo/pkg/types"
)

const (
	defaultMaxWorkers  = 4
	defaultBaseBackoff = 1 * time.Second
)

// Options tunes executor behavior
type Options struct {
	// MaxWorkers bounds concurrent deploys inside a parallel stage
	MaxWorkers int
	// BaseBackoff is the wait after the first failed attempt; later waits
	// grow proportionally to the attempt number
	BaseBackoff time.Duration
}

// StageResult aggregates how one stage settled
type StageResult struct {
	Index    int           `json:"index"`
	Parallel bool          `json:"parallel"`
	Duration time.Duration `json:"duration"`
	Failed   []string      `json:"failed,omitempty"`
}

// RunResult is everything the executor learned from one plan run
type RunResult struct {
	Results  map[string]types.DeploymentResult `json:"results"`
	Stages   []StageResult                     `json:"stages"`
	Duration time.Duration                     `json:"duration"`
}

// Failed returns the names of all failed components, sorted
func (r *RunResult) Failed() []string {
	var failed []string
	for name := range r.Results {
		result := r.Results[name]
		if result.Failed() {
			failed = append(failed, name)
		}
	}
	sort.Strings(failed)
	return failed
}

// Succeeded reports whether every settled component succeeded
func (r *RunResult) Succeeded() bool {
	return len(r.Failed()) == 0
}

// Executor runs a deployment plan stage by stage. Stage order is absolute:
// stage N+1 never starts before every member of stage N has settled, and a
// failed stage halts progression entirely.
type Executor struct {
	registry    *adapters.Registry
	logger      logger.Logger
	baseBackoff time.Duration
	workerPool  chan struct{} // limits concurrent deploys within a stage
}

// New creates an Executor backed by the given adapter registry
func New(registry *adapters.Registry, log logger.Logger, opts Options) *Executor {
	maxWorkers := opts.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}
	baseBackoff := opts.BaseBackoff
	if baseBackoff <= 0 {
		baseBackoff = defaultBaseBackoff
	}

	pool := make(chan struct{}, maxWorkers)
	for i := 0; i < maxWorkers; i++ {
		pool <- struct{}{}
	}

	return &Executor{
		registry:    registry,
		logger:      log,
		baseBackoff: baseBackoff,
		workerPool:  pool,
	}
}

// Run executes the plan. Every component that started gets exactly one
// terminal DeploymentResult in the returned RunResult, whether Run ends in
// success, stage failure or cancellation. The error is non-nil when the
// run did not complete all stages.
func (e *Executor) Run(ctx context.Context, plan *types.DeploymentPlan) (*RunResult, error) {
	if err := plan.Validate(); err != nil {
		return nil, seppoerrors.New(seppoerrors.ErrorTypeConfiguration, "", "deployment plan is invalid").
			WithCause(err.Error())
	}

	// Missing adapters are a wiring problem; catch them before any side effects.
	for i := range plan.Stages {
		for j := range plan.Stages[i].Components {
			c := &plan.Stages[i].Components[j]
			if _, ok := e.registry.Get(c.Type); !ok {
				return nil, seppoerrors.New(seppoerrors.ErrorTypeConfiguration, c.Name,
					fmt.Sprintf("no adapter registered for component type %q", c.Type))
			}
		}
	}

	run := &RunResult{Results: make(map[string]types.DeploymentResult, plan.ComponentCount())}
	startTime := time.Now()

	for i := range plan.Stages {
		stage := &plan.Stages[i]
		e.logger.WithFields(map[string]interface{}{
			"stage":      i + 1,
			"of":         len(plan.Stages),
			"components": strings.Join(stage.Names(), ","),
			"parallel":   stage.Parallel,
		}).Info("starting stage")

		stageStart := time.Now()
		settled := e.runStage(ctx, stage)

		stageResult := StageResult{Index: i, Parallel: stage.Parallel, Duration: time.Since(stageStart)}
		for _, result := range settled {
			run.Results[result.ComponentName] = result
			if result.Failed() {
				stageResult.Failed = append(stageResult.Failed, result.ComponentName)
			}
		}
		sort.Strings(stageResult.Failed)
		run.Stages = append(run.Stages, stageResult)

		if err := ctx.Err(); err != nil {
			run.Duration = time.Since(startTime)
			return run, fmt.Errorf("deployment cancelled: %w", err)
		}

		if len(stageResult.Failed) > 0 {
			run.Duration = time.Since(startTime)
			e.logger.WithFields(map[string]interface{}{
				"stage":  i + 1,
				"failed": strings.Join(stageResult.Failed, ","),
			}).Error("stage failed, halting deployment", nil)

			first := run.Results[stageResult.Failed[0]]
			return run, seppoerrors.NewAdapterFailure(first.ComponentName, first.Attempts, first.Error)
		}
	}

	run.Duration = time.Since(startTime)
	e.logger.WithFields(map[string]interface{}{
		"stages":   len(plan.Stages),
		"duration": run.Duration.String(),
	}).Info("all stages completed")
	return run, nil
}

// runStage settles every component of one stage. A single component runs
// on the calling goroutine; a parallel stage fans out through the worker
// pool and waits for all members. One member's failure never cancels its
// siblings.
func (e *Executor) runStage(ctx context.Context, stage *types.Stage) []types.DeploymentResult {
	if len(stage.Components) == 1 {
		return []types.DeploymentResult{e.deployWithRetries(ctx, stage.Components[0])}
	}

	results := make(chan types.DeploymentResult, len(stage.Components))
	var wg sync.WaitGroup

	for i := range stage.Components {
		wg.Add(1)
		go func(component types.Component) {
			defer wg.Done()

			select {
			case <-e.workerPool:
			case <-ctx.Done():
				results <- failedResult(component, 0, 0, ctx.Err())
				return
			}
			defer func() { e.workerPool <- struct{}{} }()

			results <- e.deployWithRetries(ctx, component)
		}(stage.Components[i])
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	settled := make([]types.DeploymentResult, 0, len(stage.Components))
	for result := range results {
		settled = append(settled, result)
	}
	return settled
}

// deployWithRetries drives the attempt loop for one component. Each attempt
// is bounded by the component timeout; a timeout consumes an attempt like
// any other failure. The wait before attempt n+1 grows with n, and the
// final failure returns without waiting. Reported duration spans the whole
// loop including backoff sleeps.
func (e *Executor) deployWithRetries(ctx context.Context, component types.Component) types.DeploymentResult {
	log := e.logger.WithField("component", component.Name)

	adapter, ok := e.registry.Get(component.Type)
	if !ok {
		return failedResult(component, 0, 0, fmt.Errorf("no adapter registered for type %q", component.Type))
	}

	startTime := time.Now()
	var lastErr error

	for attempt := 1; attempt <= component.RetryCount; attempt++ {
		if attempt > 1 {
			backoff := e.baseBackoff * time.Duration(attempt-1)
			log.WithFields(map[string]interface{}{
				"attempt": attempt,
				"of":      component.RetryCount,
				"backoff": backoff.String(),
			}).Info("retrying after backoff")

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return failedResult(component, attempt-1, time.Since(startTime), ctx.Err())
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, component.Timeout)
		output, err := e.deployOnce(attemptCtx, adapter, component)
		cancel()

		if err == nil {
			result := types.DeploymentResult{
				ComponentName: component.Name,
				Status:        types.DeploySuccess,
				Message:       output.Message,
				Details:       output.Details,
				Timestamp:     time.Now(),
				Duration:      time.Since(startTime),
				Attempts:      attempt,
			}
			log.WithFields(map[string]interface{}{
				"attempts": attempt,
				"duration": result.Duration.String(),
			}).Info("component deployed")
			return result
		}

		lastErr = err
		if ctx.Err() != nil {
			// Parent cancelled or deadline hit above us; stop burning attempts.
			return failedResult(component, attempt, time.Since(startTime), lastErr)
		}
		log.WithFields(map[string]interface{}{
			"attempt": attempt,
			"of":      component.RetryCount,
		}).Warn("deploy attempt failed: " + errorMessage(err))
	}

	return failedResult(component, component.RetryCount, time.Since(startTime), lastErr)
}

type attemptOutcome struct {
	output *types.DeployOutput
	err    error
}

// deployOnce runs a single adapter call bounded by ctx. The adapter runs in
// its own goroutine so a panic is contained and a hung call cannot block
// the executor past the attempt deadline.
func (e *Executor) deployOnce(ctx context.Context, adapter adapters.ComponentAdapter, component types.Component) (*types.DeployOutput, error) {
	outcome := make(chan attemptOutcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				outcome <- attemptOutcome{err: fmt.Errorf("adapter panic: %v", r)}
			}
		}()

		output, err := adapter.Deploy(ctx, component)
		outcome <- attemptOutcome{output: output, err: err}
	}()

	select {
	case result := <-outcome:
		if result.err != nil {
			return nil, result.err
		}
		if result.output == nil {
			return &types.DeployOutput{Message: "deployed"}, nil
		}
		return result.output, nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, seppoerrors.NewTimeoutError(component.Name, component.Timeout)
		}
		return nil, ctx.Err()
	}
}

// failedResult builds the terminal FAILED record for a component
func failedResult(component types.Component, attempts int, duration time.Duration, err error) types.DeploymentResult {
	return types.DeploymentResult{
		ComponentName: component.Name,
		Status:        types.DeployFailed,
		Message:       fmt.Sprintf("failed after %d attempts", attempts),
		Timestamp:     time.Now(),
		Duration:      duration,
		Attempts:      attempts,
		Error:         errorMessage(err),
	}
}

// errorMessage keeps result records concise: structured errors contribute
// their one-line message instead of the full rendered guidance block.
func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	if seppoErr, ok := err.(*seppoerrors.SeppoError); ok {
		return seppoErr.Message
	}
	return err.Error()
}
