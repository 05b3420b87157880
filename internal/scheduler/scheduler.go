package scheduler

import (
	"fmt"
	"sort"
	"time"

	seppoerrors "github.com/yairfalse/seppo/internal/errors"
	"github.com/yairfalse/seppo/internal/logger"
	"github.com/yairfalse/seppo/pkg/types"
)

// Scheduler turns a flat component list into an ordered stage plan.
// It only reads the dependency graph; running the stages is the
// executor's job.
type Scheduler struct {
	logger logger.Logger
}

// New creates a Scheduler
func New(log logger.Logger) *Scheduler {
	return &Scheduler{logger: log}
}

// Plan computes the staged execution order for the given components.
// Disabled components are dropped before planning. Dependencies on names
// outside the enabled set are logged and ignored. A graph where some
// components can never reach zero unmet dependencies is rejected.
func (s *Scheduler) Plan(deploymentID string, components []types.Component) (*types.DeploymentPlan, error) {
	enabled := make([]types.Component, 0, len(components))
	for i := range components {
		if !components[i].Enabled {
			s.logger.WithField("component", components[i].Name).Debug("skipping disabled component")
			continue
		}
		if err := components[i].Validate(); err != nil {
			return nil, seppoerrors.New(seppoerrors.ErrorTypeConfiguration, components[i].Name, "invalid component configuration").
				WithCause(err.Error()).
				WithHelp("seppo help deploy")
		}
		enabled = append(enabled, components[i])
	}

	plan := &types.DeploymentPlan{
		DeploymentID: deploymentID,
		CreatedAt:    time.Now(),
	}
	if len(enabled) == 0 {
		return plan, nil
	}

	byName := make(map[string]*types.Component, len(enabled))
	for i := range enabled {
		if _, exists := byName[enabled[i].Name]; exists {
			return nil, seppoerrors.NewDuplicateComponentError(enabled[i].Name)
		}
		byName[enabled[i].Name] = &enabled[i]
	}

	// In-degree counts only edges whose target is in the enabled set.
	inDegree := make(map[string]int, len(enabled))
	dependents := make(map[string][]string, len(enabled))
	for i := range enabled {
		name := enabled[i].Name
		inDegree[name] = 0
		for _, dep := range enabled[i].DependsOn {
			if _, known := byName[dep]; !known {
				s.logger.WithFields(map[string]interface{}{
					"component":  name,
					"dependency": dep,
				}).Warn("ignoring dependency on component outside this run")
				continue
			}
			inDegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	scheduled := 0
	for scheduled < len(enabled) {
		ready := readyComponents(byName, inDegree)
		if len(ready) == 0 {
			var unresolved []string
			for name, degree := range inDegree {
				if degree > 0 {
					unresolved = append(unresolved, name)
				}
			}
			sort.Strings(unresolved)
			return nil, seppoerrors.NewDependencyCycleError(unresolved)
		}

		plan.Stages = append(plan.Stages, buildStages(ready)...)

		for _, c := range ready {
			inDegree[c.Name] = -1 // mark scheduled
			for _, dependent := range dependents[c.Name] {
				inDegree[dependent]--
			}
			scheduled++
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"deployment": deploymentID,
		"components": scheduled,
		"stages":     len(plan.Stages),
	}).Info("deployment plan computed")

	return plan, nil
}

// readyComponents returns every unscheduled component with no unmet
// dependencies, ordered by priority then name so plans are deterministic.
func readyComponents(byName map[string]*types.Component, inDegree map[string]int) []types.Component {
	var ready []types.Component
	for name, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, *byName[name])
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		if ready[i].Priority != ready[j].Priority {
			return ready[i].Priority < ready[j].Priority
		}
		return ready[i].Name < ready[j].Name
	})
	return ready
}

// buildStages splits one ready wave into stages: components that must run
// alone each get their own stage, and the parallel-safe remainder shares a
// single concurrent stage at the end of the wave.
func buildStages(ready []types.Component) []types.Stage {
	var stages []types.Stage
	var parallel []types.Component
	for i := range ready {
		if ready[i].ParallelSafe {
			parallel = append(parallel, ready[i])
			continue
		}
		stages = append(stages, types.Stage{Components: []types.Component{ready[i]}})
	}
	if len(parallel) > 0 {
		stages = append(stages, types.Stage{Components: parallel, Parallel: true})
	}
	return stages
}

// Validate runs plan computation without keeping the result, as a cheap
// configuration check for dry runs.
func (s *Scheduler) Validate(components []types.Component) error {
	_, err := s.Plan(fmt.Sprintf("validate-%d", time.Now().Unix()), components)
	return err
}
