package types

import (
	"fmt"
	"strings"
	"time"
)

// ComponentType identifies which deployment subsystem a component drives
type ComponentType string

const (
	// ComponentDependencies installs system and runtime packages
	ComponentDependencies ComponentType = "dependencies"
	// ComponentDatabase provisions roles, databases and schema migrations
	ComponentDatabase ComponentType = "database"
	// ComponentFrontend builds and publishes the web frontend
	ComponentFrontend ComponentType = "frontend"
	// ComponentSSL issues and installs TLS certificates
	ComponentSSL ComponentType = "ssl"
	// ComponentMonitoring configures metric collection and alerting
	ComponentMonitoring ComponentType = "monitoring"
)

// IsValid checks if the ComponentType is one of the known types
func (ct ComponentType) IsValid() bool {
	switch ct {
	case ComponentDependencies, ComponentDatabase, ComponentFrontend, ComponentSSL, ComponentMonitoring:
		return true
	default:
		return false
	}
}

// String returns the string representation of ComponentType
func (ct ComponentType) String() string {
	return string(ct)
}

// Component describes one deployable unit of the target system.
// Components are loaded from configuration before a run starts and are
// immutable while the run is in flight.
type Component struct {
	Name         string        `json:"name" yaml:"name"`
	Type         ComponentType `json:"type" yaml:"type"`
	DependsOn    []string      `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	ParallelSafe bool          `json:"parallel_safe" yaml:"parallel_safe"`
	Priority     int           `json:"priority" yaml:"priority"`
	Timeout      time.Duration `json:"timeout" yaml:"timeout"`
	RetryCount   int           `json:"retry_count" yaml:"retry_count"`
	Enabled      bool          `json:"enabled" yaml:"enabled"`
}

// Validate checks if the Component has all required fields and valid values
func (c *Component) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("component name is required")
	}
	if !c.Type.IsValid() {
		return fmt.Errorf("component %s has invalid type %q", c.Name, c.Type)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("component %s timeout must be positive", c.Name)
	}
	if c.RetryCount < 1 {
		return fmt.Errorf("component %s retry count must be at least 1", c.Name)
	}
	for _, dep := range c.DependsOn {
		if strings.TrimSpace(dep) == "" {
			return fmt.Errorf("component %s has an empty dependency name", c.Name)
		}
		if dep == c.Name {
			return fmt.Errorf("component %s depends on itself", c.Name)
		}
	}
	return nil
}

// DependsOnComponent reports whether the component declares a dependency on name
func (c *Component) DependsOnComponent(name string) bool {
	for _, dep := range c.DependsOn {
		if dep == name {
			return true
		}
	}
	return false
}

// DeployOutput carries what an adapter reports back on a successful deploy
type DeployOutput struct {
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}
