package config

import (
	"os/exec"
	"strings"

	"github.com/yairfalse/seppo/pkg/types"
)

// ToolDetector checks which external tools the component adapters can
// call on this host. The status command uses it to warn about missing
// tooling before a deployment runs into it.
type ToolDetector struct{}

// NewToolDetector creates a new tool detector
func NewToolDetector() *ToolDetector {
	return &ToolDetector{}
}

// DetectionResult contains the result of one tool check
type DetectionResult struct {
	Tool      string
	Available bool
	Status    string
	Version   string
}

// toolsByType names the external commands each component type shells
// out to during deploy, snapshot or restore.
var toolsByType = map[types.ComponentType][]string{
	types.ComponentDependencies: {"apt-get"},
	types.ComponentDatabase:     {"psql", "pg_dump"},
	types.ComponentFrontend:     {"npm", "rsync"},
	types.ComponentSSL:          {"certbot", "openssl"},
	types.ComponentMonitoring:   {"systemctl"},
}

// DetectAll checks every tool any known component type can need,
// keyed by component type name.
func (d *ToolDetector) DetectAll() map[string][]DetectionResult {
	results := make(map[string][]DetectionResult, len(toolsByType))
	for ctype, tools := range toolsByType {
		for _, tool := range tools {
			results[ctype.String()] = append(results[ctype.String()], d.Detect(tool))
		}
	}
	return results
}

// DetectFor checks only the tools the given components actually use.
func (d *ToolDetector) DetectFor(components []types.Component) []DetectionResult {
	seen := make(map[string]bool)
	var results []DetectionResult
	for i := range components {
		for _, tool := range toolsByType[components[i].Type] {
			if seen[tool] {
				continue
			}
			seen[tool] = true
			results = append(results, d.Detect(tool))
		}
	}
	return results
}

// Detect checks one command and, when cheap, extracts its version.
func (d *ToolDetector) Detect(tool string) DetectionResult {
	result := DetectionResult{Tool: tool}

	path, err := exec.LookPath(tool)
	if err != nil {
		result.Status = tool + " not found in PATH"
		return result
	}
	result.Available = true
	result.Status = path

	if version := probeVersion(tool); version != "" {
		result.Version = version
		result.Status = path + " (" + version + ")"
	}
	return result
}

// probeVersion asks a tool for its version. Tools that do not answer
// --version quickly and quietly are skipped.
func probeVersion(tool string) string {
	switch tool {
	case "psql", "pg_dump", "rsync", "npm", "openssl", "certbot":
	default:
		return ""
	}

	out, err := exec.Command(tool, "--version").Output()
	if err != nil {
		return ""
	}
	line := strings.SplitN(strings.TrimSpace(string(out)), "\n", 2)[0]
	// first numeric-looking field: "psql (PostgreSQL) 16.2" -> 16.2,
	// "rsync version 3.2.7 protocol version 31" -> 3.2.7
	for _, field := range strings.Fields(line) {
		if field[0] >= '0' && field[0] <= '9' {
			return field
		}
	}
	return ""
}
