package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strings"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeConfiguration     ErrorType = "Configuration"
	ErrorTypeAdapter           ErrorType = "Adapter"
	ErrorTypeTimeout           ErrorType = "Timeout"
	ErrorTypeSnapshotIntegrity ErrorType = "SnapshotIntegrity"
	ErrorTypeVerification      ErrorType = "Verification"
	ErrorTypeStorage           ErrorType = "Storage"
	ErrorTypeNetwork           ErrorType = "Network"
)

// SeppoError represents a user-friendly error with actionable guidance
type SeppoError struct {
	Type        ErrorType
	Component   string
	Message     string
	Cause       string
	Solutions   []string
	Verify      string
	Help        string
	Environment string
}

// Error implements the error interface
func (e *SeppoError) Error() string {
	var sb strings.Builder

	// Main error message
	sb.WriteString(fmt.Sprintf("\nError: %s\n", e.Message))

	// Cause if available
	if e.Cause != "" {
		sb.WriteString(fmt.Sprintf("Cause: %s\n", e.Cause))
	}

	// Environment context
	if e.Environment != "" {
		sb.WriteString(fmt.Sprintf("Environment: %s\n", e.Environment))
	}

	// Solutions
	if len(e.Solutions) > 0 {
		sb.WriteString("\nSolutions:\n")
		for _, solution := range e.Solutions {
			sb.WriteString(fmt.Sprintf("  %s\n", solution))
		}
	}

	// Verification step
	if e.Verify != "" {
		sb.WriteString(fmt.Sprintf("\nVerify: %s\n", e.Verify))
	}

	// Help command
	if e.Help != "" {
		sb.WriteString(fmt.Sprintf("Help: %s\n", e.Help))
	}

	return sb.String()
}

// Format implements fmt.Formatter for custom formatting
func (e *SeppoError) Format(f fmt.State, verb rune) {
	switch verb {
	case 's':
		fmt.Fprintf(f, "%s", e.Error())
	case 'v':
		if f.Flag('+') {
			// Verbose mode includes type and component
			fmt.Fprintf(f, "[%s/%s] %s", e.Type, e.Component, e.Error())
		} else {
			fmt.Fprintf(f, "%s", e.Error())
		}
	}
}

// New creates a new SeppoError
func New(errType ErrorType, component, message string) *SeppoError {
	return &SeppoError{
		Type:        errType,
		Component:   component,
		Message:     message,
		Environment: detectEnvironment(),
	}
}

// WithCause adds cause information
func (e *SeppoError) WithCause(cause string) *SeppoError {
	e.Cause = cause
	return e
}

// WithSolutions adds solution steps
func (e *SeppoError) WithSolutions(solutions ...string) *SeppoError {
	e.Solutions = append(e.Solutions, solutions...)
	return e
}

// WithVerify adds verification command
func (e *SeppoError) WithVerify(verify string) *SeppoError {
	e.Verify = verify
	return e
}

// WithHelp adds help command
func (e *SeppoError) WithHelp(help string) *SeppoError {
	e.Help = help
	return e
}

// IsType checks whether err is a SeppoError of the given type
func IsType(err error, errType ErrorType) bool {
	seppoErr, ok := err.(*SeppoError)
	return ok && seppoErr.Type == errType
}

// detectEnvironment detects the current environment
func detectEnvironment() string {
	// Check for CI/CD environment variables
	ciVars := []string{"CI", "CONTINUOUS_INTEGRATION", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_HOME"}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return "CI/CD detected"
		}
	}

	// Check for container environment
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return "Container environment detected"
	}

	// Default to development workstation
	return "Development workstation detected"
}

// IsUserError checks if error requires user action
func IsUserError(err error) bool {
	_, ok := err.(*SeppoError)
	return ok
}

// GetExitCode maps an error to the process exit code: 0 for nil,
// 130 when the run was interrupted, 1 for everything else.
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}
	if stderrors.Is(err, context.Canceled) {
		return 130
	}
	return 1
}
