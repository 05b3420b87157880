package errors

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisplayError(t *testing.T) {
	// Save original stderr
	oldStderr := os.Stderr

	// Test various error types
	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{
			name: "Snapshot Integrity Error",
			err:  NewSnapshotIntegrityError("snap-a1b2", "deadbeef", "badc0ffe"),
			contains: []string{
				"snap-a1b2 failed checksum verification",
				"expected sha256 deadbeef",
				"seppo snapshots list",
			},
		},
		{
			name: "Adapter Failure",
			err: NewAdapterFailure("database", 3, "psql exited with status 1").
				WithSolutions("Check postgres service status"),
			contains: []string{
				"deployment of database failed after 3 attempts",
				"psql exited with status 1",
				"Check postgres service status",
			},
		},
		{
			name: "Configuration Error",
			err: New(ErrorTypeConfiguration, "frontend", "invalid component configuration").
				WithCause("timeout must be positive").
				WithSolutions("Fix the frontend timeout in config.yaml"),
			contains: []string{
				"invalid component configuration",
				"timeout must be positive",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Create pipe to capture stderr
			r, w, _ := os.Pipe()
			os.Stderr = w

			// Display the error
			DisplayError(tt.err)

			// Close writer and read output
			w.Close()
			buf := &bytes.Buffer{}
			buf.ReadFrom(r)
			output := buf.String()

			// Restore stderr
			os.Stderr = oldStderr

			// Check that expected strings are present
			for _, expected := range tt.contains {
				assert.Contains(t, output, expected, "Output should contain: %s", expected)
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "No Error",
			err:      nil,
			expected: 0,
		},
		{
			name:     "Configuration Error",
			err:      NewDependencyCycleError([]string{"a", "b"}),
			expected: 1,
		},
		{
			name:     "Timeout Error",
			err:      NewTimeoutError("frontend", 2*time.Minute),
			expected: 1,
		},
		{
			name:     "Generic Error",
			err:      fmt.Errorf("some generic error"),
			expected: 1,
		},
		{
			name:     "Interrupted Run",
			err:      fmt.Errorf("deployment stopped: %w", context.Canceled),
			expected: 130,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exitCode := GetExitCode(tt.err)
			assert.Equal(t, tt.expected, exitCode)
		})
	}
}

func TestFormatErrorWithContext(t *testing.T) {
	err := NewVerificationFailure(0.6, 0.8, []string{"frontend http", "monitoring service"}).
		WithSolutions("Check nginx status")

	context := map[string]string{
		"Deployment": "deploy-42",
		"Host":       "web-1",
		"CI":         "true",
	}

	output := FormatErrorWithContext(err, context)

	// Check plain text formatting (no colors)
	assert.Contains(t, output, "verification success rate 60% is below the 80% threshold")
	assert.Contains(t, output, "Type: Verification/")
	assert.Contains(t, output, "Context:")
	assert.Contains(t, output, "Deployment: deploy-42")
	assert.Contains(t, output, "1. Inspect the failing services before retrying the deployment")
}

func TestIsType(t *testing.T) {
	err := NewTimeoutError("ssl", time.Minute)
	assert.True(t, IsType(err, ErrorTypeTimeout))
	assert.False(t, IsType(err, ErrorTypeAdapter))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrorTypeTimeout))
}
