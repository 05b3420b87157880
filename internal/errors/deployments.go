package errors

import (
	"fmt"
	"time"
)

// NewDependencyCycleError creates a configuration error for an unschedulable graph
func NewDependencyCycleError(unresolved []string) *SeppoError {
	return New(ErrorTypeConfiguration, "", "dependency graph contains a cycle").
		WithCause(fmt.Sprintf("components %v can never reach zero unmet dependencies", unresolved)).
		WithSolutions(
			"Review the depends_on entries of the listed components",
			"Remove or reverse one edge so the graph becomes acyclic",
			"Run: seppo deploy --dry-run to inspect the computed stages",
		).
		WithVerify("seppo deploy --dry-run").
		WithHelp("seppo help deploy")
}

// NewDuplicateComponentError creates a configuration error for repeated names
func NewDuplicateComponentError(name string) *SeppoError {
	return New(ErrorTypeConfiguration, name, fmt.Sprintf("component %q is defined more than once", name)).
		WithSolutions(
			"Give every component in the configuration a unique name",
		).
		WithVerify("seppo status").
		WithHelp("seppo help deploy")
}

// NewAdapterFailure creates an adapter error after all attempts are exhausted
func NewAdapterFailure(component string, attempts int, cause string) *SeppoError {
	return New(ErrorTypeAdapter, component, fmt.Sprintf("deployment of %s failed after %d attempts", component, attempts)).
		WithCause(cause).
		WithSolutions(
			"Check the component logs for the underlying command failure",
			"Increase retry_count or timeout for this component if the failure is transient",
			fmt.Sprintf("Re-run only this component: seppo deploy --components %s", component),
		).
		WithHelp("seppo help deploy")
}

// NewTimeoutError creates a timeout error for a single deploy attempt
func NewTimeoutError(component string, timeout time.Duration) *SeppoError {
	return New(ErrorTypeTimeout, component, fmt.Sprintf("%s did not finish within %s", component, timeout)).
		WithSolutions(
			"Increase the component timeout in the configuration",
			"Check the host for resource exhaustion or a hung process",
		).
		WithVerify("seppo status").
		WithHelp("seppo help deploy")
}

// NewSnapshotIntegrityError creates an integrity error for a checksum mismatch
func NewSnapshotIntegrityError(snapshotID, expected, actual string) *SeppoError {
	return New(ErrorTypeSnapshotIntegrity, "", fmt.Sprintf("snapshot %s failed checksum verification", snapshotID)).
		WithCause(fmt.Sprintf("expected sha256 %s, archive has %s", expected, actual)).
		WithSolutions(
			"The archive was modified or truncated after capture; do not restore from it",
			"Pick an older snapshot: seppo snapshots list",
			"If a remote replica exists, fetch it: seppo snapshots fetch "+snapshotID,
		).
		WithVerify("seppo snapshots list").
		WithHelp("seppo help rollback")
}

// NewSnapshotNotFoundError creates a storage error for a missing snapshot
func NewSnapshotNotFoundError(snapshotID string) *SeppoError {
	return New(ErrorTypeStorage, "", fmt.Sprintf("snapshot %s not found", snapshotID)).
		WithSolutions(
			"List available snapshots: seppo snapshots list",
			"Check the storage path in the configuration",
		).
		WithVerify("seppo snapshots list").
		WithHelp("seppo help snapshots")
}

// NewVerificationFailure creates a verification error when checks fall below threshold
func NewVerificationFailure(rate, threshold float64, failed []string) *SeppoError {
	return New(ErrorTypeVerification, "", fmt.Sprintf("verification success rate %.0f%% is below the %.0f%% threshold", rate*100, threshold*100)).
		WithCause(fmt.Sprintf("failing checks: %v", failed)).
		WithSolutions(
			"Inspect the failing services before retrying the deployment",
			"Run the checks on their own: seppo verify",
		).
		WithVerify("seppo verify").
		WithHelp("seppo help verify")
}

// NewStorageError creates a storage error for snapshot or history persistence
func NewStorageError(operation, path string, cause error) *SeppoError {
	e := New(ErrorTypeStorage, "", fmt.Sprintf("storage %s failed for %s", operation, path)).
		WithSolutions(
			"Check that the storage directory exists and is writable",
			"Check free disk space on the storage volume",
		).
		WithHelp("seppo help snapshots")
	if cause != nil {
		e = e.WithCause(cause.Error())
	}
	return e
}

// NewRemoteError creates a network error for remote replication endpoints
func NewRemoteError(endpoint string, cause error) *SeppoError {
	e := New(ErrorTypeNetwork, "", fmt.Sprintf("remote storage %s is unreachable", endpoint)).
		WithSolutions(
			"Check credentials for the remote backend",
			"Check network connectivity to the endpoint",
			"Local snapshots keep working; replication resumes on the next run",
		).
		WithHelp("seppo help snapshots")
	if cause != nil {
		e = e.WithCause(cause.Error())
	}
	return e
}
