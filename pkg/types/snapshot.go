package types

import (
	"errors"
	"strings"
	"time"
)

// StateKind names one category of system state a snapshot can carry.
// Restore always walks the kinds in the order returned by StateKinds.
type StateKind string

const (
	// StateConfig covers application and service configuration files
	StateConfig StateKind = "config"
	// StateDatabase covers a logical dump of the application databases
	StateDatabase StateKind = "database"
	// StateFrontend covers the published frontend assets
	StateFrontend StateKind = "frontend"
	// StateSSL covers certificates and private keys
	StateSSL StateKind = "ssl"
	// StateMonitoring covers metric and alerting configuration
	StateMonitoring StateKind = "monitoring"
)

// IsValid checks if the StateKind is one of the known kinds
func (k StateKind) IsValid() bool {
	switch k {
	case StateConfig, StateDatabase, StateFrontend, StateSSL, StateMonitoring:
		return true
	default:
		return false
	}
}

// String returns the string representation of StateKind
func (k StateKind) String() string {
	return string(k)
}

// StateKinds returns every state kind in canonical restore order.
// Configuration restores first so later restores run against the right
// settings, and monitoring restores last so alerts reflect the final state.
func StateKinds() []StateKind {
	return []StateKind{StateConfig, StateDatabase, StateFrontend, StateSSL, StateMonitoring}
}

// Snapshot is one index record describing a captured state bundle.
// Records are immutable once written; only explicit retention cleanup
// removes them.
type Snapshot struct {
	ID           string            `json:"id"`
	DeploymentID string            `json:"deployment_id"`
	Timestamp    time.Time         `json:"timestamp"`
	Description  string            `json:"description,omitempty"`
	Components   []string          `json:"components"`
	SizeBytes    int64             `json:"size_bytes"`
	Checksum     string            `json:"checksum"`
	ArchivePath  string            `json:"archive_path"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Validate checks if the Snapshot has all required fields
func (s *Snapshot) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("snapshot ID is required")
	}
	if s.Timestamp.IsZero() {
		return errors.New("snapshot timestamp is required")
	}
	if strings.TrimSpace(s.Checksum) == "" {
		return errors.New("snapshot checksum is required")
	}
	if strings.TrimSpace(s.ArchivePath) == "" {
		return errors.New("snapshot archive path is required")
	}
	if len(s.Components) == 0 {
		return errors.New("snapshot must list at least one component")
	}
	return nil
}

// HasComponent reports whether the named component state was captured
func (s *Snapshot) HasComponent(name string) bool {
	for _, c := range s.Components {
		if c == name {
			return true
		}
	}
	return false
}

// Age returns how old the snapshot is relative to now
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.Timestamp)
}

// GetMetadata returns the value of a specific metadata key
func (s *Snapshot) GetMetadata(key string) string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata[key]
}

// SetMetadata sets a metadata key-value pair
func (s *Snapshot) SetMetadata(key, value string) {
	if s.Metadata == nil {
		s.Metadata = make(map[string]string)
	}
	s.Metadata[key] = value
}

// String returns a string representation of the snapshot
func (s *Snapshot) String() string {
	return "snapshot " + s.ID + " (" + s.Timestamp.Format(time.RFC3339) + ", " + strings.Join(s.Components, ",") + ")"
}
