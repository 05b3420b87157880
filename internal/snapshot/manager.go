package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/yairfalse/seppo/internal/errors"
	"github.com/yairfalse/seppo/internal/logger"
	"github.com/yairfalse/seppo/pkg/types"
)

// Replicator copies snapshot archives to and from remote storage.
type Replicator interface {
	Upload(ctx context.Context, snapshotID, archivePath string) error
	Fetch(ctx context.Context, snapshotID, destPath string) error
}

// Manager creates and serves state snapshots. Capture failures for
// individual components are tolerated; those components are left out
// of the snapshot record.
type Manager struct {
	store      *Store
	handlers   *HandlerRegistry
	logger     logger.Logger
	replicator Replicator
}

func NewManager(store *Store, handlers *HandlerRegistry, log logger.Logger) *Manager {
	return &Manager{store: store, handlers: handlers, logger: log}
}

// NewManagerWithReplicator builds a manager that mirrors every new
// archive to remote storage and pulls missing archives back on demand.
func NewManagerWithReplicator(store *Store, handlers *HandlerRegistry, log logger.Logger, r Replicator) *Manager {
	m := NewManager(store, handlers, log)
	m.replicator = r
	return m
}

// Create captures the requested state kinds into a new snapshot archive.
// Kinds with no registered handler and kinds whose capture fails are
// logged and omitted; creation fails only when nothing could be captured.
// An empty kinds slice means every registered kind.
func (m *Manager) Create(ctx context.Context, deploymentID, description string, kinds []types.StateKind) (*types.Snapshot, error) {
	if len(kinds) == 0 {
		kinds = m.handlers.Kinds()
	}

	scratch, err := os.MkdirTemp("", "seppo-snapshot-")
	if err != nil {
		return nil, errors.NewStorageError("create", "temp directory", err)
	}
	defer os.RemoveAll(scratch)

	id := newSnapshotID()
	timestamp := time.Now().UTC()

	var captured []string
	for _, kind := range orderKinds(kinds) {
		handler, ok := m.handlers.Get(kind)
		if !ok {
			m.logger.Warn(fmt.Sprintf("no handler registered for %s state, skipping", kind))
			continue
		}
		stateDir := filepath.Join(scratch, kind.String())
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			return nil, errors.NewStorageError("create", stateDir, err)
		}
		if err := handler.Capture(ctx, stateDir); err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("snapshot cancelled: %w", ctx.Err())
			}
			m.logger.WithFields(map[string]interface{}{
				"component": kind.String(),
				"snapshot":  id,
			}).Warn(fmt.Sprintf("state capture failed, omitting component: %v", err))
			os.RemoveAll(stateDir)
			continue
		}
		captured = append(captured, kind.String())
	}

	if len(captured) == 0 {
		return nil, errors.New(errors.ErrorTypeStorage, "snapshot", "no component state could be captured").
			WithSolutions(
				"Check that state handlers are configured for the components you want to capture",
				"Inspect the capture warnings above for per-component failures",
			).
			WithHelp("seppo create-snapshot --help")
	}

	if err := writeManifest(scratch, id, deploymentID, timestamp, captured); err != nil {
		return nil, err
	}

	archivePath := filepath.Join(m.store.ArchivesDir(), id+".tar.gz")
	if err := CreateArchive(scratch, archivePath); err != nil {
		return nil, errors.NewStorageError("archive", archivePath, err)
	}

	checksum, err := ChecksumFile(archivePath)
	if err != nil {
		os.Remove(archivePath)
		return nil, errors.NewStorageError("checksum", archivePath, err)
	}
	info, err := os.Stat(archivePath)
	if err != nil {
		os.Remove(archivePath)
		return nil, errors.NewStorageError("stat", archivePath, err)
	}

	snapshot := &types.Snapshot{
		ID:           id,
		DeploymentID: deploymentID,
		Timestamp:    timestamp,
		Description:  description,
		Components:   captured,
		SizeBytes:    info.Size(),
		Checksum:     checksum,
		ArchivePath:  archivePath,
	}
	if err := m.store.Save(snapshot); err != nil {
		os.Remove(archivePath)
		return nil, err
	}

	m.logger.WithFields(map[string]interface{}{
		"snapshot":   id,
		"components": len(captured),
		"size_bytes": info.Size(),
	}).Info("snapshot created")

	if m.replicator != nil {
		if err := m.replicator.Upload(ctx, id, archivePath); err != nil {
			m.logger.Error("failed to replicate snapshot archive", err)
		}
	}

	return snapshot, nil
}

// Get loads one snapshot record by ID.
func (m *Manager) Get(id string) (*types.Snapshot, error) {
	return m.store.Load(id)
}

// List returns all snapshot records, newest first.
func (m *Manager) List() ([]types.Snapshot, error) {
	return m.store.List()
}

// Delete removes a snapshot record and its archive.
func (m *Manager) Delete(id string) error {
	return m.store.Delete(id)
}

// Prune deletes all but the newest keep snapshots and returns the IDs
// that were removed.
func (m *Manager) Prune(keep int) ([]string, error) {
	if keep < 0 {
		keep = 0
	}
	snapshots, err := m.store.List()
	if err != nil {
		return nil, err
	}
	if len(snapshots) <= keep {
		return nil, nil
	}

	var deleted []string
	for _, snapshot := range snapshots[keep:] {
		if err := m.store.Delete(snapshot.ID); err != nil {
			m.logger.Error(fmt.Sprintf("failed to prune snapshot %s", snapshot.ID), err)
			continue
		}
		deleted = append(deleted, snapshot.ID)
	}
	if len(deleted) > 0 {
		m.logger.WithField("pruned", len(deleted)).Info("old snapshots removed")
	}
	return deleted, nil
}

// Verify recomputes the archive checksum and compares it against the
// recorded value.
func (m *Manager) Verify(snapshot *types.Snapshot) error {
	actual, err := ChecksumFile(snapshot.ArchivePath)
	if err != nil {
		return errors.NewStorageError("verify", snapshot.ArchivePath, err)
	}
	if actual != snapshot.Checksum {
		return errors.NewSnapshotIntegrityError(snapshot.ID, snapshot.Checksum, actual)
	}
	return nil
}

// PrepareArchive makes sure the snapshot archive is present locally and
// intact, fetching it from remote storage when a replicator is
// configured. It returns the local archive path.
func (m *Manager) PrepareArchive(ctx context.Context, snapshot *types.Snapshot) (string, error) {
	if _, err := os.Stat(snapshot.ArchivePath); err != nil {
		if !os.IsNotExist(err) {
			return "", errors.NewStorageError("stat", snapshot.ArchivePath, err)
		}
		if m.replicator == nil {
			return "", errors.NewStorageError("fetch", snapshot.ArchivePath, err)
		}
		m.logger.WithField("snapshot", snapshot.ID).Info("archive missing locally, fetching from remote storage")
		if err := m.replicator.Fetch(ctx, snapshot.ID, snapshot.ArchivePath); err != nil {
			return "", err
		}
	}
	if err := m.Verify(snapshot); err != nil {
		return "", err
	}
	return snapshot.ArchivePath, nil
}

type manifest struct {
	SnapshotID   string    `yaml:"snapshot_id"`
	DeploymentID string    `yaml:"deployment_id,omitempty"`
	CreatedAt    time.Time `yaml:"created_at"`
	Hostname     string    `yaml:"hostname"`
	Components   []string  `yaml:"components"`
}

func writeManifest(dir, id, deploymentID string, createdAt time.Time, components []string) error {
	hostname, _ := os.Hostname()
	data, err := yaml.Marshal(manifest{
		SnapshotID:   id,
		DeploymentID: deploymentID,
		CreatedAt:    createdAt,
		Hostname:     hostname,
		Components:   components,
	})
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "manifest.yaml"), data, 0644)
}

// orderKinds returns the requested kinds in canonical restore order,
// dropping duplicates and unknown values.
func orderKinds(kinds []types.StateKind) []types.StateKind {
	requested := make(map[types.StateKind]bool, len(kinds))
	for _, k := range kinds {
		requested[k] = true
	}
	var ordered []types.StateKind
	for _, k := range types.StateKinds() {
		if requested[k] {
			ordered = append(ordered, k)
		}
	}
	return ordered
}

func newSnapshotID() string {
	return "snap-" + uuid.New().String()[:8]
}
