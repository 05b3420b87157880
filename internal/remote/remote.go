// Package remote replicates snapshot archives to an off-host object
// store so a rollback can recover even when the local archive is lost.
package remote

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/yairfalse/seppo/internal/errors"
	"github.com/yairfalse/seppo/internal/logger"
)

// Backend is one remote object store. Put uploads a local file under a
// key; Get downloads a key into a local file.
type Backend interface {
	Name() string
	Put(ctx context.Context, key, localPath string) error
	Get(ctx context.Context, key, localPath string) error
}

// Location is a parsed remote storage URL.
type Location struct {
	Backend   string
	Bucket    string // s3/gcs bucket, azure storage account
	Container string // azure only
	Prefix    string
	Region    string // s3 only, from ?region=
}

// ParseLocation parses a remote storage URL and extracts the backend
// type and its configuration.
func ParseLocation(rawURL string) (*Location, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid remote URL: %w", err)
	}

	switch u.Scheme {
	case "s3":
		// s3://bucket-name/prefix?region=eu-north-1
		if u.Host == "" {
			return nil, fmt.Errorf("s3 URL %q has no bucket", rawURL)
		}
		return &Location{
			Backend: "s3",
			Bucket:  u.Host,
			Prefix:  strings.TrimPrefix(u.Path, "/"),
			Region:  u.Query().Get("region"),
		}, nil

	case "gs", "gcs":
		// gs://bucket-name/prefix
		if u.Host == "" {
			return nil, fmt.Errorf("gcs URL %q has no bucket", rawURL)
		}
		return &Location{
			Backend: "gcs",
			Bucket:  u.Host,
			Prefix:  strings.TrimPrefix(u.Path, "/"),
		}, nil

	case "azurerm":
		// azurerm://storageaccount/container/prefix
		if u.Host == "" {
			return nil, fmt.Errorf("azure URL %q has no storage account", rawURL)
		}
		parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
		if parts[0] == "" {
			return nil, fmt.Errorf("azure URL %q has no container", rawURL)
		}
		loc := &Location{
			Backend:   "azurerm",
			Bucket:    u.Host,
			Container: parts[0],
		}
		if len(parts) == 2 {
			loc.Prefix = parts[1]
		}
		return loc, nil

	default:
		return nil, fmt.Errorf("unsupported remote backend scheme %q (supported: s3, gs, azurerm)", u.Scheme)
	}
}

// Replicator mirrors snapshot archives into one backend. It satisfies
// the snapshot manager's Replicator interface.
type Replicator struct {
	backend Backend
	prefix  string
	logger  logger.Logger
}

// New builds a replicator for the given remote URL, dialing the
// matching backend.
func New(ctx context.Context, rawURL string, log logger.Logger) (*Replicator, error) {
	loc, err := ParseLocation(rawURL)
	if err != nil {
		return nil, errors.New(errors.ErrorTypeConfiguration, "remote", err.Error()).
			WithSolutions(
				"Use s3://bucket/prefix, gs://bucket/prefix or azurerm://account/container/prefix",
			).
			WithHelp("seppo help snapshots")
	}

	var backend Backend
	switch loc.Backend {
	case "s3":
		backend, err = NewS3Backend(ctx, loc.Bucket, loc.Region)
	case "gcs":
		backend, err = NewGCSBackend(ctx, loc.Bucket)
	case "azurerm":
		backend, err = NewAzureBackend(loc.Bucket, loc.Container)
	}
	if err != nil {
		return nil, err
	}

	return &Replicator{backend: backend, prefix: loc.Prefix, logger: log}, nil
}

// NewWithBackend wires a replicator onto an already-built backend.
func NewWithBackend(backend Backend, prefix string, log logger.Logger) *Replicator {
	return &Replicator{backend: backend, prefix: prefix, logger: log}
}

// Upload mirrors one archive to the backend.
func (r *Replicator) Upload(ctx context.Context, snapshotID, archivePath string) error {
	key := r.Key(snapshotID)
	if err := r.backend.Put(ctx, key, archivePath); err != nil {
		return errors.NewRemoteError(r.backend.Name(), err)
	}
	r.logger.WithFields(map[string]interface{}{
		"snapshot": snapshotID,
		"backend":  r.backend.Name(),
		"key":      key,
	}).Info("snapshot archive replicated")
	return nil
}

// Fetch downloads one archive from the backend into destPath.
func (r *Replicator) Fetch(ctx context.Context, snapshotID, destPath string) error {
	key := r.Key(snapshotID)
	if err := r.backend.Get(ctx, key, destPath); err != nil {
		return errors.NewRemoteError(r.backend.Name(), err)
	}
	r.logger.WithFields(map[string]interface{}{
		"snapshot": snapshotID,
		"backend":  r.backend.Name(),
	}).Info("snapshot archive fetched from remote storage")
	return nil
}

// Key returns the object key an archive is stored under.
func (r *Replicator) Key(snapshotID string) string {
	return path.Join(r.prefix, snapshotID+".tar.gz")
}
