package snapshot

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/yairfalse/seppo/pkg/types"
)

// Runner executes external commands. The exec-backed implementation
// lives in the adapters package; tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DirHandler snapshots a directory tree on disk. Capture copies the
// source tree into the state directory; Restore replaces the source
// tree with the captured copy.
type DirHandler struct {
	kind      types.StateKind
	sourceDir string
}

func NewDirHandler(kind types.StateKind, sourceDir string) *DirHandler {
	return &DirHandler{kind: kind, sourceDir: sourceDir}
}

func (h *DirHandler) Kind() types.StateKind { return h.kind }

func (h *DirHandler) Capture(ctx context.Context, dir string) error {
	info, err := os.Stat(h.sourceDir)
	if err != nil {
		return fmt.Errorf("source directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", h.sourceDir)
	}
	return copyTree(ctx, h.sourceDir, dir)
}

func (h *DirHandler) Restore(ctx context.Context, dir string) error {
	if err := os.RemoveAll(h.sourceDir); err != nil {
		return fmt.Errorf("failed to clear %s: %w", h.sourceDir, err)
	}
	if err := os.MkdirAll(h.sourceDir, 0755); err != nil {
		return err
	}
	return copyTree(ctx, dir, h.sourceDir)
}

// DatabaseHandler captures a logical database dump by running the
// configured dump command and replays it with the restore command.
// The dump command's stdout is written to dump.sql inside the state
// directory; the restore command receives the dump path as its final
// argument.
type DatabaseHandler struct {
	runner     Runner
	dumpCmd    []string
	restoreCmd []string
}

func NewDatabaseHandler(runner Runner, dumpCmd, restoreCmd []string) *DatabaseHandler {
	return &DatabaseHandler{runner: runner, dumpCmd: dumpCmd, restoreCmd: restoreCmd}
}

func (h *DatabaseHandler) Kind() types.StateKind { return types.StateDatabase }

func (h *DatabaseHandler) Capture(ctx context.Context, dir string) error {
	if len(h.dumpCmd) == 0 {
		return fmt.Errorf("no dump command configured")
	}
	out, err := h.runner.Run(ctx, h.dumpCmd[0], h.dumpCmd[1:]...)
	if err != nil {
		return fmt.Errorf("dump command failed: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "dump.sql"), out, 0600)
}

func (h *DatabaseHandler) Restore(ctx context.Context, dir string) error {
	if len(h.restoreCmd) == 0 {
		return fmt.Errorf("no restore command configured")
	}
	dumpPath := filepath.Join(dir, "dump.sql")
	if _, err := os.Stat(dumpPath); err != nil {
		return fmt.Errorf("dump file missing: %w", err)
	}
	args := append(append([]string{}, h.restoreCmd[1:]...), dumpPath)
	if _, err := h.runner.Run(ctx, h.restoreCmd[0], args...); err != nil {
		return fmt.Errorf("restore command failed: %w", err)
	}
	return nil
}

// copyTree copies every directory and regular file under src into dst,
// preserving relative paths and file modes. Symlinks and other special
// files are skipped.
func copyTree(ctx context.Context, src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}
		target := filepath.Join(dst, relPath)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm())
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
