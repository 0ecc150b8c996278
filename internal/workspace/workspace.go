// internal/workspace/workspace.go

// Package workspace provides file operations confined to a working-directory
// root. Every path supplied by a caller is resolved relative to the root and
// rejected if it would escape it.
package workspace

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when the target path does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrWrongType is returned when list targets a non-directory.
	ErrWrongType = errors.New("not a directory")
	// ErrUnknownOp is returned for an unrecognized operation name.
	ErrUnknownOp = errors.New("unknown operation")
	// ErrOutsideRoot is returned when a path would escape the workspace root.
	ErrOutsideRoot = errors.New("path escapes workspace root")
)

// Workspace performs root-confined file operations.
type Workspace struct {
	root   string
	logger *zap.Logger
}

// New creates the workspace, ensuring the root directory exists.
func New(root string, logger *zap.Logger) (*Workspace, error) {
	if root == "" {
		return nil, fmt.Errorf("workspace root must not be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace root: %w", err)
	}
	return &Workspace{root: abs, logger: logger.Named("workspace")}, nil
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string { return w.root }

// resolve joins a caller-supplied relative path onto the root and verifies the
// result stays inside it.
func (w *Workspace) resolve(rel string) (string, error) {
	joined := filepath.Join(w.root, rel)
	cleaned := filepath.Clean(joined)
	if cleaned != w.root && !strings.HasPrefix(cleaned, w.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	return cleaned, nil
}

// Read returns the contents of a file.
func (w *Workspace) Read(rel string) (string, error) {
	path, err := w.resolve(rel)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return "", fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return string(data), nil
}

// Write creates or replaces a file, creating parent directories as needed.
func (w *Workspace) Write(rel, content string) error {
	path, err := w.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directories for %s: %w", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	w.logger.Debug("File written", zap.String("path", rel))
	return nil
}

// Delete removes a file.
func (w *Workspace) Delete(rel string) error {
	path, err := w.resolve(rel)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, rel)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete %s: %w", rel, err)
	}
	w.logger.Debug("File deleted", zap.String("path", rel))
	return nil
}

// List walks a directory recursively and returns all contained paths relative
// to the workspace root.
func (w *Workspace) List(rel string) ([]string, error) {
	path, err := w.resolve(rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", rel, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrWrongType, rel)
	}

	files := make([]string, 0)
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == path {
			return nil
		}
		relToRoot, err := filepath.Rel(w.root, p)
		if err != nil {
			return err
		}
		files = append(files, relToRoot)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", rel, err)
	}
	return files, nil
}

// Save streams an uploaded file into the workspace and returns the number of
// bytes written plus the stored path relative to the root.
func (w *Workspace) Save(filename string, r io.Reader) (int64, string, error) {
	path, err := w.resolve(filename)
	if err != nil {
		return 0, "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, "", fmt.Errorf("failed to create parent directories for %s: %w", filename, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, "", fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer f.Close()

	n, err := io.Copy(f, r)
	if err != nil {
		return n, "", fmt.Errorf("failed to save %s: %w", filename, err)
	}

	relToRoot, err := filepath.Rel(w.root, path)
	if err != nil {
		return n, "", err
	}
	w.logger.Info("File uploaded", zap.String("path", relToRoot), zap.Int64("size", n))
	return n, relToRoot, nil
}
