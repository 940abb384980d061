package docstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FS stores documents as files under a root directory.
type FS struct {
	root string
}

// NewFS returns a Store rooted at root. root is made absolute so that later changes of working directory do not move the store.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("docstore: resolve root %q: %w", root, err)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute root directory.
func (s *FS) Root() string {
	return s.root
}

func (s *FS) Read(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := s.resolve(id)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", notFound(id)
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Write replaces the document, creating parent directories as needed. An existing file keeps its permissions.
func (s *FS) Write(ctx context.Context, id string, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.resolve(id)
	if err != nil {
		return err
	}
	perm := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return fmt.Errorf("docstore: %s is a directory", id)
		}
		perm = info.Mode().Perm()
	}
	if err := ensureParentDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), perm)
}

// resolve maps id to a path under root, refusing ids that escape it.
func (s *FS) resolve(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	abs := filepath.Clean(filepath.Join(s.root, filepath.FromSlash(id)))
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return "", fmt.Errorf("docstore: document id %q resolves to the store root", id)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("docstore: document id %q escapes %s", id, s.root)
	}
	return abs, nil
}

func ensureParentDir(path string) error {
	if d := filepath.Dir(path); d != "." && d != "" {
		return os.MkdirAll(d, 0o777)
	}
	return nil
}
