// Package fs implements the file primitives on a local directory tree.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/marmos91/keepfs/pkg/store/content"
)

// FSContentStore implements content.ContentStore rooted at a local directory.
//
// Full rewrites go to a temporary sibling file which is renamed over the
// target on Close, so an interrupted write never leaves a half-written file
// in place of the previous content.
//
// Thread Safety:
// The underlying filesystem operations are thread-safe at the OS level, but
// concurrent writers to the same path race on the final rename.
type FSContentStore struct {
	basePath string
}

// FSContentStoreConfig is decoded from the "content.filesystem" config section.
type FSContentStoreConfig struct {
	// Path is the root directory of the store
	Path string `mapstructure:"path" validate:"required"`
}

// NewFSContentStore creates a filesystem-backed content store.
//
// The base directory is created with permissions 0755 if it doesn't exist.
//
// Parameters:
//   - ctx: Context for cancellation
//   - basePath: Root directory for managed files
//
// Returns:
//   - *FSContentStore: Initialized store
//   - error: Returns error if directory creation fails or context is cancelled
func NewFSContentStore(ctx context.Context, basePath string) (*FSContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if basePath == "" {
		return nil, fmt.Errorf("base path is required")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base path: %w", err)
	}

	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSContentStore{basePath: abs}, nil
}

// BasePath returns the absolute root directory of the store.
func (s *FSContentStore) BasePath() string {
	return s.basePath
}

// LocalPath maps a store path to its location on the local filesystem.
func (s *FSContentStore) LocalPath(p string) (string, error) {
	clean, err := content.CleanPath(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, filepath.FromSlash(clean)), nil
}

func (s *FSContentStore) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	local, err := s.LocalPath(p)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(local)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", p, err)
	}
	return !info.IsDir(), nil
}

func (s *FSContentStore) DirExists(ctx context.Context, dir string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	local, err := s.LocalPath(dir)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(local)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	return info.IsDir(), nil
}

func (s *FSContentStore) MkdirAll(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	local, err := s.LocalPath(dir)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(local, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// Create opens path with O_EXCL so an existing file is never clobbered.
func (s *FSContentStore) Create(ctx context.Context, p string) (content.Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	local, err := s.LocalPath(p)
	if err != nil {
		return nil, err
	}
	if err := s.requireParent(local, p); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(local, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create %s: %w", p, content.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to create %s: %w", p, err)
	}

	return &createWriter{f: f}, nil
}

// OpenWrite writes into a temporary sibling which replaces path on Close.
func (s *FSContentStore) OpenWrite(ctx context.Context, p string) (content.Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	local, err := s.LocalPath(p)
	if err != nil {
		return nil, err
	}
	if err := s.requireParent(local, p); err != nil {
		return nil, err
	}

	if info, err := os.Stat(local); err == nil && info.IsDir() {
		return nil, fmt.Errorf("write %s: is a directory: %w", p, content.ErrInvalidPath)
	}

	tmp := filepath.Join(filepath.Dir(local), "."+filepath.Base(local)+"."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open temporary file for %s: %w", p, err)
	}

	return &replaceWriter{f: f, target: local}, nil
}

// OpenAppend remembers the current size so Abort can truncate back to it.
func (s *FSContentStore) OpenAppend(ctx context.Context, p string) (content.Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	local, err := s.LocalPath(p)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(local, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("append %s: %w", p, content.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open %s for append: %w", p, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", p, err)
	}

	return &appendWriter{f: f, size: info.Size()}, nil
}

func (s *FSContentStore) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	local, err := s.LocalPath(p)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(local)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", p, content.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open %s: %w", p, err)
	}
	return f, nil
}

func (s *FSContentStore) Stat(ctx context.Context, p string) (content.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return content.FileInfo{}, err
	}

	local, err := s.LocalPath(p)
	if err != nil {
		return content.FileInfo{}, err
	}

	info, err := os.Stat(local)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return content.FileInfo{}, fmt.Errorf("stat %s: %w", p, content.ErrNotFound)
		}
		return content.FileInfo{}, fmt.Errorf("failed to stat %s: %w", p, err)
	}
	if info.IsDir() {
		return content.FileInfo{}, fmt.Errorf("stat %s: is a directory: %w", p, content.ErrNotFound)
	}

	return content.FileInfo{Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Move renames src to dst. Existence of dst is checked first because
// os.Rename silently replaces files on most platforms.
func (s *FSContentStore) Move(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from, err := s.LocalPath(src)
	if err != nil {
		return err
	}
	to, err := s.LocalPath(dst)
	if err != nil {
		return err
	}

	if _, err := os.Stat(from); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("move %s: %w", src, content.ErrNotFound)
	}
	if err := s.requireParent(to, dst); err != nil {
		return err
	}
	if _, err := os.Lstat(to); err == nil {
		return fmt.Errorf("move to %s: %w", dst, content.ErrAlreadyExists)
	}

	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", src, dst, err)
	}
	return nil
}

func (s *FSContentStore) Remove(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	local, err := s.LocalPath(p)
	if err != nil {
		return err
	}

	if err := os.Remove(local); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, content.ErrNotFound)
		}
		return fmt.Errorf("failed to remove %s: %w", p, err)
	}
	return nil
}

// Close is a no-op; the store holds no open handles between calls.
func (s *FSContentStore) Close() error {
	return nil
}

func (s *FSContentStore) requireParent(local, p string) error {
	info, err := os.Stat(filepath.Dir(local))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", content.Dir(p), content.ErrDirNotFound)
		}
		return fmt.Errorf("failed to stat parent of %s: %w", p, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", content.Dir(p), content.ErrDirNotFound)
	}
	return nil
}
