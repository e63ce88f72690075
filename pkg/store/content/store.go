// Package content defines the file primitives the file store is built on.
//
// A ContentStore is a flat namespace of slash-separated paths relative to
// the backend root ("docs/notes.txt"). Implementations translate their native
// failures into the sentinel errors of this package so callers can tell
// "operation succeeded", "target already exists" and "target missing" apart
// without inspecting raw I/O errors.
package content

import (
	"context"
	"io"
	"path"
	"strings"
	"time"
)

// ContentStore is the set of filesystem primitives required by the file store.
//
// Write-side primitives return a Writer. Bytes only become visible once the
// writer is closed; Abort discards everything written through it and leaves
// the target as it was before the primitive was called.
//
// Thread Safety:
// Implementations must be safe for concurrent use, but no ordering is
// guaranteed between concurrent writers to the same path.
type ContentStore interface {
	// Exists reports whether a file exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// DirExists reports whether dir exists. The root ("") always exists.
	// Object storage backends have no real directories and always return true.
	DirExists(ctx context.Context, dir string) (bool, error)

	// MkdirAll creates dir and any missing parents.
	MkdirAll(ctx context.Context, dir string) error

	// Create opens a new file for writing.
	//
	// Returns:
	//   - ErrAlreadyExists if a file is already present at path
	//   - ErrDirNotFound if the parent directory does not exist
	Create(ctx context.Context, path string) (Writer, error)

	// OpenWrite opens path for a full rewrite. The previous content, if any,
	// stays readable until the writer is closed.
	//
	// Returns ErrDirNotFound if the parent directory does not exist.
	OpenWrite(ctx context.Context, path string) (Writer, error)

	// OpenAppend opens an existing file for a trailing write.
	//
	// Returns ErrNotFound if the file does not exist.
	OpenAppend(ctx context.Context, path string) (Writer, error)

	// Open opens a file for reading.
	//
	// Returns ErrNotFound if the file does not exist.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Stat returns size and modification time of a file.
	//
	// Returns ErrNotFound if the file does not exist.
	Stat(ctx context.Context, path string) (FileInfo, error)

	// Move relocates a file.
	//
	// Returns:
	//   - ErrNotFound if src does not exist
	//   - ErrAlreadyExists if dst is occupied
	//   - ErrDirNotFound if the parent directory of dst does not exist
	Move(ctx context.Context, src, dst string) error

	// Remove deletes a file.
	//
	// Returns ErrNotFound if the file does not exist.
	Remove(ctx context.Context, path string) error

	// Close releases backend resources.
	Close() error
}

// Writer is a pending write. Close commits it, Abort rolls it back.
// Calling either after the other is a no-op that returns nil.
type Writer interface {
	io.Writer

	// Close flushes and commits the written bytes.
	Close() error

	// Abort discards the written bytes.
	Abort() error
}

// FileInfo describes a stored file.
type FileInfo struct {
	Size    int64
	ModTime time.Time
}

// CleanPath normalizes a caller-supplied path into the slash-separated,
// root-relative form used by every backend.
//
// Leading slashes are stripped so absolute paths land under the backend
// root, and ".." never climbs above it. Paths containing a NUL byte are
// rejected with ErrInvalidPath.
func CleanPath(p string) (string, error) {
	if strings.ContainsRune(p, 0) {
		return "", ErrInvalidPath
	}

	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/"), nil
}

// Join joins path elements and cleans the result with CleanPath.
func Join(elem ...string) (string, error) {
	return CleanPath(path.Join(elem...))
}

// Dir returns the parent directory of p ("" for the root).
func Dir(p string) string {
	d := path.Dir(p)
	if d == "." || d == "/" {
		return ""
	}
	return d
}
