// Package memory implements the file primitives in process memory.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/marmos91/keepfs/pkg/store/content"
)

type file struct {
	data    []byte
	modTime time.Time
}

// MemoryContentStore implements content.ContentStore using in-memory maps.
//
// Directories are tracked explicitly so DirExists and the "parent must
// exist" rules behave like the filesystem backend. Data is copied on every
// read and write, so callers never alias stored buffers.
//
// Thread Safety:
// All operations are protected by a sync.RWMutex.
type MemoryContentStore struct {
	mu    sync.RWMutex
	files map[string]*file
	dirs  map[string]struct{}
}

// NewMemoryContentStore creates an empty in-memory store.
func NewMemoryContentStore(ctx context.Context) (*MemoryContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &MemoryContentStore{
		files: make(map[string]*file),
		dirs:  map[string]struct{}{"": {}},
	}, nil
}

// Paths returns every stored file path, sorted.
func (s *MemoryContentStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (s *MemoryContentStore) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	clean, err := content.CleanPath(p)
	if err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.files[clean]
	return ok, nil
}

func (s *MemoryContentStore) DirExists(ctx context.Context, dir string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	clean, err := content.CleanPath(dir)
	if err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.dirs[clean]
	return ok, nil
}

func (s *MemoryContentStore) MkdirAll(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := content.CleanPath(dir)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for d := clean; d != ""; d = content.Dir(d) {
		if _, isFile := s.files[d]; isFile {
			return fmt.Errorf("mkdir %s: %s is a file: %w", dir, d, content.ErrInvalidPath)
		}
		s.dirs[d] = struct{}{}
	}
	return nil
}

func (s *MemoryContentStore) Create(ctx context.Context, p string) (content.Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := content.CleanPath(p)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireParentLocked(clean); err != nil {
		return nil, err
	}
	if _, ok := s.files[clean]; ok {
		return nil, fmt.Errorf("create %s: %w", p, content.ErrAlreadyExists)
	}
	if _, ok := s.dirs[clean]; ok {
		return nil, fmt.Errorf("create %s: %w", p, content.ErrAlreadyExists)
	}

	// Reserve the name so a second Create fails until this writer resolves.
	placeholder := &file{modTime: time.Now()}
	s.files[clean] = placeholder
	return &writer{store: s, path: clean, reserved: placeholder}, nil
}

func (s *MemoryContentStore) OpenWrite(ctx context.Context, p string) (content.Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := content.CleanPath(p)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireParentLocked(clean); err != nil {
		return nil, err
	}
	if _, ok := s.dirs[clean]; ok {
		return nil, fmt.Errorf("write %s: is a directory: %w", p, content.ErrInvalidPath)
	}
	return &writer{store: s, path: clean}, nil
}

func (s *MemoryContentStore) OpenAppend(ctx context.Context, p string) (content.Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := content.CleanPath(p)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[clean]
	if !ok {
		return nil, fmt.Errorf("append %s: %w", p, content.ErrNotFound)
	}

	w := &writer{store: s, path: clean}
	w.buf.Write(f.data)
	return w, nil
}

func (s *MemoryContentStore) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := content.CleanPath(p)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[clean]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", p, content.ErrNotFound)
	}

	data := make([]byte, len(f.data))
	copy(data, f.data)
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryContentStore) Stat(ctx context.Context, p string) (content.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return content.FileInfo{}, err
	}
	clean, err := content.CleanPath(p)
	if err != nil {
		return content.FileInfo{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[clean]
	if !ok {
		return content.FileInfo{}, fmt.Errorf("stat %s: %w", p, content.ErrNotFound)
	}
	return content.FileInfo{Size: int64(len(f.data)), ModTime: f.modTime}, nil
}

func (s *MemoryContentStore) Move(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from, err := content.CleanPath(src)
	if err != nil {
		return err
	}
	to, err := content.CleanPath(dst)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[from]
	if !ok {
		return fmt.Errorf("move %s: %w", src, content.ErrNotFound)
	}
	if err := s.requireParentLocked(to); err != nil {
		return err
	}
	if _, ok := s.files[to]; ok {
		return fmt.Errorf("move to %s: %w", dst, content.ErrAlreadyExists)
	}
	if _, ok := s.dirs[to]; ok {
		return fmt.Errorf("move to %s: %w", dst, content.ErrAlreadyExists)
	}

	delete(s.files, from)
	s.files[to] = f
	return nil
}

func (s *MemoryContentStore) Remove(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := content.CleanPath(p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[clean]; !ok {
		return fmt.Errorf("remove %s: %w", p, content.ErrNotFound)
	}
	delete(s.files, clean)
	return nil
}

func (s *MemoryContentStore) Close() error {
	return nil
}

func (s *MemoryContentStore) requireParentLocked(p string) error {
	parent := content.Dir(p)
	if _, ok := s.dirs[parent]; !ok {
		return fmt.Errorf("%s: %w", parent, content.ErrDirNotFound)
	}
	return nil
}

// writer buffers everything and swaps it in on Close.
type writer struct {
	store    *MemoryContentStore
	path     string
	buf      bytes.Buffer
	reserved *file
	done     bool
}

func (w *writer) Write(p []byte) (int, error) {
	if w.done {
		return 0, fmt.Errorf("write %s: writer closed", w.path)
	}
	return w.buf.Write(p)
}

func (w *writer) Close() error {
	if w.done {
		return nil
	}
	w.done = true

	data := make([]byte, w.buf.Len())
	copy(data, w.buf.Bytes())

	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.store.files[w.path] = &file{data: data, modTime: time.Now()}
	return nil
}

func (w *writer) Abort() error {
	if w.done {
		return nil
	}
	w.done = true

	if w.reserved != nil {
		w.store.mu.Lock()
		defer w.store.mu.Unlock()
		if w.store.files[w.path] == w.reserved {
			delete(w.store.files, w.path)
		}
	}
	return nil
}
