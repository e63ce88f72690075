// Package filestore implements the managed file store.
//
// Callers register files under short logical names. Per file, the store
// can encrypt the content at rest, compress it, and keep a hash witness to
// detect out-of-band modification. Encryption and compression are mutually
// exclusive.
//
// State lives in three places:
//   - the file bytes, in a content.ContentStore
//   - one metadata Entry per name, in a kv.Store keyed by name
//   - the index, a newline-separated list of names stored next to the files
//
// Open rebuilds the in-memory name→Entry mapping from the index and the
// metadata store; every mutation writes through to both before returning.
//
// Lifecycle:
//
//	store, err := filestore.Open(ctx, files, meta, filestore.Options{BaseDir: "data"})
//	if err != nil { ... }
//	defer store.Close(ctx)
//
//	err = store.CreateFile(ctx, "notes", []byte("hello"), filestore.CreateOptions{Hash: true})
//	content, err := store.ReadFile(ctx, "notes")
package filestore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/keepfs/internal/logger"
	"github.com/marmos91/keepfs/pkg/codec/compression"
	"github.com/marmos91/keepfs/pkg/codec/encryption"
	"github.com/marmos91/keepfs/pkg/codec/integrity"
	"github.com/marmos91/keepfs/pkg/store/content"
	"github.com/marmos91/keepfs/pkg/store/kv"
)

const (
	// DefaultExtension is appended to names created without an extension.
	DefaultExtension = ".txt"

	// DefaultIndexPath is where the name index lives inside the content store.
	DefaultIndexPath = "fileNames.save"

	// DefaultKeyPrefix namespaces entries inside the metadata store.
	DefaultKeyPrefix = "entry:"
)

// Options configures a Store. Zero values select the defaults.
type Options struct {
	// BaseDir is the directory used when CreateFile gets no directory.
	// It is created by Open if missing. Empty means the content store root.
	BaseDir string

	// DefaultExtension is used when CreateFile gets no extension (default ".txt").
	DefaultExtension string

	// IndexPath is the path of the name index (default "fileNames.save").
	IndexPath string

	// KeyPrefix is prepended to names to form metadata keys (default "entry:").
	KeyPrefix string

	// Cipher is the suite used for newly encrypted files (default AES-CTR).
	Cipher encryption.Cipher

	// Compression is the algorithm used for newly compressed files (default gzip).
	Compression compression.Algorithm

	// Hash is the digest used for new witnesses (default SHA-256).
	Hash integrity.Algorithm

	// Metrics receives operation outcomes. nil disables collection.
	Metrics Metrics
}

func (o *Options) applyDefaults() error {
	if o.DefaultExtension == "" {
		o.DefaultExtension = DefaultExtension
	}
	if o.IndexPath == "" {
		o.IndexPath = DefaultIndexPath
	}
	if o.KeyPrefix == "" {
		o.KeyPrefix = DefaultKeyPrefix
	}
	if o.Cipher == "" {
		o.Cipher = encryption.Default
	}
	if o.Compression == "" {
		o.Compression = compression.Default
	}
	if o.Hash == "" {
		o.Hash = integrity.Default
	}
	if o.Metrics == nil {
		o.Metrics = noopMetrics{}
	}

	var err error
	if o.BaseDir, err = content.CleanPath(o.BaseDir); err != nil {
		return fmt.Errorf("invalid base directory %q: %w", o.BaseDir, err)
	}
	if o.IndexPath, err = content.CleanPath(o.IndexPath); err != nil || o.IndexPath == "" {
		return fmt.Errorf("invalid index path %q", o.IndexPath)
	}
	return nil
}

// Store is the managed file store.
//
// Thread Safety:
// Operations are serialized by an internal mutex. The store assumes it is
// the only writer of its files and metadata; changes made behind its back
// are what the hash witness exists to detect.
type Store struct {
	mu sync.Mutex

	files content.ContentStore
	meta  kv.Store
	opts  Options

	entries map[string]*Entry
	index   *index

	closed bool
}

// Open loads the index and re-fetches every listed entry from the metadata
// store.
//
// Names whose metadata record is missing or unreadable are dropped with a
// warning and the index is rewritten without them. Any other metadata
// failure aborts Open.
//
// Parameters:
//   - ctx: Context for cancellation
//   - files: Backend holding the file bytes and the index
//   - meta: Backend holding the metadata entries
//   - opts: Store options
//
// Returns:
//   - *Store: Store ready for use
//   - error: *StoreError with ErrStorageFailure or ErrInvalidArgument
func Open(ctx context.Context, files content.ContentStore, meta kv.Store, opts Options) (*Store, error) {
	if files == nil || meta == nil {
		return nil, newError(ErrInvalidArgument, "", "content and metadata stores are required")
	}
	if err := opts.applyDefaults(); err != nil {
		return nil, &StoreError{Code: ErrInvalidArgument, Message: "invalid options", Err: err}
	}

	s := &Store{
		files:   files,
		meta:    meta,
		opts:    opts,
		entries: make(map[string]*Entry),
		index:   newIndex(opts.IndexPath),
	}

	// ========================================================================
	// Step 1: Make sure the base and index directories exist
	// ========================================================================

	for _, dir := range []string{opts.BaseDir, content.Dir(opts.IndexPath)} {
		if err := files.MkdirAll(ctx, dir); err != nil {
			return nil, storageFailure("", "create directory "+dir, err)
		}
	}

	// ========================================================================
	// Step 2: Load the index
	// ========================================================================

	names, err := s.index.load(ctx, files)
	if err != nil {
		return nil, storageFailure("", "load index", err)
	}

	// ========================================================================
	// Step 3: Re-fetch every entry from the metadata store
	// ========================================================================

	dropped := 0
	for _, name := range names {
		data, err := meta.Get(ctx, s.metaKey(name))
		if err != nil {
			if errors.Is(err, kv.ErrKeyNotFound) {
				logger.Warn("Index lists %q but the metadata store has no entry, dropping it", name)
				dropped++
				continue
			}
			return nil, storageFailure(name, "load entry", err)
		}

		entry, err := decodeEntry(data)
		if err != nil {
			logger.Warn("Metadata entry for %q is unreadable, dropping it: %v", name, err)
			dropped++
			continue
		}
		entry.Name = name

		s.entries[name] = entry
		s.index.add(name)
	}

	if dropped > 0 {
		if err := s.index.save(ctx, files); err != nil {
			return nil, storageFailure("", "rewrite index", err)
		}
	}

	s.opts.Metrics.SetRegisteredFiles(len(s.entries))
	logger.Info("File store opened: %d files registered (base=%q, index=%q)", len(s.entries), opts.BaseDir, opts.IndexPath)
	return s, nil
}

// Close flushes the index. The store must not be used afterwards; the
// content and metadata backends are left open for the caller to close.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.index.save(ctx, s.files); err != nil {
		return storageFailure("", "flush index", err)
	}
	logger.Debug("File store closed")
	return nil
}

// Has reports whether name is registered.
func (s *Store) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[name]
	return ok
}

// List returns the registered names in index order.
func (s *Store) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.index.names()
}

// Entry returns a copy of the metadata entry for name.
func (s *Store) Entry(name string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// EntryInfo is the key-free view of an entry returned by Stat.
type EntryInfo struct {
	Name        string
	Path        string
	Mode        WriteMode
	Hashed      bool
	Hash        string
	Algorithm   string
	Size        int64
	ModTime     time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	FileMissing bool
}

// Stat describes a registered file without reading its content.
func (s *Store) Stat(ctx context.Context, name string) (info *EntryInfo, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.lookup(name)
	if err != nil {
		return nil, err
	}

	info = &EntryInfo{
		Name:      entry.Name,
		Path:      entry.Path,
		Mode:      entry.Mode(),
		Hashed:    entry.Hashed(),
		Hash:      entry.Hash,
		CreatedAt: entry.CreatedAt,
		UpdatedAt: entry.UpdatedAt,
	}
	switch entry.Mode() {
	case ModeEncrypted:
		info.Algorithm = string(entry.Cipher)
	case ModeCompressed:
		info.Algorithm = string(entry.Compression)
	}

	fi, err := s.files.Stat(ctx, entry.Path)
	switch content.OutcomeOf(err) {
	case content.OutcomeOK:
		info.Size = fi.Size
		info.ModTime = fi.ModTime
	case content.OutcomeMissing:
		info.FileMissing = true
	default:
		return nil, storageFailure(name, "stat file", err)
	}
	return info, nil
}

// lookup returns the live entry for name. Callers hold s.mu.
func (s *Store) lookup(name string) (*Entry, error) {
	if s.closed {
		return nil, newError(ErrStorageFailure, name, "store is closed")
	}
	entry, ok := s.entries[name]
	if !ok {
		return nil, newError(ErrNotRegistered, name, "no file registered under this name")
	}
	return entry, nil
}

func (s *Store) metaKey(name string) string {
	return s.opts.KeyPrefix + name
}

// persist writes entry through to the metadata store.
func (s *Store) persist(ctx context.Context, entry *Entry) error {
	data, err := encodeEntry(entry)
	if err != nil {
		return storageFailure(entry.Name, "encode entry", err)
	}
	if err := s.meta.Set(ctx, s.metaKey(entry.Name), data); err != nil {
		return storageFailure(entry.Name, "persist entry", err)
	}
	return nil
}

// observe records the outcome of an operation. Use with a named error:
//
//	defer s.observe(OpRead, time.Now(), &err)
func (s *Store) observe(op string, start time.Time, err *error) {
	code := CodeOf(*err)
	s.opts.Metrics.ObserveOperation(op, code, time.Since(start))
	if code == ErrFileCorrupted {
		s.opts.Metrics.RecordCorruption(op)
	}
}
