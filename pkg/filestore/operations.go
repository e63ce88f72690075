package filestore

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/marmos91/keepfs/internal/logger"
	"github.com/marmos91/keepfs/pkg/store/content"
)

// CreateOptions selects where a new file lives and which features it uses.
type CreateOptions struct {
	// Directory holding the file. Empty means Options.BaseDir. It must exist.
	Directory string

	// Extension appended to the name, with or without the leading dot.
	// Empty means Options.DefaultExtension.
	Extension string

	// Encrypt stores the content through the cipher.
	Encrypt bool

	// Hash keeps a witness of the content for tamper detection.
	Hash bool

	// Compress stores the content through the compressor.
	Compress bool
}

// CreateFile registers name and writes its initial content.
//
// The file is placed at Directory/name+Extension. On any failure after the
// file was created it is removed again, so a failed create leaves neither a
// file nor a registration behind.
//
// Parameters:
//   - ctx: Context for cancellation
//   - name: Logical name, unique across the store
//   - data: Initial content
//   - opts: Placement and feature flags
//
// Returns:
//   - error: nil on success, otherwise a *StoreError:
//   - ErrInvalidArgument: bad name or extension, or Encrypt and Compress both set
//   - ErrInvalidPath: directory does not exist or is malformed
//   - ErrFileAlreadyExists: name already registered or target path occupied
//   - ErrStorageFailure: backend failure
func (s *Store) CreateFile(ctx context.Context, name string, data []byte, opts CreateOptions) (err error) {
	defer s.observe(OpCreate, time.Now(), &err)

	if err := ctx.Err(); err != nil {
		return storageFailure(name, "create", err)
	}
	if err := validateName(name); err != nil {
		return err
	}
	if opts.Encrypt && opts.Compress {
		return newError(ErrInvalidArgument, name, "encryption and compression are mutually exclusive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return newError(ErrStorageFailure, name, "store is closed")
	}
	if _, exists := s.entries[name]; exists {
		return newError(ErrFileAlreadyExists, name, "name is already registered")
	}

	// ========================================================================
	// Step 1: Resolve and check the target path
	// ========================================================================

	target, err := s.resolveTarget(ctx, name, opts)
	if err != nil {
		return err
	}

	// ========================================================================
	// Step 2: Write the initial content
	// ========================================================================

	now := time.Now().UTC()
	entry := &Entry{
		Name:      name,
		Path:      target,
		CreatedAt: now,
		UpdatedAt: now,
	}
	mode := ModePlain
	switch {
	case opts.Encrypt:
		mode = ModeEncrypted
		entry.Cipher = s.opts.Cipher
	case opts.Compress:
		mode = ModeCompressed
		entry.Compressed = true
		entry.Compression = s.opts.Compression
	}

	w, err := s.files.Create(ctx, target)
	if err != nil {
		switch content.OutcomeOf(err) {
		case content.OutcomeExists:
			return newError(ErrFileAlreadyExists, name, "%s already exists", target)
		case content.OutcomeMissing:
			return newError(ErrInvalidPath, name, "directory %s does not exist", content.Dir(target))
		default:
			return storageFailure(name, "create file", err)
		}
	}

	key, err := s.encode(w, mode, entry, data)
	if err != nil {
		return storageFailure(name, "write file", err)
	}
	if mode == ModeEncrypted {
		entry.Key = key
	}

	if opts.Hash {
		entry.HashAlgorithm = s.opts.Hash
		if entry.Hash, err = witness(entry, data); err != nil {
			_ = w.Abort()
			return err
		}
	}

	// ========================================================================
	// Step 3: Persist the entry, then commit the file
	// ========================================================================

	if err := s.persist(ctx, entry); err != nil {
		_ = w.Abort()
		return err
	}
	if err := w.Close(); err != nil {
		_ = s.meta.Delete(ctx, s.metaKey(name))
		if content.OutcomeOf(err) == content.OutcomeExists {
			return newError(ErrFileAlreadyExists, name, "%s already exists", target)
		}
		s.removeQuietly(ctx, target)
		return storageFailure(name, "commit file", err)
	}

	// ========================================================================
	// Step 4: Register the name
	// ========================================================================

	s.entries[name] = entry
	s.index.add(name)
	if err := s.index.save(ctx, s.files); err != nil {
		delete(s.entries, name)
		s.index.remove(name)
		_ = s.meta.Delete(ctx, s.metaKey(name))
		s.removeQuietly(ctx, target)
		return storageFailure(name, "save index", err)
	}
	s.opts.Metrics.SetRegisteredFiles(len(s.entries))

	logger.Debug("Created %s at %s (mode=%s, hashed=%t)", name, target, entry.Mode(), entry.Hashed())
	return nil
}

// ReadFile returns the plaintext content of name.
//
// A witness mismatch is a soft failure: the content is returned together
// with an ErrFileCorrupted error so the caller can decide whether to trust
// it. A file whose bytes no longer decode returns ErrFileCorrupted and no
// content.
//
// Returns:
//   - []byte: The content (also on a witness mismatch)
//   - error: nil, or ErrNotRegistered, ErrFileDoesNotExist, ErrFileCorrupted, ErrStorageFailure
func (s *Store) ReadFile(ctx context.Context, name string) (data []byte, err error) {
	defer s.observe(OpRead, time.Now(), &err)

	if err := ctx.Err(); err != nil {
		return nil, storageFailure(name, "read", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.lookup(name)
	if err != nil {
		return nil, err
	}

	plain, err := s.readPlain(ctx, entry)
	if err != nil {
		fileCorrupted(OpRead, err)
		return nil, err
	}

	if err := verify(entry, plain); err != nil {
		fileCorrupted(OpRead, err)
		return plain, err
	}
	return plain, nil
}

// UpdateFile replaces the whole content of name.
//
// The witness is re-derived when hashing is active. Encrypted files are
// rewritten under a fresh key and IV.
//
// Returns:
//   - error: nil, or ErrNotRegistered, ErrFileDoesNotExist, ErrStorageFailure
func (s *Store) UpdateFile(ctx context.Context, name string, data []byte) (err error) {
	defer s.observe(OpUpdate, time.Now(), &err)

	if err := ctx.Err(); err != nil {
		return storageFailure(name, "update", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.lookup(name)
	if err != nil {
		return err
	}
	if err := s.requireFile(ctx, entry); err != nil {
		return err
	}

	if err := s.rewrite(ctx, entry, data); err != nil {
		return err
	}

	logger.Debug("Updated %s (%d bytes)", name, len(data))
	return nil
}

// AppendFile adds data to the end of name.
//
// When hashing is active the current content is verified first and a
// mismatch refuses the append, leaving the file untouched. Encrypted files
// and compressors that cannot append a stream are decoded, concatenated
// and rewritten; encrypted rewrites rotate the key. Plain files and
// appendable compressors get a genuine trailing write.
//
// Returns:
//   - error: nil, or ErrNotRegistered, ErrFileDoesNotExist, ErrFileCorrupted, ErrStorageFailure
func (s *Store) AppendFile(ctx context.Context, name string, data []byte) (err error) {
	defer s.observe(OpAppend, time.Now(), &err)

	if err := ctx.Err(); err != nil {
		return storageFailure(name, "append", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.lookup(name)
	if err != nil {
		return err
	}
	if err := s.requireFile(ctx, entry); err != nil {
		return err
	}

	mode := entry.Mode()
	trailing := mode == ModePlain || (mode == ModeCompressed && entry.Compression.Appendable())

	// ========================================================================
	// Step 1: Load and verify the current content when it is needed
	// ========================================================================

	var current []byte
	if entry.Hashed() || !trailing {
		if current, err = s.readPlain(ctx, entry); err != nil {
			fileCorrupted(OpAppend, err)
			return err
		}
		if err := verify(entry, current); err != nil {
			fileCorrupted(OpAppend, err)
			return err
		}
	}

	// ========================================================================
	// Step 2: Rewrite or append
	// ========================================================================

	if !trailing {
		full := make([]byte, 0, len(current)+len(data))
		full = append(append(full, current...), data...)
		if err := s.rewrite(ctx, entry, full); err != nil {
			return err
		}
		logger.Debug("Appended %d bytes to %s by rewrite (mode=%s)", len(data), name, mode)
		return nil
	}

	w, err := s.files.OpenAppend(ctx, entry.Path)
	if err != nil {
		if content.OutcomeOf(err) == content.OutcomeMissing {
			return newError(ErrFileDoesNotExist, name, "backing file %s is gone", entry.Path)
		}
		return storageFailure(name, "open for append", err)
	}
	if _, err := s.encode(w, mode, entry, data); err != nil {
		return storageFailure(name, "append", err)
	}

	next := entry.Clone()
	changed := false
	if next.Hashed() {
		full := make([]byte, 0, len(current)+len(data))
		full = append(append(full, current...), data...)
		sum, err := witness(next, full)
		if err != nil {
			_ = w.Abort()
			return err
		}
		changed = next.SetHash(sum)
	}
	if err := s.commit(ctx, w, entry, next, changed); err != nil {
		return err
	}

	logger.Debug("Appended %d bytes to %s", len(data), name)
	return nil
}

// rewrite replaces the file with data through the entry's write mode,
// rotating the key and re-deriving the witness as needed. The new bytes
// and the updated entry land together through commit: if either fails the
// file and the stored entry keep their previous state.
func (s *Store) rewrite(ctx context.Context, entry *Entry, data []byte) error {
	w, err := s.files.OpenWrite(ctx, entry.Path)
	if err != nil {
		if content.OutcomeOf(err) == content.OutcomeMissing {
			return newError(ErrFileDoesNotExist, entry.Name, "directory of %s is gone", entry.Path)
		}
		return storageFailure(entry.Name, "open for write", err)
	}

	key, err := s.encode(w, entry.Mode(), entry, data)
	if err != nil {
		return storageFailure(entry.Name, "write file", err)
	}

	next := entry.Clone()
	changed := false
	if next.Encrypted() {
		changed = next.SetKey(key) || changed
	}
	if next.Hashed() {
		sum, err := witness(next, data)
		if err != nil {
			_ = w.Abort()
			return err
		}
		changed = next.SetHash(sum) || changed
	}

	return s.commit(ctx, w, entry, next, changed)
}

// ChangeFilePath moves the file of name into newDirectory, keeping its
// file name. An empty newDirectory means Options.BaseDir.
//
// Returns:
//   - error: nil, or ErrNotRegistered, ErrInvalidPath, ErrFileAlreadyExists,
//     ErrFileDoesNotExist, ErrStorageFailure
func (s *Store) ChangeFilePath(ctx context.Context, name, newDirectory string) (err error) {
	defer s.observe(OpMove, time.Now(), &err)

	if err := ctx.Err(); err != nil {
		return storageFailure(name, "move", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.lookup(name)
	if err != nil {
		return err
	}

	dir, err := s.resolveDir(ctx, name, newDirectory)
	if err != nil {
		return err
	}
	target, err := content.Join(dir, path.Base(entry.Path))
	if err != nil {
		return &StoreError{Code: ErrInvalidPath, Name: name, Message: "invalid target path", Err: err}
	}
	if target == entry.Path {
		return newError(ErrFileAlreadyExists, name, "file is already at %s", target)
	}

	if err := s.files.Move(ctx, entry.Path, target); err != nil {
		switch {
		case errors.Is(err, content.ErrAlreadyExists):
			return newError(ErrFileAlreadyExists, name, "%s already exists", target)
		case errors.Is(err, content.ErrDirNotFound):
			return newError(ErrInvalidPath, name, "directory %s does not exist", dir)
		case errors.Is(err, content.ErrNotFound):
			return newError(ErrFileDoesNotExist, name, "backing file %s is gone", entry.Path)
		default:
			return storageFailure(name, "move file", err)
		}
	}

	source := entry.Path
	next := entry.Clone()
	next.SetPath(target)
	if err := s.persist(ctx, next); err != nil {
		if mvErr := s.files.Move(ctx, target, source); mvErr != nil {
			logger.Error("Failed to move %s back to %s after metadata failure: %v", target, source, mvErr)
		}
		return err
	}
	s.entries[name] = next

	logger.Debug("Moved %s from %s to %s", name, source, target)
	return nil
}

// CheckFileHash recomputes the witness of name and compares it.
//
// Returns:
//   - error: nil when the content matches, otherwise ErrNotRegistered,
//     ErrHashingNotEnabled, ErrFileDoesNotExist, ErrFileCorrupted, ErrStorageFailure
func (s *Store) CheckFileHash(ctx context.Context, name string) (err error) {
	defer s.observe(OpCheck, time.Now(), &err)

	if err := ctx.Err(); err != nil {
		return storageFailure(name, "check", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.lookup(name)
	if err != nil {
		return err
	}
	if !entry.Hashed() {
		return newError(ErrHashingNotEnabled, name, "file was created without hashing")
	}

	plain, err := s.readPlain(ctx, entry)
	if err == nil {
		err = verify(entry, plain)
	}
	fileCorrupted(OpCheck, err)
	return err
}

// DeleteFile removes the file of name, its metadata record and its index
// line. If the backing file already vanished the registration is kept and
// ErrFileDoesNotExist is returned; use Forget to drop it.
//
// Returns:
//   - error: nil, or ErrNotRegistered, ErrFileDoesNotExist, ErrStorageFailure
func (s *Store) DeleteFile(ctx context.Context, name string) (err error) {
	defer s.observe(OpDelete, time.Now(), &err)

	if err := ctx.Err(); err != nil {
		return storageFailure(name, "delete", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.lookup(name)
	if err != nil {
		return err
	}

	if err := s.files.Remove(ctx, entry.Path); err != nil {
		if content.OutcomeOf(err) == content.OutcomeMissing {
			return newError(ErrFileDoesNotExist, name, "backing file %s is gone", entry.Path)
		}
		return storageFailure(name, "remove file", err)
	}

	if err := s.unregister(ctx, name); err != nil {
		return err
	}

	logger.Debug("Deleted %s (%s)", name, entry.Path)
	return nil
}

// Forget drops the registration of name without touching its file.
func (s *Store) Forget(ctx context.Context, name string) (err error) {
	defer s.observe(OpForget, time.Now(), &err)

	if err := ctx.Err(); err != nil {
		return storageFailure(name, "forget", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(name); err != nil {
		return err
	}
	if err := s.unregister(ctx, name); err != nil {
		return err
	}

	logger.Info("Forgot %s", name)
	return nil
}

// Orphans returns the metadata keys under the store's prefix that no
// registered name owns, sorted.
func (s *Store) Orphans(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, newError(ErrStorageFailure, "", "store is closed")
	}

	keys, err := s.meta.Keys(ctx, s.opts.KeyPrefix)
	if err != nil {
		return nil, storageFailure("", "list metadata keys", err)
	}

	var orphans []string
	for _, key := range keys {
		if _, ok := s.entries[strings.TrimPrefix(key, s.opts.KeyPrefix)]; !ok {
			orphans = append(orphans, key)
		}
	}
	return orphans, nil
}

// unregister deletes the metadata record, then the mapping slot and the
// index line.
func (s *Store) unregister(ctx context.Context, name string) error {
	if err := s.meta.Delete(ctx, s.metaKey(name)); err != nil {
		return storageFailure(name, "delete entry", err)
	}

	delete(s.entries, name)
	s.index.remove(name)
	s.opts.Metrics.SetRegisteredFiles(len(s.entries))

	if err := s.index.save(ctx, s.files); err != nil {
		return storageFailure(name, "save index", err)
	}
	return nil
}

// resolveTarget builds Directory/name+Extension and checks the directory.
func (s *Store) resolveTarget(ctx context.Context, name string, opts CreateOptions) (string, error) {
	ext := opts.Extension
	if ext == "" {
		ext = s.opts.DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if strings.ContainsAny(ext, "/\\\n\r\x00") || ext == "." {
		return "", newError(ErrInvalidArgument, name, "invalid extension %q", opts.Extension)
	}

	dir, err := s.resolveDir(ctx, name, opts.Directory)
	if err != nil {
		return "", err
	}

	target, err := content.Join(dir, name+ext)
	if err != nil {
		return "", &StoreError{Code: ErrInvalidPath, Name: name, Message: "invalid target path", Err: err}
	}
	if target == s.opts.IndexPath {
		return "", newError(ErrFileAlreadyExists, name, "%s is reserved for the index", target)
	}
	return target, nil
}

// resolveDir cleans dir, defaulting to the base directory, and checks that
// it exists.
func (s *Store) resolveDir(ctx context.Context, name, dir string) (string, error) {
	if dir == "" {
		dir = s.opts.BaseDir
	}
	clean, err := content.CleanPath(dir)
	if err != nil {
		return "", &StoreError{Code: ErrInvalidPath, Name: name, Message: "invalid directory " + dir, Err: err}
	}

	ok, err := s.files.DirExists(ctx, clean)
	if err != nil {
		return "", storageFailure(name, "check directory", err)
	}
	if !ok {
		return "", newError(ErrInvalidPath, name, "directory %s does not exist", dir)
	}
	return clean, nil
}

func (s *Store) removeQuietly(ctx context.Context, p string) {
	if err := s.files.Remove(ctx, p); err != nil && content.OutcomeOf(err) != content.OutcomeMissing {
		logger.Warn("Failed to remove %s after a failed create: %v", p, err)
	}
}

func validateName(name string) error {
	switch {
	case name == "":
		return newError(ErrInvalidArgument, name, "name is empty")
	case name == "." || name == "..":
		return newError(ErrInvalidArgument, name, "name is not a file name")
	case strings.ContainsAny(name, "/\\\n\r\x00"):
		return newError(ErrInvalidArgument, name, "name contains a path separator or line break")
	}
	return nil
}
