package filestore

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/marmos91/keepfs/internal/logger"
	"github.com/marmos91/keepfs/pkg/codec/encryption"
	"github.com/marmos91/keepfs/pkg/codec/integrity"
	"github.com/marmos91/keepfs/pkg/store/content"
)

// encode writes data to w through mode, using the entry's algorithms. For
// ModeEncrypted it returns the freshly generated key.
//
// On failure the writer is aborted. On success it is left pending: the
// caller commits it with Close, or with commit when an entry change must
// land together with the bytes.
func (s *Store) encode(w content.Writer, mode WriteMode, entry *Entry, data []byte) (key []byte, err error) {
	defer func() {
		if err != nil {
			_ = w.Abort()
		}
	}()

	src := bytes.NewReader(data)
	switch mode {
	case ModeEncrypted:
		return entry.Cipher.Encrypt(w, src)
	case ModeCompressed:
		return nil, entry.Compression.Compress(w, src)
	default:
		_, err = io.Copy(w, src)
		return nil, err
	}
}

// commit lands a pending write together with the entry describing it.
//
// When the entry changed, next is persisted before the writer is closed:
// a failed persist aborts the write so the file keeps the bytes the stored
// entry still describes. A failed close after a successful persist puts
// prev back. The mapping slot switches to next only when both succeeded.
// Callers hold s.mu.
func (s *Store) commit(ctx context.Context, w content.Writer, prev, next *Entry, changed bool) error {
	if changed {
		if err := s.persist(ctx, next); err != nil {
			if abortErr := w.Abort(); abortErr != nil {
				logger.Error("Failed to roll back write of %s after metadata failure: %v", next.Path, abortErr)
			}
			return err
		}
	}

	if err := w.Close(); err != nil {
		if changed {
			if restoreErr := s.persist(ctx, prev); restoreErr != nil {
				logger.Error("Failed to restore metadata of %s after a failed write: %v", prev.Name, restoreErr)
			}
		}
		return storageFailure(prev.Name, "commit file", err)
	}

	s.entries[next.Name] = next
	return nil
}

// readPlain reads the backing file and undoes the entry's write mode.
//
// A missing file is ErrFileDoesNotExist. Bytes that no longer decode are
// ErrFileCorrupted with no content: there is nothing sensible to return.
func (s *Store) readPlain(ctx context.Context, entry *Entry) ([]byte, error) {
	r, err := s.files.Open(ctx, entry.Path)
	if err != nil {
		if content.OutcomeOf(err) == content.OutcomeMissing {
			return nil, newError(ErrFileDoesNotExist, entry.Name, "backing file %s is gone", entry.Path)
		}
		return nil, storageFailure(entry.Name, "open file", err)
	}
	raw, err := io.ReadAll(r)
	_ = r.Close()
	if err != nil {
		return nil, storageFailure(entry.Name, "read file", err)
	}

	var plain bytes.Buffer
	switch entry.Mode() {
	case ModeEncrypted:
		if err := entry.Cipher.Decrypt(&plain, bytes.NewReader(raw), entry.Key); err != nil {
			if errors.Is(err, encryption.ErrTruncated) || errors.Is(err, encryption.ErrInvalidKey) {
				return nil, &StoreError{Code: ErrFileCorrupted, Name: entry.Name, Message: "cannot decrypt", Err: err}
			}
			return nil, storageFailure(entry.Name, "decrypt", err)
		}
	case ModeCompressed:
		if err := entry.Compression.Decompress(&plain, bytes.NewReader(raw)); err != nil {
			return nil, &StoreError{Code: ErrFileCorrupted, Name: entry.Name, Message: "cannot decompress", Err: err}
		}
	default:
		return raw, nil
	}
	return plain.Bytes(), nil
}

// witness hashes plaintext with the entry's algorithm.
func witness(entry *Entry, plain []byte) (string, error) {
	algo := entry.HashAlgorithm
	if algo == "" {
		algo = integrity.Default
	}
	sum, err := algo.SumBytes(plain)
	if err != nil {
		return "", storageFailure(entry.Name, "hash content", err)
	}
	return sum, nil
}

// verify compares the plaintext against the stored witness. Entries without
// hashing always verify.
func verify(entry *Entry, plain []byte) error {
	if !entry.Hashed() {
		return nil
	}
	sum, err := witness(entry, plain)
	if err != nil {
		return err
	}
	if !integrity.Equal(sum, entry.Hash) {
		return newError(ErrFileCorrupted, entry.Name, "content hash %s does not match witness %s", sum, entry.Hash)
	}
	return nil
}

// requireFile maps a vanished backing file to ErrFileDoesNotExist.
func (s *Store) requireFile(ctx context.Context, entry *Entry) error {
	ok, err := s.files.Exists(ctx, entry.Path)
	if err != nil {
		return storageFailure(entry.Name, "check file", err)
	}
	if !ok {
		return newError(ErrFileDoesNotExist, entry.Name, "backing file %s is gone", entry.Path)
	}
	return nil
}

// fileCorrupted logs a detected mismatch once per operation.
func fileCorrupted(op string, err error) {
	if CodeOf(err) == ErrFileCorrupted {
		logger.Warn("Integrity check failed during %s: %v", op, err)
	}
}
