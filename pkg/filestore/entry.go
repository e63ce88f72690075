package filestore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marmos91/keepfs/pkg/codec/compression"
	"github.com/marmos91/keepfs/pkg/codec/encryption"
	"github.com/marmos91/keepfs/pkg/codec/integrity"
)

// WriteMode is the transformation applied to a file's bytes at rest.
type WriteMode int

const (
	ModePlain WriteMode = iota
	ModeCompressed
	ModeEncrypted
)

func (m WriteMode) String() string {
	switch m {
	case ModeEncrypted:
		return "encrypted"
	case ModeCompressed:
		return "compressed"
	default:
		return "plain"
	}
}

// Entry is the persisted record of one managed file.
//
// Entries are stored in the metadata store under the file's logical name,
// never under its path. Fields are only changed through the setters below,
// which report whether anything changed; the Store persists the entry after
// every successful mutation.
type Entry struct {
	Name string `json:"name"`
	Path string `json:"path"`

	// Hash is the witness of the plaintext content. Empty disables hashing.
	Hash          string              `json:"hash,omitempty"`
	HashAlgorithm integrity.Algorithm `json:"hash_algorithm,omitempty"`

	// Key is the encryption key of the current content. Empty disables encryption.
	Key    []byte            `json:"key,omitempty"`
	Cipher encryption.Cipher `json:"cipher,omitempty"`

	Compressed  bool                  `json:"compressed,omitempty"`
	Compression compression.Algorithm `json:"compression,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Encrypted reports whether the content is stored through the cipher.
func (e *Entry) Encrypted() bool {
	return len(e.Key) > 0
}

// Hashed reports whether integrity tracking is active.
func (e *Entry) Hashed() bool {
	return e.Hash != ""
}

// Mode selects the write path. Encryption is checked first.
func (e *Entry) Mode() WriteMode {
	switch {
	case e.Encrypted():
		return ModeEncrypted
	case e.Compressed:
		return ModeCompressed
	default:
		return ModePlain
	}
}

// Validate checks the entry's invariants.
func (e *Entry) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("entry has no name")
	}
	if e.Path == "" {
		return fmt.Errorf("entry %s has no path", e.Name)
	}
	if e.Encrypted() && e.Compressed {
		return fmt.Errorf("entry %s is both encrypted and compressed", e.Name)
	}
	return nil
}

// SetPath relocates the entry. It reports whether the path changed.
func (e *Entry) SetPath(path string) bool {
	if e.Path == path {
		return false
	}
	e.Path = path
	e.touch()
	return true
}

// SetHash replaces the witness. It reports whether the witness changed.
func (e *Entry) SetHash(hash string) bool {
	if e.Hash == hash {
		return false
	}
	e.Hash = hash
	e.touch()
	return true
}

// SetKey replaces the encryption key. It reports whether the key changed.
func (e *Entry) SetKey(key []byte) bool {
	if bytes.Equal(e.Key, key) {
		return false
	}
	e.Key = append([]byte(nil), key...)
	e.touch()
	return true
}

func (e *Entry) touch() {
	e.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy.
func (e *Entry) Clone() *Entry {
	c := *e
	c.Key = append([]byte(nil), e.Key...)
	return &c
}

func encodeEntry(e *Entry) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entry %s: %w", e.Name, err)
	}
	return data, nil
}

func decodeEntry(data []byte) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode entry: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
