// Package integrity computes the content digests used as tamper witnesses.
//
// A digest is detection-only: a mismatch tells the caller the bytes changed
// out-of-band, nothing more.
package integrity

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/zeebo/blake3"
)

// Algorithm identifies a digest function. The value is persisted next to the
// witness so old witnesses stay comparable after the default changes.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"

	// SHA1 is kept for witnesses produced by older stores, which used an
	// uppercase hex SHA-1 digest.
	SHA1 Algorithm = "sha1"
)

// Default is the algorithm used when none is configured.
const Default = SHA256

// ParseAlgorithm parses an algorithm name. The empty string maps to Default.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(name)) {
	case "":
		return Default, nil
	case SHA256:
		return SHA256, nil
	case SHA1:
		return SHA1, nil
	case BLAKE3:
		return BLAKE3, nil
	default:
		return "", fmt.Errorf("unknown hash algorithm %q", name)
	}
}

func (a Algorithm) String() string {
	return string(a)
}

func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case SHA256, "":
		return sha256.New(), nil
	case SHA1:
		return sha1.New(), nil
	case BLAKE3:
		return blake3.New(), nil
	default:
		return nil, fmt.Errorf("unknown hash algorithm %q", string(a))
	}
}

// Sum reads r to EOF and returns the hex-encoded digest.
func (a Algorithm) Sum(r io.Reader) (string, error) {
	h, err := a.newHash()
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to hash content: %w", err)
	}

	digest := hex.EncodeToString(h.Sum(nil))
	if a == SHA1 {
		digest = strings.ToUpper(digest)
	}
	return digest, nil
}

// SumBytes is Sum over an in-memory buffer.
func (a Algorithm) SumBytes(data []byte) (string, error) {
	return a.Sum(bytes.NewReader(data))
}

// Equal compares two hex digests. Case is ignored.
func Equal(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}
