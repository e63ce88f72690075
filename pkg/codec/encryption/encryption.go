// Package encryption implements the at-rest cipher used for encrypted files.
//
// Encrypted files have the layout
//
//	[IV][ciphertext]
//
// where the IV is written in the clear and its length is fixed by the cipher
// suite. A fresh random key and IV are generated on every Encrypt call; the
// key is returned to the caller and is the only secret needed to read the
// file back.
//
// Both suites are unauthenticated stream ciphers. Decrypting with the wrong
// key yields garbage rather than an error, so callers that need to detect
// tampering layer a content hash on top of the plaintext.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20"
)

// KeySize is the key length in bytes for every supported suite.
const KeySize = 32

var (
	// ErrInvalidKey is returned when a key does not have KeySize bytes.
	ErrInvalidKey = errors.New("encryption: invalid key length")

	// ErrTruncated is returned when the input is shorter than the IV prefix.
	ErrTruncated = errors.New("encryption: ciphertext shorter than IV")
)

// Cipher identifies a cipher suite. The value is persisted alongside the key.
type Cipher string

const (
	// AESCTR is AES-256 in counter mode with a 16-byte IV (one AES block).
	AESCTR Cipher = "aes-ctr"

	// XChaCha20 is the XChaCha20 stream cipher with a 24-byte nonce.
	XChaCha20 Cipher = "xchacha20"
)

// Default is the suite used when none is configured.
const Default = AESCTR

// ParseCipher parses a suite name. The empty string maps to Default.
func ParseCipher(name string) (Cipher, error) {
	switch Cipher(name) {
	case "":
		return Default, nil
	case AESCTR, XChaCha20:
		return Cipher(name), nil
	default:
		return "", fmt.Errorf("unknown cipher %q", name)
	}
}

func (c Cipher) String() string {
	return string(c)
}

// IVSize returns the length of the clear-text IV prefix for this suite.
func (c Cipher) IVSize() int {
	switch c {
	case XChaCha20:
		return chacha20.NonceSizeX
	default:
		return aes.BlockSize
	}
}

func (c Cipher) stream(key, iv []byte) (cipher.Stream, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	switch c {
	case AESCTR, "":
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("failed to create AES cipher: %w", err)
		}
		return cipher.NewCTR(block, iv), nil
	case XChaCha20:
		s, err := chacha20.NewUnauthenticatedCipher(key, iv)
		if err != nil {
			return nil, fmt.Errorf("failed to create XChaCha20 cipher: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown cipher %q", string(c))
	}
}

// NewKey returns KeySize random bytes.
func NewKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

// Encrypt streams src into dst as [IV][ciphertext] under a freshly generated
// key and IV, and returns the key.
func (c Cipher) Encrypt(dst io.Writer, src io.Reader) ([]byte, error) {
	key, err := NewKey()
	if err != nil {
		return nil, err
	}

	iv := make([]byte, c.IVSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	stream, err := c.stream(key, iv)
	if err != nil {
		return nil, err
	}

	if _, err := dst.Write(iv); err != nil {
		return nil, fmt.Errorf("failed to write IV: %w", err)
	}

	w := &cipher.StreamWriter{S: stream, W: dst}
	if _, err := io.Copy(w, src); err != nil {
		return nil, fmt.Errorf("failed to encrypt content: %w", err)
	}

	return key, nil
}

// Decrypt reads the IV prefix from src and streams the decrypted remainder
// into dst.
func (c Cipher) Decrypt(dst io.Writer, src io.Reader, key []byte) error {
	iv := make([]byte, c.IVSize())
	if _, err := io.ReadFull(src, iv); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrTruncated
		}
		return fmt.Errorf("failed to read IV: %w", err)
	}

	stream, err := c.stream(key, iv)
	if err != nil {
		return err
	}

	r := &cipher.StreamReader{S: stream, R: src}
	if _, err := io.Copy(dst, r); err != nil {
		return fmt.Errorf("failed to decrypt content: %w", err)
	}
	return nil
}
