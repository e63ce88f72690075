// Package compression implements the at-rest stream compressor for
// compressed files. Files are raw compressed streams with no header beyond
// the one the algorithm itself requires.
package compression

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm identifies a compression format. The value is persisted with the
// file's metadata so files stay readable after the default changes.
type Algorithm string

const (
	Gzip Algorithm = "gzip"
	Zstd Algorithm = "zstd"
	LZ4  Algorithm = "lz4"
)

// Default is the algorithm used when none is configured.
const Default = Gzip

// ParseAlgorithm parses an algorithm name. The empty string maps to Default.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case "":
		return Default, nil
	case Gzip, Zstd, LZ4:
		return Algorithm(name), nil
	default:
		return "", fmt.Errorf("unknown compression algorithm %q", name)
	}
}

func (a Algorithm) String() string {
	return string(a)
}

// Appendable reports whether a second compressed stream written after the
// first decodes as the concatenation of both. When false, appending requires
// rewriting the whole file.
func (a Algorithm) Appendable() bool {
	switch a {
	case Gzip, Zstd, "":
		return true
	default:
		return false
	}
}

// Compress streams src through the compressor into dst. The compressed
// stream is fully flushed before Compress returns.
func (a Algorithm) Compress(dst io.Writer, src io.Reader) error {
	var w io.WriteCloser

	switch a {
	case Gzip, "":
		w = gzip.NewWriter(dst)
	case Zstd:
		enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		w = enc
	case LZ4:
		w = lz4.NewWriter(dst)
	default:
		return fmt.Errorf("unknown compression algorithm %q", string(a))
	}

	if _, err := io.Copy(w, src); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to compress content: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to flush %s stream: %w", a, err)
	}
	return nil
}

// Decompress streams the decompressed form of src into dst.
func (a Algorithm) Decompress(dst io.Writer, src io.Reader) error {
	var r io.Reader

	switch a {
	case Gzip, "":
		zr, err := gzip.NewReader(src)
		if err != nil {
			return fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer zr.Close()
		r = zr
	case Zstd:
		dec, err := zstd.NewReader(src)
		if err != nil {
			return fmt.Errorf("failed to open zstd stream: %w", err)
		}
		defer dec.Close()
		r = dec
	case LZ4:
		r = lz4.NewReader(src)
	default:
		return fmt.Errorf("unknown compression algorithm %q", string(a))
	}

	if _, err := io.Copy(dst, r); err != nil {
		return fmt.Errorf("failed to decompress content: %w", err)
	}
	return nil
}
