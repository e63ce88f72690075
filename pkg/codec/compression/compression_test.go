package compression

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	content := strings.Repeat("keepfs compresses repetitive text well. ", 200)

	for _, a := range []Algorithm{Gzip, Zstd, LZ4} {
		t.Run(a.String(), func(t *testing.T) {
			var packed bytes.Buffer
			require.NoError(t, a.Compress(&packed, strings.NewReader(content)))
			assert.Less(t, packed.Len(), len(content))

			var out bytes.Buffer
			require.NoError(t, a.Decompress(&out, &packed))
			assert.Equal(t, content, out.String())
		})
	}
}

func TestConcatenatedStreams(t *testing.T) {
	for _, a := range []Algorithm{Gzip, Zstd} {
		t.Run(a.String(), func(t *testing.T) {
			require.True(t, a.Appendable())

			var packed bytes.Buffer
			require.NoError(t, a.Compress(&packed, strings.NewReader("AB")))
			require.NoError(t, a.Compress(&packed, strings.NewReader("CD")))

			var out bytes.Buffer
			require.NoError(t, a.Decompress(&out, &packed))
			assert.Equal(t, "ABCD", out.String())
		})
	}

	assert.False(t, LZ4.Appendable())
}

func TestDecompressGarbage(t *testing.T) {
	err := Gzip.Decompress(&bytes.Buffer{}, strings.NewReader("not gzip at all"))
	assert.Error(t, err)
}

func TestParseAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, Gzip, a)

	a, err = ParseAlgorithm("zstd")
	require.NoError(t, err)
	assert.Equal(t, Zstd, a)

	_, err = ParseAlgorithm("brotli")
	assert.Error(t, err)
}
