package encryption

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var suites = []Cipher{AESCTR, XChaCha20}

func TestRoundTrip(t *testing.T) {
	for _, c := range suites {
		t.Run(c.String(), func(t *testing.T) {
			plain := "the quick brown fox jumps over the lazy dog"

			var sealed bytes.Buffer
			key, err := c.Encrypt(&sealed, strings.NewReader(plain))
			require.NoError(t, err)
			assert.Len(t, key, KeySize)
			assert.Equal(t, c.IVSize()+len(plain), sealed.Len())

			var out bytes.Buffer
			require.NoError(t, c.Decrypt(&out, &sealed, key))
			assert.Equal(t, plain, out.String())
		})
	}
}

func TestFreshKeyAndIVPerWrite(t *testing.T) {
	for _, c := range suites {
		t.Run(c.String(), func(t *testing.T) {
			var a, b bytes.Buffer
			keyA, err := c.Encrypt(&a, strings.NewReader("same"))
			require.NoError(t, err)
			keyB, err := c.Encrypt(&b, strings.NewReader("same"))
			require.NoError(t, err)

			assert.NotEqual(t, keyA, keyB)
			assert.NotEqual(t, a.Bytes()[:c.IVSize()], b.Bytes()[:c.IVSize()])
		})
	}
}

func TestEmptyContent(t *testing.T) {
	var sealed bytes.Buffer
	key, err := AESCTR.Encrypt(&sealed, strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, AESCTR.IVSize(), sealed.Len())

	var out bytes.Buffer
	require.NoError(t, AESCTR.Decrypt(&out, &sealed, key))
	assert.Empty(t, out.String())
}

func TestWrongKeyYieldsGarbage(t *testing.T) {
	var sealed bytes.Buffer
	_, err := AESCTR.Encrypt(&sealed, strings.NewReader("secret message"))
	require.NoError(t, err)

	other, err := NewKey()
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, AESCTR.Decrypt(&out, &sealed, other))
	assert.NotEqual(t, "secret message", out.String())
}

func TestDecryptErrors(t *testing.T) {
	key, err := NewKey()
	require.NoError(t, err)

	err = AESCTR.Decrypt(&bytes.Buffer{}, bytes.NewReader([]byte{1, 2, 3}), key)
	assert.ErrorIs(t, err, ErrTruncated)

	err = XChaCha20.Decrypt(&bytes.Buffer{}, bytes.NewReader(make([]byte, 40)), key[:16])
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestParseCipher(t *testing.T) {
	c, err := ParseCipher("")
	require.NoError(t, err)
	assert.Equal(t, Default, c)

	c, err = ParseCipher("xchacha20")
	require.NoError(t, err)
	assert.Equal(t, XChaCha20, c)
	assert.Equal(t, 24, c.IVSize())

	_, err = ParseCipher("rot13")
	assert.Error(t, err)
}
