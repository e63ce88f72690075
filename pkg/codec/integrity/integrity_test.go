package integrity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnownDigests(t *testing.T) {
	tests := []struct {
		algo Algorithm
		want string
	}{
		{SHA256, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
		{SHA1, "AAF4C61DDCC5E8A2DABEDE0F3B482CD9AEA9434D"},
	}

	for _, tt := range tests {
		t.Run(tt.algo.String(), func(t *testing.T) {
			got, err := tt.algo.Sum(strings.NewReader("hello"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStableAcrossRecomputation(t *testing.T) {
	for _, a := range []Algorithm{SHA256, SHA1, BLAKE3} {
		t.Run(a.String(), func(t *testing.T) {
			first, err := a.SumBytes([]byte("witness"))
			require.NoError(t, err)
			second, err := a.Sum(strings.NewReader("witness"))
			require.NoError(t, err)
			assert.Equal(t, first, second)

			other, err := a.SumBytes([]byte("witnesS"))
			require.NoError(t, err)
			assert.NotEqual(t, first, other)
		})
	}
}

func TestBLAKE3Length(t *testing.T) {
	d, err := BLAKE3.SumBytes(nil)
	require.NoError(t, err)
	assert.Len(t, d, 64)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("abcd", "ABCD"))
	assert.False(t, Equal("abcd", "abce"))
	assert.False(t, Equal("", ""))
}

func TestParseAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, SHA256, a)

	a, err = ParseAlgorithm("BLAKE3")
	require.NoError(t, err)
	assert.Equal(t, BLAKE3, a)

	_, err = ParseAlgorithm("md5")
	assert.Error(t, err)
}
