package testing

import (
	"bytes"
	"testing"

	"github.com/marmos91/keepfs/pkg/store/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBasicTests covers existence, reads, stat and removal.
func (suite *StoreTestSuite) RunBasicTests(t *testing.T) {
	t.Run("Exists_Missing", suite.testExistsMissing)
	t.Run("Open_NotFound", suite.testOpenNotFound)
	t.Run("Open_Success", suite.testOpenSuccess)
	t.Run("Open_Empty", suite.testOpenEmpty)
	t.Run("Open_Large", suite.testOpenLarge)
	t.Run("Stat", suite.testStat)
	t.Run("Remove", suite.testRemove)
	t.Run("Remove_NotFound", suite.testRemoveNotFound)
	t.Run("DirExists", suite.testDirExists)
}

func (suite *StoreTestSuite) testExistsMissing(t *testing.T) {
	store := suite.NewStore()
	assertExists(t, store, "nope.txt", false)
}

func (suite *StoreTestSuite) testOpenNotFound(t *testing.T) {
	store := suite.NewStore()

	_, err := store.Open(testContext(), "nope.txt")
	assert.ErrorIs(t, err, content.ErrNotFound)
	assert.Equal(t, content.OutcomeMissing, content.OutcomeOf(err))
}

func (suite *StoreTestSuite) testOpenSuccess(t *testing.T) {
	store := suite.NewStore()

	mustWrite(t, store, "hello.txt", []byte("Hello, World!"))

	assertExists(t, store, "hello.txt", true)
	assert.Equal(t, []byte("Hello, World!"), mustRead(t, store, "hello.txt"))
}

func (suite *StoreTestSuite) testOpenEmpty(t *testing.T) {
	store := suite.NewStore()

	mustWrite(t, store, "empty.txt", nil)

	assertExists(t, store, "empty.txt", true)
	assert.Empty(t, mustRead(t, store, "empty.txt"))
}

func (suite *StoreTestSuite) testOpenLarge(t *testing.T) {
	store := suite.NewStore()

	data := bytes.Repeat([]byte("0123456789abcdef"), 64*1024)
	mustWrite(t, store, "large.bin", data)

	assert.Equal(t, data, mustRead(t, store, "large.bin"))
}

func (suite *StoreTestSuite) testStat(t *testing.T) {
	store := suite.NewStore()

	_, err := store.Stat(testContext(), "nope.txt")
	assert.ErrorIs(t, err, content.ErrNotFound)

	mustWrite(t, store, "sized.txt", []byte("12345"))
	info, err := store.Stat(testContext(), "sized.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)
	assert.False(t, info.ModTime.IsZero())
}

func (suite *StoreTestSuite) testRemove(t *testing.T) {
	store := suite.NewStore()

	mustWrite(t, store, "gone.txt", []byte("bye"))
	require.NoError(t, store.Remove(testContext(), "gone.txt"))
	assertExists(t, store, "gone.txt", false)
}

func (suite *StoreTestSuite) testRemoveNotFound(t *testing.T) {
	store := suite.NewStore()

	err := store.Remove(testContext(), "nope.txt")
	assert.ErrorIs(t, err, content.ErrNotFound)
}

func (suite *StoreTestSuite) testDirExists(t *testing.T) {
	store := suite.NewStore()

	ok, err := store.DirExists(testContext(), "")
	require.NoError(t, err)
	assert.True(t, ok, "root always exists")

	require.NoError(t, store.MkdirAll(testContext(), "a/b/c"))
	ok, err = store.DirExists(testContext(), "a/b")
	require.NoError(t, err)
	assert.True(t, ok)

	if suite.VirtualDirectories {
		return
	}

	ok, err = store.DirExists(testContext(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
