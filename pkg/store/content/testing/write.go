package testing

import (
	"testing"

	"github.com/marmos91/keepfs/pkg/store/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunWriteTests covers Create, OpenWrite and OpenAppend, including Abort.
func (suite *StoreTestSuite) RunWriteTests(t *testing.T) {
	t.Run("Create_Success", suite.testCreateSuccess)
	t.Run("Create_AlreadyExists", suite.testCreateAlreadyExists)
	t.Run("Create_Abort", suite.testCreateAbort)
	t.Run("Create_MissingDirectory", suite.testCreateMissingDirectory)
	t.Run("OpenWrite_Replaces", suite.testOpenWriteReplaces)
	t.Run("OpenWrite_AbortKeepsOld", suite.testOpenWriteAbort)
	t.Run("OpenAppend", suite.testOpenAppend)
	t.Run("OpenAppend_NotFound", suite.testOpenAppendNotFound)
	t.Run("OpenAppend_Abort", suite.testOpenAppendAbort)
}

func (suite *StoreTestSuite) testCreateSuccess(t *testing.T) {
	store := suite.NewStore()

	w, err := store.Create(testContext(), "new.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("fresh"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, []byte("fresh"), mustRead(t, store, "new.txt"))
}

func (suite *StoreTestSuite) testCreateAlreadyExists(t *testing.T) {
	store := suite.NewStore()

	mustWrite(t, store, "taken.txt", []byte("original"))

	_, err := store.Create(testContext(), "taken.txt")
	assert.ErrorIs(t, err, content.ErrAlreadyExists)
	assert.Equal(t, content.OutcomeExists, content.OutcomeOf(err))
	assert.Equal(t, []byte("original"), mustRead(t, store, "taken.txt"))
}

func (suite *StoreTestSuite) testCreateAbort(t *testing.T) {
	store := suite.NewStore()

	w, err := store.Create(testContext(), "aborted.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, w.Abort())
	require.NoError(t, w.Close(), "Close after Abort is a no-op")

	assertExists(t, store, "aborted.txt", false)
}

func (suite *StoreTestSuite) testCreateMissingDirectory(t *testing.T) {
	if suite.VirtualDirectories {
		t.Skip("backend has no real directories")
	}
	store := suite.NewStore()

	_, err := store.Create(testContext(), "missing/file.txt")
	assert.ErrorIs(t, err, content.ErrDirNotFound)
}

func (suite *StoreTestSuite) testOpenWriteReplaces(t *testing.T) {
	store := suite.NewStore()

	mustWrite(t, store, "doc.txt", []byte("a much longer first version"))
	mustWrite(t, store, "doc.txt", []byte("short"))

	assert.Equal(t, []byte("short"), mustRead(t, store, "doc.txt"))
}

func (suite *StoreTestSuite) testOpenWriteAbort(t *testing.T) {
	store := suite.NewStore()

	mustWrite(t, store, "doc.txt", []byte("keep me"))

	w, err := store.OpenWrite(testContext(), "doc.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("discard me"))
	require.NoError(t, err)
	require.NoError(t, w.Abort())

	assert.Equal(t, []byte("keep me"), mustRead(t, store, "doc.txt"))
}

func (suite *StoreTestSuite) testOpenAppend(t *testing.T) {
	store := suite.NewStore()

	mustWrite(t, store, "log.txt", []byte("AB"))

	w, err := store.OpenAppend(testContext(), "log.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("CD"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, []byte("ABCD"), mustRead(t, store, "log.txt"))
}

func (suite *StoreTestSuite) testOpenAppendNotFound(t *testing.T) {
	store := suite.NewStore()

	_, err := store.OpenAppend(testContext(), "nope.txt")
	assert.ErrorIs(t, err, content.ErrNotFound)
}

func (suite *StoreTestSuite) testOpenAppendAbort(t *testing.T) {
	store := suite.NewStore()

	mustWrite(t, store, "log.txt", []byte("AB"))

	w, err := store.OpenAppend(testContext(), "log.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("CD"))
	require.NoError(t, err)
	require.NoError(t, w.Abort())

	assert.Equal(t, []byte("AB"), mustRead(t, store, "log.txt"))
}
