package testing

import (
	"testing"

	"github.com/marmos91/keepfs/pkg/store/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunMoveTests covers Move and its failure outcomes.
func (suite *StoreTestSuite) RunMoveTests(t *testing.T) {
	t.Run("Move_Success", suite.testMoveSuccess)
	t.Run("Move_SourceMissing", suite.testMoveSourceMissing)
	t.Run("Move_DestinationOccupied", suite.testMoveDestinationOccupied)
	t.Run("Move_DirectoryMissing", suite.testMoveDirectoryMissing)
}

func (suite *StoreTestSuite) testMoveSuccess(t *testing.T) {
	store := suite.NewStore()

	require.NoError(t, store.MkdirAll(testContext(), "archive"))
	mustWrite(t, store, "doc.txt", []byte("payload"))

	require.NoError(t, store.Move(testContext(), "doc.txt", "archive/doc.txt"))

	assertExists(t, store, "doc.txt", false)
	assert.Equal(t, []byte("payload"), mustRead(t, store, "archive/doc.txt"))
}

func (suite *StoreTestSuite) testMoveSourceMissing(t *testing.T) {
	store := suite.NewStore()

	err := store.Move(testContext(), "nope.txt", "other.txt")
	assert.ErrorIs(t, err, content.ErrNotFound)
}

func (suite *StoreTestSuite) testMoveDestinationOccupied(t *testing.T) {
	store := suite.NewStore()

	require.NoError(t, store.MkdirAll(testContext(), "archive"))
	mustWrite(t, store, "doc.txt", []byte("mine"))
	mustWrite(t, store, "archive/doc.txt", []byte("theirs"))

	err := store.Move(testContext(), "doc.txt", "archive/doc.txt")
	assert.ErrorIs(t, err, content.ErrAlreadyExists)

	assert.Equal(t, []byte("mine"), mustRead(t, store, "doc.txt"))
	assert.Equal(t, []byte("theirs"), mustRead(t, store, "archive/doc.txt"))
}

func (suite *StoreTestSuite) testMoveDirectoryMissing(t *testing.T) {
	if suite.VirtualDirectories {
		t.Skip("backend has no real directories")
	}
	store := suite.NewStore()

	mustWrite(t, store, "doc.txt", []byte("payload"))

	err := store.Move(testContext(), "doc.txt", "missing/doc.txt")
	assert.ErrorIs(t, err, content.ErrDirNotFound)
	assertExists(t, store, "doc.txt", true)
}
