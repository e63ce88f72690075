package testing

import (
	"context"
	"io"
	"testing"

	"github.com/marmos91/keepfs/pkg/store/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite is a conformance suite for content.ContentStore
// implementations. It exercises the interface contract only, so every
// backend (filesystem, memory, S3) runs the same assertions.
//
// Usage:
//
//	func TestMyContentStore(t *testing.T) {
//	    suite := &storetesting.StoreTestSuite{
//	        NewStore: func() content.ContentStore {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty ContentStore for each test.
	NewStore func() content.ContentStore

	// VirtualDirectories is set for backends without real directories
	// (object storage), which skip the missing-parent checks.
	VirtualDirectories bool
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("BasicOperations", suite.RunBasicTests)
	t.Run("WriteOperations", suite.RunWriteTests)
	t.Run("MoveOperations", suite.RunMoveTests)
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}

// mustWrite creates or replaces p with data.
func mustWrite(t *testing.T, store content.ContentStore, p string, data []byte) {
	t.Helper()
	w, err := store.OpenWrite(testContext(), p)
	require.NoError(t, err, "OpenWrite should succeed")
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close(), "Close should commit")
}

// mustRead returns the full content of p.
func mustRead(t *testing.T, store content.ContentStore, p string) []byte {
	t.Helper()
	r, err := store.Open(testContext(), p)
	require.NoError(t, err, "Open should succeed")
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return data
}

// assertExists checks file existence.
func assertExists(t *testing.T, store content.ContentStore, p string, expected bool) {
	t.Helper()
	exists, err := store.Exists(testContext(), p)
	require.NoError(t, err)
	assert.Equal(t, expected, exists, "existence mismatch for %s", p)
}
