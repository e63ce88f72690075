package testing

import (
	"context"
	"fmt"
	"testing"

	"github.com/marmos91/keepfs/pkg/store/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite is a conformance suite for kv.Store implementations.
//
// Usage:
//
//	func TestMyStore(t *testing.T) {
//	    suite := &kvtesting.StoreTestSuite{
//	        NewStore: func() kv.Store { return mystore.New() },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test.
	NewStore func() kv.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("Get_NotFound", suite.testGetNotFound)
	t.Run("Set_Get", suite.testSetGet)
	t.Run("Set_Overwrites", suite.testSetOverwrites)
	t.Run("Set_EmptyValue", suite.testSetEmptyValue)
	t.Run("Delete", suite.testDelete)
	t.Run("Delete_Missing", suite.testDeleteMissing)
	t.Run("Keys_Prefix", suite.testKeysPrefix)
	t.Run("Keys_Empty", suite.testKeysEmpty)
}

// newStore creates a store and closes it when the test ends.
func (suite *StoreTestSuite) newStore(t *testing.T) kv.Store {
	t.Helper()
	store := suite.NewStore()
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func (suite *StoreTestSuite) testGetNotFound(t *testing.T) {
	store := suite.newStore(t)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)
}

func (suite *StoreTestSuite) testSetGet(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t)

	require.NoError(t, store.Set(ctx, "entry:notes", []byte(`{"path":"notes.txt"}`)))

	value, err := store.Get(ctx, "entry:notes")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"path":"notes.txt"}`), value)
}

func (suite *StoreTestSuite) testSetOverwrites(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t)

	require.NoError(t, store.Set(ctx, "k", []byte("first")))
	require.NoError(t, store.Set(ctx, "k", []byte("second")))

	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), value)
}

func (suite *StoreTestSuite) testSetEmptyValue(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t)

	require.NoError(t, store.Set(ctx, "empty", []byte{}))

	value, err := store.Get(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func (suite *StoreTestSuite) testDelete(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t)

	require.NoError(t, store.Set(ctx, "k", []byte("v")))
	require.NoError(t, store.Delete(ctx, "k"))

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)
}

func (suite *StoreTestSuite) testDeleteMissing(t *testing.T) {
	store := suite.newStore(t)
	assert.NoError(t, store.Delete(context.Background(), "never-set"))
}

func (suite *StoreTestSuite) testKeysPrefix(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t)

	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, store.Set(ctx, fmt.Sprintf("entry:%s", name), []byte(name)))
	}
	require.NoError(t, store.Set(ctx, "other:x", []byte("x")))
	require.NoError(t, store.Set(ctx, "ENTRY:upper", []byte("u")))

	keys, err := store.Keys(ctx, "entry:")
	require.NoError(t, err)
	assert.Equal(t, []string{"entry:a", "entry:b", "entry:c"}, keys)
}

func (suite *StoreTestSuite) testKeysEmpty(t *testing.T) {
	store := suite.newStore(t)

	keys, err := store.Keys(context.Background(), "entry:")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
