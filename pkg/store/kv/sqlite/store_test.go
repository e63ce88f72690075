package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/marmos91/keepfs/pkg/store/kv"
	kvtesting "github.com/marmos91/keepfs/pkg/store/kv/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	suite := &kvtesting.StoreTestSuite{
		NewStore: func() kv.Store {
			store, err := NewSQLiteStore(context.Background(), SQLiteStoreConfig{Path: ":memory:"})
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}

func TestSQLiteStoreOnDisk(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "keepfs.sqlite")

	store, err := NewSQLiteStore(ctx, SQLiteStoreConfig{Path: path})
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "entry:100%_done", []byte("v")))
	require.NoError(t, store.Set(ctx, "entry:100abc", []byte("w")))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(ctx, SQLiteStoreConfig{Path: path})
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	keys, err := reopened.Keys(ctx, "entry:100%")
	require.NoError(t, err)
	assert.Equal(t, []string{"entry:100%_done"}, keys)
}
