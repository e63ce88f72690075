package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/marmos91/keepfs/pkg/store/kv"
	kvtesting "github.com/marmos91/keepfs/pkg/store/kv/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltStore(t *testing.T) {
	suite := &kvtesting.StoreTestSuite{
		NewStore: func() kv.Store {
			store, err := NewBoltStore(context.Background(), BoltStoreConfig{
				Path: filepath.Join(t.TempDir(), "meta", "keepfs.db"),
			})
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}

func TestBoltStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "keepfs.db")

	store, err := NewBoltStore(ctx, BoltStoreConfig{Path: path, Bucket: "entries"})
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "entry:notes", []byte("v1")))
	require.NoError(t, store.Close())

	reopened, err := NewBoltStore(ctx, BoltStoreConfig{Path: path, Bucket: "entries"})
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	value, err := reopened.Get(ctx, "entry:notes")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), value)
}
