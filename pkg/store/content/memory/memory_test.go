package memory

import (
	"context"
	"testing"

	"github.com/marmos91/keepfs/pkg/store/content"
	storetesting "github.com/marmos91/keepfs/pkg/store/content/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryContentStore(t *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func() content.ContentStore {
			store, err := NewMemoryContentStore(context.Background())
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}

func TestCreateReservesName(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryContentStore(ctx)
	require.NoError(t, err)

	w, err := store.Create(ctx, "a.txt")
	require.NoError(t, err)

	_, err = store.Create(ctx, "a.txt")
	assert.ErrorIs(t, err, content.ErrAlreadyExists)

	require.NoError(t, w.Abort())
	assert.Empty(t, store.Paths())
}
