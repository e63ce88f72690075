package memory

import (
	"context"
	"testing"

	"github.com/marmos91/keepfs/pkg/store/kv"
	kvtesting "github.com/marmos91/keepfs/pkg/store/kv/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	suite := &kvtesting.StoreTestSuite{
		NewStore: func() kv.Store { return NewMemoryStore() },
	}
	suite.Run(t)
}

func TestValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	value := []byte("original")
	require.NoError(t, store.Set(ctx, "k", value))
	value[0] = 'X'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "original", string(got))

	got[0] = 'Y'
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "original", string(again))
	assert.Equal(t, 1, store.Len())
}
