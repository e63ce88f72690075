//go:build integration

package persistence_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/marmos91/keepfs/pkg/filestore"
	"github.com/marmos91/keepfs/pkg/store/content"
	contentFs "github.com/marmos91/keepfs/pkg/store/content/fs"
	"github.com/marmos91/keepfs/pkg/store/kv"
	"github.com/marmos91/keepfs/pkg/store/kv/badger"
	"github.com/marmos91/keepfs/pkg/store/kv/bolt"
	"github.com/marmos91/keepfs/pkg/store/kv/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backend opens the same on-disk metadata store every time it is called.
type backend struct {
	name string
	open func(t *testing.T, dir string) kv.Store
}

var backends = []backend{
	{"badger", func(t *testing.T, dir string) kv.Store {
		store, err := badger.NewBadgerStore(context.Background(), badger.BadgerStoreConfig{
			DBPath: filepath.Join(dir, "badger"),
		})
		require.NoError(t, err)
		return store
	}},
	{"bolt", func(t *testing.T, dir string) kv.Store {
		store, err := bolt.NewBoltStore(context.Background(), bolt.BoltStoreConfig{
			Path: filepath.Join(dir, "meta.db"),
		})
		require.NoError(t, err)
		return store
	}},
	{"sqlite", func(t *testing.T, dir string) kv.Store {
		store, err := sqlite.NewSQLiteStore(context.Background(), sqlite.SQLiteStoreConfig{
			Path: filepath.Join(dir, "meta.sqlite"),
		})
		require.NoError(t, err)
		return store
	}},
}

// session is one open/close cycle of a file store over persistent backends.
type session struct {
	store *filestore.Store
	files content.ContentStore
	meta  kv.Store
}

func openSession(t *testing.T, b backend, dir string) *session {
	t.Helper()
	ctx := context.Background()

	files, err := contentFs.NewFSContentStore(ctx, filepath.Join(dir, "files"))
	require.NoError(t, err)
	meta := b.open(t, dir)

	store, err := filestore.Open(ctx, files, meta, filestore.Options{BaseDir: "vault"})
	require.NoError(t, err)
	return &session{store: store, files: files, meta: meta}
}

func (s *session) close(t *testing.T) {
	t.Helper()
	require.NoError(t, s.store.Close(context.Background()))
	require.NoError(t, s.meta.Close())
	require.NoError(t, s.files.Close())
}

// TestFileStore_Persistence checks that registrations survive a restart on
// every embedded metadata backend.
//
// Prerequisites:
//   - None (all backends are embedded)
//   - Run with: go test -tags=integration ./test/integration/persistence/...
func TestFileStore_Persistence(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()

			// ================================================================
			// Session 1: register one file per write mode
			// ================================================================

			s := openSession(t, b, dir)
			require.NoError(t, s.store.CreateFile(ctx, "plain", []byte("plain text"), filestore.CreateOptions{Hash: true}))
			require.NoError(t, s.store.CreateFile(ctx, "packed", []byte("packed text"), filestore.CreateOptions{Compress: true, Hash: true}))
			require.NoError(t, s.store.CreateFile(ctx, "secret", []byte("secret text"), filestore.CreateOptions{Encrypt: true, Hash: true}))
			require.NoError(t, s.store.CreateFile(ctx, "scratch", []byte("temporary"), filestore.CreateOptions{}))
			s.close(t)

			// ================================================================
			// Session 2: everything reads back, then mutate
			// ================================================================

			s = openSession(t, b, dir)
			assert.ElementsMatch(t, []string{"plain", "packed", "secret", "scratch"}, s.store.List())

			for name, want := range map[string]string{
				"plain":  "plain text",
				"packed": "packed text",
				"secret": "secret text",
			} {
				data, err := s.store.ReadFile(ctx, name)
				require.NoError(t, err, name)
				assert.Equal(t, want, string(data), name)
				require.NoError(t, s.store.CheckFileHash(ctx, name), name)
			}

			require.NoError(t, s.store.AppendFile(ctx, "secret", []byte(" more")))
			require.NoError(t, s.files.MkdirAll(ctx, "vault/archive"))
			require.NoError(t, s.store.ChangeFilePath(ctx, "packed", "vault/archive"))
			require.NoError(t, s.store.DeleteFile(ctx, "scratch"))
			s.close(t)

			// ================================================================
			// Session 3: the mutations stuck
			// ================================================================

			s = openSession(t, b, dir)
			defer s.close(t)

			assert.False(t, s.store.Has("scratch"))

			data, err := s.store.ReadFile(ctx, "secret")
			require.NoError(t, err)
			assert.Equal(t, "secret text more", string(data))

			info, err := s.store.Stat(ctx, "packed")
			require.NoError(t, err)
			assert.Equal(t, "vault/archive/packed.txt", info.Path)
			require.NoError(t, s.store.CheckFileHash(ctx, "packed"))

			orphans, err := s.store.Orphans(ctx)
			require.NoError(t, err)
			assert.Empty(t, orphans)
		})
	}
}
