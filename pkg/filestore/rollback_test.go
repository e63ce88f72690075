package filestore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/marmos91/keepfs/pkg/codec/compression"
	"github.com/marmos91/keepfs/pkg/store/content"
	contentfs "github.com/marmos91/keepfs/pkg/store/content/fs"
	contentmemory "github.com/marmos91/keepfs/pkg/store/content/memory"
	kvmemory "github.com/marmos91/keepfs/pkg/store/kv/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected backend failure")

// flakyMeta fails Set or Delete while the matching switch is on.
type flakyMeta struct {
	*kvmemory.MemoryStore

	mu         sync.Mutex
	failSet    bool
	failDelete bool
}

func (m *flakyMeta) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	fail := m.failSet
	m.mu.Unlock()
	if fail {
		return errInjected
	}
	return m.MemoryStore.Set(ctx, key, value)
}

func (m *flakyMeta) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	fail := m.failDelete
	m.mu.Unlock()
	if fail {
		return errInjected
	}
	return m.MemoryStore.Delete(ctx, key)
}

func (m *flakyMeta) fail(set, del bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSet, m.failDelete = set, del
}

// flakyFiles fails OpenWrite on one path while failPath is set.
type flakyFiles struct {
	content.ContentStore

	mu       sync.Mutex
	failPath string
}

func (f *flakyFiles) OpenWrite(ctx context.Context, p string) (content.Writer, error) {
	f.mu.Lock()
	fail := f.failPath != "" && f.failPath == p
	f.mu.Unlock()
	if fail {
		return nil, errInjected
	}
	return f.ContentStore.OpenWrite(ctx, p)
}

func (f *flakyFiles) failWrites(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPath = p
}

type faultFixture struct {
	store *Store
	files *flakyFiles
	meta  *flakyMeta
	opts  Options
}

// contentBackends runs each rollback case over a buffered and an on-disk
// content store, whose writers roll back differently.
var contentBackends = []struct {
	name string
	open func(t *testing.T) content.ContentStore
}{
	{"memory", func(t *testing.T) content.ContentStore {
		store, err := contentmemory.NewMemoryContentStore(context.Background())
		require.NoError(t, err)
		return store
	}},
	{"fs", func(t *testing.T) content.ContentStore {
		store, err := contentfs.NewFSContentStore(context.Background(), t.TempDir())
		require.NoError(t, err)
		return store
	}},
}

func newFaultFixture(t *testing.T, files content.ContentStore, opts Options) *faultFixture {
	t.Helper()

	f := &faultFixture{
		files: &flakyFiles{ContentStore: files},
		meta:  &flakyMeta{MemoryStore: kvmemory.NewMemoryStore()},
		opts:  opts,
	}
	store, err := Open(context.Background(), f.files, f.meta, opts)
	require.NoError(t, err)
	f.store = store
	return f
}

// heal switches every injected failure off.
func (f *faultFixture) heal() {
	f.meta.fail(false, false)
	f.files.failWrites("")
}

// reopen heals the backends and restarts the store on the persisted state.
func (f *faultFixture) reopen(t *testing.T) {
	t.Helper()
	f.heal()
	require.NoError(t, f.store.Close(context.Background()))

	store, err := Open(context.Background(), f.files, f.meta, f.opts)
	require.NoError(t, err)
	f.store = store
}

func (f *faultFixture) exists(t *testing.T, p string) bool {
	t.Helper()
	ok, err := f.files.Exists(context.Background(), p)
	require.NoError(t, err)
	return ok
}

func (f *faultFixture) metaKeys(t *testing.T) []string {
	t.Helper()
	keys, err := f.meta.Keys(context.Background(), f.store.opts.KeyPrefix)
	require.NoError(t, err)
	return keys
}

func (f *faultFixture) assertContent(t *testing.T, name, want string) {
	t.Helper()
	got, err := f.store.ReadFile(context.Background(), name)
	require.NoError(t, err)
	assert.Equal(t, want, string(got))
}

func TestCreateMetadataFailureLeavesNothing(t *testing.T) {
	modes := map[string]CreateOptions{
		"plain":      {Hash: true},
		"compressed": {Compress: true, Hash: true},
		"encrypted":  {Encrypt: true, Hash: true},
	}

	for _, backend := range contentBackends {
		for mode, opts := range modes {
			t.Run(backend.name+"/"+mode, func(t *testing.T) {
				ctx := context.Background()
				f := newFaultFixture(t, backend.open(t), Options{})

				f.meta.fail(true, false)
				err := f.store.CreateFile(ctx, "f", []byte("content"), opts)
				assertCode(t, ErrStorageFailure, err)

				assert.False(t, f.store.Has("f"))
				assert.False(t, f.exists(t, "f.txt"))
				assert.Empty(t, f.metaKeys(t))

				f.reopen(t)
				assert.Empty(t, f.store.List())
				require.NoError(t, f.store.CreateFile(ctx, "f", []byte("content"), opts))
				f.assertContent(t, "f", "content")
			})
		}
	}
}

func TestCreateIndexFailureRollsBack(t *testing.T) {
	for _, backend := range contentBackends {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFaultFixture(t, backend.open(t), Options{})
			require.NoError(t, f.store.CreateFile(ctx, "kept", []byte("kept"), CreateOptions{}))

			f.files.failWrites(DefaultIndexPath)
			err := f.store.CreateFile(ctx, "f", []byte("content"), CreateOptions{Encrypt: true})
			assertCode(t, ErrStorageFailure, err)

			assert.False(t, f.store.Has("f"))
			assert.Equal(t, []string{"kept"}, f.store.List())
			assert.False(t, f.exists(t, "f.txt"))
			assert.Equal(t, []string{DefaultKeyPrefix + "kept"}, f.metaKeys(t))

			f.reopen(t)
			assert.Equal(t, []string{"kept"}, f.store.List())
			f.assertContent(t, "kept", "kept")
		})
	}
}

func TestUpdateMetadataFailureKeepsPreviousContent(t *testing.T) {
	modes := map[string]CreateOptions{
		"encrypted":        {Encrypt: true},
		"encrypted hashed": {Encrypt: true, Hash: true},
		"plain hashed":     {Hash: true},
		"compressed":       {Compress: true, Hash: true},
	}

	for _, backend := range contentBackends {
		for mode, opts := range modes {
			t.Run(backend.name+"/"+mode, func(t *testing.T) {
				ctx := context.Background()
				f := newFaultFixture(t, backend.open(t), Options{})
				require.NoError(t, f.store.CreateFile(ctx, "f", []byte("old"), opts))

				before, ok := f.store.Entry("f")
				require.True(t, ok)

				f.meta.fail(true, false)
				err := f.store.UpdateFile(ctx, "f", []byte("new content"))
				assertCode(t, ErrStorageFailure, err)

				after, ok := f.store.Entry("f")
				require.True(t, ok)
				assert.Equal(t, before.Key, after.Key)
				assert.Equal(t, before.Hash, after.Hash)
				f.assertContent(t, "f", "old")

				f.reopen(t)
				f.assertContent(t, "f", "old")
				if opts.Hash {
					require.NoError(t, f.store.CheckFileHash(ctx, "f"))
				}

				require.NoError(t, f.store.UpdateFile(ctx, "f", []byte("new content")))
				f.assertContent(t, "f", "new content")
			})
		}
	}
}

func TestAppendMetadataFailureKeepsPreviousContent(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		file CreateOptions
	}{
		{"plain hashed", Options{}, CreateOptions{Hash: true}},
		{"gzip hashed", Options{}, CreateOptions{Compress: true, Hash: true}},
		{"lz4 hashed", Options{Compression: compression.LZ4}, CreateOptions{Compress: true, Hash: true}},
		{"encrypted", Options{}, CreateOptions{Encrypt: true}},
	}

	for _, backend := range contentBackends {
		for _, tt := range tests {
			t.Run(backend.name+"/"+tt.name, func(t *testing.T) {
				ctx := context.Background()
				f := newFaultFixture(t, backend.open(t), tt.opts)
				require.NoError(t, f.store.CreateFile(ctx, "f", []byte("AB"), tt.file))

				f.meta.fail(true, false)
				err := f.store.AppendFile(ctx, "f", []byte("CD"))
				assertCode(t, ErrStorageFailure, err)
				f.assertContent(t, "f", "AB")

				f.reopen(t)
				f.assertContent(t, "f", "AB")
				if tt.file.Hash {
					require.NoError(t, f.store.CheckFileHash(ctx, "f"))
				}

				require.NoError(t, f.store.AppendFile(ctx, "f", []byte("CD")))
				f.assertContent(t, "f", "ABCD")
			})
		}
	}
}

func TestChangeFilePathMetadataFailureMovesBack(t *testing.T) {
	for _, backend := range contentBackends {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFaultFixture(t, backend.open(t), Options{})
			require.NoError(t, f.store.CreateFile(ctx, "f", []byte("content"), CreateOptions{Hash: true}))
			require.NoError(t, f.files.MkdirAll(ctx, "archive"))

			f.meta.fail(true, false)
			err := f.store.ChangeFilePath(ctx, "f", "archive")
			assertCode(t, ErrStorageFailure, err)

			info, err := f.store.Stat(ctx, "f")
			require.NoError(t, err)
			assert.Equal(t, "f.txt", info.Path)
			assert.True(t, f.exists(t, "f.txt"))
			assert.False(t, f.exists(t, "archive/f.txt"))

			f.reopen(t)
			info, err = f.store.Stat(ctx, "f")
			require.NoError(t, err)
			assert.Equal(t, "f.txt", info.Path)
			f.assertContent(t, "f", "content")

			require.NoError(t, f.store.ChangeFilePath(ctx, "f", "archive"))
			f.assertContent(t, "f", "content")
		})
	}
}

func TestDeleteMetadataFailureKeepsRegistration(t *testing.T) {
	ctx := context.Background()
	f := newFaultFixture(t, contentBackends[0].open(t), Options{})
	require.NoError(t, f.store.CreateFile(ctx, "f", []byte("content"), CreateOptions{}))

	f.meta.fail(false, true)
	err := f.store.DeleteFile(ctx, "f")
	assertCode(t, ErrStorageFailure, err)

	// The file is gone but the name still resolves, so the failure is visible
	assert.True(t, f.store.Has("f"))
	assertCode(t, ErrFileDoesNotExist, f.store.DeleteFile(ctx, "f"))

	f.heal()
	require.NoError(t, f.store.Forget(ctx, "f"))
	assert.False(t, f.store.Has("f"))
	assert.Empty(t, f.metaKeys(t))
}
