package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/marmos91/keepfs/pkg/codec/compression"
	"github.com/marmos91/keepfs/pkg/codec/encryption"
	"github.com/marmos91/keepfs/pkg/codec/integrity"
	"github.com/marmos91/keepfs/pkg/filestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateContentStore_Filesystem(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "files")

	store, err := CreateContentStore(ctx, &ContentConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{"path": dir},
	})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ok, err := store.DirExists(ctx, "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.DirExists(t, dir)
}

func TestCreateContentStore_FilesystemMissingPath(t *testing.T) {
	_, err := CreateContentStore(context.Background(), &ContentConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestCreateContentStore_Memory(t *testing.T) {
	store, err := CreateContentStore(context.Background(), &ContentConfig{Type: "memory"})
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestCreateContentStore_S3RequiresBucket(t *testing.T) {
	_, err := CreateContentStore(context.Background(), &ContentConfig{
		Type: "s3",
		S3:   map[string]any{"region": "us-east-1"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket is required")
}

func TestCreateContentStore_UnknownType(t *testing.T) {
	_, err := CreateContentStore(context.Background(), &ContentConfig{Type: "ftp"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown content store type")
}

func TestCreateContentStore_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CreateContentStore(ctx, &ContentConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{"path": t.TempDir()},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCreateMetadataStore(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		cfg  MetadataConfig
	}{
		{"memory", MetadataConfig{Type: "memory"}},
		{"badger", MetadataConfig{Type: "badger", Badger: map[string]any{"in_memory": true}}},
		{"bolt", MetadataConfig{Type: "bolt", Bolt: map[string]any{
			"path":    filepath.Join(tmpDir, "meta", "bolt.db"),
			"timeout": "2s",
		}}},
		{"sqlite", MetadataConfig{Type: "sqlite", SQLite: map[string]any{"path": filepath.Join(tmpDir, "meta.sqlite")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()

			store, err := CreateMetadataStore(ctx, &tt.cfg)
			require.NoError(t, err)
			defer func() { _ = store.Close() }()

			require.NoError(t, store.Set(ctx, "entry:a", []byte("1")))
			value, err := store.Get(ctx, "entry:a")
			require.NoError(t, err)
			assert.Equal(t, []byte("1"), value)
		})
	}
}

func TestCreateMetadataStore_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  MetadataConfig
		want string
	}{
		{"unknown type", MetadataConfig{Type: "redis"}, "unknown metadata store type"},
		{"badger without path", MetadataConfig{Type: "badger"}, "db_path is required"},
		{"bolt without path", MetadataConfig{Type: "bolt"}, "path is required"},
		{"bad duration", MetadataConfig{Type: "bolt", Bolt: map[string]any{"path": "x.db", "timeout": "soon"}}, "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateMetadataStore(context.Background(), &tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCreateMetadataStore_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CreateMetadataStore(ctx, &MetadataConfig{Type: "memory"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStoreOptions(t *testing.T) {
	opts, err := StoreOptions(&StoreConfig{
		BaseDirectory:    "vault",
		DefaultExtension: ".md",
		IndexPath:        "names.save",
		KeyPrefix:        "file:",
		Cipher:           "xchacha20",
		Compression:      "zstd",
		Hash:             "blake3",
	})
	require.NoError(t, err)

	assert.Equal(t, filestore.Options{
		BaseDir:          "vault",
		DefaultExtension: ".md",
		IndexPath:        "names.save",
		KeyPrefix:        "file:",
		Cipher:           encryption.XChaCha20,
		Compression:      compression.Zstd,
		Hash:             integrity.BLAKE3,
	}, opts)

	_, err = StoreOptions(&StoreConfig{Cipher: "rot13"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.cipher")
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	cfg := validConfig()
	cfg.Store.BaseDirectory = "vault"

	store, cleanup, err := OpenStore(ctx, cfg, nil)
	require.NoError(t, err)
	defer cleanup()
	defer func() { _ = store.Close(ctx) }()

	require.NoError(t, store.CreateFile(ctx, "notes", []byte("hello"), filestore.CreateOptions{Hash: true}))
	data, err := store.ReadFile(ctx, "notes")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	info, err := store.Stat(ctx, "notes")
	require.NoError(t, err)
	assert.Equal(t, "vault/notes.txt", info.Path)
}

func TestOpenStore_InvalidStoreSection(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Hash = "md5"

	_, _, err := OpenStore(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.hash")
}
