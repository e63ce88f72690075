package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/keepfs/internal/logger"
	"github.com/marmos91/keepfs/pkg/codec/compression"
	"github.com/marmos91/keepfs/pkg/codec/encryption"
	"github.com/marmos91/keepfs/pkg/codec/integrity"
	"github.com/marmos91/keepfs/pkg/filestore"
	"github.com/marmos91/keepfs/pkg/store/content"
	contentFs "github.com/marmos91/keepfs/pkg/store/content/fs"
	contentMemory "github.com/marmos91/keepfs/pkg/store/content/memory"
	contentS3 "github.com/marmos91/keepfs/pkg/store/content/s3"
	"github.com/marmos91/keepfs/pkg/store/kv"
	"github.com/marmos91/keepfs/pkg/store/kv/badger"
	"github.com/marmos91/keepfs/pkg/store/kv/bolt"
	"github.com/marmos91/keepfs/pkg/store/kv/consul"
	kvMemory "github.com/marmos91/keepfs/pkg/store/kv/memory"
	"github.com/marmos91/keepfs/pkg/store/kv/sqlite"
	"github.com/mitchellh/mapstructure"
)

// CreateContentStore creates a content store based on configuration.
//
// This factory function uses the Type field to determine which store implementation
// to create, then decodes the type-specific configuration from the corresponding
// map and passes it to the store's constructor.
//
// Supported types:
//   - "filesystem": Uses pkg/store/content/fs (local directory)
//   - "memory": Uses pkg/store/content/memory (ephemeral, for tests and dry runs)
//   - "s3": Uses pkg/store/content/s3 (Amazon S3 or compatible storage)
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Content store configuration
//
// Returns:
//   - content.ContentStore: Initialized content store
//   - error: Configuration or initialization error
func CreateContentStore(ctx context.Context, cfg *ContentConfig) (content.ContentStore, error) {
	switch cfg.Type {
	case "filesystem":
		return createFilesystemContentStore(ctx, cfg.Filesystem)
	case "memory":
		return contentMemory.NewMemoryContentStore(ctx)
	case "s3":
		return createS3ContentStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown content store type: %q", cfg.Type)
	}
}

// createFilesystemContentStore creates a filesystem-based content store.
func createFilesystemContentStore(ctx context.Context, options map[string]any) (content.ContentStore, error) {
	var storeCfg contentFs.FSContentStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem content store config: %w", err)
	}
	if storeCfg.Path == "" {
		return nil, fmt.Errorf("filesystem content store: path is required")
	}

	store, err := contentFs.NewFSContentStore(ctx, storeCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem content store: %w", err)
	}

	return store, nil
}

// createS3ContentStore creates an S3-based content store.
func createS3ContentStore(ctx context.Context, options map[string]any) (content.ContentStore, error) {
	type S3Options struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var storeCfg S3Options
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 content store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 content store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 content store: region is required")
	}

	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	// Static credentials if provided, otherwise the default credential chain
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	// Default to 10 attempts (AWS default is 3)
	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Custom endpoints (MinIO, Localstack) need path-style addressing
		if storeCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(storeCfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	// ========================================================================
	// Step 3: Create S3 Content Store
	// ========================================================================

	store, err := contentS3.NewS3ContentStore(ctx, contentS3.S3ContentStoreConfig{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 content store: %w", err)
	}

	logger.Info("S3 content store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return store, nil
}

// CreateMetadataStore creates a metadata store based on configuration.
//
// This factory function uses the Type field to determine which store implementation
// to create, then decodes the type-specific configuration from the corresponding
// map and passes it to the store's constructor.
//
// Supported types:
//   - "memory": Uses pkg/store/kv/memory (ephemeral)
//   - "badger": Uses pkg/store/kv/badger (BadgerDB directory)
//   - "bolt": Uses pkg/store/kv/bolt (single bbolt file)
//   - "sqlite": Uses pkg/store/kv/sqlite (single SQLite file)
//   - "consul": Uses pkg/store/kv/consul (remote Consul KV)
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Metadata store configuration
//
// Returns:
//   - kv.Store: Initialized metadata store
//   - error: Configuration or initialization error
func CreateMetadataStore(ctx context.Context, cfg *MetadataConfig) (kv.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case "memory":
		return kvMemory.NewMemoryStore(), nil
	case "badger":
		var storeCfg badger.BadgerStoreConfig
		if err := decodeOptions(cfg.Badger, &storeCfg); err != nil {
			return nil, fmt.Errorf("failed to decode badger metadata store config: %w", err)
		}
		if storeCfg.DBPath == "" && !storeCfg.InMemory {
			return nil, fmt.Errorf("badger metadata store: db_path is required")
		}
		return badger.NewBadgerStore(ctx, storeCfg)
	case "bolt":
		var storeCfg bolt.BoltStoreConfig
		if err := decodeOptions(cfg.Bolt, &storeCfg); err != nil {
			return nil, fmt.Errorf("failed to decode bolt metadata store config: %w", err)
		}
		return bolt.NewBoltStore(ctx, storeCfg)
	case "sqlite":
		var storeCfg sqlite.SQLiteStoreConfig
		if err := decodeOptions(cfg.SQLite, &storeCfg); err != nil {
			return nil, fmt.Errorf("failed to decode sqlite metadata store config: %w", err)
		}
		return sqlite.NewSQLiteStore(ctx, storeCfg)
	case "consul":
		var storeCfg consul.ConsulStoreConfig
		if err := decodeOptions(cfg.Consul, &storeCfg); err != nil {
			return nil, fmt.Errorf("failed to decode consul metadata store config: %w", err)
		}
		return consul.NewConsulStore(ctx, storeCfg)
	default:
		return nil, fmt.Errorf("unknown metadata store type: %q (supported: memory, badger, bolt, sqlite, consul)", cfg.Type)
	}
}

// decodeOptions decodes a backend section into its config struct. Durations
// may be written as strings ("5s").
func decodeOptions(options map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(options)
}

// StoreOptions converts the store section into filestore options.
//
// Metrics is left nil; callers attach the collector returned by
// InitializeMetrics.
func StoreOptions(cfg *StoreConfig) (filestore.Options, error) {
	cipher, err := encryption.ParseCipher(cfg.Cipher)
	if err != nil {
		return filestore.Options{}, fmt.Errorf("store.cipher: %w", err)
	}
	algorithm, err := compression.ParseAlgorithm(cfg.Compression)
	if err != nil {
		return filestore.Options{}, fmt.Errorf("store.compression: %w", err)
	}
	hash, err := integrity.ParseAlgorithm(cfg.Hash)
	if err != nil {
		return filestore.Options{}, fmt.Errorf("store.hash: %w", err)
	}

	return filestore.Options{
		BaseDir:          cfg.BaseDirectory,
		DefaultExtension: cfg.DefaultExtension,
		IndexPath:        cfg.IndexPath,
		KeyPrefix:        cfg.KeyPrefix,
		Cipher:           cipher,
		Compression:      algorithm,
		Hash:             hash,
	}, nil
}

// OpenStore builds both backends from cfg and opens the file store on top
// of them. The backends are closed again if the store cannot be opened.
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Complete configuration
//   - metrics: Operation metrics (nil disables collection)
//
// Returns:
//   - *filestore.Store: Open store; Close it, then call the returned cleanup
//   - func(): Closes the backends
//   - error: Configuration or initialization error
func OpenStore(ctx context.Context, cfg *Config, metrics filestore.Metrics) (*filestore.Store, func(), error) {
	opts, err := StoreOptions(&cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	opts.Metrics = metrics

	files, err := CreateContentStore(ctx, &cfg.Content)
	if err != nil {
		return nil, nil, err
	}

	meta, err := CreateMetadataStore(ctx, &cfg.Metadata)
	if err != nil {
		_ = files.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := meta.Close(); err != nil {
			logger.Warn("Failed to close metadata store: %v", err)
		}
		if err := files.Close(); err != nil {
			logger.Warn("Failed to close content store: %v", err)
		}
	}

	store, err := filestore.Open(ctx, files, meta, opts)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	logger.Debug("File store opened: content=%s metadata=%s", cfg.Content.Type, cfg.Metadata.Type)
	return store, cleanup, nil
}
