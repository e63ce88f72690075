// Package s3 implements the file primitives on Amazon S3 or any
// S3-compatible object store.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/marmos91/keepfs/pkg/store/content"
)

// S3ContentStore implements content.ContentStore on an S3 bucket.
//
// Path-Based Key Design:
// A store path maps directly to an object key, prefixed by KeyPrefix:
//
//	Path:       "docs/notes.txt"
//	Key Prefix: "keepfs/"
//	S3 Key:     "keepfs/docs/notes.txt"
//
// S3 Characteristics:
//   - Directories are implicit, so DirExists is always true and MkdirAll is a no-op
//   - Objects are immutable: writes are buffered and uploaded on Close
//   - Append downloads the object and uploads the concatenation
//   - Move is CopyObject followed by DeleteObject
//
// Thread Safety:
// Safe for concurrent use. Concurrent writers to the same key are
// last-write-wins.
type S3ContentStore struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// S3ContentStoreConfig contains configuration for the S3 content store.
type S3ContentStoreConfig struct {
	// Client is the configured S3 client
	Client *s3.Client

	// Bucket is the S3 bucket name. It must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys
	KeyPrefix string
}

// NewS3ContentStore creates an S3-backed content store and verifies that
// the bucket is reachable.
func NewS3ContentStore(ctx context.Context, cfg S3ContentStoreConfig) (*S3ContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	prefix := cfg.KeyPrefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &S3ContentStore{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: prefix,
	}, nil
}

func (s *S3ContentStore) objectKey(p string) (string, error) {
	clean, err := content.CleanPath(p)
	if err != nil {
		return "", err
	}
	if clean == "" {
		return "", fmt.Errorf("empty object key: %w", content.ErrInvalidPath)
	}
	return s.keyPrefix + clean, nil
}

// isNotFound recognises both NoSuchKey (GetObject) and the bare 404 that
// HeadObject returns.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	return false
}

func (s *S3ContentStore) head(ctx context.Context, key string) (*s3.HeadObjectOutput, error) {
	return s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
}

func (s *S3ContentStore) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	key, err := s.objectKey(p)
	if err != nil {
		return false, err
	}

	if _, err := s.head(ctx, key); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

// DirExists always reports true: S3 has no directories.
func (s *S3ContentStore) DirExists(ctx context.Context, dir string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, err := content.CleanPath(dir); err != nil {
		return false, err
	}
	return true, nil
}

func (s *S3ContentStore) MkdirAll(ctx context.Context, dir string) error {
	return ctx.Err()
}

func (s *S3ContentStore) Create(ctx context.Context, p string) (content.Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := s.objectKey(p)
	if err != nil {
		return nil, err
	}

	exists, err := s.Exists(ctx, p)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("create %s: %w", p, content.ErrAlreadyExists)
	}

	return &objectWriter{ctx: ctx, store: s, key: key, path: p, exclusive: true}, nil
}

func (s *S3ContentStore) OpenWrite(ctx context.Context, p string) (content.Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := s.objectKey(p)
	if err != nil {
		return nil, err
	}
	return &objectWriter{ctx: ctx, store: s, key: key, path: p}, nil
}

func (s *S3ContentStore) OpenAppend(ctx context.Context, p string) (content.Writer, error) {
	r, err := s.Open(ctx, p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	key, err := s.objectKey(p)
	if err != nil {
		return nil, err
	}

	w := &objectWriter{ctx: ctx, store: s, key: key, path: p}
	if _, err := io.Copy(&w.buf, r); err != nil {
		return nil, fmt.Errorf("failed to read %s for append: %w", p, err)
	}
	return w, nil
}

func (s *S3ContentStore) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := s.objectKey(p)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("open %s: %w", p, content.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	return out.Body, nil
}

func (s *S3ContentStore) Stat(ctx context.Context, p string) (content.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return content.FileInfo{}, err
	}

	key, err := s.objectKey(p)
	if err != nil {
		return content.FileInfo{}, err
	}

	out, err := s.head(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return content.FileInfo{}, fmt.Errorf("stat %s: %w", p, content.ErrNotFound)
		}
		return content.FileInfo{}, fmt.Errorf("failed to head object: %w", err)
	}

	info := content.FileInfo{Size: aws.ToInt64(out.ContentLength)}
	if out.LastModified != nil {
		info.ModTime = *out.LastModified
	}
	return info, nil
}

func (s *S3ContentStore) Move(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from, err := s.objectKey(src)
	if err != nil {
		return err
	}
	to, err := s.objectKey(dst)
	if err != nil {
		return err
	}

	if _, err := s.head(ctx, from); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("move %s: %w", src, content.ErrNotFound)
		}
		return fmt.Errorf("failed to head object: %w", err)
	}

	exists, err := s.Exists(ctx, dst)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("move to %s: %w", dst, content.ErrAlreadyExists)
	}

	_, err = s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(to),
		CopySource: aws.String(s.bucket + "/" + url.PathEscape(from)),
	})
	if err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}

	if err := s.deleteObject(ctx, from); err != nil {
		return fmt.Errorf("copied %s to %s but failed to delete source: %w", src, dst, err)
	}
	return nil
}

func (s *S3ContentStore) Remove(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := s.objectKey(p)
	if err != nil {
		return err
	}

	// DeleteObject succeeds for missing keys, so existence is checked first.
	if _, err := s.head(ctx, key); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("remove %s: %w", p, content.ErrNotFound)
		}
		return fmt.Errorf("failed to head object: %w", err)
	}

	return s.deleteObject(ctx, key)
}

func (s *S3ContentStore) deleteObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Close is a no-op; the S3 client has no resources to release.
func (s *S3ContentStore) Close() error {
	return nil
}

// objectWriter buffers the object body and uploads it on Close.
type objectWriter struct {
	ctx       context.Context
	store     *S3ContentStore
	key       string
	path      string
	buf       bytes.Buffer
	exclusive bool
	done      bool
}

func (w *objectWriter) Write(p []byte) (int, error) {
	if w.done {
		return 0, fmt.Errorf("write %s: writer closed", w.path)
	}
	return w.buf.Write(p)
}

func (w *objectWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true

	input := &s3.PutObjectInput{
		Bucket:        aws.String(w.store.bucket),
		Key:           aws.String(w.key),
		Body:          bytes.NewReader(w.buf.Bytes()),
		ContentLength: aws.Int64(int64(w.buf.Len())),
	}
	if w.exclusive {
		input.IfNoneMatch = aws.String("*")
	}

	if _, err := w.store.client.PutObject(w.ctx, input); err != nil {
		if w.exclusive && isPreconditionFailed(err) {
			return fmt.Errorf("create %s: %w", w.path, content.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to upload %s: %w", w.path, err)
	}
	return nil
}

func (w *objectWriter) Abort() error {
	w.done = true
	w.buf.Reset()
	return nil
}
