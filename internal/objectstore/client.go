// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

package objectstore

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tomtom215/astrarium/internal/config"
	"github.com/tomtom215/astrarium/internal/logging"
)

// Client wraps a MinIO client for input staging and output upload.
type Client struct {
	mc  *minio.Client
	cfg *config.ObjectStoreConfig
}

// New connects to the configured S3-compatible endpoint and verifies
// the configured bucket is reachable.
func New(ctx context.Context, cfg *config.ObjectStoreConfig) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object store client: %w", err)
	}

	exists, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to object store %s: %w", cfg.Endpoint, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist on %s", cfg.Bucket, cfg.Endpoint)
	}

	logging.Debug().
		Str("endpoint", cfg.Endpoint).
		Str("bucket", cfg.Bucket).
		Msg("Object store connected")

	return &Client{mc: mc, cfg: cfg}, nil
}

// ParseURL splits an s3://bucket/prefix URL into bucket and prefix.
// The prefix may be empty (whole bucket).
func ParseURL(raw string) (bucket, prefix string, err error) {
	if !config.IsObjectStoreURL(raw) {
		return "", "", fmt.Errorf("not an s3:// URL: %q", raw)
	}

	rest := strings.TrimPrefix(raw, "s3://")
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("s3 URL %q has no bucket", raw)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

// DownloadPrefix fetches every object under rawURL into localDir,
// preserving the key hierarchy below the prefix. Returns the number of
// objects downloaded. An empty prefix listing is an error: a run with a
// missing input dataset should abort, not succeed vacuously.
func (c *Client) DownloadPrefix(ctx context.Context, rawURL, localDir string) (int, error) {
	bucket, prefix, err := ParseURL(rawURL)
	if err != nil {
		return 0, err
	}
	if err := ensureLocalDir(localDir); err != nil {
		return 0, err
	}

	listPrefix := prefix
	if listPrefix != "" {
		listPrefix += "/"
	}

	downloaded := 0
	for obj := range c.mc.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    listPrefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return downloaded, fmt.Errorf("failed to list %s: %w", rawURL, obj.Err)
		}
		// Directory markers have no content.
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}

		rel := strings.TrimPrefix(obj.Key, listPrefix)
		local := filepath.Join(localDir, filepath.FromSlash(rel))
		if err := c.mc.FGetObject(ctx, bucket, obj.Key, local, minio.GetObjectOptions{}); err != nil {
			return downloaded, fmt.Errorf("failed to download s3://%s/%s: %w", bucket, obj.Key, err)
		}
		downloaded++
	}

	if downloaded == 0 {
		return 0, fmt.Errorf("no objects found under %s", rawURL)
	}

	logging.Info().
		Str("url", rawURL).
		Str("local_dir", localDir).
		Int("objects", downloaded).
		Msg("Input prefix staged locally")

	return downloaded, nil
}

// UploadDir pushes every regular file under localDir to rawURL,
// preserving the directory hierarchy as key segments. Returns the
// number of objects uploaded.
func (c *Client) UploadDir(ctx context.Context, localDir, rawURL string) (int, error) {
	bucket, prefix, err := ParseURL(rawURL)
	if err != nil {
		return 0, err
	}

	uploaded := 0
	walkErr := filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		key := path.Join(prefix, filepath.ToSlash(rel))

		if _, err := c.mc.FPutObject(ctx, bucket, key, p, minio.PutObjectOptions{
			ContentType: contentTypeFor(p),
		}); err != nil {
			return fmt.Errorf("failed to upload %s to s3://%s/%s: %w", p, bucket, key, err)
		}
		uploaded++
		return nil
	})
	if walkErr != nil {
		return uploaded, fmt.Errorf("failed to upload %s to %s: %w", localDir, rawURL, walkErr)
	}

	logging.Info().
		Str("local_dir", localDir).
		Str("url", rawURL).
		Int("objects", uploaded).
		Msg("Output uploaded to object store")

	return uploaded, nil
}

// RemovePrefix deletes every object under rawURL. Used to honor
// overwrite semantics when the destination is an object store.
func (c *Client) RemovePrefix(ctx context.Context, rawURL string) (int, error) {
	bucket, prefix, err := ParseURL(rawURL)
	if err != nil {
		return 0, err
	}

	listPrefix := prefix
	if listPrefix != "" {
		listPrefix += "/"
	}

	removed := 0
	for obj := range c.mc.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    listPrefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return removed, fmt.Errorf("failed to list %s: %w", rawURL, obj.Err)
		}
		if err := c.mc.RemoveObject(ctx, bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return removed, fmt.Errorf("failed to remove s3://%s/%s: %w", bucket, obj.Key, err)
		}
		removed++
	}
	return removed, nil
}

// HasObjects reports whether any object exists under rawURL.
func (c *Client) HasObjects(ctx context.Context, rawURL string) (bool, error) {
	bucket, prefix, err := ParseURL(rawURL)
	if err != nil {
		return false, err
	}

	listPrefix := prefix
	if listPrefix != "" {
		listPrefix += "/"
	}

	for obj := range c.mc.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    listPrefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return false, fmt.Errorf("failed to list %s: %w", rawURL, obj.Err)
		}
		return true, nil
	}
	return false, nil
}

// contentTypeFor maps output file extensions to MIME types.
func contentTypeFor(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".parquet":
		return "application/vnd.apache.parquet"
	case ".yaml", ".yml":
		return "application/yaml"
	case ".json":
		return "application/x-ndjson"
	default:
		return "application/octet-stream"
	}
}

// ensureLocalDir creates a staging directory if needed.
func ensureLocalDir(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create staging directory %s: %w", dir, err)
	}
	return nil
}
