// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

//go:build integration

package objectstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tomtom215/astrarium/internal/config"
	"github.com/tomtom215/astrarium/internal/testinfra"
)

const testBucket = "astrarium-test"

// setupMinIO starts a MinIO container, creates the test bucket, and
// returns a connected Client.
func setupMinIO(t *testing.T) (*Client, context.Context) {
	t.Helper()
	testinfra.SkipIfNoDocker(t)

	ctx := context.Background()

	mc, err := testinfra.NewMinIOContainer(ctx)
	if err != nil {
		t.Fatalf("Failed to start MinIO container: %v", err)
	}
	t.Cleanup(func() {
		if err := mc.Terminate(ctx); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	// Create the bucket with a raw client before wiring our own, which
	// refuses to connect to a missing bucket.
	raw, err := minio.New(mc.Endpoint, &minio.Options{
		Creds: credentials.NewStaticV4(mc.AccessKey, mc.SecretKey, ""),
	})
	if err != nil {
		t.Fatalf("Failed to create raw MinIO client: %v", err)
	}
	mkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := raw.MakeBucket(mkCtx, testBucket, minio.MakeBucketOptions{}); err != nil {
		t.Fatalf("Failed to create bucket: %v", err)
	}

	client, err := New(ctx, &config.ObjectStoreConfig{
		Enabled:   true,
		Endpoint:  mc.Endpoint,
		AccessKey: mc.AccessKey,
		SecretKey: mc.SecretKey,
		UseSSL:    false,
		Bucket:    testBucket,
		Region:    "us-east-1",
	})
	if err != nil {
		t.Fatalf("Failed to create object store client: %v", err)
	}

	return client, ctx
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	client, ctx := setupMinIO(t)

	src := t.TempDir()
	writeFile(t, filepath.Join(src, "2018", "11", "2018-11-12-events.json"), `{"page":"NextSong"}`)
	writeFile(t, filepath.Join(src, "2018", "11", "2018-11-13-events.json"), `{"page":"Home"}`)

	url := "s3://" + testBucket + "/raw/log_data"

	uploaded, err := client.UploadDir(ctx, src, url)
	if err != nil {
		t.Fatalf("UploadDir() error = %v", err)
	}
	if uploaded != 2 {
		t.Errorf("UploadDir() = %d objects, want 2", uploaded)
	}

	has, err := client.HasObjects(ctx, url)
	if err != nil {
		t.Fatalf("HasObjects() error = %v", err)
	}
	if !has {
		t.Error("HasObjects() = false after upload, want true")
	}

	dst := t.TempDir()
	downloaded, err := client.DownloadPrefix(ctx, url, dst)
	if err != nil {
		t.Fatalf("DownloadPrefix() error = %v", err)
	}
	if downloaded != 2 {
		t.Errorf("DownloadPrefix() = %d objects, want 2", downloaded)
	}

	// Key hierarchy below the prefix must be preserved.
	got, err := os.ReadFile(filepath.Join(dst, "2018", "11", "2018-11-12-events.json"))
	if err != nil {
		t.Fatalf("Downloaded file missing: %v", err)
	}
	if string(got) != `{"page":"NextSong"}` {
		t.Errorf("Downloaded content = %q, want original", got)
	}
}

func TestDownloadPrefixEmpty(t *testing.T) {
	client, ctx := setupMinIO(t)

	_, err := client.DownloadPrefix(ctx, "s3://"+testBucket+"/does/not/exist", t.TempDir())
	if err == nil {
		t.Fatal("DownloadPrefix() on empty prefix = nil error, want error")
	}
}

func TestRemovePrefix(t *testing.T) {
	client, ctx := setupMinIO(t)

	src := t.TempDir()
	writeFile(t, filepath.Join(src, "songs", "data_0.parquet"), "not really parquet")

	url := "s3://" + testBucket + "/lake"
	if _, err := client.UploadDir(ctx, src, url); err != nil {
		t.Fatalf("UploadDir() error = %v", err)
	}

	removed, err := client.RemovePrefix(ctx, url)
	if err != nil {
		t.Fatalf("RemovePrefix() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("RemovePrefix() = %d objects, want 1", removed)
	}

	has, err := client.HasObjects(ctx, url)
	if err != nil {
		t.Fatalf("HasObjects() error = %v", err)
	}
	if has {
		t.Error("HasObjects() = true after removal, want false")
	}
}
