// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

// Package testinfra provides test infrastructure for integration testing with containers.
//
// This package uses testcontainers-go to manage Docker containers for integration tests,
// providing realistic testing environments that closely match production.
//
// # MinIO Container
//
// The MinIOContainer provides a real S3-compatible object store for testing
// the input staging and output upload paths:
//
//	func TestStagingRoundTrip(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//
//	    ctx := context.Background()
//	    mc, err := testinfra.NewMinIOContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer mc.Terminate(ctx)
//
//	    store, err := objectstore.New(ctx, &config.ObjectStoreConfig{
//	        Endpoint:  mc.Endpoint,
//	        AccessKey: mc.AccessKey,
//	        SecretKey: mc.SecretKey,
//	        Bucket:    "test-bucket",
//	    })
//	    // ...
//	}
//
// # Benefits Over Mocks
//
// Using real containers provides several advantages:
//   - Tests validate actual S3 API contracts
//   - No mock drift (mocks getting out of sync with the real API)
//   - Tests run against production-equivalent services
//
// # CI Considerations
//
// These tests require Docker and network access. Tests are skipped
// gracefully via SkipIfNoDocker when Docker is unavailable. First run
// may need to download container images; subsequent runs use the cache.
package testinfra
