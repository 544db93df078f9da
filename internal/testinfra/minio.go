// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultMinIOImage is the MinIO server image used for object-store tests.
	DefaultMinIOImage = "minio/minio:latest"

	// DefaultMinIOPort is the MinIO S3 API port.
	DefaultMinIOPort = "9000"

	// DefaultMinIOAccessKey and DefaultMinIOSecretKey are the test credentials.
	DefaultMinIOAccessKey = "minioadmin"
	DefaultMinIOSecretKey = "minioadmin"
)

// MinIOContainer represents a running MinIO container for testing.
type MinIOContainer struct {
	testcontainers.Container
	Endpoint  string // host:port for the S3 API, no scheme
	AccessKey string
	SecretKey string
}

// MinIOOption configures the MinIO container.
type MinIOOption func(*minioConfig)

type minioConfig struct {
	image        string
	accessKey    string
	secretKey    string
	startTimeout time.Duration
}

// WithMinIOImage sets a custom MinIO Docker image.
func WithMinIOImage(image string) MinIOOption {
	return func(c *minioConfig) {
		c.image = image
	}
}

// WithMinIOCredentials sets custom root credentials.
func WithMinIOCredentials(accessKey, secretKey string) MinIOOption {
	return func(c *minioConfig) {
		c.accessKey = accessKey
		c.secretKey = secretKey
	}
}

// WithMinIOStartTimeout sets the timeout for waiting for MinIO to start.
func WithMinIOStartTimeout(timeout time.Duration) MinIOOption {
	return func(c *minioConfig) {
		c.startTimeout = timeout
	}
}

// NewMinIOContainer creates and starts a MinIO container for testing.
//
// Example:
//
//	ctx := context.Background()
//	mc, err := NewMinIOContainer(ctx)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer mc.Terminate(ctx)
func NewMinIOContainer(ctx context.Context, opts ...MinIOOption) (*MinIOContainer, error) {
	cfg := &minioConfig{
		image:        DefaultMinIOImage,
		accessKey:    DefaultMinIOAccessKey,
		secretKey:    DefaultMinIOSecretKey,
		startTimeout: 60 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{DefaultMinIOPort + "/tcp"},
		Cmd:          []string{"server", "/data"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     cfg.accessKey,
			"MINIO_ROOT_PASSWORD": cfg.secretKey,
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(DefaultMinIOPort+"/tcp"),
			wait.ForHTTP("/minio/health/live").WithPort(DefaultMinIOPort+"/tcp"),
		).WithStartupTimeout(cfg.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, DefaultMinIOPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped port: %w", err)
	}

	return &MinIOContainer{
		Container: container,
		Endpoint:  fmt.Sprintf("%s:%s", host, port.Port()),
		AccessKey: cfg.accessKey,
		SecretKey: cfg.secretKey,
	}, nil
}

// Terminate stops and removes the container.
func (c *MinIOContainer) Terminate(ctx context.Context) error {
	if c.Container == nil {
		return nil
	}
	return c.Container.Terminate(ctx)
}
