// Package core defines the abstractions shared by the blob storage backends
// that hold product images.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	// DriverFilesystem is the local filesystem backend (default, dev).
	DriverFilesystem Driver = "fs"
	// DriverS3 is an S3 / MinIO compatible backend.
	DriverS3 Driver = "s3"
	// DriverMemory is the in-process backend used in tests.
	DriverMemory Driver = "memory"
)

// ErrNotFound is returned when a key resolves to no stored blob.
var ErrNotFound = errors.New("blob: not found")

// PutOptions carries optional parameters for Put.
type PutOptions struct {
	ContentType string // MIME type, optional
}

// Info describes a stored blob.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
	URL          string    `json:"url,omitempty"`
}

// Store is a minimal object-storage abstraction: enough surface for storing
// and serving product images, small enough that an S3 adapter is nearly 1:1
// and a filesystem adapter can emulate it.
type Store interface {
	// Put stores a new blob at key and fails if the key already exists.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// Get returns blob metadata and a reader over its content.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// Head returns metadata only.
	Head(ctx context.Context, key string) (Info, error)
	// Delete removes a blob; (false, nil) when the key is absent.
	Delete(ctx context.Context, key string) (bool, error)
	// Driver reports which backend is serving the store.
	Driver() Driver
}
