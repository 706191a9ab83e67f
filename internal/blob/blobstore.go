// Package blob selects and wires the image blob store backends.
package blob

import (
	"context"
	"fmt"
	"path"

	"github.com/google/uuid"

	"storecore/internal/blob/core"
	fsstore "storecore/internal/infra/blob/fs"
	memorystore "storecore/internal/infra/blob/memory"
	s3store "storecore/internal/infra/blob/s3"
)

// Re-exported abstractions so callers depend on one package.
type (
	Store      = core.Store
	Driver     = core.Driver
	Info       = core.Info
	PutOptions = core.PutOptions
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

// ErrNotFound mirrors core.ErrNotFound.
var ErrNotFound = core.ErrNotFound

// Config selects and parameterizes a backend.
type Config struct {
	Driver Driver
	FSRoot string // driver=fs: directory root
	S3     s3store.Config
}

// Open constructs the configured blob store. An empty driver defaults to the
// filesystem backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return fsstore.New(cfg.FSRoot)
	case DriverS3:
		return s3store.New(ctx, cfg.S3)
	case DriverMemory:
		return memorystore.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// NewMemory returns an in-memory store for tests.
func NewMemory() Store { return memorystore.New() }

// ImageKey builds a collision-free object key for a product image, keeping
// the original file extension for content-type sniffing.
func ImageKey(productID int64, filename string) string {
	return fmt.Sprintf("products/%d/%s%s", productID, uuid.NewString(), path.Ext(filename))
}
