package domain

import "context"

// BlobStore persists opaque blobs under fixed string keys. Implementations
// must treat an absent key as ErrBlobNotFound rather than an empty value.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// ProductSource supplies the full product list for scheduled scans. It is
// the boundary to the host's catalog persistence; the engine never writes
// through it.
type ProductSource interface {
	FetchProducts(ctx context.Context) ([]Product, error)
}
