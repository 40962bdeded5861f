package store

import (
	"context"

	// Registers the "mem://" URL scheme used by OpenMemStore.
	_ "gocloud.dev/blob/memblob"
)

// OpenMemStore opens an in-process BlobStore backed by memblob, for tests
// and scratch use.
func OpenMemStore(ctx context.Context) (*BlobStore, error) {
	return OpenBlobStore(ctx, "mem://")
}
