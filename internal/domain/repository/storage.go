package repository

import (
	"context"
	"io"

	"github.com/hszk-dev/streamgate/internal/domain/model"
)

// ObjectBackend is the read contract shared by every storage backend.
// Implementations are provided by the infrastructure layer (e.g., MinIO, Google Drive)
// and must support many concurrent OpenRange calls.
type ObjectBackend interface {
	// Kind reports which backend this is.
	Kind() model.BackendKind

	// Metadata returns size, content type and display name of an object.
	// Returns ErrObjectNotFound if the object does not exist, ErrQuotaExceeded on quota
	// or rate-limit rejection, and ErrBackendUnavailable for any other remote failure.
	Metadata(ctx context.Context, key string) (*model.ObjectInfo, error)

	// OpenRange opens a read of the inclusive byte range [start, end].
	// The returned reader yields at most end-start+1 bytes. Closing it releases the
	// underlying connection; cancelling ctx aborts in-flight reads.
	OpenRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error)
}
