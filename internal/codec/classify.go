package codec

import (
	"regexp"

	"github.com/hszk-dev/streamgate/internal/domain/model"
)

// driveIDPattern matches hosted-drive file IDs: long opaque runs of URL-safe
// characters with no path separators. Object-store keys never match unless
// they are a single segment of 25 or more such characters, so every backend
// added later needs a key format that is structurally distinguishable.
var driveIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{25,}$`)

// Classify decides which backend holds a decoded storage key.
func Classify(storageKey string) model.BackendKind {
	if driveIDPattern.MatchString(storageKey) {
		return model.BackendHostedDrive
	}
	return model.BackendObjectStore
}
