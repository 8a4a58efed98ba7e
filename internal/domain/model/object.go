package model

import (
	"errors"
	"fmt"
)

// BackendKind identifies which storage backend holds an object.
type BackendKind string

const (
	BackendHostedDrive BackendKind = "drive"
	BackendObjectStore BackendKind = "object"
)

func (k BackendKind) IsValid() bool {
	switch k {
	case BackendHostedDrive, BackendObjectStore:
		return true
	default:
		return false
	}
}

func (k BackendKind) String() string {
	return string(k)
}

// ObjectInfo is the metadata a storage backend reports for a single object.
type ObjectInfo struct {
	Key         string
	Name        string
	Size        int64
	ContentType string
}

// ObjectRef is an object resolved from a public token.
// It is derived once per request and never mutated afterwards.
type ObjectRef struct {
	Kind        BackendKind
	Key         string
	Name        string
	Size        int64
	ContentType string
}

var ErrInvalidBackendKind = errors.New("invalid backend kind")

// NewObjectRef builds an ObjectRef from backend metadata.
func NewObjectRef(kind BackendKind, info *ObjectInfo) (*ObjectRef, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBackendKind, kind)
	}
	return &ObjectRef{
		Kind:        kind,
		Key:         info.Key,
		Name:        info.Name,
		Size:        info.Size,
		ContentType: info.ContentType,
	}, nil
}
