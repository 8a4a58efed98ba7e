package usecase

import (
	"context"
	"fmt"
	"io"

	"github.com/hszk-dev/streamgate/internal/codec"
	"github.com/hszk-dev/streamgate/internal/domain/model"
	"github.com/hszk-dev/streamgate/internal/domain/repository"
	"github.com/hszk-dev/streamgate/internal/stream"
)

// TokenDecoder turns public tokens back into storage keys.
// *codec.Codec satisfies this interface.
type TokenDecoder interface {
	Open(token string) (string, bool)
	Decode(token string) string
}

// RangeNotSatisfiableError reports an unusable Range together with the object
// size, which a 416 response advertises.
type RangeNotSatisfiableError struct {
	Total int64
	Err   error
}

func (e *RangeNotSatisfiableError) Error() string {
	return e.Err.Error()
}

func (e *RangeNotSatisfiableError) Unwrap() error {
	return e.Err
}

// StreamPlan is a resolved object plus the window to serve from it.
type StreamPlan struct {
	Token  string
	Ref    *model.ObjectRef
	Window model.ServingWindow
}

// StreamService defines the interface for stream orchestration.
type StreamService interface {
	// Resolve decodes token, picks the backend for the key and fetches metadata.
	Resolve(ctx context.Context, token string) (*model.ObjectRef, error)

	// Prepare resolves token and negotiates rangeHeader against the object size.
	// hasRange reports whether the request carried a Range header.
	Prepare(ctx context.Context, token, rangeHeader string, hasRange bool) (*StreamPlan, error)

	// Open starts the ranged backend read for plan.
	// Caller is responsible for closing the returned reader.
	Open(ctx context.Context, plan *StreamPlan) (io.ReadCloser, error)
}

// StreamServiceConfig holds configuration for StreamService.
type StreamServiceConfig struct {
	// AllowTokenPassthrough treats a token that fails to decode as a raw
	// storage key, for links minted before tokens were encrypted.
	AllowTokenPassthrough bool
}

type streamService struct {
	decoder     TokenDecoder
	backends    map[model.BackendKind]repository.ObjectBackend
	passthrough bool
}

// NewStreamService creates a new StreamService instance.
// Backends are registered by their Kind; a later backend of the same kind replaces an earlier one.
func NewStreamService(
	decoder TokenDecoder,
	backends []repository.ObjectBackend,
	cfg StreamServiceConfig,
) StreamService {
	registry := make(map[model.BackendKind]repository.ObjectBackend, len(backends))
	for _, b := range backends {
		registry[b.Kind()] = b
	}

	return &streamService{
		decoder:     decoder,
		backends:    registry,
		passthrough: cfg.AllowTokenPassthrough,
	}
}

// Resolve maps a public token to an object on its backend.
func (s *streamService) Resolve(ctx context.Context, token string) (*model.ObjectRef, error) {
	key, err := s.decode(token)
	if err != nil {
		return nil, err
	}

	kind := codec.Classify(key)
	backend, ok := s.backends[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrNoBackend, kind)
	}

	info, err := backend.Metadata(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("resolve %s object: %w", kind, err)
	}

	ref, err := model.NewObjectRef(kind, info)
	if err != nil {
		return nil, fmt.Errorf("resolve %s object: %w", kind, err)
	}
	return ref, nil
}

// Prepare resolves token and computes the serving window.
func (s *streamService) Prepare(ctx context.Context, token, rangeHeader string, hasRange bool) (*StreamPlan, error) {
	ref, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	window, err := stream.Negotiate(rangeHeader, hasRange, ref.Size)
	if err != nil {
		return nil, &RangeNotSatisfiableError{Total: ref.Size, Err: err}
	}

	return &StreamPlan{
		Token:  token,
		Ref:    ref,
		Window: window,
	}, nil
}

// Open starts the backend read for the plan's window.
func (s *streamService) Open(ctx context.Context, plan *StreamPlan) (io.ReadCloser, error) {
	backend, ok := s.backends[plan.Ref.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrNoBackend, plan.Ref.Kind)
	}

	rc, err := backend.OpenRange(ctx, plan.Ref.Key, plan.Window.Start, plan.Window.End)
	if err != nil {
		return nil, fmt.Errorf("open %s range %d-%d: %w", plan.Ref.Kind, plan.Window.Start, plan.Window.End, err)
	}
	return rc, nil
}

func (s *streamService) decode(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: empty token", repository.ErrObjectNotFound)
	}

	if s.passthrough {
		return s.decoder.Decode(token), nil
	}

	key, ok := s.decoder.Open(token)
	if !ok {
		return "", fmt.Errorf("%w: undecodable token", repository.ErrObjectNotFound)
	}
	return key, nil
}
