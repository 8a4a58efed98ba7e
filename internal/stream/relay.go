package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/hszk-dev/streamgate/internal/domain/model"
)

// DefaultBufferSize is the size of one relay chunk.
const DefaultBufferSize = 32 * 1024

var (
	// ErrClientDisconnected is returned when the client went away mid-stream.
	// It is expected and frequent; callers should not treat it as an operational error.
	ErrClientDisconnected = errors.New("client disconnected")

	// ErrShortRead is returned when the backend stream ends before the window is complete.
	ErrShortRead = errors.New("backend stream ended early")

	// ErrInvalidState is returned when a Session method is called out of order.
	ErrInvalidState = errors.New("invalid relay state")
)

// State is the lifecycle position of a relay Session.
//
//	Idle -> HeadersSent -> Streaming -> Completed
//	                                \-> Aborted
type State int

const (
	StateIdle State = iota
	StateHeadersSent
	StateStreaming
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHeadersSent:
		return "headers_sent"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, DefaultBufferSize)
		return &b
	},
}

// Session is the live pipe from one backend stream to one client response.
// It owns body exclusively and closes it exactly once.
type Session struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	body    io.ReadCloser
	window  model.ServingWindow
	bufSize int

	state   State
	written int64

	closeOnce sync.Once
}

// NewSession creates a Session that will relay window.Length() bytes from body to w.
// bufSize <= 0 selects DefaultBufferSize.
func NewSession(w http.ResponseWriter, body io.ReadCloser, window model.ServingWindow, bufSize int) *Session {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &Session{
		w:       w,
		rc:      http.NewResponseController(w),
		body:    body,
		window:  window,
		bufSize: bufSize,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// BytesWritten returns the number of body bytes accepted by the client so far.
func (s *Session) BytesWritten() int64 {
	return s.written
}

// WriteHeader commits the response status. Headers must be set on the
// ResponseWriter before calling it.
func (s *Session) WriteHeader(status int) error {
	if s.state != StateIdle {
		return fmt.Errorf("%w: write header in %s", ErrInvalidState, s.state)
	}
	s.w.WriteHeader(status)
	s.state = StateHeadersSent
	return nil
}

// Pump relays the window. A chunk is read from the backend only after the
// previous one was written and flushed to the client, so a slow client slows
// the backend read instead of growing a buffer.
//
// Cancelling ctx closes the backend stream immediately, which unblocks a read
// in flight; Pump then returns ErrClientDisconnected. Any other failure leaves
// the Session Aborted with headers already committed, so the caller must
// terminate the connection rather than write an error body.
func (s *Session) Pump(ctx context.Context) (int64, error) {
	if s.state != StateHeadersSent {
		return 0, fmt.Errorf("%w: pump in %s", ErrInvalidState, s.state)
	}
	s.state = StateStreaming

	stop := context.AfterFunc(ctx, s.closeBody)
	defer stop()
	defer s.closeBody()

	buf, release := s.buffer()
	defer release()

	remaining := s.window.Length()
	for remaining > 0 {
		if ctx.Err() != nil {
			return s.abort(ErrClientDisconnected)
		}

		n := min(int64(len(buf)), remaining)
		nr, rerr := s.body.Read(buf[:n])
		if nr > 0 {
			nw, werr := s.w.Write(buf[:nr])
			s.written += int64(nw)
			remaining -= int64(nw)
			if werr != nil {
				return s.abort(fmt.Errorf("%w: %v", ErrClientDisconnected, werr))
			}
			if nw < nr {
				return s.abort(fmt.Errorf("%w: %v", ErrClientDisconnected, io.ErrShortWrite))
			}
			if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
				return s.abort(fmt.Errorf("%w: %v", ErrClientDisconnected, err))
			}
		}

		if rerr != nil {
			if ctx.Err() != nil {
				return s.abort(ErrClientDisconnected)
			}
			if errors.Is(rerr, io.EOF) {
				if remaining > 0 {
					return s.abort(fmt.Errorf("%w: %d of %d bytes", ErrShortRead, s.written, s.window.Length()))
				}
				break
			}
			return s.abort(fmt.Errorf("read backend stream: %w", rerr))
		}
	}

	s.state = StateCompleted
	return s.written, nil
}

// Close releases the backend stream without relaying. It is safe to call
// after Pump and more than once.
func (s *Session) Close() {
	if s.state == StateIdle || s.state == StateHeadersSent {
		s.state = StateAborted
	}
	s.closeBody()
}

func (s *Session) abort(err error) (int64, error) {
	s.state = StateAborted
	s.closeBody()
	return s.written, err
}

func (s *Session) closeBody() {
	s.closeOnce.Do(func() {
		_ = s.body.Close()
	})
}

func (s *Session) buffer() ([]byte, func()) {
	if s.bufSize != DefaultBufferSize {
		return make([]byte, s.bufSize), func() {}
	}
	bp := bufferPool.Get().(*[]byte)
	return *bp, func() { bufferPool.Put(bp) }
}
