package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hszk-dev/streamgate/internal/domain/model"
)

// trackingBody is a backend stream that records Close calls.
type trackingBody struct {
	r      io.Reader
	err    error // returned once r is drained, defaults to io.EOF
	mu     sync.Mutex
	closes int
}

func (b *trackingBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if errors.Is(err, io.EOF) && b.err != nil {
		return n, b.err
	}
	return n, err
}

func (b *trackingBody) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closes++
	return nil
}

func (b *trackingBody) closeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closes
}

// blockingBody blocks every Read until closed.
type blockingBody struct {
	closed chan struct{}
	once   sync.Once
	closes int
}

func newBlockingBody() *blockingBody {
	return &blockingBody{closed: make(chan struct{})}
}

func (b *blockingBody) Read(p []byte) (int, error) {
	<-b.closed
	return 0, errors.New("read on closed body")
}

func (b *blockingBody) Close() error {
	b.closes++
	b.once.Do(func() { close(b.closed) })
	return nil
}

// failingWriter accepts limit bytes and then fails.
type failingWriter struct {
	header  http.Header
	limit   int
	written int
}

func (w *failingWriter) Header() http.Header {
	if w.header == nil {
		w.header = make(http.Header)
	}
	return w.header
}

func (w *failingWriter) WriteHeader(int) {}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.written+len(p) > w.limit {
		n := w.limit - w.written
		w.written = w.limit
		return n, errors.New("broken pipe")
	}
	w.written += len(p)
	return len(p), nil
}

// cancelingWriter cancels the request context after the first write.
type cancelingWriter struct {
	*httptest.ResponseRecorder
	cancel context.CancelFunc
}

func (w *cancelingWriter) Write(p []byte) (int, error) {
	n, err := w.ResponseRecorder.Write(p)
	w.cancel()
	return n, err
}

func mustWindow(t *testing.T, start, end, total int64) model.ServingWindow {
	t.Helper()
	w, err := model.NewServingWindow(start, end, total, false)
	if err != nil {
		t.Fatalf("NewServingWindow() unexpected error = %v", err)
	}
	return w
}

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func TestSession_PumpCompletes(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		bufSize int
	}{
		{name: "smaller than one chunk", size: 100},
		{name: "exactly one chunk", size: DefaultBufferSize},
		{name: "several chunks", size: 3*DefaultBufferSize + 17},
		{name: "custom buffer size", size: 1000, bufSize: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := payload(tt.size)
			body := &trackingBody{r: bytes.NewReader(data)}
			rec := httptest.NewRecorder()

			s := NewSession(rec, body, mustWindow(t, 0, int64(tt.size-1), int64(tt.size)), tt.bufSize)
			if err := s.WriteHeader(http.StatusOK); err != nil {
				t.Fatalf("WriteHeader() unexpected error = %v", err)
			}

			n, err := s.Pump(context.Background())
			if err != nil {
				t.Fatalf("Pump() unexpected error = %v", err)
			}
			if n != int64(tt.size) {
				t.Errorf("Pump() = %d bytes, want %d", n, tt.size)
			}
			if !bytes.Equal(rec.Body.Bytes(), data) {
				t.Error("relayed bytes differ from backend bytes")
			}
			if s.State() != StateCompleted {
				t.Errorf("State() = %s, want %s", s.State(), StateCompleted)
			}
			if got := body.closeCount(); got != 1 {
				t.Errorf("backend closed %d times, want 1", got)
			}
		})
	}
}

func TestSession_StopsAtWindowLength(t *testing.T) {
	// Backend returns more than requested; the relay must not overrun the window.
	data := payload(500)
	body := &trackingBody{r: bytes.NewReader(data)}
	rec := httptest.NewRecorder()

	s := NewSession(rec, body, mustWindow(t, 100, 199, 500), 0)
	_ = s.WriteHeader(http.StatusPartialContent)

	n, err := s.Pump(context.Background())
	if err != nil {
		t.Fatalf("Pump() unexpected error = %v", err)
	}
	if n != 100 || rec.Body.Len() != 100 {
		t.Errorf("relayed %d bytes (body %d), want 100", n, rec.Body.Len())
	}
}

func TestSession_ClientDisconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	data := payload(4 * DefaultBufferSize)
	body := &trackingBody{r: bytes.NewReader(data)}
	w := &cancelingWriter{ResponseRecorder: httptest.NewRecorder(), cancel: cancel}

	s := NewSession(w, body, mustWindow(t, 0, int64(len(data)-1), int64(len(data))), 0)
	_ = s.WriteHeader(http.StatusOK)

	n, err := s.Pump(ctx)
	if !errors.Is(err, ErrClientDisconnected) {
		t.Fatalf("Pump() error = %v, want ErrClientDisconnected", err)
	}
	if n != DefaultBufferSize {
		t.Errorf("Pump() = %d bytes, want %d", n, DefaultBufferSize)
	}
	if s.State() != StateAborted {
		t.Errorf("State() = %s, want %s", s.State(), StateAborted)
	}
	if got := body.closeCount(); got != 1 {
		t.Errorf("backend closed %d times, want 1", got)
	}
}

func TestSession_CancelUnblocksRead(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	body := newBlockingBody()

	s := NewSession(httptest.NewRecorder(), body, mustWindow(t, 0, 99, 100), 0)
	_ = s.WriteHeader(http.StatusOK)

	done := make(chan error, 1)
	go func() {
		_, err := s.Pump(ctx)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, ErrClientDisconnected) {
			t.Errorf("Pump() error = %v, want ErrClientDisconnected", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Pump() did not return after context cancellation")
	}
	if body.closes != 1 {
		t.Errorf("backend closed %d times, want 1", body.closes)
	}
}

func TestSession_WriteError(t *testing.T) {
	data := payload(2 * DefaultBufferSize)
	body := &trackingBody{r: bytes.NewReader(data)}
	w := &failingWriter{limit: DefaultBufferSize + 10}

	s := NewSession(w, body, mustWindow(t, 0, int64(len(data)-1), int64(len(data))), 0)
	_ = s.WriteHeader(http.StatusOK)

	n, err := s.Pump(context.Background())
	if !errors.Is(err, ErrClientDisconnected) {
		t.Fatalf("Pump() error = %v, want ErrClientDisconnected", err)
	}
	if n != DefaultBufferSize+10 {
		t.Errorf("Pump() = %d bytes, want %d", n, DefaultBufferSize+10)
	}
	if got := body.closeCount(); got != 1 {
		t.Errorf("backend closed %d times, want 1", got)
	}
}

func TestSession_BackendError(t *testing.T) {
	backendErr := errors.New("connection reset by peer")
	body := &trackingBody{r: bytes.NewReader(payload(50)), err: backendErr}
	rec := httptest.NewRecorder()

	s := NewSession(rec, body, mustWindow(t, 0, 99, 100), 0)
	_ = s.WriteHeader(http.StatusOK)

	n, err := s.Pump(context.Background())
	if !errors.Is(err, backendErr) {
		t.Fatalf("Pump() error = %v, want %v", err, backendErr)
	}
	if errors.Is(err, ErrClientDisconnected) {
		t.Error("backend failure must not be reported as a client disconnect")
	}
	if n != 50 {
		t.Errorf("Pump() = %d bytes, want 50", n)
	}
	if s.State() != StateAborted {
		t.Errorf("State() = %s, want %s", s.State(), StateAborted)
	}
	if got := body.closeCount(); got != 1 {
		t.Errorf("backend closed %d times, want 1", got)
	}
}

func TestSession_ShortRead(t *testing.T) {
	body := &trackingBody{r: bytes.NewReader(payload(60))}

	s := NewSession(httptest.NewRecorder(), body, mustWindow(t, 0, 99, 100), 0)
	_ = s.WriteHeader(http.StatusOK)

	n, err := s.Pump(context.Background())
	if !errors.Is(err, ErrShortRead) {
		t.Fatalf("Pump() error = %v, want ErrShortRead", err)
	}
	if n != 60 {
		t.Errorf("Pump() = %d bytes, want 60", n)
	}
}

func TestSession_StateOrder(t *testing.T) {
	body := &trackingBody{r: bytes.NewReader(payload(10))}
	s := NewSession(httptest.NewRecorder(), body, mustWindow(t, 0, 9, 10), 0)

	if _, err := s.Pump(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Pump() before WriteHeader error = %v, want ErrInvalidState", err)
	}
	if err := s.WriteHeader(http.StatusOK); err != nil {
		t.Fatalf("WriteHeader() unexpected error = %v", err)
	}
	if err := s.WriteHeader(http.StatusOK); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second WriteHeader() error = %v, want ErrInvalidState", err)
	}
	if _, err := s.Pump(context.Background()); err != nil {
		t.Fatalf("Pump() unexpected error = %v", err)
	}
	if _, err := s.Pump(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second Pump() error = %v, want ErrInvalidState", err)
	}

	s.Close()
	if got := body.closeCount(); got != 1 {
		t.Errorf("backend closed %d times, want 1", got)
	}
}

func TestSession_CloseWithoutPump(t *testing.T) {
	body := &trackingBody{r: bytes.NewReader(payload(10))}
	s := NewSession(httptest.NewRecorder(), body, mustWindow(t, 0, 9, 10), 0)
	_ = s.WriteHeader(http.StatusOK)

	s.Close()
	s.Close()

	if s.State() != StateAborted {
		t.Errorf("State() = %s, want %s", s.State(), StateAborted)
	}
	if got := body.closeCount(); got != 1 {
		t.Errorf("backend closed %d times, want 1", got)
	}
}
