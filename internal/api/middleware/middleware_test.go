package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hszk-dev/streamgate/internal/api/handler"
	"github.com/hszk-dev/streamgate/internal/auth"
	"github.com/hszk-dev/streamgate/internal/domain/model"
	"github.com/hszk-dev/streamgate/internal/ratelimit"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockChecker provides a configurable mock for SessionChecker.
type mockChecker struct {
	checkFn func(ctx context.Context, credential string) (model.SessionClaims, error)
	got     string
}

func (m *mockChecker) Check(ctx context.Context, credential string) (model.SessionClaims, error) {
	m.got = credential
	return m.checkFn(ctx, credential)
}

func TestRequireSession(t *testing.T) {
	sid := uuid.New()
	okChecker := func(ctx context.Context, credential string) (model.SessionClaims, error) {
		if credential != "good" {
			return model.SessionClaims{}, auth.ErrUnauthorized
		}
		return model.SessionClaims{SessionID: sid, UserID: "user-1"}, nil
	}

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		checkFn    func(ctx context.Context, credential string) (model.SessionClaims, error)
		wantStatus int
		wantError  string
		wantCred   string
	}{
		{
			name:       "bearer header",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") },
			checkFn:    okChecker,
			wantStatus: http.StatusOK,
			wantCred:   "good",
		},
		{
			name:       "lowercase scheme",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "bearer good") },
			checkFn:    okChecker,
			wantStatus: http.StatusOK,
			wantCred:   "good",
		},
		{
			name:       "cookie fallback",
			setup:      func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "session", Value: "good"}) },
			checkFn:    okChecker,
			wantStatus: http.StatusOK,
			wantCred:   "good",
		},
		{
			name: "header wins over cookie",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer good")
				r.AddCookie(&http.Cookie{Name: "session", Value: "stale"})
			},
			checkFn:    okChecker,
			wantStatus: http.StatusOK,
			wantCred:   "good",
		},
		{
			name:       "no credential",
			setup:      func(r *http.Request) {},
			checkFn:    okChecker,
			wantStatus: http.StatusUnauthorized,
			wantError:  "unauthorized",
		},
		{
			name:       "basic auth is not a credential",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Basic Z29vZA==") },
			checkFn:    okChecker,
			wantStatus: http.StatusUnauthorized,
			wantError:  "unauthorized",
		},
		{
			name:  "invalid session",
			setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") },
			checkFn: func(ctx context.Context, credential string) (model.SessionClaims, error) {
				return model.SessionClaims{}, auth.ErrInvalidSession
			},
			wantStatus: http.StatusUnauthorized,
			wantError:  "invalid_session",
		},
		{
			name:  "session store down",
			setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") },
			checkFn: func(ctx context.Context, credential string) (model.SessionClaims, error) {
				return model.SessionClaims{}, errors.Join(auth.ErrSessionStoreUnavailable, errors.New("dial tcp"))
			},
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "service_unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := &mockChecker{checkFn: tt.checkFn}

			var called bool
			var gotClaims model.SessionClaims
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				gotClaims, _ = auth.ClaimsFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/v1/stream/tok", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			RequireSession(checker, "session", discardLogger())(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			if tt.wantError == "" {
				if !called {
					t.Fatal("next handler was not called")
				}
				if checker.got != tt.wantCred {
					t.Errorf("credential = %q, want %q", checker.got, tt.wantCred)
				}
				if gotClaims.SessionID != sid {
					t.Errorf("claims SessionID = %v, want %v", gotClaims.SessionID, sid)
				}
				return
			}

			if called {
				t.Error("next handler must not run for a rejected request")
			}
			var resp handler.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Error != tt.wantError {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
			}
			if challenged := rec.Header().Get("WWW-Authenticate") != ""; challenged != (tt.wantStatus == http.StatusUnauthorized) {
				t.Errorf("WWW-Authenticate = %q for status %d", rec.Header().Get("WWW-Authenticate"), tt.wantStatus)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := ratelimit.NewFixedWindow(2, time.Minute, ratelimit.WithClock(func() time.Time { return now }))

	h := RateLimit(limiter, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/stream/tok", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do("192.0.2.1:1000"); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rec.Code)
		}
	}

	// Different source port, same client.
	rec := do("192.0.2.1:2000")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60", got)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}

	if rec := do("192.0.2.2:1000"); rec.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", rec.Code)
	}

	now = now.Add(time.Minute)
	if rec := do("192.0.2.1:1000"); rec.Code != http.StatusOK {
		t.Errorf("status after window = %d, want 200", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := map[string]string{
		"192.0.2.1:1234":   "192.0.2.1",
		"[2001:db8::1]:80": "2001:db8::1",
		"192.0.2.9":        "192.0.2.9",
	}
	for remote, want := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = remote
		if got := clientIP(r); got != want {
			t.Errorf("clientIP(%q) = %q, want %q", remote, got, want)
		}
	}
}

func TestRecoverer(t *testing.T) {
	t.Run("panic becomes 500", func(t *testing.T) {
		h := Recoverer(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})

	t.Run("abort handler is re-raised", func(t *testing.T) {
		h := Recoverer(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(http.ErrAbortHandler)
		}))

		defer func() {
			if rec := recover(); rec != http.ErrAbortHandler {
				t.Errorf("recovered %v, want http.ErrAbortHandler", rec)
			}
		}()

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		t.Error("ServeHTTP returned normally")
	})
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Get("/v1/stream/{token}", func(w http.ResponseWriter, r *http.Request) {
		rc := http.NewResponseController(w)
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte("hello"))
		if err := rc.Flush(); err != nil {
			t.Errorf("Flush() through logger = %v", err)
		}
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/stream/tok", nil))

	if !rec.Flushed {
		t.Error("flush did not reach the underlying writer")
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("X-Request-Id header not set")
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}
	if entry["status"] != float64(http.StatusPartialContent) {
		t.Errorf("logged status = %v, want 206", entry["status"])
	}
	if entry["bytes"] != float64(5) {
		t.Errorf("logged bytes = %v, want 5", entry["bytes"])
	}
	if entry["request_id"] == "" {
		t.Error("logged request_id is empty")
	}
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name    string
		inbound string
		reuse   bool
	}{
		{name: "generated when absent", inbound: "", reuse: false},
		{name: "caller id reused", inbound: "edge-4f2a:17", reuse: true},
		{name: "unsafe caller id replaced", inbound: "bad id\nforged=1", reuse: false},
		{name: "oversized caller id replaced", inbound: strings.Repeat("a", 65), reuse: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.inbound != "" {
				req.Header.Set("X-Request-Id", tt.inbound)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if seen == "" {
				t.Fatal("request id missing from context")
			}
			if got := rec.Header().Get("X-Request-Id"); got != seen {
				t.Errorf("header = %q, context = %q", got, seen)
			}
			if (seen == tt.inbound) != tt.reuse {
				t.Errorf("request id = %q, reuse inbound %q = %v", seen, tt.inbound, tt.reuse)
			}
		})
	}
}

func TestLogger_RouteAndAbort(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(Logger(logger))
	r.Get("/v1/stream/{token}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte("part"))
		panic(http.ErrAbortHandler)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/stream/secret-token", nil)
	req.Header.Set("Range", "bytes=0-")

	func() {
		defer func() {
			if rec := recover(); rec != http.ErrAbortHandler {
				t.Errorf("recovered %v, want http.ErrAbortHandler", rec)
			}
		}()
		r.ServeHTTP(httptest.NewRecorder(), req)
	}()

	if strings.Contains(buf.String(), "secret-token") {
		t.Errorf("log line contains the token: %s", buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}
	if entry["route"] != "/v1/stream/{token}" {
		t.Errorf("logged route = %v, want /v1/stream/{token}", entry["route"])
	}
	if entry["aborted"] != true {
		t.Errorf("logged aborted = %v, want true", entry["aborted"])
	}
	if entry["level"] != "ERROR" {
		t.Errorf("logged level = %v, want ERROR", entry["level"])
	}
	if entry["range"] != "bytes=0-" {
		t.Errorf("logged range = %v, want bytes=0-", entry["range"])
	}
}
