package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// recordingHandler captures records together with attrs attached via With.
type recordingHandler struct {
	mu      *sync.Mutex
	records *[]map[string]any
	attrs   []slog.Attr
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{mu: &sync.Mutex{}, records: &[]map[string]any{}}
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, rec slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	attrs := map[string]any{"msg": rec.Message}
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	rec.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})
	*h.records = append(*h.records, attrs)
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &recordingHandler{mu: h.mu, records: h.records, attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
}

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }

func (h *recordingHandler) accessLog(t *testing.T) map[string]any {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, rec := range *h.records {
		if rec["msg"] == "request" {
			return rec
		}
	}
	t.Fatal("expected a 'request' access log entry")
	return nil
}

var requiredFields = []string{"request_id", "method", "path", "client_ip", "status", "bytes", "duration_ms"}

func newRouter(logger *slog.Logger, withRequestLogger bool, h http.HandlerFunc) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if withRequestLogger {
		r.Use(RequestLoggerMiddleware(logger))
	}
	r.Use(AccessLogMiddleware(logger))
	r.Use(chimw.Recoverer)
	r.Get("/test", h)
	return r
}

func TestAccessLogMiddleware_Fields(t *testing.T) {
	tests := []struct {
		name          string
		requestLogger bool
	}{
		{"with request logger", true},
		{"fallback without request logger", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newRecordingHandler()
			r := newRouter(slog.New(rec), tt.requestLogger, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("hello"))
			})

			req := httptest.NewRequest(http.MethodGet, "/test?token=secret", nil)
			req.RemoteAddr = "192.0.2.1:12345"
			r.ServeHTTP(httptest.NewRecorder(), req)

			entry := rec.accessLog(t)
			for _, field := range requiredFields {
				if _, ok := entry[field]; !ok {
					t.Errorf("missing access log field %q", field)
				}
			}
			if entry["path"] != "/test" {
				t.Errorf("path = %v, want /test without query", entry["path"])
			}
			if entry["client_ip"] != "192.0.2.1" {
				t.Errorf("client_ip = %v", entry["client_ip"])
			}
			if status, ok := entry["status"].(int64); !ok || status != http.StatusOK {
				t.Errorf("status = %v (%T), want 200", entry["status"], entry["status"])
			}
		})
	}
}

func TestAccessLogMiddleware_ForwardedClientIP(t *testing.T) {
	rec := newRecordingHandler()
	r := newRouter(slog.New(rec), true, func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	r.ServeHTTP(httptest.NewRecorder(), req)

	if got := rec.accessLog(t)["client_ip"]; got != "203.0.113.7" {
		t.Errorf("client_ip = %v, want 203.0.113.7", got)
	}
}

func TestAccessLogMiddleware_PanicProducesStatus500(t *testing.T) {
	rec := newRecordingHandler()
	r := newRouter(slog.New(rec), true, func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected HTTP 500, got %d", rr.Code)
	}
	if status, ok := rec.accessLog(t)["status"].(int64); !ok || status != http.StatusInternalServerError {
		t.Errorf("expected status 500 in the access log, got %v", status)
	}
}
