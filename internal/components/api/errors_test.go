package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MahdiBaghbani/pizzabot-go/internal/components/api"
)

func TestWriteError_EnvelopeShape(t *testing.T) {
	w := httptest.NewRecorder()

	api.WriteError(w, http.StatusBadRequest, api.ReasonBadRequest, "unknown plan filter")

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var envelope api.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if envelope.Error.Code != "Bad Request" {
		t.Errorf("expected code 'Bad Request', got %q", envelope.Error.Code)
	}
	if envelope.Error.ReasonCode != api.ReasonBadRequest {
		t.Errorf("expected reason_code %q, got %q", api.ReasonBadRequest, envelope.Error.ReasonCode)
	}
	if envelope.Error.Message != "unknown plan filter" {
		t.Errorf("unexpected message: %q", envelope.Error.Message)
	}
}

func TestWriteError_StableReasonCodes(t *testing.T) {
	codes := map[string]string{
		"unauthenticated": api.ReasonUnauthenticated,
		"bad_request":     api.ReasonBadRequest,
		"not_found":       api.ReasonNotFound,
		"internal_error":  api.ReasonInternalError,
	}

	for expected, actual := range codes {
		if actual != expected {
			t.Errorf("reason code constant changed: expected %q, got %q", expected, actual)
		}
	}
}

func TestWriteHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
		reason string
	}{
		{"unauthorized", func(w http.ResponseWriter) { api.WriteUnauthorized(w, api.ReasonUnauthenticated, "login") }, http.StatusUnauthorized, api.ReasonUnauthenticated},
		{"not found", func(w http.ResponseWriter) { api.WriteNotFound(w, "no such plan") }, http.StatusNotFound, api.ReasonNotFound},
		{"internal", func(w http.ResponseWriter) { api.WriteInternalError(w, "boom") }, http.StatusInternalServerError, api.ReasonInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)
			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
			var envelope api.ErrorEnvelope
			json.NewDecoder(w.Body).Decode(&envelope)
			if envelope.Error.ReasonCode != tt.reason {
				t.Errorf("expected reason_code %q, got %q", tt.reason, envelope.Error.ReasonCode)
			}
		})
	}
}
