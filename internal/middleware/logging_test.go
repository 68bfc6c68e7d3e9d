package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/voyage/internal/auth"
)

// captureLogLine runs one request through the given middleware chain wrapped
// around Logger and returns the decoded log entry.
func captureLogLine(t *testing.T, outer func(http.Handler) http.Handler, req *http.Request, inner http.Handler) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := outer(Logger(logger)(inner))
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decoding log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestLogger_TagsRequests(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errorMessage":"experience not found"}`))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/experiences/missing", nil)
	entry := captureLogLine(t, chimiddleware.RequestID, req, handler)

	if entry["method"] != "GET" {
		t.Errorf("method = %v, want GET", entry["method"])
	}
	if entry["path"] != "/api/experiences/missing" {
		t.Errorf("path = %v, want the request path", entry["path"])
	}
	if entry["status"] != float64(http.StatusNotFound) {
		t.Errorf("status = %v, want 404", entry["status"])
	}
	if b, _ := entry["bytes"].(float64); b <= 0 {
		t.Errorf("bytes = %v, want the response body size", entry["bytes"])
	}
	if id, _ := entry["request_id"].(string); id == "" {
		t.Error("log line missing request_id")
	}
}

func TestLogger_TagsAuthenticatedUser(t *testing.T) {
	tokens, err := auth.NewTokenService("test-secret-that-is-long-enough")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	token, err := tokens.Generate("user-123")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/experiences/all", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	entry := captureLogLine(t, auth.OptionalAuth(tokens), req, okHandler())

	if entry["user"] != "user-123" {
		t.Errorf("user = %v, want the token's subject", entry["user"])
	}

	// Anonymous requests pass through OptionalAuth untagged.
	anon := captureLogLine(t, auth.OptionalAuth(tokens), httptest.NewRequest(http.MethodGet, "/api/experiences/all", nil), okHandler())
	if _, present := anon["user"]; present {
		t.Errorf("anonymous log line has user = %v, want no user field", anon["user"])
	}
}
