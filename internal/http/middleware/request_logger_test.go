package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wolfman30/smart-schedule/pkg/logging"
)

func TestRequestLoggerRecordsStatusAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("info", &buf)
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get(RequestIDHeader) != "req-42" {
		t.Fatalf("expected request id echoed, got %q", rec.Header().Get(RequestIDHeader))
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if entry["msg"] != "request completed" || entry["path"] != "/chat" {
		t.Fatalf("unexpected log entry %v", entry)
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Fatalf("expected status 418, got %v", entry["status"])
	}
}

func TestRequestLoggerGeneratesRequestID(t *testing.T) {
	handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if len(rec.Header().Get(RequestIDHeader)) != 36 {
		t.Fatalf("expected generated uuid, got %q", rec.Header().Get(RequestIDHeader))
	}
}
