package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wolfman30/smart-schedule/internal/conversation"
	"github.com/wolfman30/smart-schedule/internal/schedule"
	"github.com/wolfman30/smart-schedule/pkg/logging"
)

type echoChat struct{}

func (echoChat) HandleMessage(_ context.Context, sessionID, text string) conversation.Reply {
	return conversation.Reply{SessionID: sessionID, Text: "eco: " + text}
}

func (echoChat) Reset(context.Context, string) error { return nil }

func newTestRouter(t *testing.T, checks map[string]HealthCheck) http.Handler {
	t.Helper()

	logger := logging.New("error")
	repo := schedule.NewInMemoryRepository()
	if _, err := schedule.Seed(context.Background(), repo, schedule.DefaultCatalog()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	return New(&Config{
		Logger:             logger,
		ChatHandler:        conversation.NewHandler(echoChat{}, logger),
		ScheduleHandler:    schedule.NewHandler(repo, logger),
		HealthChecks:       checks,
		CORSAllowedOrigins: []string{"http://localhost:3001"},
		RateLimitRPS:       100,
		RateLimitBurst:     100,
	})
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

func TestRouterHealthReportsFailingDependency(t *testing.T) {
	router := newTestRouter(t, map[string]HealthCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	var body struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "degraded" || body.Dependencies["postgres"] != "ok" {
		t.Fatalf("unexpected health body %+v", body)
	}
}

func TestRouterChatEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"Oi","session_id":"s1"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"response":"eco: Oi"`) {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}

func TestRouterServicesEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/services", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Corte Degradê") {
		t.Fatalf("expected seeded catalog, got %s", rr.Body.String())
	}
}

func TestRouterUnknownAppointment(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/appointments/missing", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://localhost:3001")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}
