package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

var errUnreachable = errors.New("unreachable")

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestServer_Handler(t *testing.T) {
	logger := zerolog.Nop()
	api := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	tests := []struct {
		name   string
		ready  Pinger
		path   string
		status int
	}{
		{name: "healthz", ready: stubPinger{}, path: "/healthz", status: http.StatusOK},
		{name: "ready", ready: stubPinger{}, path: "/readyz", status: http.StatusOK},
		{name: "not ready", ready: stubPinger{err: errUnreachable}, path: "/readyz", status: http.StatusServiceUnavailable},
		{name: "metrics", ready: stubPinger{}, path: "/metrics", status: http.StatusOK},
		{name: "api fallthrough", ready: stubPinger{}, path: "/documents/1", status: http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServerWithHandler(tt.ready, 0, api, &logger)
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.status {
				t.Errorf("GET %s status = %d, want %d", tt.path, rec.Code, tt.status)
			}
		})
	}
}

func TestServer_NilReadiness(t *testing.T) {
	logger := zerolog.Nop()
	s := NewServer(nil, 0, &logger)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
