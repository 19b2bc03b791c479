package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/catalog-service/internal/catalog"
	"github.com/vyrodovalexey/catalog-service/internal/config"
	"github.com/vyrodovalexey/catalog-service/internal/handler"
	"github.com/vyrodovalexey/catalog-service/internal/model"
	"github.com/vyrodovalexey/catalog-service/internal/store"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

func testConfig(metricsEnabled bool) *config.Config {
	return &config.Config{
		ServerPort:         8080,
		LogLevel:           "info",
		ShutdownTimeout:    30 * time.Second,
		MetricsEnabled:     metricsEnabled,
		CORSAllowedOrigins: []string{"*"},
		StoreBackend:       config.BackendMemory,
	}
}

// newTestServer wires a memory-backed catalog the way cmd/server does.
func newTestServer(t *testing.T, cfg *config.Config, opts ...Option) (*Server, *handler.ChangeFeedHandler) {
	t.Helper()

	logger := zap.NewNop()
	feed := handler.NewChangeFeedHandler(logger)
	svc := catalog.NewService(store.NewMemoryStore(), catalog.WithNotifier(feed), catalog.WithLogger(logger))
	opts = append([]Option{WithMetricsRegistry(prometheus.NewRegistry())}, opts...)

	return New(cfg, logger, svc, feed, opts...), feed
}

func TestNew(t *testing.T) {
	// Act
	server, _ := newTestServer(t, testConfig(true))

	// Assert
	if server == nil {
		t.Fatal("New() returned nil")
	}
	if server.router == nil {
		t.Error("router should not be nil")
	}
	if server.config == nil {
		t.Error("config should not be nil")
	}
	if server.httpServer == nil {
		t.Error("httpServer should not be nil")
	}
	if server.feed == nil {
		t.Error("feed should not be nil")
	}
	if server.Router() != server.router {
		t.Error("Router() should return the server router")
	}
}

func TestNew_MetricsEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		enabled    bool
		wantStatus int
	}{
		{"enabled", true, http.StatusOK},
		{"disabled", false, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			server, _ := newTestServer(t, testConfig(tt.enabled))

			// Prime a request so the HTTP collectors have a sample.
			server.router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items", nil))

			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			rr := httptest.NewRecorder()

			// Act
			server.router.ServeHTTP(rr, req)

			// Assert
			if rr.Code != tt.wantStatus {
				t.Fatalf("/metrics status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.enabled && !strings.Contains(rr.Body.String(), "http_requests_total") {
				t.Error("/metrics should expose http_requests_total")
			}
		})
	}
}

func TestServer_HealthEndpoint(t *testing.T) {
	// Arrange
	server, _ := newTestServer(t, testConfig(false))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	// Act
	server.router.ServeHTTP(rr, req)

	// Assert
	if rr.Code != http.StatusOK {
		t.Errorf("/health status = %d, want %d", rr.Code, http.StatusOK)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("response should carry a request ID")
	}
}

func TestServer_ReadyEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		pinger     store.Pinger
		wantStatus int
	}{
		{"healthy backend", stubPinger{}, http.StatusOK},
		{"failing backend", stubPinger{err: errors.New("dial tcp: refused")}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			server, _ := newTestServer(t, testConfig(false), WithPinger(tt.pinger))
			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			rr := httptest.NewRecorder()

			// Act
			server.router.ServeHTTP(rr, req)

			// Assert
			if rr.Code != tt.wantStatus {
				t.Errorf("/ready status = %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}
}

func TestServer_RESTEndpoints(t *testing.T) {
	// Arrange
	server, _ := newTestServer(t, testConfig(true))

	// Act - create
	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{"name":"Potion","price":10}`))
	rr := httptest.NewRecorder()
	server.router.ServeHTTP(rr, req)

	// Assert
	if rr.Code != http.StatusCreated {
		t.Fatalf("POST /items status = %d, want %d", rr.Code, http.StatusCreated)
	}
	location := rr.Header().Get("Location")

	tests := []struct {
		method     string
		path       string
		wantStatus int
	}{
		{http.MethodGet, "/items", http.StatusOK},
		{http.MethodGet, "/items?name=pot", http.StatusOK},
		{http.MethodGet, location, http.StatusOK},
		{http.MethodGet, "/items/unknown", http.StatusNotFound},
		{http.MethodDelete, location, http.StatusNoContent},
		{http.MethodDelete, location, http.StatusNotFound},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rr := httptest.NewRecorder()
		server.router.ServeHTTP(rr, req)

		if rr.Code != tt.wantStatus {
			t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, rr.Code, tt.wantStatus)
		}
	}
}

func TestServer_ChangeFeedRouteNotShadowed(t *testing.T) {
	// Arrange
	server, _ := newTestServer(t, testConfig(false))
	req := httptest.NewRequest(http.MethodGet, "/items/events", nil)
	rr := httptest.NewRecorder()

	// Act
	server.router.ServeHTTP(rr, req)

	// Assert - the upgrade fails, but the item lookup must not answer
	if rr.Code == http.StatusNotFound {
		t.Error("/items/events was routed to the item lookup")
	}
}

func TestServer_ChangeFeedReceivesMutations(t *testing.T) {
	// Arrange
	server, feed := newTestServer(t, testConfig(true))
	ts := httptest.NewServer(server.Router())
	defer func() {
		feed.CloseAllConnections()
		ts.Close()
	}()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/items/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for feed.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	// Act
	resp, err := http.Post(ts.URL+"/items", "application/json", strings.NewReader(`{"name":"Ether","price":150}`))
	if err != nil {
		t.Fatalf("POST /items: %v", err)
	}
	var created model.APIResponse[model.Item]
	_ = json.NewDecoder(resp.Body).Decode(&created)
	_ = resp.Body.Close()

	// Assert
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event model.ChangeEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("ReadJSON(): %v", err)
	}
	if event.Type != model.ChangeTypeCreated {
		t.Errorf("event type = %s, want %s", event.Type, model.ChangeTypeCreated)
	}
	if event.Item.ID != created.Data.ID {
		t.Errorf("event item ID = %s, want %s", event.Item.ID, created.Data.ID)
	}
}

func TestServer_CORSHeaders(t *testing.T) {
	// Arrange
	cfg := testConfig(false)
	cfg.CORSAllowedOrigins = []string{"https://shop.example"}
	server, _ := newTestServer(t, cfg)

	tests := []struct {
		origin string
		want   string
	}{
		{"https://shop.example", "https://shop.example"},
		{"https://evil.example", ""},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/items", nil)
		req.Header.Set("Origin", tt.origin)
		rr := httptest.NewRecorder()

		// Act
		server.router.ServeHTTP(rr, req)

		// Assert
		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
			t.Errorf("Origin %s: Access-Control-Allow-Origin = %q, want %q", tt.origin, got, tt.want)
		}
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	// Arrange
	cfg := testConfig(false)
	cfg.CORSAllowedOrigins = []string{"https://shop.example"}
	server, _ := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/items/9b2f3c1e-4d5a-4b6c-8d7e-0f1a2b3c4d5e", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rr := httptest.NewRecorder()

	// Act
	server.router.ServeHTTP(rr, req)

	// Assert
	if rr.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.example" {
		t.Errorf("Access-Control-Allow-Origin = %q, want https://shop.example", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, http.MethodPut) {
		t.Errorf("Access-Control-Allow-Methods = %q, want it to contain PUT", got)
	}
}

func TestServer_UnknownPathStaysNotFound(t *testing.T) {
	// Arrange
	server, _ := newTestServer(t, testConfig(false))
	req := httptest.NewRequest(http.MethodGet, "/catalogue", nil)
	rr := httptest.NewRecorder()

	// Act
	server.router.ServeHTTP(rr, req)

	// Assert
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestServer_HTTPServerConfiguration(t *testing.T) {
	// Arrange
	cfg := testConfig(false)
	cfg.ServerPort = 9191

	// Act
	server, _ := newTestServer(t, cfg)

	// Assert
	if server.httpServer.Addr != ":9191" {
		t.Errorf("Addr = %s, want :9191", server.httpServer.Addr)
	}
	if server.httpServer.ReadHeaderTimeout != 5*time.Second {
		t.Errorf("ReadHeaderTimeout = %v, want 5s", server.httpServer.ReadHeaderTimeout)
	}
	if server.httpServer.MaxHeaderBytes != 1<<20 {
		t.Errorf("MaxHeaderBytes = %d, want %d", server.httpServer.MaxHeaderBytes, 1<<20)
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	// Arrange
	cfg := testConfig(false)
	cfg.ServerPort = 0
	server, _ := newTestServer(t, cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	// Act
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := server.Shutdown(ctx)

	// Assert
	if err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Start() did not return after Shutdown()")
	}
}

func TestServer_StartInvalidAddress(t *testing.T) {
	// Arrange
	cfg := testConfig(false)
	cfg.ServerPort = -1
	server, _ := newTestServer(t, cfg)

	// Act
	err := server.Start()

	// Assert
	if err == nil {
		t.Error("Start() should fail for an invalid address")
	}
}
