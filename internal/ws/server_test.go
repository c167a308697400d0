package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/floorlink/backend/internal/command"
	"github.com/floorlink/backend/internal/config"
	"github.com/floorlink/backend/internal/domain"
	"github.com/floorlink/backend/internal/metrics"
	"github.com/floorlink/backend/internal/notify"
	"github.com/floorlink/backend/internal/service"
	"github.com/floorlink/backend/internal/session"
	"github.com/floorlink/backend/internal/store"
	"github.com/floorlink/backend/internal/subscription"
)

type testStack struct {
	ts       *httptest.Server
	mem      *store.Memory
	index    *subscription.Index
	registry *session.Registry
}

func newTestStack(t *testing.T, cfg config.ServerConfig) *testStack {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	classes := domain.DefaultClasses()
	mem := store.NewMemory(classes)
	mem.Seed(
		&domain.Organization{ID: "org-a", Name: "Acme Logistics"},
		&domain.User{ID: "op1", OrgID: "org-a", Name: "Pat Operator", PasswordHash: string(hash)},
		&domain.WorkInstruction{ID: "wi-1", OrgID: "org-a", Zone: "A1", Status: domain.WINew, Sequence: 1},
	)

	locator := service.NewLocator()
	locator.Register("route", service.Routes{})
	locator.Register("lighting", service.Lighting{})

	index := subscription.NewIndex()
	registry := session.NewRegistry()
	registry.SetCloseHook(index.RemoveSession)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	notifier := notify.New(registry, index, mem, m)
	mem.SetCommitHook(notifier.OnCommit)

	dispatcher := command.NewDispatcher(&command.Deps{
		Classes:     classes,
		Provider:    mem,
		Directory:   mem,
		Index:       index,
		Services:    locator,
		AttachDelay: 10 * time.Millisecond,
		FilterLimit: 100,
	}, m)

	srv := NewServer(cfg, registry, index, dispatcher, m, reg)
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return &testStack{ts: ts, mem: mem, index: index, registry: registry}
}

func (s *testStack) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(s.ts.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", u, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, frame map[string]any) {
	t.Helper()
	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("unmarshal frame %q: %v", data, err)
	}
	return frame
}

func login(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	sendFrame(t, conn, map[string]any{
		"messageId": "login-1", "type": "Login", "userId": "op1", "password": "secret",
	})
	resp := readFrame(t, conn)
	if resp["status"] != "SUCCESS" {
		t.Fatalf("login failed: %v", resp)
	}
}

func TestServer_SessionScenario(t *testing.T) {
	stack := newTestStack(t, config.ServerConfig{SendBuffer: 64})
	conn := stack.dial(t, "")
	login(t, conn)

	sendFrame(t, conn, map[string]any{
		"messageId":  "sub-1",
		"type":       "RegisterListener",
		"className":  domain.ClassWorkInstruction,
		"ids":        []string{"wi-1"},
		"properties": []string{"status", "zone"},
	})
	resp := readFrame(t, conn)
	if resp["status"] != "SUCCESS" {
		t.Fatalf("register failed: %v", resp)
	}
	results := resp["results"].(map[string]any)
	subID := results["subscriptionId"].(string)
	snapshot := results["snapshot"].([]any)
	if len(snapshot) != 1 {
		t.Fatalf("snapshot: %v", snapshot)
	}
	row := snapshot[0].(map[string]any)
	if row["id"] != "wi-1" || row["status"] != domain.WINew {
		t.Errorf("snapshot row: %v", row)
	}

	// A commit from another path (here: directly through the store) reaches
	// the connection as a notification.
	repo, err := stack.mem.Resolve(domain.ClassWorkInstruction, "org-a")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := repo.Store(&domain.WorkInstruction{ID: "wi-1", OrgID: "org-a", Zone: "B2", Status: domain.WIActive, Sequence: 1}); err != nil {
		t.Fatalf("store: %v", err)
	}

	n := readFrame(t, conn)
	if n["subscriptionId"] != subID || n["op"] != "UPDATE" {
		t.Fatalf("notification: %v", n)
	}
	props := n["properties"].(map[string]any)
	if props["status"] != domain.WIActive || props["zone"] != "B2" || props["id"] != "wi-1" {
		t.Errorf("notification properties: %v", props)
	}

	// The channel stays usable for commands after a notification.
	sendFrame(t, conn, map[string]any{"messageId": "ping-1", "type": "Ping"})
	pong := readFrame(t, conn)
	if pong["status"] != "SUCCESS" || pong["messageId"] != "ping-1" {
		t.Errorf("ping: %v", pong)
	}
}

func TestServer_MalformedFrame(t *testing.T) {
	stack := newTestStack(t, config.ServerConfig{})
	conn := stack.dial(t, "")

	if err := conn.WriteMessage(websocket.TextMessage, []byte("this is not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp := readFrame(t, conn)
	if resp["status"] != "FAIL" || resp["statusMessage"] != "Malformed frame" {
		t.Errorf("malformed frame response: %v", resp)
	}

	// The connection survives a malformed frame.
	sendFrame(t, conn, map[string]any{"messageId": "p1", "type": "Ping"})
	if pong := readFrame(t, conn); pong["status"] != "SUCCESS" {
		t.Errorf("ping after malformed frame: %v", pong)
	}
}

func TestServer_DisconnectCleansUp(t *testing.T) {
	stack := newTestStack(t, config.ServerConfig{})
	conn := stack.dial(t, "")
	login(t, conn)

	sendFrame(t, conn, map[string]any{
		"messageId": "sub-1", "type": "RegisterListener",
		"className": domain.ClassWorkInstruction, "ids": []string{"wi-1"},
	})
	if resp := readFrame(t, conn); resp["status"] != "SUCCESS" {
		t.Fatalf("register failed: %v", resp)
	}
	if stack.index.Count() != 1 {
		t.Fatalf("expected 1 subscription, got %d", stack.index.Count())
	}

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for stack.index.Count() != 0 || stack.registry.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("cleanup did not finish: %d subscriptions, %d sessions",
				stack.index.Count(), stack.registry.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServer_AuthToken(t *testing.T) {
	stack := newTestStack(t, config.ServerConfig{AuthToken: "sekrit"})

	u := "ws" + strings.TrimPrefix(stack.ts.URL, "http") + "/ws"
	if _, _, err := websocket.DefaultDialer.Dial(u, nil); err == nil {
		t.Fatal("dial without token should fail")
	}

	conn := stack.dial(t, "?token=sekrit")
	sendFrame(t, conn, map[string]any{"messageId": "p1", "type": "Ping"})
	if pong := readFrame(t, conn); pong["status"] != "SUCCESS" {
		t.Errorf("ping: %v", pong)
	}

	// Health is gated by the same token.
	resp, err := http.Get(stack.ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("health without token: %d", resp.StatusCode)
	}
}

func TestServer_Health(t *testing.T) {
	stack := newTestStack(t, config.ServerConfig{})
	conn := stack.dial(t, "")
	login(t, conn)

	resp, err := http.Get(stack.ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status: %d", resp.StatusCode)
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "ok" {
		t.Errorf("status: %q", health.Status)
	}
	if health.Sessions != 1 {
		t.Errorf("sessions: %d", health.Sessions)
	}
}

func TestServer_Metrics(t *testing.T) {
	stack := newTestStack(t, config.ServerConfig{})

	resp, err := http.Get(stack.ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status: %d", resp.StatusCode)
	}
}

func TestCheckOrigin(t *testing.T) {
	allowing := NewServer(config.ServerConfig{AllowedOrigins: []string{"https://floor.example.com"}}, nil, nil, nil, nil, nil)
	open := NewServer(config.ServerConfig{}, nil, nil, nil, nil, nil)

	tests := []struct {
		name   string
		srv    *Server
		origin string
		host   string
		want   bool
	}{
		{"NoOrigin", open, "", "api.example.com", true},
		{"SameHost", open, "http://api.example.com", "api.example.com", true},
		{"Loopback", open, "http://localhost:3000", "api.example.com", true},
		{"CrossHost", open, "http://evil.example.com", "api.example.com", false},
		{"Listed", allowing, "https://floor.example.com", "api.example.com", true},
		{"NotListed", allowing, "http://localhost:3000", "api.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://"+tt.host+"/ws", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := tt.srv.checkOrigin(r); got != tt.want {
				t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}
