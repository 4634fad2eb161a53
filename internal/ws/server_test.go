package ws

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/makavanaraju78/Streamverse/internal/auth"
	"github.com/makavanaraju78/Streamverse/internal/catalog"
)

const (
	testEmail    = "viewer@example.com"
	testPassword = "secret123"
)

type testEnv struct {
	srv   *httptest.Server
	store *catalog.Store
	hub   *Hub
	auth  *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	authSvc := auth.NewService(time.Hour, map[string]string{"fed-token": "fed@example.com"})
	if err := authSvc.Register(testEmail, testPassword); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	store := catalog.NewStore(t.TempDir())
	if _, err := store.AddMedia(catalog.Media{ID: "m1", Title: "Arrival", Year: 2016, Type: "movie"}); err != nil {
		t.Fatalf("AddMedia() error: %v", err)
	}
	if _, err := store.AddMedia(catalog.Media{ID: "m2", Title: "Dark", Year: 2017, Type: "series"}); err != nil {
		t.Fatalf("AddMedia() error: %v", err)
	}
	hub := NewHub()
	srv := httptest.NewServer(NewServer(authSvc, store, hub, nil).Handler())
	t.Cleanup(func() {
		srv.Close()
		hub.Close()
	})
	return &testEnv{srv: srv, store: store, hub: hub, auth: authSvc}
}

type rawEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (e *testEnv) call(t *testing.T, method, path, token string, body interface{}) (int, rawEnvelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set(clientIDHeader, "client-1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var env rawEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	return resp.StatusCode, env
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	status, env := e.call(t, http.MethodPost, "/api/auth/login", "", loginRequest{Email: testEmail, Password: testPassword})
	if status != http.StatusOK || !env.Success {
		t.Fatalf("login: status=%d env=%+v", status, env)
	}
	var res loginResponse
	json.Unmarshal(env.Data, &res)
	if res.Token == "" || res.Email != testEmail {
		t.Fatalf("login result = %+v", res)
	}
	return res.Token
}

func TestSecurityHeaders(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	securityHeaders(inner).ServeHTTP(rec, req)

	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"X-XSS-Protection":        "1; mode=block",
		"Content-Security-Policy": "default-src 'self'",
	}

	for header, expected := range want {
		if got := rec.Header().Get(header); got != expected {
			t.Errorf("header %s = %q, want %q", header, got, expected)
		}
	}
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name       string
		body       loginRequest
		wantStatus int
		wantMsg    string
	}{
		{"missing fields", loginRequest{Email: testEmail}, http.StatusBadRequest, "Email and password are required"},
		{"wrong password", loginRequest{Email: testEmail, Password: "nope"}, http.StatusUnauthorized, "Invalid credentials"},
		{"unknown user", loginRequest{Email: "x@example.com", Password: "whatever"}, http.StatusUnauthorized, "Invalid credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := e.call(t, http.MethodPost, "/api/auth/login", "", tt.body)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if env.Success || env.Message != tt.wantMsg {
				t.Errorf("envelope = %+v, want failure %q", env, tt.wantMsg)
			}
		})
	}

	e.login(t)
}

func TestFederatedLogin(t *testing.T) {
	e := newTestEnv(t)

	status, env := e.call(t, http.MethodPost, "/api/auth/federated", "", federatedRequest{Token: "fed-token"})
	if status != http.StatusOK || !env.Success {
		t.Fatalf("federated: status=%d env=%+v", status, env)
	}
	var res loginResponse
	json.Unmarshal(env.Data, &res)
	if res.Email != "fed@example.com" {
		t.Errorf("email = %q", res.Email)
	}

	status, env = e.call(t, http.MethodPost, "/api/auth/federated", "", federatedRequest{Token: "forged"})
	if status != http.StatusUnauthorized || env.Success {
		t.Errorf("forged token: status=%d env=%+v", status, env)
	}
}

func TestWatchLater_RequiresSession(t *testing.T) {
	e := newTestEnv(t)

	for _, path := range []string{"/api/watch-later", "/api/media"} {
		status, env := e.call(t, http.MethodGet, path, "", nil)
		if status != http.StatusUnauthorized || env.Success {
			t.Errorf("GET %s without token: status=%d env=%+v", path, status, env)
		}
		status, _ = e.call(t, http.MethodGet, path, "bogus", nil)
		if status != http.StatusUnauthorized {
			t.Errorf("GET %s with bogus token: status=%d", path, status)
		}
	}
}

func TestWatchLater_Lifecycle(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t)

	status, env := e.call(t, http.MethodGet, "/api/watch-later", token, nil)
	if status != http.StatusOK || !env.Success {
		t.Fatalf("list: status=%d env=%+v", status, env)
	}
	var items []catalog.Media
	json.Unmarshal(env.Data, &items)
	if len(items) != 0 {
		t.Fatalf("expected empty list, got %d", len(items))
	}

	if status, env = e.call(t, http.MethodPost, "/api/watch-later/m1", token, nil); status != http.StatusOK || !env.Success {
		t.Fatalf("add m1: status=%d env=%+v", status, env)
	}
	if status, _ = e.call(t, http.MethodPost, "/api/watch-later/m1", token, nil); status != http.StatusConflict {
		t.Errorf("duplicate add status = %d, want 409", status)
	}
	if status, _ = e.call(t, http.MethodPost, "/api/watch-later/zzz", token, nil); status != http.StatusNotFound {
		t.Errorf("unknown add status = %d, want 404", status)
	}

	_, env = e.call(t, http.MethodGet, "/api/watch-later", token, nil)
	json.Unmarshal(env.Data, &items)
	if len(items) != 1 || items[0].ID != "m1" {
		t.Fatalf("list after add = %+v", items)
	}

	if status, env = e.call(t, http.MethodDelete, "/api/watch-later/m1", token, nil); status != http.StatusOK || !env.Success {
		t.Fatalf("remove m1: status=%d env=%+v", status, env)
	}
	status, env = e.call(t, http.MethodDelete, "/api/watch-later/m1", token, nil)
	if status != http.StatusNotFound || env.Success || env.Message != "Not in Watch Later" {
		t.Errorf("second remove: status=%d env=%+v", status, env)
	}
}

func TestMediaListing(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t)

	_, env := e.call(t, http.MethodGet, "/api/media", token, nil)
	var items []catalog.Media
	json.Unmarshal(env.Data, &items)
	if len(items) != 2 {
		t.Errorf("media count = %d, want 2", len(items))
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t)

	e.call(t, http.MethodPost, "/api/auth/logout", token, nil)
	if status, _ := e.call(t, http.MethodGet, "/api/watch-later", token, nil); status != http.StatusUnauthorized {
		t.Errorf("status after logout = %d, want 401", status)
	}
}

func dialWS(t *testing.T, e *testEnv, token string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type inbound struct {
	Type    MessageType     `json:"type"`
	Seq     uint64          `json:"seq"`
	Payload json.RawMessage `json:"payload"`
}

func readMsg(t *testing.T, conn *websocket.Conn) inbound {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg inbound
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestWS_RejectsWithoutToken(t *testing.T) {
	e := newTestEnv(t)
	u := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("response = %+v, want 401", resp)
	}
}

func TestWS_ReceivesOwnChanges(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t)
	conn := dialWS(t, e, token)

	hello := readMsg(t, conn)
	if hello.Type != MsgHello {
		t.Fatalf("first message = %s, want hello", hello.Type)
	}

	e.call(t, http.MethodPost, "/api/watch-later/m2", token, nil)

	msg := readMsg(t, conn)
	if msg.Type != MsgWatchLaterChange {
		t.Fatalf("type = %s", msg.Type)
	}
	if msg.Seq <= hello.Seq {
		t.Errorf("seq %d should follow hello seq %d", msg.Seq, hello.Seq)
	}
	var p WatchLaterChangedPayload
	json.Unmarshal(msg.Payload, &p)
	if p.ItemID != "m2" || p.Action != ActionAdded || p.Origin != "client-1" {
		t.Errorf("payload = %+v", p)
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		host    string
		want    bool
	}{
		{"no origin header", nil, "", "example.com", true},
		{"same host", nil, "http://example.com", "example.com", true},
		{"localhost", nil, "http://localhost:3000", "example.com", true},
		{"foreign", nil, "http://evil.com", "example.com", false},
		{"allowlisted", []string{"https://app.example.com"}, "https://app.example.com", "x", true},
		{"allowlist host match", []string{"https://app.example.com"}, "http://app.example.com", "x", true},
		{"not allowlisted", []string{"https://app.example.com"}, "http://localhost", "x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(nil, nil, NewHub(), tt.allowed)
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			req.Host = tt.host
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := s.checkOrigin(req); got != tt.want {
				t.Errorf("checkOrigin() = %v, want %v", got, tt.want)
			}
		})
	}
}
