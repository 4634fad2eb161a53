package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/makavanaraju78/Streamverse/internal/auth"
	"github.com/makavanaraju78/Streamverse/internal/catalog"
)

// clientIDHeader mirrors client.ClientIDHeader.
const clientIDHeader = "X-Streamverse-Client"

const maxRequestBytes = 64 << 10

type Server struct {
	auth           *auth.Service
	store          *catalog.Store
	hub            *Hub
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
}

func NewServer(authSvc *auth.Service, store *catalog.Store, hub *Hub, allowedOrigins []string) *Server {
	s := &Server{
		auth:           authSvc,
		store:          store,
		hub:            hub,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
	}

	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	return s
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/federated", s.handleFederated)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/media", s.handleMedia)
	mux.HandleFunc("GET /api/watch-later", s.handleList)
	mux.HandleFunc("POST /api/watch-later/{id}", s.handleAdd)
	mux.HandleFunc("DELETE /api/watch-later/{id}", s.handleRemove)
}

// Handler returns the routed mux wrapped with security headers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return securityHeaders(mux)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.authorize(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	c, err := s.hub.AddClient(conn, sess.Email)
	if err != nil {
		log.Printf("ws client refused: %v", err)
		conn.Close()
		return
	}
	log.Printf("WebSocket client connected: %s (%s)", r.RemoteAddr, sess.Email)

	go func() {
		defer func() {
			s.hub.RemoveClient(c)
			log.Printf("WebSocket client disconnected: %s", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type federatedRequest struct {
	Token string `json:"token"`
}

type loginResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		fail(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	sess, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		fail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	log.Printf("login: %s", sess.Email)
	ok(w, loginResponse{Token: sess.Token, Email: sess.Email})
}

func (s *Server) handleFederated(w http.ResponseWriter, r *http.Request) {
	var req federatedRequest
	if err := decodeBody(r, &req); err != nil || req.Token == "" {
		fail(w, http.StatusBadRequest, "Identity token is required")
		return
	}

	sess, err := s.auth.LoginFederated(req.Token)
	if err != nil {
		fail(w, http.StatusUnauthorized, "Identity could not be verified")
		return
	}
	log.Printf("federated login: %s", sess.Email)
	ok(w, loginResponse{Token: sess.Token, Email: sess.Email})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" {
		s.auth.Logout(token)
	}
	ok(w, nil)
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	if _, authorized := s.requireSession(w, r); !authorized {
		return
	}
	ok(w, s.store.Media())
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	sess, authorized := s.requireSession(w, r)
	if !authorized {
		return
	}
	ok(w, s.store.List(sess.Email))
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	sess, authorized := s.requireSession(w, r)
	if !authorized {
		return
	}
	id := r.PathValue("id")

	switch err := s.store.Add(sess.Email, id); {
	case errors.Is(err, catalog.ErrMediaNotFound):
		fail(w, http.StatusNotFound, "Media not found")
		return
	case errors.Is(err, catalog.ErrAlreadySaved):
		fail(w, http.StatusConflict, "Already in Watch Later")
		return
	case err != nil:
		log.Printf("add %s for %s: %v", id, sess.Email, err)
		fail(w, http.StatusInternalServerError, "Failed to add to Watch Later")
		return
	}

	s.hub.NotifyChange(sess.Email, WatchLaterChangedPayload{ItemID: id, Action: ActionAdded, Origin: r.Header.Get(clientIDHeader)})
	ok(w, nil)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	sess, authorized := s.requireSession(w, r)
	if !authorized {
		return
	}
	id := r.PathValue("id")

	switch err := s.store.Remove(sess.Email, id); {
	case errors.Is(err, catalog.ErrNotSaved):
		fail(w, http.StatusNotFound, "Not in Watch Later")
		return
	case err != nil:
		log.Printf("remove %s for %s: %v", id, sess.Email, err)
		fail(w, http.StatusInternalServerError, "Failed to remove from Watch Later")
		return
	}

	s.hub.NotifyChange(sess.Email, WatchLaterChangedPayload{ItemID: id, Action: ActionRemoved, Origin: r.Header.Get(clientIDHeader)})
	ok(w, nil)
}

// requireSession writes the 401 envelope itself when the request is not authorized.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (auth.Session, bool) {
	sess, authorized := s.authorize(r)
	if !authorized {
		fail(w, http.StatusUnauthorized, "Please login to continue")
	}
	return sess, authorized
}

func (s *Server) authorize(r *http.Request) (auth.Session, bool) {
	token := bearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return auth.Session{}, false
	}
	sess, err := s.auth.Resolve(token)
	if err != nil {
		return auth.Session{}, false
	}
	return sess, true
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := parsed.Hostname()
	return parsed.Host == r.Host || host == "localhost" || host == "127.0.0.1" || host == "::1"
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBytes))
	return dec.Decode(v)
}

func ok(w http.ResponseWriter, data interface{}) {
	writeEnvelope(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func fail(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, Envelope{Success: false, Message: message})
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.Printf("writing response: %v", err)
	}
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Content-Security-Policy", "default-src 'self'")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe serves handler until ctx is cancelled, then shuts down gracefully.
func ListenAndServe(ctx context.Context, host string, port int, handler http.Handler) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
