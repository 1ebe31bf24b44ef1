// Package relay exposes HTTP handlers for WebSocket admission and health
// checks.
package relay

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/nexus-relay/internal/logger"
)

// Service ties the verifier and hub together behind the HTTP surface. It is
// constructed once at process start and injected wherever handlers are wired.
type Service struct {
	hub      *Hub
	verifier *Verifier
	upgrader websocket.Upgrader
}

// NewService creates the relay service over an already-constructed hub and
// verifier.
func NewService(hub *Hub, verifier *Verifier) *Service {
	return &Service{
		hub:      hub,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// HandleWebSocket admits one client connection. The credential is verified
// before the upgrade; a connection that fails verification is refused with
// 401 and no state is created for it. On success the hub runs the admission
// sequence (register, announce, snapshot, pumps).
func (s *Service) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	userID, err := s.verifier.Authenticate(bearerToken(r))
	if err != nil {
		logger.Warnf("Rejected connection from %s: %v", r.RemoteAddr, err)
		http.Error(w, "Authentication error", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("WebSocket upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	client := NewClient(conn, s.hub, userID, r.RemoteAddr)
	s.hub.Admit(client)
}

// bearerToken extracts the connection credential. Browser WebSocket clients
// cannot set request headers, so the token query parameter is accepted
// alongside a standard Authorization bearer header.
func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	return ""
}

// HealthHandler provides a simple health check endpoint that returns server status.
// It responds with a plain text message indicating the server is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Nexus Relay server is running!")
}
