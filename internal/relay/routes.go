// Package relay wires HTTP handlers into a ServeMux for the relay service
// via routing helpers.
package relay

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes: the health check and the WebSocket admission endpoint.
func SetupRoutes(svc *Service) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/ws", svc.HandleWebSocket)
	return mux
}
