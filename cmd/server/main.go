package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/Tyrowin/nexus-relay/internal/logger"
	"github.com/Tyrowin/nexus-relay/internal/relay"
)

func main() {
	// Environment first, flags override.
	config := relay.NewConfigFromEnv()

	port := pflag.String("port", config.Port, "listen address, e.g. :8080")
	origins := pflag.StringSlice("allowed-origins", config.AllowedOrigins, "origins allowed to open WebSocket connections")
	secret := pflag.String("jwt-secret", config.JWTSecret, "HMAC secret for verifying connection tokens")
	pflag.Parse()

	config.Port = *port
	config.AllowedOrigins = *origins
	config.JWTSecret = *secret

	if config.JWTSecret == "" {
		logger.Error("No JWT secret configured; set JWT_SECRET or --jwt-secret")
		os.Exit(1)
	}

	relay.SetConfig(config)

	registry := relay.NewRegistry()
	hub := relay.NewHub(registry)
	verifier := relay.NewVerifier([]byte(config.JWTSecret))
	service := relay.NewService(hub, verifier)

	mux := relay.SetupRoutes(service)
	httpServer := relay.CreateServer(config.Port, mux)

	errCh := make(chan error, 1)
	go func() {
		errCh <- relay.StartServer(httpServer)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Server failed: %v", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logger.Infof("Received signal %s, shutting down", sig)
	}

	if err := relay.ShutdownServer(httpServer, 10*time.Second); err != nil {
		logger.Errorf("HTTP shutdown error: %v", err)
	}
	if err := hub.Shutdown(5 * time.Second); err != nil {
		logger.Errorf("Hub shutdown error: %v", err)
	}
}
