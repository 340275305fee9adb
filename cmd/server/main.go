package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/waconnect/waconnect-go/internal/api"
	"github.com/waconnect/waconnect-go/internal/client"
	"go.uber.org/zap"
)

// main wires the host process: an HTTP surface (internal/api) over a
// registry of device sessions (internal/client.SessionManager), each of
// which opens its own pebble-backed credential store and, once
// connected, its own authenticator + Noise connection manager
// (internal/auth, internal/waconn). None of that per-session machinery
// is constructed here — SessionManager.CreateSession owns it — this
// file only starts the registry, resumes what was persisted, and serves
// the API in front of it.
func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	sugar := logger.Sugar()
	sugar.Info("🚀 WAConnect Go starting...")

	port := os.Getenv("PORT")
	if port == "" {
		port = "3200"
	}

	sessionManager := client.NewSessionManager(sugar)

	if err := sessionManager.LoadPersistedSessions(); err != nil {
		sugar.Warnf("Failed to load persisted sessions: %v", err)
	} else {
		sugar.Infof("Resumed %d persisted session(s)", sessionManager.GetStats().Total)
	}

	server := api.NewServer(api.ServerConfig{
		Port:           port,
		Logger:         sugar,
		SessionManager: sessionManager,
	})

	go func() {
		if err := server.Start(); err != nil {
			sugar.Fatalf("Server failed: %v", err)
		}
	}()

	sugar.Infof("✅ WAConnect Go running at http://0.0.0.0:%s", port)
	sugar.Info("📱 Dashboard available at /dashboard")
	sugar.Info("📚 Create a session via POST /api/v1/session/create, then scan its QR")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Info("Shutting down gracefully...")
	sessionManager.DisconnectAll()
	server.Stop()
}
