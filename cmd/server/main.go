package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"absorb-chess/internal/agent"
	"absorb-chess/internal/auth"
	"absorb-chess/internal/config"
	"absorb-chess/internal/db"
	"absorb-chess/internal/handlers"
	"absorb-chess/internal/lobby"
	"absorb-chess/internal/matchmaking"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	// Load configuration
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Starting absorb-chess server in %s mode", cfg.Environment)

	// Connect to MongoDB; the server runs without a snapshot when no URI
	// is configured.
	var snapshot handlers.Snapshot = handlers.NoSnapshot{}
	if cfg.MongoDB.URI != "" {
		mongodb, err := db.NewMongoDB(cfg.MongoDB.URI, cfg.MongoDB.Database)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			mongodb.Close(ctx)
		}()
		snapshot = mongodb
		log.Printf("Connected to MongoDB database: %s", cfg.MongoDB.Database)
	} else {
		log.Println("No MongoDB URI configured; running without a durable snapshot")
	}

	// Core services
	tokens := auth.NewTokenService(cfg.Session.TokenSecret)
	registry := lobby.NewRegistry()
	queue := matchmaking.NewQueue()
	hub := handlers.NewHub()

	controller := handlers.NewController(registry, queue, snapshot, agent.NewBuiltin(), hub, handlers.ControllerConfig{
		DisconnectGrace:        time.Duration(cfg.Game.DisconnectGraceSeconds) * time.Second,
		BotMoveDelay:           time.Duration(cfg.Game.BotMoveDelayMs) * time.Millisecond,
		PromotionCancelAllowed: cfg.PromotionCancelAllowed(),
	})

	// Rebuild lobbies from the snapshot before accepting sockets.
	restoreCtx, restoreCancel := context.WithTimeout(context.Background(), 10*time.Second)
	controller.RestoreFromSnapshot(restoreCtx)
	restoreCancel()

	scanner := handlers.NewClockScanner(controller)
	scanner.Start()
	defer scanner.Stop()

	wsHandler := handlers.NewWebSocketHandler(hub, controller, tokens)

	// Set up router
	router := mux.NewRouter()
	router.HandleFunc("/ws", wsHandler.HandleWebSocket)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.Frontend.URL},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      corsHandler.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
