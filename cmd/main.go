package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"

	"mingle-chat/auth"
	"mingle-chat/internal"
	"mingle-chat/moderation"
	"mingle-chat/observability"
	"mingle-chat/repositories"
	"mingle-chat/runtime"
	"mingle-chat/runtime/workers"
	"mingle-chat/services"
	"mingle-chat/transport/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so every deferred cleanup executes
// before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.NewLogger(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Moderation (optional, disabled without a word list)
	words, err := moderation.LoadWords(config.ModerationWordsPath)
	if err != nil {
		return fmt.Errorf("loading moderation words failed: %w", err)
	}
	replacement, err := characterRune(config.ModerationCharReplacement)
	if err != nil {
		return err
	}
	moderator, err := moderation.NewModerator(words, replacement)
	if err != nil {
		return fmt.Errorf("building moderator failed: %w", err)
	}
	log.Info("Moderation ready", "patterns", moderator.PatternCount())

	// 4. Core wiring
	registry := runtime.NewRegistry()
	monitor := observability.NewMonitor()
	rooms := repositories.NewRoomRepository(db, log)
	messages := repositories.NewMessageRepository(db, log)
	hub := runtime.NewHub(log, registry, rooms, messages, moderator, monitor)
	verifier := auth.NewJWTVerifier(config.JWTSecret)
	service := services.NewChatService(verifier, registry, hub)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Background workers under supervision
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		workers.NewStatsWorker(monitor, registry.Counts, config.StatsInterval, log),
		workers.NewStoreGCWorker(db, config.GCInterval, log),
	)
	go sup.Run(ctx)

	// 7. HTTP & Websocket server
	handler := ws.NewHandler(service, log, config.ConnectionBufferSize, config.AuthTimeout)
	server := ws.NewServer(config.Host, config.Port, handler, rooms, monitor, registry.Counts, log)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Listen(); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 9. Final Cleanup
	if err := server.Shutdown(); err != nil {
		log.Warn("Server shutdown failed", "error", err)
	}
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
