package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/redis/go-redis/v9"

	"github.com/jasurbek-jolanboyev/safechat.uz/contract"
	"github.com/jasurbek-jolanboyev/safechat.uz/gateway"
	"github.com/jasurbek-jolanboyev/safechat.uz/internal"
	"github.com/jasurbek-jolanboyev/safechat.uz/moderation"
	"github.com/jasurbek-jolanboyev/safechat.uz/observability"
	"github.com/jasurbek-jolanboyev/safechat.uz/relay"
	"github.com/jasurbek-jolanboyev/safechat.uz/repositories"
	"github.com/jasurbek-jolanboyev/safechat.uz/runtime"
	"github.com/jasurbek-jolanboyev/safechat.uz/runtime/workers"
	"github.com/jasurbek-jolanboyev/safechat.uz/services"
)

const healthInterval = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	censoredChar, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Repositories & Moderation
	messageRepository := repositories.NewMessageRepository(db, log, config.LimitMessages)
	userRepository := repositories.NewUserRepository(db)
	entityRepository := repositories.NewEntityRepository(db)

	wordList, err := moderation.LoadEmbedded()
	if err != nil {
		return fmt.Errorf("word list loading failed: %w", err)
	}
	moderator, err := moderation.NewModerator(wordList.Words, censoredChar)
	if err != nil {
		return fmt.Errorf("moderator build failed: %w", err)
	}

	// 4. Routing core
	registry := runtime.NewRegistry()
	monitoring := observability.NewMonitoring()

	var eventRelay contract.IRelay
	var rdb *redis.Client
	if config.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: config.RedisAddr})
		eventRelay = relay.NewPublisher(rdb)
		defer func() { _ = rdb.Close() }()
	}

	router := runtime.NewRouter(
		log, userRepository, entityRepository, messageRepository,
		registry, runtime.NewBlockFilter(userRepository),
		moderator, monitoring, eventRelay,
		config.NodeName, config.MaxContentLength,
	)
	resolver := runtime.NewResolver(log, entityRepository, registry)
	manager := runtime.NewEntityManager(
		log, entityRepository, registry, router,
		runtime.NotifyPolicy(config.EntityNotifyPolicy),
	)

	chatService := services.NewChatService(log, userRepository, registry, resolver, router, manager)
	authService := services.NewAuthService(userRepository, config.AuthTokenDuration)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Supervised workers
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		workers.NewTelemetryWorker(log, config.MetricInterval, monitoring),
		workers.NewHealthWorker(log, healthInterval),
	)
	if rdb != nil {
		sup.Add(relay.NewWorker(log, rdb, router))
	}
	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	// 7. HTTP & WebSocket server
	wsServer := gateway.NewServer(log, chatService, config.RequireAuth, config.ConnectionBufferSize)
	bootstrap := gateway.NewBootstrap(log, authService)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsServer.ServeWS)
	mux.HandleFunc("/register", bootstrap.Register)
	mux.HandleFunc("/login", bootstrap.Login)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{Addr: address, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}
