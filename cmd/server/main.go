package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/rudra1in/facultyapp-sub000/internal/api"
	"github.com/rudra1in/facultyapp-sub000/internal/auth"
	"github.com/rudra1in/facultyapp-sub000/internal/chat"
	"github.com/rudra1in/facultyapp-sub000/internal/config"
	"github.com/rudra1in/facultyapp-sub000/internal/database"
	"github.com/rudra1in/facultyapp-sub000/internal/directory"
	"github.com/rudra1in/facultyapp-sub000/internal/logger"
	"github.com/rudra1in/facultyapp-sub000/internal/notifications"
	"github.com/rudra1in/facultyapp-sub000/internal/pubsub"
	"github.com/rudra1in/facultyapp-sub000/internal/relay"
	internalWs "github.com/rudra1in/facultyapp-sub000/internal/websocket"
)

var log = logger.New("server")

func main() {
	// Log to both console and server.log
	logFile, err := os.OpenFile("server.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Error("Failed to open log file: %v", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger.SetOutput(io.MultiWriter(os.Stdout, logFile))

	cfg, err := config.Load()
	if err != nil {
		log.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}
	if cfg.LogLevel != "" {
		logger.SetMinLevel(logger.ParseLevel(cfg.LogLevel))
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	auth.InitJWTKey([]byte(cfg.JWTSecret))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewDatabase(ctx, database.DatabaseType(cfg.DBType), cfg.DatabaseURL)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("Connected to %s database successfully", cfg.DBType)

	dir, err := openDirectory(ctx, cfg, db)
	if err != nil {
		log.Error("Failed to load directory: %v", err)
		os.Exit(1)
	}

	rel, err := relay.Open(ctx, cfg.Relay())
	if err != nil {
		log.Error("Failed to open %s relay: %v", cfg.RelayDriver, err)
		os.Exit(1)
	}
	bus := pubsub.NewBus(pubsub.WithBuffer(cfg.SubscriberBuffer), pubsub.WithRelay(rel))
	if err := bus.Start(ctx); err != nil {
		log.Error("Failed to start event relay: %v", err)
		os.Exit(1)
	}
	defer bus.Close()

	feed := notifications.NewFeed(db, bus)
	unread := chat.NewCoordinator(db, dir, bus, feed)
	registry := chat.NewRegistry(db, dir, unread)
	store := chat.NewMessageStore(db, registry, unread, dir, bus)

	wsManager := internalWs.NewManager(bus, registry, internalWs.WithAllowedOrigins(cfg.Origins()...))
	go wsManager.Run()
	defer wsManager.Stop()

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Origins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api.RegisterRoutes(router, api.Handlers{
		Messages:      api.NewMessageHandler(store),
		Conversations: api.NewConversationHandler(registry, unread),
		Directory:     api.NewDirectoryHandler(dir),
		Notifications: api.NewNotificationHandler(feed),
		WebSocket:     wsManager.HandleWebSocket,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Failed to start server: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Give the server 5 seconds to finish processing remaining requests
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited properly")
}

// openDirectory loads the roster from the configured source. The postgres
// source reuses the message store's connection.
func openDirectory(ctx context.Context, cfg *config.Config, db database.DBInterface) (*directory.Directory, error) {
	var source directory.Source
	switch cfg.DirectorySource {
	case config.DirectoryFromPostgres:
		pg, ok := db.(*database.PostgresDB)
		if !ok {
			return nil, errors.New("postgres directory needs the postgres store")
		}
		source = directory.PostgresSource{DB: pg.DB}
	default:
		source = directory.FileSource{Path: cfg.DirectoryFile}
	}

	dir := directory.New(source)
	if err := dir.Reload(ctx); err != nil {
		return nil, err
	}
	return dir, nil
}
