package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"weibosim/internal/cache"
	"weibosim/internal/completion"
	"weibosim/internal/config"
	"weibosim/internal/database"
	"weibosim/internal/handler"
	"weibosim/internal/model"
	"weibosim/internal/queue"
	"weibosim/internal/realtime"
	"weibosim/internal/redis"
	"weibosim/internal/repository"
	"weibosim/internal/service"
	"weibosim/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Connect to Database
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	postRepo := repository.NewPostRepository(db)
	charRepo := repository.NewCharacterRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// 3. Realtime hub, always local
	hub := realtime.NewHub()
	go hub.Run(ctx)

	// 4. Feed cache and event stream: Redis when configured
	instance := instanceID()
	var (
		feedCache cache.FeedCache
		notifier  realtime.Notifier = hub
		relay     *worker.Manager
	)
	if cfg.RedisURL != "" {
		client, err := redis.Open(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()

		feedCache = cache.NewRedisFeedCache(client, cfg.FeedCacheTTL)
		notifier = realtime.Fanout{hub, queue.NewPublisher(client, instance)}

		relay = worker.NewManager(
			queue.NewConsumer(client),
			worker.NewHandler(hub, instance),
			worker.DefaultManagerConfig(instance),
		)
		if err := relay.Start(ctx); err != nil {
			return fmt.Errorf("failed to start event relay: %w", err)
		}
		defer relay.Stop()
	} else {
		feedCache = cache.NewMemoryFeedCache(cfg.FeedCacheSize, cfg.FeedCacheTTL)
		log.Printf("[Server] REDIS_URL not set: using in-process feed cache, events stay local")
	}

	// 5. Completion provider; nil until an API is configured
	provider, err := completion.NewProvider(ctx, cfg.API)
	if errors.Is(err, model.ErrConfigMissing) {
		log.Printf("[Server] Completion API not configured, generation disabled: %v", err)
		provider = nil
	} else if err != nil {
		return fmt.Errorf("failed to create completion provider: %w", err)
	}

	// 6. Services and handlers
	generationService := service.NewGenerationService(provider, postRepo, charRepo, settingsRepo, feedCache, notifier)
	postService := service.NewPostService(postRepo, charRepo, settingsRepo, notifier)
	profileService := service.NewProfileService(postRepo, charRepo, settingsRepo, notifier)
	dmService := service.NewDmService(charRepo, settingsRepo, notifier)

	router := NewRouter(RouterConfig{
		PostHandler:      handler.NewPostHandler(postService, generationService),
		FeedHandler:      handler.NewFeedHandler(generationService),
		CharacterHandler: handler.NewCharacterHandler(profileService, postService, dmService, generationService),
		UserHandler:      handler.NewUserHandler(profileService, dmService, generationService),
		Websocket:        hub,
		JWTSecret:        cfg.JWTSecret,
	})
	if cfg.JWTSecret == "" {
		log.Printf("[Server] JWT_SECRET not set: API authentication disabled")
	}

	// 7. Serve until interrupted
	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s instance=%s", srv.Addr, instance)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// instanceID names this process for the event relay.
func instanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "weibosim"
	}
	return host + "-" + uuid.NewString()[:8]
}
