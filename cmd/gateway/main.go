package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/vidstream/gateway/internal/config"
	"github.com/vidstream/gateway/internal/events"
	"github.com/vidstream/gateway/internal/http/handlers/admin"
	"github.com/vidstream/gateway/internal/http/handlers/notifications"
	"github.com/vidstream/gateway/internal/http/handlers/playback"
	"github.com/vidstream/gateway/internal/http/handlers/videos"
	"github.com/vidstream/gateway/internal/http/middleware"
	"github.com/vidstream/gateway/internal/queue"
	"github.com/vidstream/gateway/internal/ratelimit"
	"github.com/vidstream/gateway/internal/services/media"
	"github.com/vidstream/gateway/internal/storage/mongodb"
	"github.com/vidstream/gateway/internal/views"
	wsClient "github.com/vidstream/gateway/internal/websocket"
)

func main() {
	// load config
	cfg := config.MustLoad()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	// catalog setup
	catalog, err := mongodb.NewMongoDB(startupCtx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize catalog:", err)
	}
	slog.Info("Connected to MongoDB catalog")

	// media store setup
	store, err := media.NewService(cfg)
	if err != nil {
		log.Fatal("Failed to initialize media store:", err)
	}
	if err := store.EnsureBuckets(startupCtx); err != nil {
		log.Fatal("Failed to prepare media buckets:", err)
	}
	slog.Info("Connected to media store")

	// redis setup
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(startupCtx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	counter := views.NewCounter(redisClient)
	uploadBucket := ratelimit.NewTokenBucket(redisClient, cfg.Upload.RateLimit, cfg.Upload.RateLimit)
	slog.Info("Connected to Redis")

	// queue setup
	queueClient, err := queue.Connect(cfg.AMQP.URL)
	if err != nil {
		log.Fatal("Failed to connect to queue broker:", err)
	}
	slog.Info("Connected to queue broker")

	// notifications hub
	hub := wsClient.NewHub()
	go hub.Run()

	// completion events from the processing workers
	consumer := events.NewConsumer(catalog, hub)
	if err := queueClient.Consume(queue.MetadataQueue, consumer.HandleDelivery); err != nil {
		log.Fatal("Failed to start metadata consumer:", err)
	}

	// setup server
	router := http.NewServeMux()

	router.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	})

	router.Handle("POST /upload",
		middleware.RateLimit(uploadBucket, "upload", cfg.Upload.RateLimit)(
			videos.Upload(catalog, store, queueClient, cfg.Upload.MaxFileSize)))
	router.HandleFunc("GET /videos", videos.List(catalog, counter))
	router.HandleFunc("GET /videos/{id}", videos.Get(catalog, counter))
	router.HandleFunc("GET /video-playback/{id}", playback.Video(catalog, store, counter))
	router.HandleFunc("GET /previews/{id}", playback.Preview(store))
	router.HandleFunc("GET /notifications", notifications.Handler(hub, catalog))

	router.HandleFunc("POST /__admin/auth/create", admin.CreateAccount(catalog, cfg.JWTSecret))
	router.HandleFunc("POST /__admin/auth", admin.Auth(catalog, cfg.JWTSecret))
	router.Handle("DELETE /__admin/videos/{id}",
		middleware.AdminAuth(cfg.JWTSecret)(
			admin.DeleteVideo(catalog, store, counter)))

	server := http.Server{
		Addr:    cfg.HTTPServer.Address,
		Handler: middleware.CORS(router),
	}

	log.Println("server started on", cfg.HTTPServer.Address)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %s", err)
		}
	}()

	<-done

	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
	}

	if err := queueClient.Close(); err != nil {
		slog.Error("failed to close queue connection", slog.String("error", err.Error()))
	}
	if err := redisClient.Close(); err != nil {
		slog.Error("failed to close redis connection", slog.String("error", err.Error()))
	}
	if err := catalog.Close(ctx); err != nil {
		slog.Error("failed to close catalog connection", slog.String("error", err.Error()))
	}

	slog.Info("Server stopped")
}
