package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/aniketdhankar/tweetscope/internal/auth"
	"github.com/aniketdhankar/tweetscope/internal/config"
	"github.com/aniketdhankar/tweetscope/internal/db"
	routes "github.com/aniketdhankar/tweetscope/internal/http"
	"github.com/aniketdhankar/tweetscope/internal/ingest"
	"github.com/aniketdhankar/tweetscope/internal/models"
	"github.com/aniketdhankar/tweetscope/internal/sentiment"
	"github.com/aniketdhankar/tweetscope/internal/session"
	"github.com/aniketdhankar/tweetscope/internal/store"
	"github.com/aniketdhankar/tweetscope/internal/twitter"
	"github.com/aniketdhankar/tweetscope/internal/ws"
)

func main() {
	// Allows running in production (where env vars are set directly)
	// without a .env file.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 1. Database
	database, err := db.Init(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		log.Fatalf("Failed to access database handle: %v", err)
	}
	defer sqlDB.Close()

	log.Println("Running database migrations...")
	if err := database.AutoMigrate(&models.Tweet{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations complete.")

	// 2. Session store: Redis when configured, in-process otherwise.
	var sessions session.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL)
		log.Println("Using Redis session store at", cfg.RedisAddr)
	} else {
		sessions = session.NewMemoryStore(cfg.SessionTTL)
		log.Println("REDIS_ADDR not set, using in-memory session store")
	}

	// 3. Classifier: OpenAI when a key is configured, keyword fallback
	// otherwise.
	var provider sentiment.LabelProvider
	if cfg.OpenAIKey != "" {
		provider = sentiment.NewOpenAI(sentiment.OpenAIConfig{
			APIKey:  cfg.OpenAIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		})
		log.Println("Using OpenAI classifier, model", cfg.OpenAIModel)
	} else {
		provider = sentiment.KeywordProvider{}
		log.Println("OPENAI_API_KEY not set, using keyword classifier")
	}

	// 4. Pipeline wiring
	tweets := store.New(database)
	pipeline := ingest.New(
		twitter.NewClient(cfg.SearchURL),
		sentiment.NewClassifier(provider),
		tweets,
		cfg.SnapshotDir,
	)
	authorizer := auth.New(auth.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		AuthURL:      cfg.AuthURL,
		TokenURL:     cfg.TokenURL,
	})

	// 5. WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// 6. Router
	router := gin.Default()
	env := &routes.Env{
		Tweets:     tweets,
		Sessions:   sessions,
		Authorizer: authorizer,
		Pipeline:   pipeline,
		Hub:        hub,
	}
	routes.SetupRoutes(router, env, cfg.CORSOrigin)

	// 7. Start server with graceful shutdown
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
