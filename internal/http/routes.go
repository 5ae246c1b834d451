package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/aniketdhankar/tweetscope/internal/ws"
)

// SetupRoutes configures all application routes and middleware.
func SetupRoutes(router *gin.Engine, env *Env, corsOrigin string) {

	// --- Middleware ---

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(SecurityHeadersMiddleware())

	if corsOrigin == "" {
		corsOrigin = "*"
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{corsOrigin},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
	}))

	// --- Rate Limiter Setup ---
	limiter := NewIPRateLimiter(rate.Limit(rateLimitRPS), rateLimitBurst)
	go func() {
		for {
			time.Sleep(10 * time.Minute)
			limiter.mu.Lock()
			for ip, v := range limiter.visitors {
				if v.Allow() {
					// Idle limiter; a fresh one costs nothing to recreate.
					delete(limiter.visitors, ip)
				}
			}
			limiter.mu.Unlock()
		}
	}()

	// --- Operator flow ---

	router.POST("/authorize", RateLimitMiddleware(limiter), env.Authorize)
	router.GET("/callback", env.Callback)
	router.GET("/fetch_tweets", env.FetchTweets)
	router.GET("/export", env.Export)

	// --- API Routes ---

	api := router.Group("/api")
	{
		api.GET("/sentiment_counts", env.SentimentCounts)
		api.GET("/tweets", env.ListTweets)
	}

	// --- WebSocket Route ---

	router.GET("/ws", func(c *gin.Context) {
		ws.ServeWs(env.Hub, c.Writer, c.Request)
	})

	// --- Serve Frontend ---
	// This MUST come AFTER the API routes.
	router.StaticFile("/", "./public/index.html")
	router.StaticFile("/results", "./public/results.html")
}
