package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

type ServerOptions struct {
	PublicDir string
	APIKey    string
	Metrics   http.Handler
}

// NewServer creates the HTTP handler with all routes configured
func NewServer(handler *Handler, opts ServerOptions) http.Handler {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health"},
	}))
	r.Use(gin.CustomRecovery(handler.recoverPanic))

	setupRoutes(r, handler, opts)

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept"},
	}).Handler(r)
}

func setupRoutes(r *gin.Engine, handler *Handler, opts ServerOptions) {
	r.GET("/api/events", handler.GetEvents)
	r.POST("/api/analyze", handler.Analyze)
	r.GET("/feeds/events.xml", handler.GetFeed)
	r.GET("/health", handler.GetHealth)

	operator := r.Group("/")
	if opts.APIKey != "" {
		operator.Use(authMiddleware(opts.APIKey))
	} else {
		slog.Info("Operator endpoints are open (API_ACCESS_KEY not set)")
	}
	operator.GET("/api/sources", handler.APIListSources)
	if opts.Metrics != nil {
		operator.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	r.NoMethod(methodNotAllowed)
	r.NoRoute(noRoute(handler, opts.PublicDir))
}

// noRoute serves the browser UI when the public directory exists and
// describes the service otherwise.
func noRoute(handler *Handler, publicDir string) gin.HandlerFunc {
	var static http.Handler
	if info, err := os.Stat(publicDir); err == nil && info.IsDir() {
		static = http.FileServer(http.Dir(publicDir))
		slog.Info("Serving static UI", "dir", publicDir)
	} else {
		slog.Info("Static UI disabled", "dir", publicDir)
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		isRead := c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead

		switch {
		case strings.HasPrefix(path, "/api/"):
			c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
		case static != nil && isRead:
			static.ServeHTTP(c.Writer, c.Request)
		case path == "/" && isRead:
			c.JSON(http.StatusOK, gin.H{
				"service":     "Hongbao Comb",
				"version":     handler.version,
				"description": "AI red-envelope campaign aggregator",
				"endpoints": map[string]string{
					"events":  "/api/events",
					"analyze": "/api/analyze (POST)",
					"feed":    "/feeds/events.xml",
					"health":  "/health",
					"sources": "/api/sources",
					"metrics": "/metrics",
				},
			})
		default:
			c.Status(http.StatusNotFound)
		}
	}
}

// authMiddleware accepts the key in X-API-Key or as a Bearer token
func authMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			return
		}

		if providedKey != apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			return
		}

		c.Next()
	}
}
