package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/signal-relay/internal/auth"
	"github.com/vovakirdan/signal-relay/internal/config"
	"github.com/vovakirdan/signal-relay/internal/core"
)

const healthBody = "signal relay ok"

// NewServer builds the HTTP server: health text, stats, and the WebSocket
// upgrade on / and /ws.
func NewServer(hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), CORSMiddleware(), LoggerMiddleware(logger))

	ws := NewWSHandler(hub, cfg, logger)
	connectAuth := ConnectAuthMiddleware(jwtConfig(cfg), cfg.JWTRequired, logger)

	router.GET("/", connectAuth, func(c *gin.Context) {
		if isUpgrade(c.Request) {
			ws.Handle(c)
			return
		}
		healthHandler(c)
	})
	router.GET("/ws", connectAuth, ws.Handle)
	router.GET("/health", healthHandler)
	router.GET("/stats", statsHandler(hub))
	router.OPTIONS("/*path", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func jwtConfig(cfg *config.Config) *auth.JWTConfig {
	if cfg.JWTSecret == "" {
		return nil
	}
	return &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      24 * time.Hour,
	}
}

func healthHandler(c *gin.Context) {
	c.String(http.StatusOK, healthBody)
}

func statsHandler(hub *core.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := hub.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}
