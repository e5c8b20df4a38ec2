package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/signal-relay/internal/auth"
)

const (
	// ContextKeyClientID is the context key for a token-resolved client id.
	ContextKeyClientID = "client_id"
	// ContextKeyRoomID is the context key for a token-resolved room id.
	ContextKeyRoomID = "room_id"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CORSMiddleware adds permissive CORS headers and answers preflight requests.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// ConnectAuthMiddleware validates connect tokens on upgrade requests.
// With a nil cfg tokens are ignored. Plain HTTP requests pass through.
func ConnectAuthMiddleware(cfg *auth.JWTConfig, required bool, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg == nil || !isUpgrade(c.Request) {
			c.Next()
			return
		}

		token := connectToken(c.Request)
		if token == "" {
			if required {
				logger.Debug().Msg("missing connect token")
				c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing token"})
				return
			}
			c.Next()
			return
		}

		claims, err := auth.ValidateToken(cfg, token)
		if err != nil {
			logger.Debug().Err(err).Msg("invalid connect token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			return
		}

		clientID, roomID, err := claims.Identity(c.Query("roomId"))
		if err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, auth.ErrRoomNotAllowed) {
				status = http.StatusForbidden
			}
			c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error()})
			return
		}

		if clientID != "" {
			c.Set(ContextKeyClientID, clientID)
		}
		if roomID != "" {
			c.Set(ContextKeyRoomID, roomID)
		}
		c.Next()
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	}
}

func connectToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
