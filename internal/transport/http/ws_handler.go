package http

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/signal-relay/internal/config"
	"github.com/vovakirdan/signal-relay/internal/core"
	"github.com/vovakirdan/signal-relay/internal/utils"
)

const writeTimeout = 10 * time.Second

var errServerClosing = errors.New("server closing connection")

// WSHandler upgrades HTTP connections and bridges them to the core hub.
type WSHandler struct {
	hub *core.Hub
	cfg *config.Config
	log *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, cfg: cfg, log: logger}
}

// Handle upgrades the request and pumps frames until either side closes.
func (h *WSHandler) Handle(c *gin.Context) {
	clientID, roomID := h.identity(c)

	ws, err := websocket.Accept(c.Writer, c.Request, h.acceptOptions())
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer ws.Close(websocket.StatusInternalError, "internal error")
	ws.SetReadLimit(h.cfg.MaxMessageBytes)

	conn := newWSConn(ws, h.cfg.SendBuffer)
	if err := h.hub.Connect(conn, clientID, roomID); err != nil {
		ws.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, clientID)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, clientID)
	}()

	err = <-errCh
	_ = conn.Close()

	status, reason, err := h.closeStatus(err, clientID)
	h.hub.Disconnect(conn, err)

	// Close before cancelling so the peer sees our status rather than a
	// read-cancellation close.
	ws.Close(status, reason)
	cancel()
	<-errCh
}

// closeStatus maps the loop error to a close status. Normal closures and
// going-away are not reported as errors.
func (h *WSHandler) closeStatus(err error, clientID string) (websocket.StatusCode, string, error) {
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, io.EOF):
		return websocket.StatusNormalClosure, "closing", nil
	case errors.Is(err, errServerClosing):
		return websocket.StatusGoingAway, "server shutting down", nil
	}

	status := websocket.CloseStatus(err)
	switch status {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return status, "closing", nil
	case -1:
		status = websocket.StatusInternalError
	}
	h.log.Warn().Err(err).Str("client_id", clientID).Msg("ws connection closed with error")
	return status, "connection error", err
}

func (h *WSHandler) identity(c *gin.Context) (clientID, roomID string) {
	clientID = c.GetString(ContextKeyClientID)
	if clientID == "" {
		clientID = c.Query("clientId")
	}
	if clientID == "" {
		clientID = utils.NewID()
	}

	roomID = c.GetString(ContextKeyRoomID)
	if roomID == "" {
		roomID = c.Query("roomId")
	}
	if roomID == "" {
		roomID = core.DefaultRoomID
	}
	return clientID, roomID
}

func (h *WSHandler) acceptOptions() *websocket.AcceptOptions {
	if len(h.cfg.AllowedOrigins) == 0 {
		return &websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	return &websocket.AcceptOptions{OriginPatterns: h.cfg.AllowedOrigins}
}

func (h *WSHandler) readLoop(ctx context.Context, conn *wsConn, clientID string) error {
	limiter := newRateLimiter(h.cfg.MessagesPerMinute, time.Minute)
	stop := make(chan struct{})
	defer close(stop)
	limiter.startReset(stop)

	for {
		_, data, err := conn.ws.Read(ctx)
		if err != nil {
			h.log.Debug().Err(err).Str("client_id", clientID).Msg("read ws inbound")
			return err
		}

		if !limiter.allow() {
			h.log.Warn().Str("client_id", clientID).Msg("rate limit exceeded, dropping frame")
			continue
		}

		if err := h.hub.Message(conn, data); err != nil {
			return errServerClosing
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *wsConn, clientID string) error {
	for {
		select {
		case payload := <-conn.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.ws.Write(writeCtx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				h.log.Error().Err(err).Str("client_id", clientID).Msg("write ws frame")
				return err
			}
		case <-conn.done:
			return errServerClosing
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
