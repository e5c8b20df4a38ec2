package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/signal-relay/internal/auth"
	"github.com/vovakirdan/signal-relay/internal/config"
	"github.com/vovakirdan/signal-relay/internal/core"
)

func startTestServer(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()

	logger := zerolog.Nop()
	hub := core.NewHub(cfg.HeartbeatInterval, &logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := NewServer(hub, &cfg, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)
	t.Cleanup(cancel)

	return ts
}

func wsURL(ts *httptest.Server, query string) string {
	return strings.Replace(ts.URL, "http", "ws", 1) + "/ws?" + query
}

func dial(ctx context.Context, t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

// readType reads frames until one of the given type arrives, skipping others.
func readType(ctx context.Context, t *testing.T, conn *websocket.Conn, typ string) map[string]any {
	t.Helper()
	for {
		var msg map[string]any
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		if msg["type"] == typ {
			return msg
		}
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := startTestServer(t, config.Default())

	for _, path := range []string{"/", "/health"} {
		resp, err := ts.Client().Get(ts.URL + path)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, healthBody, string(body))
		require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	}

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebSocketWelcomeAndOffer(t *testing.T) {
	ts := startTestServer(t, config.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := dial(ctx, t, wsURL(ts, "clientId=a1&roomId=r1"))
	welcome := readType(ctx, t, connA, "welcome")
	require.Equal(t, "a1", welcome["clientId"])
	require.Equal(t, "r1", welcome["roomId"])
	require.Equal(t, float64(1), readType(ctx, t, connA, "user-count")["count"])

	connB := dial(ctx, t, wsURL(ts, "clientId=b1&roomId=r1"))
	readType(ctx, t, connB, "welcome")
	require.Equal(t, float64(2), readType(ctx, t, connB, "user-count")["count"])
	require.Equal(t, float64(2), readType(ctx, t, connA, "user-count")["count"])

	require.NoError(t, wsjson.Write(ctx, connA, map[string]any{"type": "offer", "sdp": "v=0"}))

	offer := readType(ctx, t, connB, "offer")
	require.Equal(t, map[string]any{"type": "offer", "sdp": "v=0", "senderClientId": "a1"}, offer)

	// A only ever sees its pong, never its own offer.
	require.NoError(t, wsjson.Write(ctx, connA, map[string]any{"type": "ping"}))
	var next map[string]any
	require.NoError(t, wsjson.Read(ctx, connA, &next))
	require.Equal(t, "pong", next["type"])

	require.NoError(t, connB.Close(websocket.StatusNormalClosure, "bye"))
	left := readType(ctx, t, connA, "user-count")
	require.Equal(t, float64(1), left["count"])
	require.Equal(t, "r1", left["roomId"])
}

func TestWebSocketDefaultsIdentity(t *testing.T) {
	ts := startTestServer(t, config.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(ctx, t, wsURL(ts, ""))
	welcome := readType(ctx, t, conn, "welcome")
	require.NotEmpty(t, welcome["clientId"])
	require.Equal(t, core.DefaultRoomID, welcome["roomId"])
}

func TestWebSocketHeartbeat(t *testing.T) {
	cfg := config.Default()
	cfg.HeartbeatInterval = 50 * time.Millisecond
	ts := startTestServer(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(ctx, t, wsURL(ts, "clientId=a1"))
	require.Equal(t, map[string]any{"type": "heartbeat"}, readType(ctx, t, conn, "heartbeat"))
}

func TestStatsEndpoint(t *testing.T) {
	ts := startTestServer(t, config.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := dial(ctx, t, wsURL(ts, "clientId=a1&roomId=r1"))
	readType(ctx, t, connA, "welcome")
	connB := dial(ctx, t, wsURL(ts, "clientId=b1&roomId=r2"))
	readType(ctx, t, connB, "welcome")

	resp, err := ts.Client().Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.JSONEq(t, `{"rooms":2,"clients":2}`, string(body))
}

func TestWebSocketJWT(t *testing.T) {
	cfg := config.Default()
	cfg.JWTSecret = "testsecret"
	cfg.JWTRequired = true
	ts := startTestServer(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, wsURL(ts, "clientId=a1"), nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.Dial(ctx, wsURL(ts, "token=invalid"), nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	jwtCfg := &auth.JWTConfig{Secret: []byte(cfg.JWTSecret), TTL: time.Minute}
	token, err := auth.GenerateToken(jwtCfg, "user-7", "r9")
	require.NoError(t, err)

	_, resp, err = websocket.Dial(ctx, wsURL(ts, "roomId=other&token="+token), nil)
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn := dial(ctx, t, wsURL(ts, "clientId=spoof&token="+token))
	welcome := readType(ctx, t, conn, "welcome")
	require.Equal(t, "user-7", welcome["clientId"])
	require.Equal(t, "r9", welcome["roomId"])
}

func TestRateLimiter(t *testing.T) {
	r := newRateLimiter(2, time.Hour)
	require.True(t, r.allow())
	require.True(t, r.allow())
	require.False(t, r.allow())

	unlimited := newRateLimiter(0, time.Hour)
	for i := 0; i < 100; i++ {
		require.True(t, unlimited.allow())
	}
}
