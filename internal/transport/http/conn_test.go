package http

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/signal-relay/internal/core"
)

func TestWSConnSendBufferAndClose(t *testing.T) {
	conn := newWSConn(nil, 2)
	require.True(t, conn.Open())

	require.NoError(t, conn.Send([]byte("1")))
	require.NoError(t, conn.Send([]byte("2")))
	require.ErrorIs(t, conn.Send([]byte("3")), core.ErrSendBufferFull)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	require.False(t, conn.Open())
	require.ErrorIs(t, conn.Send([]byte("4")), core.ErrConnClosed)
}
