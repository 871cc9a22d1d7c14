package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Manager, *httptest.Server) {
	t.Helper()

	srv := httptest.NewUnstartedServer(nil)
	m := NewManager([]string{srv.Listener.Addr().String()}, nil)
	srv.Config.Handler = http.HandlerFunc(m.HandleWebSocket)
	srv.Start()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
		srv.Close()
	})
	return m, srv
}

func dial(t *testing.T, srv *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.Dial(ctx, "ws"+srv.URL[len("http"):], &websocket.DialOptions{HTTPHeader: header})
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestBroadcastReachesClients(t *testing.T) {
	m, srv := newTestServer(t)

	first, _, err := dial(t, srv, srv.URL)
	require.NoError(t, err)
	defer first.CloseNow()
	second, _, err := dial(t, srv, srv.URL)
	require.NoError(t, err)
	defer second.CloseNow()

	assert.Equal(t, MessageConnected, readMessage(t, first).Type)
	assert.Equal(t, MessageConnected, readMessage(t, second).Type)
	require.Eventually(t, func() bool { return m.ConnectedClients() == 2 }, 2*time.Second, 10*time.Millisecond)

	m.Broadcast(Message{Type: MessageReload, PageID: "landing", Checksum: "abc"})

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		assert.Equal(t, MessageReload, msg.Type)
		assert.Equal(t, "landing", msg.PageID)
		assert.Equal(t, "abc", msg.Checksum)
		assert.False(t, msg.Timestamp.IsZero())
	}
}

func TestRejectsForeignOrigin(t *testing.T) {
	_, srv := newTestServer(t)

	for _, origin := range []string{"", "http://evil.example", "file://" + srv.Listener.Addr().String()} {
		_, resp, err := dial(t, srv, origin)
		require.Error(t, err, origin)
		require.NotNil(t, resp, origin)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, origin)
	}
}

func TestClientDisconnectUnregisters(t *testing.T) {
	m, srv := newTestServer(t)

	conn, _, err := dial(t, srv, srv.URL)
	require.NoError(t, err)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return m.ConnectedClients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))
	assert.Eventually(t, func() bool { return m.ConnectedClients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestShutdown(t *testing.T) {
	m, srv := newTestServer(t)

	conn, _, err := dial(t, srv, srv.URL)
	require.NoError(t, err)
	defer conn.CloseNow()
	readMessage(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))
	require.NoError(t, m.Shutdown(ctx))
	assert.True(t, m.IsShutdown())
	assert.Equal(t, 0, m.ConnectedClients())

	readCtx, readCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer readCancel()
	_, _, err = conn.Read(readCtx)
	assert.Error(t, err, "server must close the connection")

	_, resp, err := dial(t, srv, srv.URL)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	m.Broadcast(Message{Type: MessageReload})
}
