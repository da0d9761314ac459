package wsconn_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/messenger/core/server"
	"github.com/dmitrymomot/messenger/core/wsconn"
)

const waitTimeout = 2 * time.Second

func serve(t *testing.T, h server.ConnHandler, opts ...wsconn.Option) string {
	t.Helper()

	srv := httptest.NewServer(wsconn.Handler(h, opts...))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(waitTimeout)))
	return ws
}

// readFive echoes the first five bytes as one write, then reports the next read error.
func readFive(errc chan<- error) server.ConnHandler {
	return server.ConnHandlerFunc(func(_ context.Context, conn net.Conn) {
		defer conn.Close()

		buf := make([]byte, 5)
		if _, err := io.ReadFull(conn, buf); err != nil {
			errc <- err
			return
		}
		if _, err := conn.Write(buf); err != nil {
			errc <- err
			return
		}
		_, err := conn.Read(make([]byte, 1))
		errc <- err
	})
}

func TestConn(t *testing.T) {
	t.Parallel()

	t.Run("joins binary messages into one stream", func(t *testing.T) {
		t.Parallel()

		errc := make(chan error, 1)
		ws := dial(t, serve(t, readFive(errc)))

		require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, []byte("he")))
		require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, []byte{}))
		require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, []byte("llo")))

		typ, data, err := ws.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.BinaryMessage, typ)
		assert.Equal(t, []byte("hello"), data)
	})

	t.Run("normal close reads as EOF", func(t *testing.T) {
		t.Parallel()

		errc := make(chan error, 1)
		ws := dial(t, serve(t, readFive(errc)))

		require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, []byte("hello")))
		_, _, err := ws.ReadMessage()
		require.NoError(t, err)

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		require.NoError(t, ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(waitTimeout)))

		select {
		case err := <-errc:
			assert.ErrorIs(t, err, io.EOF)
		case <-time.After(waitTimeout):
			t.Fatal("handler did not observe close")
		}
	})

	t.Run("rejects text messages", func(t *testing.T) {
		t.Parallel()

		errc := make(chan error, 1)
		ws := dial(t, serve(t, readFive(errc)))

		require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("hello")))

		select {
		case err := <-errc:
			assert.ErrorIs(t, err, wsconn.ErrTextMessage)
		case <-time.After(waitTimeout):
			t.Fatal("handler did not return")
		}
	})

	t.Run("exposes addresses", func(t *testing.T) {
		t.Parallel()

		addrs := make(chan [2]net.Addr, 1)
		h := server.ConnHandlerFunc(func(_ context.Context, conn net.Conn) {
			defer conn.Close()
			addrs <- [2]net.Addr{conn.LocalAddr(), conn.RemoteAddr()}
		})
		dial(t, serve(t, h))

		select {
		case got := <-addrs:
			assert.NotNil(t, got[0])
			assert.NotNil(t, got[1])
		case <-time.After(waitTimeout):
			t.Fatal("handler did not run")
		}
	})
}

func TestHandlerOrigin(t *testing.T) {
	t.Parallel()

	noop := server.ConnHandlerFunc(func(_ context.Context, conn net.Conn) { _ = conn.Close() })
	header := http.Header{"Origin": []string{"http://elsewhere.example"}}

	t.Run("rejects cross origin by default", func(t *testing.T) {
		t.Parallel()

		_, resp, err := websocket.DefaultDialer.Dial(serve(t, noop), header)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("allows any origin when configured", func(t *testing.T) {
		t.Parallel()

		ws, _, err := websocket.DefaultDialer.Dial(serve(t, noop, wsconn.WithAllowAnyOrigin()), header)
		require.NoError(t, err)
		_ = ws.Close()
	})
}
