package f2xws

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/arloliu/go-f2x/f2x"
	"github.com/arloliu/go-f2x/logger"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	level, err := logger.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logger.InfoLevel
	}
	logger.SetLevel(level)

	os.Exit(m.Run())
}

type Ping struct {
	XMLName xml.Name `xml:"Ping"`
}

type Pong struct {
	XMLName xml.Name `xml:"Pong"`
}

// foundationServer starts a websocket server calling serve for every accepted websocket.
func foundationServer(t *testing.T, serve func(conn *websocket.Conn)) string {
	t.Helper()

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		serve(conn)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/f2x"
}

// pongServer answers every binary request frame with a Pong reply.
func pongServer(conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		header, _, err := f2x.DecodeFrame(data)
		if err != nil || header.IsReply() {
			continue
		}

		reply := f2x.ApplicationHeaderSegment{
			MessageNumber: header.MessageNumber + 1,
			ApiCategory:   header.ApiCategory,
			Channel:       header.Channel,
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, f2x.EncodeFrame(reply, []byte("<Pong/>"))); err != nil {
			return
		}
	}
}

func newTestConnection(t *testing.T, url string, opts ...Option) *Connection {
	t.Helper()

	cfg, err := NewConfig(url, opts...)
	require.NoError(t, err)
	conn, err := NewConnection(t.Context(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Disconnect() })

	return conn
}

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		opts    []Option
		wantErr bool
	}{
		{name: "ws", url: "ws://127.0.0.1:7400/f2x"},
		{name: "wss", url: "wss://foundation.local/f2x"},
		{name: "http scheme", url: "http://127.0.0.1:7400", wantErr: true},
		{name: "no host", url: "ws:///f2x", wantErr: true},
		{name: "bad url", url: "ws://[::1", wantErr: true},
		{name: "handshake timeout", url: "ws://h/", opts: []Option{WithHandshakeTimeout(time.Second)}},
		{name: "handshake timeout too small", url: "ws://h/", opts: []Option{WithHandshakeTimeout(0)}, wantErr: true},
		{name: "write timeout too large", url: "ws://h/", opts: []Option{WithWriteTimeout(time.Hour)}, wantErr: true},
		{name: "close timeout", url: "ws://h/", opts: []Option{WithCloseTimeout(500 * time.Millisecond)}},
		{name: "max frame too small", url: "ws://h/", opts: []Option{WithMaxFrameSize(8)}, wantErr: true},
		{name: "nil logger", url: "ws://h/", opts: []Option{WithLogger(nil)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewConfig(tt.url, tt.opts...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.url, cfg.URL())
		})
	}

	require.ErrorIs(t, WithLogger(logger.GetLogger()).apply(nil), ErrConfigNil)
}

func TestConnection_TransportPingPong(t *testing.T) {
	require := require.New(t)

	url := foundationServer(t, pongServer)
	raw := newTestConnection(t, url)

	transport, err := f2x.NewTransport(raw)
	require.NoError(err)

	codec, err := f2x.NewXMLCodec(Ping{}, Pong{})
	require.NoError(err)
	category, err := f2x.NewCategory[any](transport, f2x.NewCategoryVersionInformation(100, 1, 0), codec)
	require.NoError(err)
	require.NoError(transport.InstallCategoryHandler(category))
	defer category.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(transport.Connect(ctx))

	for range 3 {
		pong, err := f2x.SendMessageAndGetReply[*Pong, any](category, f2x.GameChannel, &Ping{})
		require.NoError(err)
		require.Equal("Pong", pong.XMLName.Local)
	}

	require.NoError(transport.Disconnect())
	require.ErrorIs(raw.Send([]byte("<Ping/>")), f2x.ErrNotConnected)
}

func TestConnection_TextMessageIsFault(t *testing.T) {
	url := foundationServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte("<Pong/>"))
		// wait for the peer to close
		_, _, _ = conn.ReadMessage()
	})

	raw := newTestConnection(t, url)
	faults := make(chan error, 1)
	raw.SetFaultHandler(func(err error) { faults <- err })

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, raw.Connect(ctx))

	select {
	case err := <-faults:
		require.ErrorIs(t, err, ErrUnexpectedMessageType)
	case <-time.After(3 * time.Second):
		require.FailNow(t, "fault not reported")
	}
	require.Eventually(t, raw.opState.IsClosed, time.Second, 10*time.Millisecond)
}

func TestConnection_PeerCloseIsFault(t *testing.T) {
	url := foundationServer(t, func(conn *websocket.Conn) {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	})

	raw := newTestConnection(t, url)
	faults := make(chan error, 1)
	raw.SetFaultHandler(func(err error) { faults <- err })

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, raw.Connect(ctx))

	select {
	case err := <-faults:
		require.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
	case <-time.After(3 * time.Second):
		require.FailNow(t, "fault not reported")
	}
}

func TestConnection_DisconnectReportsNoFault(t *testing.T) {
	url := foundationServer(t, pongServer)
	raw := newTestConnection(t, url)

	faults := make(chan error, 1)
	raw.SetFaultHandler(func(err error) { faults <- err })

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, raw.Connect(ctx))
	require.NoError(t, raw.Connect(ctx))

	require.NoError(t, raw.Disconnect())
	require.NoError(t, raw.Disconnect())

	select {
	case err := <-faults:
		require.FailNow(t, "unexpected fault", err)
	case <-time.After(200 * time.Millisecond):
	}

	// reconnect works after a clean disconnect
	require.NoError(t, raw.Connect(ctx))
	require.True(t, raw.opState.IsOpened())
}

func TestConnection_SendValidation(t *testing.T) {
	url := foundationServer(t, pongServer)
	raw := newTestConnection(t, url, WithMaxFrameSize(32))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, raw.Connect(ctx))

	require.ErrorIs(t, raw.Send(make([]byte, 33)), ErrFrameTooLarge)
	require.ErrorIs(t, raw.Send(nil), ErrEmptyFrame)
}

func TestConnection_HandshakeRejected(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	raw := newTestConnection(t, "ws"+strings.TrimPrefix(srv.URL, "http"))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := raw.Connect(ctx)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Contains(t, err.Error(), "status 404")
	require.True(t, raw.opState.IsClosed())
}
