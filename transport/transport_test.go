package transport_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gladysassistant/gateway-client/transport"
)

type wireFrame struct {
	Event string          `json:"event"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ack   bool            `json:"ack,omitempty"`
}

// fakeRelay is a minimal websocket server playing the relay's part of
// spec §4.5: it acks the authentication frame, then lets the test
// script push arbitrary inbound frames and read outbound ones.
type fakeRelay struct {
	upgrader websocket.Upgrader
	connCh   chan *websocket.Conn
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{connCh: make(chan *websocket.Conn, 1)}
}

func (r *fakeRelay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	r.connCh <- conn
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestConnectReachesReadyOnSuccessfulAuth(t *testing.T) {
	relay := newFakeRelay()
	srv := httptest.NewServer(relay)
	defer srv.Close()

	sock := transport.New(transport.Config{
		URL:       wsURL(srv.URL),
		AuthEvent: "user-authentication",
		TokenProvider: func(ctx context.Context) (string, error) {
			return "tok-1", nil
		},
	})

	done := make(chan error, 1)
	go func() { done <- sock.Connect(context.Background()) }()

	conn := <-relay.connCh
	var authFrame wireFrame
	require.NoError(t, conn.ReadJSON(&authFrame))
	assert.Equal(t, "user-authentication", authFrame.Event)

	var authPayload struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(authFrame.Data, &authPayload))
	assert.Equal(t, "tok-1", authPayload.AccessToken)

	ackData, _ := json.Marshal(map[string]bool{"authenticated": true})
	require.NoError(t, conn.WriteJSON(wireFrame{Event: authFrame.Event, ID: authFrame.ID, Ack: true, Data: ackData}))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Connect did not return in time")
	}
	assert.Equal(t, transport.StateReady, sock.State())
}

func TestConnectAuthRejected(t *testing.T) {
	relay := newFakeRelay()
	srv := httptest.NewServer(relay)
	defer srv.Close()

	sock := transport.New(transport.Config{
		URL:       wsURL(srv.URL),
		AuthEvent: "user-authentication",
		TokenProvider: func(ctx context.Context) (string, error) {
			return "tok-1", nil
		},
	})

	done := make(chan error, 1)
	go func() { done <- sock.Connect(context.Background()) }()

	conn := <-relay.connCh
	var authFrame wireFrame
	require.NoError(t, conn.ReadJSON(&authFrame))

	ackData, _ := json.Marshal(map[string]bool{"authenticated": false})
	require.NoError(t, conn.WriteJSON(wireFrame{Event: authFrame.Event, ID: authFrame.ID, Ack: true, Data: ackData}))

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Connect did not return in time")
	}
	assert.Equal(t, transport.StateClosed, sock.State())
}

func TestConnectTokenProviderFailureClosesSession(t *testing.T) {
	relay := newFakeRelay()
	srv := httptest.NewServer(relay)
	defer srv.Close()

	sock := transport.New(transport.Config{
		URL:       wsURL(srv.URL),
		AuthEvent: "user-authentication",
		TokenProvider: func(ctx context.Context) (string, error) {
			return "", assert.AnError
		},
	})

	err := sock.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, transport.StateClosed, sock.State())
}

func TestDispatchInvokesRegisteredHandler(t *testing.T) {
	relay := newFakeRelay()
	srv := httptest.NewServer(relay)
	defer srv.Close()

	received := make(chan json.RawMessage, 1)
	sock := transport.New(transport.Config{
		URL:       wsURL(srv.URL),
		AuthEvent: "user-authentication",
		TokenProvider: func(ctx context.Context) (string, error) {
			return "tok-1", nil
		},
	})
	sock.On("hello", func(ctx context.Context, data json.RawMessage, ack transport.AckFunc) {
		received <- data
	})

	done := make(chan error, 1)
	go func() { done <- sock.Connect(context.Background()) }()

	conn := <-relay.connCh
	var authFrame wireFrame
	require.NoError(t, conn.ReadJSON(&authFrame))
	ackData, _ := json.Marshal(map[string]bool{"authenticated": true})
	require.NoError(t, conn.WriteJSON(wireFrame{Event: authFrame.Event, ID: authFrame.ID, Ack: true, Data: ackData}))
	require.NoError(t, <-done)

	helloData, _ := json.Marshal(map[string]string{"peer": "instance-1"})
	require.NoError(t, conn.WriteJSON(wireFrame{Event: "hello", Data: helloData}))

	select {
	case data := <-received:
		var payload map[string]string
		require.NoError(t, json.Unmarshal(data, &payload))
		assert.Equal(t, "instance-1", payload["peer"])
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestEmitWithAckTimesOut(t *testing.T) {
	relay := newFakeRelay()
	srv := httptest.NewServer(relay)
	defer srv.Close()

	sock := transport.New(transport.Config{
		URL:       wsURL(srv.URL),
		AuthEvent: "user-authentication",
		AckTimeout: 50 * time.Millisecond,
		TokenProvider: func(ctx context.Context) (string, error) {
			return "tok-1", nil
		},
	})

	done := make(chan error, 1)
	go func() { done <- sock.Connect(context.Background()) }()

	conn := <-relay.connCh
	var authFrame wireFrame
	require.NoError(t, conn.ReadJSON(&authFrame))
	ackData, _ := json.Marshal(map[string]bool{"authenticated": true})
	require.NoError(t, conn.WriteJSON(wireFrame{Event: authFrame.Event, ID: authFrame.ID, Ack: true, Data: ackData}))
	require.NoError(t, <-done)

	_, err := sock.EmitWithAck(context.Background(), "latency", 123)
	assert.Error(t, err)
}

func TestCloseUnblocksPendingEmitWithAck(t *testing.T) {
	relay := newFakeRelay()
	srv := httptest.NewServer(relay)
	defer srv.Close()

	sock := transport.New(transport.Config{
		URL:       wsURL(srv.URL),
		AuthEvent: "user-authentication",
		AckTimeout: 10 * time.Second,
		TokenProvider: func(ctx context.Context) (string, error) {
			return "tok-1", nil
		},
	})

	done := make(chan error, 1)
	go func() { done <- sock.Connect(context.Background()) }()

	conn := <-relay.connCh
	var authFrame wireFrame
	require.NoError(t, conn.ReadJSON(&authFrame))
	ackData, _ := json.Marshal(map[string]bool{"authenticated": true})
	require.NoError(t, conn.WriteJSON(wireFrame{Event: authFrame.Event, ID: authFrame.ID, Ack: true, Data: ackData}))
	require.NoError(t, <-done)

	emitErr := make(chan error, 1)
	go func() {
		_, err := sock.EmitWithAck(context.Background(), "latency", 123)
		emitErr <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, sock.Close())

	select {
	case err := <-emitErr:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("EmitWithAck did not unblock after Close")
	}
}
