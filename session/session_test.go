package session_test

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

	gwcrypto "github.com/gladysassistant/gateway-client/crypto"
	"github.com/gladysassistant/gateway-client/crypto/envelope"
	"github.com/gladysassistant/gateway-client/crypto/formats"
	"github.com/gladysassistant/gateway-client/crypto/keys"
	"github.com/gladysassistant/gateway-client/core/message"
	"github.com/gladysassistant/gateway-client/restclient"
	"github.com/gladysassistant/gateway-client/session"
)

type wireFrame struct {
	Event string          `json:"event"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ack   bool            `json:"ack,omitempty"`
}

func jwkOf(t *testing.T, kp gwcrypto.KeyPair) string {
	t.Helper()
	exporter := formats.NewJWKExporter()
	b, err := exporter.ExportPublic(kp, gwcrypto.KeyFormatJWK)
	require.NoError(t, err)
	return string(b)
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestUserSessionConnectAndReceiveInstanceEvent(t *testing.T) {
	userRSA, err := keys.GenerateRSAKeyPair()
	require.NoError(t, err)
	userECDSA, err := keys.GenerateECDSAKeyPair()
	require.NoError(t, err)
	instanceRSA, err := keys.GenerateRSAKeyPair()
	require.NoError(t, err)
	instanceECDSA, err := keys.GenerateECDSAKeyPair()
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/users/access-token", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": "fresh-token"})
	})
	mux.HandleFunc("/instances", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{
				"id":                "instance-1",
				"primary_instance":  true,
				"rsa_public_key":    jwkOf(t, instanceRSA),
				"ecdsa_public_key":  jwkOf(t, instanceECDSA),
			},
		})
	})
	httpSrv := httptest.NewServer(mux)
	defer httpSrv.Close()

	var upgrader websocket.Upgrader
	connCh := make(chan *websocket.Conn, 1)
	wsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		connCh <- conn
	}))
	defer wsSrv.Close()

	restClient := restclient.New(restclient.Config{ServerURL: httpSrv.URL, ClientVersion: "test"}, restclient.RoleUser)
	restClient.SetTokens("initial", "refresh-1")

	received := make(chan json.RawMessage, 1)
	sess := session.New(session.Config{
		Role:       session.RoleUser,
		SocketURL:  wsURL(wsSrv.URL),
		RestClient: restClient,
		OnMessage: func(ctx context.Context, payload json.RawMessage) {
			received <- payload
		},
	})
	require.NoError(t, sess.SetKeys(session.Keys{RSA: userRSA, ECDSA: userECDSA}))

	connectErr := make(chan error, 1)
	go func() { connectErr <- sess.Connect(context.Background()) }()

	conn := <-connCh
	var authFrame wireFrame
	require.NoError(t, conn.ReadJSON(&authFrame))
	assert.Equal(t, "user-authentication", authFrame.Event)

	ackData, _ := json.Marshal(map[string]bool{"authenticated": true})
	require.NoError(t, conn.WriteJSON(wireFrame{Event: authFrame.Event, ID: authFrame.ID, Ack: true, Data: ackData}))

	select {
	case err := <-connectErr:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("connect did not complete in time")
	}

	assert.Equal(t, "instance-1", sess.InstanceID())

	env, err := envelope.Encrypt(userRSA, instanceECDSA, message.NewEvent("deviceStateChange", map[string]string{"id": "x"}))
	require.NoError(t, err)
	envBytes, _ := json.Marshal(map[string]any{"encryptedMessage": env})
	require.NoError(t, conn.WriteJSON(wireFrame{Event: "message", Data: envBytes}))

	select {
	case payload := <-received:
		var evt message.EventPayload
		require.NoError(t, json.Unmarshal(payload, &evt))
		assert.Equal(t, "gladys-event", evt.Type)
		assert.Equal(t, "deviceStateChange", evt.Event)
	case <-time.After(5 * time.Second):
		t.Fatal("OnMessage was not invoked")
	}

	require.NoError(t, sess.Close())
}

func TestConnectFailsWithoutKeys(t *testing.T) {
	restClient := restclient.New(restclient.Config{ServerURL: "http://127.0.0.1:0", ClientVersion: "test"}, restclient.RoleUser)
	sess := session.New(session.Config{Role: session.RoleUser, SocketURL: "ws://127.0.0.1:0", RestClient: restClient})
	err := sess.Connect(context.Background())
	require.Error(t, err)
}
