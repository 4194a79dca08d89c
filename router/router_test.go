package router_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gwcrypto "github.com/gladysassistant/gateway-client/crypto"
	"github.com/gladysassistant/gateway-client/crypto/envelope"
	"github.com/gladysassistant/gateway-client/crypto/keys"
	"github.com/gladysassistant/gateway-client/core/message"
	"github.com/gladysassistant/gateway-client/directory"
	"github.com/gladysassistant/gateway-client/errs"
	"github.com/gladysassistant/gateway-client/router"
)

// fakeInstanceSocket simulates the relay + instance side of
// sendRequestToInstance: it decrypts the emitted envelope as the
// instance would (verifying it was signed by the caller's ECDSA key),
// replies with a canned status/body, and re-encrypts the reply under
// the caller's own RSA public key.
type fakeInstanceSocket struct {
	instanceRSA, instanceECDSA gwcrypto.KeyPair
	callerRSAPub, callerECDSAPub gwcrypto.KeyPair

	lastEmitted map[string]any

	replyStatus int
	replyBody   any
}

func (f *fakeInstanceSocket) EmitWithAck(ctx context.Context, event string, payload any) (json.RawMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var frame map[string]json.RawMessage
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, err
	}
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	f.lastEmitted = m

	var env envelope.Envelope
	if err := json.Unmarshal(frame["encryptedMessage"], &env); err != nil {
		return nil, err
	}

	var call message.APICallPayload
	if err := envelope.DecryptInto(f.instanceRSA, f.callerECDSAPub, &env, &call); err != nil {
		return nil, err
	}

	resp := message.APIResponsePayload{Status: f.replyStatus, Body: f.replyBody}
	replyEnv, err := envelope.Encrypt(f.callerRSAPub, f.instanceECDSA, resp)
	if err != nil {
		return nil, err
	}
	return json.Marshal(replyEnv)
}

func (f *fakeInstanceSocket) Emit(event string, payload any) error {
	raw, _ := json.Marshal(payload)
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	f.lastEmitted = m
	return nil
}

func TestSendRequestToInstanceRoundTrip(t *testing.T) {
	instanceRSA, err := keys.GenerateRSAKeyPair()
	require.NoError(t, err)
	instanceECDSA, err := keys.GenerateECDSAKeyPair()
	require.NoError(t, err)
	callerRSA, err := keys.GenerateRSAKeyPair()
	require.NoError(t, err)
	callerECDSA, err := keys.GenerateECDSAKeyPair()
	require.NoError(t, err)

	sock := &fakeInstanceSocket{
		instanceRSA:   instanceRSA,
		instanceECDSA: instanceECDSA,
		callerRSAPub:  callerRSA,
		callerECDSAPub: callerECDSA,
		replyStatus:   200,
		replyBody:     []string{"device-a", "device-b"},
	}

	r := router.New(sock, callerRSA, callerECDSA)
	body, err := r.SendRequestGet(t.Context(), "instance-1", instanceRSA, instanceECDSA, "/devices", map[string]int{"limit": 10})
	require.NoError(t, err)

	var got []string
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, []string{"device-a", "device-b"}, got)

	require.NotNil(t, sock.lastEmitted)
	assert.Equal(t, "instance-1", sock.lastEmitted["instance_id"])
}

func TestSendRequestToInstanceAPIErrorStatus(t *testing.T) {
	instanceRSA, err := keys.GenerateRSAKeyPair()
	require.NoError(t, err)
	instanceECDSA, err := keys.GenerateECDSAKeyPair()
	require.NoError(t, err)
	callerRSA, err := keys.GenerateRSAKeyPair()
	require.NoError(t, err)
	callerECDSA, err := keys.GenerateECDSAKeyPair()
	require.NoError(t, err)

	sock := &fakeInstanceSocket{
		instanceRSA:    instanceRSA,
		instanceECDSA:  instanceECDSA,
		callerRSAPub:   callerRSA,
		callerECDSAPub: callerECDSA,
		replyStatus:    404,
		replyBody:      map[string]string{"error": "not found"},
	}

	r := router.New(sock, callerRSA, callerECDSA)
	_, err = r.SendRequestToInstance(t.Context(), "instance-1", instanceRSA, instanceECDSA, "GET", "/missing", nil)
	require.Error(t, err)

	var apiErr *router.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)
}

func TestSendRequestToInstanceMissingPrerequisites(t *testing.T) {
	callerRSA, err := keys.GenerateRSAKeyPair()
	require.NoError(t, err)
	callerECDSA, err := keys.GenerateECDSAKeyPair()
	require.NoError(t, err)

	r := router.New(&fakeInstanceSocket{}, callerRSA, callerECDSA)
	_, err = r.SendRequestToInstance(t.Context(), "", nil, nil, "GET", "/x", nil)
	assert.ErrorIs(t, err, errs.ErrNoInstanceID)
}

type fakeFetcherForRouter struct {
	peers []directory.PeerEntryData
}

func (f *fakeFetcherForRouter) FetchPeers(ctx context.Context) ([]directory.PeerEntryData, error) {
	return f.peers, nil
}

type broadcastSocket struct {
	sent []map[string]any
}

func (b *broadcastSocket) EmitWithAck(ctx context.Context, event string, payload any) (json.RawMessage, error) {
	return nil, nil
}

func (b *broadcastSocket) Emit(event string, payload any) error {
	raw, _ := json.Marshal(payload)
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	b.sent = append(b.sent, m)
	return nil
}

func TestSendMessageAllUsersSkipsDisconnected(t *testing.T) {
	selfRSA, err := keys.GenerateRSAKeyPair()
	require.NoError(t, err)
	selfECDSA, err := keys.GenerateECDSAKeyPair()
	require.NoError(t, err)

	connectedRSA, err := keys.GenerateRSAKeyPair()
	require.NoError(t, err)
	disconnectedRSA, err := keys.GenerateRSAKeyPair()
	require.NoError(t, err)

	peers := []*directory.PeerEntry{
		{ID: "p1", Connected: true, RSAPublicKey: connectedRSA},
		{ID: "p2", Connected: false, RSAPublicKey: disconnectedRSA},
	}

	sock := &broadcastSocket{}
	r := router.New(sock, selfRSA, selfECDSA)

	sent, err := r.SendMessageAllUsers(t.Context(), peers, message.NewEvent("deviceStateChange", map[string]string{"id": "x"}))
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, sock.sent, 1)
	assert.Equal(t, "p1", sock.sent[0]["user_id"])
}

func TestSendMessageToUserUnknownRecipientWhenNotInDirectory(t *testing.T) {
	selfRSA, err := keys.GenerateRSAKeyPair()
	require.NoError(t, err)
	selfECDSA, err := keys.GenerateECDSAKeyPair()
	require.NoError(t, err)

	fetcher := &fakeFetcherForRouter{peers: []directory.PeerEntryData{}}
	dir := directory.New(fetcher)

	sock := &broadcastSocket{}
	r := router.New(sock, selfRSA, selfECDSA)
	err = r.SendMessageToUser(t.Context(), dir, "ghost-user", message.NewEvent("x", nil))
	assert.ErrorIs(t, err, errs.ErrUnknownRecipient)
}
