package directory_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gwcrypto "github.com/gladysassistant/gateway-client/crypto"
	"github.com/gladysassistant/gateway-client/crypto/formats"
	"github.com/gladysassistant/gateway-client/crypto/keys"
	"github.com/gladysassistant/gateway-client/directory"
)

func peerJWKs(t *testing.T) (rsaJWK, ecdsaJWK string) {
	t.Helper()
	rsaPair, err := keys.GenerateRSAKeyPair()
	require.NoError(t, err)
	ecdsaPair, err := keys.GenerateECDSAKeyPair()
	require.NoError(t, err)

	exporter := formats.NewJWKExporter()
	rsaBytes, err := exporter.ExportPublic(rsaPair, gwcrypto.KeyFormatJWK)
	require.NoError(t, err)
	ecdsaBytes, err := exporter.ExportPublic(ecdsaPair, gwcrypto.KeyFormatJWK)
	require.NoError(t, err)
	return string(rsaBytes), string(ecdsaBytes)
}

type fakeFetcher struct {
	calls int32
	peers []directory.PeerEntryData
	err   error
}

func (f *fakeFetcher) FetchPeers(ctx context.Context) ([]directory.PeerEntryData, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.peers, nil
}

func TestGetMissReturnsFalse(t *testing.T) {
	dir := directory.New(&fakeFetcher{})
	_, ok := dir.Get("nope")
	assert.False(t, ok)
}

func TestRefreshPopulatesAndPreservesConnected(t *testing.T) {
	rsaJWK, ecdsaJWK := peerJWKs(t)
	fetcher := &fakeFetcher{peers: []directory.PeerEntryData{
		{ID: "peer-1", Gladys4UserID: "u1", Connected: true, RSAPublicKey: rsaJWK, ECDSAPublicKey: ecdsaJWK},
	}}
	dir := directory.New(fetcher)

	require.NoError(t, dir.Refresh(t.Context()))
	entry, ok := dir.Get("peer-1")
	require.True(t, ok)
	assert.True(t, entry.Connected)
	assert.Equal(t, rsaJWK, entry.RSAPublicKeyRaw)

	// Second refresh with connected flipped false must update in place,
	// never evicting the entry (spec §4.4 "Refresh never evicts").
	fetcher.peers[0].Connected = false
	require.NoError(t, dir.Refresh(t.Context()))
	entry, ok = dir.Get("peer-1")
	require.True(t, ok)
	assert.False(t, entry.Connected)
}

func TestClearDropsEntries(t *testing.T) {
	rsaJWK, ecdsaJWK := peerJWKs(t)
	fetcher := &fakeFetcher{peers: []directory.PeerEntryData{
		{ID: "peer-1", RSAPublicKey: rsaJWK, ECDSAPublicKey: ecdsaJWK},
	}}
	dir := directory.New(fetcher)
	require.NoError(t, dir.Refresh(t.Context()))
	_, ok := dir.Get("peer-1")
	require.True(t, ok)

	dir.Clear()
	_, ok = dir.Get("peer-1")
	assert.False(t, ok)
}

func TestFindByGladys4UserIDRefreshesOnceOnMiss(t *testing.T) {
	rsaJWK, ecdsaJWK := peerJWKs(t)
	fetcher := &fakeFetcher{peers: []directory.PeerEntryData{
		{ID: "peer-1", Gladys4UserID: "u-42", RSAPublicKey: rsaJWK, ECDSAPublicKey: ecdsaJWK},
	}}
	dir := directory.New(fetcher)

	entry, ok, err := dir.FindByGladys4UserID(t.Context(), "u-42")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "peer-1", entry.ID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))

	// A second unknown lookup that the first refresh already satisfied must
	// not trigger a second refresh (spec testable property 7).
	_, ok, err = dir.FindByGladys4UserID(t.Context(), "u-42")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
}

func TestFindByGladys4UserIDStillMissingAfterRefresh(t *testing.T) {
	fetcher := &fakeFetcher{}
	dir := directory.New(fetcher)

	_, ok, err := dir.FindByGladys4UserID(t.Context(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
}
