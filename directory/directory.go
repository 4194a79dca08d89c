// Package directory is the client's cache of relay-peer public keys and
// presence, keyed by the relay's own peer id. Grounded on
// crypto/storage/memory.go's mutex-guarded-map shape, generalized from
// KeyPair values to PeerEntry values, with a hand-rolled single-flight
// refresh guard so concurrent cache misses collapse into one fetch.
// golang.org/x/sync/singleflight was considered but no go.mod in the
// retrieval pack imports golang.org/x/sync for this purpose, so the
// guard is a plain mutex + broadcast channel instead of an unneeded
// sub-dependency.
package directory

import (
	"context"
	"crypto/ecdsa"
	"crypto/rsa"
	"fmt"
	"sync"

	gwcrypto "github.com/gladysassistant/gateway-client/crypto"
	"github.com/gladysassistant/gateway-client/crypto/formats"
	"github.com/gladysassistant/gateway-client/crypto/keys"
)

// PeerEntry is the client-side view of one relay peer.
type PeerEntry struct {
	ID             string
	Gladys4UserID  string
	Connected      bool
	RSAPublicKey   gwcrypto.KeyPair
	ECDSAPublicKey gwcrypto.KeyPair
	RSAPublicKeyRaw   string
	ECDSAPublicKeyRaw string
}

// PeerEntryData is the wire shape the relay returns for one peer. The
// RSA/ECDSA public key fields are themselves JSON-encoded JWK strings —
// kept double-encoded on the wire for compatibility but parsed into
// real public keys at this boundary.
type PeerEntryData struct {
	ID             string `json:"id"`
	Gladys4UserID  string `json:"gladys4_user_id,omitempty"`
	Connected      bool   `json:"connected"`
	RSAPublicKey   string `json:"rsa_public_key"`
	ECDSAPublicKey string `json:"ecdsa_public_key"`
}

// Fetcher is the collaborator that knows how to list the authoritative
// peer set from the relay (restclient.Client in production).
type Fetcher interface {
	FetchPeers(ctx context.Context) ([]PeerEntryData, error)
}

// Directory is the PeerDirectory: a concurrency-safe cache from
// relay-peer-id to PeerEntry.
type Directory struct {
	fetcher Fetcher

	mu    sync.RWMutex
	peers map[string]*PeerEntry

	refreshMu   sync.Mutex
	refreshing  bool
	refreshDone chan struct{}
}

// New creates an empty Directory backed by fetcher.
func New(fetcher Fetcher) *Directory {
	return &Directory{
		fetcher: fetcher,
		peers:   make(map[string]*PeerEntry),
	}
}

// Get performs an O(1) lookup; a miss returns (nil, false).
func (d *Directory) Get(id string) (*PeerEntry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	entry, ok := d.peers[id]
	return entry, ok
}

// Clear drops all cached entries, in response to a clear-key-cache
// event from the relay.
func (d *Directory) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.peers = make(map[string]*PeerEntry)
}

// Refresh fetches the authoritative peer list from the relay and
// merges it in: an already-cached id has only its Connected flag
// updated, a new id gets a fully parsed PeerEntry. Refresh never evicts
// — only Clear does. Concurrent Refresh calls collapse into one
// in-flight fetch. Only the caller that runs the fetch receives its
// error; a caller that waits on it returns nil once it finishes,
// whether or not it succeeded.
func (d *Directory) Refresh(ctx context.Context) error {
	d.refreshMu.Lock()
	if d.refreshing {
		done := d.refreshDone
		d.refreshMu.Unlock()
		<-done
		return nil
	}
	d.refreshing = true
	done := make(chan struct{})
	d.refreshDone = done
	d.refreshMu.Unlock()

	err := d.doRefresh(ctx)

	d.refreshMu.Lock()
	d.refreshing = false
	d.refreshDone = nil
	d.refreshMu.Unlock()
	close(done)

	return err
}

func (d *Directory) doRefresh(ctx context.Context) error {
	peers, err := d.fetcher.FetchPeers(ctx)
	if err != nil {
		return fmt.Errorf("directory: refresh: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, data := range peers {
		if existing, ok := d.peers[data.ID]; ok {
			existing.Connected = data.Connected
			continue
		}

		entry, err := parseEntry(data)
		if err != nil {
			continue
		}
		d.peers[data.ID] = entry
	}
	return nil
}

// FindByGladys4UserID linearly scans cached entries; on a miss it
// refreshes once and scans again.
func (d *Directory) FindByGladys4UserID(ctx context.Context, gladys4UserID string) (*PeerEntry, bool, error) {
	if entry, ok := d.scanByGladys4UserID(gladys4UserID); ok {
		return entry, true, nil
	}

	if err := d.Refresh(ctx); err != nil {
		return nil, false, err
	}

	entry, ok := d.scanByGladys4UserID(gladys4UserID)
	return entry, ok, nil
}

func (d *Directory) scanByGladys4UserID(gladys4UserID string) (*PeerEntry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, entry := range d.peers {
		if entry.Gladys4UserID == gladys4UserID {
			return entry, true
		}
	}
	return nil, false
}

func parseEntry(data PeerEntryData) (*PeerEntry, error) {
	rsaPubKey, ecdsaPubKey, err := ParsePublicKeys(data.RSAPublicKey, data.ECDSAPublicKey)
	if err != nil {
		return nil, fmt.Errorf("directory: peer %s: %w", data.ID, err)
	}

	return &PeerEntry{
		ID:                data.ID,
		Gladys4UserID:     data.Gladys4UserID,
		Connected:         data.Connected,
		RSAPublicKey:      keys.NewRSAPublicKeyOnly(rsaPubKey, data.ID),
		ECDSAPublicKey:    keys.NewECDSAPublicKeyOnly(ecdsaPubKey, data.ID),
		RSAPublicKeyRaw:   data.RSAPublicKey,
		ECDSAPublicKeyRaw: data.ECDSAPublicKey,
	}, nil
}

// ParsePublicKeys parses the double-JSON-encoded JWK strings the relay
// sends for a principal's public keys (spec §9 "JSON-in-JSON fields"),
// shared by PeerDirectory entries and a user session's peer-instance
// key population (spec §4.5 step 2).
func ParsePublicKeys(rsaPublicKeyJWK, ecdsaPublicKeyJWK string) (*rsa.PublicKey, *ecdsa.PublicKey, error) {
	importer := formats.NewJWKImporter()

	rsaPub, err := importer.ImportPublic([]byte(rsaPublicKeyJWK), gwcrypto.KeyFormatJWK)
	if err != nil {
		return nil, nil, fmt.Errorf("parse rsa public key: %w", err)
	}
	ecdsaPub, err := importer.ImportPublic([]byte(ecdsaPublicKeyJWK), gwcrypto.KeyFormatJWK)
	if err != nil {
		return nil, nil, fmt.Errorf("parse ecdsa public key: %w", err)
	}

	rsaPubKey, ok := rsaPub.(*rsa.PublicKey)
	if !ok {
		return nil, nil, fmt.Errorf("rsa_public_key is not an RSA key")
	}
	ecdsaPubKey, ok := ecdsaPub.(*ecdsa.PublicKey)
	if !ok {
		return nil, nil, fmt.Errorf("ecdsa_public_key is not an ECDSA key")
	}
	return rsaPubKey, ecdsaPubKey, nil
}
