// Package session holds the Session value of spec §3 and the
// top-level Connect/Close orchestration wiring auth, directory,
// transport, router, and restclient together, implementing the
// SocketSession inbound-dispatch table of spec §4.5.
//
// Grounded on the "owning manager with explicit lifecycle methods"
// shape used for session-like objects: Go has no implicit event-loop
// self, so Session is an explicit struct whose fields are mutated
// only from its own socket read-loop goroutine or from methods taking
// an explicit receiver, per spec §9's "shared mutable state" design
// note.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	gwcrypto "github.com/gladysassistant/gateway-client/crypto"
	"github.com/gladysassistant/gateway-client/crypto/envelope"
	"github.com/gladysassistant/gateway-client/crypto/keys"
	"github.com/gladysassistant/gateway-client/crypto/storage"
	"github.com/gladysassistant/gateway-client/crypto/vault"
	"github.com/gladysassistant/gateway-client/directory"
	"github.com/gladysassistant/gateway-client/errs"
	"github.com/gladysassistant/gateway-client/internal/logger"
	"github.com/gladysassistant/gateway-client/restclient"
	"github.com/gladysassistant/gateway-client/router"
	"github.com/gladysassistant/gateway-client/transport"
)

// Role distinguishes a user-device session from an instance session
// (spec §3 "Session is single-principal").
type Role string

const (
	RoleUser     Role = "user"
	RoleInstance Role = "instance"
)

// Keys are a principal's own decrypted long-term keypairs.
type Keys struct {
	RSA   gwcrypto.KeyPair
	ECDSA gwcrypto.KeyPair
}

// Logical ids under which a Session's own keys live in its KeyStorage.
// The algorithm, not the content-derived KeyPair.ID(), distinguishes
// the two slots, since each principal holds exactly one live keypair
// per algorithm at a time (spec §3 "Identity").
const (
	selfRSAKeyID   = "self-rsa"
	selfECDSAKeyID = "self-ecdsa"
)

// InstanceMessageHandler is invoked for an inbound "message" frame on
// an instance session: the sender's relay peer id, the decrypted
// payload, and a respond continuation that encrypts and acks the reply
// (spec §4.5 "deliver along with a respond(resp) continuation").
type InstanceMessageHandler func(ctx context.Context, senderID string, payload json.RawMessage, respond func(resp any) error)

// UserMessageHandler is invoked for an inbound "message" frame on a
// user session: the decrypted payload only, since the instance is the
// session's single peer (spec §4.5 "deliver via user callback").
type UserMessageHandler func(ctx context.Context, payload json.RawMessage)

// OpenAPIMessageHandler is invoked for an inbound "open-api-message"
// frame (instance session only): passed through un-decrypted since the
// counter-party is a third party without our keys (spec §4.5).
type OpenAPIMessageHandler func(ctx context.Context, data json.RawMessage, ack func(resp any) error)

// HelloHandler is invoked when a peer comes online (spec §4.5 "forward
// to callback as lifecycle signal").
type HelloHandler func(ctx context.Context, data json.RawMessage)

// Config configures a Session.
type Config struct {
	Role Role

	// SocketURL is the relay's websocket URL.
	SocketURL string
	// RestClient talks to the relay's HTTPS surface.
	RestClient *restclient.Client

	OnMessage         UserMessageHandler
	OnInstanceMessage InstanceMessageHandler
	OnOpenAPIMessage  OpenAPIMessageHandler
	OnHello           HelloHandler

	Logger *logger.Logger
}

// Session is the single-principal client session of spec §3: tokens,
// role, the PeerDirectory, the socket, and the caller's own keys.
type Session struct {
	cfg Config
	log *logger.Logger

	dir    *directory.Directory
	sock   *transport.SocketSession
	router *router.Router

	// keyStore holds this principal's own long-term keypairs, keyed by
	// selfRSAKeyID/selfECDSAKeyID (spec §3 "Identity"). Peer public keys
	// are a separate concern tracked by directory.Directory's own map.
	keyStore gwcrypto.KeyStorage

	mu sync.RWMutex

	// instanceID/instanceRSAPub/instanceECDSAPub are populated for a
	// user session's single peer (spec §4.5 step 2).
	instanceID       string
	instanceRSAPub   gwcrypto.KeyPair
	instanceECDSAPub gwcrypto.KeyPair
}

// New creates a Session. SetKeys must be called (directly, or via
// UnwrapKeys) before Connect.
func New(cfg Config) *Session {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	dir := directory.New(cfg.RestClient)
	return &Session{cfg: cfg, log: log, dir: dir, keyStore: storage.NewMemoryKeyStorage()}
}

// SetKeys installs the session's own decrypted long-term keypairs,
// e.g. the result of UnwrapKeys after a successful login, into the
// session's KeyStorage.
func (s *Session) SetKeys(keys Keys) error {
	if err := s.keyStore.Store(selfRSAKeyID, keys.RSA); err != nil {
		return fmt.Errorf("session: store rsa key: %w", err)
	}
	if err := s.keyStore.Store(selfECDSAKeyID, keys.ECDSA); err != nil {
		return fmt.Errorf("session: store ecdsa key: %w", err)
	}
	return nil
}

// selfKeys loads the session's own keypairs from its KeyStorage. It
// fails with gwcrypto.ErrKeyNotFound until SetKeys has been called.
func (s *Session) selfKeys() (Keys, error) {
	rsaPriv, err := s.keyStore.Load(selfRSAKeyID)
	if err != nil {
		return Keys{}, err
	}
	ecdsaPriv, err := s.keyStore.Load(selfECDSAKeyID)
	if err != nil {
		return Keys{}, err
	}
	return Keys{RSA: rsaPriv, ECDSA: ecdsaPriv}, nil
}

// UnwrapKeys unwraps the RSA and ECDSA WrappedKeys an auth.LoginResult
// carries (spec §4.1 KeyVault.unwrap) and installs them via SetKeys.
func UnwrapKeys(password string, wrappedRSA, wrappedECDSA *restclient.WrappedKeyDTO) (Keys, error) {
	rsaKey, err := vault.Unwrap(password, toVaultWrappedKey(wrappedRSA), gwcrypto.Rsa)
	if err != nil {
		return Keys{}, fmt.Errorf("session: unwrap rsa key: %w", err)
	}
	ecdsaKey, err := vault.Unwrap(password, toVaultWrappedKey(wrappedECDSA), gwcrypto.Ecdsa)
	if err != nil {
		return Keys{}, fmt.Errorf("session: unwrap ecdsa key: %w", err)
	}
	return Keys{RSA: rsaKey, ECDSA: ecdsaKey}, nil
}

func toVaultWrappedKey(dto *restclient.WrappedKeyDTO) *vault.WrappedKey {
	return &vault.WrappedKey{WrappedKey: dto.WrappedKey, Salt: dto.Salt, IV: dto.IV}
}

// Directory returns the session's PeerDirectory (instance sessions
// only have a populated one; a user session's single peer is tracked
// separately as the primary instance).
func (s *Session) Directory() *directory.Directory { return s.dir }

// Router returns the session's RequestRouter, available once Connect
// has succeeded.
func (s *Session) Router() *router.Router {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.router
}

// InstanceID returns the populated peer instance id for a user session.
func (s *Session) InstanceID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.instanceID
}

// InstanceKeys returns the populated peer instance public keys for a
// user session.
func (s *Session) InstanceKeys() (rsaPub, ecdsaPub gwcrypto.KeyPair) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.instanceRSAPub, s.instanceECDSAPub
}

// Connect builds the transport.SocketSession, registers the spec §4.5
// inbound dispatch table for this session's Role, and connects.
func (s *Session) Connect(ctx context.Context) error {
	keys, err := s.selfKeys()
	if err != nil {
		return fmt.Errorf("session: connect: own keys not set, call SetKeys first: %w", err)
	}

	authEvent := "user-authentication"
	if s.cfg.Role == RoleInstance {
		authEvent = "instance-authentication"
	}

	sock := transport.New(transport.Config{
		URL:           s.cfg.SocketURL,
		AuthEvent:     authEvent,
		TokenProvider: s.cfg.RestClient.RefreshAccessToken,
		Setup:         s.setup,
		Logger:        s.log,
	})

	s.mu.Lock()
	s.sock = sock
	s.router = router.New(sock, keys.RSA, keys.ECDSA)
	s.mu.Unlock()

	s.registerHandlers(sock)

	return sock.Connect(ctx)
}

// setup runs spec §4.5 step 2, between the access-token exchange and
// the authentication frame: a user session populates its single peer
// instance's public keys; an instance session refreshes its
// PeerDirectory.
func (s *Session) setup(ctx context.Context) error {
	if s.cfg.Role == RoleInstance {
		return s.dir.Refresh(ctx)
	}

	primary, err := s.cfg.RestClient.PrimaryInstance(ctx)
	if err != nil {
		return fmt.Errorf("fetch primary instance: %w", err)
	}
	rsaPub, ecdsaPub, err := directory.ParsePublicKeys(primary.RSAPublicKey, primary.ECDSAPublicKey)
	if err != nil {
		return fmt.Errorf("parse primary instance keys: %w", err)
	}

	s.mu.Lock()
	s.instanceID = primary.ID
	s.instanceRSAPub = keys.NewRSAPublicKeyOnly(rsaPub, primary.ID)
	s.instanceECDSAPub = keys.NewECDSAPublicKeyOnly(ecdsaPub, primary.ID)
	s.mu.Unlock()
	return nil
}

// inboundMessage is the wire shape of an inbound "message" frame.
type inboundMessage struct {
	SenderID         string            `json:"sender_id,omitempty"`
	EncryptedMessage envelope.Envelope `json:"encryptedMessage"`
	SentAt           int64             `json:"sent_at,omitempty"`
}

func (s *Session) registerHandlers(sock *transport.SocketSession) {
	if s.cfg.Role == RoleUser {
		sock.On("message", s.handleUserMessage)
	} else {
		sock.On("message", s.handleInstanceMessage)
		sock.On("open-api-message", s.handleOpenAPIMessage)
	}

	sock.On("hello", func(ctx context.Context, data json.RawMessage, _ transport.AckFunc) {
		if s.cfg.OnHello != nil {
			s.cfg.OnHello(ctx, data)
		}
	})
	sock.On("clear-key-cache", func(ctx context.Context, _ json.RawMessage, _ transport.AckFunc) {
		s.dir.Clear()
		if err := s.dir.Refresh(ctx); err != nil {
			s.log.Warn().Err(err).Msg("peer directory refresh after clear-key-cache failed")
		}
	})
	sock.On("clear-connected-users-list", func(ctx context.Context, _ json.RawMessage, _ transport.AckFunc) {
		if err := s.dir.Refresh(ctx); err != nil {
			s.log.Warn().Err(err).Msg("peer directory refresh after clear-connected-users-list failed")
		}
	})
}

func (s *Session) handleUserMessage(ctx context.Context, data json.RawMessage, _ transport.AckFunc) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.log.Warn().Err(err).Msg("malformed inbound message frame")
		return
	}

	keys, err := s.selfKeys()
	if err != nil {
		s.log.Warn().Err(err).Msg("dropping inbound message: own keys not available")
		return
	}

	s.mu.RLock()
	instanceECDSAPub := s.instanceECDSAPub
	s.mu.RUnlock()

	payload, err := envelope.Decrypt(keys.RSA, instanceECDSAPub, &msg.EncryptedMessage)
	if err != nil {
		s.log.Warn().Err(err).Msg("dropping inbound message: decrypt failed")
		return
	}
	if s.cfg.OnMessage != nil {
		s.cfg.OnMessage(ctx, payload)
	}
}

func (s *Session) handleInstanceMessage(ctx context.Context, data json.RawMessage, ack transport.AckFunc) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.log.Warn().Err(err).Msg("malformed inbound message frame")
		return
	}

	entry, ok := s.dir.Get(msg.SenderID)
	if !ok {
		if err := s.dir.Refresh(ctx); err != nil {
			s.log.Warn().Err(err).Str("sender_id", msg.SenderID).Msg("peer directory refresh on cache miss failed")
			return
		}
		entry, ok = s.dir.Get(msg.SenderID)
		if !ok {
			s.log.Warn().Str("sender_id", msg.SenderID).Msg("dropping inbound message: unknown sender")
			return
		}
	}

	keys, err := s.selfKeys()
	if err != nil {
		s.log.Warn().Err(err).Str("sender_id", msg.SenderID).Msg("dropping inbound message: own keys not available")
		return
	}

	payload, err := envelope.Decrypt(keys.RSA, entry.ECDSAPublicKey, &msg.EncryptedMessage)
	if err != nil {
		s.log.Warn().Err(err).Str("sender_id", msg.SenderID).Msg("dropping inbound message: decrypt failed")
		return
	}

	if s.cfg.OnInstanceMessage == nil {
		return
	}

	respond := func(resp any) error {
		if ack == nil {
			return errs.ErrSessionClosed
		}
		env, err := envelope.Encrypt(entry.RSAPublicKey, keys.ECDSA, resp)
		if err != nil {
			return fmt.Errorf("session: encrypt response: %w", err)
		}
		return ack(env)
	}
	s.cfg.OnInstanceMessage(ctx, msg.SenderID, payload, respond)
}

func (s *Session) handleOpenAPIMessage(ctx context.Context, data json.RawMessage, ack transport.AckFunc) {
	if s.cfg.OnOpenAPIMessage == nil {
		return
	}
	respond := func(resp any) error {
		if ack == nil {
			return errs.ErrSessionClosed
		}
		return ack(resp)
	}
	s.cfg.OnOpenAPIMessage(ctx, data, respond)
}

// Close disconnects the socket and invalidates pending requests (spec
// §4.5 / §5): only Close drops pendingRequests, matching the Open
// Question #3 decision that clear-key-cache does not.
func (s *Session) Close() error {
	s.mu.RLock()
	sock := s.sock
	s.mu.RUnlock()
	if sock == nil {
		return nil
	}
	return sock.Close()
}
