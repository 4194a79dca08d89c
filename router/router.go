// Package router implements the RequestRouter component of spec §4.6:
// a request/response abstraction over fire-and-forget encrypted
// messages with socket acks, layered on transport.SocketSession's
// EmitWithAck.
//
// Grounded on the same Send/pending-channel correlation pattern used
// one level down in transport: where transport correlates raw frames
// by ack id, RequestRouter correlates encrypted envelopes by
// encrypting/decrypting around that same primitive.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gwcrypto "github.com/gladysassistant/gateway-client/crypto"
	"github.com/gladysassistant/gateway-client/crypto/envelope"
	"github.com/gladysassistant/gateway-client/core/message"
	"github.com/gladysassistant/gateway-client/directory"
	"github.com/gladysassistant/gateway-client/errs"
	"github.com/gladysassistant/gateway-client/internal/metrics"
	"github.com/gladysassistant/gateway-client/transport"
)

// Socket is the subset of transport.SocketSession the router needs —
// narrowed to an interface so tests can substitute a fake.
type Socket interface {
	EmitWithAck(ctx context.Context, event string, payload any) (json.RawMessage, error)
	Emit(event string, payload any) error
}

// Router is the RequestRouter: it holds the caller's own keys and knows
// how to address the instance or a named peer. Peer public keys are not
// held here; each call takes them (or the directory or peer list they
// come from) as arguments.
type Router struct {
	socket Socket

	selfRSAPriv   gwcrypto.KeyPair
	selfECDSAPriv gwcrypto.KeyPair
}

// New creates a Router signing messages with selfECDSAPriv and
// decrypting replies with selfRSAPriv.
func New(socket Socket, selfRSAPriv, selfECDSAPriv gwcrypto.KeyPair) *Router {
	return &Router{socket: socket, selfRSAPriv: selfRSAPriv, selfECDSAPriv: selfECDSAPriv}
}

// SendRequestToInstance tunnels an API-over-E2EE call to the instance
// (spec §4.6 sendRequestToInstance): encrypt an APICallPayload under
// the instance's RSA public key, emit it with an ack, and decrypt the
// ack's Envelope reply. A decrypted reply with status >= 400 rejects
// with that payload's body as the error.
func (r *Router) SendRequestToInstance(ctx context.Context, instanceID string, instanceRSAPub, instanceECDSAPub gwcrypto.KeyPair, method, path string, body any) (json.RawMessage, error) {
	start := time.Now()
	data, err := r.sendRequestToInstance(ctx, instanceID, instanceRSAPub, instanceECDSAPub, method, path, body)
	status := "success"
	switch {
	case err == nil:
	case isAPIError(err):
		status = "api_error"
	default:
		status = "transport_error"
	}
	metrics.RequestRouterLatency.WithLabelValues(status).Observe(time.Since(start).Seconds())
	return data, err
}

// APIError is returned when the instance's handler replies with an
// HTTP status >= 400 (spec §4.6 step 4).
type APIError struct {
	Status int
	Body   json.RawMessage
}

func (e *APIError) Error() string { return fmt.Sprintf("router: instance replied with status %d", e.Status) }

func isAPIError(err error) bool {
	_, ok := err.(*APIError)
	return ok
}

func (r *Router) sendRequestToInstance(ctx context.Context, instanceID string, instanceRSAPub, instanceECDSAPub gwcrypto.KeyPair, method, path string, body any) (json.RawMessage, error) {
	if instanceID == "" {
		return nil, errs.ErrNoInstanceID
	}
	if instanceRSAPub == nil {
		return nil, errs.ErrNoInstance
	}
	if r.selfECDSAPriv == nil {
		return nil, errs.ErrNoSigningKey
	}

	payload := message.NewAPICall(method, path, body)
	env, err := envelope.Encrypt(instanceRSAPub, r.selfECDSAPriv, payload)
	if err != nil {
		return nil, fmt.Errorf("router: encrypt request: %w", err)
	}

	ack, err := r.socket.EmitWithAck(ctx, "message", map[string]any{
		"instance_id":      instanceID,
		"encryptedMessage": env,
		"sent_at":          env.SentAt,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrTransport, err)
	}

	var replyEnv envelope.Envelope
	if err := json.Unmarshal(ack, &replyEnv); err != nil {
		return nil, fmt.Errorf("router: decode ack envelope: %w", err)
	}

	var resp message.APIResponsePayload
	if err := envelope.DecryptInto(r.selfRSAPriv, instanceECDSAPub, &replyEnv, &resp); err != nil {
		return nil, fmt.Errorf("router: decrypt reply: %w", err)
	}

	bodyJSON, err := json.Marshal(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("router: re-marshal reply body: %w", err)
	}
	if resp.Status >= 400 {
		return nil, &APIError{Status: resp.Status, Body: bodyJSON}
	}
	return bodyJSON, nil
}

// SendRequestGet is a convenience wrapper mapping a query body onto a
// GET request (spec §4.6 step 1 "GET with body maps body→query").
func (r *Router) SendRequestGet(ctx context.Context, instanceID string, instanceRSAPub, instanceECDSAPub gwcrypto.KeyPair, path string, query any) (json.RawMessage, error) {
	return r.SendRequestToInstance(ctx, instanceID, instanceRSAPub, instanceECDSAPub, "GET", path, query)
}

// SendMessageToUser encrypts payload under gladys4UserID's cached public
// keys and emits it (spec §4.6 sendMessageToUser, instance side). A
// peer not found in dir is ErrUnknownRecipient; a peer found but marked
// disconnected is ErrUndelivered rather than silently accepted (Open
// Question #2).
func (r *Router) SendMessageToUser(ctx context.Context, dir *directory.Directory, gladys4UserID string, payload any) error {
	entry, ok, err := dir.FindByGladys4UserID(ctx, gladys4UserID)
	if err != nil {
		return fmt.Errorf("router: lookup recipient: %w", err)
	}
	if !ok {
		return errs.ErrUnknownRecipient
	}
	if !entry.Connected {
		return fmt.Errorf("%w: %s", errs.ErrUndelivered, gladys4UserID)
	}

	env, err := envelope.Encrypt(entry.RSAPublicKey, r.selfECDSAPriv, payload)
	if err != nil {
		return fmt.Errorf("router: encrypt message: %w", err)
	}
	return r.socket.Emit("message", map[string]any{
		"user_id":          entry.ID,
		"encryptedMessage": env,
		"sent_at":          env.SentAt,
	})
}

// SendMessageAllUsers broadcasts payload to every connected peer in dir
// (spec §4.6 sendMessageAllUsers). Best-effort: no acks are awaited,
// and a single peer's encryption failure does not abort the broadcast.
func (r *Router) SendMessageAllUsers(ctx context.Context, peers []*directory.PeerEntry, payload any) (sent int, err error) {
	for _, entry := range peers {
		if !entry.Connected {
			metrics.BroadcastRecipients.WithLabelValues("skipped_disconnected").Inc()
			continue
		}
		env, encErr := envelope.Encrypt(entry.RSAPublicKey, r.selfECDSAPriv, payload)
		if encErr != nil {
			continue
		}
		if emitErr := r.socket.Emit("message", map[string]any{
			"user_id":          entry.ID,
			"encryptedMessage": env,
			"sent_at":          env.SentAt,
		}); emitErr != nil {
			continue
		}
		metrics.BroadcastRecipients.WithLabelValues("sent").Inc()
		sent++
	}
	return sent, nil
}

// CalculateLatency emits a latency probe with the current client clock
// as the sentinel and measures the round trip to the relay's echo
// (spec §4.6 calculateLatency).
func (r *Router) CalculateLatency(ctx context.Context) (time.Duration, error) {
	sentAt := time.Now()
	ack, err := r.socket.EmitWithAck(ctx, "latency", sentAt.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrTransport, err)
	}
	var echoed int64
	if err := json.Unmarshal(ack, &echoed); err != nil {
		return 0, fmt.Errorf("router: decode latency echo: %w", err)
	}
	return time.Since(sentAt), nil
}
