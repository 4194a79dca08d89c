// Package transport implements the SocketSession component of spec
// §4.5: the duplex relay connection's state machine, authentication
// handshake, and generic inbound-frame dispatch, layered on
// gorilla/websocket.
//
// Grounded on the dial/pendingResponses-map/read-loop shape and
// handler-registration style common to this pack's websocket
// transports. The role-specific decisions spec §4.5 describes for
// each inbound event (decrypt, directory refresh, respond) are
// layered on top by the session package, which registers Handlers
// here; this package only knows about frames, acks, and the
// connect/authenticate/reconnect state machine — not envelopes or
// peers.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gladysassistant/gateway-client/errs"
	"github.com/gladysassistant/gateway-client/internal/logger"
	"github.com/gladysassistant/gateway-client/internal/metrics"
)

// State is one node of the spec §4.5 state machine.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateTransportUp
	StateAuthenticating
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateTransportUp:
		return "transport_up"
	case StateAuthenticating:
		return "authenticating"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// AckFunc replies to an inbound frame that carried an ack id. Handlers
// that don't need to reply (hello, clear-key-cache, ...) receive a nil
// AckFunc.
type AckFunc func(payload any) error

// Handler processes one inbound frame's data.
type Handler func(ctx context.Context, data json.RawMessage, ack AckFunc)

// TokenProvider returns a fresh access token to authenticate with,
// called on every (re)connect — spec §4.5 step 1 ("exchange refresh
// token for a fresh access token via RestClient").
type TokenProvider func(ctx context.Context) (string, error)

// Config configures a SocketSession.
type Config struct {
	// URL is the relay's websocket URL.
	URL string
	// DialTimeout bounds the websocket handshake.
	DialTimeout time.Duration
	// AckTimeout bounds how long EmitWithAck waits for a reply once the
	// frame is written, absent a caller-supplied context deadline.
	AckTimeout time.Duration
	// AuthEvent is "user-authentication" or "instance-authentication".
	AuthEvent string
	// TokenProvider supplies the access token sent with AuthEvent.
	TokenProvider TokenProvider
	// Setup runs after the access token exchange and before the
	// authentication frame is emitted (spec §4.5 step 2: populate
	// peer-instance public keys for a user session, or
	// PeerDirectory.Refresh for an instance session). Optional.
	Setup func(ctx context.Context) error
	// Logger receives lifecycle and dispatch diagnostics.
	Logger *logger.Logger
}

// wireFrame is the JSON shape exchanged over the socket.
type wireFrame struct {
	Event string          `json:"event"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ack   bool            `json:"ack,omitempty"`
	Error *AckError       `json:"error,omitempty"`
}

// AckError is the transport-level error shape an ack reply carries
// when the relay rejects an emit outright (spec §4.6 "a transport-level
// error {status, error_code}").
type AckError struct {
	Status  int    `json:"status"`
	Code    string `json:"error_code"`
	Message string `json:"message,omitempty"`
}

func (e *AckError) Error() string {
	return fmt.Sprintf("transport: ack error status=%d code=%s", e.Status, e.Code)
}

type pendingAck struct {
	data chan json.RawMessage
	err  chan error
}

// SocketSession is the relay connection: state machine, authentication,
// reconnection, and inbound-frame dispatch.
type SocketSession struct {
	cfg Config
	log *logger.Logger

	mu    sync.Mutex
	conn  *websocket.Conn
	state State

	handlersMu sync.RWMutex
	handlers   map[string]Handler

	pendingMu sync.Mutex
	pending   map[string]*pendingAck

	closing bool
	closeCh chan struct{}
}

// New creates a SocketSession in the Disconnected state.
func New(cfg Config) *SocketSession {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = 30 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &SocketSession{
		cfg:      cfg,
		log:      log,
		state:    StateDisconnected,
		handlers: make(map[string]Handler),
		pending:  make(map[string]*pendingAck),
		closeCh:  make(chan struct{}),
	}
}

// On registers the handler invoked for every inbound frame whose Event
// matches. Must be called before Connect.
func (s *SocketSession) On(event string, h Handler) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.handlers[event] = h
}

// State returns the session's current state.
func (s *SocketSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *SocketSession) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	metrics.SocketState.Reset()
	metrics.SocketState.WithLabelValues(st.String()).Set(1)
}

// Connect dials the relay, exchanges a fresh access token, authenticates,
// and — on success — starts the read loop and transitions to Ready
// (spec §4.5's Connecting→TransportUp→Authenticating→Ready path).
func (s *SocketSession) Connect(ctx context.Context) error {
	s.setState(StateConnecting)

	dialer := &websocket.Dialer{HandshakeTimeout: s.cfg.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		s.setState(StateClosed)
		return fmt.Errorf("%w: dial: %v", errs.ErrTransport, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.setState(StateTransportUp)

	go s.readLoop()

	token, err := s.cfg.TokenProvider(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("token refresh failed on connect")
		_ = s.closeConn()
		s.setState(StateClosed)
		return fmt.Errorf("%w: token refresh: %v", errs.ErrTokenRejected, err)
	}

	if s.cfg.Setup != nil {
		if err := s.cfg.Setup(ctx); err != nil {
			_ = s.closeConn()
			s.setState(StateClosed)
			return fmt.Errorf("transport: setup before authentication: %w", err)
		}
	}

	s.setState(StateAuthenticating)
	ackData, err := s.EmitWithAck(ctx, s.cfg.AuthEvent, map[string]string{"access_token": token})
	if err != nil {
		_ = s.closeConn()
		s.setState(StateClosed)
		return fmt.Errorf("%w: %v", errs.ErrAuthRejected, err)
	}

	var authResult struct {
		Authenticated bool `json:"authenticated"`
	}
	if err := json.Unmarshal(ackData, &authResult); err != nil || !authResult.Authenticated {
		_ = s.closeConn()
		s.setState(StateClosed)
		return fmt.Errorf("%w: relay did not confirm authentication", errs.ErrAuthRejected)
	}

	s.setState(StateReady)
	return nil
}

// EmitWithAck writes a frame tagged with a fresh ack id and blocks until
// the relay's ack reply arrives, ctx is done, or cfg.AckTimeout elapses.
func (s *SocketSession) EmitWithAck(ctx context.Context, event string, payload any) (json.RawMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("transport: marshal emit payload: %w", err)
	}

	id := uuid.NewString()
	pending := &pendingAck{data: make(chan json.RawMessage, 1), err: make(chan error, 1)}
	s.pendingMu.Lock()
	s.pending[id] = pending
	s.pendingMu.Unlock()
	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, id)
		s.pendingMu.Unlock()
	}()

	if err := s.writeFrame(&wireFrame{Event: event, ID: id, Data: data}); err != nil {
		return nil, err
	}

	timer := time.NewTimer(s.cfg.AckTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.closeCh:
		return nil, errs.ErrSessionClosed
	case d := <-pending.data:
		return d, nil
	case e := <-pending.err:
		return nil, e
	case <-timer.C:
		return nil, fmt.Errorf("%w: ack timeout for event %s", errs.ErrTransport, event)
	}
}

// Emit writes a fire-and-forget frame with no ack id; used for best-effort
// broadcasts (spec §4.6 "Broadcast is best-effort, no ack awaited").
func (s *SocketSession) Emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("transport: marshal emit payload: %w", err)
	}
	return s.writeFrame(&wireFrame{Event: event, Data: data})
}

func (s *SocketSession) writeFrame(f *wireFrame) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return errs.ErrSessionClosed
	}
	if err := conn.WriteJSON(f); err != nil {
		return fmt.Errorf("%w: write frame: %v", errs.ErrTransport, err)
	}
	return nil
}

// readLoop is the single goroutine performing serial per-session
// dispatch (spec §5): one inbound frame is fully handled before the
// next is read.
func (s *SocketSession) readLoop() {
	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			return
		}

		var frame wireFrame
		if err := conn.ReadJSON(&frame); err != nil {
			s.handleReadError(err)
			return
		}

		if frame.ID != "" && (frame.Ack || frame.Error != nil) {
			s.deliverAck(&frame)
			continue
		}

		metrics.SocketFramesDispatched.WithLabelValues(frame.Event).Inc()
		s.dispatch(&frame)
	}
}

func (s *SocketSession) deliverAck(frame *wireFrame) {
	s.pendingMu.Lock()
	pending, ok := s.pending[frame.ID]
	s.pendingMu.Unlock()
	if !ok {
		return
	}
	if frame.Error != nil {
		select {
		case pending.err <- frame.Error:
		default:
		}
		return
	}
	select {
	case pending.data <- frame.Data:
	default:
	}
}

func (s *SocketSession) dispatch(frame *wireFrame) {
	s.handlersMu.RLock()
	h, ok := s.handlers[frame.Event]
	s.handlersMu.RUnlock()
	if !ok {
		s.log.Debug().Str("event", frame.Event).Msg("no handler registered for inbound event")
		return
	}

	var ack AckFunc
	if frame.ID != "" {
		id := frame.ID
		ack = func(payload any) error {
			data, err := json.Marshal(payload)
			if err != nil {
				return fmt.Errorf("transport: marshal ack payload: %w", err)
			}
			return s.writeFrame(&wireFrame{Event: frame.Event, ID: id, Ack: true, Data: data})
		}
	}

	h(context.Background(), frame.Data, ack)
}

func (s *SocketSession) handleReadError(err error) {
	s.mu.Lock()
	closing := s.closing
	wasReady := s.state == StateReady
	s.mu.Unlock()

	_ = s.closeConn()

	if closing {
		s.setState(StateClosed)
		return
	}
	if !wasReady {
		// Connect is still in progress: its own failure path closes the
		// connection and sets the state, so no reconnect starts here.
		return
	}

	// Server-initiated or network-level drop: the transport's own
	// reconnection takes over (spec §4.5 "disconnect(reason): ...
	// otherwise rely on the transport's built-in reconnection").
	s.log.Warn().Err(err).Msg("socket read error, reconnecting")
	metrics.SocketReconnects.WithLabelValues("server").Inc()
	s.setState(StateConnecting)

	go s.reconnectLoop()
}

func (s *SocketSession) reconnectLoop() {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		s.mu.Lock()
		closing := s.closing
		s.mu.Unlock()
		if closing {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DialTimeout)
		err := s.Connect(ctx)
		cancel()
		if err == nil {
			return
		}

		s.log.Warn().Err(err).Dur("backoff", backoff).Msg("reconnect attempt failed")
		time.Sleep(backoff)
		if backoff < maxBackoff {
			backoff *= 2
		}
	}
}

func (s *SocketSession) closeConn() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Close disconnects the session permanently: the transport's own
// reconnection is suppressed, every pending EmitWithAck caller wakes up
// with errs.ErrSessionClosed, and the state becomes Closed.
func (s *SocketSession) Close() error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	s.mu.Unlock()

	close(s.closeCh)
	err := s.closeConn()
	s.setState(StateClosed)
	return err
}
