// Package errs collects the error kinds the gateway client core can
// surface, per the component contracts in the spec's error handling
// design. Components wrap these sentinels with %w so callers can keep
// using errors.Is through the stack.
package errs

import "errors"

var (
	// ErrWrongPassword is returned when an AEAD tag mismatch occurs during
	// key unwrap, or an SRP proof does not match.
	ErrWrongPassword = errors.New("wrong password")

	// ErrServerImpersonation is returned when SRP server-session
	// verification fails.
	ErrServerImpersonation = errors.New("server impersonation detected")

	// ErrTwoFactorRequired is returned when login yields a 2FA challenge
	// instead of tokens.
	ErrTwoFactorRequired = errors.New("two-factor authentication required")

	// ErrAuthExpired is returned when the refresh token is rejected.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrSessionClosed is returned for operations attempted after
	// disconnect() or before connect has resolved.
	ErrSessionClosed = errors.New("session closed")

	// ErrTokenRejected is returned when exchanging the refresh token for
	// a fresh access token fails during connect (spec §4.5 step 1).
	ErrTokenRejected = errors.New("access token exchange rejected")

	// ErrAuthRejected is returned when the relay does not confirm socket
	// authentication after {user,instance}-authentication (spec §4.5).
	ErrAuthRejected = errors.New("socket authentication rejected")

	// ErrNoInstance, ErrNoInstanceID, ErrNoSigningKey are missing
	// prerequisites for sending a message to the instance.
	ErrNoInstance   = errors.New("no instance available")
	ErrNoInstanceID = errors.New("no instance id available")
	ErrNoSigningKey = errors.New("no signing key available")

	// ErrUnknownSender, ErrUnknownRecipient are PeerDirectory misses
	// after a refresh.
	ErrUnknownSender    = errors.New("unknown sender")
	ErrUnknownRecipient = errors.New("unknown recipient")

	// ErrBadSignature, ErrTampered, ErrStaleEnvelope are envelope
	// validation failures.
	ErrBadSignature  = errors.New("bad signature")
	ErrTampered      = errors.New("ciphertext tampered")
	ErrStaleEnvelope = errors.New("envelope timestamp out of window")

	// ErrTransport covers socket or HTTP transport failures.
	ErrTransport = errors.New("transport error")

	// ErrUndelivered marks a message that could not be handed to its
	// recipient (peer not connected), distinguishing a delivery failure
	// from an unknown-peer lookup failure.
	ErrUndelivered = errors.New("message not delivered: peer not connected")
)
