// Package auth implements the SrpAuthenticator component of spec §4.2:
// the three-round SRP-6a client login flow against the relay, composing
// crypto/srp's math with restclient.Client's HTTP calls.
//
// Grounded on the overall request/response/error-propagation shape of
// MKhiriev-GoPassKeeper's internal/adapter/http_client.go Login method,
// generalized from a single login call into three sequential rounds.
package auth

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gladysassistant/gateway-client/crypto/srp"
	"github.com/gladysassistant/gateway-client/errs"
	"github.com/gladysassistant/gateway-client/internal/metrics"
	"github.com/gladysassistant/gateway-client/restclient"
)

// Authenticator runs the SRP login handshake described in spec §4.2
// against a restclient.Client.
type Authenticator struct {
	client *restclient.Client
	group  srp.Group
}

// New creates an Authenticator using the RFC 5054 2048-bit SRP group.
func New(client *restclient.Client) *Authenticator {
	return &Authenticator{client: client, group: srp.DefaultGroup()}
}

// LoginResult is what a successful login (or two-factor submission)
// yields: access/refresh tokens and the caller's own wrapped private
// keys, ready for crypto/vault.Unwrap.
type LoginResult struct {
	AccessToken     string
	RefreshToken    string
	DeviceID        string
	WrappedRSAKey   *restclient.WrappedKeyDTO
	WrappedECDSAKey *restclient.WrappedKeyDTO
}

// TwoFactorRequiredError wraps errs.ErrTwoFactorRequired with the
// challenge token SubmitTwoFactor needs to complete the login.
type TwoFactorRequiredError struct {
	Token string
}

func (e *TwoFactorRequiredError) Error() string { return errs.ErrTwoFactorRequired.Error() }
func (e *TwoFactorRequiredError) Unwrap() error { return errs.ErrTwoFactorRequired }

// Login runs all three SRP rounds against email/password, normalizing
// both inputs per spec §4.2 (trim + lowercase email, trim password).
// A successful server-proof verification and a non-2FA response
// returns tokens directly; a 2FA-enabled account returns
// *TwoFactorRequiredError — call SubmitTwoFactor with its Token and the
// user's TOTP code to finish.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	start := time.Now()
	result, err := a.login(ctx, email, password)
	a.recordOutcome(start, err)
	return result, err
}

func (a *Authenticator) login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = srp.NormalizeEmail(email)
	password = srp.NormalizePassword(password)

	saltResp, err := a.client.LoginSalt(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("auth: round 1 (salt): %w", err)
	}
	salt, err := hex.DecodeString(saltResp.SrpSalt)
	if err != nil {
		return nil, fmt.Errorf("auth: decode srp salt: %w", err)
	}

	handshake, err := srp.NewClientHandshake(a.group)
	if err != nil {
		return nil, fmt.Errorf("auth: round 2 (ephemeral): %w", err)
	}

	ephResp, err := a.client.LoginGenerateEphemeral(ctx, email, bigToHex(handshake.PublicEphemeral()))
	if err != nil {
		return nil, fmt.Errorf("auth: round 2 (ephemeral): %w", err)
	}
	serverB, err := hexToBig(ephResp.ServerEphemeralPublic)
	if err != nil {
		return nil, fmt.Errorf("auth: decode server ephemeral: %w", err)
	}

	proof, err := handshake.ComputeProof(email, password, salt, serverB)
	if err != nil {
		return nil, fmt.Errorf("auth: round 3 (proof): %w", err)
	}

	finalize, err := a.client.LoginFinalize(ctx, ephResp.LoginSessionKey, bigToHex(proof.ClientProof))
	if err != nil {
		return nil, fmt.Errorf("auth: round 3 (finalize): %w", err)
	}

	serverProof, err := hexToBig(finalize.ServerSessionProof)
	if err != nil {
		return nil, fmt.Errorf("auth: decode server proof: %w", err)
	}
	if !handshake.VerifyServerProof(proof, serverProof) {
		return nil, errs.ErrServerImpersonation
	}

	if finalize.TwoFactorToken != "" {
		return nil, &TwoFactorRequiredError{Token: finalize.TwoFactorToken}
	}

	return &LoginResult{
		AccessToken:     finalize.AccessToken,
		RefreshToken:    finalize.RefreshToken,
		DeviceID:        finalize.DeviceID,
		WrappedRSAKey:   finalize.WrappedRSAKey,
		WrappedECDSAKey: finalize.WrappedECDSAKey,
	}, nil
}

// SubmitTwoFactor completes a login that returned *TwoFactorRequiredError,
// presenting the user's TOTP code (spec §6 "POST /users/login-two-factor").
func (a *Authenticator) SubmitTwoFactor(ctx context.Context, token, code string) (*LoginResult, error) {
	start := time.Now()
	finalize, err := a.client.LoginTwoFactor(ctx, token, code)
	if err != nil {
		a.recordOutcome(start, err)
		return nil, fmt.Errorf("auth: two-factor: %w", err)
	}
	result := &LoginResult{
		AccessToken:     finalize.AccessToken,
		RefreshToken:    finalize.RefreshToken,
		DeviceID:        finalize.DeviceID,
		WrappedRSAKey:   finalize.WrappedRSAKey,
		WrappedECDSAKey: finalize.WrappedECDSAKey,
	}
	a.recordOutcome(start, nil)
	return result, nil
}

func (a *Authenticator) recordOutcome(start time.Time, err error) {
	metrics.SRPLoginDuration.Observe(time.Since(start).Seconds())

	outcome := "success"
	switch {
	case err == nil:
	case isTwoFactorRequired(err):
		outcome = "two_factor_required"
	case errors.Is(err, errs.ErrServerImpersonation):
		outcome = "server_impersonation"
	case errors.Is(err, errs.ErrWrongPassword):
		outcome = "wrong_password"
	case errors.Is(err, errs.ErrTransport):
		outcome = "transport_error"
	default:
		outcome = "error"
	}
	metrics.SRPLoginAttempts.WithLabelValues(outcome).Inc()
}

func isTwoFactorRequired(err error) bool {
	_, ok := err.(*TwoFactorRequiredError)
	return ok
}

func bigToHex(n *big.Int) string {
	return hex.EncodeToString(n.Bytes())
}

func hexToBig(s string) (*big.Int, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}
