package restclient

import "context"

// LoginSaltResponse is round 1's response: the salt stored at signup,
// keyed by email (spec §4.2, §6 "POST /users/login-salt").
type LoginSaltResponse struct {
	SrpSalt string `json:"srpSalt"`
}

// LoginSalt runs SRP round 1: fetch the stored salt for email. The
// relay does not leak existence beyond timing, per spec §4.2.
func (c *Client) LoginSalt(ctx context.Context, email string) (*LoginSaltResponse, error) {
	var out LoginSaltResponse
	if err := c.doAnonymous(ctx, "POST", "/users/login-salt", map[string]string{"email": email}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoginEphemeralResponse is round 2's response: the server's public
// ephemeral and an opaque handle tying round 3 to this challenge.
type LoginEphemeralResponse struct {
	ServerEphemeralPublic string `json:"serverEphemeralPublic"`
	LoginSessionKey       string `json:"loginSessionKey"`
}

// LoginGenerateEphemeral runs SRP round 2: POST the client's public
// ephemeral, receive the server's (spec §6
// "POST /users/login-generate-ephemeral").
func (c *Client) LoginGenerateEphemeral(ctx context.Context, email, clientEphemeralPublic string) (*LoginEphemeralResponse, error) {
	var out LoginEphemeralResponse
	body := map[string]string{"email": email, "clientEphemeralPublic": clientEphemeralPublic}
	if err := c.doAnonymous(ctx, "POST", "/users/login-generate-ephemeral", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WrappedKeyDTO mirrors vault.WrappedKey's wire shape without importing
// crypto/vault, keeping restclient's type surface self-contained.
type WrappedKeyDTO struct {
	WrappedKey string `json:"wrappedKey"`
	Salt       string `json:"salt"`
	IV         string `json:"iv"`
}

// LoginFinalizeResult is round 3's response: either a two-factor
// challenge token, or the final tokens and wrapped keys (spec §4.2).
type LoginFinalizeResult struct {
	ServerSessionProof string `json:"serverSessionProof"`

	// TwoFactorToken is set instead of the fields below when the
	// account has 2FA enabled.
	TwoFactorToken string `json:"twoFactorToken,omitempty"`

	AccessToken     string         `json:"accessToken,omitempty"`
	RefreshToken    string         `json:"refreshToken,omitempty"`
	DeviceID        string         `json:"deviceId,omitempty"`
	WrappedRSAKey   *WrappedKeyDTO `json:"wrappedRsaKey,omitempty"`
	WrappedECDSAKey *WrappedKeyDTO `json:"wrappedEcdsaKey,omitempty"`
	RSAPublicKey    string         `json:"rsaPublicKey,omitempty"`
	ECDSAPublicKey  string         `json:"ecdsaPublicKey,omitempty"`
}

// LoginFinalize runs SRP round 3: POST the client's session proof,
// receive the server's counter-proof plus tokens or a 2FA challenge
// (spec §6 "POST /users/login-finalize").
func (c *Client) LoginFinalize(ctx context.Context, loginSessionKey, clientSessionProof string) (*LoginFinalizeResult, error) {
	var out LoginFinalizeResult
	body := map[string]string{"loginSessionKey": loginSessionKey, "clientSessionProof": clientSessionProof}
	if err := c.doAnonymous(ctx, "POST", "/users/login-finalize", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoginTwoFactor submits a TOTP code against a pending two-factor
// challenge (spec §6 "POST /users/login-two-factor"), returning the
// same shape as LoginFinalize once the code is accepted.
func (c *Client) LoginTwoFactor(ctx context.Context, twoFactorToken, code string) (*LoginFinalizeResult, error) {
	var out LoginFinalizeResult
	body := map[string]string{"twoFactorToken": twoFactorToken, "code": code}
	if err := c.doAnonymous(ctx, "POST", "/users/login-two-factor", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
