package rotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gwcrypto "github.com/gladysassistant/gateway-client/crypto"
	"github.com/gladysassistant/gateway-client/crypto/keys"
	"github.com/gladysassistant/gateway-client/crypto/vault"
	"github.com/gladysassistant/gateway-client/errs"
)

func TestRotatorRotate(t *testing.T) {
	rotator := NewRotator()

	kp, err := keys.GenerateECDSAKeyPair()
	require.NoError(t, err)

	wrapped, err := vault.Wrap("old-password", kp)
	require.NoError(t, err)

	rewrapped, err := rotator.Rotate("old-password", "new-password", gwcrypto.Ecdsa, wrapped)
	require.NoError(t, err)
	assert.NotEqual(t, wrapped.Salt, rewrapped.Salt)
	assert.NotEqual(t, wrapped.IV, rewrapped.IV)

	// The old password no longer unwraps the rotated blob.
	_, err = vault.Unwrap("old-password", rewrapped, gwcrypto.Ecdsa)
	assert.ErrorIs(t, err, errs.ErrWrongPassword)

	// The new password does, and it's the same key identity.
	unwrapped, err := vault.Unwrap("new-password", rewrapped, gwcrypto.Ecdsa)
	require.NoError(t, err)
	assert.Equal(t, kp.ID(), unwrapped.ID())

	history := rotator.History(kp.ID())
	require.Len(t, history, 1)
	assert.Equal(t, kp.ID(), history[0].KeyID)
	assert.Equal(t, gwcrypto.Ecdsa, history[0].Algorithm)
}

func TestRotatorRotateWrongOldPassword(t *testing.T) {
	rotator := NewRotator()

	kp, err := keys.GenerateRSAKeyPair()
	require.NoError(t, err)

	wrapped, err := vault.Wrap("correct", kp)
	require.NoError(t, err)

	_, err = rotator.Rotate("incorrect", "new-password", gwcrypto.Rsa, wrapped)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrWrongPassword)
	assert.Empty(t, rotator.History(kp.ID()))
}

func TestRotatorHistoryMultipleRotationsMostRecentFirst(t *testing.T) {
	rotator := NewRotator()

	kp, err := keys.GenerateRSAKeyPair()
	require.NoError(t, err)

	wrapped, err := vault.Wrap("p0", kp)
	require.NoError(t, err)

	passwords := []string{"p1", "p2", "p3"}
	current := "p0"
	for _, next := range passwords {
		wrapped, err = rotator.Rotate(current, next, gwcrypto.Rsa, wrapped)
		require.NoError(t, err)
		current = next
	}

	history := rotator.History(kp.ID())
	require.Len(t, history, 3)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].Timestamp.After(history[i-1].Timestamp))
	}
}

func TestRotatorHistoryEmptyForUnknownKey(t *testing.T) {
	rotator := NewRotator()
	assert.Empty(t, rotator.History("never-rotated"))
}
