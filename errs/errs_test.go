package errs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelsAreDistinctAndWrappable(t *testing.T) {
	sentinels := []error{
		ErrWrongPassword, ErrServerImpersonation, ErrTwoFactorRequired,
		ErrAuthExpired, ErrSessionClosed, ErrTokenRejected, ErrAuthRejected,
		ErrNoInstance, ErrNoInstanceID, ErrNoSigningKey,
		ErrUnknownSender, ErrUnknownRecipient,
		ErrBadSignature, ErrTampered, ErrStaleEnvelope,
		ErrTransport, ErrUndelivered,
	}

	seen := make(map[string]bool, len(sentinels))
	for _, e := range sentinels {
		assert.False(t, seen[e.Error()], "duplicate error message: %s", e.Error())
		seen[e.Error()] = true

		wrapped := fmt.Errorf("context: %w", e)
		assert.ErrorIs(t, wrapped, e)
	}
}
