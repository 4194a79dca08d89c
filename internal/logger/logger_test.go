package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RoleField(t *testing.T) {
	var buf bytes.Buffer
	l := New("user", zerolog.InfoLevel)
	l.Logger = l.Output(&buf)

	l.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "user", entry["role"])
}

func TestNop_DiscardsOutput(t *testing.T) {
	var buf bytes.Buffer
	l := Nop()
	l.Logger = l.Output(&buf)

	l.Info().Msg("should be discarded")

	assert.Empty(t, buf.String())
}

func TestWithSession_AddsField(t *testing.T) {
	var buf bytes.Buffer
	l := New("instance", zerolog.InfoLevel)
	l.Logger = l.Output(&buf)

	child := l.WithSession("sess-123")
	child.Info().Msg("tagged")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "sess-123", entry["session_id"])
}

func TestFromContext_NeverNil(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
}
