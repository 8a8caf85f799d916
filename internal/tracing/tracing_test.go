package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageContext(t *testing.T) {
	ctx := NewMessageContext(context.Background(), "peer-a", "AdminUpdate")

	assert.NotEmpty(t, GetTraceID(ctx))
	assert.Equal(t, "peer-a", GetPeerID(ctx))
	assert.Equal(t, "AdminUpdate", GetMessageTag(ctx))

	t.Run("keeps an existing trace id", func(t *testing.T) {
		parent := WithTraceID(context.Background(), "trace-1")
		ctx := NewMessageContext(parent, "peer-b", "ToolPacket")
		assert.Equal(t, "trace-1", GetTraceID(ctx))
	})
}

func TestGetters_EmptyContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetPeerID(ctx))
	assert.Empty(t, GetMessageTag(ctx))
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := NewMessageContext(WithTraceID(context.Background(), "trace-9"), "peer-a", "ToolDataRequest")

	logger := Logger(ctx, zerolog.New(&buf))
	logger.Info().Msg("handled")

	out := buf.String()
	assert.Contains(t, out, `"trace_id":"trace-9"`)
	assert.Contains(t, out, `"peer":"peer-a"`)
	assert.Contains(t, out, `"tag":"ToolDataRequest"`)
}

func TestStartSpan(t *testing.T) {
	require.NoError(t, InitOpenTelemetry("lens-test"))
	defer func() { _ = ShutdownOpenTelemetry(context.Background()) }()

	ctx, span := StartSpan(context.Background(), "lens/protocol", "dispatch")
	defer span.End()

	assert.True(t, span.SpanContext().IsValid())
	assert.Equal(t, span.SpanContext().TraceID().String(), GetTraceID(ctx))
}
