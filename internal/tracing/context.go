package tracing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// TraceIDKey is the context key for trace ID
	TraceIDKey ContextKey = "trace_id"
	// PeerIDKey is the context key for the remote peer a message came from
	PeerIDKey ContextKey = "peer_id"
	// MessageTagKey is the context key for the wire tag being dispatched
	MessageTagKey ContextKey = "message_tag"
)

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithPeerID adds the sending peer to the context
func WithPeerID(ctx context.Context, peerID string) context.Context {
	return context.WithValue(ctx, PeerIDKey, peerID)
}

// WithMessageTag adds the message tag to the context
func WithMessageTag(ctx context.Context, tag string) context.Context {
	return context.WithValue(ctx, MessageTagKey, tag)
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// GetPeerID retrieves the sending peer from the context
func GetPeerID(ctx context.Context) string {
	if peerID, ok := ctx.Value(PeerIDKey).(string); ok {
		return peerID
	}
	return ""
}

// GetMessageTag retrieves the message tag from the context
func GetMessageTag(ctx context.Context) string {
	if tag, ok := ctx.Value(MessageTagKey).(string); ok {
		return tag
	}
	return ""
}

// NewMessageContext prepares the context a single inbound message is handled in.
func NewMessageContext(ctx context.Context, peerID, tag string) context.Context {
	if GetTraceID(ctx) == "" {
		ctx = WithTraceID(ctx, NewTraceID())
	}
	ctx = WithPeerID(ctx, peerID)
	return WithMessageTag(ctx, tag)
}

// Logger adds tracing context to a zerolog logger
func Logger(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	lc := logger.With()
	if traceID := GetTraceID(ctx); traceID != "" {
		lc = lc.Str("trace_id", traceID)
	}
	if peerID := GetPeerID(ctx); peerID != "" {
		lc = lc.Str("peer", peerID)
	}
	if tag := GetMessageTag(ctx); tag != "" {
		lc = lc.Str("tag", tag)
	}
	return lc.Logger()
}
