// Package ctxutil provides context utilities that can be safely imported anywhere.
// This package has no internal dependencies to avoid import cycles.
package ctxutil

import "context"

// ActorKey is the context key for the actor that triggered an operation.
type ActorKey struct{}

// RunIDKey is the context key for a sweep run id.
type RunIDKey struct{}

// Well-known actors.
const (
	ActorConversionCallback = "callback:conversion"
	ActorFesCallback        = "callback:fes"
	ActorPresenter          = "presenter"
	ActorVirusScanner       = "callback:virus-scan"
)

// WithActorID returns a context with the actor ID embedded.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ActorKey{}, actorID)
}

// ActorFromContext returns the actor ID from context, or "unknown" if not set.
func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ActorKey{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// WithRunID returns a context tagged with a sweep run id.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey{}, runID)
}

// RunIDFromContext returns the sweep run id, or empty string if not set.
func RunIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(RunIDKey{}).(string); ok {
		return v
	}
	return ""
}
