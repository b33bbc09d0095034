package ctxutil

import (
	"context"
	"testing"
)

func TestActorRoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := ActorFromContext(ctx); got != "unknown" {
		t.Errorf("ActorFromContext(empty) = %q, want unknown", got)
	}

	ctx = WithActorID(ctx, ActorFesCallback)
	if got := ActorFromContext(ctx); got != ActorFesCallback {
		t.Errorf("ActorFromContext() = %q, want %q", got, ActorFesCallback)
	}

	ctx = WithRunID(ctx, "run-1")
	if got := RunIDFromContext(ctx); got != "run-1" {
		t.Errorf("RunIDFromContext() = %q, want run-1", got)
	}
}
