// Package app contains the application layer - service implementations and effect execution.
package app

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/example/efiling/internal/core/effects"
	"github.com/example/efiling/internal/logging"
	"github.com/example/efiling/internal/metrics"
	"github.com/example/efiling/internal/ports/secondary"
)

// EffectExecutor interprets and executes effects.
// This is the "Imperative Shell" - the only place notifications are sent.
type EffectExecutor interface {
	Execute(ctx context.Context, effs []effects.Effect) error
}

// DefaultEffectExecutor implements EffectExecutor with real I/O.
// Notification failures are logged and counted, never returned: a
// notification must not undo or block a status change.
type DefaultEffectExecutor struct {
	sender secondary.NotificationSender
}

// NewEffectExecutor creates a new DefaultEffectExecutor.
func NewEffectExecutor(sender secondary.NotificationSender) *DefaultEffectExecutor {
	return &DefaultEffectExecutor{sender: sender}
}

// Execute processes a slice of effects, executing each in sequence.
func (e *DefaultEffectExecutor) Execute(ctx context.Context, effs []effects.Effect) error {
	for _, eff := range effs {
		if err := e.executeOne(ctx, eff); err != nil {
			return fmt.Errorf("failed to execute %s effect: %w", eff.EffectType(), err)
		}
	}
	return nil
}

func (e *DefaultEffectExecutor) executeOne(ctx context.Context, eff effects.Effect) error {
	switch typed := eff.(type) {
	case effects.NotifyEffect:
		e.executeNotify(ctx, typed)
		return nil
	case effects.CompositeEffect:
		return e.Execute(ctx, typed.Effects)
	case effects.NoEffect:
		return nil
	case effects.LogEffect:
		e.executeLog(ctx, typed)
		return nil
	default:
		return fmt.Errorf("unknown effect type: %T", eff)
	}
}

func (e *DefaultEffectExecutor) executeNotify(ctx context.Context, eff effects.NotifyEffect) {
	log := logr.FromContextOrDiscard(ctx).WithValues("template", eff.Template, "submission_id", eff.SubmissionID)

	if eff.Recipient == "" {
		log.Info("notification has no recipient, not sent")
		metrics.RecordNotification(eff.Template, metrics.ResultSkipped)
		return
	}

	err := e.sender.Send(ctx, &secondary.Notification{
		Template:     eff.Template,
		Recipient:    eff.Recipient,
		SubmissionID: eff.SubmissionID,
		Data:         eff.Data,
	})
	if err != nil {
		log.Error(err, "failed to send notification", "recipient", eff.Recipient)
		metrics.RecordNotification(eff.Template, metrics.ResultError)
		return
	}

	log.V(logging.VERBOSE).Info("notification sent", "recipient", eff.Recipient)
	metrics.RecordNotification(eff.Template, metrics.ResultSuccess)
}

func (e *DefaultEffectExecutor) executeLog(ctx context.Context, eff effects.LogEffect) {
	log := logr.FromContextOrDiscard(ctx)
	kv := make([]any, 0, 2*len(eff.Fields))
	for k, v := range eff.Fields {
		kv = append(kv, k, v)
	}
	switch eff.Level {
	case "debug":
		log.V(logging.DEBUG).Info(eff.Message, kv...)
	case "error":
		log.Error(nil, eff.Message, kv...)
	default:
		log.Info(eff.Message, kv...)
	}
}

// countNotifications returns how many notify effects effs contains.
func countNotifications(effs []effects.Effect) int {
	n := 0
	for _, eff := range effs {
		switch typed := eff.(type) {
		case effects.NotifyEffect:
			n++
		case effects.CompositeEffect:
			n += countNotifications(typed.Effects)
		}
	}
	return n
}
