// Package effects defines effect types as data structures representing I/O operations.
// Planners in the core return effects; the app layer interprets them.
package effects

// Effect is the base interface for all effects.
type Effect interface {
	// EffectType returns a string identifier for the effect type.
	EffectType() string
}

// LogEffect represents a logging operation.
type LogEffect struct {
	Level   string
	Message string
	Fields  map[string]any
}

func (e LogEffect) EffectType() string { return "log" }

// NotifyEffect represents a fire-and-forget templated notification.
type NotifyEffect struct {
	Template     string // e.g. "internal-conversion-failed"
	Recipient    string
	SubmissionID string // Empty for digests covering several submissions
	Data         map[string]string
}

func (e NotifyEffect) EffectType() string { return "notify" }

// CompositeEffect holds multiple effects to be executed in sequence.
type CompositeEffect struct {
	Effects []Effect
}

func (e CompositeEffect) EffectType() string { return "composite" }

// NoEffect represents an operation that produces no side effects.
type NoEffect struct{}

func (e NoEffect) EffectType() string { return "none" }
