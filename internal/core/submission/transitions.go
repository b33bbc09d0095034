// Package submission contains the pure business logic of the submission lifecycle.
// This is part of the Functional Core - no I/O, only pure functions.
package submission

import (
	"fmt"
	"time"
)

// Status is the lifecycle status of a submission.
type Status string

const (
	StatusOpen                        Status = "OPEN"
	StatusProcessing                  Status = "PROCESSING"
	StatusSubmitted                   Status = "SUBMITTED"
	StatusQueuedForConversion         Status = "QUEUED_FOR_CONVERSION"
	StatusReadyForFes                 Status = "READY_FOR_FES"
	StatusSubmittedToFes              Status = "SUBMITTED_TO_FES"
	StatusAcceptedByFes               Status = "ACCEPTED_BY_FES"
	StatusRejectedByFes               Status = "REJECTED_BY_FES"
	StatusRejectedByDocumentConverter Status = "REJECTED_BY_DOCUMENT_CONVERTER"
	StatusRejectedByVirusScan         Status = "REJECTED_BY_VIRUS_SCAN"
)

// FileStatus is the conversion status of a single file.
type FileStatus string

const (
	FileStatusPending   FileStatus = "pending" // not yet sent for conversion
	FileStatusQueued    FileStatus = "queued"
	FileStatusConverted FileStatus = "converted"
	FileStatusFailed    FileStatus = "failed"
)

// FesStatus is the outcome reported by the FES completion callback.
type FesStatus string

const (
	FesAccepted FesStatus = "ACCEPTED"
	FesRejected FesStatus = "REJECTED"
)

// transitions lists the only legal edges. There are no reverse edges.
var transitions = map[Status][]Status{
	StatusOpen:                {StatusProcessing},
	StatusProcessing:          {StatusSubmitted},
	StatusSubmitted:           {StatusQueuedForConversion},
	StatusQueuedForConversion: {StatusReadyForFes, StatusRejectedByDocumentConverter, StatusRejectedByVirusScan},
	StatusReadyForFes:         {StatusSubmittedToFes},
	StatusSubmittedToFes:      {StatusAcceptedByFes, StatusRejectedByFes},
}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusOpen, StatusProcessing, StatusSubmitted, StatusQueuedForConversion,
		StatusReadyForFes, StatusSubmittedToFes, StatusAcceptedByFes, StatusRejectedByFes,
		StatusRejectedByDocumentConverter, StatusRejectedByVirusScan,
	}
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	for _, st := range AllStatuses() {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown submission status %q", s)
}

// ParseFileStatus validates a file status string.
func ParseFileStatus(s string) (FileStatus, error) {
	switch FileStatus(s) {
	case FileStatusPending, FileStatusQueued, FileStatusConverted, FileStatusFailed:
		return FileStatus(s), nil
	}
	return "", fmt.Errorf("unknown file status %q", s)
}

// ParseFesStatus validates an FES outcome string.
func ParseFesStatus(s string) (FesStatus, error) {
	switch FesStatus(s) {
	case FesAccepted, FesRejected:
		return FesStatus(s), nil
	}
	return "", fmt.Errorf("unknown FES status %q", s)
}

// IsTerminal reports whether no further processing happens for the status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusAcceptedByFes, StatusRejectedByFes, StatusRejectedByDocumentConverter:
		return true
	}
	return false
}

// IsTerminal reports whether the converter has finished with the file.
func (s FileStatus) IsTerminal() bool {
	return s == FileStatusConverted || s == FileStatusFailed
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StatusForFesOutcome maps the FES callback outcome to the submission status.
func StatusForFesOutcome(outcome FesStatus) (Status, error) {
	switch outcome {
	case FesAccepted:
		return StatusAcceptedByFes, nil
	case FesRejected:
		return StatusRejectedByFes, nil
	}
	return "", fmt.Errorf("unknown FES status %q", outcome)
}

// StatusTransitionResult captures the new status and timestamps to stamp.
type StatusTransitionResult struct {
	NewStatus      Status
	LastModifiedAt time.Time
	SubmittedAt    *time.Time // Set when the presenter completes the submission
}

// ApplyStatusTransition validates the edge and returns what to persist.
// The caller passes the current time to keep this deterministic.
func ApplyStatusTransition(from, to Status, now time.Time) (StatusTransitionResult, error) {
	if !CanTransition(from, to) {
		return StatusTransitionResult{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	result := StatusTransitionResult{
		NewStatus:      to,
		LastModifiedAt: now,
	}
	if to == StatusProcessing {
		result.SubmittedAt = &now
	}
	return result, nil
}

// InitialStatus returns the status of a newly created submission.
func InitialStatus() Status {
	return StatusOpen
}
