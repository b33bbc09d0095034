package submission

import (
	"strconv"
	"strings"
	"time"

	"github.com/example/efiling/internal/core/effects"
)

// Notification templates.
const (
	TemplateConversionFailed  = "internal-conversion-failed"
	TemplateVirusScanRejected = "internal-virus-scan-rejected"
	TemplateDelayedSupport    = "delayed-submission-support"
	TemplateDelayedBusiness   = "delayed-submission-business"
	TemplateFesAccepted       = "submission-accepted"
	TemplateFesRejected       = "submission-rejected"
)

// ConversionOutcomeInput describes a recomputed aggregate after a file update.
type ConversionOutcomeInput struct {
	SubmissionID          string
	ConfirmationReference string
	CompanyNumber         string
	Previous              Status
	Next                  Status
	FailedFileIDs         []string
	InternalRecipient     string
}

// PlanConversionOutcome returns the notifications owed for a conversion result.
// Only the transition into REJECTED_BY_DOCUMENT_CONVERTER notifies.
func PlanConversionOutcome(input ConversionOutcomeInput) []effects.Effect {
	if input.Previous == input.Next || input.Next != StatusRejectedByDocumentConverter {
		return nil
	}
	return []effects.Effect{
		effects.NotifyEffect{
			Template:     TemplateConversionFailed,
			Recipient:    input.InternalRecipient,
			SubmissionID: input.SubmissionID,
			Data: map[string]string{
				"confirmation_reference": input.ConfirmationReference,
				"company_number":         input.CompanyNumber,
				"failed_files":           strings.Join(input.FailedFileIDs, ","),
			},
		},
	}
}

// VirusScanInput describes a submission rejected by the virus scanner.
type VirusScanInput struct {
	SubmissionID          string
	ConfirmationReference string
	FileID                string
	InternalRecipient     string
}

// PlanVirusScanRejection returns the internal notice for an infected file.
func PlanVirusScanRejection(input VirusScanInput) []effects.Effect {
	return []effects.Effect{
		effects.NotifyEffect{
			Template:     TemplateVirusScanRejected,
			Recipient:    input.InternalRecipient,
			SubmissionID: input.SubmissionID,
			Data: map[string]string{
				"confirmation_reference": input.ConfirmationReference,
				"file_id":                input.FileID,
			},
		},
	}
}

// DelayedSubmission is the summary of a submission considered for the delay digests.
type DelayedSubmission struct {
	ID                    string
	ConfirmationReference string
	CompanyNumber         string
	SameDay               bool
	LastModifiedAt        time.Time
}

// DelayedInput contains everything needed to plan the delay digests.
type DelayedInput struct {
	Now               time.Time
	Threshold         time.Duration
	Submissions       []DelayedSubmission
	SupportRecipient  string
	BusinessRecipient string
}

// PlanDelayedNotifications builds the support digest (every delayed
// submission) and the business digest (delayed same-day submissions).
// Empty digests are not sent.
func PlanDelayedNotifications(input DelayedInput) []effects.Effect {
	var all, sameDay []DelayedSubmission
	for _, s := range input.Submissions {
		if !IsDelayed(input.Now, s.LastModifiedAt, input.Threshold) {
			continue
		}
		all = append(all, s)
		if s.SameDay {
			sameDay = append(sameDay, s)
		}
	}

	var effs []effects.Effect
	if len(all) > 0 {
		effs = append(effs, digest(TemplateDelayedSupport, input.SupportRecipient, all, input))
	}
	if len(sameDay) > 0 {
		effs = append(effs, digest(TemplateDelayedBusiness, input.BusinessRecipient, sameDay, input))
	}
	return effs
}

func digest(template, recipient string, subs []DelayedSubmission, input DelayedInput) effects.NotifyEffect {
	refs := make([]string, len(subs))
	for i, s := range subs {
		refs[i] = s.ConfirmationReference
		if refs[i] == "" {
			refs[i] = s.ID
		}
	}
	return effects.NotifyEffect{
		Template:  template,
		Recipient: recipient,
		Data: map[string]string{
			"count":       strconv.Itoa(len(subs)),
			"submissions": strings.Join(refs, ","),
			"threshold":   input.Threshold.String(),
			"as_of":       input.Now.Format(time.RFC3339),
		},
	}
}

// FesOutcomeInput describes a submission that FES accepted or rejected.
type FesOutcomeInput struct {
	SubmissionID          string
	ConfirmationReference string
	Barcode               string
	PresenterEmail        string
	Outcome               Status
}

// PlanFesOutcome returns the presenter notification for an FES decision.
func PlanFesOutcome(input FesOutcomeInput) []effects.Effect {
	var template string
	switch input.Outcome {
	case StatusAcceptedByFes:
		template = TemplateFesAccepted
	case StatusRejectedByFes:
		template = TemplateFesRejected
	default:
		return nil
	}
	if input.PresenterEmail == "" {
		return []effects.Effect{effects.LogEffect{
			Level:   "info",
			Message: "no presenter email, skipping FES outcome notification",
			Fields:  map[string]any{"submission_id": input.SubmissionID},
		}}
	}
	return []effects.Effect{
		effects.NotifyEffect{
			Template:     template,
			Recipient:    input.PresenterEmail,
			SubmissionID: input.SubmissionID,
			Data: map[string]string{
				"confirmation_reference": input.ConfirmationReference,
				"barcode":                input.Barcode,
			},
		},
	}
}
