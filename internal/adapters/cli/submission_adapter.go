// Package cli provides thin CLI adapters that translate between CLI concerns
// and application services. Adapters handle argument parsing, output formatting,
// but delegate business logic to services.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	coresubmission "github.com/example/efiling/internal/core/submission"
	"github.com/example/efiling/internal/ports/primary"
)

const rule = "────────────────────────────────────────────────────────────────"

// SubmissionAdapter is a thin adapter that translates CLI operations to
// SubmissionService and LifecycleService calls.
type SubmissionAdapter struct {
	service   primary.SubmissionService
	lifecycle primary.LifecycleService
	out       io.Writer
}

// NewSubmissionAdapter creates a new SubmissionAdapter with the given services.
func NewSubmissionAdapter(service primary.SubmissionService, lifecycle primary.LifecycleService, out io.Writer) *SubmissionAdapter {
	return &SubmissionAdapter{
		service:   service,
		lifecycle: lifecycle,
		out:       out,
	}
}

// Create opens a new submission.
func (a *SubmissionAdapter) Create(ctx context.Context, req primary.CreateSubmissionRequest) error {
	sub, err := a.service.CreateSubmission(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}

	fmt.Fprintf(a.out, "✓ Created submission %s for %s (%d files)\n", sub.ID, sub.CompanyNumber, len(sub.Files))
	return nil
}

// Show displays a submission, its files and its status history.
func (a *SubmissionAdapter) Show(ctx context.Context, submissionID string) (*primary.Submission, error) {
	sub, err := a.service.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	fmt.Fprintf(a.out, "\nSubmission: %s\n", sub.ID)
	fmt.Fprintf(a.out, "Status:     %s\n", statusLabel(sub.Status))
	fmt.Fprintf(a.out, "Company:    %s %s\n", sub.CompanyNumber, sub.CompanyName)
	fmt.Fprintf(a.out, "Form:       %s\n", sub.FormType)
	fmt.Fprintf(a.out, "Presenter:  %s\n", sub.PresenterEmail)
	if sub.ConfirmationReference != "" {
		fmt.Fprintf(a.out, "Reference:  %s\n", sub.ConfirmationReference)
	}
	if sub.FeeOnSubmission != "" {
		fmt.Fprintf(a.out, "Fee:        %s (payment %s)\n", sub.FeeOnSubmission, orDash(sub.PaymentReference))
	}
	if sub.Barcode != "" {
		fmt.Fprintf(a.out, "Barcode:    %s\n", sub.Barcode)
	}
	if sub.SameDay {
		fmt.Fprintln(a.out, "Same day:   yes")
	}
	fmt.Fprintf(a.out, "Created:    %s\n", sub.CreatedAt.Format(time.RFC3339))
	if !sub.SubmittedAt.IsZero() {
		fmt.Fprintf(a.out, "Submitted:  %s\n", sub.SubmittedAt.Format(time.RFC3339))
	}

	if len(sub.Files) > 0 {
		fmt.Fprintf(a.out, "\n%-20s %-10s %-20s %s\n", "FILE", "STATUS", "CONVERTED", "NAME")
		fmt.Fprintln(a.out, rule)
		for _, f := range sub.Files {
			name := f.FileName
			if f.CoveringLetter {
				name += " (covering letter)"
			}
			fmt.Fprintf(a.out, "%-20s %-10s %-20s %s\n", f.FileID, f.ConversionStatus, orDash(f.ConvertedFileID), name)
		}
	}

	history, err := a.service.History(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	if len(history) > 0 {
		fmt.Fprintln(a.out, "\nHistory:")
		for _, h := range history {
			from := string(h.OldStatus)
			if from == "" {
				from = "-"
			}
			fmt.Fprintf(a.out, "  %s  %s → %s (%s)\n", h.ChangedAt.Format(time.RFC3339), from, h.NewStatus, h.Actor)
		}
	}
	fmt.Fprintln(a.out)

	return sub, nil
}

// List lists submissions in a status.
func (a *SubmissionAdapter) List(ctx context.Context, status string, limit int) error {
	st, err := coresubmission.ParseStatus(status)
	if err != nil {
		return err
	}

	subs, err := a.service.ListSubmissions(ctx, st, limit)
	if err != nil {
		return fmt.Errorf("failed to list submissions: %w", err)
	}
	a.printTable(subs)
	return nil
}

// Paid lists paid submissions in statuses since a date.
func (a *SubmissionAdapter) Paid(ctx context.Context, statuses []string, since time.Time) error {
	parsed := make([]coresubmission.Status, 0, len(statuses))
	for _, s := range statuses {
		st, err := coresubmission.ParseStatus(s)
		if err != nil {
			return err
		}
		parsed = append(parsed, st)
	}

	subs, err := a.service.ListPaidSubmissions(ctx, parsed, since)
	if err != nil {
		return fmt.Errorf("failed to list paid submissions: %w", err)
	}
	a.printTable(subs)
	return nil
}

func (a *SubmissionAdapter) printTable(subs []*primary.Submission) {
	if len(subs) == 0 {
		fmt.Fprintln(a.out, "No submissions found")
		return
	}

	fmt.Fprintf(a.out, "\n%-38s %-32s %-10s %-8s %s\n", "ID", "STATUS", "COMPANY", "FORM", "MODIFIED")
	fmt.Fprintln(a.out, rule)
	for _, s := range subs {
		fmt.Fprintf(a.out, "%-38s %-32s %-10s %-8s %s\n",
			s.ID, s.Status, s.CompanyNumber, s.FormType, s.LastModifiedAt.Format(time.RFC3339))
	}
	fmt.Fprintln(a.out)
}

// Complete moves an open submission to processing.
func (a *SubmissionAdapter) Complete(ctx context.Context, submissionID, confirmationReference string) error {
	sub, err := a.service.CompleteSubmission(ctx, submissionID, confirmationReference)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Submission %s completed (%s)\n", sub.ID, statusLabel(sub.Status))
	return nil
}

// Confirm moves a processing submission to submitted.
func (a *SubmissionAdapter) Confirm(ctx context.Context, submissionID, paymentReference string) error {
	sub, err := a.service.ConfirmSubmission(ctx, submissionID, paymentReference)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Submission %s confirmed (%s)\n", sub.ID, statusLabel(sub.Status))
	return nil
}

// RejectVirus records a virus scan rejection of one file.
func (a *SubmissionAdapter) RejectVirus(ctx context.Context, submissionID, fileID string) error {
	sub, err := a.service.RejectByVirusScan(ctx, submissionID, fileID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Submission %s rejected: file %s failed virus scan (%s)\n", sub.ID, fileID, statusLabel(sub.Status))
	return nil
}

// FileStatus records a conversion callback for one file.
func (a *SubmissionAdapter) FileStatus(ctx context.Context, submissionID, fileID, status, convertedFileID string) error {
	st, err := coresubmission.ParseFileStatus(status)
	if err != nil {
		return err
	}

	resp, err := a.lifecycle.UpdateConversionFileStatus(ctx, primary.UpdateFileStatusRequest{
		SubmissionID:    submissionID,
		FileID:          fileID,
		Status:          st,
		ConvertedFileID: convertedFileID,
	})
	if err != nil {
		return err
	}

	if resp.PreviousStatus == resp.Status {
		fmt.Fprintf(a.out, "✓ File %s marked %s (submission %s still %s)\n", fileID, st, resp.SubmissionID, statusLabel(resp.Status))
		return nil
	}
	fmt.Fprintf(a.out, "✓ File %s marked %s (submission %s: %s → %s)\n",
		fileID, st, resp.SubmissionID, resp.PreviousStatus, statusLabel(resp.Status))
	return nil
}

// FesStatus records the FES outcome for a barcode.
func (a *SubmissionAdapter) FesStatus(ctx context.Context, barcode, outcome string) error {
	fs, err := coresubmission.ParseFesStatus(outcome)
	if err != nil {
		return err
	}

	sub, err := a.lifecycle.UpdateSubmissionStatusByBarcode(ctx, barcode, fs)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Barcode %s: submission %s is %s\n", barcode, sub.ID, statusLabel(sub.Status))
	return nil
}

// statusLabel colors a status by outcome.
func statusLabel(s coresubmission.Status) string {
	switch s {
	case coresubmission.StatusAcceptedByFes, coresubmission.StatusReadyForFes, coresubmission.StatusSubmittedToFes:
		return color.New(color.FgGreen).Sprint(s)
	case coresubmission.StatusRejectedByFes, coresubmission.StatusRejectedByDocumentConverter, coresubmission.StatusRejectedByVirusScan:
		return color.New(color.FgRed).Sprint(s)
	default:
		return color.New(color.FgYellow).Sprint(s)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
