package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/efiling/internal/ctxutil"
	"github.com/example/efiling/internal/ports/primary"
	"github.com/example/efiling/internal/wire"
)

var submissionCmd = &cobra.Command{
	Use:   "submission",
	Short: "Manage submissions",
	Long:  "Create submissions and drive them through the lifecycle by hand",
}

var submissionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Open a new submission",
	Example: `  efiling submission create --presenter p@example.com --company 01234567 \
    --company-name "ACME LTD" --form AA --file F1=accounts.pdf --covering-letter F0=letter.pdf`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		presenter, _ := flags.GetString("presenter")
		company, _ := flags.GetString("company")
		companyName, _ := flags.GetString("company-name")
		form, _ := flags.GetString("form")
		category, _ := flags.GetString("category")
		sameDay, _ := flags.GetBool("same-day")
		fee, _ := flags.GetString("fee")
		files, _ := flags.GetStringArray("file")
		letters, _ := flags.GetStringArray("covering-letter")

		uploads, err := parseUploads(files, letters)
		if err != nil {
			return err
		}

		ctx := commandContext(cmd, ctxutil.ActorPresenter)
		return wire.SubmissionAdapter().Create(ctx, primary.CreateSubmissionRequest{
			PresenterEmail:  presenter,
			CompanyNumber:   company,
			CompanyName:     companyName,
			FormType:        form,
			FormCategory:    category,
			SameDay:         sameDay,
			FeeOnSubmission: fee,
			Files:           uploads,
		})
	},
}

var submissionShowCmd = &cobra.Command{
	Use:   "show [submission-id]",
	Short: "Show a submission with its files and history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd, ctxutil.ActorPresenter)
		_, err := wire.SubmissionAdapter().Show(ctx, args[0])
		return err
	},
}

var submissionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List submissions in a status",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		ctx := commandContext(cmd, ctxutil.ActorPresenter)
		return wire.SubmissionAdapter().List(ctx, strings.ToUpper(status), limit)
	},
}

var submissionCompleteCmd = &cobra.Command{
	Use:   "complete [submission-id]",
	Short: "Complete an OPEN submission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, _ := cmd.Flags().GetString("reference")
		ctx := commandContext(cmd, ctxutil.ActorPresenter)
		return wire.SubmissionAdapter().Complete(ctx, args[0], ref)
	},
}

var submissionConfirmCmd = &cobra.Command{
	Use:   "confirm [submission-id]",
	Short: "Confirm a PROCESSING submission once paid",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payment, _ := cmd.Flags().GetString("payment-reference")
		ctx := commandContext(cmd, ctxutil.ActorPresenter)
		return wire.SubmissionAdapter().Confirm(ctx, args[0], payment)
	},
}

var submissionFileStatusCmd = &cobra.Command{
	Use:   "file-status [submission-id] [file-id] [pending|queued|converted|failed]",
	Short: "Record a conversion result for a file",
	Long: `Record the document converter callback for one file. With --image the
converted TIFF is stored under --converted-file before the callback runs.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		convertedID, _ := cmd.Flags().GetString("converted-file")
		image, _ := cmd.Flags().GetString("image")

		ctx := commandContext(cmd, ctxutil.ActorConversionCallback)
		if image != "" {
			if convertedID == "" {
				return fmt.Errorf("--image requires --converted-file")
			}
			data, err := os.ReadFile(image)
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}
			if err := wire.ConvertedFiles().Put(ctx, convertedID, data); err != nil {
				return err
			}
		}
		return wire.SubmissionAdapter().FileStatus(ctx, args[0], args[1], args[2], convertedID)
	},
}

var submissionFesStatusCmd = &cobra.Command{
	Use:   "fes-status [barcode] [ACCEPTED|REJECTED]",
	Short: "Record the FES outcome for a barcode",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd, ctxutil.ActorFesCallback)
		return wire.SubmissionAdapter().FesStatus(ctx, args[0], strings.ToUpper(args[1]))
	},
}

var submissionRejectVirusCmd = &cobra.Command{
	Use:   "reject-virus [submission-id] [file-id]",
	Short: "Reject a submission whose file failed the virus scan",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd, ctxutil.ActorVirusScanner)
		return wire.SubmissionAdapter().RejectVirus(ctx, args[0], args[1])
	},
}

// parseUploads turns repeated ID=NAME flag values into file uploads.
func parseUploads(files, coveringLetters []string) ([]primary.FileUpload, error) {
	uploads := make([]primary.FileUpload, 0, len(files)+len(coveringLetters))
	add := func(value string, coveringLetter bool) error {
		id, name, ok := strings.Cut(value, "=")
		if !ok || id == "" || name == "" {
			return fmt.Errorf("invalid file %q, expected ID=NAME", value)
		}
		uploads = append(uploads, primary.FileUpload{FileID: id, FileName: name, CoveringLetter: coveringLetter})
		return nil
	}

	for _, v := range coveringLetters {
		if err := add(v, true); err != nil {
			return nil, err
		}
	}
	for _, v := range files {
		if err := add(v, false); err != nil {
			return nil, err
		}
	}
	return uploads, nil
}

// SubmissionCmd returns the submission command
func SubmissionCmd() *cobra.Command {
	// Add flags
	submissionCreateCmd.Flags().String("presenter", "", "Presenter email")
	submissionCreateCmd.Flags().String("company", "", "Company number")
	submissionCreateCmd.Flags().String("company-name", "", "Company name")
	submissionCreateCmd.Flags().String("form", "", "Form type")
	submissionCreateCmd.Flags().String("category", "", "Form category")
	submissionCreateCmd.Flags().Bool("same-day", false, "Same-day filing")
	submissionCreateCmd.Flags().String("fee", "", "Fee on submission")
	submissionCreateCmd.Flags().StringArray("file", nil, "File as ID=NAME (repeatable)")
	submissionCreateCmd.Flags().StringArray("covering-letter", nil, "Covering letter as ID=NAME")
	submissionListCmd.Flags().StringP("status", "s", "SUBMITTED", "Status to list")
	submissionListCmd.Flags().IntP("limit", "n", 50, "Maximum number of submissions")
	submissionCompleteCmd.Flags().StringP("reference", "r", "", "Confirmation reference")
	submissionConfirmCmd.Flags().StringP("payment-reference", "p", "", "Payment reference for fee-bearing submissions")
	submissionFileStatusCmd.Flags().StringP("converted-file", "c", "", "Converted file id (required for converted)")
	submissionFileStatusCmd.Flags().String("image", "", "Path of the converted TIFF to store")

	// Add subcommands
	submissionCmd.AddCommand(submissionCreateCmd)
	submissionCmd.AddCommand(submissionShowCmd)
	submissionCmd.AddCommand(submissionListCmd)
	submissionCmd.AddCommand(submissionCompleteCmd)
	submissionCmd.AddCommand(submissionConfirmCmd)
	submissionCmd.AddCommand(submissionFileStatusCmd)
	submissionCmd.AddCommand(submissionFesStatusCmd)
	submissionCmd.AddCommand(submissionRejectVirusCmd)

	return submissionCmd
}
