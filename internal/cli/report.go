package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/efiling/internal/ports/secondary"
	"github.com/example/efiling/internal/wire"
)

const dateLayout = "2006-01-02"

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Operational reports",
}

var reportPaidCmd = &cobra.Command{
	Use:   "paid",
	Short: "List paid submissions since a date",
	RunE: func(cmd *cobra.Command, args []string) error {
		statuses, _ := cmd.Flags().GetStringSlice("status")
		sinceFlag, _ := cmd.Flags().GetString("since")

		since := time.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)
		if sinceFlag != "" {
			t, err := time.Parse(dateLayout, sinceFlag)
			if err != nil {
				return fmt.Errorf("invalid --since %q, expected YYYY-MM-DD: %w", sinceFlag, err)
			}
			since = t
		}
		for i, s := range statuses {
			statuses[i] = strings.ToUpper(s)
		}

		ctx := commandContext(cmd, "report")
		return wire.SubmissionAdapter().Paid(ctx, statuses, since)
	},
}

var reportConversionsCmd = &cobra.Command{
	Use:   "conversions [submission-id]",
	Short: "List conversion requests sent for a submission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd, "report")
		requests, err := wire.ConversionOutbox().List(ctx, args[0])
		if err != nil {
			return err
		}

		if len(requests) == 0 {
			fmt.Println("No conversion requests found")
			return nil
		}

		fmt.Printf("\n%-20s %-8s %s\n", "FILE", "ATTEMPTS", "LAST REQUESTED")
		fmt.Println("────────────────────────────────────────────────────────────────")
		for _, r := range requests {
			fmt.Printf("%-20s %-8d %s\n", r.FileID, r.Attempts, r.RequestedAt.Format(time.RFC3339))
		}
		fmt.Println()
		return nil
	},
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Inspect the notification outbox",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded notifications, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		template, _ := cmd.Flags().GetString("template")
		submissionID, _ := cmd.Flags().GetString("submission")
		limit, _ := cmd.Flags().GetInt("limit")

		ctx := commandContext(cmd, "report")
		notifications, err := wire.NotificationOutbox().List(ctx, secondary.NotificationFilters{
			Template:     template,
			SubmissionID: submissionID,
			Limit:        limit,
		})
		if err != nil {
			return err
		}

		if len(notifications) == 0 {
			fmt.Println("No notifications found")
			return nil
		}

		fmt.Printf("\n%-20s %-30s %-38s %s\n", "CREATED", "TEMPLATE", "SUBMISSION", "RECIPIENT")
		fmt.Println("────────────────────────────────────────────────────────────────")
		for _, n := range notifications {
			fmt.Printf("%-20s %-30s %-38s %s\n", n.CreatedAt.Format(time.RFC3339), n.Template, orDash(n.SubmissionID), n.Recipient)
			if verbose, _ := cmd.Flags().GetBool("data"); verbose {
				fmt.Printf("    %s\n", formatData(n.Data))
			}
		}
		fmt.Println()
		return nil
	},
}

// formatData renders notification data as sorted key=value pairs.
func formatData(data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+data[k])
	}
	return strings.Join(pairs, " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// ReportCmd returns the report command
func ReportCmd() *cobra.Command {
	reportPaidCmd.Flags().StringSlice("status", []string{"ACCEPTED_BY_FES"}, "Statuses to include")
	reportPaidCmd.Flags().String("since", "", "Earliest submission date (YYYY-MM-DD, default yesterday)")

	reportCmd.AddCommand(reportPaidCmd)
	reportCmd.AddCommand(reportConversionsCmd)
	return reportCmd
}

// NotificationsCmd returns the notifications command
func NotificationsCmd() *cobra.Command {
	notificationsListCmd.Flags().StringP("template", "t", "", "Filter by template")
	notificationsListCmd.Flags().StringP("submission", "s", "", "Filter by submission id")
	notificationsListCmd.Flags().IntP("limit", "n", 50, "Maximum number of notifications")
	notificationsListCmd.Flags().Bool("data", false, "Print template data")

	notificationsCmd.AddCommand(notificationsListCmd)
	return notificationsCmd
}
