package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kozaktomas/securebase/internal/database"
	"github.com/spf13/cobra"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Read submitted feedback",
}

var feedbackListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent feedback entries",
	RunE:  runFeedbackList,
}

func init() {
	rootCmd.AddCommand(feedbackCmd)
	feedbackCmd.AddCommand(feedbackListCmd)

	feedbackListCmd.Flags().Int("limit", 20, "Number of entries to show")
}

func runFeedbackList(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()
	b, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	store, err := database.GetFeedbackWriter(ctx)
	if err != nil {
		return err
	}
	entries, err := store.ListFeedback(ctx, mustGetInt(cmd, "limit"))
	if err != nil {
		return fmt.Errorf("failed to list feedback: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No feedback yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tEMAIL\tRECEIVED\tMESSAGE")
	fmt.Fprintln(w, "--\t----\t-----\t--------\t-------")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Type, e.Email, e.CreatedAt.Format(time.DateTime), preview(e.Message, 60))
	}
	w.Flush()

	total, err := store.CountFeedback(ctx)
	if err != nil {
		return fmt.Errorf("failed to count feedback: %w", err)
	}
	fmt.Printf("\nShowing %d of %d entries\n", len(entries), total)
	return nil
}

// preview flattens a message onto one line and truncates it to n runes.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
