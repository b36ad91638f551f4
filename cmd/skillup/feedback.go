package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"skillup/internal/repository"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Manage stored feedback",
}

var feedbackListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your feedback, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, store repository.FeedbackStore, user string) error {
			recs, err := store.ListByUser(ctx, user)
			if err != nil {
				return fmt.Errorf("failed to list feedback: %w", err)
			}
			if len(recs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), noticeStyle.Render("No feedback yet."))
				return nil
			}
			for _, rec := range recs {
				fmt.Fprintln(cmd.OutOrStdout(), renderRecordLine(rec))
			}
			return nil
		})
	},
}

var feedbackShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one feedback report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, store repository.FeedbackStore, user string) error {
			rec, err := store.Get(ctx, user, args[0])
			if err != nil {
				return fmt.Errorf("failed to get feedback %s: %w", args[0], err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s with %s\n", titleStyle.Render(string(rec.Type)), rec.Topic, rec.TrainerName)
			fmt.Fprintln(out, termRenderer{}.Feedback(&rec.Feedback, nil))
			return nil
		})
	},
}

var feedbackDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one feedback report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, store repository.FeedbackStore, user string) error {
			if err := store.Delete(ctx, user, args[0]); err != nil {
				return fmt.Errorf("failed to delete feedback %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		})
	},
}

func init() {
	feedbackCmd.PersistentFlags().String("user", defaultUser(), "owner of the feedback")
	feedbackCmd.AddCommand(feedbackListCmd)
	feedbackCmd.AddCommand(feedbackShowCmd)
	feedbackCmd.AddCommand(feedbackDeleteCmd)
}

func withStore(cmd *cobra.Command, fn func(ctx context.Context, store repository.FeedbackStore, user string) error) error {
	user, err := cmd.Flags().GetString("user")
	if err != nil {
		return fmt.Errorf("failed to read 'user' flag: %w", err)
	}
	store, err := buildStore(cfg, "skillup-feedback")
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cmd.Context(), store, user)
}
