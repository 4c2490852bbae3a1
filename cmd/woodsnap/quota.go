package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/woodsnap/internal/cli"
	"github.com/Veraticus/woodsnap/internal/quota"
)

func quotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show how many scans are left today",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			settings, store, err := newStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tracker := newTracker(store, quota.NewCapability(settings.Unlimited))
			out := cmd.OutOrStdout()

			remaining := tracker.Remaining(ctx)
			_, _ = fmt.Fprintln(out, cli.RenderRemaining(remaining))
			if remaining != quota.Unlimited {
				_, _ = fmt.Fprintf(out, "Used today: %d of %d\n", tracker.UsedToday(ctx), quota.DailyLimit)
			}
			_, _ = fmt.Fprintf(out, "Total successful scans: %d\n", tracker.TotalUsed(ctx))
			return nil
		},
	}
}
