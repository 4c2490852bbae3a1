package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/woodsnap/internal/cli"
	"github.com/Veraticus/woodsnap/internal/storage"
)

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent scans",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			_, store, err := newStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			scans, err := store.ListScans(ctx, limit)
			if err != nil {
				return fmt.Errorf("failed to list scans: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(scans) == 0 {
				_, _ = fmt.Fprintln(out, cli.FormatInfo("No scans yet. Try: woodsnap identify photo.jpg"))
				return nil
			}
			_, _ = fmt.Fprintln(out, cli.RenderHistory(scans))

			total, err := store.CountScans(ctx)
			if err == nil && total > len(scans) {
				_, _ = fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("Showing %d of %d scans", len(scans), total)))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", storage.DefaultHistoryLimit, "Number of scans to show")

	return cmd
}
