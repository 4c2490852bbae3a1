package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/woodsnap/internal/cli"
	"github.com/Veraticus/woodsnap/internal/identify"
)

func identifyCmd() *cobra.Command {
	var (
		offline bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "identify PHOTO [PHOTO...]",
		Short: "Identify the wood species in up to three photos",
		Long: fmt.Sprintf(`Identify the wood species shown in 1 to %d photos of the same sample.

Each successful identification uses one scan from the daily allowance and is
saved in history. Repeating a single-photo scan is answered from cache for free.`, identify.MaxPhotos),
		Args: cobra.RangeArgs(1, identify.MaxPhotos),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			photos, err := readPhotos(args)
			if err != nil {
				return err
			}

			a, err := newApp(ctx, appOptions{offline: offline})
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			result, scan, err := a.Identify(ctx, photos)
			if err != nil {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), cli.RenderError(err))
				return err
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			_, _ = fmt.Fprintln(out, cli.RenderResult(result))
			if scan != nil {
				_, _ = fmt.Fprintln(out, cli.FormatInfo("Saved as scan "+scan.ID))
			}
			if a.ReviewDue(ctx) {
				_, _ = fmt.Fprintln(out, cli.FormatInfo("Enjoying woodsnap? A quick review helps other woodworkers find it."))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the network and use the on-device model")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}
