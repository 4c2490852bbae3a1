package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/woodsnap/internal/cli"
	"github.com/Veraticus/woodsnap/internal/common"
	"github.com/Veraticus/woodsnap/internal/model"
)

func correctCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "correct SCAN_ID [SPECIES...]",
		Short: "Record the real species for a past scan",
		Long: `Record that a scan was misidentified.

SPECIES may be a match number from the scan, a reference species id such as
"quercus-alba", or a common name. Without SPECIES the matches are listed and the
answer is read from stdin.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			_, store, err := newStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			scan, err := store.GetScan(ctx, args[0])
			if errors.Is(err, common.ErrNotFound) {
				return fmt.Errorf("no scan with id %s", args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to load scan: %w", err)
			}

			var correction *model.Correction
			if len(args) > 1 {
				correction, err = cli.ResolveCorrection(scan, strings.Join(args[1:], " "))
			} else {
				correction, err = cli.NewCorrectionPrompter(os.Stdin, cmd.OutOrStdout()).Prompt(ctx, scan)
			}
			if err != nil {
				return err
			}

			if err := store.SaveCorrection(ctx, correction); err != nil {
				return fmt.Errorf("failed to save correction: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Marked scan as "+correction.CorrectedCommonName))
			return nil
		},
	}
}
