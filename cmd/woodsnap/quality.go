package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/woodsnap/internal/cli"
	"github.com/Veraticus/woodsnap/internal/imaging"
)

func qualityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quality PHOTO [PHOTO...]",
		Short: "Check whether photos are good enough to scan",
		Long: `Check photos for low resolution and poor exposure before spending a scan.

The check is advisory and never uses the daily allowance.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			photos, err := readPhotos(args)
			if err != nil {
				return err
			}

			processor := imaging.NewProcessor(imaging.DefaultMaxDimension)
			out := cmd.OutOrStdout()
			for i, data := range photos {
				name := filepath.Base(args[i])
				img, err := processor.Decode(data)
				if err != nil {
					_, _ = fmt.Fprintln(out, cli.FormatError(name+": "+err.Error()))
					continue
				}
				_, _ = fmt.Fprintln(out, cli.RenderQuality(name, processor.AssessQuality(img)))
			}
			return nil
		},
	}
}
